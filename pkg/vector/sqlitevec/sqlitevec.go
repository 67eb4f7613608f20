// Package sqlitevec provides a SQLite-backed vector provider using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/shelf/pkg/vector"
)

// Provider implements vector.Provider using SQLite with sqlite-vec. Each
// named index maps to a pair of tables: a vec0 virtual table for KNN and a
// mapping table from string record ids to integer rowids.
type Provider struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger

	// vec0 DDL is not concurrency-safe across a shared connection
	mu sync.Mutex
}

// Config holds configuration for the sqlite-vec provider.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewProvider opens the database and verifies the sqlite-vec extension.
func NewProvider(c Config, logger *slog.Logger) (*Provider, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	logger.Info("sqlite-vec vector provider initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Provider{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// tableName maps an index name onto a safe SQLite identifier suffix.
func tableName(prefix, index string) string {
	var b strings.Builder
	for _, r := range index {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return prefix + "_" + b.String()
}

// Ensure creates the tables backing the named index if they do not exist.
func (p *Provider) Ensure(_ context.Context, name string) (vector.Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	recordsTable := tableName("records", name)
	embeddingsTable := tableName("embeddings", name)

	createRecords := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %q (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL DEFAULT ''
		)
	`, recordsTable)
	if _, err := p.db.Exec(createRecords); err != nil {
		return nil, fmt.Errorf("%w: creating records table for %s: %v", vector.ErrProvider, name, err)
	}

	// vec0 virtual table for vector storage and KNN queries, cosine metric
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %q USING vec0(embedding float[%d] distance_metric=cosine)`,
		embeddingsTable, p.dimensions,
	)
	if _, err := p.db.Exec(createVec); err != nil {
		return nil, fmt.Errorf("%w: creating vec0 table for %s: %v", vector.ErrProvider, name, err)
	}

	p.logger.Debug("ensured sqlite-vec index", "index", name)

	return &index{
		provider:        p,
		name:            name,
		recordsTable:    recordsTable,
		embeddingsTable: embeddingsTable,
	}, nil
}

// Close releases resources held by the provider.
func (p *Provider) Close() error {
	return p.db.Close()
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// index is a live handle on one named index's table pair.
type index struct {
	provider        *Provider
	name            string
	recordsTable    string
	embeddingsTable string
}

// Upsert stores points, replacing any existing points with the same record
// id. vec0 does not support UPDATE, so replacement goes DELETE then INSERT.
func (x *index) Upsert(ctx context.Context, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := x.provider.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrProvider, err)
	}
	defer tx.Rollback()

	for _, pt := range points {
		embBlob := serializeFloat32(pt.Vector)

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT rowid FROM %q WHERE record_id = ?`, x.recordsTable), pt.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE %q SET text = ? WHERE rowid = ?`, x.recordsTable),
				pt.Text, existingRowID,
			); err != nil {
				return fmt.Errorf("%w: updating record %s: %v", vector.ErrProvider, pt.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %q WHERE rowid = ?`, x.embeddingsTable), existingRowID,
			); err != nil {
				return fmt.Errorf("%w: deleting old embedding for %s: %v", vector.ErrProvider, pt.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %q(rowid, embedding) VALUES (?, ?)`, x.embeddingsTable),
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("%w: re-inserting embedding for %s: %v", vector.ErrProvider, pt.ID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %q(record_id, text) VALUES (?, ?)`, x.recordsTable),
				pt.ID, pt.Text,
			)
			if err != nil {
				return fmt.Errorf("%w: inserting record %s: %v", vector.ErrProvider, pt.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("%w: getting rowid for record %s: %v", vector.ErrProvider, pt.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %q(rowid, embedding) VALUES (?, ?)`, x.embeddingsTable),
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("%w: inserting embedding for %s: %v", vector.ErrProvider, pt.ID, err)
			}
		default:
			return fmt.Errorf("%w: checking for existing record %s: %v", vector.ErrProvider, pt.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", vector.ErrProvider, err)
	}

	x.provider.logger.Debug("upserted points",
		"index", x.name,
		"count", len(points),
	)

	return nil
}

// Search runs a KNN query via vec0 MATCH and joins back to the records
// table for the stored text. Cosine distance converts to similarity as
// 1 - distance.
func (x *index) Search(ctx context.Context, embedding []float32, topK uint64) ([]vector.Match, error) {
	if topK == 0 {
		return nil, nil
	}

	queryBlob := serializeFloat32(embedding)

	query := fmt.Sprintf(`
		SELECT
			r.text,
			e.distance
		FROM %q e
		INNER JOIN %q r ON r.rowid = e.rowid
		WHERE e.embedding MATCH ?
			AND e.k = ?
		ORDER BY e.distance
	`, x.embeddingsTable, x.recordsTable)

	rows, err := x.provider.db.QueryContext(ctx, query, queryBlob, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", vector.ErrProvider, err)
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var text string
		var distance float64
		if err := rows.Scan(&text, &distance); err != nil {
			return nil, fmt.Errorf("%w: scanning query result: %v", vector.ErrProvider, err)
		}

		matches = append(matches, vector.Match{
			Score: float32(1.0 - distance),
			Text:  text,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating query results: %v", vector.ErrProvider, err)
	}

	return matches, nil
}

// Count returns the number of stored records.
func (x *index) Count(ctx context.Context) (uint64, error) {
	var count uint64
	err := x.provider.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %q`, x.recordsTable),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting records: %v", vector.ErrProvider, err)
	}

	return count, nil
}

var _ vector.Provider = (*Provider)(nil)
var _ vector.Index = (*index)(nil)
