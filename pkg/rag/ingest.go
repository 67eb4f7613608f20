package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/shelf/pkg/chunker"
	"github.com/papercomputeco/shelf/pkg/embeddings"
	"github.com/papercomputeco/shelf/pkg/eventstream"
	"github.com/papercomputeco/shelf/pkg/loader"
	"github.com/papercomputeco/shelf/pkg/utils"
	"github.com/papercomputeco/shelf/pkg/vector"
)

const (
	// StatusCompleted means the document was chunked, embedded and stored.
	StatusCompleted = "completed"

	// StatusSkipped means the index already held vectors and ingestion was
	// not repeated.
	StatusSkipped = "skipped"

	// chunkIDPrefix prefixes stored record ids; chunk i becomes
	// "manual-chunk-<i>".
	chunkIDPrefix = "manual-chunk"
)

// IngestResult reports the outcome of one ingestion run.
type IngestResult struct {
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	IndexName  string `json:"index_name"`
}

// PipelineConfig holds the chunking window for ingestion.
type PipelineConfig struct {
	// ChunkSize is the sliding window size in bytes. Defaults to
	// chunker.DefaultChunkSize if zero.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive windows in bytes.
	// Defaults to chunker.DefaultOverlap if zero.
	ChunkOverlap int
}

// Pipeline ingests a document into a named vector index.
type Pipeline struct {
	loader   loader.Loader
	embedder embeddings.Embedder
	cache    *vector.Cache
	events   eventstream.Publisher
	logger   *slog.Logger

	chunkSize    int
	chunkOverlap int
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	l loader.Loader,
	embedder embeddings.Embedder,
	cache *vector.Cache,
	events eventstream.Publisher,
	c PipelineConfig,
	logger *slog.Logger,
) *Pipeline {
	chunkSize := c.ChunkSize
	if chunkSize == 0 {
		chunkSize = chunker.DefaultChunkSize
	}

	chunkOverlap := c.ChunkOverlap
	if chunkOverlap == 0 {
		chunkOverlap = chunker.DefaultOverlap
	}

	return &Pipeline{
		loader:       l,
		embedder:     embedder,
		cache:        cache,
		events:       events,
		logger:       logger,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Ingest loads the document, splits it, and stores one embedding per chunk
// in the named index. When the index already holds vectors the run is
// skipped, making ingestion idempotent; a failed run stays re-runnable
// because nothing is written before the first embedding succeeds.
func (p *Pipeline) Ingest(ctx context.Context, indexName string) (*IngestResult, error) {
	started := time.Now()

	text, err := p.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}

	chunks, err := chunker.Split(text, p.chunkSize, p.chunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("splitting document: %w", err)
	}

	index, err := p.cache.GetOrCreate(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("provisioning index %s: %w", indexName, err)
	}

	count, err := index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting vectors in %s: %w", indexName, err)
	}

	if count > 0 {
		p.logger.Info("index already populated, skipping ingestion",
			"index", indexName,
			"vectors", count,
		)

		result := &IngestResult{
			Status:     StatusSkipped,
			ChunkCount: 0,
			IndexName:  indexName,
		}
		p.publishIngestion(ctx, result, time.Since(started))

		return result, nil
	}

	points := make([]vector.Point, 0, len(chunks))
	for _, chunk := range chunks {
		p.logger.Debug("embedding chunk",
			"chunk", chunk.Index,
			"preview", utils.Truncate(chunk.Text, 40),
		)

		embedding, err := p.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d: %w", chunk.Index, err)
		}

		points = append(points, vector.Point{
			ID:     fmt.Sprintf("%s-%d", chunkIDPrefix, chunk.Index),
			Vector: embedding,
			Text:   chunk.Text,
		})
	}

	if err := index.Upsert(ctx, points); err != nil {
		return nil, fmt.Errorf("storing %d chunks in %s: %w", len(points), indexName, err)
	}

	p.logger.Info("document ingested",
		"index", indexName,
		"chunks", len(points),
		"duration", time.Since(started),
	)

	result := &IngestResult{
		Status:     StatusCompleted,
		ChunkCount: len(points),
		IndexName:  indexName,
	}
	p.publishIngestion(ctx, result, time.Since(started))

	return result, nil
}

// publishIngestion emits the ingestion event best-effort; a broken event
// stream must not fail the run.
func (p *Pipeline) publishIngestion(ctx context.Context, result *IngestResult, duration time.Duration) {
	event := eventstream.NewDocumentIngestedEvent(result.IndexName, result.Status, result.ChunkCount, duration)
	if err := p.events.PublishIngestion(ctx, event); err != nil {
		p.logger.Warn("failed to publish ingestion event",
			"index", result.IndexName,
			"error", err,
		)
	}
}
