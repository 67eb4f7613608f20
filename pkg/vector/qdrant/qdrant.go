// Package qdrant implements pkg/vector's Provider against a Qdrant server
// over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/shelf/pkg/vector"
)

const (
	// DefaultTarget is the default Qdrant gRPC address.
	DefaultTarget = "localhost:6334"

	// DefaultDimensions matches the all-MiniLM embedding size.
	DefaultDimensions = 384
)

// Config holds configuration for the Qdrant provider.
type Config struct {
	// Target is the host:port of the Qdrant gRPC endpoint. Defaults to
	// DefaultTarget if empty.
	Target string

	// Dimensions is the embedding size collections are created with.
	// Defaults to DefaultDimensions if zero.
	Dimensions uint64
}

// Provider provisions Qdrant collections as vector indexes.
type Provider struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	dimensions  uint64
	logger      *slog.Logger
}

// NewProvider connects to Qdrant over gRPC.
func NewProvider(c Config, logger *slog.Logger) (*Provider, error) {
	target := c.Target
	if target == "" {
		target = DefaultTarget
	}

	dimensions := c.Dimensions
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", vector.ErrConnection, target, err)
	}

	logger.Info("qdrant vector provider initialized",
		"target", target,
		"dimensions", dimensions,
	)

	return &Provider{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		dimensions:  dimensions,
		logger:      logger,
	}, nil
}

// Ensure creates the named collection with cosine distance if it does not
// already exist. An AlreadyExists conflict from a concurrent creator counts
// as success.
func (p *Provider) Ensure(ctx context.Context, name string) (vector.Index, error) {
	_, err := p.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     p.dimensions,
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return nil, fmt.Errorf("%w: creating collection %s: %v", vector.ErrProvider, name, err)
	}

	if err == nil {
		p.logger.Debug("created qdrant collection", "collection", name)
	}

	return &collection{provider: p, name: name}, nil
}

// Close tears down the gRPC connection.
func (p *Provider) Close() error {
	return p.conn.Close()
}

// collection is an Index bound to one Qdrant collection.
type collection struct {
	provider *Provider
	name     string
}

// pointNum derives a stable numeric point id from a record id. Qdrant point
// ids must be integers or UUIDs, so the string id lives in the payload and
// its hash addresses the point. Re-upserting the same record id overwrites
// the same point.
func pointNum(id string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64()
}

func (c *collection) Upsert(ctx context.Context, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrantclient.PointStruct, 0, len(points))
	for _, pt := range points {
		structs = append(structs, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Num{
					Num: pointNum(pt.ID),
				},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{
						Data: pt.Vector,
					},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				"id":   {Kind: &qdrantclient.Value_StringValue{StringValue: pt.ID}},
				"text": {Kind: &qdrantclient.Value_StringValue{StringValue: pt.Text}},
			},
		})
	}

	_, err := c.provider.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: c.name,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("%w: upserting %d points into %s: %v", vector.ErrProvider, len(points), c.name, err)
	}

	c.provider.logger.Debug("upserted points",
		"collection", c.name,
		"count", len(points),
	)

	return nil
}

func (c *collection) Search(ctx context.Context, embedding []float32, topK uint64) ([]vector.Match, error) {
	resp, err := c.provider.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: c.name,
		Vector:         embedding,
		Limit:          topK,
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Include{
				Include: &qdrantclient.PayloadIncludeSelector{
					Fields: []string{"text"},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: searching %s: %v", vector.ErrProvider, c.name, err)
	}

	matches := make([]vector.Match, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		match := vector.Match{Score: point.GetScore()}
		if textVal, ok := point.GetPayload()["text"]; ok {
			match.Text = textVal.GetStringValue()
		}
		matches = append(matches, match)
	}

	return matches, nil
}

func (c *collection) Count(ctx context.Context) (uint64, error) {
	exact := true
	resp, err := c.provider.points.Count(ctx, &qdrantclient.CountPoints{
		CollectionName: c.name,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting points in %s: %v", vector.ErrProvider, c.name, err)
	}

	return resp.GetResult().GetCount(), nil
}

var _ vector.Provider = (*Provider)(nil)
var _ vector.Index = (*collection)(nil)
