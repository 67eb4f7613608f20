// Package vectorutils is the vector utility package
package vectorutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/shelf/pkg/vector"
	"github.com/papercomputeco/shelf/pkg/vector/inmemory"
	"github.com/papercomputeco/shelf/pkg/vector/qdrant"
	"github.com/papercomputeco/shelf/pkg/vector/sqlitevec"
)

type NewProviderOpts struct {
	ProviderType string
	Target       string
	DBPath       string
	Dimensions   uint64
	Logger       *slog.Logger
}

func NewProvider(o *NewProviderOpts) (vector.Provider, error) {
	switch o.ProviderType {
	case "qdrant":
		return qdrant.NewProvider(qdrant.Config{
			Target:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "sqlitevec":
		return sqlitevec.NewProvider(sqlitevec.Config{
			DBPath:     o.DBPath,
			Dimensions: uint(o.Dimensions),
		}, o.Logger)
	case "inmemory":
		return inmemory.NewProvider(o.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported vector provider: %s", o.ProviderType)
	}
}
