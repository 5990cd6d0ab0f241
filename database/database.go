package database

import (
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/siherrmann/docgraph/helper"
)

//go:embed schema.sql
var schema string

// Store bundles the three handlers sharing one Postgres connection.
type Store struct {
	Documents *DocumentHandler
	Search    *SearchHandler
	Graph     *GraphHandler

	db *helper.Database
}

// NewStore connects to Postgres, applies the schema for the given embedding
// dimension and returns the handler bundle.
func NewStore(config *helper.DatabaseConfiguration, embeddingDim int, logger *slog.Logger) (*Store, error) {
	if embeddingDim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %v", embeddingDim)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db := helper.NewDatabase("docgraph", config, logger)
	if _, err := db.Instance.Exec(fmt.Sprintf(schema, embeddingDim)); err != nil {
		return nil, helper.NewError("apply schema", err)
	}

	return &Store{
		Documents: &DocumentHandler{db: db},
		Search:    &SearchHandler{db: db},
		Graph:     &GraphHandler{db: db},
		db:        db,
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Instance.Close()
}
