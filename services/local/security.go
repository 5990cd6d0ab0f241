package local

import (
	"context"

	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

// OpenTrimmer is a security trimmer for single-tenant deployments where every
// user may read every document. Deployments with per-user ACLs plug in their
// own SecurityTrimmer instead.
type OpenTrimmer struct{}

// NewOpenTrimmer creates a new OpenTrimmer.
func NewOpenTrimmer() *OpenTrimmer {
	return &OpenTrimmer{}
}

// BuildFilter returns a filter that matches every chunk.
func (t *OpenTrimmer) BuildFilter(ctx context.Context, userID string) (string, error) {
	return "true", nil
}

// FilterResults passes every result through.
func (t *OpenTrimmer) FilterResults(ctx context.Context, results []*services.SearchResult, userID string) ([]*services.SearchResult, int, error) {
	return results, 0, nil
}

// FilterEntities passes every entity through.
func (t *OpenTrimmer) FilterEntities(ctx context.Context, entities []*model.Vertex, userID string) ([]*model.Vertex, error) {
	return entities, nil
}

// FilterRelationships passes every relationship through.
func (t *OpenTrimmer) FilterRelationships(ctx context.Context, relationships []*model.GraphEdge, userID string) ([]*model.GraphEdge, error) {
	return relationships, nil
}
