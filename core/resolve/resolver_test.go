package resolve

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
	"github.com/siherrmann/docgraph/services/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	documentID := uuid.New()

	t.Run("Duplicate name within batch is merged into the first occurrence", func(t *testing.T) {
		graph := mock.NewGraphStore()
		resolver := NewResolver(graph, mock.NewEmbedder(8), nil)

		entities := []*model.Entity{
			{Name: "Acme Corp", Type: "organization"},
			{Name: "acme corp", Type: "organization"},
		}
		resolution, err := resolver.Resolve(context.Background(), entities, documentID, model.DefaultResolveOptions())
		require.NoError(t, err)
		require.Len(t, resolution.Resolved, 2)

		assert.Equal(t, model.ActionMerged, resolution.Resolved[1].Action)
		assert.Equal(t, "Acme Corp", resolution.Resolved[1].ResolvedTo)
		assert.Equal(t, 1, resolution.Stats.Merged)
	})

	t.Run("Stored vertex with the same name is an exact match", func(t *testing.T) {
		graph := mock.NewGraphStore()
		graph.Vertices["acme corp"] = &model.Vertex{Name: "Acme Corp", Type: "organization"}
		resolver := NewResolver(graph, mock.NewEmbedder(8), nil)

		entities := []*model.Entity{{Name: "Acme Corp", Type: "organization"}}
		resolution, err := resolver.Resolve(context.Background(), entities, documentID, model.DefaultResolveOptions())
		require.NoError(t, err)

		assert.Equal(t, model.ActionExactMatch, resolution.Resolved[0].Action)
		assert.Equal(t, "Acme Corp", resolution.Resolved[0].ResolvedTo)
		assert.EqualValues(t, 1.0, resolution.Resolved[0].Similarity)
		assert.Equal(t, 1, resolution.Stats.ExactMatch)
	})

	t.Run("High similarity candidate links as same entity", func(t *testing.T) {
		graph := mock.NewGraphStore()
		graph.Similar = []*services.VertexSimilarity{
			{Vertex: &model.Vertex{Name: "ACME Corporation"}, Similarity: 0.95},
		}
		resolver := NewResolver(graph, mock.NewEmbedder(8), nil)

		entities := []*model.Entity{{Name: "Acme Corp", Type: "organization"}}
		resolution, err := resolver.Resolve(context.Background(), entities, documentID, model.DefaultResolveOptions())
		require.NoError(t, err)

		assert.Equal(t, model.ActionLinkedSameAs, resolution.Resolved[0].Action)
		assert.Equal(t, "ACME Corporation", resolution.Resolved[0].ResolvedTo)
		assert.InDelta(t, 0.95, resolution.Resolved[0].Similarity, 0.001)
		assert.Equal(t, 1, resolution.Stats.LinkedSameAs)
	})

	t.Run("Moderate similarity candidate links as similar but keeps own name", func(t *testing.T) {
		graph := mock.NewGraphStore()
		graph.Similar = []*services.VertexSimilarity{
			{Vertex: &model.Vertex{Name: "Acme Industries"}, Similarity: 0.87},
		}
		resolver := NewResolver(graph, mock.NewEmbedder(8), nil)

		entities := []*model.Entity{{Name: "Acme Corp", Type: "organization"}}
		resolution, err := resolver.Resolve(context.Background(), entities, documentID, model.DefaultResolveOptions())
		require.NoError(t, err)

		assert.Equal(t, model.ActionLinkedSimilar, resolution.Resolved[0].Action)
		assert.Equal(t, "Acme Corp", resolution.Resolved[0].ResolvedTo)
		assert.Equal(t, 1, resolution.Stats.LinkedSimilar)
	})

	t.Run("No candidate above thresholds creates a new entity", func(t *testing.T) {
		graph := mock.NewGraphStore()
		graph.Similar = []*services.VertexSimilarity{
			{Vertex: &model.Vertex{Name: "Unrelated"}, Similarity: 0.4},
		}
		resolver := NewResolver(graph, mock.NewEmbedder(8), nil)

		entities := []*model.Entity{{Name: "Novel Entity", Type: "concept"}}
		resolution, err := resolver.Resolve(context.Background(), entities, documentID, model.DefaultResolveOptions())
		require.NoError(t, err)

		assert.Equal(t, model.ActionCreated, resolution.Resolved[0].Action)
		assert.Equal(t, "Novel Entity", resolution.Resolved[0].ResolvedTo)
		assert.Equal(t, 1, resolution.Stats.Created)
	})

	t.Run("Embedder failure fails the whole batch", func(t *testing.T) {
		graph := mock.NewGraphStore()
		embedder := mock.NewEmbedder(8)
		embedder.ShouldError = true
		resolver := NewResolver(graph, embedder, nil)

		entities := []*model.Entity{{Name: "Acme Corp"}}
		_, err := resolver.Resolve(context.Background(), entities, documentID, model.DefaultResolveOptions())
		assert.Error(t, err)
	})
}

func TestFallback(t *testing.T) {
	t.Run("All entities pass through as newly created with full confidence", func(t *testing.T) {
		entities := []*model.Entity{
			{Name: "Alpha", Confidence: 0.9},
			{Name: "Beta", Confidence: 0.7},
		}
		resolution := Fallback(entities)
		require.Len(t, resolution.Resolved, 2)
		for _, e := range resolution.Resolved {
			assert.Equal(t, model.ActionFallback, e.Action)
			assert.Equal(t, e.Name, e.ResolvedTo)
			assert.InDelta(t, 1.0, e.Confidence, 0.001)
		}
		assert.Equal(t, 2, resolution.Stats.Created)
	})
}

func TestDiscoverCrossDocumentRelationships(t *testing.T) {
	documentID := uuid.New()

	t.Run("Proposes related_to edges to similar entities of other documents", func(t *testing.T) {
		graph := mock.NewGraphStore()
		graph.Similar = []*services.VertexSimilarity{
			{Vertex: &model.Vertex{Name: "Foreign Entity"}, Similarity: 0.9},
			{Vertex: &model.Vertex{Name: "Too Distant"}, Similarity: 0.5},
		}
		resolver := NewResolver(graph, mock.NewEmbedder(8), nil)

		entities := []*model.Entity{{Name: "Local Entity", ResolvedTo: "Local Entity"}}
		relationships := resolver.DiscoverCrossDocumentRelationships(context.Background(), documentID, entities, 0.85)

		require.Len(t, relationships, 1)
		assert.Equal(t, "Local Entity", relationships[0].From)
		assert.Equal(t, "Foreign Entity", relationships[0].To)
		assert.Equal(t, "related_to", relationships[0].Type)
		assert.Equal(t, documentID, relationships[0].DocumentID)
	})

	t.Run("Never links an entity to itself or to batch members", func(t *testing.T) {
		graph := mock.NewGraphStore()
		graph.Similar = []*services.VertexSimilarity{
			{Vertex: &model.Vertex{Name: "local entity"}, Similarity: 0.99},
			{Vertex: &model.Vertex{Name: "Sibling"}, Similarity: 0.9},
		}
		resolver := NewResolver(graph, mock.NewEmbedder(8), nil)

		entities := []*model.Entity{
			{Name: "Local Entity", ResolvedTo: "Local Entity"},
			{Name: "Sibling", ResolvedTo: "Sibling"},
		}
		relationships := resolver.DiscoverCrossDocumentRelationships(context.Background(), documentID, entities, 0.85)
		assert.Empty(t, relationships)
	})

	t.Run("Lookup failure is non fatal", func(t *testing.T) {
		graph := mock.NewGraphStore()
		graph.ShouldError = true
		resolver := NewResolver(graph, mock.NewEmbedder(8), nil)

		entities := []*model.Entity{{Name: "Local Entity", ResolvedTo: "Local Entity"}}
		relationships := resolver.DiscoverCrossDocumentRelationships(context.Background(), documentID, entities, 0.85)
		assert.Empty(t, relationships)
	})
}
