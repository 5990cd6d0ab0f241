package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertEntities(t *testing.T) {
	t.Run("New entities are added and repeated names update in place", func(t *testing.T) {
		store := mock.NewGraphStore()
		updater := NewUpdater(store, mock.NewEmbedder(8), 0, nil)

		entities := []*model.Entity{
			{Name: "Acme Corp", ResolvedTo: "Acme Corp", Type: "organization"},
			{Name: "Jane Doe", ResolvedTo: "Jane Doe", Type: "person"},
			{Name: "acme corp", ResolvedTo: "Acme Corp", Type: "organization", Description: "updated"},
		}
		stats, err := updater.UpsertEntities(context.Background(), entities)
		require.NoError(t, err)

		assert.Equal(t, 2, stats.Added)
		assert.Equal(t, 1, stats.Updated)
		assert.Len(t, store.Vertices, 2)
		assert.Equal(t, "updated", store.Vertices["acme corp"].Description)
	})

	t.Run("Linked entity writes under its canonical name", func(t *testing.T) {
		store := mock.NewGraphStore()
		updater := NewUpdater(store, mock.NewEmbedder(8), 0, nil)

		entities := []*model.Entity{
			{Name: "Acme Corp", ResolvedTo: "ACME Corporation", Action: model.ActionLinkedSameAs},
		}
		_, err := updater.UpsertEntities(context.Background(), entities)
		require.NoError(t, err)

		assert.Contains(t, store.Vertices, "acme corporation")
		assert.NotContains(t, store.Vertices, "acme corp")
	})

	t.Run("Failed vertex write is skipped and the rest still lands", func(t *testing.T) {
		store := mock.NewGraphStore()
		store.FailWrites["Broken"] = true
		updater := NewUpdater(store, mock.NewEmbedder(8), 0, nil)

		entities := []*model.Entity{
			{Name: "Broken", ResolvedTo: "Broken"},
			{Name: "Fine", ResolvedTo: "Fine"},
		}
		stats, err := updater.UpsertEntities(context.Background(), entities)
		require.NoError(t, err)

		assert.Equal(t, 1, stats.Added)
		assert.Equal(t, 1, stats.Skipped)
		assert.Contains(t, store.Vertices, "fine")
	})
}

func TestUpsertRelationships(t *testing.T) {
	documentID := uuid.New()

	t.Run("Edge endpoints follow resolved entity names", func(t *testing.T) {
		store := mock.NewGraphStore()
		updater := NewUpdater(store, mock.NewEmbedder(8), 0, nil)

		resolved := map[string]string{"acme corp": "ACME Corporation"}
		relationships := []*model.Relationship{
			{From: "Acme Corp", To: "Jane Doe", Type: "employs", Confidence: 0.9, DocumentID: documentID},
		}
		stats, err := updater.UpsertRelationships(context.Background(), relationships, resolved)
		require.NoError(t, err)

		assert.Equal(t, 1, stats.Added)
		require.Len(t, store.Edges, 1)
		assert.Equal(t, "ACME Corporation", store.Edges[0].From)
		assert.Equal(t, "Jane Doe", store.Edges[0].To)
		assert.Equal(t, documentID, store.Edges[0].SourceDocumentID)
	})

	t.Run("Failed edge write is skipped", func(t *testing.T) {
		store := mock.NewGraphStore()
		store.FailWrites["Broken"] = true
		updater := NewUpdater(store, mock.NewEmbedder(8), 0, nil)

		relationships := []*model.Relationship{
			{From: "Broken", To: "Other", Type: "relates", DocumentID: documentID},
			{From: "Fine", To: "Other", Type: "relates", DocumentID: documentID},
		}
		stats, err := updater.UpsertRelationships(context.Background(), relationships, nil)
		require.NoError(t, err)

		assert.Equal(t, 1, stats.Added)
		assert.Equal(t, 1, stats.Skipped)
	})
}

func TestTrackMentions(t *testing.T) {
	t.Run("Counts whole words case-insensitively", func(t *testing.T) {
		store := mock.NewGraphStore()
		store.Vertices["risk"] = &model.Vertex{Name: "Risk"}
		updater := NewUpdater(store, mock.NewEmbedder(8), 0, nil)

		entities := []*model.Entity{{Name: "Risk", ResolvedTo: "Risk"}}
		chunks := []*model.Chunk{
			{Content: "Risk assessment risks were high."},
		}
		stats, err := updater.TrackMentions(context.Background(), entities, chunks)
		require.NoError(t, err)

		assert.Equal(t, 1, stats.TotalMentions)
		assert.Equal(t, 1, stats.UniqueEntitiesMentioned)
		assert.Equal(t, 1, store.Vertices["risk"].MentionCount)
	})

	t.Run("Mentions accumulate across chunks", func(t *testing.T) {
		store := mock.NewGraphStore()
		store.Vertices["acme corp"] = &model.Vertex{Name: "Acme Corp"}
		updater := NewUpdater(store, mock.NewEmbedder(8), 0, nil)

		entities := []*model.Entity{{Name: "Acme Corp", ResolvedTo: "Acme Corp"}}
		chunks := []*model.Chunk{
			{Content: "Acme Corp announced results. ACME CORP grew."},
			{Content: "Analysts expect acme corp to continue."},
		}
		stats, err := updater.TrackMentions(context.Background(), entities, chunks)
		require.NoError(t, err)

		assert.Equal(t, 3, stats.TotalMentions)
		assert.Equal(t, 3, store.Vertices["acme corp"].MentionCount)
	})

	t.Run("Entity without any mention is excluded from the update", func(t *testing.T) {
		store := mock.NewGraphStore()
		store.Vertices["ghost"] = &model.Vertex{Name: "Ghost"}
		updater := NewUpdater(store, mock.NewEmbedder(8), 0, nil)

		entities := []*model.Entity{{Name: "Ghost", ResolvedTo: "Ghost"}}
		chunks := []*model.Chunk{{Content: "Nothing relevant here."}}
		stats, err := updater.TrackMentions(context.Background(), entities, chunks)
		require.NoError(t, err)

		assert.Equal(t, 0, stats.TotalMentions)
		assert.Equal(t, 0, stats.UniqueEntitiesMentioned)
		assert.Equal(t, 0, store.Vertices["ghost"].MentionCount)
	})
}

func TestDeleteDocumentEdges(t *testing.T) {
	t.Run("Removes only the document's edges and keeps vertices", func(t *testing.T) {
		store := mock.NewGraphStore()
		keep := uuid.New()
		drop := uuid.New()
		store.Vertices["shared"] = &model.Vertex{Name: "Shared"}
		store.Edges = []*model.GraphEdge{
			{From: "Shared", To: "A", Type: "relates", SourceDocumentID: keep},
			{From: "Shared", To: "B", Type: "relates", SourceDocumentID: drop},
		}
		updater := NewUpdater(store, mock.NewEmbedder(8), 0, nil)

		err := updater.DeleteDocumentEdges(context.Background(), drop)
		require.NoError(t, err)

		require.Len(t, store.Edges, 1)
		assert.Equal(t, keep, store.Edges[0].SourceDocumentID)
		assert.Contains(t, store.Vertices, "shared")
	})
}
