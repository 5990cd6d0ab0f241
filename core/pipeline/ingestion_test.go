package pipeline

import (
	"context"
	"testing"

	"github.com/siherrmann/docgraph/core/graph"
	"github.com/siherrmann/docgraph/core/resolve"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
	"github.com/siherrmann/docgraph/services/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	extractor *mock.ContentExtractor
	completer *mock.Completer
	knowledge *mock.KnowledgeExtractor
	validator *mock.OntologyValidator
	embedder  *mock.Embedder
	index     *mock.SearchIndex
	documents *mock.DocumentStore
	store     *mock.GraphStore
	pipeline  *IngestionPipeline
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		extractor: mock.NewContentExtractor(),
		completer: &mock.Completer{},
		knowledge: &mock.KnowledgeExtractor{},
		validator: mock.NewOntologyValidator(),
		embedder:  mock.NewEmbedder(8),
		index:     mock.NewSearchIndex(),
		documents: mock.NewDocumentStore(),
		store:     mock.NewGraphStore(),
	}
	resolver := resolve.NewResolver(f.store, f.embedder, nil)
	updater := graph.NewUpdater(f.store, f.embedder, 0, nil)
	chunker := NewChunker(&mock.BoundaryDetector{}, nil)
	opts := DefaultOptions()
	opts.Chunking.Strategy = model.StrategyFixed
	opts.Chunking.WindowSize = 50
	opts.Chunking.Overlap = 5
	f.pipeline = NewIngestionPipeline(
		f.extractor, f.completer, f.knowledge, f.validator,
		f.embedder, f.index, f.documents, chunker, resolver, updater,
		opts, nil,
	)
	return f
}

func TestProcess(t *testing.T) {
	t.Run("Stages run in order and the document completes", func(t *testing.T) {
		f := newPipelineFixture()
		f.extractor.Documents["blob://report"] = &services.ExtractedDocument{
			Content: "Acme Corp hired Jane Doe. The partnership with Beta Inc grew.",
		}
		f.knowledge.Entities = []*model.Entity{
			{Name: "Acme Corp", Type: "organization", Confidence: 0.9},
			{Name: "Jane Doe", Type: "person", Confidence: 0.8},
		}
		f.knowledge.Relationships = []*model.Relationship{
			{From: "Acme Corp", To: "Jane Doe", Type: "employs", Confidence: 0.85},
		}

		doc := model.NewDocument("report", "blob://report", "application/pdf")
		err := f.pipeline.Process(context.Background(), doc)
		require.NoError(t, err)

		assert.Equal(t, model.StatusCompleted, doc.Status)
		expected := []model.Status{
			model.StatusExtractingContent,
			model.StatusExtractingVisuals,
			model.StatusChunking,
			model.StatusExtractingEntities,
			model.StatusValidatingExtraction,
			model.StatusResolvingEntities,
			model.StatusGeneratingEmbeddings,
			model.StatusIndexingSearch,
			model.StatusUpdatingGraph,
			model.StatusTrackingMentions,
			model.StatusDiscoveringCrossDocLinks,
			model.StatusCompleted,
		}
		assert.Equal(t, expected, f.documents.StatusHistory)

		// Stage timestamps exist for every visited stage
		for _, stage := range expected {
			assert.Contains(t, doc.StageTimes, stage)
		}

		assert.Len(t, f.store.Vertices, 2)
		assert.Len(t, f.store.Edges, 1)
		assert.Equal(t, doc.Stats.ChunkCount, f.index.IndexedCount())
		assert.Equal(t, 2, doc.Stats.EntityCount)
		assert.Equal(t, 1, doc.Stats.RelationshipCount)
		assert.Equal(t, 2, doc.Stats.Resolution.Created)
	})

	t.Run("Extraction failure marks the document failed", func(t *testing.T) {
		f := newPipelineFixture()
		f.extractor.ShouldError = true

		doc := model.NewDocument("broken", "blob://broken", "application/pdf")
		err := f.pipeline.Process(context.Background(), doc)
		require.Error(t, err)

		assert.Equal(t, model.StatusFailed, doc.Status)
		assert.NotEmpty(t, doc.Error)
		assert.Equal(t, 0, f.index.IndexedCount())
		assert.Empty(t, f.store.Vertices)
	})

	t.Run("Resolution failure falls back instead of failing the document", func(t *testing.T) {
		f := newPipelineFixture()
		f.extractor.Documents["blob://doc"] = &services.ExtractedDocument{Content: "Acme Corp appears here."}
		f.knowledge.Entities = []*model.Entity{{Name: "Acme Corp", Confidence: 0.9}}
		f.store.FailReads = true

		doc := model.NewDocument("doc", "blob://doc", "application/pdf")
		err := f.pipeline.Process(context.Background(), doc)
		require.NoError(t, err)

		assert.Equal(t, model.StatusCompleted, doc.Status)
		require.Len(t, doc.Entities, 1)
		assert.Equal(t, model.ActionFallback, doc.Entities[0].Action)
		assert.InDelta(t, 1.0, doc.Entities[0].Confidence, 0.001)
	})

	t.Run("Only addressable figures are described", func(t *testing.T) {
		f := newPipelineFixture()
		f.completer.VisionResponse = "A bar chart of quarterly revenue."
		f.extractor.Documents["blob://doc"] = &services.ExtractedDocument{
			Content: "Quarterly report body.",
			Figures: []services.Figure{
				{Title: "Figure 1", ImageURL: "https://blobs.example/fig1.png"},
				{Title: "Figure 2", ImageURL: ""},
			},
		}

		doc := model.NewDocument("doc", "blob://doc", "application/pdf")
		err := f.pipeline.Process(context.Background(), doc)
		require.NoError(t, err)

		assert.Equal(t, 1, f.completer.VisionCalls)
		assert.Equal(t, 2, doc.Stats.FigureCount)
		assert.Equal(t, 1, doc.Stats.FiguresSkipped)
	})

	t.Run("Embedding runs in fixed batches", func(t *testing.T) {
		f := newPipelineFixture()
		f.pipeline.opts.EmbedBatchSize = 2
		f.pipeline.opts.Chunking.WindowSize = 5
		f.pipeline.opts.Chunking.Overlap = 0
		f.extractor.Documents["blob://doc"] = &services.ExtractedDocument{Content: wordText(25)}

		doc := model.NewDocument("doc", "blob://doc", "application/pdf")
		err := f.pipeline.Process(context.Background(), doc)
		require.NoError(t, err)

		assert.Equal(t, []int{2, 2, 1}, f.embedder.BatchSizes)
	})

	t.Run("Chunks are tagged with the entities they mention", func(t *testing.T) {
		f := newPipelineFixture()
		f.extractor.Documents["blob://doc"] = &services.ExtractedDocument{Content: "Acme Corp announced results today."}
		f.knowledge.Entities = []*model.Entity{{Name: "Acme Corp", Confidence: 0.9}}

		doc := model.NewDocument("doc", "blob://doc", "application/pdf")
		err := f.pipeline.Process(context.Background(), doc)
		require.NoError(t, err)

		ids := f.index.IndexedForDocument(doc.ID)
		require.NotEmpty(t, ids)
		assert.Equal(t, 1, doc.Stats.UniqueEntitiesMentioned)
	})

	t.Run("Validator penalties reach the stored entities", func(t *testing.T) {
		f := newPipelineFixture()
		f.validator.InvalidTypes["alien"] = true
		f.extractor.Documents["blob://doc"] = &services.ExtractedDocument{Content: "Zorg arrived."}
		f.knowledge.Entities = []*model.Entity{{Name: "Zorg", Type: "alien", Confidence: 0.9}}

		doc := model.NewDocument("doc", "blob://doc", "application/pdf")
		err := f.pipeline.Process(context.Background(), doc)
		require.NoError(t, err)

		require.Len(t, doc.Entities, 1)
		assert.False(t, doc.Entities[0].ValidationPassed)
		assert.InDelta(t, 0.7, doc.Entities[0].Confidence, 0.001)
		assert.NotEmpty(t, doc.Entities[0].ValidationWarnings)
	})
}

func TestReprocess(t *testing.T) {
	t.Run("Clears index entries and document edges but keeps vertices", func(t *testing.T) {
		f := newPipelineFixture()
		f.extractor.Documents["blob://doc"] = &services.ExtractedDocument{Content: "Acme Corp works with Beta Inc."}
		f.knowledge.Entities = []*model.Entity{
			{Name: "Acme Corp", Confidence: 0.9},
			{Name: "Beta Inc", Confidence: 0.9},
		}
		f.knowledge.Relationships = []*model.Relationship{
			{From: "Acme Corp", To: "Beta Inc", Type: "partners_with", Confidence: 0.8},
		}

		doc := model.NewDocument("doc", "blob://doc", "application/pdf")
		require.NoError(t, f.pipeline.Process(context.Background(), doc))
		require.Len(t, f.store.Edges, 1)
		firstChunkCount := f.index.IndexedCount()

		err := f.pipeline.Reprocess(context.Background(), doc.ID)
		require.NoError(t, err)

		assert.Equal(t, model.StatusCompleted, doc.Status)
		assert.Len(t, f.store.Vertices, 2)
		assert.Len(t, f.store.Edges, 1)
		assert.Equal(t, firstChunkCount, f.index.IndexedCount())
	})

	t.Run("Unknown document id fails", func(t *testing.T) {
		f := newPipelineFixture()
		err := f.pipeline.Reprocess(context.Background(), model.NewDocument("x", "y", "z").ID)
		assert.Error(t, err)
	})
}
