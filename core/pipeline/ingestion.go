package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/core/graph"
	"github.com/siherrmann/docgraph/core/resolve"
	"github.com/siherrmann/docgraph/helper"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

// Options tunes ingestion behaviour.
type Options struct {
	Chunking model.ChunkOptions
	Resolve  model.ResolveOptions
	// EmbedBatchSize caps how many chunk texts are embedded per call.
	EmbedBatchSize int
	// CrossDocMinSimilarity gates cross-document relationship discovery.
	CrossDocMinSimilarity float64
}

// DefaultOptions returns a sensible default configuration.
func DefaultOptions() Options {
	return Options{
		Chunking:              model.DefaultChunkOptions(),
		Resolve:               model.DefaultResolveOptions(),
		EmbedBatchSize:        16,
		CrossDocMinSimilarity: 0.85,
	}
}

// IngestionPipeline runs one document through extraction, chunking,
// knowledge extraction, resolution, embedding, indexing and graph update.
// Every stage transition is persisted before the stage's work starts, so a
// crashed run leaves the document in the stage it died in.
type IngestionPipeline struct {
	extractor services.ContentExtractor
	completer services.Completer
	knowledge services.KnowledgeExtractor
	validator services.OntologyValidator
	embedder  services.Embedder
	index     services.SearchIndex
	documents services.DocumentStore
	chunker   *Chunker
	resolver  *resolve.Resolver
	updater   *graph.Updater
	opts      Options
	log       *slog.Logger
}

// NewIngestionPipeline wires the pipeline. The validator may be nil, in
// which case the validation stage records a pass-through.
func NewIngestionPipeline(
	extractor services.ContentExtractor,
	completer services.Completer,
	knowledge services.KnowledgeExtractor,
	validator services.OntologyValidator,
	embedder services.Embedder,
	index services.SearchIndex,
	documents services.DocumentStore,
	chunker *Chunker,
	resolver *resolve.Resolver,
	updater *graph.Updater,
	opts Options,
	logger *slog.Logger,
) *IngestionPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = 16
	}
	return &IngestionPipeline{
		extractor: extractor,
		completer: completer,
		knowledge: knowledge,
		validator: validator,
		embedder:  embedder,
		index:     index,
		documents: documents,
		chunker:   chunker,
		resolver:  resolver,
		updater:   updater,
		opts:      opts,
		log:       logger,
	}
}

// Process runs the full ingestion state machine on the document. On any
// unhandled stage error the document is marked failed with the stage's
// error message and the error is returned.
func (p *IngestionPipeline) Process(ctx context.Context, doc *model.Document) error {
	started := time.Now()
	doc.Stats = &model.ProcessingStats{}

	if err := p.documents.SaveDocument(ctx, doc); err != nil {
		return helper.NewError("save document", err)
	}

	err := p.run(ctx, doc)
	doc.Stats.Duration = time.Since(started)
	if err != nil {
		doc.MarkFailed(err.Error())
		if updateErr := p.documents.UpdateStatus(ctx, doc); updateErr != nil {
			p.log.Error("Failed to persist failure state",
				slog.String("document_id", doc.ID.String()),
				slog.String("error", updateErr.Error()))
		}
		return err
	}

	doc.MarkStage(model.StatusCompleted)
	if err := p.documents.UpdateStatus(ctx, doc); err != nil {
		return helper.NewError("persist completion", err)
	}

	p.log.Info("Document ingested",
		slog.String("document_id", doc.ID.String()),
		slog.String("name", doc.Name),
		slog.Int("chunks", doc.Stats.ChunkCount),
		slog.Int("entities", doc.Stats.EntityCount),
		slog.Duration("duration", doc.Stats.Duration))
	return nil
}

func (p *IngestionPipeline) run(ctx context.Context, doc *model.Document) error {
	// Content extraction
	if err := p.enterStage(ctx, doc, model.StatusExtractingContent); err != nil {
		return err
	}
	extracted, err := p.extractor.Extract(ctx, doc.BlobRef, doc.MimeType)
	if err != nil {
		return helper.NewError("content extraction", err)
	}

	// Visual extraction, only for directly addressable figures
	if err := p.enterStage(ctx, doc, model.StatusExtractingVisuals); err != nil {
		return err
	}
	p.describeFigures(ctx, doc, extracted)

	// Chunking
	if err := p.enterStage(ctx, doc, model.StatusChunking); err != nil {
		return err
	}
	chunkSet, err := p.chunker.Chunk(ctx, doc.ID, extracted, p.opts.Chunking)
	if err != nil {
		return helper.NewError("chunking", err)
	}
	doc.Stats.ChunkCount = len(chunkSet.Chunks)
	doc.Stats.SectionChunkCount = len(chunkSet.ByType(model.ChunkTypeSection))
	doc.Stats.TableChunkCount = len(chunkSet.ByType(model.ChunkTypeTable))
	doc.Stats.ChunkingMethod = chunkSet.Method

	// Knowledge extraction
	if err := p.enterStage(ctx, doc, model.StatusExtractingEntities); err != nil {
		return err
	}
	entities, relationships, err := p.knowledge.ExtractGraph(ctx, extracted.Content, doc.ID)
	if err != nil {
		return helper.NewError("knowledge extraction", err)
	}
	doc.Stats.EntityCount = len(entities)
	doc.Stats.RelationshipCount = len(relationships)

	// Ontology validation
	if err := p.enterStage(ctx, doc, model.StatusValidatingExtraction); err != nil {
		return err
	}
	entities, relationships = p.validate(ctx, doc, entities, relationships)

	// Cross-document entity resolution
	if err := p.enterStage(ctx, doc, model.StatusResolvingEntities); err != nil {
		return err
	}
	resolution, err := p.resolver.Resolve(ctx, entities, doc.ID, p.opts.Resolve)
	if err != nil {
		p.log.Warn("Entity resolution failed, continuing unresolved",
			slog.String("document_id", doc.ID.String()),
			slog.String("error", err.Error()))
		resolution = resolve.Fallback(entities)
	}
	doc.Entities = resolution.Resolved
	doc.Relationships = relationships
	doc.Stats.Resolution = resolution.Stats

	// Embedding
	if err := p.enterStage(ctx, doc, model.StatusGeneratingEmbeddings); err != nil {
		return err
	}
	if err := p.embedChunks(ctx, chunkSet.Chunks, resolution.Resolved); err != nil {
		return err
	}

	// Search indexing
	if err := p.enterStage(ctx, doc, model.StatusIndexingSearch); err != nil {
		return err
	}
	if _, err := p.index.IndexChunks(ctx, chunkSet.Chunks, doc.Name); err != nil {
		return helper.NewError("search indexing", err)
	}

	// Graph update
	if err := p.enterStage(ctx, doc, model.StatusUpdatingGraph); err != nil {
		return err
	}
	vertexStats, err := p.updater.UpsertEntities(ctx, resolution.Resolved)
	if err != nil {
		return helper.NewError("graph vertex update", err)
	}
	edgeStats, err := p.updater.UpsertRelationships(ctx, relationships, resolvedNames(resolution.Resolved))
	if err != nil {
		return helper.NewError("graph edge update", err)
	}
	doc.Stats.VerticesAdded = vertexStats.Added
	doc.Stats.VerticesUpdated = vertexStats.Updated
	doc.Stats.EdgesAdded = edgeStats.Added

	// Mention tracking
	if err := p.enterStage(ctx, doc, model.StatusTrackingMentions); err != nil {
		return err
	}
	mentionStats, err := p.updater.TrackMentions(ctx, resolution.Resolved, chunkSet.Chunks)
	if err != nil {
		return helper.NewError("mention tracking", err)
	}
	doc.Stats.UniqueEntitiesMentioned = mentionStats.UniqueEntitiesMentioned
	doc.Stats.TotalMentions = mentionStats.TotalMentions

	// Cross-document link discovery, best effort
	if err := p.enterStage(ctx, doc, model.StatusDiscoveringCrossDocLinks); err != nil {
		return err
	}
	discovered := p.resolver.DiscoverCrossDocumentRelationships(ctx, doc.ID, resolution.Resolved, p.opts.CrossDocMinSimilarity)
	if len(discovered) > 0 {
		linkStats, err := p.updater.UpsertRelationships(ctx, discovered, nil)
		if err != nil {
			p.log.Warn("Cross-document link write failed",
				slog.String("document_id", doc.ID.String()),
				slog.String("error", err.Error()))
		} else {
			doc.Stats.CrossDocumentLinks = linkStats.Added
		}
	}

	return nil
}

// Reprocess clears the document's index entries and graph edges and runs
// the full pipeline again. Vertices survive, they may be shared across
// documents.
func (p *IngestionPipeline) Reprocess(ctx context.Context, documentID uuid.UUID) error {
	doc, err := p.documents.GetDocument(ctx, documentID)
	if err != nil {
		return helper.NewError("load document", err)
	}

	if err := p.index.DeleteByDocumentID(ctx, documentID); err != nil {
		return helper.NewError("clear search index", err)
	}
	if err := p.updater.DeleteDocumentEdges(ctx, documentID); err != nil {
		return err
	}

	doc.Status = model.StatusPending
	doc.Error = ""
	doc.StageTimes = make(map[model.Status]time.Time)
	return p.Process(ctx, doc)
}

// enterStage persists the stage transition before the stage's work begins.
func (p *IngestionPipeline) enterStage(ctx context.Context, doc *model.Document, stage model.Status) error {
	doc.MarkStage(stage)
	if err := p.documents.UpdateStatus(ctx, doc); err != nil {
		return helper.NewError("persist stage "+string(stage), err)
	}
	return nil
}

// describeFigures runs vision description for figures with a directly
// addressable image and appends the descriptions to the document body.
// PDF-embedded figures have no address and are counted as skipped.
func (p *IngestionPipeline) describeFigures(ctx context.Context, doc *model.Document, extracted *services.ExtractedDocument) {
	for _, figure := range extracted.Figures {
		doc.Stats.FigureCount++
		if figure.ImageURL == "" {
			doc.Stats.FiguresSkipped++
			continue
		}
		description, err := p.completer.DescribeImage(ctx, figure.ImageURL,
			"Describe this figure from a document, including any data, labels and trends it shows.")
		if err != nil {
			p.log.Warn("Figure description failed, skipping",
				slog.String("document_id", doc.ID.String()),
				slog.String("figure", figure.Title),
				slog.String("error", err.Error()))
			doc.Stats.FiguresSkipped++
			continue
		}
		extracted.Content += "\n\n" + figure.Title + ": " + description
	}
}

// validate runs the optional ontology validator with penalties applied.
// Validation never blocks ingestion; a validator failure logs and passes
// the extraction through unchanged.
func (p *IngestionPipeline) validate(ctx context.Context, doc *model.Document, entities []*model.Entity, relationships []*model.Relationship) ([]*model.Entity, []*model.Relationship) {
	if p.validator == nil {
		for _, e := range entities {
			e.ValidationPassed = true
		}
		for _, r := range relationships {
			r.ValidationPassed = true
		}
		return entities, relationships
	}

	result, err := p.validator.Validate(ctx, entities, relationships, true)
	if err != nil {
		p.log.Warn("Ontology validation failed, passing extraction through",
			slog.String("document_id", doc.ID.String()),
			slog.String("error", err.Error()))
		return entities, relationships
	}
	return result.Entities, result.Relationships
}

// embedChunks fills chunk embeddings in fixed-size batches and tags each
// chunk with the entities its content mentions.
func (p *IngestionPipeline) embedChunks(ctx context.Context, chunks []*model.Chunk, entities []*model.Entity) error {
	for start := 0; start < len(chunks); start += p.opts.EmbedBatchSize {
		end := start + p.opts.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return helper.NewError("chunk embedding", err)
		}
		for i, chunk := range batch {
			chunk.Embedding = vectors[i]
		}
	}

	for _, chunk := range chunks {
		lower := strings.ToLower(chunk.Content)
		for _, entity := range entities {
			if strings.Contains(lower, strings.ToLower(entity.Name)) {
				chunk.Entities = append(chunk.Entities, entity.ResolvedTo)
			}
		}
	}
	return nil
}

// resolvedNames maps every original entity name to its canonical name.
func resolvedNames(entities []*model.Entity) map[string]string {
	names := make(map[string]string, len(entities))
	for _, entity := range entities {
		canonical := entity.ResolvedTo
		if canonical == "" {
			canonical = entity.Name
		}
		names[strings.ToLower(entity.Name)] = canonical
	}
	return names
}
