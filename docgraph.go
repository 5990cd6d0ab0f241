package docgraph

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/core/graph"
	"github.com/siherrmann/docgraph/core/pipeline"
	"github.com/siherrmann/docgraph/core/resolve"
	"github.com/siherrmann/docgraph/core/retrieval"
	"github.com/siherrmann/docgraph/database"
	"github.com/siherrmann/docgraph/helper"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

// Collaborators are the external service boundaries DocGraph is wired with.
// Store-backed fields (Search, Graph, Documents) are filled automatically by
// NewWithPostgres; everything else must be provided by the caller.
type Collaborators struct {
	Extractor services.ContentExtractor
	Embedder  services.Embedder
	Completer services.Completer
	Knowledge services.KnowledgeExtractor
	Validator services.OntologyValidator // optional
	Search    services.SearchIndex
	Graph     services.GraphStore
	Documents services.DocumentStore
	Trimmer   services.SecurityTrimmer
	Redactor  services.Redactor
}

// Options tunes the ingestion and retrieval behaviour of one instance.
type Options struct {
	Pipeline pipeline.Options
	Query    model.QueryOptions
	// GraphWritesPerSecond throttles vertex and edge writes during
	// ingestion. Zero disables throttling.
	GraphWritesPerSecond float64
	// SemanticBreakThreshold is the similarity floor of the topic boundary
	// detector used by semantic chunking.
	SemanticBreakThreshold float32
}

// DefaultOptions returns a sensible default configuration.
func DefaultOptions() Options {
	return Options{
		Pipeline:               pipeline.DefaultOptions(),
		Query:                  model.DefaultQueryOptions(),
		GraphWritesPerSecond:   20,
		SemanticBreakThreshold: 0.5,
	}
}

// DocGraph bundles the ingestion pipeline and retrieval engine into one
// entry point.
type DocGraph struct {
	Pipeline *pipeline.IngestionPipeline
	Engine   *retrieval.Engine

	collaborators Collaborators
	opts          Options
	store         *database.Store
	log           *slog.Logger
}

// New wires a DocGraph instance from fully supplied collaborators.
func New(collaborators Collaborators, opts Options) *DocGraph {
	logOpts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, logOpts))

	detector := pipeline.NewEmbeddingBoundaryDetector(collaborators.Embedder, opts.SemanticBreakThreshold)
	chunker := pipeline.NewChunker(detector, logger)
	resolver := resolve.NewResolver(collaborators.Graph, collaborators.Embedder, logger)
	updater := graph.NewUpdater(collaborators.Graph, collaborators.Embedder, opts.GraphWritesPerSecond, logger)

	ingestion := pipeline.NewIngestionPipeline(
		collaborators.Extractor,
		collaborators.Completer,
		collaborators.Knowledge,
		collaborators.Validator,
		collaborators.Embedder,
		collaborators.Search,
		collaborators.Documents,
		chunker,
		resolver,
		updater,
		opts.Pipeline,
		logger,
	)

	engine := retrieval.NewEngine(
		collaborators.Embedder,
		collaborators.Search,
		collaborators.Graph,
		collaborators.Trimmer,
		collaborators.Redactor,
		collaborators.Completer,
		logger,
	)

	return &DocGraph{
		Pipeline:      ingestion,
		Engine:        engine,
		collaborators: collaborators,
		opts:          opts,
		log:           logger,
	}
}

// NewWithPostgres connects to Postgres, applies the schema and wires the
// store-backed collaborators. The embedding dimension must match the
// supplied embedder.
func NewWithPostgres(config *helper.DatabaseConfiguration, embeddingDim int, collaborators Collaborators, opts Options) (*DocGraph, error) {
	store, err := database.NewStore(config, embeddingDim, nil)
	if err != nil {
		return nil, err
	}

	collaborators.Search = store.Search
	collaborators.Graph = store.Graph
	collaborators.Documents = store.Documents

	dg := New(collaborators, opts)
	dg.store = store
	return dg, nil
}

// Close releases the database connection when one is owned.
func (d *DocGraph) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Ingest registers a new document and runs the full ingestion pipeline.
func (d *DocGraph) Ingest(ctx context.Context, name string, blobRef string, mimeType string) (*model.Document, error) {
	doc := model.NewDocument(name, blobRef, mimeType)
	if err := d.Pipeline.Process(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// Reprocess clears a document's derived data and ingests it again.
func (d *DocGraph) Reprocess(ctx context.Context, documentID uuid.UUID) error {
	return d.Pipeline.Reprocess(ctx, documentID)
}

// Ask answers a question over the indexed corpus for the given user.
func (d *DocGraph) Ask(ctx context.Context, query string, userID string) (*model.QueryResult, error) {
	opts := d.opts.Query
	opts.UserID = userID
	return d.Engine.ProcessQuery(ctx, query, opts)
}

// AskStream answers a question as an incremental event stream.
func (d *DocGraph) AskStream(ctx context.Context, query string, userID string, emit func(retrieval.Event) error) error {
	opts := d.opts.Query
	opts.UserID = userID
	return d.Engine.StreamQuery(ctx, query, opts, emit)
}

// Document returns the stored processing state of one document.
func (d *DocGraph) Document(ctx context.Context, documentID uuid.UUID) (*model.Document, error) {
	return d.collaborators.Documents.GetDocument(ctx, documentID)
}
