package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/model"
)

// ContentExtractor is the content-extraction engine boundary (OCR, layout
// analysis). Implementations must be safe for concurrent use.
type ContentExtractor interface {
	// Extract pulls plain text, structural sections, tables and figures out
	// of the blob referenced by blobRef.
	Extract(ctx context.Context, blobRef string, mimeType string) (*ExtractedDocument, error)
}

// Embedder generates dense vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer is the chat/vision synthesis boundary.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
	// CompleteStream invokes fn for every text delta as it arrives and
	// returns the full accumulated text. fn returning an error aborts the
	// stream.
	CompleteStream(ctx context.Context, messages []Message, opts CompletionOptions, fn func(delta string) error) (string, error)
	// DescribeImage sends a directly addressable image to a vision-capable
	// model and returns a structured description.
	DescribeImage(ctx context.Context, imageURL string, prompt string) (string, error)
}

// KnowledgeExtractor extracts entities and relationships from chunk text.
type KnowledgeExtractor interface {
	ExtractGraph(ctx context.Context, text string, documentID uuid.UUID) ([]*model.Entity, []*model.Relationship, error)
}

// SearchIndex is the hybrid (vector + keyword) search boundary.
type SearchIndex interface {
	Search(ctx context.Context, query string, vector []float32, opts SearchOptions) ([]*SearchResult, error)
	IndexChunks(ctx context.Context, chunks []*model.Chunk, documentName string) (int, error)
	DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error
}

// GraphStore is the graph database boundary.
type GraphStore interface {
	// UpsertVertex writes one vertex and reports whether it was created.
	UpsertVertex(ctx context.Context, vertex *model.Vertex, nameVector []float32) (bool, error)
	// UpsertEdge writes one edge and reports whether it was created.
	UpsertEdge(ctx context.Context, edge *model.GraphEdge) (bool, error)
	// DeleteDocumentEdges removes only edges whose source document matches.
	// It must never cascade to vertex deletion.
	DeleteDocumentEdges(ctx context.Context, documentID uuid.UUID) error
	// FindRelated traverses the neighborhood of the named entities up to the
	// given depth.
	FindRelated(ctx context.Context, entityNames []string, depth int) (*model.GraphContext, error)
	// GetVertexByName returns the vertex with the exact (case-insensitive)
	// name, or nil when absent.
	GetVertexByName(ctx context.Context, name string) (*model.Vertex, error)
	// SimilarVertices returns stored vertices whose name embedding is close
	// to the given vector, most similar first.
	SimilarVertices(ctx context.Context, vector []float32, topK int) ([]*VertexSimilarity, error)
	// ApplyMentionCounts adds the given occurrence counts to the cumulative
	// mention counters in one batch.
	ApplyMentionCounts(ctx context.Context, counts map[string]int) error
}

// DocumentStore persists document processing state.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *model.Document) error
	UpdateStatus(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
}

// SecurityTrimmer filters retrieved content down to what the requesting
// user is authorized to see.
type SecurityTrimmer interface {
	BuildFilter(ctx context.Context, userID string) (string, error)
	// FilterResults returns the allowed results and the denied count.
	FilterResults(ctx context.Context, results []*SearchResult, userID string) ([]*SearchResult, int, error)
	FilterEntities(ctx context.Context, entities []*model.Vertex, userID string) ([]*model.Vertex, error)
	FilterRelationships(ctx context.Context, relationships []*model.GraphEdge, userID string) ([]*model.GraphEdge, error)
}

// Redactor removes PII from text.
type Redactor interface {
	Redact(ctx context.Context, text string) (string, []Detection, error)
}

// OntologyValidator checks extracted entities and relationships against a
// domain ontology. Optional collaborator; a nil validator skips the stage.
type OntologyValidator interface {
	Validate(ctx context.Context, entities []*model.Entity, relationships []*model.Relationship, applyPenalties bool) (*ValidationResult, error)
}

// BoundaryDetector finds topic break points in a sentence sequence, used by
// the semantic chunking strategy.
type BoundaryDetector interface {
	// DetectBreaks returns the indexes of sentences that start a new topic.
	DetectBreaks(ctx context.Context, sentences []string) ([]int, error)
}
