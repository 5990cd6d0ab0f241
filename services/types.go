package services

import "github.com/siherrmann/docgraph/model"

// ExtractedDocument is the output of the content-extraction engine.
type ExtractedDocument struct {
	Content  string             `json:"content"`
	Sections []Section          `json:"sections"`
	Tables   []Table            `json:"tables"`
	Figures  []Figure           `json:"figures"`
	Metadata ExtractionMetadata `json:"metadata"`
}

// Section is a structural section of the source document.
type Section struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
	Page       *int     `json:"page,omitempty"`
}

// Table is a table extracted from the source document.
type Table struct {
	Title   string     `json:"title,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Page    *int       `json:"page,omitempty"`
}

// Figure is a figure reference. ImageURL is empty for figures embedded in
// the source binary (e.g. inside a PDF) that are not directly addressable.
type Figure struct {
	Title    string `json:"title,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Page     *int   `json:"page,omitempty"`
}

// ExtractionMetadata describes the extraction run.
type ExtractionMetadata struct {
	PageCount int    `json:"page_count"`
	ModelID   string `json:"model_id"`
}

// Message is one chat message sent to the completion collaborator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// CompletionOptions configures one completion call.
type CompletionOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// SearchOptions configures one hybrid search call.
type SearchOptions struct {
	Top      int    `json:"top"`
	Semantic bool   `json:"semantic"`
	Filter   string `json:"filter,omitempty"`
}

// SearchResult is one hit returned by the search index.
type SearchResult struct {
	Chunk        *model.Chunk `json:"chunk"`
	DocumentName string       `json:"document_name"`
	Score        float64      `json:"score"`
}

// Detection is one PII finding reported by the redactor.
type Detection struct {
	Category string `json:"category"`
	Offset   int    `json:"offset"`
	Length   int    `json:"length"`
}

// VertexSimilarity is a stored vertex with its similarity to a probe vector.
type VertexSimilarity struct {
	Vertex     *model.Vertex `json:"vertex"`
	Similarity float64       `json:"similarity"`
}

// ValidationResult is the output of ontology validation.
type ValidationResult struct {
	Entities      []*model.Entity       `json:"entities"`
	Relationships []*model.Relationship `json:"relationships"`
	Summary       ValidationSummary     `json:"summary"`
}

// ValidationSummary counts validation findings.
type ValidationSummary struct {
	EntityWarnings       int `json:"entity_warnings"`
	RelationshipWarnings int `json:"relationship_warnings"`
	Penalized            int `json:"penalized"`
}
