package model

import (
	"time"

	"github.com/google/uuid"
)

// Vertex is the persisted, deduplicated projection of an Entity. A vertex is
// never deleted because one contributing document is reprocessed or deleted;
// it may still be referenced by other documents' edges.
type Vertex struct {
	Name         string    `json:"name"`
	Type         string    `json:"entity_type"`
	Description  string    `json:"description,omitempty"`
	MentionCount int       `json:"mention_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GraphEdge is the persisted projection of a Relationship. SourceDocumentID
// enables document-scoped deletion on reprocessing.
type GraphEdge struct {
	From             string    `json:"from"`
	To               string    `json:"to"`
	Type             string    `json:"edge_type"`
	Confidence       float64   `json:"confidence"`
	SourceDocumentID uuid.UUID `json:"source_document_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// GraphContext is the neighborhood reachable within a bounded traversal
// depth from a set of entity names.
type GraphContext struct {
	Entities      []*Vertex    `json:"entities"`
	Relationships []*GraphEdge `json:"relationships"`
}

// UpsertStats counts the outcomes of one vertex or edge upsert batch.
type UpsertStats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// MentionStats is the aggregate result of one mention tracking pass.
type MentionStats struct {
	UniqueEntitiesMentioned int `json:"unique_entities_mentioned"`
	TotalMentions           int `json:"total_mentions"`
}
