package model

import "github.com/google/uuid"

// Citation points from a synthesized answer back to the source passage that
// justified it. Citations are derived from search results at answer time and
// never persisted.
type Citation struct {
	ChunkID      string    `json:"chunk_id"`
	DocumentID   uuid.UUID `json:"document_id"`
	DocumentName string    `json:"document_name"`
	Content      string    `json:"content"`
	Page         *int      `json:"page,omitempty"`
	Section      string    `json:"section,omitempty"`
}

// QueryMetadata carries counts and summaries emitted with every answer.
type QueryMetadata struct {
	DocumentCount     int   `json:"document_count"`
	ChunkCount        int   `json:"chunk_count"`
	GraphEntityCount  int   `json:"graph_entity_count"`
	GraphEdgeCount    int   `json:"graph_edge_count"`
	AccessDeniedCount int   `json:"access_denied_count"`
	PIIDetections     int   `json:"pii_detections"`
	SearchMillis      int64 `json:"search_ms"`
	GraphMillis       int64 `json:"graph_ms"`
	SynthesisMillis   int64 `json:"synthesis_ms"`
	Degraded          bool  `json:"degraded,omitempty"`
	NoContext         bool  `json:"no_context,omitempty"`
}

// QueryResult is the answer-shaped response of the retrieval pipeline.
type QueryResult struct {
	Answer       string        `json:"answer"`
	Citations    []*Citation   `json:"citations"`
	ResponseTime int64         `json:"responseTime"`
	Metadata     QueryMetadata `json:"metadata"`
}
