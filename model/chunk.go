package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ChunkType classifies the structural origin of a chunk.
type ChunkType string

const (
	ChunkTypeContent ChunkType = "content"
	ChunkTypeSection ChunkType = "section"
	ChunkTypeTable   ChunkType = "table"
)

// Chunking method labels recorded on body chunks so downstream stats can
// distinguish requested fixed chunking from forced fallback.
const (
	MethodFixed         = "fixed"
	MethodSemantic      = "semantic"
	MethodFixedLargeDoc = "fixed_large_doc"
	MethodFixedFallback = "fixed_fallback"
)

// Chunk is a retrievable unit of document text. Chunks are created once per
// ingestion run and are immutable afterwards except for the embedding and
// entity annotation added later in the same run.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Index      int       `json:"index"`
	Content    string    `json:"content"`
	ChunkType  ChunkType `json:"chunk_type"`
	Method     string    `json:"method,omitempty"`
	Page       *int      `json:"page,omitempty"`
	Section    string    `json:"section,omitempty"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Entities   []string  `json:"entities,omitempty"`
	// Result fields populated by search
	Score           float64 `json:"score,omitempty"`
	RetrievalMethod string  `json:"retrieval_method,omitempty"`
}

// ChunkID builds the canonical chunk identity {documentId}_{kind}_{index}.
func ChunkID(documentID uuid.UUID, kind ChunkType, index int) string {
	return fmt.Sprintf("%s_%s_%d", documentID.String(), kind, index)
}

// ChunkSet is the full output of one chunking run. Body, section and table
// chunks coexist in the same set with continuous ordinal indexes.
type ChunkSet struct {
	Chunks []*Chunk `json:"chunks"`
	Method string   `json:"method"`
}

// ByType returns the chunks of the given type in set order.
func (s *ChunkSet) ByType(t ChunkType) []*Chunk {
	var out []*Chunk
	for _, c := range s.Chunks {
		if c.ChunkType == t {
			out = append(out, c)
		}
	}
	return out
}
