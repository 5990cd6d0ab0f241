package mock

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

// Embedder produces deterministic vectors derived from the text, so equal
// texts embed equally and similarity comparisons are stable across runs.
type Embedder struct {
	Dim         int
	Fixed       map[string][]float32
	ShouldError bool
	Calls       int
	BatchSizes  []int
}

func NewEmbedder(dim int) *Embedder {
	return &Embedder{Dim: dim, Fixed: make(map[string][]float32)}
}

func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Calls++
	if m.ShouldError {
		return nil, errors.New("embedder error")
	}
	return m.vector(text), nil
}

func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.Calls++
	m.BatchSizes = append(m.BatchSizes, len(texts))
	if m.ShouldError {
		return nil, errors.New("embedder error")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *Embedder) vector(text string) []float32 {
	if v, ok := m.Fixed[text]; ok {
		return v
	}
	dim := m.Dim
	if dim == 0 {
		dim = 8
	}
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()
	v := make([]float32, dim)
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float32(seed%1000)/1000 - 0.5
	}
	return v
}

// Completer replays canned responses and records every call.
type Completer struct {
	Response       string
	StreamDeltas   []string
	VisionResponse string
	ShouldError    bool
	CompleteCalls  int
	StreamCalls    int
	VisionCalls    int
	LastMessages   []services.Message
}

func (m *Completer) Complete(ctx context.Context, messages []services.Message, opts services.CompletionOptions) (string, error) {
	m.CompleteCalls++
	m.LastMessages = messages
	if m.ShouldError {
		return "", errors.New("completion error")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.Response, nil
}

func (m *Completer) CompleteStream(ctx context.Context, messages []services.Message, opts services.CompletionOptions, fn func(delta string) error) (string, error) {
	m.StreamCalls++
	m.LastMessages = messages
	if m.ShouldError {
		return "", errors.New("completion error")
	}
	var full string
	deltas := m.StreamDeltas
	if len(deltas) == 0 && m.Response != "" {
		deltas = []string{m.Response}
	}
	for _, d := range deltas {
		if err := ctx.Err(); err != nil {
			return full, err
		}
		if err := fn(d); err != nil {
			return full, err
		}
		full += d
	}
	return full, nil
}

func (m *Completer) DescribeImage(ctx context.Context, imageURL string, prompt string) (string, error) {
	m.VisionCalls++
	if m.ShouldError {
		return "", errors.New("vision error")
	}
	if m.VisionResponse != "" {
		return m.VisionResponse, nil
	}
	return "figure description for " + imageURL, nil
}

// KnowledgeExtractor returns fixed entities and relationships regardless of
// the input text.
type KnowledgeExtractor struct {
	Entities      []*model.Entity
	Relationships []*model.Relationship
	ShouldError   bool
	Calls         int
}

func (m *KnowledgeExtractor) ExtractGraph(ctx context.Context, text string, documentID uuid.UUID) ([]*model.Entity, []*model.Relationship, error) {
	m.Calls++
	if m.ShouldError {
		return nil, nil, errors.New("extraction error")
	}
	entities := make([]*model.Entity, 0, len(m.Entities))
	for _, e := range m.Entities {
		copied := *e
		copied.DocumentID = documentID
		entities = append(entities, &copied)
	}
	relationships := make([]*model.Relationship, 0, len(m.Relationships))
	for _, r := range m.Relationships {
		copied := *r
		copied.DocumentID = documentID
		relationships = append(relationships, &copied)
	}
	return entities, relationships, nil
}

// BoundaryDetector returns fixed break indexes.
type BoundaryDetector struct {
	Breaks      []int
	ShouldError bool
	Calls       int
}

func (m *BoundaryDetector) DetectBreaks(ctx context.Context, sentences []string) ([]int, error) {
	m.Calls++
	if m.ShouldError {
		return nil, errors.New("boundary detection error")
	}
	return m.Breaks, nil
}
