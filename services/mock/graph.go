package mock

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

// GraphStore is an in-memory graph with real upsert, deletion and traversal
// semantics, so pipeline tests can assert on persisted graph state.
type GraphStore struct {
	mu          sync.Mutex
	Vertices    map[string]*model.Vertex
	Edges       []*model.GraphEdge
	NameVectors map[string][]float32
	Similar     []*services.VertexSimilarity
	ShouldError bool
	FailReads   bool // fails lookups only, writes still succeed
	FailWrites  map[string]bool // vertex or edge-from names whose writes fail
	WriteTimes  []int64         // unix nanos of each write, for pacing tests
	TraverseErr error
}

func NewGraphStore() *GraphStore {
	return &GraphStore{
		Vertices:    make(map[string]*model.Vertex),
		NameVectors: make(map[string][]float32),
		FailWrites:  make(map[string]bool),
	}
}

func (m *GraphStore) UpsertVertex(ctx context.Context, vertex *model.Vertex, nameVector []float32) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError || m.FailWrites[vertex.Name] {
		return false, errors.New("vertex write error")
	}
	key := strings.ToLower(vertex.Name)
	_, exists := m.Vertices[key]
	if exists {
		existing := m.Vertices[key]
		existing.Type = vertex.Type
		existing.Description = vertex.Description
	} else {
		copied := *vertex
		m.Vertices[key] = &copied
	}
	if nameVector != nil {
		m.NameVectors[key] = nameVector
	}
	return !exists, nil
}

func (m *GraphStore) UpsertEdge(ctx context.Context, edge *model.GraphEdge) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError || m.FailWrites[edge.From] {
		return false, errors.New("edge write error")
	}
	for _, e := range m.Edges {
		if e.From == edge.From && e.To == edge.To && e.Type == edge.Type && e.SourceDocumentID == edge.SourceDocumentID {
			e.Confidence = edge.Confidence
			return false, nil
		}
	}
	copied := *edge
	m.Edges = append(m.Edges, &copied)
	return true, nil
}

func (m *GraphStore) DeleteDocumentEdges(ctx context.Context, documentID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError {
		return errors.New("delete error")
	}
	kept := m.Edges[:0]
	for _, e := range m.Edges {
		if e.SourceDocumentID != documentID {
			kept = append(kept, e)
		}
	}
	m.Edges = kept
	return nil
}

func (m *GraphStore) FindRelated(ctx context.Context, entityNames []string, depth int) (*model.GraphContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TraverseErr != nil {
		return nil, m.TraverseErr
	}
	seen := make(map[string]bool)
	frontier := make(map[string]bool)
	for _, n := range entityNames {
		frontier[strings.ToLower(n)] = true
	}
	var edges []*model.GraphEdge
	edgeSeen := make(map[*model.GraphEdge]bool)
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		next := make(map[string]bool)
		for name := range frontier {
			if seen[name] {
				continue
			}
			seen[name] = true
			for _, e := range m.Edges {
				from := strings.ToLower(e.From)
				to := strings.ToLower(e.To)
				if from != name && to != name {
					continue
				}
				if !edgeSeen[e] {
					edgeSeen[e] = true
					edges = append(edges, e)
				}
				if !seen[from] {
					next[from] = true
				}
				if !seen[to] {
					next[to] = true
				}
			}
		}
		frontier = next
	}
	for name := range frontier {
		seen[name] = true
	}
	var entities []*model.Vertex
	for name := range seen {
		if v, ok := m.Vertices[name]; ok {
			entities = append(entities, v)
		}
	}
	return &model.GraphContext{Entities: entities, Relationships: edges}, nil
}

func (m *GraphStore) GetVertexByName(ctx context.Context, name string) (*model.Vertex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError || m.FailReads {
		return nil, errors.New("read error")
	}
	if v, ok := m.Vertices[strings.ToLower(name)]; ok {
		return v, nil
	}
	return nil, nil
}

func (m *GraphStore) SimilarVertices(ctx context.Context, vector []float32, topK int) ([]*services.VertexSimilarity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError || m.FailReads {
		return nil, errors.New("similarity error")
	}
	results := m.Similar
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *GraphStore) ApplyMentionCounts(ctx context.Context, counts map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError {
		return errors.New("mention update error")
	}
	for name, count := range counts {
		if v, ok := m.Vertices[strings.ToLower(name)]; ok {
			v.MentionCount += count
		}
	}
	return nil
}
