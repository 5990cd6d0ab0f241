package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

// SearchIndex is an in-memory stand-in for the hybrid search collaborator.
// Indexed chunks are kept so tests can assert on indexing and deletion.
type SearchIndex struct {
	mu          sync.Mutex
	indexed     map[string]*services.SearchResult
	Results     []*services.SearchResult
	ShouldError bool
	SearchCalls int
	LastFilter  string
	LastTop     int
}

func NewSearchIndex() *SearchIndex {
	return &SearchIndex{indexed: make(map[string]*services.SearchResult)}
}

func (m *SearchIndex) Search(ctx context.Context, query string, vector []float32, opts services.SearchOptions) ([]*services.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchCalls++
	m.LastFilter = opts.Filter
	m.LastTop = opts.Top
	if m.ShouldError {
		return nil, errors.New("search error")
	}
	results := m.Results
	if opts.Top > 0 && len(results) > opts.Top {
		results = results[:opts.Top]
	}
	return results, nil
}

func (m *SearchIndex) IndexChunks(ctx context.Context, chunks []*model.Chunk, documentName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError {
		return 0, errors.New("index error")
	}
	for _, c := range chunks {
		m.indexed[c.ID] = &services.SearchResult{Chunk: c, DocumentName: documentName, Score: 1.0}
	}
	return len(chunks), nil
}

func (m *SearchIndex) DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError {
		return errors.New("delete error")
	}
	for id, r := range m.indexed {
		if r.Chunk.DocumentID == documentID {
			delete(m.indexed, id)
		}
	}
	return nil
}

// IndexedCount returns the number of chunks currently held by the index.
func (m *SearchIndex) IndexedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.indexed)
}

// IndexedForDocument returns the chunk ids indexed for one document.
func (m *SearchIndex) IndexedForDocument(documentID uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, r := range m.indexed {
		if r.Chunk.DocumentID == documentID {
			ids = append(ids, id)
		}
	}
	return ids
}
