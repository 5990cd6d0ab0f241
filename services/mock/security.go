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

// SecurityTrimmer denies everything listed in the deny sets and allows the
// rest. The zero value allows everything.
type SecurityTrimmer struct {
	DeniedChunkIDs map[string]bool
	DeniedEntities map[string]bool
	FilterExpr     string
	ShouldError    bool
}

func NewSecurityTrimmer() *SecurityTrimmer {
	return &SecurityTrimmer{
		DeniedChunkIDs: make(map[string]bool),
		DeniedEntities: make(map[string]bool),
	}
}

func (m *SecurityTrimmer) BuildFilter(ctx context.Context, userID string) (string, error) {
	if m.ShouldError {
		return "", errors.New("filter error")
	}
	if m.FilterExpr != "" {
		return m.FilterExpr, nil
	}
	return "allowed_users/any(u: u eq '" + userID + "')", nil
}

func (m *SecurityTrimmer) FilterResults(ctx context.Context, results []*services.SearchResult, userID string) ([]*services.SearchResult, int, error) {
	if m.ShouldError {
		return nil, 0, errors.New("trim error")
	}
	var allowed []*services.SearchResult
	denied := 0
	for _, r := range results {
		if m.DeniedChunkIDs[r.Chunk.ID] {
			denied++
			continue
		}
		allowed = append(allowed, r)
	}
	return allowed, denied, nil
}

func (m *SecurityTrimmer) FilterEntities(ctx context.Context, entities []*model.Vertex, userID string) ([]*model.Vertex, error) {
	if m.ShouldError {
		return nil, errors.New("trim error")
	}
	var allowed []*model.Vertex
	for _, e := range entities {
		if m.DeniedEntities[strings.ToLower(e.Name)] {
			continue
		}
		allowed = append(allowed, e)
	}
	return allowed, nil
}

func (m *SecurityTrimmer) FilterRelationships(ctx context.Context, relationships []*model.GraphEdge, userID string) ([]*model.GraphEdge, error) {
	if m.ShouldError {
		return nil, errors.New("trim error")
	}
	var allowed []*model.GraphEdge
	for _, r := range relationships {
		if m.DeniedEntities[strings.ToLower(r.From)] || m.DeniedEntities[strings.ToLower(r.To)] {
			continue
		}
		allowed = append(allowed, r)
	}
	return allowed, nil
}

// Redactor replaces every occurrence of the configured secrets.
type Redactor struct {
	Secrets     map[string]string // secret text -> replacement
	ShouldError bool
	Calls       int
}

func NewRedactor() *Redactor {
	return &Redactor{Secrets: make(map[string]string)}
}

func (m *Redactor) Redact(ctx context.Context, text string) (string, []services.Detection, error) {
	m.Calls++
	if m.ShouldError {
		return "", nil, errors.New("redaction error")
	}
	var detections []services.Detection
	redacted := text
	for secret, replacement := range m.Secrets {
		for {
			idx := strings.Index(redacted, secret)
			if idx < 0 {
				break
			}
			detections = append(detections, services.Detection{Category: "pii", Offset: idx, Length: len(secret)})
			redacted = redacted[:idx] + replacement + redacted[idx+len(secret):]
		}
	}
	return redacted, detections, nil
}

// OntologyValidator attaches a warning to entities of the configured types
// and optionally penalizes their confidence.
type OntologyValidator struct {
	InvalidTypes map[string]bool
	Penalty      float64
	ShouldError  bool
}

func NewOntologyValidator() *OntologyValidator {
	return &OntologyValidator{InvalidTypes: make(map[string]bool), Penalty: 0.2}
}

func (m *OntologyValidator) Validate(ctx context.Context, entities []*model.Entity, relationships []*model.Relationship, applyPenalties bool) (*services.ValidationResult, error) {
	if m.ShouldError {
		return nil, errors.New("validation error")
	}
	summary := services.ValidationSummary{}
	for _, e := range entities {
		e.ValidationPassed = true
		if m.InvalidTypes[e.Type] {
			e.ValidationWarnings = append(e.ValidationWarnings, "unknown entity type "+e.Type)
			e.ValidationPassed = false
			summary.EntityWarnings++
			if applyPenalties {
				e.Confidence -= m.Penalty
				if e.Confidence < 0 {
					e.Confidence = 0
				}
				summary.Penalized++
			}
		}
	}
	for _, r := range relationships {
		r.ValidationPassed = true
	}
	return &services.ValidationResult{Entities: entities, Relationships: relationships, Summary: summary}, nil
}

// DocumentStore keeps documents in memory and records every status the
// pipeline moved through.
type DocumentStore struct {
	mu            sync.Mutex
	Documents     map[uuid.UUID]*model.Document
	StatusHistory []model.Status
	ShouldError   bool
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{Documents: make(map[uuid.UUID]*model.Document)}
}

func (m *DocumentStore) SaveDocument(ctx context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError {
		return errors.New("save error")
	}
	m.Documents[doc.ID] = doc
	return nil
}

func (m *DocumentStore) UpdateStatus(ctx context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError {
		return errors.New("update error")
	}
	m.Documents[doc.ID] = doc
	m.StatusHistory = append(m.StatusHistory, doc.Status)
	return nil
}

func (m *DocumentStore) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError {
		return nil, errors.New("get error")
	}
	doc, ok := m.Documents[id]
	if !ok {
		return nil, errors.New("document not found")
	}
	return doc, nil
}
