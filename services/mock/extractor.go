package mock

import (
	"context"
	"errors"

	"github.com/siherrmann/docgraph/services"
)

// ContentExtractor returns a fixed extraction result per blob reference.
type ContentExtractor struct {
	Documents   map[string]*services.ExtractedDocument
	ShouldError bool
	Calls       int
}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{Documents: make(map[string]*services.ExtractedDocument)}
}

func (m *ContentExtractor) Extract(ctx context.Context, blobRef string, mimeType string) (*services.ExtractedDocument, error) {
	m.Calls++
	if m.ShouldError {
		return nil, errors.New("extraction error")
	}
	if doc, ok := m.Documents[blobRef]; ok {
		return doc, nil
	}
	return &services.ExtractedDocument{
		Content:  "empty document",
		Metadata: services.ExtractionMetadata{PageCount: 1, ModelID: "mock-layout"},
	}, nil
}
