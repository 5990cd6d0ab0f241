package local

import (
	"context"
	"os"
	"strings"

	"github.com/siherrmann/docgraph/helper"
	"github.com/siherrmann/docgraph/services"
)

// FileExtractor reads plain text and markdown documents from the local
// filesystem. Markdown headings become structural sections; binary formats
// need an external extraction engine.
type FileExtractor struct{}

// NewFileExtractor creates a new FileExtractor.
func NewFileExtractor() *FileExtractor {
	return &FileExtractor{}
}

// Extract reads the file at blobRef and splits it into sections at markdown
// headings. Content before the first heading belongs to an untitled section.
func (e *FileExtractor) Extract(ctx context.Context, blobRef string, mimeType string) (*services.ExtractedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(blobRef)
	if err != nil {
		return nil, helper.NewError("failed to read document file", err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	extracted := &services.ExtractedDocument{
		Content: content,
		Metadata: services.ExtractionMetadata{
			PageCount: 1,
			ModelID:   "local-file",
		},
	}

	current := services.Section{}
	flush := func() {
		if current.Title != "" || len(current.Paragraphs) > 0 {
			extracted.Sections = append(extracted.Sections, current)
		}
		current = services.Section{}
	}

	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if strings.HasPrefix(block, "#") {
			lines := strings.SplitN(block, "\n", 2)
			flush()
			current.Title = strings.TrimSpace(strings.TrimLeft(lines[0], "# "))
			if len(lines) > 1 {
				if rest := strings.TrimSpace(lines[1]); rest != "" {
					current.Paragraphs = append(current.Paragraphs, rest)
				}
			}
			continue
		}
		current.Paragraphs = append(current.Paragraphs, block)
	}
	flush()

	return extracted, nil
}
