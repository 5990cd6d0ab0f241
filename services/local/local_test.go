package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExtractor(t *testing.T) {
	extractor := NewFileExtractor()

	t.Run("Splits markdown into sections", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.md")
		content := "Intro paragraph.\n\n# First\n\nBody one.\n\n# Second\n\nBody two.\n\nBody three."
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		extracted, err := extractor.Extract(context.Background(), path, "text/markdown")
		require.NoError(t, err)
		assert.Equal(t, content, extracted.Content)
		require.Len(t, extracted.Sections, 3)
		assert.Equal(t, "", extracted.Sections[0].Title)
		assert.Equal(t, "First", extracted.Sections[1].Title)
		assert.Equal(t, []string{"Body one."}, extracted.Sections[1].Paragraphs)
		assert.Equal(t, "Second", extracted.Sections[2].Title)
		assert.Len(t, extracted.Sections[2].Paragraphs, 2)
	})

	t.Run("Plain text without headings gives one untitled section", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.txt")
		require.NoError(t, os.WriteFile(path, []byte("Only text here."), 0o644))

		extracted, err := extractor.Extract(context.Background(), path, "text/plain")
		require.NoError(t, err)
		require.Len(t, extracted.Sections, 1)
		assert.Equal(t, "", extracted.Sections[0].Title)
	})

	t.Run("Missing file returns error", func(t *testing.T) {
		_, err := extractor.Extract(context.Background(), "/nonexistent/doc.txt", "text/plain")
		assert.Error(t, err)
	})
}

func TestOpenTrimmer(t *testing.T) {
	trimmer := NewOpenTrimmer()

	t.Run("Filter matches everything", func(t *testing.T) {
		filter, err := trimmer.BuildFilter(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "true", filter)
	})

	t.Run("Results pass through with zero denied", func(t *testing.T) {
		results, denied, err := trimmer.FilterResults(context.Background(), nil, "user-1")
		require.NoError(t, err)
		assert.Nil(t, results)
		assert.Equal(t, 0, denied)
	})
}

func TestRegexRedactor(t *testing.T) {
	redactor := NewRegexRedactor()

	t.Run("Masks emails and phone numbers", func(t *testing.T) {
		text := "Contact jane.doe@example.com or +1 (555) 123-4567 for details."
		redacted, detections, err := redactor.Redact(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, detections, 2)
		assert.Equal(t, "Contact [REDACTED] or [REDACTED] for details.", redacted)
		assert.Equal(t, "email", detections[0].Category)
		assert.Equal(t, "phone", detections[1].Category)
	})

	t.Run("Masks social security numbers", func(t *testing.T) {
		redacted, detections, err := redactor.Redact(context.Background(), "SSN 123-45-6789 on file.")
		require.NoError(t, err)
		require.Len(t, detections, 1)
		assert.Equal(t, "ssn", detections[0].Category)
		assert.Equal(t, "SSN [REDACTED] on file.", redacted)
	})

	t.Run("Clean text is unchanged", func(t *testing.T) {
		text := "Nothing personal in this sentence."
		redacted, detections, err := redactor.Redact(context.Background(), text)
		require.NoError(t, err)
		assert.Empty(t, detections)
		assert.Equal(t, text, redacted)
	})

	t.Run("Detection offsets point into the original text", func(t *testing.T) {
		text := "Mail a@b.co today."
		_, detections, err := redactor.Redact(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, detections, 1)
		assert.Equal(t, "a@b.co", text[detections[0].Offset:detections[0].Offset+detections[0].Length])
	})
}
