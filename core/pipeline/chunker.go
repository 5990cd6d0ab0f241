package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

// Chunker splits extracted document content into retrievable units using a
// selectable strategy. Body, section and table chunks coexist in one output
// set with continuous ordinal indexes.
type Chunker struct {
	detector services.BoundaryDetector
	log      *slog.Logger
}

// NewChunker creates a chunker. The boundary detector is only consulted by
// the semantic strategy and may be nil when only fixed chunking is used.
func NewChunker(detector services.BoundaryDetector, logger *slog.Logger) *Chunker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{detector: detector, log: logger}
}

// Chunk splits the extracted document into a ChunkSet.
func (c *Chunker) Chunk(ctx context.Context, documentID uuid.UUID, extracted *services.ExtractedDocument, opts model.ChunkOptions) (*model.ChunkSet, error) {
	if opts.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.WindowSize {
		return nil, fmt.Errorf("overlap must be non-negative and smaller than window size")
	}

	body, method := c.bodyChunks(ctx, documentID, extracted, opts)

	set := &model.ChunkSet{Chunks: body, Method: method}
	index := len(body)

	// Section chunks, skipping sections whose joined text is too short
	for _, section := range extracted.Sections {
		text := strings.TrimSpace(strings.Join(section.Paragraphs, "\n"))
		if len(text) < opts.MinSectionLength {
			continue
		}
		chunk := &model.Chunk{
			ID:         model.ChunkID(documentID, model.ChunkTypeSection, index),
			DocumentID: documentID,
			Index:      index,
			Content:    text,
			ChunkType:  model.ChunkTypeSection,
			Section:    section.Title,
			Page:       section.Page,
		}
		set.Chunks = append(set.Chunks, chunk)
		index++
	}

	// Table chunks, serialized to text
	for _, table := range extracted.Tables {
		chunk := &model.Chunk{
			ID:         model.ChunkID(documentID, model.ChunkTypeTable, index),
			DocumentID: documentID,
			Index:      index,
			Content:    serializeTable(table),
			ChunkType:  model.ChunkTypeTable,
			Section:    table.Title,
			Page:       table.Page,
		}
		set.Chunks = append(set.Chunks, chunk)
		index++
	}

	return set, nil
}

// bodyChunks splits the plain-text body according to the selected strategy
// and returns the chunks together with the method label actually used.
func (c *Chunker) bodyChunks(ctx context.Context, documentID uuid.UUID, extracted *services.ExtractedDocument, opts model.ChunkOptions) ([]*model.Chunk, string) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = model.StrategyAuto
	}

	if strategy == model.StrategyFixed {
		return c.fixedChunks(documentID, extracted.Content, opts, model.MethodFixed), model.MethodFixed
	}

	// Semantic and auto both try topic-boundary chunking first. Oversized
	// documents are forced onto fixed chunking with a distinguishable label.
	if len(extracted.Content) > opts.MaxSemanticChars ||
		(opts.MaxSemanticPages > 0 && extracted.Metadata.PageCount > opts.MaxSemanticPages) {
		c.log.Info("Document exceeds semantic chunking ceiling, falling back to fixed",
			slog.String("document_id", documentID.String()),
			slog.Int("chars", len(extracted.Content)),
			slog.Int("pages", extracted.Metadata.PageCount))
		return c.fixedChunks(documentID, extracted.Content, opts, model.MethodFixedLargeDoc), model.MethodFixedLargeDoc
	}

	chunks, err := c.semanticChunks(ctx, documentID, extracted.Content)
	if err != nil {
		c.log.Warn("Semantic chunking failed, falling back to fixed",
			slog.String("document_id", documentID.String()),
			slog.String("error", err.Error()))
		return c.fixedChunks(documentID, extracted.Content, opts, model.MethodFixedFallback), model.MethodFixedFallback
	}

	return chunks, model.MethodSemantic
}

// fixedChunks splits text into overlapping windows measured in words. The
// window start always advances by at least one word so the split terminates
// for any overlap smaller than the window, and the final partial window is
// emitted whenever it is non-empty.
func (c *Chunker) fixedChunks(documentID uuid.UUID, text string, opts model.ChunkOptions, method string) []*model.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := opts.WindowSize - opts.Overlap
	if step < 1 {
		step = 1
	}

	var chunks []*model.Chunk
	index := 0
	for start := 0; start < len(words); start += step {
		end := start + opts.WindowSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, &model.Chunk{
			ID:         model.ChunkID(documentID, model.ChunkTypeContent, index),
			DocumentID: documentID,
			Index:      index,
			Content:    strings.Join(words[start:end], " "),
			ChunkType:  model.ChunkTypeContent,
			Method:     method,
		})
		index++
		if end == len(words) {
			break
		}
	}

	return chunks
}

// semanticChunks delegates topic boundaries to the detector and groups the
// sentences between break points into chunks.
func (c *Chunker) semanticChunks(ctx context.Context, documentID uuid.UUID, text string) ([]*model.Chunk, error) {
	if c.detector == nil {
		return nil, fmt.Errorf("no boundary detector configured")
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, fmt.Errorf("no sentences found in text")
	}

	breaks, err := c.detector.DetectBreaks(ctx, sentences)
	if err != nil {
		return nil, err
	}

	isBreak := make(map[int]bool, len(breaks))
	for _, b := range breaks {
		if b > 0 && b < len(sentences) {
			isBreak[b] = true
		}
	}

	var chunks []*model.Chunk
	var current []string
	index := 0
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, &model.Chunk{
			ID:         model.ChunkID(documentID, model.ChunkTypeContent, index),
			DocumentID: documentID,
			Index:      index,
			Content:    strings.Join(current, " "),
			ChunkType:  model.ChunkTypeContent,
			Method:     model.MethodSemantic,
		})
		index++
		current = nil
	}

	for i, sentence := range sentences {
		if isBreak[i] {
			flush()
		}
		current = append(current, sentence)
	}
	flush()

	return chunks, nil
}

// splitSentences splits text on sentence-ending punctuation.
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "! ", "!|")
	text = strings.ReplaceAll(text, "? ", "?|")
	text = strings.ReplaceAll(text, ". ", ".|")

	var sentences []string
	for _, s := range strings.Split(text, "|") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// serializeTable renders a table as pipe-separated text for indexing.
func serializeTable(table services.Table) string {
	var b strings.Builder
	if table.Title != "" {
		b.WriteString(table.Title)
		b.WriteString("\n")
	}
	if len(table.Headers) > 0 {
		b.WriteString(strings.Join(table.Headers, " | "))
		b.WriteString("\n")
	}
	for _, row := range table.Rows {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
