package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/siherrmann/docgraph/helper"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

// NoContextAnswer is returned when nothing the user may see matches the
// query. Synthesis is never invoked in that case.
const NoContextAnswer = "I could not find any information relevant to your question in the documents available to you."

// degradedAnswerPrefix opens the fallback answer used when synthesis fails
// but retrieval succeeded.
const degradedAnswerPrefix = "I found relevant passages but could not generate an answer right now. The most relevant sources are:"

// processingErrorAnswer is the uniform answer-shaped response for failures
// the pipeline could not recover from. Raw errors never reach the caller.
const processingErrorAnswer = "Something went wrong while processing your question. Please try again."

// withheldAnswer and withheldPassage replace text that could not be checked
// for personal data. Redaction fails closed.
const (
	withheldAnswer  = "The answer was withheld because it could not be checked for personal data."
	withheldPassage = "This passage was withheld because it could not be checked for personal data."
)

// Engine answers questions over the indexed corpus with security trimming,
// graph context expansion and PII redaction.
type Engine struct {
	embedder  services.Embedder
	index     services.SearchIndex
	graph     services.GraphStore
	trimmer   services.SecurityTrimmer
	redactor  services.Redactor
	completer services.Completer
	log       *slog.Logger
}

// NewEngine wires the retrieval engine.
func NewEngine(
	embedder services.Embedder,
	index services.SearchIndex,
	graph services.GraphStore,
	trimmer services.SecurityTrimmer,
	redactor services.Redactor,
	completer services.Completer,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		embedder:  embedder,
		index:     index,
		graph:     graph,
		trimmer:   trimmer,
		redactor:  redactor,
		completer: completer,
		log:       logger,
	}
}

// retrieved is the shared outcome of search, trimming and graph expansion,
// used by both the blocking and the streaming query paths.
type retrieved struct {
	results  []*services.SearchResult
	graphCtx *model.GraphContext
	metadata model.QueryMetadata
}

// ProcessQuery runs the full retrieval pipeline and returns a complete
// answer with citations. Synthesis failures degrade to a source listing,
// and any failure before that is converted into a generic answer-shaped
// response instead of an error.
func (e *Engine) ProcessQuery(ctx context.Context, query string, opts model.QueryOptions) (*model.QueryResult, error) {
	started := time.Now()

	r, err := e.retrieve(ctx, query, opts)
	if err != nil {
		e.log.Error("Query failed, returning degraded response",
			slog.String("error", err.Error()))
		return &model.QueryResult{
			Answer:       processingErrorAnswer,
			Citations:    []*model.Citation{},
			ResponseTime: time.Since(started).Milliseconds(),
			Metadata:     model.QueryMetadata{Degraded: true},
		}, nil
	}

	result := &model.QueryResult{Metadata: r.metadata}

	if len(r.results) == 0 {
		result.Answer = NoContextAnswer
		result.Metadata.NoContext = true
		result.Citations = []*model.Citation{}
		result.ResponseTime = time.Since(started).Milliseconds()
		return result, nil
	}

	synthesisStart := time.Now()
	answer, err := e.completer.Complete(ctx, buildMessages(query, r.results, r.graphCtx), services.CompletionOptions{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	result.Metadata.SynthesisMillis = time.Since(synthesisStart).Milliseconds()
	if err != nil {
		e.log.Warn("Synthesis failed, returning degraded answer",
			slog.String("error", err.Error()))
		answer = degradedAnswer(r.results)
		result.Metadata.Degraded = true
	}

	answer, detections, err := e.redact(ctx, answer)
	if err != nil {
		result.Metadata.Degraded = true
	}
	result.Metadata.PIIDetections = len(detections)

	citations, citationDetections := e.redactedCitations(ctx, r.results)
	result.Metadata.PIIDetections += citationDetections

	result.Answer = answer
	result.Citations = citations
	result.ResponseTime = time.Since(started).Milliseconds()
	return result, nil
}

// retrieve runs query embedding, filtered hybrid search, security trimming
// and graph context expansion.
func (e *Engine) retrieve(ctx context.Context, query string, opts model.QueryOptions) (*retrieved, error) {
	r := &retrieved{}

	// Query embedding; a failed embedding degrades to keyword-only search
	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.log.Warn("Query embedding failed, searching keyword-only",
			slog.String("error", err.Error()))
		vector = nil
		r.metadata.Degraded = true
	}

	// Security filter is always applied, composed with the caller's filter
	filter, err := e.trimmer.BuildFilter(ctx, opts.UserID)
	if err != nil {
		return nil, helper.NewError("build security filter", err)
	}
	if opts.Filter != "" {
		filter = "(" + filter + ") and (" + opts.Filter + ")"
	}

	// Over-fetch so trimming still leaves enough results
	overFetch := opts.TopK * opts.OverFetchFactor
	if overFetch < opts.TopK {
		overFetch = opts.TopK
	}

	searchStart := time.Now()
	results, err := e.index.Search(ctx, query, vector, services.SearchOptions{
		Top:      overFetch,
		Semantic: vector != nil,
		Filter:   filter,
	})
	r.metadata.SearchMillis = time.Since(searchStart).Milliseconds()
	if err != nil {
		return nil, helper.NewError("search", err)
	}

	// Post-search trim is the authoritative check, the filter is advisory
	allowed, denied, err := e.trimmer.FilterResults(ctx, results, opts.UserID)
	if err != nil {
		return nil, helper.NewError("security trimming", err)
	}
	r.metadata.AccessDeniedCount = denied

	if opts.TopK > 0 && len(allowed) > opts.TopK {
		allowed = allowed[:opts.TopK]
	}
	r.results = allowed
	r.metadata.ChunkCount = len(allowed)
	r.metadata.DocumentCount = distinctDocuments(allowed)

	if len(allowed) == 0 || !opts.IncludeGraphContext {
		return r, nil
	}

	graphStart := time.Now()
	r.graphCtx = e.expandGraph(ctx, allowed, opts)
	r.metadata.GraphMillis = time.Since(graphStart).Milliseconds()
	if r.graphCtx != nil {
		r.metadata.GraphEntityCount = len(r.graphCtx.Entities)
		r.metadata.GraphEdgeCount = len(r.graphCtx.Relationships)
	}
	return r, nil
}

// expandGraph traverses the neighborhood of the entities tagged on the
// retrieved chunks and trims the result to what the user may see. A failed
// expansion returns nil, answers still work without graph context.
func (e *Engine) expandGraph(ctx context.Context, results []*services.SearchResult, opts model.QueryOptions) *model.GraphContext {
	seen := make(map[string]bool)
	var names []string
	for _, result := range results {
		for _, name := range result.Chunk.Entities {
			lower := strings.ToLower(name)
			if !seen[lower] {
				seen[lower] = true
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		return nil
	}

	graphCtx, err := e.graph.FindRelated(ctx, names, opts.GraphDepth)
	if err != nil {
		e.log.Warn("Graph expansion failed, continuing without graph context",
			slog.String("error", err.Error()))
		return nil
	}

	entities, err := e.trimmer.FilterEntities(ctx, graphCtx.Entities, opts.UserID)
	if err != nil {
		e.log.Warn("Graph entity trimming failed, dropping graph context",
			slog.String("error", err.Error()))
		return nil
	}
	relationships, err := e.trimmer.FilterRelationships(ctx, graphCtx.Relationships, opts.UserID)
	if err != nil {
		e.log.Warn("Graph relationship trimming failed, dropping graph context",
			slog.String("error", err.Error()))
		return nil
	}

	// Closure: an edge survives only if both endpoints survived trimming
	allowed := make(map[string]bool, len(entities))
	for _, entity := range entities {
		allowed[strings.ToLower(entity.Name)] = true
	}
	kept := relationships[:0]
	for _, relationship := range relationships {
		if allowed[strings.ToLower(relationship.From)] && allowed[strings.ToLower(relationship.To)] {
			kept = append(kept, relationship)
		}
	}

	return &model.GraphContext{Entities: entities, Relationships: kept}
}

// redact fails closed: if redaction errors the original text is withheld.
func (e *Engine) redact(ctx context.Context, answer string) (string, []services.Detection, error) {
	redacted, detections, err := e.redactor.Redact(ctx, answer)
	if err != nil {
		e.log.Error("Redaction failed, withholding answer",
			slog.String("error", err.Error()))
		return withheldAnswer, nil, err
	}
	return redacted, detections, nil
}

// redactedCitations builds citations from the retrieved chunks with each
// citation's content redacted independently. A citation whose content cannot
// be checked is withheld rather than returned unredacted.
func (e *Engine) redactedCitations(ctx context.Context, results []*services.SearchResult) ([]*model.Citation, int) {
	out := make([]*model.Citation, 0, len(results))
	total := 0
	for _, result := range results {
		content, detections, err := e.redactor.Redact(ctx, result.Chunk.Content)
		if err != nil {
			e.log.Error("Citation redaction failed, withholding passage",
				slog.String("chunk", result.Chunk.ID),
				slog.String("error", err.Error()))
			content = withheldPassage
		}
		total += len(detections)
		out = append(out, &model.Citation{
			ChunkID:      result.Chunk.ID,
			DocumentID:   result.Chunk.DocumentID,
			DocumentName: result.DocumentName,
			Content:      content,
			Page:         result.Chunk.Page,
			Section:      result.Chunk.Section,
		})
	}
	return out, total
}

func degradedAnswer(results []*services.SearchResult) string {
	var b strings.Builder
	b.WriteString(degradedAnswerPrefix)
	for i, result := range results {
		b.WriteString("\n")
		b.WriteString(sourceLabel(i+1, result))
	}
	return b.String()
}

func distinctDocuments(results []*services.SearchResult) int {
	seen := make(map[string]bool)
	for _, result := range results {
		seen[result.Chunk.DocumentID.String()] = true
	}
	return len(seen)
}
