package retrieval

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

// EventType identifies one streamed answer event.
type EventType string

const (
	EventThinking       EventType = "thinking"
	EventMetadata       EventType = "metadata"
	EventContent        EventType = "content"
	EventContentReplace EventType = "content_replace"
	EventError          EventType = "error"
	EventDone           EventType = "done"
)

// Stream outcomes reported by the final done event.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// ErrStopped reports that the client cancelled the stream. No events follow
// a cancellation; the caller decides how to close the transport.
var ErrStopped = errors.New("query stream stopped by client")

// Event is one unit of the streamed answer. Metadata and citations arrive
// in a single metadata event before the first content event; a second
// metadata event with the full timing closes the stream before done.
type Event struct {
	Type      EventType            `json:"type"`
	Text      string               `json:"text,omitempty"`
	Metadata  *model.QueryMetadata `json:"metadata,omitempty"`
	Citations []*model.Citation    `json:"citations,omitempty"`
	Outcome   string               `json:"outcome,omitempty"`
}

// StreamQuery runs the retrieval pipeline and emits the answer
// incrementally. Client cancellation suppresses all further events and is
// reported as ErrStopped, never as an error event. If redaction changes the
// streamed text, the full redacted answer is re-sent as one content_replace
// event.
func (e *Engine) StreamQuery(ctx context.Context, query string, opts model.QueryOptions, emit func(Event) error) error {
	if ctx.Err() != nil {
		return ErrStopped
	}

	if err := emit(Event{Type: EventThinking, Text: "Searching documents"}); err != nil {
		return err
	}

	r, err := e.retrieve(ctx, query, opts)
	if err != nil {
		if canceled(ctx, err) {
			return ErrStopped
		}
		_ = emit(Event{Type: EventError, Text: err.Error()})
		_ = emit(Event{Type: EventDone, Outcome: OutcomeFailed})
		return err
	}
	if ctx.Err() != nil {
		return ErrStopped
	}

	if len(r.results) == 0 {
		r.metadata.NoContext = true
	}

	// Metadata always precedes content; citations are redacted before they
	// leave the pipeline
	streamCitations, citationDetections := e.redactedCitations(ctx, r.results)
	r.metadata.PIIDetections = citationDetections
	if err := emit(Event{Type: EventMetadata, Metadata: &r.metadata, Citations: streamCitations}); err != nil {
		return err
	}

	if len(r.results) == 0 {
		if err := emit(Event{Type: EventContent, Text: NoContextAnswer}); err != nil {
			return err
		}
		return e.finish(emit, &r.metadata)
	}

	if err := emit(Event{Type: EventThinking, Text: "Generating answer"}); err != nil {
		return err
	}

	synthesisStart := time.Now()
	full, err := e.completer.CompleteStream(ctx, buildMessages(query, r.results, r.graphCtx), services.CompletionOptions{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}, func(delta string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return emit(Event{Type: EventContent, Text: delta})
	})
	r.metadata.SynthesisMillis = time.Since(synthesisStart).Milliseconds()
	if err != nil {
		if canceled(ctx, err) {
			return ErrStopped
		}
		e.log.Warn("Streaming synthesis failed, replacing with degraded answer",
			slog.String("error", err.Error()))
		if err := emit(Event{Type: EventContentReplace, Text: degradedAnswer(r.results)}); err != nil {
			return err
		}
		r.metadata.Degraded = true
		return e.finish(emit, &r.metadata)
	}

	// The text already went out unchecked, so any redaction replaces it
	redacted, detections, err := e.redact(ctx, full)
	if err != nil {
		if canceled(ctx, err) {
			return ErrStopped
		}
		if emitErr := emit(Event{Type: EventContentReplace, Text: redacted}); emitErr != nil {
			return emitErr
		}
		r.metadata.Degraded = true
		return e.finish(emit, &r.metadata)
	}
	r.metadata.PIIDetections += len(detections)
	if len(detections) > 0 {
		if err := emit(Event{Type: EventContentReplace, Text: redacted}); err != nil {
			return err
		}
	}

	return e.finish(emit, &r.metadata)
}

// finish closes a successful stream with the final timing metadata followed
// by the done event.
func (e *Engine) finish(emit func(Event) error, metadata *model.QueryMetadata) error {
	if err := emit(Event{Type: EventMetadata, Metadata: metadata}); err != nil {
		return err
	}
	return emit(Event{Type: EventDone, Outcome: OutcomeCompleted})
}

// canceled reports whether the failure is a client cancellation rather
// than a pipeline error.
func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
