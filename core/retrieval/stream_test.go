package retrieval

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, f *engineFixture, query string, opts model.QueryOptions) []Event {
	t.Helper()
	var events []Event
	err := f.engine.StreamQuery(context.Background(), query, opts, func(e Event) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)
	return events
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func TestStreamQuery(t *testing.T) {
	documentID := uuid.New()

	t.Run("Metadata precedes content and the stream completes", func(t *testing.T) {
		f := newEngineFixture()
		f.completer.StreamDeltas = []string{"The answer ", "is in the report [1]."}
		f.index.Results = []*services.SearchResult{searchResult(documentID, 0, "Content.")}

		events := collectEvents(t, f, "Anything?", model.DefaultQueryOptions())

		metadataIndex, firstContentIndex := -1, -1
		for i, e := range events {
			if e.Type == EventMetadata && metadataIndex < 0 {
				metadataIndex = i
			}
			if e.Type == EventContent && firstContentIndex < 0 {
				firstContentIndex = i
			}
		}
		require.GreaterOrEqual(t, metadataIndex, 0)
		require.GreaterOrEqual(t, firstContentIndex, 0)
		assert.Less(t, metadataIndex, firstContentIndex)

		last := events[len(events)-1]
		assert.Equal(t, EventDone, last.Type)
		assert.Equal(t, OutcomeCompleted, last.Outcome)

		var content string
		for _, e := range events {
			if e.Type == EventContent {
				content += e.Text
			}
		}
		assert.Equal(t, "The answer is in the report [1].", content)
	})

	t.Run("A final metadata event with timing closes the stream before done", func(t *testing.T) {
		f := newEngineFixture()
		f.completer.StreamDeltas = []string{"The answer."}
		f.index.Results = []*services.SearchResult{searchResult(documentID, 0, "Content.")}

		events := collectEvents(t, f, "Anything?", model.DefaultQueryOptions())

		lastMetadataIndex, lastContentIndex := -1, -1
		for i, e := range events {
			if e.Type == EventMetadata {
				lastMetadataIndex = i
			}
			if e.Type == EventContent {
				lastContentIndex = i
			}
		}
		require.GreaterOrEqual(t, lastContentIndex, 0)
		assert.Greater(t, lastMetadataIndex, lastContentIndex)
		assert.Equal(t, lastMetadataIndex, len(events)-2)
		require.NotNil(t, events[lastMetadataIndex].Metadata)
		assert.Equal(t, EventDone, events[len(events)-1].Type)
	})

	t.Run("Metadata event carries the citations", func(t *testing.T) {
		f := newEngineFixture()
		f.index.Results = []*services.SearchResult{searchResult(documentID, 0, "Content.")}

		events := collectEvents(t, f, "Anything?", model.DefaultQueryOptions())
		for _, e := range events {
			if e.Type == EventMetadata {
				require.Len(t, e.Citations, 1)
				assert.Equal(t, 1, e.Metadata.ChunkCount)
				return
			}
		}
		t.Fatal("no metadata event emitted")
	})

	t.Run("No context streams the fallback answer without synthesis", func(t *testing.T) {
		f := newEngineFixture()

		events := collectEvents(t, f, "Anything?", model.DefaultQueryOptions())

		assert.Equal(t, 0, f.completer.StreamCalls)
		var sawAnswer bool
		for _, e := range events {
			if e.Type == EventMetadata {
				assert.True(t, e.Metadata.NoContext)
			}
			if e.Type == EventContent && e.Text == NoContextAnswer {
				sawAnswer = true
			}
		}
		assert.True(t, sawAnswer)
		assert.Equal(t, OutcomeCompleted, events[len(events)-1].Outcome)
	})

	t.Run("Citations in the metadata event are redacted", func(t *testing.T) {
		f := newEngineFixture()
		f.redactor.Secrets["jane@example.com"] = "[REDACTED]"
		f.index.Results = []*services.SearchResult{
			searchResult(documentID, 0, "Contact jane@example.com for the report."),
		}

		events := collectEvents(t, f, "Anything?", model.DefaultQueryOptions())
		for _, e := range events {
			if e.Type == EventMetadata && len(e.Citations) > 0 {
				assert.Equal(t, "Contact [REDACTED] for the report.", e.Citations[0].Content)
				assert.Equal(t, 1, e.Metadata.PIIDetections)
				return
			}
		}
		t.Fatal("no metadata event with citations emitted")
	})

	t.Run("Redaction after streaming replaces the full content", func(t *testing.T) {
		f := newEngineFixture()
		f.completer.StreamDeltas = []string{"Call jane@", "example.com now."}
		f.redactor.Secrets["jane@example.com"] = "[REDACTED]"
		f.index.Results = []*services.SearchResult{searchResult(documentID, 0, "Content.")}

		events := collectEvents(t, f, "Anything?", model.DefaultQueryOptions())

		var replacement string
		for _, e := range events {
			if e.Type == EventContentReplace {
				replacement = e.Text
			}
		}
		assert.Equal(t, "Call [REDACTED] now.", replacement)
	})

	t.Run("Clean answer is never replaced", func(t *testing.T) {
		f := newEngineFixture()
		f.completer.StreamDeltas = []string{"Nothing personal here."}
		f.index.Results = []*services.SearchResult{searchResult(documentID, 0, "Content.")}

		events := collectEvents(t, f, "Anything?", model.DefaultQueryOptions())
		assert.NotContains(t, eventTypes(events), EventContentReplace)
	})

	t.Run("Client cancellation suppresses all further events", func(t *testing.T) {
		f := newEngineFixture()
		f.completer.StreamDeltas = []string{"first ", "second ", "third"}
		f.index.Results = []*services.SearchResult{searchResult(documentID, 0, "Content.")}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var events []Event
		err := f.engine.StreamQuery(ctx, "Anything?", model.DefaultQueryOptions(), func(e Event) error {
			events = append(events, e)
			if e.Type == EventContent {
				cancel()
			}
			return nil
		})
		require.ErrorIs(t, err, ErrStopped)

		types := eventTypes(events)
		assert.NotContains(t, types, EventError)
		assert.NotContains(t, types, EventDone)
		assert.Equal(t, EventContent, events[len(events)-1].Type)
		assert.Equal(t, "first ", events[len(events)-1].Text)
	})

	t.Run("Cancellation before content yields no content or done events", func(t *testing.T) {
		f := newEngineFixture()
		f.completer.StreamDeltas = []string{"never sent"}
		f.index.Results = []*services.SearchResult{searchResult(documentID, 0, "Content.")}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var events []Event
		err := f.engine.StreamQuery(ctx, "Anything?", model.DefaultQueryOptions(), func(e Event) error {
			events = append(events, e)
			return nil
		})
		require.ErrorIs(t, err, ErrStopped)

		types := eventTypes(events)
		assert.NotContains(t, types, EventContent)
		assert.NotContains(t, types, EventDone)
		assert.NotContains(t, types, EventError)
	})

	t.Run("Synthesis failure replaces content with the degraded answer", func(t *testing.T) {
		f := newEngineFixture()
		f.completer.ShouldError = true
		f.index.Results = []*services.SearchResult{searchResult(documentID, 0, "Content.")}

		events := collectEvents(t, f, "Anything?", model.DefaultQueryOptions())

		var replacement string
		for _, e := range events {
			if e.Type == EventContentReplace {
				replacement = e.Text
			}
		}
		assert.Contains(t, replacement, "report.pdf")
		assert.Equal(t, OutcomeCompleted, events[len(events)-1].Outcome)
	})

	t.Run("Search failure emits error then done failed", func(t *testing.T) {
		f := newEngineFixture()
		f.index.ShouldError = true

		var events []Event
		err := f.engine.StreamQuery(context.Background(), "Anything?", model.DefaultQueryOptions(), func(e Event) error {
			events = append(events, e)
			return nil
		})
		require.Error(t, err)

		types := eventTypes(events)
		assert.Contains(t, types, EventError)
		assert.Equal(t, EventDone, events[len(events)-1].Type)
		assert.Equal(t, OutcomeFailed, events[len(events)-1].Outcome)
	})
}
