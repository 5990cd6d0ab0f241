package llm

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// stubModel replays canned responses in order.
type stubModel struct {
	responses []string
	calls     int
}

func (s *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	response := s.responses[s.calls]
	if s.calls < len(s.responses)-1 {
		s.calls++
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: response}},
	}, nil
}

func (s *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	response, err := s.GenerateContent(ctx, nil, options...)
	if err != nil {
		return "", err
	}
	return response.Choices[0].Content, nil
}

func TestExtractGraph(t *testing.T) {
	documentID := uuid.New()

	t.Run("Well-formed response maps to entities and relationships", func(t *testing.T) {
		extractor := &Extractor{log: slog.Default(), client: &stubModel{responses: []string{
			`{"entities":[{"name":"Acme Corp","type":"Organization","confidence":0.9},{"name":"Jane Doe","type":"person","confidence":0.8}],
			  "relationships":[{"from":"Acme Corp","to":"Jane Doe","type":"Employs","confidence":0.85}]}`,
		}}}

		entities, relationships, err := extractor.ExtractGraph(context.Background(), "text", documentID)
		require.NoError(t, err)

		require.Len(t, entities, 2)
		assert.Equal(t, "organization", entities[0].Type)
		assert.Equal(t, documentID, entities[0].DocumentID)
		require.Len(t, relationships, 1)
		assert.Equal(t, "employs", relationships[0].Type)
	})

	t.Run("Malformed JSON is retried", func(t *testing.T) {
		stub := &stubModel{responses: []string{
			`{"entities": [`,
			`{"entities":[{"name":"Acme Corp","type":"organization","confidence":0.9}],"relationships":[]}`,
		}}
		extractor := &Extractor{log: slog.Default(), client: stub}

		entities, _, err := extractor.ExtractGraph(context.Background(), "text", documentID)
		require.NoError(t, err)
		assert.Len(t, entities, 1)
		assert.Equal(t, 1, stub.calls)
	})

	t.Run("Persistently malformed JSON fails after three attempts", func(t *testing.T) {
		extractor := &Extractor{log: slog.Default(), client: &stubModel{responses: []string{`not json`}}}

		_, _, err := extractor.ExtractGraph(context.Background(), "text", documentID)
		assert.Error(t, err)
	})

	t.Run("Relationships with unknown endpoints are dropped", func(t *testing.T) {
		extractor := &Extractor{log: slog.Default(), client: &stubModel{responses: []string{
			`{"entities":[{"name":"Acme Corp","type":"organization","confidence":0.9}],
			  "relationships":[{"from":"Acme Corp","to":"Nobody","type":"employs","confidence":0.5}]}`,
		}}}

		entities, relationships, err := extractor.ExtractGraph(context.Background(), "text", documentID)
		require.NoError(t, err)
		assert.Len(t, entities, 1)
		assert.Empty(t, relationships)
	})

	t.Run("Entities without a name are skipped", func(t *testing.T) {
		extractor := &Extractor{log: slog.Default(), client: &stubModel{responses: []string{
			`{"entities":[{"name":"  ","type":"organization"},{"name":"Kept","type":"concept"}],"relationships":[]}`,
		}}}

		entities, _, err := extractor.ExtractGraph(context.Background(), "text", documentID)
		require.NoError(t, err)
		require.Len(t, entities, 1)
		assert.Equal(t, "Kept", entities[0].Name)
	})
}
