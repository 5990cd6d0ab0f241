package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/model"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const extractionSystemPrompt = `You extract a knowledge graph from document text.
Return a single JSON object with two arrays:
  "entities": [{"name": string, "type": string, "description": string, "confidence": number between 0 and 1}]
  "relationships": [{"from": string, "to": string, "type": string, "confidence": number between 0 and 1}]
Entity types are short lowercase nouns like person, organization, location, concept, product, event.
Relationship types are short lowercase verbs like employs, owns, partners_with, located_in, part_of.
Every relationship endpoint must be the name of an entity in the entities array.
Return only JSON, no prose.`

// extraction matches the JSON shape the model is instructed to return.
type extraction struct {
	Entities []struct {
		Name        string  `json:"name"`
		Type        string  `json:"type"`
		Description string  `json:"description"`
		Confidence  float64 `json:"confidence"`
	} `json:"entities"`
	Relationships []struct {
		From       string  `json:"from"`
		To         string  `json:"to"`
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
	} `json:"relationships"`
}

// Extractor pulls entities and relationships out of chunk text with an
// LLM in JSON mode.
type Extractor struct {
	client llms.Model
	log    *slog.Logger
}

// NewExtractor creates an extractor against an OpenAI-compatible API.
func NewExtractor(config Config, logger *slog.Logger) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Token == "" {
		config.Token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(config.Token),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction client: %w", err)
	}
	return &Extractor{client: client, log: logger}, nil
}

// ExtractGraph extracts the knowledge graph of one text. Malformed JSON is
// retried up to 3 times before failing.
func (e *Extractor) ExtractGraph(ctx context.Context, text string, documentID uuid.UUID) ([]*model.Entity, []*model.Relationship, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, extractionSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate extraction: %w", err)
		}
		if len(response.Choices) == 0 {
			return nil, nil, fmt.Errorf("model returned no choices")
		}

		var parsed extraction
		raw := strings.TrimSpace(response.Choices[0].Content)
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			lastErr = err
			e.log.Warn("Extraction returned malformed JSON, retrying",
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()))
			continue
		}
		return e.convert(parsed, documentID)
	}
	return nil, nil, fmt.Errorf("extraction failed after 3 attempts: %w", lastErr)
}

func (e *Extractor) convert(parsed extraction, documentID uuid.UUID) ([]*model.Entity, []*model.Relationship, error) {
	entities := make([]*model.Entity, 0, len(parsed.Entities))
	names := make(map[string]bool, len(parsed.Entities))
	for _, raw := range parsed.Entities {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			continue
		}
		names[strings.ToLower(name)] = true
		entities = append(entities, &model.Entity{
			Name:        name,
			Type:        strings.ToLower(strings.TrimSpace(raw.Type)),
			Description: strings.TrimSpace(raw.Description),
			Confidence:  raw.Confidence,
			DocumentID:  documentID,
		})
	}

	relationships := make([]*model.Relationship, 0, len(parsed.Relationships))
	for _, raw := range parsed.Relationships {
		from := strings.TrimSpace(raw.From)
		to := strings.TrimSpace(raw.To)
		if from == "" || to == "" {
			continue
		}
		// Dangling endpoints are dropped rather than failing the extraction
		if !names[strings.ToLower(from)] || !names[strings.ToLower(to)] {
			e.log.Warn("Dropping relationship with unknown endpoint",
				slog.String("from", from), slog.String("to", to))
			continue
		}
		relationships = append(relationships, &model.Relationship{
			From:       from,
			To:         to,
			Type:       strings.ToLower(strings.TrimSpace(raw.Type)),
			Confidence: raw.Confidence,
			DocumentID: documentID,
		})
	}
	return entities, relationships, nil
}
