package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siherrmann/docgraph/services"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Config holds the connection parameters for an OpenAI-compatible API.
type Config struct {
	BaseURL        string
	Token          string
	ChatModel      string
	EmbeddingModel string
}

// Client provides embedding, chat and vision over one OpenAI-compatible
// endpoint. It implements both the Embedder and Completer boundaries.
type Client struct {
	chat     llms.Model
	embedder embeddings.Embedder
	log      *slog.Logger
}

// NewClient creates a client. The token may be "none" for local
// OpenAI-compatible services without authentication.
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Token == "" {
		config.Token = "none"
	}

	chat, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(config.Token),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}

	embeddingClient, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(config.Token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(embeddingClient, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &Client{chat: chat, embedder: embedder, log: logger}, nil
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	return vectors[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed texts: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %v vectors for %v texts", len(vectors), len(texts))
	}
	return vectors, nil
}

func (c *Client) Complete(ctx context.Context, messages []services.Message, opts services.CompletionOptions) (string, error) {
	response, err := c.chat.GenerateContent(ctx, toContent(messages),
		llms.WithTemperature(opts.Temperature),
		llms.WithMaxTokens(opts.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return response.Choices[0].Content, nil
}

func (c *Client) CompleteStream(ctx context.Context, messages []services.Message, opts services.CompletionOptions, fn func(delta string) error) (string, error) {
	var full string
	_, err := c.chat.GenerateContent(ctx, toContent(messages),
		llms.WithTemperature(opts.Temperature),
		llms.WithMaxTokens(opts.MaxTokens),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			delta := string(chunk)
			full += delta
			return fn(delta)
		}),
	)
	if err != nil {
		return full, fmt.Errorf("failed to stream completion: %w", err)
	}
	return full, nil
}

func (c *Client) DescribeImage(ctx context.Context, imageURL string, prompt string) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
				llms.ImageURLPart(imageURL),
			},
		},
	}
	response, err := c.chat.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		return "", fmt.Errorf("failed to describe image: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return response.Choices[0].Content, nil
}

func toContent(messages []services.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, message := range messages {
		role := llms.ChatMessageTypeHuman
		if message.Role == services.RoleSystem {
			role = llms.ChatMessageTypeSystem
		}
		content = append(content, llms.TextParts(role, message.Content))
	}
	return content
}
