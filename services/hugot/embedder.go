package hugot

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/docgraph/helper"
)

// DefaultModel is a sentence transformer producing 384-dimensional vectors.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// DefaultDimension is the vector width of DefaultModel.
const DefaultDimension = 384

// LocalEmbedder runs a sentence transformer locally through ONNX, so
// ingestion and retrieval work without any embedding API.
type LocalEmbedder struct {
	session *hugot.Session
	run     func(texts []string) ([][]float32, error)
}

// NewLocalEmbedder downloads the model if needed and starts an inference
// session. modelName may be empty for the default sentence transformer.
func NewLocalEmbedder(modelName string) (*LocalEmbedder, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	modelPath, err := helper.PrepareModel(modelName, "")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	return &LocalEmbedder{
		session: session,
		run: func(texts []string) ([][]float32, error) {
			result, err := pipeline.RunPipeline(texts)
			if err != nil {
				return nil, err
			}
			return result.Embeddings, nil
		},
	}, nil
}

func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embeddings, err := e.run(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("got %v embeddings for %v texts", len(embeddings), len(texts))
	}
	return embeddings, nil
}

// Close releases the inference session.
func (e *LocalEmbedder) Close() error {
	return e.session.Destroy()
}
