package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/siherrmann/docgraph/services"
)

// EmbeddingBoundaryDetector finds topic break points by watching for drops
// in semantic similarity between each sentence and the running average of
// the current topic's sentence embeddings.
type EmbeddingBoundaryDetector struct {
	embedder  services.Embedder
	threshold float32
}

// NewEmbeddingBoundaryDetector creates a detector. A sentence whose
// similarity to the running topic average falls below threshold starts a
// new topic.
func NewEmbeddingBoundaryDetector(embedder services.Embedder, threshold float32) *EmbeddingBoundaryDetector {
	return &EmbeddingBoundaryDetector{embedder: embedder, threshold: threshold}
}

// DetectBreaks returns the indexes of sentences that start a new topic.
func (d *EmbeddingBoundaryDetector) DetectBreaks(ctx context.Context, sentences []string) ([]int, error) {
	if len(sentences) == 0 {
		return nil, fmt.Errorf("no sentences to segment")
	}

	embeddings, err := d.embedder.EmbedBatch(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("failed to embed sentences: %w", err)
	}
	if len(embeddings) != len(sentences) {
		return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d sentences", len(embeddings), len(sentences))
	}

	var breaks []int
	var topic [][]float32

	for i := range sentences {
		if len(topic) > 0 {
			avg := averageEmbedding(topic)
			if cosineSimilarity(avg, embeddings[i]) < d.threshold {
				breaks = append(breaks, i)
				topic = nil
			}
		}
		topic = append(topic, embeddings[i])
	}

	return breaks, nil
}

func averageEmbedding(embeddings [][]float32) []float32 {
	avg := make([]float32, len(embeddings[0]))
	for _, emb := range embeddings {
		for j := range emb {
			avg[j] += emb[j]
		}
	}
	for j := range avg {
		avg[j] /= float32(len(embeddings))
	}
	return avg
}

// cosineSimilarity calculates the cosine similarity between two embedding vectors
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
