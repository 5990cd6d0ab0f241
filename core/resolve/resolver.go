package resolve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/helper"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

// Resolver deduplicates and cross-links extracted entities against entities
// already persisted in the graph store.
type Resolver struct {
	graph    services.GraphStore
	embedder services.Embedder
	log      *slog.Logger
}

// NewResolver creates a resolver over the given graph store and embedder.
func NewResolver(graph services.GraphStore, embedder services.Embedder, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{graph: graph, embedder: embedder, log: logger}
}

// Resolve classifies every entity of one document batch against the batch
// itself and the stored graph. Entities are annotated in place and returned
// in input order; nothing is ever dropped.
//
// Callers must treat an error as a whole-batch failure and fall back to
// Fallback so ingestion can continue with unresolved entities.
func (r *Resolver) Resolve(ctx context.Context, entities []*model.Entity, documentID uuid.UUID, opts model.ResolveOptions) (*model.Resolution, error) {
	resolution := &model.Resolution{Resolved: make([]*model.Entity, 0, len(entities))}

	// Canonical names already seen in this batch, lowercased
	batch := make(map[string]*model.Entity, len(entities))

	for _, entity := range entities {
		key := strings.ToLower(strings.TrimSpace(entity.Name))

		// Exact match within the same document batch
		if first, ok := batch[key]; ok {
			entity.Action = model.ActionMerged
			entity.ResolvedTo = first.Name
			entity.Similarity = 1.0
			resolution.Stats.Merged++
			resolution.Resolved = append(resolution.Resolved, entity)
			continue
		}

		// Exact match against the stored graph
		stored, err := r.graph.GetVertexByName(ctx, entity.Name)
		if err != nil {
			return nil, helper.NewError("vertex lookup", err)
		}
		if stored != nil {
			entity.Action = model.ActionExactMatch
			entity.ResolvedTo = stored.Name
			entity.Similarity = 1.0
			resolution.Stats.ExactMatch++
			batch[key] = entity
			resolution.Resolved = append(resolution.Resolved, entity)
			continue
		}

		// Fuzzy match via name embedding similarity
		vector, err := r.embedder.Embed(ctx, entity.Name)
		if err != nil {
			return nil, helper.NewError("embed entity name", err)
		}
		candidates, err := r.graph.SimilarVertices(ctx, vector, opts.MaxCandidates)
		if err != nil {
			return nil, helper.NewError("similar vertices", err)
		}

		best := bestCandidate(candidates)
		switch {
		case best != nil && best.Similarity >= opts.SameAsThreshold:
			entity.Action = model.ActionLinkedSameAs
			entity.ResolvedTo = best.Vertex.Name
			entity.Similarity = best.Similarity
			resolution.Stats.LinkedSameAs++
		case best != nil && best.Similarity >= opts.SimilarThreshold:
			entity.Action = model.ActionLinkedSimilar
			entity.ResolvedTo = entity.Name
			entity.Similarity = best.Similarity
			resolution.Stats.LinkedSimilar++
		default:
			entity.Action = model.ActionCreated
			entity.ResolvedTo = entity.Name
			resolution.Stats.Created++
		}

		batch[key] = entity
		resolution.Resolved = append(resolution.Resolved, entity)
	}

	return resolution, nil
}

// Fallback treats every entity as newly created with full confidence. Used
// when Resolve fails as a whole; ingestion correctness takes priority over
// deduplication quality.
func Fallback(entities []*model.Entity) *model.Resolution {
	resolution := &model.Resolution{Resolved: make([]*model.Entity, 0, len(entities))}
	for _, entity := range entities {
		entity.Action = model.ActionFallback
		entity.ResolvedTo = entity.Name
		entity.Confidence = 1.0
		resolution.Resolved = append(resolution.Resolved, entity)
		resolution.Stats.Created++
	}
	return resolution
}

// DiscoverCrossDocumentRelationships proposes related_to edges between this
// document's entities and semantically similar entities persisted from
// other documents. Failures are non-fatal and yield an empty list.
func (r *Resolver) DiscoverCrossDocumentRelationships(ctx context.Context, documentID uuid.UUID, entities []*model.Entity, minSimilarity float64) []*model.Relationship {
	own := make(map[string]bool, len(entities))
	for _, e := range entities {
		own[strings.ToLower(e.ResolvedTo)] = true
		own[strings.ToLower(e.Name)] = true
	}

	var discovered []*model.Relationship
	for _, entity := range entities {
		vector, err := r.embedder.Embed(ctx, entity.Name)
		if err != nil {
			r.log.Warn("Cross-document discovery embed failed",
				slog.String("entity", entity.Name), slog.String("error", err.Error()))
			continue
		}
		candidates, err := r.graph.SimilarVertices(ctx, vector, 5)
		if err != nil {
			r.log.Warn("Cross-document discovery lookup failed",
				slog.String("entity", entity.Name), slog.String("error", err.Error()))
			continue
		}
		for _, candidate := range candidates {
			if candidate.Similarity < minSimilarity {
				continue
			}
			if own[strings.ToLower(candidate.Vertex.Name)] {
				continue
			}
			discovered = append(discovered, &model.Relationship{
				From:       entity.ResolvedTo,
				To:         candidate.Vertex.Name,
				Type:       "related_to",
				Confidence: candidate.Similarity,
				DocumentID: documentID,
			})
		}
	}

	return discovered
}

func bestCandidate(candidates []*services.VertexSimilarity) *services.VertexSimilarity {
	var best *services.VertexSimilarity
	for _, c := range candidates {
		if best == nil || c.Similarity > best.Similarity {
			best = c
		}
	}
	return best
}
