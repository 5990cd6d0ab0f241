package graph

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/helper"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
	"golang.org/x/time/rate"
)

// Updater applies resolved entities and relationships to the graph store.
// All writes go through a shared rate limiter so bulk ingestion cannot
// overwhelm the store.
type Updater struct {
	graph    services.GraphStore
	embedder services.Embedder
	limiter  *rate.Limiter
	log      *slog.Logger
}

// NewUpdater creates an updater writing at most writesPerSecond vertex or
// edge upserts per second. writesPerSecond <= 0 disables throttling.
func NewUpdater(graph services.GraphStore, embedder services.Embedder, writesPerSecond float64, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if writesPerSecond > 0 {
		limit = rate.Limit(writesPerSecond)
	}
	return &Updater{
		graph:    graph,
		embedder: embedder,
		limiter:  rate.NewLimiter(limit, 1),
		log:      logger,
	}
}

// UpsertEntities writes one vertex per resolved entity. Entities linked to
// an existing vertex write under their resolved name so descriptions keep
// accumulating on the canonical vertex. A failed write is logged and
// skipped; the remaining entities are still written.
func (u *Updater) UpsertEntities(ctx context.Context, entities []*model.Entity) (*model.UpsertStats, error) {
	stats := &model.UpsertStats{}
	for _, entity := range entities {
		name := entity.ResolvedTo
		if name == "" {
			name = entity.Name
		}

		if err := u.limiter.Wait(ctx); err != nil {
			return stats, helper.NewError("graph write throttle", err)
		}

		nameVector, err := u.embedder.Embed(ctx, name)
		if err != nil {
			u.log.Warn("Vertex name embedding failed, writing without vector",
				slog.String("entity", name), slog.String("error", err.Error()))
			nameVector = nil
		}

		added, err := u.graph.UpsertVertex(ctx, &model.Vertex{
			Name:        name,
			Type:        entity.Type,
			Description: entity.Description,
		}, nameVector)
		if err != nil {
			u.log.Warn("Vertex upsert failed, skipping",
				slog.String("entity", name), slog.String("error", err.Error()))
			stats.Skipped++
			continue
		}
		if added {
			stats.Added++
		} else {
			stats.Updated++
		}
	}
	return stats, nil
}

// UpsertRelationships writes one edge per relationship. Endpoints follow
// the entities' resolved names via the given mapping of original name to
// canonical name. Failed writes are logged and skipped.
func (u *Updater) UpsertRelationships(ctx context.Context, relationships []*model.Relationship, resolvedNames map[string]string) (*model.UpsertStats, error) {
	stats := &model.UpsertStats{}
	for _, relationship := range relationships {
		if err := u.limiter.Wait(ctx); err != nil {
			return stats, helper.NewError("graph write throttle", err)
		}

		added, err := u.graph.UpsertEdge(ctx, &model.GraphEdge{
			From:             canonicalName(relationship.From, resolvedNames),
			To:               canonicalName(relationship.To, resolvedNames),
			Type:             relationship.Type,
			Confidence:       relationship.Confidence,
			SourceDocumentID: relationship.DocumentID,
		})
		if err != nil {
			u.log.Warn("Edge upsert failed, skipping",
				slog.String("from", relationship.From),
				slog.String("to", relationship.To),
				slog.String("error", err.Error()))
			stats.Skipped++
			continue
		}
		if added {
			stats.Added++
		} else {
			stats.Updated++
		}
	}
	return stats, nil
}

// TrackMentions counts whole-word, case-insensitive occurrences of each
// entity name across the chunk contents and adds them to the stored
// mention counters. Entities without a single mention are excluded from
// the batch update.
func (u *Updater) TrackMentions(ctx context.Context, entities []*model.Entity, chunks []*model.Chunk) (*model.MentionStats, error) {
	counts := make(map[string]int)
	for _, entity := range entities {
		name := entity.ResolvedTo
		if name == "" {
			name = entity.Name
		}
		pattern, err := mentionPattern(name)
		if err != nil {
			u.log.Warn("Mention pattern build failed, skipping entity",
				slog.String("entity", name), slog.String("error", err.Error()))
			continue
		}
		total := 0
		for _, chunk := range chunks {
			total += len(pattern.FindAllStringIndex(chunk.Content, -1))
		}
		if total > 0 {
			counts[name] += total
		}
	}

	stats := &model.MentionStats{UniqueEntitiesMentioned: len(counts)}
	for _, count := range counts {
		stats.TotalMentions += count
	}
	if len(counts) == 0 {
		return stats, nil
	}
	if err := u.graph.ApplyMentionCounts(ctx, counts); err != nil {
		return nil, helper.NewError("apply mention counts", err)
	}
	return stats, nil
}

// DeleteDocumentEdges removes every edge the given document contributed.
// Vertices stay, they may be shared with other documents.
func (u *Updater) DeleteDocumentEdges(ctx context.Context, documentID uuid.UUID) error {
	if err := u.graph.DeleteDocumentEdges(ctx, documentID); err != nil {
		return helper.NewError("delete document edges", err)
	}
	return nil
}

func canonicalName(name string, resolvedNames map[string]string) string {
	if resolvedNames == nil {
		return name
	}
	if canonical, ok := resolvedNames[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// mentionPattern matches the name as whole words only, so "Risk" does not
// count inside "risks".
func mentionPattern(name string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
}
