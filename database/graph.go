package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/docgraph/core/graph"
	"github.com/siherrmann/docgraph/helper"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

// GraphHandler persists the knowledge graph in the vertices and graph_edges
// tables. Traversal loads edges hop by hop through the shared breadth-first
// walker.
type GraphHandler struct {
	db *helper.Database
}

func (h *GraphHandler) UpsertVertex(ctx context.Context, vertex *model.Vertex, nameVector []float32) (bool, error) {
	var embedding any
	if len(nameVector) > 0 {
		embedding = pgvector.NewVector(nameVector)
	}

	var inserted bool
	err := h.db.Instance.QueryRowContext(ctx, `
		INSERT INTO vertices (name, type, description, name_embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (name) DO UPDATE SET
			type = EXCLUDED.type,
			description = CASE WHEN EXCLUDED.description <> '' THEN EXCLUDED.description ELSE vertices.description END,
			name_embedding = COALESCE(EXCLUDED.name_embedding, vertices.name_embedding),
			updated_at = now()
		RETURNING (xmax = 0)`,
		vertex.Name, vertex.Type, vertex.Description, embedding).Scan(&inserted)
	if err != nil {
		return false, helper.NewError("upsert vertex", err)
	}
	return inserted, nil
}

func (h *GraphHandler) UpsertEdge(ctx context.Context, edge *model.GraphEdge) (bool, error) {
	var inserted bool
	err := h.db.Instance.QueryRowContext(ctx, `
		INSERT INTO graph_edges (from_name, to_name, type, confidence, source_document_id, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (from_name, to_name, type, source_document_id) DO UPDATE SET
			confidence = EXCLUDED.confidence
		RETURNING (xmax = 0)`,
		edge.From, edge.To, edge.Type, edge.Confidence, edge.SourceDocumentID).Scan(&inserted)
	if err != nil {
		return false, helper.NewError("upsert edge", err)
	}
	return inserted, nil
}

func (h *GraphHandler) DeleteDocumentEdges(ctx context.Context, documentID uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(ctx, `DELETE FROM graph_edges WHERE source_document_id = $1`, documentID)
	if err != nil {
		return helper.NewError("delete document edges", err)
	}
	return nil
}

func (h *GraphHandler) FindRelated(ctx context.Context, entityNames []string, depth int) (*model.GraphContext, error) {
	return graph.Traverse(ctx, h, entityNames, depth)
}

// EdgesTouching loads every edge with at least one endpoint in names.
func (h *GraphHandler) EdgesTouching(ctx context.Context, names []string) ([]*model.GraphEdge, error) {
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}

	rows, err := h.db.Instance.QueryContext(ctx, `
		SELECT from_name, to_name, type, confidence, source_document_id, created_at
		FROM graph_edges
		WHERE lower(from_name) = ANY($1) OR lower(to_name) = ANY($1)`,
		pq.Array(lowered))
	if err != nil {
		return nil, helper.NewError("load touching edges", err)
	}
	defer rows.Close()

	var edges []*model.GraphEdge
	for rows.Next() {
		edge := &model.GraphEdge{}
		if err := rows.Scan(&edge.From, &edge.To, &edge.Type, &edge.Confidence, &edge.SourceDocumentID, &edge.CreatedAt); err != nil {
			return nil, helper.NewError("scan edge", err)
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

// VerticesByName loads the vertices whose lowercased name is in names.
func (h *GraphHandler) VerticesByName(ctx context.Context, names []string) ([]*model.Vertex, error) {
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}

	rows, err := h.db.Instance.QueryContext(ctx, `
		SELECT name, type, description, mention_count, created_at, updated_at
		FROM vertices WHERE lower(name) = ANY($1)`,
		pq.Array(lowered))
	if err != nil {
		return nil, helper.NewError("load vertices", err)
	}
	defer rows.Close()

	var vertices []*model.Vertex
	for rows.Next() {
		vertex := &model.Vertex{}
		if err := rows.Scan(&vertex.Name, &vertex.Type, &vertex.Description, &vertex.MentionCount, &vertex.CreatedAt, &vertex.UpdatedAt); err != nil {
			return nil, helper.NewError("scan vertex", err)
		}
		vertices = append(vertices, vertex)
	}
	return vertices, rows.Err()
}

func (h *GraphHandler) GetVertexByName(ctx context.Context, name string) (*model.Vertex, error) {
	vertex := &model.Vertex{}
	err := h.db.Instance.QueryRowContext(ctx, `
		SELECT name, type, description, mention_count, created_at, updated_at
		FROM vertices WHERE lower(name) = lower($1)`, name).Scan(
		&vertex.Name, &vertex.Type, &vertex.Description, &vertex.MentionCount, &vertex.CreatedAt, &vertex.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("get vertex", err)
	}
	return vertex, nil
}

func (h *GraphHandler) SimilarVertices(ctx context.Context, vector []float32, topK int) ([]*services.VertexSimilarity, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `
		SELECT name, type, description, mention_count, created_at, updated_at,
			1 - (name_embedding <=> $1) AS similarity
		FROM vertices
		WHERE name_embedding IS NOT NULL
		ORDER BY name_embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, helper.NewError("similar vertices", err)
	}
	defer rows.Close()

	var results []*services.VertexSimilarity
	for rows.Next() {
		vertex := &model.Vertex{}
		var similarity float64
		if err := rows.Scan(&vertex.Name, &vertex.Type, &vertex.Description, &vertex.MentionCount, &vertex.CreatedAt, &vertex.UpdatedAt, &similarity); err != nil {
			return nil, helper.NewError("scan similar vertex", err)
		}
		results = append(results, &services.VertexSimilarity{Vertex: vertex, Similarity: similarity})
	}
	return results, rows.Err()
}

func (h *GraphHandler) ApplyMentionCounts(ctx context.Context, counts map[string]int) error {
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin mention transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE vertices SET mention_count = mention_count + $2, updated_at = now()
		WHERE lower(name) = lower($1)`)
	if err != nil {
		return helper.NewError("prepare mention update", err)
	}
	defer stmt.Close()

	for name, count := range counts {
		if _, err := stmt.ExecContext(ctx, name, count); err != nil {
			return helper.NewError("update mentions for "+name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helper.NewError("commit mention transaction", err)
	}
	return nil
}
