package database

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/docgraph/helper"
	"github.com/siherrmann/docgraph/model"
	"github.com/siherrmann/docgraph/services"
)

// Weights of the hybrid score. Vector similarity dominates, keyword rank
// breaks ties and carries the keyword-only degraded mode.
const (
	vectorWeight  = 0.7
	keywordWeight = 0.3
)

// SearchHandler implements hybrid vector and keyword search over the
// chunks table.
//
// The filter expression in SearchOptions is appended to the WHERE clause
// verbatim. It is built by trusted server code, never from raw user input.
type SearchHandler struct {
	db *helper.Database
}

func (h *SearchHandler) IndexChunks(ctx context.Context, chunks []*model.Chunk, documentName string) (int, error) {
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return 0, helper.NewError("begin indexing transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, document_name, ordinal, content, chunk_type, method, page, section, entities, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			chunk_type = EXCLUDED.chunk_type,
			method = EXCLUDED.method,
			page = EXCLUDED.page,
			section = EXCLUDED.section,
			entities = EXCLUDED.entities,
			embedding = EXCLUDED.embedding`)
	if err != nil {
		return 0, helper.NewError("prepare chunk insert", err)
	}
	defer stmt.Close()

	indexed := 0
	for _, chunk := range chunks {
		var embedding any
		if len(chunk.Embedding) > 0 {
			embedding = pgvector.NewVector(chunk.Embedding)
		}
		_, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.DocumentID, documentName, chunk.Index, chunk.Content,
			chunk.ChunkType, chunk.Method, chunk.Page, chunk.Section,
			pq.Array(chunk.Entities), embedding)
		if err != nil {
			return 0, helper.NewError("insert chunk "+chunk.ID, err)
		}
		indexed++
	}

	if err := tx.Commit(); err != nil {
		return 0, helper.NewError("commit indexing transaction", err)
	}
	return indexed, nil
}

func (h *SearchHandler) Search(ctx context.Context, query string, vector []float32, opts services.SearchOptions) ([]*services.SearchResult, error) {
	where := "TRUE"
	if opts.Filter != "" {
		where = opts.Filter
	}

	var rows *sql.Rows
	var err error
	if vector != nil {
		rows, err = h.db.Instance.QueryContext(ctx, `
			SELECT id, document_id, document_name, ordinal, content, chunk_type, method, page, section, entities,
				(1 - (embedding <=> $1)) * `+fmtFloat(vectorWeight)+` +
				COALESCE(ts_rank(content_tsv, plainto_tsquery('english', $2)), 0) * `+fmtFloat(keywordWeight)+` AS score
			FROM chunks
			WHERE embedding IS NOT NULL AND (`+where+`)
			ORDER BY score DESC
			LIMIT $3`,
			pgvector.NewVector(vector), query, opts.Top)
	} else {
		rows, err = h.db.Instance.QueryContext(ctx, `
			SELECT id, document_id, document_name, ordinal, content, chunk_type, method, page, section, entities,
				ts_rank(content_tsv, plainto_tsquery('english', $1)) AS score
			FROM chunks
			WHERE content_tsv @@ plainto_tsquery('english', $1) AND (`+where+`)
			ORDER BY score DESC
			LIMIT $2`,
			query, opts.Top)
	}
	if err != nil {
		return nil, helper.NewError("search chunks", err)
	}
	defer rows.Close()

	method := "keyword"
	if vector != nil {
		method = "hybrid"
	}

	var results []*services.SearchResult
	for rows.Next() {
		chunk := &model.Chunk{RetrievalMethod: method}
		var documentName string
		var entities pq.StringArray
		err := rows.Scan(&chunk.ID, &chunk.DocumentID, &documentName, &chunk.Index,
			&chunk.Content, &chunk.ChunkType, &chunk.Method, &chunk.Page, &chunk.Section,
			&entities, &chunk.Score)
		if err != nil {
			return nil, helper.NewError("scan search result", err)
		}
		chunk.Entities = entities
		results = append(results, &services.SearchResult{
			Chunk:        chunk,
			DocumentName: documentName,
			Score:        chunk.Score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("iterate search results", err)
	}
	return results, nil
}

func (h *SearchHandler) DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return helper.NewError("delete document chunks", err)
	}
	return nil
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
