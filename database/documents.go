package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph/helper"
	"github.com/siherrmann/docgraph/model"
)

// DocumentHandler persists document processing state.
type DocumentHandler struct {
	db *helper.Database
}

func (h *DocumentHandler) SaveDocument(ctx context.Context, doc *model.Document) error {
	stageTimes, entities, relationships, stats, err := marshalDocumentColumns(doc)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = h.db.Instance.ExecContext(ctx, `
		INSERT INTO documents (id, name, blob_ref, mime_type, status, error, stage_times, entities, relationships, stats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			blob_ref = EXCLUDED.blob_ref,
			mime_type = EXCLUDED.mime_type,
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			stage_times = EXCLUDED.stage_times,
			entities = EXCLUDED.entities,
			relationships = EXCLUDED.relationships,
			stats = EXCLUDED.stats,
			updated_at = EXCLUDED.updated_at`,
		doc.ID, doc.Name, doc.BlobRef, doc.MimeType, doc.Status, doc.Error,
		stageTimes, entities, relationships, stats, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return helper.NewError("save document", err)
	}
	return nil
}

func (h *DocumentHandler) UpdateStatus(ctx context.Context, doc *model.Document) error {
	stageTimes, entities, relationships, stats, err := marshalDocumentColumns(doc)
	if err != nil {
		return err
	}

	doc.UpdatedAt = time.Now().UTC()
	result, err := h.db.Instance.ExecContext(ctx, `
		UPDATE documents
		SET status = $2, error = $3, stage_times = $4, entities = $5, relationships = $6, stats = $7, updated_at = $8
		WHERE id = $1`,
		doc.ID, doc.Status, doc.Error, stageTimes, entities, relationships, stats, doc.UpdatedAt)
	if err != nil {
		return helper.NewError("update document status", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return helper.NewError("update document status", fmt.Errorf("document %v not found", doc.ID))
	}
	return nil
}

func (h *DocumentHandler) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	doc := &model.Document{}
	var stageTimes, entities, relationships []byte
	var stats sql.NullString

	err := h.db.Instance.QueryRowContext(ctx, `
		SELECT id, name, blob_ref, mime_type, status, error, stage_times, entities, relationships, stats, created_at, updated_at
		FROM documents WHERE id = $1`, id).Scan(
		&doc.ID, &doc.Name, &doc.BlobRef, &doc.MimeType, &doc.Status, &doc.Error,
		&stageTimes, &entities, &relationships, &stats, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, helper.NewError("get document", err)
	}

	if err := json.Unmarshal(stageTimes, &doc.StageTimes); err != nil {
		return nil, helper.NewError("decode stage times", err)
	}
	if err := json.Unmarshal(entities, &doc.Entities); err != nil {
		return nil, helper.NewError("decode entities", err)
	}
	if err := json.Unmarshal(relationships, &doc.Relationships); err != nil {
		return nil, helper.NewError("decode relationships", err)
	}
	if stats.Valid && stats.String != "" {
		doc.Stats = &model.ProcessingStats{}
		if err := json.Unmarshal([]byte(stats.String), doc.Stats); err != nil {
			return nil, helper.NewError("decode stats", err)
		}
	}
	return doc, nil
}

func marshalDocumentColumns(doc *model.Document) ([]byte, []byte, []byte, any, error) {
	stageTimes, err := json.Marshal(orEmptyMap(doc.StageTimes))
	if err != nil {
		return nil, nil, nil, nil, helper.NewError("encode stage times", err)
	}
	entities, err := json.Marshal(orEmptySliceEntities(doc.Entities))
	if err != nil {
		return nil, nil, nil, nil, helper.NewError("encode entities", err)
	}
	relationships, err := json.Marshal(orEmptySliceRelationships(doc.Relationships))
	if err != nil {
		return nil, nil, nil, nil, helper.NewError("encode relationships", err)
	}
	var stats any
	if doc.Stats != nil {
		encoded, err := json.Marshal(doc.Stats)
		if err != nil {
			return nil, nil, nil, nil, helper.NewError("encode stats", err)
		}
		stats = encoded
	}
	return stageTimes, entities, relationships, stats, nil
}

func orEmptyMap(m map[model.Status]time.Time) map[model.Status]time.Time {
	if m == nil {
		return map[model.Status]time.Time{}
	}
	return m
}

func orEmptySliceEntities(s []*model.Entity) []*model.Entity {
	if s == nil {
		return []*model.Entity{}
	}
	return s
}

func orEmptySliceRelationships(s []*model.Relationship) []*model.Relationship {
	if s == nil {
		return []*model.Relationship{}
	}
	return s
}
