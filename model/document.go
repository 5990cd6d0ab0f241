package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of a document in the ingestion pipeline.
type Status string

const (
	StatusPending                  Status = "pending"
	StatusExtractingContent        Status = "extracting_content"
	StatusExtractingVisuals        Status = "extracting_visuals"
	StatusChunking                 Status = "chunking"
	StatusExtractingEntities       Status = "extracting_entities"
	StatusValidatingExtraction     Status = "validating_extraction"
	StatusResolvingEntities        Status = "resolving_entities"
	StatusGeneratingEmbeddings     Status = "generating_embeddings"
	StatusIndexingSearch           Status = "indexing_search"
	StatusUpdatingGraph            Status = "updating_graph"
	StatusTrackingMentions         Status = "tracking_mentions"
	StatusDiscoveringCrossDocLinks Status = "discovering_cross_document_links"
	StatusCompleted                Status = "completed"
	StatusFailed                   Status = "failed"
)

// StageOrder lists the pipeline states in execution order, excluding failed.
var StageOrder = []Status{
	StatusPending,
	StatusExtractingContent,
	StatusExtractingVisuals,
	StatusChunking,
	StatusExtractingEntities,
	StatusValidatingExtraction,
	StatusResolvingEntities,
	StatusGeneratingEmbeddings,
	StatusIndexingSearch,
	StatusUpdatingGraph,
	StatusTrackingMentions,
	StatusDiscoveringCrossDocLinks,
	StatusCompleted,
}

// ProcessingStats summarizes what one ingestion run produced.
type ProcessingStats struct {
	ChunkCount              int           `json:"chunk_count"`
	SectionChunkCount       int           `json:"section_chunk_count"`
	TableChunkCount         int           `json:"table_chunk_count"`
	ChunkingMethod          string        `json:"chunking_method"`
	EntityCount             int           `json:"entity_count"`
	RelationshipCount       int           `json:"relationship_count"`
	FigureCount             int           `json:"figure_count"`
	FiguresSkipped          int           `json:"figures_skipped"`
	Resolution              ResolveStats  `json:"resolution"`
	VerticesAdded           int           `json:"vertices_added"`
	VerticesUpdated         int           `json:"vertices_updated"`
	EdgesAdded              int           `json:"edges_added"`
	UniqueEntitiesMentioned int           `json:"unique_entities_mentioned"`
	TotalMentions           int           `json:"total_mentions"`
	CrossDocumentLinks      int           `json:"cross_document_links"`
	Duration                time.Duration `json:"duration"`
}

// Document is a source document owned by the ingestion pipeline.
// It is mutated only through status updates and never deleted by the
// pipeline itself.
type Document struct {
	ID            uuid.UUID            `json:"id"`
	Name          string               `json:"name"`
	BlobRef       string               `json:"blob_ref"`
	MimeType      string               `json:"mime_type"`
	Status        Status               `json:"status"`
	Error         string               `json:"error,omitempty"`
	StageTimes    map[Status]time.Time `json:"stage_times,omitempty"`
	Entities      []*Entity            `json:"entities,omitempty"`
	Relationships []*Relationship      `json:"relationships,omitempty"`
	Stats         *ProcessingStats     `json:"stats,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewDocument creates a pending document for the given blob reference.
func NewDocument(name string, blobRef string, mimeType string) *Document {
	return &Document{
		ID:         uuid.New(),
		Name:       name,
		BlobRef:    blobRef,
		MimeType:   mimeType,
		Status:     StatusPending,
		StageTimes: make(map[Status]time.Time),
	}
}

// MarkStage records the stage-named timestamp and moves the document into
// the stage. The timestamp is set before the stage's work begins.
func (d *Document) MarkStage(stage Status) {
	if d.StageTimes == nil {
		d.StageTimes = make(map[Status]time.Time)
	}
	d.Status = stage
	d.StageTimes[stage] = time.Now().UTC()
}

// MarkFailed moves the document into the failed terminal state.
func (d *Document) MarkFailed(message string) {
	d.Status = StatusFailed
	d.Error = message
	if d.StageTimes == nil {
		d.StageTimes = make(map[Status]time.Time)
	}
	d.StageTimes[StatusFailed] = time.Now().UTC()
}
