package model

import "github.com/google/uuid"

// ResolutionAction classifies the outcome of matching an extracted entity
// against already known entities.
type ResolutionAction string

const (
	ActionCreated       ResolutionAction = "created"
	ActionMerged        ResolutionAction = "merged"
	ActionExactMatch    ResolutionAction = "exact_match"
	ActionLinkedSameAs  ResolutionAction = "linked_same_as"
	ActionLinkedSimilar ResolutionAction = "linked_similar"
	ActionFallback      ResolutionAction = "fallback"
)

// Entity is an entity extracted from a document, annotated through the
// validation and resolution stages.
type Entity struct {
	Name        string    `json:"name"`
	Type        string    `json:"entity_type"`
	Description string    `json:"description,omitempty"`
	Confidence  float64   `json:"confidence"`
	DocumentID  uuid.UUID `json:"document_id"`
	// Resolution annotations
	Action     ResolutionAction `json:"action,omitempty"`
	ResolvedTo string           `json:"resolved_to,omitempty"`
	Similarity float64          `json:"similarity,omitempty"`
	// Validation annotations
	ValidationWarnings []string `json:"validation_warnings,omitempty"`
	ValidationPassed   bool     `json:"validation_passed"`
}

// Relationship is a directed relationship between two named entities
// extracted from a document.
type Relationship struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Type       string    `json:"relationship_type"`
	Confidence float64   `json:"confidence"`
	DocumentID uuid.UUID `json:"document_id"`
	// Validation annotations
	ValidationWarnings []string `json:"validation_warnings,omitempty"`
	ValidationPassed   bool     `json:"validation_passed"`
}

// ResolveStats counts resolution outcomes for one document batch.
type ResolveStats struct {
	Created       int `json:"created"`
	Merged        int `json:"merged"`
	LinkedSameAs  int `json:"linked_same_as"`
	LinkedSimilar int `json:"linked_similar"`
	ExactMatch    int `json:"exact_match"`
}

// Resolution is the output of resolving one document's entity batch.
type Resolution struct {
	Resolved []*Entity    `json:"resolved"`
	Stats    ResolveStats `json:"stats"`
}
