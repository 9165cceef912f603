package entities

import (
	"time"
	"unicode/utf8"

	"insightdocs-backend/domain/core/valueobjects"
)

// DocumentState is the in-memory representation of one collaboratively
// edited document. Content is the sole source of truth during a live
// session; it is never diffed against external storage. Version increments
// exactly once per successfully applied operation.
type DocumentState struct {
	ID                valueobjects.DocumentID
	Content           string
	Version           int
	PendingOperations []valueobjects.Operation
	LastSavedAt       time.Time
	LoadedFrom        string
}

// NewDocumentState creates document state at the given starting version
func NewDocumentState(id valueobjects.DocumentID, content string, version int, loadedFrom string) *DocumentState {
	return &DocumentState{
		ID:                id,
		Content:           content,
		Version:           version,
		PendingOperations: nil,
		LastSavedAt:       time.Now(),
		LoadedFrom:        loadedFrom,
	}
}

// ContentLength returns the current content length in code points
func (d *DocumentState) ContentLength() int {
	return utf8.RuneCountInString(d.Content)
}

// RecordApplied mutates the state for one successfully applied operation
func (d *DocumentState) RecordApplied(newContent string, op valueobjects.Operation) {
	d.Content = newContent
	d.PendingOperations = append(d.PendingOperations, op)
	d.Version++
}

// ClearPending empties the pending log and stamps the checkpoint time
func (d *DocumentState) ClearPending() {
	d.PendingOperations = nil
	d.LastSavedAt = time.Now()
}

// PendingCount returns the number of operations applied since the last
// durable checkpoint
func (d *DocumentState) PendingCount() int {
	return len(d.PendingOperations)
}

// Snapshot returns a read-only copy for callers outside the coordinator.
// The pending log is copied so the live slice is never shared.
type Snapshot struct {
	DocumentID   string                   `json:"documentId"`
	Content      string                   `json:"content"`
	Version      int                      `json:"version"`
	PendingCount int                      `json:"pendingCount"`
	LastSavedAt  time.Time                `json:"lastSavedAt"`
	Pending      []valueobjects.Operation `json:"-"`
}

// Snapshot produces a detached copy of the current state
func (d *DocumentState) Snapshot() Snapshot {
	pending := make([]valueobjects.Operation, len(d.PendingOperations))
	copy(pending, d.PendingOperations)
	return Snapshot{
		DocumentID:   d.ID.String(),
		Content:      d.Content,
		Version:      d.Version,
		PendingCount: len(pending),
		LastSavedAt:  d.LastSavedAt,
		Pending:      pending,
	}
}
