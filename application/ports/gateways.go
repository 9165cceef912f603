// Package ports defines the boundary contracts the collaboration core
// requires from external collaborators: durable version storage, initial
// content extraction, access control and the broadcast transport.
package ports

import (
	"context"
	"errors"
	"time"
)

// ErrVersionNotFound is returned by version stores when a document or a
// specific version has never been persisted. Callers distinguish it from
// infrastructure failure: NotFound on cold load means "start fresh",
// any other error means the load failed.
var ErrVersionNotFound = errors.New("version not found")

// SaveType records how a checkpoint was triggered
type SaveType string

const (
	SaveTypeAuto   SaveType = "auto"
	SaveTypeManual SaveType = "manual"
)

// LatestContent is the most recently persisted state of a document
type LatestContent struct {
	Content string
	Version int
}

// VersionRecord is one durable entry in a document's version history
type VersionRecord struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"documentId"`
	Version       int       `json:"version"`
	Content       string    `json:"content"`
	SavedBy       string    `json:"savedBy"`
	SaveType      SaveType  `json:"saveType"`
	CommitMessage string    `json:"commitMessage"`
	CreatedAt     time.Time `json:"createdAt"`
}

// VersionStore is the persistence gateway: an append-only version history
// plus a latest-content record per document. The coordinator is its only
// caller.
type VersionStore interface {
	// LoadLatest returns the newest persisted content and version, or
	// ErrVersionNotFound when the document has never been checkpointed.
	LoadLatest(ctx context.Context, documentID string) (LatestContent, error)

	// LoadVersion returns the content persisted at an exact version, or
	// ErrVersionNotFound.
	LoadVersion(ctx context.Context, documentID string, version int) (string, error)

	// AppendVersion durably records a new version and updates the latest
	// content.
	AppendVersion(ctx context.Context, record VersionRecord) (VersionRecord, error)

	// ListVersions returns up to limit records, newest first.
	ListVersions(ctx context.Context, documentID string, limit int) ([]VersionRecord, error)
}

// ResolvedContent is the outcome of initial content resolution, including
// which source in the configured chain produced it
type ResolvedContent struct {
	Text   string
	Source string
}

// ContentSource resolves the initial text of a document that has no
// persisted version yet. Implementations may chain several underlying
// sources; Resolve reports which one won.
type ContentSource interface {
	Resolve(ctx context.Context, documentID string) (ResolvedContent, error)
}

// Role is the capability a user holds on a document
type Role string

const (
	RoleOwner    Role = "owner"
	RoleReviewer Role = "reviewer"
	RoleViewer   Role = "viewer"
)

// AccessDecision is the result of the join-time access check
type AccessDecision struct {
	Allowed bool
	Role    Role
}

// AccessChecker answers whether a user may join a document: membership in
// the owning organization, or an accepted cross-organization invitation
// scoped to it. Checked once, synchronously, before a join proceeds.
type AccessChecker interface {
	CanAccess(ctx context.Context, userID, documentID string) (AccessDecision, error)
}

// Event is one outbound message for the transport layer
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Broadcaster ships events to connected clients. Implementations are
// expected to be non-blocking from the coordinator's point of view.
type Broadcaster interface {
	// ToConnection delivers an event to a single connection.
	ToConnection(connectionID string, event Event)

	// ToDocument delivers an event to every session joined to a document,
	// except excludeConnectionID when non-empty.
	ToDocument(documentID string, event Event, excludeConnectionID string)
}
