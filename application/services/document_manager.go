package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"insightdocs-backend/application/ports"
	"insightdocs-backend/domain/core/entities"
	"insightdocs-backend/domain/core/valueobjects"
	"insightdocs-backend/domain/ot"
	pkgerrors "insightdocs-backend/pkg/errors"
)

// PlaceholderContent seeds documents whose extraction produced no text
const PlaceholderContent = "Start typing to begin collaboration..."

// DefaultCheckpointThreshold is the pending-log size that triggers an
// automatic durable checkpoint, bounding replay cost and memory.
const DefaultCheckpointThreshold = 5

// ApplyResult is the outcome of a successfully applied operation
type ApplyResult struct {
	Content   string
	Operation valueobjects.Operation
	Version   int
}

// docEntry guards one document's state. The entry mutex serializes every
// mutation for that document, which is what makes the transform fold
// well-defined; different documents proceed independently.
type docEntry struct {
	mu      sync.Mutex
	state   *entities.DocumentState
	loading chan struct{}
	loadErr error
}

// DocumentManager owns all in-memory document state. It loads documents
// from the version store (or the content source chain on first touch),
// applies operations through the transform engine, and checkpoints the
// pending log to durable storage.
type DocumentManager struct {
	store     ports.VersionStore
	content   ports.ContentSource
	logger    *zap.Logger
	threshold int

	mu        sync.RWMutex
	documents map[string]*docEntry
}

// NewDocumentManager creates a document manager
func NewDocumentManager(store ports.VersionStore, content ports.ContentSource, logger *zap.Logger) *DocumentManager {
	return &DocumentManager{
		store:     store,
		content:   content,
		logger:    logger,
		threshold: DefaultCheckpointThreshold,
		documents: make(map[string]*docEntry),
	}
}

// SetCheckpointThreshold overrides the auto-checkpoint trigger
func (m *DocumentManager) SetCheckpointThreshold(n int) {
	if n > 0 {
		m.threshold = n
	}
}

// Load returns the in-memory state for a document, cold-loading it when
// absent. Concurrent cold loads for the same document coalesce into a
// single load: late arrivals block on the in-flight one instead of
// duplicating extraction work.
func (m *DocumentManager) Load(ctx context.Context, documentID string) (entities.Snapshot, error) {
	entry, leader := m.entryForLoad(documentID)

	if leader {
		m.coldLoad(ctx, documentID, entry)
	}

	select {
	case <-entry.loading:
	case <-ctx.Done():
		return entities.Snapshot{}, ctx.Err()
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.loadErr != nil {
		return entities.Snapshot{}, entry.loadErr
	}
	return entry.state.Snapshot(), nil
}

// entryForLoad returns the entry for documentID, creating it when absent.
// The second result is true when the caller is responsible for performing
// the cold load.
func (m *DocumentManager) entryForLoad(documentID string) (*docEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.documents[documentID]; ok {
		return entry, false
	}
	entry := &docEntry{loading: make(chan struct{})}
	m.documents[documentID] = entry
	return entry, true
}

// coldLoad initializes a fresh entry from the version store, falling back
// to the content source chain when nothing has been persisted. A failed
// load removes the entry so a later join may retry.
func (m *DocumentManager) coldLoad(ctx context.Context, documentID string, entry *docEntry) {
	defer close(entry.loading)

	docID, err := valueobjects.NewDocumentID(documentID)
	if err != nil {
		m.failLoad(documentID, entry, pkgerrors.NewValidationError(err.Error()))
		return
	}

	latest, err := m.store.LoadLatest(ctx, documentID)
	switch {
	case err == nil:
		entry.state = entities.NewDocumentState(docID, latest.Content, latest.Version+1, "version-store")
		m.logger.Info("Document loaded from version store",
			zap.String("documentID", documentID),
			zap.Int("version", entry.state.Version),
		)
		return
	case errors.Is(err, ports.ErrVersionNotFound):
		// First touch: resolve initial content.
	default:
		m.logger.Warn("Version store unavailable during cold load, falling back to content source",
			zap.String("documentID", documentID),
			zap.Error(err),
		)
	}

	resolved, resolveErr := m.content.Resolve(ctx, documentID)
	if resolveErr != nil {
		m.failLoad(documentID, entry, pkgerrors.NewLoadFailureError(documentID, resolveErr))
		return
	}

	text := resolved.Text
	if text == "" {
		text = PlaceholderContent
	}
	entry.state = entities.NewDocumentState(docID, text, 1, resolved.Source)
	m.logger.Info("Document initialized from content source",
		zap.String("documentID", documentID),
		zap.String("source", resolved.Source),
		zap.Int("contentLength", entry.state.ContentLength()),
	)
}

func (m *DocumentManager) failLoad(documentID string, entry *docEntry, err error) {
	entry.mu.Lock()
	entry.loadErr = err
	entry.mu.Unlock()

	m.mu.Lock()
	if m.documents[documentID] == entry {
		delete(m.documents, documentID)
	}
	m.mu.Unlock()

	m.logger.Error("Document cold load failed",
		zap.String("documentID", documentID),
		zap.Error(err),
	)
}

func (m *DocumentManager) entry(documentID string) (*docEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.documents[documentID]
	if !ok {
		return nil, false
	}
	select {
	case <-entry.loading:
	default:
		return nil, false
	}
	return entry, entry.loadErr == nil && entry.state != nil
}

// ApplyOperation transforms op against the pending log, validates the
// result against the current content, and mutates the document. Validation
// runs after the transform, not before: the transform may legitimately move
// the position. On failure the document is untouched and the version does
// not advance.
func (m *DocumentManager) ApplyOperation(ctx context.Context, documentID string, op valueobjects.Operation, authorUserID string) (ApplyResult, error) {
	entry, ok := m.entry(documentID)
	if !ok {
		return ApplyResult{}, pkgerrors.NewUnknownDocumentError(documentID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	state := entry.state

	transformed := ot.TransformAgainst(op, state.PendingOperations)

	newContent, err := ot.Apply(state.Content, transformed)
	if err != nil {
		return ApplyResult{}, pkgerrors.NewInvalidOperationError(err.Error()).
			WithDetails(map[string]interface{}{
				"operationId": op.ID,
				"kind":        string(op.Kind),
			})
	}

	state.RecordApplied(newContent, transformed)

	m.logger.Debug("Operation applied",
		zap.String("documentID", documentID),
		zap.String("kind", string(transformed.Kind)),
		zap.Int("version", state.Version),
		zap.Int("pending", state.PendingCount()),
	)

	if state.PendingCount() >= m.threshold {
		if _, err := m.checkpointLocked(ctx, state, authorUserID, ports.SaveTypeAuto, ""); err != nil {
			// Edits stay live in memory; the checkpoint retries on the next
			// threshold trigger or manual save.
			m.logger.Warn("Automatic checkpoint failed, pending operations retained",
				zap.String("documentID", documentID),
				zap.Error(err),
			)
		}
	}

	return ApplyResult{
		Content:   state.Content,
		Operation: transformed,
		Version:   state.Version,
	}, nil
}

// Checkpoint durably records the current content and version, then clears
// the pending log. Calling it with nothing pending is a no-op that still
// succeeds.
func (m *DocumentManager) Checkpoint(ctx context.Context, documentID, savedBy string, saveType ports.SaveType, commitMessage string) (ports.VersionRecord, error) {
	entry, ok := m.entry(documentID)
	if !ok {
		return ports.VersionRecord{}, pkgerrors.NewUnknownDocumentError(documentID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return m.checkpointLocked(ctx, entry.state, savedBy, saveType, commitMessage)
}

func (m *DocumentManager) checkpointLocked(ctx context.Context, state *entities.DocumentState, savedBy string, saveType ports.SaveType, commitMessage string) (ports.VersionRecord, error) {
	if state.PendingCount() == 0 {
		return ports.VersionRecord{
			DocumentID: state.ID.String(),
			Version:    state.Version,
			SavedBy:    savedBy,
			SaveType:   saveType,
			CreatedAt:  state.LastSavedAt,
		}, nil
	}

	if commitMessage == "" {
		commitMessage = fmt.Sprintf("Version %d - %d changes by %s", state.Version, state.PendingCount(), savedBy)
	}

	record := ports.VersionRecord{
		ID:            uuid.New().String(),
		DocumentID:    state.ID.String(),
		Version:       state.Version,
		Content:       state.Content,
		SavedBy:       savedBy,
		SaveType:      saveType,
		CommitMessage: commitMessage,
		CreatedAt:     time.Now(),
	}

	saved, err := m.store.AppendVersion(ctx, record)
	if err != nil {
		return ports.VersionRecord{}, pkgerrors.NewPersistenceFailureError("append version", err)
	}

	state.ClearPending()

	m.logger.Info("Document checkpointed",
		zap.String("documentID", state.ID.String()),
		zap.Int("version", saved.Version),
		zap.String("saveType", string(saveType)),
	)
	return saved, nil
}

// Rollback replaces the live content with the content persisted at
// targetVersion, sets version to targetVersion+1 and clears the pending
// log. This is a destructive forward-only move: operations applied after
// targetVersion are dropped from the live content, though they remain in
// the version history.
func (m *DocumentManager) Rollback(ctx context.Context, documentID string, targetVersion int) (entities.Snapshot, error) {
	entry, ok := m.entry(documentID)
	if !ok {
		return entities.Snapshot{}, pkgerrors.NewUnknownDocumentError(documentID)
	}

	content, err := m.store.LoadVersion(ctx, documentID, targetVersion)
	if err != nil {
		if errors.Is(err, ports.ErrVersionNotFound) {
			return entities.Snapshot{}, pkgerrors.NewNotFoundError(fmt.Sprintf("version %d of document %s", targetVersion, documentID))
		}
		return entities.Snapshot{}, pkgerrors.NewPersistenceFailureError("load version", err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	state := entry.state
	state.Content = content
	state.Version = targetVersion + 1
	state.ClearPending()

	m.logger.Info("Document rolled back",
		zap.String("documentID", documentID),
		zap.Int("targetVersion", targetVersion),
		zap.Int("newVersion", state.Version),
	)
	return state.Snapshot(), nil
}

// History lists up to limit persisted versions, newest first
func (m *DocumentManager) History(ctx context.Context, documentID string, limit int) ([]ports.VersionRecord, error) {
	records, err := m.store.ListVersions(ctx, documentID, limit)
	if err != nil {
		return nil, pkgerrors.NewPersistenceFailureError("list versions", err)
	}
	return records, nil
}

// Snapshot returns a read-only copy of the live state for external readers
func (m *DocumentManager) Snapshot(documentID string) (entities.Snapshot, error) {
	entry, ok := m.entry(documentID)
	if !ok {
		return entities.Snapshot{}, pkgerrors.NewUnknownDocumentError(documentID)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state.Snapshot(), nil
}

// LoadedDocuments lists the documents currently held in memory
func (m *DocumentManager) LoadedDocuments() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.documents))
	for id := range m.documents {
		ids = append(ids, id)
	}
	return ids
}

// Evict drops the in-memory state for a document. Intended for documents
// that have had zero active sessions for the eviction window; a later join
// cold-loads from the version store again.
func (m *DocumentManager) Evict(documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[documentID]; ok {
		delete(m.documents, documentID)
		m.logger.Info("Document state evicted", zap.String("documentID", documentID))
	}
}
