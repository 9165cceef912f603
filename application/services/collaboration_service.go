package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"insightdocs-backend/application/ports"
	"insightdocs-backend/domain/core/entities"
	"insightdocs-backend/domain/core/valueobjects"
	pkgerrors "insightdocs-backend/pkg/errors"
)

// Outbound event types
const (
	EventJoined            = "joined"
	EventOperationApplied  = "operationApplied"
	EventParticipantJoined = "participantJoined"
	EventParticipantLeft   = "participantLeft"
	EventCursorChanged     = "cursorChanged"
	EventTypingChanged     = "typingChanged"
	EventSaved             = "saved"
	EventHistoryList       = "historyList"
	EventRolledBack        = "rolledBack"
	EventRosterList        = "rosterList"
	EventAccessDenied      = "accessDenied"
	EventError             = "error"
)

// connPhase is the lifecycle of one (document, connection) pair
type connPhase int

const (
	phaseUnjoined connPhase = iota
	phaseJoining
	phaseJoined
	phaseLeft
)

const (
	// reapInterval is how often the presence sweep runs
	reapInterval = 60 * time.Second
	// staleAfter is the idle window after which a session is reaped
	staleAfter = 5 * time.Minute
	// historyLimit caps version history responses
	historyLimit = 50
)

// JoinedPayload is sent to a session once its join resolves
type JoinedPayload struct {
	DocumentID string                 `json:"documentId"`
	Content    string                 `json:"content"`
	Version    int                    `json:"version"`
	Roster     []entities.SessionView `json:"roster"`
	Role       ports.Role             `json:"role"`
}

// OperationPayload carries a transformed operation to the rest of a roster
type OperationPayload struct {
	DocumentID string                 `json:"documentId"`
	UserID     string                 `json:"userId"`
	Operation  valueobjects.Operation `json:"operation"`
	Version    int                    `json:"version"`
}

// SavedPayload announces a durable checkpoint
type SavedPayload struct {
	DocumentID    string    `json:"documentId"`
	Version       int       `json:"version"`
	SavedBy       string    `json:"savedBy"`
	SavedByName   string    `json:"savedByName"`
	SaveType      string    `json:"saveType"`
	CommitMessage string    `json:"commitMessage"`
	Timestamp     time.Time `json:"timestamp"`
}

// RolledBackPayload announces a destructive rollback
type RolledBackPayload struct {
	DocumentID    string `json:"documentId"`
	Content       string `json:"content"`
	Version       int    `json:"version"`
	TargetVersion int    `json:"targetVersion"`
}

// ErrorPayload carries a failure signal to one session
type ErrorPayload struct {
	Reason    string `json:"reason"`
	Type      string `json:"type"`
	Retryable bool   `json:"retryable"`
}

// CollaborationService orchestrates join/leave, routes operations through
// the document manager, and computes broadcast fan-out. It is the only
// writer of document state and session entries.
type CollaborationService struct {
	documents   *DocumentManager
	sessions    *SessionRegistry
	access      ports.AccessChecker
	broadcaster ports.Broadcaster
	logger      *zap.Logger

	mu      sync.Mutex
	phases  map[string]connPhase
	docIdle map[string]time.Time
	joining map[string]int // in-flight joins per document, gates eviction

	evictAfter time.Duration
}

// NewCollaborationService creates the coordinator
func NewCollaborationService(
	documents *DocumentManager,
	sessions *SessionRegistry,
	access ports.AccessChecker,
	broadcaster ports.Broadcaster,
	logger *zap.Logger,
) *CollaborationService {
	return &CollaborationService{
		documents:   documents,
		sessions:    sessions,
		access:      access,
		broadcaster: broadcaster,
		logger:      logger,
		phases:      make(map[string]connPhase),
		docIdle:     make(map[string]time.Time),
		joining:     make(map[string]int),
		evictAfter:  10 * time.Minute,
	}
}

func (s *CollaborationService) setPhase(connectionID string, phase connPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if phase == phaseUnjoined || phase == phaseLeft {
		delete(s.phases, connectionID)
		return
	}
	s.phases[connectionID] = phase
}

func (s *CollaborationService) phase(connectionID string) connPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phases[connectionID]
}

// beginJoin clears the idle mark and holds an eviction guard for the
// document until the join either registers its session or fails. The
// guard is what makes a join racing the idle sweep safe: eviction skips
// any document with a join in flight.
func (s *CollaborationService) beginJoin(documentID string) {
	s.mu.Lock()
	delete(s.docIdle, documentID)
	s.joining[documentID]++
	s.mu.Unlock()
}

func (s *CollaborationService) endJoin(documentID string) {
	s.mu.Lock()
	if s.joining[documentID] > 1 {
		s.joining[documentID]--
	} else {
		delete(s.joining, documentID)
	}
	s.mu.Unlock()
}

// Join runs the access check, resolves document state (coalescing with any
// in-flight cold load), registers the session and notifies the roster. A
// failed access check is terminal for this attempt: no state is retained.
func (s *CollaborationService) Join(ctx context.Context, connectionID, userID, displayName, documentID string) error {
	docID, err := valueobjects.NewDocumentID(documentID)
	if err != nil {
		s.sendError(connectionID, pkgerrors.NewValidationError(err.Error()))
		return err
	}

	decision, err := s.access.CanAccess(ctx, userID, documentID)
	if err != nil {
		appErr := pkgerrors.Wrap(err, "access check failed")
		s.sendError(connectionID, appErr)
		return appErr
	}
	if !decision.Allowed {
		appErr := pkgerrors.NewAccessDeniedError("")
		s.broadcaster.ToConnection(connectionID, ports.Event{
			Type: EventAccessDenied,
			Data: ErrorPayload{Reason: appErr.Message, Type: string(appErr.Type)},
		})
		s.logger.Info("Join denied",
			zap.String("userID", userID),
			zap.String("documentID", documentID),
		)
		return appErr
	}

	s.setPhase(connectionID, phaseJoining)
	s.beginJoin(documentID)
	defer s.endJoin(documentID)

	snapshot, err := s.documents.Load(ctx, documentID)
	if err != nil {
		s.setPhase(connectionID, phaseUnjoined)
		s.sendError(connectionID, err)
		return err
	}

	roster := s.sessions.Join(connectionID, userID, displayName, docID)
	s.setPhase(connectionID, phaseJoined)

	s.broadcaster.ToConnection(connectionID, ports.Event{
		Type: EventJoined,
		Data: JoinedPayload{
			DocumentID: documentID,
			Content:    snapshot.Content,
			Version:    snapshot.Version,
			Roster:     roster,
			Role:       decision.Role,
		},
	})

	if session, ok := s.sessions.Get(connectionID); ok {
		s.broadcaster.ToDocument(documentID, ports.Event{
			Type: EventParticipantJoined,
			Data: session.View(),
		}, connectionID)
	}
	return nil
}

// HandleOperation applies one operation for a joined connection and fans
// the transformed result out to every other session on the document. The
// originating session is never echoed its own operation, and fan-out
// happens only after the authoritative mutation succeeded.
func (s *CollaborationService) HandleOperation(ctx context.Context, connectionID string, op valueobjects.Operation) error {
	session, ok := s.sessions.Get(connectionID)
	if !ok || s.phase(connectionID) != phaseJoined {
		appErr := pkgerrors.NewValidationError("connection has no joined session")
		s.sendError(connectionID, appErr)
		return appErr
	}
	documentID := session.DocumentID.String()

	result, err := s.documents.ApplyOperation(ctx, documentID, op, session.UserID)
	if err != nil {
		s.sendError(connectionID, err)
		return err
	}

	s.sessions.TouchActivity(connectionID)

	s.broadcaster.ToDocument(documentID, ports.Event{
		Type: EventOperationApplied,
		Data: OperationPayload{
			DocumentID: documentID,
			UserID:     session.UserID,
			Operation:  result.Operation,
			Version:    result.Version,
		},
	}, connectionID)
	return nil
}

// UpdateCursor records and fans out an advisory cursor change
func (s *CollaborationService) UpdateCursor(connectionID string, cursor valueobjects.Cursor) {
	view, documentID, ok := s.sessions.UpdateCursor(connectionID, cursor)
	if !ok {
		return
	}
	s.broadcaster.ToDocument(documentID, ports.Event{
		Type: EventCursorChanged,
		Data: view,
	}, connectionID)
}

// UpdateTyping records and fans out an advisory typing change
func (s *CollaborationService) UpdateTyping(connectionID string, isTyping bool) {
	view, documentID, ok := s.sessions.UpdateTyping(connectionID, isTyping)
	if !ok {
		return
	}
	s.broadcaster.ToDocument(documentID, ports.Event{
		Type: EventTypingChanged,
		Data: view,
	}, connectionID)
}

// Save performs a manual checkpoint, bypassing the pending threshold, and
// announces it to the whole roster including the saver
func (s *CollaborationService) Save(ctx context.Context, connectionID, commitMessage string) error {
	session, ok := s.sessions.Get(connectionID)
	if !ok {
		appErr := pkgerrors.NewValidationError("connection has no joined session")
		s.sendError(connectionID, appErr)
		return appErr
	}
	documentID := session.DocumentID.String()

	record, err := s.documents.Checkpoint(ctx, documentID, session.UserID, ports.SaveTypeManual, commitMessage)
	if err != nil {
		s.sendError(connectionID, err)
		return err
	}

	s.broadcaster.ToDocument(documentID, ports.Event{
		Type: EventSaved,
		Data: SavedPayload{
			DocumentID:    documentID,
			Version:       record.Version,
			SavedBy:       session.UserID,
			SavedByName:   session.DisplayName,
			SaveType:      string(ports.SaveTypeManual),
			CommitMessage: record.CommitMessage,
			Timestamp:     record.CreatedAt,
		},
	}, "")
	return nil
}

// GetHistory sends the version history to the requesting session only
func (s *CollaborationService) GetHistory(ctx context.Context, connectionID string) error {
	session, ok := s.sessions.Get(connectionID)
	if !ok {
		appErr := pkgerrors.NewValidationError("connection has no joined session")
		s.sendError(connectionID, appErr)
		return appErr
	}

	records, err := s.documents.History(ctx, session.DocumentID.String(), historyLimit)
	if err != nil {
		s.sendError(connectionID, err)
		return err
	}

	s.broadcaster.ToConnection(connectionID, ports.Event{
		Type: EventHistoryList,
		Data: records,
	})
	return nil
}

// Rollback destructively rolls the document back to targetVersion and
// announces the new content to the whole roster
func (s *CollaborationService) Rollback(ctx context.Context, connectionID string, targetVersion int) error {
	session, ok := s.sessions.Get(connectionID)
	if !ok {
		appErr := pkgerrors.NewValidationError("connection has no joined session")
		s.sendError(connectionID, appErr)
		return appErr
	}
	documentID := session.DocumentID.String()

	snapshot, err := s.documents.Rollback(ctx, documentID, targetVersion)
	if err != nil {
		s.sendError(connectionID, err)
		return err
	}

	s.broadcaster.ToDocument(documentID, ports.Event{
		Type: EventRolledBack,
		Data: RolledBackPayload{
			DocumentID:    documentID,
			Content:       snapshot.Content,
			Version:       snapshot.Version,
			TargetVersion: targetVersion,
		},
	}, "")
	return nil
}

// SendRoster sends the current deduplicated roster to one session
func (s *CollaborationService) SendRoster(connectionID string) {
	session, ok := s.sessions.Get(connectionID)
	if !ok {
		return
	}
	s.broadcaster.ToConnection(connectionID, ports.Event{
		Type: EventRosterList,
		Data: s.sessions.RosterFor(session.DocumentID.String()),
	})
}

// Disconnect removes the session for a closed or leaving connection and
// notifies the remaining participants
func (s *CollaborationService) Disconnect(connectionID string) {
	view, documentID, ok := s.sessions.Leave(connectionID)
	s.setPhase(connectionID, phaseLeft)
	if !ok {
		return
	}

	s.broadcaster.ToDocument(documentID, ports.Event{
		Type: EventParticipantLeft,
		Data: view,
	}, connectionID)

	s.markIdleIfEmpty(documentID)
}

func (s *CollaborationService) markIdleIfEmpty(documentID string) {
	if s.sessions.HasSessions(documentID) {
		return
	}
	s.mu.Lock()
	if _, ok := s.docIdle[documentID]; !ok {
		s.docIdle[documentID] = time.Now()
	}
	s.mu.Unlock()
}

// Run drives the periodic presence sweep and idle-document eviction until
// ctx is cancelled
func (s *CollaborationService) Run(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Collaboration sweep stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *CollaborationService) sweep(ctx context.Context) {
	reaped := s.sessions.ReapStale(staleAfter)
	for documentID, views := range reaped {
		for _, view := range views {
			s.broadcaster.ToDocument(documentID, ports.Event{
				Type: EventParticipantLeft,
				Data: view,
			}, "")
		}
		s.markIdleIfEmpty(documentID)
	}

	s.evictIdleDocuments(ctx)
}

// evictIdleDocuments drops in-memory state for documents with zero sessions
// for longer than the eviction window. Pending operations are checkpointed
// first; a document whose checkpoint fails stays resident.
func (s *CollaborationService) evictIdleDocuments(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	var due []string
	for documentID, since := range s.docIdle {
		if now.Sub(since) > s.evictAfter {
			due = append(due, documentID)
		}
	}
	s.mu.Unlock()

	for _, documentID := range due {
		if s.sessions.HasSessions(documentID) {
			s.mu.Lock()
			delete(s.docIdle, documentID)
			s.mu.Unlock()
			continue
		}
		if _, err := s.documents.Checkpoint(ctx, documentID, "system", ports.SaveTypeAuto, ""); err != nil {
			s.logger.Warn("Skipping eviction, final checkpoint failed",
				zap.String("documentID", documentID),
				zap.Error(err),
			)
			continue
		}

		// Re-check under the lock and evict while still holding it. A
		// join that got here first cleared the idle mark; one arriving
		// later blocks in beginJoin until the eviction is done and then
		// cold-loads a fresh copy.
		s.mu.Lock()
		_, stillIdle := s.docIdle[documentID]
		if !stillIdle || s.joining[documentID] > 0 || s.sessions.HasSessions(documentID) {
			s.mu.Unlock()
			continue
		}
		delete(s.docIdle, documentID)
		s.documents.Evict(documentID)
		s.mu.Unlock()
	}
}

func (s *CollaborationService) sendError(connectionID string, err error) {
	payload := ErrorPayload{Reason: err.Error(), Type: string(pkgerrors.ErrorTypeInternal)}
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		payload = ErrorPayload{
			Reason:    appErr.Message,
			Type:      string(appErr.Type),
			Retryable: appErr.Retryable,
		}
	}
	s.broadcaster.ToConnection(connectionID, ports.Event{
		Type: EventError,
		Data: payload,
	})
}
