package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"insightdocs-backend/domain/core/entities"
	"insightdocs-backend/domain/core/valueobjects"
)

// userColors is the palette presence colors are drawn from. The index is
// derived from the user ID so a user keeps the same color everywhere.
var userColors = []string{
	"#3B82F6", "#EF4444", "#10B981", "#F59E0B",
	"#8B5CF6", "#EC4899", "#06B6D4", "#84CC16",
}

// ColorForUser returns the deterministic display color for a user
func ColorForUser(userID string) string {
	if userID == "" {
		return userColors[0]
	}
	runes := []rune(userID)
	return userColors[int(runes[len(runes)-1])%len(userColors)]
}

// SessionRegistry maps live connections to (user, document) pairs and
// derives the participant roster and advisory cursor/typing state per
// document. Entries are ephemeral presence records owned by the
// coordinator; nothing here touches document content or versions.
type SessionRegistry struct {
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*entities.Session
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry(logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		logger:   logger,
		sessions: make(map[string]*entities.Session),
	}
}

// Join registers a connection against a document and returns the roster of
// everyone on it, including the new arrival
func (r *SessionRegistry) Join(connectionID, userID, displayName string, documentID valueobjects.DocumentID) []entities.SessionView {
	r.mu.Lock()
	r.sessions[connectionID] = entities.NewSession(connectionID, userID, displayName, documentID, ColorForUser(userID))
	r.mu.Unlock()

	r.logger.Info("Session joined",
		zap.String("connectionID", connectionID),
		zap.String("userID", userID),
		zap.String("documentID", documentID.String()),
	)
	return r.RosterFor(documentID.String())
}

// Leave removes the session and returns the view and document it was
// attached to so the caller can notify remaining participants. The second
// result is false when the connection was not registered.
func (r *SessionRegistry) Leave(connectionID string) (entities.SessionView, string, bool) {
	r.mu.Lock()
	session, ok := r.sessions[connectionID]
	if ok {
		delete(r.sessions, connectionID)
	}
	r.mu.Unlock()

	if !ok {
		return entities.SessionView{}, "", false
	}

	r.logger.Info("Session left",
		zap.String("connectionID", connectionID),
		zap.String("userID", session.UserID),
		zap.String("documentID", session.DocumentID.String()),
	)
	return session.View(), session.DocumentID.String(), true
}

// Get returns the session for a connection
func (r *SessionRegistry) Get(connectionID string) (*entities.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[connectionID]
	return session, ok
}

// UpdateCursor records the latest caret/selection for a connection and
// returns the updated view
func (r *SessionRegistry) UpdateCursor(connectionID string, cursor valueobjects.Cursor) (entities.SessionView, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[connectionID]
	if !ok {
		return entities.SessionView{}, "", false
	}
	session.Cursor = cursor
	session.Touch()
	return session.View(), session.DocumentID.String(), true
}

// UpdateTyping records the advisory typing flag for a connection
func (r *SessionRegistry) UpdateTyping(connectionID string, isTyping bool) (entities.SessionView, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[connectionID]
	if !ok {
		return entities.SessionView{}, "", false
	}
	session.IsTyping = isTyping
	session.Touch()
	return session.View(), session.DocumentID.String(), true
}

// TouchActivity refreshes the staleness clock for a connection, called on
// every operation a session authors
func (r *SessionRegistry) TouchActivity(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[connectionID]; ok {
		session.Touch()
	}
}

// RosterFor projects the live participant list for a document,
// deduplicated by user: a user with two tabs appears once.
func (r *SessionRegistry) RosterFor(documentID string) []entities.SessionView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	roster := make([]entities.SessionView, 0)
	for _, session := range r.sessions {
		if session.DocumentID.String() != documentID {
			continue
		}
		if seen[session.UserID] {
			continue
		}
		seen[session.UserID] = true
		roster = append(roster, session.View())
	}
	return roster
}

// ConnectionsFor lists every connection joined to a document, without user
// deduplication: broadcast fan-out addresses connections, not users
func (r *SessionRegistry) ConnectionsFor(documentID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []string
	for id, session := range r.sessions {
		if session.DocumentID.String() == documentID {
			conns = append(conns, id)
		}
	}
	return conns
}

// HasSessions reports whether any connection is joined to a document
func (r *SessionRegistry) HasSessions(documentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, session := range r.sessions {
		if session.DocumentID.String() == documentID {
			return true
		}
	}
	return false
}

// ReapStale removes sessions idle longer than maxIdle and returns the
// removed views keyed by document so the caller can notify the remaining
// participants
func (r *SessionRegistry) ReapStale(maxIdle time.Duration) map[string][]entities.SessionView {
	now := time.Now()

	r.mu.Lock()
	reaped := make(map[string][]entities.SessionView)
	for id, session := range r.sessions {
		if session.IsStale(maxIdle, now) {
			reaped[session.DocumentID.String()] = append(reaped[session.DocumentID.String()], session.View())
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	if len(reaped) > 0 {
		total := 0
		for _, views := range reaped {
			total += len(views)
		}
		r.logger.Info("Reaped stale sessions", zap.Int("count", total))
	}
	return reaped
}
