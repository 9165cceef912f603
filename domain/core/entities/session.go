package entities

import (
	"time"

	"insightdocs-backend/domain/core/valueobjects"
)

// Session is an ephemeral presence record tying one live connection to a
// (user, document) pair. A user editing two documents holds two sessions.
// Sessions own nothing persistent.
type Session struct {
	ConnectionID string
	UserID       string
	DisplayName  string
	DocumentID   valueobjects.DocumentID
	Cursor       valueobjects.Cursor
	IsTyping     bool
	Color        string
	LastActivity time.Time
}

// NewSession creates a session for a freshly joined connection
func NewSession(connectionID, userID, displayName string, documentID valueobjects.DocumentID, color string) *Session {
	return &Session{
		ConnectionID: connectionID,
		UserID:       userID,
		DisplayName:  displayName,
		DocumentID:   documentID,
		Color:        color,
		LastActivity: time.Now(),
	}
}

// Touch refreshes the activity timestamp used by the staleness sweep
func (s *Session) Touch() {
	s.LastActivity = time.Now()
}

// IsStale reports whether the session has been idle longer than maxIdle
func (s *Session) IsStale(maxIdle time.Duration, now time.Time) bool {
	return now.Sub(s.LastActivity) > maxIdle
}

// SessionView is the roster projection sent to clients
type SessionView struct {
	UserID      string              `json:"userId"`
	DisplayName string              `json:"displayName"`
	Color       string              `json:"color"`
	Cursor      valueobjects.Cursor `json:"cursor"`
	IsTyping    bool                `json:"isTyping"`
}

// View projects the session into its client-facing shape
func (s *Session) View() SessionView {
	return SessionView{
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
		Color:       s.Color,
		Cursor:      s.Cursor,
		IsTyping:    s.IsTyping,
	}
}
