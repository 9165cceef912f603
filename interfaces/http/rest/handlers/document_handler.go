package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"insightdocs-backend/application/ports"
	"insightdocs-backend/application/services"
	"insightdocs-backend/interfaces/http/rest/middleware"
	pkgerrors "insightdocs-backend/pkg/errors"
)

// DocumentHandler serves the read-only HTTP surface of the collaboration
// core: version history, a live snapshot and the active roster. All
// mutation flows through the WebSocket transport.
type DocumentHandler struct {
	documents *services.DocumentManager
	sessions  *services.SessionRegistry
	access    ports.AccessChecker
	errors    *pkgerrors.ErrorHandler
	logger    *zap.Logger
}

// NewDocumentHandler creates a document handler
func NewDocumentHandler(
	documents *services.DocumentManager,
	sessions *services.SessionRegistry,
	access ports.AccessChecker,
	logger *zap.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		sessions:  sessions,
		access:    access,
		errors:    pkgerrors.NewErrorHandler(logger),
		logger:    logger,
	}
}

// GetHistory returns the persisted version history, newest first
func (h *DocumentHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	documentID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("limit must be between 1 and 200"))
			return
		}
		limit = parsed
	}

	records, err := h.documents.History(r.Context(), documentID, limit)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if records == nil {
		records = []ports.VersionRecord{}
	}
	h.respond(w, http.StatusOK, map[string]interface{}{
		"documentId": documentID,
		"versions":   records,
	})
}

// GetSnapshot returns the live in-memory state of a loaded document
func (h *DocumentHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	documentID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	snapshot, err := h.documents.Snapshot(documentID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]interface{}{
		"documentId":   documentID,
		"content":      snapshot.Content,
		"version":      snapshot.Version,
		"pendingCount": snapshot.PendingCount,
		"lastSavedAt":  snapshot.LastSavedAt,
	})
}

// GetRoster returns the deduplicated list of active participants
func (h *DocumentHandler) GetRoster(w http.ResponseWriter, r *http.Request) {
	documentID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	h.respond(w, http.StatusOK, map[string]interface{}{
		"documentId":   documentID,
		"participants": h.sessions.RosterFor(documentID),
	})
}

// authorize extracts the document ID and runs the same access check the
// join path uses. Denial reads as not found so existence leaks nothing.
func (h *DocumentHandler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("document ID is required"))
		return "", false
	}

	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewAccessDeniedError(""))
		return "", false
	}

	decision, err := h.access.CanAccess(r.Context(), identity.UserID, documentID)
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.Wrap(err, "access check failed"))
		return "", false
	}
	if !decision.Allowed {
		h.errors.Handle(w, r, pkgerrors.NewAccessDeniedError(""))
		return "", false
	}
	return documentID, true
}

func (h *DocumentHandler) respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
