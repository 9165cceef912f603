package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"insightdocs-backend/application/ports"
	"insightdocs-backend/application/services"
	"insightdocs-backend/domain/core/valueobjects"
	pkgerrors "insightdocs-backend/pkg/errors"
)

// Coordinator is the slice of the collaboration service the transport
// needs. Kept as an interface so the codec is testable without sockets.
type Coordinator interface {
	Join(ctx context.Context, connectionID, userID, displayName, documentID string) error
	HandleOperation(ctx context.Context, connectionID string, op valueobjects.Operation) error
	UpdateCursor(connectionID string, cursor valueobjects.Cursor)
	UpdateTyping(connectionID string, isTyping bool)
	Save(ctx context.Context, connectionID, commitMessage string) error
	GetHistory(ctx context.Context, connectionID string) error
	Rollback(ctx context.Context, connectionID string, targetVersion int) error
	SendRoster(connectionID string)
	Disconnect(connectionID string)
}

// Inbound message types
const (
	MessageJoin       = "join"
	MessageOperation  = "operation"
	MessageCursor     = "cursor"
	MessageTyping     = "typing"
	MessageSave       = "save"
	MessageGetHistory = "getHistory"
	MessageRollback   = "rollback"
	MessageRoster     = "roster"
)

// inboundEnvelope is the wire format of every client message
type inboundEnvelope struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data"`
}

type joinMessage struct {
	DocumentID string `json:"documentId" validate:"required"`
}

type operationMessage struct {
	ID        string `json:"id"`
	Kind      string `json:"kind" validate:"required,oneof=insert delete replace"`
	Position  int    `json:"position" validate:"gte=0"`
	Text      string `json:"text"`
	Length    int    `json:"length" validate:"gte=0"`
	Timestamp int64  `json:"timestamp"`
}

type cursorMessage struct {
	Position       int `json:"position" validate:"gte=0"`
	SelectionStart int `json:"selectionStart" validate:"gte=0"`
	SelectionEnd   int `json:"selectionEnd" validate:"gte=0"`
}

type typingMessage struct {
	IsTyping bool `json:"isTyping"`
}

type saveMessage struct {
	CommitMessage string `json:"commitMessage" validate:"max=500"`
}

type rollbackMessage struct {
	Version int `json:"version" validate:"gte=1"`
}

// Router decodes inbound messages and dispatches them to the coordinator
type Router struct {
	coordinator Coordinator
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewRouter creates a message router
func NewRouter(coordinator Coordinator, logger *zap.Logger) *Router {
	return &Router{
		coordinator: coordinator,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Dispatch decodes one inbound frame and invokes the matching coordinator
// operation. Coordinator errors are already reported to the client as
// error events; here they only end the dispatch.
func (r *Router) Dispatch(c *Client, raw []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.logger.Debug("Discarding malformed frame",
			zap.String("connectionID", c.id),
			zap.Error(err),
		)
		return
	}

	ctx := context.Background()

	switch env.Type {
	case MessageJoin:
		var msg joinMessage
		if !r.decode(c, env.Data, &msg) {
			return
		}
		_ = r.coordinator.Join(ctx, c.id, c.userID, c.displayName, msg.DocumentID)

	case MessageOperation:
		var msg operationMessage
		if !r.decode(c, env.Data, &msg) {
			return
		}
		op := valueobjects.NewOperation(valueobjects.OperationKind(msg.Kind), msg.Position, msg.Text, msg.Length, msg.Timestamp)
		if msg.ID != "" {
			op.ID = msg.ID
		}
		if op.Timestamp == 0 {
			op.Timestamp = time.Now().UnixMilli()
		}
		_ = r.coordinator.HandleOperation(ctx, c.id, op)

	case MessageCursor:
		var msg cursorMessage
		if !r.decode(c, env.Data, &msg) {
			return
		}
		r.coordinator.UpdateCursor(c.id, valueobjects.Cursor{
			Position:       msg.Position,
			SelectionStart: msg.SelectionStart,
			SelectionEnd:   msg.SelectionEnd,
		})

	case MessageTyping:
		var msg typingMessage
		if !r.decode(c, env.Data, &msg) {
			return
		}
		r.coordinator.UpdateTyping(c.id, msg.IsTyping)

	case MessageSave:
		var msg saveMessage
		if !r.decode(c, env.Data, &msg) {
			return
		}
		_ = r.coordinator.Save(ctx, c.id, msg.CommitMessage)

	case MessageGetHistory:
		_ = r.coordinator.GetHistory(ctx, c.id)

	case MessageRollback:
		var msg rollbackMessage
		if !r.decode(c, env.Data, &msg) {
			return
		}
		_ = r.coordinator.Rollback(ctx, c.id, msg.Version)

	case MessageRoster:
		r.coordinator.SendRoster(c.id)

	default:
		r.logger.Debug("Unknown message type",
			zap.String("connectionID", c.id),
			zap.String("type", env.Type),
		)
	}
}

// Disconnected tells the coordinator a connection is gone
func (r *Router) Disconnected(c *Client) {
	r.coordinator.Disconnect(c.id)
}

// decode unmarshals and validates one payload, reporting failures to the
// client through the hub
func (r *Router) decode(c *Client, raw json.RawMessage, out interface{}) bool {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		r.sendValidationError(c, "malformed payload")
		return false
	}
	if err := r.validate.Struct(out); err != nil {
		r.sendValidationError(c, err.Error())
		return false
	}
	return true
}

// sendValidationError reports a rejected payload through the hub's queue.
// The send channel is owned by the hub goroutine, which may have already
// closed it; the router must never write to it directly.
func (r *Router) sendValidationError(c *Client, reason string) {
	c.hub.ToConnection(c.id, ports.Event{
		Type: services.EventError,
		Data: services.ErrorPayload{Reason: reason, Type: string(pkgerrors.ErrorTypeValidation)},
	})
}
