package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"insightdocs-backend/application/ports"
)

// DocumentDirectory resolves which connections are joined to a document.
// The session registry implements it; the hub stays ignorant of session
// semantics and only routes bytes.
type DocumentDirectory interface {
	ConnectionsFor(documentID string) []string
}

// envelope is the outbound wire format
type envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// outbound is one marshaled message with its target connections
type outbound struct {
	connectionIDs []string
	payload       []byte
	eventType     string
}

// Hub maintains active WebSocket connections and routes events to them.
// It implements ports.Broadcaster for the collaboration coordinator.
type Hub struct {
	connections map[string]*Client // connectionID -> client
	mu          sync.RWMutex

	directory DocumentDirectory

	register   chan *Client
	unregister chan *Client
	broadcast  chan *outbound

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(directory DocumentDirectory, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		connections: make(map[string]*Client),
		directory:   directory,
		register:    make(chan *Client, 100),
		unregister:  make(chan *Client, 100),
		broadcast:   make(chan *outbound, 1000),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllConnections()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.logger.Info("Stopping WebSocket hub")
	h.cancel()
}

// ToConnection delivers an event to a single connection
func (h *Hub) ToConnection(connectionID string, event ports.Event) {
	h.enqueue([]string{connectionID}, event)
}

// ToDocument delivers an event to every session joined to a document,
// except excludeConnectionID when non-empty
func (h *Hub) ToDocument(documentID string, event ports.Event, excludeConnectionID string) {
	all := h.directory.ConnectionsFor(documentID)
	targets := make([]string, 0, len(all))
	for _, id := range all {
		if id != excludeConnectionID {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return
	}
	h.enqueue(targets, event)
}

func (h *Hub) enqueue(connectionIDs []string, event ports.Event) {
	payload, err := json.Marshal(envelope{
		Type:      event.Type,
		Data:      event.Data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		h.logger.Error("Failed to marshal outbound event",
			zap.Error(err),
			zap.String("eventType", event.Type),
		)
		return
	}

	message := &outbound{connectionIDs: connectionIDs, payload: payload, eventType: event.Type}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Broadcast channel full, message dropped",
			zap.String("eventType", event.Type),
			zap.Int("targets", len(connectionIDs)),
		)
	}
}

// registerClient adds a new client connection
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[client.id] = client

	h.logger.Info("Client registered",
		zap.String("userID", client.userID),
		zap.String("connectionID", client.id),
		zap.Int("activeConnections", len(h.connections)),
	)
}

// unregisterClient removes a client connection
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.connections[client.id]; ok && existing == client {
		delete(h.connections, client.id)
		close(client.send)

		h.logger.Info("Client unregistered",
			zap.String("userID", client.userID),
			zap.String("connectionID", client.id),
			zap.Int("activeConnections", len(h.connections)),
		)
	}
}

// deliver ships one marshaled message to its targets
func (h *Hub) deliver(message *outbound) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(message.connectionIDs))
	for _, id := range message.connectionIDs {
		if client, ok := h.connections[id]; ok {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- message.payload:
		default:
			// The send buffer is full; the client is too slow to keep up
			// with the document. Drop the connection and let it rejoin.
			h.logger.Warn("Closing slow client",
				zap.String("userID", client.userID),
				zap.String("connectionID", client.id),
				zap.String("eventType", message.eventType),
			)
			go func(c *Client) {
				h.unregister <- c
				c.conn.Close()
			}(client)
		}
	}
}

// ConnectionCount returns the number of active connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// closeAllConnections closes all active connections during shutdown
func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.connections {
		close(client.send)
		client.conn.Close()
		delete(h.connections, id)
	}

	h.logger.Info("All connections closed")
}
