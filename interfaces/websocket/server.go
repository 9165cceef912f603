package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"insightdocs-backend/pkg/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect from the editor's origin; CORS policy
		// is enforced at the REST layer and tokens gate the upgrade.
		return true
	},
}

// Server upgrades HTTP requests to collaborative editing connections
type Server struct {
	hub       *Hub
	router    *Router
	validator *auth.Validator
	insecure  bool // development only: identity from query params
	logger    *zap.Logger
}

// NewServer creates a WebSocket server
func NewServer(hub *Hub, router *Router, validator *auth.Validator, insecure bool, logger *zap.Logger) *Server {
	return &Server{
		hub:       hub,
		router:    router,
		validator: validator,
		insecure:  insecure,
		logger:    logger,
	}
}

// ServeHTTP authenticates the request and hands the connection to a client
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.authenticate(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(identity.UserID, identity.DisplayName, s.hub, s.router, conn, s.logger)
	client.Start()
}

// authenticate resolves the caller's identity. Tokens travel in the
// Authorization header or, for browser WebSocket clients that cannot set
// headers, in the token query parameter.
func (s *Server) authenticate(r *http.Request) (auth.Identity, bool) {
	token, ok := auth.FromAuthorizationHeader(r.Header.Get("Authorization"))
	if !ok {
		token = r.URL.Query().Get("token")
	}

	if token != "" {
		identity, err := s.validator.Validate(token)
		if err != nil {
			s.logger.Info("Rejected connection with invalid token", zap.Error(err))
			return auth.Identity{}, false
		}
		return identity, true
	}

	if s.insecure {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			return auth.Identity{}, false
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = userID
		}
		return auth.Identity{UserID: userID, DisplayName: name}, true
	}

	return auth.Identity{}, false
}
