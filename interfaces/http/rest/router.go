package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"insightdocs-backend/infrastructure/config"
	"insightdocs-backend/interfaces/http/rest/handlers"
	"insightdocs-backend/interfaces/http/rest/middleware"
	"insightdocs-backend/pkg/auth"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg             *config.Config
	documentHandler *handlers.DocumentHandler
	wsHandler       http.Handler
	validator       *auth.Validator
	logger          *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	documentHandler *handlers.DocumentHandler,
	wsHandler http.Handler,
	validator *auth.Validator,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:             cfg,
		documentHandler: documentHandler,
		wsHandler:       wsHandler,
		validator:       validator,
		logger:          logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.insightdocs.app"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// Collaborative editing transport
	router.Handle("/ws", rt.wsHandler)

	// Read-only API; edits travel over the WebSocket
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.cfg.IsDevelopment(), rt.logger))

		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Get("/versions", rt.documentHandler.GetHistory)
			r.Get("/snapshot", rt.documentHandler.GetSnapshot)
			r.Get("/roster", rt.documentHandler.GetRoster)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
