package di

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"insightdocs-backend/application/ports"
	"insightdocs-backend/application/services"
	"insightdocs-backend/infrastructure/acl"
	"insightdocs-backend/infrastructure/config"
	"insightdocs-backend/infrastructure/content"
	dynamostore "insightdocs-backend/infrastructure/persistence/dynamodb"
	memorystore "insightdocs-backend/infrastructure/persistence/memory"
	pgstore "insightdocs-backend/infrastructure/persistence/postgres"
	"insightdocs-backend/interfaces/http/rest"
	"insightdocs-backend/interfaces/http/rest/handlers"
	"insightdocs-backend/interfaces/websocket"
	"insightdocs-backend/pkg/auth"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	VersionStore  ports.VersionStore
	ContentSource ports.ContentSource
	AccessChecker ports.AccessChecker
	AuthValidator *auth.Validator
	Documents     *services.DocumentManager
	Sessions      *services.SessionRegistry
	Collaboration *services.CollaborationService
	Hub           *websocket.Hub
	MessageRouter *websocket.Router
	WSServer      *websocket.Server
	Handler       *handlers.DocumentHandler
	Router        *rest.Router
}

// Close releases infrastructure resources
func (c *Container) Close() {
	if store, ok := c.VersionStore.(*pgstore.VersionStore); ok {
		store.Close()
	}
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideVersionStore selects the persistence driver from configuration
func ProvideVersionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.VersionStore, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		logger.Warn("Using in-memory version store, history is lost on restart")
		return memorystore.NewVersionStore(), nil

	case config.StoragePostgres:
		return pgstore.NewVersionStore(ctx, cfg.DatabaseURL, logger)

	case config.StorageDynamoDB:
		client, err := dynamostore.NewClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return dynamostore.NewDynamoDBVersionStore(client, cfg.DynamoDBTable), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// ProvideContentSource builds the initial-content resolution chain
func ProvideContentSource(cfg *config.Config, logger *zap.Logger) ports.ContentSource {
	return content.NewChain(logger,
		content.NamedSource{Name: "file", Source: content.NewFileSource(cfg.ContentDir)},
	)
}

// ProvideAccessChecker creates the access checker. A registry seeded from
// ACCESS_FILE when one is configured (mandatory in production); otherwise
// development runs open.
func ProvideAccessChecker(cfg *config.Config) (ports.AccessChecker, error) {
	if cfg.AccessFile != "" {
		return acl.LoadRegistry(cfg.AccessFile)
	}
	if cfg.IsDevelopment() {
		return acl.AllowAll{}, nil
	}
	return nil, fmt.Errorf("ACCESS_FILE is required outside development")
}

// ProvideAuthValidator creates the JWT validator
func ProvideAuthValidator(cfg *config.Config) *auth.Validator {
	return auth.NewValidator(cfg.JWTSecret, cfg.JWTIssuer)
}

// ProvideDocumentManager creates the document manager
func ProvideDocumentManager(store ports.VersionStore, source ports.ContentSource, cfg *config.Config, logger *zap.Logger) *services.DocumentManager {
	manager := services.NewDocumentManager(store, source, logger)
	manager.SetCheckpointThreshold(cfg.CheckpointThreshold)
	return manager
}

// ProvideSessionRegistry creates the session registry
func ProvideSessionRegistry(logger *zap.Logger) *services.SessionRegistry {
	return services.NewSessionRegistry(logger)
}

// ProvideHub creates the WebSocket hub
func ProvideHub(sessions *services.SessionRegistry, logger *zap.Logger) *websocket.Hub {
	return websocket.NewHub(sessions, logger)
}

// ProvideCollaborationService creates the collaboration coordinator
func ProvideCollaborationService(
	documents *services.DocumentManager,
	sessions *services.SessionRegistry,
	access ports.AccessChecker,
	hub *websocket.Hub,
	logger *zap.Logger,
) *services.CollaborationService {
	return services.NewCollaborationService(documents, sessions, access, hub, logger)
}

// ProvideMessageRouter creates the inbound message router
func ProvideMessageRouter(coordinator *services.CollaborationService, logger *zap.Logger) *websocket.Router {
	return websocket.NewRouter(coordinator, logger)
}

// ProvideWebSocketServer creates the WebSocket upgrade handler
func ProvideWebSocketServer(hub *websocket.Hub, router *websocket.Router, validator *auth.Validator, cfg *config.Config, logger *zap.Logger) *websocket.Server {
	return websocket.NewServer(hub, router, validator, cfg.IsDevelopment(), logger)
}

// ProvideDocumentHandler creates the REST document handler
func ProvideDocumentHandler(
	documents *services.DocumentManager,
	sessions *services.SessionRegistry,
	access ports.AccessChecker,
	logger *zap.Logger,
) *handlers.DocumentHandler {
	return handlers.NewDocumentHandler(documents, sessions, access, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	documentHandler *handlers.DocumentHandler,
	wsServer *websocket.Server,
	validator *auth.Validator,
	logger *zap.Logger,
) *rest.Router {
	var wsHandler http.Handler = wsServer
	return rest.NewRouter(cfg, documentHandler, wsHandler, validator, logger)
}
