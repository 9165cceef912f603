//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"insightdocs-backend/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideVersionStore,
	ProvideContentSource,
	ProvideAccessChecker,
	ProvideAuthValidator,
	ProvideDocumentManager,
	ProvideSessionRegistry,
	ProvideHub,
	ProvideCollaborationService,
	ProvideMessageRouter,
	ProvideWebSocketServer,
	ProvideDocumentHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
