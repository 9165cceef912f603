// Package content resolves the initial text of documents that have no
// persisted version yet. Sources are tried in configuration order; the
// first one producing text wins, and the winner's name travels with the
// result so the load path can report where content came from.
package content

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"insightdocs-backend/application/ports"
)

// NamedSource is one step in a resolution chain
type NamedSource struct {
	Name   string
	Source ports.ContentSource
}

// Chain tries each source in order and returns the first non-empty result.
// A source error is recorded and the chain moves on; the chain itself only
// fails when every source failed.
type Chain struct {
	sources []NamedSource
	logger  *zap.Logger
}

// NewChain builds a resolution chain
func NewChain(logger *zap.Logger, sources ...NamedSource) *Chain {
	return &Chain{sources: sources, logger: logger}
}

// Resolve walks the chain and reports which source produced the text
func (c *Chain) Resolve(ctx context.Context, documentID string) (ports.ResolvedContent, error) {
	var lastErr error
	failures := 0

	for _, step := range c.sources {
		resolved, err := step.Source.Resolve(ctx, documentID)
		if err != nil {
			failures++
			lastErr = err
			c.logger.Warn("Content source failed, trying next",
				zap.String("documentID", documentID),
				zap.String("source", step.Name),
				zap.Error(err),
			)
			continue
		}
		if resolved.Text != "" {
			return ports.ResolvedContent{Text: resolved.Text, Source: step.Name}, nil
		}
	}

	if failures == len(c.sources) && failures > 0 {
		return ports.ResolvedContent{}, fmt.Errorf("all %d content sources failed: %w", failures, lastErr)
	}

	// Nothing produced text; the caller substitutes the placeholder.
	return ports.ResolvedContent{Text: "", Source: "none"}, nil
}
