package content_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"insightdocs-backend/application/ports"
	"insightdocs-backend/infrastructure/content"
)

type failingSource struct{}

func (failingSource) Resolve(context.Context, string) (ports.ResolvedContent, error) {
	return ports.ResolvedContent{}, errors.New("boom")
}

func TestChainReportsWinningSource(t *testing.T) {
	chain := content.NewChain(zap.NewNop(),
		content.NamedSource{Name: "empty", Source: content.StaticSource{}},
		content.NamedSource{Name: "seed", Source: content.StaticSource{Text: "hello"}},
	)

	resolved, err := chain.Resolve(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", resolved.Text)
	assert.Equal(t, "seed", resolved.Source)
}

func TestChainFirstNonEmptyWins(t *testing.T) {
	chain := content.NewChain(zap.NewNop(),
		content.NamedSource{Name: "a", Source: content.StaticSource{Text: "first"}},
		content.NamedSource{Name: "b", Source: content.StaticSource{Text: "second"}},
	)

	resolved, err := chain.Resolve(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "first", resolved.Text)
	assert.Equal(t, "a", resolved.Source)
}

func TestChainSkipsFailingSource(t *testing.T) {
	chain := content.NewChain(zap.NewNop(),
		content.NamedSource{Name: "broken", Source: failingSource{}},
		content.NamedSource{Name: "seed", Source: content.StaticSource{Text: "fallback"}},
	)

	resolved, err := chain.Resolve(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "fallback", resolved.Text)
	assert.Equal(t, "seed", resolved.Source)
}

func TestChainFailsWhenEverySourceFails(t *testing.T) {
	chain := content.NewChain(zap.NewNop(),
		content.NamedSource{Name: "broken", Source: failingSource{}},
	)

	_, err := chain.Resolve(context.Background(), "doc-1")
	assert.Error(t, err)
}

func TestChainEmptyResultIsNotAnError(t *testing.T) {
	chain := content.NewChain(zap.NewNop(),
		content.NamedSource{Name: "empty", Source: content.StaticSource{}},
	)

	resolved, err := chain.Resolve(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Empty(t, resolved.Text)
	assert.Equal(t, "none", resolved.Source)
}

func TestFileSourceReadsDocumentFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc-1.txt"), []byte("on disk\n"), 0o644))

	source := content.NewFileSource(dir)

	resolved, err := source.Resolve(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "on disk", resolved.Text)

	resolved, err = source.Resolve(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, resolved.Text)
}

func TestFileSourceConfinesDocumentIDToDirectory(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	nested := filepath.Join(dir, "docs")
	require.NoError(t, os.Mkdir(nested, 0o755))

	source := content.NewFileSource(nested)
	resolved, err := source.Resolve(context.Background(), "../secret")
	require.NoError(t, err)
	assert.Empty(t, resolved.Text, "path traversal must not escape the content directory")
}
