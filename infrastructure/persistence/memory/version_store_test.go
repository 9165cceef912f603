package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightdocs-backend/application/ports"
	"insightdocs-backend/infrastructure/persistence/memory"
)

func record(documentID string, version int, content string) ports.VersionRecord {
	return ports.VersionRecord{
		DocumentID: documentID,
		Version:    version,
		Content:    content,
		SavedBy:    "user-a",
		SaveType:   ports.SaveTypeManual,
		CreatedAt:  time.Now(),
	}
}

func TestLoadLatestReturnsNewestVersion(t *testing.T) {
	store := memory.NewVersionStore()
	ctx := context.Background()

	_, err := store.AppendVersion(ctx, record("doc-1", 1, "one"))
	require.NoError(t, err)
	_, err = store.AppendVersion(ctx, record("doc-1", 2, "two"))
	require.NoError(t, err)

	latest, err := store.LoadLatest(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "two", latest.Content)
	assert.Equal(t, 2, latest.Version)
}

func TestLoadLatestUnknownDocument(t *testing.T) {
	store := memory.NewVersionStore()

	_, err := store.LoadLatest(context.Background(), "ghost")
	assert.ErrorIs(t, err, ports.ErrVersionNotFound)
}

func TestLoadVersionExactMatch(t *testing.T) {
	store := memory.NewVersionStore()
	ctx := context.Background()

	_, err := store.AppendVersion(ctx, record("doc-1", 3, "three"))
	require.NoError(t, err)

	content, err := store.LoadVersion(ctx, "doc-1", 3)
	require.NoError(t, err)
	assert.Equal(t, "three", content)

	_, err = store.LoadVersion(ctx, "doc-1", 4)
	assert.ErrorIs(t, err, ports.ErrVersionNotFound)
}

func TestAppendVersionAssignsID(t *testing.T) {
	store := memory.NewVersionStore()

	saved, err := store.AppendVersion(context.Background(), record("doc-1", 1, "one"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
}

func TestAppendVersionUpsertsSameVersion(t *testing.T) {
	store := memory.NewVersionStore()
	ctx := context.Background()

	_, err := store.AppendVersion(ctx, record("doc-1", 1, "first"))
	require.NoError(t, err)
	_, err = store.AppendVersion(ctx, record("doc-1", 1, "rewritten"))
	require.NoError(t, err)

	content, err := store.LoadVersion(ctx, "doc-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", content)

	records, err := store.ListVersions(ctx, "doc-1", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestListVersionsNewestFirstWithLimit(t *testing.T) {
	store := memory.NewVersionStore()
	ctx := context.Background()

	for v := 1; v <= 5; v++ {
		_, err := store.AppendVersion(ctx, record("doc-1", v, "content"))
		require.NoError(t, err)
	}

	records, err := store.ListVersions(ctx, "doc-1", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 5, records[0].Version)
	assert.Equal(t, 4, records[1].Version)
	assert.Equal(t, 3, records[2].Version)
}

func TestDocumentsAreIsolated(t *testing.T) {
	store := memory.NewVersionStore()
	ctx := context.Background()

	_, err := store.AppendVersion(ctx, record("doc-1", 1, "one"))
	require.NoError(t, err)

	_, err = store.LoadLatest(ctx, "doc-2")
	assert.ErrorIs(t, err, ports.ErrVersionNotFound)
}
