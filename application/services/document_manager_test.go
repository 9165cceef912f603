package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"insightdocs-backend/application/ports"
	"insightdocs-backend/application/services"
	"insightdocs-backend/domain/core/valueobjects"
	pkgerrors "insightdocs-backend/pkg/errors"
)

// fakeVersionStore is an in-memory VersionStore with failure injection
type fakeVersionStore struct {
	mu         sync.Mutex
	records    map[string][]ports.VersionRecord
	failAppend bool
	failLoad   bool
}

func newFakeVersionStore() *fakeVersionStore {
	return &fakeVersionStore{records: make(map[string][]ports.VersionRecord)}
}

func (f *fakeVersionStore) LoadLatest(_ context.Context, documentID string) (ports.LatestContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoad {
		return ports.LatestContent{}, errors.New("store down")
	}
	records := f.records[documentID]
	if len(records) == 0 {
		return ports.LatestContent{}, ports.ErrVersionNotFound
	}
	last := records[len(records)-1]
	return ports.LatestContent{Content: last.Content, Version: last.Version}, nil
}

func (f *fakeVersionStore) LoadVersion(_ context.Context, documentID string, version int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records[documentID] {
		if r.Version == version {
			return r.Content, nil
		}
	}
	return "", ports.ErrVersionNotFound
}

func (f *fakeVersionStore) AppendVersion(_ context.Context, record ports.VersionRecord) (ports.VersionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend {
		return ports.VersionRecord{}, errors.New("store down")
	}
	f.records[record.DocumentID] = append(f.records[record.DocumentID], record)
	return record, nil
}

func (f *fakeVersionStore) ListVersions(_ context.Context, documentID string, limit int) ([]ports.VersionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := append([]ports.VersionRecord(nil), f.records[documentID]...)
	sort.Slice(records, func(i, j int) bool { return records[i].Version > records[j].Version })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (f *fakeVersionStore) count(documentID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records[documentID])
}

// fakeContentSource resolves fixed text and counts invocations
type fakeContentSource struct {
	mu    sync.Mutex
	text  string
	fail  bool
	calls int
}

func (f *fakeContentSource) Resolve(_ context.Context, _ string) (ports.ResolvedContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return ports.ResolvedContent{}, errors.New("extraction failed")
	}
	return ports.ResolvedContent{Text: f.text, Source: "fake"}, nil
}

func (f *fakeContentSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newManager(t *testing.T, store *fakeVersionStore, content *fakeContentSource) *services.DocumentManager {
	t.Helper()
	return services.NewDocumentManager(store, content, zap.NewNop())
}

func insert(pos int, text string, ts int64) valueobjects.Operation {
	return valueobjects.NewOperation(valueobjects.OpInsert, pos, text, 0, ts)
}

func del(pos, length int, ts int64) valueobjects.Operation {
	return valueobjects.NewOperation(valueobjects.OpDelete, pos, "", length, ts)
}

func TestLoadInitializesFromContentSource(t *testing.T) {
	store := newFakeVersionStore()
	content := &fakeContentSource{text: "hello"}
	m := newManager(t, store, content)

	snap, err := m.Load(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", snap.Content)
	assert.Equal(t, 1, snap.Version)
}

func TestLoadUsesPlaceholderForEmptyExtraction(t *testing.T) {
	m := newManager(t, newFakeVersionStore(), &fakeContentSource{text: ""})

	snap, err := m.Load(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, services.PlaceholderContent, snap.Content)
}

func TestLoadResumesFromVersionStore(t *testing.T) {
	store := newFakeVersionStore()
	store.records["doc-1"] = []ports.VersionRecord{
		{DocumentID: "doc-1", Version: 4, Content: "persisted"},
	}
	m := newManager(t, store, &fakeContentSource{text: "unused"})

	snap, err := m.Load(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "persisted", snap.Content)
	assert.Equal(t, 5, snap.Version)
}

func TestLoadCoalescesConcurrentColdStarts(t *testing.T) {
	content := &fakeContentSource{text: "shared"}
	m := newManager(t, newFakeVersionStore(), content)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := m.Load(context.Background(), "doc-1")
			assert.NoError(t, err)
			assert.Equal(t, "shared", snap.Content)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, content.callCount(), "cold load must not duplicate extraction work")
}

func TestLoadFailureIsNotCached(t *testing.T) {
	content := &fakeContentSource{fail: true}
	m := newManager(t, newFakeVersionStore(), content)

	_, err := m.Load(context.Background(), "doc-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsLoadFailure(err))

	// A later attempt retries instead of serving the cached failure.
	content.mu.Lock()
	content.fail = false
	content.text = "recovered"
	content.mu.Unlock()

	snap, err := m.Load(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "recovered", snap.Content)
}

func TestApplyOperationIncrementsVersionByOne(t *testing.T) {
	m := newManager(t, newFakeVersionStore(), &fakeContentSource{text: "abc"})
	ctx := context.Background()
	_, err := m.Load(ctx, "doc-1")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		result, err := m.ApplyOperation(ctx, "doc-1", insert(0, "x", int64(i)), "user-1")
		require.NoError(t, err)
		assert.Equal(t, 1+i, result.Version)
	}
}

func TestApplyOperationRejectsOutOfRangeAfterTransform(t *testing.T) {
	m := newManager(t, newFakeVersionStore(), &fakeContentSource{text: "abc"})
	ctx := context.Background()
	_, err := m.Load(ctx, "doc-1")
	require.NoError(t, err)

	before, err := m.Snapshot("doc-1")
	require.NoError(t, err)

	_, err = m.ApplyOperation(ctx, "doc-1", del(1, 10, 1), "user-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalidOperation(err))

	after, err := m.Snapshot("doc-1")
	require.NoError(t, err)
	assert.Equal(t, before.Content, after.Content, "failed operation must not mutate content")
	assert.Equal(t, before.Version, after.Version, "version must not advance on failure")
}

func TestApplyOperationUnknownDocument(t *testing.T) {
	m := newManager(t, newFakeVersionStore(), &fakeContentSource{text: "abc"})

	_, err := m.ApplyOperation(context.Background(), "nope", insert(0, "x", 1), "user-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnknownDocument(err))
}

func TestApplyOperationTransformsAgainstPendingLog(t *testing.T) {
	m := newManager(t, newFakeVersionStore(), &fakeContentSource{text: "hello"})
	ctx := context.Background()
	_, err := m.Load(ctx, "doc-1")
	require.NoError(t, err)

	// A prepend lands first; a concurrent append authored against the same
	// base must shift past it.
	_, err = m.ApplyOperation(ctx, "doc-1", insert(0, "Y", 200), "user-y")
	require.NoError(t, err)

	result, err := m.ApplyOperation(ctx, "doc-1", insert(5, "X", 100), "user-x")
	require.NoError(t, err)
	assert.Equal(t, "YhelloX", result.Content)
	assert.Equal(t, 6, result.Operation.Position)
}

func TestAutoCheckpointAtThreshold(t *testing.T) {
	store := newFakeVersionStore()
	m := newManager(t, store, &fakeContentSource{text: "abc"})
	ctx := context.Background()
	_, err := m.Load(ctx, "doc-1")
	require.NoError(t, err)

	for i := 1; i <= services.DefaultCheckpointThreshold; i++ {
		_, err := m.ApplyOperation(ctx, "doc-1", insert(0, "x", int64(i)), "user-1")
		require.NoError(t, err)
	}

	snap, err := m.Snapshot("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.PendingCount, "threshold must trigger an automatic checkpoint")
	assert.Equal(t, 1, store.count("doc-1"))
}

func TestManualCheckpointClearsPendingAndFailureKeepsIt(t *testing.T) {
	store := newFakeVersionStore()
	m := newManager(t, store, &fakeContentSource{text: "abc"})
	ctx := context.Background()
	_, err := m.Load(ctx, "doc-1")
	require.NoError(t, err)

	_, err = m.ApplyOperation(ctx, "doc-1", insert(0, "x", 1), "user-1")
	require.NoError(t, err)

	store.mu.Lock()
	store.failAppend = true
	store.mu.Unlock()

	_, err = m.Checkpoint(ctx, "doc-1", "user-1", ports.SaveTypeManual, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPersistenceFailure(err))

	snap, err := m.Snapshot("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.PendingCount, "failed checkpoint must leave the pending log intact")

	store.mu.Lock()
	store.failAppend = false
	store.mu.Unlock()

	record, err := m.Checkpoint(ctx, "doc-1", "user-1", ports.SaveTypeManual, "fixed it")
	require.NoError(t, err)
	assert.Equal(t, "fixed it", record.CommitMessage)

	snap, err = m.Snapshot("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.PendingCount)
}

func TestCheckpointWithNothingPendingIsNoOp(t *testing.T) {
	store := newFakeVersionStore()
	m := newManager(t, store, &fakeContentSource{text: "abc"})
	ctx := context.Background()
	_, err := m.Load(ctx, "doc-1")
	require.NoError(t, err)

	record, err := m.Checkpoint(ctx, "doc-1", "user-1", ports.SaveTypeManual, "")
	require.NoError(t, err)
	assert.Equal(t, 1, record.Version)
	assert.Equal(t, 0, store.count("doc-1"), "no-op checkpoint must not write a version")
}

func TestRollbackReplacesContentAndClearsPending(t *testing.T) {
	store := newFakeVersionStore()
	store.records["doc-1"] = []ports.VersionRecord{
		{DocumentID: "doc-1", Version: 3, Content: "version three"},
		{DocumentID: "doc-1", Version: 6, Content: "version six"},
	}
	m := newManager(t, store, &fakeContentSource{})
	ctx := context.Background()

	snap, err := m.Load(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 7, snap.Version)

	_, err = m.ApplyOperation(ctx, "doc-1", insert(0, "x", 1), "user-1")
	require.NoError(t, err)

	rolled, err := m.Rollback(ctx, "doc-1", 3)
	require.NoError(t, err)
	assert.Equal(t, "version three", rolled.Content)
	assert.Equal(t, 4, rolled.Version)
	assert.Equal(t, 0, rolled.PendingCount)
}

func TestRollbackToMissingVersion(t *testing.T) {
	m := newManager(t, newFakeVersionStore(), &fakeContentSource{text: "abc"})
	ctx := context.Background()
	_, err := m.Load(ctx, "doc-1")
	require.NoError(t, err)

	_, err = m.Rollback(ctx, "doc-1", 42)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestEvictDropsStateAndReloads(t *testing.T) {
	content := &fakeContentSource{text: "abc"}
	m := newManager(t, newFakeVersionStore(), content)
	ctx := context.Background()

	_, err := m.Load(ctx, "doc-1")
	require.NoError(t, err)
	m.Evict("doc-1")

	_, err = m.Snapshot("doc-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnknownDocument(err))

	_, err = m.Load(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, content.callCount())
}
