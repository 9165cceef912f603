package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"insightdocs-backend/domain/core/valueobjects"
)

// recordingCoordinator captures dispatched calls
type recordingCoordinator struct {
	joins       []string
	operations  []valueobjects.Operation
	cursors     []valueobjects.Cursor
	typing      []bool
	saves       []string
	history     int
	rollbacks   []int
	rosters     int
	disconnects int
}

func (c *recordingCoordinator) Join(_ context.Context, _, _, _, documentID string) error {
	c.joins = append(c.joins, documentID)
	return nil
}

func (c *recordingCoordinator) HandleOperation(_ context.Context, _ string, op valueobjects.Operation) error {
	c.operations = append(c.operations, op)
	return nil
}

func (c *recordingCoordinator) UpdateCursor(_ string, cursor valueobjects.Cursor) {
	c.cursors = append(c.cursors, cursor)
}

func (c *recordingCoordinator) UpdateTyping(_ string, isTyping bool) {
	c.typing = append(c.typing, isTyping)
}

func (c *recordingCoordinator) Save(_ context.Context, _, commitMessage string) error {
	c.saves = append(c.saves, commitMessage)
	return nil
}

func (c *recordingCoordinator) GetHistory(_ context.Context, _ string) error {
	c.history++
	return nil
}

func (c *recordingCoordinator) Rollback(_ context.Context, _ string, targetVersion int) error {
	c.rollbacks = append(c.rollbacks, targetVersion)
	return nil
}

func (c *recordingCoordinator) SendRoster(_ string) { c.rosters++ }

func (c *recordingCoordinator) Disconnect(_ string) { c.disconnects++ }

func newTestClient(t *testing.T, coordinator Coordinator) (*Client, *Router) {
	t.Helper()
	router := NewRouter(coordinator, zap.NewNop())
	hub := NewHub(nil, zap.NewNop())
	client := NewClient("user-a", "Alice", hub, router, nil, zap.NewNop())
	return client, router
}

func TestDispatchJoin(t *testing.T) {
	coordinator := &recordingCoordinator{}
	client, router := newTestClient(t, coordinator)

	router.Dispatch(client, []byte(`{"type":"join","data":{"documentId":"doc-1"}}`))

	require.Len(t, coordinator.joins, 1)
	assert.Equal(t, "doc-1", coordinator.joins[0])
}

func TestDispatchJoinRequiresDocumentID(t *testing.T) {
	coordinator := &recordingCoordinator{}
	client, router := newTestClient(t, coordinator)

	router.Dispatch(client, []byte(`{"type":"join","data":{}}`))

	assert.Empty(t, coordinator.joins)

	// The client was told why, through the hub's queue.
	require.Len(t, client.hub.broadcast, 1)
	message := <-client.hub.broadcast
	assert.Equal(t, []string{client.id}, message.connectionIDs)
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(message.payload, &env))
	assert.Equal(t, "error", env["type"])
}

func TestValidationErrorAfterHubDroppedClient(t *testing.T) {
	coordinator := &recordingCoordinator{}
	client, router := newTestClient(t, coordinator)

	// The hub owns the send channel and closes it when it drops a slow
	// client. A frame still in flight through the read pump must not
	// bring the process down.
	close(client.send)

	require.NotPanics(t, func() {
		router.Dispatch(client, []byte(`{"type":"join","data":{}}`))
	})
	assert.Empty(t, coordinator.joins)
}

func TestDispatchOperationBuildsDomainOperation(t *testing.T) {
	coordinator := &recordingCoordinator{}
	client, router := newTestClient(t, coordinator)

	router.Dispatch(client, []byte(`{"type":"operation","data":{"id":"op-1","kind":"insert","position":3,"text":"hi","timestamp":42}}`))

	require.Len(t, coordinator.operations, 1)
	op := coordinator.operations[0]
	assert.Equal(t, "op-1", op.ID)
	assert.Equal(t, valueobjects.OpInsert, op.Kind)
	assert.Equal(t, 3, op.Position)
	assert.Equal(t, "hi", op.Text)
	assert.Equal(t, int64(42), op.Timestamp)
}

func TestDispatchOperationAssignsIDAndTimestamp(t *testing.T) {
	coordinator := &recordingCoordinator{}
	client, router := newTestClient(t, coordinator)

	router.Dispatch(client, []byte(`{"type":"operation","data":{"kind":"delete","position":0,"length":2}}`))

	require.Len(t, coordinator.operations, 1)
	op := coordinator.operations[0]
	assert.NotEmpty(t, op.ID)
	assert.NotZero(t, op.Timestamp)
}

func TestDispatchOperationRejectsUnknownKind(t *testing.T) {
	coordinator := &recordingCoordinator{}
	client, router := newTestClient(t, coordinator)

	router.Dispatch(client, []byte(`{"type":"operation","data":{"kind":"swap","position":0}}`))

	assert.Empty(t, coordinator.operations)
}

func TestDispatchCursorAndTyping(t *testing.T) {
	coordinator := &recordingCoordinator{}
	client, router := newTestClient(t, coordinator)

	router.Dispatch(client, []byte(`{"type":"cursor","data":{"position":5,"selectionStart":2,"selectionEnd":5}}`))
	router.Dispatch(client, []byte(`{"type":"typing","data":{"isTyping":true}}`))

	require.Len(t, coordinator.cursors, 1)
	assert.Equal(t, valueobjects.Cursor{Position: 5, SelectionStart: 2, SelectionEnd: 5}, coordinator.cursors[0])
	require.Len(t, coordinator.typing, 1)
	assert.True(t, coordinator.typing[0])
}

func TestDispatchSaveHistoryRollbackRoster(t *testing.T) {
	coordinator := &recordingCoordinator{}
	client, router := newTestClient(t, coordinator)

	router.Dispatch(client, []byte(`{"type":"save","data":{"commitMessage":"draft"}}`))
	router.Dispatch(client, []byte(`{"type":"getHistory"}`))
	router.Dispatch(client, []byte(`{"type":"rollback","data":{"version":3}}`))
	router.Dispatch(client, []byte(`{"type":"roster"}`))

	assert.Equal(t, []string{"draft"}, coordinator.saves)
	assert.Equal(t, 1, coordinator.history)
	assert.Equal(t, []int{3}, coordinator.rollbacks)
	assert.Equal(t, 1, coordinator.rosters)
}

func TestDispatchRollbackRequiresPositiveVersion(t *testing.T) {
	coordinator := &recordingCoordinator{}
	client, router := newTestClient(t, coordinator)

	router.Dispatch(client, []byte(`{"type":"rollback","data":{"version":0}}`))

	assert.Empty(t, coordinator.rollbacks)
}

func TestDispatchIgnoresMalformedAndUnknownFrames(t *testing.T) {
	coordinator := &recordingCoordinator{}
	client, router := newTestClient(t, coordinator)

	router.Dispatch(client, []byte(`not json`))
	router.Dispatch(client, []byte(`{"type":"teleport","data":{}}`))

	assert.Empty(t, coordinator.joins)
	assert.Empty(t, coordinator.operations)
}

func TestDisconnectedForwardsToCoordinator(t *testing.T) {
	coordinator := &recordingCoordinator{}
	client, router := newTestClient(t, coordinator)

	router.Disconnected(client)

	assert.Equal(t, 1, coordinator.disconnects)
}
