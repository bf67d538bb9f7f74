package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostbeacon/dnssync/pkg/types"
)

func newTestStore(t *testing.T, retention time.Duration) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), retention)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testOp(id, hostname string, state types.OpState, age time.Duration) *types.SyncOperation {
	now := time.Now().Add(-age)
	return &types.SyncOperation{
		ID:        id,
		Hostname:  hostname,
		Type:      types.OpTypeUpsert,
		Zone:      "managed.example.com.",
		Name:      hostname + ".managed.example.com.",
		RecordTyp: types.RecordTypeA,
		TTL:       300,
		Content:   "192.168.1.10",
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestSaveAndGetOperation tests the basic round trip
func TestSaveAndGetOperation(t *testing.T) {
	store := newTestStore(t, time.Hour)

	op := testOp("op-1", "web-01", types.OpStateCommitted, 0)
	require.NoError(t, store.SaveOperation(op))

	got, err := store.GetOperation("op-1")
	require.NoError(t, err)
	assert.Equal(t, "web-01", got.Hostname)
	assert.Equal(t, types.OpStateCommitted, got.State)
}

// TestGetOperationNotFound tests the missing-ID error path
func TestGetOperationNotFound(t *testing.T) {
	store := newTestStore(t, time.Hour)

	_, err := store.GetOperation("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

// TestSaveOperationOverwrites tests that saving the same ID replaces the
// stored state, which is how lifecycle transitions persist
func TestSaveOperationOverwrites(t *testing.T) {
	store := newTestStore(t, time.Hour)

	op := testOp("op-1", "web-01", types.OpStatePending, 0)
	require.NoError(t, store.SaveOperation(op))

	op.State = types.OpStateFailed
	op.LastError = "backend unreachable"
	require.NoError(t, store.SaveOperation(op))

	got, err := store.GetOperation("op-1")
	require.NoError(t, err)
	assert.Equal(t, types.OpStateFailed, got.State)
	assert.Equal(t, "backend unreachable", got.LastError)
}

// TestListOperationsNewestFirst tests ordering
func TestListOperationsNewestFirst(t *testing.T) {
	store := newTestStore(t, time.Hour)

	require.NoError(t, store.SaveOperation(testOp("op-old", "web-01", types.OpStateCommitted, time.Minute)))
	require.NoError(t, store.SaveOperation(testOp("op-new", "web-02", types.OpStateCommitted, 0)))

	ops, err := store.ListOperations()
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "op-new", ops[0].ID)
	assert.Equal(t, "op-old", ops[1].ID)
}

// TestFailedOperations tests the operator-facing failure view
func TestFailedOperations(t *testing.T) {
	store := newTestStore(t, time.Hour)

	require.NoError(t, store.SaveOperation(testOp("op-1", "web-01", types.OpStateCommitted, 0)))
	require.NoError(t, store.SaveOperation(testOp("op-2", "web-02", types.OpStateFailed, 0)))
	require.NoError(t, store.SaveOperation(testOp("op-3", "web-03", types.OpStateSuperseded, 0)))

	failed, err := store.FailedOperations()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "op-2", failed[0].ID)
}

// TestPrune tests that only old committed and superseded operations are
// removed while failures stay visible
func TestPrune(t *testing.T) {
	store := newTestStore(t, time.Minute)

	require.NoError(t, store.SaveOperation(testOp("op-old-committed", "web-01", types.OpStateCommitted, time.Hour)))
	require.NoError(t, store.SaveOperation(testOp("op-old-superseded", "web-02", types.OpStateSuperseded, time.Hour)))
	require.NoError(t, store.SaveOperation(testOp("op-old-failed", "web-03", types.OpStateFailed, time.Hour)))
	require.NoError(t, store.SaveOperation(testOp("op-fresh", "web-04", types.OpStateCommitted, 0)))
	require.NoError(t, store.SaveOperation(testOp("op-pending", "web-05", types.OpStatePending, time.Hour)))

	require.NoError(t, store.Prune())

	ops, err := store.ListOperations()
	require.NoError(t, err)

	ids := make(map[string]bool, len(ops))
	for _, op := range ops {
		ids[op.ID] = true
	}
	assert.False(t, ids["op-old-committed"])
	assert.False(t, ids["op-old-superseded"])
	assert.True(t, ids["op-old-failed"], "failed operations survive pruning")
	assert.True(t, ids["op-fresh"])
	assert.True(t, ids["op-pending"], "non-terminal operations survive pruning")
}

// TestDecisionsForHostname tests per-host decision history, oldest first
func TestDecisionsForHostname(t *testing.T) {
	store := newTestStore(t, time.Hour)

	base := time.Now()
	for i := 0; i < 3; i++ {
		d := &types.Decision{
			Hostname:    "web-01",
			OperationID: fmt.Sprintf("op-%d", i),
			Bucket:      42,
			Percentage:  50,
			Backend:     types.BackendReal,
			Reason:      types.ReasonFlagEnabled,
			DecidedAt:   base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.SaveDecision(d))
	}
	require.NoError(t, store.SaveDecision(&types.Decision{
		Hostname:    "web-02",
		OperationID: "op-other",
		Backend:     types.BackendMock,
		Reason:      types.ReasonFlagDisabled,
		DecidedAt:   base,
	}))

	decisions, err := store.DecisionsFor("web-01")
	require.NoError(t, err)
	require.Len(t, decisions, 3)
	assert.Equal(t, "op-0", decisions[0].OperationID)
	assert.Equal(t, "op-2", decisions[2].OperationID)

	decisions, err = store.DecisionsFor("web-02")
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, types.ReasonFlagDisabled, decisions[0].Reason)
}

// TestPruneRemovesOldDecisions tests decision retention
func TestPruneRemovesOldDecisions(t *testing.T) {
	store := newTestStore(t, time.Minute)

	require.NoError(t, store.SaveDecision(&types.Decision{
		Hostname:    "web-01",
		OperationID: "op-old",
		DecidedAt:   time.Now().Add(-time.Hour),
	}))
	require.NoError(t, store.SaveDecision(&types.Decision{
		Hostname:    "web-01",
		OperationID: "op-fresh",
		DecidedAt:   time.Now(),
	}))

	require.NoError(t, store.Prune())

	decisions, err := store.DecisionsFor("web-01")
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "op-fresh", decisions[0].OperationID)
}
