package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/figdex/api"
	"github.com/agentic-research/figdex/internal/remote"
	"github.com/agentic-research/figdex/internal/store"
)

// testClock drives the controller's notion of time; it flows through to
// the sync timestamps, so staleness tests never touch the wall clock.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestController(t *testing.T, src remote.Client) (*Controller, *testClock) {
	t.Helper()
	parts := store.NewManager(t.TempDir(), "figdex")
	t.Cleanup(func() { _ = parts.Close() })

	ctrl := NewController(parts, src, DefaultConfig())
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	ctrl.now = clock.now
	return ctrl, clock
}

func TestEnsureReadySyncsEmptyStore(t *testing.T) {
	src := twoPageSource()
	ctrl, _ := newTestController(t, src)
	ctx := context.Background()

	res, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	assert.True(t, res.Ready)
	assert.True(t, res.Synced)
	assert.Contains(t, res.Message, "6 nodes")
	assert.Equal(t, 1, src.DocumentInfoCalls)

	// A fresh index does not sync again.
	res, err = ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	assert.True(t, res.Ready)
	assert.False(t, res.Synced)
	assert.Equal(t, "index fresh", res.Message)
	assert.Equal(t, 1, src.DocumentInfoCalls)
}

func TestEnsureReadyStalenessTriggersOneSync(t *testing.T) {
	src := twoPageSource()
	ctrl, clock := newTestController(t, src)
	ctx := context.Background()

	_, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, src.DocumentInfoCalls)

	clock.advance(10 * time.Minute)
	res, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	assert.True(t, res.Synced)
	assert.Equal(t, 2, src.DocumentInfoCalls)
}

func TestEnsureReadyRetryFloor(t *testing.T) {
	src := twoPageSource()
	ctrl, clock := newTestController(t, src)
	ctx := context.Background()

	_, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	calls := src.NodeTreeCalls

	// Stale index, failing remote: one attempt, then the floor holds.
	src.FailNodeTree = "p1"
	clock.advance(10 * time.Minute)

	res, err := ctrl.EnsureReady(ctx)
	require.Error(t, err)
	assert.True(t, res.Ready)
	assert.True(t, res.Stale)
	attempted := src.NodeTreeCalls
	assert.Greater(t, attempted, calls)

	clock.advance(30 * time.Second)
	res, err = ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	assert.True(t, res.Ready)
	assert.True(t, res.Stale)
	assert.Contains(t, res.Message, "retry window")
	assert.Equal(t, attempted, src.NodeTreeCalls)

	// Past the floor the next attempt goes out.
	clock.advance(60 * time.Second)
	_, _ = ctrl.EnsureReady(ctx)
	assert.Greater(t, src.NodeTreeCalls, attempted)
}

func TestEnsureReadyDisconnected(t *testing.T) {
	src := twoPageSource()
	ctrl, clock := newTestController(t, src)
	ctx := context.Background()

	// No cached data, unreachable source: not ready.
	src.SetConnected(false)
	res, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	assert.False(t, res.Ready)
	assert.Contains(t, res.Message, "not ready")

	// Cached data serves through an outage, flagged stale.
	src.SetConnected(true)
	_, err = ctrl.EnsureReady(ctx)
	require.NoError(t, err)

	src.SetConnected(false)
	clock.advance(10 * time.Minute)
	res, err = ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	assert.True(t, res.Ready)
	assert.True(t, res.Stale)
	assert.Contains(t, res.Message, "unreachable")
}

func TestEnsureReadySyncInProgressGuard(t *testing.T) {
	src := twoPageSource()
	ctrl, clock := newTestController(t, src)
	ctx := context.Background()

	_, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	calls := src.DocumentInfoCalls

	ctrl.mu.Lock()
	ctrl.syncing = true
	ctrl.mu.Unlock()

	clock.advance(10 * time.Minute)
	res, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	assert.True(t, res.Ready)
	assert.Equal(t, "sync in progress", res.Message)
	assert.Equal(t, calls, src.DocumentInfoCalls)
}

func TestHandleChangeThreshold(t *testing.T) {
	src := twoPageSource()
	ctrl, _ := newTestController(t, src)
	ctx := context.Background()
	_, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	st, err := ctrl.Partitions().Active()
	require.NoError(t, err)

	invalidated := func() bool {
		v, err := st.MetaGet(store.MetaInvalidated)
		require.NoError(t, err)
		return v == "1"
	}

	// Below the threshold: ignored.
	ctrl.HandleChange(remote.DocumentChange{
		ChangeType: remote.ChangeTypeDocument,
		Details:    remote.ChangeDetails{PropertyChanges: 3},
		Timestamp:  time.Now(),
	})
	assert.False(t, invalidated())

	// At the threshold: still ignored. Must exceed, not meet.
	ctrl.HandleChange(remote.DocumentChange{
		ChangeType: remote.ChangeTypeDocument,
		Details:    remote.ChangeDetails{PropertyChanges: 5},
		Timestamp:  time.Now(),
	})
	assert.False(t, invalidated())

	// Selection churn never invalidates, however large.
	ctrl.HandleChange(remote.DocumentChange{
		ChangeType: remote.ChangeTypeSelection,
		Details:    remote.ChangeDetails{PropertyChanges: 100},
		Timestamp:  time.Now(),
	})
	assert.False(t, invalidated())

	// Past the threshold: invalidated with a persisted reason.
	ctrl.HandleChange(remote.DocumentChange{
		ChangeType: remote.ChangeTypeDocument,
		Details:    remote.ChangeDetails{PropertyChanges: 6},
		Timestamp:  time.Now(),
	})
	assert.True(t, invalidated())
	reason, err := st.MetaGet(store.MetaInvalidationReason)
	require.NoError(t, err)
	assert.Contains(t, reason, "6 property changes")
}

func TestHandleChangeStructural(t *testing.T) {
	src := twoPageSource()
	ctrl, _ := newTestController(t, src)
	ctx := context.Background()
	_, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	st, err := ctrl.Partitions().Active()
	require.NoError(t, err)

	// A single node creation always invalidates.
	ctrl.HandleChange(remote.DocumentChange{
		ChangeType: remote.ChangeTypeDocument,
		Details:    remote.ChangeDetails{NodeCreations: 1},
		Timestamp:  time.Now(),
	})
	v, err := st.MetaGet(store.MetaInvalidated)
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestInvalidationBypassesFreshnessAndClearsOnSync(t *testing.T) {
	src := twoPageSource()
	ctrl, _ := newTestController(t, src)
	ctx := context.Background()

	_, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	calls := src.DocumentInfoCalls

	ctrl.HandleChange(remote.DocumentChange{
		ChangeType: remote.ChangeTypeDocument,
		Details:    remote.ChangeDetails{NodeDeletions: 2},
		Timestamp:  time.Now(),
	})

	// Within the staleness window, but the invalidation forces a resync.
	res, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	assert.True(t, res.Synced)
	assert.Equal(t, calls+1, src.DocumentInfoCalls)

	// The flag cleared; the next check is a no-op.
	res, err = ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	assert.Equal(t, "index fresh", res.Message)
	assert.Equal(t, calls+1, src.DocumentInfoCalls)
}

func TestInvalidationSurvivesRestart(t *testing.T) {
	src := twoPageSource()
	parts := store.NewManager(t.TempDir(), "figdex")
	t.Cleanup(func() { _ = parts.Close() })
	ctx := context.Background()

	ctrl := NewController(parts, src, DefaultConfig())
	_, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	ctrl.HandleChange(remote.DocumentChange{
		ChangeType: remote.ChangeTypeDocument,
		Details:    remote.ChangeDetails{NodeCreations: 3},
		Timestamp:  time.Now(),
	})
	calls := src.DocumentInfoCalls

	// A new controller over the same partitions sees the persisted flag.
	ctrl2 := NewController(parts, src, DefaultConfig())
	res, err := ctrl2.EnsureReady(ctx)
	require.NoError(t, err)
	assert.True(t, res.Synced)
	assert.Equal(t, calls+1, src.DocumentInfoCalls)
}

func TestMidSyncChangeNotLost(t *testing.T) {
	src := twoPageSource()
	ctrl, _ := newTestController(t, src)
	ctx := context.Background()

	// A structural notification lands while the first page fetch is in
	// flight, after the sync has already started.
	fired := false
	src.OnNodeTree = func(string) {
		if fired {
			return
		}
		fired = true
		ctrl.HandleChange(remote.DocumentChange{
			ChangeType: remote.ChangeTypeDocument,
			Details:    remote.ChangeDetails{NodeCreations: 2},
			Timestamp:  time.Now(),
		})
	}

	res, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	assert.True(t, res.Synced)

	// The completed sync must not erase the mid-flight signal.
	st, err := ctrl.Partitions().Active()
	require.NoError(t, err)
	v, err := st.MetaGet(store.MetaInvalidated)
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	// The next check resyncs instead of reporting fresh, then settles.
	calls := src.DocumentInfoCalls
	res, err = ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	assert.True(t, res.Synced)
	assert.Equal(t, calls+1, src.DocumentInfoCalls)

	res, err = ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	assert.Equal(t, "index fresh", res.Message)
}

func TestFailedSyncKeepsInvalidation(t *testing.T) {
	src := twoPageSource()
	ctrl, _ := newTestController(t, src)
	ctx := context.Background()

	_, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	st, err := ctrl.Partitions().Active()
	require.NoError(t, err)

	ctrl.HandleChange(remote.DocumentChange{
		ChangeType: remote.ChangeTypeDocument,
		Details:    remote.ChangeDetails{NodeDeletions: 1},
		Timestamp:  time.Now(),
	})
	reason, err := st.MetaGet(store.MetaInvalidationReason)
	require.NoError(t, err)

	// The resync attempt fails; the flag and reason must come back.
	src.FailNodeTree = "p1"
	_, err = ctrl.EnsureReady(ctx)
	require.Error(t, err)

	v, err := st.MetaGet(store.MetaInvalidated)
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	got, err := st.MetaGet(store.MetaInvalidationReason)
	require.NoError(t, err)
	assert.Equal(t, reason, got)
}

func TestRebuildClearsAndResyncs(t *testing.T) {
	src := twoPageSource()
	ctrl, _ := newTestController(t, src)
	ctx := context.Background()

	_, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)
	st, err := ctrl.Partitions().Active()
	require.NoError(t, err)
	require.NoError(t, st.MetaSet(store.MetaInvalidated, "1"))

	stats, err := ctrl.Rebuild(ctx, api.RebuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 6, stats.NodesIndexed)
	assert.Equal(t, "Design System", stats.DocumentName)

	v, err := st.MetaGet(store.MetaInvalidated)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestRebuildRequiresConnection(t *testing.T) {
	src := twoPageSource()
	src.SetConnected(false)
	ctrl, _ := newTestController(t, src)

	_, err := ctrl.Rebuild(context.Background(), api.RebuildOptions{})
	assert.ErrorIs(t, err, remote.ErrDisconnected)
}

func TestControllerSearch(t *testing.T) {
	src := twoPageSource()
	ctrl, _ := newTestController(t, src)
	ctx := context.Background()

	nodes, ready, err := ctrl.Search(ctx, "primary button", api.SearchFilter{Type: "INSTANCE"}, 10)
	require.NoError(t, err)
	assert.True(t, ready.Ready)
	require.Len(t, nodes, 1)
	assert.Equal(t, "1:3", nodes[0].FigmaID)
}

func TestControllerStats(t *testing.T) {
	src := twoPageSource()
	ctrl, _ := newTestController(t, src)
	ctx := context.Background()

	_, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)

	stats, err := ctrl.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.Nodes)
	assert.Equal(t, int64(2), stats.Pages)
	assert.Equal(t, "Design System", stats.DocumentName)
	// The sync timestamp comes from the injected clock, not the wall clock.
	assert.Equal(t, int64(1_700_000_000), stats.LastFullSync.Unix())
}

func TestControllerPerDocumentPartitions(t *testing.T) {
	src := twoPageSource()
	ctrl, _ := newTestController(t, src)
	ctx := context.Background()

	require.NoError(t, ctrl.SetActiveDocument("docA"))
	_, err := ctrl.EnsureReady(ctx)
	require.NoError(t, err)

	// A different document starts empty; the sync rebuilds it there.
	require.NoError(t, ctrl.SetActiveDocument("docB"))
	st, err := ctrl.Partitions().Active()
	require.NoError(t, err)
	count, err := st.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
