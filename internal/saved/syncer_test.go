package saved

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestSyncer_FlushesAndReconciles(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)
	backend := newFakeBackend(clock)
	backend.set("from-other-device", true, t0.Add(-time.Hour))

	require.NoError(t, store.Save(ctx, "a"))
	require.NoError(t, store.Save(ctx, "b"))
	require.NoError(t, store.Unsave(ctx, "a"))

	clock.Advance(time.Second)
	syncer := NewSyncer(store, backend, time.Minute, WithBackOff(zeroBackOff))

	report, err := syncer.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Flushed)
	assert.Equal(t, []string{"from-other-device"}, report.Sync.Added)
	assert.Empty(t, store.Pending())
	assert.ElementsMatch(t, []string{"b", "from-other-device"}, store.IDs())
	assert.False(t, store.IsSaved("a"))
}

func TestSyncer_RetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)
	backend := newFakeBackend(clock)
	backend.failures = 2

	require.NoError(t, store.Save(ctx, "a"))

	syncer := NewSyncer(store, backend, time.Minute, WithBackOff(zeroBackOff), WithMaxAttempts(3))
	report, err := syncer.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Flushed)
	assert.Empty(t, store.Pending())
}

func TestSyncer_StopsAtFirstUndeliverableOp(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)
	backend := newFakeBackend(clock)
	backend.failures = 10

	require.NoError(t, store.Save(ctx, "a"))
	require.NoError(t, store.Save(ctx, "b"))

	syncer := NewSyncer(store, backend, time.Minute, WithBackOff(zeroBackOff), WithMaxAttempts(2))
	report, err := syncer.RunOnce(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBackendDown)

	assert.Equal(t, 0, report.Flushed)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, backend.applied)
	assert.Len(t, store.Pending(), 2)
	// the empty server snapshot must not clobber in-flight saves
	assert.ElementsMatch(t, []string{"a", "b"}, store.IDs())
	assert.ElementsMatch(t, []string{"a", "b"}, report.Sync.Kept)
}

func TestSyncer_ReplayIsHarmless(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)
	backend := newFakeBackend(clock)

	require.NoError(t, store.Save(ctx, "a"))
	op := store.Pending()[0]

	clock.Advance(time.Minute)
	require.NoError(t, store.Unsave(ctx, "a"))

	syncer := NewSyncer(store, backend, time.Minute, WithBackOff(zeroBackOff))
	_, err := syncer.RunOnce(ctx)
	require.NoError(t, err)

	// a late duplicate of the older save does not resurrect the row
	require.NoError(t, backend.Apply(ctx, op))
	snap, err := backend.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.IDs)
}

func TestSyncer_StartStopsWithContext(t *testing.T) {
	store, _, clock := newTestStore(t)
	backend := newFakeBackend(clock)
	backend.set("x", true, t0.Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	syncer := NewSyncer(store, backend, time.Hour, WithBackOff(zeroBackOff))
	syncer.Start(ctx)

	assert.Eventually(t, func() bool { return store.IsSaved("x") }, time.Second, 10*time.Millisecond)
	cancel()
}

func TestSyncer_PrunesUnsavedCompetitionsThatLeftTheCatalog(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)
	backend := newFakeBackend(clock)

	for _, id := range []string{"gone", "still-listed", "resaved"} {
		require.NoError(t, store.Save(ctx, id))
	}
	syncer := NewSyncer(store, backend, time.Minute,
		WithBackOff(zeroBackOff),
		WithCatalogIDs(func(context.Context) ([]string, error) {
			return []string{"still-listed"}, nil
		}),
	)
	_, err := syncer.RunOnce(ctx)
	require.NoError(t, err)

	clock.Advance(time.Second)
	require.NoError(t, store.Unsave(ctx, "gone"))
	require.NoError(t, store.Unsave(ctx, "still-listed"))
	require.NoError(t, store.Unsave(ctx, "resaved"))
	clock.Advance(time.Second)
	require.NoError(t, store.Save(ctx, "resaved"))
	clock.Advance(time.Second)

	report, err := syncer.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Pruned)
	assert.Equal(t, []string{"gone"}, backend.forgot)
	assert.NotContains(t, backend.rows, "gone")
	assert.False(t, backend.rows["still-listed"].Saved)
	assert.True(t, backend.rows["resaved"].Saved)
}

func TestSyncer_NoPruneWithoutCatalog(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)
	backend := newFakeBackend(clock)

	require.NoError(t, store.Save(ctx, "a"))
	require.NoError(t, store.Unsave(ctx, "a"))

	report, err := NewSyncer(store, backend, time.Minute, WithBackOff(zeroBackOff)).RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Pruned)
	assert.Empty(t, backend.forgot)
}
