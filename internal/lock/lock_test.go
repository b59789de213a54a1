package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/swarm-lang/swarm/internal/kv"
)

// twoManagers returns two independent Managers (modeling two separate
// processes, each with its own local registry and holder uuid) sharing
// one Redis backend, so a SETNX made by one is visible to the other.
func twoManagers(t *testing.T) (*Manager, *Manager) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	newClient := func() kv.Store {
		rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return kv.NewFromClient(rdb)
	}

	a := NewManager(newClient(), time.Millisecond, 50)
	b := NewManager(newClient(), time.Millisecond, 50)
	return a, b
}

// scenario 5 from spec §8: nested with_lock calls within one process both
// succeed; a second process's try_to_acquire fails while either is held,
// and succeeds again once both release.
func TestLockReentryWithinOneProcess(t *testing.T) {
	procA, procB := twoManagers(t)
	ctx := context.Background()
	l := procA.Get("s")

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))

	other := procB.Get("s")
	ok, err := other.TryAcquire(ctx)
	require.NoError(t, err)
	require.False(t, ok, "a second process should not acquire a lock held by the first")

	require.NoError(t, l.Release(ctx))
	ok, err = other.TryAcquire(ctx)
	require.NoError(t, err)
	require.False(t, ok, "the lock is still held by the first process's outer acquisition")

	require.NoError(t, l.Release(ctx))
	ok, err = other.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok, "the lock is free once both nested acquisitions release")
}

func TestWithLockReleasesOnError(t *testing.T) {
	procA, procB := twoManagers(t)
	ctx := context.Background()
	l := procA.Get("x")

	callErr := l.WithLock(ctx, func() error {
		return context.DeadlineExceeded
	})
	require.ErrorIs(t, callErr, context.DeadlineExceeded)

	ok, err := procB.Get("x").TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok, "lock must be released even when the body returns an error")
}

func TestAcquireTimesOutWhenHeldElsewhere(t *testing.T) {
	procA, procB := twoManagers(t)
	ctx := context.Background()

	require.NoError(t, procA.Get("busy").Acquire(ctx))

	err := procB.Get("busy").Acquire(ctx)
	require.Error(t, err)
}
