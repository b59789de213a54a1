package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/swarm-lang/swarm/internal/kv"
	"github.com/swarm-lang/swarm/internal/lock"
	"github.com/swarm-lang/swarm/internal/symbols"
)

func newSharedTestStore(t *testing.T) *Shared {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := kv.NewFromClient(rdb)

	return NewShared(store, lock.NewManager(store, time.Millisecond, 50), "swarm:")
}

func TestSharedGetFailsFreeSymbolBeforeSet(t *testing.T) {
	s := newSharedTestStore(t)
	sym := symbols.New("x", symbols.Variable, pos(), false)

	_, err := s.Get(context.Background(), sym)
	require.Error(t, err)
}

func TestSharedSetThenGetRoundTripsThroughSerialization(t *testing.T) {
	s := newSharedTestStore(t)
	sym := symbols.New("x", symbols.Variable, pos(), false)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, sym, numberLit(42)))

	v, err := s.Get(ctx, sym)
	require.NoError(t, err)
	require.Equal(t, 42.0, v.NumberValue)
}

func TestSharedLockIsMutuallyExclusiveAcrossStores(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	newStore := func() kv.Store {
		rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return kv.NewFromClient(rdb)
	}

	kvA := newStore()
	kvB := newStore()
	a := NewShared(kvA, lock.NewManager(kvA, time.Millisecond, 50), "swarm:")
	b := NewShared(kvB, lock.NewManager(kvB, time.Millisecond, 50), "swarm:")

	sym := symbols.New("x", symbols.Variable, pos(), false)
	ctx := context.Background()

	require.NoError(t, a.Lock(ctx, sym))

	ok, err := b.TryLock(ctx, sym)
	require.NoError(t, err)
	require.False(t, ok, "a second store should not acquire a lock held by the first")

	require.NoError(t, a.Unlock(ctx, sym))

	ok, err = b.TryLock(ctx, sym)
	require.NoError(t, err)
	require.True(t, ok)
}
