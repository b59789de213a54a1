package waiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/swarm-lang/swarm/internal/kv"
)

func newTestRegistry(t *testing.T) (*Registry, kv.Store) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := kv.NewFromClient(rdb)

	return NewRegistry(store, "swarm_job_status_channel_", time.Millisecond, nil), store
}

func TestWaitFinishesOnTerminalStatus(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()

	w := reg.Wait(ctx, "job-1")
	require.False(t, w.Finished())

	// the subscription is in place once Wait returns; Eventually retries the
	// publish call until it succeeds.
	require.Eventually(t, func() bool {
		return store.Publish(ctx, "swarm_job_status_channel_job-1", "SUCCESS") == nil
	}, time.Second, time.Millisecond)

	require.Eventually(t, w.Finished, time.Second, time.Millisecond)
}

func TestWaitIgnoresNonTerminalStatus(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()

	w := reg.Wait(ctx, "job-2")
	require.NoError(t, store.Publish(ctx, "swarm_job_status_channel_job-2", "RUNNING"))

	time.Sleep(20 * time.Millisecond)
	require.False(t, w.Finished())
}

func TestWaitIgnoresUnrelatedChannel(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()

	w := reg.Wait(ctx, "job-3")
	require.NoError(t, store.Publish(ctx, "other_channel", "SUCCESS"))

	time.Sleep(20 * time.Millisecond)
	require.False(t, w.Finished())
}
