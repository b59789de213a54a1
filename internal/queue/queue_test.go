package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/kv"
	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/serialize"
	"github.com/swarm-lang/swarm/internal/typesystem"
	"github.com/swarm-lang/swarm/internal/waiter"
)

func pos() position.Position { return position.Position{File: "t.swm", StartLine: 1, EndLine: 1} }

func numberLit(v float64) *ast.Node {
	return &ast.Node{Tag: ast.NumberLiteral, Pos: pos(), NumberValue: v, ResolvedType: typesystem.TNumber}
}

// addEvaluator evaluates an ADD of two number literals, mirroring the
// interpreter's arithmetic just enough to exercise the queue round trip
// without importing internal/evaluator.
type addEvaluator struct{}

func (addEvaluator) Evaluate(_ context.Context, node *ast.Node, _ []serialize.LocalBinding) (*ast.Node, error) {
	return numberLit(node.Left.NumberValue + node.Right.NumberValue), nil
}

type failingEvaluator struct{ reason string }

func (f failingEvaluator) Evaluate(context.Context, *ast.Node, []serialize.LocalBinding) (*ast.Node, error) {
	return nil, errString(f.reason)
}

type errString string

func (e errString) Error() string { return string(e) }

func newTestQueue(t *testing.T, ev Evaluator, workerFilters map[string]string) (*Queue, kv.Store) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := kv.NewFromClient(rdb)

	reg := waiter.NewRegistry(store, "swarm_job_status_channel_", time.Millisecond, nil)
	return New(store, reg, ev, "swarm_", workerFilters, time.Millisecond, nil), store
}

func addNode() *ast.Node {
	return &ast.Node{Tag: ast.Add, Pos: pos(), Left: numberLit(6.9), Right: numberLit(42), ResolvedType: typesystem.TNumber}
}

func TestEvaluateRoundTripsThroughTheQueue(t *testing.T) {
	q, _ := newTestQueue(t, addEvaluator{}, nil)
	ctx := context.Background()

	result, err := q.Evaluate(ctx, addNode(), nil, nil)
	require.NoError(t, err)
	require.InDelta(t, 48.9, result.NumberValue, 0.0001)
}

func TestWorkOnceReturnsFalseOnEmptyQueue(t *testing.T) {
	q, _ := newTestQueue(t, addEvaluator{}, nil)
	ran, err := q.WorkOnce(context.Background())
	require.NoError(t, err)
	require.False(t, ran)
}

func TestWorkOnceRequeuesOnFilterMismatch(t *testing.T) {
	q, store := newTestQueue(t, addEvaluator{}, map[string]string{"continent": "Europe"})
	ctx := context.Background()

	_, jobID, err := q.Queue(ctx, addNode(), nil, map[string]string{"continent": "Australia"})
	require.NoError(t, err)

	ran, err := q.WorkOnce(ctx)
	require.NoError(t, err)
	require.False(t, ran)

	require.Equal(t, Pending, q.GetStatus(ctx, jobID))

	tail, ok, err := store.LPop(ctx, q.queueKey())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, jobID, tail)
}

func TestEvaluateSurfacesFailureReason(t *testing.T) {
	q, _ := newTestQueue(t, failingEvaluator{reason: "boom"}, nil)
	ctx := context.Background()

	_, err := q.Evaluate(ctx, addNode(), nil, nil)
	require.ErrorContains(t, err, "boom")
}

func TestAwaitTerminalReturnsImmediatelyForAnAlreadyCompletedJob(t *testing.T) {
	q, _ := newTestQueue(t, addEvaluator{}, nil)
	ctx := context.Background()

	w, jobID, err := q.Queue(ctx, addNode(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, q.WorkUntil(ctx, w))

	status, resultJSON, failureReason, err := q.AwaitTerminal(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, Success, status)
	require.Empty(t, failureReason)
	require.NotEmpty(t, resultJSON)

	decoded, err := serialize.FromJSON([]byte(resultJSON))
	require.NoError(t, err)
	require.InDelta(t, 48.9, decoded.NumberValue, 0.0001)
}

func TestAwaitTerminalSurfacesFailureReason(t *testing.T) {
	q, _ := newTestQueue(t, failingEvaluator{reason: "boom"}, nil)
	ctx := context.Background()

	w, jobID, err := q.Queue(ctx, addNode(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, q.WorkUntil(ctx, w))

	status, _, failureReason, err := q.AwaitTerminal(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, Failure, status)
	require.Equal(t, "boom", failureReason)
}

func TestClearQueueDeletesPendingJobs(t *testing.T) {
	q, store := newTestQueue(t, addEvaluator{}, nil)
	ctx := context.Background()

	_, _, err := q.Queue(ctx, addNode(), nil, nil)
	require.NoError(t, err)

	require.NoError(t, q.ClearQueue(ctx))

	_, ok, err := store.LPop(ctx, q.queueKey())
	require.NoError(t, err)
	require.False(t, ok)
}
