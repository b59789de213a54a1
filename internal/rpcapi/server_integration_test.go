package rpcapi

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/kv"
	"github.com/swarm-lang/swarm/internal/queue"
	"github.com/swarm-lang/swarm/internal/serialize"
	"github.com/swarm-lang/swarm/internal/typesystem"
	"github.com/swarm-lang/swarm/internal/waiter"
)

type addEvaluator struct{}

func (addEvaluator) Evaluate(_ context.Context, n *ast.Node, _ []serialize.LocalBinding) (*ast.Node, error) {
	return &ast.Node{Tag: ast.NumberLiteral, Pos: n.Pos, NumberValue: n.Left.NumberValue + n.Right.NumberValue, ResolvedType: typesystem.TNumber}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := kv.NewFromClient(rdb)

	reg := waiter.NewRegistry(store, "swarm_job_status_channel_", time.Millisecond, nil)
	q := queue.New(store, reg, addEvaluator{}, "swarm_", nil, time.Millisecond, nil)

	s, err := New(q, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func addPayloadJSON() string {
	return `{"astNodeName":"ADD",` +
		`"position":{"startLine":1,"endLine":1,"startCol":0,"endCol":0},` +
		`"left":{"astNodeName":"NUMBERLITERAL","position":{"startLine":1,"endLine":1,"startCol":0,"endCol":0},"value":6.9},` +
		`"right":{"astNodeName":"NUMBERLITERAL","position":{"startLine":1,"endLine":1,"startCol":0,"endCol":0},"value":42}}`
}

func TestSubmitJobThenAwaitJobRoundTrips(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	submitReq := newDynamic(s.schema.submitJobRequest)
	setStr(submitReq, "payload_json", addPayloadJSON())

	resp, err := s.submitJob(ctx, submitReq)
	if err != nil {
		t.Fatalf("submitJob: %v", err)
	}
	submitResp := resp.(*dynamicpb.Message)
	jobID := getStr(submitResp, "job_id")
	if jobID == "" {
		t.Fatal("expected a non-empty job_id")
	}

	// Drain the queue as a worker would.
	for i := 0; i < 10; i++ {
		ran, err := s.q.WorkOnce(ctx)
		if err != nil {
			t.Fatalf("WorkOnce: %v", err)
		}
		if ran {
			break
		}
	}

	awaitReq := newDynamic(s.schema.awaitJobRequest)
	setStr(awaitReq, "job_id", jobID)

	awaitResp, err := s.awaitJob(ctx, awaitReq)
	if err != nil {
		t.Fatalf("awaitJob: %v", err)
	}
	am := awaitResp.(*dynamicpb.Message)
	if status := getStr(am, "status"); status != "SUCCESS" {
		t.Fatalf("expected SUCCESS, got %q", status)
	}
}
