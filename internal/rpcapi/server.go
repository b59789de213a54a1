package rpcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/queue"
	"github.com/swarm-lang/swarm/internal/serialize"
	"github.com/swarm-lang/swarm/internal/swarmerr"
)

// Server implements the SubmitJob/AwaitJob RPCs in front of a *queue.Queue.
// It has no generated base type to embed (see schema.go's note on why),
// so it just holds what its two handlers need.
type Server struct {
	q      *queue.Queue
	schema *schema
	log    *slog.Logger
}

// New builds a Server fronting q.
func New(q *queue.Queue, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	sch, err := buildSchema()
	if err != nil {
		return nil, err
	}
	return &Server{q: q, schema: sch, log: log}, nil
}

// ServiceDesc is the grpc.ServiceDesc a caller registers this Server under
// via grpc.NewServer().RegisterService(&rpcapi.ServiceDesc, server).
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: protoPackage + ".SwarmService",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitJob", Handler: submitJobHandler},
		{MethodName: "AwaitJob", Handler: awaitJobHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "swarm/rpcapi.proto",
}

func submitJobHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	s := srv.(*Server)
	req := newDynamic(s.schema.submitJobRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return s.submitJob(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceDesc.ServiceName + "/SubmitJob"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.submitJob(ctx, req.(*dynamicpb.Message))
	}
	return interceptor(ctx, req, info, handler)
}

func awaitJobHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	s := srv.(*Server)
	req := newDynamic(s.schema.awaitJobRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return s.awaitJob(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceDesc.ServiceName + "/AwaitJob"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.awaitJob(ctx, req.(*dynamicpb.Message))
	}
	return interceptor(ctx, req, info, handler)
}

// submitJob validates the caller-supplied AST payload's astNodeName tags
// against the ast package's tag registry, decodes it, and hands it to the
// queue exactly as a local DeferCall would.
func (s *Server) submitJob(ctx context.Context, req *dynamicpb.Message) (any, error) {
	payloadJSON := getStr(req, "payload_json")
	localsJSON := getStr(req, "locals_json")
	filtersJSON := getStr(req, "filters_json")

	if err := validateAstNodeNames([]byte(payloadJSON)); err != nil {
		return nil, fmt.Errorf("rpcapi: %w", err)
	}

	node, locals, err := serialize.DecodeJobJSON([]byte(payloadJSON), []byte(localsJSON))
	if err != nil {
		return nil, err
	}

	var filters map[string]string
	if filtersJSON != "" {
		if err := json.Unmarshal([]byte(filtersJSON), &filters); err != nil {
			return nil, fmt.Errorf("rpcapi: decode filters_json: %w", err)
		}
	}

	_, jobID, err := s.q.Queue(ctx, node, locals, filters)
	if err != nil {
		return nil, err
	}

	resp := newDynamic(s.schema.submitJobResponse)
	setStr(resp, "job_id", jobID)
	s.log.Debug("rpcapi: submitted job", "job_id", jobID)
	return resp, nil
}

// awaitJob blocks until a job reaches a terminal state through
// queue.AwaitTerminal, which, unlike internal/queue's own Evaluate, never
// works the queue itself.
func (s *Server) awaitJob(ctx context.Context, req *dynamicpb.Message) (any, error) {
	jobID := getStr(req, "job_id")
	if jobID == "" {
		return nil, swarmerr.New(swarmerr.QueueExecution, "rpcapi: AwaitJob requires job_id")
	}

	status, resultJSON, failureReason, err := s.q.AwaitTerminal(ctx, jobID)
	if err != nil {
		return nil, err
	}

	resp := newDynamic(s.schema.awaitJobResponse)
	setStr(resp, "status", string(status))
	setStr(resp, "result_json", resultJSON)
	setStr(resp, "failure_reason", failureReason)
	return resp, nil
}

// validateAstNodeNames walks payload's decoded JSON looking for every
// "astNodeName" field a wire-format node carries and rejects the payload
// outright if any name isn't one ast.TagFromString recognizes — the schema
// registry spec §9 calls for, enforced before the bytes ever reach
// serialize.DecodeJobJSON's own decoding.
func validateAstNodeNames(payload []byte) error {
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("decode payload_json: %w", err)
	}
	return walkAstNodeNames(raw)
}

func walkAstNodeNames(v any) error {
	switch val := v.(type) {
	case map[string]any:
		if name, ok := val["astNodeName"].(string); ok {
			if _, ok := ast.TagFromString(name); !ok {
				return fmt.Errorf("unrecognized astNodeName %q", name)
			}
		}
		for _, child := range val {
			if err := walkAstNodeNames(child); err != nil {
				return err
			}
		}
	case []any:
		for _, child := range val {
			if err := walkAstNodeNames(child); err != nil {
				return err
			}
		}
	}
	return nil
}
