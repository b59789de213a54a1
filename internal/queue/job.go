// Package queue implements the distributed execution queue of spec §4.10:
// at-most-one execution of a serialized AST subtree matched against worker
// capability filters, with status transitions and pub/sub notification of
// waiters. Grounded on
// original_source/src/runtime/queue/ExecutionQueue.h's queue/workOnce/
// workUntil/evaluate shape, generalized to Go's explicit error returns and
// a caller-supplied Evaluator rather than the original's inlined (and, per
// its own TODO, unfinished) evaluation step.
package queue

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/serialize"
)

// Status is a job's lifecycle stage (spec §3's Job.status, §4.10). Stored
// and published as the uppercase names below rather than spec §3's
// single-char codes ('p', 'r', ...): §6's pub/sub contract is defined in
// terms of the uppercase names, and this is the value that ends up on the
// wire either way, so the single-char form never needs to exist.
type Status string

const (
	Pending Status = "PENDING"
	Running Status = "RUNNING"
	Success Status = "SUCCESS"
	Failure Status = "FAILURE"
	Unknown Status = "UNKNOWN"
)

func isTerminalStatus(s Status) bool { return s == Success || s == Failure }

// Evaluator runs a deserialized AST subtree against a captured local
// environment. The concrete implementation is the tree-walking
// interpreter; Queue depends only on this interface so it has no import
// dependency on internal/evaluator.
type Evaluator interface {
	Evaluate(ctx context.Context, node *ast.Node, locals []serialize.LocalBinding) (*ast.Node, error)
}

func encodeFilters(filters map[string]string) (string, error) {
	if filters == nil {
		filters = map[string]string{}
	}
	b, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeFilters(raw string) (map[string]string, error) {
	filters := map[string]string{}
	if raw == "" {
		return filters, nil
	}
	if err := json.Unmarshal([]byte(raw), &filters); err != nil {
		return nil, err
	}
	return filters, nil
}

// matches reports whether a job's required filters are satisfiable by this
// worker's filters: every key the job names must be present on the worker
// with an identical value (spec §4.10: "keys missing on the worker also
// mismatch").
func matches(jobFilters, workerFilters map[string]string) bool {
	for k, want := range jobFilters {
		if got, ok := workerFilters[k]; !ok || got != want {
			return false
		}
	}
	return true
}

func newJobID() string { return uuid.New().String() }
