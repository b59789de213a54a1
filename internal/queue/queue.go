package queue

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/config"
	"github.com/swarm-lang/swarm/internal/history"
	"github.com/swarm-lang/swarm/internal/kv"
	"github.com/swarm-lang/swarm/internal/metrics"
	"github.com/swarm-lang/swarm/internal/serialize"
	"github.com/swarm-lang/swarm/internal/swarmerr"
	"github.com/swarm-lang/swarm/internal/tracing"
	"github.com/swarm-lang/swarm/internal/waiter"
)

// Queue is one process's view of the shared job queue: a KV-store-backed
// list plus per-job status/payload/result records, keyed per spec §6.
type Queue struct {
	store     kv.Store
	waiters   *waiter.Registry
	evaluator Evaluator
	prefix    string
	filters   map[string]string // this worker's capability filters
	sleep     time.Duration
	log       *slog.Logger

	// depth approximates this process's view of the shared queue's length
	// for the swarm_queue_depth gauge: incremented on every push this
	// process performs, decremented on every pop, so it drifts from the
	// true Redis list length across a fleet of workers but still tracks
	// this process's own enqueue/drain pressure, which is what a single
	// process's /metrics endpoint can meaningfully report.
	depth atomic.Int64

	// history is the optional --job-history audit log; nil unless the
	// caller wires one in with SetHistory.
	history *history.Log
}

// SetHistory attaches an audit log that every terminal status transition is
// also appended to, in addition to the authoritative KV store record. A nil
// log (the default) disables this entirely.
func (q *Queue) SetHistory(h *history.Log) { q.history = h }

// New builds a Queue. prefix is the configured key prefix (spec §6's
// REDIS_PREFIX, e.g. "swarm_"); workerFilters are this process's
// capability filters used by WorkOnce's eligibility check.
func New(store kv.Store, waiters *waiter.Registry, evaluator Evaluator, prefix string, workerFilters map[string]string, sleep time.Duration, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{store: store, waiters: waiters, evaluator: evaluator, prefix: prefix, filters: workerFilters, sleep: sleep, log: log}
}

// ClearQueue deletes the shared job queue list outright, for the
// --clear-queue startup switch. It does not touch any individual job's
// status/payload/result records, only the pending work list itself.
func (q *Queue) ClearQueue(ctx context.Context) error {
	return q.store.Del(ctx, q.queueKey())
}

func (q *Queue) queueKey() string            { return q.prefix + "job_queue" }
func (q *Queue) statusKey(id string) string  { return q.prefix + "job_status_" + id }
func (q *Queue) payloadKey(id string) string { return q.prefix + "job_payload_" + id }
func (q *Queue) localsKey(id string) string  { return q.prefix + "job_locals_" + id }
func (q *Queue) filtersKey(id string) string { return q.prefix + "job_filters_" + id }
func (q *Queue) resultKey(id string) string  { return q.prefix + "job_result_" + id }
func (q *Queue) reasonKey(id string) string  { return q.prefix + "job_fail_reason_" + id }
func (q *Queue) channel(id string) string    { return q.prefix + "job_status_channel_" + id }

// GetStatus returns a job's current status, or Unknown if it cannot be
// read back.
func (q *Queue) GetStatus(ctx context.Context, jobID string) Status {
	raw, err := q.store.Get(ctx, q.statusKey(jobID))
	if err != nil {
		return Unknown
	}
	switch Status(raw) {
	case Pending, Running, Success, Failure:
		return Status(raw)
	default:
		return Unknown
	}
}

func (q *Queue) enqueuedAtKey(id string) string { return q.prefix + "job_enqueued_at_" + id }

func (q *Queue) setStatus(ctx context.Context, jobID string, status Status) error {
	if err := q.store.Set(ctx, q.statusKey(jobID), string(status)); err != nil {
		return err
	}
	if !isTerminalStatus(status) {
		return nil
	}
	q.recordTerminalMetrics(ctx, jobID, status)
	return q.store.Publish(ctx, q.channel(jobID), string(status))
}

// recordTerminalMetrics reports swarm_job_status_total and
// swarm_job_duration_seconds once a job reaches Success or Failure. A
// missing or malformed enqueue timestamp (e.g. a job queued before metrics
// were wired in) just skips the duration observation rather than failing
// the status transition over it.
func (q *Queue) recordTerminalMetrics(ctx context.Context, jobID string, status Status) {
	metrics.RecordJobStatus(string(status))

	if q.history != nil {
		reason := ""
		if status == Failure {
			reason = q.getFailureReason(ctx, jobID)
		}
		q.history.Record(ctx, jobID, string(status), reason, time.Now().UnixNano())
	}

	raw, err := q.store.Get(ctx, q.enqueuedAtKey(jobID))
	if err != nil {
		return
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return
	}
	metrics.ObserveJobDuration(time.Since(time.Unix(0, nanos)).Seconds())
}

// Queue pushes node, with its captured environment and capability filters,
// onto the shared queue and returns a Waiter for its completion (spec
// §4.10's queue operation).
func (q *Queue) Queue(ctx context.Context, node *ast.Node, locals []serialize.LocalBinding, filters map[string]string) (*waiter.Waiter, string, error) {
	ctx, span := tracing.StartQueue(ctx)
	defer span.End()
	filters = tracing.InjectFilters(ctx, filters)

	jobID := newJobID()

	payload, err := serialize.ToJSON(node)
	if err != nil {
		return nil, "", err
	}
	localsBlob, err := serialize.EncodeLocalsJSON(locals)
	if err != nil {
		return nil, "", err
	}
	filterBlob, err := encodeFilters(filters)
	if err != nil {
		return nil, "", err
	}

	q.log.Debug("pushing job to queue", "job_id", jobID)
	if err := q.store.Set(ctx, q.payloadKey(jobID), string(payload)); err != nil {
		return nil, "", err
	}
	if err := q.store.Set(ctx, q.localsKey(jobID), string(localsBlob)); err != nil {
		return nil, "", err
	}
	if err := q.store.Set(ctx, q.filtersKey(jobID), filterBlob); err != nil {
		return nil, "", err
	}
	if err := q.store.Set(ctx, q.enqueuedAtKey(jobID), strconv.FormatInt(time.Now().UnixNano(), 10)); err != nil {
		return nil, "", err
	}
	if err := q.setStatus(ctx, jobID, Pending); err != nil {
		return nil, "", err
	}
	if err := q.store.RPush(ctx, q.queueKey(), jobID); err != nil {
		return nil, "", err
	}
	metrics.SetQueueDepth(int(q.depth.Add(1)))

	w := q.waiters.Wait(ctx, jobID)
	return w, jobID, nil
}

// WorkOnce pops one job and, if it matches this worker's filters,
// evaluates it. It returns false when the queue was empty or the popped
// job was requeued as ineligible (spec §4.10).
func (q *Queue) WorkOnce(ctx context.Context) (bool, error) {
	jobID, ok, err := q.store.LPop(ctx, q.queueKey())
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	metrics.SetQueueDepth(int(q.depth.Add(-1)))
	q.log.Debug("popped job for execution", "job_id", jobID)

	filterRaw, err := q.store.Get(ctx, q.filtersKey(jobID))
	if err != nil && err != kv.ErrNotFound {
		return false, err
	}
	jobFilters, err := decodeFilters(filterRaw)
	if err != nil {
		return false, err
	}
	if !matches(jobFilters, q.filters) {
		q.log.Debug("job filters do not match this worker, requeueing", "job_id", jobID)
		if err := q.store.RPush(ctx, q.queueKey(), jobID); err != nil {
			return false, err
		}
		metrics.SetQueueDepth(int(q.depth.Add(1)))
		return false, nil
	}

	ctx, span := tracing.StartWorkOnce(ctx, jobFilters)
	defer span.End()

	if err := q.setStatus(ctx, jobID, Running); err != nil {
		return true, err
	}

	payload, err := q.store.Get(ctx, q.payloadKey(jobID))
	if err != nil && err != kv.ErrNotFound {
		return true, err
	}
	localsBlob, err := q.store.Get(ctx, q.localsKey(jobID))
	if err != nil && err != kv.ErrNotFound {
		return true, err
	}

	node, locals, err := serialize.DecodeJobJSON([]byte(payload), []byte(localsBlob))
	if err != nil {
		return true, q.fail(ctx, jobID, err.Error())
	}

	result, err := q.evaluator.Evaluate(ctx, node, locals)
	if err != nil {
		q.log.Debug("job execution failed", "job_id", jobID, "error", err)
		return true, q.fail(ctx, jobID, err.Error())
	}

	resultBlob, err := serialize.ToJSON(result)
	if err != nil {
		return true, q.fail(ctx, jobID, err.Error())
	}
	if err := q.store.Set(ctx, q.resultKey(jobID), string(resultBlob)); err != nil {
		return true, err
	}
	return true, q.setStatus(ctx, jobID, Success)
}

func (q *Queue) fail(ctx context.Context, jobID, reason string) error {
	if err := q.store.Set(ctx, q.reasonKey(jobID), reason); err != nil {
		return err
	}
	return q.setStatus(ctx, jobID, Failure)
}

// WorkUntil runs WorkOnce in a loop, sleeping between empty polls, until w
// reports finished or the process-wide shutdown flag is set (spec §4.10,
// §5's cooperative "sleep between polls rather than busy-spin").
func (q *Queue) WorkUntil(ctx context.Context, w *waiter.Waiter) error {
	q.log.Debug("starting work cycle", "job_id", w.JobID)
	for !w.Finished() {
		if config.ShuttingDown() {
			return nil
		}
		ran, err := q.WorkOnce(ctx)
		if err != nil {
			return err
		}
		if !ran {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(q.sleep):
			}
		}
	}
	return nil
}

// GetResult returns a completed job's result node, or nil if none was
// recorded.
func (q *Queue) GetResult(ctx context.Context, jobID string) (*ast.Node, error) {
	raw, err := q.store.Get(ctx, q.resultKey(jobID))
	if err == kv.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return serialize.FromJSON([]byte(raw))
}

func (q *Queue) getFailureReason(ctx context.Context, jobID string) string {
	reason, err := q.store.Get(ctx, q.reasonKey(jobID))
	if err != nil {
		return "unknown error"
	}
	return reason
}

// AwaitTerminal blocks until jobID reaches a terminal status and returns
// its outcome as plain strings, for a caller on the other side of a
// process boundary (internal/rpcapi's AwaitJob) that has only the job ID
// and did not itself call Queue in this process. Unlike Evaluate, it never
// calls WorkOnce itself: some other worker process is expected to be
// draining the queue.
func (q *Queue) AwaitTerminal(ctx context.Context, jobID string) (status Status, resultJSON string, failureReason string, err error) {
	if isTerminalStatus(q.GetStatus(ctx, jobID)) {
		return q.terminalOutcome(ctx, jobID)
	}

	w := q.waiters.Wait(ctx, jobID)
	for !w.Finished() {
		if config.ShuttingDown() {
			return Unknown, "", "", nil
		}
		select {
		case <-ctx.Done():
			return Unknown, "", "", ctx.Err()
		case <-time.After(q.sleep):
		}
	}

	return q.terminalOutcome(ctx, jobID)
}

func (q *Queue) terminalOutcome(ctx context.Context, jobID string) (status Status, resultJSON string, failureReason string, err error) {
	status = q.GetStatus(ctx, jobID)
	switch status {
	case Failure:
		return status, "", q.getFailureReason(ctx, jobID), nil
	case Success:
		result, err := q.GetResult(ctx, jobID)
		if err != nil {
			return status, "", "", err
		}
		blob, err := serialize.ToJSON(result)
		if err != nil {
			return status, "", "", err
		}
		return status, string(blob), "", nil
	default:
		return status, "", "", nil
	}
}

// Evaluate queues node, cooperatively works the queue until it finishes,
// and returns its result, raising QUEUE_EXECUTION on failure or an
// unresolved terminal status (spec §4.10).
func (q *Queue) Evaluate(ctx context.Context, node *ast.Node, locals []serialize.LocalBinding, filters map[string]string) (*ast.Node, error) {
	w, jobID, err := q.Queue(ctx, node, locals, filters)
	if err != nil {
		return nil, err
	}

	if err := q.WorkUntil(ctx, w); err != nil {
		return nil, err
	}

	switch status := q.GetStatus(ctx, jobID); status {
	case Failure:
		return nil, swarmerr.New(swarmerr.QueueExecution, "%s", q.getFailureReason(ctx, jobID))
	case Unknown:
		return nil, swarmerr.New(swarmerr.QueueExecution, "job status transitioned to UNKNOWN")
	}

	return q.GetResult(ctx, jobID)
}
