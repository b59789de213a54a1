// Package waiter implements spec §4.11's waiter/subscriber pair: one
// process-wide subscriber goroutine multiplexes job-completion pub/sub
// messages to many per-job Waiters. Grounded on
// original_source/src/runtime/queue/Waiter.h/.cpp, with the original's
// static subscriber/instances map/thread replaced by a Registry value the
// caller constructs once and threads through the process (spec's design
// notes reserve exactly one true process-wide singleton for THREAD_EXIT;
// everything else should be an owned value).
package waiter

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/swarm-lang/swarm/internal/config"
	"github.com/swarm-lang/swarm/internal/kv"
)

// Waiter is a process-local handle on one outstanding queued job. It is
// mutated only by the owning goroutine (Started/JobID) and by the
// Registry's subscriber goroutine on a completion message (terminated),
// matching the original's "mutated only by (a) the owning thread ... and
// (b) the global subscriber thread" invariant (spec §3).
type Waiter struct {
	JobID string

	mu         sync.Mutex
	started    bool
	terminated bool
}

// Finished reports whether the subscriber has observed this job's terminal
// status.
func (w *Waiter) Finished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.terminated
}

func (w *Waiter) finish() {
	w.mu.Lock()
	w.terminated = true
	w.mu.Unlock()
}

func (w *Waiter) markStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return false
	}
	w.started = true
	return true
}

// Registry is the lazily-started subscriber and the id -> Waiter map it
// dispatches completion messages into (spec §4.11).
type Registry struct {
	store  kv.Store
	prefix string // e.g. "swarm_job_status_channel_"
	sleep  time.Duration
	log    *slog.Logger

	once sync.Once
	mu   sync.Mutex
	byID map[string]*Waiter
}

// NewRegistry builds a Registry over store; prefix is the job-status
// pub/sub channel prefix (spec §6's job_status_channel_<id>, with the
// configured REDIS_PREFIX already applied by the caller).
func NewRegistry(store kv.Store, prefix string, sleep time.Duration, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{store: store, prefix: prefix, sleep: sleep, log: log, byID: make(map[string]*Waiter)}
}

// Wait returns a Waiter for jobID, subscribing it to completion
// notifications and starting the shared subscriber goroutine on first use.
func (r *Registry) Wait(ctx context.Context, jobID string) *Waiter {
	w := &Waiter{JobID: jobID}
	if !w.markStarted() {
		return w
	}

	r.mu.Lock()
	r.byID[jobID] = w
	r.mu.Unlock()

	r.once.Do(func() {
		sub := r.store.Subscribe(ctx, r.prefix+"*")
		go r.run(ctx, sub)
	})
	return w
}

// run is the single subscriber goroutine: it consumes pattern-matched
// pub/sub messages on the job-status channel prefix and, for each terminal
// status, finishes the matching Waiter and drops it from the registry
// (spec §4.11's "only writer of terminated"). It exits once
// config.ShuttingDown reports true, checked between message deliveries
// since a blocked channel read has no natural polling point of its own.
func (r *Registry) run(ctx context.Context, sub kv.Subscription) {
	defer sub.Close()

	for {
		if config.ShuttingDown() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			r.handle(msg.Channel, msg.Payload)
		case <-time.After(r.sleep):
		}
	}
}

func (r *Registry) handle(channel, status string) {
	if !strings.HasPrefix(channel, r.prefix) {
		return
	}
	jobID := strings.TrimPrefix(channel, r.prefix)

	r.mu.Lock()
	w, ok := r.byID[jobID]
	if ok && isTerminal(status) {
		delete(r.byID, jobID)
	}
	r.mu.Unlock()

	if !ok {
		r.log.Debug("no waiter registered for job", "job_id", jobID)
		return
	}
	if isTerminal(status) {
		w.finish()
	}
}

func isTerminal(status string) bool {
	return status == "SUCCESS" || status == "FAILURE"
}
