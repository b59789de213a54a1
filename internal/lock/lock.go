// Package lock implements the named advisory lock manager of spec §4.9: a
// process-local registry of re-entrant locks, each backed by a SETNX in
// the shared KV store for mutual exclusion across processes. Grounded on
// original_source/src/runtime/queue/Lock.h's tryToAcquire/acquire/release
// shape, generalized from an infinite retry loop to the bounded
// LOCK_MAX_RETRIES budget spec §4.9/§7 calls for (LOCK_TIMEOUT on
// exhaustion).
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swarm-lang/swarm/internal/kv"
	"github.com/swarm-lang/swarm/internal/metrics"
	"github.com/swarm-lang/swarm/internal/swarmerr"
)

// Lock is one named mutual-exclusion point. It is re-entrant within a
// single process (a holders counter) and mutually exclusive across
// processes via a Redis SETNX at lock:<name>.
type Lock struct {
	name       string
	holderUUID string
	store      kv.Store
	sleep      time.Duration
	maxRetries int
	manager    *Manager

	mu      sync.Mutex
	holders int
}

func keyFor(name string) string { return "lock:" + name }

// TryAcquire attempts a single SETNX; true iff the key was not already
// present.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if l.holders > 0 {
		l.holders++
		l.mu.Unlock()
		return true, nil
	}
	l.mu.Unlock()

	ok, err := l.store.SetNX(ctx, keyFor(l.name), l.holderUUID, 0)
	if err != nil {
		return false, err
	}
	if ok {
		l.mu.Lock()
		l.holders++
		l.mu.Unlock()
	}
	return ok, nil
}

// Acquire spins with a bounded sleep until TryAcquire succeeds, raising
// LOCK_TIMEOUT once LOCK_MAX_RETRIES is exhausted (spec §4.9, §7).
func (l *Lock) Acquire(ctx context.Context) error {
	start := time.Now()
	for attempt := 0; ; attempt++ {
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			metrics.ObserveLockWait(l.name, time.Since(start).Seconds())
			return nil
		}
		if attempt >= l.maxRetries {
			metrics.RecordLockTimeout(l.name)
			return swarmerr.New(swarmerr.LockTimeout, "lock %q: exceeded %d retries", l.name, l.maxRetries)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.sleep):
		}
	}
}

// Release decrements the holder count; when it drops to zero and this
// process's uuid still owns the Redis key, it deletes the key.
func (l *Lock) Release(ctx context.Context) error {
	l.mu.Lock()
	if l.holders == 0 {
		l.mu.Unlock()
		return nil
	}
	l.holders--
	stillHeld := l.holders > 0
	l.mu.Unlock()

	if stillHeld {
		return nil
	}

	owner, err := l.store.Get(ctx, keyFor(l.name))
	if err != nil && err != kv.ErrNotFound {
		return err
	}
	if owner == l.holderUUID {
		if err := l.store.Del(ctx, keyFor(l.name)); err != nil {
			return err
		}
		l.manager.drop(l.name)
	}
	return nil
}

// WithLock runs fn while l is held, guaranteeing release on every exit
// path including a panic or error return (spec §4.8's with_lock, §7's
// "always paired via scoped acquisition on every exit path").
func (l *Lock) WithLock(ctx context.Context, fn func() error) (err error) {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		if releaseErr := l.Release(ctx); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	return fn()
}

// Manager is the process-local registry of Locks, one per name, append-
// only until a lock's holder count drops to zero (spec §5's note on the
// registry's concurrency discipline).
type Manager struct {
	store      kv.Store
	sleep      time.Duration
	maxRetries int

	mu    sync.Mutex
	locks map[string]*Lock
}

// NewManager builds a registry backed by store, using sleep between
// acquire retries and failing after maxRetries attempts.
func NewManager(store kv.Store, sleep time.Duration, maxRetries int) *Manager {
	return &Manager{store: store, sleep: sleep, maxRetries: maxRetries, locks: make(map[string]*Lock)}
}

// Get returns the Lock for name, creating it on first reference.
func (m *Manager) Get(name string) *Lock {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[name]; ok {
		return l
	}
	l := &Lock{
		name:       name,
		holderUUID: uuid.New().String(),
		store:      m.store,
		sleep:      m.sleep,
		maxRetries: m.maxRetries,
		manager:    m,
	}
	m.locks[name] = l
	return l
}

// drop removes name's registry entry once its holder count has reached
// zero and the shared key has been deleted (spec §4.9).
func (m *Manager) drop(name string) {
	m.mu.Lock()
	delete(m.locks, name)
	m.mu.Unlock()
}
