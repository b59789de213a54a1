package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/symbols"
)

// Local is an in-memory Store for a single-process interpreter. Locks are
// no-ops that always succeed, since there is only ever one goroutine
// evaluating a given program's main thread (original_source's
// LocalSymbolValueStore: "locks are no-ops... single-threaded").
type Local struct {
	mu     sync.RWMutex
	values map[uuid.UUID]*ast.Node
}

// NewLocal returns an empty Local store.
func NewLocal() *Local {
	return &Local{values: make(map[uuid.UUID]*ast.Node)}
}

func (s *Local) Set(_ context.Context, symbol *symbols.Symbol, value *ast.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[symbol.UUID] = value
	return nil
}

func (s *Local) TryGet(_ context.Context, symbol *symbols.Symbol) (*ast.Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[symbol.UUID]
	return v, ok, nil
}

func (s *Local) Get(ctx context.Context, symbol *symbols.Symbol) (*ast.Node, error) {
	v, ok, err := s.TryGet(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, freeSymbolError(symbol)
	}
	return v, nil
}

func (s *Local) TryLock(context.Context, *symbols.Symbol) (bool, error) { return true, nil }

func (s *Local) Lock(context.Context, *symbols.Symbol) error { return nil }

func (s *Local) Unlock(context.Context, *symbols.Symbol) error { return nil }

func (s *Local) WithLock(ctx context.Context, symbol *symbols.Symbol, fn func() error) error {
	return withLock(ctx,
		func(ctx context.Context) error { return s.Lock(ctx, symbol) },
		func(ctx context.Context) error { return s.Unlock(ctx, symbol) },
		fn)
}
