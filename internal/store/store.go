// Package store implements the symbol value store of spec §4.8: the
// runtime's environment, mapping a symbol to the expression value currently
// bound to it. Local backs a single-process interpreter with an in-memory
// map and no-op locks (original_source/src/runtime/LocalSymbolValueStore.h).
// Shared backs a distributed run with a Redis string per symbol and the
// named lock manager from internal/lock
// (original_source/src/runtime/SharedSymbolValueStore.h).
package store

import (
	"context"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/swarmerr"
	"github.com/swarm-lang/swarm/internal/symbols"
)

// Store maps symbols to the expression node currently bound to them, plus a
// named lock per symbol for resources that need explicit mutual exclusion
// (spec §4.8's with_lock / §4.13's TagResourceNode).
type Store interface {
	Set(ctx context.Context, symbol *symbols.Symbol, value *ast.Node) error

	// TryGet returns (value, true, nil) if symbol is bound, (nil, false, nil)
	// if it is free.
	TryGet(ctx context.Context, symbol *symbols.Symbol) (*ast.Node, bool, error)

	// Get returns the bound value, failing FREE_SYMBOL if none is set.
	Get(ctx context.Context, symbol *symbols.Symbol) (*ast.Node, error)

	TryLock(ctx context.Context, symbol *symbols.Symbol) (bool, error)
	Lock(ctx context.Context, symbol *symbols.Symbol) error
	Unlock(ctx context.Context, symbol *symbols.Symbol) error

	// WithLock runs fn while symbol's lock is held, releasing it on every
	// exit path including a panic or error return.
	WithLock(ctx context.Context, symbol *symbols.Symbol, fn func() error) error
}

func freeSymbolError(sym *symbols.Symbol) *swarmerr.Error {
	return swarmerr.New(swarmerr.FreeSymbol, "free symbol: %s", sym.Name)
}

// withLock is the acquire/defer-release wrapper shared by both
// implementations' WithLock, mirroring
// ISymbolValueStore::withLockedSymbol's try/unlock-on-any-exit shape.
func withLock(ctx context.Context, lockFn func(context.Context) error, unlockFn func(context.Context) error, fn func() error) (err error) {
	if err := lockFn(ctx); err != nil {
		return err
	}
	defer func() {
		if unlockErr := unlockFn(ctx); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}()
	return fn()
}
