package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/symbols"
	"github.com/swarm-lang/swarm/internal/typesystem"
)

func pos() position.Position { return position.Position{File: "t.swm", StartLine: 1, EndLine: 1} }

func numberLit(v float64) *ast.Node {
	return &ast.Node{Tag: ast.NumberLiteral, Pos: pos(), NumberValue: v, ResolvedType: typesystem.TNumber}
}

func TestLocalGetFailsFreeSymbolBeforeSet(t *testing.T) {
	s := NewLocal()
	sym := symbols.New("x", symbols.Variable, pos(), false)

	_, err := s.Get(context.Background(), sym)
	require.Error(t, err)
}

func TestLocalSetThenGetRoundTrips(t *testing.T) {
	s := NewLocal()
	sym := symbols.New("x", symbols.Variable, pos(), false)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, sym, numberLit(3)))

	v, err := s.Get(ctx, sym)
	require.NoError(t, err)
	require.Equal(t, 3.0, v.NumberValue)

	_, ok, err := s.TryGet(ctx, sym)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLocalLocksAreAlwaysAvailable(t *testing.T) {
	s := NewLocal()
	sym := symbols.New("x", symbols.Variable, pos(), false)
	ctx := context.Background()

	ok, err := s.TryLock(ctx, sym)
	require.NoError(t, err)
	require.True(t, ok)

	ran := false
	require.NoError(t, s.WithLock(ctx, sym, func() error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}
