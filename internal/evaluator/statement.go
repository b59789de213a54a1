package evaluator

import (
	"context"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/swarmerr"
)

// lvalSymbol resolves the Symbol that owns the aggregate an access-style
// lval (MapAccess, EnumerableAccess, ClassAccess) mutates in place: it
// walks down to the Identifier at the root of the access chain. A simple
// Identifier lval is its own symbol.
func lvalSymbol(n *ast.Node) *ast.Node {
	switch n.Tag {
	case ast.Identifier:
		return n
	case ast.MapAccess, ast.ClassAccess, ast.EnumerableAccess:
		return lvalSymbol(n.Left)
	default:
		return nil
	}
}

// assignStatement evaluates the rhs and writes it through the lval. For a
// plain Identifier this is a direct store write; for an access chain onto
// a shared symbol, the containing aggregate is read, mutated in a local
// copy, and written back under the symbol's lock, implementing spec
// §4.12's "for shared aggregates the relevant symbol is locked for the
// read-modify-write."
func (i *Interpreter) assignStatement(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	rval, err := i.eval(ctx, n.Right)
	if err != nil {
		return nil, err
	}
	rval = copyIfPrimitive(rval)

	if err := i.writeLval(ctx, n.Left, rval); err != nil {
		return nil, err
	}
	return rval, nil
}

func (i *Interpreter) writeLval(ctx context.Context, lval *ast.Node, rval *ast.Node) error {
	root := lvalSymbol(lval)
	if root == nil || root.Symbol == nil {
		return swarmerr.At(swarmerr.Runtime, lval.Pos.ToSwarmerr(), "assignment target is not an lval")
	}

	write := func() error {
		switch lval.Tag {
		case ast.Identifier:
			return i.store.Set(ctx, root.Symbol, rval)

		case ast.MapAccess, ast.ClassAccess:
			aggregate, err := i.eval(ctx, lval.Left)
			if err != nil {
				return err
			}
			updated := setMapEntry(aggregate, lval.Name, rval)
			return i.store.Set(ctx, root.Symbol, updated)

		case ast.EnumerableAccess:
			aggregate, err := i.eval(ctx, lval.Left)
			if err != nil {
				return err
			}
			idxNode, err := i.eval(ctx, lval.Right)
			if err != nil {
				return err
			}
			updated, err := setEnumerableEntry(lval.Pos, aggregate, int(idxNode.NumberValue), rval)
			if err != nil {
				return err
			}
			return i.store.Set(ctx, root.Symbol, updated)

		default:
			return swarmerr.At(swarmerr.Runtime, lval.Pos.ToSwarmerr(), "unsupported assignment target %s", lval.Tag.String())
		}
	}

	if root.Symbol.Shared {
		return i.store.WithLock(ctx, root.Symbol, write)
	}
	return write()
}

func setMapEntry(aggregate *ast.Node, key string, value *ast.Node) *ast.Node {
	keys := append([]string(nil), aggregate.MapKeys...)
	elems := append([]*ast.Node(nil), aggregate.Elements...)
	for idx, k := range keys {
		if k == key {
			elems[idx] = value
			return &ast.Node{Tag: ast.MapLiteral, Pos: aggregate.Pos, MapKeys: keys, Elements: elems, ResolvedType: aggregate.ResolvedType}
		}
	}
	keys = append(keys, key)
	elems = append(elems, value)
	return &ast.Node{Tag: ast.MapLiteral, Pos: aggregate.Pos, MapKeys: keys, Elements: elems, ResolvedType: aggregate.ResolvedType}
}

func setEnumerableEntry(pos position.Position, aggregate *ast.Node, index int, value *ast.Node) (*ast.Node, error) {
	if index < 0 || index >= len(aggregate.Elements) {
		return nil, swarmerr.At(swarmerr.Runtime, pos.ToSwarmerr(), "index %d out of range for enumerable of length %d", index, len(aggregate.Elements))
	}
	elems := append([]*ast.Node(nil), aggregate.Elements...)
	elems[index] = value
	return &ast.Node{Tag: ast.EnumerableLiteral, Pos: aggregate.Pos, Elements: elems, ResolvedType: aggregate.ResolvedType}, nil
}

func appendEnumerableEntry(aggregate *ast.Node, value *ast.Node) *ast.Node {
	elems := append(append([]*ast.Node(nil), aggregate.Elements...), value)
	return &ast.Node{Tag: ast.EnumerableLiteral, Pos: aggregate.Pos, Elements: elems, ResolvedType: aggregate.ResolvedType}
}

func (i *Interpreter) variableDeclaration(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	rval, err := i.eval(ctx, n.Value)
	if err != nil {
		return nil, err
	}
	rval = copyIfPrimitive(rval)
	if err := i.store.Set(ctx, n.Dest.Symbol, rval); err != nil {
		return nil, err
	}
	return rval, nil
}

func (i *Interpreter) returnStatement(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	if n.Value == nil {
		return nil, &control{kind: ctrlReturn}
	}
	v, err := i.eval(ctx, n.Value)
	if err != nil {
		return nil, err
	}
	return nil, &control{kind: ctrlReturn, value: v}
}

func (i *Interpreter) ifStatement(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	cond, err := i.eval(ctx, n.Cond)
	if err != nil {
		return nil, err
	}
	if cond.BoolValue {
		return i.block(ctx, n.Then)
	}
	if n.Else != nil {
		return i.block(ctx, n.Else)
	}
	return nil, nil
}

// whileStatement re-evaluates its condition fresh on every iteration
// (spec §9's resolution of the ambiguity in the source's while-loop
// condition handling).
func (i *Interpreter) whileStatement(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	for {
		cond, err := i.eval(ctx, n.Cond)
		if err != nil {
			return nil, err
		}
		if !cond.BoolValue {
			return nil, nil
		}

		_, err = i.block(ctx, n.Body)
		if c, ok := asControl(err); ok {
			if c.kind == ctrlBreak {
				return nil, nil
			}
			if c.kind == ctrlContinue {
				continue
			}
			return nil, err // ctrlReturn propagates out of the loop
		}
		if err != nil {
			return nil, err
		}
	}
}

// enumerateStatement binds the induction variable to each element of the
// evaluated source enumerable in turn and runs the body. A shared
// induction variable is locked for the duration of each iteration's body,
// since the original's own `// TODO account for sharedness` left this
// unresolved (spec §9).
func (i *Interpreter) enumerateStatement(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	src, err := i.eval(ctx, n.Source)
	if err != nil {
		return nil, err
	}
	sym := n.InductionVar.Symbol

	for _, elem := range src.Elements {
		runBody := func() error {
			if err := i.store.Set(ctx, sym, elem); err != nil {
				return err
			}
			_, err := i.block(ctx, n.Body)
			return err
		}

		var err error
		if n.Shared {
			err = i.store.WithLock(ctx, sym, runBody)
		} else {
			err = runBody()
		}

		if c, ok := asControl(err); ok {
			if c.kind == ctrlBreak {
				return nil, nil
			}
			if c.kind == ctrlContinue {
				continue
			}
			return nil, err
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// withStatement opens a prologue resource, binds it, runs the body, and
// releases the resource on every exit path including an error or control
// signal (spec §4.12).
func (i *Interpreter) withStatement(ctx context.Context, n *ast.Node) (ret *ast.Node, reterr error) {
	handle, err := i.eval(ctx, n.Resource)
	if err != nil {
		return nil, err
	}
	if n.Binding != nil && n.Binding.Symbol != nil {
		if err := i.store.Set(ctx, n.Binding.Symbol, handle); err != nil {
			return nil, err
		}
	}

	defer func() {
		if closeErr := i.closeResource(ctx, handle); closeErr != nil && reterr == nil {
			reterr = closeErr
		}
	}()

	return i.block(ctx, n.Body)
}
