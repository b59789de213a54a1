package evaluator

import (
	"context"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/typesystem"
)

func numberLit(v float64) *ast.Node {
	return &ast.Node{Tag: ast.NumberLiteral, NumberValue: v, ResolvedType: typesystem.TNumber}
}

func stringLit(v string) *ast.Node {
	return &ast.Node{Tag: ast.StringLiteral, StringValue: v, ResolvedType: typesystem.TString}
}

func boolLit(v bool) *ast.Node {
	return &ast.Node{Tag: ast.BoolLiteral, BoolValue: v, ResolvedType: typesystem.TBool}
}

// copyIfPrimitive returns a fresh node for a primitive literal so storing
// it under a second symbol does not alias the first, and returns rval
// unchanged for aggregate (enumerable/map) values, which are reference
// types (spec §4.12's Assign note; grounded on InterpretWalk.h's
// `if (rval->type()->isPrimitiveType()) rval = rval->copy();`).
func copyIfPrimitive(rval *ast.Node) *ast.Node {
	switch rval.Tag {
	case ast.NumberLiteral, ast.StringLiteral, ast.BoolLiteral:
		cp := *rval
		return &cp
	default:
		return rval
	}
}

func (i *Interpreter) enumerableLiteral(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	elems := make([]*ast.Node, len(n.Elements))
	for idx, e := range n.Elements {
		v, err := i.eval(ctx, e)
		if err != nil {
			return nil, err
		}
		elems[idx] = v
	}
	return &ast.Node{Tag: ast.EnumerableLiteral, Pos: n.Pos, Elements: elems, ResolvedType: n.ResolvedType}, nil
}

func (i *Interpreter) mapLiteral(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	elems := make([]*ast.Node, len(n.Elements))
	for idx, e := range n.Elements {
		v, err := i.eval(ctx, e)
		if err != nil {
			return nil, err
		}
		elems[idx] = v
	}
	keys := make([]string, len(n.MapKeys))
	copy(keys, n.MapKeys)
	return &ast.Node{Tag: ast.MapLiteral, Pos: n.Pos, MapKeys: keys, Elements: elems, ResolvedType: n.ResolvedType}, nil
}

// lookupMapEntry finds key among aggregate's parallel MapKeys/Elements,
// used for both MapAccess and ClassAccess reads (an object is represented
// as a map literal keyed by property name).
func lookupMapEntry(aggregate *ast.Node, key string) (*ast.Node, bool) {
	for idx, k := range aggregate.MapKeys {
		if k == key {
			return aggregate.Elements[idx], true
		}
	}
	return nil, false
}
