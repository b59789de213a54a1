package analyzer

import (
	"math"

	"github.com/swarm-lang/swarm/internal/ast"
)

// RemoveSelfAssignments drops `x = x` statements where both sides denote
// the same symbol and the rhs has no observable side effect, i.e. is not a
// Call (spec §4.6). It returns a new statement slice; tags and positions of
// surviving nodes are untouched.
func RemoveSelfAssignments(statements []*ast.Node) []*ast.Node {
	out := make([]*ast.Node, 0, len(statements))
	for _, stmt := range statements {
		if isSelfAssignment(stmt) {
			continue
		}
		recurseOptimizeStatement(stmt, RemoveSelfAssignments)
		out = append(out, stmt)
	}
	return out
}

func isSelfAssignment(n *ast.Node) bool {
	if n.Tag != ast.Assign {
		return false
	}
	if n.Left.Tag != ast.Identifier || n.Right.Tag != ast.Identifier {
		return false
	}
	return n.Left.Symbol != nil && n.Right.Symbol == n.Left.Symbol
}

// recurseOptimizeStatement applies fn to every nested statement list a
// node owns (block bodies of if/while/enumerate/with/function/constructor),
// so the pass reaches every scope rather than only the top level.
func recurseOptimizeStatement(n *ast.Node, fn func([]*ast.Node) []*ast.Node) {
	switch n.Tag {
	case ast.Block, ast.Program:
		n.Statements = fn(n.Statements)
	case ast.If:
		n.Then.Statements = fn(n.Then.Statements)
		if n.Else != nil {
			n.Else.Statements = fn(n.Else.Statements)
		}
	case ast.While:
		n.Body.Statements = fn(n.Body.Statements)
	case ast.Enumerate, ast.With:
		n.Body.Statements = fn(n.Body.Statements)
	case ast.Function:
		if n.Body != nil {
			n.Body.Statements = fn(n.Body.Statements)
		}
	case ast.TypeBody:
		for _, ctor := range n.Constructors {
			if ctor.Body != nil {
				ctor.Body.Statements = fn(ctor.Body.Statements)
			}
		}
	}
}

// ConstantPropagate folds pure binary/unary operations over literal
// operands and substitutes symbols assigned exactly once from a constant
// literal — within that symbol's scope, and never taken as an LVal
// thereafter — with the literal itself (spec §4.6). It is a no-op on
// programs with no single-assignment-of-literal bindings, as required by
// spec §8's law.
func ConstantPropagate(statements []*ast.Node) []*ast.Node {
	consts := collectSingleAssignConstants(statements)
	out := make([]*ast.Node, 0, len(statements))
	for _, stmt := range statements {
		substituteConstants(stmt, consts)
		foldConstants(stmt)
		recurseOptimizeStatement(stmt, ConstantPropagate)
		out = append(out, stmt)
	}
	return out
}

// collectSingleAssignConstants finds every VariableDeclaration in this
// statement list whose Value is a literal and whose symbol is never the
// target of an Assign/EnumerableAppend afterward within the same list.
func collectSingleAssignConstants(statements []*ast.Node) map[*ast.Node]*ast.Node {
	consts := make(map[*ast.Node]*ast.Node) // node reached via symbol's decl -> literal node, keyed by symbol's decl *ast.Node (the Dest)
	bySymbolDecl := make(map[string]*ast.Node) // symbol UUID -> literal
	mutated := make(map[string]bool)

	for _, stmt := range statements {
		if stmt.Tag == ast.VariableDeclaration && isLiteral(stmt.Value) && stmt.Dest.Symbol != nil {
			bySymbolDecl[stmt.Dest.Symbol.UUID.String()] = stmt.Value
		}
	}
	markMutations(statements, mutated)
	for _, stmt := range statements {
		if stmt.Tag == ast.VariableDeclaration && stmt.Dest.Symbol != nil {
			id := stmt.Dest.Symbol.UUID.String()
			if lit, ok := bySymbolDecl[id]; ok && !mutated[id] {
				consts[stmt.Dest] = lit
			}
		}
	}
	return consts
}

func markMutations(statements []*ast.Node, mutated map[string]bool) {
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		if n.Tag == ast.Assign && n.Left.Tag == ast.Identifier && n.Left.Symbol != nil {
			mutated[n.Left.Symbol.UUID.String()] = true
		}
		if n.Tag == ast.EnumerableAppend && n.Left.Tag == ast.Identifier && n.Left.Symbol != nil {
			mutated[n.Left.Symbol.UUID.String()] = true
		}
		ast.WalkChildren(n, walk)
	}
	for _, stmt := range statements {
		walk(stmt)
	}
}

func isLiteral(n *ast.Node) bool {
	switch n.Tag {
	case ast.NumberLiteral, ast.StringLiteral, ast.BoolLiteral:
		return true
	default:
		return false
	}
}

// substituteConstants replaces every Identifier read that resolves to a
// tracked symbol with a copy of its literal, in place.
func substituteConstants(n *ast.Node, consts map[*ast.Node]*ast.Node) {
	if n == nil {
		return
	}
	var walk func(n *ast.Node)
	walk = func(cur *ast.Node) {
		if cur == nil {
			return
		}
		ast.WalkChildren(cur, func(child *ast.Node) {
			if cur.Tag == ast.VariableDeclaration && child == cur.Dest {
				return
			}
			if child.Tag == ast.Identifier && child.Symbol != nil {
				for declNode, lit := range consts {
					if declNode.Symbol == child.Symbol {
						*child = *lit
						return
					}
				}
			}
			walk(child)
		})
	}
	walk(n)
}

// foldConstants folds pure binary/unary operations over literal operands,
// bottom-up, within n.
func foldConstants(n *ast.Node) {
	ast.WalkChildren(n, foldConstants)
	switch n.Tag {
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod:
		if n.Left.Tag == ast.NumberLiteral && n.Right.Tag == ast.NumberLiteral {
			if v, ok := foldArith(n.Tag, n.Left.NumberValue, n.Right.NumberValue); ok {
				n.Tag = ast.NumberLiteral
				n.NumberValue = v
				n.Left, n.Right = nil, nil
			}
		} else if n.Tag == ast.Add && n.Left.Tag == ast.StringLiteral && n.Right.Tag == ast.StringLiteral {
			n.Tag = ast.StringLiteral
			n.StringValue = n.Left.StringValue + n.Right.StringValue
			n.Left, n.Right = nil, nil
		}
	case ast.Neg:
		if n.Left.Tag == ast.NumberLiteral {
			n.Tag = ast.NumberLiteral
			n.NumberValue = -n.Left.NumberValue
			n.Left = nil
		}
	case ast.Not:
		if n.Left.Tag == ast.BoolLiteral {
			n.Tag = ast.BoolLiteral
			n.BoolValue = !n.Left.BoolValue
			n.Left = nil
		}
	case ast.And:
		if n.Left.Tag == ast.BoolLiteral && n.Right.Tag == ast.BoolLiteral {
			n.Tag = ast.BoolLiteral
			n.BoolValue = n.Left.BoolValue && n.Right.BoolValue
			n.Left, n.Right = nil, nil
		}
	case ast.Or:
		if n.Left.Tag == ast.BoolLiteral && n.Right.Tag == ast.BoolLiteral {
			n.Tag = ast.BoolLiteral
			n.BoolValue = n.Left.BoolValue || n.Right.BoolValue
			n.Left, n.Right = nil, nil
		}
	}
}

func foldArith(tag ast.Tag, l, r float64) (float64, bool) {
	switch tag {
	case ast.Add:
		return l + r, true
	case ast.Sub:
		return l - r, true
	case ast.Mul:
		return l * r, true
	case ast.Div:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case ast.Mod:
		if r == 0 {
			return 0, false
		}
		li, ri := math.Round(l), math.Round(r)
		if ri == 0 {
			return 0, false
		}
		return math.Mod(li, ri), true
	}
	return 0, false
}
