// Package analyzer implements Swarm's two static passes — name analysis and
// type analysis — plus the optional constant-propagation and
// self-assignment-removal optimizations that run after them (spec §4.4,
// §4.5, §4.6). Both passes are a single traversal each; type analysis is
// strictly post-order, name analysis is pre-order for scope management and
// post-order for resolution, exactly as spec'd.
package analyzer

import (
	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/swarmerr"
	"github.com/swarm-lang/swarm/internal/symbols"
)

// NameAnalyzer binds every Identifier node to a declaration-site Symbol and
// computes each Function node's captured-variable set.
type NameAnalyzer struct {
	table *symbols.Table
	errs  swarmerr.List

	// declDepth records the scope depth each symbol was declared at, so a
	// later reference can tell whether it crosses a function boundary
	// (spec §4.4's captured-variable computation).
	declDepth map[*symbols.Symbol]int

	// onResolve, when non-nil, is notified of every successful identifier
	// resolution along with the depth its symbol was declared at.
	// captureTracking installs/restores it around a function body so
	// nested closures each get their own capture set.
	onResolve func(sym *symbols.Symbol, declDepth int)
}

// NewNameAnalyzer returns an analyzer backed by a fresh symbol table.
func NewNameAnalyzer() *NameAnalyzer {
	return &NameAnalyzer{table: symbols.NewTable(), declDepth: make(map[*symbols.Symbol]int)}
}

// Analyze runs name resolution over prog (a PROGRAM node) and returns the
// populated symbol table. A non-nil error is always a *swarmerr.List.
func (a *NameAnalyzer) Analyze(prog *ast.Node) (*symbols.Table, error) {
	for _, stmt := range prog.Statements {
		a.statement(stmt)
	}
	return a.table, a.errs.AsList()
}

func (a *NameAnalyzer) fail(kind swarmerr.Kind, pos position.Position, format string, args ...any) {
	a.errs.Add(swarmerr.At(kind, pos, format, args...))
}

// declareSimple declares an identifier-shaped lval as a new symbol of kind,
// failing NAME_SHARED_VIOLATION if dest is not actually an Identifier (only
// reachable via a malformed or adversarially deserialized tree, since the
// in-process constructors always build Dest as an Identifier).
func (a *NameAnalyzer) declareSimple(dest *ast.Node, kind symbols.Kind, shared bool) *symbols.Symbol {
	if dest.Tag != ast.Identifier {
		a.fail(swarmerr.NameSharedViolate, dest.Pos, "shared modifier on a non-assignable site")
		return nil
	}
	sym, err := a.table.DeclareAt(dest.Name, kind, dest.Pos, shared)
	if err != nil {
		a.errs.Add(err)
		return nil
	}
	dest.Symbol = sym
	a.declDepth[sym] = a.table.Depth()
	return sym
}

func (a *NameAnalyzer) statement(n *ast.Node) {
	switch n.Tag {
	case ast.VariableDeclaration:
		a.expression(n.Value)
		a.declareSimple(n.Dest, symbols.Variable, n.Shared)

	case ast.Return:
		if n.Value != nil {
			a.expression(n.Value)
		}

	case ast.Function:
		a.function(n)

	case ast.If:
		a.expression(n.Cond)
		a.block(n.Then)
		if n.Else != nil {
			a.block(n.Else)
		}

	case ast.While:
		a.expression(n.Cond)
		a.block(n.Body)

	case ast.Enumerate:
		a.expression(n.Source)
		a.table.EnterScope()
		a.declareSimple(n.InductionVar, symbols.Variable, n.Shared)
		for _, stmt := range n.Body.Statements {
			a.statement(stmt)
		}
		a.table.LeaveScope()

	case ast.With:
		a.expression(n.Resource)
		a.table.EnterScope()
		a.declareSimple(n.Binding, symbols.Variable, false)
		for _, stmt := range n.Body.Statements {
			a.statement(stmt)
		}
		a.table.LeaveScope()

	case ast.Break, ast.Continue, ast.Include:
		// No bindings, no sub-expressions.

	case ast.Use:
		// A use clause names at most one id (single inheritance, spec §3);
		// it introduces that name as a symbol. Type analysis assigns that
		// symbol no type: a TypeBody's parent is taken from its Parent field.
		if n.Left != nil {
			a.declareSimple(n.Left, symbols.Variable, false)
		}

	case ast.TypeBody:
		a.typeBody(n)

	case ast.Block:
		a.block(n)

	default:
		// Everything else is an expression used in statement position
		// (e.g. a bare Call or Assign).
		a.expression(n)
	}
}

func (a *NameAnalyzer) block(n *ast.Node) {
	a.table.EnterScope()
	for _, stmt := range n.Statements {
		a.statement(stmt)
	}
	a.table.LeaveScope()
}

func (a *NameAnalyzer) function(n *ast.Node) {
	// The function's own name is visible in the enclosing scope so it can
	// recurse; an anonymous function literal (Name == "") skips this.
	if n.Name != "" {
		sym, err := a.table.DeclareAt(n.Name, symbols.Function, n.Pos, false)
		if err != nil {
			a.errs.Add(err)
		} else {
			n.Symbol = sym
			a.declDepth[sym] = a.table.Depth()
		}
	}

	entryDepth := a.table.Depth()
	a.table.EnterScope()
	for _, p := range n.Params {
		sym, err := a.table.DeclareAt(p.Name, symbols.Variable, n.Pos, false)
		if err != nil {
			a.errs.Add(err)
		} else {
			p.Symbol = sym
			a.declDepth[sym] = a.table.Depth()
		}
	}

	if n.Body != nil {
		n.Captured = a.captureTracking(n.Body, entryDepth)
	}
	a.table.LeaveScope()
}

// captureTracking walks body resolving identifiers as usual, but also
// records, for every symbol resolved whose declaring frame is outside this
// function's own frames (depth <= entryDepth), that it is a captured free
// variable (spec §4.4).
func (a *NameAnalyzer) captureTracking(body *ast.Node, entryDepth int) []*symbols.Symbol {
	seen := make(map[*symbols.Symbol]bool)
	var captured []*symbols.Symbol
	prevHook := a.onResolve
	a.onResolve = func(sym *symbols.Symbol, declDepth int) {
		if declDepth <= entryDepth && !seen[sym] {
			seen[sym] = true
			captured = append(captured, sym)
		}
		if prevHook != nil {
			prevHook(sym, declDepth)
		}
	}
	for _, stmt := range body.Statements {
		a.statement(stmt)
	}
	a.onResolve = prevHook
	return captured
}

func (a *NameAnalyzer) expression(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Tag {
	case ast.Identifier:
		sym, ok := a.table.Lookup(n.Name)
		if !ok {
			a.fail(swarmerr.NameUndeclared, n.Pos, "undeclared identifier %q", n.Name)
			return
		}
		n.Symbol = sym
		if a.onResolve != nil {
			a.onResolve(sym, a.declDepth[sym])
		}

	case ast.NumberLiteral, ast.StringLiteral, ast.BoolLiteral, ast.TypeLiteral:
		// Leaves; nothing to resolve.

	case ast.EnumerableLiteral, ast.MapLiteral:
		for _, e := range n.Elements {
			a.expression(e)
		}

	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod,
		ast.Lt, ast.Lte, ast.Gt, ast.Gte, ast.Eq, ast.Neq, ast.And, ast.Or:
		a.expression(n.Left)
		a.expression(n.Right)

	case ast.Not, ast.Neg:
		a.expression(n.Left)

	case ast.Assign:
		a.expression(n.Right)
		a.lval(n.Left)

	case ast.Call, ast.DeferCall:
		a.expression(n.Target)
		for _, arg := range n.Args {
			a.expression(arg)
		}

	case ast.ClassAccess:
		a.expression(n.Left)
		// n.Name (member) is resolved structurally during type analysis,
		// not against the lexical scope.

	case ast.MapAccess:
		a.expression(n.Left)
		// Key is a bare identifier not resolved against scope (spec §4.5).

	case ast.EnumerableAccess:
		a.expression(n.Left)
		a.expression(n.Right)

	case ast.EnumerableAppend:
		a.lval(n.Left)
		a.expression(n.Right)

	case ast.Function:
		a.function(n)

	default:
		a.fail(swarmerr.Parse, n.Pos, "unexpected node %s in expression position", n.Tag)
	}
}

func (a *NameAnalyzer) lval(n *ast.Node) {
	if !n.IsLval() {
		a.fail(swarmerr.NameSharedViolate, n.Pos, "%s is not an assignable expression", n.Tag)
		return
	}
	a.expression(n)
}

func (a *NameAnalyzer) typeBody(n *ast.Node) {
	a.table.EnterScope()
	for _, ctor := range n.Constructors {
		entryDepth := a.table.Depth()
		a.table.EnterScope()
		for _, p := range ctor.Params {
			sym, err := a.table.DeclareAt(p.Name, symbols.Variable, ctor.Pos, false)
			if err != nil {
				a.errs.Add(err)
			} else {
				p.Symbol = sym
				a.declDepth[sym] = a.table.Depth()
			}
		}
		if ctor.Body != nil {
			ctor.Captured = a.captureTracking(ctor.Body, entryDepth)
		}
		a.table.LeaveScope()
	}
	a.table.LeaveScope()
}
