// Package evaluator is the tree-walking interpreter of spec §4.12.
// Grounded on original_source/src/runtime/InterpretWalk.h's per-tag walk
// methods, restructured from that file's C++ exception/assert style into
// Go's explicit (*ast.Node, error) returns, and completed where the
// original left a bare "// FIXME implement this": Call evaluation and
// numeric/string comparison are first-class here rather than stubs,
// per spec §9's resolution that Call evaluation is a required contract.
package evaluator

import (
	"context"
	"io"
	"log/slog"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/serialize"
	"github.com/swarm-lang/swarm/internal/store"
	"github.com/swarm-lang/swarm/internal/swarmerr"
	"github.com/swarm-lang/swarm/internal/tracing"
)

// RemoteEvaluator is the subset of *queue.Queue's surface a DeferCall needs
// to submit a subtree for distributed execution. Declared locally (rather
// than imported from internal/queue) so evaluator has no dependency on the
// queue package — internal/queue already depends on evaluator's sibling
// Evaluator interface the other way around.
type RemoteEvaluator interface {
	Evaluate(ctx context.Context, node *ast.Node, locals []serialize.LocalBinding, filters map[string]string) (*ast.Node, error)
}

// HostFunc is a prologue binding's Go implementation.
type HostFunc func(ctx context.Context, interp *Interpreter, args []*ast.Node) (*ast.Node, error)

// Interpreter walks a typed AST against a symbol value store, dispatching
// Call nodes to either a host HostFunc (prologue bindings) or a
// user-defined function's body, and DeferCall nodes to a RemoteEvaluator.
type Interpreter struct {
	store     store.Store
	remote    RemoteEvaluator
	filters   map[string]string
	prologue  map[string]HostFunc
	log       *slog.Logger
	resources *resourceTable
	closures  *closureTable

	// out overrides print's destination; nil means os.Stdout. Exposed via
	// SetOutput for tests that want to assert on printed output.
	out io.Writer
}

// SetOutput redirects the print prologue binding's output, mainly useful in
// tests; the zero value writes to os.Stdout.
func (i *Interpreter) SetOutput(w io.Writer) { i.out = w }

// SetRemote attaches the RemoteEvaluator a DeferCall submits to, once one
// exists. Exposed as a setter rather than only a New parameter because the
// natural construction order is circular: a *queue.Queue needs an Evaluator
// to build, and here that Evaluator in turn needs the *queue.Queue as its
// RemoteEvaluator.
func (i *Interpreter) SetRemote(remote RemoteEvaluator) { i.remote = remote }

// New returns an Interpreter backed by st. remote may be nil, in which case
// a DeferCall runs locally instead of being queued (spec §6's FORCE_LOCAL).
// filters are this process's own capability filters, attached to any job a
// DeferCall submits.
func New(st store.Store, remote RemoteEvaluator, filters map[string]string, log *slog.Logger) *Interpreter {
	if log == nil {
		log = slog.Default()
	}
	i := &Interpreter{
		store:     st,
		remote:    remote,
		filters:   filters,
		log:       log,
		resources: newResourceTable(),
		closures:  newClosureTable(),
	}
	i.prologue = defaultPrologue()
	return i
}

// withStore returns a shallow copy of i bound to a different store, used to
// evaluate a called function's body against its own fresh local frame while
// still sharing the interpreter's prologue, remote evaluator, and open
// resource table.
func (i *Interpreter) withStore(st store.Store) *Interpreter {
	child := *i
	child.store = st
	return &child
}

// Run evaluates every top-level statement of prog in order and returns the
// last statement's value (nil if the program's last statement produced
// none), matching the original's walkProgramNode accumulating `last`.
func (i *Interpreter) Run(ctx context.Context, prog *ast.Node) (*ast.Node, error) {
	return i.block(ctx, prog)
}

// Evaluate runs node against a captured environment, used as the
// queue.Evaluator a popped job is dispatched to (spec §4.10's work_once).
// Each captured binding is written into the store before evaluation so an
// Identifier in node that names one of them resolves correctly.
func (i *Interpreter) Evaluate(ctx context.Context, node *ast.Node, locals []serialize.LocalBinding) (*ast.Node, error) {
	ctx, span := tracing.StartEvaluate(ctx)
	defer span.End()

	for _, b := range locals {
		if err := i.store.Set(ctx, b.Symbol, b.Value); err != nil {
			return nil, err
		}
	}
	return i.eval(ctx, node)
}

// eval dispatches on node's tag. It returns the node's value for an
// expression, nil for a value-less statement, and propagates a *control
// signal as its error for Break/Continue/Return.
func (i *Interpreter) eval(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	if n == nil {
		return nil, nil
	}

	switch n.Tag {
	case ast.Program, ast.Block:
		return i.block(ctx, n)

	case ast.NumberLiteral, ast.StringLiteral, ast.BoolLiteral, ast.TypeLiteral:
		return n, nil

	case ast.EnumerableLiteral:
		return i.enumerableLiteral(ctx, n)

	case ast.MapLiteral:
		return i.mapLiteral(ctx, n)

	case ast.Identifier:
		return i.store.Get(ctx, n.Symbol)

	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod:
		return i.arithmetic(ctx, n)

	case ast.Lt, ast.Lte, ast.Gt, ast.Gte, ast.Eq, ast.Neq:
		return i.comparison(ctx, n)

	case ast.And, ast.Or:
		return i.logical(ctx, n)

	case ast.Not:
		return i.not(ctx, n)

	case ast.Neg:
		return i.negate(ctx, n)

	case ast.Assign:
		return i.assignStatement(ctx, n)

	case ast.VariableDeclaration:
		return i.variableDeclaration(ctx, n)

	case ast.Return:
		return i.returnStatement(ctx, n)

	case ast.If:
		return i.ifStatement(ctx, n)

	case ast.While:
		return i.whileStatement(ctx, n)

	case ast.Enumerate:
		return i.enumerateStatement(ctx, n)

	case ast.With:
		return i.withStatement(ctx, n)

	case ast.Break:
		return nil, &control{kind: ctrlBreak}

	case ast.Continue:
		return nil, &control{kind: ctrlContinue}

	case ast.Call:
		return i.call(ctx, n)

	case ast.DeferCall:
		return i.deferCall(ctx, n)

	case ast.ClassAccess:
		return i.classAccess(ctx, n)

	case ast.MapAccess:
		return i.mapAccess(ctx, n)

	case ast.EnumerableAccess:
		return i.enumerableAccess(ctx, n)

	case ast.EnumerableAppend:
		return i.enumerableAppend(ctx, n)

	case ast.Function:
		// A named function declaration binds its own symbol to itself so it
		// can be looked up (and can recurse) by name; an anonymous function
		// literal just evaluates to itself as a value.
		if n.Symbol != nil {
			if err := i.store.Set(ctx, n.Symbol, n); err != nil {
				return nil, err
			}
		}
		return n, nil

	case ast.Include, ast.Use, ast.TypeBody, ast.Constructor:
		// Declarations, not executable statements (spec §3's TypeBody and
		// Include/Use are processed entirely by static analysis).
		return nil, nil

	default:
		return nil, swarmerr.New(swarmerr.Runtime, "evaluator: no handler for node tag %s", n.Tag.String())
	}
}

// block runs n's statement list in order, propagating the first error or
// control signal any statement produces and otherwise returning the last
// statement's value.
func (i *Interpreter) block(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	var last *ast.Node
	for _, stmt := range n.Statements {
		v, err := i.eval(ctx, stmt)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}
