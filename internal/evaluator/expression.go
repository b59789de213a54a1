package evaluator

import (
	"context"
	"math"
	"sync"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/serialize"
	"github.com/swarm-lang/swarm/internal/store"
	"github.com/swarm-lang/swarm/internal/swarmerr"
	"github.com/swarm-lang/swarm/internal/symbols"
)

// arithmetic evaluates Add/Sub/Mul/Div/Mod. Add on two strings concatenates
// (n.Concatenation, set by type analysis); every other combination is
// numeric. Modulus operates on rounded integers and division or modulus by
// zero raises RUNTIME (spec §9 "Numeric ops follow IEEE-754 double
// semantics; modulus is on rounded integers; division by zero raises
// RUNTIME").
func (i *Interpreter) arithmetic(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	left, err := i.eval(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.eval(ctx, n.Right)
	if err != nil {
		return nil, err
	}

	if n.Tag == ast.Add && n.Concatenation {
		return stringLit(left.StringValue + right.StringValue), nil
	}

	l, r := left.NumberValue, right.NumberValue
	switch n.Tag {
	case ast.Add:
		return numberLit(l + r), nil
	case ast.Sub:
		return numberLit(l - r), nil
	case ast.Mul:
		return numberLit(l * r), nil
	case ast.Div:
		if r == 0 {
			return nil, swarmerr.At(swarmerr.Runtime, n.Pos.ToSwarmerr(), "division by zero")
		}
		return numberLit(l / r), nil
	case ast.Mod:
		li, ri := math.Round(l), math.Round(r)
		if ri == 0 {
			return nil, swarmerr.At(swarmerr.Runtime, n.Pos.ToSwarmerr(), "modulus by zero")
		}
		return numberLit(math.Mod(li, ri)), nil
	default:
		return nil, swarmerr.New(swarmerr.Runtime, "evaluator: unreachable arithmetic tag %s", n.Tag.String())
	}
}

// comparison evaluates Lt/Lte/Gt/Gte (numeric only, enforced by static
// analysis) and Eq/Neq (structural equality over any one matching type).
func (i *Interpreter) comparison(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	left, err := i.eval(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.eval(ctx, n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Tag {
	case ast.Lt:
		return boolLit(left.NumberValue < right.NumberValue), nil
	case ast.Lte:
		return boolLit(left.NumberValue <= right.NumberValue), nil
	case ast.Gt:
		return boolLit(left.NumberValue > right.NumberValue), nil
	case ast.Gte:
		return boolLit(left.NumberValue >= right.NumberValue), nil
	case ast.Eq:
		return boolLit(valuesEqual(left, right)), nil
	case ast.Neq:
		return boolLit(!valuesEqual(left, right)), nil
	default:
		return nil, swarmerr.New(swarmerr.Runtime, "evaluator: unreachable comparison tag %s", n.Tag.String())
	}
}

// valuesEqual is structural equality over runtime values, used by Eq/Neq.
// Type analysis already guarantees both sides share a type, so the switch
// only needs to handle one shape per tag.
func valuesEqual(a, b *ast.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch a.Tag {
	case ast.NumberLiteral:
		return a.NumberValue == b.NumberValue
	case ast.StringLiteral:
		return a.StringValue == b.StringValue
	case ast.BoolLiteral:
		return a.BoolValue == b.BoolValue
	case ast.EnumerableLiteral:
		if len(a.Elements) != len(b.Elements) {
			return false
		}
		for idx := range a.Elements {
			if !valuesEqual(a.Elements[idx], b.Elements[idx]) {
				return false
			}
		}
		return true
	case ast.MapLiteral:
		if len(a.MapKeys) != len(b.MapKeys) {
			return false
		}
		for idx, key := range a.MapKeys {
			bv, ok := lookupMapEntry(b, key)
			if !ok || !valuesEqual(a.Elements[idx], bv) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func (i *Interpreter) logical(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	left, err := i.eval(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	if n.Tag == ast.And && !left.BoolValue {
		return boolLit(false), nil
	}
	if n.Tag == ast.Or && left.BoolValue {
		return boolLit(true), nil
	}
	return i.eval(ctx, n.Right)
}

func (i *Interpreter) not(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	v, err := i.eval(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	return boolLit(!v.BoolValue), nil
}

func (i *Interpreter) negate(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	v, err := i.eval(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	return numberLit(-v.NumberValue), nil
}

func (i *Interpreter) mapAccess(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	aggregate, err := i.eval(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	v, ok := lookupMapEntry(aggregate, n.Name)
	if !ok {
		return nil, swarmerr.At(swarmerr.Runtime, n.Pos.ToSwarmerr(), "map has no key %q", n.Name)
	}
	return v, nil
}

// classAccess reads a property off an object value. Object construction
// (Constructor/TypeBody evaluation) is out of scope here, mirroring the
// source interpreter's own gap, but once a map-shaped value exists —
// whatever produced it — property access against it works the same way
// map access does, since both are string-keyed aggregates under the hood.
func (i *Interpreter) classAccess(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	aggregate, err := i.eval(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	v, ok := lookupMapEntry(aggregate, n.Name)
	if !ok {
		return nil, swarmerr.At(swarmerr.Runtime, n.Pos.ToSwarmerr(), "object has no member %q", n.Name)
	}
	return v, nil
}

func (i *Interpreter) enumerableAccess(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	aggregate, err := i.eval(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	idxNode, err := i.eval(ctx, n.Right)
	if err != nil {
		return nil, err
	}
	idx := int(idxNode.NumberValue)
	if idx < 0 || idx >= len(aggregate.Elements) {
		return nil, swarmerr.At(swarmerr.Runtime, n.Pos.ToSwarmerr(), "index %d out of range for enumerable of length %d", idx, len(aggregate.Elements))
	}
	return aggregate.Elements[idx], nil
}

// enumerableAppend evaluates the value and appends it to the enumerable
// named by n.Left, writing the new enumerable back to that lval's root
// symbol (spec §4.12, and §4.5's note that EnumerableAppend is its own
// statement form rather than sugar for an Assign).
func (i *Interpreter) enumerableAppend(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	root := lvalSymbol(n.Left)
	if root == nil || root.Symbol == nil {
		return nil, swarmerr.At(swarmerr.Runtime, n.Pos.ToSwarmerr(), "append target is not an lval")
	}
	val, err := i.eval(ctx, n.Right)
	if err != nil {
		return nil, err
	}
	val = copyIfPrimitive(val)

	var result *ast.Node
	mutate := func() error {
		aggregate, err := i.eval(ctx, n.Left)
		if err != nil {
			return err
		}
		result = appendEnumerableEntry(aggregate, val)
		return i.store.Set(ctx, root.Symbol, result)
	}

	var mutateErr error
	if root.Symbol.Shared {
		mutateErr = i.store.WithLock(ctx, root.Symbol, mutate)
	} else {
		mutateErr = mutate()
	}
	if mutateErr != nil {
		return nil, mutateErr
	}
	return result, nil
}

// closure is the runtime state of a partially- or fully-applied function
// value: the declared FUNCTION node plus a frame holding every parameter
// bound so far (and, once bound=0, the values of its captured free
// variables, copied from whatever store was active when it was first
// referenced as a value).
type closure struct {
	fn    *ast.Node
	frame store.Store
	bound int
}

// closureTable maps each partial-application node eval produced to the
// closure it represents, keyed by pointer identity: every partial
// application allocates a fresh clone of the FUNCTION node, so identity is
// unambiguous. Shared across every frame an Interpreter spawns, same as
// resourceTable.
type closureTable struct {
	mu   sync.Mutex
	byFn map[*ast.Node]*closure
}

func newClosureTable() *closureTable {
	return &closureTable{byFn: make(map[*ast.Node]*closure)}
}

func (ct *closureTable) get(fn *ast.Node) (*closure, bool) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	c, ok := ct.byFn[fn]
	return c, ok
}

func (ct *closureTable) bind(fn *ast.Node, c *closure) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.byFn[fn] = c
}

// call evaluates a CALL node: a prologue binding invokes its host function
// directly; a user function's arguments are applied one at a time, left to
// right, so a call that supplies fewer arguments than the function's arity
// yields a new partially-applied value rather than running the body (spec
// §9's curried partial application). A niladic function has no parameter to
// fold an argument onto, so a zero-Args call against one runs its body
// immediately instead of falling through the Args loop untouched — the
// syntactic parentheses of a call always mean "invoke", independent of
// arity (grounded on builtins.go's clock, whose LambdaOf(nil, ...) collapses
// to its bare return type with no Lambda layer to unwind).
func (i *Interpreter) call(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	if n.Target.Tag == ast.Identifier && n.Target.Symbol != nil && n.Target.Symbol.IsPrologue {
		return i.callPrologue(ctx, n)
	}

	cur, err := i.eval(ctx, n.Target)
	if err != nil {
		return nil, err
	}

	if len(n.Args) == 0 {
		if cur != nil && cur.Tag == ast.Function && len(cur.Params) == 0 {
			return i.invoke(ctx, cur)
		}
		return cur, nil
	}

	for _, argExpr := range n.Args {
		argVal, err := i.eval(ctx, argExpr)
		if err != nil {
			return nil, err
		}
		cur, err = i.applyOne(ctx, cur, argVal)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (i *Interpreter) callPrologue(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	host, ok := i.prologue[n.Target.Symbol.Name]
	if !ok {
		return nil, swarmerr.At(swarmerr.Runtime, n.Pos.ToSwarmerr(), "no host implementation registered for prologue binding %q", n.Target.Symbol.Name)
	}
	args := make([]*ast.Node, len(n.Args))
	for idx, a := range n.Args {
		v, err := i.eval(ctx, a)
		if err != nil {
			return nil, err
		}
		args[idx] = v
	}
	return host(ctx, i, args)
}

// applyOne binds argVal to callee's next unbound parameter, running the
// body once every parameter has a value and otherwise returning a new
// partial-application node standing for the remaining curried arity.
func (i *Interpreter) applyOne(ctx context.Context, callee *ast.Node, argVal *ast.Node) (*ast.Node, error) {
	if callee == nil || callee.Tag != ast.Function {
		return nil, swarmerr.New(swarmerr.Runtime, "evaluator: cannot call a non-function value")
	}

	cl, ok := i.closures.get(callee)
	if !ok {
		cl = &closure{fn: callee, frame: i.freshFrame(ctx, callee.Captured)}
	}

	param := cl.fn.Params[cl.bound]
	if err := cl.frame.Set(ctx, param.Symbol, argVal); err != nil {
		return nil, err
	}
	cl.bound++

	if cl.bound < len(cl.fn.Params) {
		partial := &ast.Node{Tag: ast.Function, Pos: cl.fn.Pos, Name: cl.fn.Name,
			Params: cl.fn.Params, Body: cl.fn.Body, Captured: cl.fn.Captured, ResolvedType: cl.fn.ResolvedType}
		i.closures.bind(partial, cl)
		return partial, nil
	}

	return i.runBody(ctx, cl)
}

// invoke runs fn's body immediately against a fresh frame of its captured
// variables, used for a niladic function where there is no parameter to
// bind before the call is already fully applied.
func (i *Interpreter) invoke(ctx context.Context, fn *ast.Node) (*ast.Node, error) {
	cl, ok := i.closures.get(fn)
	if !ok {
		cl = &closure{fn: fn, frame: i.freshFrame(ctx, fn.Captured)}
	}
	return i.runBody(ctx, cl)
}

// runBody executes cl.fn's body against cl.frame once every parameter (if
// any) is bound, unwrapping a Return control signal into its value and
// falling off the end of the body into VOID (spec §4.12).
func (i *Interpreter) runBody(ctx context.Context, cl *closure) (*ast.Node, error) {
	child := i.withStore(cl.frame)
	_, err := child.block(ctx, cl.fn.Body)
	if c, ok := asControl(err); ok {
		if c.kind == ctrlReturn {
			return c.value, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// freshFrame builds the local store a function call's body runs against,
// pre-populated with the current value of every free variable it captures.
func (i *Interpreter) freshFrame(ctx context.Context, captured []*symbols.Symbol) store.Store {
	frame := store.NewLocal()
	for _, sym := range captured {
		if v, err := i.store.Get(ctx, sym); err == nil {
			_ = frame.Set(ctx, sym, v)
		}
	}
	return frame
}

// deferCall submits a CALL for distributed execution instead of running it
// in-process (spec §4.10). A call to a prologue binding always runs
// locally, since host functions are not distributable. With no
// RemoteEvaluator configured, DeferCall degrades to an ordinary local Call
// (spec §6's FORCE_LOCAL mode).
func (i *Interpreter) deferCall(ctx context.Context, n *ast.Node) (*ast.Node, error) {
	if n.Target.Tag == ast.Identifier && n.Target.Symbol != nil && n.Target.Symbol.IsPrologue {
		return i.call(ctx, n)
	}
	if i.remote == nil {
		return i.call(ctx, n)
	}

	target, err := i.eval(ctx, n.Target)
	if err != nil {
		return nil, err
	}
	args := make([]*ast.Node, len(n.Args))
	for idx, a := range n.Args {
		v, err := i.eval(ctx, a)
		if err != nil {
			return nil, err
		}
		args[idx] = v
	}

	callNode := &ast.Node{Tag: ast.Call, Pos: n.Pos, Target: target, Args: args, ResolvedType: n.ResolvedType}
	locals := i.captureLocals(ctx, target)
	return i.remote.Evaluate(ctx, callNode, locals, i.filters)
}

// captureLocals gathers the current value of every symbol target's function
// body captures from the enclosing scope, so a worker process on the other
// end of the queue can resolve those identifiers without sharing this
// process's store.
func (i *Interpreter) captureLocals(ctx context.Context, target *ast.Node) []serialize.LocalBinding {
	if target == nil || target.Tag != ast.Function {
		return nil
	}
	var out []serialize.LocalBinding
	for _, sym := range target.Captured {
		v, err := i.store.Get(ctx, sym)
		if err != nil {
			continue
		}
		out = append(out, serialize.LocalBinding{Symbol: sym, Value: v})
	}
	return out
}
