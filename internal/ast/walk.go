package ast

import "fmt"

// Walker dispatches on a Node's Tag to a registered handler, returning a
// caller-chosen result type T. A pass can build one of these instead of
// hand-rolling a switch on Tag, so its dispatch table lives in one place
// and a tag nobody registered a handler for fails loudly. The analyzer,
// optimizer and evaluator in this module switch on Tag directly and do not
// use it (spec §4.3: "an unknown tag is a program bug,
// not a runtime error" — Go has no sum-type exhaustiveness check, so a
// panic at the first unhandled node is the closest equivalent).
type Walker[T any] struct {
	handlers map[Tag]func(*Node) T
}

// NewWalker returns an empty dispatch table; chain On calls to populate it.
func NewWalker[T any]() *Walker[T] {
	return &Walker[T]{handlers: make(map[Tag]func(*Node) T)}
}

// On registers the handler for tag and returns the walker for chaining.
func (w *Walker[T]) On(tag Tag, fn func(*Node) T) *Walker[T] {
	w.handlers[tag] = fn
	return w
}

// OnAll registers the same handler for every tag in tags.
func (w *Walker[T]) OnAll(tags []Tag, fn func(*Node) T) *Walker[T] {
	for _, t := range tags {
		w.handlers[t] = fn
	}
	return w
}

// Walk dispatches n to its registered handler.
func (w *Walker[T]) Walk(n *Node) T {
	fn, ok := w.handlers[n.Tag]
	if !ok {
		panic(fmt.Sprintf("ast: walker has no handler registered for tag %s", n.Tag))
	}
	return fn(n)
}

// WalkChildren visits every direct child of n with visit, in the order a
// left-to-right reader would expect. It is the one place that knows each
// tag's child layout, so passes that don't care about specific node types
// (constant folding's generic recursion, a debug dumper) can use it instead
// of repeating the switch.
func WalkChildren(n *Node, visit func(*Node)) {
	switch n.Tag {
	case Program, Block:
		for _, s := range n.Statements {
			visit(s)
		}
	case EnumerableLiteral, MapLiteral:
		for _, e := range n.Elements {
			visit(e)
		}
	case Add, Sub, Mul, Div, Mod, Lt, Lte, Gt, Gte, Eq, Neq, And, Or,
		ClassAccess, MapAccess, EnumerableAccess, EnumerableAppend, Assign:
		if n.Left != nil {
			visit(n.Left)
		}
		if n.Right != nil {
			visit(n.Right)
		}
	case Not, Neg:
		if n.Left != nil {
			visit(n.Left)
		}
	case VariableDeclaration:
		if n.Dest != nil {
			visit(n.Dest)
		}
		if n.Value != nil {
			visit(n.Value)
		}
	case Return:
		if n.Value != nil {
			visit(n.Value)
		}
	case Function:
		if n.Body != nil {
			visit(n.Body)
		}
	case Call, DeferCall:
		if n.Target != nil {
			visit(n.Target)
		}
		for _, a := range n.Args {
			visit(a)
		}
	case If:
		visit(n.Cond)
		visit(n.Then)
		if n.Else != nil {
			visit(n.Else)
		}
	case While:
		visit(n.Cond)
		visit(n.Body)
	case Enumerate:
		visit(n.Source)
		visit(n.Body)
	case With:
		visit(n.Resource)
		visit(n.Body)
	case Constructor:
		if n.Body != nil {
			visit(n.Body)
		}
	case TypeBody:
		for _, c := range n.Constructors {
			visit(c)
		}
	}
}
