package ast

import (
	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/symbols"
	"github.com/swarm-lang/swarm/internal/typesystem"
)

// Param is a function or constructor parameter: a name with a (possibly
// still-ambiguous, pre-inference) declared type and the Symbol the name
// analysis pass binds it to inside the body scope.
type Param struct {
	Name   string
	Type   typesystem.Type
	Symbol *symbols.Symbol
}

// Node is Swarm's tagged AST node. Every node, regardless of variant,
// carries a Tag and a Pos; the fields below it are the union of every
// variant's payload, with only the subset relevant to Tag populated (see
// the per-tag comments). This is deliberately a single flat struct rather
// than per-tag Go types implementing a common interface — see spec §9's
// design notes ("Deep class hierarchies ... becomes a single tagged sum").
//
// A Program owns every Node reachable from it; there are no cycles (the
// tree is a DAG rooted at the Program node, spec §3), so plain pointers are
// enough for Go's collector to reclaim the whole tree in one step when the
// Program itself becomes unreachable — the arena the design notes call for
// falls out of that for free.
type Node struct {
	Tag Tag
	Pos position.Position

	// ResolvedType is populated by type analysis for every expression node.
	// It must be non-nil, concrete, and non-Ambiguous by the time analysis
	// completes (spec §8).
	ResolvedType typesystem.Type

	// PROGRAM
	Package    string
	Imports    []string
	Statements []*Node // PROGRAM, BLOCK

	// IDENTIFIER
	Name   string // also: CLASSACCESS.Member, MAPACCESS.Key, INCLUDE.Path, TYPEBODY.Name, FUNCTION.Name
	Symbol *symbols.Symbol

	// Literals
	NumberValue float64
	StringValue string
	BoolValue   bool
	TypeValue   typesystem.Type // TYPELITERAL's embedded value

	// EnumerableLiteral / MapLiteral
	Elements []*Node  // ENUMERABLELITERAL entries
	MapKeys  []string // MAPLITERAL keys, parallel to Elements as values

	// Binary / unary operators, ASSIGN, EnumerableAccess/Append, ClassAccess, MapAccess
	Left  *Node // also: ASSIGN.Dest (an LVal), access nodes' Path
	Right *Node // also: ASSIGN.Value, access nodes' Index/Value

	// ADD-specific: set when both operands are STRING (spec §4.5)
	Concatenation bool

	// VARIABLEDECLARATION
	Dest           *Node // always an IDENTIFIER (spec invariant)
	TypeAnnotation typesystem.Type
	Value          *Node // also: RETURN.Value (nil == bare return)
	Shared         bool  // also: ENUMERATE's induction-variable shared flag

	// FUNCTION / CONSTRUCTOR
	Params     []*Param
	ReturnType typesystem.Type
	Body       *Node           // BLOCK
	Captured   []*symbols.Symbol // free variables captured from the enclosing scope

	// CALL / DEFERCALL
	Target *Node
	Args   []*Node

	// IF / WHILE / ENUMERATE / WITH
	Cond         *Node
	Then         *Node // BLOCK
	Else         *Node // BLOCK, nil if absent
	Source       *Node // ENUMERATE: the enumerable expression
	InductionVar *Node // ENUMERATE: IDENTIFIER bound per element
	Resource     *Node // WITH: expression naming the prologue resource
	Binding      *Node // WITH: IDENTIFIER bound to the acquired resource

	// TYPEBODY
	Parent        string  // parent type name, "" if none (single inheritance)
	Properties    []*Param
	Constructors  []*Node // CONSTRUCTOR nodes, referenced positionally
	DeclSite      string  // unique id for nominal type identity, spec §9 "refer to type by index"
}

// IsStatement reports whether the node's tag is one that can appear
// directly in a statement list.
func (n *Node) IsStatement() bool {
	switch n.Tag {
	case VariableDeclaration, Return, If, While, Enumerate, With, Break, Continue,
		Include, Use, TypeBody, Function, Block, Assign, EnumerableAppend, DeferCall, Call:
		return true
	default:
		return n.IsExpression()
	}
}

// IsExpression reports whether the node produces a value.
func (n *Node) IsExpression() bool {
	switch n.Tag {
	case Identifier, NumberLiteral, StringLiteral, BoolLiteral, EnumerableLiteral,
		MapLiteral, TypeLiteral, Add, Sub, Mul, Div, Mod, Lt, Lte, Gt, Gte, Eq, Neq,
		And, Or, Not, Neg, Assign, Call, ClassAccess, MapAccess, EnumerableAccess:
		return true
	default:
		return false
	}
}

// IsLval reports whether the node is one of the assignable forms
// (spec §3: "An LVal is one of {Identifier, EnumerableAccess,
// EnumerableAppend, MapAccess, ClassAccess}").
func (n *Node) IsLval() bool {
	switch n.Tag {
	case Identifier, EnumerableAccess, EnumerableAppend, MapAccess, ClassAccess:
		return true
	default:
		return false
	}
}

// IsValue reports whether the node is a literal value form.
func (n *Node) IsValue() bool {
	switch n.Tag {
	case NumberLiteral, StringLiteral, BoolLiteral, EnumerableLiteral, MapLiteral, TypeLiteral:
		return true
	default:
		return false
	}
}

// IsBlock reports whether the node introduces its own scope as a
// statement sequence.
func (n *Node) IsBlock() bool { return n.Tag == Block || n.Tag == Program }

// IsType reports whether the node is a type-level construct.
func (n *Node) IsType() bool { return n.Tag == TypeLiteral || n.Tag == TypeBody }

// NewBinary builds a binary operator node (arithmetic, comparison,
// logical, or equality) at the given position.
func NewBinary(tag Tag, pos position.Position, left, right *Node) *Node {
	return &Node{Tag: tag, Pos: pos, Left: left, Right: right}
}

// NewIdentifier builds an unbound identifier reference; name analysis
// attaches Symbol.
func NewIdentifier(pos position.Position, name string) *Node {
	return &Node{Tag: Identifier, Pos: pos, Name: name}
}
