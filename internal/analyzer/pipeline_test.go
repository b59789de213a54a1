package analyzer

import (
	"testing"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/swarmerr"
	"github.com/swarm-lang/swarm/internal/typesystem"
)

func pos() position.Position { return position.Position{File: "t.swarm", StartLine: 1, StartCol: 1} }

func numberLit(v float64) *ast.Node { return &ast.Node{Tag: ast.NumberLiteral, Pos: pos(), NumberValue: v} }
func stringLit(v string) *ast.Node { return &ast.Node{Tag: ast.StringLiteral, Pos: pos(), StringValue: v} }
func ident(name string) *ast.Node  { return ast.NewIdentifier(pos(), name) }

func varDecl(name string, typ typesystem.Type, value *ast.Node, shared bool) *ast.Node {
	return &ast.Node{
		Tag: ast.VariableDeclaration, Pos: pos(),
		Dest: ident(name), TypeAnnotation: typ, Value: value, Shared: shared,
	}
}

// scenario 1 from spec §8: map literal access types as STRING.
func TestMapLiteralAccess(t *testing.T) {
	m := varDecl("m", typesystem.Map{Value: typesystem.TString}, &ast.Node{
		Tag: ast.MapLiteral, Pos: pos(),
		MapKeys:  []string{"a", "b"},
		Elements: []*ast.Node{stringLit("x"), stringLit("y")},
	}, false)
	sAccess := &ast.Node{Tag: ast.MapAccess, Pos: pos(), Left: ident("m"), Name: "b"}
	s := varDecl("s", typesystem.TString, sAccess, false)

	prog := &ast.Node{Tag: ast.Program, Statements: []*ast.Node{m, s}}
	if _, err := Analyze(prog, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !typesystem.Equal(s.Dest.ResolvedType, typesystem.TString) {
		t.Fatalf("expected STRING, got %s", s.Dest.ResolvedType)
	}
}

// scenario 2 from spec §8: shared vs. non-shared declarations.
func TestSharedDeclaration(t *testing.T) {
	e := varDecl("e", typesystem.Enumerable{Value: typesystem.TNumber}, &ast.Node{
		Tag: ast.EnumerableLiteral, Pos: pos(), Elements: []*ast.Node{numberLit(1), numberLit(2)},
	}, false)
	se := varDecl("se", typesystem.Enumerable{Value: typesystem.TNumber}, &ast.Node{
		Tag: ast.EnumerableLiteral, Pos: pos(), Elements: []*ast.Node{numberLit(1), numberLit(2)},
	}, true)

	prog := &ast.Node{Tag: ast.Program, Statements: []*ast.Node{e, se}}
	if _, err := Analyze(prog, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Dest.Symbol.Shared {
		t.Fatal("e should not be shared")
	}
	if !se.Dest.Symbol.Shared {
		t.Fatal("se should be shared")
	}
	if !typesystem.Equal(e.Dest.Symbol.Type, se.Dest.Symbol.Type) {
		t.Fatal("e and se should have equal types")
	}
}

func TestUndeclaredIdentifierFails(t *testing.T) {
	prog := &ast.Node{Tag: ast.Program, Statements: []*ast.Node{
		varDecl("x", typesystem.TNumber, ident("y"), false),
	}}
	_, err := Analyze(prog, Options{})
	if err == nil {
		t.Fatal("expected an error for undeclared identifier")
	}
	list, ok := err.(*swarmerr.List)
	if !ok || list.Errors[0].Kind != swarmerr.NameUndeclared {
		t.Fatalf("expected NAME_UNDECLARED, got %v", err)
	}
}

func TestRedeclarationFails(t *testing.T) {
	prog := &ast.Node{Tag: ast.Program, Statements: []*ast.Node{
		varDecl("x", typesystem.TNumber, numberLit(1), false),
		varDecl("x", typesystem.TNumber, numberLit(2), false),
	}}
	_, err := Analyze(prog, Options{})
	list, ok := err.(*swarmerr.List)
	if !ok || list.Errors[0].Kind != swarmerr.NameRedeclared {
		t.Fatalf("expected NAME_REDECLARATION, got %v", err)
	}
}

func TestConstantPropagationNoOpWithoutSingleAssign(t *testing.T) {
	a := varDecl("a", typesystem.TNumber, numberLit(1), false)
	assignA := &ast.Node{Tag: ast.Assign, Pos: pos(), Left: ident("a"), Right: numberLit(2)}
	prog := &ast.Node{Tag: ast.Program, Statements: []*ast.Node{a, assignA}}

	if _, err := Analyze(prog, DefaultOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// a is reassigned, so it must not be propagated: the Assign's rhs stays a literal,
	// but the original declaration's Value node is untouched.
	if prog.Statements[0].Value.Tag != ast.NumberLiteral || prog.Statements[0].Value.NumberValue != 1 {
		t.Fatalf("declaration value should be unchanged, got %+v", prog.Statements[0].Value)
	}
}

func TestSelfAssignmentRemoved(t *testing.T) {
	x := varDecl("x", typesystem.TNumber, numberLit(1), false)
	selfAssign := &ast.Node{Tag: ast.Assign, Pos: pos(), Left: ident("x"), Right: ident("x")}
	prog := &ast.Node{Tag: ast.Program, Statements: []*ast.Node{x, selfAssign}}

	if _, err := Analyze(prog, DefaultOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("expected self-assignment to be removed, got %d statements", len(prog.Statements))
	}
}
