package serialize

import (
	"testing"

	"github.com/swarm-lang/swarm/internal/analyzer"
	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/typesystem"
)

func pos() position.Position { return position.Position{File: "t.swarm", StartLine: 1, StartCol: 1} }

func buildProgram(t *testing.T) *ast.Node {
	t.Helper()
	pi := &ast.Node{
		Tag: ast.VariableDeclaration, Pos: pos(),
		Dest: ast.NewIdentifier(pos(), "pi"), TypeAnnotation: typesystem.TNumber,
		Value: &ast.Node{Tag: ast.NumberLiteral, Pos: pos(), NumberValue: 3.14},
	}
	s := &ast.Node{
		Tag: ast.VariableDeclaration, Pos: pos(),
		Dest: ast.NewIdentifier(pos(), "s"), TypeAnnotation: typesystem.TString,
		Value: &ast.Node{Tag: ast.StringLiteral, Pos: pos(), StringValue: "x"},
	}
	n := &ast.Node{
		Tag: ast.VariableDeclaration, Pos: pos(),
		Dest: ast.NewIdentifier(pos(), "n"), TypeAnnotation: typesystem.TNumber,
		Value: ast.NewBinary(ast.Mul, pos(), ast.NewIdentifier(pos(), "pi"),
			&ast.Node{Tag: ast.NumberLiteral, Pos: pos(), NumberValue: 3}),
	}
	prog := &ast.Node{Tag: ast.Program, Statements: []*ast.Node{pi, s, n}}
	if _, err := analyzer.Analyze(prog, analyzer.Options{}); err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return prog
}

// scenario 6 from spec §8: serializing, deserializing, and re-serializing
// the same program yields byte-identical JSON.
func TestRoundTripIsByteIdentical(t *testing.T) {
	prog := buildProgram(t)

	first, err := ToJSON(prog)
	if err != nil {
		t.Fatalf("first serialize: %v", err)
	}

	decoded, err := FromJSON(first)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	second, err := ToJSON(decoded)
	if err != nil {
		t.Fatalf("second serialize: %v", err)
	}

	if string(first) != string(second) {
		t.Fatalf("round trip is not byte-identical:\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestRoundTripSharesSymbolIdentity(t *testing.T) {
	prog := buildProgram(t)

	data, err := ToJSON(prog)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	decoded, err := FromJSON(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	// n's rhs is `pi * 3`; the Identifier referencing pi must decode to the
	// very same *Symbol as pi's own declaration (spec §4.7's "previously
	// constructed instance is reused").
	piDecl := decoded.Statements[0]
	nDecl := decoded.Statements[2]
	piRefInN := nDecl.Value.Left
	if piRefInN.Symbol != piDecl.Dest.Symbol {
		t.Fatal("expected the decoded pi identifier to share the same Symbol pointer as its declaration")
	}
}

func TestRoundTripPreservesResolvedTypes(t *testing.T) {
	prog := buildProgram(t)
	data, err := ToJSON(prog)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	decoded, err := FromJSON(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !typesystem.Equal(decoded.Statements[0].Dest.ResolvedType, typesystem.TNumber) {
		t.Fatalf("expected pi's resolved type to survive the round trip, got %v", decoded.Statements[0].Dest.ResolvedType)
	}
}
