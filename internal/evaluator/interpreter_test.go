package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/serialize"
	"github.com/swarm-lang/swarm/internal/store"
	"github.com/swarm-lang/swarm/internal/symbols"
	"github.com/swarm-lang/swarm/internal/typesystem"
)

func pos() position.Position { return position.Position{File: "t.swm", StartLine: 1, EndLine: 1} }

func ident(sym *symbols.Symbol) *ast.Node {
	return &ast.Node{Tag: ast.Identifier, Pos: pos(), Name: sym.Name, Symbol: sym, ResolvedType: sym.Type}
}

func block(stmts ...*ast.Node) *ast.Node {
	return &ast.Node{Tag: ast.Block, Pos: pos(), Statements: stmts}
}

func newVar(name string, t typesystem.Type) *symbols.Symbol {
	sym := symbols.New(name, symbols.Variable, pos(), false)
	sym.Type = t
	return sym
}

func newInterp() *Interpreter {
	return New(store.NewLocal(), nil, nil, nil)
}

func TestArithmeticAndAssign(t *testing.T) {
	interp := newInterp()
	x := newVar("x", typesystem.TNumber)

	prog := block(
		&ast.Node{Tag: ast.VariableDeclaration, Pos: pos(), Dest: ident(x), Value: numberLit(10)},
		&ast.Node{Tag: ast.Assign,
			Left:  ident(x),
			Right: ast.NewBinary(ast.Add, pos(), ident(x), numberLit(5)),
		},
		ident(x),
	)

	result, err := interp.Run(context.Background(), prog)
	require.NoError(t, err)
	require.Equal(t, 15.0, result.NumberValue)
}

func TestDivisionByZeroRaisesRuntimeError(t *testing.T) {
	interp := newInterp()
	prog := block(ast.NewBinary(ast.Div, pos(), numberLit(1), numberLit(0)))

	_, err := interp.Run(context.Background(), prog)
	require.Error(t, err)
}

func TestWhileLoopWithBreakAndContinue(t *testing.T) {
	interp := newInterp()
	i := newVar("i", typesystem.TNumber)
	sum := newVar("sum", typesystem.TNumber)

	// i = 0; sum = 0
	// while (i < 10) {
	//   i = i + 1
	//   if (i == 5) { continue }
	//   if (i == 8) { break }
	//   sum = sum + i
	// }
	loopBody := block(
		&ast.Node{Tag: ast.Assign, Left: ident(i), Right: ast.NewBinary(ast.Add, pos(), ident(i), numberLit(1))},
		&ast.Node{Tag: ast.If, Cond: ast.NewBinary(ast.Eq, pos(), ident(i), numberLit(5)),
			Then: block(&ast.Node{Tag: ast.Continue})},
		&ast.Node{Tag: ast.If, Cond: ast.NewBinary(ast.Eq, pos(), ident(i), numberLit(8)),
			Then: block(&ast.Node{Tag: ast.Break})},
		&ast.Node{Tag: ast.Assign, Left: ident(sum), Right: ast.NewBinary(ast.Add, pos(), ident(sum), ident(i))},
	)
	prog := block(
		&ast.Node{Tag: ast.VariableDeclaration, Dest: ident(i), Value: numberLit(0)},
		&ast.Node{Tag: ast.VariableDeclaration, Dest: ident(sum), Value: numberLit(0)},
		&ast.Node{Tag: ast.While, Cond: ast.NewBinary(ast.Lt, pos(), ident(i), numberLit(10)), Body: loopBody},
		ident(sum),
	)

	result, err := interp.Run(context.Background(), prog)
	require.NoError(t, err)
	// 1+2+3+4 (skip 5) +6+7 (break before adding 8) = 23
	require.Equal(t, 23.0, result.NumberValue)
}

func TestEnumerableAppendAndAccess(t *testing.T) {
	interp := newInterp()
	xs := newVar("xs", typesystem.Enumerable{Value: typesystem.TNumber})

	prog := block(
		&ast.Node{Tag: ast.VariableDeclaration, Dest: ident(xs),
			Value: &ast.Node{Tag: ast.EnumerableLiteral, Elements: []*ast.Node{numberLit(1), numberLit(2)},
				ResolvedType: typesystem.Enumerable{Value: typesystem.TNumber}}},
		&ast.Node{Tag: ast.EnumerableAppend, Left: ident(xs), Right: numberLit(3)},
		&ast.Node{Tag: ast.EnumerableAccess, Left: ident(xs), Right: numberLit(2)},
	)

	result, err := interp.Run(context.Background(), prog)
	require.NoError(t, err)
	require.Equal(t, 3.0, result.NumberValue)
}

func TestMapAccessReadsAndAssignWrites(t *testing.T) {
	interp := newInterp()
	m := newVar("m", typesystem.Map{Value: typesystem.TNumber})

	prog := block(
		&ast.Node{Tag: ast.VariableDeclaration, Dest: ident(m),
			Value: &ast.Node{Tag: ast.MapLiteral, MapKeys: []string{"a"}, Elements: []*ast.Node{numberLit(1)},
				ResolvedType: typesystem.Map{Value: typesystem.TNumber}}},
		&ast.Node{Tag: ast.Assign, Left: &ast.Node{Tag: ast.MapAccess, Left: ident(m), Name: "b"}, Right: numberLit(2)},
		&ast.Node{Tag: ast.MapAccess, Left: ident(m), Name: "b"},
	)

	result, err := interp.Run(context.Background(), prog)
	require.NoError(t, err)
	require.Equal(t, 2.0, result.NumberValue)
}

func TestCallFullyAppliedTwoParamFunction(t *testing.T) {
	interp := newInterp()
	paramA := &ast.Param{Name: "a", Type: typesystem.TNumber, Symbol: newVar("a", typesystem.TNumber)}
	paramB := &ast.Param{Name: "b", Type: typesystem.TNumber, Symbol: newVar("b", typesystem.TNumber)}
	add := &ast.Node{Tag: ast.Function, Pos: pos(), Name: "add", Params: []*ast.Param{paramA, paramB},
		Body:         block(&ast.Node{Tag: ast.Return, Value: ast.NewBinary(ast.Add, pos(), ident(paramA.Symbol), ident(paramB.Symbol))}),
		ResolvedType: typesystem.LambdaOf([]typesystem.Type{typesystem.TNumber, typesystem.TNumber}, typesystem.TNumber)}
	add.Symbol = symbols.New("add", symbols.Function, pos(), false)

	prog := block(
		add,
		&ast.Node{Tag: ast.Call, Target: ident(add.Symbol), Args: []*ast.Node{numberLit(3), numberLit(4)}},
	)

	result, err := interp.Run(context.Background(), prog)
	require.NoError(t, err)
	require.Equal(t, 7.0, result.NumberValue)
}

func TestCallCurriedPartialApplication(t *testing.T) {
	interp := newInterp()
	paramA := &ast.Param{Name: "a", Type: typesystem.TNumber, Symbol: newVar("a", typesystem.TNumber)}
	paramB := &ast.Param{Name: "b", Type: typesystem.TNumber, Symbol: newVar("b", typesystem.TNumber)}
	mul := &ast.Node{Tag: ast.Function, Pos: pos(), Name: "mul", Params: []*ast.Param{paramA, paramB},
		Body: block(&ast.Node{Tag: ast.Return, Value: ast.NewBinary(ast.Mul, pos(), ident(paramA.Symbol), ident(paramB.Symbol))})}
	mul.Symbol = symbols.New("mul", symbols.Function, pos(), false)
	double := newVar("double", typesystem.LambdaOf([]typesystem.Type{typesystem.TNumber}, typesystem.TNumber))

	prog := block(
		mul,
		&ast.Node{Tag: ast.VariableDeclaration, Dest: ident(double),
			Value: &ast.Node{Tag: ast.Call, Target: ident(mul.Symbol), Args: []*ast.Node{numberLit(2)}}},
		&ast.Node{Tag: ast.Call, Target: ident(double), Args: []*ast.Node{numberLit(21)}},
	)

	result, err := interp.Run(context.Background(), prog)
	require.NoError(t, err)
	require.Equal(t, 42.0, result.NumberValue)
}

func TestEvaluateBindsCapturedLocalsBeforeRunning(t *testing.T) {
	interp := newInterp()
	captured := newVar("n", typesystem.TNumber)

	node := ast.NewBinary(ast.Add, pos(), ident(captured), numberLit(1))
	result, err := interp.Evaluate(context.Background(), node, []serialize.LocalBinding{{Symbol: captured, Value: numberLit(41)}})
	require.NoError(t, err)
	require.Equal(t, 42.0, result.NumberValue)
}

func TestFunctionFallsOffEndReturnsVoid(t *testing.T) {
	interp := newInterp()
	noop := &ast.Node{Tag: ast.Function, Pos: pos(), Name: "noop", Params: nil, Body: block()}
	noop.Symbol = symbols.New("noop", symbols.Function, pos(), false)

	prog := block(noop, &ast.Node{Tag: ast.Call, Target: ident(noop.Symbol), Args: nil})
	result, err := interp.Run(context.Background(), prog)
	require.NoError(t, err)
	require.Nil(t, result)
}
