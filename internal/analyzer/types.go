package analyzer

import (
	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/swarmerr"
	"github.com/swarm-lang/swarm/internal/typesystem"
)

// TypeAnalyzer assigns a concrete typesystem.Type to every expression node,
// strictly post-order (spec §4.5). It must run after NameAnalyzer: every
// Identifier it visits is expected to already carry a bound Symbol.
type TypeAnalyzer struct {
	errs swarmerr.List

	// objectTypes holds every TypeBody's synthesized typesystem.Object,
	// keyed by DeclSite, so ClassAccess can resolve a member and so a
	// Use clause can look up its parent by name without a back-pointer
	// (spec §9 design notes: "the constructor refers to the type by
	// UUID/arena index").
	objectTypes map[string]*typesystem.Object
	byName      map[string]*typesystem.Object

	// currentFunctionReturn is the declared return type of the function
	// body currently being checked, used to validate Return statements.
	currentFunctionReturn typesystem.Type
}

// NewTypeAnalyzer returns a fresh type analyzer.
func NewTypeAnalyzer() *TypeAnalyzer {
	return &TypeAnalyzer{
		objectTypes: make(map[string]*typesystem.Object),
		byName:      make(map[string]*typesystem.Object),
	}
}

// Analyze type-checks prog in place, attaching ResolvedType to every
// expression node it visits, and returns the accumulated errors (nil if
// there were none).
func (a *TypeAnalyzer) Analyze(prog *ast.Node) error {
	// Two-pass over top-level TypeBody declarations: first register every
	// type's shape (so forward references between types and functions that
	// mention them resolve), then check bodies.
	for _, stmt := range prog.Statements {
		if stmt.Tag == ast.TypeBody {
			a.registerTypeShape(stmt)
		}
	}
	for _, stmt := range prog.Statements {
		a.statement(stmt)
	}
	return a.errs.AsList()
}

func (a *TypeAnalyzer) fail(kind swarmerr.Kind, pos position.Position, format string, args ...any) {
	a.errs.Add(swarmerr.At(kind, pos, format, args...))
}

func (a *TypeAnalyzer) registerTypeShape(n *ast.Node) {
	obj := &typesystem.Object{
		Name:       n.Name,
		Properties: typesystem.NewOrderedProps(),
		DeclSite:   n.DeclSite,
	}
	if n.Parent != "" {
		if parent, ok := a.byName[n.Parent]; ok {
			obj.Parent = parent
		} else {
			a.fail(swarmerr.NameUndeclared, n.Pos, "unknown parent type %q", n.Parent)
		}
	}
	for _, p := range n.Properties {
		obj.Properties.Set(p.Name, p.Type)
	}
	a.objectTypes[n.DeclSite] = obj
	a.byName[n.Name] = obj

	// spec §3: "A TypeBody without user constructors acquires a
	// synthesized zero-arg constructor returning VOID."
	if len(n.Constructors) == 0 {
		n.Constructors = append(n.Constructors, &ast.Node{
			Tag:        ast.Constructor,
			Pos:        n.Pos,
			ReturnType: typesystem.TVoid,
			Body:       &ast.Node{Tag: ast.Block, Pos: n.Pos},
			DeclSite:   n.DeclSite,
		})
	}
}

func (a *TypeAnalyzer) statement(n *ast.Node) {
	switch n.Tag {
	case ast.VariableDeclaration:
		a.expression(n.Value)
		rhsType := n.Value.ResolvedType
		if n.TypeAnnotation != nil {
			if !typesystem.IsAssignableTo(rhsType, n.TypeAnnotation) {
				a.fail(swarmerr.TypeMismatch, n.Pos, "cannot assign %s to declared type %s",
					rhsType.String(), n.TypeAnnotation.String())
			}
			n.Dest.ResolvedType = n.TypeAnnotation
		} else {
			n.Dest.ResolvedType = rhsType
		}
		if n.Dest.Symbol != nil {
			n.Dest.Symbol.Type = n.Dest.ResolvedType
		}

	case ast.Return:
		if n.Value != nil {
			a.expression(n.Value)
			if a.currentFunctionReturn != nil && !typesystem.IsAssignableTo(n.Value.ResolvedType, a.currentFunctionReturn) {
				a.fail(swarmerr.TypeMismatch, n.Pos, "return type %s does not match function's declared return type %s",
					n.Value.ResolvedType.String(), a.currentFunctionReturn.String())
			}
		} else if a.currentFunctionReturn != nil && !typesystem.Equal(a.currentFunctionReturn, typesystem.TVoid) {
			a.fail(swarmerr.TypeMismatch, n.Pos, "bare return in a function declared to return %s", a.currentFunctionReturn.String())
		}

	case ast.Function:
		a.function(n)

	case ast.If:
		a.expression(n.Cond)
		if !typesystem.Equal(n.Cond.ResolvedType, typesystem.TBool) {
			a.fail(swarmerr.TypeMismatch, n.Cond.Pos, "if condition must be bool, got %s", n.Cond.ResolvedType.String())
		}
		a.block(n.Then)
		if n.Else != nil {
			a.block(n.Else)
		}

	case ast.While:
		a.expression(n.Cond)
		if !typesystem.Equal(n.Cond.ResolvedType, typesystem.TBool) {
			a.fail(swarmerr.TypeMismatch, n.Cond.Pos, "while condition must be bool, got %s", n.Cond.ResolvedType.String())
		}
		a.block(n.Body)

	case ast.Enumerate:
		a.expression(n.Source)
		enumT, ok := n.Source.ResolvedType.(typesystem.Enumerable)
		if !ok {
			a.fail(swarmerr.TypeMismatch, n.Source.Pos, "enumerate source must be enumerable, got %s", n.Source.ResolvedType.String())
			enumT = typesystem.Enumerable{Value: typesystem.TError}
		}
		n.InductionVar.ResolvedType = enumT.Value
		if n.InductionVar.Symbol != nil {
			n.InductionVar.Symbol.Type = enumT.Value
		}
		for _, stmt := range n.Body.Statements {
			a.statement(stmt)
		}

	case ast.With:
		a.expression(n.Resource)
		n.Binding.ResolvedType = n.Resource.ResolvedType
		if n.Binding.Symbol != nil {
			n.Binding.Symbol.Type = n.Resource.ResolvedType
		}
		for _, stmt := range n.Body.Statements {
			a.statement(stmt)
		}

	case ast.Break, ast.Continue, ast.Include, ast.Use:
		// No type to compute.

	case ast.TypeBody:
		a.typeBodyMembers(n)

	case ast.Block:
		a.block(n)

	default:
		a.expression(n)
	}
}

func (a *TypeAnalyzer) block(n *ast.Node) {
	for _, stmt := range n.Statements {
		a.statement(stmt)
	}
}

func (a *TypeAnalyzer) function(n *ast.Node) {
	paramTypes := make([]typesystem.Type, len(n.Params))
	for i, p := range n.Params {
		paramTypes[i] = p.Type
		if p.Symbol != nil {
			p.Symbol.Type = p.Type
		}
	}
	fnType := typesystem.LambdaOf(paramTypes, n.ReturnType)
	n.ResolvedType = fnType
	if n.Symbol != nil {
		n.Symbol.Type = fnType
	}

	prevReturn := a.currentFunctionReturn
	a.currentFunctionReturn = n.ReturnType
	if n.Body != nil {
		a.block(n.Body)
	}
	a.currentFunctionReturn = prevReturn
}

func (a *TypeAnalyzer) typeBodyMembers(n *ast.Node) {
	obj := a.objectTypes[n.DeclSite]
	for _, ctor := range n.Constructors {
		paramTypes := make([]typesystem.Type, len(ctor.Params))
		for i, p := range ctor.Params {
			paramTypes[i] = p.Type
			if p.Symbol != nil {
				p.Symbol.Type = p.Type
			}
		}
		ctor.ResolvedType = typesystem.LambdaOf(paramTypes, ctor.ReturnType)
		prevReturn := a.currentFunctionReturn
		a.currentFunctionReturn = ctor.ReturnType
		if ctor.Body != nil {
			a.block(ctor.Body)
		}
		a.currentFunctionReturn = prevReturn
	}
	_ = obj
}

func (a *TypeAnalyzer) expression(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Tag {
	case ast.Identifier:
		if n.Symbol != nil {
			n.ResolvedType = n.Symbol.Type
		} else {
			n.ResolvedType = typesystem.TError
		}

	case ast.NumberLiteral:
		n.ResolvedType = typesystem.TNumber
	case ast.StringLiteral:
		n.ResolvedType = typesystem.TString
	case ast.BoolLiteral:
		n.ResolvedType = typesystem.TBool

	case ast.TypeLiteral:
		concrete, err := typesystem.DisambiguateStatically(n.TypeValue)
		if err != nil {
			a.errs.Add(&swarmerr.Error{Kind: err.Kind, Msg: err.Msg, Pos: &swarmerr.Position{
				File: n.Pos.File, StartLine: n.Pos.StartLine, StartCol: n.Pos.StartCol,
				EndLine: n.Pos.EndLine, EndCol: n.Pos.EndCol,
			}})
		} else {
			n.TypeValue = concrete
		}
		n.ResolvedType = typesystem.TType

	case ast.EnumerableLiteral:
		var elemType typesystem.Type = typesystem.TVoid
		for i, e := range n.Elements {
			a.expression(e)
			if i == 0 {
				elemType = e.ResolvedType
			} else if !typesystem.Equal(elemType, e.ResolvedType) {
				a.fail(swarmerr.TypeMismatch, e.Pos, "enumerable elements must share one type, got %s and %s",
					elemType.String(), e.ResolvedType.String())
			}
		}
		n.ResolvedType = typesystem.Enumerable{Value: elemType}

	case ast.MapLiteral:
		var valType typesystem.Type = typesystem.TVoid
		for i, e := range n.Elements {
			a.expression(e)
			if i == 0 {
				valType = e.ResolvedType
			} else if !typesystem.Equal(valType, e.ResolvedType) {
				a.fail(swarmerr.TypeMismatch, e.Pos, "map values must share one type, got %s and %s",
					valType.String(), e.ResolvedType.String())
			}
		}
		n.ResolvedType = typesystem.Map{Value: valType}

	case ast.Add:
		a.expression(n.Left)
		a.expression(n.Right)
		if typesystem.Equal(n.Left.ResolvedType, typesystem.TString) && typesystem.Equal(n.Right.ResolvedType, typesystem.TString) {
			n.Concatenation = true
			n.ResolvedType = typesystem.TString
		} else {
			a.requireNumeric(n.Left)
			a.requireNumeric(n.Right)
			n.ResolvedType = typesystem.TNumber
		}

	case ast.Sub, ast.Mul, ast.Div, ast.Mod:
		a.expression(n.Left)
		a.expression(n.Right)
		a.requireNumeric(n.Left)
		a.requireNumeric(n.Right)
		n.ResolvedType = typesystem.TNumber

	case ast.Lt, ast.Lte, ast.Gt, ast.Gte:
		a.expression(n.Left)
		a.expression(n.Right)
		a.requireNumeric(n.Left)
		a.requireNumeric(n.Right)
		n.ResolvedType = typesystem.TBool

	case ast.And, ast.Or:
		a.expression(n.Left)
		a.expression(n.Right)
		if !typesystem.Equal(n.Left.ResolvedType, typesystem.TBool) {
			a.fail(swarmerr.TypeMismatch, n.Left.Pos, "logical operand must be bool, got %s", n.Left.ResolvedType.String())
		}
		if !typesystem.Equal(n.Right.ResolvedType, typesystem.TBool) {
			a.fail(swarmerr.TypeMismatch, n.Right.Pos, "logical operand must be bool, got %s", n.Right.ResolvedType.String())
		}
		n.ResolvedType = typesystem.TBool

	case ast.Eq, ast.Neq:
		a.expression(n.Left)
		a.expression(n.Right)
		if !typesystem.Equal(n.Left.ResolvedType, n.Right.ResolvedType) {
			a.fail(swarmerr.TypeMismatch, n.Pos, "cannot compare %s and %s for equality",
				n.Left.ResolvedType.String(), n.Right.ResolvedType.String())
		}
		n.ResolvedType = typesystem.TBool

	case ast.Not:
		a.expression(n.Left)
		if !typesystem.Equal(n.Left.ResolvedType, typesystem.TBool) {
			a.fail(swarmerr.TypeMismatch, n.Left.Pos, "not operand must be bool, got %s", n.Left.ResolvedType.String())
		}
		n.ResolvedType = typesystem.TBool

	case ast.Neg:
		a.expression(n.Left)
		a.requireNumeric(n.Left)
		n.ResolvedType = typesystem.TNumber

	case ast.Assign:
		a.expression(n.Right)
		a.expression(n.Left)
		if !typesystem.IsAssignableTo(n.Right.ResolvedType, n.Left.ResolvedType) {
			a.fail(swarmerr.TypeMismatch, n.Pos, "cannot assign %s to %s",
				n.Right.ResolvedType.String(), n.Left.ResolvedType.String())
		}
		n.ResolvedType = n.Right.ResolvedType

	case ast.EnumerableAccess:
		a.expression(n.Left)
		a.expression(n.Right)
		enumT, ok := n.Left.ResolvedType.(typesystem.Enumerable)
		if !ok {
			a.fail(swarmerr.TypeMismatch, n.Left.Pos, "enumerable access on non-enumerable type %s", n.Left.ResolvedType.String())
			n.ResolvedType = typesystem.TError
			return
		}
		if !typesystem.Equal(n.Right.ResolvedType, typesystem.TNumber) {
			a.fail(swarmerr.TypeMismatch, n.Right.Pos, "enumerable index must be number, got %s", n.Right.ResolvedType.String())
		}
		n.ResolvedType = enumT.Value

	case ast.EnumerableAppend:
		a.expression(n.Left)
		a.expression(n.Right)
		enumT, ok := n.Left.ResolvedType.(typesystem.Enumerable)
		if !ok {
			a.fail(swarmerr.TypeMismatch, n.Left.Pos, "append target must be enumerable, got %s", n.Left.ResolvedType.String())
			n.ResolvedType = typesystem.TError
			return
		}
		if !typesystem.IsAssignableTo(n.Right.ResolvedType, enumT.Value) {
			a.fail(swarmerr.TypeMismatch, n.Right.Pos, "cannot append %s to enumerable<%s>",
				n.Right.ResolvedType.String(), enumT.Value.String())
		}
		n.ResolvedType = enumT

	case ast.MapAccess:
		a.expression(n.Left)
		mapT, ok := n.Left.ResolvedType.(typesystem.Map)
		if !ok {
			a.fail(swarmerr.TypeMismatch, n.Left.Pos, "map access on non-map type %s", n.Left.ResolvedType.String())
			n.ResolvedType = typesystem.TError
			return
		}
		n.ResolvedType = mapT.Value

	case ast.ClassAccess:
		a.expression(n.Left)
		objT, ok := n.Left.ResolvedType.(typesystem.Object)
		if !ok {
			a.fail(swarmerr.TypeMismatch, n.Left.Pos, "class access on non-object type %s", n.Left.ResolvedType.String())
			n.ResolvedType = typesystem.TError
			return
		}
		memberType, ok := objT.Property(n.Name)
		if !ok {
			a.fail(swarmerr.TypeMismatch, n.Pos, "type %s has no member %q", objT.Name, n.Name)
			n.ResolvedType = typesystem.TError
			return
		}
		n.ResolvedType = memberType

	case ast.Call:
		a.call(n)

	case ast.DeferCall:
		// A DeferCall evaluates to whatever the remote evaluation of the
		// call eventually produces; statically its type is the call's
		// ordinary result type, since the queue's contract (spec §4.10) is
		// transparent to the type system.
		a.call(n)

	case ast.Function:
		a.function(n)

	default:
		a.fail(swarmerr.Parse, n.Pos, "unexpected node %s in expression position", n.Tag)
	}
}

func (a *TypeAnalyzer) requireNumeric(n *ast.Node) {
	if !typesystem.Equal(n.ResolvedType, typesystem.TNumber) {
		a.fail(swarmerr.TypeMismatch, n.Pos, "expected number, got %s", n.ResolvedType.String())
	}
}

func (a *TypeAnalyzer) call(n *ast.Node) {
	a.expression(n.Target)
	cur := n.Target.ResolvedType
	for _, arg := range n.Args {
		a.expression(arg)
		lam, ok := cur.(typesystem.Lambda)
		if !ok {
			a.fail(swarmerr.TypeMismatch, n.Pos, "cannot call a value of type %s", cur.String())
			n.ResolvedType = typesystem.TError
			return
		}
		if !typesystem.IsAssignableTo(arg.ResolvedType, lam.Param) {
			a.fail(swarmerr.TypeMismatch, arg.Pos, "argument of type %s is not assignable to parameter of type %s",
				arg.ResolvedType.String(), lam.Param.String())
		}
		cur = lam.Result
	}
	n.ResolvedType = cur
}
