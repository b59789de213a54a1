// Package typesystem implements Swarm's type algebra: primitives,
// enumerables, maps, curried lambdas, single-inheritance objects, and the
// pre-inference Ambiguous placeholder (spec §3 "Type", §4.1).
package typesystem

import (
	"fmt"
)

// Kind distinguishes the primitive type variants (spec §3).
type Kind int

const (
	Bool Kind = iota
	Number
	String
	Void
	TypeKind // the type of a TypeLiteral expression, i.e. "type" itself
	Unit
	Error
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Void:
		return "void"
	case TypeKind:
		return "type"
	case Unit:
		return "unit"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Type is the sum of every type-system variant. It is intentionally a
// closed interface — Equal and IsAssignableTo switch exhaustively on the
// concrete type below, and adding a new variant means touching both.
type Type interface {
	String() string
	isType()
}

// Primitive canonicalizes to one of a handful of singletons; two Primitives
// of the same Kind are the same value.
type Primitive struct {
	KindVal Kind
}

func (Primitive) isType() {}
func (p Primitive) String() string { return p.KindVal.String() }

// Canonical primitive singletons, returned by every constructor below so
// that Primitive values can be compared with == when convenient (Equal
// still does a structural comparison for safety against accidental copies).
var (
	TBool   = Primitive{KindVal: Bool}
	TNumber = Primitive{KindVal: Number}
	TString = Primitive{KindVal: String}
	TVoid   = Primitive{KindVal: Void}
	TType   = Primitive{KindVal: TypeKind}
	TUnit   = Primitive{KindVal: Unit}
	TError  = Primitive{KindVal: Error}
)

// Enumerable is a homogeneous ordered sequence, e.g. enumerable<number>.
type Enumerable struct {
	Value Type
}

func (Enumerable) isType()          {}
func (e Enumerable) String() string { return fmt.Sprintf("enumerable<%s>", e.Value.String()) }

// Map is an unordered string-keyed collection whose iteration order is not
// guaranteed (spec §3).
type Map struct {
	Value Type
}

func (Map) isType()          {}
func (m Map) String() string { return fmt.Sprintf("map<%s>", m.Value.String()) }

// Lambda is curried: an n-ary function is n nested Lambdas. LambdaOf below
// builds the nesting.
type Lambda struct {
	Param  Type
	Result Type
}

func (Lambda) isType() {}
func (l Lambda) String() string {
	return fmt.Sprintf("(%s -> %s)", l.Param.String(), l.Result.String())
}

// LambdaOf curries a flat parameter list into nested Lambdas, e.g.
// LambdaOf([A, B], R) == Lambda{A, Lambda{B, R}}.
func LambdaOf(params []Type, ret Type) Type {
	result := ret
	for i := len(params) - 1; i >= 0; i-- {
		result = Lambda{Param: params[i], Result: result}
	}
	return result
}

// Object is nominal: two Object values denote the same type iff they share
// a DeclSite, never by structural comparison of their properties.
type Object struct {
	Name       string
	Properties *OrderedProps
	Parent     *Object // nil for a root type; single inheritance only (spec §3)
	DeclSite   string  // unique id of the declaring TypeBody, assigned by the analyzer
}

func (Object) isType() {}
func (o Object) String() string { return o.Name }

// Property looks up a member by name in this object's own properties, then
// walks the parent chain (spec §4.5 ClassAccess: "including parents").
func (o Object) Property(name string) (Type, bool) {
	if o.Properties != nil {
		if t, ok := o.Properties.Get(name); ok {
			return t, true
		}
	}
	if o.Parent != nil {
		return o.Parent.Property(name)
	}
	return nil, false
}

// IsDescendantOf reports whether o is t or a (possibly transitive) subtype
// of t by single-inheritance lineage.
func (o Object) IsDescendantOf(t Object) bool {
	cur := &o
	for cur != nil {
		if cur.DeclSite == t.DeclSite {
			return true
		}
		cur = cur.Parent
	}
	return false
}

// OrderedProps preserves declaration order for a TypeBody's property set,
// matching spec §3's "ordered map<name,Type>".
type OrderedProps struct {
	names  []string
	values map[string]Type
}

func NewOrderedProps() *OrderedProps {
	return &OrderedProps{values: make(map[string]Type)}
}

func (p *OrderedProps) Set(name string, t Type) {
	if _, exists := p.values[name]; !exists {
		p.names = append(p.names, name)
	}
	p.values[name] = t
}

func (p *OrderedProps) Get(name string) (Type, bool) {
	t, ok := p.values[name]
	return t, ok
}

func (p *OrderedProps) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Constraint restricts an Ambiguous placeholder to one of a set of concrete
// candidates, e.g. a numeric literal ambiguous between "the element type of
// an enclosing enumerable" and a bare NUMBER.
type Constraint struct {
	Candidates []Type
}

// Ambiguous is a pre-disambiguation placeholder (spec §3). It must not
// survive type analysis: DisambiguateStatically either narrows it to a
// concrete Type or returns a TYPE_AMBIGUOUS error.
type Ambiguous struct {
	Constraints []Constraint
}

func (Ambiguous) isType() {}
func (a Ambiguous) String() string { return "ambiguous" }

// IsConcrete reports whether t contains no Ambiguous or Error leaf,
// matching the post-type-analysis invariant in spec §8.
func IsConcrete(t Type) bool {
	switch tt := t.(type) {
	case Ambiguous:
		return false
	case Primitive:
		return tt.KindVal != Error
	case Enumerable:
		return IsConcrete(tt.Value)
	case Map:
		return IsConcrete(tt.Value)
	case Lambda:
		return IsConcrete(tt.Param) && IsConcrete(tt.Result)
	case Object:
		return true
	default:
		return false
	}
}
