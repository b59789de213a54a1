package typesystem

// Equal implements spec §4.1's equality rules: primitive equality is by
// kind, Enumerable/Map equality recurses on the element type, Lambda
// equality is structural on param/result, and Object equality is nominal
// (same declaration site), never structural.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case Primitive:
		bv, ok := b.(Primitive)
		return ok && av.KindVal == bv.KindVal
	case Enumerable:
		bv, ok := b.(Enumerable)
		return ok && Equal(av.Value, bv.Value)
	case Map:
		bv, ok := b.(Map)
		return ok && Equal(av.Value, bv.Value)
	case Lambda:
		bv, ok := b.(Lambda)
		return ok && Equal(av.Param, bv.Param) && Equal(av.Result, bv.Result)
	case Object:
		bv, ok := b.(Object)
		return ok && av.DeclSite == bv.DeclSite
	case Ambiguous:
		_, ok := b.(Ambiguous)
		return ok
	default:
		return false
	}
}

// IsAssignableTo implements spec §4.1: assignability is equality except
// that Lambda return types are covariant.
func IsAssignableTo(from, to Type) bool {
	if Equal(from, to) {
		return true
	}
	fl, fok := from.(Lambda)
	tl, tok := to.(Lambda)
	if fok && tok {
		return Equal(fl.Param, tl.Param) && IsAssignableTo(fl.Result, tl.Result)
	}
	return false
}

// Intrinsic reports whether t is one of the built-in primitive kinds
// (as opposed to a user-declared Object).
func Intrinsic(t Type) bool {
	_, ok := t.(Primitive)
	return ok
}
