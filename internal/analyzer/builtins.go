package analyzer

import (
	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/symbols"
	"github.com/swarm-lang/swarm/internal/typesystem"
)

// prologuePos is the synthetic declaration site for every built-in binding:
// they are not written anywhere in source, so there is no real position to
// attach (mirrors the teacher's own builtins.go using a zero-value position
// for registered host bindings).
var prologuePos = position.Position{File: "<prologue>"}

// RegisterPrologue predeclares the prologue's built-in bindings in the root
// frame of table, each marked IsPrologue so the interpreter recognizes and
// dispatches them to a host implementation instead of treating them as
// user-defined functions (spec §4.12's "Call to a prologue binding invokes
// a resolved host function"). Kept intentionally small — len/print plus a
// file and clock resource — enough to exercise the with/prologue code
// paths without reproducing a standard library that is out of scope.
func RegisterPrologue(table *symbols.Table) {
	declare(table, "len", typesystem.LambdaOf([]typesystem.Type{typesystem.Enumerable{Value: typesystem.Ambiguous{}}}, typesystem.TNumber))
	declare(table, "print", typesystem.LambdaOf([]typesystem.Type{typesystem.TString}, typesystem.TVoid))
	declare(table, "file", typesystem.LambdaOf([]typesystem.Type{typesystem.TString}, typesystem.TUnit))
	declare(table, "clock", typesystem.LambdaOf(nil, typesystem.TUnit))
}

func declare(table *symbols.Table, name string, t typesystem.Type) {
	sym, err := table.DeclareAt(name, symbols.Function, prologuePos, false)
	if err != nil {
		// Only reachable if two prologue names collide, which would be a
		// bug in this very function, not a user program error.
		panic("analyzer: prologue declaration collision for " + name)
	}
	sym.IsPrologue = true
	sym.Type = t
}
