// Package symbols implements the symbol table: declaration-site identity
// for every variable and function in a Swarm program, lexical scoping, and
// the UUID that makes a symbol's identity stable across a serialize/
// deserialize round-trip onto a different process (spec §3 "Symbol", §4.2).
package symbols

import (
	"github.com/google/uuid"
	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/typesystem"
)

// Kind distinguishes a variable binding from a function binding.
type Kind int

const (
	Variable Kind = iota
	Function
)

// Symbol is created exactly once, at declaration, and is thereafter
// immutable except that its Type may be refined during type analysis
// (spec §3: "Mutable only at declaration time ... identity is stable
// forever after"). Every AST node that refers to a symbol holds a pointer
// to this same instance; the UUID is what lets two processes agree they
// mean the same symbol after a JSON round-trip.
type Symbol struct {
	UUID       uuid.UUID
	Name       string
	Kind       Kind
	Type       typesystem.Type
	DeclaredAt position.Position
	Shared     bool
	IsPrologue bool
}

// New allocates a fresh symbol with a new random UUID. Callers that need a
// deterministic UUID (serialization round-trip tests, §8 scenario 6) should
// use NewWithUUID.
func New(name string, kind Kind, declaredAt position.Position, shared bool) *Symbol {
	return &Symbol{
		UUID:       uuid.New(),
		Name:       name,
		Kind:       kind,
		DeclaredAt: declaredAt,
		Shared:     shared,
	}
}

// NewWithUUID allocates a symbol with a caller-supplied UUID, used by the
// deserializer to reconstruct a symbol with the identity it had on the wire.
func NewWithUUID(id uuid.UUID, name string, kind Kind, declaredAt position.Position, shared bool) *Symbol {
	s := New(name, kind, declaredAt, shared)
	s.UUID = id
	return s
}
