package symbols

import (
	"github.com/google/uuid"
	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/swarmerr"
)

// frame is a single lexical scope: a name-to-symbol map. Frames are pushed
// and popped as a stack by the name analysis pass (spec §4.2, §4.4).
type frame struct {
	symbols map[string]*Symbol
}

func newFrame() *frame {
	return &frame{symbols: make(map[string]*Symbol)}
}

// Table owns every symbol ever declared while analyzing a program. Nodes
// hold non-owning references (pointers, keyed conceptually by UUID) into
// symbols the table created; the table is never mutated by anything but
// EnterScope/LeaveScope/Declare/Register.
type Table struct {
	frames []*frame
	byUUID map[uuid.UUID]*Symbol
}

// NewTable returns a table with a single, empty root frame (the prelude
// scope, spec §4.4's "open scopes at blocks, function bodies, ...").
func NewTable() *Table {
	return &Table{
		frames: []*frame{newFrame()},
		byUUID: make(map[uuid.UUID]*Symbol),
	}
}

// EnterScope pushes a new, empty frame onto the scope stack.
func (t *Table) EnterScope() {
	t.frames = append(t.frames, newFrame())
}

// LeaveScope pops the innermost frame. Calling LeaveScope on the root frame
// is a caller bug; it panics rather than silently corrupting the stack.
func (t *Table) LeaveScope() {
	if len(t.frames) <= 1 {
		panic("symbols: LeaveScope called with no scope to leave")
	}
	t.frames = t.frames[:len(t.frames)-1]
}

// Depth reports the number of scopes currently open, counting the root.
func (t *Table) Depth() int { return len(t.frames) }

// Declare registers sym under name in the current (innermost) frame. It
// fails with NAME_REDECLARATION if name already exists in that exact frame
// — shadowing an outer scope is fine, redeclaring within the same frame is
// not (spec §3 "Scope").
func (t *Table) Declare(name string, sym *Symbol) *swarmerr.Error {
	cur := t.frames[len(t.frames)-1]
	if existing, ok := cur.symbols[name]; ok {
		return swarmerr.At(swarmerr.NameRedeclared, existing.DeclaredAt.ToSwarmerr(),
			"%q is already declared in this scope", name)
	}
	cur.symbols[name] = sym
	t.byUUID[sym.UUID] = sym
	return nil
}

// Lookup walks the scope chain from innermost to outermost looking for
// name, returning (nil, false) if it is undeclared anywhere visible.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	for i := len(t.frames) - 1; i >= 0; i-- {
		if sym, ok := t.frames[i].symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// ByUUID retrieves a previously-declared symbol by its wire identity, used
// by the deserializer to reuse the same *Symbol instance for every
// Identifier node that refers to it (spec §4.7).
func (t *Table) ByUUID(id uuid.UUID) (*Symbol, bool) {
	sym, ok := t.byUUID[id]
	return sym, ok
}

// Register records a symbol the deserializer constructed directly (it did
// not go through Declare because it has no associated scope frame at
// reconstruction time), so later ByUUID lookups find it.
func (t *Table) Register(sym *Symbol) {
	t.byUUID[sym.UUID] = sym
}

// DeclareAt is a convenience for constructing and declaring a symbol in one
// step, returning the new symbol.
func (t *Table) DeclareAt(name string, kind Kind, pos position.Position, shared bool) (*Symbol, *swarmerr.Error) {
	sym := New(name, kind, pos, shared)
	if err := t.Declare(name, sym); err != nil {
		return nil, err
	}
	return sym, nil
}
