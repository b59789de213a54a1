package serialize

import (
	"github.com/google/uuid"

	"github.com/swarm-lang/swarm/internal/position"
	"github.com/swarm-lang/swarm/internal/swarmerr"
	"github.com/swarm-lang/swarm/internal/symbols"
)

func symbolKindWire(k symbols.Kind) string {
	if k == symbols.Function {
		return "FUNCTION"
	}
	return "VARIABLE"
}

func symbolKindFromWire(s string) symbols.Kind {
	if s == "FUNCTION" {
		return symbols.Function
	}
	return symbols.Variable
}

// EncodeSymbol renders a Symbol in full, per spec §6: "Symbols carry name,
// uuid, kind, isPrologue, type, declaredAt." Every occurrence is fully
// encoded — the "first occurrence is authoritative" rule from spec §4.7
// governs how the *decoder* reconstructs sharing, not how the encoder
// abbreviates later ones, since every reference to one Symbol instance
// necessarily carries identical field values within a single encode pass.
func EncodeSymbol(sym *symbols.Symbol) (map[string]any, error) {
	if sym == nil {
		return nil, swarmerr.New(swarmerr.Serialization, "cannot serialize a nil symbol")
	}
	typ, err := EncodeType(sym.Type)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":       sym.Name,
		"uuid":       sym.UUID.String(),
		"kind":       symbolKindWire(sym.Kind),
		"isPrologue": sym.IsPrologue,
		"type":       typ,
		"declaredAt": encodePosition(sym.DeclaredAt),
		"shared":     sym.Shared,
	}, nil
}

// symbolRegistry reconstructs the decode-side reference-sharing contract:
// the first time a UUID is seen, a *Symbol is built and registered; every
// later occurrence of the same UUID returns that same pointer so Identifier
// nodes that name the same declaration end up pointing at one Go value
// (spec §4.7: "its previously-constructed instance is reused").
type symbolRegistry struct {
	byUUID map[uuid.UUID]*symbols.Symbol
}

func newSymbolRegistry() *symbolRegistry {
	return &symbolRegistry{byUUID: make(map[uuid.UUID]*symbols.Symbol)}
}

func (r *symbolRegistry) decode(raw map[string]any) (*symbols.Symbol, error) {
	idStr, _ := raw["uuid"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, swarmerr.Wrap(swarmerr.Serialization, err, "invalid symbol uuid %q", idStr)
	}
	if existing, ok := r.byUUID[id]; ok {
		return existing, nil
	}

	name, _ := raw["name"].(string)
	kindStr, _ := raw["kind"].(string)
	isPrologue, _ := raw["isPrologue"].(bool)
	shared, _ := raw["shared"].(bool)

	declaredAtRaw, _ := raw["declaredAt"].(map[string]any)
	declaredAt, err := decodePosition(declaredAtRaw)
	if err != nil {
		return nil, err
	}

	typeRaw, ok := raw["type"].(map[string]any)
	if !ok {
		return nil, swarmerr.New(swarmerr.Serialization, "symbol %q missing type", name)
	}
	typ, err := DecodeType(typeRaw)
	if err != nil {
		return nil, err
	}

	sym := symbols.NewWithUUID(id, name, symbolKindFromWire(kindStr), declaredAt, shared)
	sym.IsPrologue = isPrologue
	sym.Type = typ
	r.byUUID[id] = sym
	return sym, nil
}

func encodePosition(p position.Position) map[string]any {
	return map[string]any{
		"file":      p.File,
		"startLine": p.StartLine,
		"startCol":  p.StartCol,
		"endLine":   p.EndLine,
		"endCol":    p.EndCol,
	}
}

func decodePosition(raw map[string]any) (position.Position, error) {
	if raw == nil {
		return position.Position{}, nil
	}
	return position.Position{
		File:      stringField(raw, "file"),
		StartLine: intField(raw, "startLine"),
		StartCol:  intField(raw, "startCol"),
		EndLine:   intField(raw, "endLine"),
		EndCol:    intField(raw, "endCol"),
	}, nil
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func intField(raw map[string]any, key string) int {
	n, err := asInt(raw, key)
	if err != nil {
		return 0
	}
	return n
}
