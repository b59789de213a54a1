package serialize

import (
	"encoding/json"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/swarmerr"
	"github.com/swarm-lang/swarm/internal/symbols"
)

// LocalBinding is one entry of a remote job's captured environment: a
// symbol free in the queued subtree, paired with the value it was bound to
// in the submitting process at the moment of queueing (spec §4.7's "subtree
// is serialized with its captured local environment").
type LocalBinding struct {
	Symbol *symbols.Symbol
	Value  *ast.Node
}

// EncodeLocalsJSON renders a captured environment as canonical JSON, to be
// stored at a job's locals key (spec §6: job_locals_<id>) alongside the
// payload at job_payload_<id>.
func EncodeLocalsJSON(bindings []LocalBinding) ([]byte, error) {
	entries := make([]any, 0, len(bindings))
	for _, b := range bindings {
		sym, err := EncodeSymbol(b.Symbol)
		if err != nil {
			return nil, err
		}
		val, err := EncodeNode(b.Value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, map[string]any{"symbol": sym, "value": val})
	}
	return json.MarshalIndent(entries, "", "  ")
}

// DecodeJobJSON decodes a job's payload and locals blobs through one shared
// symbol registry, so an Identifier in the payload that names a captured
// symbol resolves to the same *symbols.Symbol Go value as that symbol's
// locals binding.
func DecodeJobJSON(payload, localsBlob []byte) (*ast.Node, []LocalBinding, error) {
	ctx := &decodeCtx{symbols: newSymbolRegistry()}

	var rawNode map[string]any
	if err := json.Unmarshal(payload, &rawNode); err != nil {
		return nil, nil, swarmerr.Wrap(swarmerr.Serialization, err, "malformed job payload")
	}
	node, err := ctx.decodeNode(rawNode)
	if err != nil {
		return nil, nil, err
	}

	bindings, err := decodeLocalsWith(ctx, localsBlob)
	if err != nil {
		return nil, nil, err
	}
	return node, bindings, nil
}

func decodeLocalsWith(ctx *decodeCtx, localsBlob []byte) ([]LocalBinding, error) {
	if len(localsBlob) == 0 {
		return nil, nil
	}
	var rawEntries []map[string]any
	if err := json.Unmarshal(localsBlob, &rawEntries); err != nil {
		return nil, swarmerr.Wrap(swarmerr.Serialization, err, "malformed locals payload")
	}
	bindings := make([]LocalBinding, 0, len(rawEntries))
	for _, raw := range rawEntries {
		symRaw, ok := raw["symbol"].(map[string]any)
		if !ok {
			return nil, swarmerr.New(swarmerr.Serialization, "locals entry missing symbol")
		}
		sym, err := ctx.symbols.decode(symRaw)
		if err != nil {
			return nil, err
		}
		valRaw, ok := raw["value"].(map[string]any)
		if !ok {
			return nil, swarmerr.New(swarmerr.Serialization, "locals entry missing value")
		}
		val, err := ctx.decodeNode(valRaw)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, LocalBinding{Symbol: sym, Value: val})
	}
	return bindings, nil
}
