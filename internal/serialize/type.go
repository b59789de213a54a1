// Package serialize implements the canonical JSON encoding for Swarm's AST,
// symbol table, and type system (spec §4.7, §6). Encoding goes through
// Go's encoding/json on map[string]any values; json.Marshal sorts map keys
// alphabetically, which is what makes the encoding canonical — the same
// tree always produces the same bytes, and deserialize(serialize(T))
// re-serializes identically.
package serialize

import (
	"encoding/json"

	"github.com/swarm-lang/swarm/internal/swarmerr"
	"github.com/swarm-lang/swarm/internal/typesystem"
)

// valueType tags mirror the original wire schema's integer discriminant
// for a Type variant (spec §6: "Types carry valueType (integer tag)").
const (
	vtBool Kind = iota
	vtNumber
	vtString
	vtVoid
	vtTypeKind
	vtUnit
	vtError
	vtEnumerable
	vtMap
	vtLambda
	vtObject
	vtAmbiguous
)

// Kind is the wire-level discriminant; distinct from typesystem.Kind
// because it also covers the composite variants (Enumerable, Map, ...).
type Kind int

func primitiveValueType(k typesystem.Kind) Kind {
	switch k {
	case typesystem.Bool:
		return vtBool
	case typesystem.Number:
		return vtNumber
	case typesystem.String:
		return vtString
	case typesystem.Void:
		return vtVoid
	case typesystem.TypeKind:
		return vtTypeKind
	case typesystem.Unit:
		return vtUnit
	default:
		return vtError
	}
}

// typeEncodeCtx threads the Object-by-DeclSite registry through a single
// encode so a recursive or repeated Object type is only fully described
// the first time it's reached; later occurrences are a bare reference
// (mirrors the Identifier symbol-sharing scheme and the design note on
// breaking the constructor/type back-edge with an index, spec §9).
type typeEncodeCtx struct {
	seenObjects map[string]bool
}

// EncodeType renders t as the canonical wire map described in spec §6:
// "valueType (integer tag), recursive concrete/arguments, and a shared
// bool." The Shared field is carried for wire-schema parity with the
// source's reference-counted Type but has no semantics on this
// implementation: Go's garbage collector owns every Type value, so it is
// always emitted as false.
func EncodeType(t typesystem.Type) (map[string]any, error) {
	return (&typeEncodeCtx{seenObjects: make(map[string]bool)}).encode(t)
}

func (c *typeEncodeCtx) encode(t typesystem.Type) (map[string]any, error) {
	if t == nil {
		return nil, swarmerr.New(swarmerr.Serialization, "cannot serialize a nil type")
	}
	switch tt := t.(type) {
	case typesystem.Primitive:
		return map[string]any{
			"valueType": int(primitiveValueType(tt.KindVal)),
			"shared":    false,
		}, nil

	case typesystem.Enumerable:
		inner, err := c.encode(tt.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any{"valueType": int(vtEnumerable), "concrete": inner, "shared": false}, nil

	case typesystem.Map:
		inner, err := c.encode(tt.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any{"valueType": int(vtMap), "concrete": inner, "shared": false}, nil

	case typesystem.Lambda:
		params, ret := flattenLambda(tt)
		args := make([]any, len(params))
		for i, p := range params {
			enc, err := c.encode(p)
			if err != nil {
				return nil, err
			}
			args[i] = enc
		}
		retEnc, err := c.encode(ret)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"valueType": int(vtLambda),
			"return":    retEnc,
			"arguments": args,
			"shared":    false,
		}, nil

	case typesystem.Object:
		if c.seenObjects[tt.DeclSite] {
			return map[string]any{
				"valueType": int(vtObject),
				"declSite":  tt.DeclSite,
				"name":      tt.Name,
				"shared":    false,
			}, nil
		}
		c.seenObjects[tt.DeclSite] = true

		props := make([]any, 0)
		if tt.Properties != nil {
			for _, name := range tt.Properties.Names() {
				propType, _ := tt.Properties.Get(name)
				enc, err := c.encode(propType)
				if err != nil {
					return nil, err
				}
				props = append(props, map[string]any{"name": name, "type": enc})
			}
		}
		obj := map[string]any{
			"valueType":  int(vtObject),
			"declSite":   tt.DeclSite,
			"name":       tt.Name,
			"properties": props,
			"shared":     false,
		}
		if tt.Parent != nil {
			parentEnc, err := c.encode(*tt.Parent)
			if err != nil {
				return nil, err
			}
			obj["parent"] = parentEnc
		}
		return obj, nil

	case typesystem.Ambiguous:
		return map[string]any{"valueType": int(vtAmbiguous), "shared": false}, nil

	default:
		return nil, swarmerr.New(swarmerr.Serialization, "unrecognized type variant %T", t)
	}
}

// flattenLambda undoes LambdaOf's currying so the wire form is a flat
// argument list plus a single return type, matching the source schema.
func flattenLambda(l typesystem.Lambda) ([]typesystem.Type, typesystem.Type) {
	var params []typesystem.Type
	var cur typesystem.Type = l
	for {
		lam, ok := cur.(typesystem.Lambda)
		if !ok {
			return params, cur
		}
		params = append(params, lam.Param)
		cur = lam.Result
	}
}

// typeDecodeCtx mirrors typeEncodeCtx on the way back in: Objects are
// rebuilt once per declSite and reused for every later reference.
type typeDecodeCtx struct {
	objects map[string]*typesystem.Object
}

// DecodeType is the inverse of EncodeType.
func DecodeType(raw map[string]any) (typesystem.Type, error) {
	return (&typeDecodeCtx{objects: make(map[string]*typesystem.Object)}).decode(raw)
}

func (c *typeDecodeCtx) decode(raw map[string]any) (typesystem.Type, error) {
	if raw == nil {
		return nil, swarmerr.New(swarmerr.Serialization, "missing type object")
	}
	vt, err := asInt(raw, "valueType")
	if err != nil {
		return nil, err
	}

	switch Kind(vt) {
	case vtBool:
		return typesystem.TBool, nil
	case vtNumber:
		return typesystem.TNumber, nil
	case vtString:
		return typesystem.TString, nil
	case vtVoid:
		return typesystem.TVoid, nil
	case vtTypeKind:
		return typesystem.TType, nil
	case vtUnit:
		return typesystem.TUnit, nil
	case vtError:
		return typesystem.TError, nil

	case vtEnumerable:
		inner, err := c.decodeField(raw, "concrete")
		if err != nil {
			return nil, err
		}
		return typesystem.Enumerable{Value: inner}, nil

	case vtMap:
		inner, err := c.decodeField(raw, "concrete")
		if err != nil {
			return nil, err
		}
		return typesystem.Map{Value: inner}, nil

	case vtLambda:
		retRaw, ok := raw["return"].(map[string]any)
		if !ok {
			return nil, swarmerr.New(swarmerr.Serialization, "lambda type missing return")
		}
		ret, err := c.decode(retRaw)
		if err != nil {
			return nil, err
		}
		argsRaw, _ := raw["arguments"].([]any)
		params := make([]typesystem.Type, len(argsRaw))
		for i, a := range argsRaw {
			am, ok := a.(map[string]any)
			if !ok {
				return nil, swarmerr.New(swarmerr.Serialization, "lambda argument %d is not an object", i)
			}
			pt, err := c.decode(am)
			if err != nil {
				return nil, err
			}
			params[i] = pt
		}
		return typesystem.LambdaOf(params, ret), nil

	case vtObject:
		declSite, _ := raw["declSite"].(string)
		if declSite == "" {
			return nil, swarmerr.New(swarmerr.Serialization, "object type missing declSite")
		}
		if existing, ok := c.objects[declSite]; ok {
			return *existing, nil
		}
		name, _ := raw["name"].(string)
		obj := &typesystem.Object{Name: name, DeclSite: declSite, Properties: typesystem.NewOrderedProps()}
		c.objects[declSite] = obj // registered before recursing so self-reference resolves

		if parentRaw, ok := raw["parent"].(map[string]any); ok {
			parentT, err := c.decode(parentRaw)
			if err != nil {
				return nil, err
			}
			if parentObj, ok := parentT.(typesystem.Object); ok {
				obj.Parent = &parentObj
			}
		}
		if propsRaw, ok := raw["properties"].([]any); ok {
			for _, p := range propsRaw {
				pm, ok := p.(map[string]any)
				if !ok {
					continue
				}
				pname, _ := pm["name"].(string)
				ptRaw, _ := pm["type"].(map[string]any)
				pt, err := c.decode(ptRaw)
				if err != nil {
					return nil, err
				}
				obj.Properties.Set(pname, pt)
			}
		}
		return *obj, nil

	case vtAmbiguous:
		return typesystem.Ambiguous{}, nil

	default:
		return nil, swarmerr.New(swarmerr.Serialization, "unrecognized valueType %d", vt)
	}
}

func (c *typeDecodeCtx) decodeField(raw map[string]any, key string) (typesystem.Type, error) {
	m, ok := raw[key].(map[string]any)
	if !ok {
		return nil, swarmerr.New(swarmerr.Serialization, "missing %q field on type object", key)
	}
	return c.decode(m)
}

func asInt(raw map[string]any, key string) (int, error) {
	v, ok := raw[key]
	if !ok {
		return 0, swarmerr.New(swarmerr.Serialization, "missing %q field", key)
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, swarmerr.New(swarmerr.Serialization, "field %q is not an integer: %v", key, err)
		}
		return int(i), nil
	default:
		return 0, swarmerr.New(swarmerr.Serialization, "field %q has unexpected type %T", key, v)
	}
}
