package serialize

import (
	"encoding/json"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/swarmerr"
	"github.com/swarm-lang/swarm/internal/symbols"
)

// ToJSON serializes a program (or any subtree) to canonical, indented JSON
// (spec §4.7). Two serializations of the same tree always produce the same
// bytes because every wire value goes through json.Marshal on plain Go
// maps/slices, whose key ordering is alphabetical and therefore
// deterministic.
func ToJSON(n *ast.Node) ([]byte, error) {
	obj, err := EncodeNode(n)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(obj, "", "  ")
}

// FromJSON is the inverse of ToJSON.
func FromJSON(data []byte) (*ast.Node, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, swarmerr.Wrap(swarmerr.Serialization, err, "malformed JSON payload")
	}
	return (&decodeCtx{symbols: newSymbolRegistry()}).decodeNode(raw)
}

// EncodeNode renders n and everything reachable from it as the canonical
// wire map described in spec §6: every node carries astNodeName, position,
// and tag-specific fields.
func EncodeNode(n *ast.Node) (map[string]any, error) {
	return (&encodeCtx{}).encodeNode(n)
}

type encodeCtx struct{}

func (c *encodeCtx) encodeNode(n *ast.Node) (map[string]any, error) {
	if n == nil {
		return nil, nil
	}
	obj := map[string]any{
		"astNodeName": n.Tag.String(),
		"position":    encodePosition(n.Pos),
	}
	if n.ResolvedType != nil {
		rt, err := EncodeType(n.ResolvedType)
		if err != nil {
			return nil, err
		}
		obj["resolvedType"] = rt
	}

	switch n.Tag {
	case ast.Program:
		stmts, err := c.encodeNodeList(n.Statements)
		if err != nil {
			return nil, err
		}
		obj["package"] = n.Package
		obj["imports"] = nonNilStrings(n.Imports)
		obj["body"] = stmts

	case ast.Block:
		stmts, err := c.encodeNodeList(n.Statements)
		if err != nil {
			return nil, err
		}
		obj["body"] = stmts

	case ast.Identifier:
		obj["name"] = n.Name
		if n.Symbol != nil {
			sym, err := EncodeSymbol(n.Symbol)
			if err != nil {
				return nil, err
			}
			obj["symbol"] = sym
		}

	case ast.NumberLiteral:
		obj["value"] = n.NumberValue
	case ast.StringLiteral:
		obj["value"] = n.StringValue
	case ast.BoolLiteral:
		obj["value"] = n.BoolValue

	case ast.EnumerableLiteral:
		elems, err := c.encodeNodeList(n.Elements)
		if err != nil {
			return nil, err
		}
		obj["elements"] = elems

	case ast.MapLiteral:
		elems, err := c.encodeNodeList(n.Elements)
		if err != nil {
			return nil, err
		}
		obj["keys"] = nonNilStrings(n.MapKeys)
		obj["elements"] = elems

	case ast.TypeLiteral:
		tv, err := EncodeType(n.TypeValue)
		if err != nil {
			return nil, err
		}
		obj["typeValue"] = tv

	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod,
		ast.Lt, ast.Lte, ast.Gt, ast.Gte, ast.Eq, ast.Neq, ast.And, ast.Or:
		left, err := c.encodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.encodeNode(n.Right)
		if err != nil {
			return nil, err
		}
		obj["left"] = left
		obj["right"] = right
		if n.Tag == ast.Add {
			obj["concatenation"] = n.Concatenation
		}

	case ast.Not, ast.Neg:
		left, err := c.encodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		obj["left"] = left

	case ast.Assign:
		dest, err := c.encodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		value, err := c.encodeNode(n.Right)
		if err != nil {
			return nil, err
		}
		obj["dest"] = dest
		obj["value"] = value

	case ast.VariableDeclaration:
		dest, err := c.encodeNode(n.Dest)
		if err != nil {
			return nil, err
		}
		value, err := c.encodeNode(n.Value)
		if err != nil {
			return nil, err
		}
		if n.TypeAnnotation != nil {
			typeAnn, err := EncodeType(n.TypeAnnotation)
			if err != nil {
				return nil, err
			}
			obj["typeAnnotation"] = typeAnn
		}
		obj["dest"] = dest
		obj["value"] = value
		obj["shared"] = n.Shared

	case ast.Return:
		if n.Value != nil {
			value, err := c.encodeNode(n.Value)
			if err != nil {
				return nil, err
			}
			obj["value"] = value
		}

	case ast.Function:
		obj["name"] = n.Name
		params, err := c.encodeParams(n.Params)
		if err != nil {
			return nil, err
		}
		obj["params"] = params
		retType, err := EncodeType(n.ReturnType)
		if err != nil {
			return nil, err
		}
		obj["returnType"] = retType
		if n.Body != nil {
			body, err := c.encodeNode(n.Body)
			if err != nil {
				return nil, err
			}
			obj["body"] = body
		}
		if n.Symbol != nil {
			sym, err := EncodeSymbol(n.Symbol)
			if err != nil {
				return nil, err
			}
			obj["symbol"] = sym
		}
		captured, err := c.encodeSymbolList(n.Captured)
		if err != nil {
			return nil, err
		}
		obj["captured"] = captured

	case ast.Constructor:
		params, err := c.encodeParams(n.Params)
		if err != nil {
			return nil, err
		}
		obj["params"] = params
		retType, err := EncodeType(n.ReturnType)
		if err != nil {
			return nil, err
		}
		obj["returnType"] = retType
		if n.Body != nil {
			body, err := c.encodeNode(n.Body)
			if err != nil {
				return nil, err
			}
			obj["body"] = body
		}
		obj["declSite"] = n.DeclSite
		captured, err := c.encodeSymbolList(n.Captured)
		if err != nil {
			return nil, err
		}
		obj["captured"] = captured

	case ast.Call, ast.DeferCall:
		target, err := c.encodeNode(n.Target)
		if err != nil {
			return nil, err
		}
		args, err := c.encodeNodeList(n.Args)
		if err != nil {
			return nil, err
		}
		obj["target"] = target
		obj["arguments"] = args

	case ast.If:
		cond, err := c.encodeNode(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := c.encodeNode(n.Then)
		if err != nil {
			return nil, err
		}
		obj["cond"] = cond
		obj["then"] = then
		if n.Else != nil {
			elseB, err := c.encodeNode(n.Else)
			if err != nil {
				return nil, err
			}
			obj["else"] = elseB
		}

	case ast.While:
		cond, err := c.encodeNode(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := c.encodeNode(n.Body)
		if err != nil {
			return nil, err
		}
		obj["cond"] = cond
		obj["body"] = body

	case ast.Enumerate:
		source, err := c.encodeNode(n.Source)
		if err != nil {
			return nil, err
		}
		inductionVar, err := c.encodeNode(n.InductionVar)
		if err != nil {
			return nil, err
		}
		body, err := c.encodeNode(n.Body)
		if err != nil {
			return nil, err
		}
		obj["source"] = source
		obj["inductionVar"] = inductionVar
		obj["body"] = body
		obj["shared"] = n.Shared

	case ast.With:
		resource, err := c.encodeNode(n.Resource)
		if err != nil {
			return nil, err
		}
		binding, err := c.encodeNode(n.Binding)
		if err != nil {
			return nil, err
		}
		body, err := c.encodeNode(n.Body)
		if err != nil {
			return nil, err
		}
		obj["resource"] = resource
		obj["binding"] = binding
		obj["body"] = body

	case ast.Break, ast.Continue:
		// No payload.

	case ast.ClassAccess:
		left, err := c.encodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		obj["path"] = left
		obj["member"] = n.Name

	case ast.MapAccess:
		left, err := c.encodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		obj["path"] = left
		obj["key"] = n.Name

	case ast.EnumerableAccess:
		left, err := c.encodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.encodeNode(n.Right)
		if err != nil {
			return nil, err
		}
		obj["path"] = left
		obj["index"] = right

	case ast.EnumerableAppend:
		left, err := c.encodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.encodeNode(n.Right)
		if err != nil {
			return nil, err
		}
		obj["path"] = left
		obj["value"] = right

	case ast.Include:
		obj["path"] = n.Name

	case ast.Use:
		if n.Left != nil {
			left, err := c.encodeNode(n.Left)
			if err != nil {
				return nil, err
			}
			obj["binding"] = left
		}
		obj["parent"] = n.Parent

	case ast.TypeBody:
		obj["name"] = n.Name
		obj["parent"] = n.Parent
		obj["declSite"] = n.DeclSite
		props, err := c.encodeParams(n.Properties)
		if err != nil {
			return nil, err
		}
		obj["properties"] = props
		ctors, err := c.encodeNodeList(n.Constructors)
		if err != nil {
			return nil, err
		}
		obj["constructors"] = ctors

	default:
		return nil, swarmerr.New(swarmerr.Serialization, "no encoding defined for node tag %s", n.Tag)
	}

	return obj, nil
}

func (c *encodeCtx) encodeNodeList(nodes []*ast.Node) ([]any, error) {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		enc, err := c.encodeNode(n)
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

func (c *encodeCtx) encodeSymbolList(syms []*symbols.Symbol) ([]any, error) {
	out := make([]any, len(syms))
	for i, s := range syms {
		enc, err := EncodeSymbol(s)
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

func (c *encodeCtx) encodeParams(params []*ast.Param) ([]any, error) {
	out := make([]any, len(params))
	for i, p := range params {
		t, err := EncodeType(p.Type)
		if err != nil {
			return nil, err
		}
		entry := map[string]any{"name": p.Name, "type": t}
		if p.Symbol != nil {
			sym, err := EncodeSymbol(p.Symbol)
			if err != nil {
				return nil, err
			}
			entry["symbol"] = sym
		}
		out[i] = entry
	}
	return out, nil
}

type decodeCtx struct {
	symbols *symbolRegistry
}

func (c *decodeCtx) decodeNode(raw map[string]any) (*ast.Node, error) {
	if raw == nil {
		return nil, nil
	}
	tagName, _ := raw["astNodeName"].(string)
	tag, ok := ast.TagFromString(tagName)
	if !ok {
		return nil, swarmerr.New(swarmerr.Serialization, "unrecognized astNodeName %q", tagName)
	}
	posRaw, _ := raw["position"].(map[string]any)
	pos, err := decodePosition(posRaw)
	if err != nil {
		return nil, err
	}
	n := &ast.Node{Tag: tag, Pos: pos}

	if rt, ok := raw["resolvedType"].(map[string]any); ok {
		n.ResolvedType, err = DecodeType(rt)
		if err != nil {
			return nil, err
		}
	}

	switch tag {
	case ast.Program:
		n.Package, _ = raw["package"].(string)
		n.Imports = stringSlice(raw["imports"])
		n.Statements, err = c.decodeNodeList(raw["body"])

	case ast.Block:
		n.Statements, err = c.decodeNodeList(raw["body"])

	case ast.Identifier:
		n.Name, _ = raw["name"].(string)
		if symRaw, ok := raw["symbol"].(map[string]any); ok {
			n.Symbol, err = c.symbols.decode(symRaw)
		}

	case ast.NumberLiteral:
		v, _ := raw["value"].(float64)
		n.NumberValue = v
	case ast.StringLiteral:
		n.StringValue, _ = raw["value"].(string)
	case ast.BoolLiteral:
		n.BoolValue, _ = raw["value"].(bool)

	case ast.EnumerableLiteral:
		n.Elements, err = c.decodeNodeList(raw["elements"])

	case ast.MapLiteral:
		n.MapKeys = stringSlice(raw["keys"])
		n.Elements, err = c.decodeNodeList(raw["elements"])

	case ast.TypeLiteral:
		tv, _ := raw["typeValue"].(map[string]any)
		n.TypeValue, err = DecodeType(tv)

	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod,
		ast.Lt, ast.Lte, ast.Gt, ast.Gte, ast.Eq, ast.Neq, ast.And, ast.Or:
		if err = c.assignPair(raw, &n.Left, &n.Right, "left", "right"); err != nil {
			break
		}
		if tag == ast.Add {
			n.Concatenation, _ = raw["concatenation"].(bool)
		}

	case ast.Not, ast.Neg:
		n.Left, err = c.decodeNode(mapField(raw, "left"))

	case ast.Assign:
		err = c.assignPair(raw, &n.Left, &n.Right, "dest", "value")

	case ast.VariableDeclaration:
		n.Dest, err = c.decodeNode(mapField(raw, "dest"))
		if err != nil {
			break
		}
		n.Value, err = c.decodeNode(mapField(raw, "value"))
		if err != nil {
			break
		}
		if ta, ok := raw["typeAnnotation"].(map[string]any); ok {
			n.TypeAnnotation, err = DecodeType(ta)
		}
		n.Shared, _ = raw["shared"].(bool)

	case ast.Return:
		if v, ok := raw["value"].(map[string]any); ok {
			n.Value, err = c.decodeNode(v)
		}

	case ast.Function, ast.Constructor:
		n.Name, _ = raw["name"].(string)
		n.Params, err = c.decodeParams(raw["params"])
		if err != nil {
			break
		}
		n.ReturnType, err = DecodeType(mapField(raw, "returnType"))
		if err != nil {
			break
		}
		if b, ok := raw["body"].(map[string]any); ok {
			n.Body, err = c.decodeNode(b)
			if err != nil {
				break
			}
		}
		if symRaw, ok := raw["symbol"].(map[string]any); ok {
			n.Symbol, err = c.symbols.decode(symRaw)
			if err != nil {
				break
			}
		}
		n.DeclSite, _ = raw["declSite"].(string)
		n.Captured, err = c.decodeSymbolList(raw["captured"])

	case ast.Call, ast.DeferCall:
		n.Target, err = c.decodeNode(mapField(raw, "target"))
		if err != nil {
			break
		}
		n.Args, err = c.decodeNodeList(raw["arguments"])

	case ast.If:
		n.Cond, err = c.decodeNode(mapField(raw, "cond"))
		if err != nil {
			break
		}
		n.Then, err = c.decodeNode(mapField(raw, "then"))
		if err != nil {
			break
		}
		if e, ok := raw["else"].(map[string]any); ok {
			n.Else, err = c.decodeNode(e)
		}

	case ast.While:
		err = c.assignPair(raw, &n.Cond, &n.Body, "cond", "body")

	case ast.Enumerate:
		n.Source, err = c.decodeNode(mapField(raw, "source"))
		if err != nil {
			break
		}
		n.InductionVar, err = c.decodeNode(mapField(raw, "inductionVar"))
		if err != nil {
			break
		}
		n.Body, err = c.decodeNode(mapField(raw, "body"))
		n.Shared, _ = raw["shared"].(bool)

	case ast.With:
		n.Resource, err = c.decodeNode(mapField(raw, "resource"))
		if err != nil {
			break
		}
		n.Binding, err = c.decodeNode(mapField(raw, "binding"))
		if err != nil {
			break
		}
		n.Body, err = c.decodeNode(mapField(raw, "body"))

	case ast.Break, ast.Continue:
		// No payload.

	case ast.ClassAccess:
		n.Left, err = c.decodeNode(mapField(raw, "path"))
		n.Name, _ = raw["member"].(string)

	case ast.MapAccess:
		n.Left, err = c.decodeNode(mapField(raw, "path"))
		n.Name, _ = raw["key"].(string)

	case ast.EnumerableAccess:
		err = c.assignPair(raw, &n.Left, &n.Right, "path", "index")

	case ast.EnumerableAppend:
		err = c.assignPair(raw, &n.Left, &n.Right, "path", "value")

	case ast.Include:
		n.Name, _ = raw["path"].(string)

	case ast.Use:
		if b, ok := raw["binding"].(map[string]any); ok {
			n.Left, err = c.decodeNode(b)
		}
		n.Parent, _ = raw["parent"].(string)

	case ast.TypeBody:
		n.Name, _ = raw["name"].(string)
		n.Parent, _ = raw["parent"].(string)
		n.DeclSite, _ = raw["declSite"].(string)
		n.Properties, err = c.decodeParams(raw["properties"])
		if err != nil {
			break
		}
		n.Constructors, err = c.decodeNodeList(raw["constructors"])

	default:
		err = swarmerr.New(swarmerr.Serialization, "no decoding defined for node tag %s", tag)
	}

	if err != nil {
		return nil, err
	}
	return n, nil
}

func (c *decodeCtx) assignPair(raw map[string]any, left, right **ast.Node, leftKey, rightKey string) error {
	var err error
	*left, err = c.decodeNode(mapField(raw, leftKey))
	if err != nil {
		return err
	}
	*right, err = c.decodeNode(mapField(raw, rightKey))
	return err
}

func (c *decodeCtx) decodeNodeList(v any) ([]*ast.Node, error) {
	items, _ := v.([]any)
	out := make([]*ast.Node, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, swarmerr.New(swarmerr.Serialization, "list element %d is not an object", i)
		}
		n, err := c.decodeNode(m)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (c *decodeCtx) decodeSymbolList(v any) ([]*symbols.Symbol, error) {
	items, _ := v.([]any)
	out := make([]*symbols.Symbol, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, swarmerr.New(swarmerr.Serialization, "symbol list element %d is not an object", i)
		}
		s, err := c.symbols.decode(m)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (c *decodeCtx) decodeParams(v any) ([]*ast.Param, error) {
	items, _ := v.([]any)
	out := make([]*ast.Param, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, swarmerr.New(swarmerr.Serialization, "param list element %d is not an object", i)
		}
		name, _ := m["name"].(string)
		typeRaw, _ := m["type"].(map[string]any)
		t, err := DecodeType(typeRaw)
		if err != nil {
			return nil, err
		}
		p := &ast.Param{Name: name, Type: t}
		if symRaw, ok := m["symbol"].(map[string]any); ok {
			p.Symbol, err = c.symbols.decode(symRaw)
			if err != nil {
				return nil, err
			}
		}
		out[i] = p
	}
	return out, nil
}

func mapField(raw map[string]any, key string) map[string]any {
	m, _ := raw[key].(map[string]any)
	return m
}

func stringSlice(v any) []string {
	items, _ := v.([]any)
	out := make([]string, len(items))
	for i, item := range items {
		out[i], _ = item.(string)
	}
	return out
}

// nonNilStrings mirrors stringSlice's own always-non-nil return so that a
// nil field and a round-tripped one encode to the same "[]" rather than a
// nil slice marshaling to "null" the first time and "[]" thereafter.
func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
