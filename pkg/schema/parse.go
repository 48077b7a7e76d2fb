package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ssargent/avroview/pkg/avroerr"
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reference records where a by-name reference appeared so it can be
// resolved once every named type has been declared.
type reference struct {
	node      *Node
	name      string
	namespace string
}

type parser struct {
	named   map[string]*Node
	aliases map[string]string
	refs    []reference
}

// Parse parses schema text into a Schema. Forward references are allowed;
// references that never resolve fail the parse.
func Parse(text string) (*Schema, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, avroerr.Wrap(avroerr.KindParse, "schema is not valid JSON", err)
	}
	if dec.More() {
		return nil, avroerr.New(avroerr.KindParse, "trailing data after schema")
	}

	p := &parser{
		named:   make(map[string]*Node),
		aliases: make(map[string]string),
	}
	root, err := p.parse(raw, "")
	if err != nil {
		return nil, err
	}
	if err := p.resolveRefs(); err != nil {
		return nil, avroerr.Wrap(avroerr.KindParse, "resolve named types", err)
	}

	return &Schema{
		root:    root,
		text:    text,
		named:   p.named,
		aliases: p.aliases,
	}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level schemas.
func MustParse(text string) *Schema {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

func (p *parser) parse(v interface{}, namespace string) (*Node, error) {
	switch t := v.(type) {
	case string:
		return p.parseName(t, namespace)
	case []interface{}:
		return p.parseUnion(t, namespace)
	case map[string]interface{}:
		return p.parseObject(t, namespace)
	default:
		return nil, avroerr.Newf(avroerr.KindParse, "unexpected schema value %s", describe(v))
	}
}

func (p *parser) parseName(name, namespace string) (*Node, error) {
	if t, ok := primitives[name]; ok {
		return &Node{Type: t}, nil
	}
	if name == "" {
		return nil, avroerr.New(avroerr.KindParse, "empty type name")
	}
	if err := validateFullName(name); err != nil {
		return nil, avroerr.Wrap(avroerr.KindUnknownType, fmt.Sprintf("unknown type %q", name), err)
	}

	n := &Node{Type: Ref}
	p.refs = append(p.refs, reference{node: n, name: name, namespace: namespace})
	return n, nil
}

func (p *parser) parseUnion(branches []interface{}, namespace string) (*Node, error) {
	n := &Node{Type: Union, Branches: make([]*Node, 0, len(branches))}
	seen := make(map[string]bool, len(branches))

	for i, b := range branches {
		branch, err := p.parse(b, namespace)
		if err != nil {
			return nil, err
		}
		if branch.Type == Union {
			return nil, avroerr.Newf(avroerr.KindParse, "union branch %d is itself a union", i)
		}

		key := string(branch.Type)
		switch {
		case branch.Type.IsNamed():
			key = branch.FullName()
		case branch.Type == Ref:
			key = qualify(p.refs[len(p.refs)-1].name, namespace)
		}
		if seen[key] {
			return nil, avroerr.Newf(avroerr.KindParse, "union contains %q more than once", key)
		}
		seen[key] = true

		n.Branches = append(n.Branches, branch)
	}
	return n, nil
}

func (p *parser) parseObject(obj map[string]interface{}, namespace string) (*Node, error) {
	rawType, ok := obj["type"]
	if !ok {
		return nil, avroerr.New(avroerr.KindParse, `schema object has no "type"`)
	}

	typeName, ok := rawType.(string)
	if !ok {
		// {"type": {...}} or {"type": [...]} wraps another schema.
		return p.parse(rawType, namespace)
	}

	var (
		n   *Node
		err error
	)
	switch typeName {
	case "record", "error":
		n, err = p.parseRecord(obj, namespace)
	case "enum":
		n, err = p.parseEnum(obj, namespace)
	case "fixed":
		n, err = p.parseFixed(obj, namespace)
	case "array":
		n, err = p.parseArray(obj, namespace)
	case "map":
		n, err = p.parseMap(obj, namespace)
	default:
		n, err = p.parseName(typeName, namespace)
	}
	if err != nil {
		return nil, err
	}

	if lt, ok := obj["logicalType"].(string); ok {
		n.LogicalType = lt
		n.Precision = intProp(obj, "precision")
		n.Scale = intProp(obj, "scale")
	}
	return n, nil
}

func (p *parser) parseRecord(obj map[string]interface{}, namespace string) (*Node, error) {
	n, err := p.declare(Record, obj, namespace)
	if err != nil {
		return nil, err
	}

	rawFields, ok := obj["fields"].([]interface{})
	if !ok {
		return nil, avroerr.Newf(avroerr.KindParse, "record %q has no fields array", n.FullName())
	}

	seen := make(map[string]bool, len(rawFields))
	n.Fields = make([]*Field, 0, len(rawFields))
	for i, rf := range rawFields {
		fobj, ok := rf.(map[string]interface{})
		if !ok {
			return nil, avroerr.Newf(avroerr.KindParse, "record %q field %d is not an object", n.FullName(), i)
		}
		name, _ := fobj["name"].(string)
		if !namePattern.MatchString(name) {
			return nil, avroerr.Newf(avroerr.KindParse, "record %q field %d has invalid name %q", n.FullName(), i, name)
		}
		if seen[name] {
			return nil, avroerr.Newf(avroerr.KindParse, "record %q has duplicate field %q", n.FullName(), name)
		}
		seen[name] = true

		rawType, ok := fobj["type"]
		if !ok {
			return nil, avroerr.Newf(avroerr.KindParse, "record %q field %q has no type", n.FullName(), name)
		}
		// Field types inherit the record's namespace.
		ft, err := p.parse(rawType, n.Namespace)
		if err != nil {
			return nil, err
		}

		f := &Field{
			Name:    name,
			Type:    ft,
			Aliases: stringList(fobj["aliases"]),
		}
		f.Doc, _ = fobj["doc"].(string)
		if def, ok := fobj["default"]; ok {
			f.HasDefault = true
			f.Default = def
		}
		n.Fields = append(n.Fields, f)
	}
	return n, nil
}

func (p *parser) parseEnum(obj map[string]interface{}, namespace string) (*Node, error) {
	n, err := p.declare(Enum, obj, namespace)
	if err != nil {
		return nil, err
	}

	rawSymbols, ok := obj["symbols"].([]interface{})
	if !ok {
		return nil, avroerr.Newf(avroerr.KindParse, "enum %q has no symbols array", n.FullName())
	}

	seen := make(map[string]bool, len(rawSymbols))
	n.Symbols = make([]string, 0, len(rawSymbols))
	for _, rs := range rawSymbols {
		sym, ok := rs.(string)
		if !ok || !namePattern.MatchString(sym) {
			return nil, avroerr.Newf(avroerr.KindParse, "enum %q has invalid symbol %v", n.FullName(), rs)
		}
		if seen[sym] {
			return nil, avroerr.Newf(avroerr.KindParse, "enum %q has duplicate symbol %q", n.FullName(), sym)
		}
		seen[sym] = true
		n.Symbols = append(n.Symbols, sym)
	}
	return n, nil
}

func (p *parser) parseFixed(obj map[string]interface{}, namespace string) (*Node, error) {
	n, err := p.declare(Fixed, obj, namespace)
	if err != nil {
		return nil, err
	}

	num, ok := obj["size"].(json.Number)
	if !ok {
		return nil, avroerr.Newf(avroerr.KindParse, "fixed %q has no size", n.FullName())
	}
	size, err := num.Int64()
	if err != nil || size < 0 || size > 1<<31-1 {
		return nil, avroerr.Newf(avroerr.KindParse, "fixed %q has invalid size %s", n.FullName(), num)
	}
	n.Size = int(size)
	return n, nil
}

func (p *parser) parseArray(obj map[string]interface{}, namespace string) (*Node, error) {
	rawItems, ok := obj["items"]
	if !ok {
		return nil, avroerr.New(avroerr.KindParse, `array has no "items"`)
	}
	items, err := p.parse(rawItems, namespace)
	if err != nil {
		return nil, err
	}
	return &Node{Type: Array, Items: items}, nil
}

func (p *parser) parseMap(obj map[string]interface{}, namespace string) (*Node, error) {
	rawValues, ok := obj["values"]
	if !ok {
		return nil, avroerr.New(avroerr.KindParse, `map has no "values"`)
	}
	values, err := p.parse(rawValues, namespace)
	if err != nil {
		return nil, err
	}
	return &Node{Type: Map, Values: values}, nil
}

// declare registers a named type before its body is parsed so that the body
// may refer to it.
func (p *parser) declare(t Type, obj map[string]interface{}, enclosing string) (*Node, error) {
	rawName, _ := obj["name"].(string)
	if rawName == "" {
		return nil, avroerr.Newf(avroerr.KindParse, "%s has no name", t)
	}

	namespace := enclosing
	if ns, ok := obj["namespace"].(string); ok {
		namespace = ns
	}
	namespace, name := splitName(rawName, namespace)

	n := &Node{Type: t, Name: name, Namespace: namespace}
	if err := validateFullName(n.FullName()); err != nil {
		return nil, err
	}
	if _, ok := primitives[name]; ok && namespace == "" {
		return nil, avroerr.Newf(avroerr.KindParse, "%s may not be named after primitive %q", t, name)
	}

	full := n.FullName()
	if _, exists := p.named[full]; exists {
		return nil, avroerr.Newf(avroerr.KindParse, "named type %q is defined more than once", full)
	}
	p.named[full] = n

	n.Doc, _ = obj["doc"].(string)
	for _, alias := range stringList(obj["aliases"]) {
		qualified := qualify(alias, namespace)
		n.Aliases = append(n.Aliases, qualified)
		p.aliases[qualified] = full
	}
	return n, nil
}

func (p *parser) resolveRefs() error {
	for _, ref := range p.refs {
		candidates := []string{qualify(ref.name, ref.namespace)}
		if !strings.Contains(ref.name, ".") && ref.namespace != "" {
			candidates = append(candidates, ref.name)
		}

		resolved := ""
		for _, c := range candidates {
			if _, ok := p.named[c]; ok {
				resolved = c
				break
			}
			if target, ok := p.aliases[c]; ok {
				resolved = target
				break
			}
		}
		if resolved == "" {
			return avroerr.Newf(avroerr.KindUnknownType, "unknown type %q", ref.name)
		}
		ref.node.Ref = resolved
	}
	return nil
}

func qualify(name, namespace string) string {
	if strings.Contains(name, ".") || namespace == "" {
		return name
	}
	return namespace + "." + name
}

func validateFullName(full string) error {
	for _, part := range strings.Split(full, ".") {
		if !namePattern.MatchString(part) {
			return avroerr.Newf(avroerr.KindParse, "invalid name %q", full)
		}
	}
	return nil
}

func stringList(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intProp(obj map[string]interface{}, key string) int {
	num, ok := obj[key].(json.Number)
	if !ok {
		return 0
	}
	i, err := num.Int64()
	if err != nil {
		return 0
	}
	return int(i)
}

func describe(v interface{}) string {
	if v == nil {
		return "null"
	}
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(v)
	return strings.TrimSpace(buf.String())
}
