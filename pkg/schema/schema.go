// Package schema parses Avro schema text into a tree of typed nodes.
//
// Named types (record, enum, fixed) are kept in a registry keyed by full
// name. Every by-name reference is stored as a Ref node and resolved through
// that registry on demand, so self-referential records never form pointer
// cycles in the tree.
package schema

import (
	"sort"
	"strings"

	"github.com/ssargent/avroview/pkg/avroerr"
)

// Type is the kind of a schema node.
type Type string

const (
	Null    Type = "null"
	Boolean Type = "boolean"
	Int     Type = "int"
	Long    Type = "long"
	Float   Type = "float"
	Double  Type = "double"
	Bytes   Type = "bytes"
	String  Type = "string"
	Record  Type = "record"
	Enum    Type = "enum"
	Array   Type = "array"
	Map     Type = "map"
	Union   Type = "union"
	Fixed   Type = "fixed"

	// Ref is a by-name reference to a named type.
	Ref Type = "ref"
)

var primitives = map[string]Type{
	"null":    Null,
	"boolean": Boolean,
	"int":     Int,
	"long":    Long,
	"float":   Float,
	"double":  Double,
	"bytes":   Bytes,
	"string":  String,
}

// IsPrimitive reports whether t is one of the eight primitive types.
func (t Type) IsPrimitive() bool {
	_, ok := primitives[string(t)]
	return ok
}

// IsNamed reports whether t declares a named type.
func (t Type) IsNamed() bool {
	return t == Record || t == Enum || t == Fixed
}

// Node is one type in the schema tree. Only the attributes of its Type are set.
type Node struct {
	Type Type

	// Named types.
	Name      string
	Namespace string
	Aliases   []string
	Doc       string

	Fields  []*Field // record
	Symbols []string // enum
	Size    int      // fixed
	Items   *Node    // array
	Values  *Node    // map

	Branches []*Node // union

	// Ref holds the full name of the referenced type once parsing completes.
	Ref string

	// Logical type annotations are informational; they do not change the
	// binary encoding.
	LogicalType string
	Precision   int
	Scale       int
}

// FullName returns the namespace-qualified name of a named type.
func (n *Node) FullName() string {
	if n.Namespace == "" {
		return n.Name
	}
	return n.Namespace + "." + n.Name
}

// TypeName is the name a union branch is tagged with: the full name for
// named types and references, the kind otherwise.
func (n *Node) TypeName() string {
	switch {
	case n.Type.IsNamed():
		return n.FullName()
	case n.Type == Ref:
		return n.Ref
	default:
		return string(n.Type)
	}
}

// Field is a record field.
type Field struct {
	Name       string
	Type       *Node
	Doc        string
	Aliases    []string
	HasDefault bool
	Default    interface{}
}

// Schema is a parsed schema together with its named-type registry.
type Schema struct {
	root    *Node
	text    string
	named   map[string]*Node
	aliases map[string]string
}

// Root returns the top-level node.
func (s *Schema) Root() *Node {
	return s.root
}

// Text returns the schema text the schema was parsed from.
func (s *Schema) Text() string {
	return s.text
}

// Names returns the full names of all declared named types, sorted.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.named))
	for name := range s.named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up a declared named type by full name or alias.
func (s *Schema) Resolve(name string) (*Node, error) {
	if n, ok := s.named[name]; ok {
		return n, nil
	}
	if target, ok := s.aliases[name]; ok {
		if n, ok := s.named[target]; ok {
			return n, nil
		}
	}
	return nil, avroerr.Newf(avroerr.KindUnknownType, "unknown named type %q", name)
}

// Deref follows a Ref node to the named type it points at. Other nodes are
// returned as-is.
func (s *Schema) Deref(n *Node) (*Node, error) {
	if n == nil {
		return nil, avroerr.New(avroerr.KindUnknownType, "nil schema node")
	}
	if n.Type != Ref {
		return n, nil
	}
	return s.Resolve(n.Ref)
}

// splitName separates a possibly dotted name into namespace and short name.
func splitName(name, namespace string) (string, string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return namespace, name
}
