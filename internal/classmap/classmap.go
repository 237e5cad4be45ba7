// Package classmap builds and serves the class map: the arena of Class
// nodes discovered in one compilation unit, addressed by syntax-tree node
// identity. It backs both the scope inheritor (parent class chains) and
// the symbol model (field-owning-class resolution).
package classmap

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/ompj/internal/rewriteerr"
)

// Kind classifies how a Class came to exist.
type Kind int

const (
	Top Kind = iota
	Inner
	Local
	Anonymous
)

func (k Kind) String() string {
	switch k {
	case Top:
		return "Top"
	case Inner:
		return "Inner"
	case Local:
		return "Local"
	case Anonymous:
		return "Anonymous"
	default:
		return "Unknown"
	}
}

// FieldDecl is a field declared directly in a class body (not inherited).
type FieldDecl struct {
	Name string // array-less name
	Type string // textual type, best-effort
}

// Class is a forest node keyed by lexical nesting (EnclosingIndex),
// carrying its own declared fields and, for superclasses declared in the
// same compilation unit, an inheritance link (ExtendsIndex) used by
// symbol.Resolve to walk the ancestor chain.
type Class struct {
	Index         int
	Node          *sitter.Node
	Name          string
	Kind          Kind
	EnclosingIndex int // -1 for Top
	ExtendsIndex  int  // -1 if no superclass or superclass not in this unit
	ExtendsName   string
	Fields        []FieldDecl
	// MethodParams indexes formal-parameter declarations by the
	// method/constructor node that declares them. scope.InheritedParams
	// does not read it; it collects parameters from the tree directly.
	MethodParams map[*sitter.Node][]FieldDecl
}

// Map is the Class Map: identity-keyed lookup from a class-bearing node
// (class_declaration, interface_declaration, enum_declaration, or the
// class_body of an anonymous object_creation_expression) to its Class.
type Map struct {
	arena   []*Class
	byNode  map[*sitter.Node]int
	byName  map[string][]int // simple name -> arena indices, for extends resolution
}

// Lookup returns the Class registered for node, if any.
func (m *Map) Lookup(node *sitter.Node) (*Class, bool) {
	idx, ok := m.byNode[node]
	if !ok {
		return nil, false
	}
	return m.arena[idx], true
}

// At returns the Class at the given arena index.
func (m *Map) At(index int) *Class {
	if index < 0 || index >= len(m.arena) {
		return nil
	}
	return m.arena[index]
}

// ClassOf walks node.Parent() up to the nearest indexed class-bearing
// ancestor. A tree whose walk escapes the root without a hit signals that
// the syntax tree is inconsistent with the class map.
func (m *Map) ClassOf(node *sitter.Node) (*Class, error) {
	for cur := node; cur != nil; cur = cur.Parent() {
		if cls, ok := m.Lookup(cur); ok {
			return cls, nil
		}
	}
	return nil, rewriteerr.NewParseError(nodeLocation(node), fmt.Errorf("no enclosing class found in class map"))
}

// Ancestors returns the Class chain for cls, innermost (cls itself) first,
// outward through each EnclosingIndex to the Top class that roots the
// forest.
func (m *Map) Ancestors(cls *Class) []*Class {
	var chain []*Class
	for c := cls; c != nil; {
		chain = append(chain, c)
		if c.EnclosingIndex < 0 {
			break
		}
		c = m.At(c.EnclosingIndex)
	}
	return chain
}

// ExtendsChain returns cls and every superclass declared in this
// compilation unit, innermost (cls) first, for walking the inheritance
// chain during field resolution.
func (m *Map) ExtendsChain(cls *Class) []*Class {
	var chain []*Class
	seen := map[int]bool{}
	for c := cls; c != nil && !seen[c.Index]; {
		seen[c.Index] = true
		chain = append(chain, c)
		if c.ExtendsIndex < 0 {
			break
		}
		c = m.At(c.ExtendsIndex)
	}
	return chain
}

func nodeLocation(node *sitter.Node) string {
	if node == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d:%d", node.StartByte(), node.EndByte())
}
