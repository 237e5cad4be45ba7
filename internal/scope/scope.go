// Package scope computes the sets of locals, parameters, and enclosing
// classes visible at a given node, as pure functions over the syntax tree
// that never mutate it.
package scope

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/ompj/internal/classmap"
	"github.com/viant/ompj/internal/symbol"
)

// ParentClasses returns the ordered sequence of Class from the innermost
// enclosing class of node outward to the Top class rooting its forest.
// It returns nil if node sits outside any class.
func ParentClasses(m *classmap.Map, node *sitter.Node) []*classmap.Class {
	cls, err := m.ClassOf(node)
	if err != nil {
		return nil
	}
	return m.Ancestors(cls)
}

// isClassBoundary reports whether node is a class-bearing construct that
// the Scope Inheritor must not walk across: a named class/interface/enum/
// annotation declaration, or the body of an anonymous class.
func isClassBoundary(node *sitter.Node) bool {
	switch node.Type() {
	case "class_declaration", "interface_declaration", "enum_declaration",
		"annotation_type_declaration", "class_body":
		return true
	}
	return false
}

type localDecl struct {
	v     symbol.Variable
	start uint32
}

// InheritedLocals returns every local declared textually before node
// within every enclosing block, up to but not crossing a class boundary,
// with shadowing resolved innermost-first.
func InheritedLocals(node *sitter.Node, src []byte) []symbol.Variable {
	return toVariables(collectLocalDecls(node, src))
}

// DirectiveLocals returns the locals visible at node that were declared
// inside region's own byte span: these are region-local and must never
// be captured.
func DirectiveLocals(region, node *sitter.Node, src []byte) []symbol.Variable {
	var out []symbol.Variable
	for _, d := range collectLocalDecls(node, src) {
		if d.start >= region.StartByte() {
			out = append(out, d.v)
		}
	}
	return out
}

func toVariables(decls []localDecl) []symbol.Variable {
	out := make([]symbol.Variable, 0, len(decls))
	for _, d := range decls {
		out = append(out, d.v)
	}
	return out
}

// collectLocalDecls walks node.Parent() upward, gathering every local
// declaration that textually precedes node within its own enclosing
// block (including for-loop headers, which count as declared from the
// loop's opening brace), stopping at the first class boundary.
// Shadowing: the innermost declaration for a given array-less name wins,
// which falls out naturally from visiting blocks innermost-first and
// skipping names already seen.
func collectLocalDecls(node *sitter.Node, src []byte) []localDecl {
	seen := map[string]bool{}
	var result []localDecl

	add := func(v symbol.Variable, start uint32) {
		if seen[v.ArrayLess] {
			return
		}
		seen[v.ArrayLess] = true
		result = append(result, localDecl{v: v, start: start})
	}

	cur := node
	for cur != nil {
		parent := cur.Parent()
		if parent == nil || isClassBoundary(parent) {
			break
		}

		switch parent.Type() {
		case "block", "switch_block":
			for _, d := range declarationsBefore(parent, cur.StartByte(), src) {
				add(d.v, d.start)
			}
		case "for_statement":
			if initNode := parent.ChildByFieldName("init"); initNode != nil && initNode != cur {
				for _, v := range declaratorsOf(initNode, src) {
					add(v, initNode.StartByte())
				}
			}
		case "enhanced_for_statement":
			if nameNode := parent.ChildByFieldName("name"); nameNode != nil {
				typeNode := parent.ChildByFieldName("type")
				typ := ""
				if typeNode != nil {
					typ = typeNode.Content(src)
				}
				add(symbol.Variable{
					Name:         nameNode.Content(src),
					ArrayLess:    arrayLessName(nameNode.Content(src)),
					Kind:         symbol.Local,
					DeclaredType: typ,
				}, parent.StartByte())
			}
		case "try_with_resources_statement", "try_statement":
			// resource declarations are visible within the try body; not a
			// common pragma-region shape, skip without diagnostic.
		}

		cur = parent
	}
	return result
}

// declarationsBefore collects every local_variable_declaration inside
// blockNode that starts before beforeByte.
func declarationsBefore(blockNode *sitter.Node, beforeByte uint32, src []byte) []localDecl {
	var out []localDecl
	for i := 0; i < int(blockNode.NamedChildCount()); i++ {
		child := blockNode.NamedChild(i)
		if child.StartByte() >= beforeByte {
			break
		}
		if child.Type() != "local_variable_declaration" {
			continue
		}
		for _, v := range declaratorsOf(child, src) {
			out = append(out, localDecl{v: v, start: child.StartByte()})
		}
	}
	return out
}

// declaratorsOf extracts every symbol.Variable declared by a
// local_variable_declaration node (which may declare several comma
// separated names sharing one type).
func declaratorsOf(declNode *sitter.Node, src []byte) []symbol.Variable {
	if declNode.Type() != "local_variable_declaration" {
		return nil
	}
	typ := ""
	if typeNode := declNode.ChildByFieldName("type"); typeNode != nil {
		typ = typeNode.Content(src)
	}
	var out []symbol.Variable
	for i := 0; i < int(declNode.NamedChildCount()); i++ {
		child := declNode.NamedChild(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(src)
		out = append(out, symbol.Variable{
			Name:         name,
			ArrayLess:    arrayLessName(name),
			Kind:         symbol.Local,
			DeclaredType: typ,
		})
	}
	return out
}

// InheritedParams returns the parameters of the first enclosing method or
// constructor declaration reached climbing from node, stopping at the
// first class boundary. For local/anonymous classes, parameters of
// enclosing methods of outer classes are therefore excluded: they are
// captured transitively through the enclosing class's context instead.
func InheritedParams(node *sitter.Node, src []byte) []symbol.Variable {
	seen := map[string]bool{}
	var result []symbol.Variable
	cur := node
	for cur != nil {
		if isClassBoundary(cur) {
			break
		}
		if cur.Type() == "method_declaration" || cur.Type() == "constructor_declaration" {
			for _, v := range paramsOf(cur, src) {
				if seen[v.ArrayLess] {
					continue
				}
				seen[v.ArrayLess] = true
				result = append(result, v)
			}
		}
		cur = cur.Parent()
	}
	return result
}

func paramsOf(methodNode *sitter.Node, src []byte) []symbol.Variable {
	paramsNode := methodNode.ChildByFieldName("parameters")
	if paramsNode == nil {
		return nil
	}
	var out []symbol.Variable
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		p := paramsNode.NamedChild(i)
		switch p.Type() {
		case "formal_parameter":
			nameNode := p.ChildByFieldName("name")
			typeNode := p.ChildByFieldName("type")
			if nameNode == nil {
				continue
			}
			typ := ""
			if typeNode != nil {
				typ = typeNode.Content(src)
			}
			name := nameNode.Content(src)
			out = append(out, symbol.Variable{
				Name:         name,
				ArrayLess:    arrayLessName(name),
				Kind:         symbol.Parameter,
				DeclaredType: typ,
			})
		case "spread_parameter":
			if p.NamedChildCount() < 2 {
				continue
			}
			typeNode := p.NamedChild(0)
			declNode := p.NamedChild(1)
			nameNode := declNode.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := nameNode.Content(src)
			out = append(out, symbol.Variable{
				Name:         name,
				ArrayLess:    arrayLessName(name),
				Kind:         symbol.Parameter,
				DeclaredType: "[]" + typeNode.Content(src),
			})
		}
	}
	return out
}

func arrayLessName(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '[' {
			return name[:i]
		}
	}
	return name
}
