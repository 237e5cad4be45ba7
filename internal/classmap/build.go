package classmap

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Build walks root and populates a fresh Map with every class-bearing node
// in the compilation unit: top-level, nested, local, and anonymous
// classes, plus the declared fields internal/symbol resolves against and
// each method/constructor's parameter list. Build is called once per
// compilation unit, before translation.
func Build(root *sitter.Node, src []byte) (*Map, error) {
	m := &Map{byNode: map[*sitter.Node]int{}, byName: map[string][]int{}}
	b := &builder{m: m, src: src}
	b.walk(root, -1, false)
	b.linkExtends()
	return m, nil
}

type builder struct {
	m   *Map
	src []byte
}

// walk descends the tree tracking the innermost enclosing class
// (enclosingIdx, -1 at the top) and whether the current position is
// inside a method/constructor body (inMethodBody), which distinguishes a
// local class declaration from an ordinary nested (inner) one.
func (b *builder) walk(node *sitter.Node, enclosingIdx int, inMethodBody bool) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "method_declaration", "constructor_declaration":
		if enclosingIdx >= 0 {
			b.recordMethodParams(enclosingIdx, node)
		}
		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				b.walk(body.NamedChild(i), enclosingIdx, true)
			}
		}
		return

	case "class_declaration", "interface_declaration", "enum_declaration", "annotation_type_declaration":
		kind := Top
		switch {
		case inMethodBody:
			kind = Local
		case enclosingIdx >= 0:
			kind = Inner
		}
		idx := b.register(node, kind, enclosingIdx)
		b.collectFields(idx, node)

		if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
			for i := 0; i < int(bodyNode.NamedChildCount()); i++ {
				b.walk(bodyNode.NamedChild(i), idx, false)
			}
		}
		return

	case "object_creation_expression":
		anonBody := AnonymousClassBody(node)
		if anonBody == nil {
			for i := 0; i < int(node.NamedChildCount()); i++ {
				b.walk(node.NamedChild(i), enclosingIdx, inMethodBody)
			}
			return
		}
		idx := b.registerAnonymous(anonBody, node, enclosingIdx)
		b.collectFields(idx, anonBody)
		for i := 0; i < int(anonBody.NamedChildCount()); i++ {
			b.walk(anonBody.NamedChild(i), idx, false)
		}
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		b.walk(node.NamedChild(i), enclosingIdx, inMethodBody)
	}
}

// AnonymousClassBody returns the trailing class_body child of an
// object_creation_expression, if present, identifying an anonymous class.
// Exported for internal/visit, which needs the same test when deciding
// whether to push a class-stack frame for an object_creation_expression.
func AnonymousClassBody(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "class_body" {
			return child
		}
	}
	return nil
}

func (b *builder) register(node *sitter.Node, kind Kind, enclosingIdx int) int {
	name := ""
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content(b.src)
	}
	cls := &Class{
		Index:          len(b.m.arena),
		Node:           node,
		Name:           name,
		Kind:           kind,
		EnclosingIndex: enclosingIdx,
		ExtendsIndex:   -1,
		MethodParams:   map[*sitter.Node][]FieldDecl{},
	}
	if superclass := node.ChildByFieldName("superclass"); superclass != nil {
		// the superclass node spans "extends T"; its named child is T
		typeNode := superclass
		if superclass.NamedChildCount() > 0 {
			typeNode = superclass.NamedChild(0)
		}
		cls.ExtendsName = simpleTypeName(typeNode.Content(b.src))
	}
	b.m.arena = append(b.m.arena, cls)
	b.m.byNode[node] = cls.Index
	if name != "" {
		b.m.byName[name] = append(b.m.byName[name], cls.Index)
	}
	return cls.Index
}

func (b *builder) registerAnonymous(bodyNode, creationNode *sitter.Node, enclosingIdx int) int {
	name := ""
	if typeNode := creationNode.ChildByFieldName("type"); typeNode != nil {
		name = typeNode.Content(b.src)
	}
	cls := &Class{
		Index:          len(b.m.arena),
		Node:           bodyNode,
		Name:           name,
		Kind:           Anonymous,
		EnclosingIndex: enclosingIdx,
		ExtendsIndex:   -1,
		MethodParams:   map[*sitter.Node][]FieldDecl{},
	}
	b.m.arena = append(b.m.arena, cls)
	b.m.byNode[bodyNode] = cls.Index
	return cls.Index
}

func (b *builder) collectFields(idx int, bodyOwner *sitter.Node) {
	bodyNode := bodyOwner
	if bodyOwner.Type() != "class_body" {
		bodyNode = bodyOwner.ChildByFieldName("body")
	}
	if bodyNode == nil {
		return
	}
	cls := b.m.arena[idx]
	for i := 0; i < int(bodyNode.NamedChildCount()); i++ {
		child := bodyNode.NamedChild(i)
		if child.Type() != "field_declaration" {
			continue
		}
		fieldType := ""
		if typeNode := child.ChildByFieldName("type"); typeNode != nil {
			fieldType = typeNode.Content(b.src)
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			declNode := child.NamedChild(j)
			if declNode.Type() != "variable_declarator" {
				continue
			}
			nameNode := declNode.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			cls.Fields = append(cls.Fields, FieldDecl{
				Name: arrayLessName(nameNode.Content(b.src)),
				Type: fieldType,
			})
		}
	}
}

func (b *builder) recordMethodParams(enclosingIdx int, method *sitter.Node) {
	cls := b.m.arena[enclosingIdx]
	paramsNode := method.ChildByFieldName("parameters")
	if paramsNode == nil {
		return
	}
	var params []FieldDecl
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		p := paramsNode.NamedChild(i)
		switch p.Type() {
		case "formal_parameter":
			nameNode := p.ChildByFieldName("name")
			typeNode := p.ChildByFieldName("type")
			if nameNode == nil {
				continue
			}
			ft := ""
			if typeNode != nil {
				ft = typeNode.Content(b.src)
			}
			params = append(params, FieldDecl{Name: arrayLessName(nameNode.Content(b.src)), Type: ft})
		case "spread_parameter":
			if p.NamedChildCount() < 2 {
				continue
			}
			declNode := p.NamedChild(1)
			nameNode := declNode.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			params = append(params, FieldDecl{Name: arrayLessName(nameNode.Content(b.src)), Type: "[]" + p.NamedChild(0).Content(b.src)})
		}
	}
	cls.MethodParams[method] = params
}

// linkExtends resolves each class's textual superclass name to an arena
// index when the superclass is declared in the same compilation unit;
// otherwise ExtendsIndex stays -1 and field resolution simply stops at
// the local class (the superclass is an external, unowned symbol).
func (b *builder) linkExtends() {
	for _, cls := range b.m.arena {
		if cls.ExtendsName == "" {
			continue
		}
		candidates := b.m.byName[cls.ExtendsName]
		if len(candidates) == 0 {
			continue
		}
		cls.ExtendsIndex = candidates[0]
	}
}

func simpleTypeName(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[i+1:]
		}
		if s[i] == '<' {
			return simpleTypeName(s[:i])
		}
	}
	return s
}

func arrayLessName(name string) string {
	if idx := indexOfByte(name, '['); idx >= 0 {
		return name[:idx]
	}
	return name
}

func indexOfByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}
