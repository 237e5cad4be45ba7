// Package visit implements the Translation Visitor: the syntax-directed
// traversal of one directive's region that classifies every name
// occurrence against scope information and issues token edits through
// internal/rewrite. This is the core of the translator — capture
// analysis and identifier rewriting.
package visit

import (
	"fmt"
	"log/slog"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/ompj/internal/classmap"
	"github.com/viant/ompj/internal/rewrite"
	"github.com/viant/ompj/internal/rewriteerr"
	"github.com/viant/ompj/internal/scope"
	"github.com/viant/ompj/internal/symbol"
)

// Input are the construction parameters the Directive Orchestrator
// supplies per directive.
type Input struct {
	// Region is the directive's region node: the statement subtree the
	// Visitor walks.
	Region *sitter.Node

	// ContextVar and ExecutorVar are this directive's own generated
	// names, used as the rewrite target for any identifier this
	// directive itself captures.
	ContextVar  string
	ExecutorVar string

	// PrivateVars is the union of the directive's private and
	// first-private attribute name sets (directive.Directive.PrivateVars()).
	PrivateVars map[string]bool

	// ParentContextVar and ParentCaptured carry the lexically enclosing
	// directive's already-resolved state, empty/nil if Region has no
	// enclosing directive. Resolving against the parent first is how a
	// nested directive re-captures an outer-already-captured variable
	// through the outer context instead of resolving it fresh.
	ParentContextVar string
	ParentCaptured   []symbol.Variable
}

// Result is the post-walk output: the Variables this directive newly
// captured (excluding anything already in Input.ParentCaptured) and
// whether the region referenced the originating class's `this`.
type Result struct {
	Captured     []symbol.Variable
	CapturedThis bool
}

// Visitor is constructed fresh per directive by the Directive Orchestrator.
type Visitor struct {
	rewriter *rewrite.Rewriter
	classes  *classmap.Map
	src      []byte
	in       Input
	logger   *slog.Logger

	// stack is the stack of enclosing classes, initialized from
	// scope.ParentClasses innermost (directiveClass) on top, growing as
	// the walk enters nested class/anonymous-class bodies.
	stack          []*classmap.Class
	directiveClass *classmap.Class

	locals []symbol.Variable
	params []symbol.Variable

	captured     map[symbol.Variable]bool
	capturedThis bool
}

// New constructs a Visitor bound to in.Region. It fails with ParseError
// if the region sits outside any class, a tree/class-map inconsistency
// that is fatal for the unit.
func New(rewriter *rewrite.Rewriter, classes *classmap.Map, src []byte, in Input, logger *slog.Logger) (*Visitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	chain := scope.ParentClasses(classes, in.Region)
	if len(chain) == 0 {
		return nil, rewriteerr.NewParseError(nodeLocation(in.Region), fmt.Errorf("directive region has no enclosing class"))
	}
	stack := make([]*classmap.Class, len(chain))
	for i, c := range chain {
		stack[len(chain)-1-i] = c
	}
	return &Visitor{
		rewriter:       rewriter,
		classes:        classes,
		src:            src,
		in:             in,
		logger:         logger,
		stack:          stack,
		directiveClass: stack[len(stack)-1],
		locals:         scope.InheritedLocals(in.Region, src),
		params:         scope.InheritedParams(in.Region, src),
		captured:       map[symbol.Variable]bool{},
	}, nil
}

// Walk performs the syntax-directed traversal over the region and
// returns the directive's post-walk capture result.
func (v *Visitor) Walk() (*Result, error) {
	if err := v.visit(v.in.Region); err != nil {
		return nil, err
	}
	var fresh []symbol.Variable
	for vv := range v.captured {
		if !containsVar(v.in.ParentCaptured, vv) {
			fresh = append(fresh, vv)
		}
	}
	// v.captured is a map; iteration order is not deterministic, but
	// translation must be: identical input should produce identical
	// output. Sorting by FullName (itself a pure function of kind +
	// owning-class arena index + name) restores determinism without
	// needing an auxiliary insertion-order slice.
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].FullName() < fresh[j].FullName() })
	return &Result{Captured: fresh, CapturedThis: v.capturedThis}, nil
}

func containsVar(set []symbol.Variable, vv symbol.Variable) bool {
	for _, s := range set {
		if s.Equal(vv) {
			return true
		}
	}
	return false
}

func (v *Visitor) top() (*classmap.Class, error) {
	if len(v.stack) == 0 {
		return nil, rewriteerr.NewInternalInconsistency("class stack underflow", nil)
	}
	return v.stack[len(v.stack)-1], nil
}

func (v *Visitor) push(cls *classmap.Class) {
	v.stack = append(v.stack, cls)
}

func (v *Visitor) pop() error {
	if len(v.stack) == 0 {
		return rewriteerr.NewInternalInconsistency("class stack underflow on pop", nil)
	}
	v.stack = v.stack[:len(v.stack)-1]
	return nil
}

// visit is the single recursive dispatcher. Node kinds with no special
// case fall through to visitChildren, which is correct for any
// construct whose only name-bearing content is a nested expression or
// statement the switch already knows how to classify: an unhandled
// identifier that turns out not to be a variable reference simply
// fails to resolve and is left untouched.
func (v *Visitor) visit(node *sitter.Node) error {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "identifier":
		return v.visitIdentifier(node)
	case "this":
		return v.visitBareThis(node)
	case "field_access":
		return v.visitFieldAccess(node)
	case "method_invocation":
		return v.visitMethodInvocation(node)
	case "object_creation_expression":
		return v.visitObjectCreation(node)
	case "class_declaration", "interface_declaration", "enum_declaration", "annotation_type_declaration":
		return v.visitClassBody(node)
	case "variable_declarator":
		return v.visit(node.ChildByFieldName("value"))
	case "method_declaration", "constructor_declaration":
		// the method/constructor's own name and formal-parameter
		// declarations are declaration sites, not name occurrences to
		// classify; only the body can reference an outer capture.
		return v.visit(node.ChildByFieldName("body"))
	case "formal_parameter", "spread_parameter":
		return nil
	case "lambda_expression":
		return v.visit(node.ChildByFieldName("body"))
	default:
		return v.visitChildren(node)
	}
}

func (v *Visitor) visitChildren(node *sitter.Node) error {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if err := v.visit(node.NamedChild(i)); err != nil {
			return err
		}
	}
	return nil
}

// visitIdentifier handles the simple expression name pathway: a bare
// identifier, or the leftmost identifier of a dotted name reached here
// via visitFieldAccess's object-only recursion.
func (v *Visitor) visitIdentifier(node *sitter.Node) error {
	name := node.Content(v.src)

	regionLocals := scope.DirectiveLocals(v.in.Region, node, v.src)
	if _, err := symbol.Find(name, regionLocals); err == nil {
		return nil // region-local: declared inside this directive's own region
	}

	ctxVar, vv, ok := v.resolveWithParent(name)
	if !ok {
		return nil // NameNotResolvable: not a capturable identifier, leave alone
	}

	v.rewriter.ReplaceNode(node, ctxVar+"."+vv.FullName()+v.extension(vv))
	v.captured[vv] = true
	return nil
}

// resolveWithParent tries the parent directive's already-captured set
// first (re-capturing through the outer context instead of resolving
// fresh), then falls back to this directive's own locals/params/field
// chain.
func (v *Visitor) resolveWithParent(name string) (ctxVar string, vv symbol.Variable, ok bool) {
	if v.in.ParentContextVar != "" {
		if found, err := symbol.Find(name, v.in.ParentCaptured); err == nil {
			return v.in.ParentContextVar, found, true
		}
	}
	if found, err := symbol.Resolve(name, v.locals, v.params, v.directiveClass, v.classes); err == nil {
		return v.in.ContextVar, found, true
	}
	return "", symbol.Variable{}, false
}

// extension returns the "[executor.getThreadNum()]" privatization
// suffix when vv's declared name is private/first-private, applied at
// the single leftmost-token rewrite point: the suffix belongs to the
// identifier token, not to whatever larger expression encloses it (so
// an array-index use like `sum += a[i]` still indexes only `a` and
// `i`'s own tokens, not the whole expression).
func (v *Visitor) extension(vv symbol.Variable) string {
	if vv.IsPrivate(v.in.PrivateVars) {
		return "[" + v.in.ExecutorVar + ".getThreadNum()]"
	}
	return ""
}

// visitBareThis handles a standalone `this` primary reached outside any
// method-invocation-receiver or field_access-object position (those are
// intercepted by visitMethodInvocation/visitFieldAccess before recursing
// into their own `this` child).
func (v *Visitor) visitBareThis(node *sitter.Node) error {
	top, err := v.top()
	if err != nil {
		return err
	}
	if top != v.directiveClass {
		return nil // no this-rewrite fires inside a nested class body
	}
	v.rewriter.ReplaceNode(node, v.in.ContextVar+".THAT")
	v.capturedThis = true
	return nil
}

// visitFieldAccess applies the leftmost-identifier rule for dotted
// names, plus the this.field pathway when the object is a bare `this`.
func (v *Visitor) visitFieldAccess(node *sitter.Node) error {
	obj := node.ChildByFieldName("object")
	if obj != nil && obj.Type() == "this" {
		return v.visitThisField(node, obj, node.ChildByFieldName("field"))
	}
	return v.visit(obj) // suffix (.field) is left intact; only the leftmost identifier matters
}

// visitThisField handles a `this.field` occurrence.
func (v *Visitor) visitThisField(node, thisNode, fieldNode *sitter.Node) error {
	top, err := v.top()
	if err != nil {
		return err
	}
	if top != v.directiveClass {
		return nil
	}
	if fieldNode == nil {
		return rewriteerr.NewInternalInconsistency("field_access with this object has no field child", nil)
	}
	fieldName := fieldNode.Content(v.src)
	vv, err := symbol.FindField(fieldName, v.directiveClass, v.classes)
	if err != nil {
		return nil // not a declared field: leave the whole access untouched
	}
	v.rewriter.ReplaceNode(thisNode, v.in.ContextVar)
	v.rewriter.ReplaceNode(fieldNode, vv.FullName()+v.extension(vv))
	v.captured[vv] = true
	v.capturedThis = true
	return nil
}

// visitMethodInvocation handles a method-invocation receiver: `this`,
// a type-or-package name, or another expression.
func (v *Visitor) visitMethodInvocation(node *sitter.Node) error {
	obj := node.ChildByFieldName("object")
	if obj != nil {
		if obj.Type() == "this" {
			if err := v.visitThisMethodReceiver(obj, node); err != nil {
				return err
			}
		} else if err := v.visit(obj); err != nil {
			return err
		}
	}
	if args := node.ChildByFieldName("arguments"); args != nil {
		if err := v.visitChildren(args); err != nil {
			return err
		}
	}
	return nil
}

// visitThisMethodReceiver handles the "this.method(...)" pathway: the
// `this` and the following `.` are deleted so the method resolves on
// the enclosing instance by the host language's own lexical method
// lookup from the generated (non-static) inner task class — no
// `ctx.THAT.` prefix is inserted. See DESIGN.md for why delete-only is
// the chosen rewrite shape here.
func (v *Visitor) visitThisMethodReceiver(thisNode, invocation *sitter.Node) error {
	top, err := v.top()
	if err != nil {
		return err
	}
	if top != v.directiveClass {
		return nil
	}
	nameNode := invocation.ChildByFieldName("name")
	if nameNode == nil {
		return rewriteerr.NewInternalInconsistency("method_invocation has no name child", nil)
	}
	v.rewriter.Delete(int(thisNode.StartByte()), int(nameNode.StartByte()))
	v.capturedThis = true
	return nil
}

// visitObjectCreation handles object-creation expressions, pushing a
// class-stack frame for an anonymous class body when present and
// rejecting a malformed shape (neither arguments nor an anonymous
// class body) as unsupported rather than silently no-op'ing.
func (v *Visitor) visitObjectCreation(node *sitter.Node) error {
	args := node.ChildByFieldName("arguments")
	anonBody := classmap.AnonymousClassBody(node)
	if args == nil && anonBody == nil {
		return &rewriteerr.UnsupportedConstruct{NodeType: node.Type(), Location: nodeLocation(node)}
	}
	if anonBody != nil {
		cls, ok := v.classes.Lookup(anonBody)
		if !ok {
			return rewriteerr.NewParseError(nodeLocation(anonBody), fmt.Errorf("anonymous class body missing from class map"))
		}
		v.push(cls)
		err := v.visitChildren(anonBody)
		if popErr := v.pop(); popErr != nil {
			return popErr
		}
		if err != nil {
			return err
		}
	}
	if args != nil {
		if err := v.visitChildren(args); err != nil {
			return err
		}
	}
	return nil
}

// visitClassBody handles named nested/local classes declared inside
// the region, pushing a class-stack frame for the duration of the body.
func (v *Visitor) visitClassBody(node *sitter.Node) error {
	cls, ok := v.classes.Lookup(node)
	if !ok {
		return rewriteerr.NewParseError(nodeLocation(node), fmt.Errorf("class declaration missing from class map"))
	}
	v.push(cls)
	err := v.visitChildren(node)
	if popErr := v.pop(); popErr != nil {
		return popErr
	}
	return err
}

func nodeLocation(node *sitter.Node) string {
	if node == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d:%d", node.StartByte(), node.EndByte())
}
