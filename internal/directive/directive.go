// Package directive holds the Directive data model: one parsed pragma
// attached to one region node, its attribute sets, its generated
// names, and — once translated — the set of Variables it captured. It
// is deliberately free of any
// dependency on internal/visit, internal/orchestrate, or internal/template
// so each of those can depend on it without a cycle.
package directive

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/ompj/internal/symbol"
)

// Kind enumerates the recognized pragma kinds.
type Kind int

const (
	Parallel Kind = iota
	ParallelFor
	For
	Single
	Sections
	Section
	Barrier
	Critical
	Master
	Atomic
)

func (k Kind) String() string {
	switch k {
	case Parallel:
		return "parallel"
	case ParallelFor:
		return "parallel-for"
	case For:
		return "for"
	case Single:
		return "single"
	case Sections:
		return "sections"
	case Section:
		return "section"
	case Barrier:
		return "barrier"
	case Critical:
		return "critical"
	case Master:
		return "master"
	case Atomic:
		return "atomic"
	default:
		return "unknown"
	}
}

// ReductionOp pairs a reduction variable's array-less name with the
// operator folding its per-worker private slots back into the shared
// variable (e.g. "+", "*", "min", "max").
type ReductionOp struct {
	Name string
	Op   string
}

// Directive is one pragma attached to one region, its attribute sets,
// the names synthesis will use, and the capture result the Translation
// Visitor produces once it has walked Region.
type Directive struct {
	Kind   Kind
	Region *sitter.Node

	// Parent is the lexically enclosing directive, nil for a top-level
	// one. The Directive Orchestrator fills this in during Translate;
	// it is not known at parse time.
	Parent *Directive

	// ContextVar, ContextClass, and ExecutorVar are generated names: the
	// local variable binding this directive's synthesized context
	// instance, the synthesized context class's type name, and the local
	// variable binding the acquired executor/thread-pool.
	ContextVar   string
	ContextClass string
	ExecutorVar string

	Private      map[string]bool
	FirstPrivate map[string]bool
	Shared       map[string]bool
	Reduction    []ReductionOp

	// ThreadNum is the host-language expression text for the worker
	// count, e.g. "4" or "Runtime.getRuntime().availableProcessors()".
	ThreadNum string

	// Captured and CapturedThis are populated by the Translation Visitor
	// after Walk: the Variables newly captured by this directive
	// (excluding anything already captured by Parent) and whether the
	// region referenced the originating class's `this`.
	Captured     []symbol.Variable
	CapturedThis bool

	// EnclosingClassName is the simple name of the class directly
	// enclosing Region, filled in by the Directive Orchestrator only
	// when CapturedThis is true: it types the synthesized context
	// class's `THAT` field.
	EnclosingClassName string
}

// PrivateVars returns the union of Private and FirstPrivate array-less
// names: the set that triggers the `[executor.getThreadNum()]`
// privatization suffix at a rewrite site.
func (d *Directive) PrivateVars() map[string]bool {
	out := make(map[string]bool, len(d.Private)+len(d.FirstPrivate))
	for name := range d.Private {
		out[name] = true
	}
	for name := range d.FirstPrivate {
		out[name] = true
	}
	return out
}

// IsReduction reports whether the directive carries any reduction
// attribute, the only case in which synthesis emits a write-back loop.
func (d *Directive) IsReduction() bool {
	return len(d.Reduction) > 0
}

// SupportsReduction reports whether d's Kind is allowed to carry a
// Reduction attribute (parallel-for and for only); a Reduction set on
// any other kind is a pragma-parse-time UnsupportedConstruct, not a
// translation-time concern.
func (k Kind) SupportsReduction() bool {
	return k == ParallelFor || k == For
}
