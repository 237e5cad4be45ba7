// Package orchestrate implements the Directive Orchestrator: it orders
// a compilation unit's directives innermost-first, finds each one's
// lexical parent by region containment, runs a Translation Visitor
// over its region, and splices the synthesized wrapping construct back
// through the Token Rewriter Adapter.
package orchestrate

import (
	"fmt"
	"log/slog"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/ompj/internal/classmap"
	"github.com/viant/ompj/internal/directive"
	"github.com/viant/ompj/internal/rewrite"
	"github.com/viant/ompj/internal/rewriteerr"
	"github.com/viant/ompj/internal/template"
	"github.com/viant/ompj/internal/visit"
)

// Config carries the synthesis-template configuration and the logger
// the Orchestrator narrates its per-directive progress to: a failed
// directive at error level, and each translated directive with its
// capture count at debug level.
type Config struct {
	Template template.Config
	Logger   *slog.Logger
}

// Orchestrator is constructed once per compilation unit.
type Orchestrator struct {
	rewriter *rewrite.Rewriter
	classes  *classmap.Map
	src      []byte
	cfg      Config
	seq      int
}

// New constructs an Orchestrator bound to one compilation unit's class
// map, source, and Token Rewriter Adapter.
func New(rewriter *rewrite.Rewriter, classes *classmap.Map, src []byte, cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Template == (template.Config{}) {
		cfg.Template = template.DefaultConfig()
	}
	return &Orchestrator{rewriter: rewriter, classes: classes, src: src, cfg: cfg}
}

// Order returns directives sorted innermost-first: a post-order over
// region containment, with siblings left in their original order, so
// that a directive whose region nests inside another always precedes
// the one containing it.
func Order(directives []*directive.Directive) []*directive.Directive {
	depth := make([]int, len(directives))
	for i, d := range directives {
		for j, other := range directives {
			if i == j {
				continue
			}
			if contains(other.Region, d.Region) {
				depth[i]++
			}
		}
	}
	idx := make([]int, len(directives))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return depth[idx[a]] > depth[idx[b]] })

	out := make([]*directive.Directive, len(directives))
	for i, id := range idx {
		out[i] = directives[id]
	}
	return out
}

// contains reports whether outer's byte span strictly contains inner's.
func contains(outer, inner *sitter.Node) bool {
	if outer == inner {
		return false
	}
	return outer.StartByte() <= inner.StartByte() && outer.EndByte() >= inner.EndByte()
}

// findParent returns the innermost directive (other than d) whose
// region strictly contains d.Region: d's lexical parent directive by
// containment, if one exists.
func findParent(d *directive.Directive, all []*directive.Directive) *directive.Directive {
	var best *directive.Directive
	var bestSpan uint32
	for _, other := range all {
		if other == d {
			continue
		}
		if !contains(other.Region, d.Region) {
			continue
		}
		span := other.Region.EndByte() - other.Region.StartByte()
		if best == nil || span < bestSpan {
			best = other
			bestSpan = span
		}
	}
	return best
}

// assignNames fills in d's generated names if the pragma scanner left
// them blank, using a per-unit sequence counter so names never collide
// within one compilation unit regardless of directive count or nesting.
func (o *Orchestrator) assignNames(d *directive.Directive) {
	if d.ContextVar != "" {
		return
	}
	n := o.seq
	o.seq++
	d.ContextVar = fmt.Sprintf("__ompjCtx%d", n)
	d.ContextClass = fmt.Sprintf("__OmpjCtx%d", n)
	d.ExecutorVar = fmt.Sprintf("__ompjEx%d", n)
}

// Translate drives the full per-unit pipeline end to end: order,
// parent-find, walk, synthesize, emit, for every directive in the unit.
func (o *Orchestrator) Translate(directives []*directive.Directive) error {
	ordered := Order(directives)
	for _, d := range ordered {
		d.Parent = findParent(d, directives)
		o.assignNames(d)

		if err := o.translateOne(d); err != nil {
			o.cfg.Logger.Error("ompj: directive translation failed",
				"kind", d.Kind.String(), "location", nodeLocation(d.Region), "error", err)
			return err
		}
		o.cfg.Logger.Debug("ompj: directive translated",
			"kind", d.Kind.String(), "location", nodeLocation(d.Region),
			"captured", len(d.Captured), "capturedThis", d.CapturedThis)
	}
	return nil
}

func (o *Orchestrator) translateOne(d *directive.Directive) error {
	if d.IsReduction() && !d.Kind.SupportsReduction() {
		return &rewriteerr.UnsupportedConstruct{NodeType: "reduction on " + d.Kind.String(), Location: nodeLocation(d.Region)}
	}

	in := visit.Input{
		Region:      d.Region,
		ContextVar:  d.ContextVar,
		ExecutorVar: d.ExecutorVar,
		PrivateVars: d.PrivateVars(),
	}
	if d.Parent != nil {
		in.ParentContextVar = d.Parent.ContextVar
		in.ParentCaptured = d.Parent.Captured
	}

	v, err := visit.New(o.rewriter, o.classes, o.src, in, o.cfg.Logger)
	if err != nil {
		return err
	}
	res, err := v.Walk()
	if err != nil {
		return err
	}
	d.Captured = res.Captured
	d.CapturedThis = res.CapturedThis

	if d.CapturedThis {
		d.EnclosingClassName = o.enclosingClassName(d.Region)
	}

	bodyText, err := o.rewriter.RenderRange(int(d.Region.StartByte()), int(d.Region.EndByte()))
	if err != nil {
		return rewriteerr.NewInternalInconsistency("rendering directive region body", err)
	}

	wrapped, err := template.Render(d, bodyText, o.cfg.Template)
	if err != nil {
		return rewriteerr.NewInternalInconsistency("synthesizing directive template", err)
	}

	o.rewriter.Replace(int(d.Region.StartByte()), int(d.Region.EndByte()), wrapped)
	return nil
}

// enclosingClassName resolves the simple name of the class directly
// enclosing region, used only to type the synthesized `THAT` field when
// a directive captures `this`.
func (o *Orchestrator) enclosingClassName(region *sitter.Node) string {
	cls, err := o.classes.ClassOf(region)
	if err != nil || cls == nil {
		return ""
	}
	return cls.Name
}

func nodeLocation(node *sitter.Node) string {
	if node == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d:%d", node.StartByte(), node.EndByte())
}
