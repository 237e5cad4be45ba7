// Package template synthesizes the wrapping construct the Directive
// Orchestrator splices around a rewritten directive region: the
// context class declaration, executor acquisition, task-launch loop,
// join, and reduction write-back. Each directive kind
// gets one Render variant; the exact skeleton is free-form text — the
// Orchestrator only ever treats it as an opaque replacement string for
// the region's byte span.
package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/viant/ompj/internal/directive"
	"github.com/viant/ompj/internal/symbol"
)

// Config carries the two pieces of textual, non-validated host-language
// API surface the synthesized code references. These are emitted as
// plain text into the generated source and are never compiled or
// executed here.
type Config struct {
	// ExecutorExpr is the expression text acquiring a worker pool sized
	// to a thread-count variable whose generated name is Sprintf'd in
	// place of "%s", e.g.
	// "java.util.concurrent.Executors.newFixedThreadPool(%s)".
	ExecutorExpr string
	// DefaultThreadNum is the expression text used when a directive's
	// ThreadNum is empty (no num_threads attribute was present).
	DefaultThreadNum string
}

// DefaultConfig mirrors the common case of a fixed thread pool sized by
// the JVM's visible processor count, matching the "textual reference
// only" contract: ompj never calls Runtime.getRuntime() itself.
func DefaultConfig() Config {
	return Config{
		ExecutorExpr:     "java.util.concurrent.Executors.newFixedThreadPool(%s)",
		DefaultThreadNum: "Runtime.getRuntime().availableProcessors()",
	}
}

// Render synthesizes the wrapping construct for d, splicing bodyText
// (the already token-rewritten region text, read back via
// rewrite.Rewriter.RenderRange) into the directive-kind-specific
// skeleton.
func Render(d *directive.Directive, bodyText string, cfg Config) (string, error) {
	threadNum := d.ThreadNum
	if threadNum == "" {
		threadNum = cfg.DefaultThreadNum
	}

	if d.IsReduction() && !d.Kind.SupportsReduction() {
		return "", fmt.Errorf("template: reduction attribute on non-reducing directive kind %v", d.Kind)
	}

	switch d.Kind {
	case directive.Parallel, directive.ParallelFor, directive.For:
		return renderForkJoin(d, bodyText, threadNum, cfg)
	case directive.Single, directive.Master, directive.Sections, directive.Section:
		return renderSerialOnce(d, bodyText), nil
	case directive.Barrier:
		return fmt.Sprintf("// barrier\n%s.await();\n", barrierName(d)), nil
	case directive.Critical:
		return fmt.Sprintf("synchronized (%s) {\n%s\n}\n", criticalLockName(d), indent(bodyText)), nil
	case directive.Atomic:
		return fmt.Sprintf("synchronized (%s) {\n%s\n}\n", criticalLockName(d), indent(bodyText)), nil
	default:
		return "", fmt.Errorf("template: unrecognized directive kind %v", d.Kind)
	}
}

// renderSerialOnce handles single/master/sections/section: these are
// expected nested inside an enclosing parallel region, so they splice
// the rewritten body back in guarded by a once-only check rather than
// spawning their own context class and executor.
func renderSerialOnce(d *directive.Directive, bodyText string) string {
	guard := onceGuardName(d)
	return fmt.Sprintf("if (%s.compareAndSet(false, true)) {\n%s\n}\n", guard, indent(bodyText))
}

func onceGuardName(d *directive.Directive) string { return d.ContextVar + "_once" }
func barrierName(d *directive.Directive) string   { return d.ContextVar + "_barrier" }

func criticalLockName(d *directive.Directive) string {
	if d.ContextVar == "" {
		return "OmpjCritical.class"
	}
	return d.ContextVar + "_lock"
}

// renderForkJoin synthesizes parallel/parallel-for/for's context class,
// executor acquisition, task-launch loop, join, and (when present)
// reduction write-back.
func renderForkJoin(d *directive.Directive, bodyText, threadNum string, cfg Config) (string, error) {
	captured := sortedByFullName(d.Captured)
	private := d.Private
	firstPrivate := d.FirstPrivate

	var b strings.Builder

	fmt.Fprintf(&b, "final class %s {\n", d.ContextClass)
	if d.CapturedThis {
		fmt.Fprintf(&b, "    %s THAT;\n", className(d))
	}
	for _, vv := range captured {
		typ := declaredType(vv)
		switch {
		case private[vv.ArrayLess] || firstPrivate[vv.ArrayLess]:
			elem, suffix := splitArraySuffix(typ)
			fmt.Fprintf(&b, "    %s[]%s %s = new %s[%s]%s;\n", elem, suffix, vv.FullName(), elem, threadNum, suffix)
		default:
			fmt.Fprintf(&b, "    %s %s;\n", typ, vv.FullName())
		}
	}
	b.WriteString("}\n")

	fmt.Fprintf(&b, "final %s %s = new %s();\n", d.ContextClass, d.ContextVar, d.ContextClass)
	if d.CapturedThis {
		fmt.Fprintf(&b, "%s.THAT = this;\n", d.ContextVar)
	}
	for _, vv := range captured {
		switch {
		case firstPrivate[vv.ArrayLess]:
			fmt.Fprintf(&b, "java.util.Arrays.fill(%s.%s, %s);\n", d.ContextVar, vv.FullName(), vv.Name)
		case private[vv.ArrayLess]:
			// left at the type's zero value; each worker writes its own slot.
		default:
			fmt.Fprintf(&b, "%s.%s = %s;\n", d.ContextVar, vv.FullName(), vv.Name)
		}
	}

	threadCountVar := d.ContextVar + "_threadNum"
	execVar := d.ContextVar + "_exec"
	fmt.Fprintf(&b, "final int %s = %s;\n", threadCountVar, threadNum)
	fmt.Fprintf(&b, "final java.util.concurrent.ExecutorService %s = %s;\n", execVar, fmt.Sprintf(cfg.ExecutorExpr, threadCountVar))
	fmt.Fprintf(&b, "for (int __w = 0; __w < %s; __w++) {\n", threadCountVar)
	b.WriteString("    final int __workerId = __w;\n")
	fmt.Fprintf(&b, "    %s.execute(new Runnable() {\n", execVar)
	b.WriteString("        public void run() {\n")
	fmt.Fprintf(&b, "            final ompj.WorkerHandle %s = new ompj.WorkerHandle(__workerId);\n", d.ExecutorVar)
	b.WriteString(indentN(bodyText, 3))
	b.WriteString("\n        }\n")
	b.WriteString("    });\n")
	b.WriteString("}\n")
	fmt.Fprintf(&b, "%s.shutdown();\n", execVar)
	fmt.Fprintf(&b, "try { %s.awaitTermination(Long.MAX_VALUE, java.util.concurrent.TimeUnit.NANOSECONDS); } "+
		"catch (InterruptedException __ie) { Thread.currentThread().interrupt(); }\n", execVar)

	for _, r := range d.Reduction {
		vv, ok := findCaptured(captured, r.Name)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "for (int __r = 0; __r < %s; __r++) { %s %s= %s.%s[__r]; }\n",
			threadCountVar, vv.Name, r.Op, d.ContextVar, vv.FullName())
	}

	return b.String(), nil
}

func className(d *directive.Directive) string {
	if d.EnclosingClassName != "" {
		return d.EnclosingClassName
	}
	return "Object"
}

func declaredType(vv symbol.Variable) string {
	if vv.DeclaredType != "" {
		return vv.DeclaredType
	}
	return "Object"
}

// splitArraySuffix separates typ's element type from any trailing "[]"
// dimensions it already carries, e.g. "int[]" -> ("int", "[]"). A
// privatized per-worker slot needs the threadNum-sized dimension placed
// leftmost, so the existing suffix must be reattached after it rather
// than appended directly: "int[]" becomes "int[][]" with the sized
// dimension first, never "int[][N]".
func splitArraySuffix(typ string) (elem, suffix string) {
	for strings.HasSuffix(typ, "[]") {
		typ = strings.TrimSuffix(typ, "[]")
		suffix += "[]"
	}
	return typ, suffix
}

func findCaptured(set []symbol.Variable, name string) (symbol.Variable, bool) {
	for _, c := range set {
		if c.ArrayLess == name {
			return c, true
		}
	}
	return symbol.Variable{}, false
}

func indent(s string) string { return indentN(s, 1) }

func indentN(s string, n int) string {
	prefix := strings.Repeat("    ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			continue
		}
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func sortedByFullName(vars []symbol.Variable) []symbol.Variable {
	out := make([]symbol.Variable, len(vars))
	copy(out, vars)
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out
}
