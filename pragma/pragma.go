// Package pragma is the front end that turns raw source comments into
// directives: it scans a parsed compilation unit for
// `// omp ...` line comments, parses the directive-kind token and
// attribute clauses, and attaches each parsed directive to its region
// (the next statement following the comment), producing the
// internal/directive records the Directive Orchestrator consumes.
// Grounded on the teacher's comment-walking convention in
// inspector/java/documentation.go (cursor over a node's children,
// classifying by node.Type() == "comment").
package pragma

import (
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/ompj/internal/directive"
	"github.com/viant/ompj/internal/rewriteerr"
)

var (
	pragmaLine = regexp.MustCompile(`^//\s*omp\s+(\S+)(.*)$`)
	clause     = regexp.MustCompile(`(\w+)\s*\(([^)]*)\)`)
)

var kindByToken = map[string]directive.Kind{
	"parallel":     directive.Parallel,
	"parallel-for": directive.ParallelFor,
	"parallel_for": directive.ParallelFor,
	"for":          directive.For,
	"single":       directive.Single,
	"sections":     directive.Sections,
	"section":      directive.Section,
	"barrier":      directive.Barrier,
	"critical":     directive.Critical,
	"master":       directive.Master,
	"atomic":       directive.Atomic,
}

// Scan walks root for recognized pragma comments and returns one
// Directive per match, each bound to its following statement's node as
// Region. Comment nodes not matching the "// omp ..." shape are
// ignored; any other line or block comment is ordinary source text.
func Scan(root *sitter.Node, src []byte) ([]*directive.Directive, error) {
	var out []*directive.Directive
	var walkErr error
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil || walkErr != nil {
			return
		}
		if isComment(node) {
			text := strings.TrimSpace(node.Content(src))
			if m := pragmaLine.FindStringSubmatch(text); m != nil {
				d, err := parseDirective(node, m[1], m[2], src)
				if err != nil {
					walkErr = err
					return
				}
				if d != nil {
					out = append(out, d)
				}
			}
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i))
			if walkErr != nil {
				return
			}
		}
	}
	walk(root)
	if walkErr != nil {
		return nil, walkErr
	}
	return out, nil
}

func isComment(node *sitter.Node) bool {
	return strings.Contains(node.Type(), "comment")
}

// nextStatementSibling returns the first named sibling of comment that
// is not itself a comment: a single-line comment is attached to the
// statement immediately following it.
func nextStatementSibling(comment *sitter.Node) *sitter.Node {
	parent := comment.Parent()
	if parent == nil {
		return nil
	}
	count := int(parent.NamedChildCount())
	idx := -1
	for i := 0; i < count; i++ {
		if parent.NamedChild(i) == comment {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for i := idx + 1; i < count; i++ {
		candidate := parent.NamedChild(i)
		if isComment(candidate) {
			continue
		}
		return candidate
	}
	return nil
}

func parseDirective(comment *sitter.Node, kindToken, rest string, src []byte) (*directive.Directive, error) {
	kind, ok := kindByToken[strings.ToLower(kindToken)]
	if !ok {
		return nil, rewriteerr.NewParseError(loc(comment), fmt.Errorf("unrecognized pragma kind %q", kindToken))
	}

	region := nextStatementSibling(comment)
	if region == nil {
		return nil, rewriteerr.NewParseError(loc(comment), fmt.Errorf("pragma %q has no following statement to attach to", kindToken))
	}

	d := &directive.Directive{
		Kind:   kind,
		Region: region,
	}

	for _, m := range clause.FindAllStringSubmatch(rest, -1) {
		name, args := strings.ToLower(m[1]), m[2]
		switch name {
		case "private":
			d.Private = namesToSet(args)
		case "firstprivate":
			d.FirstPrivate = namesToSet(args)
		case "shared":
			d.Shared = namesToSet(args)
		case "num_threads":
			d.ThreadNum = strings.TrimSpace(args)
		case "reduction":
			ops, err := parseReduction(args)
			if err != nil {
				return nil, rewriteerr.NewParseError(loc(comment), err)
			}
			d.Reduction = ops
		default:
			return nil, rewriteerr.NewParseError(loc(comment), fmt.Errorf("unrecognized pragma clause %q", name))
		}
	}

	if d.IsReduction() && !kind.SupportsReduction() {
		return nil, &rewriteerr.UnsupportedConstruct{NodeType: "reduction on " + kind.String(), Location: loc(comment)}
	}

	// A reduction variable needs its own per-worker accumulator slot
	// regardless of whether the pragma also named it private: folding it
	// into Private here is what makes internal/template type its context
	// field as a threadNum-length array the write-back loop can index.
	if len(d.Reduction) > 0 {
		if d.Private == nil {
			d.Private = map[string]bool{}
		}
		for _, r := range d.Reduction {
			d.Private[r.Name] = true
		}
	}

	return d, nil
}

func namesToSet(args string) map[string]bool {
	out := map[string]bool{}
	for _, n := range strings.Split(args, ",") {
		n = strings.TrimSpace(n)
		if n != "" {
			out[n] = true
		}
	}
	return out
}

// parseReduction parses "op:var[,var...]", e.g. "+:sum" or "+:sum,count".
func parseReduction(args string) ([]directive.ReductionOp, error) {
	parts := strings.SplitN(args, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed reduction clause %q, expected op:var[,var...]", args)
	}
	op := strings.TrimSpace(parts[0])
	if op == "" {
		return nil, fmt.Errorf("malformed reduction clause %q, missing operator", args)
	}
	var out []directive.ReductionOp
	for _, n := range strings.Split(parts[1], ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, directive.ReductionOp{Name: n, Op: op})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("malformed reduction clause %q, no variable named", args)
	}
	return out, nil
}

func loc(node *sitter.Node) string {
	if node == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d:%d", node.StartByte(), node.EndByte())
}
