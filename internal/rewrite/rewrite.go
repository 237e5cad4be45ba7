// Package rewrite implements the Token Rewriter Adapter: a scoped-edit
// accumulator over an immutable source byte slice that produces a
// rewritten text, leaving every unedited span verbatim and in
// original order.
package rewrite

import (
	"bytes"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/ompj/internal/rewriteerr"
)

// edit is a half-open byte-range substitution: src[start:end] becomes
// text. seq records insertion order, used to break ties between edits
// sharing the exact same range (last writer wins).
type edit struct {
	start, end int
	text       string
	seq        int
}

// Rewriter wraps the full source of one compilation unit and accumulates
// non-overlapping edits. It never mutates src; Render/RenderRange copy
// untouched spans and splice in edit text to produce the final bytes.
type Rewriter struct {
	src   []byte
	edits []edit
	seq   int
}

// New wraps src for scoped editing.
func New(src []byte) *Rewriter {
	return &Rewriter{src: src}
}

// Replace substitutes src[firstByte:lastByte] with text.
func (r *Rewriter) Replace(firstByte, lastByte int, text string) {
	r.edits = append(r.edits, edit{start: firstByte, end: lastByte, text: text, seq: r.seq})
	r.seq++
}

// ReplaceNode substitutes node's full byte span with text.
func (r *Rewriter) ReplaceNode(node *sitter.Node, text string) {
	r.Replace(int(node.StartByte()), int(node.EndByte()), text)
}

// Delete replaces src[firstByte:lastByte] with the empty string.
func (r *Rewriter) Delete(firstByte, lastByte int) {
	r.Replace(firstByte, lastByte, "")
}

// DeleteNode removes node's full byte span.
func (r *Rewriter) DeleteNode(node *sitter.Node) {
	r.Delete(int(node.StartByte()), int(node.EndByte()))
}

// Render applies every accumulated edit over the full source and
// materializes the final text.
func (r *Rewriter) Render() ([]byte, error) {
	return r.render(0, len(r.src), r.edits)
}

// RenderRange materializes the text of src[start:end] with only the
// edits fully contained in that span applied; edits that straddle the
// boundary are ignored. The Directive Orchestrator uses this to read
// back a directive region's already-rewritten body text before splicing
// it into the directive's synthesized wrapping construct, without
// disturbing the fine-grained edits still recorded against that span
// (they are superseded, not removed, once the Orchestrator's own
// whole-region edit is added — see resolveEdits).
func (r *Rewriter) RenderRange(start, end int) (string, error) {
	var scoped []edit
	for _, e := range r.edits {
		if e.start >= start && e.end <= end {
			scoped = append(scoped, e)
		}
	}
	out, err := r.render(start, end, scoped)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (r *Rewriter) render(base, limit int, edits []edit) ([]byte, error) {
	kept, err := resolveEdits(edits)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	pos := base
	for _, e := range kept {
		if e.start < pos {
			return nil, rewriteerr.NewInternalInconsistency(
				fmt.Sprintf("edit at [%d,%d) starts before current render position %d", e.start, e.end, pos), nil)
		}
		buf.Write(r.src[pos:e.start])
		buf.WriteString(e.text)
		pos = e.end
	}
	buf.Write(r.src[pos:limit])
	return buf.Bytes(), nil
}

// resolveEdits reduces a raw edit list to a sorted, non-overlapping
// top-level list, applying three rules in order:
//
//  1. Identical ranges: last writer wins (higher seq survives).
//  2. Full containment: when one edit's range wholly contains another's,
//     the outer edit supersedes the inner and the inner is dropped
//     silently. This is the mechanism that lets the Directive
//     Orchestrator replace an entire directive region with its
//     synthesized wrapping construct after the Translation Visitor has
//     already recorded fine-grained edits inside that same region: the
//     outer edit's text was built from RenderRange, which already
//     incorporates the inner edits' effect, so re-applying them during
//     the final Render would double-apply the rewrite. Containment is
//     treated as a superseding relationship rather than an overlap
//     fault for exactly this nested-directive case; see DESIGN.md for
//     the rationale.
//  3. Any other (partial, non-identical, non-containing) overlap is an
//     InternalInconsistency fault.
func resolveEdits(edits []edit) ([]edit, error) {
	type key struct{ start, end int }
	best := map[key]edit{}
	var order []key
	for _, e := range edits {
		k := key{e.start, e.end}
		prev, ok := best[k]
		if !ok {
			order = append(order, k)
			best[k] = e
			continue
		}
		if e.seq > prev.seq {
			best[k] = e
		}
	}
	uniq := make([]edit, 0, len(order))
	for _, k := range order {
		uniq = append(uniq, best[k])
	}
	sort.SliceStable(uniq, func(i, j int) bool {
		if uniq[i].start != uniq[j].start {
			return uniq[i].start < uniq[j].start
		}
		return uniq[i].end > uniq[j].end // wider range first on a tied start
	})

	var kept []edit
	for _, e := range uniq {
		contained := false
		for _, k := range kept {
			if k.start <= e.start && e.end <= k.end {
				contained = true
				break
			}
		}
		if contained {
			continue
		}
		filtered := kept[:0:0]
		for _, k := range kept {
			if e.start <= k.start && k.end <= e.end {
				continue // k is wholly inside e; e supersedes it
			}
			filtered = append(filtered, k)
		}
		kept = append(filtered, e)
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	for i := 1; i < len(kept); i++ {
		if kept[i].start < kept[i-1].end {
			return nil, rewriteerr.NewInternalInconsistency(
				fmt.Sprintf("overlapping edits [%d,%d) and [%d,%d)", kept[i-1].start, kept[i-1].end, kept[i].start, kept[i].end), nil)
		}
	}
	return kept, nil
}
