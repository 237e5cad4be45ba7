package orchestrate_test

import (
	"context"
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/ompj/internal/classmap"
	"github.com/viant/ompj/internal/directive"
	"github.com/viant/ompj/internal/orchestrate"
	"github.com/viant/ompj/internal/rewrite"
	"github.com/viant/ompj/internal/rewriteerr"
)

func parse(t *testing.T, src string) (*sitter.Node, []byte) {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	require.NoError(t, err)
	return tree.RootNode(), []byte(src)
}

func findStatement(t *testing.T, root *sitter.Node, src []byte, want string) *sitter.Node {
	t.Helper()
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil || n == nil {
			return
		}
		if strings.TrimSpace(n.Content(src)) == want {
			found = n
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	require.NotNilf(t, found, "statement %q not found", want)
	return found
}

func TestOrder_InnermostFirst(t *testing.T) {
	src := `
class C {
  void m() {
    int x = 0;
    {
      x = x + 1;
    }
  }
}`
	root, source := parse(t, src)
	outerRegion := findStatement(t, root, source, "{\n      x = x + 1;\n    }")
	innerRegion := findStatement(t, root, source, "x = x + 1;")

	outer := &directive.Directive{Kind: directive.Parallel, Region: outerRegion}
	inner := &directive.Directive{Kind: directive.For, Region: innerRegion}

	ordered := orchestrate.Order([]*directive.Directive{outer, inner})
	require.Len(t, ordered, 2)
	assert.Same(t, inner, ordered[0])
	assert.Same(t, outer, ordered[1])
}

func TestOrder_SiblingsKeepSourceOrder(t *testing.T) {
	src := `
class C {
  void m() {
    int x = 0;
    x = x + 1;
    x = x + 2;
  }
}`
	root, source := parse(t, src)
	first := findStatement(t, root, source, "x = x + 1;")
	second := findStatement(t, root, source, "x = x + 2;")

	a := &directive.Directive{Kind: directive.For, Region: first}
	b := &directive.Directive{Kind: directive.For, Region: second}

	ordered := orchestrate.Order([]*directive.Directive{a, b})
	require.Len(t, ordered, 2)
	assert.Same(t, a, ordered[0])
	assert.Same(t, b, ordered[1])
}

func TestTranslate_SingleParallelForDirective(t *testing.T) {
	src := `
class C {
  void m() {
    int sum = 0;
    sum = sum + 1;
  }
}`
	root, source := parse(t, src)
	classes, err := classmap.Build(root, source)
	require.NoError(t, err)
	region := findStatement(t, root, source, "sum = sum + 1;")

	d := &directive.Directive{Kind: directive.ParallelFor, Region: region}

	rw := rewrite.New(source)
	o := orchestrate.New(rw, classes, source, orchestrate.Config{})
	require.NoError(t, o.Translate([]*directive.Directive{d}))

	out, err := rw.Render()
	require.NoError(t, err)

	assert.Contains(t, string(out), "final class __OmpjCtx0 {")
	assert.Contains(t, string(out), "int L_0_sum;")
	assert.Contains(t, string(out), "__ompjCtx0.L_0_sum = __ompjCtx0.L_0_sum + 1;")
	require.Len(t, d.Captured, 1)
	assert.Equal(t, "sum", d.Captured[0].ArrayLess)
	assert.False(t, d.CapturedThis)
}

func TestTranslate_NestedDirectivesShareOuterCapture(t *testing.T) {
	src := `
class C {
  void m() {
    int x = 0;
    {
      x = x + 1;
    }
  }
}`
	root, source := parse(t, src)
	classes, err := classmap.Build(root, source)
	require.NoError(t, err)
	outerRegion := findStatement(t, root, source, "{\n      x = x + 1;\n    }")
	innerRegion := findStatement(t, root, source, "x = x + 1;")

	outer := &directive.Directive{Kind: directive.Parallel, Region: outerRegion}
	inner := &directive.Directive{Kind: directive.For, Region: innerRegion}

	rw := rewrite.New(source)
	o := orchestrate.New(rw, classes, source, orchestrate.Config{})
	require.NoError(t, o.Translate([]*directive.Directive{outer, inner}))

	out, err := rw.Render()
	require.NoError(t, err)

	// The inner directive's own wrapper must have been superseded once
	// the outer directive's region-wide Replace landed on top of it.
	assert.Contains(t, string(out), "final class __OmpjCtx1 {")
	assert.NotContains(t, string(out), "__OmpjCtx0")
	assert.Equal(t, outer, inner.Parent)
	require.Len(t, inner.Captured, 0)
	require.Len(t, outer.Captured, 1)
	assert.Equal(t, "x", outer.Captured[0].ArrayLess)
}

func TestTranslate_ReductionOnUnsupportedKindIsUnsupportedConstruct(t *testing.T) {
	src := `
class C {
  void m() {
    int sum = 0;
    sum = sum + 1;
  }
}`
	root, source := parse(t, src)
	classes, err := classmap.Build(root, source)
	require.NoError(t, err)
	region := findStatement(t, root, source, "sum = sum + 1;")

	d := &directive.Directive{
		Kind:      directive.Single,
		Region:    region,
		Reduction: []directive.ReductionOp{{Name: "sum", Op: "+"}},
	}

	rw := rewrite.New(source)
	o := orchestrate.New(rw, classes, source, orchestrate.Config{})
	err = o.Translate([]*directive.Directive{d})
	require.Error(t, err)
	var uc *rewriteerr.UnsupportedConstruct
	assert.ErrorAs(t, err, &uc)
}
