package visit_test

import (
	"context"
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/ompj/internal/classmap"
	"github.com/viant/ompj/internal/rewrite"
	"github.com/viant/ompj/internal/visit"
)

func parse(t *testing.T, src string) (*sitter.Node, []byte) {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	require.NoError(t, err)
	return tree.RootNode(), []byte(src)
}

// findStatement returns the first node (by type) whose source text,
// once trimmed, equals want exactly.
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

func TestWalk_CaptureLocalInt(t *testing.T) {
	src := `
class C {
  void m() {
    int x = 0;
    x = x + 1;
  }
}`
	root, source := parse(t, src)
	classes, err := classmap.Build(root, source)
	require.NoError(t, err)
	region := findStatement(t, root, source, "x = x + 1;")

	rw := rewrite.New(source)
	in := visit.Input{Region: region, ContextVar: "ctx", ExecutorVar: "ex"}
	v, err := visit.New(rw, classes, source, in, nil)
	require.NoError(t, err)
	res, err := v.Walk()
	require.NoError(t, err)

	got, err := rw.RenderRange(int(region.StartByte()), int(region.EndByte()))
	require.NoError(t, err)
	assert.Equal(t, "ctx.L_0_x = ctx.L_0_x + 1;", got)
	require.Len(t, res.Captured, 1)
	assert.Equal(t, "x", res.Captured[0].ArrayLess)
	assert.False(t, res.CapturedThis)
}

func TestWalk_PrivateVariableIndexing(t *testing.T) {
	src := `
class C {
  void m() {
    int sum = 0;
    int[] a = null;
    int i = 0;
    sum += a[i];
  }
}`
	root, source := parse(t, src)
	classes, err := classmap.Build(root, source)
	require.NoError(t, err)
	region := findStatement(t, root, source, "sum += a[i];")

	rw := rewrite.New(source)
	in := visit.Input{
		Region:      region,
		ContextVar:  "ctx",
		ExecutorVar: "ex",
		PrivateVars: map[string]bool{"sum": true},
	}
	v, err := visit.New(rw, classes, source, in, nil)
	require.NoError(t, err)
	res, err := v.Walk()
	require.NoError(t, err)

	got, err := rw.RenderRange(int(region.StartByte()), int(region.EndByte()))
	require.NoError(t, err)
	assert.Equal(t, "ctx.L_0_sum[ex.getThreadNum()] += ctx.L_0_a[ctx.L_0_i];", got)
	assert.Len(t, res.Captured, 3)
}

func TestWalk_ThisFieldAccess(t *testing.T) {
	src := `
class C {
  int count;
  void m() {
    this.count++;
  }
}`
	root, source := parse(t, src)
	classes, err := classmap.Build(root, source)
	require.NoError(t, err)
	region := findStatement(t, root, source, "this.count++;")

	rw := rewrite.New(source)
	in := visit.Input{Region: region, ContextVar: "ctx", ExecutorVar: "ex"}
	v, err := visit.New(rw, classes, source, in, nil)
	require.NoError(t, err)
	res, err := v.Walk()
	require.NoError(t, err)

	got, err := rw.RenderRange(int(region.StartByte()), int(region.EndByte()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "ctx.F_0_count"))
	assert.True(t, strings.HasSuffix(got, "++;"))
	assert.True(t, res.CapturedThis)
	require.Len(t, res.Captured, 1)
	assert.Equal(t, "count", res.Captured[0].ArrayLess)
}

func TestWalk_ThisMethodCallDeletesReceiver(t *testing.T) {
	src := `
class C {
  void doIt() {}
  void m() {
    this.doIt();
  }
}`
	root, source := parse(t, src)
	classes, err := classmap.Build(root, source)
	require.NoError(t, err)
	region := findStatement(t, root, source, "this.doIt();")

	rw := rewrite.New(source)
	in := visit.Input{Region: region, ContextVar: "ctx", ExecutorVar: "ex"}
	v, err := visit.New(rw, classes, source, in, nil)
	require.NoError(t, err)
	res, err := v.Walk()
	require.NoError(t, err)

	got, err := rw.RenderRange(int(region.StartByte()), int(region.EndByte()))
	require.NoError(t, err)
	assert.Equal(t, "doIt();", got)
	assert.True(t, res.CapturedThis)
}

func TestWalk_AnonymousClassThisUntouchedXCaptured(t *testing.T) {
	src := `
class C {
  void m() {
    int x = 0;
    Runnable r = new Runnable() {
      public void run() {
        this.toString();
        x++;
      }
    };
  }
}`
	root, source := parse(t, src)
	classes, err := classmap.Build(root, source)
	require.NoError(t, err)
	region := findStatement(t, root, source, strings.TrimSpace(`Runnable r = new Runnable() {
      public void run() {
        this.toString();
        x++;
      }
    };`))

	rw := rewrite.New(source)
	in := visit.Input{Region: region, ContextVar: "ctx", ExecutorVar: "ex"}
	v, err := visit.New(rw, classes, source, in, nil)
	require.NoError(t, err)
	res, err := v.Walk()
	require.NoError(t, err)

	got, err := rw.RenderRange(int(region.StartByte()), int(region.EndByte()))
	require.NoError(t, err)
	assert.Contains(t, got, "this.toString();")
	assert.Contains(t, got, "ctx.L_0_x++;")
	assert.False(t, res.CapturedThis)
	require.Len(t, res.Captured, 1)
	assert.Equal(t, "x", res.Captured[0].ArrayLess)
}

func TestWalk_NestedDirectiveRecapturesThroughParentContext(t *testing.T) {
	src := `
class C {
  void m() {
    int x = 0;
    x = x + 1;
  }
}`
	root, source := parse(t, src)
	classes, err := classmap.Build(root, source)
	require.NoError(t, err)
	region := findStatement(t, root, source, "x = x + 1;")

	rw := rewrite.New(source)
	outerIn := visit.Input{Region: region, ContextVar: "outerCtx", ExecutorVar: "outerEx"}
	outer, err := visit.New(rw, classes, source, outerIn, nil)
	require.NoError(t, err)
	outerRes, err := outer.Walk()
	require.NoError(t, err)
	require.Len(t, outerRes.Captured, 1)

	rw2 := rewrite.New(source)
	innerIn := visit.Input{
		Region:           region,
		ContextVar:       "innerCtx",
		ExecutorVar:      "innerEx",
		ParentContextVar: "outerCtx",
		ParentCaptured:   outerRes.Captured,
	}
	inner, err := visit.New(rw2, classes, source, innerIn, nil)
	require.NoError(t, err)
	innerRes, err := inner.Walk()
	require.NoError(t, err)

	got, err := rw2.RenderRange(int(region.StartByte()), int(region.EndByte()))
	require.NoError(t, err)
	assert.Equal(t, "outerCtx.L_0_x = outerCtx.L_0_x + 1;", got)
	assert.Empty(t, innerRes.Captured)
}
