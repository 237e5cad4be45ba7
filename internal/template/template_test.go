package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/ompj/internal/directive"
	"github.com/viant/ompj/internal/symbol"
	"github.com/viant/ompj/internal/template"
)

func TestRender_ParallelForkJoinSkeleton(t *testing.T) {
	d := &directive.Directive{
		Kind:         directive.Parallel,
		ContextVar:   "ctx0",
		ContextClass: "Ctx0",
		ExecutorVar:  "ex0",
		ThreadNum:    "4",
		Captured: []symbol.Variable{
			{Name: "x", ArrayLess: "x", Kind: symbol.Local, DeclaredType: "int"},
		},
	}
	out, err := template.Render(d, "ctx0.L_0_x = ctx0.L_0_x + 1;", template.DefaultConfig())
	require.NoError(t, err)

	assert.Contains(t, out, "final class Ctx0 {")
	assert.Contains(t, out, "int L_0_x;")
	assert.Contains(t, out, "final Ctx0 ctx0 = new Ctx0();")
	assert.Contains(t, out, "ctx0.L_0_x = x;")
	assert.Contains(t, out, "final int ctx0_threadNum = 4;")
	assert.Contains(t, out, "Executors.newFixedThreadPool(ctx0_threadNum)")
	assert.Contains(t, out, "ctx0_exec.shutdown();")
	assert.Contains(t, out, "ctx0.L_0_x = ctx0.L_0_x + 1;")
}

func TestRender_ParallelCapturedThisEmitsThatField(t *testing.T) {
	d := &directive.Directive{
		Kind:               directive.Parallel,
		ContextVar:         "ctx0",
		ContextClass:       "Ctx0",
		ExecutorVar:        "ex0",
		EnclosingClassName: "Worker",
		CapturedThis:       true,
	}
	out, err := template.Render(d, "", template.DefaultConfig())
	require.NoError(t, err)

	assert.Contains(t, out, "Worker THAT;")
	assert.Contains(t, out, "ctx0.THAT = this;")
}

func TestRender_PrivateVariableGetsPerWorkerArray(t *testing.T) {
	d := &directive.Directive{
		Kind:         directive.ParallelFor,
		ContextVar:   "ctx0",
		ContextClass: "Ctx0",
		ExecutorVar:  "ex0",
		ThreadNum:    "4",
		Private:      map[string]bool{"sum": true},
		Captured: []symbol.Variable{
			{Name: "sum", ArrayLess: "sum", Kind: symbol.Local, DeclaredType: "int"},
		},
	}
	out, err := template.Render(d, "", template.DefaultConfig())
	require.NoError(t, err)

	assert.Contains(t, out, "int[] L_0_sum = new int[4];")
	assert.NotContains(t, out, "ctx0.L_0_sum = sum;")
}

func TestRender_PrivateArrayVariableSizesLeftmostDimension(t *testing.T) {
	d := &directive.Directive{
		Kind:         directive.ParallelFor,
		ContextVar:   "ctx0",
		ContextClass: "Ctx0",
		ExecutorVar:  "ex0",
		ThreadNum:    "4",
		Private:      map[string]bool{"a": true},
		Captured: []symbol.Variable{
			{Name: "a", ArrayLess: "a", Kind: symbol.Local, DeclaredType: "int[]"},
		},
	}
	out, err := template.Render(d, "", template.DefaultConfig())
	require.NoError(t, err)

	assert.Contains(t, out, "int[][] L_0_a = new int[4][];")
	assert.NotContains(t, out, "new int[][4]")
}

func TestRender_FirstPrivateVariableIsFilled(t *testing.T) {
	d := &directive.Directive{
		Kind:         directive.ParallelFor,
		ContextVar:   "ctx0",
		ContextClass: "Ctx0",
		ExecutorVar:  "ex0",
		ThreadNum:    "4",
		FirstPrivate: map[string]bool{"base": true},
		Captured: []symbol.Variable{
			{Name: "base", ArrayLess: "base", Kind: symbol.Local, DeclaredType: "int"},
		},
	}
	out, err := template.Render(d, "", template.DefaultConfig())
	require.NoError(t, err)

	assert.Contains(t, out, "java.util.Arrays.fill(ctx0.L_0_base, base);")
}

func TestRender_ReductionEmitsWriteBackLoop(t *testing.T) {
	d := &directive.Directive{
		Kind:         directive.ParallelFor,
		ContextVar:   "ctx0",
		ContextClass: "Ctx0",
		ExecutorVar:  "ex0",
		ThreadNum:    "4",
		Private:      map[string]bool{"sum": true},
		Reduction:    []directive.ReductionOp{{Name: "sum", Op: "+"}},
		Captured: []symbol.Variable{
			{Name: "sum", ArrayLess: "sum", Kind: symbol.Local, DeclaredType: "int"},
		},
	}
	out, err := template.Render(d, "", template.DefaultConfig())
	require.NoError(t, err)

	assert.Contains(t, out, "sum += ctx0.L_0_sum[__r];")
}

func TestRender_ReductionOnUnsupportedKindErrors(t *testing.T) {
	d := &directive.Directive{
		Kind:       directive.Single,
		ContextVar: "ctx0",
		Reduction:  []directive.ReductionOp{{Name: "sum", Op: "+"}},
	}
	_, err := template.Render(d, "body();", template.DefaultConfig())
	require.Error(t, err)
}

func TestRender_Barrier(t *testing.T) {
	d := &directive.Directive{Kind: directive.Barrier, ContextVar: "ctx0"}
	out, err := template.Render(d, "", template.DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, out, "ctx0_barrier.await();")
}

func TestRender_CriticalWrapsInSynchronized(t *testing.T) {
	d := &directive.Directive{Kind: directive.Critical, ContextVar: "ctx0"}
	out, err := template.Render(d, "shared++;", template.DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, out, "synchronized (ctx0_lock) {")
	assert.Contains(t, out, "shared++;")
}

func TestRender_SingleUsesOnceGuard(t *testing.T) {
	d := &directive.Directive{Kind: directive.Single, ContextVar: "ctx0"}
	out, err := template.Render(d, "init();", template.DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, out, "ctx0_once.compareAndSet(false, true)")
	assert.Contains(t, out, "init();")
}
