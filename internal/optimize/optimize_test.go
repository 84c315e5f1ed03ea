package optimize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btrc-lang/btrc/internal/ir"
)

func TestEliminateDeadHelpersRemovesUnreferenced(t *testing.T) {
	module := &ir.Module{
		HelperDecls: []*ir.HelperDecl{
			{Category: "alloc", Name: "__btrc_alloc"},
			{Category: "string", Name: "__btrc_trim"},
		},
		FunctionDefs: []*ir.FunctionDef{
			{
				Name: "main",
				Body: &ir.Block{Stmts: []ir.Stmt{
					&ir.ExprStmt{Expr: &ir.Call{Callee: "__btrc_alloc", HelperRef: "__btrc_alloc"}},
				}},
			},
		},
	}

	Run(module)

	require.Len(t, module.HelperDecls, 1)
	assert.Equal(t, "__btrc_alloc", module.HelperDecls[0].Name)
}

func TestEliminateDeadHelpersKeepsTransitiveCategory(t *testing.T) {
	module := &ir.Module{
		HelperDecls: []*ir.HelperDecl{
			{Category: "cycle", Name: "__btrc_cycle_collect", DependsOn: []string{"destroyed"}},
			{Category: "destroyed", Name: "__btrc_mark_destroyed"},
			{Category: "gpu", Name: "__btrc_gpu_dispatch"},
		},
		FunctionDefs: []*ir.FunctionDef{
			{
				Name: "main",
				Body: &ir.Block{Stmts: []ir.Stmt{
					&ir.ExprStmt{Expr: &ir.Call{Callee: "__btrc_cycle_collect", HelperRef: "__btrc_cycle_collect"}},
				}},
			},
		},
	}

	Run(module)

	names := make(map[string]bool)
	for _, h := range module.HelperDecls {
		names[h.Name] = true
	}
	assert.True(t, names["__btrc_cycle_collect"])
	assert.True(t, names["__btrc_mark_destroyed"], "category dependency must be kept alive")
	assert.False(t, names["__btrc_gpu_dispatch"], "unreferenced helper must be dropped")
}

func TestEliminateDeadHelpersScansRawCText(t *testing.T) {
	module := &ir.Module{
		HelperDecls: []*ir.HelperDecl{
			{Category: "thread", Name: "__btrc_thread_spawn"},
		},
		FunctionDefs: []*ir.FunctionDef{
			{
				Name: "main",
				Body: &ir.Block{Stmts: []ir.Stmt{
					&ir.RawC{Text: "pthread_create(&t, NULL, __btrc_thread_spawn, NULL);"},
				}},
			},
		},
	}

	Run(module)

	require.Len(t, module.HelperDecls, 1)
}

func TestEliminateDeadHelpersNoHelpers(t *testing.T) {
	module := &ir.Module{}
	Run(module)
	assert.Empty(t, module.HelperDecls)
}

// TestRunIsIdempotent checks spec §8's round-trip property directly:
// optimize(optimize(m)) == optimize(m). Run mutates in place, so each
// side starts from its own freshly built Module (build() returns a new
// literal every call) rather than sharing one value, which would
// trivially equal itself regardless of whether Run is actually
// idempotent.
func TestRunIsIdempotent(t *testing.T) {
	build := func() *ir.Module {
		return &ir.Module{
			HelperDecls: []*ir.HelperDecl{
				{Category: "cycle", Name: "__btrc_cycle_collect", DependsOn: []string{"destroyed"}},
				{Category: "destroyed", Name: "__btrc_mark_destroyed"},
				{Category: "gpu", Name: "__btrc_gpu_dispatch"},
				{Category: "alloc", Name: "__btrc_alloc"},
			},
			FunctionDefs: []*ir.FunctionDef{
				{
					Name: "main",
					Body: &ir.Block{Stmts: []ir.Stmt{
						&ir.ExprStmt{Expr: &ir.Call{Callee: "__btrc_cycle_collect", HelperRef: "__btrc_cycle_collect"}},
					}},
				},
			},
		}
	}

	onceOptimized := Run(build())
	twiceOptimized := Run(Run(build()))

	if diff := cmp.Diff(onceOptimized, twiceOptimized); diff != "" {
		t.Errorf("optimize is not idempotent (-once +twice):\n%s", diff)
	}
}
