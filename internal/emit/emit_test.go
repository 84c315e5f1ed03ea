package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/btrc-lang/btrc/internal/ir"
)

func TestModuleEmitsIncludesAndFunction(t *testing.T) {
	m := &ir.Module{
		Includes: []string{"stdio.h"},
		FunctionDefs: []*ir.FunctionDef{
			{
				Name:       "main",
				ReturnType: ir.CType{Text: "int"},
				Body: &ir.Block{
					Stmts: []ir.Stmt{
						&ir.ExprStmt{Expr: &ir.Call{Callee: "printf", Args: []ir.Expr{&ir.Literal{Text: `"hi\n"`}}}},
						&ir.Return{Value: &ir.Literal{Text: "0"}},
					},
				},
			},
		},
	}

	out := Module(m)
	assert.Contains(t, out, "#include <stdio.h>")
	assert.Contains(t, out, "int main(void) {")
	assert.Contains(t, out, `printf("hi\n");`)
	assert.Contains(t, out, "return 0;")
}

func TestModuleEmitsIfElseAndFor(t *testing.T) {
	m := &ir.Module{
		FunctionDefs: []*ir.FunctionDef{
			{
				Name:       "loop",
				ReturnType: ir.CType{Text: "void"},
				Body: &ir.Block{
					Stmts: []ir.Stmt{
						&ir.For{
							Init:      "int i = 0",
							Condition: "i < 10",
							Update:    "i++",
							Body: &ir.Block{
								Stmts: []ir.Stmt{
									&ir.If{
										Condition: &ir.BinOp{Left: &ir.Var{Name: "i"}, Op: "==", Right: &ir.Literal{Text: "5"}},
										ThenBlock: &ir.Block{Stmts: []ir.Stmt{&ir.Break{}}},
										ElseBlock: &ir.Block{Stmts: []ir.Stmt{&ir.Continue{}}},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	out := Module(m)
	assert.Contains(t, out, "for (int i = 0; i < 10; i++) {")
	assert.Contains(t, out, "if (i == 5) {")
	assert.Contains(t, out, "break;")
	assert.Contains(t, out, "} else {")
	assert.Contains(t, out, "continue;")
}

func TestStmtExprRendersGCCBlockExpression(t *testing.T) {
	e := &Emitter{}
	x := &ir.StmtExpr{
		Stmts: []ir.Stmt{
			&ir.VarDecl{CType: ir.CType{Text: "int"}, Name: "tmp", Init: &ir.Literal{Text: "1"}},
		},
		Result: &ir.Var{Name: "tmp"},
	}
	out := e.expr(x)
	assert.True(t, strings.HasPrefix(out, "({\n"))
	assert.Contains(t, out, "int tmp = 1;")
	assert.True(t, strings.HasSuffix(out, "tmp;\n})"))
}
