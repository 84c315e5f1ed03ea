package gen

import (
	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
)

// lowerParallelFor lowers a `for parallel (int i = 0; i < n; i++) {
// body }` loop (ForStmt.ParallelHint) to a __btrc_gpu_dispatch call:
// the loop body is lifted into a kernel function taking the index and
// an opaque capture pointer, exactly like lowerLambda's capture
// convention, and __btrc_gpu_dispatch runs it n times (serially, with
// no accelerator backend configured — see helpers.gpuHelpers).
// Returns ok == false when the loop isn't in the simple counting shape
// dispatch needs, so the caller can fall back to an ordinary serial
// `for`.
func (c *Context) lowerParallelFor(stmt *ast.ForStmt) (ir.Stmt, bool) {
	initDecl, ok := stmt.Init.(*ast.LocalVarDecl)
	if !ok || initDecl.Type == nil || initDecl.Type.Base != "int" {
		return nil, false
	}
	cond, ok := stmt.Cond.(*ast.BinaryExpr)
	if !ok || cond.Op != "<" {
		return nil, false
	}
	idxIdent, ok := cond.Left.(*ast.Ident)
	if !ok || idxIdent.Name != initDecl.Name {
		return nil, false
	}

	c.lambdaCounter++
	kernelName := c.tmpName("gpu_kernel")

	free, needSelf := c.lambdaFreeVars(&ast.LambdaExpr{
		Params: []ast.Param{{Name: initDecl.Name, Type: initDecl.Type}},
		Body:   stmt.Body,
	})

	var captureType string
	if len(free) > 0 || needSelf {
		captureType = "struct " + kernelName + "_capture"
		var fields []ir.StructField
		if needSelf {
			fields = append(fields, ir.StructField{CType: ir.CType{Text: "struct " + c.currentClass + "*"}, Name: "self"})
		}
		for _, name := range free {
			fields = append(fields, ir.StructField{CType: c.cType(c.lookupLocalType(name)), Name: name})
		}
		c.Mod.StructDefs = append(c.Mod.StructDefs, &ir.StructDef{Name: kernelName + "_capture", Fields: fields})
	}

	env := map[string]*ast.TypeExpr{initDecl.Name: initDecl.Type}
	c.pushScope(env)
	var bodyStmts []ir.Stmt
	if captureType != "" {
		if needSelf {
			bodyStmts = append(bodyStmts, &ir.VarDecl{
				CType: ir.CType{Text: "struct " + c.currentClass + "*"}, Name: "self",
				Init: &ir.FieldAccess{Obj: &ir.Cast{TargetType: ir.CType{Text: captureType + "*"}, Expr: &ir.Var{Name: "__ctx"}}, Field: "self", Arrow: true},
			})
		}
		for _, name := range free {
			bodyStmts = append(bodyStmts, &ir.VarDecl{
				CType: c.cType(c.lookupLocalType(name)), Name: name,
				Init: &ir.FieldAccess{Obj: &ir.Cast{TargetType: ir.CType{Text: captureType + "*"}, Expr: &ir.Var{Name: "__ctx"}}, Field: name, Arrow: true},
			})
		}
	}
	bodyStmts = append(bodyStmts, &ir.VarDecl{CType: ir.CType{Text: "int"}, Name: initDecl.Name, Init: &ir.Cast{TargetType: ir.CType{Text: "int"}, Expr: &ir.Var{Name: "__i"}}})
	bodyStmts = append(bodyStmts, c.lowerBlock(stmt.Body).Stmts...)
	c.popScope()

	c.lambdaFns = append(c.lambdaFns, &ir.FunctionDef{
		Name:       kernelName,
		ReturnType: ir.CType{Text: "void"},
		Params:     []ir.Param{{CType: ir.CType{Text: "long"}, Name: "__i"}, {CType: ir.CType{Text: "void*"}, Name: "__ctx"}},
		Body:       &ir.Block{Stmts: bodyStmts},
		IsStatic:   true,
	})

	var ctxExpr ir.Expr = &ir.Literal{Text: "NULL"}
	if captureType != "" {
		ctxBuf := c.tmpName("gpu_ctx")
		var setup []ir.Stmt
		setup = append(setup, &ir.VarDecl{
			CType: ir.CType{Text: captureType + "*"}, Name: ctxBuf,
			Init: &ir.Cast{TargetType: ir.CType{Text: captureType + "*"}, Expr: &ir.Call{Callee: "__btrc_alloc", Args: []ir.Expr{&ir.Sizeof{Operand: captureType}}, HelperRef: "__btrc_alloc"}},
		})
		if needSelf {
			setup = append(setup, &ir.Assign{Target: &ir.FieldAccess{Obj: &ir.Var{Name: ctxBuf}, Field: "self", Arrow: true}, Value: &ir.Var{Name: "self"}})
		}
		for _, name := range free {
			setup = append(setup, &ir.Assign{Target: &ir.FieldAccess{Obj: &ir.Var{Name: ctxBuf}, Field: name, Arrow: true}, Value: c.lowerIdent(name)})
		}
		ctxExpr = &ir.StmtExpr{Stmts: setup, Result: &ir.Cast{TargetType: ir.CType{Text: "void*"}, Expr: &ir.Var{Name: ctxBuf}}}
	}

	n := c.lowerExpr(cond.Right)
	call := &ir.Call{Callee: "__btrc_gpu_dispatch", Args: []ir.Expr{n, &ir.Var{Name: kernelName}, ctxExpr}, HelperRef: "__btrc_gpu_dispatch"}
	return &ir.ExprStmt{Expr: call}, true
}
