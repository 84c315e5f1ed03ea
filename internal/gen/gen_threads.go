package gen

import (
	"fmt"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
)

// lowerSpawn lowers `spawn callee(args...)` to an ir.SpawnThread: a
// void*(void*) trampoline function plus, when the call passes
// arguments, a packed capture struct carrying them across the
// pthread_create boundary (the call's own arguments are evaluated in
// the spawning thread, before the new thread starts, matching
// capture-by-value semantics rather than capture-by-reference).
func (c *Context) lowerSpawn(x *ast.SpawnExpr) ir.Expr {
	thunkName := c.tmpName("thread_fn")

	call, ok := x.Call.(*ast.CallExpr)
	if !ok {
		return c.spawnThunk(thunkName, func() []ir.Stmt {
			return []ir.Stmt{&ir.ExprStmt{Expr: c.lowerExpr(x.Call)}}
		}, nil)
	}

	ident, ok := call.Callee.(*ast.Ident)
	if !ok {
		return c.spawnThunk(thunkName, func() []ir.Stmt {
			return []ir.Stmt{&ir.ExprStmt{Expr: c.lowerExpr(call)}}
		}, nil)
	}

	var paramTypes []*ast.TypeExpr
	if fn, ok := c.Analyzed.Functions[ident.Name]; ok {
		for _, p := range fn.Sig.Params {
			paramTypes = append(paramTypes, p.Type)
		}
	}

	if len(call.Args) == 0 {
		return c.spawnThunk(thunkName, func() []ir.Stmt {
			return []ir.Stmt{&ir.ExprStmt{Expr: &ir.Call{Callee: ident.Name}}}
		}, nil)
	}

	captureType := "struct " + thunkName + "_capture"
	var fields []ir.StructField
	argVals := make([]ir.Expr, len(call.Args))
	for i, a := range call.Args {
		var t *ast.TypeExpr
		if i < len(paramTypes) {
			t = paramTypes[i]
		}
		argVals[i] = c.lowerExprWithHint(a, t)
		fields = append(fields, ir.StructField{CType: c.cType(t), Name: fmt.Sprintf("arg%d", i)})
	}
	c.Mod.StructDefs = append(c.Mod.StructDefs, &ir.StructDef{Name: thunkName + "_capture", Fields: fields})

	capInit := []ir.Stmt{
		&ir.VarDecl{
			CType: ir.CType{Text: captureType + "*"}, Name: "__spawn_cap",
			Init: &ir.Cast{TargetType: ir.CType{Text: captureType + "*"}, Expr: &ir.Call{Callee: "__btrc_alloc", Args: []ir.Expr{&ir.Sizeof{Operand: captureType}}, HelperRef: "__btrc_alloc"}},
		},
	}
	for i, v := range argVals {
		capInit = append(capInit, &ir.Assign{
			Target: &ir.FieldAccess{Obj: &ir.Var{Name: "__spawn_cap"}, Field: fmt.Sprintf("arg%d", i), Arrow: true},
			Value:  v,
		})
	}
	captureExpr := &ir.StmtExpr{Stmts: capInit, Result: &ir.Var{Name: "__spawn_cap"}}

	body := func() []ir.Stmt {
		callArgs := make([]ir.Expr, len(call.Args))
		for i := range call.Args {
			callArgs[i] = &ir.FieldAccess{Obj: &ir.Var{Name: "__cap"}, Field: fmt.Sprintf("arg%d", i), Arrow: true}
		}
		return []ir.Stmt{
			&ir.VarDecl{CType: ir.CType{Text: captureType + "*"}, Name: "__cap", Init: &ir.Cast{TargetType: ir.CType{Text: captureType + "*"}, Expr: &ir.Var{Name: "__arg"}}},
			&ir.ExprStmt{Expr: &ir.Call{Callee: ident.Name, Args: callArgs}},
		}
	}
	return c.spawnThunk(thunkName, body, captureExpr)
}

func (c *Context) spawnThunk(name string, body func() []ir.Stmt, captureArg ir.Expr) ir.Expr {
	stmts := append(body(), &ir.Return{Value: &ir.Literal{Text: "NULL"}})
	c.lambdaFns = append(c.lambdaFns, &ir.FunctionDef{
		Name:       name,
		ReturnType: ir.CType{Text: "void*"},
		Params:     []ir.Param{{CType: ir.CType{Text: "void*"}, Name: "__arg"}},
		Body:       &ir.Block{Stmts: stmts},
		IsStatic:   true,
	})
	return &ir.SpawnThread{FnPtr: name, CaptureArg: captureArg}
}

// lowerMutexNew lowers `Mutex(init)`: __btrc_mutex_new takes a raw
// void* payload, so a non-heap init value is boxed into a freshly
// allocated cell first (the mutex owns that cell for its lifetime).
func (c *Context) lowerMutexNew(x *ast.MutexExpr) ir.Expr {
	init := c.lowerExpr(x.Init)
	t := c.exprType(x.Init)
	if t != nil && c.isHeapObjectType(t) {
		return &ir.Call{Callee: "__btrc_mutex_new", Args: []ir.Expr{&ir.Cast{TargetType: ir.CType{Text: "void*"}, Expr: init}}, HelperRef: "__btrc_mutex_new"}
	}

	ctype := c.cType(t)
	box := c.tmpName("mutex_box")
	return &ir.StmtExpr{
		Stmts: []ir.Stmt{
			&ir.VarDecl{
				CType: ir.CType{Text: ctype.Text + "*"}, Name: box,
				Init: &ir.Cast{TargetType: ir.CType{Text: ctype.Text + "*"}, Expr: &ir.Call{Callee: "__btrc_alloc", Args: []ir.Expr{&ir.Sizeof{Operand: ctype.Text}}, HelperRef: "__btrc_alloc"}},
			},
			&ir.Assign{Target: &ir.Deref{Expr: &ir.Var{Name: box}}, Value: init},
		},
		Result: &ir.Call{Callee: "__btrc_mutex_new", Args: []ir.Expr{&ir.Cast{TargetType: ir.CType{Text: "void*"}, Expr: &ir.Var{Name: box}}}, HelperRef: "__btrc_mutex_new"},
	}
}
