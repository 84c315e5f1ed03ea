package gen

import (
	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
	"github.com/btrc-lang/btrc/internal/resolve"
)

// withScopeRelease appends (or inserts before every return) a release
// call for each heap-typed local declared directly in the innermost
// scope, implementing automatic scope-exit reference counting. A
// returned bare local is left alone on the assumption ownership
// transfers to the caller; everything else declared in this scope is
// released in reverse declaration order.
func (c *Context) withScopeRelease(block *ir.Block) *ir.Block {
	top := len(c.scopes) - 1
	owned := c.declared[top]
	if len(owned) == 0 {
		return block
	}

	releaseCalls := func(skip string) []ir.Stmt {
		var out []ir.Stmt
		for i := len(owned) - 1; i >= 0; i-- {
			name := owned[i]
			if name == skip {
				continue
			}
			t := c.scopes[top][name]
			if t == nil || !c.isHeapObjectType(t) {
				continue
			}
			out = append(out, c.releaseStmt(&ir.Var{Name: name}, t))
		}
		return out
	}

	var out []ir.Stmt
	trailingReturn := false
	for _, s := range block.Stmts {
		ret, ok := s.(*ir.Return)
		if !ok {
			out = append(out, s)
			trailingReturn = false
			continue
		}
		skip := ""
		if v, ok := ret.Value.(*ir.Var); ok {
			skip = v.Name
		}
		out = append(out, releaseCalls(skip)...)
		out = append(out, ret)
		trailingReturn = true
	}
	if !trailingReturn {
		out = append(out, releaseCalls("")...)
	}
	return &ir.Block{Stmts: out}
}

// lowerRelease lowers an explicit `release expr;` statement to a call
// into the target's class release function.
func (c *Context) lowerRelease(target ast.Expr) ir.Stmt {
	t := c.exprType(target)
	val := c.lowerExpr(target)
	if t == nil {
		return &ir.ExprStmt{Expr: val}
	}
	return &ir.ExprStmt{Expr: releaseCall(val, t.Base)}
}

func (c *Context) releaseStmt(val ir.Expr, t *ast.TypeExpr) ir.Stmt {
	return &ir.ExprStmt{Expr: releaseCall(val, t.Base)}
}

func releaseCall(val ir.Expr, className string) ir.Expr {
	return &ir.Call{Callee: className + "_release", Args: []ir.Expr{val}}
}

// lowerClassARCFuncs generates, for every resolved class, the release
// function that every field/local/return-value release call above
// compiles down to, plus — for classes IsCyclable flags as able to
// participate in a reference cycle — the trial_release/trial_restore
// pair the cycle collector calls through __btrc_cycle_suspect
// (spec's four-phase ARC+trial-cycle-collection release: decrement,
// destroy at zero, suspect cyclable survivors, later trial-collect).
//
// <Class>_destroy itself is synthesized by gen_class.go (it owns field
// layout and any user destructor body); this file only forward-declares
// it so release/trial functions can reference it regardless of
// definition order in the emitted translation unit.
func (c *Context) lowerClassARCFuncs() {
	for _, name := range sortedKeys(c.Analyzed.Classes) {
		info := c.Analyzed.Classes[name]
		c.Mod.ForwardDecls = append(c.Mod.ForwardDecls, "void "+name+"_destroy(struct "+name+" *obj);")
		c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, c.lowerClassRelease(info))
		if info.IsCyclable {
			c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, c.lowerClassTrial(info, true))
			c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, c.lowerClassTrial(info, false))
		}
	}
}

func (c *Context) lowerClassRelease(info *resolve.ClassInfo) *ir.FunctionDef {
	selfType := ir.CType{Text: "struct " + info.Name + "*"}
	stmts := []ir.Stmt{
		&ir.If{
			Condition: &ir.UnaryOp{Op: "!", Operand: &ir.Var{Name: "obj"}, Prefix: true},
			ThenBlock: &ir.Block{Stmts: []ir.Stmt{&ir.Return{}}},
		},
		&ir.ExprStmt{Expr: &ir.UnaryOp{Op: "--", Operand: &ir.FieldAccess{Obj: &ir.Var{Name: "obj"}, Field: "__rc", Arrow: true}, Prefix: false}},
	}

	destroyCall := &ir.ExprStmt{Expr: &ir.Call{Callee: info.Name + "_destroy", Args: []ir.Expr{&ir.Var{Name: "obj"}}}}
	destroyIf := &ir.If{
		Condition: &ir.BinOp{Left: &ir.FieldAccess{Obj: &ir.Var{Name: "obj"}, Field: "__rc", Arrow: true}, Op: "<=", Right: &ir.Literal{Text: "0"}},
		ThenBlock: &ir.Block{Stmts: []ir.Stmt{destroyCall}},
	}
	if info.IsCyclable {
		destroyIf.ElseBlock = &ir.Block{Stmts: []ir.Stmt{
			&ir.ExprStmt{Expr: &ir.Call{
				Callee: "__btrc_cycle_suspect",
				Args: []ir.Expr{
					&ir.Var{Name: "obj"},
					&ir.RawExpr{Text: "(void(*)(void*))" + info.Name + "_trial_release"},
					&ir.RawExpr{Text: "(void(*)(void*))" + info.Name + "_trial_restore"},
					&ir.RawExpr{Text: "(void(*)(void*))" + info.Name + "_destroy"},
					&ir.AddressOf{Expr: &ir.FieldAccess{Obj: &ir.Var{Name: "obj"}, Field: "__rc", Arrow: true}},
				},
				HelperRef: "__btrc_cycle_suspect",
			}},
		}}
	}
	stmts = append(stmts, destroyIf)

	return &ir.FunctionDef{
		Name:       info.Name + "_release",
		ReturnType: ir.CType{Text: "void"},
		Params:     []ir.Param{{CType: selfType, Name: "obj"}},
		Body:       &ir.Block{Stmts: stmts},
		IsStatic:   true,
	}
}

// lowerClassTrial generates trial_release (decrement=true) or
// trial_restore (decrement=false): a direct, non-recursive adjustment
// of every heap-typed field's refcount, used only to test whether a
// cyclable object's survivors are reachable from outside the
// candidate cycle.
func (c *Context) lowerClassTrial(info *resolve.ClassInfo, decrement bool) *ir.FunctionDef {
	op := "++"
	name := info.Name + "_trial_restore"
	if decrement {
		op = "--"
		name = info.Name + "_trial_release"
	}
	var stmts []ir.Stmt
	for cur := info; cur != nil; cur = c.Analyzed.Classes[cur.Parent] {
		for _, fname := range cur.FieldOrder {
			f := cur.Fields[fname]
			if !c.isHeapObjectType(f.Type) {
				continue
			}
			path, ok := c.fieldPath(info, fname)
			if !ok {
				continue
			}
			field := c.fieldAccessChain(&ir.Var{Name: "obj"}, path, true)
			stmts = append(stmts, &ir.If{
				Condition: field,
				ThenBlock: &ir.Block{Stmts: []ir.Stmt{
					&ir.ExprStmt{Expr: &ir.UnaryOp{Op: op, Operand: &ir.FieldAccess{Obj: field, Field: "__rc", Arrow: true}, Prefix: false}},
				}},
			})
		}
	}
	return &ir.FunctionDef{
		Name:       name,
		ReturnType: ir.CType{Text: "void"},
		Params:     []ir.Param{{CType: ir.CType{Text: "struct " + info.Name + "*"}, Name: "obj"}},
		Body:       &ir.Block{Stmts: stmts},
		IsStatic:   true,
	}
}
