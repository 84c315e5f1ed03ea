package gen

import (
	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
	"github.com/btrc-lang/btrc/internal/resolve"
)

// lookupMethod finds a method by name, walking the Parent chain (the
// most-derived override found first wins, matching normal override
// resolution).
func lookupMethod(info *resolve.ClassInfo, analyzed *resolve.AnalyzedProgram, name string) *resolve.MethodInfo {
	for info != nil {
		if m, ok := info.Methods[name]; ok {
			return m
		}
		info = analyzed.Classes[info.Parent]
	}
	return nil
}

// lowerClassMethodCall lowers `obj.method(args)` for a class-typed
// receiver. There is no vtable: dispatch is resolved entirely from
// the receiver's static type, to the nearest class in the chain that
// actually declares the method. A base-typed reference to a derived
// instance therefore still calls the base's own `<Base>_<method>`,
// which for an inherited, unoverridden method is the thin accessor
// wrapper lowerInheritedMethodWrappers synthesizes onto the declaring
// ancestor's implementation.
func (c *Context) lowerClassMethodCall(info *resolve.ClassInfo, objType *ast.TypeExpr, obj ir.Expr, method string, args []ir.Expr) ir.Expr {
	allArgs := append([]ir.Expr{obj}, args...)
	owner := objType.Base
	if m := lookupMethod(info, c.Analyzed, method); m != nil {
		owner = c.methodOwner(info, method)
	}
	return &ir.Call{Callee: owner + "_" + method, Args: allArgs}
}

// methodOwner returns the name of the nearest class at or above info
// in the inheritance chain that actually declares method (the class
// whose implementation a static call, or an inherited-method
// wrapper's body, should bind to).
func (c *Context) methodOwner(info *resolve.ClassInfo, method string) string {
	owner := info.Name
	for cur := info; cur != nil; cur = c.Analyzed.Classes[cur.Parent] {
		if _, ok := cur.Methods[method]; ok {
			owner = cur.Name
			break
		}
	}
	return owner
}

// lowerInheritedMethodWrappers emits, for every method info inherits
// from an ancestor without redeclaring it itself, a thin accessor
// wrapper:
//
//	C_m(self, …) { return P_m((P*)self, …); }
//
// so every class has a complete `<Class>_<method>` symbol to call
// into even for methods it never overrides.
func (c *Context) lowerInheritedMethodWrappers(info *resolve.ClassInfo) {
	if info.Parent == "" {
		return
	}
	seen := map[string]bool{}
	for cur := c.Analyzed.Classes[info.Parent]; cur != nil; cur = c.Analyzed.Classes[cur.Parent] {
		for _, mname := range sortedKeys(cur.Methods) {
			if mname == cur.DestructorName || seen[mname] {
				continue
			}
			seen[mname] = true
			if _, ok := info.Methods[mname]; ok {
				continue
			}
			owner := c.methodOwner(info, mname)
			c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, c.lowerInheritedWrapper(info, owner, mname, cur.Methods[mname]))
		}
	}
}

// lowerInheritedWrapper builds the `<info.Name>_<name>` accessor
// wrapper around owner's implementation: cast self down to owner's
// pointer type, forward every parameter, and return the call's result
// (or just make it, for a void method).
func (c *Context) lowerInheritedWrapper(info *resolve.ClassInfo, owner, name string, m *resolve.MethodInfo) *ir.FunctionDef {
	selfType := ir.CType{Text: "struct " + info.Name + "*"}
	ownerSelfType := ir.CType{Text: "struct " + owner + "*"}

	var params []ir.Param
	var callArgs []ir.Expr
	if !m.Sig.IsStatic {
		params = append(params, ir.Param{CType: selfType, Name: "self"})
		callArgs = append(callArgs, &ir.Cast{TargetType: ownerSelfType, Expr: &ir.Var{Name: "self"}})
	}
	for _, p := range m.Sig.Params {
		params = append(params, ir.Param{CType: c.cType(p.Type), Name: p.Name})
		callArgs = append(callArgs, &ir.Var{Name: p.Name})
	}

	retType := c.cType(m.Sig.ReturnType)
	call := &ir.Call{Callee: owner + "_" + name, Args: callArgs}
	var body []ir.Stmt
	if retType.Text == "void" {
		body = []ir.Stmt{&ir.ExprStmt{Expr: call}}
	} else {
		body = []ir.Stmt{&ir.Return{Value: call}}
	}

	return &ir.FunctionDef{
		Name:       info.Name + "_" + name,
		ReturnType: retType,
		Params:     params,
		Body:       &ir.Block{Stmts: body},
		IsStatic:   true,
	}
}
