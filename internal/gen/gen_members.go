package gen

import (
	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
	"github.com/btrc-lang/btrc/internal/resolve"
)

// lookupProperty finds a property declaration by name, walking the
// inheritance chain (ClassInfo.Properties holds only a class's own
// declarations, so every lookup walks Parent explicitly, the same way
// lookupMethod does for methods).
func lookupProperty(info *resolve.ClassInfo, analyzed *resolve.AnalyzedProgram, name string) *resolve.PropertyInfo {
	for info != nil {
		if p, ok := info.Properties[name]; ok {
			return p
		}
		info = analyzed.Classes[info.Parent]
	}
	return nil
}

// lowerPropertyGetterCall rewrites `obj.prop` to a call to the
// synthesized getter function when the property declares a custom
// getter body; auto-getters (Getter == nil) are handled by the plain
// field-access path in lowerFieldAccess and never reach here.
func (c *Context) lowerPropertyGetterCall(className, propName string, obj ir.Expr) ir.Expr {
	return &ir.Call{Callee: className + "_get_" + propName, Args: []ir.Expr{obj}}
}

// lowerPropertySetterCall rewrites `obj.prop = value` to a call to the
// synthesized setter function.
func (c *Context) lowerPropertySetterCall(className, propName string, obj, value ir.Expr) ir.Expr {
	return &ir.Call{Callee: className + "_set_" + propName, Args: []ir.Expr{obj, value}}
}

// lowerClassProperties synthesizes one getter and one setter function
// per declared property — always, even for auto-properties. Access
// sites call them only when the property declares a custom getter
// (lowerFieldAccess) or setter (lowerAssign); any other access reads
// or writes the field directly.
func (c *Context) lowerClassProperties(info *resolve.ClassInfo) {
	selfType := ir.CType{Text: "struct " + info.Name + "*"}
	for _, name := range sortedKeys(info.Properties) {
		prop := info.Properties[name]
		prevClass := c.currentClass
		c.currentClass = info.Name

		var getterBody *ir.Block
		if prop.Getter != nil {
			getterBody = c.lowerBlockScoped(prop.Getter, map[string]*ast.TypeExpr{"self": {Base: info.Name}})
		} else {
			getterBody = &ir.Block{Stmts: []ir.Stmt{
				&ir.Return{Value: &ir.FieldAccess{Obj: &ir.Var{Name: "self"}, Field: name, Arrow: true}},
			}}
		}
		c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, &ir.FunctionDef{
			Name:       info.Name + "_get_" + name,
			ReturnType: c.cType(prop.Type),
			Params:     []ir.Param{{CType: selfType, Name: "self"}},
			Body:       getterBody,
			IsStatic:   true,
		})

		setterParam := prop.SetterParam
		if setterParam == "" {
			setterParam = "value"
		}
		var setterBody *ir.Block
		if prop.Setter != nil {
			env := map[string]*ast.TypeExpr{"self": {Base: info.Name}, setterParam: prop.Type}
			setterBody = c.lowerBlockScoped(prop.Setter, env)
		} else {
			setterBody = &ir.Block{Stmts: []ir.Stmt{
				&ir.Assign{Target: &ir.FieldAccess{Obj: &ir.Var{Name: "self"}, Field: name, Arrow: true}, Value: &ir.Var{Name: setterParam}},
			}}
		}
		c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, &ir.FunctionDef{
			Name:       info.Name + "_set_" + name,
			ReturnType: ir.CType{Text: "void"},
			Params:     []ir.Param{{CType: selfType, Name: "self"}, {CType: c.cType(prop.Type), Name: setterParam}},
			Body:       setterBody,
			IsStatic:   true,
		})

		c.currentClass = prevClass
	}
}
