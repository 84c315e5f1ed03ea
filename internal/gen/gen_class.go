package gen

import (
	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
	"github.com/btrc-lang/btrc/internal/resolve"
)

// classChain returns info's inheritance chain ordered root-ancestor
// first, info itself last — the order fields are flattened into a
// struct and field initializers/constructor bodies run in, so a
// subclass's own state always lands after (and can see) whatever its
// ancestors already set up.
func (c *Context) classChain(info *resolve.ClassInfo) []*resolve.ClassInfo {
	var chain []*resolve.ClassInfo
	for cur := info; cur != nil; cur = c.Analyzed.Classes[cur.Parent] {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// fieldPath reports whether name is declared anywhere in info's own
// chain (own declaration or inherited) — fields are flattened
// directly into a class's struct, so a found field is always reached
// through a plain, single field access, never a nested path.
func (c *Context) fieldPath(info *resolve.ClassInfo, name string) (string, bool) {
	for cur := info; cur != nil; cur = c.Analyzed.Classes[cur.Parent] {
		if _, ok := cur.Fields[name]; ok {
			return name, true
		}
	}
	return "", false
}

// lowerNonGenericClasses lowers every class without generic parameters
// (generic classes are lowered per concrete instantiation by
// gen_collections.go's lowerMonoPlan instead): struct layout,
// constructor, destructor, own methods, and accessor wrappers for
// every inherited-but-unoverridden method.
func (c *Context) lowerNonGenericClasses() {
	for _, name := range sortedKeys(c.Analyzed.Classes) {
		info := c.Analyzed.Classes[name]
		if len(info.Generics) > 0 {
			continue
		}
		c.lowerClass(info)
	}
}

// lowerClass emits a class's struct, constructor, destructor,
// property accessors, own methods, and inherited-method wrappers.
//
// The struct carries all parent fields inherited flatly ahead of the
// class's own fields, matching a generic class instantiation's
// layout: `int __rc` first (ARC needs a refcount slot on every
// reference-counted pointer the release/cycle machinery in gen_arc.go
// touches, not only on generic instances), then every field in the
// chain, root ancestor first. There is no vtable: dispatch is
// resolved entirely from the receiver's static type (gen_dispatch.go),
// and a class that inherits a method without overriding it gets its
// own `<Class>_<method>` symbol as a thin accessor wrapper onto the
// declaring ancestor's implementation.
func (c *Context) lowerClass(info *resolve.ClassInfo) {
	var fields []ir.StructField
	fields = append(fields, ir.StructField{CType: ir.CType{Text: "int"}, Name: "__rc"})
	for _, cur := range c.classChain(info) {
		for _, fname := range cur.FieldOrder {
			fields = append(fields, ir.StructField{CType: c.cType(cur.Fields[fname].Type), Name: fname})
		}
	}
	c.Mod.StructDefs = append(c.Mod.StructDefs, &ir.StructDef{Name: info.Name, Fields: fields})

	c.lowerClassConstructor(info)
	c.lowerClassDestroy(info)
	c.lowerClassProperties(info)

	prevClass := c.currentClass
	c.currentClass = info.Name
	for _, mname := range sortedKeys(info.Methods) {
		m := info.Methods[mname]
		if m.Body == nil {
			continue
		}
		c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, c.lowerMethod(info.Name, mname, m))
	}
	c.currentClass = prevClass

	c.lowerInheritedMethodWrappers(info)
}

func (c *Context) lowerMethod(className, name string, m *resolve.MethodInfo) *ir.FunctionDef {
	var params []ir.Param
	env := map[string]*ast.TypeExpr{}
	if !m.Sig.IsStatic {
		params = append(params, ir.Param{CType: ir.CType{Text: "struct " + className + "*"}, Name: "self"})
		env["self"] = &ast.TypeExpr{Base: className}
	}
	for _, p := range m.Sig.Params {
		params = append(params, ir.Param{CType: c.cType(p.Type), Name: p.Name})
		env[p.Name] = p.Type
	}

	prevClass := c.currentClass
	if m.Sig.IsStatic {
		c.currentClass = ""
	}
	body := c.lowerBlockScoped(m.Body, env)
	c.currentClass = prevClass

	return &ir.FunctionDef{
		Name:       className + "_" + name,
		ReturnType: c.cType(m.Sig.ReturnType),
		Params:     params,
		Body:       body,
		IsStatic:   true,
	}
}

// lowerClassConstructor synthesizes `<Class>_new(params...)`: allocate
// zeroed storage, then — for every class in the chain from the root
// ancestor down to info itself — assign that class's own field
// initializers, then run its constructor body if it declared one and
// it is either info itself or an ancestor whose constructor takes no
// parameters (a parameterized ancestor constructor is not run, since
// nothing supplies its arguments). The language has no `super(...)` call syntax, so this
// chain walk is the only way an ancestor's field defaults and
// constructor logic ever run when building a subclass instance
// (mirrors lowerClassDestroy's full-chain walk on the way out).
func (c *Context) lowerClassConstructor(info *resolve.ClassInfo) {
	var params []ast.Param
	if info.Ctor != nil {
		params = info.Ctor.Sig.Params
	}
	irParams := make([]ir.Param, len(params))
	ctorEnv := map[string]*ast.TypeExpr{}
	for i, p := range params {
		irParams[i] = ir.Param{CType: c.cType(p.Type), Name: p.Name}
		ctorEnv[p.Name] = p.Type
	}

	selfType := ir.CType{Text: "struct " + info.Name + "*"}
	stmts := []ir.Stmt{
		&ir.VarDecl{
			CType: selfType, Name: "self",
			Init: &ir.Cast{TargetType: selfType, Expr: &ir.Call{Callee: "__btrc_alloc", Args: []ir.Expr{&ir.Sizeof{Operand: "struct " + info.Name}}, HelperRef: "__btrc_alloc"}},
		},
		&ir.Assign{Target: &ir.FieldAccess{Obj: &ir.Var{Name: "self"}, Field: "__rc", Arrow: true}, Value: &ir.Literal{Text: "1"}},
	}

	prevClass := c.currentClass
	for _, cur := range c.classChain(info) {
		c.currentClass = cur.Name
		env := map[string]*ast.TypeExpr{"self": {Base: info.Name}}
		if cur.Name == info.Name {
			for k, v := range ctorEnv {
				env[k] = v
			}
		}
		c.pushScope(env)
		c.declareLocal("self", &ast.TypeExpr{Base: info.Name})

		for _, fname := range cur.FieldOrder {
			f := cur.Fields[fname]
			if f.Initializer == nil {
				continue
			}
			stmts = append(stmts, &ir.Assign{
				Target: &ir.FieldAccess{Obj: &ir.Var{Name: "self"}, Field: fname, Arrow: true},
				Value:  c.lowerExprWithHint(f.Initializer, f.Type),
			})
		}
		// An ancestor's own constructor body runs too — chained the
		// same way the destructor chains ancestor __del__ bodies —
		// except when it declares parameters: the language has no
		// `super(...)` call syntax, so a parameterized ancestor ctor
		// has no value source for its own parameters when invoked
		// implicitly from a subclass's _new, and is left unrun (an
		// ancestor's parameterless ctor body, and every class's own
		// field initializers in the chain, still always run).
		runsCtorBody := cur.Ctor != nil && cur.Ctor.Body != nil &&
			(cur.Name == info.Name || len(cur.Ctor.Sig.Params) == 0)
		if runsCtorBody {
			stmts = append(stmts, c.lowerBlock(cur.Ctor.Body).Stmts...)
		}
		c.popScope()
	}
	c.currentClass = prevClass

	stmts = append(stmts, &ir.Return{Value: &ir.Var{Name: "self"}})

	c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, &ir.FunctionDef{
		Name:       info.Name + "_new",
		ReturnType: selfType,
		Params:     irParams,
		Body:       &ir.Block{Stmts: stmts},
		IsStatic:   true,
	})
}

// lowerClassDestroy synthesizes <Class>_destroy: run this class's own
// user destructor body (if declared) and every ancestor's, most-derived
// first, then release every heap-typed field declared anywhere in the
// chain (gen_arc.go's trial functions walk the same chain for cycle
// collection) — fields are flattened directly into the struct, so
// there is no separate embedded subobject to free — and finally free
// the instance itself.
func (c *Context) lowerClassDestroy(info *resolve.ClassInfo) {
	selfType := ir.CType{Text: "struct " + info.Name + "*"}
	var stmts []ir.Stmt

	for cur := info; cur != nil; cur = c.Analyzed.Classes[cur.Parent] {
		userDtor := cur.Methods[cur.DestructorName]
		if userDtor == nil || userDtor.Body == nil {
			continue
		}
		prevClass := c.currentClass
		c.currentClass = cur.Name
		c.pushScope(map[string]*ast.TypeExpr{"self": {Base: info.Name}})
		stmts = append(stmts, c.lowerBlock(userDtor.Body).Stmts...)
		c.popScope()
		c.currentClass = prevClass
	}

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
			field := c.fieldAccessChain(&ir.Var{Name: "self"}, path, true)
			stmts = append(stmts, &ir.ExprStmt{Expr: releaseCall(field, f.Type.Base)})
		}
	}
	stmts = append(stmts, &ir.ExprStmt{Expr: &ir.Call{Callee: "free", Args: []ir.Expr{&ir.Var{Name: "self"}}}})

	c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, &ir.FunctionDef{
		Name:       info.Name + "_destroy",
		ReturnType: ir.CType{Text: "void"},
		Params:     []ir.Param{{CType: selfType, Name: "self"}},
		Body:       &ir.Block{Stmts: stmts},
		IsStatic:   true,
	})
}
