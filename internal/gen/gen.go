// Package gen lowers an internal/resolve.AnalyzedProgram into an
// internal/ir.Module: class layout, generic instantiation (via
// internal/mono), method-to-function rewriting, new/delete expansion,
// for-in expansion, f-string expansion, lambda lifting, and ARC scope
// release all happen here. internal/emit only stringifies what this
// package builds.
//
// Organizationally this mirrors original_source's
// src/compiler/python/ir/gen/*.py one file per concern, even though
// nothing here is a line-for-line translation of Python.
package gen

import (
	"fmt"
	"sort"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/helpers"
	"github.com/btrc-lang/btrc/internal/ir"
	"github.com/btrc-lang/btrc/internal/mono"
	"github.com/btrc-lang/btrc/internal/resolve"
	"github.com/btrc-lang/btrc/internal/typeutil"
)

// Context carries the state threaded through every lowering function:
// the analyzed program, the shared type registry, the module under
// construction, and per-compilation counters.
type Context struct {
	Analyzed *resolve.AnalyzedProgram
	Reg      *typeutil.Registry
	Mod      *ir.Module

	tmpCounter    int
	lambdaCounter int
	lambdaFns     []*ir.FunctionDef

	// currentClass is the class a method body is currently being
	// lowered for ("" for free functions and top-level lambdas), used
	// to resolve a bare identifier that names a field to `self->field`.
	currentClass string
	// scopes is the lexical-scope stack of locally declared names
	// (params and local var decls) shadowing field access, innermost
	// last. The type is kept (rather than a plain set) so scope-exit
	// ARC release (gen_arc.go) knows which locals are heap objects.
	scopes []map[string]*ast.TypeExpr
	// declared parallels scopes, but only records names introduced by
	// declareLocal (actual `var` statements), in declaration order.
	// pushScope's initial env (a callable's receiver/params) is
	// intentionally excluded: params are borrowed, not owned, so
	// scope-exit release (withScopeRelease, gen_arc.go) must not
	// release them.
	declared [][]string

	// typeHint is the statically-known target type of the expression
	// currently being lowered (a var decl's declared type, a call
	// argument's parameter type, ...), consulted by gen_collections.go
	// to pick the right mangled List/Map/Set constructor for a bare
	// `{}`/`[...]` literal, which carries no type information of its
	// own. nil means no hint is available.
	typeHint *ast.TypeExpr

	// lambdaParamHint is the element type an arrow lambda's untyped
	// parameters should take when the surface lambda omits parameter
	// types (`(x) => x > 0`), as it always does when passed directly as
	// a collection callback. Set by lowerMethodCall for the duration of
	// lowering a collection method's arguments; nil elsewhere, in which
	// case an untyped param defaults to int.
	lambdaParamHint *ast.TypeExpr
}

// lowerExprWithHint lowers e with typeHint set to hint for the duration
// of the call, restoring the previous hint afterward.
func (c *Context) lowerExprWithHint(e ast.Expr, hint *ast.TypeExpr) ir.Expr {
	prev := c.typeHint
	c.typeHint = hint
	defer func() { c.typeHint = prev }()
	return c.lowerExpr(e)
}

// pushScope opens a new lexical scope pre-populated with typed names.
func (c *Context) pushScope(env map[string]*ast.TypeExpr) {
	m := make(map[string]*ast.TypeExpr, len(env))
	for n, t := range env {
		m[n] = t
	}
	c.scopes = append(c.scopes, m)
	c.declared = append(c.declared, nil)
}

func (c *Context) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
	c.declared = c.declared[:len(c.declared)-1]
}

func (c *Context) declareLocal(name string, t *ast.TypeExpr) {
	top := len(c.scopes) - 1
	c.scopes[top][name] = t
	c.declared[top] = append(c.declared[top], name)
}

func (c *Context) isLocal(name string) bool {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if _, ok := c.scopes[i][name]; ok {
			return true
		}
	}
	return false
}

// lookupLocalType returns the declared type of a local/param name
// visible in the current scope stack, or nil if it isn't one.
func (c *Context) lookupLocalType(name string) *ast.TypeExpr {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if t, ok := c.scopes[i][name]; ok {
			return t
		}
	}
	return nil
}

// Generate runs the full lowering pipeline and returns the IR module
// ready for internal/optimize and internal/emit.
func Generate(analyzed *resolve.AnalyzedProgram) *ir.Module {
	c := &Context{
		Analyzed: analyzed,
		Reg:      typeutil.NewRegistry(),
		Mod: &ir.Module{
			Includes: []string{
				"stdio.h", "stdlib.h", "string.h", "stdbool.h",
				"ctype.h", "setjmp.h", "pthread.h",
			},
		},
	}

	c.Mod.HelperDecls = helpers.All()

	c.lowerTypedefs()
	c.lowerStructs()
	c.lowerEnums()
	c.lowerRichEnums()

	plan := mono.Plan(analyzed, c.Reg)
	c.lowerMonoPlan(plan)

	c.lowerNonGenericClasses()
	c.lowerClassARCFuncs()
	c.lowerGlobals()
	c.lowerFunctions()

	c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, c.lambdaFns...)

	// Function-pointer typedefs are discovered lazily while converting
	// types to C throughout the passes above, so they're only complete
	// once every declaration has been lowered.
	fnPtrTypedefs := c.Reg.FnPtrTypedefs()
	c.Mod.ForwardDecls = append(fnPtrTypedefs, c.Mod.ForwardDecls...)

	return c.Mod
}

// tmpName mints a fresh, collision-free local C identifier.
func (c *Context) tmpName(prefix string) string {
	c.tmpCounter++
	return fmt.Sprintf("__btrc_%s_%d", prefix, c.tmpCounter)
}

// sortedKeys is shared by every lowering pass that walks a map table,
// so output order (and therefore diffs) is stable across runs.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lowerGlobals lowers every top-level GlobalVarDecl, in source order
// (globals may depend on earlier globals' values).
func (c *Context) lowerGlobals() {
	for _, d := range c.Analyzed.Program.Decls {
		g, ok := d.(*ast.GlobalVarDecl)
		if !ok {
			continue
		}
		ctype := c.cType(g.Type)
		if g.Initializer == nil {
			c.Mod.GlobalVars = append(c.Mod.GlobalVars, fmt.Sprintf("static %s %s;", ctype.Text, g.Name))
			continue
		}
		init := c.lowerExpr(g.Initializer)
		c.Mod.GlobalVars = append(c.Mod.GlobalVars, fmt.Sprintf("static %s %s = %s;", ctype.Text, g.Name, c.renderExpr(init)))
	}
}

// lowerFunctions emits a C prototype for every top-level function into
// RawSections (which the emitter places after struct definitions and
// before function definitions, so definition order never matters) and
// lowers every function that has a body; a declaration with
// Body == nil contributes only its prototype.
func (c *Context) lowerFunctions() {
	for _, name := range sortedKeys(c.Analyzed.Functions) {
		fn := c.Analyzed.Functions[name]
		ps := ""
		for i, p := range fn.Sig.Params {
			if i > 0 {
				ps += ", "
			}
			ps += c.cType(p.Type).Text + " " + p.Name
		}
		if ps == "" {
			ps = "void"
		}
		c.Mod.RawSections = append(c.Mod.RawSections, fmt.Sprintf("%s %s(%s);", c.cType(fn.Sig.ReturnType).Text, name, ps))
		if fn.Body == nil {
			continue
		}
		c.Mod.FunctionDefs = append(c.Mod.FunctionDefs, c.lowerFreeFunction(name, fn.Sig, fn.Body))
	}
}

func (c *Context) lowerFreeFunction(name string, sig ast.FuncSig, body *ast.Block) *ir.FunctionDef {
	params := make([]ir.Param, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = ir.Param{CType: c.cType(p.Type), Name: p.Name}
	}
	return &ir.FunctionDef{
		Name:       name,
		ReturnType: c.cType(sig.ReturnType),
		Params:     params,
		Body:       c.lowerBlockScoped(body, fieldTypesFromParams(sig.Params)),
	}
}

func fieldTypesFromParams(params []ast.Param) map[string]*ast.TypeExpr {
	env := make(map[string]*ast.TypeExpr, len(params))
	for _, p := range params {
		env[p.Name] = p.Type
	}
	return env
}
