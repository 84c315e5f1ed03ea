package gen

import (
	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
	"github.com/btrc-lang/btrc/internal/typeutil"
)

// lowerCall lowers a call expression, dispatching on the callee's
// surface shape: a bare name is a free function (or a local variable
// holding a function pointer/lambda), a bare class name is sugar for
// `new ClassName(args)` (`B()` is a constructor call exactly like
// `new B()`, just without the keyword), a field access is a method
// call (routed to the collection runtime or to class method
// dispatch), and anything else is assumed to already evaluate to a
// callable C expression.
func (c *Context) lowerCall(x *ast.CallExpr) ir.Expr {
	switch callee := x.Callee.(type) {
	case *ast.Ident:
		if c.isLocal(callee.Name) {
			return &ir.Call{Callee: callee.Name, Args: c.lowerArgs(x.Args)}
		}
		if fn, ok := c.Analyzed.Functions[callee.Name]; ok {
			return &ir.Call{Callee: callee.Name, Args: c.lowerArgsWithDefaults(x.Args, fn.Sig.Params)}
		}
		if info, ok := c.Analyzed.Classes[callee.Name]; ok {
			var params []ast.Param
			if info.Ctor != nil {
				params = info.Ctor.Sig.Params
			}
			return &ir.Call{Callee: callee.Name + "_new", Args: c.lowerArgsWithDefaults(x.Args, params)}
		}
		return &ir.Call{Callee: callee.Name, Args: c.lowerArgs(x.Args)}

	case *ast.FieldAccessExpr:
		return c.lowerMethodCall(callee, x.Args)

	default:
		return &ir.Call{Callee: c.renderExpr(c.lowerExpr(callee)), Args: c.lowerArgs(x.Args)}
	}
}

// lowerMethodCall lowers `obj.method(args)`, routing builtin
// List/Map/Set receivers to the collection runtime and class-typed
// receivers to static-type method dispatch (no vtable).
func (c *Context) lowerMethodCall(fa *ast.FieldAccessExpr, argExprs []ast.Expr) ir.Expr {
	if ident, ok := fa.Obj.(*ast.Ident); ok && !c.isLocal(ident.Name) {
		if info, ok := c.Analyzed.Classes[ident.Name]; ok {
			var params []ast.Param
			if m := lookupMethod(info, c.Analyzed, fa.Field); m != nil {
				params = m.Sig.Params
			}
			return &ir.Call{Callee: ident.Name + "_" + fa.Field, Args: c.lowerArgsWithDefaults(argExprs, params)}
		}
	}

	objType := c.exprType(fa.Obj)
	obj := c.lowerExpr(fa.Obj)

	if objType != nil && typeutil.IsCollectionType(objType) {
		return c.lowerCollectionMethodCall(objType, obj, fa.Field, c.lowerCollectionArgs(objType, argExprs))
	}
	if objType != nil {
		if info, ok := c.Analyzed.Classes[objType.Base]; ok {
			var params []ast.Param
			if m := lookupMethod(info, c.Analyzed, fa.Field); m != nil {
				params = m.Sig.Params
			}
			return c.lowerClassMethodCall(info, objType, obj, fa.Field, c.lowerArgsWithDefaults(argExprs, params))
		}
	}
	return &ir.Call{Callee: fa.Field, Args: append([]ir.Expr{obj}, c.lowerArgs(argExprs)...)}
}

// lowerCollectionArgs lowers a collection method call's arguments with
// lambdaParamHint set to the receiver's element type, so a bare arrow
// lambda passed as a filter/map/reduce/forEach callback (whose surface
// syntax carries no parameter types) gets the right C parameter type
// instead of defaulting to int.
func (c *Context) lowerCollectionArgs(objType *ast.TypeExpr, args []ast.Expr) []ir.Expr {
	if len(objType.Args) == 0 {
		return c.lowerArgs(args)
	}
	elemType := objType.Args[len(objType.Args)-1]
	prev := c.lambdaParamHint
	c.lambdaParamHint = elemType
	defer func() { c.lambdaParamHint = prev }()
	return c.lowerArgs(args)
}

func (c *Context) lowerArgs(args []ast.Expr) []ir.Expr {
	out := make([]ir.Expr, len(args))
	for i, a := range args {
		out[i] = c.lowerExpr(a)
	}
	return out
}

// lowerArgsWithDefaults fills any trailing arguments the call omits
// from the callee's declared default-argument expressions (spec
// allows calls to elide trailing parameters that declare a default).
func (c *Context) lowerArgsWithDefaults(args []ast.Expr, params []ast.Param) []ir.Expr {
	if len(params) == 0 {
		return c.lowerArgs(args)
	}
	out := make([]ir.Expr, len(params))
	for i, p := range params {
		switch {
		case i < len(args):
			out[i] = c.lowerExprWithHint(args[i], p.Type)
		case p.Default != nil:
			out[i] = c.lowerExpr(p.Default)
		default:
			out[i] = &ir.Literal{Text: "0"}
		}
	}
	return out
}

// lowerNew lowers `new ClassName(args)` / `new ClassName<T>(args)` to
// a call into the class's synthesized `_new` constructor wrapper
// (allocate, run field initializers and the user constructor body,
// set the initial refcount — gen_class.go owns that function's body).
func (c *Context) lowerNew(x *ast.NewExpr) ir.Expr {
	mangled := x.ClassName
	if len(x.TypeArgs) > 0 {
		mangled = typeutil.MangleGenericType(x.ClassName, x.TypeArgs)
	}
	var params []ast.Param
	if info, ok := c.Analyzed.Classes[x.ClassName]; ok && info.Ctor != nil {
		params = info.Ctor.Sig.Params
	}
	return &ir.Call{Callee: mangled + "_new", Args: c.lowerArgsWithDefaults(x.Args, params)}
}
