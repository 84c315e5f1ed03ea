package gen

import (
	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/emit"
	"github.com/btrc-lang/btrc/internal/ir"
	"github.com/btrc-lang/btrc/internal/typeutil"
)

// renderExpr stringifies an already-lowered IR expression. Used
// where gen needs pre-rendered C text instead of a nested Expr node
// (global initializers, for-loop clauses, `__typeof__`/`sizeof`
// operands, aggregate and tuple initializers, f-string fragments).
func (c *Context) renderExpr(e ir.Expr) string {
	return emit.Expr(e)
}

var primitiveValueBases = map[string]bool{
	"int": true, "float": true, "double": true, "bool": true, "char": true,
	"void": true, "long": true, "short": true, "byte": true, "uint": true,
	"size_t": true,
}

// isHeapObjectType reports whether t is an ARC-managed reference type:
// a user class instance or a builtin List/Map/Set collection. Plain
// structs, enums, rich enums, typedefs, and tuples are value types in
// generated C (spec §3/§4.4); only these get an implicit trailing `*`
// from cType, since BTRC surface syntax never spells out the pointer
// for a class reference the way it does for raw C interop pointers.
func (c *Context) isHeapObjectType(t *ast.TypeExpr) bool {
	if t == nil || t.PointerDepth > 0 || t.IsArray {
		return false
	}
	if ast.IsTypeParam(t.Base) || t.Base == "string" || t.Base == "__fn_ptr" {
		return false
	}
	if primitiveValueBases[t.Base] && len(t.Args) == 0 {
		return false
	}
	if typeutil.IsCollectionType(t) {
		return true
	}
	_, isClass := c.Analyzed.Classes[t.Base]
	return isClass
}

// exprType is a best-effort static type lookup for an already-resolved
// expression, used throughout gen wherever a lowering needs an
// operand's type (collection dispatch, field access, heap-vs-value
// decisions, ARC release). It handles literals, names, operators,
// field access, indexing, `new`, casts, ternaries and calls, and
// returns nil when no type can be inferred.
func (c *Context) exprType(e ast.Expr) *ast.TypeExpr {
	switch x := e.(type) {
	case *ast.Ident:
		if t := c.lookupLocalType(x.Name); t != nil {
			return t
		}
		if c.currentClass != "" {
			if info, ok := c.Analyzed.Classes[c.currentClass]; ok {
				if f, ok := info.Fields[x.Name]; ok {
					return f.Type
				}
			}
		}
		return nil
	case *ast.SelfExpr:
		return &ast.TypeExpr{Base: c.currentClass}
	case *ast.FieldAccessExpr:
		objType := c.exprType(x.Obj)
		if objType == nil {
			return nil
		}
		info, ok := c.Analyzed.Classes[objType.Base]
		for ok {
			if f, ok := info.Fields[x.Field]; ok {
				return f.Type
			}
			if p, ok2 := info.Properties[x.Field]; ok2 {
				return p.Type
			}
			info, ok = c.Analyzed.Classes[info.Parent]
		}
		return nil
	case *ast.NewExpr:
		if len(x.TypeArgs) > 0 {
			return &ast.TypeExpr{Base: x.ClassName, Args: x.TypeArgs}
		}
		return &ast.TypeExpr{Base: x.ClassName}
	case *ast.IndexExpr:
		objType := c.exprType(x.Obj)
		if objType == nil || len(objType.Args) == 0 {
			return nil
		}
		if objType.Base == "Map" && len(objType.Args) > 1 {
			return objType.Args[1]
		}
		return objType.Args[0]
	case *ast.CastExpr:
		return x.Target
	case *ast.TernaryExpr:
		if t := c.exprType(x.Then); t != nil {
			return t
		}
		return c.exprType(x.Else)
	case *ast.CallExpr:
		if fa, ok := x.Callee.(*ast.FieldAccessExpr); ok {
			objType := c.exprType(fa.Obj)
			if objType != nil {
				if info, ok := c.Analyzed.Classes[objType.Base]; ok {
					if m := lookupMethod(info, c.Analyzed, fa.Field); m != nil {
						return m.Sig.ReturnType
					}
				}
			}
			return nil
		}
		if id, ok := x.Callee.(*ast.Ident); ok {
			if fn, ok := c.Analyzed.Functions[id.Name]; ok {
				return fn.Sig.ReturnType
			}
		}
		return nil
	default:
		return nil
	}
}

// cType is the single place every other gen_*.go file asks for a C
// type string, kept as its own file per the original generator's file
// split even though most of the work delegates to internal/typeutil:
// a future type-lowering change (e.g. const-correctness tracking)
// only has to touch this file.
func (c *Context) cType(t *ast.TypeExpr) ir.CType {
	text := c.Reg.TypeToC(t)
	if c.isHeapObjectType(t) {
		text += "*"
	}
	return ir.CType{Text: text}
}
