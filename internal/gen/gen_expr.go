package gen

import (
	"fmt"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
)

// lowerExpr is the single dispatch point every other lowering function
// in this package calls to turn a surface expression into IR. Each
// surface form either lowers directly here or delegates to the
// gen_*.go file that owns its concern (calls, collections, lambdas,
// threads, f-strings).
func (c *Context) lowerExpr(e ast.Expr) ir.Expr {
	switch x := e.(type) {
	case nil:
		return nil

	case *ast.IntLit:
		return &ir.Literal{Text: x.Raw}
	case *ast.FloatLit:
		return &ir.Literal{Text: x.Raw}
	case *ast.StringLit:
		return &ir.Literal{Text: quoteC(x.Value)}
	case *ast.CharLit:
		return &ir.Literal{Text: fmt.Sprintf("'%c'", x.Value)}
	case *ast.BoolLit:
		if x.Value {
			return &ir.Literal{Text: "true"}
		}
		return &ir.Literal{Text: "false"}
	case *ast.NullLit:
		return &ir.Literal{Text: "NULL"}

	case *ast.Ident:
		return c.lowerIdent(x.Name)
	case *ast.SelfExpr:
		return &ir.Var{Name: "self"}

	case *ast.BinaryExpr:
		return c.lowerBinary(x)
	case *ast.UnaryExpr:
		return c.lowerUnary(x)
	case *ast.NullCoalesceExpr:
		return c.lowerNullCoalesce(x)
	case *ast.TernaryExpr:
		return &ir.Ternary{Condition: c.lowerExpr(x.Cond), TrueExpr: c.lowerExpr(x.Then), FalseExpr: c.lowerExpr(x.Else)}

	case *ast.CallExpr:
		return c.lowerCall(x)
	case *ast.NewExpr:
		return c.lowerNew(x)

	case *ast.FieldAccessExpr:
		return c.lowerFieldAccess(x)
	case *ast.IndexExpr:
		return c.lowerIndexExpr(x)

	case *ast.ListLiteral:
		return c.lowerListLiteral(x)
	case *ast.MapLiteral:
		return c.lowerMapLiteral(x)
	case *ast.SetLiteral:
		return c.lowerSetLiteral(x)
	case *ast.BraceInitializer:
		return c.lowerBraceInitializer(x)
	case *ast.TupleLiteral:
		return c.lowerTupleLiteral(x)

	case *ast.CastExpr:
		return &ir.Cast{TargetType: c.cType(x.Target), Expr: c.lowerExpr(x.Value)}

	case *ast.LambdaExpr:
		return c.lowerLambda(x)
	case *ast.SpawnExpr:
		return c.lowerSpawn(x)
	case *ast.MutexExpr:
		return c.lowerMutexNew(x)

	case *ast.SizeofExpr:
		return c.lowerSizeof(x)
	case *ast.LenExpr:
		return c.lowerLen(x)
	case *ast.PrintExpr:
		return c.lowerPrint(x)
	case *ast.FStringLit:
		return c.lowerFString(x)
	}
	return &ir.RawExpr{Text: "/* unsupported expr */ 0"}
}

// lowerIdent resolves a bare name: a declared local/param shadows
// everything; failing that, inside a method body it falls through to
// an implicit `self->name` field access (spec's implicit-self field
// reference); anything else (a global, function, or enum value name)
// passes through as a plain C identifier.
func (c *Context) lowerIdent(name string) ir.Expr {
	if c.isLocal(name) {
		return &ir.Var{Name: name}
	}
	if c.currentClass != "" {
		if info, ok := c.Analyzed.Classes[c.currentClass]; ok {
			if path, ok := c.fieldPath(info, name); ok {
				return c.fieldAccessChain(&ir.Var{Name: "self"}, path, true)
			}
		}
	}
	return &ir.Var{Name: name}
}

// fieldAccessChain builds the IR field access for path (as produced
// by fieldPath — a bare field name, since fields are flattened rather
// than nested): the hop off obj uses arrowFirst (true for a pointer
// receiver). Dotted paths still split correctly if a future caller
// ever needs one.
func (c *Context) fieldAccessChain(obj ir.Expr, path string, arrowFirst bool) ir.Expr {
	parts := splitFieldPath(path)
	cur := obj
	for i, part := range parts {
		cur = &ir.FieldAccess{Obj: cur, Field: part, Arrow: i == 0 && arrowFirst}
	}
	return cur
}

func splitFieldPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	parts = append(parts, path[start:])
	return parts
}

func (c *Context) lowerNullCoalesce(x *ast.NullCoalesceExpr) ir.Expr {
	tmp := c.tmpName("coalesce")
	left := c.lowerExpr(x.Left)
	right := c.lowerExpr(x.Right)
	return &ir.StmtExpr{
		Stmts: []ir.Stmt{
			&ir.VarDecl{CType: ir.CType{Text: "__typeof__(" + c.renderExpr(left) + ")"}, Name: tmp, Init: left},
		},
		Result: &ir.Ternary{Condition: &ir.Var{Name: tmp}, TrueExpr: &ir.Var{Name: tmp}, FalseExpr: right},
	}
}

// lowerFieldAccess lowers `obj.field`, choosing `.` or `->` based on
// whether obj's static type is a heap (pointer-represented) object.
// Optional chaining (`obj?.field`) guards the access with a plain
// ternary on obj rather than dereferencing a possibly null pointer.
func (c *Context) lowerFieldAccess(x *ast.FieldAccessExpr) ir.Expr {
	obj := c.lowerExpr(x.Obj)
	objType := c.exprType(x.Obj)
	arrow := objType == nil || c.isHeapObjectType(objType)

	if objType != nil {
		if info, ok := c.Analyzed.Classes[objType.Base]; ok {
			if prop := lookupProperty(info, c.Analyzed, x.Field); prop != nil && prop.Getter != nil {
				return c.lowerPropertyGetterCall(objType.Base, x.Field, obj)
			}
		}
	}

	var access ir.Expr = &ir.FieldAccess{Obj: obj, Field: x.Field, Arrow: arrow}
	if objType != nil {
		if info, ok := c.Analyzed.Classes[objType.Base]; ok {
			if path, ok := c.fieldPath(info, x.Field); ok {
				access = c.fieldAccessChain(obj, path, arrow)
			}
		}
	}
	if !x.OptionalChain {
		return access
	}
	return &ir.Ternary{Condition: obj, TrueExpr: access, FalseExpr: &ir.Literal{Text: "NULL"}}
}

func (c *Context) lowerSizeof(x *ast.SizeofExpr) ir.Expr {
	if x.OperandType != nil {
		return &ir.Sizeof{Operand: c.cType(x.OperandType).Text}
	}
	if x.OperandExpr != nil {
		return &ir.Sizeof{Operand: c.renderExpr(c.lowerExpr(x.OperandExpr))}
	}
	return &ir.Sizeof{Operand: x.OperandText}
}
