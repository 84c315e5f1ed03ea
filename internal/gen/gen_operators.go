package gen

import (
	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
	"github.com/btrc-lang/btrc/internal/typeutil"
)

// lowerBinary lowers a binary operator application, special-casing the
// operators BTRC overloads for `string` (concatenation via +, value
// comparison via ==/!=) since C has no operator overloading and those
// forms must go through the string runtime helpers instead of raw `+`
// or pointer `==`.
func (c *Context) lowerBinary(x *ast.BinaryExpr) ir.Expr {
	left := c.lowerExpr(x.Left)
	right := c.lowerExpr(x.Right)
	leftType := c.exprType(x.Left)
	rightType := c.exprType(x.Right)
	stringOperands := typeutil.IsStringType(leftType) || typeutil.IsStringType(rightType)

	if stringOperands {
		switch x.Op {
		case "+":
			return &ir.Call{Callee: "__btrc_strcat", Args: []ir.Expr{left, right}, HelperRef: "__btrc_strcat"}
		case "==":
			return &ir.BinOp{Left: &ir.Call{Callee: "strcmp", Args: []ir.Expr{left, right}}, Op: "==", Right: &ir.Literal{Text: "0"}}
		case "!=":
			return &ir.BinOp{Left: &ir.Call{Callee: "strcmp", Args: []ir.Expr{left, right}}, Op: "!=", Right: &ir.Literal{Text: "0"}}
		}
	}

	return &ir.BinOp{Left: left, Op: x.Op, Right: right}
}

func (c *Context) lowerUnary(x *ast.UnaryExpr) ir.Expr {
	return &ir.UnaryOp{Op: x.Op, Operand: c.lowerExpr(x.Operand), Prefix: x.Prefix}
}
