package gen

import (
	"strings"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
	"github.com/btrc-lang/btrc/internal/typeutil"
)

// knownStringReturningMethods is a fallback consulted only when static
// type inference (exprType) can't determine an interpolated/printed
// expression's type at all — a heuristic, not a semantic guarantee,
// per the open question in the design notes this codebase carries
// forward rather than silently resolving.
var knownStringReturningMethods = map[string]bool{
	"toString": true, "join": true, "substring": true, "trim": true,
	"toUpperCase": true, "toLowerCase": true, "repeat": true, "format": true,
}

// looksLikeStringReturning applies knownStringReturningMethods to a
// call expression's method/function name.
func looksLikeStringReturning(e ast.Expr) bool {
	call, ok := e.(*ast.CallExpr)
	if !ok {
		return false
	}
	switch callee := call.Callee.(type) {
	case *ast.FieldAccessExpr:
		return knownStringReturningMethods[callee.Field]
	case *ast.Ident:
		return knownStringReturningMethods[callee.Name]
	}
	return false
}

// lowerFString expands an f-string into a left fold of __btrc_strcat
// calls over its parts: literal runs pass through as quoted C string
// literals, string-typed interpolations pass through as-is, bool gets
// __btrc_fmt_bool, and everything else is snprintf'd into a small
// stack buffer first (the statement-expression wrapper only appears
// when at least one part needs that buffer).
func (c *Context) lowerFString(x *ast.FStringLit) ir.Expr {
	var stmts []ir.Stmt
	var pieces []ir.Expr

	for _, part := range x.Parts {
		if part.Expr == nil {
			pieces = append(pieces, &ir.Literal{Text: quoteC(part.Literal)})
			continue
		}
		t := c.exprType(part.Expr)
		val := c.lowerExpr(part.Expr)
		switch {
		case t != nil && t.Base == "bool":
			pieces = append(pieces, &ir.Call{Callee: "__btrc_fmt_bool", Args: []ir.Expr{val}, HelperRef: "__btrc_fmt_bool"})
		case t != nil && typeutil.IsStringType(t):
			pieces = append(pieces, val)
		case t == nil && looksLikeStringReturning(part.Expr):
			pieces = append(pieces, val)
		default:
			buf := c.tmpName("fstr_buf")
			stmts = append(stmts, &ir.RawC{
				Text: "    char " + buf + "[64];\n    snprintf(" + buf + ", sizeof(" + buf + "), \"" +
					typeutil.FormatSpecForType(t) + "\", " + c.renderExpr(val) + ");\n",
			})
			pieces = append(pieces, &ir.Var{Name: buf})
		}
	}

	var result ir.Expr = &ir.Literal{Text: `""`}
	for _, p := range pieces {
		result = &ir.Call{Callee: "__btrc_strcat", Args: []ir.Expr{result, p}, HelperRef: "__btrc_strcat"}
	}
	if len(stmts) == 0 {
		return result
	}
	return &ir.StmtExpr{Stmts: stmts, Result: result}
}

// lowerPrint lowers `print(args...)` to a single printf call: each
// arg contributes a format spec (typeutil.FormatSpecForType, with
// bool routed through __btrc_fmt_bool since printf has no native bool
// conversion), space-joined, newline-terminated.
func (c *Context) lowerPrint(x *ast.PrintExpr) ir.Expr {
	specs := make([]string, len(x.Args))
	args := make([]ir.Expr, len(x.Args))
	for i, a := range x.Args {
		t := c.exprType(a)
		val := c.lowerExpr(a)
		if t != nil && t.Base == "bool" {
			specs[i] = "%s"
			args[i] = &ir.Call{Callee: "__btrc_fmt_bool", Args: []ir.Expr{val}, HelperRef: "__btrc_fmt_bool"}
			continue
		}
		if t == nil && looksLikeStringReturning(a) {
			specs[i] = "%s"
			args[i] = val
			continue
		}
		specs[i] = typeutil.FormatSpecForType(t)
		args[i] = val
	}
	format := strings.Join(specs, " ") + `\n`
	callArgs := append([]ir.Expr{&ir.Literal{Text: `"` + format + `"`}}, args...)
	return &ir.Call{Callee: "printf", Args: callArgs}
}
