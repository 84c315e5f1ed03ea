// Package emit renders an optimized internal/ir.Module as C11 source
// text. It is a mechanical tree walk: all lowering decisions (ARC,
// generics, control-flow expansion) already happened in internal/gen;
// this package only has to print what it's handed correctly indented.
package emit

import (
	"fmt"
	"strings"

	"github.com/btrc-lang/btrc/internal/ir"
)

// Emitter accumulates C source text for one translation unit.
type Emitter struct {
	out    strings.Builder
	indent int
}

// Module renders a full IR module to a single C source string.
func Module(m *ir.Module) string {
	e := &Emitter{}
	e.writeModule(m)
	return e.out.String()
}

// Expr renders a single IR expression to inline C text. internal/gen
// uses this to pre-render plain-text fragments (for-loop clauses,
// global-variable initializers) that internal/ir's For/GlobalVars
// fields store as strings rather than as a nested Expr.
func Expr(x ir.Expr) string {
	e := &Emitter{}
	return e.expr(x)
}

func (e *Emitter) line(format string, args ...interface{}) {
	e.out.WriteString(strings.Repeat("    ", e.indent))
	fmt.Fprintf(&e.out, format, args...)
	e.out.WriteByte('\n')
}

func (e *Emitter) raw(text string) {
	e.out.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		e.out.WriteByte('\n')
	}
}

func (e *Emitter) writeModule(m *ir.Module) {
	for _, inc := range m.Includes {
		e.line("#include <%s>", inc)
	}
	if len(m.Includes) > 0 {
		e.out.WriteByte('\n')
	}

	for _, fd := range m.ForwardDecls {
		e.raw(fd)
	}
	if len(m.ForwardDecls) > 0 {
		e.out.WriteByte('\n')
	}

	for _, sd := range m.StructDefs {
		e.writeStructDef(sd)
		e.out.WriteByte('\n')
	}

	for _, g := range m.GlobalVars {
		e.raw(g)
	}
	if len(m.GlobalVars) > 0 {
		e.out.WriteByte('\n')
	}

	for _, h := range m.HelperDecls {
		e.raw(h.CSource)
		e.out.WriteByte('\n')
	}

	for _, section := range m.RawSections {
		e.raw(section)
		e.out.WriteByte('\n')
	}

	for _, fn := range m.FunctionDefs {
		e.writeFunctionDef(fn)
		e.out.WriteByte('\n')
	}
}

func (e *Emitter) writeStructDef(sd *ir.StructDef) {
	e.line("typedef struct %s {", sd.Name)
	e.indent++
	for _, f := range sd.Fields {
		e.line("%s %s;", f.CType.String(), f.Name)
	}
	e.indent--
	e.line("} %s;", sd.Name)
}

func (e *Emitter) writeFunctionDef(fn *ir.FunctionDef) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.CType.String() + " " + p.Name
	}
	paramsStr := "void"
	if len(params) > 0 {
		paramsStr = strings.Join(params, ", ")
	}
	static := ""
	if fn.IsStatic {
		static = "static "
	}
	e.line("%s%s %s(%s) {", static, fn.ReturnType.String(), fn.Name, paramsStr)
	e.indent++
	if fn.Body != nil {
		e.writeStmts(fn.Body.Stmts)
	}
	e.indent--
	e.line("}")
}

func (e *Emitter) writeStmts(stmts []ir.Stmt) {
	for _, s := range stmts {
		e.writeStmt(s)
	}
}

// cond renders an if/while condition without the outer parentheses
// expr adds around a BinOp, since the statement supplies its own.
func (e *Emitter) cond(x ir.Expr) string {
	if b, ok := x.(*ir.BinOp); ok {
		return fmt.Sprintf("%s %s %s", e.expr(b.Left), b.Op, e.expr(b.Right))
	}
	return e.expr(x)
}

func (e *Emitter) writeStmt(stmt ir.Stmt) {
	switch s := stmt.(type) {
	case *ir.VarDecl:
		if s.Init != nil {
			e.line("%s %s = %s;", s.CType.String(), s.Name, e.expr(s.Init))
		} else {
			e.line("%s %s;", s.CType.String(), s.Name)
		}
	case *ir.Assign:
		e.line("%s = %s;", e.expr(s.Target), e.expr(s.Value))
	case *ir.Return:
		if s.Value != nil {
			e.line("return %s;", e.expr(s.Value))
		} else {
			e.line("return;")
		}
	case *ir.If:
		e.line("if (%s) {", e.cond(s.Condition))
		e.indent++
		if s.ThenBlock != nil {
			e.writeStmts(s.ThenBlock.Stmts)
		}
		e.indent--
		if s.ElseBlock != nil {
			e.line("} else {")
			e.indent++
			e.writeStmts(s.ElseBlock.Stmts)
			e.indent--
		}
		e.line("}")
	case *ir.While:
		e.line("while (%s) {", e.cond(s.Condition))
		e.indent++
		if s.Body != nil {
			e.writeStmts(s.Body.Stmts)
		}
		e.indent--
		e.line("}")
	case *ir.DoWhile:
		e.line("do {")
		e.indent++
		if s.Body != nil {
			e.writeStmts(s.Body.Stmts)
		}
		e.indent--
		e.line("} while (%s);", e.cond(s.Condition))
	case *ir.For:
		e.line("for (%s; %s; %s) {", s.Init, s.Condition, s.Update)
		e.indent++
		if s.Body != nil {
			e.writeStmts(s.Body.Stmts)
		}
		e.indent--
		e.line("}")
	case *ir.Switch:
		e.line("switch (%s) {", e.expr(s.Value))
		e.indent++
		for _, c := range s.Cases {
			if c.Value != nil {
				e.line("case %s: {", e.expr(c.Value))
			} else {
				e.line("default: {")
			}
			e.indent++
			e.writeStmts(c.Body)
			e.line("break;")
			e.indent--
			e.line("}")
		}
		e.indent--
		e.line("}")
	case *ir.ExprStmt:
		e.line("%s;", e.expr(s.Expr))
	case *ir.RawC:
		e.raw(s.Text)
	case *ir.Break:
		e.line("break;")
	case *ir.Continue:
		e.line("continue;")
	}
}

// expr renders an expression to inline C text. Statement-expressions
// need to render nested statements at the current indent depth, so
// this is a method on Emitter rather than a free function, even
// though most cases are pure string composition.
func (e *Emitter) expr(expr ir.Expr) string {
	switch x := expr.(type) {
	case *ir.Literal:
		return x.Text
	case *ir.Var:
		return x.Name
	case *ir.BinOp:
		return fmt.Sprintf("(%s %s %s)", e.expr(x.Left), x.Op, e.expr(x.Right))
	case *ir.UnaryOp:
		if x.Prefix {
			return fmt.Sprintf("(%s%s)", x.Op, e.expr(x.Operand))
		}
		return fmt.Sprintf("(%s%s)", e.expr(x.Operand), x.Op)
	case *ir.Call:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = e.expr(a)
		}
		return fmt.Sprintf("%s(%s)", x.Callee, strings.Join(args, ", "))
	case *ir.FieldAccess:
		op := "."
		if x.Arrow {
			op = "->"
		}
		return fmt.Sprintf("%s%s%s", e.expr(x.Obj), op, x.Field)
	case *ir.Cast:
		return fmt.Sprintf("(%s)(%s)", x.TargetType.String(), e.expr(x.Expr))
	case *ir.Ternary:
		return fmt.Sprintf("(%s ? %s : %s)", e.expr(x.Condition), e.expr(x.TrueExpr), e.expr(x.FalseExpr))
	case *ir.Sizeof:
		return fmt.Sprintf("sizeof(%s)", x.Operand)
	case *ir.Index:
		return fmt.Sprintf("%s[%s]", e.expr(x.Obj), e.expr(x.Index))
	case *ir.AddressOf:
		return fmt.Sprintf("(&%s)", e.expr(x.Expr))
	case *ir.Deref:
		return fmt.Sprintf("(*%s)", e.expr(x.Expr))
	case *ir.RawExpr:
		return x.Text
	case *ir.StmtExpr:
		return e.stmtExpr(x)
	case *ir.SpawnThread:
		capture := "NULL"
		if x.CaptureArg != nil {
			capture = e.expr(x.CaptureArg)
		}
		return fmt.Sprintf("__btrc_thread_spawn(%s, %s)", x.FnPtr, capture)
	}
	return ""
}

// stmtExpr renders a GCC statement expression `({ ... })` (spec
// §4.7): statements at one indent level deeper than the current
// expression context, then the trailing result expression with no
// semicolon.
func (e *Emitter) stmtExpr(x *ir.StmtExpr) string {
	inner := &Emitter{indent: e.indent + 1}
	inner.writeStmts(x.Stmts)
	rendered := inner.out.String()

	result := ""
	if x.Result != nil {
		result = inner.expr(x.Result)
	}
	return fmt.Sprintf("({\n%s%s%s;\n%s})", rendered, strings.Repeat("    ", e.indent+1), result, strings.Repeat("    ", e.indent))
}
