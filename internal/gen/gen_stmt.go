package gen

import (
	"fmt"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
)

// thrownTypeName recovers the C type tag used to match a throw site
// against catch clauses. A thrown class instance tags itself with its
// class name directly off the NewExpr; anything else is tagged with
// the inferred C type of the thrown expression (the same type string
// catch.Type renders to via c.Reg.TypeToC), so `throw "x";` tags
// "char*" and matches `catch (string e)` the same way a generated
// instance tags itself by class name. An expression whose type can't
// be inferred falls back to "void*", matching only an untyped catch.
func (c *Context) thrownTypeName(e ast.Expr) string {
	if n, ok := e.(*ast.NewExpr); ok {
		return n.ClassName
	}
	switch e.(type) {
	case *ast.StringLit, *ast.FStringLit:
		return c.Reg.TypeToC(&ast.TypeExpr{Base: "string"})
	}
	if t := c.exprType(e); t != nil {
		return c.Reg.TypeToC(t)
	}
	return "void*"
}

func quoteC(s string) string {
	return fmt.Sprintf("%q", s)
}

// lowerBlockScoped opens a fresh scope pre-populated with initialEnv's
// names (a method/function's receiver + parameters), lowers b, and
// closes the scope. It is the entry point for any top-level callable
// body.
func (c *Context) lowerBlockScoped(b *ast.Block, initialEnv map[string]*ast.TypeExpr) *ir.Block {
	c.pushScope(initialEnv)
	defer c.popScope()
	block := c.lowerBlock(b)
	return c.withScopeRelease(block)
}

// lowerNestedBlock lowers a block that introduces its own lexical
// scope (if/while/for/switch-case bodies) without touching the
// enclosing function's declared-local tracking.
func (c *Context) lowerNestedBlock(b *ast.Block) *ir.Block {
	c.pushScope(nil)
	defer c.popScope()
	return c.lowerBlock(b)
}

func (c *Context) lowerBlock(b *ast.Block) *ir.Block {
	if b == nil {
		return &ir.Block{}
	}
	var stmts []ir.Stmt
	for _, s := range b.Stmts {
		stmts = append(stmts, c.lowerStmt(s)...)
	}
	return &ir.Block{Stmts: stmts}
}

// lowerStmt lowers one surface statement. It returns a slice because a
// few surface forms (try/catch) expand to more than one IR statement;
// for-in becomes a single IR block.
func (c *Context) lowerStmt(s ast.Stmt) []ir.Stmt {
	switch stmt := s.(type) {
	case *ast.LocalVarDecl:
		c.declareLocal(stmt.Name, stmt.Type)
		var init ir.Expr
		if stmt.Initializer != nil {
			init = c.lowerExprWithHint(stmt.Initializer, stmt.Type)
		}
		return []ir.Stmt{&ir.VarDecl{CType: c.cType(stmt.Type), Name: stmt.Name, Init: init}}

	case *ast.AssignStmt:
		return []ir.Stmt{c.lowerAssign(stmt)}

	case *ast.ReturnStmt:
		if stmt.Value == nil {
			return []ir.Stmt{&ir.Return{}}
		}
		return []ir.Stmt{&ir.Return{Value: c.lowerExpr(stmt.Value)}}

	case *ast.IfStmt:
		ifs := &ir.If{Condition: c.lowerExpr(stmt.Cond), ThenBlock: c.lowerNestedBlock(stmt.Then)}
		if stmt.Else != nil {
			ifs.ElseBlock = c.lowerNestedBlock(stmt.Else)
		}
		return []ir.Stmt{ifs}

	case *ast.WhileStmt:
		return []ir.Stmt{&ir.While{Condition: c.lowerExpr(stmt.Cond), Body: c.lowerNestedBlock(stmt.Body)}}

	case *ast.DoWhileStmt:
		return []ir.Stmt{&ir.DoWhile{Body: c.lowerNestedBlock(stmt.Body), Condition: c.lowerExpr(stmt.Cond)}}

	case *ast.ForStmt:
		return []ir.Stmt{c.lowerFor(stmt)}

	case *ast.ForInStmt:
		return []ir.Stmt{c.lowerForIn(stmt)}

	case *ast.SwitchStmt:
		return []ir.Stmt{c.lowerSwitch(stmt)}

	case *ast.ExprStmt:
		return []ir.Stmt{&ir.ExprStmt{Expr: c.lowerExpr(stmt.Expr)}}

	case *ast.BreakStmt:
		return []ir.Stmt{&ir.Break{}}

	case *ast.ContinueStmt:
		return []ir.Stmt{&ir.Continue{}}

	case *ast.ReleaseStmt:
		return []ir.Stmt{c.lowerRelease(stmt.Target)}

	case *ast.DeleteStmt:
		return []ir.Stmt{&ir.ExprStmt{Expr: &ir.Call{Callee: "free", Args: []ir.Expr{c.lowerExpr(stmt.Target)}}}}

	case *ast.ThrowStmt:
		return c.lowerThrow(stmt)

	case *ast.TryStmt:
		return c.lowerTry(stmt)

	case *ast.PreprocStmt:
		return []ir.Stmt{&ir.RawC{Text: stmt.Text}}

	case *ast.Block:
		return []ir.Stmt{c.lowerNestedBlock(stmt)}
	}
	return nil
}

func (c *Context) lowerAssign(stmt *ast.AssignStmt) ir.Stmt {
	targetType := c.exprType(stmt.Target)

	if fa, ok := stmt.Target.(*ast.FieldAccessExpr); ok {
		if objType := c.exprType(fa.Obj); objType != nil {
			if info, ok := c.Analyzed.Classes[objType.Base]; ok {
				if prop := lookupProperty(info, c.Analyzed, fa.Field); prop != nil && prop.Setter != nil {
					obj := c.lowerExpr(fa.Obj)
					value := c.lowerExprWithHint(stmt.Value, targetType)
					if stmt.Op != "=" {
						value = &ir.BinOp{Left: c.lowerPropertyGetterCall(objType.Base, fa.Field, obj), Op: stmt.Op[:len(stmt.Op)-1], Right: value}
					}
					return &ir.ExprStmt{Expr: c.lowerPropertySetterCall(objType.Base, fa.Field, obj, value)}
				}
			}
		}
	}

	// Map/Set index assignment has no C lvalue form (key lookup isn't a
	// simple array index), so it routes through the collection's put
	// function instead of an ir.Assign.
	if ix, ok := stmt.Target.(*ast.IndexExpr); ok {
		if objType := c.exprType(ix.Obj); objType != nil && (objType.Base == "Map" || objType.Base == "Set") {
			obj := c.lowerExpr(ix.Obj)
			key := c.lowerExpr(ix.Index)
			value := c.lowerExprWithHint(stmt.Value, targetType)
			if stmt.Op != "=" {
				value = &ir.BinOp{Left: c.lowerCollectionMethodCall(objType, obj, "get", []ir.Expr{key}), Op: stmt.Op[:len(stmt.Op)-1], Right: value}
			}
			return &ir.ExprStmt{Expr: c.lowerCollectionMethodCall(objType, obj, "put", []ir.Expr{key, value})}
		}
	}

	target := c.lowerExpr(stmt.Target)
	value := c.lowerExprWithHint(stmt.Value, targetType)
	if stmt.Op == "=" {
		return &ir.Assign{Target: target, Value: value}
	}
	op := stmt.Op[:len(stmt.Op)-1] // "+=" -> "+"
	return &ir.Assign{Target: target, Value: &ir.BinOp{Left: target, Op: op, Right: value}}
}

func (c *Context) lowerFor(stmt *ast.ForStmt) ir.Stmt {
	if stmt.ParallelHint {
		if out, ok := c.lowerParallelFor(stmt); ok {
			return out
		}
	}

	c.pushScope(nil)
	defer c.popScope()

	init := ""
	if stmt.Init != nil {
		init = c.renderInitClause(stmt.Init)
	}
	cond := ""
	if stmt.Cond != nil {
		cond = c.renderExpr(c.lowerExpr(stmt.Cond))
	}
	update := ""
	if stmt.Update != nil {
		update = c.renderUpdateClause(stmt.Update)
	}
	return &ir.For{Init: init, Condition: cond, Update: update, Body: c.lowerBlock(stmt.Body)}
}

// renderInitClause renders a for-loop's init clause, which the
// grammar restricts to a local var decl, assignment, or bare
// expression, directly to C text (no trailing semicolon — `ir.For`
// supplies that at emit time).
func (c *Context) renderInitClause(s ast.Stmt) string {
	switch stmt := s.(type) {
	case *ast.LocalVarDecl:
		c.declareLocal(stmt.Name, stmt.Type)
		ct := c.cType(stmt.Type)
		if stmt.Initializer == nil {
			return ct.Text + " " + stmt.Name
		}
		return ct.Text + " " + stmt.Name + " = " + c.renderExpr(c.lowerExpr(stmt.Initializer))
	case *ast.AssignStmt:
		a := c.lowerAssign(stmt).(*ir.Assign)
		return c.renderExpr(a.Target) + " = " + c.renderExpr(a.Value)
	case *ast.ExprStmt:
		return c.renderExpr(c.lowerExpr(stmt.Expr))
	}
	return ""
}

func (c *Context) renderUpdateClause(s ast.Stmt) string {
	switch stmt := s.(type) {
	case *ast.AssignStmt:
		a := c.lowerAssign(stmt).(*ir.Assign)
		return c.renderExpr(a.Target) + " = " + c.renderExpr(a.Value)
	case *ast.ExprStmt:
		return c.renderExpr(c.lowerExpr(stmt.Expr))
	}
	return ""
}

// lowerThrow lowers `throw expr;` to a call into the setjmp-based
// exception runtime (internal/helpers' trycatch category), passing
// the thrown value's C type name as a string tag for catch-clause
// matching.
func (c *Context) lowerThrow(stmt *ast.ThrowStmt) []ir.Stmt {
	value := c.lowerExpr(stmt.Value)
	typeName := c.thrownTypeName(stmt.Value)
	call := &ir.Call{
		Callee:    "__btrc_throw",
		Args:      []ir.Expr{&ir.Cast{TargetType: ir.CType{Text: "void*"}, Expr: value}, &ir.Literal{Text: quoteC(typeName)}},
		HelperRef: "__btrc_throw",
	}
	return []ir.Stmt{&ir.ExprStmt{Expr: call}}
}

// lowerTry lowers try/catch/finally to the setjmp/longjmp frame push,
// an if/else-if chain comparing the thrown type tag against each
// catch clause in order, and an unconditional finally block (spec
// §4.6/§4.7's try/catch via the trycatch runtime category). The
// comparison is a runtime strcmp, which can't legally sit in a C
// `case` label, so each clause is its own `if`, chained through
// `ElseBlock` rather than built as a switch.
func (c *Context) lowerTry(stmt *ast.TryStmt) []ir.Stmt {
	frame := c.tmpName("exc_frame")
	var out []ir.Stmt
	out = append(out,
		&ir.VarDecl{CType: ir.CType{Text: "__btrc_exc_frame"}, Name: frame},
		&ir.ExprStmt{Expr: &ir.Call{Callee: "__btrc_exc_push", Args: []ir.Expr{&ir.AddressOf{Expr: &ir.Var{Name: frame}}}, HelperRef: "__btrc_exc_frame"}},
	)

	var catchChain ir.Stmt
	for i := len(stmt.Catches) - 1; i >= 0; i-- {
		catch := stmt.Catches[i]
		c.pushScope(map[string]*ast.TypeExpr{catch.Name: catch.Type})
		body := []ir.Stmt{
			&ir.VarDecl{
				CType: c.cType(catch.Type), Name: catch.Name,
				Init: &ir.Cast{TargetType: c.cType(catch.Type), Expr: &ir.FieldAccess{Obj: &ir.Var{Name: frame}, Field: "thrown"}},
			},
		}
		body = append(body, c.lowerBlock(catch.Body).Stmts...)
		c.popScope()

		clause := &ir.If{
			Condition: &ir.RawExpr{Text: `strcmp(` + frame + `.thrown_type ? ` + frame + `.thrown_type : "", ` + quoteC(c.Reg.TypeToC(catch.Type)) + `) == 0`},
			ThenBlock: &ir.Block{Stmts: body},
		}
		if catchChain != nil {
			clause.ElseBlock = &ir.Block{Stmts: []ir.Stmt{catchChain}}
		}
		catchChain = clause
	}

	tryBody := []ir.Stmt{
		&ir.If{
			Condition: &ir.RawExpr{Text: "setjmp(" + frame + ".buf) == 0"},
			ThenBlock: c.lowerNestedBlock(stmt.Try),
		},
	}
	out = append(out, tryBody...)
	if catchChain != nil {
		out = append(out, &ir.If{Condition: &ir.FieldAccess{Obj: &ir.Var{Name: frame}, Field: "thrown_type"}, ThenBlock: &ir.Block{Stmts: []ir.Stmt{catchChain}}})
	}
	out = append(out, &ir.ExprStmt{Expr: &ir.Call{Callee: "__btrc_exc_pop", HelperRef: "__btrc_exc_frame"}})
	if stmt.Finally != nil {
		out = append(out, c.lowerNestedBlock(stmt.Finally).Stmts...)
	}
	return out
}

func (c *Context) lowerSwitch(stmt *ast.SwitchStmt) ir.Stmt {
	sw := &ir.Switch{Value: c.lowerExpr(stmt.Value)}
	for _, cs := range stmt.Cases {
		c.pushScope(nil)
		var val ir.Expr
		if cs.Value != nil {
			val = c.lowerExpr(cs.Value)
		}
		var body []ir.Stmt
		for _, s := range cs.Body {
			body = append(body, c.lowerStmt(s)...)
		}
		c.popScope()
		sw.Cases = append(sw.Cases, ir.Case{Value: val, Body: body})
	}
	return sw
}
