package gen

import (
	"fmt"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
)

// lowerLambda lifts a surface lambda to a top-level static C function
// plus, when the body references names from its enclosing scope, a
// capture struct. Collection callbacks (gen_collections.go's
// fn/pred/mapFn/reduceFn params) are bare function pointers with no
// context argument, so a capturing lambda's captured values are
// stashed in a static slot the lifted function reads from rather than
// threaded through an extra parameter — adequate since BTRC has no
// concurrent re-entrant callback invocation within a single thread's
// call to a collection method.
func (c *Context) lowerLambda(x *ast.LambdaExpr) ir.Expr {
	c.lambdaCounter++
	fnName := fmt.Sprintf("__btrc_lambda_%d", c.lambdaCounter)

	free, needSelf := c.lambdaFreeVars(x)

	paramHint := c.lambdaParamHint

	irParams := make([]ir.Param, len(x.Params))
	env := make(map[string]*ast.TypeExpr, len(x.Params))
	for i, p := range x.Params {
		pt := p.Type
		if pt == nil {
			pt = paramHint
		}
		if pt == nil {
			pt = &ast.TypeExpr{Base: "int"}
		}
		irParams[i] = ir.Param{CType: c.cType(pt), Name: p.Name}
		env[p.Name] = pt
	}

	c.pushScope(env)
	retType := c.cType(x.ReturnType)
	if x.ReturnType == nil && x.ExprBody != nil {
		if t := c.exprType(x.ExprBody); t != nil {
			retType = c.cType(t)
		}
	}
	c.popScope()

	var captureType string
	if len(free) > 0 || needSelf {
		captureType = "struct " + fnName + "_capture"
		var fields []ir.StructField
		if needSelf {
			fields = append(fields, ir.StructField{CType: ir.CType{Text: "struct " + c.currentClass + "*"}, Name: "self"})
		}
		for _, name := range free {
			fields = append(fields, ir.StructField{CType: c.cType(c.lookupLocalType(name)), Name: name})
		}
		c.Mod.StructDefs = append(c.Mod.StructDefs, &ir.StructDef{Name: fnName + "_capture", Fields: fields})
		c.Mod.GlobalVars = append(c.Mod.GlobalVars, fmt.Sprintf("static %s *%s_capture;", captureType, fnName))
	}

	prevClass := c.currentClass
	if !needSelf {
		c.currentClass = ""
	}
	c.pushScope(env)
	prevTypeHint := c.typeHint
	c.typeHint = nil
	var bodyStmts []ir.Stmt
	if captureType != "" {
		if needSelf {
			bodyStmts = append(bodyStmts, &ir.VarDecl{
				CType: ir.CType{Text: "struct " + prevClass + "*"}, Name: "self",
				Init: &ir.FieldAccess{Obj: &ir.Var{Name: fnName + "_capture"}, Field: "self", Arrow: true},
			})
			c.declareLocal("self", &ast.TypeExpr{Base: prevClass})
		}
		for _, name := range free {
			t := c.lookupLocalType(name)
			bodyStmts = append(bodyStmts, &ir.VarDecl{
				CType: c.cType(t), Name: name,
				Init: &ir.FieldAccess{Obj: &ir.Var{Name: fnName + "_capture"}, Field: name, Arrow: true},
			})
			c.declareLocal(name, t)
		}
	}
	if x.Body != nil {
		bodyStmts = append(bodyStmts, c.lowerBlock(x.Body).Stmts...)
	} else {
		bodyStmts = append(bodyStmts, &ir.Return{Value: c.lowerExpr(x.ExprBody)})
	}
	c.popScope()
	c.typeHint = prevTypeHint
	c.currentClass = prevClass

	c.lambdaFns = append(c.lambdaFns, &ir.FunctionDef{
		Name:       fnName,
		ReturnType: retType,
		Params:     irParams,
		Body:       &ir.Block{Stmts: bodyStmts},
		IsStatic:   true,
	})

	if captureType == "" {
		return &ir.Var{Name: fnName}
	}

	var setup []ir.Stmt
	setup = append(setup, &ir.Assign{
		Target: &ir.Var{Name: fnName + "_capture"},
		Value:  &ir.Cast{TargetType: ir.CType{Text: captureType + "*"}, Expr: &ir.Call{Callee: "__btrc_alloc", Args: []ir.Expr{&ir.Sizeof{Operand: captureType}}, HelperRef: "__btrc_alloc"}},
	})
	if needSelf {
		setup = append(setup, &ir.Assign{
			Target: &ir.FieldAccess{Obj: &ir.Var{Name: fnName + "_capture"}, Field: "self", Arrow: true},
			Value:  &ir.Var{Name: "self"},
		})
	}
	for _, name := range free {
		setup = append(setup, &ir.Assign{
			Target: &ir.FieldAccess{Obj: &ir.Var{Name: fnName + "_capture"}, Field: name, Arrow: true},
			Value:  c.lowerIdent(name),
		})
	}
	return &ir.StmtExpr{Stmts: setup, Result: &ir.Var{Name: fnName}}
}

// lambdaFreeVars collects the names a lambda body references that are
// bound in an enclosing scope (so need capturing) rather than by the
// lambda's own params or its own local declarations, plus whether the
// body references self.
func (c *Context) lambdaFreeVars(x *ast.LambdaExpr) ([]string, bool) {
	bound := map[string]bool{}
	for _, p := range x.Params {
		bound[p.Name] = true
	}
	s := &lambdaScan{c: c, bound: bound, free: map[string]bool{}}
	if x.Body != nil {
		s.walkBlock(x.Body)
	} else {
		s.walkExpr(x.ExprBody)
	}
	names := make([]string, 0, len(s.free))
	for n := range s.free {
		names = append(names, n)
	}
	return sortedStrings(names), s.needSelf
}

func sortedStrings(ss []string) []string {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
	return ss
}

type lambdaScan struct {
	c        *Context
	bound    map[string]bool
	free     map[string]bool
	needSelf bool
}

func (s *lambdaScan) clone() map[string]bool {
	m := make(map[string]bool, len(s.bound))
	for k := range s.bound {
		m[k] = true
	}
	return m
}

func (s *lambdaScan) withScope(f func()) {
	saved := s.bound
	s.bound = s.clone()
	f()
	s.bound = saved
}

func (s *lambdaScan) walkBlock(b *ast.Block) {
	if b == nil {
		return
	}
	s.withScope(func() {
		for _, st := range b.Stmts {
			s.walkStmt(st)
		}
	})
}

func (s *lambdaScan) walkStmt(st ast.Stmt) {
	switch x := st.(type) {
	case *ast.LocalVarDecl:
		s.walkExpr(x.Initializer)
		s.bound[x.Name] = true
	case *ast.AssignStmt:
		s.walkExpr(x.Target)
		s.walkExpr(x.Value)
	case *ast.ReturnStmt:
		s.walkExpr(x.Value)
	case *ast.IfStmt:
		s.walkExpr(x.Cond)
		s.walkBlock(x.Then)
		s.walkBlock(x.Else)
	case *ast.WhileStmt:
		s.walkExpr(x.Cond)
		s.walkBlock(x.Body)
	case *ast.DoWhileStmt:
		s.walkBlock(x.Body)
		s.walkExpr(x.Cond)
	case *ast.ForStmt:
		s.withScope(func() {
			if x.Init != nil {
				s.walkStmt(x.Init)
			}
			s.walkExpr(x.Cond)
			if x.Update != nil {
				s.walkStmt(x.Update)
			}
			s.walkBlock(x.Body)
		})
	case *ast.ForInStmt:
		s.walkExpr(x.Iterable)
		s.withScope(func() {
			s.bound[x.VarName] = true
			if x.KeyName != "" {
				s.bound[x.KeyName] = true
			}
			s.walkBlock(x.Body)
		})
	case *ast.SwitchStmt:
		s.walkExpr(x.Value)
		for _, cs := range x.Cases {
			s.walkExpr(cs.Value)
			s.withScope(func() {
				for _, inner := range cs.Body {
					s.walkStmt(inner)
				}
			})
		}
	case *ast.ExprStmt:
		s.walkExpr(x.Expr)
	case *ast.ReleaseStmt:
		s.walkExpr(x.Target)
	case *ast.DeleteStmt:
		s.walkExpr(x.Target)
	case *ast.ThrowStmt:
		s.walkExpr(x.Value)
	case *ast.TryStmt:
		s.walkBlock(x.Try)
		for _, cc := range x.Catches {
			s.withScope(func() {
				s.bound[cc.Name] = true
				s.walkBlock(cc.Body)
			})
		}
		s.walkBlock(x.Finally)
	}
}

func (s *lambdaScan) walkExpr(e ast.Expr) {
	switch x := e.(type) {
	case nil:
		return
	case *ast.Ident:
		if !s.bound[x.Name] && s.c.isLocal(x.Name) {
			s.free[x.Name] = true
		}
	case *ast.SelfExpr:
		s.needSelf = true
	case *ast.BinaryExpr:
		s.walkExpr(x.Left)
		s.walkExpr(x.Right)
	case *ast.UnaryExpr:
		s.walkExpr(x.Operand)
	case *ast.NullCoalesceExpr:
		s.walkExpr(x.Left)
		s.walkExpr(x.Right)
	case *ast.TernaryExpr:
		s.walkExpr(x.Cond)
		s.walkExpr(x.Then)
		s.walkExpr(x.Else)
	case *ast.CallExpr:
		s.walkExpr(x.Callee)
		for _, a := range x.Args {
			s.walkExpr(a)
		}
	case *ast.NewExpr:
		for _, a := range x.Args {
			s.walkExpr(a)
		}
	case *ast.FieldAccessExpr:
		s.walkExpr(x.Obj)
	case *ast.IndexExpr:
		s.walkExpr(x.Obj)
		s.walkExpr(x.Index)
	case *ast.ListLiteral:
		for _, el := range x.Elements {
			s.walkExpr(el)
		}
	case *ast.MapLiteral:
		for _, ent := range x.Entries {
			s.walkExpr(ent.Key)
			s.walkExpr(ent.Value)
		}
	case *ast.SetLiteral:
		for _, el := range x.Elements {
			s.walkExpr(el)
		}
	case *ast.BraceInitializer:
		for _, el := range x.Elements {
			s.walkExpr(el)
		}
	case *ast.TupleLiteral:
		for _, el := range x.Elements {
			s.walkExpr(el)
		}
	case *ast.CastExpr:
		s.walkExpr(x.Value)
	case *ast.LambdaExpr:
		saved := s.bound
		s.bound = s.clone()
		for _, p := range x.Params {
			s.bound[p.Name] = true
		}
		if x.Body != nil {
			s.walkBlock(x.Body)
		} else {
			s.walkExpr(x.ExprBody)
		}
		s.bound = saved
	case *ast.SpawnExpr:
		s.walkExpr(x.Call)
	case *ast.MutexExpr:
		s.walkExpr(x.Init)
	case *ast.SizeofExpr:
		s.walkExpr(x.OperandExpr)
	case *ast.LenExpr:
		s.walkExpr(x.Operand)
	case *ast.PrintExpr:
		for _, a := range x.Args {
			s.walkExpr(a)
		}
	case *ast.FStringLit:
		for _, p := range x.Parts {
			s.walkExpr(p.Expr)
		}
	}
}
