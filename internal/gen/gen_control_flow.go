package gen

import (
	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/ir"
)

// lowerForIn expands `for x in xs` / `for k, v in m` into an index-
// based C for loop over the collection's backing storage, since BTRC's
// List/Map/Set have no separate iterator type (spec's iteration model
// walks the same array/open-addressing table the collection methods
// use directly).
func (c *Context) lowerForIn(stmt *ast.ForInStmt) ir.Stmt {
	iterType := c.exprType(stmt.Iterable)
	iterable := c.lowerExpr(stmt.Iterable)

	if iterType == nil {
		return c.lowerForInList(stmt, iterable, &ast.TypeExpr{Base: "int"})
	}

	switch iterType.Base {
	case "Map":
		return c.lowerForInMap(stmt, iterable, iterType)
	case "Set":
		return c.lowerForInSet(stmt, iterable, iterType)
	default:
		elemType := &ast.TypeExpr{Base: "int"}
		if len(iterType.Args) > 0 {
			elemType = iterType.Args[0]
		}
		return c.lowerForInList(stmt, iterable, elemType)
	}
}

func (c *Context) lowerForInList(stmt *ast.ForInStmt, iterable ir.Expr, elemType *ast.TypeExpr) ir.Stmt {
	idx := c.tmpName("i")
	src := c.tmpName("src")

	c.pushScope(map[string]*ast.TypeExpr{stmt.VarName: elemType})
	body := []ir.Stmt{
		&ir.VarDecl{
			CType: c.cType(elemType), Name: stmt.VarName,
			Init: &ir.Index{Obj: &ir.FieldAccess{Obj: &ir.Var{Name: src}, Field: "data", Arrow: true}, Index: &ir.Var{Name: idx}},
		},
	}
	body = append(body, c.lowerBlock(stmt.Body).Stmts...)
	c.popScope()

	return &ir.Block{Stmts: []ir.Stmt{
		&ir.VarDecl{CType: ir.CType{Text: "__typeof__(" + c.renderExpr(iterable) + ")"}, Name: src, Init: iterable},
		&ir.For{
			Init:      "int " + idx + " = 0",
			Condition: idx + " < " + src + "->len",
			Update:    idx + "++",
			Body:      &ir.Block{Stmts: body},
		},
	}}
}

func (c *Context) lowerForInMap(stmt *ast.ForInStmt, iterable ir.Expr, mapType *ast.TypeExpr) ir.Stmt {
	idx := c.tmpName("i")
	src := c.tmpName("src")
	keyType := mapType.Args[0]
	valType := mapType.Args[1]

	keyName := stmt.KeyName
	valName := stmt.VarName
	if keyName == "" {
		keyName = c.tmpName("k")
	}

	env := map[string]*ast.TypeExpr{keyName: keyType, valName: valType}
	c.pushScope(env)
	body := []ir.Stmt{
		&ir.VarDecl{CType: c.cType(keyType), Name: keyName, Init: &ir.Index{Obj: &ir.FieldAccess{Obj: &ir.Var{Name: src}, Field: "keys", Arrow: true}, Index: &ir.Var{Name: idx}}},
	}
	if stmt.KeyName != "" {
		body = append(body, &ir.VarDecl{CType: c.cType(valType), Name: valName, Init: &ir.Index{Obj: &ir.FieldAccess{Obj: &ir.Var{Name: src}, Field: "values", Arrow: true}, Index: &ir.Var{Name: idx}}})
	}
	body = append(body, c.lowerBlock(stmt.Body).Stmts...)
	c.popScope()

	guarded := &ir.If{
		Condition: &ir.Index{Obj: &ir.FieldAccess{Obj: &ir.Var{Name: src}, Field: "occupied", Arrow: true}, Index: &ir.Var{Name: idx}},
		ThenBlock: &ir.Block{Stmts: body},
	}
	return &ir.Block{Stmts: []ir.Stmt{
		&ir.VarDecl{CType: ir.CType{Text: "__typeof__(" + c.renderExpr(iterable) + ")"}, Name: src, Init: iterable},
		&ir.For{
			Init:      "int " + idx + " = 0",
			Condition: idx + " < " + src + "->cap",
			Update:    idx + "++",
			Body:      &ir.Block{Stmts: []ir.Stmt{guarded}},
		},
	}}
}

func (c *Context) lowerForInSet(stmt *ast.ForInStmt, iterable ir.Expr, setType *ast.TypeExpr) ir.Stmt {
	idx := c.tmpName("i")
	src := c.tmpName("src")
	elemType := &ast.TypeExpr{Base: "int"}
	if len(setType.Args) > 0 {
		elemType = setType.Args[0]
	}

	c.pushScope(map[string]*ast.TypeExpr{stmt.VarName: elemType})
	body := []ir.Stmt{
		&ir.VarDecl{CType: c.cType(elemType), Name: stmt.VarName, Init: &ir.Index{Obj: &ir.FieldAccess{Obj: &ir.Var{Name: src}, Field: "keys", Arrow: true}, Index: &ir.Var{Name: idx}}},
	}
	body = append(body, c.lowerBlock(stmt.Body).Stmts...)
	c.popScope()

	guarded := &ir.If{
		Condition: &ir.Index{Obj: &ir.FieldAccess{Obj: &ir.Var{Name: src}, Field: "occupied", Arrow: true}, Index: &ir.Var{Name: idx}},
		ThenBlock: &ir.Block{Stmts: body},
	}
	return &ir.Block{Stmts: []ir.Stmt{
		&ir.VarDecl{CType: ir.CType{Text: "__typeof__(" + c.renderExpr(iterable) + ")"}, Name: src, Init: iterable},
		&ir.For{
			Init:      "int " + idx + " = 0",
			Condition: idx + " < " + src + "->cap",
			Update:    idx + "++",
			Body:      &ir.Block{Stmts: []ir.Stmt{guarded}},
		},
	}}
}
