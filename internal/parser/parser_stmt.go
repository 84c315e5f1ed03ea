package parser

import (
	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/lexer"
)

func (p *Parser) parseBlock() (*ast.Block, error) {
	tok, err := p.expect(lexer.LBRACE, "block")
	if err != nil {
		return nil, err
	}
	b := &ast.Block{}
	b.Pos = p.pos2(tok)
	for !p.at(lexer.RBRACE) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
	}
	if _, err := p.expect(lexer.RBRACE, "block"); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur().Type {
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.RETURN:
		return p.parseReturnStmt()
	case lexer.IF:
		return p.parseIfStmt()
	case lexer.WHILE:
		return p.parseWhileStmt()
	case lexer.DO:
		return p.parseDoWhileStmt()
	case lexer.FOR:
		return p.parseForStmt()
	case lexer.SWITCH:
		return p.parseSwitchStmt()
	case lexer.BREAK:
		tok := p.advance()
		if _, err := p.expect(lexer.SEMI, "break"); err != nil {
			return nil, err
		}
		s := &ast.BreakStmt{}
		s.Pos = p.pos2(tok)
		return s, nil
	case lexer.CONTINUE:
		tok := p.advance()
		if _, err := p.expect(lexer.SEMI, "continue"); err != nil {
			return nil, err
		}
		s := &ast.ContinueStmt{}
		s.Pos = p.pos2(tok)
		return s, nil
	case lexer.RELEASE:
		return p.parseReleaseStmt()
	case lexer.DELETE:
		return p.parseDeleteStmt()
	case lexer.THROW:
		return p.parseThrowStmt()
	case lexer.TRY:
		return p.parseTryStmt()
	case lexer.PREPROC_LINE, lexer.HASH:
		tok := p.advance()
		s := &ast.PreprocStmt{Text: tok.Literal}
		s.Pos = p.pos2(tok)
		return s, nil
	}

	if p.looksLikeLocalVarDecl() {
		return p.parseLocalVarDecl()
	}
	return p.parseExprOrAssignStmt()
}

// looksLikeLocalVarDecl disambiguates `Type name ...;` from an
// expression statement by checking for `ident ident` or
// `ident<...> ident` at the start, which only a variable declaration
// can produce in BTRC's grammar (a bare expression never starts with
// two adjacent identifiers, and a `<` comparison reaches `;` or `{`
// before a closing `>` followed by an identifier).
func (p *Parser) looksLikeLocalVarDecl() bool {
	if !p.at(lexer.IDENT) {
		return false
	}
	i, depth := p.pos+1, 0
	for ; p.toks[i].Type == lexer.LT || depth > 0; i++ {
		switch p.toks[i].Type {
		case lexer.LT:
			depth++
		case lexer.GT:
			depth--
		case lexer.SEMI, lexer.LBRACE, lexer.EOF:
			return false
		}
	}
	return p.toks[i].Type == lexer.IDENT
}

func (p *Parser) parseLocalVarDecl() (ast.Stmt, error) {
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT, "local variable declaration")
	if err != nil {
		return nil, err
	}
	s := &ast.LocalVarDecl{Name: nameTok.Literal, Type: typ}
	s.Pos = p.pos2(nameTok)
	if _, ok := p.accept(lexer.ASSIGN); ok {
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s.Initializer = init
	}
	if _, err := p.expect(lexer.SEMI, "local variable declaration"); err != nil {
		return nil, err
	}
	return s, nil
}

var assignOps = map[lexer.TokenType]string{
	lexer.ASSIGN:       "=",
	lexer.PLUS_ASSIGN:  "+=",
	lexer.MINUS_ASSIGN: "-=",
	lexer.STAR_ASSIGN:  "*=",
	lexer.SLASH_ASSIGN: "/=",
}

func (p *Parser) parseExprOrAssignStmt() (ast.Stmt, error) {
	startTok := p.cur()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if op, ok := assignOps[p.cur().Type]; ok {
		p.advance()
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.SEMI, "assignment"); err != nil {
			return nil, err
		}
		s := &ast.AssignStmt{Target: e, Op: op, Value: value}
		s.Pos = p.pos2(startTok)
		return s, nil
	}
	if _, err := p.expect(lexer.SEMI, "expression statement"); err != nil {
		return nil, err
	}
	s := &ast.ExprStmt{Expr: e}
	s.Pos = p.pos2(startTok)
	return s, nil
}

func (p *Parser) parseReturnStmt() (ast.Stmt, error) {
	tok := p.advance()
	s := &ast.ReturnStmt{}
	s.Pos = p.pos2(tok)
	if !p.at(lexer.SEMI) {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s.Value = v
	}
	if _, err := p.expect(lexer.SEMI, "return"); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Parser) parseIfStmt() (ast.Stmt, error) {
	tok := p.advance()
	if _, err := p.expect(lexer.LPAREN, "if condition"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "if condition"); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	s := &ast.IfStmt{Cond: cond, Then: then}
	s.Pos = p.pos2(tok)
	if _, ok := p.accept(lexer.ELSE); ok {
		if p.at(lexer.IF) {
			elseIf, err := p.parseIfStmt()
			if err != nil {
				return nil, err
			}
			s.Else = &ast.Block{Stmts: []ast.Stmt{elseIf}}
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			s.Else = elseBlock
		}
	}
	return s, nil
}

func (p *Parser) parseWhileStmt() (ast.Stmt, error) {
	tok := p.advance()
	if _, err := p.expect(lexer.LPAREN, "while condition"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "while condition"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	s := &ast.WhileStmt{Cond: cond, Body: body}
	s.Pos = p.pos2(tok)
	return s, nil
}

func (p *Parser) parseDoWhileStmt() (ast.Stmt, error) {
	tok := p.advance()
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.WHILE, "do-while"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN, "do-while condition"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "do-while condition"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI, "do-while"); err != nil {
		return nil, err
	}
	s := &ast.DoWhileStmt{Body: body, Cond: cond}
	s.Pos = p.pos2(tok)
	return s, nil
}

func (p *Parser) parseForStmt() (ast.Stmt, error) {
	tok := p.advance()
	parallel := false
	if p.at(lexer.PARALLEL) {
		p.advance()
		parallel = true
	}
	_, parens := p.accept(lexer.LPAREN)

	// for-in form: `for (name in xs)` or `for (k, v in m)`, with or
	// without the parentheses; the loop names carry no type. When no
	// `in` follows the names, the parser backtracks and reads a C-style
	// `for (init; cond; update)`, which requires the parentheses.
	save := p.pos
	if fi, ok, err := p.tryParseForIn(tok, parens); ok {
		return fi, err
	}
	p.pos = save
	if !parens {
		_, err := p.expect(lexer.LPAREN, "for")
		return nil, err
	}

	var initStmt ast.Stmt
	if !p.at(lexer.SEMI) {
		if p.looksLikeLocalVarDecl() {
			s, err := p.parseLocalVarDeclNoSemi()
			if err != nil {
				return nil, err
			}
			initStmt = s
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			es := &ast.ExprStmt{Expr: e}
			initStmt = es
		}
	}
	if _, err := p.expect(lexer.SEMI, "for init"); err != nil {
		return nil, err
	}

	var cond ast.Expr
	if !p.at(lexer.SEMI) {
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		cond = c
	}
	if _, err := p.expect(lexer.SEMI, "for condition"); err != nil {
		return nil, err
	}

	var updateStmt ast.Stmt
	if !p.at(lexer.RPAREN) {
		startTok := p.cur()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if op, ok := assignOps[p.cur().Type]; ok {
			p.advance()
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			as := &ast.AssignStmt{Target: e, Op: op, Value: value}
			as.Pos = p.pos2(startTok)
			updateStmt = as
		} else {
			es := &ast.ExprStmt{Expr: e}
			es.Pos = p.pos2(startTok)
			updateStmt = es
		}
	}
	if _, err := p.expect(lexer.RPAREN, "for"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	s := &ast.ForStmt{Init: initStmt, Cond: cond, Update: updateStmt, Body: body, ParallelHint: parallel}
	s.Pos = p.pos2(tok)
	return s, nil
}

func (p *Parser) parseLocalVarDeclNoSemi() (ast.Stmt, error) {
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT, "local variable declaration")
	if err != nil {
		return nil, err
	}
	s := &ast.LocalVarDecl{Name: nameTok.Literal, Type: typ}
	s.Pos = p.pos2(nameTok)
	if _, ok := p.accept(lexer.ASSIGN); ok {
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s.Initializer = init
	}
	return s, nil
}

func (p *Parser) tryParseForIn(tok lexer.Token, parens bool) (ast.Stmt, bool, error) {
	var varName, keyName string
	if !p.at(lexer.IDENT) {
		return nil, false, nil
	}
	first := p.advance().Literal
	if _, ok := p.accept(lexer.COMMA); ok {
		if !p.at(lexer.IDENT) {
			return nil, false, nil
		}
		keyName = first
		varName = p.advance().Literal
	} else {
		varName = first
	}
	if !p.at(lexer.IN) {
		return nil, false, nil
	}
	p.advance()
	iterable, err := p.parseExpr()
	if err != nil {
		return nil, true, err
	}
	if parens {
		if _, err := p.expect(lexer.RPAREN, "for-in"); err != nil {
			return nil, true, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, true, err
	}
	s := &ast.ForInStmt{VarName: varName, KeyName: keyName, Iterable: iterable, Body: body}
	s.Pos = p.pos2(tok)
	return s, true, nil
}

func (p *Parser) parseSwitchStmt() (ast.Stmt, error) {
	tok := p.advance()
	if _, err := p.expect(lexer.LPAREN, "switch"); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "switch"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBRACE, "switch body"); err != nil {
		return nil, err
	}
	s := &ast.SwitchStmt{Value: value}
	s.Pos = p.pos2(tok)
	for !p.at(lexer.RBRACE) {
		var c ast.SwitchCase
		if _, ok := p.accept(lexer.CASE); ok {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			c.Value = v
		} else if _, err := p.expect(lexer.DEFAULT, "switch case"); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON, "switch case"); err != nil {
			return nil, err
		}
		for !p.at(lexer.CASE) && !p.at(lexer.DEFAULT) && !p.at(lexer.RBRACE) {
			st, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			c.Body = append(c.Body, st)
		}
		s.Cases = append(s.Cases, c)
	}
	if _, err := p.expect(lexer.RBRACE, "switch body"); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Parser) parseReleaseStmt() (ast.Stmt, error) {
	tok := p.advance()
	target, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI, "release"); err != nil {
		return nil, err
	}
	s := &ast.ReleaseStmt{Target: target}
	s.Pos = p.pos2(tok)
	return s, nil
}

func (p *Parser) parseDeleteStmt() (ast.Stmt, error) {
	tok := p.advance()
	target, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI, "delete"); err != nil {
		return nil, err
	}
	s := &ast.DeleteStmt{Target: target}
	s.Pos = p.pos2(tok)
	return s, nil
}

func (p *Parser) parseThrowStmt() (ast.Stmt, error) {
	tok := p.advance()
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI, "throw"); err != nil {
		return nil, err
	}
	s := &ast.ThrowStmt{Value: value}
	s.Pos = p.pos2(tok)
	return s, nil
}

func (p *Parser) parseTryStmt() (ast.Stmt, error) {
	tok := p.advance()
	tryBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	s := &ast.TryStmt{Try: tryBlock}
	s.Pos = p.pos2(tok)
	for p.at(lexer.CATCH) {
		p.advance()
		if _, err := p.expect(lexer.LPAREN, "catch clause"); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		nameTok, err := p.expect(lexer.IDENT, "catch clause")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN, "catch clause"); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		s.Catches = append(s.Catches, ast.CatchClause{Type: typ, Name: nameTok.Literal, Body: body})
	}
	if _, ok := p.accept(lexer.FINALLY); ok {
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		s.Finally = body
	}
	return s, nil
}
