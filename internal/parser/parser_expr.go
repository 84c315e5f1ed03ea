package parser

import (
	"strconv"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/lexer"
)

// precedence table, low to high; unary/postfix handled separately.
var binPrec = map[lexer.TokenType]int{
	lexer.OR:                1,
	lexer.AND:                2,
	lexer.PIPE:               3,
	lexer.CARET:              4,
	lexer.AMP:                5,
	lexer.EQ:                 6,
	lexer.NEQ:                6,
	lexer.LT:                 7,
	lexer.GT:                 7,
	lexer.LE:                 7,
	lexer.GE:                 7,
	lexer.SHL:                8,
	lexer.SHR:                8,
	lexer.PLUS:               9,
	lexer.MINUS:              9,
	lexer.STAR:               10,
	lexer.SLASH:              10,
	lexer.PERCENT:            10,
}

var binOpText = map[lexer.TokenType]string{
	lexer.OR: "||", lexer.AND: "&&", lexer.PIPE: "|", lexer.CARET: "^",
	lexer.AMP: "&", lexer.EQ: "==", lexer.NEQ: "!=", lexer.LT: "<",
	lexer.GT: ">", lexer.LE: "<=", lexer.GE: ">=", lexer.SHL: "<<",
	lexer.SHR: ">>", lexer.PLUS: "+", lexer.MINUS: "-", lexer.STAR: "*",
	lexer.SLASH: "/", lexer.PERCENT: "%",
}

// parseExpr parses a full expression: ternary, then null-coalesce,
// then binary-precedence climbing.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseTernary()
}

func (p *Parser) parseTernary() (ast.Expr, error) {
	cond, err := p.parseNullCoalesce()
	if err != nil {
		return nil, err
	}
	if tok, ok := p.accept(lexer.QUESTION); ok {
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON, "ternary expression"); err != nil {
			return nil, err
		}
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e := &ast.TernaryExpr{Cond: cond, Then: then, Else: els}
		e.Pos = p.pos2(tok)
		return e, nil
	}
	return cond, nil
}

func (p *Parser) parseNullCoalesce() (ast.Expr, error) {
	left, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.accept(lexer.QUESTION_QUESTION)
		if !ok {
			return left, nil
		}
		right, err := p.parseBinary(1)
		if err != nil {
			return nil, err
		}
		e := &ast.NullCoalesceExpr{Left: left, Right: right}
		e.Pos = p.pos2(tok)
		left = e
	}
}

func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec, ok := binPrec[p.cur().Type]
		if !ok || prec < minPrec {
			return left, nil
		}
		opTok := p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		e := &ast.BinaryExpr{Left: left, Op: binOpText[opTok.Type], Right: right}
		e.Pos = p.pos2(opTok)
		left = e
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.at(lexer.LPAREN) && isCastLookahead(p) {
		return p.parseCastExpr()
	}
	switch p.cur().Type {
	case lexer.MINUS, lexer.NOT, lexer.AMP, lexer.STAR:
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		opText := map[lexer.TokenType]string{lexer.MINUS: "-", lexer.NOT: "!", lexer.AMP: "&", lexer.STAR: "*"}[tok.Type]
		e := &ast.UnaryExpr{Op: opText, Operand: operand, Prefix: true}
		e.Pos = p.pos2(tok)
		return e, nil
	case lexer.INC, lexer.DEC:
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		opText := "++"
		if tok.Type == lexer.DEC {
			opText = "--"
		}
		e := &ast.UnaryExpr{Op: opText, Operand: operand, Prefix: true}
		e.Pos = p.pos2(tok)
		return e, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Type {
		case lexer.DOT:
			tok := p.advance()
			nameTok, err := p.expect(lexer.IDENT, "field access")
			if err != nil {
				return nil, err
			}
			fa := &ast.FieldAccessExpr{Obj: e, Field: nameTok.Literal}
			fa.Pos = p.pos2(tok)
			e = fa
		case lexer.QUESTION_DOT:
			tok := p.advance()
			nameTok, err := p.expect(lexer.IDENT, "optional chain")
			if err != nil {
				return nil, err
			}
			fa := &ast.FieldAccessExpr{Obj: e, Field: nameTok.Literal, OptionalChain: true}
			fa.Pos = p.pos2(tok)
			e = fa
		case lexer.LBRACKET:
			tok := p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACKET, "index expression"); err != nil {
				return nil, err
			}
			ie := &ast.IndexExpr{Obj: e, Index: idx}
			ie.Pos = p.pos2(tok)
			e = ie
		case lexer.LPAREN:
			tok := p.advance()
			var args []ast.Expr
			for !p.at(lexer.RPAREN) {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if _, ok := p.accept(lexer.COMMA); ok {
					continue
				}
				break
			}
			if _, err := p.expect(lexer.RPAREN, "call expression"); err != nil {
				return nil, err
			}
			ce := &ast.CallExpr{Callee: e, Args: args}
			ce.Pos = p.pos2(tok)
			e = ce
		case lexer.INC, lexer.DEC:
			tok := p.advance()
			opText := "++"
			if tok.Type == lexer.DEC {
				opText = "--"
			}
			ue := &ast.UnaryExpr{Op: opText, Operand: e, Prefix: false}
			ue.Pos = p.pos2(tok)
			e = ue
		default:
			return e, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.INT:
		p.advance()
		val, _ := parseIntLiteral(tok.Literal)
		e := &ast.IntLit{Raw: tok.Literal, Value: val}
		e.Pos = p.pos2(tok)
		return e, nil
	case lexer.FLOAT:
		p.advance()
		val, _ := strconv.ParseFloat(tok.Literal, 64)
		e := &ast.FloatLit{Raw: tok.Literal, Value: val}
		e.Pos = p.pos2(tok)
		return e, nil
	case lexer.STRING:
		p.advance()
		e := &ast.StringLit{Value: tok.Literal}
		e.Pos = p.pos2(tok)
		return e, nil
	case lexer.FSTRING:
		p.advance()
		return p.buildFString(tok)
	case lexer.CHAR:
		p.advance()
		e := &ast.CharLit{Value: tok.Literal[0]}
		e.Pos = p.pos2(tok)
		return e, nil
	case lexer.TRUE, lexer.FALSE:
		p.advance()
		e := &ast.BoolLit{Value: tok.Type == lexer.TRUE}
		e.Pos = p.pos2(tok)
		return e, nil
	case lexer.NULL:
		p.advance()
		e := &ast.NullLit{}
		e.Pos = p.pos2(tok)
		return e, nil
	case lexer.SELF:
		p.advance()
		e := &ast.SelfExpr{}
		e.Pos = p.pos2(tok)
		return e, nil
	case lexer.NEW:
		return p.parseNewExpr()
	case lexer.SPAWN:
		return p.parseSpawnExpr()
	case lexer.PRINT:
		return p.parsePrintExpr()
	case lexer.SIZEOF:
		return p.parseSizeofExpr()
	case lexer.LEN:
		return p.parseLenExpr()
	case lexer.LPAREN:
		return p.parseParenOrLambdaOrTuple()
	case lexer.LBRACKET:
		return p.parseListLiteral()
	case lexer.LBRACE:
		return p.parseBraceExpr()
	case lexer.IDENT:
		if tok.Literal == "Mutex" && p.peek().Type == lexer.LPAREN {
			return p.parseMutexExpr()
		}
		if isLambdaFuncKeyword(p) {
			return p.parseTypedLambda()
		}
		p.advance()
		e := &ast.Ident{Name: tok.Literal}
		e.Pos = p.pos2(tok)
		return e, nil
	}
	return nil, p.errorf("unexpected token %q in expression", tok.Literal)
}

func parseIntLiteral(raw string) (int64, error) {
	if len(raw) > 2 && raw[0] == '0' && (raw[1] == 'x' || raw[1] == 'X') {
		return strconv.ParseInt(raw[2:], 16, 64)
	}
	if len(raw) > 2 && raw[0] == '0' && (raw[1] == 'o' || raw[1] == 'O') {
		return strconv.ParseInt(raw[2:], 8, 64)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// isLambdaFuncKeyword detects the `Type function(params) {body}`
// lambda surface form, where the current identifier is a return type
// and the next token is the `function` keyword.
func isLambdaFuncKeyword(p *Parser) bool {
	return p.peek().Type == lexer.FUNC && p.peekN(2).Type == lexer.LPAREN
}

// isCastLookahead reports whether the upcoming `(` opens a C-style
// cast `(Type)expr` rather than a parenthesized expression, lambda, or
// tuple literal: a bare (optionally pointer/generic) type name
// followed by `)` and a token that can start a unary expression.
func isCastLookahead(p *Parser) bool {
	if p.peek().Type != lexer.IDENT {
		return false
	}
	i := p.pos + 1
	if p.toks[i+1].Type == lexer.LT {
		depth := 0
		j := i + 1
		for j < len(p.toks) {
			switch p.toks[j].Type {
			case lexer.LT:
				depth++
			case lexer.GT:
				depth--
				if depth == 0 {
					j++
					goto afterGenerics
				}
			case lexer.SEMI, lexer.LBRACE, lexer.EOF, lexer.RPAREN:
				return false
			}
			j++
		}
		return false
	afterGenerics:
		i = j
	} else {
		i++
	}
	for p.toks[i].Type == lexer.STAR {
		i++
	}
	if p.toks[i].Type != lexer.RPAREN {
		return false
	}
	switch p.toks[i+1].Type {
	case lexer.IDENT, lexer.INT, lexer.FLOAT, lexer.STRING, lexer.FSTRING,
		lexer.CHAR, lexer.TRUE, lexer.FALSE, lexer.NULL, lexer.SELF,
		lexer.LPAREN, lexer.NOT, lexer.AMP, lexer.NEW, lexer.MINUS:
		return true
	}
	return false
}

func (p *Parser) parseCastExpr() (ast.Expr, error) {
	tok := p.advance() // '('
	target, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "cast expression"); err != nil {
		return nil, err
	}
	value, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	e := &ast.CastExpr{Target: target, Value: value}
	e.Pos = p.pos2(tok)
	return e, nil
}

func (p *Parser) parseTypedLambda() (ast.Expr, error) {
	retTok := p.cur()
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.advance() // 'function'
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	e := &ast.LambdaExpr{Params: params, ReturnType: retType, Body: body}
	e.Pos = p.pos2(retTok)
	return e, nil
}

func (p *Parser) parseNewExpr() (ast.Expr, error) {
	tok := p.advance()
	nameTok, err := p.expect(lexer.IDENT, "new expression")
	if err != nil {
		return nil, err
	}
	e := &ast.NewExpr{ClassName: nameTok.Literal}
	e.Pos = p.pos2(tok)
	if _, ok := p.accept(lexer.LT); ok {
		for {
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			e.TypeArgs = append(e.TypeArgs, t)
			if _, ok := p.accept(lexer.COMMA); ok {
				continue
			}
			break
		}
		if _, err := p.expect(lexer.GT, "new expression type arguments"); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.LPAREN, "new expression"); err != nil {
		return nil, err
	}
	for !p.at(lexer.RPAREN) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Args = append(e.Args, a)
		if _, ok := p.accept(lexer.COMMA); ok {
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN, "new expression"); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *Parser) parseSpawnExpr() (ast.Expr, error) {
	tok := p.advance()
	call, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	e := &ast.SpawnExpr{Call: call}
	e.Pos = p.pos2(tok)
	return e, nil
}

func (p *Parser) parseMutexExpr() (ast.Expr, error) {
	tok := p.advance() // 'Mutex'
	if _, err := p.expect(lexer.LPAREN, "Mutex expression"); err != nil {
		return nil, err
	}
	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "Mutex expression"); err != nil {
		return nil, err
	}
	e := &ast.MutexExpr{Init: init}
	e.Pos = p.pos2(tok)
	return e, nil
}

func (p *Parser) parsePrintExpr() (ast.Expr, error) {
	tok := p.advance()
	if _, err := p.expect(lexer.LPAREN, "print"); err != nil {
		return nil, err
	}
	e := &ast.PrintExpr{}
	e.Pos = p.pos2(tok)
	for !p.at(lexer.RPAREN) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Args = append(e.Args, a)
		if _, ok := p.accept(lexer.COMMA); ok {
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN, "print"); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *Parser) parseSizeofExpr() (ast.Expr, error) {
	tok := p.advance()
	if _, err := p.expect(lexer.LPAREN, "sizeof"); err != nil {
		return nil, err
	}
	e := &ast.SizeofExpr{}
	e.Pos = p.pos2(tok)
	save := p.pos
	if t, err := p.parseType(); err == nil && p.at(lexer.RPAREN) {
		e.OperandType = t
	} else {
		p.pos = save
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.OperandExpr = v
	}
	if _, err := p.expect(lexer.RPAREN, "sizeof"); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *Parser) parseLenExpr() (ast.Expr, error) {
	tok := p.advance()
	if _, err := p.expect(lexer.LPAREN, "len"); err != nil {
		return nil, err
	}
	operand, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "len"); err != nil {
		return nil, err
	}
	e := &ast.LenExpr{Operand: operand}
	e.Pos = p.pos2(tok)
	return e, nil
}

// parseParenOrLambdaOrTuple disambiguates `(expr)`, `(params) => expr`
// lambdas, and `(e1, e2, ...)` tuple literals, all of which begin with
// `(`.
func (p *Parser) parseParenOrLambdaOrTuple() (ast.Expr, error) {
	tok := p.cur()
	if isArrowLambdaLookahead(p) {
		return p.parseArrowLambda()
	}
	p.advance() // '('
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept(lexer.COMMA); ok {
		e := &ast.TupleLiteral{Elements: []ast.Expr{first}}
		e.Pos = p.pos2(tok)
		for {
			el, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			e.Elements = append(e.Elements, el)
			if _, ok := p.accept(lexer.COMMA); ok {
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN, "tuple literal"); err != nil {
			return nil, err
		}
		return e, nil
	}
	if _, err := p.expect(lexer.RPAREN, "parenthesized expression"); err != nil {
		return nil, err
	}
	return first, nil
}

// isArrowLambdaLookahead scans forward for a matching `)` followed by
// `=>` without consuming tokens.
func isArrowLambdaLookahead(p *Parser) bool {
	depth := 0
	i := p.pos
	for i < len(p.toks) {
		switch p.toks[i].Type {
		case lexer.LPAREN:
			depth++
		case lexer.RPAREN:
			depth--
			if depth == 0 {
				return i+1 < len(p.toks) && p.toks[i+1].Type == lexer.ARROW
			}
		case lexer.SEMI, lexer.LBRACE, lexer.EOF:
			return false
		}
		i++
	}
	return false
}

func (p *Parser) parseArrowLambda() (ast.Expr, error) {
	tok := p.cur()
	if _, err := p.expect(lexer.LPAREN, "lambda parameters"); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.at(lexer.RPAREN) {
		nameTok, err := p.expect(lexer.IDENT, "lambda parameter")
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: nameTok.Literal})
		if _, ok := p.accept(lexer.COMMA); ok {
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN, "lambda parameters"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ARROW, "lambda"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	e := &ast.LambdaExpr{Params: params, ExprBody: body}
	e.Pos = p.pos2(tok)
	return e, nil
}

func (p *Parser) parseListLiteral() (ast.Expr, error) {
	tok := p.advance()
	e := &ast.ListLiteral{}
	e.Pos = p.pos2(tok)
	for !p.at(lexer.RBRACKET) {
		el, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Elements = append(e.Elements, el)
		if _, ok := p.accept(lexer.COMMA); ok {
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBRACKET, "list literal"); err != nil {
		return nil, err
	}
	return e, nil
}

// parseBraceExpr disambiguates `{}` (empty brace initializer),
// `{k: v, ...}` (map literal), and `{e1, e2, ...}` (set literal).
func (p *Parser) parseBraceExpr() (ast.Expr, error) {
	tok := p.advance()
	if _, ok := p.accept(lexer.RBRACE); ok {
		e := &ast.BraceInitializer{}
		e.Pos = p.pos2(tok)
		return e, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept(lexer.COLON); ok {
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e := &ast.MapLiteral{Entries: []ast.MapEntry{{Key: first, Value: value}}}
		e.Pos = p.pos2(tok)
		for {
			if _, ok := p.accept(lexer.COMMA); !ok {
				break
			}
			if p.at(lexer.RBRACE) {
				break
			}
			k, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.COLON, "map literal"); err != nil {
				return nil, err
			}
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			e.Entries = append(e.Entries, ast.MapEntry{Key: k, Value: v})
		}
		if _, err := p.expect(lexer.RBRACE, "map literal"); err != nil {
			return nil, err
		}
		return e, nil
	}
	e := &ast.SetLiteral{Elements: []ast.Expr{first}}
	e.Pos = p.pos2(tok)
	for {
		if _, ok := p.accept(lexer.COMMA); !ok {
			break
		}
		if p.at(lexer.RBRACE) {
			break
		}
		el, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Elements = append(e.Elements, el)
	}
	if _, err := p.expect(lexer.RBRACE, "set literal"); err != nil {
		return nil, err
	}
	return e, nil
}

// buildFString splits the raw body captured by the lexer into literal
// and `{expr}` parts, re-parsing each interpolation with a nested
// Parser over the same token/position space (spec §6's f-string
// `{expr}` interpolation with `{{`/`}}` escapes).
func (p *Parser) buildFString(tok lexer.Token) (ast.Expr, error) {
	raw := tok.Literal
	e := &ast.FStringLit{}
	e.Pos = p.pos2(tok)

	var lit []byte
	i := 0
	for i < len(raw) {
		c := raw[i]
		if c == '{' && i+1 < len(raw) && raw[i+1] == '{' {
			lit = append(lit, '{')
			i += 2
			continue
		}
		if c == '}' && i+1 < len(raw) && raw[i+1] == '}' {
			lit = append(lit, '}')
			i += 2
			continue
		}
		if c == '{' {
			if len(lit) > 0 {
				e.Parts = append(e.Parts, ast.FStringPart{Literal: string(lit)})
				lit = nil
			}
			depth := 1
			start := i + 1
			j := start
			for j < len(raw) && depth > 0 {
				if raw[j] == '{' {
					depth++
				} else if raw[j] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				j++
			}
			exprSrc := raw[start:j]
			inner, err := p.parseSubExpr(exprSrc)
			if err != nil {
				return nil, err
			}
			e.Parts = append(e.Parts, ast.FStringPart{Expr: inner})
			i = j + 1
			continue
		}
		lit = append(lit, c)
		i++
	}
	if len(lit) > 0 {
		e.Parts = append(e.Parts, ast.FStringPart{Literal: string(lit)})
	}
	return e, nil
}

// parseSubExpr lexes and parses src as a standalone expression,
// independent of the outer token stream — used for f-string `{expr}`
// interpolation segments, which the lexer captured as raw text rather
// than tokens.
func (p *Parser) parseSubExpr(src string) (ast.Expr, error) {
	toks, err := lexer.All(p.file, src)
	if err != nil {
		if le, ok := err.(*lexer.Error); ok {
			return nil, &Error{Message: le.Message, Pos: ast.Pos{File: le.File, Line: le.Line, Column: le.Column}}
		}
		return nil, err
	}
	sub := &Parser{file: p.file, toks: toks, nextID: p.nextID}
	e, err := sub.parseExpr()
	p.nextID = sub.nextID
	return e, err
}
