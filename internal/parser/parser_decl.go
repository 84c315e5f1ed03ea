package parser

import (
	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/lexer"
)

func (p *Parser) parseTopLevelDecl() (ast.Decl, error) {
	switch {
	case p.at(lexer.HASH), p.at(lexer.PREPROC_LINE):
		return p.parsePreprocDecl()
	case p.at(lexer.CLASS):
		return p.parseClassDecl()
	case p.at(lexer.INTERFACE):
		return p.parseInterfaceDecl()
	case p.at(lexer.STRUCT):
		return p.parseStructDecl()
	case p.at(lexer.ENUM):
		return p.parseEnumDecl()
	case p.at(lexer.TYPEDEF):
		return p.parseTypedefDecl()
	}

	// function or global variable: `Type name(` vs `Type name =`/`;`
	if p.at(lexer.IDENT) && p.peek().Type == lexer.IDENT {
		if p.peekN(2).Type == lexer.LPAREN {
			return p.parseFuncDecl()
		}
		return p.parseGlobalVarDecl()
	}
	return nil, p.errorf("expected a top-level declaration, got %q", p.cur().Literal)
}

func (p *Parser) parsePreprocDecl() (ast.Decl, error) {
	tok := p.advance()
	text := tok.Literal
	d := &ast.PreprocDecl{Text: text}
	d.Pos = p.pos2(tok)
	if file, ok := parseIncludeFile(text); ok {
		d.IsInclude = true
		d.IncludeFile = file
	}
	return d, nil
}

// parseIncludeFile extracts `"foo.btrc"` from a `#include "foo.btrc"`
// directive, matching the original implementation's regex
// `^\s*#include\s+"([^"]+\.btrc)"\s*$`.
func parseIncludeFile(text string) (string, bool) {
	const marker = "#include"
	i := 0
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if len(text) < i+len(marker) || text[i:i+len(marker)] != marker {
		return "", false
	}
	i += len(marker)
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i >= len(text) || text[i] != '"' {
		return "", false
	}
	i++
	start := i
	for i < len(text) && text[i] != '"' {
		i++
	}
	if i >= len(text) {
		return "", false
	}
	return text[start:i], true
}

func (p *Parser) parseClassDecl() (ast.Decl, error) {
	startTok := p.advance() // 'class'
	nameTok, err := p.expect(lexer.IDENT, "class declaration")
	if err != nil {
		return nil, err
	}
	d := &ast.ClassDecl{Name: nameTok.Literal}
	d.Pos = p.pos2(startTok)

	generics, err := p.parseGenericParams()
	if err != nil {
		return nil, err
	}
	d.Generics = generics

	if _, ok := p.accept(lexer.EXTENDS); ok {
		parentTok, err := p.expect(lexer.IDENT, "extends clause")
		if err != nil {
			return nil, err
		}
		d.Parent = parentTok.Literal
	}

	if _, err := p.expect(lexer.LBRACE, "class body"); err != nil {
		return nil, err
	}
	for !p.at(lexer.RBRACE) {
		m, err := p.parseClassMember(d.Name)
		if err != nil {
			return nil, err
		}
		d.Members = append(d.Members, m)
	}
	if _, err := p.expect(lexer.RBRACE, "class body"); err != nil {
		return nil, err
	}
	return d, nil
}

func (p *Parser) parseClassMember(className string) (ast.Member, error) {
	// skip visibility/static/abstract/virtual/override modifiers
	isStatic, isAbstract := false, false
	for {
		switch p.cur().Type {
		case lexer.PUBLIC, lexer.PRIVATE, lexer.PROTECTED, lexer.VIRTUAL, lexer.OVERRIDE:
			p.advance()
			continue
		case lexer.STATIC:
			isStatic = true
			p.advance()
			continue
		case lexer.ABSTRACT:
			isAbstract = true
			p.advance()
			continue
		}
		break
	}

	// property: `property Type name { get {...} set(v) {...} }`
	if p.at(lexer.IDENT) && p.cur().Literal == "property" {
		return p.parsePropertyDecl()
	}

	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT, "class member")
	if err != nil {
		return nil, err
	}

	if p.at(lexer.LPAREN) || (p.at(lexer.LT) && isGenericMethodLookahead(p)) {
		return p.parseMethodDecl(typ, nameTok, isStatic, isAbstract)
	}

	// field, possibly with an initializer
	fd := &ast.FieldDecl{Name: nameTok.Literal, Type: typ}
	fd.Pos = p.pos2(nameTok)
	if _, ok := p.accept(lexer.ASSIGN); ok {
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		fd.Initializer = init
	}
	if _, err := p.expect(lexer.SEMI, "field declaration"); err != nil {
		return nil, err
	}
	return fd, nil
}

func isGenericMethodLookahead(p *Parser) bool { return false }

func (p *Parser) parsePropertyDecl() (ast.Member, error) {
	tok := p.advance() // 'property'
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT, "property declaration")
	if err != nil {
		return nil, err
	}
	d := &ast.PropertyDecl{Name: nameTok.Literal, Type: typ}
	d.Pos = p.pos2(tok)

	if _, err := p.expect(lexer.LBRACE, "property body"); err != nil {
		return nil, err
	}
	for !p.at(lexer.RBRACE) {
		if p.at(lexer.IDENT) && p.cur().Literal == "get" {
			p.advance()
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			d.Getter = body
			continue
		}
		if p.at(lexer.IDENT) && p.cur().Literal == "set" {
			p.advance()
			if _, ok := p.accept(lexer.LPAREN); ok {
				paramTok, err := p.expect(lexer.IDENT, "setter parameter")
				if err != nil {
					return nil, err
				}
				d.SetterParam = paramTok.Literal
				if _, err := p.expect(lexer.RPAREN, "setter parameter"); err != nil {
					return nil, err
				}
			} else {
				d.SetterParam = "value"
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			d.Setter = body
			continue
		}
		return nil, p.errorf("expected 'get' or 'set' in property body")
	}
	if _, err := p.expect(lexer.RBRACE, "property body"); err != nil {
		return nil, err
	}
	return d, nil
}

func (p *Parser) parseMethodDecl(retType *ast.TypeExpr, nameTok lexer.Token, isStatic, isAbstract bool) (ast.Member, error) {
	sig := ast.FuncSig{Name: nameTok.Literal, ReturnType: retType, IsStatic: isStatic, IsAbstract: isAbstract}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	sig.Params = params

	if _, ok := p.accept(lexer.IDENT); ok && p.toks[p.pos-1].Literal == "keep_return" {
		sig.KeepReturn = true
	}

	m := &ast.MethodDecl{Sig: sig}
	m.Pos = p.pos2(nameTok)

	if isAbstract {
		if _, err := p.expect(lexer.SEMI, "abstract method"); err != nil {
			return nil, err
		}
		return m, nil
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	m.Body = body
	return m, nil
}

func (p *Parser) parseParamList() ([]ast.Param, error) {
	if _, err := p.expect(lexer.LPAREN, "parameter list"); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.at(lexer.RPAREN) {
		keep := false
		if _, ok := p.accept(lexer.KEEP); ok {
			keep = true
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		nameTok, err := p.expect(lexer.IDENT, "parameter")
		if err != nil {
			return nil, err
		}
		param := ast.Param{Name: nameTok.Literal, Type: typ, Keep: keep}
		if _, ok := p.accept(lexer.ASSIGN); ok {
			def, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			param.Default = def
		}
		params = append(params, param)
		if _, ok := p.accept(lexer.COMMA); ok {
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN, "parameter list"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseInterfaceDecl() (ast.Decl, error) {
	tok := p.advance()
	nameTok, err := p.expect(lexer.IDENT, "interface declaration")
	if err != nil {
		return nil, err
	}
	d := &ast.InterfaceDecl{Name: nameTok.Literal}
	d.Pos = p.pos2(tok)
	if _, ok := p.accept(lexer.EXTENDS); ok {
		for {
			t, err := p.expect(lexer.IDENT, "interface extends clause")
			if err != nil {
				return nil, err
			}
			d.Extends = append(d.Extends, t.Literal)
			if _, ok := p.accept(lexer.COMMA); ok {
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.LBRACE, "interface body"); err != nil {
		return nil, err
	}
	for !p.at(lexer.RBRACE) {
		retType, err := p.parseType()
		if err != nil {
			return nil, err
		}
		nameTok, err := p.expect(lexer.IDENT, "interface method")
		if err != nil {
			return nil, err
		}
		params, err := p.parseParamList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.SEMI, "interface method"); err != nil {
			return nil, err
		}
		d.Methods = append(d.Methods, ast.FuncSig{Name: nameTok.Literal, ReturnType: retType, Params: params, IsAbstract: true})
	}
	if _, err := p.expect(lexer.RBRACE, "interface body"); err != nil {
		return nil, err
	}
	return d, nil
}

func (p *Parser) parseStructDecl() (ast.Decl, error) {
	tok := p.advance()
	nameTok, err := p.expect(lexer.IDENT, "struct declaration")
	if err != nil {
		return nil, err
	}
	d := &ast.StructDecl{Name: nameTok.Literal}
	d.Pos = p.pos2(tok)
	if _, err := p.expect(lexer.LBRACE, "struct body"); err != nil {
		return nil, err
	}
	for !p.at(lexer.RBRACE) {
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fnameTok, err := p.expect(lexer.IDENT, "struct field")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.SEMI, "struct field"); err != nil {
			return nil, err
		}
		fd := ast.FieldDecl{Name: fnameTok.Literal, Type: typ}
		fd.Pos = p.pos2(fnameTok)
		d.Fields = append(d.Fields, fd)
	}
	if _, err := p.expect(lexer.RBRACE, "struct body"); err != nil {
		return nil, err
	}
	return d, nil
}

func (p *Parser) parseEnumDecl() (ast.Decl, error) {
	tok := p.advance()
	nameTok, err := p.expect(lexer.IDENT, "enum declaration")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBRACE, "enum body"); err != nil {
		return nil, err
	}

	// Look ahead: a rich (tagged-union) enum has `Name(Type field, ...)`
	// variants; a simple enum has bare comma-separated names.
	isRich := p.peek().Type == lexer.LPAREN

	if isRich {
		rd := &ast.RichEnumDecl{Name: nameTok.Literal}
		rd.Pos = p.pos2(tok)
		for !p.at(lexer.RBRACE) {
			vnameTok, err := p.expect(lexer.IDENT, "enum variant")
			if err != nil {
				return nil, err
			}
			variant := ast.RichEnumVariant{Name: vnameTok.Literal}
			if _, ok := p.accept(lexer.LPAREN); ok {
				for !p.at(lexer.RPAREN) {
					ftyp, err := p.parseType()
					if err != nil {
						return nil, err
					}
					fnameTok, err := p.expect(lexer.IDENT, "enum variant field")
					if err != nil {
						return nil, err
					}
					variant.Fields = append(variant.Fields, ast.FieldDecl{Name: fnameTok.Literal, Type: ftyp})
					if _, ok := p.accept(lexer.COMMA); ok {
						continue
					}
					break
				}
				if _, err := p.expect(lexer.RPAREN, "enum variant"); err != nil {
					return nil, err
				}
			}
			rd.Variants = append(rd.Variants, variant)
			if _, ok := p.accept(lexer.COMMA); ok {
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RBRACE, "enum body"); err != nil {
			return nil, err
		}
		return rd, nil
	}

	ed := &ast.EnumDecl{Name: nameTok.Literal}
	ed.Pos = p.pos2(tok)
	for !p.at(lexer.RBRACE) {
		vtok, err := p.expect(lexer.IDENT, "enum value")
		if err != nil {
			return nil, err
		}
		ed.Values = append(ed.Values, vtok.Literal)
		if _, ok := p.accept(lexer.COMMA); ok {
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBRACE, "enum body"); err != nil {
		return nil, err
	}
	return ed, nil
}

func (p *Parser) parseTypedefDecl() (ast.Decl, error) {
	tok := p.advance()
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT, "typedef")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI, "typedef"); err != nil {
		return nil, err
	}
	d := &ast.TypedefDecl{Name: nameTok.Literal, Type: typ}
	d.Pos = p.pos2(tok)
	return d, nil
}

func (p *Parser) parseFuncDecl() (ast.Decl, error) {
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT, "function declaration")
	if err != nil {
		return nil, err
	}
	sig := ast.FuncSig{Name: nameTok.Literal, ReturnType: retType}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	sig.Params = params

	d := &ast.FuncDecl{Sig: sig}
	d.Pos = p.pos2(nameTok)

	if _, ok := p.accept(lexer.SEMI); ok {
		return d, nil // forward declaration, no body
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	d.Body = body
	return d, nil
}

func (p *Parser) parseGlobalVarDecl() (ast.Decl, error) {
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT, "global variable declaration")
	if err != nil {
		return nil, err
	}
	d := &ast.GlobalVarDecl{Name: nameTok.Literal, Type: typ}
	d.Pos = p.pos2(nameTok)
	if _, ok := p.accept(lexer.ASSIGN); ok {
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		d.Initializer = init
	}
	if _, err := p.expect(lexer.SEMI, "global variable declaration"); err != nil {
		return nil, err
	}
	return d, nil
}
