package parser

import (
	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/lexer"
)

// parseType parses a TypeExpr: base name, optional `<args>`, optional
// trailing `*` pointer markers, optional trailing `[]` array marker,
// optional leading `const`.
func (p *Parser) parseType() (*ast.TypeExpr, error) {
	isConst := false
	if p.at(lexer.IDENT) && p.cur().Literal == "const" {
		isConst = true
		p.advance()
	}

	baseTok, err := p.expect(lexer.IDENT, "type name")
	if err != nil {
		return nil, err
	}
	t := &ast.TypeExpr{Base: baseTok.Literal, IsConst: isConst}

	if _, ok := p.accept(lexer.LT); ok {
		for {
			arg, err := p.parseType()
			if err != nil {
				return nil, err
			}
			t.Args = append(t.Args, arg)
			if _, ok := p.accept(lexer.COMMA); ok {
				continue
			}
			break
		}
		if _, err := p.expect(lexer.GT, "generic type argument list"); err != nil {
			return nil, err
		}
	}

	for {
		if _, ok := p.accept(lexer.STAR); ok {
			t.PointerDepth++
			continue
		}
		break
	}

	if p.at(lexer.LBRACKET) {
		la := p.peek()
		if la.Type == lexer.RBRACKET {
			p.advance()
			p.advance()
			t.IsArray = true
		}
	}

	return t, nil
}

// parseFnPtrType parses the synthetic `__fn_ptr(Ret, P1, P2)` surface
// form for function-pointer typed parameters/fields.
func (p *Parser) parseFnPtrType() (*ast.TypeExpr, error) {
	if _, err := p.expect(lexer.LPAREN, "function pointer type"); err != nil {
		return nil, err
	}
	t := &ast.TypeExpr{Base: "__fn_ptr"}
	for !p.at(lexer.RPAREN) {
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		t.Args = append(t.Args, arg)
		if _, ok := p.accept(lexer.COMMA); ok {
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN, "function pointer type"); err != nil {
		return nil, err
	}
	return t, nil
}

// parseGenericParams parses an optional `<T, K, V>` class/function
// generic parameter list, returning the bare names.
func (p *Parser) parseGenericParams() ([]string, error) {
	if _, ok := p.accept(lexer.LT); !ok {
		return nil, nil
	}
	var names []string
	for {
		tok, err := p.expect(lexer.IDENT, "generic parameter")
		if err != nil {
			return nil, err
		}
		names = append(names, tok.Literal)
		if _, ok := p.accept(lexer.COMMA); ok {
			continue
		}
		break
	}
	if _, err := p.expect(lexer.GT, "generic parameter list"); err != nil {
		return nil, err
	}
	return names, nil
}
