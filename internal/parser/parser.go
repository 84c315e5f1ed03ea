// Package parser is a recursive-descent parser producing the
// internal/ast tree the transpiler core consumes. Like the lexer, it
// is an external collaborator to the core (spec §6): the core is
// specified purely in terms of the AST this package produces.
package parser

import (
	"fmt"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/lexer"
)

// Error is a parser diagnostic (spec §7.2): one message, one
// location.
type Error struct {
	Message string
	Pos     ast.Pos
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Pos.File, e.Pos.Line, e.Pos.Column, e.Message)
}

// Parser holds the token buffer and cursor for one translation unit.
type Parser struct {
	file   string
	toks   []lexer.Token
	pos    int
	nextID uint64
}

// Parse lexes and parses src (named file for diagnostics) into a
// Program, or returns the first lexer/parser Error encountered.
func Parse(file, src string) (*ast.Program, error) {
	toks, err := lexer.All(file, src)
	if err != nil {
		if le, ok := err.(*lexer.Error); ok {
			return nil, &Error{Message: le.Message, Pos: ast.Pos{File: le.File, Line: le.Line, Column: le.Column}}
		}
		return nil, err
	}
	p := &Parser{file: file, toks: toks}
	return p.parseProgram()
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peekN(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *Parser) peek() lexer.Token { return p.peekN(1) }

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(tt lexer.TokenType) bool { return p.cur().Type == tt }

func (p *Parser) accept(tt lexer.TokenType) (lexer.Token, bool) {
	if p.at(tt) {
		return p.advance(), true
	}
	return lexer.Token{}, false
}

func (p *Parser) expect(tt lexer.TokenType, context string) (lexer.Token, error) {
	if p.at(tt) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errorf("expected token in %s, got %q", context, p.cur().Literal)
}

func (p *Parser) pos2(t lexer.Token) ast.Pos {
	return ast.Pos{File: p.file, Line: t.Line, Column: t.Column, Offset: t.Offset}
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return &Error{Message: fmt.Sprintf(format, args...), Pos: p.pos2(p.cur())}
}

func (p *Parser) freshID() ast.NodeID {
	p.nextID++
	return ast.NodeID(p.nextID)
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.at(lexer.EOF) {
		d, err := p.parseTopLevelDecl()
		if err != nil {
			return nil, err
		}
		if d != nil {
			prog.Decls = append(prog.Decls, d)
		}
	}
	return prog, nil
}
