// Package ast defines the surface syntax tree for BTRC programs.
//
// The lexer and parser are external collaborators to the transpiler
// core (see spec §6): they are responsible for producing a tree of
// these nodes. The core — resolver, IR generator, monomorphizer,
// optimizer, and emitter — only ever consumes this package.
package ast

import (
	"fmt"
	"strings"
)

// Pos is a position in a source file.
type Pos struct {
	Line   int
	Column int
	File   string
	Offset int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Span is a half-open range of source positions.
type Span struct {
	Start Pos
	End   Pos
}

// Node is implemented by every AST node.
type Node interface {
	Position() Pos
	String() string
}

// NodeID is a stable, process-wide unique key minted for every
// expression and relevant statement as it is parsed. The resolver
// uses it to key AnalyzedProgram.NodeTypes without needing pointer
// identity (see spec §3, §9 design note on name-indexed maps).
type NodeID uint64

// base embeds the fields shared by every concrete node type.
type base struct {
	Pos Pos
	ID  NodeID
}

func (b base) Position() Pos { return b.Pos }

// TypeExpr is the tagged structure describing a surface type.
//
// Base is a primitive name ("int", "string", ...), a built-in generic
// ("List", "Map", "Set"), a user class name, the tuple marker "Tuple",
// or the synthetic "__fn_ptr". Args holds ordered type arguments.
// A type is concrete iff no base name (recursively) is a single
// uppercase letter and every argument is concrete.
type TypeExpr struct {
	Base          string
	Args          []*TypeExpr
	PointerDepth  int
	IsArray       bool
	ArraySize     Expr // compile-time array-size expression, or nil
	IsConst       bool
}

func (t *TypeExpr) String() string {
	if t == nil {
		return "void"
	}
	var sb strings.Builder
	if t.IsConst {
		sb.WriteString("const ")
	}
	sb.WriteString(t.Base)
	if len(t.Args) > 0 {
		sb.WriteString("<")
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
		sb.WriteString(">")
	}
	sb.WriteString(strings.Repeat("*", t.PointerDepth))
	if t.IsArray {
		sb.WriteString("[]")
	}
	return sb.String()
}

// IsTypeParam reports whether base is a single uppercase letter
// (T, K, V, ...), the surface syntax for a generic type parameter.
func IsTypeParam(base string) bool {
	return len(base) == 1 && base[0] >= 'A' && base[0] <= 'Z'
}

// IsConcrete reports whether t contains no unresolved type parameters.
func (t *TypeExpr) IsConcrete() bool {
	if t == nil {
		return true
	}
	if IsTypeParam(t.Base) {
		return false
	}
	for _, a := range t.Args {
		if !a.IsConcrete() {
			return false
		}
	}
	return true
}

// Program is the root of a parsed translation unit: an ordered
// sequence of top-level declarations, exactly as the resolver and IR
// generator walk it.
type Program struct {
	Decls []Decl
}

func (p *Program) Position() Pos { return Pos{} }
func (p *Program) String() string {
	var sb strings.Builder
	for _, d := range p.Decls {
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Decl is any top-level declaration.
type Decl interface {
	Node
	declNode()
}
