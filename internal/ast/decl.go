package ast

import "strings"

// Param is a function/method/constructor parameter.
type Param struct {
	Name    string
	Type    *TypeExpr
	Default Expr // nil if no default
	Keep    bool // `keep` annotation — see spec §4.6
}

// FuncSig is a callable signature shared by functions, methods, and
// constructors.
type FuncSig struct {
	Name       string
	Params     []Param
	ReturnType *TypeExpr
	Generics   []string // single-uppercase-letter type parameters
	IsStatic   bool
	IsAbstract bool
	KeepReturn bool // see spec §4.6
}

// FuncDecl is a top-level function declaration (or forward decl, when
// Body is nil).
type FuncDecl struct {
	base
	Sig  FuncSig
	Body *Block // nil for a forward declaration
}

func (d *FuncDecl) declNode() {}
func (d *FuncDecl) String() string { return "func " + d.Sig.Name }

// FieldDecl is a class or struct field.
type FieldDecl struct {
	base
	Name        string
	Type        *TypeExpr
	Initializer Expr // nil if none
}

func (d *FieldDecl) declNode()      {}
func (d *FieldDecl) String() string { return "field " + d.Name }

// PropertyDecl is a class property with optional custom getter/setter.
type PropertyDecl struct {
	base
	Name   string
	Type   *TypeExpr
	Getter *Block // nil => auto-getter returns backing field
	Setter *Block // nil => auto-setter assigns backing field; SetterParam names the value param
	SetterParam string
}

func (d *PropertyDecl) declNode()      {}
func (d *PropertyDecl) String() string { return "property " + d.Name }

// MethodDecl is a method inside a class body.
type MethodDecl struct {
	base
	Sig  FuncSig
	Body *Block // nil for abstract/forward
}

func (d *MethodDecl) declNode()      {}
func (d *MethodDecl) String() string { return "method " + d.Sig.Name }

// Member is any class-body member: FieldDecl, PropertyDecl, or
// MethodDecl (the constructor is lowered as a MethodDecl whose Name
// equals the class name).
type Member interface {
	Node
	declNode()
}

// ClassDecl is a class declaration with optional inheritance and
// generic parameters.
type ClassDecl struct {
	base
	Name     string
	Parent   string // "" if no parent
	Generics []string
	Members  []Member
	IsAbstract bool
}

func (d *ClassDecl) declNode() {}
func (d *ClassDecl) String() string {
	s := "class " + d.Name
	if d.Parent != "" {
		s += " extends " + d.Parent
	}
	return s
}

// InterfaceDecl declares a set of required method signatures.
type InterfaceDecl struct {
	base
	Name    string
	Extends []string
	Methods []FuncSig
}

func (d *InterfaceDecl) declNode()      {}
func (d *InterfaceDecl) String() string { return "interface " + d.Name }

// StructDecl is a plain (non-ARC-managed) aggregate.
type StructDecl struct {
	base
	Name   string
	Fields []FieldDecl
}

func (d *StructDecl) declNode()      {}
func (d *StructDecl) String() string { return "struct " + d.Name }

// EnumDecl is a simple enumeration of bare names.
type EnumDecl struct {
	base
	Name   string
	Values []string
}

func (d *EnumDecl) declNode()      {}
func (d *EnumDecl) String() string { return "enum " + d.Name }

// RichEnumVariant is one variant of a tagged-union enum, optionally
// carrying named, typed payload fields.
type RichEnumVariant struct {
	Name   string
	Fields []FieldDecl
}

// RichEnumDecl is a tagged-union ("rich") enum.
type RichEnumDecl struct {
	base
	Name     string
	Variants []RichEnumVariant
}

func (d *RichEnumDecl) declNode()      {}
func (d *RichEnumDecl) String() string { return "enum " + d.Name + " { ... }" }

// TypedefDecl is a type alias.
type TypedefDecl struct {
	base
	Name string
	Type *TypeExpr
}

func (d *TypedefDecl) declNode()      {}
func (d *TypedefDecl) String() string { return "typedef " + d.Name }

// GlobalVarDecl is a top-level variable; it becomes a static C global.
type GlobalVarDecl struct {
	base
	Name        string
	Type        *TypeExpr
	Initializer Expr
}

func (d *GlobalVarDecl) declNode()      {}
func (d *GlobalVarDecl) String() string { return "var " + d.Name }

// PreprocDecl is a verbatim preprocessor directive, or an #include
// whose filename the resolver/driver must pick up.
type PreprocDecl struct {
	base
	Text         string
	IsInclude    bool
	IncludeFile  string // populated when IsInclude
}

func (d *PreprocDecl) declNode() {}
func (d *PreprocDecl) String() string {
	return strings.TrimSpace(d.Text)
}
