// Package ir defines the tree-structured intermediate representation
// between the resolver's analyzed AST and C text emission.
//
// All AST lowering — class layout, generic instantiation, method to
// plain-function rewriting, new/delete expansion, for-in expansion,
// f-string expansion, lambda lifting, and ARC insertion — happens
// while building this tree (package gen). The emitter (package emit)
// is a simple, mostly mechanical walk over it.
package ir

// CType is a fully-resolved C type string, e.g. "int" or
// "btrc_List_int*".
type CType struct {
	Text string
}

func (t CType) String() string { return t.Text }

// Module is the root of one translation unit (one emitted .c file).
type Module struct {
	Includes     []string
	ForwardDecls []string
	HelperDecls  []*HelperDecl
	StructDefs   []*StructDef
	GlobalVars   []string
	FunctionDefs []*FunctionDef
	RawSections  []string
}

// HelperDecl is a runtime helper function with its pre-rendered C
// source. Category groups related helpers (alloc, string, trycatch,
// hash, thread, mutex, cycle, gpu, ...); DependsOn names the
// categories this helper's body requires, for transitive reachability
// during dead-helper elimination (package optimize).
type HelperDecl struct {
	Category  string
	Name      string
	CSource   string
	DependsOn []string
}

// StructField is one field in a C struct.
type StructField struct {
	CType CType
	Name  string
}

// StructDef is a C struct definition.
type StructDef struct {
	Name   string
	Fields []StructField
}

// Param is a C function parameter.
type Param struct {
	CType CType
	Name  string
}

// FunctionDef is a C function definition.
type FunctionDef struct {
	Name       string
	ReturnType CType
	Params     []Param
	Body       *Block
	IsStatic   bool
}

// Block is a sequence of IR statements.
type Block struct {
	Stmts []Stmt
}

// Stmt is any IR statement.
type Stmt interface{ stmtNode() }

// VarDecl is a local variable declaration: `type name [= init];`.
type VarDecl struct {
	CType CType
	Name  string
	Init  Expr // nil for no initializer
}

// Assign is `target = value;`.
type Assign struct {
	Target Expr
	Value  Expr
}

// Return is a return statement; Value is nil for `return;`.
type Return struct{ Value Expr }

// If is a structured if/else; ElseBlock is nil for no else.
type If struct {
	Condition Expr
	ThenBlock *Block
	ElseBlock *Block
}

// While is a while loop.
type While struct {
	Condition Expr
	Body      *Block
}

// DoWhile is a do-while loop.
type DoWhile struct {
	Body      *Block
	Condition Expr
}

// For is a C-style for loop. Init/Condition/Update are pre-rendered C
// text, since the original AST's for-clauses are already simple C-like
// expressions with nothing further to lower.
type For struct {
	Init      string
	Condition string
	Update    string
	Body      *Block
}

// Case is one clause of a Switch. Value is nil for `default:`.
type Case struct {
	Value Expr
	Body  []Stmt
}

// Switch is a switch/case statement.
type Switch struct {
	Value Expr
	Cases []Case
}

// ExprStmt is an expression used as a statement.
type ExprStmt struct{ Expr Expr }

// RawC is an escape hatch for pre-rendered C statement text (setjmp
// boilerplate, cycle-collector bookkeeping, ...). HelperRefs lists any
// runtime helper names the text calls by name, so dead-helper
// elimination (which otherwise only sees structured Call.HelperRef)
// can still see through it.
type RawC struct {
	Text       string
	HelperRefs []string
}

type Break struct{}
type Continue struct{}

func (*VarDecl) stmtNode()  {}
func (*Assign) stmtNode()   {}
func (*Return) stmtNode()   {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*DoWhile) stmtNode()  {}
func (*For) stmtNode()      {}
func (*Switch) stmtNode()   {}
func (*ExprStmt) stmtNode() {}
func (*RawC) stmtNode()     {}
func (*Break) stmtNode()    {}
func (*Continue) stmtNode() {}

// Expr is any IR expression.
type Expr interface{ exprNode() }

// Literal is pre-rendered C literal text: "42", "\"hello\"", "NULL".
type Literal struct{ Text string }

// Var is a variable reference by its C name.
type Var struct{ Name string }

// BinOp is a binary operator application.
type BinOp struct {
	Left  Expr
	Op    string
	Right Expr
}

// UnaryOp is a prefix or postfix unary operator.
type UnaryOp struct {
	Op      string
	Operand Expr
	Prefix  bool
}

// Call is a function call. HelperRef, if non-empty, names the runtime
// helper this call depends on, so the optimizer's mark phase can
// follow it without scanning Callee text.
type Call struct {
	Callee    string
	Args      []Expr
	HelperRef string
}

// FieldAccess is `obj.field` (Arrow false) or `obj->field` (Arrow true).
type FieldAccess struct {
	Obj   Expr
	Field string
	Arrow bool
}

// Cast is an explicit C type cast.
type Cast struct {
	TargetType CType
	Expr       Expr
}

// Ternary is `cond ? trueExpr : falseExpr`.
type Ternary struct {
	Condition Expr
	TrueExpr  Expr
	FalseExpr Expr
}

// Sizeof is a `sizeof(...)` expression over pre-rendered C text (a
// type name or an expression).
type Sizeof struct{ Operand string }

// Index is `obj[index]`.
type Index struct {
	Obj   Expr
	Index Expr
}

// AddressOf is `&expr`.
type AddressOf struct{ Expr Expr }

// Deref is `*expr`.
type Deref struct{ Expr Expr }

// RawExpr is an escape hatch for pre-rendered C expression text.
type RawExpr struct{ Text string }

// StmtExpr is a GCC statement expression: `({ stmt; stmt; result; })`,
// used for f-string construction, list-literal construction, and
// thread spawn (spec §4.7).
type StmtExpr struct {
	Stmts  []Stmt
	Result Expr
}

// SpawnThread is `__btrc_thread_spawn(fnPtr, captureArg)`. FnPtr is
// the C function produced by lambda lifting; CaptureArg is the
// capture-struct pointer passed to it, or nil for no captures.
type SpawnThread struct {
	FnPtr      string
	CaptureArg Expr
}

func (*Literal) exprNode()     {}
func (*Var) exprNode()         {}
func (*BinOp) exprNode()       {}
func (*UnaryOp) exprNode()     {}
func (*Call) exprNode()        {}
func (*FieldAccess) exprNode() {}
func (*Cast) exprNode()        {}
func (*Ternary) exprNode()     {}
func (*Sizeof) exprNode()      {}
func (*Index) exprNode()       {}
func (*AddressOf) exprNode()   {}
func (*Deref) exprNode()       {}
func (*RawExpr) exprNode()     {}
func (*StmtExpr) exprNode()    {}
func (*SpawnThread) exprNode() {}
