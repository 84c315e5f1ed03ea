package ast

// Stmt is any surface statement.
type Stmt interface {
	Node
	stmtNode()
}

// Block is a braced sequence of statements; it is also the unit the
// IR generator pushes/pops an ARC-managed scope around (spec §3, §4.6).
type Block struct {
	base
	Stmts []Stmt
}

func (b *Block) stmtNode()      {}
func (b *Block) String() string { return "{ ... }" }

// LocalVarDecl declares a local variable, optionally with an
// initializer.
type LocalVarDecl struct {
	base
	Name        string
	Type        *TypeExpr
	Initializer Expr
}

func (s *LocalVarDecl) stmtNode()      {}
func (s *LocalVarDecl) String() string { return "var " + s.Name }

// AssignStmt is `target = value;` or a compound form (`+=`, ...).
type AssignStmt struct {
	base
	Target Expr
	Op     string // "=", "+=", "-=", ...
	Value  Expr
}

func (s *AssignStmt) stmtNode()      {}
func (s *AssignStmt) String() string { return "assign" }

// ReturnStmt is `return [expr];`.
type ReturnStmt struct {
	base
	Value Expr // nil for bare return
}

func (s *ReturnStmt) stmtNode()      {}
func (s *ReturnStmt) String() string { return "return" }

// IfStmt is `if (cond) then [else else_]`.
type IfStmt struct {
	base
	Cond Expr
	Then *Block
	Else *Block // nil, or a single-statement block for `else if`
}

func (s *IfStmt) stmtNode()      {}
func (s *IfStmt) String() string { return "if" }

// WhileStmt is a pre-test loop.
type WhileStmt struct {
	base
	Cond Expr
	Body *Block
}

func (s *WhileStmt) stmtNode()      {}
func (s *WhileStmt) String() string { return "while" }

// DoWhileStmt is a post-test loop.
type DoWhileStmt struct {
	base
	Body *Block
	Cond Expr
}

func (s *DoWhileStmt) stmtNode()      {}
func (s *DoWhileStmt) String() string { return "do-while" }

// ForStmt is a C-style three-clause for loop.
type ForStmt struct {
	base
	Init   Stmt // LocalVarDecl or AssignStmt or ExprStmt, or nil
	Cond   Expr
	Update Stmt
	Body   *Block
	// ParallelHint marks a surface `parallel for`, lowered to a
	// serial for in this version (spec §6 input feature list).
	ParallelHint bool
}

func (s *ForStmt) stmtNode()      {}
func (s *ForStmt) String() string { return "for" }

// ForInStmt is `for x in xs { ... }` over a List/Map/Set or enum.
type ForInStmt struct {
	base
	VarName  string
	KeyName  string // non-empty for `for k, v in map`
	Iterable Expr
	Body     *Block
}

func (s *ForInStmt) stmtNode()      {}
func (s *ForInStmt) String() string { return "for-in" }

// SwitchStmt pattern-matches a value against a sequence of cases.
type SwitchStmt struct {
	base
	Value Expr
	Cases []SwitchCase
}

func (s *SwitchStmt) stmtNode()      {}
func (s *SwitchStmt) String() string { return "switch" }

// SwitchCase is a single `case value:` or `default:` clause.
type SwitchCase struct {
	Value Expr // nil for default
	Body  []Stmt
}

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	base
	Expr Expr
}

func (s *ExprStmt) stmtNode()      {}
func (s *ExprStmt) String() string { return "expr-stmt" }

// BreakStmt / ContinueStmt.
type BreakStmt struct{ base }

func (s *BreakStmt) stmtNode()      {}
func (s *BreakStmt) String() string { return "break" }

type ContinueStmt struct{ base }

func (s *ContinueStmt) stmtNode()      {}
func (s *ContinueStmt) String() string { return "continue" }

// ReleaseStmt is `release x;` — see spec §4.6.
type ReleaseStmt struct {
	base
	Target Expr
}

func (s *ReleaseStmt) stmtNode()      {}
func (s *ReleaseStmt) String() string { return "release" }

// DeleteStmt is `delete x;` for non-ARC (manually owned) pointers.
type DeleteStmt struct {
	base
	Target Expr
}

func (s *DeleteStmt) stmtNode()      {}
func (s *DeleteStmt) String() string { return "delete" }

// ThrowStmt is `throw expr;`.
type ThrowStmt struct {
	base
	Value Expr
}

func (s *ThrowStmt) stmtNode()      {}
func (s *ThrowStmt) String() string { return "throw" }

// TryStmt is `try { } catch (Type name) { } ... finally { }`.
type TryStmt struct {
	base
	Try      *Block
	Catches  []CatchClause
	Finally  *Block // nil if absent
}

func (s *TryStmt) stmtNode()      {}
func (s *TryStmt) String() string { return "try" }

// CatchClause is one `catch (Type name) { ... }` clause.
type CatchClause struct {
	Type *TypeExpr
	Name string
	Body *Block
}

// PreprocStmt is a verbatim preprocessor line inside a function body
// (rare, but the grammar allows it for inline `#include`-style escape
// hatches used by stdlib sources).
type PreprocStmt struct {
	base
	Text string
}

func (s *PreprocStmt) stmtNode()      {}
func (s *PreprocStmt) String() string { return "preproc" }
