// Package optimize runs IR-level optimization passes between IR
// generation and C emission. Currently implements dead-helper
// elimination: runtime helpers that no function body, raw C section,
// or raw expression text actually reaches are dropped from the
// module, along with any now-unreachable cascade.
package optimize

import (
	"strings"

	"github.com/btrc-lang/btrc/internal/ir"
)

// Run executes all optimization passes on module in place and returns it.
func Run(module *ir.Module) *ir.Module {
	eliminateDeadHelpers(module)
	return module
}

func eliminateDeadHelpers(module *ir.Module) {
	if len(module.HelperDecls) == 0 {
		return
	}

	used := make(map[string]bool)
	for _, fn := range module.FunctionDefs {
		if fn.Body != nil {
			collectHelperRefs(fn.Body, used)
		}
	}

	allNames := make(map[string]bool, len(module.HelperDecls))
	for _, h := range module.HelperDecls {
		allNames[h.Name] = true
	}
	for _, section := range module.RawSections {
		for name := range allNames {
			if strings.Contains(section, name) {
				used[name] = true
			}
		}
	}
	for _, fn := range module.FunctionDefs {
		if fn.Body != nil {
			scanRawExprsBlock(fn.Body, allNames, used)
		}
	}

	if len(used) == 0 {
		module.HelperDecls = nil
		return
	}

	catDeps := make(map[string]map[string]bool)
	helperToCat := make(map[string]string)
	for _, h := range module.HelperDecls {
		helperToCat[h.Name] = h.Category
		if catDeps[h.Category] == nil {
			catDeps[h.Category] = make(map[string]bool)
		}
		for _, dep := range h.DependsOn {
			catDeps[h.Category][dep] = true
		}
	}

	usedCats := make(map[string]bool)
	for name := range used {
		if cat, ok := helperToCat[name]; ok {
			usedCats[cat] = true
		}
	}

	resolved := make(map[string]bool)
	worklist := make([]string, 0, len(usedCats))
	for cat := range usedCats {
		worklist = append(worklist, cat)
	}
	for len(worklist) > 0 {
		cat := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if resolved[cat] {
			continue
		}
		resolved[cat] = true
		for dep := range catDeps[cat] {
			if !resolved[dep] {
				worklist = append(worklist, dep)
			}
		}
	}

	var kept []*ir.HelperDecl
	for _, h := range module.HelperDecls {
		if used[h.Name] || resolved[h.Category] {
			kept = append(kept, h)
		}
	}
	module.HelperDecls = kept
}

// scanRawExprsBlock scans a block for RawExpr/RawC text that mentions
// a helper name by substring, the fallback for helper uses the
// structured Call.HelperRef field cannot see (hand-written C escape
// hatches).
func scanRawExprsBlock(block *ir.Block, names map[string]bool, used map[string]bool) {
	for _, stmt := range block.Stmts {
		scanRawStmt(stmt, names, used)
	}
}

func scanRawStmt(stmt ir.Stmt, names map[string]bool, used map[string]bool) {
	switch s := stmt.(type) {
	case *ir.RawC:
		for name := range names {
			if strings.Contains(s.Text, name) {
				used[name] = true
			}
		}
	case *ir.ExprStmt:
		scanRawExpr(s.Expr, names, used)
	case *ir.VarDecl:
		if s.Init != nil {
			scanRawExpr(s.Init, names, used)
		}
	case *ir.Return:
		if s.Value != nil {
			scanRawExpr(s.Value, names, used)
		}
	case *ir.If:
		scanRawExpr(s.Condition, names, used)
		if s.ThenBlock != nil {
			scanRawExprsBlock(s.ThenBlock, names, used)
		}
		if s.ElseBlock != nil {
			scanRawExprsBlock(s.ElseBlock, names, used)
		}
	case *ir.Assign:
		if s.Target != nil {
			scanRawExpr(s.Target, names, used)
		}
		if s.Value != nil {
			scanRawExpr(s.Value, names, used)
		}
	case *ir.While:
		if s.Condition != nil {
			scanRawExpr(s.Condition, names, used)
		}
		if s.Body != nil {
			scanRawExprsBlock(s.Body, names, used)
		}
	case *ir.DoWhile:
		if s.Condition != nil {
			scanRawExpr(s.Condition, names, used)
		}
		if s.Body != nil {
			scanRawExprsBlock(s.Body, names, used)
		}
	case *ir.Switch:
		if s.Value != nil {
			scanRawExpr(s.Value, names, used)
		}
		for _, c := range s.Cases {
			for _, cs := range c.Body {
				scanRawStmt(cs, names, used)
			}
		}
	case *ir.For:
		for name := range names {
			if strings.Contains(s.Init, name) || strings.Contains(s.Condition, name) || strings.Contains(s.Update, name) {
				used[name] = true
			}
		}
		if s.Body != nil {
			scanRawExprsBlock(s.Body, names, used)
		}
	}
}

func scanRawExpr(expr ir.Expr, names map[string]bool, used map[string]bool) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *ir.RawExpr:
		for name := range names {
			if strings.Contains(e.Text, name) {
				used[name] = true
			}
		}
	case *ir.Call:
		if names[e.Callee] {
			used[e.Callee] = true
		}
		for _, a := range e.Args {
			scanRawExpr(a, names, used)
		}
	case *ir.BinOp:
		scanRawExpr(e.Left, names, used)
		scanRawExpr(e.Right, names, used)
	case *ir.Ternary:
		scanRawExpr(e.Condition, names, used)
		scanRawExpr(e.TrueExpr, names, used)
		scanRawExpr(e.FalseExpr, names, used)
	case *ir.Cast:
		scanRawExpr(e.Expr, names, used)
	case *ir.FieldAccess:
		scanRawExpr(e.Obj, names, used)
	case *ir.Index:
		scanRawExpr(e.Obj, names, used)
		scanRawExpr(e.Index, names, used)
	case *ir.AddressOf:
		scanRawExpr(e.Expr, names, used)
	case *ir.Deref:
		scanRawExpr(e.Expr, names, used)
	case *ir.UnaryOp:
		scanRawExpr(e.Operand, names, used)
	case *ir.StmtExpr:
		for _, s := range e.Stmts {
			scanRawStmt(s, names, used)
		}
		if e.Result != nil {
			scanRawExpr(e.Result, names, used)
		}
	case *ir.SpawnThread:
		if e.CaptureArg != nil {
			scanRawExpr(e.CaptureArg, names, used)
		}
	}
}

func collectHelperRefs(block *ir.Block, used map[string]bool) {
	for _, stmt := range block.Stmts {
		collectFromStmt(stmt, used)
	}
}

func collectFromStmt(stmt ir.Stmt, used map[string]bool) {
	switch s := stmt.(type) {
	case *ir.ExprStmt:
		collectFromExpr(s.Expr, used)
	case *ir.VarDecl:
		if s.Init != nil {
			collectFromExpr(s.Init, used)
		}
	case *ir.Assign:
		if s.Target != nil {
			collectFromExpr(s.Target, used)
		}
		if s.Value != nil {
			collectFromExpr(s.Value, used)
		}
	case *ir.Return:
		if s.Value != nil {
			collectFromExpr(s.Value, used)
		}
	case *ir.If:
		if s.Condition != nil {
			collectFromExpr(s.Condition, used)
		}
		if s.ThenBlock != nil {
			collectHelperRefs(s.ThenBlock, used)
		}
		if s.ElseBlock != nil {
			collectHelperRefs(s.ElseBlock, used)
		}
	case *ir.While:
		if s.Condition != nil {
			collectFromExpr(s.Condition, used)
		}
		if s.Body != nil {
			collectHelperRefs(s.Body, used)
		}
	case *ir.DoWhile:
		if s.Body != nil {
			collectHelperRefs(s.Body, used)
		}
		if s.Condition != nil {
			collectFromExpr(s.Condition, used)
		}
	case *ir.For:
		if s.Body != nil {
			collectHelperRefs(s.Body, used)
		}
	case *ir.Switch:
		if s.Value != nil {
			collectFromExpr(s.Value, used)
		}
		for _, c := range s.Cases {
			if c.Value != nil {
				collectFromExpr(c.Value, used)
			}
			for _, cs := range c.Body {
				collectFromStmt(cs, used)
			}
		}
	case *ir.RawC:
		for _, ref := range s.HelperRefs {
			used[ref] = true
		}
	}
}

func collectFromExpr(expr ir.Expr, used map[string]bool) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *ir.Call:
		if e.HelperRef != "" {
			used[e.HelperRef] = true
		}
		for _, a := range e.Args {
			collectFromExpr(a, used)
		}
	case *ir.BinOp:
		collectFromExpr(e.Left, used)
		collectFromExpr(e.Right, used)
	case *ir.UnaryOp:
		collectFromExpr(e.Operand, used)
	case *ir.FieldAccess:
		collectFromExpr(e.Obj, used)
	case *ir.Cast:
		collectFromExpr(e.Expr, used)
	case *ir.Ternary:
		collectFromExpr(e.Condition, used)
		collectFromExpr(e.TrueExpr, used)
		collectFromExpr(e.FalseExpr, used)
	case *ir.Index:
		collectFromExpr(e.Obj, used)
		collectFromExpr(e.Index, used)
	case *ir.AddressOf:
		collectFromExpr(e.Expr, used)
	case *ir.Deref:
		collectFromExpr(e.Expr, used)
	case *ir.StmtExpr:
		for _, s := range e.Stmts {
			collectFromStmt(s, used)
		}
		if e.Result != nil {
			collectFromExpr(e.Result, used)
		}
	case *ir.SpawnThread:
		if e.CaptureArg != nil {
			collectFromExpr(e.CaptureArg, used)
		}
	}
}
