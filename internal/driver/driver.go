// Package driver orchestrates the lexer→parser→resolver→IR→optimizer
// →emitter pipeline (spec §2's "Driver" row) and preloads the
// standard-library sources ahead of the user's own, applying the
// shadowing policy in internal/stdlib before a single combined source
// is parsed and resolved as one program.
package driver

import (
	"fmt"

	"github.com/btrc-lang/btrc/internal/ast"
	"github.com/btrc-lang/btrc/internal/diag"
	"github.com/btrc-lang/btrc/internal/emit"
	"github.com/btrc-lang/btrc/internal/gen"
	"github.com/btrc-lang/btrc/internal/optimize"
	"github.com/btrc-lang/btrc/internal/parser"
	"github.com/btrc-lang/btrc/internal/resolve"
	"github.com/btrc-lang/btrc/internal/stdlib"
)

// Options controls how Compile renders its output (spec §6's
// `--no-runtime` flag, threaded through from cmd/btrc's cobra bindings
// rather than read from globals here). The `--emit-*` flags need no
// option: cmd/btrc reads the stage it wants off Result.
type Options struct {
	NoRuntime bool
}

// Result carries every stage's output so the CLI's --emit-* flags can
// inspect whichever one the user asked for without recomputing it.
type Result struct {
	UserProgram *ast.Program
	Analyzed    *resolve.AnalyzedProgram
	Module      string // pre-optimization C source
	Optimized   string // post-optimization C source
	C           string // final emitted C (== Optimized)
}

// Compile runs the full pipeline over a single BTRC source file's
// text. The stdlib is preloaded first: a quick parse of the user's own
// source discovers which class names it declares, internal/stdlib.Filter
// drops any stdlib file the user shadows, and the filtered stdlib text
// is prepended to the user's source before the combined program is
// parsed and resolved for real (so library classes referenced from
// user code are visible in the same class table).
func Compile(filename, source string, opts Options) (*Result, error) {
	userOnly, err := parser.Parse(filename, source)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	userClasses := map[string]bool{}
	for _, d := range userOnly.Decls {
		if cd, ok := d.(*ast.ClassDecl); ok {
			userClasses[cd.Name] = true
		}
	}

	combinedSrc := stdlib.Filter(userClasses) + source
	prog, err := parser.Parse(filename, combinedSrc)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	analyzed := resolve.Resolve(filename, prog)
	if len(analyzed.Errors) > 0 {
		return nil, reportErrs(analyzed.Errors, combinedSrc)
	}

	module := gen.Generate(analyzed)
	if opts.NoRuntime {
		module.HelperDecls = nil
	}
	unoptimized := emit.Module(module)

	optimized := optimize.Run(module)
	optimizedC := emit.Module(optimized)

	return &Result{
		UserProgram: userOnly,
		Analyzed:    analyzed,
		Module:      unoptimized,
		Optimized:   optimizedC,
		C:           optimizedC,
	}, nil
}

// reportErrs formats every resolver error (spec §7: all are printed,
// not just the first) and joins them into one error for the caller to
// print verbatim before exiting 1.
func reportErrs(reports []*diag.Report, source string) error {
	var out string
	for i, r := range reports {
		if i > 0 {
			out += "\n\n"
		}
		out += r.Format(source)
	}
	return fmt.Errorf("%s", out)
}
