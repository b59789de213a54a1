package analyzer

import (
	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/symbols"
)

// Options toggles the optional post-analysis passes (spec §4.6, §6's
// `--no-remove-self-assigns` / `--no-constant-propagation` CLI switches)
// and whether the prologue's built-in bindings are predeclared (spec §6's
// `--without-prologue`).
type Options struct {
	RemoveSelfAssignments bool
	ConstantPropagation   bool
	WithPrologue          bool
}

// DefaultOptions matches the CLI's default (both optimizations and the
// prologue on).
func DefaultOptions() Options {
	return Options{RemoveSelfAssignments: true, ConstantPropagation: true, WithPrologue: true}
}

// Analyze runs name analysis followed by type analysis over prog, halting
// before the next stage if either pass collected errors (spec §7 policy:
// "the pipeline halts before the next stage if any were collected"). On
// success it returns the populated symbol table, with the optional
// optimization passes already applied to prog's statement lists.
func Analyze(prog *ast.Node, opts Options) (*symbols.Table, error) {
	names := NewNameAnalyzer()
	if opts.WithPrologue {
		RegisterPrologue(names.table)
	}
	table, err := names.Analyze(prog)
	if err != nil {
		return nil, err
	}

	types := NewTypeAnalyzer()
	if err := types.Analyze(prog); err != nil {
		return nil, err
	}

	if opts.RemoveSelfAssignments {
		prog.Statements = RemoveSelfAssignments(prog.Statements)
	}
	if opts.ConstantPropagation {
		prog.Statements = ConstantPropagate(prog.Statements)
	}

	return table, nil
}
