package evaluator

import "github.com/swarm-lang/swarm/internal/ast"

// controlKind distinguishes the non-local exits a statement can produce.
// Go has no non-local goto, so break/continue/return are modeled as a
// distinguished error value threaded back up eval's call stack instead of
// the original's C++ exceptions (spec §4.12: "A Break terminates; Continue
// skips to the next element").
type controlKind int

const (
	ctrlBreak controlKind = iota
	ctrlContinue
	ctrlReturn
)

// control is the signal value eval returns (as its error) for Break,
// Continue, and Return. It is never shown to a caller outside this
// package — block/loop/call dispatch catch it before it escapes.
type control struct {
	kind  controlKind
	value *ast.Node // ctrlReturn only; nil means a bare return
}

func (control) Error() string { return "evaluator: unhandled control-flow signal" }

func asControl(err error) (*control, bool) {
	c, ok := err.(*control)
	return c, ok
}
