// Package position defines the immutable source-span type shared by the
// ast and symbols packages, kept standalone so neither has to import the
// other just to describe where something came from (spec §3 "Position").
// swarmerr has its own Position type; ToSwarmerr converts to it.
package position

import "github.com/swarm-lang/swarm/internal/swarmerr"

// Position is (file, start_line, start_col, end_line, end_col).
type Position struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// ToSwarmerr adapts a Position for use in a swarmerr.Error.
func (p Position) ToSwarmerr() swarmerr.Position {
	return swarmerr.Position{
		File:      p.File,
		StartLine: p.StartLine,
		StartCol:  p.StartCol,
		EndLine:   p.EndLine,
		EndCol:    p.EndCol,
	}
}
