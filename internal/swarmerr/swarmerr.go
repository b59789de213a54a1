// Package swarmerr defines the typed error kinds produced by every stage of
// the Swarm pipeline, from static analysis through remote job execution.
package swarmerr

import "fmt"

// Kind identifies the class of a Swarm error, matching spec §7.
type Kind string

const (
	Parse             Kind = "PARSE"
	FreeSymbol        Kind = "FREE_SYMBOL"
	NameUndeclared    Kind = "NAME_UNDECLARED"
	NameRedeclared    Kind = "NAME_REDECLARATION"
	NameSharedViolate Kind = "NAME_SHARED_VIOLATION"
	TypeMismatch      Kind = "TYPE_MISMATCH"
	TypeAmbiguous     Kind = "TYPE_AMBIGUOUS"
	Runtime           Kind = "RUNTIME"
	LockTimeout       Kind = "LOCK_TIMEOUT"
	QueueExecution    Kind = "QUEUE_EXECUTION"
	Serialization     Kind = "SERIALIZATION"
)

// Position is the minimal source-location payload an Error can carry. It
// mirrors position.Position but lives here because package position
// imports swarmerr (position.Position.ToSwarmerr converts to this type).
type Position struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Error is a single static or runtime failure.
type Error struct {
	Kind Kind
	Msg  string
	Pos  *Position // nil when the error has no associated source location
	Err  error     // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Pos != nil {
		return fmt.Sprintf("%s at %s:%d:%d: %s", e.Kind, e.Pos.File, e.Pos.StartLine, e.Pos.StartCol, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a positionless error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// At builds an error of the given kind anchored to a source position.
func At(kind Kind, pos Position, format string, args ...any) *Error {
	p := pos
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: &p}
}

// Wrap annotates an existing error with a Swarm error kind, preserving it as
// the unwrap chain's cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// List accumulates errors from a pass that does not stop at the first
// failure (name analysis, type analysis — spec §4.5: "Type errors are
// collected, not thrown").
type List struct {
	Errors []*Error
}

func (l *List) Add(err *Error) { l.Errors = append(l.Errors, err) }

func (l *List) HasErrors() bool { return len(l.Errors) > 0 }

func (l *List) Error() string {
	if len(l.Errors) == 0 {
		return ""
	}
	if len(l.Errors) == 1 {
		return l.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more error(s))", l.Errors[0].Error(), len(l.Errors)-1)
}

// AsList returns nil if the list is empty, so callers can say
// `if err := errs.AsList(); err != nil { return err }`.
func (l *List) AsList() error {
	if l == nil || len(l.Errors) == 0 {
		return nil
	}
	return l
}
