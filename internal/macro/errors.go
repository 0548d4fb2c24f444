package macro

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error unwraps to exactly one of these so callers can
// classify failures with errors.Is. A failure caused by another error, such
// as a read error, also unwraps to that cause.
var (
	ErrUndefined       = errors.New("undefined macro")
	ErrMissingArg      = errors.New("missing required argument")
	ErrTooManyArgs     = errors.New("too many positional arguments")
	ErrUnknownParam    = errors.New("no such parameter")
	ErrDuplicateArg    = errors.New("argument specified more than once")
	ErrDuplicateFormal = errors.New("duplicate parameter")
	ErrMalformedHeader = errors.New("malformed header")
	ErrVarargNotLast   = errors.New("vararg parameter must be last")
	ErrUnterminated    = errors.New("unterminated block")
	ErrBadCount        = errors.New("bad repeat count")
	ErrLocalConflict   = errors.New("local symbol conflicts with parameter")
	ErrEvaluate        = errors.New("expression evaluation failed")
	ErrRead            = errors.New("reading source failed")
)

// Position identifies a source line.
type Position struct {
	File string
	Line int
}

func (p Position) String() string {
	switch {
	case p.File == "" && p.Line == 0:
		return "<unknown>"
	case p.File == "":
		return fmt.Sprintf("%d", p.Line)
	case p.Line == 0:
		return p.File
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Error is the error type returned by every engine operation.
type Error struct {
	Pos   Position
	Macro string // empty when no macro is involved yet
	Kind  error
	Msg   string
	Err   error // underlying cause, if any
}

func newError(pos Position, macro string, kind error, format string, args ...any) *Error {
	return &Error{Pos: pos, Macro: macro, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Macro != "" {
		return fmt.Sprintf("%s: macro %q: %s", e.Pos, e.Macro, msg)
	}
	return fmt.Sprintf("%s: %s", e.Pos, msg)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}
