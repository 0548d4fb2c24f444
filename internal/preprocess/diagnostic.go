package preprocess

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/asmacro/internal/macro"
	"github.com/leapstack-labs/asmacro/internal/source"
)

// ErrNestingLimit is returned when macro invocations nest deeper than
// Config.MaxNesting. It aborts processing.
var ErrNestingLimit = errors.New("macros nested too deeply")

// Severity ranks a diagnostic.
type Severity int

// Diagnostic severities.
const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one problem found while processing. Processing continues
// after a diagnostic.
type Diagnostic struct {
	Pos      source.Position
	Where    string
	Severity Severity
	Message  string
	Err      error `json:"-" yaml:"-"`
}

func (d Diagnostic) String() string {
	where := d.Where
	if where == "" {
		where = d.Pos.String()
	}
	return fmt.Sprintf("%s: %s: %s", where, d.Severity, d.Message)
}

// Result summarizes one processing run.
type Result struct {
	Lines       int
	Expansions  int
	Definitions int
	Repeats     int
	Diagnostics []Diagnostic
}

// ErrorCount returns the number of error diagnostics.
func (r *Result) ErrorCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error diagnostic was recorded.
func (r *Result) HasErrors() bool { return r.ErrorCount() > 0 }

// diagnosticMessage strips the position from engine errors, which the
// diagnostic already carries.
func diagnosticMessage(err error) string {
	var merr *macro.Error
	if errors.As(err, &merr) {
		msg := merr.Msg
		if msg == "" {
			msg = merr.Kind.Error()
		}
		if merr.Macro != "" {
			return fmt.Sprintf("macro %q: %s", merr.Macro, msg)
		}
		return msg
	}
	return err.Error()
}
