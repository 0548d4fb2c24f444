// Package macro implements assembler macro definition and expansion: macros
// with formal parameters and defaults, local-symbol generation that stays
// unique across nested invocations, and .irp/.irpc/.rept repeat blocks.
//
// An Engine is single-threaded. Hosts that share one across goroutines must
// serialize access themselves; independent engines do not share state.
package macro

import (
	"log/slog"
)

// Default configuration values.
const (
	DefaultVarargSeparator = ","
	DefaultLocalPrefix     = ".L"
)

// Config holds engine configuration.
type Config struct {
	// AlternateSyntax enables .altmacro rules: bare formal names, <...>
	// quoting, ! escapes and %expr actuals.
	AlternateSyntax bool
	// CaseFold makes macro and formal names case-insensitive.
	CaseFold bool
	// MRI enables MRI compatibility: label-named headers, name.qualifier
	// invocations, \0, \1..\9 and NARG.
	MRI bool
	// WarnRedefinition logs a warning when a definition replaces another.
	WarnRedefinition bool
	// VarargSeparator joins actuals absorbed by a vararg formal.
	VarargSeparator string
	// LocalPrefix starts every generated local symbol.
	LocalPrefix string
	// Counter reports how many pseudo-ops the host has processed so far.
	Counter func() int
	// Evaluate turns an expression into an integer. Used for %expr actuals and
	// .rept counts; nil restricts both to integer literals.
	Evaluate func(expr string) (int64, error)
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Engine holds the macro table and all expansion state.
type Engine struct {
	cfg       Config
	table     *Table
	logger    *slog.Logger
	alternate bool
	mri       bool
	seq       int
	nesting   int
}

// New creates an engine. Case folding is fixed for the engine's lifetime;
// the syntax modes can be toggled later.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.VarargSeparator == "" {
		cfg.VarargSeparator = DefaultVarargSeparator
	}
	if cfg.LocalPrefix == "" {
		cfg.LocalPrefix = DefaultLocalPrefix
	}

	logger.Debug("initializing macro engine",
		"alternate", cfg.AlternateSyntax, "mri", cfg.MRI, "case_fold", cfg.CaseFold)

	return &Engine{
		cfg:       cfg,
		table:     NewTable(cfg.CaseFold),
		logger:    logger,
		alternate: cfg.AlternateSyntax,
		mri:       cfg.MRI,
	}
}

// SetAlternate switches alternate macro syntax on or off.
func (e *Engine) SetAlternate(on bool) { e.alternate = on }

// SetMRI switches MRI compatibility on or off.
func (e *Engine) SetMRI(on bool) { e.mri = on }

// Alternate reports whether alternate syntax is active.
func (e *Engine) Alternate() bool { return e.alternate }

// MRI reports whether MRI compatibility is active.
func (e *Engine) MRI() bool { return e.mri }

// Lookup finds a macro definition by name.
func (e *Engine) Lookup(name string) (*Macro, bool) { return e.table.Lookup(name) }

// DeleteMacro removes a definition. Unknown names are ignored.
func (e *Engine) DeleteMacro(name string) {
	e.logger.Debug("deleting macro", "name", name)
	e.table.Undefine(name)
}

// AnyDefined reports whether any macro was ever defined. Hosts use it to skip
// invocation scanning entirely.
func (e *Engine) AnyDefined() bool { return e.table.AnyDefined() }

// Macros returns the live definitions sorted by name.
func (e *Engine) Macros() []*Macro {
	names := e.table.Names()
	out := make([]*Macro, 0, len(names))
	for _, n := range names {
		m, _ := e.table.Lookup(n)
		out = append(out, m)
	}
	return out
}

// Nesting returns the number of expansions that are still open.
func (e *Engine) Nesting() int { return e.nesting }

// Sequence returns the number of macro invocations expanded so far.
func (e *Engine) Sequence() int { return e.seq }

func (e *Engine) pseudoOps() int {
	if e.cfg.Counter == nil {
		return 0
	}
	return e.cfg.Counter()
}

// substitutesBare reports whether formal names are recognized without a
// leading backslash.
func (e *Engine) substitutesBare() bool { return e.alternate || e.mri }
