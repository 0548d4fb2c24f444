// Package preprocess drives the macro engine over assembler source. It reads
// lines through a source stack, handles macro, repeat, conditional and include
// directives, re-reads expansion text so nested invocations expand, and writes
// everything else through unchanged.
package preprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/leapstack-labs/asmacro/internal/eval"
	"github.com/leapstack-labs/asmacro/internal/macro"
	"github.com/leapstack-labs/asmacro/internal/source"
)

// DefaultMaxNesting bounds nested macro invocations unless configured.
const DefaultMaxNesting = 1000

// Config holds processor configuration.
type Config struct {
	// AlternateSyntax starts in .altmacro mode.
	AlternateSyntax bool
	// MRI starts in MRI compatibility mode.
	MRI bool
	// CaseFold makes macro names case-insensitive.
	CaseFold bool
	// WarnRedefinition reports macros that replace an earlier definition.
	WarnRedefinition bool
	// VarargSeparator joins actuals absorbed by a vararg parameter.
	VarargSeparator string
	// LocalPrefix starts generated local symbols.
	LocalPrefix string
	// MaxNesting aborts processing when invocations nest deeper. Zero means
	// DefaultMaxNesting; negative disables the limit.
	MaxNesting int
	// IncludeDirs are searched for .include files after the including
	// file's directory.
	IncludeDirs []string
	// Evaluator supplies symbol values for expressions. A fresh one is
	// created when nil.
	Evaluator *eval.Evaluator
	// OnDiagnostic, when set, sees each diagnostic as soon as it is raised.
	OnDiagnostic func(Diagnostic)
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Processor expands macros in assembler source. Definitions persist across
// calls, so one processor can be fed several inputs in sequence.
type Processor struct {
	cfg       Config
	engine    *macro.Engine
	eval      *eval.Evaluator
	stack     *source.Stack
	conds     condStack
	pseudoOps int
	logger    *slog.Logger

	out    io.Writer
	result *Result
	// position of the line being processed, kept for diagnostics raised
	// after the stack has moved on
	pos   source.Position
	where string
}

// New creates a processor.
func New(cfg Config) *Processor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxNesting == 0 {
		cfg.MaxNesting = DefaultMaxNesting
	}
	ev := cfg.Evaluator
	if ev == nil {
		ev = eval.New(logger)
	}

	p := &Processor{
		cfg:    cfg,
		eval:   ev,
		stack:  source.NewStack(),
		logger: logger,
	}
	p.engine = macro.New(macro.Config{
		AlternateSyntax:  cfg.AlternateSyntax,
		CaseFold:         cfg.CaseFold,
		MRI:              cfg.MRI,
		WarnRedefinition: cfg.WarnRedefinition,
		VarargSeparator:  cfg.VarargSeparator,
		LocalPrefix:      cfg.LocalPrefix,
		Counter:          func() int { return p.pseudoOps },
		Evaluate:         ev.Eval,
		Logger:           logger,
	})
	return p
}

// Engine returns the underlying macro engine.
func (p *Processor) Engine() *macro.Engine { return p.engine }

// Evaluator returns the expression evaluator holding assigned symbols.
func (p *Processor) Evaluator() *eval.Evaluator { return p.eval }

// Process expands the source read from r and writes the result to w.
func (p *Processor) Process(ctx context.Context, name string, r io.Reader, w io.Writer) (*Result, error) {
	p.stack.PushReader(name, r, nil)
	return p.run(ctx, w)
}

// ProcessFile expands the file at path.
func (p *Processor) ProcessFile(ctx context.Context, path string, w io.Writer) (*Result, error) {
	if err := p.stack.PushFile(path); err != nil {
		return nil, err
	}
	return p.run(ctx, w)
}

// ProcessLines expands lines pulled from src until it returns io.EOF.
func (p *Processor) ProcessLines(ctx context.Context, name string, src source.LineReader, w io.Writer) (*Result, error) {
	p.stack.PushLines(name, src, nil)
	return p.run(ctx, w)
}

func (p *Processor) run(ctx context.Context, w io.Writer) (*Result, error) {
	p.out = w
	p.result = &Result{}
	res := p.result

	for {
		if err := ctx.Err(); err != nil {
			_ = p.stack.Close()
			return res, err
		}
		line, err := p.stack.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = p.stack.Close()
			return res, err
		}
		res.Lines++
		if err := p.processLine(line); err != nil {
			_ = p.stack.Close()
			return res, err
		}
	}

	if n := p.conds.depth(); n > 0 {
		p.diagnose(SeverityError, fmt.Sprintf("%d conditional block(s) missing .endif", n), nil)
		p.conds.reset()
	}
	p.logger.Debug("processing complete",
		"lines", res.Lines, "expansions", res.Expansions, "definitions", res.Definitions,
		"diagnostics", len(res.Diagnostics))
	return res, nil
}

// processLine handles one input line. Only fatal conditions are returned as
// errors; everything else becomes a diagnostic.
func (p *Processor) processLine(line string) error {
	p.pos, p.where = p.stack.Position(), p.stack.Where()

	d, isDirective := macro.ParseDirective(line, p.dotless(), p.engine.MRI())
	if isDirective && p.handleConditional(d) {
		return nil
	}
	if p.conds.skipping() {
		return nil
	}

	label, stmt := p.splitLabel(line)
	if isPseudoOp(stmt) {
		p.pseudoOps++
	}

	if isDirective {
		handled, err := p.handleDirective(d)
		if handled || err != nil {
			return err
		}
	}
	return p.handleStatement(line, label, stmt)
}

// macroFrame is pushed with each expansion and closes it when the frame is
// popped. conds is the conditional depth when the expansion started.
type macroFrame struct {
	*macro.Expansion
	conds int
}

// handleStatement expands macro invocations and passes other lines through.
func (p *Processor) handleStatement(line, label, stmt string) error {
	if p.engine.AnyDefined() {
		x, ok, err := p.engine.CheckMacro(stmt, p.position())
		if ok {
			if err != nil {
				p.diagnose(SeverityError, diagnosticMessage(err), err)
				return nil
			}
			if err := p.emitLabel(label); err != nil {
				_ = x.Close()
				return err
			}
			if p.cfg.MaxNesting > 0 && p.engine.Nesting() > p.cfg.MaxNesting {
				_ = x.Close()
				return fmt.Errorf("%s: %w (limit %d)", p.where, ErrNestingLimit, p.cfg.MaxNesting)
			}
			p.stack.PushText(x.Macro.Name, x.Text, &macroFrame{Expansion: x, conds: p.conds.depth()})
			p.result.Expansions++
			return nil
		}
	}

	p.assignment(stmt)
	return p.emit(line)
}

func (p *Processor) emit(line string) error {
	if _, err := io.WriteString(p.out, line+"\n"); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func (p *Processor) emitLabel(label string) error {
	if label == "" {
		return nil
	}
	return p.emit(label + ":")
}

func (p *Processor) diagnose(sev Severity, msg string, err error) {
	d := Diagnostic{
		Pos:      p.pos,
		Where:    p.where,
		Severity: sev,
		Message:  msg,
		Err:      err,
	}
	p.logger.Debug("diagnostic", "where", d.Where, "severity", sev.String(), "message", msg)
	p.result.Diagnostics = append(p.result.Diagnostics, d)
	if p.cfg.OnDiagnostic != nil {
		p.cfg.OnDiagnostic(d)
	}
}

func (p *Processor) position() macro.Position {
	return macro.Position{File: p.pos.File, Line: p.pos.Line}
}

// dotless reports whether directives may omit their leading dot.
func (p *Processor) dotless() bool {
	return p.engine.Alternate() || p.engine.MRI()
}
