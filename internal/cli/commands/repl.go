package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/asmacro/internal/preprocess"
)

const replPrompt = "asmacro> "

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Define and expand macros interactively",
		Long: `Start an interactive session. Every line goes through one processor, so
macros defined earlier stay available, and expanded text is printed as
soon as it is produced.

Session commands start with a colon:
  :macros    List defined macros
  :symbols   List assigned symbols
  :help      Show this help
  :quit      Exit (Ctrl+D also works)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd)
		},
	}
	return cmd
}

func runREPL(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     filepath.Join(filepath.Dir(cc.Cfg.CatalogPath), "repl_history"),
		AutoComplete:    replCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "asmacro REPL. Type :help for commands, :quit to exit")
	return newSession(cc, rl, cmd.OutOrStdout()).run(cmd)
}

// lineInput is the part of a readline instance the session needs.
type lineInput interface {
	Readline() (string, error)
}

type session struct {
	cc  *CommandContext
	in  lineInput
	out io.Writer
	p   *preprocess.Processor
}

func newSession(cc *CommandContext, in lineInput, out io.Writer) *session {
	return &session{cc: cc, in: in, out: out}
}

func (s *session) run(cmd *cobra.Command) error {
	pc, err := s.cc.processorConfig("")
	if err != nil {
		return err
	}
	pc.OnDiagnostic = func(d preprocess.Diagnostic) {
		if d.Severity == preprocess.SeverityError {
			s.cc.Renderer.Error(d.String())
		} else {
			s.cc.Renderer.Warning(d.String())
		}
	}
	s.p = preprocess.New(pc)
	for {
		_, err := s.p.ProcessLines(cmd.Context(), "<repl>", s, s.out)
		if errors.Is(err, preprocess.ErrNestingLimit) {
			// definitions survive; only the runaway expansion is dropped
			s.cc.Renderer.Error(err.Error())
			continue
		}
		return err
	}
}

// ReadLine feeds the processor, handling session commands in between.
func (s *session) ReadLine() (string, error) {
	for {
		line, err := s.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return "", err
		}
		cmd := strings.TrimSpace(line)
		if !strings.HasPrefix(cmd, ":") {
			return line, nil
		}
		if s.command(cmd) {
			return "", io.EOF
		}
	}
}

// command runs a session command and reports whether the session should end.
func (s *session) command(line string) bool {
	switch strings.Fields(line)[0] {
	case ":quit", ":exit", ":q":
		return true
	case ":macros":
		macros := s.p.Engine().Macros()
		if len(macros) == 0 {
			_, _ = fmt.Fprintln(s.out, "(no macros)")
		}
		for _, m := range macros {
			formals := make([]string, 0, len(m.Formals))
			for _, f := range m.Positionals() {
				formals = append(formals, f.Signature())
			}
			_, _ = fmt.Fprintf(s.out, "%s %s\n", m.Name, strings.Join(formals, ", "))
		}
	case ":symbols":
		ev := s.p.Evaluator()
		names := ev.Symbols()
		if len(names) == 0 {
			_, _ = fmt.Fprintln(s.out, "(no symbols)")
		}
		for _, name := range names {
			v, _ := ev.Lookup(name)
			_, _ = fmt.Fprintf(s.out, "%s = %d\n", name, v)
		}
	case ":help":
		printREPLHelp(s.out)
	default:
		_, _ = fmt.Fprintf(s.cc.Renderer.ErrWriter(), "Unknown command: %s (type :help for commands)\n", line)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  :macros    List defined macros
  :symbols   List assigned symbols
  :help      Show this help message
  :quit      Exit the REPL

Tips:
  - Lines are processed as assembler source; define with .macro ... .endm
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

func replCompleter() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, d := range []string{
		".macro", ".endm", ".exitm", ".purgem", ".irp", ".irpc", ".rept", ".endr",
		".if", ".ifb", ".ifnb", ".ifc", ".ifnc", ".ifdef", ".ifndef", ".else", ".endif",
		".altmacro", ".noaltmacro", ".include", ".set",
		":macros", ":symbols", ":help", ":quit",
	} {
		items = append(items, readline.PcItem(d))
	}
	return readline.NewPrefixCompleter(items...)
}
