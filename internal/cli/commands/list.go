package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/asmacro/internal/catalog"
	"github.com/leapstack-labs/asmacro/internal/cli/output"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [name]",
		Short: "List catalogued macros",
		Long: `List the macros recorded by discover, or show one macro with its body.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json, yaml`,
		Example: `  # List all macros
  asmacro list

  # Show one macro
  asmacro list push

  # List macros as YAML
  asmacro list --output yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args)
		},
	}
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	store, err := cc.OpenCatalog()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if len(args) == 1 {
		rec, err := store.GetMacro(cmd.Context(), args[0])
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("macro %q is not in the catalog (run discover first)", args[0])
		}
		if err != nil {
			return err
		}
		return showMacro(r, rec)
	}

	recs, err := store.ListMacros(cmd.Context())
	if err != nil {
		return err
	}
	out := output.ListOutput{Macros: make([]output.MacroInfo, 0, len(recs)), Total: len(recs)}
	for _, rec := range recs {
		out.Macros = append(out.Macros, macroInfo(rec))
	}

	if structured, err := r.Structured(out); structured {
		return err
	}
	if len(recs) == 0 {
		r.Muted("No macros catalogued (run discover first)")
		return nil
	}

	r.Header(1, fmt.Sprintf("Macros (%d total)", len(recs)))
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println("")
	}
	rows := make([][]string, 0, len(out.Macros))
	for _, m := range out.Macros {
		rows = append(rows, []string{m.Name, strings.Join(m.Formals, ", "), fmt.Sprintf("%s:%d", m.File, m.Line), fmt.Sprintf("%d", m.BodyLines)})
	}
	r.Table([]string{"name", "formals", "defined_at", "lines"}, rows)
	return nil
}

func macroInfo(rec catalog.MacroRecord) output.MacroInfo {
	formals := rec.Formals
	if formals == nil {
		formals = []string{}
	}
	return output.MacroInfo{
		Name:      rec.Name,
		File:      rec.File,
		Line:      rec.Line,
		Formals:   formals,
		BodyLines: strings.Count(rec.Body, "\n"),
		UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
	}
}

func showMacro(r *output.Renderer, rec *catalog.MacroRecord) error {
	if structured, err := r.Structured(rec); structured {
		return err
	}
	header := strings.TrimSpace(rec.Name + " " + strings.Join(rec.Formals, ", "))

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, rec.Name))
		r.Println("")
		r.Println(output.FormatKeyValue("Defined at", fmt.Sprintf("%s:%d", rec.File, rec.Line)))
		r.Println("")
		r.Println(output.FormatCodeBlock("asm", ".macro "+header+"\n"+rec.Body+".endm"))
		return nil
	}

	styles := r.Styles()
	r.Println(styles.Header1.Render(rec.Name))
	r.Println(styles.Muted.Render(fmt.Sprintf("%s:%d", rec.File, rec.Line)))
	r.Println("")
	r.Println(styles.Bold.Render(".macro " + header))
	r.Printf("%s", rec.Body)
	r.Println(styles.Bold.Render(".endm"))
	return nil
}
