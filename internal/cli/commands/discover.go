package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/asmacro/internal/catalog"
	"github.com/leapstack-labs/asmacro/internal/cli/output"
	"github.com/leapstack-labs/asmacro/internal/macro"
)

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover <files or dirs...>",
		Short: "Catalog the macros defined in assembler sources",
		Long: `Process sources for their definitions and record every macro in the
catalog, replacing what was recorded for the same file before.

Macros defined in included files are recorded against the file that
defines them.`,
		Example: `  # Catalog every macro library under include/
  asmacro discover include/

  # Output as JSON
  asmacro discover macros.inc --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, args)
		},
	}
	return cmd
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer
	ctx := cmd.Context()

	files, err := collectSources(args)
	if err != nil {
		return err
	}
	if containsStdin(files) {
		return fmt.Errorf("discover needs file arguments")
	}

	store, err := cc.OpenCatalog()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := output.DiscoverOutput{CatalogPath: store.Path()}
	byFile := make(map[string][]catalog.MacroRecord)
	var order []string
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		p, err := cc.NewProcessor(abs)
		if err != nil {
			return err
		}
		res, err := p.ProcessFile(ctx, abs, io.Discard)
		if err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}

		if _, seen := byFile[abs]; !seen {
			byFile[abs] = nil
			order = append(order, abs)
		}
		df := output.DiscoverFile{File: abs, Macros: []string{}, Diagnostics: diagnosticInfos(res.Diagnostics)}
		for _, m := range p.Engine().Macros() {
			if _, seen := byFile[m.File]; !seen {
				order = append(order, m.File)
			}
			byFile[m.File] = append(byFile[m.File], macroRecord(m))
			df.Macros = append(df.Macros, m.Name)
		}
		out.Files = append(out.Files, df)
		cc.Logger.Debug("discovered macros", "file", abs, "count", len(df.Macros))
	}

	for _, file := range order {
		recs := dedupe(byFile[file])
		if err := store.SaveMacros(ctx, file, recs); err != nil {
			return err
		}
		out.TotalMacros += len(recs)
	}

	if structured, err := r.Structured(out); structured {
		return err
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		return discoverMarkdown(r, out)
	}
	return discoverText(r, out)
}

func macroRecord(m *macro.Macro) catalog.MacroRecord {
	formals := make([]string, 0, len(m.Formals))
	for _, f := range m.Positionals() {
		formals = append(formals, f.Signature())
	}
	return catalog.MacroRecord{
		Name:    m.Name,
		File:    m.File,
		Line:    m.Line,
		Formals: formals,
		Body:    m.Body,
	}
}

// dedupe keeps the last record per name; a file processed more than once
// reports its macros each time.
func dedupe(recs []catalog.MacroRecord) []catalog.MacroRecord {
	idx := make(map[string]int, len(recs))
	out := recs[:0]
	for _, rec := range recs {
		if i, ok := idx[rec.Name]; ok {
			out[i] = rec
			continue
		}
		idx[rec.Name] = len(out)
		out = append(out, rec)
	}
	return out
}

func discoverText(r *output.Renderer, out output.DiscoverOutput) error {
	r.Success(fmt.Sprintf("Discovered %d macro(s) in %d file(s)", out.TotalMacros, len(out.Files)))
	r.Muted(fmt.Sprintf("Catalog saved to %s", out.CatalogPath))
	for _, f := range out.Files {
		for _, d := range f.Diagnostics {
			r.Warning(fmt.Sprintf("%s: %s", d.Where, d.Message))
		}
	}
	return nil
}

func discoverMarkdown(r *output.Renderer, out output.DiscoverOutput) error {
	r.Println(output.FormatHeader(1, "Discovery Results"))
	r.Println("")
	r.Println(output.FormatKeyValue("Macros", fmt.Sprintf("%d", out.TotalMacros)))
	r.Println(output.FormatKeyValue("Files", fmt.Sprintf("%d", len(out.Files))))
	r.Println(output.FormatKeyValue("Catalog", out.CatalogPath))

	for _, f := range out.Files {
		r.Println("")
		r.Println(output.FormatHeader(2, f.File))
		for _, name := range f.Macros {
			r.Printf("- %s\n", name)
		}
		for _, d := range f.Diagnostics {
			r.Printf("- %s: %s: %s\n", d.Severity, d.Where, d.Message)
		}
	}
	return nil
}
