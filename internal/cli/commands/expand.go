package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/asmacro/internal/catalog"
	"github.com/leapstack-labs/asmacro/internal/cli/output"
	"github.com/leapstack-labs/asmacro/internal/preprocess"
	"github.com/leapstack-labs/asmacro/internal/watch"
)

// ExpandOptions holds options for the expand command.
type ExpandOptions struct {
	OutDir string
	Watch  bool
	Record bool
	Jobs   int
}

// NewExpandCommand creates the expand command.
func NewExpandCommand() *cobra.Command {
	opts := &ExpandOptions{}

	cmd := &cobra.Command{
		Use:   "expand [files...]",
		Short: "Expand macros in assembler sources",
		Long: `Expand macro invocations, repeat blocks and conditionals in assembler
sources and write the result.

Each file is processed by its own engine, so files are expanded in
parallel. Without arguments, standard input is read. Directories are
searched for .s, .S, .asm, .inc and .mac files.

Problems in the source are reported as diagnostics and do not stop
processing; the command fails at the end if any were errors.`,
		Example: `  # Expand one file to stdout
  asmacro expand boot.s

  # Expand a tree into build/
  asmacro expand src/ --out-dir build

  # Re-expand on every change and record runs in the catalog
  asmacro expand src/ -d build --watch --record

  # Use GNU alternate macro syntax
  asmacro expand --alternate legacy.s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutDir, "out-dir", "d", "", "Write expanded files to this directory instead of stdout")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-expand when sources change")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "Record the run in the catalog")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", runtime.NumCPU(), "Number of files expanded in parallel")

	return cmd
}

func runExpand(cmd *cobra.Command, args []string, opts *ExpandOptions) error {
	cc := NewCommandContext(cmd)

	if len(args) == 0 {
		args = []string{stdinName}
	}
	files, err := collectSources(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no assembler sources found in %s", strings.Join(args, ", "))
	}
	if opts.Watch && containsStdin(files) {
		return errors.New("--watch cannot be used with standard input")
	}

	err = expandFiles(cmd.Context(), cc, files, opts, cmd.InOrStdin())
	if !opts.Watch {
		return err
	}
	if err != nil {
		cc.Renderer.Error(err.Error())
	}

	cc.Renderer.Muted(fmt.Sprintf("Watching %d file(s) for changes (Ctrl+C to stop)", len(files)))
	w := watch.New(watch.Config{Paths: args, Logger: cc.Logger})
	return w.Run(cmd.Context(), func(ctx context.Context, changed []string) error {
		cc.Logger.Info("re-expanding", "changed", changed)
		// includes make any change potentially affect every file
		sources, err := collectSources(args)
		if err != nil {
			return err
		}
		return expandFiles(ctx, cc, sources, opts, nil)
	})
}

func containsStdin(files []string) bool {
	for _, f := range files {
		if f == stdinName {
			return true
		}
	}
	return false
}

type expandResult struct {
	file   string
	text   bytes.Buffer
	result *preprocess.Result
	out    string
}

// expandFiles expands files concurrently, reports their diagnostics and
// writes their output in argument order.
func expandFiles(ctx context.Context, cc *CommandContext, files []string, opts *ExpandOptions, stdin io.Reader) (runErr error) {
	r := cc.Renderer

	var (
		store *catalog.Store
		run   *catalog.Run
	)
	if opts.Record {
		var err error
		store, err = cc.OpenCatalog()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		run, err = store.CreateRun(ctx, files)
		if err != nil {
			return err
		}
	}

	results := make([]*expandResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}
	g.SetLimit(jobs)
	for i, f := range files {
		results[i] = &expandResult{file: f}
		res := results[i]
		g.Go(func() error {
			return expandOne(gctx, cc, res, opts.OutDir, stdin)
		})
	}
	fatal := g.Wait()

	out := output.ExpandOutput{Files: make([]output.ExpandFile, 0, len(results))}
	if run != nil {
		out.RunID = run.ID
	}
	var expansions, diagnostics int
	for _, res := range results {
		if res.result == nil {
			continue
		}
		ef := output.ExpandFile{
			File:        res.file,
			Output:      res.out,
			Lines:       res.result.Lines,
			Expansions:  res.result.Expansions,
			Definitions: res.result.Definitions,
			Repeats:     res.result.Repeats,
			Diagnostics: diagnosticInfos(res.result.Diagnostics),
		}
		if res.out == "" {
			ef.Text = res.text.String()
		}
		out.Files = append(out.Files, ef)
		out.Errors += res.result.ErrorCount()
		expansions += res.result.Expansions
		diagnostics += len(res.result.Diagnostics)
	}

	if store != nil {
		defer func() {
			if err := store.CompleteRun(context.WithoutCancel(ctx), run.ID, expansions, diagnostics, runErr); err != nil {
				cc.Logger.Warn("failed to record run", "id", run.ID, "error", err)
			}
		}()
	}

	if fatal != nil {
		return fatal
	}

	if structured, err := r.Structured(out); structured {
		if err != nil {
			return err
		}
	} else {
		for _, res := range results {
			for _, d := range res.result.Diagnostics {
				if d.Severity == preprocess.SeverityError {
					r.Error(d.String())
				} else {
					r.Warning(d.String())
				}
			}
			if res.out == "" {
				if _, err := io.Copy(r.Writer(), &res.text); err != nil {
					return fmt.Errorf("writing output: %w", err)
				}
			}
		}
		if opts.OutDir != "" {
			r.Success(fmt.Sprintf("Expanded %d file(s), %d macro invocation(s)", len(out.Files), expansions))
			if run != nil {
				r.Muted(fmt.Sprintf("Recorded run %s", run.ID))
			}
		}
	}

	if out.Errors > 0 {
		return fmt.Errorf("expansion finished with %d error(s)", out.Errors)
	}
	return nil
}

func expandOne(ctx context.Context, cc *CommandContext, res *expandResult, outDir string, stdin io.Reader) error {
	p, err := cc.NewProcessor(res.file)
	if err != nil {
		return err
	}

	if res.file == stdinName {
		if stdin == nil {
			stdin = os.Stdin
		}
		res.result, err = p.Process(ctx, "<stdin>", stdin, &res.text)
	} else {
		res.result, err = p.ProcessFile(ctx, res.file, &res.text)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", res.file, err)
	}

	if outDir == "" {
		return nil
	}
	res.out = outputPath(outDir, res.file)
	if err := os.MkdirAll(filepath.Dir(res.out), 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(res.out, res.text.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", res.out, err)
	}
	cc.Logger.Debug("wrote expansion", "file", res.file, "output", res.out)
	return nil
}

// outputPath mirrors files below the working directory into outDir and
// flattens everything else to its base name.
func outputPath(outDir, file string) string {
	if file == stdinName {
		return filepath.Join(outDir, "stdin.s")
	}
	rel := filepath.Base(file)
	if cwd, err := os.Getwd(); err == nil {
		if abs, err := filepath.Abs(file); err == nil {
			if r, err := filepath.Rel(cwd, abs); err == nil && !strings.HasPrefix(r, "..") {
				rel = r
			}
		}
	}
	return filepath.Join(outDir, rel)
}
