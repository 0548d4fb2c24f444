package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/asmacro/internal/catalog"
	"github.com/leapstack-labs/asmacro/internal/cli/output"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recorded expansion runs",
		Long:  `Show the expansion runs recorded with expand --record, newest first.`,
		Example: `  # Show the last 10 runs
  asmacro runs

  # Show every run as JSON
  asmacro runs --limit 0 --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of runs to show (0 for all)")
	return cmd
}

func runRuns(cmd *cobra.Command, limit int) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	store, err := cc.OpenCatalog()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	infos := make([]output.RunInfo, 0, len(runs))
	for _, run := range runs {
		infos = append(infos, runInfo(run))
	}

	if structured, err := r.Structured(infos); structured {
		return err
	}
	if len(infos) == 0 {
		r.Muted("No runs recorded (use expand --record)")
		return nil
	}

	r.Header(1, fmt.Sprintf("Runs (%d shown)", len(infos)))
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println("")
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		status := info.Status
		if info.Error != nil {
			status += ": " + *info.Error
		}
		rows = append(rows, []string{
			shortID(info.ID), info.StartedAt, status,
			fmt.Sprintf("%d", info.Expansions), fmt.Sprintf("%d", info.Diagnostics),
			strings.Join(info.Files, ", "),
		})
	}
	r.Table([]string{"id", "started", "status", "expansions", "diagnostics", "files"}, rows)
	return nil
}

func runInfo(run *catalog.Run) output.RunInfo {
	info := output.RunInfo{
		ID:          run.ID,
		Status:      string(run.Status),
		Files:       run.Files,
		Expansions:  run.Expansions,
		Diagnostics: run.Diagnostics,
		StartedAt:   run.StartedAt.Format(time.RFC3339),
	}
	if run.Error != "" {
		msg := run.Error
		info.Error = &msg
	}
	if run.CompletedAt != nil {
		info.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return info
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
