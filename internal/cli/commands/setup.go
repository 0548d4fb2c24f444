package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/asmacro/internal/catalog"
	"github.com/leapstack-labs/asmacro/internal/cli/config"
	"github.com/leapstack-labs/asmacro/internal/cli/output"
	intconfig "github.com/leapstack-labs/asmacro/internal/config"
	"github.com/leapstack-labs/asmacro/internal/preprocess"
	"github.com/leapstack-labs/asmacro/internal/watch"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// OpenCatalog opens the catalog and applies pending migrations.
func (c *CommandContext) OpenCatalog() (*catalog.Store, error) {
	store, err := catalog.OpenAndMigrate(c.Cfg.CatalogPath, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return store, nil
}

// NewProcessor creates a processor for path. A directory-local asmacro.yaml
// below the project root overrides the project settings for the files in
// that directory.
func (c *CommandContext) NewProcessor(path string) (*preprocess.Processor, error) {
	pc, err := c.processorConfig(path)
	if err != nil {
		return nil, err
	}
	return preprocess.New(pc), nil
}

func (c *CommandContext) processorConfig(path string) (preprocess.Config, error) {
	proj := c.Cfg.ProjectConfig
	if path != "" && path != stdinName {
		dir, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return preprocess.Config{}, err
		}
		if dir != c.Cfg.ProjectRoot {
			local, err := intconfig.LoadFromDir(dir)
			if err != nil {
				return preprocess.Config{}, fmt.Errorf("failed to load %s: %w", intconfig.FindConfigFile(dir), err)
			}
			if local != nil {
				c.Logger.Debug("using directory config", "dir", dir)
				proj = *local
			}
		}
	}
	return proj.ProcessorConfig(c.Logger.With("file", path)), nil
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to
// environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	cfg := &config.Config{
		CatalogPath:  getEnvOrDefault("ASMACRO_CATALOG_PATH", config.DefaultCatalogPath),
		OutputFormat: getEnvOrDefault("ASMACRO_OUTPUT", config.DefaultOutput),
		Verbose:      os.Getenv("ASMACRO_VERBOSE") == "true",
	}
	cfg.MaxNesting = config.DefaultMaxNesting
	cfg.ApplyDefaults()
	if cwd, err := os.Getwd(); err == nil {
		cfg.ProjectRoot = cwd
	}
	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// stdinName stands for standard input in file arguments.
const stdinName = "-"

// collectSources expands directory arguments into the assembler sources
// they contain, keeping explicit files as given.
func collectSources(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		if arg == stdinName {
			files = append(files, arg)
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			for _, ext := range watch.DefaultExtensions {
				if filepath.Ext(p) == ext {
					files = append(files, p)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func diagnosticInfos(diags []preprocess.Diagnostic) []output.DiagnosticInfo {
	out := make([]output.DiagnosticInfo, 0, len(diags))
	for _, d := range diags {
		out = append(out, output.DiagnosticInfo{
			File:     d.Pos.File,
			Line:     d.Pos.Line,
			Where:    d.Where,
			Severity: d.Severity.String(),
			Message:  d.Message,
		})
	}
	return out
}
