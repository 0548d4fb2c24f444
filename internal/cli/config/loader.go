package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/leapstack-labs/asmacro/internal/config"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// envPrefix starts every environment variable the loader reads.
const envPrefix = "ASMACRO_"

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// flagKeys maps flag names that differ from their config keys.
var flagKeys = map[string]string{
	"catalog":     "catalog_path",
	"include-dir": "include_dirs",
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// inferProjectRoot returns the directory of an explicit config file, else the
// nearest ancestor of the working directory holding asmacro.yaml, else the
// working directory itself.
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
		return filepath.Dir(cfgFile)
	}
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := intconfig.FindProjectRoot(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")
	projectRoot := inferProjectRoot(cfgFile)

	// Paths given as flags are relative to the working directory, not the
	// project root.
	var flagCatalog string
	var flagIncludes []string
	if flags != nil {
		if flags.Changed("catalog") {
			if v, _ := flags.GetString("catalog"); v != "" && v != ":memory:" {
				flagCatalog, _ = filepath.Abs(v)
			} else {
				flagCatalog = v
			}
		}
		if flags.Changed("include-dir") {
			dirs, _ := flags.GetStringSlice("include-dir")
			for _, d := range dirs {
				abs, err := filepath.Abs(d)
				if err != nil {
					abs = d
				}
				flagIncludes = append(flagIncludes, abs)
			}
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"alternate":         false,
		"mri":               false,
		"case_fold":         false,
		"warn_redefinition": false,
		"vararg_separator":  intconfig.DefaultVarargSeparator,
		"local_prefix":      intconfig.DefaultLocalPrefix,
		"max_nesting":       DefaultMaxNesting,
		"catalog_path":      DefaultCatalogPath,
		"verbose":           false,
		"output":            DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = cfgFile
	if configFileUsed == "" {
		configFileUsed = intconfig.FindConfigFile(projectRoot)
	}
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables: ASMACRO_CASE_FOLD -> case_fold
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if key == "include_dirs" {
			return key, filepath.SplitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ApplyDefaults()

	// 6. Resolve paths against the project root
	cfg.ProjectRoot = projectRoot
	if flagCatalog != "" {
		cfg.CatalogPath = flagCatalog
	} else {
		cfg.CatalogPath = resolvePathRelativeTo(cfg.CatalogPath, projectRoot)
	}
	if flagIncludes != nil {
		cfg.IncludeDirs = flagIncludes
	} else {
		for i, d := range cfg.IncludeDirs {
			cfg.IncludeDirs[i] = resolvePathRelativeTo(d, projectRoot)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}
