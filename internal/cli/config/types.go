// Package config provides configuration management for the asmacro CLI.
//
// It extends the shared project settings from internal/config with
// CLI-specific fields: where the catalog lives, how output is rendered and
// whether logging is verbose.
package config

import (
	sharedcfg "github.com/leapstack-labs/asmacro/internal/config"
)

// ProjectConfig is an alias for the shared project configuration.
type ProjectConfig = sharedcfg.ProjectConfig

// Config holds all CLI configuration options.
type Config struct {
	ProjectConfig `koanf:",squash"`

	CatalogPath  string `koanf:"catalog_path"`
	OutputFormat string `koanf:"output"`
	Verbose      bool   `koanf:"verbose"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultCatalogPath = sharedcfg.DefaultCatalogPath
	DefaultMaxNesting  = sharedcfg.DefaultMaxNesting
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// OutputFormats lists the accepted values of the output key.
var OutputFormats = []string{"auto", "text", "markdown", "json", "yaml"}
