// Package config provides the project settings shared by every asmacro
// command: the macro syntax modes and the processor limits. It is decoupled
// from CLI concerns so other tools can load an asmacro.yaml directly.
package config

import (
	"log/slog"

	"github.com/leapstack-labs/asmacro/internal/preprocess"
)

// ProjectConfig holds the settings that shape how sources are expanded.
type ProjectConfig struct {
	Alternate        bool     `koanf:"alternate"`
	MRI              bool     `koanf:"mri"`
	CaseFold         bool     `koanf:"case_fold"`
	WarnRedefinition bool     `koanf:"warn_redefinition"`
	VarargSeparator  string   `koanf:"vararg_separator"`
	LocalPrefix      string   `koanf:"local_prefix"`
	IncludeDirs      []string `koanf:"include_dirs"`

	// MaxNesting bounds nested invocations. Zero means unlimited.
	MaxNesting int `koanf:"max_nesting"`
}

// ApplyDefaults fills unset fields.
func (c *ProjectConfig) ApplyDefaults() {
	ApplyDefaults(c)
}

// ProcessorConfig converts the project settings into a processor
// configuration.
func (c *ProjectConfig) ProcessorConfig(logger *slog.Logger) preprocess.Config {
	nesting := c.MaxNesting
	if nesting == 0 {
		nesting = -1
	}
	return preprocess.Config{
		AlternateSyntax:  c.Alternate,
		MRI:              c.MRI,
		CaseFold:         c.CaseFold,
		WarnRedefinition: c.WarnRedefinition,
		VarargSeparator:  c.VarargSeparator,
		LocalPrefix:      c.LocalPrefix,
		MaxNesting:       nesting,
		IncludeDirs:      append([]string(nil), c.IncludeDirs...),
		Logger:           logger,
	}
}
