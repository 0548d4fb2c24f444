package config

import (
	"github.com/leapstack-labs/asmacro/internal/macro"
	"github.com/leapstack-labs/asmacro/internal/preprocess"
)

// Default configuration values.
const (
	DefaultVarargSeparator = macro.DefaultVarargSeparator
	DefaultLocalPrefix     = macro.DefaultLocalPrefix
	DefaultMaxNesting      = preprocess.DefaultMaxNesting
	DefaultCatalogPath     = ".asmacro/catalog.db"
)

// ApplyDefaults fills unset fields of a ProjectConfig.
func ApplyDefaults(c *ProjectConfig) {
	if c == nil {
		return
	}
	if c.VarargSeparator == "" {
		c.VarargSeparator = DefaultVarargSeparator
	}
	if c.LocalPrefix == "" {
		c.LocalPrefix = DefaultLocalPrefix
	}
}
