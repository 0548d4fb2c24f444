package config

import (
	"fmt"
	"slices"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.OutputFormat != "" && !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (expected one of %s)", c.OutputFormat, strings.Join(OutputFormats, ", "))
	}
	if c.MaxNesting < 0 {
		return fmt.Errorf("max_nesting must not be negative, got %d", c.MaxNesting)
	}
	if strings.ContainsAny(c.LocalPrefix, " \t,") {
		return fmt.Errorf("local_prefix %q must not contain spaces or commas", c.LocalPrefix)
	}
	return nil
}
