// Package main provides the asmacro command.
package main

import (
	"os"

	"github.com/leapstack-labs/asmacro/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
