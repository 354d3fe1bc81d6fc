// Package main provides the CLI for the viewlint Perspective view linter.
package main

import (
	"os"

	"github.com/perspective-labs/viewlint/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
