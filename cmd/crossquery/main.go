// Package main provides the crossquery CLI.
package main

import (
	"os"

	"github.com/meridian-data/crossquery/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
