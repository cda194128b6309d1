// Package main provides the entry point for the teamlead CLI.
package main

import (
	"os"

	"github.com/randalmurphal/teamlead/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
