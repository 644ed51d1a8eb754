package main

import (
	"os"

	"github.com/adivish/fundlens/cmd/fundlens/commands"
)

// main is the entry point for the FundLens CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
