// Package main provides the entry point for the weft CLI.
package main

import (
	"os"

	"github.com/weftlabs/weft/cmd/weft/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
