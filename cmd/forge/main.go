// Package main is the entry point for the contentforge engine CLI.
package main

import (
	"os"

	"contentforge/cmd/forge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
