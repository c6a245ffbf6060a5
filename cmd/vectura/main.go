// Package main provides the entry point for the vectura CLI.
package main

import (
	"os"

	"github.com/vecturakit/vectura/cmd/vectura/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
