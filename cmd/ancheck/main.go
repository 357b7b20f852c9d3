// Package main provides the entry point for the ancheck CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/ancheck/cmd/ancheck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
