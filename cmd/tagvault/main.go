// Package main provides the entry point for the tagvault CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/tagvault/cmd/tagvault/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
