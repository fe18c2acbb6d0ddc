// Package main provides the entry point for the amandocs CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/amandocs/cmd/amandocs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
