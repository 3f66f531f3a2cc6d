// Package main is the entry point for the wordauth server.
package main

import (
	"fmt"
	"os"

	"github.com/wordleapi/wordauth/cmd/wordauth/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
