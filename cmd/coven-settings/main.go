// ABOUTME: Entry point for the coven-settings CLI
// ABOUTME: Runs the cobra command tree and maps failures to exit code 1

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	root, a := newRootCmd()
	root.Version = version

	err := root.Execute()
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprintf("Error: %v", err))
		os.Exit(1)
	}
}
