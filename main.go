// ./main.go
package main

import (
	"github.com/d3vnull/restitch/cmd"
)

// main is the entry point for the restitch CLI.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
