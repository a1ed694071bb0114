// The main package for the reviewer-calls executable.
package main

import (
	"github.com/JakeFAU/reviewer-calls/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
