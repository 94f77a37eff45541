// The main package for the hiring-scanner executable.
package main

import (
	"github.com/JakeFAU/hiring-scanner/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
