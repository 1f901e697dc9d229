// Cella is the command-line interface to the Cella health data layer.
package main

import "github.com/cella-health/cella/internal/cli"

func main() {
	cli.Execute()
}
