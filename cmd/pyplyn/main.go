// Command pyplyn runs the ETL daemon described by SPEC_FULL.md: it wires
// every component (connectors, AppConnectors, Cluster binding,
// ConfigurationLoader, ConfigurationUpdateManager, Scheduler, ETL Engine,
// operational HTTP surface) and runs until terminated.
package main

import (
	"fmt"
	"os"

	"github.com/MihaiBojin/pyplyn/cmd/pyplyn/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pyplyn: %v\n", err)
		os.Exit(1)
	}
}
