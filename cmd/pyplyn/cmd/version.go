package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pyplyn version",
	Run: func(c *cobra.Command, args []string) {
		fmt.Println("pyplyn " + version)
	},
}
