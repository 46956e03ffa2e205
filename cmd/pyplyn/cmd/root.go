// Package cmd implements the pyplyn CLI, grounded on the teacher's
// cmd/template-validator/cmd (a cobra root command plus a "version"
// subcommand) generalized from a one-shot validator to a long-running
// daemon: "run" wires the whole process and blocks until shutdown.
package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pyplyn",
	Short: "pyplyn runs declarative Extract/Transform/Load pipelines on a schedule",
	Long: `pyplyn periodically extracts metrics from monitoring backends, applies
threshold and status transforms, and loads the results into alerting or
time-series sinks, per a set of declarative Configurations.`,
	RunE: func(c *cobra.Command, args []string) error {
		return run(c.Context(), configPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the pyplyn YAML configuration file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(migrateCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
