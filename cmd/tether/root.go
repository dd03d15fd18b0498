package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tether",
	Short: "Tether is a reactive state container bound to components",
	Long: `Tether keeps application state in a container, changes it only through
dispatched actions and re-renders connected components when their props change.

This binary hosts the counter demo in the terminal (run) or over HTTP (serve).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "tether.yaml", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log container lifecycle events to stderr")
}
