package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/briannabrownOE/amaxa/pkg/log"
)

var (
	// Version is set via ldflags at build time.
	Version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "amaxa",
	Short:   "Extract and load CRM record graphs",
	Version: Version,
	Long: `amaxa drives record-graph extraction and load against a CRM tenant
from a declarative YAML operation descriptor: an ordered list of object
types, their fields, and the self/outside-reference lookup behavior
governing how the graph is traversed.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Address to serve /metrics, /health, /ready and /live on (disabled if empty)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(loadCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
