package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/briannabrownOE/amaxa/internal/config"
	"github.com/briannabrownOE/amaxa/pkg/log"
	"github.com/briannabrownOE/amaxa/pkg/metrics"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Run a load operation from a YAML descriptor",
	Long: `Load reads an operation descriptor and runs each declared
object-type step in order: inserting records with self and dependent
lookups stripped, then back-filling those lookups once every record in
the batch has a new id.`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringP("config", "c", "", "Path to the YAML operation descriptor (required)")
	_ = loadCmd.MarkFlagRequired("config")
}

func runLoad(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")

	metricsAddr, _ := rootCmd.PersistentFlags().GetString("metrics-addr")
	startMetricsServer(metricsAddr, log.Logger)

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	client, err := newTransportClient(cfg.Connection, log.Logger)
	if err != nil {
		return err
	}
	metrics.RegisterComponent("transport", true, "ready")

	op, err := config.BuildLoadOperation(cfg, client, nil, log.Logger)
	if err != nil {
		return err
	}
	metrics.RegisterComponent("idset", true, "ready")

	code := op.Execute(context.Background())
	if code != 0 {
		return fmt.Errorf("amaxa: load failed (exit code %d)", code)
	}
	fmt.Println("Load completed successfully")
	return nil
}
