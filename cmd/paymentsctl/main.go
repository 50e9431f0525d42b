package main

import (
	"context"
	"fmt"
	"os"

	"school-payment-service/app"
	"school-payment-service/config"
	"school-payment-service/logger"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "paymentsctl",
		Short:        "Operator tools for the school payment service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults to $CONFIG_PATH)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Default().SetLevel(logger.ParseLevel(cfg.Server.LogLevel))
	return app.New(ctx, cfg)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <webhook-log-id>",
		Short: "Re-process a stored webhook without writing a new audit entry",
		Long: `Re-runs normalization and reconciliation for a webhook that is already in
the audit log, for example after a storage outage or once a late order exists.

Examples:
  paymentsctl replay 0b6f2c6e-3f1e-4bb5-9a55-0d1c1f8f5a10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Webhooks.Replay(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("replay %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (order %s)\n", res.LogID, res.Outcome, res.Event.ExternalOrderID)
			return nil
		},
	}
}
