// Package main is the entry point of the filtros binary: the catalogue API
// server plus the operator commands around it.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/filtros/pkg/config"
	"github.com/platinummonkey/filtros/pkg/observability"
	"github.com/platinummonkey/filtros/pkg/storage/sqlstore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "filtros",
		Short: "Vehicle filter catalogue API",
		Long: `filtros serves the vehicle filter catalogue over REST and GraphQL.

Configuration comes from the environment and an optional .env file.

Examples:
  filtros serve
  filtros migrate
  filtros seed --file catalogo.yaml
  filtros token --subject inventario --scopes filters:write,stats:read`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("env-file", ".env", "Path to the .env file")

	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd(), newTokenCmd(), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Version)
		},
	}
}

// loadConfig reads the configuration named by --env-file and builds the root logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *observability.Logger, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get env-file flag: %w", err)
	}
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, nil, err
	}
	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	if cfg.Security.GeneratedSecret {
		logger.Warn("JWT_SECRET is not set; using a random secret, tokens will not survive a restart")
	}
	return cfg, logger, nil
}

// openStore opens the database and applies pending migrations.
func openStore(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*sqlstore.Store, error) {
	store, err := sqlstore.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	applied, err := store.Migrate(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if applied > 0 {
		logger.WithField("migrations", applied).Info("Database migrated")
	}
	return store, nil
}
