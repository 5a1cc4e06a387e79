package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/seed"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load catalogue fixtures",
		Long: `Loads categories, distributors and filters from a YAML file. Without
--file the four base categories are created. Existing entries are skipped.`,
		Args: cobra.NoArgs,
		RunE: runSeed,
	}
	cmd.Flags().StringP("file", "f", "", "YAML seed file (default: built-in base categories)")
	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString("file")
	if err != nil {
		return fmt.Errorf("failed to get file flag: %w", err)
	}

	var fixtures *seed.Catalog
	if path == "" {
		fixtures, err = seed.Default()
	} else {
		fixtures, err = seed.Load(path)
	}
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := seed.Apply(ctx, catalog.NewService(store, logger), fixtures, logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.String())
	return nil
}
