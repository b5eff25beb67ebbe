package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/storage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create and populate the sample banking database",
	Long: `Create the banking schema (customers, accounts, transactions, loans,
credit_cards) at the configured database path and fill it with deterministic
sample data. Seeding an already-populated database is refused.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	store, err := storage.NewStore(cfg.Database.Path)
	if err != nil {
		return err
	}

	defer store.Close()

	if err := store.Initialize(cmd.Context()); err != nil {
		return err
	}

	if err := storage.NewSeeder(store).Seed(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded banking database at %s\n", store.Path())

	return nil
}
