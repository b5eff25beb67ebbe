package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/schema"
	"github.com/askdb/askdb/internal/storage"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the tables and columns available for questions",
	RunE:  runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, _ []string) error {
	db, err := storage.OpenReadOnly(cfg.Database.Path)
	if err != nil {
		return err
	}

	defer db.Close()

	desc, err := schema.Introspect(cmd.Context(), db)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), desc.Format())

	return nil
}
