package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the vendors table to the current schema",
		Long: `Bring the vendors table to the current schema.

Renames legacy field_N columns, adds missing columns, converts notes to a
JSON array and creates the case-insensitive unique index. Steps already
recorded in schema_migrations are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := rootOpts.logger(cmd)

			st, err := rootOpts.openStore(ctx, log)
			if err != nil {
				return err
			}
			defer st.Close()

			migrateErr := st.Migrate(ctx)
			applied, err := st.AppliedMigrations(ctx)
			if err != nil {
				return err
			}

			if rootOpts.Format == "json" {
				out := map[string]any{"applied": applied}
				if migrateErr != nil {
					out["error"] = migrateErr.Error()
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return err
				}
			} else {
				for _, name := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied  %s\n", name)
				}
			}
			return migrateErr
		},
	}
}
