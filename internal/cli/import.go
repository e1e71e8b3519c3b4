package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"transport-vendor-api/pkg/importer"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	File   string
	DryRun bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import --file vendors.xlsx",
		Short: "Import vendors from an xlsx, xls or csv file",
		Long: `Import vendors from an xlsx, xls or csv file.

Rows run through the same checks as an upload to POST /vendors/import.

Example:
  vendorctl import --file vendors.xlsx --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "spreadsheet to import")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate rows without inserting")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions) error {
	data, err := os.ReadFile(opts.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.File, err)
	}

	ctx := cmd.Context()
	log := opts.logger(cmd)
	st, err := opts.openStore(ctx, log)
	if err != nil {
		return err
	}
	defer st.Close()

	sum, err := importer.ImportVendors(ctx, st, data, filepath.Base(opts.File), "", importer.Options{
		DryRun: opts.DryRun,
		Logger: log,
	})
	if err != nil {
		return err
	}
	return printSummary(cmd, opts.Format, sum)
}

func printSummary(cmd *cobra.Command, format string, sum importer.Summary) error {
	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	verb := "imported"
	if sum.DryRun {
		verb = "would import"
	}
	fmt.Fprintf(out, "%d rows, %s %d\n", sum.Total, verb, sum.Imported)
	for _, e := range sum.Errors {
		fmt.Fprintf(out, "  %s\n", e.Message)
	}
	return nil
}
