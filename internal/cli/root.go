// Package cli implements vendorctl, the operator command line for the vendor
// database.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"transport-vendor-api/internal/config"
	"transport-vendor-api/internal/logging"
	"transport-vendor-api/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for vendorctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "vendorctl",
		Short: "Operate the transport vendor database",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewTemplateCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) logger(cmd *cobra.Command) zerolog.Logger {
	level := "info"
	if o.Verbose {
		level = "debug"
	}
	return logging.NewWithWriter(cmd.ErrOrStderr(), level, "console")
}

// openStore loads the configuration from the environment and connects.
func (o *RootOptions) openStore(ctx context.Context, log zerolog.Logger) (*store.Store, error) {
	cfg, err := config.LoadAndValidate()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.DSN(), store.Options{
		MaxConns:       cfg.DBMaxConns,
		ConnectTimeout: cfg.DBConnectTimeout,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, explain(err)
	}
	return st, nil
}

// explain appends the troubleshooting hint of an unavailable database.
func explain(err error) error {
	if hint := store.HintFor(err); hint != "" {
		return fmt.Errorf("%w\n%s", err, hint)
	}
	return err
}
