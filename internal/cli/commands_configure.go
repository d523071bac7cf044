package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mekedron/coordextract/internal/config"
	"github.com/mekedron/coordextract/internal/domain"
	"github.com/mekedron/coordextract/internal/service/mgrs"
	"github.com/mekedron/coordextract/internal/service/output"
)

func newConfigureCommand(deps Dependencies) *cobra.Command {
	var indent int
	var concurrency bool
	var format string
	var precision int
	var jobs int
	var logLevel string
	var logFormat string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Save default conversion options to the local config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if deps.Config == nil {
				return fmt.Errorf("config store is not available")
			}

			var cfg domain.Config
			if !overwrite {
				existing, err := deps.Config.Load(cmd.Context())
				switch {
				case err == nil:
					cfg = existing
				case errors.Is(err, config.ErrConfigNotFound):
				default:
					return fmt.Errorf("%s: %w (use --overwrite to replace it)", deps.Config.Path(), err)
				}
			}

			changed := cmd.Flags().Changed
			if changed("indent") {
				cfg.Indent = &indent
			}
			if changed("concurrency") {
				cfg.Concurrency = concurrency
			}
			if changed("format") {
				parsed, err := output.ParseFormat(format)
				if err != nil {
					return usageError("Invalid value for '--format': %v", err)
				}
				cfg.Format = string(parsed)
			}
			if changed("precision") {
				cfg.Precision = &precision
			}
			if changed("jobs") {
				cfg.Jobs = jobs
			}
			if changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if changed("log-format") {
				cfg.LogFormat = logFormat
			}

			if err := deps.Config.Save(cmd.Context(), cfg); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", deps.Config.Path())
			return err
		},
	}

	cmd.Flags().IntVarP(&indent, "indent", "i", 0, "Default indentation level.")
	cmd.Flags().BoolVarP(&concurrency, "concurrency", "c", false, "Process batches concurrently by default.")
	cmd.Flags().StringVarP(&format, "format", "f", string(output.FormatJSON), "Default output format: json or yaml.")
	cmd.Flags().IntVarP(&precision, "precision", "p", mgrs.DefaultPrecision, "Default MGRS digits per axis, 0..5.")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Default maximum files in flight. 0 is unbounded.")
	cmd.Flags().StringVar(&logLevel, "log-level", defaultLogLevel, "Default diagnostics level.")
	cmd.Flags().StringVar(&logFormat, "log-format", defaultLogFormat, "Default diagnostics format.")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the existing config instead of merging into it.")
	return cmd
}
