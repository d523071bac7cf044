package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mekedron/coordextract/internal/config"
	"github.com/mekedron/coordextract/internal/domain"
	"github.com/mekedron/coordextract/internal/gateway/gpx"
	"github.com/mekedron/coordextract/internal/service/batch"
	"github.com/mekedron/coordextract/internal/service/mgrs"
	"github.com/mekedron/coordextract/internal/service/output"
	"github.com/mekedron/coordextract/internal/service/points"
)

const (
	defaultLogLevel  = "warn"
	defaultLogFormat = "text"
)

type rootFlags struct {
	Output      string
	Indent      int
	Concurrency bool
	Format      string
	Precision   int
	Jobs        int
	LogLevel    string
	LogFormat   string
}

type settings struct {
	Indent      int
	Concurrency bool
	Format      output.Format
	Precision   int
	Jobs        int
	LogLevel    string
	LogFormat   string
}

// NewRootCommand builds the complete command tree.
func NewRootCommand(deps Dependencies) *cobra.Command {
	version := resolvedVersion(deps.Version)
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "coordextract [INPUT...]",
		Short:         "Convert GPX waypoints, trackpoints and routepoints into MGRS point records.",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
				return errVersionShown
			}
			return runConvert(cmd, deps, flags, args)
		},
	}
	root.Flags().BoolP("version", "v", false, "Show CLI version and exit.")
	root.Flags().StringVarP(&flags.Output, "output", "o", "", "Output file (single input) or directory (batch).")
	root.Flags().IntVarP(&flags.Indent, "indent", "i", 0, "Indentation level for the output. 0 renders compact JSON.")
	root.Flags().BoolVarP(&flags.Concurrency, "concurrency", "c", false, "Process batch files concurrently, one task per file.")
	root.Flags().StringVarP(&flags.Format, "format", "f", string(output.FormatJSON), "Output format: json or yaml.")
	root.Flags().IntVarP(&flags.Precision, "precision", "p", mgrs.DefaultPrecision, "MGRS digits per axis, 0..5 (5 = 1 m).")
	root.Flags().IntVarP(&flags.Jobs, "jobs", "j", 0, "Maximum files in flight with --concurrency. 0 is unbounded.")
	root.Flags().StringVar(&flags.LogLevel, "log-level", defaultLogLevel, "Diagnostics level: debug, info, warn, or error.")
	root.Flags().StringVar(&flags.LogFormat, "log-format", defaultLogFormat, "Diagnostics format: text or json.")
	root.SetHelpCommand(&cobra.Command{Hidden: true})
	defaultHelpFunc := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd == root {
			renderRootHelp(cmd.OutOrStdout(), root)
			return
		}
		defaultHelpFunc(cmd, args)
	})

	root.AddCommand(newConfigureCommand(deps))

	return root
}

func runConvert(cmd *cobra.Command, deps Dependencies, flags *rootFlags, args []string) error {
	ctx := cmd.Context()
	resolved, err := resolveSettings(cmd, deps, flags)
	if err != nil {
		return err
	}
	plan, err := resolveInputs(args, flags.Output)
	if err != nil {
		return err
	}

	logger := newLogger(resolved.LogLevel, resolved.LogFormat, cmd.ErrOrStderr())
	converter, err := mgrs.New(resolved.Precision)
	if err != nil {
		return usageError("Invalid value for '--precision': %v", err)
	}
	parser := deps.Parser
	if parser == nil {
		parser = gpx.NewParser()
	}
	runner := batch.NewRunner(parser, points.NewAssembler(converter, logger), logger)
	opts := batch.Options{Format: resolved.Format, Indent: resolved.Indent}

	switch plan.mode {
	case modeStdout:
		text, err := runner.Convert(ctx, plan.inputs[0], opts)
		if err != nil {
			return err
		}
		return output.Print(cmd.OutOrStdout(), text)
	case modeFile:
		_, err := runner.ConvertFile(ctx, plan.inputs[0], plan.outputFile, opts)
		return err
	default:
		if len(plan.inputs) == 0 {
			logger.WarnContext(ctx, "No GPX files found.", "output", plan.outputDir)
		}
		_, err := runner.Run(ctx, batch.Request{
			Inputs:      plan.inputs,
			OutputDir:   plan.outputDir,
			Options:     opts,
			Concurrent:  resolved.Concurrency,
			MaxInFlight: resolved.Jobs,
		})
		return err
	}
}

func resolveSettings(cmd *cobra.Command, deps Dependencies, flags *rootFlags) (settings, error) {
	var cfg domain.Config
	if deps.Config != nil {
		loaded, err := deps.Config.Load(cmd.Context())
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, config.ErrConfigNotFound):
		default:
			return settings{}, fmt.Errorf("%s: %w", deps.Config.Path(), err)
		}
	}

	resolved := settings{
		Indent:    intSetting(cmd, "indent", flags.Indent, cfg.Indent, 0),
		Precision: intSetting(cmd, "precision", flags.Precision, cfg.Precision, mgrs.DefaultPrecision),
		Jobs:      cfg.Jobs,
		LogLevel:  stringSetting(cmd, "log-level", flags.LogLevel, cfg.LogLevel, defaultLogLevel),
		LogFormat: stringSetting(cmd, "log-format", flags.LogFormat, cfg.LogFormat, defaultLogFormat),
	}
	if cmd.Flags().Changed("jobs") {
		resolved.Jobs = flags.Jobs
	}
	resolved.Concurrency = cfg.Concurrency
	if cmd.Flags().Changed("concurrency") {
		resolved.Concurrency = flags.Concurrency
	}

	format, err := output.ParseFormat(stringSetting(cmd, "format", flags.Format, cfg.Format, string(output.FormatJSON)))
	if err != nil {
		return settings{}, usageError("Invalid value for '--format': %v", err)
	}
	resolved.Format = format

	if resolved.Indent < 0 {
		return settings{}, usageError("Invalid value for '--indent': must not be negative.")
	}
	if resolved.Jobs < 0 {
		return settings{}, usageError("Invalid value for '--jobs': must not be negative.")
	}
	if !slices.Contains(config.LogLevels, resolved.LogLevel) {
		return settings{}, usageError("Invalid value for '--log-level': must be one of %s.", strings.Join(config.LogLevels, ", "))
	}
	if !slices.Contains(config.LogFormats, resolved.LogFormat) {
		return settings{}, usageError("Invalid value for '--log-format': must be one of %s.", strings.Join(config.LogFormats, ", "))
	}
	return resolved, nil
}

func renderRootHelp(out io.Writer, root *cobra.Command) {
	_, _ = fmt.Fprintf(out, "%s: %s\n\n", root.Name(), root.Short)
	_, _ = fmt.Fprintf(out, "usage: %s [INPUT...] [options]\n", root.Name())
	_, _ = fmt.Fprintf(out, "       %s configure [options]\n\n", root.Name())
	_, _ = fmt.Fprintln(out, "options:")
	for _, option := range collectOptionDocs(root.Flags()) {
		_, _ = fmt.Fprintf(out, "  %s: %s\n", option.token, option.usage)
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "commands:")
	for _, cmd := range visibleCommands(root) {
		_, _ = fmt.Fprintf(out, "  %s\n", cmd.Name())
		_, _ = fmt.Fprintf(out, "    %s\n", cmd.Short)
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "notes:")
	_, _ = fmt.Fprintf(out, "  - a directory input writes <stem>.json files to <dir>/%s unless --output is given.\n", defaultOutputDir)
	_, _ = fmt.Fprintln(out, "  - several file inputs write <stem>.json files to --output or the current directory.")
	_, _ = fmt.Fprintln(out, "  - a single file input prints to stdout unless --output names a file.")
	_, _ = fmt.Fprintln(out, "  - points with non-numeric coordinates are skipped and reported on stderr.")
}

func visibleCommands(parent *cobra.Command) []*cobra.Command {
	commands := make([]*cobra.Command, 0)
	for _, cmd := range parent.Commands() {
		if cmd.Hidden {
			continue
		}
		commands = append(commands, cmd)
	}
	return commands
}

type optionDoc struct {
	name  string
	token string
	usage string
}

func collectOptionDocs(flags *pflag.FlagSet) []optionDoc {
	options := make([]optionDoc, 0)
	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Hidden || flag.Name == "help" {
			return
		}
		options = append(options, optionDoc{
			name:  flag.Name,
			token: flagToken(flag),
			usage: strings.TrimSpace(flag.Usage),
		})
	})
	sort.Slice(options, func(i, j int) bool {
		return options[i].name < options[j].name
	})
	return options
}

func flagToken(flag *pflag.Flag) string {
	token := "--" + flag.Name
	if flag.Shorthand != "" {
		token += "/-" + flag.Shorthand
	}
	return token
}
