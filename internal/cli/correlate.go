package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/climatevalue/internal/report"
	"github.com/roach88/climatevalue/internal/resolve"
)

// CorrelateOptions holds flags for the correlate command.
type CorrelateOptions struct {
	*RootOptions
	CSV string
}

// NewCorrelateCommand creates the correlate command.
func NewCorrelateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CorrelateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Join weather aggregates with vehicle depreciation by location",
		Long: `Join the aggregates of the two correlation domains on canonical
location. Location spellings are resolved through the configured alias
table. Keys present on only one side are left out.

Examples:
  climatevalue correlate
  climatevalue correlate --csv report.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorrelate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CSV, "csv", "", "also write the report as CSV to this path")

	return cmd
}

func runCorrelate(opts *CorrelateOptions, cmd *cobra.Command) error {
	a, err := newApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	corr := a.cfg.Correlation

	left, err := a.store.Aggregates(ctx, corr.Left)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read aggregates", err)
	}
	right, err := a.store.Aggregates(ctx, corr.Right)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read aggregates", err)
	}

	var fields []string
	if d, ok := a.cfg.Domains[corr.Left]; ok {
		fields = d.Fields
	}

	res := resolve.New(a.cfg.Aliases)
	comps := report.Correlate(res, left, right, corr.Depreciation(), report.WithLogger(a.logger))
	a.logger.Info("correlation computed", "left", corr.Left, "right", corr.Right, "keys", len(comps))

	if opts.CSV != "" {
		if err := writeCSVFile(opts.CSV, comps, fields); err != nil {
			return WrapExitError(ExitCommandError, "failed to write CSV", err)
		}
	}

	return a.out.Success(comps, func(w io.Writer) error {
		return report.WriteText(w, comps, fields)
	})
}

func writeCSVFile(path string, comps []report.Comparison, fields []string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return report.WriteCSV(f, comps, fields)
}
