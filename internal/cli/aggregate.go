package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/climatevalue/internal/aggregate"
	"github.com/roach88/climatevalue/internal/model"
)

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate <domain>",
		Short: "Recompute aggregates for every entity of a domain",
		Long: `Recompute the per-field mean of every stored entity of a domain from
its full record set and overwrite the aggregate rows.

Recomputing twice over the same records writes identical rows.

Example:
  climatevalue aggregate weather`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(rootOpts, args[0], cmd)
		},
	}
}

func runAggregate(opts *RootOptions, name string, cmd *cobra.Command) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.domain(name)
	if err != nil {
		return err
	}

	engine := aggregate.New(a.store, d.Fields, aggregate.WithLogger(a.logger))
	results, err := engine.RecomputeDomain(commandContext(cmd), name)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to recompute aggregates", err)
	}

	recomputed := 0
	for _, r := range results {
		if r.Error == "" {
			recomputed++
		}
	}
	a.metrics.AggregatesRecomputed(name, recomputed)

	if recomputed == len(results) {
		return a.out.Success(results, func(w io.Writer) error {
			return writeAggregates(w, results, d.Fields)
		})
	}

	msg := fmt.Sprintf("%d aggregate(s) failed", len(results)-recomputed)
	if a.out.JSON() {
		if err := a.out.Error("E_AGGREGATE", msg, results); err != nil {
			return err
		}
	} else if err := writeAggregates(a.out.Writer, results, d.Fields); err != nil {
		return err
	}
	return reportedExitError(ExitFailure, msg)
}

func writeAggregates(w io.Writer, results []aggregate.Result, fields []string) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No entities.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ENTITY\tRECORDS\t%s\n", strings.ToUpper(strings.Join(fields, "\t")))
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\terror: %s\n", r.Entity.Key, r.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d", r.Entity.Key, r.Aggregate.RecordCount)
		for _, f := range fields {
			fmt.Fprintf(tw, "\t%s", meanCell(r.Aggregate, f))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func meanCell(agg model.Aggregate, field string) string {
	v, ok := agg.Mean(field)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}
