package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/climatevalue/internal/aggregate"
	"github.com/roach88/climatevalue/internal/ingest"
	"github.com/roach88/climatevalue/internal/model"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Budget   int
	Ceiling  int
	Strategy string

	// RunIDs overrides the run ID generator (for testing).
	RunIDs ingest.RunIDGenerator
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <domain>",
		Short: "Run one bounded ingestion cycle",
		Long: `Fetch candidates for every configured entity of a domain and persist
at most --budget new records, split across entities.

Re-running is safe: records already stored are counted as duplicates.
An interrupted run keeps what it persisted and the next run resumes.

Exit codes:
  0 - Run finished (entity failures are reported in the summary)
  1 - Run interrupted
  2 - Command error (bad config, database unreachable, etc.)

Examples:
  climatevalue ingest weather
  climatevalue ingest vehicles --budget 25
  climatevalue ingest weather --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Budget, "budget", 0, "records per run (overrides config)")
	cmd.Flags().IntVar(&opts.Ceiling, "ceiling", -1, "per-entity record ceiling, 0 for none (overrides config)")
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "quota strategy: even|sequential (overrides config)")

	return cmd
}

func runIngest(opts *IngestOptions, name string, cmd *cobra.Command) error {
	a, err := newApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.domain(name)
	if err != nil {
		return err
	}
	if opts.Budget > 0 {
		d.Budget = opts.Budget
	}
	if opts.Ceiling >= 0 {
		d.Ceiling = opts.Ceiling
	}
	if opts.Strategy != "" {
		d.Strategy = opts.Strategy
	}

	strategy, err := ingest.ParseStrategy(d.Strategy)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid strategy", err)
	}
	start, end, err := d.Window.Bounds()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid window", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := a.source(ctx, d)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build source", err)
	}

	engine := aggregate.New(a.store, d.Fields, aggregate.WithLogger(a.logger))
	cycle, err := ingest.New(a.store, src, d.Schema(name),
		ingest.WithBudget(d.Budget),
		ingest.WithCeiling(d.Ceiling),
		ingest.WithStrategy(strategy),
		ingest.WithAggregateThreshold(d.Threshold),
		ingest.WithWindow(start, end),
		ingest.WithLogger(a.logger),
		ingest.WithObserver(a.metrics),
		ingest.WithAggregator(engine),
		ingest.WithRunIDGenerator(opts.RunIDs),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid ingest configuration", err)
	}

	summary, runErr := cycle.Run(ctx, d.EntityList(name))
	if runErr == nil {
		return a.out.Success(summary, func(w io.Writer) error {
			return writeSummary(w, summary)
		})
	}

	msg := "run aborted"
	if errors.Is(runErr, context.Canceled) {
		msg = "run interrupted; rerun to resume"
	}
	if a.out.JSON() {
		if err := a.out.Error("E_INTERRUPTED", fmt.Sprintf("%s: %v", msg, runErr), summary); err != nil {
			return err
		}
		return reportedExitError(ExitFailure, msg)
	}
	if err := writeSummary(a.out.Writer, summary); err != nil {
		return err
	}
	return WrapExitError(ExitFailure, msg, runErr)
}

// writeSummary renders a run summary as a table.
func writeSummary(w io.Writer, s model.RunSummary) error {
	fmt.Fprintf(w, "Run %s (%s, budget %d)\n", s.RunID, s.Domain, s.Budget)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tSTATUS\tPROGRESS\tALLOCATION\tINSERTED\tDUPLICATE\tSKIPPED")
	for _, e := range s.Entities {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			e.Key, e.Status, e.Progress, e.Allocation, e.Inserted, e.Duplicates, e.Skipped)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, e := range s.Entities {
		if e.Error != "" {
			fmt.Fprintf(w, "  %s: %s\n", e.Key, e.Error)
		}
	}

	complete := "no"
	if s.Complete {
		complete = "yes"
	}
	_, err := fmt.Fprintf(w, "Total: %d inserted, %d duplicate, %d skipped, %d failed; complete: %s\n",
		s.Inserted, s.Duplicates, s.Skipped, s.Failed, complete)
	return err
}
