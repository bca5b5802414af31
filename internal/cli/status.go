package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/climatevalue/internal/model"
	"github.com/roach88/climatevalue/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Runs int
}

// Status is the data reported by the status command.
type Status struct {
	Domain     string                  `json:"domain"`
	Ceiling    int                     `json:"ceiling"`
	Entities   []store.EntityCount     `json:"entities"`
	Aggregates []model.EntityAggregate `json:"aggregates"`
	Runs       []model.RunSummary      `json:"runs"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status <domain>",
		Short: "Show per-entity progress, aggregates and recent runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Runs, "runs", 5, "number of recent runs to show")

	return cmd
}

func runStatus(opts *StatusOptions, name string, cmd *cobra.Command) error {
	a, err := newApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	status := Status{Domain: name}
	if d, ok := a.cfg.Domains[name]; ok {
		status.Ceiling = d.Ceiling
	}

	if status.Entities, err = a.store.CountsByEntity(ctx, name); err != nil {
		return WrapExitError(ExitCommandError, "failed to read counts", err)
	}
	if status.Aggregates, err = a.store.Aggregates(ctx, name); err != nil {
		return WrapExitError(ExitCommandError, "failed to read aggregates", err)
	}
	if status.Runs, err = a.store.Runs(ctx, name, opts.Runs); err != nil {
		return WrapExitError(ExitCommandError, "failed to read runs", err)
	}

	return a.out.Success(status, func(w io.Writer) error {
		return writeStatus(w, status)
	})
}

func writeStatus(w io.Writer, s Status) error {
	fmt.Fprintf(w, "Domain %s\n", s.Domain)
	if len(s.Entities) == 0 {
		_, err := fmt.Fprintln(w, "No entities.")
		return err
	}

	aggregated := make(map[int64]bool, len(s.Aggregates))
	for _, ea := range s.Aggregates {
		aggregated[ea.Entity.ID] = true
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tLOCALITY\tRECORDS\tAGGREGATE")
	for _, ec := range s.Entities {
		count := fmt.Sprintf("%d", ec.Count)
		if s.Ceiling > 0 {
			count = fmt.Sprintf("%d/%d", ec.Count, s.Ceiling)
		}
		agg := "no"
		if aggregated[ec.Entity.ID] {
			agg = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ec.Entity.Key, ec.Entity.Locality, count, agg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.Runs) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nRecent runs:")
	for _, r := range s.Runs {
		fmt.Fprintf(w, "  %s  %s  inserted=%d duplicates=%d skipped=%d failed=%d complete=%t\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.RunID,
			r.Inserted, r.Duplicates, r.Skipped, r.Failed, r.Complete)
	}
	return nil
}
