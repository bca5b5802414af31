package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/climatevalue/internal/store"
)

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check the store for duplicate records",
		Long: `List every (entity, discriminator) pair stored more than once.

Exit codes:
  0 - No duplicates
  1 - Duplicates found
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, cmd)
		},
	}
}

func runAudit(opts *RootOptions, cmd *cobra.Command) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	groups, err := a.store.Duplicates(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to audit records", err)
	}
	if groups == nil {
		groups = []store.DuplicateGroup{}
	}

	if len(groups) > 0 {
		msg := fmt.Sprintf("%d duplicate group(s) found", len(groups))
		if a.out.JSON() {
			if err := a.out.Error("E_DUPLICATES", msg, groups); err != nil {
				return err
			}
		} else {
			w := a.out.Writer
			for _, g := range groups {
				fmt.Fprintf(w, "%s %s: %d copies\n", g.Key, g.Discriminator, g.Count)
			}
		}
		return reportedExitError(ExitFailure, msg)
	}

	if err := a.out.Success(groups, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "No duplicates found.")
		return err
	}); err != nil {
		return err
	}
	return nil
}
