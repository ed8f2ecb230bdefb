package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/spectrumscale/scale-go/ctl/internal/cmdfmt"
	"github.com/spectrumscale/scale-go/ctl/pkg/config"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/node"
	"github.com/spf13/cobra"
)

// Creates new "history" command
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past batch operations recorded in the journal",
		Long: fmt.Sprintf(`Show past batch operations recorded in the journal.

The report of every node add, remove, start and stop batch is kept in the state directory
(--%s) unless --%s is set.`, config.StateDirKey, config.JournalDisableKey),
		Args: cobra.NoArgs,
	}
	cmd.AddCommand(newListCmd(), newShowCmd())
	return cmd
}

func openJournal() (*node.Journal, error) {
	j, err := config.Journal()
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, fmt.Errorf("the journal is disabled (unset --%s)", config.JournalDisableKey)
	}
	return j, nil
}

func newListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded batches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal()
			if err != nil {
				return err
			}
			reports, err := j.List(limit)
			if err != nil {
				return err
			}
			columns := []string{"id", "operation", "started", "duration", "phase", "requested", "succeeded", "failed", "changed"}
			tbl := cmdfmt.NewPrintomatic(columns, columns)
			for _, r := range reports {
				tbl.AddItem(r.ID, r.Operation, r.Started.Local().Format(time.DateTime), r.Finished.Sub(r.Started).Round(time.Second),
					r.Phase, strings.Join(r.Requested, ","), len(r.Succeeded()), len(r.Failed()), r.Changed)
			}
			tbl.PrintRemaining()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of batches to list (0 lists all).")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the report of a recorded batch",
		Long: `Show the report of a recorded batch.

A unique prefix of the batch ID is sufficient.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal()
			if err != nil {
				return err
			}
			report, err := j.Get(args[0])
			if err != nil {
				return err
			}
			// The batch already ended, only failures to show it are returned.
			return cmdfmt.PrintBatchReport(report, nil)
		},
	}
}
