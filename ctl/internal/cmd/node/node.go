package node

import (
	"github.com/spf13/cobra"
)

// Creates new "node" command
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Query and change cluster membership",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(
		newGetCmd(),
		newStatusCmd(),
		newStartCmd(),
		newStopCmd(),
		newAddCmd(),
		newRemoveCmd(),
	)
	return cmd
}
