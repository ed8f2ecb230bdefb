package debug

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spectrumscale/scale-go/common/mmcmd"
	"github.com/spectrumscale/scale-go/ctl/internal/cmdfmt"
	"github.com/spectrumscale/scale-go/ctl/pkg/config"
	"github.com/spf13/cobra"
)

// Only commands that do not change the cluster can be run.
var readOnlyCommands = []string{"mmlscluster", "mmgetstate", "mmlsfs", "mmlsdisk", "mmlsnsd", "mmdf", "mmlsmount", "mmlsconfig", "mmlslicense", "mmlsnode"}

// Creates new "debug" command
func NewCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:    "debug <command> [<arg> ...]",
		Hidden: true,
		Short:  "Run a read-only administration command and print its parsed output",
		Long: `Run a read-only administration command and print its parsed output.

The command is run the same way scalectl runs it internally (including --admin-host, --cmd-timeout
and --cmd-retries). The -Y flag is added if missing and the machine readable output is printed as
JSON grouped by data type. Use --raw-output to print stdout unmodified.

Known commands: ` + strings.Join(readOnlyCommands, ", ") + `

This is a debug tool and NOT meant for normal use.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebugCmd(cmd, args[0], args[1:], raw)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw-output", false, "Print stdout of the command without parsing it.")
	return cmd
}

func runDebugCmd(cmd *cobra.Command, command string, args []string, raw bool) error {
	if !slices.Contains(readOnlyCommands, command) {
		return fmt.Errorf("%s is not a known read-only command (known: %s)", command, strings.Join(readOnlyCommands, ", "))
	}
	if !raw && !slices.Contains(args, "-Y") {
		args = append(args, "-Y")
	}
	runner, err := config.Runner()
	if err != nil {
		return err
	}
	res, err := runner.Run(cmd.Context(), command, args...)
	if err != nil {
		return err
	}
	if raw {
		fmt.Print(res.Stdout)
		return nil
	}
	return cmdfmt.PrintResult(groupRecords(mmcmd.Parse(res.Stdout)))
}

func groupRecords(t *mmcmd.Table) map[string][]mmcmd.Record {
	grouped := map[string][]mmcmd.Record{}
	for _, dt := range t.Datatypes() {
		grouped[dt] = t.Rows(dt)
	}
	return grouped
}
