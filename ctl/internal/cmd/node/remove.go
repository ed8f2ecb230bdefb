package node

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spectrumscale/scale-go/ctl/internal/cmdfmt"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type removeConfig struct {
	yes       bool
	keepGoing bool
}

func newRemoveCmd() *cobra.Command {
	cfg := removeConfig{}

	cmd := &cobra.Command{
		Use:   "remove <node> [<node> ...]",
		Short: "Safely remove nodes from the cluster",
		Long: `Safely remove nodes from the cluster.

Before anything is changed the cluster must be healthy: every node must be active and no disk may
be down. Nodes holding a quorum, manager, gateway, ces, tct or snmp role are refused, move the role
to another node first.

For each node that can be removed:
  * the node is removed from the server list of NSDs it shares with other servers,
  * file systems are checked to have enough free space to absorb the data on disks only it serves,
  * those disks are emptied and deleted (this migrates data and can take a long time),
  * file systems are unmounted, the daemon is stopped and the node is removed from the cluster.

Nodes are processed one at a time. By default the first failure aborts the remaining nodes. Use
--keep-going to continue with the next node when a node is refused because of insufficient capacity.
Nodes that are already removed are not rolled back.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.yes {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("removing nodes migrates data and cannot be undone, if you're sure this is what you want add the --yes flag")
				}
				ok, err := confirm(os.Stdin, cmd.OutOrStdout(), args)
				if err != nil {
					return err
				}
				if !ok {
					cmdfmt.Printf("Aborted, no changes were made.\n")
					return nil
				}
			}
			return runRemoveCmd(cmd, args, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.yes, "yes", false, "Do not ask for confirmation (required when not running interactively).")
	cmd.Flags().BoolVar(&cfg.keepGoing, "keep-going", false, "Continue with the next node when a node is refused because of insufficient capacity.")
	return cmd
}

func confirm(in io.Reader, out io.Writer, identifiers []string) (bool, error) {
	fmt.Fprintf(out, "The following nodes will be removed from the cluster: %s\nContinue? [y/N]: ", strings.Join(identifiers, ", "))
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("unable to read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func runRemoveCmd(cmd *cobra.Command, identifiers []string, cfg removeConfig) error {
	o, err := newOrchestrator(cfg.keepGoing)
	if err != nil {
		return err
	}
	return cmdfmt.PrintBatchReport(o.RemoveNodes(cmd.Context(), identifiers))
}
