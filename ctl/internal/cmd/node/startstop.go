package node

import (
	"context"

	"github.com/spectrumscale/scale-go/ctl/internal/cmdfmt"
	"github.com/spectrumscale/scale-go/ctl/pkg/config"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/node"
	"github.com/spf13/cobra"
)

type batchFunc func(o *node.Orchestrator, ctx context.Context, identifiers []string) (node.BatchReport, error)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <node> [<node> ...]",
		Short: "Start the GPFS daemon on nodes and wait until they are active",
		Long: `Start the GPFS daemon on nodes and wait until they are active.

Nodes can be specified by IP address, admin name or daemon name. Identifiers that do not match a
cluster member are reported as skipped. Nodes that do not become active before --poll-retries
checks are reported as failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchCmd(cmd, args, (*node.Orchestrator).StartNodes)
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <node> [<node> ...]",
		Short: "Stop the GPFS daemon on nodes and wait until they are down",
		Long: `Stop the GPFS daemon on nodes and wait until they are down.

Stopping a node unmounts all file systems on it. Quorum is not checked, stopping too many quorum
nodes makes the cluster unavailable.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchCmd(cmd, args, (*node.Orchestrator).StopNodes)
		},
	}
}

func runBatchCmd(cmd *cobra.Command, identifiers []string, run batchFunc) error {
	o, err := newOrchestrator(false)
	if err != nil {
		return err
	}
	return cmdfmt.PrintBatchReport(run(o, cmd.Context(), identifiers))
}

// newOrchestrator builds an orchestrator that logs progress updates at info level.
func newOrchestrator(keepGoing bool) (*node.Orchestrator, error) {
	log, err := config.GetLogger()
	if err != nil {
		return nil, err
	}
	settings, err := config.GetSettings()
	if err != nil {
		return nil, err
	}
	cfg := settings.OrchestratorConfig()
	cfg.KeepGoing = keepGoing
	return config.Orchestrator(cfg, node.WithProgress(func(message string) {
		log.Info(message)
	}))
}
