package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spectrumscale/scale-go/ctl/internal/cmd/cluster"
	"github.com/spectrumscale/scale-go/ctl/internal/cmd/debug"
	"github.com/spectrumscale/scale-go/ctl/internal/cmd/filesystem"
	"github.com/spectrumscale/scale-go/ctl/internal/cmd/history"
	"github.com/spectrumscale/scale-go/ctl/internal/cmd/node"
	"github.com/spectrumscale/scale-go/ctl/internal/cmd/nsd"
	"github.com/spectrumscale/scale-go/ctl/internal/config"
	"github.com/spectrumscale/scale-go/ctl/internal/util"
	"github.com/spf13/cobra"
)

// Set by the build process using ldflags.
var (
	binaryName = "scalectl"
	version    = "unknown"
	commit     = "unknown"
	buildTime  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer config.Cleanup()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		if errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Interrupted, nodes changed before the interruption are not rolled back.\n")
		}
		return int(util.ExitCode(err))
	}
	return 0
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   binaryName,
		Short: "Query and safely change Spectrum Scale cluster membership",
		Long: `Query and safely change Spectrum Scale (GPFS) cluster membership.

Settings can be provided using flags, environment variables prefixed with SCALECTL_ (for example
SCALECTL_ADMIN_HOST) or a config file specified with --config, in that order of precedence.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadConfigFile()
		},
	}

	config.InitGlobalFlags(cmd)
	cmd.AddCommand(
		node.NewCmd(),
		filesystem.NewCmd(),
		nsd.NewCmd(),
		cluster.NewCmd(),
		history.NewCmd(),
		debug.NewCmd(),
	)
	return cmd
}
