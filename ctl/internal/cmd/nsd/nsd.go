package nsd

import (
	"strings"

	"github.com/spectrumscale/scale-go/ctl/internal/cmdfmt"
	"github.com/spectrumscale/scale-go/ctl/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Creates new "nsd" command
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nsd",
		Short: "Query network shared disks",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newListCmd())
	return cmd
}

func newListCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List network shared disks and their servers",
		Long: `List network shared disks and their servers.

The first server is the primary server of the disk. Disks with more than one server remain
accessible when a single server is removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListCmd(cmd, server)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Only list disks served by this node (IP address, admin or daemon name).")
	return cmd
}

func runListCmd(cmd *cobra.Command, server string) error {
	inv, err := config.Inventory()
	if err != nil {
		return err
	}
	nsds, err := inv.Nsds(cmd.Context())
	if err != nil {
		return err
	}
	if server != "" {
		nodes, err := inv.ClusterNodes(cmd.Context())
		if err != nil {
			return err
		}
		// The server list may use any of the node's names.
		match := func(s string) bool { return s == server }
		for _, n := range nodes {
			if n.Matches(server) {
				match = n.Matches
				break
			}
		}
		filtered := nsds[:0]
		for _, nsd := range nsds {
			for _, s := range nsd.Servers {
				if match(s) {
					filtered = append(filtered, nsd)
					break
				}
			}
		}
		nsds = filtered
	}

	allColumns := []string{"name", "servers", "shared", "device type", "local disk", "volume id", "remarks"}
	defaultColumns := []string{"name", "servers", "shared", "device type", "local disk"}
	if viper.GetBool(config.DebugKey) {
		defaultColumns = allColumns
	}
	tbl := cmdfmt.NewPrintomatic(allColumns, defaultColumns)
	for _, nsd := range nsds {
		tbl.AddItem(nsd.Name, strings.Join(nsd.Servers, ","), nsd.IsShared(), nsd.DeviceType, nsd.LocalDiskName, nsd.VolumeID, nsd.Remarks)
	}
	tbl.PrintRemaining()
	return nil
}
