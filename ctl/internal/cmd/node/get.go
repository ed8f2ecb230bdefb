package node

import (
	"fmt"
	"strings"

	"github.com/spectrumscale/scale-go/ctl/internal/cmdfmt"
	"github.com/spectrumscale/scale-go/ctl/pkg/config"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/node"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newGetCmd() *cobra.Command {
	cfg := node.GetConfig{}

	cmd := &cobra.Command{
		Use:   "get [node ...]",
		Short: "List cluster nodes and their roles",
		Long: `List cluster nodes and their roles.

Nodes can be selected by IP address, admin name or daemon name, or by a glob pattern
matched against any of them (for example "io*" or "*.rack1.example.com"). If no nodes are
specified all nodes are listed.

The removable column shows if a node holds none of the roles that prevent it from being
removed (quorum, manager, gateway, ces, tct and snmp).`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Selectors = args
			return runGetCmd(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.Filter, "filter", "", node.FilterNodesHelp)
	cmd.Flags().BoolVar(&cfg.WithState, "state", false, "Also query the daemon state of each node (required to filter by state).")
	return cmd
}

func runGetCmd(cmd *cobra.Command, cfg node.GetConfig) error {
	inv, err := config.Inventory()
	if err != nil {
		return err
	}
	nodes, err := node.GetNodes(cmd.Context(), inv, cfg)
	if err != nil {
		return err
	}

	allColumns := []string{"number", "admin name", "daemon name", "ip", "designation", "roles", "removable", "state", "role codes", "role aliases"}
	defaultColumns := []string{"number", "admin name", "ip", "roles", "removable"}
	if cfg.WithState {
		defaultColumns = append(defaultColumns, "state")
	}
	if viper.GetBool(config.DebugKey) {
		defaultColumns = allColumns
	}
	tbl := cmdfmt.NewPrintomatic(allColumns, defaultColumns)
	for _, n := range nodes {
		tbl.AddItem(n.Number, n.AdminName, n.DaemonName, n.IP, n.Designation, n.Roles.String(), n.Removable, n.State, n.RoleCodes, n.RoleAliases)
	}
	tbl.PrintRemaining()
	if len(nodes) == 0 && len(cfg.Selectors) > 0 {
		cmdfmt.Printf("No nodes match %s.\n", strings.Join(cfg.Selectors, ", "))
	}
	return nil
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [node ...]",
		Short: "Show the daemon state of cluster nodes",
		Long: `Show the daemon state of cluster nodes as reported by mmgetstate.

If no nodes are specified the state of all nodes is shown. Nodes that are not
cluster members are reported and cause a non-zero exit code.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatusCmd(cmd, args)
		},
	}
	return cmd
}

func runStatusCmd(cmd *cobra.Command, identifiers []string) error {
	inv, err := config.Inventory()
	if err != nil {
		return err
	}
	states, unresolved, err := node.NodeStatus(cmd.Context(), inv, identifiers)
	if err != nil {
		return err
	}

	columns := []string{"number", "name", "state", "quorum", "remarks"}
	tbl := cmdfmt.NewPrintomatic(columns, columns)
	unhealthy := 0
	for _, s := range states {
		if !s.State.Healthy() {
			unhealthy++
		}
		tbl.AddItem(s.Number, s.Name, s.State, s.Quorum, s.Remark)
	}
	tbl.PrintRemaining()

	if len(unresolved) > 0 {
		return fmt.Errorf("not cluster members: %s", strings.Join(unresolved, ", "))
	}
	if unhealthy > 0 {
		cmdfmt.Printf("%d of %d nodes are not active.\n", unhealthy, len(states))
	}
	return nil
}
