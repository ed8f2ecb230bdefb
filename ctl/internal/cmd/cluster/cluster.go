package cluster

import (
	"github.com/spectrumscale/scale-go/ctl/internal/cmdfmt"
	"github.com/spectrumscale/scale-go/ctl/pkg/config"
	"github.com/spf13/cobra"
)

// Creates new "cluster" command
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Query the cluster configuration",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newGetCmd())
	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the cluster summary and its nodes",
		Long: `Print the cluster summary and its nodes as reported by mmlscluster.

Use "scalectl node get" for more ways to select and filter nodes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGetCmd(cmd)
		},
	}
}

func runGetCmd(cmd *cobra.Command) error {
	inv, err := config.Inventory()
	if err != nil {
		return err
	}
	cluster, err := inv.Cluster(cmd.Context())
	if err != nil {
		return err
	}

	if cmdfmt.Structured() {
		return cmdfmt.PrintResult(cluster)
	}

	s := cluster.Summary
	cmdfmt.Printf("Cluster name:     %s\n", s.Name)
	cmdfmt.Printf("Cluster id:       %s\n", s.ID)
	cmdfmt.Printf("UID domain:       %s\n", s.UIDDomain)
	cmdfmt.Printf("Remote shell:     %s (sudo wrapper: %s)\n", s.RshPath, s.RshSudoWrapper)
	cmdfmt.Printf("Remote copy:      %s (sudo wrapper: %s)\n", s.RcpPath, s.RcpSudoWrapper)
	cmdfmt.Printf("Repository type:  %s\n", s.RepositoryType)
	if s.PrimaryServer != "" {
		cmdfmt.Printf("Primary server:   %s\n", s.PrimaryServer)
		cmdfmt.Printf("Secondary server: %s\n", s.SecondaryServer)
	}
	cmdfmt.Printf("\n")

	columns := []string{"number", "daemon name", "ip", "admin name", "designation", "roles"}
	tbl := cmdfmt.NewPrintomatic(columns, columns)
	for _, n := range cluster.Nodes {
		tbl.AddItem(n.Number, n.DaemonName, n.IP, n.AdminName, n.Designation, n.Roles.String())
	}
	tbl.PrintRemaining()
	return nil
}
