package filesystem

import (
	"fmt"
	"strings"

	"github.com/dsnet/golib/unitconv"
	"github.com/spectrumscale/scale-go/ctl/internal/cmdfmt"
	"github.com/spectrumscale/scale-go/ctl/pkg/config"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/filesystem"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Creates new "filesystem" command
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "filesystem",
		Aliases: []string{"fs"},
		Short:   "Query file systems and unmount them from nodes",
		Args:    cobra.NoArgs,
	}

	cmd.AddCommand(newGetCmd(), newUnmountCmd())
	return cmd
}

func newGetCmd() *cobra.Command {
	cfg := filesystem.GetConfig{}
	var properties bool

	cmd := &cobra.Command{
		Use:   "get [<device> ...]",
		Short: "List file systems with their capacity and disks",
		Long: `List file systems with their capacity and disks.

By default one row per file system is printed. Use --disks to print one row per disk instead and
--properties to print all attributes reported by mmlsfs.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Names = args
			cfg.WithCapacity = true
			return runGetCmd(cmd, cfg, properties)
		},
	}

	cmd.Flags().BoolVar(&cfg.WithDisks, "disks", false, "Print the disks of each file system.")
	cmd.Flags().BoolVar(&properties, "properties", false, "Print all file system attributes.")
	return cmd
}

func runGetCmd(cmd *cobra.Command, cfg filesystem.GetConfig, properties bool) error {
	inv, err := config.Inventory()
	if err != nil {
		return err
	}
	infos, missing, err := filesystem.GetFilesystems(cmd.Context(), inv, cfg)
	if err != nil {
		return err
	}

	switch {
	case properties:
		columns := []string{"device", "field", "data", "remarks"}
		tbl := cmdfmt.NewPrintomatic(columns, columns)
		for _, fs := range infos {
			for _, p := range fs.Properties {
				tbl.AddItem(fs.Device, p.Field, p.Data, p.Remarks)
			}
		}
		tbl.PrintRemaining()
	case cfg.WithDisks:
		allColumns := []string{"device", "disk", "pool", "failure group", "metadata", "data", "status", "availability", "size", "disk id", "remarks"}
		defaultColumns := []string{"device", "disk", "pool", "failure group", "metadata", "data", "status", "availability", "size"}
		if viper.GetBool(config.DebugKey) {
			defaultColumns = allColumns
		}
		tbl := cmdfmt.NewPrintomatic(allColumns, defaultColumns)
		for _, fs := range infos {
			for _, d := range fs.Disks {
				tbl.AddItem(fs.Device, d.Name, d.StoragePool, d.FailureGroup, d.Metadata, d.Data, d.Status, d.Availability, formatKB(d.SizeKB), d.DiskID, d.Remarks)
			}
		}
		tbl.PrintRemaining()
	default:
		columns := []string{"device", "mount point", "block size", "size", "free", "free %", "disks"}
		tbl := cmdfmt.NewPrintomatic(columns, columns)
		for _, fs := range infos {
			size, free, pct := "-", "-", "-"
			if fs.Capacity != nil {
				size, free = formatKB(fs.Capacity.SizeKB), formatKB(fs.Capacity.FreeKB)
				if fs.Capacity.SizeKB > 0 {
					pct = fmt.Sprintf("%.1f", float64(fs.Capacity.FreeKB)*100/float64(fs.Capacity.SizeKB))
				}
			}
			tbl.AddItem(fs.Device, fs.DefaultMountPoint(), fs.BlockSize(), size, free, pct, strings.Join(fs.Filesystem.Disks(), ","))
		}
		tbl.PrintRemaining()
	}

	for _, fs := range infos {
		if len(fs.DisksDown) > 0 {
			cmdfmt.Printf("WARNING: file system %s has disks that are down: %s\n", fs.Device, strings.Join(fs.DisksDown, ","))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("file systems not found: %s", strings.Join(missing, ", "))
	}
	return nil
}

// formatKB prints KiB values with IEC prefixes unless raw output was requested.
func formatKB(kb uint64) string {
	if viper.GetBool(config.RawKey) {
		return fmt.Sprintf("%dKiB", kb)
	}
	return fmt.Sprintf("%sB", unitconv.FormatPrefix(float64(kb)*1024, unitconv.IEC, 1))
}

func newUnmountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unmount <node>",
		Short: "Unmount all file systems on a node",
		Long: `Unmount all file systems on a node.

A node without mounted file systems is not an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := config.Inventory()
			if err != nil {
				return err
			}
			exec, err := config.Executor()
			if err != nil {
				return err
			}
			node, err := filesystem.UnmountAll(cmd.Context(), inv, exec, args[0])
			if err != nil {
				return err
			}
			cmdfmt.Printf("Unmounted all file systems on %s.\n", node)
			return nil
		},
	}
	return cmd
}
