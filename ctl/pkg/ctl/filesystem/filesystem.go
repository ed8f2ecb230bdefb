// Package filesystem answers questions about file systems and their disks and unmounts file systems
// from nodes.
package filesystem

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spectrumscale/scale-go/common/scale"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/admin"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/inventory"
)

type GetConfig struct {
	// Names limits the result to these devices. Empty returns all file systems.
	Names        []string
	WithDisks    bool
	WithCapacity bool
}

// Info is a file system with its disks and capacity if they were requested.
type Info struct {
	scale.Filesystem
	Disks    []scale.Disk              `json:"disks,omitempty"`
	Capacity *scale.FilesystemCapacity `json:"capacity,omitempty"`
	// DisksDown lists disks whose availability is down.
	DisksDown []string `json:"disksDown,omitempty"`
}

// GetFilesystems returns the requested file systems in the order mmlsfs reports them. Names that do
// not match a file system are returned as missing.
func GetFilesystems(ctx context.Context, inv inventory.Inventory, cfg GetConfig) ([]Info, []string, error) {
	all, err := inv.Filesystems(ctx)
	if err != nil {
		return nil, nil, err
	}

	missing := []string{}
	for _, name := range cfg.Names {
		if !slices.ContainsFunc(all, func(fs scale.Filesystem) bool { return matches(fs, name) }) {
			missing = append(missing, name)
		}
	}

	infos := []Info{}
	for _, fs := range all {
		if len(cfg.Names) > 0 && !slices.ContainsFunc(cfg.Names, func(name string) bool { return matches(fs, name) }) {
			continue
		}
		info := Info{Filesystem: fs}
		if cfg.WithDisks {
			disks, err := inv.Disks(ctx, fs.Device)
			if err != nil {
				return nil, nil, err
			}
			info.Disks = disks
			for _, d := range disks {
				if d.IsDown() {
					info.DisksDown = append(info.DisksDown, d.Name)
				}
			}
		}
		if cfg.WithCapacity {
			capacity, err := inv.Capacity(ctx, fs.Device)
			if err != nil {
				return nil, nil, err
			}
			sum := scale.SumCapacity(capacity)
			info.Capacity = &sum
		}
		infos = append(infos, info)
	}
	return infos, missing, nil
}

// Device names are accepted with or without the /dev/ prefix.
func matches(fs scale.Filesystem, name string) bool {
	return strings.TrimPrefix(fs.Device, "/dev/") == strings.TrimPrefix(strings.TrimSpace(name), "/dev/")
}

// UnmountAll unmounts all file systems on a cluster node. The node must be a cluster member.
func UnmountAll(ctx context.Context, inv inventory.Inventory, exec admin.Executor, identifier string) (scale.ClusterNode, error) {
	nodes, err := inv.ClusterNodes(ctx)
	if err != nil {
		return scale.ClusterNode{}, err
	}
	resolved, _ := scale.ResolveNodes(nodes, []string{identifier})
	if len(resolved) == 0 {
		return scale.ClusterNode{}, fmt.Errorf("%s is not a member of the cluster", identifier)
	}
	node := resolved[0]
	if _, err := exec.UnmountAll(ctx, node.AdminName); err != nil {
		return node, fmt.Errorf("unable to unmount file systems on %s: %w", node, err)
	}
	return node, nil
}
