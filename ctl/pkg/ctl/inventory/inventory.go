package inventory

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/spectrumscale/scale-go/common/mmcmd"
	"github.com/spectrumscale/scale-go/common/scale"
	"go.uber.org/zap"
)

// Messages printed by read-only commands when there is nothing to report. These are not failures.
const (
	noFilesystemsFound = "No file systems were found"
	noDisksFound       = "No disks were found"
)

// Inventory answers read-only questions about the cluster. Every call queries the cluster again,
// results are never cached.
type Inventory interface {
	Cluster(ctx context.Context) (scale.Cluster, error)
	ClusterNodes(ctx context.Context) ([]scale.ClusterNode, error)
	// NodeStates returns the state of the named nodes or all nodes if names is empty.
	NodeStates(ctx context.Context, names []string) ([]scale.NodeStatus, error)
	Filesystems(ctx context.Context) ([]scale.Filesystem, error)
	Disks(ctx context.Context, filesystem string) ([]scale.Disk, error)
	Nsds(ctx context.Context) ([]scale.NSD, error)
	Capacity(ctx context.Context, filesystem string) ([]scale.DiskCapacity, error)
}

// MM implements Inventory using the mm* list commands.
type MM struct {
	log    *zap.Logger
	runner mmcmd.Runner
}

var _ Inventory = &MM{}

func New(log *zap.Logger, runner mmcmd.Runner) *MM {
	log = log.With(zap.String("component", path.Base(reflect.TypeOf(MM{}).PkgPath())))
	return &MM{log: log, runner: runner}
}

func (m *MM) query(ctx context.Context, tolerated []string, command string, args ...string) (*mmcmd.Table, error) {
	res, err := m.runner.Run(ctx, command, args...)
	if err != nil {
		if len(tolerated) > 0 && mmcmd.IsTolerated(err, tolerated...) {
			m.log.Debug("nothing found", zap.String("command", command), zap.Strings("args", args))
			return mmcmd.Parse(""), nil
		}
		return nil, fmt.Errorf("unable to query %s: %w", command, err)
	}
	return mmcmd.Parse(res.Stdout), nil
}

func (m *MM) Cluster(ctx context.Context) (scale.Cluster, error) {
	table, err := m.query(ctx, nil, "mmlscluster", "-Y")
	if err != nil {
		return scale.Cluster{}, err
	}
	cluster := scale.Cluster{Nodes: []scale.ClusterNode{}}
	if s, ok := table.Summary("clusterSummary"); ok {
		cluster.Summary = scale.ClusterSummary{
			Name:            s.Get("clusterName"),
			ID:              s.Get("clusterId"),
			UIDDomain:       s.Get("uidDomain"),
			RshPath:         s.Get("rshPath"),
			RshSudoWrapper:  s.Get("rshSudoWrapper"),
			RcpPath:         s.Get("rcpPath"),
			RcpSudoWrapper:  s.Get("rcpSudoWrapper"),
			RepositoryType:  s.Get("repositoryType"),
			PrimaryServer:   s.Get("primaryServer"),
			SecondaryServer: s.Get("secondaryServer"),
		}
	}
	for _, r := range table.Rows("clusterNode") {
		cluster.Nodes = append(cluster.Nodes, scale.NewClusterNode(
			r.Int("nodeNumber"),
			r.Get("daemonNodeName"),
			r.Get("adminNodeName"),
			r.Get("ipAddress"),
			r.Get("adminLoginName"),
			r.Get("designation"),
			r.Get("otherNodeRoles"),
			r.Get("otherNodeRolesAlias"),
		))
	}
	return cluster, nil
}

func (m *MM) ClusterNodes(ctx context.Context) ([]scale.ClusterNode, error) {
	cluster, err := m.Cluster(ctx)
	if err != nil {
		return nil, err
	}
	return cluster.Nodes, nil
}

func (m *MM) NodeStates(ctx context.Context, names []string) ([]scale.NodeStatus, error) {
	args := []string{"-a", "-Y"}
	if len(names) > 0 {
		args = []string{"-N", strings.Join(names, ","), "-Y"}
	}
	table, err := m.query(ctx, nil, "mmgetstate", args...)
	if err != nil {
		return nil, err
	}
	states := []scale.NodeStatus{}
	seen := map[string]struct{}{}
	for _, r := range table.AllRows() {
		name := r.Get("nodeName")
		if _, ok := seen[name]; ok || name == "" {
			continue
		}
		seen[name] = struct{}{}
		states = append(states, scale.NodeStatus{
			Name:   name,
			Number: r.Int("nodeNumber"),
			State:  scale.NodeStateFromString(r.Get("state")),
			Quorum: r.Get("quorum"),
			Remark: r.Get("remarks"),
		})
	}
	return states, nil
}

func (m *MM) Filesystems(ctx context.Context) ([]scale.Filesystem, error) {
	table, err := m.query(ctx, []string{noFilesystemsFound}, "mmlsfs", "all", "-Y")
	if err != nil {
		return nil, err
	}
	filesystems := []scale.Filesystem{}
	for _, g := range table.GroupBy("deviceName") {
		if g.Key == "" {
			continue
		}
		fs := scale.Filesystem{Device: g.Key, Properties: make([]scale.Property, 0, len(g.Rows))}
		for _, r := range g.Rows {
			fs.Properties = append(fs.Properties, scale.Property{
				Field:   r.Get("fieldName"),
				Data:    r.Get("data"),
				Remarks: r.Get("remarks"),
			})
		}
		filesystems = append(filesystems, fs)
	}
	return filesystems, nil
}

func (m *MM) Disks(ctx context.Context, filesystem string) ([]scale.Disk, error) {
	table, err := m.query(ctx, []string{noDisksFound}, "mmlsdisk", filesystem, "-Y")
	if err != nil {
		return nil, err
	}
	disks := []scale.Disk{}
	for _, r := range table.AllRows() {
		if r.Get("nsdName") == "" {
			continue
		}
		disks = append(disks, scale.Disk{
			Name:             r.Get("nsdName"),
			Filesystem:       filesystem,
			DriverType:       r.Get("driverType"),
			SectorSize:       r.Get("sectorSize"),
			FailureGroup:     r.Get("failureGroup"),
			Metadata:         r.Bool("metadata"),
			Data:             r.Bool("data"),
			Status:           r.Get("status"),
			Availability:     r.Get("availability"),
			DiskID:           r.Get("diskID"),
			StoragePool:      r.Get("storagePool"),
			Remarks:          r.Get("remarks"),
			NumQuorumDisks:   r.Get("numQuorumDisks"),
			ReadQuorumValue:  r.Get("readQuorumValue"),
			WriteQuorumValue: r.Get("writeQuorumValue"),
			SizeKB:           r.Uint("diskSizeKB"),
			DiskUID:          r.Get("diskUID"),
			ThinDiskType:     r.Get("thinDiskType"),
		})
	}
	return disks, nil
}

func (m *MM) Nsds(ctx context.Context) ([]scale.NSD, error) {
	table, err := m.query(ctx, []string{noDisksFound}, "mmlsnsd", "-a", "-X", "-Y")
	if err != nil {
		return nil, err
	}
	nsds := []scale.NSD{}
	for _, r := range table.AllRows() {
		if r.Get("diskName") == "" {
			continue
		}
		servers := []string{}
		for _, s := range strings.Split(r.Get("serverList"), ",") {
			if s = strings.TrimSpace(s); s != "" {
				servers = append(servers, s)
			}
		}
		nsds = append(nsds, scale.NSD{
			Name:          r.Get("diskName"),
			VolumeID:      r.Get("volumeId"),
			DeviceType:    r.Get("deviceType"),
			Servers:       servers,
			LocalDiskName: r.Get("localDiskName"),
			Remarks:       r.Get("remarks"),
		})
	}
	return nsds, nil
}

func (m *MM) Capacity(ctx context.Context, filesystem string) ([]scale.DiskCapacity, error) {
	table, err := m.query(ctx, []string{noDisksFound}, "mmdf", filesystem, "-Y")
	if err != nil {
		return nil, err
	}
	disks := []scale.DiskCapacity{}
	for _, r := range table.Rows("nsd") {
		disks = append(disks, scale.DiskCapacity{
			NSD:              r.Get("nsdName"),
			StoragePool:      r.Get("storagePool"),
			FailureGroup:     r.Get("failureGroup"),
			Metadata:         r.Bool("metadata"),
			Data:             r.Bool("data"),
			SizeKB:           r.Uint("diskSize"),
			FreeKB:           r.Uint("freeBlocks"),
			FreePct:          r.Int("freeBlocksPct"),
			FreeFragmentsKB:  r.Uint("freeFragments"),
			AvailableForData: r.Bool("diskAvailableForAlloc"),
		})
	}
	return disks, nil
}
