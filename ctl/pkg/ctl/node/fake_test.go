package node

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spectrumscale/scale-go/common/mmcmd"
	"github.com/spectrumscale/scale-go/common/scale"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/admin"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/inventory"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// fakeCluster is an in-memory cluster implementing both the inventory and the executor. Mutating
// calls change what later queries return so orchestration can be tested end to end. Every call is
// recorded in order.
type fakeCluster struct {
	mu          sync.Mutex
	nodes       []scale.ClusterNode
	states      map[string]scale.NodeState
	filesystems []string
	disks       map[string][]scale.Disk
	nsds        []scale.NSD
	capacity    map[string][]scale.DiskCapacity
	calls       []string
	// fail makes every call starting with the key return the error.
	fail map[string]error
	// frozenStates ignores state changes of start and shutdown, stuck only for some nodes.
	frozenStates bool
	stuck        map[string]bool
	// frozenNsds ignores server list changes.
	frozenNsds bool
	// fs is where added node stanza files are read from.
	fs afero.Fs
}

var (
	_ inventory.Inventory = &fakeCluster{}
	_ admin.Executor      = &fakeCluster{}
)

func newFakeCluster(nodes ...scale.ClusterNode) *fakeCluster {
	c := &fakeCluster{
		nodes:    nodes,
		states:   map[string]scale.NodeState{},
		disks:    map[string][]scale.Disk{},
		capacity: map[string][]scale.DiskCapacity{},
		fail:     map[string]error{},
		stuck:    map[string]bool{},
	}
	for _, n := range nodes {
		c.states[n.String()] = scale.StateActive
	}
	return c
}

func testNode(number int, name string, designation string) scale.ClusterNode {
	return scale.NewClusterNode(number, name+".example.com", name, fmt.Sprintf("10.0.0.%d", number), "root", designation, "", "")
}

// addDisk adds an NSD served by the provided servers to a filesystem.
func (c *fakeCluster) addDisk(fs string, nsd string, sizeKB, freeKB uint64, servers ...string) {
	if !slices.Contains(c.filesystems, fs) {
		c.filesystems = append(c.filesystems, fs)
	}
	c.disks[fs] = append(c.disks[fs], scale.Disk{Name: nsd, Filesystem: fs, Availability: "up", Status: "ready", SizeKB: sizeKB})
	c.capacity[fs] = append(c.capacity[fs], scale.DiskCapacity{NSD: nsd, SizeKB: sizeKB, FreeKB: freeKB})
	c.nsds = append(c.nsds, scale.NSD{Name: nsd, Servers: servers, Remarks: scale.RemarkServerNode})
}

func (c *fakeCluster) record(call string) error {
	c.calls = append(c.calls, call)
	for prefix, err := range c.fail {
		if strings.HasPrefix(call, prefix) {
			return err
		}
	}
	return nil
}

func (c *fakeCluster) callLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// mutations returns the recorded executor calls.
func (c *fakeCluster) mutations() []string {
	out := []string{}
	for _, call := range c.callLog() {
		if strings.HasPrefix(call, "mm") {
			out = append(out, call)
		}
	}
	return out
}

func (c *fakeCluster) indexOf(call string) int {
	return slices.Index(c.callLog(), call)
}

func (c *fakeCluster) Cluster(ctx context.Context) (scale.Cluster, error) {
	nodes, err := c.ClusterNodes(ctx)
	return scale.Cluster{Summary: scale.ClusterSummary{Name: "test.example.com"}, Nodes: nodes}, err
}

func (c *fakeCluster) ClusterNodes(ctx context.Context) ([]scale.ClusterNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("ClusterNodes"); err != nil {
		return nil, err
	}
	return slices.Clone(c.nodes), nil
}

func (c *fakeCluster) NodeStates(ctx context.Context, names []string) ([]scale.NodeStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("NodeStates " + strings.Join(names, ",")); err != nil {
		return nil, err
	}
	states := []scale.NodeStatus{}
	for _, n := range c.nodes {
		if len(names) == 0 || slices.Contains(names, n.String()) {
			states = append(states, scale.NodeStatus{Name: n.String(), Number: n.Number, State: c.states[n.String()]})
		}
	}
	return states, nil
}

func (c *fakeCluster) Filesystems(ctx context.Context) ([]scale.Filesystem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("Filesystems"); err != nil {
		return nil, err
	}
	out := []scale.Filesystem{}
	for _, fs := range c.filesystems {
		out = append(out, scale.Filesystem{Device: fs})
	}
	return out, nil
}

func (c *fakeCluster) Disks(ctx context.Context, fs string) ([]scale.Disk, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("Disks " + fs); err != nil {
		return nil, err
	}
	return slices.Clone(c.disks[fs]), nil
}

func (c *fakeCluster) Nsds(ctx context.Context) ([]scale.NSD, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("Nsds"); err != nil {
		return nil, err
	}
	out := make([]scale.NSD, 0, len(c.nsds))
	for _, n := range c.nsds {
		n.Servers = slices.Clone(n.Servers)
		out = append(out, n)
	}
	return out, nil
}

func (c *fakeCluster) Capacity(ctx context.Context, fs string) ([]scale.DiskCapacity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("Capacity " + fs); err != nil {
		return nil, err
	}
	return slices.Clone(c.capacity[fs]), nil
}

func (c *fakeCluster) setState(names []string, state scale.NodeState) {
	if c.frozenStates {
		return
	}
	for _, name := range names {
		if !c.stuck[name] {
			c.states[name] = state
		}
	}
}

func (c *fakeCluster) ShutdownNodes(ctx context.Context, names []string) (mmcmd.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("mmshutdown " + strings.Join(names, ",")); err != nil {
		return mmcmd.Result{}, err
	}
	c.setState(names, scale.StateDown)
	return mmcmd.Result{}, nil
}

func (c *fakeCluster) StartNodes(ctx context.Context, names []string) (mmcmd.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("mmstartup " + strings.Join(names, ",")); err != nil {
		return mmcmd.Result{}, err
	}
	c.setState(names, scale.StateActive)
	return mmcmd.Result{}, nil
}

func (c *fakeCluster) DeleteNodes(ctx context.Context, names []string) (mmcmd.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("mmdelnode " + strings.Join(names, ",")); err != nil {
		return mmcmd.Result{}, err
	}
	c.nodes = slices.DeleteFunc(c.nodes, func(n scale.ClusterNode) bool { return slices.Contains(names, n.String()) })
	return mmcmd.Result{}, nil
}

func (c *fakeCluster) DeleteDisks(ctx context.Context, node string, fs string, disks []string) (mmcmd.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(fmt.Sprintf("mmdeldisk %s %s %s", fs, strings.Join(disks, ";"), node)); err != nil {
		return mmcmd.Result{}, err
	}
	c.disks[fs] = slices.DeleteFunc(c.disks[fs], func(d scale.Disk) bool { return slices.Contains(disks, d.Name) })
	c.capacity[fs] = slices.DeleteFunc(c.capacity[fs], func(d scale.DiskCapacity) bool { return slices.Contains(disks, d.NSD) })
	return mmcmd.Result{}, nil
}

func (c *fakeCluster) DeleteNsds(ctx context.Context, nsds []string) (mmcmd.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("mmdelnsd " + strings.Join(nsds, ";")); err != nil {
		return mmcmd.Result{}, err
	}
	c.nsds = slices.DeleteFunc(c.nsds, func(n scale.NSD) bool { return slices.Contains(nsds, n.Name) })
	return mmcmd.Result{}, nil
}

func (c *fakeCluster) ChangeNsdServers(ctx context.Context, nsd string, servers []string) (mmcmd.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(fmt.Sprintf("mmchnsd %s:%s", nsd, strings.Join(servers, ","))); err != nil {
		return mmcmd.Result{}, err
	}
	if !c.frozenNsds {
		for i := range c.nsds {
			if c.nsds[i].Name == nsd {
				c.nsds[i].Servers = slices.Clone(servers)
			}
		}
	}
	return mmcmd.Result{}, nil
}

func (c *fakeCluster) UnmountAll(ctx context.Context, node string) (mmcmd.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mmcmd.Result{}, c.record("mmumount " + node)
}

func (c *fakeCluster) AddNodes(ctx context.Context, stanzaFile string) (mmcmd.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("mmaddnode"); err != nil {
		return mmcmd.Result{}, err
	}
	if c.fs == nil {
		return mmcmd.Result{}, nil
	}
	data, err := afero.ReadFile(c.fs, stanzaFile)
	if err != nil {
		return mmcmd.Result{}, err
	}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		fields := strings.Split(line, ":")
		admin := fields[2]
		if admin == "" {
			admin = fields[0]
		}
		number := len(c.nodes) + 1
		n := scale.NewClusterNode(number, fields[0], admin, fmt.Sprintf("10.0.1.%d", number), "root", fields[1], "", "")
		c.nodes = append(c.nodes, n)
		c.states[n.String()] = scale.StateDown
	}
	return mmcmd.Result{}, nil
}

func (c *fakeCluster) ApplyLicense(ctx context.Context, names []string, license scale.License) (mmcmd.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mmcmd.Result{}, c.record(fmt.Sprintf("mmchlicense %s %s", license, strings.Join(names, ",")))
}

// memRecorder keeps recorded reports in memory.
type memRecorder struct {
	reports []BatchReport
}

func (r *memRecorder) Record(report BatchReport) error {
	r.reports = append(r.reports, report)
	return nil
}

func testConfig() Config {
	return Config{
		StateWait:  WaitConfig{Interval: time.Millisecond, Retries: 3},
		DetachWait: WaitConfig{Interval: time.Millisecond, Retries: 3},
	}
}

func newTestOrchestrator(t *testing.T, c *fakeCluster, cfg Config, opts ...Option) *Orchestrator {
	t.Helper()
	return NewOrchestrator(zap.NewNop(), c, c, cfg, opts...)
}

func nodeReport(t *testing.T, r BatchReport, name string) NodeReport {
	t.Helper()
	for _, n := range r.Nodes {
		if n.Node == name {
			return n
		}
	}
	t.Fatalf("no report for node %s in %+v", name, r.Nodes)
	return NodeReport{}
}
