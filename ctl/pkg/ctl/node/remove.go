package node

import (
	"context"
	"errors"
	"fmt"
	"path"
	"reflect"
	"slices"
	"strings"

	"github.com/spectrumscale/scale-go/common/scale"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/admin"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/inventory"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type Config struct {
	// KeepGoing continues with the next node when a node is rejected by the capacity check. Failures
	// after a node was partially changed always abort the batch.
	KeepGoing  bool       `mapstructure:"keep-going"`
	StateWait  WaitConfig `mapstructure:"state-wait"`
	DetachWait WaitConfig `mapstructure:"detach-wait"`
}

func DefaultConfig() Config {
	return Config{
		StateWait:  DefaultStateWait(),
		DetachWait: DefaultDetachWait(),
	}
}

// Recorder persists the report of every finished batch.
type Recorder interface {
	Record(report BatchReport) error
}

// Orchestrator runs batch operations that change cluster membership. Batches run strictly
// sequentially and every decision is based on a fresh inventory query.
type Orchestrator struct {
	log      *zap.Logger
	inv      inventory.Inventory
	exec     admin.Executor
	cfg      Config
	fs       afero.Fs
	recorder Recorder
	onUpdate func(string)
}

type Option func(*Orchestrator)

// WithRecorder records the report of every batch.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithProgress is called with a message every time a batch makes progress.
func WithProgress(fn func(message string)) Option {
	return func(o *Orchestrator) { o.onUpdate = fn }
}

// WithFs sets the filesystem used to write node stanza files (defaults to the OS filesystem).
func WithFs(fs afero.Fs) Option {
	return func(o *Orchestrator) { o.fs = fs }
}

func NewOrchestrator(log *zap.Logger, inv inventory.Inventory, exec admin.Executor, cfg Config, opts ...Option) *Orchestrator {
	log = log.With(zap.String("component", path.Base(reflect.TypeOf(Orchestrator{}).PkgPath())))
	o := &Orchestrator{
		log:  log,
		inv:  inv,
		exec: exec,
		cfg:  cfg,
		fs:   afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// finish ends the batch, records its report and returns the error of the batch. If the batch
// completed but some nodes failed ErrNodesFailed is returned.
func (o *Orchestrator) finish(b *batch, err error) (BatchReport, error) {
	var report BatchReport
	if err != nil {
		report = b.abort(err)
	} else {
		report = b.complete()
		if failed := report.Failed(); len(failed) > 0 {
			err = fmt.Errorf("%w: %s", ErrNodesFailed, strings.Join(failed, ","))
		}
	}
	if o.recorder != nil {
		if recErr := o.recorder.Record(report); recErr != nil {
			o.log.Warn("unable to record batch report", zap.String("batch", report.ID), zap.Error(recErr))
		}
	}
	return report, err
}

// RemoveNodes safely removes the identified nodes from the cluster. Identifiers may be IP
// addresses, admin names or daemon names. Identifiers that are not cluster members are skipped.
//
// Before anything is changed the whole cluster must be healthy, no target may hold a protected role
// and no disk may be down. Shared NSDs of all targets are then detached at once, and each target is
// processed in turn: its remaining disks are evacuated after a capacity check, its NSDs deleted,
// filesystems unmounted, the node shut down and finally deleted. Nodes removed before a failure
// stay removed.
func (o *Orchestrator) RemoveNodes(ctx context.Context, identifiers []string) (BatchReport, error) {
	b := newBatch(o.log, OperationRemove, identifiers, o.onUpdate)
	return o.finish(b, o.removeNodes(ctx, b, identifiers))
}

func (o *Orchestrator) removeNodes(ctx context.Context, b *batch, identifiers []string) error {
	if len(identifiers) == 0 {
		return ErrNoIdentifiers
	}

	if err := o.checkClusterHealth(ctx); err != nil {
		return err
	}
	b.advance(PhaseHealthChecked)

	nodes, err := o.inv.ClusterNodes(ctx)
	if err != nil {
		return err
	}
	targets, unresolved := scale.ResolveNodes(nodes, identifiers)
	for _, id := range unresolved {
		b.skip(id, "not a member of the cluster")
	}
	for _, t := range targets {
		b.addNode(t.String())
	}
	b.advance(PhaseRoleFiltered)
	if len(targets) == 0 {
		b.log("no cluster members to remove")
		return nil
	}

	for _, t := range targets {
		if !IsRemovable(t) {
			err := fmt.Errorf("%w: %s is %s", ErrProtectedRole, t, ProtectedRoles(t))
			b.nodeFailed(t.String(), err)
			return err
		}
	}

	plans, err := o.buildPlans(ctx, nodes, targets)
	if err != nil {
		return err
	}
	for _, p := range plans {
		b.nodeUpdate(p.Node, func(n *NodeReport) {
			for _, d := range p.Detach {
				n.Detached = append(n.Detached, d.NSD)
			}
		})
	}
	b.advance(PhasePlanBuilt)

	if err := o.detachSharedNsds(ctx, b, targets, plans); err != nil {
		return err
	}
	b.advance(PhaseNsdDetached)

	for _, t := range targets {
		if err := o.removeNode(ctx, b, t); err != nil {
			b.nodeFailed(t.String(), err)
			if o.cfg.KeepGoing && isRejection(err) {
				continue
			}
			return err
		}
		b.nodeDone(t.String(), OutcomeRemoved)
	}
	return nil
}

// isRejection is true for errors raised before a node was changed.
func isRejection(err error) bool {
	var capErr *CapacityError
	return errors.As(err, &capErr)
}

// checkClusterHealth fails if any node of the cluster is down, arbitrating or in an unknown state.
func (o *Orchestrator) checkClusterHealth(ctx context.Context) error {
	states, err := o.inv.NodeStates(ctx, nil)
	if err != nil {
		return err
	}
	unhealthy := []string{}
	for _, s := range states {
		if !s.State.Healthy() {
			unhealthy = append(unhealthy, fmt.Sprintf("%s (%s)", s.Name, s.State))
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("%w: %s", ErrClusterUnhealthy, strings.Join(unhealthy, ", "))
	}
	return nil
}

// checkDiskHealth fails if any disk of any filesystem is down.
func (o *Orchestrator) checkDiskHealth(ctx context.Context) error {
	filesystems, err := o.inv.Filesystems(ctx)
	if err != nil {
		return err
	}
	down := []string{}
	for _, fs := range filesystems {
		disks, err := o.inv.Disks(ctx, fs.Device)
		if err != nil {
			return err
		}
		for _, d := range disks {
			if d.IsDown() {
				down = append(down, fmt.Sprintf("%s/%s", fs.Device, d.Name))
			}
		}
	}
	if len(down) > 0 {
		return fmt.Errorf("%w: %s", ErrDiskUnhealthy, strings.Join(down, ", "))
	}
	return nil
}

func (o *Orchestrator) buildPlans(ctx context.Context, nodes []scale.ClusterNode, targets []scale.ClusterNode) ([]Plan, error) {
	if err := o.checkDiskHealth(ctx); err != nil {
		return nil, err
	}
	nsds, err := o.inv.Nsds(ctx)
	if err != nil {
		return nil, err
	}
	plans := PlanBatch(targets, BuildNsdMaps(nodes, nsds))
	for _, p := range plans {
		o.log.Info("planned node removal", zap.String("node", p.Node), zap.Any("detach", p.Detach), zap.Strings("evacuate", p.Evacuate))
	}
	return plans, nil
}

// detachSharedNsds removes every target from the server list of its shared NSDs, then waits until
// the new server lists are visible.
func (o *Orchestrator) detachSharedNsds(ctx context.Context, b *batch, targets []scale.ClusterNode, plans []Plan) error {
	detachedFrom := map[string][]scale.ClusterNode{}
	for i, p := range plans {
		for _, d := range p.Detach {
			if _, err := o.exec.ChangeNsdServers(ctx, d.NSD, d.RemainingServers); err != nil {
				b.nodeFailed(p.Node, err)
				return fmt.Errorf("unable to detach %s from %s: %w", p.Node, d.NSD, err)
			}
			detachedFrom[d.NSD] = append(detachedFrom[d.NSD], targets[i])
		}
		if len(p.Detach) > 0 {
			b.nodeAdvance(p.Node, PhaseNsdDetached)
		}
	}
	return o.waitForDetach(ctx, detachedFrom)
}

// removeNode evacuates and deletes the NSDs only served by the node, then shuts down and deletes
// the node. A node without NSDs is treated as a compute node.
func (o *Orchestrator) removeNode(ctx context.Context, b *batch, node scale.ClusterNode) error {
	name := node.String()
	nsds, err := o.inv.Nsds(ctx)
	if err != nil {
		return err
	}
	owned := []string{}
	for _, nsd := range nsds {
		if nsd.IsServerNode() && nsd.ServedBy(node) {
			owned = append(owned, nsd.Name)
		}
	}

	if len(owned) == 0 {
		o.log.Info("node serves no disks, treating as compute node", zap.String("node", name))
	} else {
		b.nodeUpdate(name, func(n *NodeReport) { n.Disks = slices.Clone(owned) })
		if err := o.evacuateDisks(ctx, b, name, owned); err != nil {
			return err
		}
		if _, err := o.exec.DeleteNsds(ctx, owned); err != nil {
			return err
		}
		b.nodeAdvance(name, PhaseNsdDeleted)
	}

	if _, err := o.exec.UnmountAll(ctx, name); err != nil {
		return err
	}
	b.nodeAdvance(name, PhaseUnmounted)

	if _, err := o.exec.ShutdownNodes(ctx, []string{name}); err != nil {
		return err
	}
	if err := o.waitForState(ctx, []scale.ClusterNode{node}, scale.StateDown, ErrShutdownTimeout); err != nil {
		return err
	}
	b.nodeAdvance(name, PhaseShutdown)

	if _, err := o.exec.DeleteNodes(ctx, []string{name}); err != nil {
		return err
	}
	b.nodeAdvance(name, PhaseNodeDeleted)
	return nil
}

// evacuateDisks removes the NSDs from every filesystem they belong to. The capacity of all affected
// filesystems is checked before the first disk is deleted.
func (o *Orchestrator) evacuateDisks(ctx context.Context, b *batch, name string, nsds []string) error {
	filesystems, err := o.inv.Filesystems(ctx)
	if err != nil {
		return err
	}
	type fsDisks struct {
		fs    string
		disks []string
	}
	toDelete := []fsDisks{}
	for _, fs := range filesystems {
		disks, err := o.inv.Disks(ctx, fs.Device)
		if err != nil {
			return err
		}
		entry := fsDisks{fs: fs.Device}
		for _, d := range disks {
			if slices.Contains(nsds, d.Name) {
				entry.disks = append(entry.disks, d.Name)
			}
		}
		if len(entry.disks) > 0 {
			toDelete = append(toDelete, entry)
		}
	}

	for _, e := range toDelete {
		snapshot, err := o.inv.Capacity(ctx, e.fs)
		if err != nil {
			return err
		}
		if err := CheckRemovalSafe(e.fs, e.disks, snapshot); err != nil {
			return err
		}
	}

	for _, e := range toDelete {
		b.log(fmt.Sprintf("deleting disks %s from %s", strings.Join(e.disks, ","), e.fs))
		if _, err := o.exec.DeleteDisks(ctx, name, e.fs, e.disks); err != nil {
			return err
		}
	}
	b.nodeAdvance(name, PhaseDisksEvacuated)
	return nil
}
