package admin

import (
	"context"
	"errors"
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/spectrumscale/scale-go/common/mmcmd"
	"github.com/spectrumscale/scale-go/common/scale"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const noFilesystemsMounted = "mmumount: No file systems were found"

var (
	ErrNoNodes = errors.New("no nodes specified")
	ErrNoDisks = errors.New("no disks specified")
)

// Executor runs mutating administration commands. Implementations must never run more than one
// mutating command at a time.
type Executor interface {
	ShutdownNodes(ctx context.Context, names []string) (mmcmd.Result, error)
	StartNodes(ctx context.Context, names []string) (mmcmd.Result, error)
	DeleteNodes(ctx context.Context, names []string) (mmcmd.Result, error)
	// DeleteDisks removes the disks from the filesystem, migrating their data to the remaining
	// disks. The node is used to run the restripe.
	DeleteDisks(ctx context.Context, node string, filesystem string, disks []string) (mmcmd.Result, error)
	DeleteNsds(ctx context.Context, nsds []string) (mmcmd.Result, error)
	// ChangeNsdServers replaces the server list of the NSD.
	ChangeNsdServers(ctx context.Context, nsd string, servers []string) (mmcmd.Result, error)
	UnmountAll(ctx context.Context, node string) (mmcmd.Result, error)
	AddNodes(ctx context.Context, stanzaFile string) (mmcmd.Result, error)
	ApplyLicense(ctx context.Context, names []string, license scale.License) (mmcmd.Result, error)
}

// MM implements Executor using the mm* administration commands.
type MM struct {
	log    *zap.Logger
	runner mmcmd.Runner
	sem    *semaphore.Weighted
}

var _ Executor = &MM{}

func New(log *zap.Logger, runner mmcmd.Runner) *MM {
	log = log.With(zap.String("component", path.Base(reflect.TypeOf(MM{}).PkgPath())))
	return &MM{
		log:    log,
		runner: runner,
		sem:    semaphore.NewWeighted(1),
	}
}

func (m *MM) run(ctx context.Context, command string, args ...string) (mmcmd.Result, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return mmcmd.Result{Command: command, Args: args}, fmt.Errorf("unable to run %s: %w", command, err)
	}
	defer m.sem.Release(1)
	m.log.Info("running", zap.String("command", command), zap.Strings("args", args))
	return m.runner.Run(ctx, command, args...)
}

func (m *MM) ShutdownNodes(ctx context.Context, names []string) (mmcmd.Result, error) {
	if len(names) == 0 {
		return mmcmd.Result{}, ErrNoNodes
	}
	return m.run(ctx, "mmshutdown", "-N", strings.Join(names, ","))
}

func (m *MM) StartNodes(ctx context.Context, names []string) (mmcmd.Result, error) {
	if len(names) == 0 {
		return mmcmd.Result{}, ErrNoNodes
	}
	return m.run(ctx, "mmstartup", "-N", strings.Join(names, ","))
}

func (m *MM) DeleteNodes(ctx context.Context, names []string) (mmcmd.Result, error) {
	if len(names) == 0 {
		return mmcmd.Result{}, ErrNoNodes
	}
	return m.run(ctx, "mmdelnode", "-N", strings.Join(names, ","))
}

func (m *MM) DeleteDisks(ctx context.Context, node string, filesystem string, disks []string) (mmcmd.Result, error) {
	if len(disks) == 0 {
		return mmcmd.Result{}, ErrNoDisks
	}
	return m.run(ctx, "mmdeldisk", filesystem, strings.Join(disks, ";"), "-N", node)
}

func (m *MM) DeleteNsds(ctx context.Context, nsds []string) (mmcmd.Result, error) {
	if len(nsds) == 0 {
		return mmcmd.Result{}, ErrNoDisks
	}
	return m.run(ctx, "mmdelnsd", strings.Join(nsds, ";"))
}

func (m *MM) ChangeNsdServers(ctx context.Context, nsd string, servers []string) (mmcmd.Result, error) {
	if len(servers) == 0 {
		return mmcmd.Result{}, fmt.Errorf("%w: nsd %s needs at least one server", ErrNoNodes, nsd)
	}
	return m.run(ctx, "mmchnsd", fmt.Sprintf("%s:%s", nsd, strings.Join(servers, ",")))
}

// UnmountAll unmounts every filesystem on the node. A node without mounted filesystems is not an
// error.
func (m *MM) UnmountAll(ctx context.Context, node string) (mmcmd.Result, error) {
	res, err := m.run(ctx, "mmumount", "all", "-N", node)
	if err != nil && mmcmd.IsTolerated(err, noFilesystemsMounted) {
		m.log.Debug("no filesystems mounted", zap.String("node", node))
		return res, nil
	}
	return res, err
}

func (m *MM) AddNodes(ctx context.Context, stanzaFile string) (mmcmd.Result, error) {
	return m.run(ctx, "mmaddnode", "-N", stanzaFile, "--accept")
}

func (m *MM) ApplyLicense(ctx context.Context, names []string, license scale.License) (mmcmd.Result, error) {
	if len(names) == 0 {
		return mmcmd.Result{}, ErrNoNodes
	}
	if _, err := scale.LicenseFromString(license.String()); err != nil {
		return mmcmd.Result{}, err
	}
	return m.run(ctx, "mmchlicense", license.String(), "--accept", "-N", strings.Join(names, ","))
}
