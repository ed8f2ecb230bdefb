package node

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spectrumscale/scale-go/common/scale"
	"github.com/spectrumscale/scale-go/ctl/pkg/manifest"
	"go.uber.org/zap"
)

type AddConfig struct {
	Manifest manifest.Manifest
	// StanzaDir is where the node descriptor file is written. Defaults to the system temp directory.
	StanzaDir string
	// Start starts the added nodes and waits until they are active.
	Start bool
}

// AddNodes adds the nodes described by the manifest to the cluster and applies their licenses.
// Nodes that are already cluster members are skipped.
func (o *Orchestrator) AddNodes(ctx context.Context, cfg AddConfig) (BatchReport, error) {
	b := newBatch(o.log, OperationAdd, cfg.Manifest.Names(), o.onUpdate)
	return o.finish(b, o.addNodes(ctx, b, cfg))
}

func (o *Orchestrator) addNodes(ctx context.Context, b *batch, cfg AddConfig) error {
	if len(cfg.Manifest.Nodes) == 0 {
		return ErrNoIdentifiers
	}
	members, err := o.inv.ClusterNodes(ctx)
	if err != nil {
		return err
	}
	m := cfg.Manifest.Filter(func(n manifest.Node) bool {
		for _, member := range members {
			if n.Matches(member) {
				b.skip(n.AdminNodeName(), "already a member of the cluster")
				return false
			}
		}
		return true
	})
	if len(m.Nodes) == 0 {
		b.log("no nodes to add")
		return nil
	}
	names := m.Names()
	for _, name := range names {
		b.addNode(name)
	}

	dir := cfg.StanzaDir
	if dir == "" {
		dir = os.TempDir()
	}
	stanza, err := m.WriteStanza(o.fs, dir)
	if err != nil {
		return err
	}
	defer func() {
		if err := o.fs.Remove(stanza); err != nil {
			o.log.Warn("unable to remove stanza file", zap.String("path", stanza), zap.Error(err))
		}
	}()
	o.log.Debug("wrote node stanza file", zap.String("path", stanza), zap.String("content", m.Stanza()))

	if _, err := o.exec.AddNodes(ctx, stanza); err != nil {
		for _, name := range names {
			b.nodeFailed(name, err)
		}
		return err
	}
	for _, name := range names {
		b.nodeAdvance(name, PhaseAdded)
	}
	b.advance(PhaseAdded)

	byLicense := m.ByLicense()
	for _, license := range slices.Sorted(maps.Keys(byLicense)) {
		licensed := byLicense[license]
		if _, err := o.exec.ApplyLicense(ctx, licensed, license); err != nil {
			for _, name := range licensed {
				b.nodeFailed(name, err)
			}
			return fmt.Errorf("unable to apply %s license: %w", license, err)
		}
		for _, name := range licensed {
			b.nodeAdvance(name, PhaseLicensed)
		}
	}
	b.advance(PhaseLicensed)

	if !cfg.Start {
		for _, name := range names {
			b.nodeDone(name, OutcomeAdded)
		}
		return nil
	}

	members, err = o.inv.ClusterNodes(ctx)
	if err != nil {
		return err
	}
	added, missing := scale.ResolveNodes(members, names)
	if len(missing) > 0 {
		return fmt.Errorf("added nodes are not listed as cluster members: %v", missing)
	}
	return o.applyState(ctx, b, added, stateChange{
		operation:  OperationAdd,
		run:        o.exec.StartNodes,
		phase:      PhaseStarted,
		want:       scale.StateActive,
		outcome:    OutcomeAdded,
		timeoutErr: ErrStartupTimeout,
	})
}
