package node

import (
	"context"
	"slices"

	"github.com/spectrumscale/scale-go/common/mmcmd"
	"github.com/spectrumscale/scale-go/common/scale"
)

// stateChange describes how a start or stop batch changes the daemon state of its nodes.
type stateChange struct {
	operation  Operation
	run        func(ctx context.Context, names []string) (mmcmd.Result, error)
	phase      Phase
	want       scale.NodeState
	outcome    Outcome
	timeoutErr error
}

// StartNodes starts the GPFS daemon on the identified nodes and waits until all of them are active.
// Identifiers that are not cluster members are skipped.
func (o *Orchestrator) StartNodes(ctx context.Context, identifiers []string) (BatchReport, error) {
	return o.changeState(ctx, identifiers, stateChange{
		operation:  OperationStart,
		run:        o.exec.StartNodes,
		phase:      PhaseStarted,
		want:       scale.StateActive,
		outcome:    OutcomeStarted,
		timeoutErr: ErrStartupTimeout,
	})
}

// StopNodes shuts down the GPFS daemon on the identified nodes and waits until all of them are down.
// Identifiers that are not cluster members are skipped.
func (o *Orchestrator) StopNodes(ctx context.Context, identifiers []string) (BatchReport, error) {
	return o.changeState(ctx, identifiers, stateChange{
		operation:  OperationStop,
		run:        o.exec.ShutdownNodes,
		phase:      PhaseStopped,
		want:       scale.StateDown,
		outcome:    OutcomeStopped,
		timeoutErr: ErrShutdownTimeout,
	})
}

func (o *Orchestrator) changeState(ctx context.Context, identifiers []string, change stateChange) (BatchReport, error) {
	b := newBatch(o.log, change.operation, identifiers, o.onUpdate)
	if len(identifiers) == 0 {
		return o.finish(b, ErrNoIdentifiers)
	}
	nodes, err := o.inv.ClusterNodes(ctx)
	if err != nil {
		return o.finish(b, err)
	}
	targets, unresolved := scale.ResolveNodes(nodes, identifiers)
	for _, id := range unresolved {
		b.skip(id, "not a member of the cluster")
	}
	if len(targets) == 0 {
		b.log("no cluster members to " + string(change.operation))
		return o.finish(b, nil)
	}
	return o.finish(b, o.applyState(ctx, b, targets, change))
}

// applyState runs the state change for all targets at once, then polls until every target reached
// the wanted state. Targets that did not reach it are failed individually.
func (o *Orchestrator) applyState(ctx context.Context, b *batch, targets []scale.ClusterNode, change stateChange) error {
	names := scale.AdminNames(targets)
	for _, name := range names {
		b.addNode(name)
	}
	if _, err := change.run(ctx, names); err != nil {
		for _, name := range names {
			b.nodeFailed(name, err)
		}
		return err
	}
	for _, name := range names {
		b.nodeAdvance(name, change.phase)
	}
	b.advance(change.phase)

	pending, last, err := o.awaitState(ctx, targets, change.want)
	if err != nil {
		return err
	}
	var timeout error
	if len(pending) > 0 {
		timeout = stateTimeout(change.timeoutErr, pending, change.want, o.cfg.StateWait, last)
	}
	for _, t := range targets {
		if slices.ContainsFunc(pending, func(p scale.ClusterNode) bool { return p.Number == t.Number }) {
			b.nodeFailed(t.String(), timeout)
			continue
		}
		b.nodeAdvance(t.String(), PhasePolled)
		b.nodeDone(t.String(), change.outcome)
	}
	b.advance(PhasePolled)
	if len(pending) == len(targets) {
		return timeout
	}
	return nil
}
