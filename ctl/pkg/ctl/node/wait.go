package node

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spectrumscale/scale-go/common/scale"
	"go.uber.org/zap"
)

// WaitConfig bounds polling for an asynchronous cluster change. The condition is checked at most
// Retries times with Interval between checks.
type WaitConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Retries  int           `mapstructure:"retries"`
}

// DefaultStateWait is used when waiting for nodes to become active or down.
func DefaultStateWait() WaitConfig {
	return WaitConfig{Interval: 5 * time.Second, Retries: 36}
}

// DefaultDetachWait is used when waiting for NSD server list changes to show up.
func DefaultDetachWait() WaitConfig {
	return WaitConfig{Interval: 5 * time.Second, Retries: 12}
}

// poll calls check until it returns true, returns an error, the retries are exhausted or the
// context is cancelled. It never waits longer than Interval*Retries.
func poll(ctx context.Context, cfg WaitConfig, check func(ctx context.Context) (bool, error)) (bool, error) {
	attempts := max(cfg.Retries, 1)
	for attempt := 1; ; attempt++ {
		done, err := check(ctx)
		if err != nil || done {
			return done, err
		}
		if attempt >= attempts {
			return false, nil
		}
		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}

// waitForState polls the state of the nodes until all of them report the wanted state.
func (o *Orchestrator) waitForState(ctx context.Context, nodes []scale.ClusterNode, want scale.NodeState, timeoutErr error) error {
	pending, last, err := o.awaitState(ctx, nodes, want)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return stateTimeout(timeoutErr, pending, want, o.cfg.StateWait, last)
	}
	return nil
}

// awaitState polls the state of the nodes until all of them report the wanted state or the retries
// are exhausted. It returns the nodes that did not reach the state and the last states seen.
func (o *Orchestrator) awaitState(ctx context.Context, nodes []scale.ClusterNode, want scale.NodeState) ([]scale.ClusterNode, []scale.NodeStatus, error) {
	names := scale.AdminNames(nodes)
	var last []scale.NodeStatus
	pending := nodes
	_, err := poll(ctx, o.cfg.StateWait, func(ctx context.Context) (bool, error) {
		states, err := o.inv.NodeStates(ctx, names)
		if err != nil {
			return false, err
		}
		last = states
		pending = []scale.ClusterNode{}
		for _, node := range nodes {
			i := slices.IndexFunc(states, func(s scale.NodeStatus) bool { return statusOf(node, s) })
			if i < 0 || states[i].State != want {
				o.log.Debug("waiting for node state", zap.Stringer("node", node), zap.String("want", string(want)))
				pending = append(pending, node)
			}
		}
		return len(pending) == 0, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("unable to determine state of %s: %w", strings.Join(names, ","), err)
	}
	return pending, last, nil
}

func stateTimeout(timeoutErr error, pending []scale.ClusterNode, want scale.NodeState, cfg WaitConfig, last []scale.NodeStatus) error {
	return fmt.Errorf("%w: %s did not reach state %s after %d checks (last states: %s)",
		timeoutErr, strings.Join(scale.AdminNames(pending), ","), want, max(cfg.Retries, 1), formatStates(last))
}

// statusOf returns true if the mmgetstate row belongs to the node. Rows are matched by node number
// and fall back to the name since mmgetstate may report either the daemon or admin name.
func statusOf(node scale.ClusterNode, s scale.NodeStatus) bool {
	if node.Number != 0 && s.Number != 0 {
		return node.Number == s.Number
	}
	return node.Matches(s.Name) || strings.HasPrefix(node.DaemonName, s.Name+".")
}

// waitForDetach polls the NSD server lists until none of the detached NSDs lists a node it was
// detached from. NSDs that no longer exist are considered settled.
func (o *Orchestrator) waitForDetach(ctx context.Context, detachedFrom map[string][]scale.ClusterNode) error {
	if len(detachedFrom) == 0 {
		return nil
	}
	var pending []string
	ok, err := poll(ctx, o.cfg.DetachWait, func(ctx context.Context) (bool, error) {
		nsds, err := o.inv.Nsds(ctx)
		if err != nil {
			return false, err
		}
		pending = []string{}
		for _, nsd := range nsds {
			nodes, ok := detachedFrom[nsd.Name]
			if !ok {
				continue
			}
			if slices.ContainsFunc(nodes, nsd.ServedBy) {
				pending = append(pending, nsd.Name)
			}
		}
		return len(pending) == 0, nil
	})
	if err != nil {
		return fmt.Errorf("unable to verify NSD server changes: %w", err)
	}
	if !ok {
		slices.Sort(pending)
		return fmt.Errorf("%w: %s", ErrDetachTimeout, strings.Join(pending, ","))
	}
	return nil
}

func formatStates(states []scale.NodeStatus) string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		out = append(out, fmt.Sprintf("%s=%s", s.Name, s.State))
	}
	return strings.Join(out, ",")
}
