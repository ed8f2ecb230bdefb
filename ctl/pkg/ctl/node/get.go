package node

import (
	"context"
	"fmt"
	"slices"

	doublestar "github.com/bmatcuk/doublestar/v4"
	"github.com/expr-lang/expr"
	"github.com/spectrumscale/scale-go/common/scale"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/inventory"
)

const FilterNodesHelp = "Filter nodes by expression: fields(name/admin/daemon/ip/designation/state <string>, number <int>, " +
	"quorum/manager/gateway/ces/tct/ctdb/io/snmp/teal/perfmon/cnfs/removable <bool>); operators(==,!=,<,>,<=,>=); " +
	"helpers(glob(field, pattern)); logic(and|or|not); Example: --filter=\"not quorum and glob(admin, 'io*')\""

// GetConfig selects which nodes GetNodes returns.
type GetConfig struct {
	// Selectors are exact identifiers or doublestar glob patterns matched against the IP, admin and
	// daemon name. No selectors select all nodes.
	Selectors []string
	// Filter is an optional boolean expression evaluated for every selected node.
	Filter string
	// WithState queries the daemon state of the selected nodes.
	WithState bool
}

// NodeInfo is a cluster node with its derived removal eligibility and optionally its state.
type NodeInfo struct {
	scale.ClusterNode
	Removable bool            `json:"removable"`
	State     scale.NodeState `json:"state,omitempty"`
}

// filterEnv is what a node filter expression can reference.
type filterEnv struct {
	Name        string `expr:"name"`
	Admin       string `expr:"admin"`
	Daemon      string `expr:"daemon"`
	IP          string `expr:"ip"`
	Number      int    `expr:"number"`
	Designation string `expr:"designation"`
	State       string `expr:"state"`
	Quorum      bool   `expr:"quorum"`
	Manager     bool   `expr:"manager"`
	Gateway     bool   `expr:"gateway"`
	CES         bool   `expr:"ces"`
	TCT         bool   `expr:"tct"`
	CTDB        bool   `expr:"ctdb"`
	IO          bool   `expr:"io"`
	SNMP        bool   `expr:"snmp"`
	Teal        bool   `expr:"teal"`
	Perfmon     bool   `expr:"perfmon"`
	CNFS        bool   `expr:"cnfs"`
	Removable   bool   `expr:"removable"`
}

func newFilterEnv(n NodeInfo) filterEnv {
	return filterEnv{
		Name:        n.String(),
		Admin:       n.AdminName,
		Daemon:      n.DaemonName,
		IP:          n.IP,
		Number:      n.Number,
		Designation: n.Designation,
		State:       string(n.State),
		Quorum:      n.Roles.Has(scale.Quorum),
		Manager:     n.Roles.Has(scale.Manager),
		Gateway:     n.Roles.Has(scale.Gateway),
		CES:         n.Roles.Has(scale.CES),
		TCT:         n.Roles.Has(scale.TCT),
		CTDB:        n.Roles.Has(scale.CTDB),
		IO:          n.Roles.Has(scale.IO),
		SNMP:        n.Roles.Has(scale.SNMP),
		Teal:        n.Roles.Has(scale.Teal),
		Perfmon:     n.Roles.Has(scale.Perfmon),
		CNFS:        n.Roles.Has(scale.CNFS),
		Removable:   n.Removable,
	}
}

type NodeFilter func(NodeInfo) (bool, error)

// CompileFilter turns a filter expression into a function that can be applied to nodes.
func CompileFilter(query string) (NodeFilter, error) {
	prog, err := expr.Compile(query,
		expr.Env(filterEnv{}),
		expr.AsBool(),
		expr.Function("glob", func(params ...any) (any, error) {
			return doublestar.Match(params[1].(string), params[0].(string))
		}, new(func(string, string) bool)),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid node filter %q: %w", query, err)
	}
	return func(n NodeInfo) (bool, error) {
		out, err := expr.Run(prog, newFilterEnv(n))
		if err != nil {
			return false, fmt.Errorf("filter eval %q on %s: %w", query, n, err)
		}
		return out.(bool), nil
	}, nil
}

// Selected returns true if the node matches one of the selectors, or if there are no selectors.
func Selected(node scale.ClusterNode, selectors []string) (bool, error) {
	if len(selectors) == 0 {
		return true, nil
	}
	for _, sel := range selectors {
		if node.Matches(sel) {
			return true, nil
		}
		for _, id := range node.Identifiers() {
			match, err := doublestar.Match(sel, id)
			if err != nil {
				return false, fmt.Errorf("invalid node pattern %q: %w", sel, err)
			}
			if match {
				return true, nil
			}
		}
	}
	return false, nil
}

// GetNodes lists the cluster nodes matching the configuration in cluster order.
func GetNodes(ctx context.Context, inv inventory.Inventory, cfg GetConfig) ([]NodeInfo, error) {
	var filter NodeFilter
	if cfg.Filter != "" {
		var err error
		if filter, err = CompileFilter(cfg.Filter); err != nil {
			return nil, err
		}
	}

	nodes, err := inv.ClusterNodes(ctx)
	if err != nil {
		return nil, err
	}
	selected := []NodeInfo{}
	for _, n := range nodes {
		ok, err := Selected(n, cfg.Selectors)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, NodeInfo{ClusterNode: n, Removable: IsRemovable(n)})
		}
	}

	// States are needed before filtering since filters may reference them.
	if cfg.WithState && len(selected) > 0 {
		states, err := inv.NodeStates(ctx, nil)
		if err != nil {
			return nil, err
		}
		for i := range selected {
			selected[i].State = scale.StateUnknown
			if j := slices.IndexFunc(states, func(s scale.NodeStatus) bool { return statusOf(selected[i].ClusterNode, s) }); j >= 0 {
				selected[i].State = states[j].State
			}
		}
	}

	if filter == nil {
		return selected, nil
	}
	filtered := []NodeInfo{}
	for _, n := range selected {
		keep, err := filter(n)
		if err != nil {
			return nil, err
		}
		if keep {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

// NodeStatus returns the daemon state of the identified nodes, or of all nodes if none are given.
// Identifiers that are not cluster members are returned separately.
func NodeStatus(ctx context.Context, inv inventory.Inventory, identifiers []string) ([]scale.NodeStatus, []string, error) {
	if len(identifiers) == 0 {
		states, err := inv.NodeStates(ctx, nil)
		return states, []string{}, err
	}
	nodes, err := inv.ClusterNodes(ctx)
	if err != nil {
		return nil, nil, err
	}
	targets, unresolved := scale.ResolveNodes(nodes, identifiers)
	if len(targets) == 0 {
		return []scale.NodeStatus{}, unresolved, nil
	}
	states, err := inv.NodeStates(ctx, scale.AdminNames(targets))
	if err != nil {
		return nil, nil, err
	}
	return states, unresolved, nil
}
