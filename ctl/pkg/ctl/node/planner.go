package node

import (
	"slices"

	"github.com/spectrumscale/scale-go/common/scale"
)

// Detach removes a node from the server list of a shared NSD. The data stays where it is.
type Detach struct {
	NSD              string   `json:"nsd"`
	RemainingServers []string `json:"remainingServers"`
}

// Plan describes how the NSDs served by a node are handled when it is removed. NSDs with other
// servers are detached, NSDs only served by the node must be evacuated.
type Plan struct {
	Node     string   `json:"node"`
	Detach   []Detach `json:"detach"`
	Evacuate []string `json:"evacuate"`
}

// NsdMaps relates nodes to the server node NSDs they serve. NodeToNsds is keyed by the node's admin
// name, NsdToServers holds the server list exactly as reported for each NSD.
type NsdMaps struct {
	NodeToNsds   map[string][]string
	NsdToServers map[string][]string
}

// BuildNsdMaps only considers NSDs that are marked as served by server nodes.
func BuildNsdMaps(nodes []scale.ClusterNode, nsds []scale.NSD) NsdMaps {
	maps := NsdMaps{
		NodeToNsds:   map[string][]string{},
		NsdToServers: map[string][]string{},
	}
	for _, nsd := range nsds {
		if !nsd.IsServerNode() {
			continue
		}
		maps.NsdToServers[nsd.Name] = slices.Clone(nsd.Servers)
		for _, node := range nodes {
			if nsd.ServedBy(node) {
				maps.NodeToNsds[node.String()] = append(maps.NodeToNsds[node.String()], nsd.Name)
			}
		}
	}
	return maps
}

// PlanDetachOrEvacuate classifies every NSD served by the node. An NSD with servers left after
// removing the node is detached, an NSD without remaining servers is evacuated.
func PlanDetachOrEvacuate(node scale.ClusterNode, nodeToNsds map[string][]string, nsdToServers map[string][]string) Plan {
	plan := Plan{Node: node.String(), Detach: []Detach{}, Evacuate: []string{}}
	for _, nsd := range nodeToNsds[node.String()] {
		remaining := []string{}
		for _, server := range nsdToServers[nsd] {
			if !node.Matches(server) {
				remaining = append(remaining, server)
			}
		}
		if len(remaining) > 0 {
			plan.Detach = append(plan.Detach, Detach{NSD: nsd, RemainingServers: remaining})
		} else {
			plan.Evacuate = append(plan.Evacuate, nsd)
		}
	}
	return plan
}

// PlanBatch plans every target in order. Detaches planned for earlier targets are applied before
// planning later ones so an NSD shared only by targets is evacuated with the last of them instead
// of having its server list rewritten to include a node that is also being removed.
func PlanBatch(targets []scale.ClusterNode, maps NsdMaps) []Plan {
	servers := make(map[string][]string, len(maps.NsdToServers))
	for nsd, s := range maps.NsdToServers {
		servers[nsd] = slices.Clone(s)
	}
	plans := make([]Plan, 0, len(targets))
	for _, target := range targets {
		plan := PlanDetachOrEvacuate(target, maps.NodeToNsds, servers)
		for _, d := range plan.Detach {
			servers[d.NSD] = d.RemainingServers
		}
		plans = append(plans, plan)
	}
	return plans
}
