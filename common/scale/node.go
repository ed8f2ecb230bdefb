package scale

import (
	"slices"
	"strings"
)

// ClusterNode is a member of the cluster as reported by mmlscluster. Roles is derived from the raw
// columns when the node is constructed and is never updated afterwards. Nodes must be re-queried
// after every mutating command.
type ClusterNode struct {
	Number      int     `json:"number"`
	DaemonName  string  `json:"daemonName"`
	AdminName   string  `json:"adminName"`
	IP          string  `json:"ip"`
	AdminLogin  string  `json:"adminLogin"`
	Designation string  `json:"designation"`
	RoleCodes   string  `json:"roleCodes"`
	RoleAliases string  `json:"roleAliases"`
	Roles       RoleSet `json:"roles"`
}

func NewClusterNode(number int, daemonName, adminName, ip, adminLogin, designation, roleCodes, roleAliases string) ClusterNode {
	return ClusterNode{
		Number:      number,
		DaemonName:  daemonName,
		AdminName:   adminName,
		IP:          ip,
		AdminLogin:  adminLogin,
		Designation: designation,
		RoleCodes:   roleCodes,
		RoleAliases: roleAliases,
		Roles:       ParseRoles(designation, roleCodes, roleAliases),
	}
}

// Identifiers returns the names the node can be addressed by.
func (n ClusterNode) Identifiers() []string {
	ids := []string{}
	for _, id := range []string{n.AdminName, n.DaemonName, n.IP} {
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Matches returns true if the identifier is exactly the node's IP, admin name or daemon name.
func (n ClusterNode) Matches(identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return false
	}
	return slices.Contains(n.Identifiers(), identifier)
}

func (n ClusterNode) String() string {
	if n.AdminName != "" {
		return n.AdminName
	}
	return n.DaemonName
}

// ResolveNodes matches each identifier against the provided nodes. Nodes are returned in the order
// they were first requested without duplicates. Identifiers that do not match any node are returned
// separately.
func ResolveNodes(nodes []ClusterNode, identifiers []string) (resolved []ClusterNode, unresolved []string) {
	resolved = []ClusterNode{}
	unresolved = []string{}
	seen := map[int]struct{}{}
	for _, id := range identifiers {
		idx := slices.IndexFunc(nodes, func(n ClusterNode) bool { return n.Matches(id) })
		if idx < 0 {
			unresolved = append(unresolved, id)
			continue
		}
		if _, ok := seen[nodes[idx].Number]; ok {
			continue
		}
		seen[nodes[idx].Number] = struct{}{}
		resolved = append(resolved, nodes[idx])
	}
	return resolved, unresolved
}

// AdminNames returns the admin names of the provided nodes.
func AdminNames(nodes []ClusterNode) []string {
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.String())
	}
	return names
}
