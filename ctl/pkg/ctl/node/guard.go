package node

import "github.com/spectrumscale/scale-go/common/scale"

// protectedRoles cannot be removed without a failover step, so nodes holding them are never removed.
var protectedRoles = scale.NewRoleSet(scale.Quorum, scale.Manager, scale.Gateway, scale.CES, scale.TCT, scale.SNMP)

// IsRemovable returns false if the node holds any protected role.
func IsRemovable(node scale.ClusterNode) bool {
	return node.Roles&protectedRoles == 0
}

// ProtectedRoles returns the protected roles held by the node.
func ProtectedRoles(node scale.ClusterNode) scale.RoleSet {
	return node.Roles & protectedRoles
}
