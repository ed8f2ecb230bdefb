package scale

import (
	"slices"
	"strings"
)

// Role is a cluster function a node may serve. A node may hold any number of roles.
type Role int

const (
	Quorum Role = iota
	Manager
	Gateway
	CES
	TCT
	CTDB
	IO
	SNMP
	Teal
	Perfmon
	CNFS
	numRoles
)

func (r Role) String() string {
	switch r {
	case Quorum:
		return "quorum"
	case Manager:
		return "manager"
	case Gateway:
		return "gateway"
	case CES:
		return "ces"
	case TCT:
		return "tct"
	case CTDB:
		return "ctdb"
	case IO:
		return "io"
	case SNMP:
		return "snmp"
	case Teal:
		return "teal"
	case Perfmon:
		return "perfmon"
	case CNFS:
		return "cnfs"
	default:
		return "<invalid>"
	}
}

// AllRoles returns every known role in a stable order.
func AllRoles() []Role {
	roles := make([]Role, 0, numRoles)
	for r := Role(0); r < numRoles; r++ {
		roles = append(roles, r)
	}
	return roles
}

// RoleSet is an immutable set of roles. The zero value is the empty set.
type RoleSet uint32

func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= 1 << r
	}
	return s
}

func (s RoleSet) Has(r Role) bool {
	return s&(1<<r) != 0
}

// HasAny returns true if at least one of the provided roles is in the set.
func (s RoleSet) HasAny(roles ...Role) bool {
	return s&NewRoleSet(roles...) != 0
}

func (s RoleSet) Roles() []Role {
	roles := []Role{}
	for _, r := range AllRoles() {
		if s.Has(r) {
			roles = append(roles, r)
		}
	}
	return roles
}

func (s RoleSet) Strings() []string {
	out := []string{}
	for _, r := range s.Roles() {
		out = append(out, r.String())
	}
	return out
}

func (s RoleSet) String() string {
	if s == 0 {
		return "none"
	}
	return strings.Join(s.Strings(), ",")
}

func (s RoleSet) MarshalText() ([]byte, error) {
	return []byte(strings.Join(s.Strings(), ",")), nil
}

// roleCodes maps the single letter codes reported in the otherNodeRoles column.
var roleCodes = map[string][]Role{
	"M": {TCT},
	"G": {Gateway},
	"I": {IO},
	"s": {SNMP},
	"t": {Teal},
	"Z": {Perfmon},
	"X": {CES},
	"E": {CNFS},
	"D": {CNFS},
}

// roleAliases maps the human readable names reported in the otherNodeRolesAlias column.
var roleAliases = map[string][]Role{
	"gateway":        {Gateway},
	"ctdb":           {CTDB},
	"ionode":         {IO},
	"snmp_collector": {SNMP},
	"teal_collector": {Teal},
	"perfmon":        {Perfmon},
	"ces":            {CES},
	"cnfs":           {CNFS},
}

// ParseRoles derives the role set of a node from the raw mmlscluster designation, role code and
// role alias columns. Role codes and aliases are comma separated and matched per token.
func ParseRoles(designation string, roleCodeList string, aliasList string) RoleSet {
	var s RoleSet
	lower := strings.ToLower(designation)
	if strings.Contains(lower, "quorum") {
		s |= NewRoleSet(Quorum)
	}
	if strings.Contains(lower, "manager") {
		s |= NewRoleSet(Manager)
	}
	for _, code := range splitList(roleCodeList) {
		s |= NewRoleSet(roleCodes[code]...)
	}
	for _, alias := range splitList(aliasList) {
		s |= NewRoleSet(roleAliases[strings.ToLower(alias)]...)
	}
	return s
}

func splitList(list string) []string {
	out := []string{}
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item != "" && !slices.Contains(out, item) {
			out = append(out, item)
		}
	}
	return out
}
