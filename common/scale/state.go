package scale

import "strings"

// NodeState is the GPFS daemon state reported by mmgetstate.
type NodeState string

const (
	StateActive      NodeState = "active"
	StateArbitrating NodeState = "arbitrating"
	StateDown        NodeState = "down"
	StateUnknown     NodeState = "unknown"
)

func NodeStateFromString(s string) NodeState {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StateUnknown
	}
	return NodeState(s)
}

// Healthy is false for states that indicate a degraded cluster. States other than the well known
// ones (e.g. "starting") are not considered degraded.
func (s NodeState) Healthy() bool {
	lower := strings.ToLower(string(s))
	for _, bad := range []NodeState{StateDown, StateArbitrating, StateUnknown} {
		if strings.Contains(lower, string(bad)) {
			return false
		}
	}
	return lower != ""
}

// NodeStatus is one row of mmgetstate output.
type NodeStatus struct {
	Name   string    `json:"name"`
	Number int       `json:"number"`
	State  NodeState `json:"state"`
	Quorum string    `json:"quorum,omitempty"`
	Remark string    `json:"remarks,omitempty"`
}
