package node

import (
	"time"
)

// Phase is a step of a batch operation. Remove batches pass through every phase from Init to
// NodeDeleted, start and stop batches use Started/Stopped and Polled.
type Phase string

const (
	PhaseInit           Phase = "Init"
	PhaseHealthChecked  Phase = "HealthChecked"
	PhaseRoleFiltered   Phase = "RoleFiltered"
	PhasePlanBuilt      Phase = "PlanBuilt"
	PhaseNsdDetached    Phase = "NsdDetached"
	PhaseDisksEvacuated Phase = "DisksEvacuated"
	PhaseNsdDeleted     Phase = "NsdDeleted"
	PhaseUnmounted      Phase = "Unmounted"
	PhaseShutdown       Phase = "Shutdown"
	PhaseNodeDeleted    Phase = "NodeDeleted"
	PhaseAdded          Phase = "Added"
	PhaseLicensed       Phase = "Licensed"
	PhaseStarted        Phase = "Started"
	PhaseStopped        Phase = "Stopped"
	PhasePolled         Phase = "Polled"
	PhaseDone           Phase = "Done"
	PhaseAborted        Phase = "Aborted"
)

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeRemoved Outcome = "removed"
	OutcomeStarted Outcome = "started"
	OutcomeStopped Outcome = "stopped"
	OutcomeAdded   Outcome = "added"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

type Operation string

const (
	OperationRemove Operation = "remove"
	OperationStart  Operation = "start"
	OperationStop   Operation = "stop"
	OperationAdd    Operation = "add"
)

// NodeReport is the result of a batch operation for one node or unresolved identifier.
type NodeReport struct {
	Node     string   `json:"node"`
	Outcome  Outcome  `json:"outcome"`
	Phase    Phase    `json:"phase"`
	Reason   string   `json:"reason,omitempty"`
	Detached []string `json:"detached,omitempty"`
	Disks    []string `json:"disks,omitempty"`
}

// BatchReport is the result of one batch operation. It is the only state kept after a batch ends.
type BatchReport struct {
	ID        string       `json:"id"`
	Operation Operation    `json:"operation"`
	Requested []string     `json:"requested"`
	Phase     Phase        `json:"phase"`
	Reason    string       `json:"reason,omitempty"`
	Changed   bool         `json:"changed"`
	Started   time.Time    `json:"started"`
	Finished  time.Time    `json:"finished"`
	Nodes     []NodeReport `json:"nodes"`
	Messages  []string     `json:"messages"`
}

func (r *BatchReport) nodesWith(outcome Outcome) []string {
	names := []string{}
	for _, n := range r.Nodes {
		if n.Outcome == outcome {
			names = append(names, n.Node)
		}
	}
	return names
}

func (r *BatchReport) Failed() []string {
	return r.nodesWith(OutcomeFailed)
}

func (r *BatchReport) Skipped() []string {
	return r.nodesWith(OutcomeSkipped)
}

// Succeeded returns the nodes the operation was applied to.
func (r *BatchReport) Succeeded() []string {
	names := []string{}
	for _, n := range r.Nodes {
		switch n.Outcome {
		case OutcomeRemoved, OutcomeStarted, OutcomeStopped, OutcomeAdded:
			names = append(names, n.Node)
		}
	}
	return names
}

// PartialSuccess is true if the operation was applied to some nodes but failed for others.
func (r *BatchReport) PartialSuccess() bool {
	return len(r.Succeeded()) > 0 && len(r.Failed()) > 0
}
