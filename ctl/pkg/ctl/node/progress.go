package node

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// batch tracks the progress of one batch operation and builds its report.
type batch struct {
	logger   *zap.Logger
	mu       sync.Mutex
	report   BatchReport
	onUpdate func(message string)
}

func newBatch(l *zap.Logger, op Operation, requested []string, onUpdate func(string)) *batch {
	id := uuid.NewString()
	b := &batch{
		logger: l.With(zap.String("batch", id), zap.String("operation", string(op))),
		report: BatchReport{
			ID:        id,
			Operation: op,
			Requested: slices.Clone(requested),
			Phase:     PhaseInit,
			Started:   time.Now(),
			Nodes:     []NodeReport{},
			Messages:  []string{},
		},
		onUpdate: onUpdate,
	}
	b.logUnlocked(fmt.Sprintf("began %s of %v", op, requested))
	return b
}

func (b *batch) logUnlocked(message string) {
	b.report.Messages = append(b.report.Messages, fmt.Sprintf("%s: %s", time.Now().Format(time.RFC3339), message))
	if b.onUpdate != nil {
		b.onUpdate(message)
	}
}

func (b *batch) log(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logUnlocked(message)
}

// advance moves the batch to the next phase.
func (b *batch) advance(phase Phase) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Info("state update", zap.String("oldState", string(b.report.Phase)), zap.String("newState", string(phase)))
	b.report.Phase = phase
	b.logUnlocked(fmt.Sprintf("batch reached %s", phase))
}

func (b *batch) nodeIndexUnlocked(name string) int {
	i := slices.IndexFunc(b.report.Nodes, func(n NodeReport) bool { return n.Node == name })
	if i < 0 {
		b.report.Nodes = append(b.report.Nodes, NodeReport{Node: name, Outcome: OutcomePending, Phase: PhaseInit})
		i = len(b.report.Nodes) - 1
	}
	return i
}

func (b *batch) addNode(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodeIndexUnlocked(name)
}

// nodeAdvance records that a node reached a phase. Reaching any phase after Init means the cluster
// was changed.
func (b *batch) nodeAdvance(name string, phase Phase) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.nodeIndexUnlocked(name)
	b.logger.Info("node state update", zap.String("node", name), zap.String("oldState", string(b.report.Nodes[i].Phase)), zap.String("newState", string(phase)))
	b.report.Nodes[i].Phase = phase
	b.report.Changed = true
	b.logUnlocked(fmt.Sprintf("%s reached %s", name, phase))
}

func (b *batch) nodeUpdate(name string, fn func(n *NodeReport)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.report.Nodes[b.nodeIndexUnlocked(name)])
}

func (b *batch) nodeDone(name string, outcome Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.nodeIndexUnlocked(name)
	b.report.Nodes[i].Outcome = outcome
	b.logUnlocked(fmt.Sprintf("%s %s", name, outcome))
}

func (b *batch) nodeFailed(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.nodeIndexUnlocked(name)
	b.logger.Warn("node failed", zap.String("node", name), zap.String("phase", string(b.report.Nodes[i].Phase)), zap.Error(err))
	b.report.Nodes[i].Outcome = OutcomeFailed
	b.report.Nodes[i].Reason = err.Error()
	b.logUnlocked(fmt.Sprintf("%s failed: %s", name, err))
}

func (b *batch) skip(name string, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.nodeIndexUnlocked(name)
	b.report.Nodes[i].Outcome = OutcomeSkipped
	b.report.Nodes[i].Reason = reason
	b.logUnlocked(fmt.Sprintf("skipping %s: %s", name, reason))
}

// abort ends the batch in the Aborted phase. Nodes that were not processed yet are skipped.
func (b *batch) abort(err error) BatchReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Info("state update", zap.String("oldState", string(b.report.Phase)), zap.String("newState", string(PhaseAborted)), zap.Error(err))
	b.report.Phase = PhaseAborted
	b.report.Reason = err.Error()
	for i := range b.report.Nodes {
		if b.report.Nodes[i].Outcome == OutcomePending {
			b.report.Nodes[i].Outcome = OutcomeSkipped
			b.report.Nodes[i].Reason = "batch aborted"
		}
	}
	b.logUnlocked(fmt.Sprintf("aborted: %s", err))
	b.report.Finished = time.Now()
	return b.getUnlocked()
}

func (b *batch) complete() BatchReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Info("state update", zap.String("oldState", string(b.report.Phase)), zap.String("newState", string(PhaseDone)))
	b.report.Phase = PhaseDone
	b.logUnlocked("finished batch")
	b.report.Finished = time.Now()
	return b.getUnlocked()
}

func (b *batch) get() BatchReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getUnlocked()
}

func (b *batch) getUnlocked() BatchReport {
	r := b.report
	r.Requested = slices.Clone(b.report.Requested)
	r.Messages = slices.Clone(b.report.Messages)
	r.Nodes = make([]NodeReport, len(b.report.Nodes))
	for i, n := range b.report.Nodes {
		n.Detached = slices.Clone(n.Detached)
		n.Disks = slices.Clone(n.Disks)
		r.Nodes[i] = n
	}
	return r
}
