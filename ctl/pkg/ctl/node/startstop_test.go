package node

import (
	"context"
	"errors"
	"testing"

	"github.com/spectrumscale/scale-go/common/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopAndStartNodes(t *testing.T) {
	c := testCluster()
	o := newTestOrchestrator(t, c, testConfig())

	report, err := o.StopNodes(context.Background(), []string{"node2", "node3.example.com", "node9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mmshutdown node2,node3"}, c.mutations())
	assert.Equal(t, OperationStop, report.Operation)
	assert.Equal(t, PhaseDone, report.Phase)
	assert.Equal(t, []string{"node2", "node3"}, report.Succeeded())
	assert.Equal(t, []string{"node9"}, report.Skipped())
	assert.Equal(t, PhasePolled, nodeReport(t, report, "node2").Phase)
	assert.Equal(t, scale.StateDown, c.states["node3"])

	report, err = o.StartNodes(context.Background(), []string{"node2", "node3"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStarted, nodeReport(t, report, "node3").Outcome)
	assert.Equal(t, scale.StateActive, c.states["node2"])
}

func TestStartNodesTimeout(t *testing.T) {
	c := testCluster()
	c.states["node2"] = scale.StateDown
	c.states["node3"] = scale.StateDown
	c.stuck["node3"] = true
	o := newTestOrchestrator(t, c, testConfig())

	report, err := o.StartNodes(context.Background(), []string{"node2", "node3"})
	assert.ErrorIs(t, err, ErrNodesFailed)
	assert.True(t, report.PartialSuccess())
	assert.Equal(t, OutcomeStarted, nodeReport(t, report, "node2").Outcome)
	n := nodeReport(t, report, "node3")
	assert.Equal(t, OutcomeFailed, n.Outcome)
	assert.Contains(t, n.Reason, ErrStartupTimeout.Error())
	// Three checks were made before giving up.
	assert.Equal(t, 3, countCalls(c, "NodeStates node2,node3"))

	c.stuck["node2"] = true
	c.states["node2"] = scale.StateDown
	report, err = o.StartNodes(context.Background(), []string{"node2", "node3"})
	assert.ErrorIs(t, err, ErrStartupTimeout)
	assert.Equal(t, PhaseAborted, report.Phase)
	assert.Equal(t, []string{"node2", "node3"}, report.Failed())
}

func TestStopNodesCommandFailure(t *testing.T) {
	c := testCluster()
	c.fail["mmshutdown"] = errors.New("mmshutdown failed")
	o := newTestOrchestrator(t, c, testConfig())

	report, err := o.StopNodes(context.Background(), []string{"node2"})
	assert.ErrorContains(t, err, "mmshutdown failed")
	assert.Equal(t, []string{"node2"}, report.Failed())
	assert.Equal(t, PhaseAborted, report.Phase)
}

func TestStartNodesNothingToDo(t *testing.T) {
	c := testCluster()
	o := newTestOrchestrator(t, c, testConfig())

	report, err := o.StartNodes(context.Background(), []string{"node9"})
	require.NoError(t, err)
	assert.Empty(t, c.mutations())
	assert.Equal(t, PhaseDone, report.Phase)

	_, err = o.StartNodes(context.Background(), []string{})
	assert.ErrorIs(t, err, ErrNoIdentifiers)
}

func countCalls(c *fakeCluster, call string) int {
	count := 0
	for _, got := range c.callLog() {
		if got == call {
			count++
		}
	}
	return count
}
