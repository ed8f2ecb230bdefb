package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spectrumscale/scale-go/common/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanDetachOrEvacuate(t *testing.T) {
	a := testNode(1, "nodeA", "")
	b := testNode(2, "nodeB", "")
	nsds := []scale.NSD{
		{Name: "shared", Servers: []string{"nodeA", "nodeB"}, Remarks: scale.RemarkServerNode},
		{Name: "owned", Servers: []string{"nodeA"}, Remarks: scale.RemarkServerNode},
		{Name: "other", Servers: []string{"nodeB"}, Remarks: scale.RemarkServerNode},
		{Name: "direct", Servers: []string{"nodeA"}, Remarks: "directly attached"},
	}
	maps := BuildNsdMaps([]scale.ClusterNode{a, b}, nsds)
	assert.Equal(t, []string{"shared", "owned"}, maps.NodeToNsds["nodeA"])
	assert.Equal(t, []string{"shared", "other"}, maps.NodeToNsds["nodeB"])
	assert.NotContains(t, maps.NsdToServers, "direct")

	plan := PlanDetachOrEvacuate(a, maps.NodeToNsds, maps.NsdToServers)
	assert.Equal(t, Plan{
		Node:     "nodeA",
		Detach:   []Detach{{NSD: "shared", RemainingServers: []string{"nodeB"}}},
		Evacuate: []string{"owned"},
	}, plan)

	unknown := PlanDetachOrEvacuate(testNode(3, "nodeC", ""), maps.NodeToNsds, maps.NsdToServers)
	assert.Empty(t, unknown.Detach)
	assert.Empty(t, unknown.Evacuate)
}

func TestPlanMatchesServersByAnyIdentifier(t *testing.T) {
	a := testNode(1, "nodeA", "")
	nsds := []scale.NSD{
		{Name: "byDaemon", Servers: []string{"nodeA.example.com", "nodeB"}, Remarks: scale.RemarkServerNode},
		{Name: "byIP", Servers: []string{"10.0.0.1"}, Remarks: scale.RemarkServerNode},
	}
	maps := BuildNsdMaps([]scale.ClusterNode{a}, nsds)
	plan := PlanDetachOrEvacuate(a, maps.NodeToNsds, maps.NsdToServers)
	assert.Equal(t, []Detach{{NSD: "byDaemon", RemainingServers: []string{"nodeB"}}}, plan.Detach)
	assert.Equal(t, []string{"byIP"}, plan.Evacuate)
}

func TestPlanBatch(t *testing.T) {
	a := testNode(1, "nodeA", "")
	b := testNode(2, "nodeB", "")
	c := testNode(3, "nodeC", "")
	nsds := []scale.NSD{
		{Name: "ab", Servers: []string{"nodeA", "nodeB"}, Remarks: scale.RemarkServerNode},
		{Name: "abc", Servers: []string{"nodeA", "nodeB", "nodeC"}, Remarks: scale.RemarkServerNode},
	}
	maps := BuildNsdMaps([]scale.ClusterNode{a, b, c}, nsds)
	plans := PlanBatch([]scale.ClusterNode{a, b}, maps)
	require.Len(t, plans, 2)

	assert.Equal(t, []Detach{
		{NSD: "ab", RemainingServers: []string{"nodeB"}},
		{NSD: "abc", RemainingServers: []string{"nodeB", "nodeC"}},
	}, plans[0].Detach)
	assert.Empty(t, plans[0].Evacuate)

	assert.Equal(t, []Detach{{NSD: "abc", RemainingServers: []string{"nodeC"}}}, plans[1].Detach)
	assert.Equal(t, []string{"ab"}, plans[1].Evacuate)

	// The input maps are not modified.
	assert.Equal(t, []string{"nodeA", "nodeB"}, maps.NsdToServers["ab"])
}

func TestPollIsBounded(t *testing.T) {
	cfg := WaitConfig{Interval: 2 * time.Millisecond, Retries: 5}
	checks := 0
	start := time.Now()
	ok, err := poll(context.Background(), cfg, func(ctx context.Context) (bool, error) {
		checks++
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 5, checks)
	// Four sleeps between five checks plus scheduling slack.
	assert.Less(t, time.Since(start), time.Second)

	checks = 0
	ok, err = poll(context.Background(), WaitConfig{Interval: time.Hour}, func(ctx context.Context) (bool, error) {
		checks++
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, checks)
}

func TestPollStops(t *testing.T) {
	cfg := WaitConfig{Interval: time.Millisecond, Retries: 10}

	checks := 0
	ok, err := poll(context.Background(), cfg, func(ctx context.Context) (bool, error) {
		checks++
		return checks == 3, nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, checks)

	boom := errors.New("boom")
	_, err = poll(context.Background(), cfg, func(ctx context.Context) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	_, err = poll(ctx, WaitConfig{Interval: time.Hour, Retries: 10}, func(ctx context.Context) (bool, error) {
		cancel()
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
