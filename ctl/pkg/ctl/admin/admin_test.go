package admin

import (
	"context"
	"testing"

	"github.com/spectrumscale/scale-go/common/mmcmd"
	"github.com/spectrumscale/scale-go/common/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCommandLines(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		call func(e *MM) (mmcmd.Result, error)
		want string
	}{
		{
			name: "shutdown",
			call: func(e *MM) (mmcmd.Result, error) { return e.ShutdownNodes(ctx, []string{"node1", "node2"}) },
			want: "mmshutdown -N node1,node2",
		},
		{
			name: "startup",
			call: func(e *MM) (mmcmd.Result, error) { return e.StartNodes(ctx, []string{"node1"}) },
			want: "mmstartup -N node1",
		},
		{
			name: "delete node",
			call: func(e *MM) (mmcmd.Result, error) { return e.DeleteNodes(ctx, []string{"node1"}) },
			want: "mmdelnode -N node1",
		},
		{
			name: "delete disks",
			call: func(e *MM) (mmcmd.Result, error) {
				return e.DeleteDisks(ctx, "node1", "fs1", []string{"nsd1", "nsd2"})
			},
			want: "mmdeldisk fs1 nsd1;nsd2 -N node1",
		},
		{
			name: "delete nsds",
			call: func(e *MM) (mmcmd.Result, error) { return e.DeleteNsds(ctx, []string{"nsd1", "nsd2"}) },
			want: "mmdelnsd nsd1;nsd2",
		},
		{
			name: "change nsd servers",
			call: func(e *MM) (mmcmd.Result, error) {
				return e.ChangeNsdServers(ctx, "nsd1", []string{"node2", "node3"})
			},
			want: "mmchnsd nsd1:node2,node3",
		},
		{
			name: "unmount",
			call: func(e *MM) (mmcmd.Result, error) { return e.UnmountAll(ctx, "node1") },
			want: "mmumount all -N node1",
		},
		{
			name: "add nodes",
			call: func(e *MM) (mmcmd.Result, error) { return e.AddNodes(ctx, "/tmp/stanza") },
			want: "mmaddnode -N /tmp/stanza --accept",
		},
		{
			name: "license",
			call: func(e *MM) (mmcmd.Result, error) {
				return e.ApplyLicense(ctx, []string{"node1", "node2"}, scale.ClientLicense)
			},
			want: "mmchlicense client --accept -N node1,node2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := mmcmd.NewMockRunner().On(tt.want, mmcmd.MockResponse{})
			_, err := tt.call(New(zap.NewNop(), runner))
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, runner.CallLog())
		})
	}
}

func TestUnmountToleratesNothingMounted(t *testing.T) {
	runner := mmcmd.NewMockRunner().On("mmumount all -N node1", mmcmd.MockResponse{
		ExitCode: 1,
		Stderr:   "mmumount: No file systems were found.\n",
	})
	_, err := New(zap.NewNop(), runner).UnmountAll(context.Background(), "node1")
	assert.NoError(t, err)
}

func TestFailuresSurface(t *testing.T) {
	runner := mmcmd.NewMockRunner().On("mmdelnode -N node1", mmcmd.MockResponse{
		ExitCode: 1,
		Stderr:   "mmdelnode: Node node1 is still active.",
	})
	_, err := New(zap.NewNop(), runner).DeleteNodes(context.Background(), []string{"node1"})
	var cmdErr *mmcmd.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, cmdErr.Stderr, "still active")
}

func TestInvalidArguments(t *testing.T) {
	runner := mmcmd.NewMockRunner()
	e := New(zap.NewNop(), runner)
	ctx := context.Background()

	_, err := e.ShutdownNodes(ctx, nil)
	assert.ErrorIs(t, err, ErrNoNodes)
	_, err = e.DeleteNsds(ctx, []string{})
	assert.ErrorIs(t, err, ErrNoDisks)
	_, err = e.ChangeNsdServers(ctx, "nsd1", nil)
	assert.ErrorIs(t, err, ErrNoNodes)
	_, err = e.ApplyLicense(ctx, []string{"node1"}, scale.License("enterprise"))
	assert.Error(t, err)
	assert.Empty(t, runner.CallLog())
}
