package mmcmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRunner(cfg Config, metrics *Metrics) *ExecRunner {
	return NewExecRunner(zap.NewNop(), cfg, metrics)
}

func TestExecRunnerSuccess(t *testing.T) {
	r := newTestRunner(Config{BinDir: "/bin", Timeout: 10 * time.Second}, nil)
	res, err := r.Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, "sh", res.Command)
	assert.Equal(t, []string{"-c", "echo out; echo err >&2"}, res.Args)
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	r := newTestRunner(Config{BinDir: "/bin", Timeout: 10 * time.Second}, nil)
	res, err := r.Run(context.Background(), "sh", "-c", "echo 'mmlsfs: No file systems were found.' >&2; exit 3")
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "sh", cmdErr.Command)
	assert.Contains(t, cmdErr.Error(), "Error Code: 3")
	assert.True(t, IsTolerated(err, "No file systems were found"))
	assert.False(t, IsTolerated(err, "No disks were found"))
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestExecRunnerMissingBinary(t *testing.T) {
	r := newTestRunner(Config{BinDir: t.TempDir(), Timeout: time.Second}, nil)
	res, err := r.Run(context.Background(), "mmlscluster", "-Y")
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, res.ExitCode)
}

func TestExecRunnerTimeoutRetries(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	r := newTestRunner(Config{BinDir: "/bin", Timeout: 100 * time.Millisecond, Retries: 1, KillGrace: 100 * time.Millisecond}, metrics)

	start := time.Now()
	res, err := r.Run(context.Background(), "sh", "-c", "sleep 10")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "watchdog must stop the command")
	assert.True(t, res.TimedOut)
	assert.Equal(t, TimedOutStderr, res.Stderr)
	assert.ErrorIs(t, err, ErrTimeout)

	families, err := reg.Gather()
	require.NoError(t, err)
	var attempts float64
	for _, f := range families {
		if f.GetName() == "scale_mmcmd_commands_total" {
			for _, m := range f.GetMetric() {
				attempts += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, attempts, "one initial attempt plus one retry")
}

func TestExecRunnerCancelled(t *testing.T) {
	r := newTestRunner(Config{BinDir: "/bin", Timeout: 10 * time.Second, Retries: 3}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx, "sh", "-c", "true")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommandLine(t *testing.T) {
	r := newTestRunner(Config{BinDir: DefaultBinDir}, nil)
	name, args := r.commandLine("mmgetstate", []string{"-a", "-Y"})
	assert.Equal(t, "/usr/lpp/mmfs/bin/mmgetstate", name)
	assert.Equal(t, []string{"-a", "-Y"}, args)

	r = newTestRunner(Config{BinDir: DefaultBinDir, AdminHost: "admin1"}, nil)
	name, args = r.commandLine("mmgetstate", []string{"-a"})
	assert.Equal(t, "ssh", name)
	assert.Equal(t, []string{"admin1", "/usr/lpp/mmfs/bin/mmgetstate", "-a"}, args)
}
