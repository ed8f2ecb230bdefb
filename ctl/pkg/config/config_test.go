package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spectrumscale/scale-go/common/logger"
	"github.com/spectrumscale/scale-go/common/mmcmd"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/node"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetForTest(t *testing.T) {
	t.Helper()
	viper.Reset()
	mu.Lock()
	log, registry, runner, journal, closeJournal = nil, nil, nil, nil, nil
	mu.Unlock()
	t.Cleanup(func() {
		Cleanup()
		viper.Reset()
		mu.Lock()
		log, registry, runner = nil, nil, nil
		mu.Unlock()
	})
}

func TestGetSettings(t *testing.T) {
	resetForTest(t)
	viper.Set(BinDirKey, "/opt/gpfs/bin")
	viper.Set(CmdTimeoutKey, "42s")
	viper.Set(CmdRetriesKey, 3)
	viper.Set(PollIntervalKey, 2*time.Second)
	viper.Set(PollRetriesKey, "10")
	viper.Set(ColumnsKey, "name,ip")
	viper.Set(LogTypeKey, "logfile")
	viper.Set(OutputKey, "json")

	s, err := GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "/opt/gpfs/bin", s.BinDir)
	assert.Equal(t, 42*time.Second, s.CmdTimeout)
	assert.Equal(t, 3, s.CmdRetries)
	assert.Equal(t, 2*time.Second, s.PollInterval)
	assert.Equal(t, 10, s.PollRetries)
	assert.Equal(t, []string{"name", "ip"}, s.Columns)
	assert.Equal(t, logger.LogFile, s.LogType)
	assert.Equal(t, OutputJSON, s.Output)

	rc := s.runnerConfig()
	assert.Equal(t, "/opt/gpfs/bin", rc.BinDir)
	assert.Equal(t, 42*time.Second, rc.Timeout)
	assert.Equal(t, 3, rc.Retries)
}

func TestGetSettingsInvalid(t *testing.T) {
	resetForTest(t)
	viper.Set(CmdTimeoutKey, "forever")
	_, err := GetSettings()
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestOrchestratorConfig(t *testing.T) {
	s := Settings{
		PollInterval:      time.Second,
		PollRetries:       5,
		NsdSettleInterval: 3 * time.Second,
		NsdSettleRetries:  7,
	}
	cfg := s.OrchestratorConfig()
	assert.False(t, cfg.KeepGoing)
	assert.Equal(t, node.WaitConfig{Interval: time.Second, Retries: 5}, cfg.StateWait)
	assert.Equal(t, node.WaitConfig{Interval: 3 * time.Second, Retries: 7}, cfg.DetachWait)
}

func TestJournal(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		resetForTest(t)
		viper.Set(JournalDisableKey, true)
		j, err := Journal()
		require.NoError(t, err)
		assert.Nil(t, j)
	})

	t.Run("missing state dir", func(t *testing.T) {
		resetForTest(t)
		_, err := Journal()
		assert.ErrorContains(t, err, StateDirKey)
	})

	t.Run("records batches", func(t *testing.T) {
		stateDir := t.TempDir()
		resetForTest(t)
		viper.Set(StateDirKey, stateDir)
		j, err := Journal()
		require.NoError(t, err)
		require.NotNil(t, j)

		again, err := Journal()
		require.NoError(t, err)
		assert.Same(t, j, again)

		report := node.BatchReport{ID: "abc123", Operation: node.OperationStop, Started: time.Now(), Finished: time.Now()}
		require.NoError(t, j.Record(report))
		got, err := j.Get("abc")
		require.NoError(t, err)
		assert.Equal(t, node.OperationStop, got.Operation)
	})
}

func TestRunnerOverride(t *testing.T) {
	resetForTest(t)
	mock := mmcmd.NewMockRunner().On("mmlsnsd -a -X -Y", mmcmd.MockResponse{})
	SetRunner(mock)

	r, err := Runner()
	require.NoError(t, err)
	assert.Same(t, mock, r)

	inv, err := Inventory()
	require.NoError(t, err)
	nsds, err := inv.Nsds(t.Context())
	require.NoError(t, err)
	assert.Empty(t, nsds)
	assert.Equal(t, []string{"mmlsnsd -a -X -Y"}, mock.CallLog())
}

func TestCleanupWritesMetrics(t *testing.T) {
	resetForTest(t)
	path := filepath.Join(t.TempDir(), "scalectl.prom")
	viper.Set(MetricsTextfileKey, path)
	viper.Set(BinDirKey, t.TempDir())

	_, err := Runner()
	require.NoError(t, err)
	Cleanup()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
