package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromInt(t *testing.T) {
	tests := []struct {
		name    string
		level   int8
		want    zapcore.Level
		wantErr bool
	}{
		{name: "fatal", level: 0, want: zapcore.FatalLevel},
		{name: "error", level: 1, want: zapcore.ErrorLevel},
		{name: "warn", level: 2, want: zapcore.WarnLevel},
		{name: "info", level: 3, want: zapcore.InfoLevel},
		{name: "debug", level: 4, want: zapcore.DebugLevel},
		{name: "debug5", level: 5, want: zapcore.DebugLevel},
		{name: "too high", level: 6, wantErr: true},
		{name: "negative", level: -1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := levelFromInt(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "scalectl.log")
	l, err := New(Config{Type: LogFile, File: logFile, Level: 3, MaxSize: 1, NumRotatedFiles: 1})
	require.NoError(t, err)
	l.Info("hello from the test")
	l.Debug("filtered out")
	_ = l.Sync()

	contents, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "hello from the test")
	assert.NotContains(t, string(contents), "filtered out")

	require.NoError(t, l.SetLevel(4))
	l.Debug("now visible")
	_ = l.Sync()
	contents, err = os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "now visible")
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(Config{Type: LogFile})
	assert.Error(t, err)
	_, err = New(Config{Type: "syslog"})
	assert.Error(t, err)
	_, err = New(Config{Type: StdErr, Level: 9})
	assert.Error(t, err)
}
