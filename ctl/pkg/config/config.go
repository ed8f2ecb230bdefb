// Package config holds the configuration shared by the command line tool and provides the
// collaborators commands use to talk to the cluster. Everything is built lazily from the settings
// bound to viper the first time it is requested and reused for the lifetime of the process.
package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spectrumscale/scale-go/common/kvstore"
	"github.com/spectrumscale/scale-go/common/logger"
	"github.com/spectrumscale/scale-go/common/mmcmd"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/admin"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/inventory"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/node"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Viper keys of the global settings. Flags, environment variables (prefixed with SCALECTL_) and
// the optional config file all use these names.
const (
	ConfigFileKey        = "config"
	DebugKey             = "debug"
	RawKey               = "raw"
	OutputKey            = "output"
	ColumnsKey           = "columns"
	PageSizeKey          = "page-size"
	BinDirKey            = "gpfs-bin-dir"
	AdminHostKey         = "admin-host"
	CmdTimeoutKey        = "cmd-timeout"
	CmdRetriesKey        = "cmd-retries"
	PollIntervalKey      = "poll-interval"
	PollRetriesKey       = "poll-retries"
	NsdSettleIntervalKey = "nsd-settle-interval"
	NsdSettleRetriesKey  = "nsd-settle-retries"
	StateDirKey          = "state-dir"
	JournalDisableKey    = "journal-disable"
	MetricsTextfileKey   = "metrics-textfile"
	LogTypeKey           = "log-type"
	LogFileKey           = "log-file"
	LogLevelKey          = "log-level"
	LogDeveloperKey      = "log-developer"
)

type OutputType string

const (
	OutputTable      OutputType = "table"
	OutputJSON       OutputType = "json"
	OutputJSONPretty OutputType = "json-pretty"
	OutputNDJSON     OutputType = "ndjson"
)

func (o OutputType) String() string {
	return string(o)
}

// Settings is the decoded view of all global settings.
type Settings struct {
	BinDir            string         `mapstructure:"gpfs-bin-dir"`
	AdminHost         string         `mapstructure:"admin-host"`
	CmdTimeout        time.Duration  `mapstructure:"cmd-timeout"`
	CmdRetries        int            `mapstructure:"cmd-retries"`
	PollInterval      time.Duration  `mapstructure:"poll-interval"`
	PollRetries       int            `mapstructure:"poll-retries"`
	NsdSettleInterval time.Duration  `mapstructure:"nsd-settle-interval"`
	NsdSettleRetries  int            `mapstructure:"nsd-settle-retries"`
	StateDir          string         `mapstructure:"state-dir"`
	JournalDisable    bool           `mapstructure:"journal-disable"`
	MetricsTextfile   string         `mapstructure:"metrics-textfile"`
	LogType           logger.LogType `mapstructure:"log-type"`
	LogFile           string         `mapstructure:"log-file"`
	LogLevel          int8           `mapstructure:"log-level"`
	LogDeveloper      bool           `mapstructure:"log-developer"`
	Output            OutputType     `mapstructure:"output"`
	Columns           []string       `mapstructure:"columns"`
	PageSize          uint           `mapstructure:"page-size"`
}

// GetSettings decodes the current viper settings.
func GetSettings() (Settings, error) {
	var s Settings
	err := viper.Unmarshal(&s, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

func (s Settings) runnerConfig() mmcmd.Config {
	cfg := mmcmd.DefaultConfig()
	cfg.BinDir = s.BinDir
	cfg.AdminHost = s.AdminHost
	cfg.Timeout = s.CmdTimeout
	cfg.Retries = s.CmdRetries
	return cfg
}

// OrchestratorConfig returns the settings used for batch operations.
func (s Settings) OrchestratorConfig() node.Config {
	cfg := node.DefaultConfig()
	cfg.StateWait = node.WaitConfig{Interval: s.PollInterval, Retries: s.PollRetries}
	cfg.DetachWait = node.WaitConfig{Interval: s.NsdSettleInterval, Retries: s.NsdSettleRetries}
	return cfg
}

func (s Settings) loggerConfig() logger.Config {
	return logger.Config{
		Type:            s.LogType,
		File:            s.LogFile,
		Level:           s.LogLevel,
		MaxSize:         100,
		NumRotatedFiles: 5,
		Developer:       s.LogDeveloper,
	}
}

var (
	mu           sync.Mutex
	log          *logger.Logger
	registry     *prometheus.Registry
	runner       mmcmd.Runner
	journal      *node.Journal
	closeJournal func() error
)

// GetLogger returns the process wide logger, creating it on first use.
func GetLogger() (*logger.Logger, error) {
	mu.Lock()
	defer mu.Unlock()
	return getLoggerUnlocked()
}

func getLoggerUnlocked() (*logger.Logger, error) {
	if log != nil {
		return log, nil
	}
	s, err := GetSettings()
	if err != nil {
		return nil, err
	}
	l, err := logger.New(s.loggerConfig())
	if err != nil {
		return nil, fmt.Errorf("unable to initialize logger: %w", err)
	}
	log = l
	return log, nil
}

// Runner returns the command runner. Use SetRunner to replace it, for example to run against a
// recorded cluster.
func Runner() (mmcmd.Runner, error) {
	mu.Lock()
	defer mu.Unlock()
	if runner != nil {
		return runner, nil
	}
	l, err := getLoggerUnlocked()
	if err != nil {
		return nil, err
	}
	s, err := GetSettings()
	if err != nil {
		return nil, err
	}
	registry = prometheus.NewRegistry()
	runner = mmcmd.NewExecRunner(l.Logger, s.runnerConfig(), mmcmd.NewMetrics(registry))
	return runner, nil
}

func SetRunner(r mmcmd.Runner) {
	mu.Lock()
	defer mu.Unlock()
	runner = r
}

func Inventory() (inventory.Inventory, error) {
	r, err := Runner()
	if err != nil {
		return nil, err
	}
	l, err := GetLogger()
	if err != nil {
		return nil, err
	}
	return inventory.New(l.Logger, r), nil
}

func Executor() (admin.Executor, error) {
	r, err := Runner()
	if err != nil {
		return nil, err
	}
	l, err := GetLogger()
	if err != nil {
		return nil, err
	}
	return admin.New(l.Logger, r), nil
}

// Journal opens the journal in the state directory. It is nil if the journal is disabled.
func Journal() (*node.Journal, error) {
	mu.Lock()
	defer mu.Unlock()
	if journal != nil {
		return journal, nil
	}
	s, err := GetSettings()
	if err != nil {
		return nil, err
	}
	if s.JournalDisable {
		return nil, nil
	}
	if s.StateDir == "" {
		return nil, fmt.Errorf("unable to open journal: --%s is not set", StateDirKey)
	}
	l, err := getLoggerUnlocked()
	if err != nil {
		return nil, err
	}
	store, closeDB, err := kvstore.NewMapStore[node.BatchReport](kvstore.DefaultOptions(filepath.Join(s.StateDir, "journal"), l.Logger))
	if err != nil {
		return nil, fmt.Errorf("unable to open journal: %w", err)
	}
	journal, closeJournal = node.NewJournal(store), closeDB
	return journal, nil
}

// Orchestrator returns an orchestrator that records every batch to the journal unless disabled.
func Orchestrator(cfg node.Config, opts ...node.Option) (*node.Orchestrator, error) {
	inv, err := Inventory()
	if err != nil {
		return nil, err
	}
	exec, err := Executor()
	if err != nil {
		return nil, err
	}
	l, err := GetLogger()
	if err != nil {
		return nil, err
	}
	j, err := Journal()
	if err != nil {
		return nil, err
	}
	if j != nil {
		opts = append([]node.Option{node.WithRecorder(j)}, opts...)
	}
	return node.NewOrchestrator(l.Logger, inv, exec, cfg, opts...), nil
}

// Cleanup writes collected metrics and releases resources. It should be called once before the
// process exits.
func Cleanup() {
	mu.Lock()
	defer mu.Unlock()
	if s, err := GetSettings(); err == nil && s.MetricsTextfile != "" && registry != nil {
		if err := prometheus.WriteToTextfile(s.MetricsTextfile, registry); err != nil && log != nil {
			log.Warn("unable to write metrics", zap.String("path", s.MetricsTextfile), zap.Error(err))
		}
	}
	if closeJournal != nil {
		if err := closeJournal(); err != nil && log != nil {
			log.Warn("unable to close journal", zap.Error(err))
		}
		journal, closeJournal = nil, nil
	}
	if log != nil {
		_ = log.Sync()
	}
}
