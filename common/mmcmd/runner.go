package mmcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path"
	"path/filepath"
	"reflect"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// DefaultBinDir is where GPFS installs the mm* administration commands.
const DefaultBinDir = "/usr/lpp/mmfs/bin"

// Runner runs a single administration command and returns its captured output. Implementations
// return a *CommandError if the command could not be started, timed out or exited non-zero.
type Runner interface {
	Run(ctx context.Context, command string, args ...string) (Result, error)
}

type Result struct {
	Command  string        `json:"command"`
	Args     []string      `json:"args"`
	ExitCode int           `json:"rc"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timedOut"`
}

type Config struct {
	// BinDir is joined with the command name. If empty the command is looked up in $PATH.
	BinDir string `mapstructure:"bin-dir"`
	// AdminHost runs commands through ssh on another cluster node when set.
	AdminHost string `mapstructure:"admin-host"`
	// Timeout is applied to each attempt. Zero disables the watchdog.
	Timeout time.Duration `mapstructure:"timeout"`
	// Retries is how many times a timed out command is attempted again.
	Retries int `mapstructure:"retries"`
	// KillGrace is how long the watchdog waits after SIGTERM before sending SIGKILL.
	KillGrace time.Duration `mapstructure:"kill-grace"`
}

func DefaultConfig() Config {
	return Config{
		BinDir:    DefaultBinDir,
		Timeout:   300 * time.Second,
		Retries:   1,
		KillGrace: 500 * time.Millisecond,
	}
}

// ExecRunner runs commands as local child processes.
type ExecRunner struct {
	log     *zap.Logger
	cfg     Config
	metrics *Metrics
}

var _ Runner = &ExecRunner{}

// NewExecRunner returns a runner using the provided configuration. Metrics are optional.
func NewExecRunner(log *zap.Logger, cfg Config, metrics *Metrics) *ExecRunner {
	log = log.With(zap.String("component", path.Base(reflect.TypeOf(ExecRunner{}).PkgPath())))
	return &ExecRunner{
		log:     log,
		cfg:     cfg,
		metrics: metrics,
	}
}

func (r *ExecRunner) Run(ctx context.Context, command string, args ...string) (Result, error) {
	name, fullArgs := r.commandLine(command, args)
	for attempt := 0; ; attempt++ {
		r.log.Debug("running command", zap.String("command", command), zap.Strings("args", args), zap.Int("attempt", attempt))
		res := r.runOnce(ctx, name, fullArgs)
		res.Command = command
		res.Args = args
		r.metrics.observe(res)

		if ctx.Err() != nil {
			return res, fmt.Errorf("%s interrupted: %w", command, ctx.Err())
		}
		if res.TimedOut && attempt < r.cfg.Retries {
			r.log.Warn("command timed out, retrying", zap.String("command", command), zap.Duration("timeout", r.cfg.Timeout), zap.Int("attempt", attempt))
			continue
		}

		switch {
		case res.TimedOut:
			return res, newCommandError(res, "Command timed out")
		case res.ExitCode != 0:
			r.log.Debug("command failed", zap.String("command", command), zap.Int("rc", res.ExitCode), zap.String("stderr", res.Stderr))
			return res, newCommandError(res, "Command failed")
		}
		r.log.Debug("command finished", zap.String("command", command), zap.Duration("duration", res.Duration))
		return res, nil
	}
}

func (r *ExecRunner) commandLine(command string, args []string) (string, []string) {
	bin := command
	if r.cfg.BinDir != "" {
		bin = filepath.Join(r.cfg.BinDir, command)
	}
	if r.cfg.AdminHost == "" {
		return bin, args
	}
	return "ssh", append([]string{r.cfg.AdminHost, bin}, args...)
}

func (r *ExecRunner) runOnce(ctx context.Context, name string, args []string) Result {
	runCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// The command gets its own process group so the watchdog also reaches any children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}
	cmd.WaitDelay = r.cfg.KillGrace

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return res
	}

	if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		// Make sure nothing in the process group survives the grace period.
		if cmd.Process != nil {
			_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		}
		res.TimedOut = true
		res.Stderr = TimedOutStderr
		res.ExitCode = exitCode(err)
		return res
	}

	res.ExitCode = exitCode(err)
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		res.Stderr = err.Error()
	}
	return res
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
		return ExitSpawnFailed
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
		return ExitNotFound
	}
	return ExitSpawnFailed
}
