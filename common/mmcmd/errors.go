package mmcmd

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ExitNotFound is reported when the command binary does not exist.
	ExitNotFound = 127
	// ExitSpawnFailed is reported for all other failures to start the command.
	ExitSpawnFailed = 255
	// TimedOutStderr replaces stderr of commands that were killed by the watchdog.
	TimedOutStderr = "CMD_TIMEDOUT"
)

var (
	ErrTimeout = errors.New("command timed out")
)

// CommandError is returned for commands that exited non-zero, could not be started or timed out.
type CommandError struct {
	Message  string
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

func newCommandError(res Result, msg string) *CommandError {
	return &CommandError{
		Message:  msg,
		Command:  res.Command,
		Args:     res.Args,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		TimedOut: res.TimedOut,
	}
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s. Command: %q. Arguments: %q. Error Code: %d. Error Message: %q.",
		e.Message, e.Command, strings.Join(e.Args, " "), e.ExitCode, strings.TrimSpace(e.Stderr))
}

func (e *CommandError) Is(target error) bool {
	return target == ErrTimeout && e.TimedOut
}

// Contains returns true if stdout or stderr of the command contains the provided message.
func (e *CommandError) Contains(msg string) bool {
	return strings.Contains(e.Stderr, msg) || strings.Contains(e.Stdout, msg)
}

// IsTolerated returns true if err is a CommandError whose output contains any of the provided
// messages. It is used to map "nothing found" style failures to empty results.
func IsTolerated(err error, messages ...string) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	for _, m := range messages {
		if cmdErr.Contains(m) {
			return true
		}
	}
	return false
}
