package mmcmd

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockResponse is returned by MockRunner for a matching command line.
type MockResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// MockRunner replays canned responses keyed by the full command line ("mmlsnsd -a -X -Y") and
// records every call. Unknown command lines fail with exit code 127.
type MockRunner struct {
	mu        sync.Mutex
	Responses map[string]MockResponse
	Calls     []string
}

var _ Runner = &MockRunner{}

func NewMockRunner() *MockRunner {
	return &MockRunner{Responses: map[string]MockResponse{}}
}

func (m *MockRunner) On(commandLine string, resp MockResponse) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[commandLine] = resp
	return m
}

func (m *MockRunner) Run(ctx context.Context, command string, args ...string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	line := strings.TrimSpace(command + " " + strings.Join(args, " "))
	m.Calls = append(m.Calls, line)

	if err := ctx.Err(); err != nil {
		return Result{Command: command, Args: args}, fmt.Errorf("%s interrupted: %w", command, err)
	}
	resp, ok := m.Responses[line]
	if !ok {
		resp = MockResponse{ExitCode: ExitNotFound, Stderr: "no mock response for: " + line}
	}
	res := Result{
		Command:  command,
		Args:     args,
		ExitCode: resp.ExitCode,
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
	}
	if res.ExitCode != 0 {
		return res, newCommandError(res, "Command failed")
	}
	return res, nil
}

// CallLog returns a copy of all command lines run so far.
func (m *MockRunner) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.Calls...)
}
