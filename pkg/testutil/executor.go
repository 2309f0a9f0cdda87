package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/BMO568/vscode-cordova/pkg/process"
)

// CommandResponse is the canned outcome of one faked command invocation.
type CommandResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int32
	Err      error
}

// CommandRule matches an invocation by its argument list and produces the response.
type CommandRule struct {
	Match   func(args []string) bool
	Respond func(args []string) CommandResponse
}

// FakeExecutor is a process.Executor that serves canned responses instead of
// running real commands. Rules are evaluated in order; the first match wins.
type FakeExecutor struct {
	mu    sync.Mutex
	Rules []CommandRule
	calls []string
}

func (e *FakeExecutor) Run(ctx context.Context, cmd *exec.Cmd) (*process.RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args := cmd.Args
	e.mu.Lock()
	e.calls = append(e.calls, strings.Join(args, " "))
	rules := e.Rules
	e.mu.Unlock()

	for _, rule := range rules {
		if !rule.Match(args) {
			continue
		}
		resp := rule.Respond(args)
		if resp.Err != nil {
			return nil, resp.Err
		}

		res := &process.RunResult{
			Stdout:   bytes.NewBufferString(resp.Stdout),
			Stderr:   bytes.NewBufferString(resp.Stderr),
			Combined: bytes.NewBufferString(resp.Stdout + resp.Stderr),
			ExitCode: resp.ExitCode,
		}
		if resp.ExitCode != 0 {
			return res, &process.ExitError{Command: cmd.Path, ExitCode: resp.ExitCode}
		}
		return res, nil
	}

	return nil, fmt.Errorf("FakeExecutor: no rule matches command %v", args)
}

func (e *FakeExecutor) Start(context.Context, *exec.Cmd, process.StreamHandler) (*process.Handle, error) {
	return nil, fmt.Errorf("FakeExecutor does not support long-running processes")
}

// Calls returns the recorded invocations, one space-joined argument list per call.
func (e *FakeExecutor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

// CallCount returns how many recorded invocations contain the given substring.
func (e *FakeExecutor) CallCount(substring string) int {
	n := 0
	for _, c := range e.Calls() {
		if strings.Contains(c, substring) {
			n++
		}
	}
	return n
}

var _ process.Executor = (*FakeExecutor)(nil)
