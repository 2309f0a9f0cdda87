package process

import (
	"bytes"
	"context"
	"os/exec"
)

const (
	// A valid exit code of a process is a non-negative number. UnknownExitCode indicates
	// that the exit code has not been obtained (yet).
	UnknownExitCode int32 = -1

	// UnknownPID is used when a process is not started, or fails to start.
	UnknownPID int32 = -1
)

// RunResult captures the output of a short-lived command run to completion.
// Stdout and Stderr hold the separated streams; Combined holds both streams
// interleaved in arrival order.
type RunResult struct {
	Stdout   *bytes.Buffer
	Stderr   *bytes.Buffer
	Combined *bytes.Buffer
	ExitCode int32
}

// StreamHandler receives incremental output and the exit notification
// from a process started with Executor.Start.
//
// Chunks from a single stream are delivered in arrival order; the relative
// interleaving of stdout and stderr chunks is not guaranteed. OnExit is called
// exactly once, after the last output chunk has been delivered.
type StreamHandler interface {
	OnStdout(chunk []byte)
	OnStderr(chunk []byte)
	OnExit(exitCode int32, err error)
}

// StreamHandlerFuncs makes it easy to supply plain functions as a StreamHandler.
// Nil members are ignored.
type StreamHandlerFuncs struct {
	Stdout func(chunk []byte)
	Stderr func(chunk []byte)
	Exit   func(exitCode int32, err error)
}

func (h StreamHandlerFuncs) OnStdout(chunk []byte) {
	if h.Stdout != nil {
		h.Stdout(chunk)
	}
}

func (h StreamHandlerFuncs) OnStderr(chunk []byte) {
	if h.Stderr != nil {
		h.Stderr(chunk)
	}
}

func (h StreamHandlerFuncs) OnExit(exitCode int32, err error) {
	if h.Exit != nil {
		h.Exit(exitCode, err)
	}
}

// Executor starts and supervises external processes.
type Executor interface {
	// Run executes cmd to completion and captures its output.
	// A spawn failure (executable missing or unusable) is reported as an error
	// satisfying IsSpawnError. A non-zero exit is reported as an *ExitError,
	// with the captured output still available in the result.
	Run(ctx context.Context, cmd *exec.Cmd) (*RunResult, error)

	// Start launches cmd as a long-running process whose output is observed
	// incrementally through handler. The returned handle owns the process
	// lifetime and must be killed by the caller before being discarded.
	// When ctx is cancelled the process is terminated automatically.
	Start(ctx context.Context, cmd *exec.Cmd, handler StreamHandler) (*Handle, error)
}

// ExitError indicates that a command ran but finished with a non-zero exit code.
type ExitError struct {
	Command  string
	ExitCode int32
}

func (e *ExitError) Error() string {
	return "command '" + e.Command + "' returned non-zero exit code"
}
