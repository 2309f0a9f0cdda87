package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os/exec"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/tklauser/ps"
)

const outputChunkSize = 4096

// OSExecutor runs commands as operating system processes.
type OSExecutor struct {
	log logr.Logger
}

func NewOSExecutor(log logr.Logger) Executor {
	return &OSExecutor{
		log: log.WithName("os-executor"),
	}
}

func (e *OSExecutor) Run(ctx context.Context, cmd *exec.Cmd) (*RunResult, error) {
	res := &RunResult{
		Stdout:   new(bytes.Buffer),
		Stderr:   new(bytes.Buffer),
		Combined: new(bytes.Buffer),
		ExitCode: UnknownExitCode,
	}

	var mu sync.Mutex // Guards Combined, written from both stream callbacks.
	exitCh := make(chan ExitInfo, 1)

	handler := StreamHandlerFuncs{
		Stdout: func(chunk []byte) {
			res.Stdout.Write(chunk)
			mu.Lock()
			res.Combined.Write(chunk)
			mu.Unlock()
		},
		Stderr: func(chunk []byte) {
			res.Stderr.Write(chunk)
			mu.Lock()
			res.Combined.Write(chunk)
			mu.Unlock()
		},
		Exit: func(exitCode int32, err error) {
			exitCh <- ExitInfo{ExitCode: exitCode, Err: err}
		},
	}

	handle, err := e.Start(ctx, cmd, handler)
	if err != nil {
		return nil, err
	}

	select {
	case ei := <-exitCh:
		res.ExitCode = ei.ExitCode
		if ei.Err != nil {
			return res, ei.Err
		}
		if ei.ExitCode != 0 {
			return res, &ExitError{Command: cmd.Path, ExitCode: ei.ExitCode}
		}
		return res, nil

	case <-ctx.Done():
		_ = handle.Kill()
		// The exit notification is delivered only after both stream pumps
		// have finished, so the buffers are settled when the caller gets res.
		ei := <-exitCh
		res.ExitCode = ei.ExitCode
		return res, ctx.Err()
	}
}

func (e *OSExecutor) Start(ctx context.Context, cmd *exec.Cmd, handler StreamHandler) (*Handle, error) {
	if handler == nil {
		handler = StreamHandlerFuncs{}
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	setupCmd(cmd)

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	startTime := time.Now()

	pid := int32(cmd.Process.Pid)
	if psProcess, psErr := ps.FindProcess(cmd.Process.Pid); psErr != nil {
		e.log.V(1).Info("could not find process startup time", "PID", pid, "error", psErr.Error())
	} else {
		// The OS process startup timestamp is the most accurate value we can get.
		startTime = psProcess.CreationTime()
	}

	h := &Handle{
		pid:       pid,
		startTime: startTime,
		done:      make(chan struct{}),
		kill:      func() error { return killCmd(cmd) },
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go pumpStream(stdoutPipe, handler.OnStdout, &readers)
	go pumpStream(stderrPipe, handler.OnStderr, &readers)

	go func() {
		// Deliver all output before the exit notification.
		readers.Wait()
		waitErr := cmd.Wait()

		exitCode, execErr := processExecResult(waitErr, cmd)
		h.exit = ExitInfo{PID: pid, ExitCode: exitCode, Err: execErr}
		close(h.done)
		handler.OnExit(exitCode, execErr)
	}()

	go func() {
		select {
		case <-ctx.Done():
			if killErr := h.Kill(); killErr != nil {
				e.log.Error(killErr, "failed to terminate process on context cancellation", "PID", pid)
			}
		case <-h.done:
		}
	}()

	e.log.V(1).Info("process started", "executable", cmd.Path, "PID", pid)
	return h, nil
}

func pumpStream(r io.Reader, deliver func([]byte), wg *sync.WaitGroup) {
	defer wg.Done()

	buf := make([]byte, outputChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			deliver(chunk)
		}
		if err != nil {
			return
		}
	}
}

// processExecResult returns the exit code and execution error based on the
// result of the command wait call.
func processExecResult(waitErr error, cmd *exec.Cmd) (int32, error) {
	var ee *exec.ExitError
	switch {
	case waitErr == nil:
		return int32(cmd.ProcessState.ExitCode()), nil
	case errors.As(waitErr, &ee):
		return int32(ee.ExitCode()), nil
	default:
		return UnknownExitCode, waitErr
	}
}

// IsSpawnError reports whether err indicates that a command could not be
// started at all (executable missing or unusable), as opposed to the command
// running and failing. Callers render different diagnostics for the two cases.
func IsSpawnError(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}

var _ Executor = (*OSExecutor)(nil)
