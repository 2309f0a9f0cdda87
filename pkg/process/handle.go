package process

import (
	"context"
	"sync"
	"time"
)

// ExitInfo describes how a supervised process ended.
// If Err is nil, ExitCode is valid; otherwise there was a problem tracking
// the process and ExitCode may be UnknownExitCode.
type ExitInfo struct {
	PID      int32
	ExitCode int32
	Err      error
}

// Handle owns the lifetime of one started process. Exactly one live handle
// exists per started process; the component that created it is responsible
// for killing it before discarding it.
type Handle struct {
	pid       int32
	startTime time.Time

	done chan struct{}
	exit ExitInfo // valid once done is closed

	killOnce sync.Once
	killErr  error
	kill     func() error
}

// PID returns the operating system process id.
func (h *Handle) PID() int32 {
	return h.pid
}

// StartTime returns the process creation time as reported by the OS
// (falls back to the observed spawn time when the OS value is unavailable).
func (h *Handle) StartTime() time.Time {
	return h.startTime
}

// Done returns a channel that is closed after the process has exited and
// all of its output has been delivered.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// ExitInfo returns the exit information. Valid only after Done() is closed.
func (h *Handle) ExitInfo() ExitInfo {
	return h.exit
}

// Wait blocks until the process exits or ctx is cancelled.
func (h *Handle) Wait(ctx context.Context) (ExitInfo, error) {
	select {
	case <-h.done:
		return h.exit, nil
	case <-ctx.Done():
		return ExitInfo{PID: h.pid, ExitCode: UnknownExitCode}, ctx.Err()
	}
}

// Kill terminates the process. It is idempotent: calling it multiple times,
// or after the process has exited naturally, is safe and returns the result
// of the first invocation.
func (h *Handle) Kill() error {
	h.killOnce.Do(func() {
		select {
		case <-h.done:
			// Already exited, nothing to kill.
			return
		default:
		}
		h.killErr = h.kill()
	})
	return h.killErr
}
