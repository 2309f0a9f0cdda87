// Package apperr defines the error taxonomy shared by the launch/attach
// subsystem. Callers classify failures with errors.Is against the sentinel
// values so that each failure class can be rendered with appropriate guidance
// (tool installation help, the tool's own message, retry advice, and so on).
package apperr

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSpawn indicates an executable is missing or unusable.
	// The remedy is installing or fixing the tool, not changing the project.
	ErrSpawn = errors.New("failed to start tool")

	// ErrToolReported indicates the wrapped tool reported a failure in its
	// own output; the tool's message is surfaced verbatim.
	ErrToolReported = errors.New("tool reported an error")

	// ErrTimeout indicates a readiness deadline was exceeded.
	ErrTimeout = errors.New("operation timed out")

	// ErrDiscovery indicates a target/device inventory query failed.
	ErrDiscovery = errors.New("device discovery failed")

	// ErrResolution indicates no target matched the given selector, or an
	// ambiguity that requires user input (e.g. multiple network addresses).
	ErrResolution = errors.New("could not resolve target")

	// ErrAttachChannel indicates the application process or its debug socket
	// could not be found after retry exhaustion.
	ErrAttachChannel = errors.New("could not establish attach channel")
)

func Spawnf(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrSpawn, a)...)
}

func ToolReportedf(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrToolReported, a)...)
}

func Timeoutf(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrTimeout, a)...)
}

func Discoveryf(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrDiscovery, a)...)
}

func Resolutionf(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrResolution, a)...)
}

func AttachChannelf(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrAttachChannel, a)...)
}

func prepend(err error, a []any) []any {
	return append([]any{err}, a...)
}

// IsCancellation reports whether err represents an externally requested
// abort. UI layers must treat cancellation as "no error" rather than
// reporting it as a failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsTimeout reports whether err represents a readiness deadline being
// exceeded, as opposed to a tool-reported failure.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// FilterCancellation returns nil for cancellation errors and err otherwise.
// Useful when aggregating errors during teardown, where cancellation is an
// expected side effect of shutting down and must not be re-reported.
func FilterCancellation(err error) error {
	if err == nil || IsCancellation(err) {
		return nil
	}
	return err
}
