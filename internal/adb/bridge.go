// Package adb wraps the Android device bridge command-line tool. All device
// enumeration, shell queries and port forwarding for Android targets go
// through this package; nobody else shells out to adb directly.
package adb

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/BMO568/vscode-cordova/internal/apperr"
	"github.com/BMO568/vscode-cordova/pkg/process"
)

const (
	defaultExecutableName = "adb"

	// adb commands are short-lived; anything taking this long indicates a
	// wedged bridge connection.
	ordinaryCommandTimeout = 30 * time.Second
)

// BridgeStatus describes availability of the device bridge tool.
type BridgeStatus struct {
	Installed bool
	Running   bool
	Error     string
}

type Bridge struct {
	executor process.Executor
	log      logr.Logger
	path     string
}

func NewBridge(executor process.Executor, log logr.Logger) *Bridge {
	return &Bridge{
		executor: executor,
		log:      log.WithName("adb"),
		path:     defaultExecutableName,
	}
}

// NewBridgeWithPath creates a bridge wrapper using a specific adb executable,
// e.g. one found under ANDROID_HOME.
func NewBridgeWithPath(executor process.Executor, log logr.Logger, path string) *Bridge {
	b := NewBridge(executor, log)
	if path != "" {
		b.path = path
	}
	return b
}

// CheckStatus reports whether the bridge tool is installed and responsive.
// Modeled after runtime status checks: a spawn failure means "not installed",
// any other failure means "installed but not usable".
func (b *Bridge) CheckStatus(ctx context.Context) BridgeStatus {
	_, err := b.run(ctx, "devices")
	switch {
	case err == nil:
		return BridgeStatus{Installed: true, Running: true}
	case process.IsSpawnError(err):
		return BridgeStatus{
			Installed: false,
			Running:   false,
			Error:     err.Error(),
		}
	case errors.Is(err, context.DeadlineExceeded):
		return BridgeStatus{
			Installed: true,
			Running:   false,
			Error:     "adb timed out while checking status; the bridge server may be unresponsive",
		}
	default:
		return BridgeStatus{Installed: true, Running: false, Error: err.Error()}
	}
}

// Devices returns the bridge's view of connected devices and emulators,
// in bridge-reported order (devices are reported before emulators by
// convention of the underlying tool).
func (b *Bridge) Devices(ctx context.Context) ([]DeviceEntry, error) {
	res, err := b.run(ctx, "devices", "-l")
	if err != nil {
		if process.IsSpawnError(err) {
			return nil, apperr.Spawnf("adb executable not found; install the Android SDK platform tools and ensure adb is on PATH (%v)", err)
		}
		return nil, apperr.Discoveryf("listing devices failed: %v", err)
	}

	return parseDeviceList(res.Stdout.String()), nil
}

// Shell runs a shell command on the given device and returns its output.
func (b *Bridge) Shell(ctx context.Context, deviceID string, shellArgs ...string) (string, error) {
	args := append([]string{"-s", deviceID, "shell"}, shellArgs...)
	res, err := b.run(ctx, args...)
	if err != nil {
		return "", err
	}
	return res.Stdout.String(), nil
}

// Forward configures forwarding from a local TCP port to a device-resident
// abstract socket. There is at most one forwarding rule per
// (device, local port) pair; adb replaces an existing rule for the same port.
func (b *Bridge) Forward(ctx context.Context, deviceID string, localPort int, abstractSocket string) error {
	_, err := b.run(ctx,
		"-s", deviceID,
		"forward",
		fmt.Sprintf("tcp:%d", localPort),
		fmt.Sprintf("localabstract:%s", abstractSocket),
	)
	if err != nil {
		return fmt.Errorf("could not forward local port %d to socket '%s' on device %s: %w",
			localPort, abstractSocket, deviceID, err)
	}
	return nil
}

// RemoveForward removes a previously configured forwarding rule.
// Absence of the rule is not an error; removal is best-effort cleanup.
func (b *Bridge) RemoveForward(ctx context.Context, deviceID string, localPort int) error {
	_, err := b.run(ctx, "-s", deviceID, "forward", "--remove", fmt.Sprintf("tcp:%d", localPort))
	if err != nil && !isNoSuchForwardError(err) {
		return err
	}
	return nil
}

// isNoSuchForwardError matches the bridge's complaint about removing a rule
// that does not exist. Older adb versions print "cannot remove listener",
// newer ones "listener 'tcp:<port>' not found"; both exit non-zero. Any other
// removal failure is a real error.
func isNoSuchForwardError(err error) bool {
	var ee *process.ExitError
	if !errors.As(err, &ee) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "cannot remove listener") ||
		(strings.Contains(msg, "listener") && strings.Contains(msg, "not found"))
}

func (b *Bridge) run(ctx context.Context, args ...string) (*process.RunResult, error) {
	effectiveCtx, cancel := context.WithTimeout(ctx, ordinaryCommandTimeout)
	defer cancel()

	cmd := exec.Command(b.path, args...)
	b.log.V(1).Info("running adb command", "args", args)

	res, err := b.executor.Run(effectiveCtx, cmd)
	if err != nil {
		var ee *process.ExitError
		if errors.As(err, &ee) && res != nil {
			stderr := strings.TrimSpace(res.Stderr.String())
			if stderr != "" {
				return res, fmt.Errorf("%w: %s", err, stderr)
			}
		}
		return res, err
	}
	return res, nil
}
