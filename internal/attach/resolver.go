// Package attach establishes the communication channel used to attach a
// debugger to an app already running on a device-class target: it finds the
// app's process, locates its debug-listening abstract socket, and forwards a
// local port to it through the device bridge.
package attach

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/BMO568/vscode-cordova/internal/adb"
	"github.com/BMO568/vscode-cordova/internal/apperr"
	"github.com/BMO568/vscode-cordova/internal/devices"
	"github.com/BMO568/vscode-cordova/pkg/resiliency"
)

const (
	// The app process and its debug socket appear shortly after launch;
	// discovery is retried a fixed number of times with a fixed delay,
	// bounded by an overall cap.
	socketDiscoveryAttempts       = 5
	socketDiscoveryDelay          = time.Second
	socketDiscoveryOverallTimeout = 30 * time.Second
)

// PortForwardMapping records an active forwarding rule from a local port to a
// target-resident abstract socket. Removal on cleanup is best-effort.
type PortForwardMapping struct {
	TargetID  string
	LocalPort int
}

// Channel holds the resolved attach connection parameters handed to the
// protocol bridge collaborator.
type Channel struct {
	Target     devices.Target
	AppID      string
	PID        int
	SocketName string
	Forward    PortForwardMapping
}

type Resolver struct {
	bridge  *adb.Bridge
	targets devices.Manager
	log     logr.Logger

	// Retry cadence for socket discovery; overridable in tests.
	discoveryAttempts uint64
	discoveryDelay    time.Duration
	discoveryTimeout  time.Duration
}

func NewResolver(bridge *adb.Bridge, targets devices.Manager, log logr.Logger) *Resolver {
	return &Resolver{
		bridge:  bridge,
		targets: targets,
		log:     log.WithName("attach"),

		discoveryAttempts: socketDiscoveryAttempts,
		discoveryDelay:    socketDiscoveryDelay,
		discoveryTimeout:  socketDiscoveryOverallTimeout,
	}
}

// Resolve runs the attach pipeline: confirm bridge connectivity, resolve the
// target, resolve the application id, locate the app's pid and debug socket
// (retried together), and configure local port forwarding. Each step honors
// ctx cancellation; the first failing step aborts the pipeline.
func (r *Resolver) Resolve(ctx context.Context, projectRoot string, filter devices.Filter, localPort int) (*Channel, error) {
	status := r.bridge.CheckStatus(ctx)
	if !status.Installed {
		return nil, apperr.Spawnf(
			"adb executable not found; install the Android SDK platform tools and ensure adb is on PATH (%s)",
			status.Error)
	}
	if !status.Running {
		return nil, apperr.Discoveryf("the device bridge is not responding: %s", status.Error)
	}

	selection, err := r.targets.SelectAndPrepareTarget(ctx, devices.And(devices.OnlineOnly, filter))
	if err != nil {
		return nil, err
	}
	target := selection.Target
	r.log.V(1).Info("attach target resolved", "id", target.ID, "name", target.Name)

	appID, err := ResolveApplicationID(projectRoot)
	if err != nil {
		return nil, err
	}
	r.log.V(1).Info("application id resolved", "appId", appID)

	pid, socketName, err := r.discoverDebugSocket(ctx, target.ID, appID)
	if err != nil {
		return nil, err
	}
	r.log.V(1).Info("debug socket resolved", "pid", pid, "socket", socketName)

	// Forwarding is not retried: a failure here most likely means the bridge
	// connection dropped, and retrying would only mask that.
	if err := r.bridge.Forward(ctx, target.ID, localPort, socketName); err != nil {
		return nil, apperr.AttachChannelf("%v", err)
	}

	return &Channel{
		Target:     target,
		AppID:      appID,
		PID:        pid,
		SocketName: socketName,
		Forward:    PortForwardMapping{TargetID: target.ID, LocalPort: localPort},
	}, nil
}

// Release removes the port forwarding rule recorded for the channel.
// Best-effort: absence of the rule is not fatal.
func (r *Resolver) Release(ctx context.Context, mapping PortForwardMapping) error {
	return r.bridge.RemoveForward(ctx, mapping.TargetID, mapping.LocalPort)
}

type pidAndSocket struct {
	pid    int
	socket string
}

// discoverDebugSocket resolves the app's process id and its debug-listening
// abstract socket. The two steps are retried together because the socket is
// keyed by pid and the app may still be starting up.
func (r *Resolver) discoverDebugSocket(ctx context.Context, deviceID string, appID string) (int, string, error) {
	discoveryCtx, cancel := context.WithTimeout(ctx, r.discoveryTimeout)
	defer cancel()

	found, err := resiliency.RetryGetFixed(discoveryCtx, r.discoveryAttempts, r.discoveryDelay,
		func() (pidAndSocket, error) {
			pid, pidErr := r.resolvePid(discoveryCtx, deviceID, appID)
			if pidErr != nil {
				return pidAndSocket{}, pidErr
			}

			socketTable, shellErr := r.bridge.Shell(discoveryCtx, deviceID, "cat", "/proc/net/unix")
			if shellErr != nil {
				return pidAndSocket{}, shellErr
			}

			socket, ok := adb.FindDebugSocket(socketTable, pid, appID)
			if !ok {
				return pidAndSocket{}, fmt.Errorf("no debug socket for pid %d", pid)
			}
			return pidAndSocket{pid: pid, socket: socket}, nil
		})
	if err != nil {
		if apperr.IsCancellation(err) && ctx.Err() != nil {
			return 0, "", ctx.Err()
		}
		return 0, "", apperr.AttachChannelf(
			"could not find the debug socket of application '%s' on device %s; make sure the application is running and webview debugging is enabled (%v)",
			appID, deviceID, err)
	}

	return found.pid, found.socket, nil
}

// resolvePid tries the direct "process id of name" query first and falls back
// to parsing a full process listing, because not every device OS version
// supports pidof.
func (r *Resolver) resolvePid(ctx context.Context, deviceID string, appID string) (int, error) {
	out, err := r.bridge.Shell(ctx, deviceID, "pidof", "-s", appID)
	if err == nil {
		if pid, ok := adb.ParsePidof(out); ok {
			return pid, nil
		}
	}

	listing, err := r.bridge.Shell(ctx, deviceID, "ps")
	if err != nil {
		return 0, err
	}
	pid, ok := adb.FindPidInProcessList(listing, appID)
	if !ok {
		return 0, fmt.Errorf("application '%s' is not running on device %s", appID, deviceID)
	}
	return pid, nil
}
