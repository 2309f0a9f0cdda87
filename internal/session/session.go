// Package session implements the top-level launch/attach orchestrator: it
// resolves the platform and target for a run, drives the launch or attach
// sequence, hands the resulting connection parameters to the external
// protocol bridge, and guarantees idempotent cleanup.
package session

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/BMO568/vscode-cordova/internal/adb"
	"github.com/BMO568/vscode-cordova/internal/apperr"
	"github.com/BMO568/vscode-cordova/internal/attach"
	"github.com/BMO568/vscode-cordova/internal/devices"
	"github.com/BMO568/vscode-cordova/internal/devserver"
	"github.com/BMO568/vscode-cordova/internal/launchcfg"
	"github.com/BMO568/vscode-cordova/internal/networking"
	"github.com/BMO568/vscode-cordova/internal/output"
	"github.com/BMO568/vscode-cordova/pkg/concurrency"
	"github.com/BMO568/vscode-cordova/pkg/process"
)

// Phase is the session lifecycle state. Exactly one forward path exists per
// run; PhaseTerminated is absorbing and reachable from every phase.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseResolvingTarget
	PhaseLaunching
	PhaseAttaching
	PhaseActivated
	PhaseCleaningUp
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "Created"
	case PhaseResolvingTarget:
		return "ResolvingTarget"
	case PhaseLaunching:
		return "Launching"
	case PhaseAttaching:
		return "Attaching"
	case PhaseActivated:
		return "Activated"
	case PhaseCleaningUp:
		return "CleaningUp"
	case PhaseTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Params describe one launch or attach run.
type Params struct {
	Platform   string
	Simulate   bool
	ConfigName string

	// Target is an explicit device id or name. When empty, the persisted
	// launch configuration (keyed by ConfigName) is consulted, and failing
	// that, the default selection policy applies.
	Target string

	ProjectRoot string

	// Tool is the build-and-run tool wrapped by the session.
	Tool             string
	ToolMajorVersion int
	RunArgs          []string
	Env              map[string]string
	EnvFiles         []string

	// LiveReload selects the dev-server launch path instead of a direct
	// build+deploy command.
	LiveReload bool

	// LocalPort for the protocol bridge listener; allocated when zero.
	LocalPort int

	// InspectURL overrides the browser-inspectable endpoint for
	// browser-class attach.
	InspectURL string

	ServerReadyTimeout time.Duration
	AppReadyTimeout    time.Duration
}

// Dependencies are the collaborators a session consumes.
type Dependencies struct {
	Executor       process.Executor
	Bridge         *adb.Bridge
	AndroidTargets devices.Manager
	IOSTargets     devices.Manager
	Config         *launchcfg.Store
	Output         output.Sink
	ProtocolBridge ProtocolBridge
}

// Session is a single logical launch/attach run. It drives at most one
// long-running dev server process, owns it exclusively, and must be
// terminated exactly once.
type Session struct {
	ID     string
	params Params
	deps   Dependencies
	log    logr.Logger

	mu        sync.Mutex
	phase     Phase
	server    *devserver.Server
	forward   *attach.PortForwardMapping
	ownedPort int // port allocated by this session, 0 if caller-provided

	cleanup *concurrency.OneTimeJob[error]
}

func New(params Params, deps Dependencies, log logr.Logger) *Session {
	if params.Tool == "" {
		params.Tool = "ionic"
	}
	if deps.Output == nil {
		deps.Output = output.ConsoleSink{}
	}
	if deps.ProtocolBridge == nil {
		deps.ProtocolBridge = NopBridge{}
	}

	id := uuid.NewString()
	return &Session{
		ID:      id,
		params:  params,
		deps:    deps,
		log:     log.WithName("session").WithValues("sessionId", id),
		phase:   PhaseCreated,
		cleanup: concurrency.NewOneTimeJob[error](),
	}
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseTerminated {
		return
	}
	s.log.V(1).Info("session phase change", "from", s.phase.String(), "to", p.String())
	s.phase = p
}

// Launch resolves the platform and target, then either drives the dev-server
// readiness path or runs a direct build+deploy command, and hands off to the
// protocol bridge. On any failure, cleanup runs before the error is surfaced.
func (s *Session) Launch(ctx context.Context) error {
	err := s.launch(ctx)
	if err != nil {
		terminateErr := s.Terminate(context.WithoutCancel(ctx))
		return errors.Join(err, terminateErr)
	}
	return nil
}

func (s *Session) launch(ctx context.Context) error {
	platform, err := ResolvePlatform(s.params.Platform, s.params.Simulate)
	if err != nil {
		return err
	}

	var target *devices.Target
	if platform.DeviceClass() {
		s.setPhase(PhaseResolvingTarget)
		target, err = s.resolveTarget(ctx, platform)
		if err != nil {
			return err
		}
	}

	s.setPhase(PhaseLaunching)

	if platform == PlatformBrowser || s.params.LiveReload {
		return s.launchDevServer(ctx, platform, target)
	}
	return s.launchDirect(ctx, platform, target)
}

// Attach resolves the platform and target, establishes the attach channel for
// device-class platforms, and hands the connection parameters to the protocol
// bridge. On any failure, cleanup runs before the error is surfaced.
func (s *Session) Attach(ctx context.Context) error {
	err := s.attach(ctx)
	if err != nil {
		terminateErr := s.Terminate(context.WithoutCancel(ctx))
		return errors.Join(err, terminateErr)
	}
	return nil
}

func (s *Session) attach(ctx context.Context) error {
	platform, err := ResolvePlatform(s.params.Platform, s.params.Simulate)
	if err != nil {
		return err
	}

	s.setPhase(PhaseResolvingTarget)
	s.setPhase(PhaseAttaching)

	if !platform.DeviceClass() {
		// Browser-class attach needs no channel setup; the endpoint is
		// already inspectable.
		if err := s.deps.ProtocolBridge.Attach(ctx, ConnectionInfo{InspectURL: s.params.InspectURL}); err != nil {
			return err
		}
		s.setPhase(PhaseActivated)
		s.deps.Output.Write("Attached to the running application", output.Normal)
		return nil
	}

	localPort, err := s.ensureLocalPort()
	if err != nil {
		return err
	}

	resolver := attach.NewResolver(s.deps.Bridge, s.targetsFor(platform), s.log)
	channel, err := resolver.Resolve(ctx, s.params.ProjectRoot, s.targetFilter(), localPort)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.forward = &channel.Forward
	s.mu.Unlock()

	info := ConnectionInfo{
		LocalPort: channel.Forward.LocalPort,
		TargetID:  channel.Target.ID,
	}
	if err := s.deps.ProtocolBridge.Attach(ctx, info); err != nil {
		return err
	}

	s.setPhase(PhaseActivated)
	s.deps.Output.Write(
		fmt.Sprintf("Attached to '%s' on %s (local port %d)", channel.AppID, channel.Target.Label(), channel.Forward.LocalPort),
		output.Normal)
	return nil
}

// Terminate runs session cleanup. It is idempotent: cleanup executes at most
// once per session regardless of how many error paths trigger it, and always
// releases the protocol bridge resource and any spawned dev-server process.
func (s *Session) Terminate(ctx context.Context) error {
	if !s.cleanup.TryTake() {
		return s.cleanup.WaitResult()
	}

	s.setPhase(PhaseCleaningUp)
	var errs error

	s.mu.Lock()
	server := s.server
	forward := s.forward
	ownedPort := s.ownedPort
	s.mu.Unlock()

	if server != nil {
		if err := server.Stop(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("could not stop the dev server: %w", err))
		}
	}

	if forward != nil {
		// Best-effort: absence of the forwarding rule is not fatal.
		if err := s.deps.Bridge.RemoveForward(ctx, forward.TargetID, forward.LocalPort); err != nil {
			s.log.V(1).Info("could not remove port forwarding", "reason", err.Error())
		}
	}

	if ownedPort != 0 {
		networking.ReleasePort(ownedPort)
	}

	if err := s.deps.ProtocolBridge.Release(ctx); err != nil {
		errs = errors.Join(errs, apperr.FilterCancellation(err))
	}

	// Cancellation during teardown is an expected side effect of shutting
	// down; it must not be re-reported.
	errs = apperr.FilterCancellation(errs)

	s.setPhase(PhaseTerminated)
	s.cleanup.Complete(errs)
	return errs
}

func (s *Session) launchDevServer(ctx context.Context, platform PlatformKind, target *devices.Target) error {
	cfg := devserver.ServerConfig{
		Tool:             s.params.Tool,
		Args:             s.devServerArgs(platform, target),
		WorkingDirectory: s.params.ProjectRoot,
		Env:              s.params.Env,
		EnvFiles:         s.params.EnvFiles,
		Detector: devserver.Options{
			TargetKind:         detectorTargetKind(platform, target),
			ToolMajorVersion:   s.params.ToolMajorVersion,
			ServerReadyTimeout: s.params.ServerReadyTimeout,
			AppReadyTimeout:    s.params.AppReadyTimeout,
		},
	}

	server, err := devserver.Start(ctx, s.deps.Executor, cfg, s.log)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	result, err := server.WaitReady(ctx)
	if err != nil {
		return err
	}

	var inspectURL string
	if len(result.URLs) > 0 {
		inspectURL = result.URLs[0]
		s.deps.Output.Write(fmt.Sprintf("Dev server running at %s", inspectURL), output.Normal)
	}

	info := ConnectionInfo{InspectURL: inspectURL}
	if target != nil {
		info.TargetID = target.ID
	}
	if err := s.deps.ProtocolBridge.Attach(ctx, info); err != nil {
		return err
	}

	s.setPhase(PhaseActivated)
	return nil
}

func (s *Session) launchDirect(ctx context.Context, platform PlatformKind, target *devices.Target) error {
	args := s.params.RunArgs
	if len(args) == 0 {
		args = []string{"cordova", "run", platform.String()}
		if target != nil {
			args = append(args, "--target="+target.ID)
		}
	}

	cmd := exec.Command(s.params.Tool, args...)
	cmd.Dir = s.params.ProjectRoot

	s.log.Info("running build and deploy", "tool", s.params.Tool, "args", args)
	res, err := s.deps.Executor.Run(ctx, cmd)
	if err != nil {
		if process.IsSpawnError(err) {
			return apperr.Spawnf(
				"'%s' was not found; make sure it is installed (e.g. npm install -g %s) and available on PATH",
				s.params.Tool, s.params.Tool)
		}
		var ee *process.ExitError
		if errors.As(err, &ee) && res != nil {
			if line, found := devserver.FindFatalOutput(res.Combined.String(), s.params.ToolMajorVersion); found {
				return apperr.ToolReportedf("%s", line)
			}
		}
		return err
	}

	// A zero exit code is not sufficient evidence of success for some tools;
	// the combined output is inspected for an error-indicating line.
	if line, found := devserver.FindFatalOutput(res.Combined.String(), s.params.ToolMajorVersion); found {
		return apperr.ToolReportedf("%s", line)
	}

	info := ConnectionInfo{}
	if target != nil {
		info.TargetID = target.ID
	}
	if err := s.deps.ProtocolBridge.Attach(ctx, info); err != nil {
		return err
	}

	s.setPhase(PhaseActivated)
	s.deps.Output.Write("Application deployed", output.Normal)
	return nil
}

// resolveTarget picks the device/emulator for the run. The resolved identity
// is persisted back into the launch configuration only when the choice was
// ambiguous, so an explicit unambiguous choice is never overwritten and the
// user is not re-prompted on every subsequent run.
func (s *Session) resolveTarget(ctx context.Context, platform PlatformKind) (*devices.Target, error) {
	manager := s.targetsFor(platform)

	selection, err := manager.SelectAndPrepareTarget(ctx, devices.And(devices.OnlineOnly, s.targetFilter()))
	if err != nil {
		return nil, err
	}

	if selection.Ambiguous && s.params.ConfigName != "" && s.deps.Config != nil {
		if err := s.deps.Config.SetTarget(s.params.ConfigName, selection.Target.ID); err != nil {
			s.log.V(1).Info("could not persist resolved target", "reason", err.Error())
		}
	}

	s.deps.Output.Write(fmt.Sprintf("Using target %s", selection.Target.Label()), output.Normal)
	return &selection.Target, nil
}

// targetFilter builds the selector for target resolution: an explicit target
// wins, then the persisted configuration, then no filter at all.
func (s *Session) targetFilter() devices.Filter {
	selector := s.params.Target
	if selector == "" && s.deps.Config != nil && s.params.ConfigName != "" {
		if saved, found := s.deps.Config.Target(s.params.ConfigName); found {
			selector = saved
		}
	}
	if selector == "" {
		return nil
	}
	return devices.ByIDOrName(selector)
}

func (s *Session) targetsFor(platform PlatformKind) devices.Manager {
	if platform == PlatformIOS {
		return s.deps.IOSTargets
	}
	return s.deps.AndroidTargets
}

func (s *Session) ensureLocalPort() (int, error) {
	if s.params.LocalPort != 0 {
		return s.params.LocalPort, nil
	}
	port, err := networking.GetFreePort()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.ownedPort = port
	s.mu.Unlock()
	return port, nil
}

func (s *Session) devServerArgs(platform PlatformKind, target *devices.Target) []string {
	if len(s.params.RunArgs) > 0 {
		return s.params.RunArgs
	}
	if platform == PlatformBrowser {
		return []string{"serve", "--no-open"}
	}
	args := []string{"cordova", "run", platform.String(), "--livereload"}
	if target != nil {
		args = append(args, "--target="+target.ID)
	}
	return args
}

func detectorTargetKind(platform PlatformKind, target *devices.Target) devserver.TargetKind {
	switch {
	case platform == PlatformBrowser:
		return devserver.TargetServeOnly
	case platform == PlatformIOS && target != nil && target.Virtual:
		return devserver.TargetSimulator
	case platform == PlatformIOS:
		return devserver.TargetDevice
	default:
		return devserver.TargetGeneric
	}
}
