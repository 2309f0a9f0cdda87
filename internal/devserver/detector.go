package devserver

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/BMO568/vscode-cordova/internal/apperr"
	"github.com/BMO568/vscode-cordova/pkg/concurrency"
	"github.com/BMO568/vscode-cordova/pkg/process"
)

// State is the readiness of the dev server / build process.
// Transitions are monotonic except StateFailed, which is absorbing and
// reachable from any non-terminal state. StateAppReady is reachable only
// after StateServerReady.
type State int

const (
	StateNotStarted State = iota
	StateServerReady
	StateAppReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateServerReady:
		return "ServerReady"
	case StateAppReady:
		return "AppReady"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// TargetKind selects which app-ready pattern applies to the run.
type TargetKind int

const (
	// TargetServeOnly has no separate deploy phase; app readiness is granted
	// together with server readiness.
	TargetServeOnly TargetKind = iota
	TargetSimulator
	TargetDevice
	TargetGeneric
)

const (
	// DefaultServerReadyTimeout bounds the wait for the dev server to report
	// its listening URL.
	DefaultServerReadyTimeout = 60 * time.Second
	// DefaultAppReadyTimeout bounds the wait for build + deploy + emulator
	// boot after the server is ready, which can take much longer.
	DefaultAppReadyTimeout = 10 * time.Minute
)

// Options configure a Detector for one run.
type Options struct {
	TargetKind         TargetKind
	ToolMajorVersion   int
	ServerReadyTimeout time.Duration
	AppReadyTimeout    time.Duration
}

// Result carries the URLs the tool advertised when the server became ready:
// the primary address first, followed by any external alternates.
type Result struct {
	URLs []string
}

type outcome struct {
	res Result
	err error
}

// Detector drives the two-phase readiness state machine by pattern-matching
// the streamed output of a started dev server process. It implements
// process.StreamHandler so it can be wired directly into Executor.Start.
//
// The detector owns session-scoped output accumulation; callers only ever
// observe the State enumeration and the final Result.
type Detector struct {
	opts Options
	log  logr.Logger

	mu    sync.Mutex
	state State
	buf   strings.Builder
	urls  []string

	done *concurrency.OneTimeJob[outcome]

	serverTimer *time.Timer
	appTimer    *time.Timer
}

func NewDetector(opts Options, log logr.Logger) *Detector {
	if opts.ServerReadyTimeout == 0 {
		opts.ServerReadyTimeout = DefaultServerReadyTimeout
	}
	if opts.AppReadyTimeout == 0 {
		opts.AppReadyTimeout = DefaultAppReadyTimeout
	}

	d := &Detector{
		opts: opts,
		log:  log.WithName("readiness"),
		done: concurrency.NewOneTimeJob[outcome](),
	}
	d.serverTimer = time.AfterFunc(opts.ServerReadyTimeout, func() {
		d.onTimeout("server ready", opts.ServerReadyTimeout)
	})
	return d
}

// State returns the current readiness state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Wait blocks until the detector reaches a terminal state or ctx is cancelled.
// Cancellation fails the detector so that late output cannot resurrect it.
func (d *Detector) Wait(ctx context.Context) (Result, error) {
	select {
	case <-d.done.Done():
	case <-ctx.Done():
		d.fail(ctx.Err())
		return Result{}, ctx.Err()
	}

	o := d.done.WaitResult()
	return o.res, o.err
}

func (d *Detector) OnStdout(chunk []byte) { d.onChunk(chunk) }
func (d *Detector) OnStderr(chunk []byte) { d.onChunk(chunk) }

// OnExit handles the process ending. Exiting before app readiness is a
// failure; the rejection carries the most recent fatal line found in the
// captured output, if any.
func (d *Detector) OnExit(exitCode int32, err error) {
	d.mu.Lock()
	if d.state == StateAppReady || d.state == StateFailed {
		d.mu.Unlock()
		return
	}
	text := stripANSI(d.buf.String())
	d.mu.Unlock()

	if addressProblemPattern.MatchString(text) {
		d.fail(apperr.ToolReportedf(
			"the dev server could not acquire a usable network address; check the machine's network interface configuration"))
		return
	}

	if line, found := findFatalLine(text, d.opts.ToolMajorVersion); found {
		d.fail(apperr.ToolReportedf("the dev server exited unexpectedly: %s", line))
		return
	}

	if err != nil {
		d.fail(apperr.ToolReportedf("the dev server exited unexpectedly: %v", err))
		return
	}
	d.fail(apperr.ToolReportedf("the dev server exited unexpectedly with code %d", exitCode))
}

func (d *Detector) onChunk(chunk []byte) {
	d.mu.Lock()

	if d.state == StateAppReady || d.state == StateFailed {
		d.mu.Unlock()
		return
	}

	d.buf.Write(chunk)
	text := stripANSI(d.buf.String())

	// Patterns are evaluated in fixed priority order: the ambiguous-address
	// fatal case first, then ordinary fatal lines, then readiness milestones.
	if addrs := captureInterfaceAddresses(text); addrs != nil {
		d.mu.Unlock()
		d.fail(apperr.Resolutionf(
			"multiple network interfaces detected; specify the address the dev server should use:\n%s",
			strings.Join(addrs, "\n")))
		return
	}

	if line, found := findFatalLine(text, d.opts.ToolMajorVersion); found {
		d.mu.Unlock()
		d.fail(apperr.ToolReportedf("%s", line))
		return
	}

	if d.state == StateNotStarted && matchesServerReady(text) {
		d.state = StateServerReady
		d.urls = captureURLs(text)
		// The server-ready timeout is disarmed exactly once, here.
		d.serverTimer.Stop()
		d.log.V(1).Info("dev server ready", "urls", d.urls)

		if d.opts.TargetKind == TargetServeOnly {
			// No deploy phase: app readiness is synonymous with server readiness.
			d.state = StateAppReady
			res := Result{URLs: d.urls}
			d.mu.Unlock()
			d.complete(outcome{res: res})
			return
		}

		d.appTimer = time.AfterFunc(d.opts.AppReadyTimeout, func() {
			d.onTimeout("app ready", d.opts.AppReadyTimeout)
		})
		d.mu.Unlock()
		return
	}

	if d.state == StateServerReady && d.appReadyPattern().MatchString(text) {
		d.state = StateAppReady
		// URL lines may trail the server-ready banner by a few chunks;
		// re-capture from the accumulated output before reporting.
		d.urls = captureURLs(text)
		res := Result{URLs: d.urls}
		d.mu.Unlock()
		d.log.V(1).Info("app ready")
		d.complete(outcome{res: res})
		return
	}

	d.mu.Unlock()
}

func matchesServerReady(text string) bool {
	for _, p := range serverReadyPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func (d *Detector) appReadyPattern() *regexp.Regexp {
	switch d.opts.TargetKind {
	case TargetSimulator:
		return simulatorReadyPattern
	case TargetDevice:
		return deviceReadyPattern
	default:
		return genericReadyPattern
	}
}

func (d *Detector) onTimeout(phase string, deadline time.Duration) {
	d.fail(apperr.Timeoutf("%s was not detected within %v", phase, deadline))
}

// fail moves the detector to StateFailed (absorbing) and resolves the
// pending wait, unless a terminal state was already reached.
func (d *Detector) fail(err error) {
	d.mu.Lock()
	if d.state == StateAppReady || d.state == StateFailed {
		d.mu.Unlock()
		return
	}
	d.state = StateFailed
	d.mu.Unlock()

	d.complete(outcome{err: err})
}

// complete resolves the wait exactly once and disarms both timeouts so they
// cannot fire after the awaited condition was met.
func (d *Detector) complete(o outcome) {
	if !d.done.TryTake() {
		// Someone else is completing; nothing to do.
		return
	}

	d.mu.Lock()
	d.serverTimer.Stop()
	if d.appTimer != nil {
		d.appTimer.Stop()
	}
	d.mu.Unlock()

	d.done.Complete(o)
}

var _ process.StreamHandler = (*Detector)(nil)
