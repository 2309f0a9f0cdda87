//go:build !windows

package process_test

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BMO568/vscode-cordova/pkg/process"
	"github.com/BMO568/vscode-cordova/pkg/testutil"
)

func newExecutor(t *testing.T) process.Executor {
	t.Helper()
	return process.NewOSExecutor(testutil.NewLogForTesting(t.Name()))
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	cmd := exec.Command("sh", "-c", "echo out; echo err >&2; exit 3")
	res, err := newExecutor(t).Run(ctx, cmd)

	var ee *process.ExitError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, int32(3), ee.ExitCode)

	require.NotNil(t, res)
	require.Equal(t, int32(3), res.ExitCode)
	require.Equal(t, "out\n", res.Stdout.String())
	require.Equal(t, "err\n", res.Stderr.String())
	require.Contains(t, res.Combined.String(), "out")
	require.Contains(t, res.Combined.String(), "err")
}

func TestRunZeroExit(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	res, err := newExecutor(t).Run(ctx, exec.Command("sh", "-c", "echo hello"))
	require.NoError(t, err)
	require.Equal(t, int32(0), res.ExitCode)
	require.Equal(t, "hello\n", res.Stdout.String())
}

func TestRunSpawnError(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	_, err := newExecutor(t).Run(ctx, exec.Command("definitely-not-a-real-binary-4242"))
	require.Error(t, err)
	require.True(t, process.IsSpawnError(err), "expected a spawn error, got %v", err)
}

func TestRunContextCancellationKillsProcess(t *testing.T) {
	t.Parallel()

	testCtx, testCancel := testutil.GetTestContext(t, 30*time.Second)
	defer testCancel()

	ctx, cancel := context.WithTimeout(testCtx, 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newExecutor(t).Run(ctx, exec.Command("sleep", "60"))
	require.Error(t, err)
	require.Less(t, time.Since(start), 10*time.Second,
		"cancellation must terminate the process promptly")
}

func TestRunCancellationReturnsSettledBuffers(t *testing.T) {
	t.Parallel()

	testCtx, testCancel := testutil.GetTestContext(t, 30*time.Second)
	defer testCancel()

	ctx, cancel := context.WithTimeout(testCtx, 300*time.Millisecond)
	defer cancel()

	cmd := exec.Command("sh", "-c", "echo before-sleep; sleep 60")
	res, err := newExecutor(t).Run(ctx, cmd)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Run must not hand the buffers back while the stream pumps are still
	// writing; output emitted before the cancellation is fully delivered.
	require.NotNil(t, res)
	require.Equal(t, "before-sleep\n", res.Stdout.String())
}

func TestKillLetsProcessExitGracefully(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	// The script converts SIGTERM into a distinctive exit code; a hard kill
	// would surface as a signal death instead.
	script := "trap 'exit 7' TERM; echo ready; while :; do sleep 0.05; done"

	ready := make(chan struct{})
	var readyOnce sync.Once
	handler := process.StreamHandlerFuncs{
		Stdout: func(chunk []byte) {
			if strings.Contains(string(chunk), "ready") {
				readyOnce.Do(func() { close(ready) })
			}
		},
	}

	h, err := newExecutor(t).Start(ctx, exec.Command("sh", "-c", script), handler)
	require.NoError(t, err)

	<-ready
	require.NoError(t, h.Kill())

	info, err := h.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(7), info.ExitCode)
}

func TestStartStreamsChunksThenExit(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	var mu sync.Mutex
	var stdout strings.Builder
	exited := make(chan process.ExitInfo, 1)

	handler := process.StreamHandlerFuncs{
		Stdout: func(chunk []byte) {
			mu.Lock()
			stdout.Write(chunk)
			mu.Unlock()
		},
		Exit: func(exitCode int32, err error) {
			exited <- process.ExitInfo{ExitCode: exitCode, Err: err}
		},
	}

	h, err := newExecutor(t).Start(ctx, exec.Command("sh", "-c", "printf 'line1\\nline2\\n'"), handler)
	require.NoError(t, err)
	require.Greater(t, h.PID(), int32(0))

	info, err := h.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(0), info.ExitCode)

	// OnExit is delivered after all output chunks.
	exit := <-exited
	require.Equal(t, int32(0), exit.ExitCode)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "line1\nline2\n", stdout.String())
}

func TestStartSpawnErrorReportedSynchronously(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	_, err := newExecutor(t).Start(ctx, exec.Command("definitely-not-a-real-binary-4242"), process.StreamHandlerFuncs{})
	require.Error(t, err)
	require.True(t, process.IsSpawnError(err))
}

func TestKillIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	h, err := newExecutor(t).Start(ctx, exec.Command("sleep", "60"), process.StreamHandlerFuncs{})
	require.NoError(t, err)

	require.NoError(t, h.Kill())
	require.NoError(t, h.Kill())
	require.NoError(t, h.Kill())

	info, err := h.Wait(ctx)
	require.NoError(t, err)
	require.NotEqual(t, int32(0), info.ExitCode)

	// Killing an already-finished process is a no-op.
	require.NoError(t, h.Kill())
}

func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	testCtx, testCancel := testutil.GetTestContext(t, 30*time.Second)
	defer testCancel()

	h, err := newExecutor(t).Start(testCtx, exec.Command("sleep", "60"), process.StreamHandlerFuncs{})
	require.NoError(t, err)
	defer func() { _ = h.Kill() }()

	waitCtx, cancel := context.WithTimeout(testCtx, 100*time.Millisecond)
	defer cancel()

	_, err = h.Wait(waitCtx)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestIsSpawnError(t *testing.T) {
	t.Parallel()

	require.True(t, process.IsSpawnError(exec.ErrNotFound))
	require.False(t, process.IsSpawnError(errors.New("some other failure")))
	require.False(t, process.IsSpawnError(nil))
}
