package adb

import (
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BMO568/vscode-cordova/internal/apperr"
	"github.com/BMO568/vscode-cordova/pkg/process"
	"github.com/BMO568/vscode-cordova/pkg/testutil"
)

func matchArgs(want ...string) func([]string) bool {
	return func(args []string) bool {
		joined := strings.Join(args, " ")
		for _, w := range want {
			if !strings.Contains(joined, w) {
				return false
			}
		}
		return true
	}
}

func respond(resp testutil.CommandResponse) func([]string) testutil.CommandResponse {
	return func([]string) testutil.CommandResponse { return resp }
}

func TestCheckStatus(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 5*time.Second)
	defer cancel()

	t.Run("running", func(t *testing.T) {
		exe := &testutil.FakeExecutor{Rules: []testutil.CommandRule{{
			Match:   matchArgs("adb devices"),
			Respond: respond(testutil.CommandResponse{Stdout: "List of devices attached\n"}),
		}}}
		status := NewBridge(exe, testutil.NewLogForTesting(t.Name())).CheckStatus(ctx)
		require.True(t, status.Installed)
		require.True(t, status.Running)
	})

	t.Run("not installed", func(t *testing.T) {
		exe := &testutil.FakeExecutor{Rules: []testutil.CommandRule{{
			Match:   matchArgs("adb devices"),
			Respond: respond(testutil.CommandResponse{Err: exec.ErrNotFound}),
		}}}
		status := NewBridge(exe, testutil.NewLogForTesting(t.Name())).CheckStatus(ctx)
		require.False(t, status.Installed)
		require.False(t, status.Running)
		require.NotEmpty(t, status.Error)
	})

	t.Run("installed but failing", func(t *testing.T) {
		exe := &testutil.FakeExecutor{Rules: []testutil.CommandRule{{
			Match:   matchArgs("adb devices"),
			Respond: respond(testutil.CommandResponse{Stderr: "cannot connect to daemon", ExitCode: 1}),
		}}}
		status := NewBridge(exe, testutil.NewLogForTesting(t.Name())).CheckStatus(ctx)
		require.True(t, status.Installed)
		require.False(t, status.Running)
		require.Contains(t, status.Error, "cannot connect to daemon")
	})
}

func TestDevices(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 5*time.Second)
	defer cancel()

	exe := &testutil.FakeExecutor{Rules: []testutil.CommandRule{{
		Match: matchArgs("adb devices -l"),
		Respond: respond(testutil.CommandResponse{Stdout: strings.Join([]string{
			"List of devices attached",
			"emulator-5554\tdevice model:sdk_gphone64_x86_64",
			"0a1b2c3d\tdevice model:Pixel_7",
			"",
		}, "\n")}),
	}}}

	entries, err := NewBridge(exe, testutil.NewLogForTesting(t.Name())).Devices(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "emulator-5554", entries[0].ID)
}

func TestDevicesNotInstalled(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 5*time.Second)
	defer cancel()

	exe := &testutil.FakeExecutor{Rules: []testutil.CommandRule{{
		Match:   matchArgs("adb"),
		Respond: respond(testutil.CommandResponse{Err: exec.ErrNotFound}),
	}}}

	_, err := NewBridge(exe, testutil.NewLogForTesting(t.Name())).Devices(ctx)
	require.ErrorIs(t, err, apperr.ErrSpawn)
	require.Contains(t, err.Error(), "platform tools")
}

func TestForwardArguments(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 5*time.Second)
	defer cancel()

	exe := &testutil.FakeExecutor{Rules: []testutil.CommandRule{{
		Match:   func([]string) bool { return true },
		Respond: respond(testutil.CommandResponse{}),
	}}}

	b := NewBridge(exe, testutil.NewLogForTesting(t.Name()))
	require.NoError(t, b.Forward(ctx, "emulator-5554", 9222, "webview_devtools_remote_1234"))

	calls := exe.Calls()
	require.Len(t, calls, 1)
	require.Contains(t, calls[0], "-s emulator-5554 forward tcp:9222 localabstract:webview_devtools_remote_1234")
}

func TestForwardFailureIncludesStderr(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 5*time.Second)
	defer cancel()

	exe := &testutil.FakeExecutor{Rules: []testutil.CommandRule{{
		Match:   matchArgs("forward"),
		Respond: respond(testutil.CommandResponse{Stderr: "error: device offline", ExitCode: 1}),
	}}}

	b := NewBridge(exe, testutil.NewLogForTesting(t.Name()))
	err := b.Forward(ctx, "0a1b2c3d", 9222, "sock")
	require.Error(t, err)
	require.Contains(t, err.Error(), "device offline")

	var ee *process.ExitError
	require.ErrorAs(t, err, &ee)
}

func TestRemoveForwardToleratesMissingRule(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 5*time.Second)
	defer cancel()

	exe := &testutil.FakeExecutor{Rules: []testutil.CommandRule{{
		Match:   matchArgs("forward --remove"),
		Respond: respond(testutil.CommandResponse{Stderr: "error: cannot remove listener 'tcp:9222'", ExitCode: 1}),
	}}}

	b := NewBridge(exe, testutil.NewLogForTesting(t.Name()))
	require.NoError(t, b.RemoveForward(ctx, "emulator-5554", 9222))
}

func TestRemoveForwardSurfacesRealFailures(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 5*time.Second)
	defer cancel()

	exe := &testutil.FakeExecutor{Rules: []testutil.CommandRule{{
		Match:   matchArgs("forward --remove"),
		Respond: respond(testutil.CommandResponse{Stderr: "error: device offline", ExitCode: 1}),
	}}}

	// Only the missing-rule complaint is tolerated; other failures propagate.
	b := NewBridge(exe, testutil.NewLogForTesting(t.Name()))
	err := b.RemoveForward(ctx, "emulator-5554", 9222)
	require.Error(t, err)
	require.Contains(t, err.Error(), "device offline")
}

func TestShellPassesDeviceAndArgs(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 5*time.Second)
	defer cancel()

	exe := &testutil.FakeExecutor{Rules: []testutil.CommandRule{{
		Match:   matchArgs("-s emulator-5554 shell pidof -s com.example.app"),
		Respond: respond(testutil.CommandResponse{Stdout: "4242\n"}),
	}}}

	b := NewBridge(exe, testutil.NewLogForTesting(t.Name()))
	out, err := b.Shell(ctx, "emulator-5554", "pidof", "-s", "com.example.app")
	require.NoError(t, err)
	require.Equal(t, "4242\n", out)
}
