package adb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDeviceList(t *testing.T) {
	t.Parallel()

	out := strings.Join([]string{
		"List of devices attached",
		"* daemon started successfully",
		"emulator-5554\tdevice product:sdk_gphone64 model:sdk_gphone64_x86_64 device:emu64x",
		"R58M123ABC\tunauthorized",
		"0a1b2c3d\tdevice usb:1-2 model:Pixel_7",
		"",
	}, "\n")

	entries := parseDeviceList(out)
	require.Len(t, entries, 3)

	require.Equal(t, "emulator-5554", entries[0].ID)
	require.True(t, entries[0].Online())
	require.True(t, entries[0].Virtual())
	require.Equal(t, "sdk_gphone64_x86_64", entries[0].Model)

	require.Equal(t, "R58M123ABC", entries[1].ID)
	require.Equal(t, "unauthorized", entries[1].State)
	require.False(t, entries[1].Online())
	require.False(t, entries[1].Virtual())

	require.Equal(t, "0a1b2c3d", entries[2].ID)
	require.True(t, entries[2].Online())
	require.Equal(t, "Pixel_7", entries[2].Model)
}

func TestParseDeviceListEmpty(t *testing.T) {
	t.Parallel()

	require.Empty(t, parseDeviceList("List of devices attached\n\n"))
	require.Empty(t, parseDeviceList(""))
}

func TestParsePidof(t *testing.T) {
	t.Parallel()

	pid, ok := ParsePidof("12345\n")
	require.True(t, ok)
	require.Equal(t, 12345, pid)

	// Multiple pids: the first one is the main app process.
	pid, ok = ParsePidof("100 200 300\n")
	require.True(t, ok)
	require.Equal(t, 100, pid)

	_, ok = ParsePidof("")
	require.False(t, ok)

	_, ok = ParsePidof("pidof: not found\n")
	require.False(t, ok)
}

func TestFindPidInProcessList(t *testing.T) {
	t.Parallel()

	out := strings.Join([]string{
		"USER      PID   PPID  VSZ    RSS   WCHAN  ADDR S NAME",
		"root      1     0     10948  2400  0      0    S init",
		"u0_a123   4242  312   123456 65432 0      0    S com.example.app",
		"",
	}, "\n")

	pid, ok := FindPidInProcessList(out, "com.example.app")
	require.True(t, ok)
	require.Equal(t, 4242, pid)

	_, ok = FindPidInProcessList(out, "com.other.app")
	require.False(t, ok)
}

func TestFindPidInProcessListUnnamedLastColumn(t *testing.T) {
	t.Parallel()

	// Older ps variants leave the process name column unlabeled; the name is
	// taken from the last header column position.
	out := strings.Join([]string{
		"USER PID PPID VSIZE RSS WCHAN PC STATE",
		"u0_a7 999 1 2048 512 ffffffff 00000000 com.example.app",
		"",
	}, "\n")

	pid, ok := FindPidInProcessList(out, "com.example.app")
	require.True(t, ok)
	require.Equal(t, 999, pid)
}

func TestFindPidInProcessListNoPidColumn(t *testing.T) {
	t.Parallel()

	_, ok := FindPidInProcessList("USER NAME\nroot init\n", "init")
	require.False(t, ok)
}

func TestFindDebugSocket(t *testing.T) {
	t.Parallel()

	out := strings.Join([]string{
		"Num       RefCount Protocol Flags    Type St Inode Path",
		"00000000: 00000002 00000000 00010000 0001 01 20001 @webview_devtools_remote_1234",
		"00000000: 00000002 00000000 00010000 0001 01 20002 /dev/socket/logdw",
		"",
	}, "\n")

	name, ok := FindDebugSocket(out, 1234, "com.example.app")
	require.True(t, ok)
	require.Equal(t, "webview_devtools_remote_1234", name)
}

func TestFindDebugSocketAppSpecificName(t *testing.T) {
	t.Parallel()

	out := "00000000: 00000002 00000000 00010000 0001 01 30001 @com.example.app_devtools_remote\n"

	name, ok := FindDebugSocket(out, 0, "com.example.app")
	require.True(t, ok)
	require.Equal(t, "com.example.app_devtools_remote", name)
}

func TestFindDebugSocketSkipsNonListeningRows(t *testing.T) {
	t.Parallel()

	out := strings.Join([]string{
		// Connected state (03): an established client, not the listener.
		"00000000: 00000002 00000000 00010000 0001 03 40001 @webview_devtools_remote_1234",
		// Wrong flags value.
		"00000000: 00000002 00000000 00000000 0001 01 40002 @webview_devtools_remote_1234",
		// Filesystem-path socket, not abstract.
		"00000000: 00000002 00000000 00010000 0001 01 40003 webview_devtools_remote_1234",
		// Wrong pid.
		"00000000: 00000002 00000000 00010000 0001 01 40004 @webview_devtools_remote_9999",
		"",
	}, "\n")

	_, ok := FindDebugSocket(out, 1234, "com.example.app")
	require.False(t, ok)
}

func TestFindDebugSocketIgnoresPathlessRows(t *testing.T) {
	t.Parallel()

	// Rows without a Path column (most sockets) must be skipped, not crash.
	out := "00000000: 00000002 00000000 00010000 0001 01 50001\n"

	_, ok := FindDebugSocket(out, 1, "a")
	require.False(t, ok)
}
