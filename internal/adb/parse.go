package adb

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceEntry is one row of `adb devices -l` output.
type DeviceEntry struct {
	ID    string
	State string // "device", "offline", "unauthorized", ...
	Model string
}

// Online reports whether the bridge considers the device ready for commands.
func (d DeviceEntry) Online() bool {
	return d.State == "device"
}

// Virtual reports whether the entry is an emulator rather than physical hardware.
func (d DeviceEntry) Virtual() bool {
	return strings.HasPrefix(d.ID, "emulator-")
}

// parseDeviceList parses `adb devices -l` output. The first line is a banner
// ("List of devices attached"); each following non-empty line is
// "<serial>\t<state> key:value ...".
func parseDeviceList(out string) []DeviceEntry {
	var entries []DeviceEntry

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		entry := DeviceEntry{ID: fields[0], State: fields[1]}
		for _, kv := range fields[2:] {
			if model, found := strings.CutPrefix(kv, "model:"); found {
				entry.Model = model
			}
		}
		entries = append(entries, entry)
	}

	return entries
}

// ParsePidof extracts a single numeric process id from `pidof` output.
// Returns false when the output contains no usable pid (the app is not
// running, or the device's pidof does not understand the query).
func ParsePidof(out string) (int, bool) {
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) == 0 {
		return 0, false
	}
	// When multiple pids are reported, the first is the main app process.
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return pid, true
}

// FindPidInProcessList locates the pid of appID in full `ps` output by
// deriving column indexes from the header row, because the column layout is
// not guaranteed stable across tool and OS versions.
//
// This is best-effort: it assumes the header names its columns "PID" and
// "NAME", which holds for the Android OS versions we have samples for but
// is not contractual.
func FindPidInProcessList(out string, appID string) (int, bool) {
	lines := strings.Split(out, "\n")
	if len(lines) == 0 {
		return 0, false
	}

	header := strings.Fields(lines[0])
	pidCol := -1
	nameCol := -1
	for i, col := range header {
		switch strings.ToUpper(col) {
		case "PID":
			pidCol = i
		case "NAME":
			nameCol = i
		}
	}
	if pidCol == -1 {
		return 0, false
	}
	if nameCol == -1 {
		// Older ps variants put the process name in the last column without
		// naming it in the header.
		nameCol = len(header) - 1
	}

	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) <= pidCol || len(fields) <= nameCol {
			continue
		}
		if fields[nameCol] != appID {
			continue
		}
		pid, err := strconv.Atoi(fields[pidCol])
		if err != nil {
			continue
		}
		return pid, true
	}

	return 0, false
}

const (
	// Socket table markers for "accepting, unconnected" listener sockets.
	socketFlagsListening   = "00010000"
	socketStateUnconnected = "01"
)

// FindDebugSocket scans /proc/net/unix content for the abstract socket the
// application exposes for remote debugging. It matches either the generic
// webview socket for the resolved pid, or the app-specific socket name.
//
// A /proc/net/unix row is:
//
//	Num RefCount Protocol Flags Type St Inode Path
//
// Only rows with a listening flags value and an unconnected state are
// considered; the leading '@' marks the abstract namespace and is stripped
// from the returned name.
func FindDebugSocket(out string, pid int, appID string) (string, bool) {
	wantPidSocket := fmt.Sprintf("webview_devtools_remote_%d", pid)
	wantAppSocket := appID + "_devtools_remote"

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 8 {
			continue
		}
		if fields[3] != socketFlagsListening || fields[5] != socketStateUnconnected {
			continue
		}

		name, isAbstract := strings.CutPrefix(fields[7], "@")
		if !isAbstract {
			continue
		}
		if name == wantPidSocket || name == wantAppSocket {
			return name, true
		}
	}

	return "", false
}
