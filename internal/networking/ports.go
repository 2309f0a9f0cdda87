// Package networking provides local port allocation for the session's
// protocol-bridge listener.
package networking

import (
	"fmt"
	"net"
	"sync"

	"golang.org/x/net/nettest"
)

const maxAllocationAttempts = 10

var (
	recentLock  sync.Mutex
	recentPorts = map[int]struct{}{}
)

// GetFreePort returns a free local TCP port. Even if called twice in a row it
// should not return the same port, so that two sessions starting close
// together do not race for the same listener.
func GetFreePort() (int, error) {
	recentLock.Lock()
	defer recentLock.Unlock()

	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		l, err := nettest.NewLocalListener("tcp")
		if err != nil {
			return 0, fmt.Errorf("could not allocate a local port: %w", err)
		}
		port := l.Addr().(*net.TCPAddr).Port
		_ = l.Close()

		if _, used := recentPorts[port]; used {
			continue
		}
		recentPorts[port] = struct{}{}
		return port, nil
	}

	return 0, fmt.Errorf("could not allocate a local port that was not recently used")
}

// ReleasePort forgets a previously allocated port so it may be handed out again.
func ReleasePort(port int) {
	recentLock.Lock()
	defer recentLock.Unlock()
	delete(recentPorts, port)
}
