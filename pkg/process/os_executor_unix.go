//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// terminationGracePeriod bounds how long killCmd waits after SIGTERM before
// escalating to SIGKILL.
const terminationGracePeriod = 2 * time.Second

// setupCmd places the child in its own process group so that killing the
// handle also terminates any helper processes the tool spawned.
func setupCmd(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func killCmd(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	pgid := -cmd.Process.Pid

	// SIGTERM first so build and serve tools can shut down cleanly.
	// There is no established standard for graceful shutdown signals,
	// but SIGTERM is commonly honored.
	if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
	}

	// Wait out the grace period; the group disappears once the process has
	// exited and been reaped.
	deadline := time.Now().Add(terminationGracePeriod)
	for time.Now().Before(deadline) {
		if err := syscall.Kill(pgid, 0); errors.Is(err, syscall.ESRCH) {
			return nil
		}
		time.Sleep(25 * time.Millisecond)
	}

	err := syscall.Kill(pgid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
