//go:build windows

package process

import (
	"errors"
	"os"
	"os/exec"
)

func setupCmd(_ *exec.Cmd) {
	// Process groups are not used on Windows.
}

func killCmd(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	// Windows has no signals, and there is no universal way to
	// "ask a process to stop", so we just kill the process.
	err := cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
