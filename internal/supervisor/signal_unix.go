//go:build !windows

package supervisor

import (
	"errors"
	"log/slog"
	"syscall"
)

// terminateGroup sends SIGTERM to the backend's whole process group.
// ESRCH means the group already exited; that race is swallowed.
func terminateGroup(pid int) {
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		slog.Debug("terminate signal", "pid", pid, "error", err)
	}
}

// killGroup sends SIGKILL to the backend's process group.
func killGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
