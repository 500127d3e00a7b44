//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr creates a new process group on Windows so console
// control events do not propagate from the launcher to the backend.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
