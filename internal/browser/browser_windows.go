//go:build windows

package browser

import (
	"os/exec"
	"syscall"
)

func openCommand(url string) *exec.Cmd {
	// #nosec G204
	return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
}

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
