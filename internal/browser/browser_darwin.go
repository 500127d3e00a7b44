//go:build darwin

package browser

import (
	"os/exec"
	"syscall"
)

func openCommand(url string) *exec.Cmd {
	// #nosec G204
	return exec.Command("open", url)
}

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
