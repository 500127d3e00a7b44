//go:build !windows && !darwin

package browser

import (
	"os/exec"
	"syscall"
)

func openCommand(url string) *exec.Cmd {
	// #nosec G204
	return exec.Command("xdg-open", url)
}

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
