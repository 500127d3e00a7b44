//go:build windows

package supervisor

import "os"

// terminateGroup kills the backend process on Windows. There is no group
// signal; descendants are covered by the new process group at spawn.
func terminateGroup(pid int) {
	p, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	_ = p.Kill()
}

func killGroup(pid int) { terminateGroup(pid) }
