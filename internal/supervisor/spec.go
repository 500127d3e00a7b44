package supervisor

import (
	"os/exec"
	"strings"

	"github.com/soliveri/stagehand/internal/logger"
)

// Spec describes the backend process to be supervised.
type Spec struct {
	Name    string            `json:"name"`
	Command string            `json:"command"`  // executable, or a full command line when Args is empty
	Args    []string          `json:"args"`     // explicit argument list; disables shell parsing
	WorkDir string            `json:"work_dir"` // optional working dir
	Env     []string          `json:"env"`      // optional extra env (KEY=VALUE)
	PIDFile string            `json:"pid_file"` // optional pidfile path
	Log     logger.FileConfig `json:"log"`      // optional file capture for backend output
}

// BuildCommand constructs an *exec.Cmd for the spec. With explicit Args the
// command is executed directly. Otherwise the command line is split on
// fields, falling back to /bin/sh -c when shell metacharacters are present.
func (s *Spec) BuildCommand() *exec.Cmd {
	if len(s.Args) > 0 {
		// #nosec G204
		return exec.Command(s.Command, s.Args...)
	}
	cmdStr := strings.TrimSpace(s.Command)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(name, args...)
}
