package supervisor

import (
	"errors"
	"os/exec"
	"time"
)

// Status is a point-in-time snapshot of the supervised backend.
type Status struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	PID       int       `json:"pid"`
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
	ExitCode  int       `json:"exit_code"`
	ExitErr   error     `json:"-"`
}

// ExitCode reduces a cmd.Wait error to a numeric exit code: 0 for a clean
// exit, the child's code when it exited, -1 for signals and wait errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
