package supervisor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/soliveri/stagehand/internal/metrics"
)

// DefaultStopWait bounds how long Terminate waits for the backend to exit
// after SIGTERM before escalating to SIGKILL.
const DefaultStopWait = 5 * time.Second

// ErrAlreadyStarted is returned by Start when the supervisor already owns
// a backend instance. The supervisor manages at most one child.
var ErrAlreadyStarted = errors.New("backend already started")

// Supervisor owns the lifecycle of at most one backend process. It is the
// single writer for both the child handle and the shutdown flag; no other
// component signals the process group.
type Supervisor struct {
	mu        sync.Mutex
	spec      Spec
	state     State
	pid       int
	startedAt time.Time
	stoppedAt time.Time
	exitErr   error
	outW      io.WriteCloser
	errW      io.WriteCloser
	done      chan error // receives the exit outcome once, then closed
}

func New(spec Spec) *Supervisor {
	return &Supervisor{spec: spec, state: StateIdle, done: make(chan error, 1)}
}

// setStateLocked transitions the state machine; callers hold mu.
// Terminal states are sticky.
func (s *Supervisor) setStateLocked(to State) {
	from := s.state
	if from == to || from.terminal() {
		return
	}
	s.state = to
	metrics.IncStateTransition(from.String(), to.String())
	slog.Debug("supervisor state", "name", s.spec.Name, "from", from.String(), "to", to.String())
}

// Start spawns the backend. It transitions Idle -> Starting -> Running and
// fails fast to Failed when the spawn itself errors (executable not found,
// permission denied). A second Start while a child is active is rejected
// with ErrAlreadyStarted.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrAlreadyStarted, st)
	}
	s.setStateLocked(StateStarting)
	spec := s.spec
	s.mu.Unlock()

	cmd := spec.BuildCommand()
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	configureSysProcAttr(cmd)

	var outW, errW io.WriteCloser
	if spec.Log.Enabled() {
		if spec.Log.Dir != "" {
			_ = os.MkdirAll(spec.Log.Dir, 0o750)
		}
		outW, errW, _ = spec.Log.Writers(spec.Name)
		if outW != nil {
			cmd.Stdout = outW
		}
		if errW != nil {
			cmd.Stderr = errW
		}
	} else {
		// Inherited stdio so backend logs surface directly in ours.
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		closeWriters(outW, errW)
		s.mu.Lock()
		s.exitErr = err
		s.setStateLocked(StateFailed)
		s.mu.Unlock()
		s.done <- err
		close(s.done)
		return fmt.Errorf("spawn %s: %w", spec.Name, err)
	}

	pid := cmd.Process.Pid
	s.mu.Lock()
	s.pid = pid
	s.startedAt = time.Now()
	s.outW, s.errW = outW, errW
	// Terminate may have raced us during Starting; honor it below.
	stopping := s.state == StateStopping
	if !stopping {
		s.setStateLocked(StateRunning)
	}
	s.mu.Unlock()

	s.writePIDFile()
	metrics.IncStart()
	slog.Info("backend started", "name", spec.Name, "pid", pid)
	go s.monitor(cmd)
	if stopping {
		terminateGroup(pid)
	}
	return nil
}

// monitor reaps the child exactly once and publishes the exit outcome.
func (s *Supervisor) monitor(cmd *exec.Cmd) {
	err := cmd.Wait()

	s.mu.Lock()
	s.stoppedAt = time.Now()
	s.exitErr = err
	stopRequested := s.state == StateStopping
	if stopRequested {
		s.setStateLocked(StateStopped)
	} else {
		s.setStateLocked(StateFailed)
	}
	outW, errW := s.outW, s.errW
	s.outW, s.errW = nil, nil
	name := s.spec.Name
	s.mu.Unlock()

	closeWriters(outW, errW)
	s.removePIDFile()
	metrics.IncStop()
	if stopRequested {
		slog.Info("backend stopped", "name", name)
	} else {
		slog.Warn("backend exited unexpectedly", "name", name, "code", ExitCode(err), "error", err)
	}
	s.done <- err
	close(s.done)
}

// Done yields the backend's exit outcome. It fires once the child has been
// reaped (or the spawn failed) and keeps yielding after close.
func (s *Supervisor) Done() <-chan error { return s.done }

// Terminate requests shutdown of the whole backend process group. It is
// idempotent: in Idle, Stopping, Stopped or Failed it is a no-op, so any
// number of signal deliveries produce at most one SIGTERM. The race where
// the group already exited is swallowed. Escalates to SIGKILL when the
// child has not been reaped within wait.
func (s *Supervisor) Terminate(wait time.Duration) {
	s.mu.Lock()
	switch s.state {
	case StateIdle, StateStopping, StateStopped, StateFailed:
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateStopping)
	pid := s.pid
	name := s.spec.Name
	s.mu.Unlock()

	if pid <= 0 {
		return
	}
	slog.Info("stopping backend", "name", name, "pid", pid)
	terminateGroup(pid)

	if wait <= 0 {
		wait = DefaultStopWait
	}
	select {
	case <-s.done:
	case <-time.After(wait):
		killGroup(pid)
		select {
		case <-s.done:
		case <-time.After(200 * time.Millisecond):
			// best-effort
		}
	}
}

// Snapshot returns a copy of the current status.
func (s *Supervisor) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Name:      s.spec.Name,
		State:     s.state.String(),
		PID:       s.pid,
		Running:   s.state == StateRunning || s.state == StateStarting,
		StartedAt: s.startedAt,
		StoppedAt: s.stoppedAt,
		ExitCode:  ExitCode(s.exitErr),
		ExitErr:   s.exitErr,
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func closeWriters(ws ...io.WriteCloser) {
	for _, w := range ws {
		if w != nil {
			_ = w.Close()
		}
	}
}
