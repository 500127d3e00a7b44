package supervisor

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/soliveri/stagehand/internal/logger"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require sh/sleep on Unix-like systems")
	}
}

func waitDone(t *testing.T, s *Supervisor, d time.Duration) error {
	t.Helper()
	select {
	case err := <-s.Done():
		return err
	case <-time.After(d):
		t.Fatalf("backend did not exit in time")
		return nil
	}
}

func TestStartRunsAndObservesExit(t *testing.T) {
	requireUnix(t)
	s := New(Spec{Name: "b1", Command: "sleep 0.2"})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	st := s.Snapshot()
	if !st.Running || st.PID <= 0 || st.State != "running" {
		t.Fatalf("unexpected status after start: %+v", st)
	}

	err := waitDone(t, s, 2*time.Second)
	if err != nil {
		t.Fatalf("clean exit should carry no error, got %v", err)
	}
	// Exit without a stop request is unexpected, even with code 0.
	if got := s.State(); got != StateFailed {
		t.Fatalf("state after unexpected exit: %v", got)
	}
	if st := s.Snapshot(); st.ExitCode != 0 || st.Running {
		t.Fatalf("unexpected snapshot after exit: %+v", st)
	}
}

func TestStartSpawnFailure(t *testing.T) {
	requireUnix(t)
	s := New(Spec{Name: "b2", Command: "/definitely/missing/bin"})
	err := s.Start()
	if err == nil {
		t.Fatalf("expected spawn failure")
	}
	if got := s.State(); got != StateFailed {
		t.Fatalf("state after spawn failure: %v", got)
	}
	// Done must also fire so a poller waiting on it resolves.
	if derr := waitDone(t, s, time.Second); derr == nil {
		t.Fatalf("expected error on Done after spawn failure")
	}
}

func TestTerminalStatesAreSticky(t *testing.T) {
	requireUnix(t)
	s := New(Spec{Name: "b2s", Command: "/definitely/missing/bin"})
	if err := s.Start(); err == nil {
		t.Fatalf("expected spawn failure")
	}
	// No transition may leave Failed; Terminate must not move the machine.
	s.Terminate(time.Second)
	if got := s.State(); got != StateFailed {
		t.Fatalf("state left terminal Failed: %v", got)
	}
	s.mu.Lock()
	s.setStateLocked(StateRunning)
	got := s.state
	s.mu.Unlock()
	if got != StateFailed {
		t.Fatalf("setStateLocked escaped terminal state: %v", got)
	}
}

func TestSecondStartRejected(t *testing.T) {
	requireUnix(t)
	s := New(Spec{Name: "b3", Command: "sleep 1"})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Terminate(time.Second)
	if err := s.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestTerminateIdempotent(t *testing.T) {
	requireUnix(t)
	s := New(Spec{Name: "b4", Command: "sleep 5"})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pid := s.Snapshot().PID

	s.Terminate(2 * time.Second)
	if got := s.State(); got != StateStopped {
		t.Fatalf("state after terminate: %v", got)
	}
	// Child must be gone (reaped by the monitor).
	if err := syscall.Kill(pid, 0); err == nil {
		t.Fatalf("process %d still alive after terminate", pid)
	}

	// Further calls are no-ops and must not block or change state.
	for i := 0; i < 3; i++ {
		done := make(chan struct{})
		go func() { s.Terminate(2 * time.Second); close(done) }()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("repeat terminate blocked")
		}
	}
	if got := s.State(); got != StateStopped {
		t.Fatalf("state changed by repeat terminate: %v", got)
	}
}

func TestTerminateBeforeStartIsNoop(t *testing.T) {
	s := New(Spec{Name: "b5", Command: "sleep 1"})
	s.Terminate(time.Second)
	if got := s.State(); got != StateIdle {
		t.Fatalf("terminate on idle supervisor changed state: %v", got)
	}
}

func TestTerminateKillsProcessGroup(t *testing.T) {
	requireUnix(t)
	// The shell spawns a descendant; the group signal must reach both.
	s := New(Spec{Name: "b6", Command: "sh -c 'sleep 5 & sleep 5'"})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pid := s.Snapshot().PID
	time.Sleep(50 * time.Millisecond)

	s.Terminate(2 * time.Second)
	// The whole group should be gone shortly after.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if err := syscall.Kill(-pid, 0); err != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("process group %d still alive after terminate", pid)
}

func TestExitCodeSurfaced(t *testing.T) {
	requireUnix(t)
	s := New(Spec{Name: "b7", Command: "sh -c 'exit 3'"})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err := waitDone(t, s, 2*time.Second)
	if err == nil {
		t.Fatalf("expected exit error")
	}
	if got := ExitCode(err); got != 3 {
		t.Fatalf("exit code = %d, want 3", got)
	}
	if got := s.State(); got != StateFailed {
		t.Fatalf("state after premature exit: %v", got)
	}
}

func TestPIDFileLifecycle(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	pidfile := filepath.Join(dir, "backend.pid")
	s := New(Spec{Name: "b8", Command: "sleep 5", PIDFile: pidfile})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	b, err := os.ReadFile(pidfile)
	if err != nil {
		t.Fatalf("pidfile not written: %v", err)
	}
	first := strings.SplitN(string(b), "\n", 2)[0]
	if pid, err := strconv.Atoi(strings.TrimSpace(first)); err != nil || pid != s.Snapshot().PID {
		t.Fatalf("pidfile content %q does not match pid %d", first, s.Snapshot().PID)
	}

	s.Terminate(2 * time.Second)
	if _, err := os.Stat(pidfile); !os.IsNotExist(err) {
		t.Fatalf("pidfile not removed after exit: %v", err)
	}
}

func TestLogCaptureWriters(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	s := New(Spec{
		Name:    "b9",
		Command: "sh -c 'echo out; echo err 1>&2'",
		Log:     logger.FileConfig{Dir: dir},
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_ = waitDone(t, s, 2*time.Second)
	time.Sleep(50 * time.Millisecond) // let rotors flush on close

	out, err := os.ReadFile(filepath.Join(dir, "b9.stdout.log"))
	if err != nil || !strings.Contains(string(out), "out") {
		t.Fatalf("stdout not captured: %v %q", err, out)
	}
	errb, err := os.ReadFile(filepath.Join(dir, "b9.stderr.log"))
	if err != nil || !strings.Contains(string(errb), "err") {
		t.Fatalf("stderr not captured: %v %q", err, errb)
	}
}
