// Package launcher sequences the launch protocol: pre-check, spawn, wait
// for readiness, open the browser, and drive a single idempotent shutdown
// path on termination signals.
package launcher

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/soliveri/stagehand/internal/browser"
	"github.com/soliveri/stagehand/internal/config"
	"github.com/soliveri/stagehand/internal/detector"
	"github.com/soliveri/stagehand/internal/metrics"
	"github.com/soliveri/stagehand/internal/probe"
	"github.com/soliveri/stagehand/internal/server"
	"github.com/soliveri/stagehand/internal/store"
	"github.com/soliveri/stagehand/internal/supervisor"
)

var errReadyTimeout = errors.New("backend did not become healthy before ready_timeout")

// openBrowser is a seam for tests.
var openBrowser = browser.Open

// Launcher owns one launch attempt end to end.
type Launcher struct {
	cfg          config.Config
	sup          *supervisor.Supervisor
	checker      *probe.Checker
	st           store.Store
	sessionKey   string
	shutdownOnce sync.Once
}

func New(cfg config.Config) *Launcher {
	return &Launcher{
		cfg:     cfg,
		sup:     supervisor.New(cfg.Spec()),
		checker: probe.New(cfg.Probe.Timeout),
	}
}

// SetStore attaches an optional launch-session store. All writes to it
// are best-effort.
func (l *Launcher) SetStore(st store.Store) { l.st = st }

// Supervisor exposes the supervisor for embedding (control API, tests).
func (l *Launcher) Supervisor() *supervisor.Supervisor { return l.sup }

// Run executes the launch protocol and returns the process exit code:
// 0 on successful handoff or signal-driven shutdown, 1 when the backend
// could not be started or never became healthy.
func (l *Launcher) Run(ctx context.Context) int {
	// Signal handlers come first so a signal arriving mid-startup still
	// routes into the orderly shutdown path.
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthURL := l.cfg.HealthURL()

	// Already running? Hand off without spawning; this keeps concurrent
	// launcher invocations idempotent against the same target.
	if l.checker.Check(sigCtx, healthURL) {
		slog.Info("backend already running", "url", l.cfg.BaseURL())
		l.recordAttach()
		l.open()
		return 0
	}

	// A live pidfile with an unhealthy probe means another launcher is
	// mid-startup; wait for its backend instead of spawning a second one.
	if l.cfg.Backend.PIDFile != "" {
		det := detector.PIDFileDetector{PIDFile: l.cfg.Backend.PIDFile}
		if alive, _ := det.Alive(); alive {
			slog.Info("backend starting elsewhere, waiting", "detected_by", det.Describe())
			if l.waitReady(sigCtx, healthURL, nil) {
				l.recordAttach()
				l.open()
				return 0
			}
			return l.exitFromSignal(sigCtx)
		}
	}

	if err := l.sup.Start(); err != nil {
		slog.Error("failed to start backend", "error", err)
		l.recordFailedSpawn(err)
		return 1
	}
	l.recordStart()

	ctrl, msrv := l.startListeners()
	defer stopListeners(ctrl, msrv)

	if !l.waitReady(sigCtx, healthURL, l.sup.Done()) {
		if sigCtx.Err() != nil {
			l.shutdown()
			l.recordStop("stopped", nil)
			return 0
		}
		// A control-API shutdown stops the backend without a signal.
		if l.sup.State() == supervisor.StateStopped {
			l.recordStop("stopped", nil)
			return 0
		}
		if l.sup.State() == supervisor.StateFailed {
			st := l.sup.Snapshot()
			slog.Error("backend exited before becoming healthy", "code", st.ExitCode, "error", st.ExitErr)
			l.recordStop("failed", st.ExitErr)
			return 1
		}
		// Readiness ceiling elapsed while the backend stayed alive.
		slog.Error("readiness timeout", "timeout", l.cfg.Probe.ReadyTimeout)
		l.shutdown()
		l.recordStop("failed", errReadyTimeout)
		return 1
	}

	slog.Info("backend ready", "url", l.cfg.BaseURL())
	l.open()

	// Stay resident so backend logs keep streaming and the process group
	// is never orphaned.
	select {
	case <-sigCtx.Done():
		l.shutdown()
		l.recordStop("stopped", nil)
		return 0
	case err := <-l.sup.Done():
		// A requested stop (control API) ends in StateStopped; the
		// child's "signal: terminated" error is not a failure then.
		if l.sup.State() == supervisor.StateStopped || err == nil {
			l.recordStop("stopped", nil)
			return 0
		}
		l.recordStop("failed", err)
		return 1
	}
}

// waitReady polls the health endpoint, bounding the wait by ready_timeout
// when one is configured.
func (l *Launcher) waitReady(ctx context.Context, url string, exited <-chan error) bool {
	if t := l.cfg.Probe.ReadyTimeout; t > 0 {
		tctx, cancel := context.WithTimeout(ctx, t)
		defer cancel()
		ctx = tctx
	}
	return l.checker.WaitUntilReady(ctx, url, l.cfg.Probe.Interval, exited)
}

// shutdown is the single idempotent shutdown path; signal deliveries, the
// control API and normal return all converge here.
func (l *Launcher) shutdown() {
	l.shutdownOnce.Do(func() {
		l.sup.Terminate(supervisor.DefaultStopWait)
	})
}

func (l *Launcher) open() {
	if l.cfg.Open.Disable {
		return
	}
	openBrowser(l.cfg.OpenURL())
}

func (l *Launcher) exitFromSignal(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	return 1
}

// startListeners brings up the optional control API and metrics endpoint.
func (l *Launcher) startListeners() (ctrl, msrv *http.Server) {
	if l.cfg.Server.Listen != "" {
		r := server.NewRouter(l.sup, l.checker, l.cfg.HealthURL(), l.shutdown)
		ctrl = server.NewServer(l.cfg.Server.Listen, r)
		slog.Info("control api listening", "addr", l.cfg.Server.Listen)
	}
	if l.cfg.Metrics.Listen != "" {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			slog.Warn("metrics registration", "error", err)
		} else {
			msrv = metrics.Serve(l.cfg.Metrics.Listen)
			slog.Info("metrics listening", "addr", l.cfg.Metrics.Listen)
		}
	}
	return ctrl, msrv
}

func stopListeners(srvs ...*http.Server) {
	for _, s := range srvs {
		if s != nil {
			_ = s.Close()
		}
	}
}

// --- session store plumbing, all best-effort ---

func (l *Launcher) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 3*time.Second)
}

func (l *Launcher) recordAttach() {
	if l.st == nil {
		return
	}
	ctx, cancel := l.storeCtx()
	defer cancel()
	s := store.Session{Name: l.cfg.Backend.Name, StartedAt: time.Now()}
	s.Outcome = "attached"
	if err := l.st.RecordStart(ctx, s); err != nil {
		slog.Warn("record session", "error", err)
	}
}

func (l *Launcher) recordStart() {
	if l.st == nil {
		return
	}
	ctx, cancel := l.storeCtx()
	defer cancel()
	snap := l.sup.Snapshot()
	s := store.Session{Name: snap.Name, PID: snap.PID, StartedAt: snap.StartedAt, Outcome: "running"}
	l.sessionKey = s.Key()
	if err := l.st.RecordStart(ctx, s); err != nil {
		slog.Warn("record session", "error", err)
	}
}

func (l *Launcher) recordFailedSpawn(spawnErr error) {
	if l.st == nil {
		return
	}
	ctx, cancel := l.storeCtx()
	defer cancel()
	now := time.Now()
	s := store.Session{Name: l.cfg.Backend.Name, StartedAt: now, Outcome: "failed"}
	if err := l.st.RecordStart(ctx, s); err != nil {
		slog.Warn("record session", "error", err)
		return
	}
	if err := l.st.RecordStop(ctx, s.Key(), now, "failed", spawnErr); err != nil {
		slog.Warn("record session", "error", err)
	}
}

func (l *Launcher) recordStop(outcome string, exitErr error) {
	if l.st == nil || l.sessionKey == "" {
		return
	}
	ctx, cancel := l.storeCtx()
	defer cancel()
	snap := l.sup.Snapshot()
	stoppedAt := snap.StoppedAt
	if stoppedAt.IsZero() {
		stoppedAt = time.Now()
	}
	if err := l.st.RecordStop(ctx, l.sessionKey, stoppedAt, outcome, exitErr); err != nil {
		slog.Warn("record session", "error", err)
	}
}
