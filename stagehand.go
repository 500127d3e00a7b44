// Package stagehand launches a backend service, waits for it to become
// network-ready, opens the browser at it, and tears everything down
// cleanly on termination signals.
package stagehand

import (
	"context"

	"github.com/soliveri/stagehand/internal/config"
	"github.com/soliveri/stagehand/internal/launcher"
	"github.com/soliveri/stagehand/internal/store"
	"github.com/soliveri/stagehand/internal/store/factory"
	"github.com/soliveri/stagehand/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = config.Config

type Spec = supervisor.Spec

type Status = supervisor.Status

type State = supervisor.State

const (
	StateIdle     = supervisor.StateIdle
	StateStarting = supervisor.StateStarting
	StateRunning  = supervisor.StateRunning
	StateStopping = supervisor.StateStopping
	StateStopped  = supervisor.StateStopped
	StateFailed   = supervisor.StateFailed
)

type Store = store.Store

// Launcher is a thin facade over internal/launcher.Launcher providing a
// stable public API for embedding.
type Launcher struct{ inner *launcher.Launcher }

func New(cfg Config) *Launcher { return &Launcher{inner: launcher.New(cfg)} }

// Run executes the launch protocol; it blocks until handoff (attached
// instance) or supervision ends, and returns the process exit code.
func (l *Launcher) Run(ctx context.Context) int { return l.inner.Run(ctx) }

// SetStore attaches a launch-session store.
func (l *Launcher) SetStore(st Store) { l.inner.SetStore(st) }

// Status returns a snapshot of the supervised backend.
func (l *Launcher) Status() Status { return l.inner.Supervisor().Snapshot() }

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config { return config.Default() }

// LoadConfig reads a TOML config file merged over the defaults.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// NewStore opens a launch-session store for the DSN (sqlite path or
// postgres URL).
func NewStore(dsn string) (Store, error) { return factory.NewFromDSN(dsn) }
