package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/soliveri/stagehand/internal/logger"
	"github.com/soliveri/stagehand/internal/probe"
	"github.com/soliveri/stagehand/internal/supervisor"
)

// BackendConfig describes the supervised backend process.
type BackendConfig struct {
	Name    string            `toml:"name" mapstructure:"name"`
	Command string            `toml:"command" mapstructure:"command"`
	Args    []string          `toml:"args" mapstructure:"args"`
	WorkDir string            `toml:"workdir" mapstructure:"workdir"`
	Env     []string          `toml:"env" mapstructure:"env"`
	PIDFile string            `toml:"pidfile" mapstructure:"pidfile"`
	Log     logger.FileConfig `toml:"log" mapstructure:"log"`
}

// ProbeConfig describes the health endpoint and polling cadence.
type ProbeConfig struct {
	Host         string        `toml:"host" mapstructure:"host"`
	Port         int           `toml:"port" mapstructure:"port"`
	Path         string        `toml:"path" mapstructure:"path"`
	Interval     time.Duration `toml:"interval" mapstructure:"interval"`
	Timeout      time.Duration `toml:"timeout" mapstructure:"timeout"`
	ReadyTimeout time.Duration `toml:"ready_timeout" mapstructure:"ready_timeout"` // 0 = wait forever
}

// OpenConfig controls the browser handoff.
type OpenConfig struct {
	Disable bool   `toml:"disable" mapstructure:"disable"`
	URL     string `toml:"url" mapstructure:"url"` // overrides the derived base URL
}

// LogConfig controls the launcher's own logging.
type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
	Color bool   `toml:"color" mapstructure:"color"`
}

// StoreConfig selects the optional launch-session store.
type StoreConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// ServerConfig enables the local control API while supervising.
type ServerConfig struct {
	Listen string `toml:"listen" mapstructure:"listen"`
}

// MetricsConfig enables the Prometheus listener while supervising.
type MetricsConfig struct {
	Listen string `toml:"listen" mapstructure:"listen"`
}

// Config is the top-level TOML structure.
type Config struct {
	Backend BackendConfig `toml:"backend" mapstructure:"backend"`
	Probe   ProbeConfig   `toml:"probe" mapstructure:"probe"`
	Open    OpenConfig    `toml:"open" mapstructure:"open"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`
	Store   StoreConfig   `toml:"store" mapstructure:"store"`
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	Metrics MetricsConfig `toml:"metrics" mapstructure:"metrics"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend: BackendConfig{Name: "backend"},
		Probe: ProbeConfig{
			Host:     "127.0.0.1",
			Port:     8787,
			Path:     "/health",
			Interval: probe.DefaultInterval,
			Timeout:  probe.DefaultTimeout,
		},
		Log: LogConfig{Level: "info", Color: true},
	}
}

// Load reads a TOML config file and merges it over Default.
func Load(path string) (Config, error) {
	cfg := Default()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the parts the launcher cannot default.
func (c *Config) Validate() error {
	if c.Backend.Command == "" {
		return fmt.Errorf("backend.command is required")
	}
	if c.Probe.Port <= 0 || c.Probe.Port > 65535 {
		return fmt.Errorf("probe.port %d out of range", c.Probe.Port)
	}
	if c.Probe.Interval < 0 || c.Probe.Timeout < 0 || c.Probe.ReadyTimeout < 0 {
		return fmt.Errorf("probe durations must not be negative")
	}
	if c.Probe.Path == "" || c.Probe.Path[0] != '/' {
		return fmt.Errorf("probe.path %q must start with '/'", c.Probe.Path)
	}
	return nil
}

// BaseURL is the backend's root URL.
func (c *Config) BaseURL() string {
	return "http://" + net.JoinHostPort(c.Probe.Host, strconv.Itoa(c.Probe.Port))
}

// HealthURL is the endpoint polled for readiness.
func (c *Config) HealthURL() string { return c.BaseURL() + c.Probe.Path }

// OpenURL is the URL handed to the browser.
func (c *Config) OpenURL() string {
	if c.Open.URL != "" {
		return c.Open.URL
	}
	return c.BaseURL()
}

// Spec converts the backend section into a supervisor spec.
func (c *Config) Spec() supervisor.Spec {
	return supervisor.Spec{
		Name:    c.Backend.Name,
		Command: c.Backend.Command,
		Args:    c.Backend.Args,
		WorkDir: c.Backend.WorkDir,
		Env:     c.Backend.Env,
		PIDFile: c.Backend.PIDFile,
		Log:     c.Backend.Log,
	}
}
