package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/soliveri/stagehand"
	"github.com/soliveri/stagehand/internal/config"
	"github.com/soliveri/stagehand/internal/detector"
	"github.com/soliveri/stagehand/internal/logger"
	"github.com/soliveri/stagehand/internal/probe"
)

// buildRoot creates the root command tree. exitCode receives the run
// command's outcome so main can propagate it to the OS.
func buildRoot(exitCode *int) *cobra.Command {
	globalFlags := &GlobalFlags{}
	runFlags := &RunFlags{}
	statusFlags := &StatusFlags{}

	root := &cobra.Command{
		Use:           "stagehand",
		Short:         "Start a backend, wait for it to become healthy, open the browser at it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "", "path to stagehand.toml")

	runCmd := newRunCmd(globalFlags, runFlags, exitCode)
	root.AddCommand(runCmd)
	root.AddCommand(newStatusCmd(globalFlags, statusFlags))
	root.AddCommand(newVersionCmd())

	// Bare "stagehand" behaves like "stagehand run".
	root.RunE = runCmd.RunE
	root.Flags().AddFlagSet(runCmd.Flags())

	return root
}

func newRunCmd(gf *GlobalFlags, rf *RunFlags, exitCode *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Launch the backend and hand off to the browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			mergeRunFlags(&cfg, rf, cmd)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger.Setup(logger.ParseLevel(cfg.Log.Level), cfg.Log.Color)

			l := stagehand.New(cfg)
			if cfg.Store.DSN != "" {
				st, err := stagehand.NewStore(cfg.Store.DSN)
				if err != nil {
					slog.Warn("session store disabled", "error", err)
				} else {
					defer func() { _ = st.Close() }()
					if err := st.EnsureSchema(context.Background()); err != nil {
						slog.Warn("session store disabled", "error", err)
					} else {
						l.SetStore(st)
					}
				}
			}
			*exitCode = l.Run(cmd.Context())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&rf.Name, "name", "", "backend name")
	f.StringVar(&rf.Command, "command", "", "backend command line")
	f.StringVar(&rf.WorkDir, "workdir", "", "backend working directory")
	f.StringVar(&rf.PIDFile, "pidfile", "", "backend pidfile path")
	f.StringVar(&rf.Host, "host", "", "backend host")
	f.IntVar(&rf.Port, "port", 0, "backend port")
	f.StringVar(&rf.HealthPath, "health-path", "", "health endpoint path")
	f.DurationVar(&rf.Interval, "interval", 0, "readiness poll interval")
	f.DurationVar(&rf.Timeout, "timeout", 0, "per-probe timeout")
	f.DurationVar(&rf.ReadyTimeout, "ready-timeout", 0, "overall readiness ceiling (0 waits forever)")
	f.BoolVar(&rf.NoOpen, "no-open", false, "do not open the browser")
	f.StringVar(&rf.OpenURL, "open-url", "", "URL to open instead of the backend base URL")
	f.StringVar(&rf.StoreDSN, "store-dsn", "", "launch-session store DSN (sqlite path or postgres URL)")
	f.StringVar(&rf.ServerListen, "server-listen", "", "control API listen address")
	f.StringVar(&rf.MetricsListen, "metrics-listen", "", "metrics listen address")
	f.StringVar(&rf.LogLevel, "log-level", "", "launcher log level (debug|info|warn|error)")
	return cmd
}

func newStatusCmd(gf *GlobalFlags, sf *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether a backend instance is running and healthy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			mergeStatusFlags(&cfg, sf, cmd)

			healthy := probe.New(cfg.Probe.Timeout).Check(cmd.Context(), cfg.HealthURL())
			fmt.Printf("endpoint: %s\nhealthy: %v\n", cfg.HealthURL(), healthy)

			if cfg.Backend.PIDFile != "" {
				det := detector.PIDFileDetector{PIDFile: cfg.Backend.PIDFile}
				alive, _ := det.Alive()
				fmt.Printf("process: alive=%v pid=%d (%s)\n", alive, det.ReadPID(), det.Describe())
			}
			if !healthy {
				os.Exit(1)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&sf.Host, "host", "", "backend host")
	f.IntVar(&sf.Port, "port", 0, "backend port")
	f.StringVar(&sf.HealthPath, "health-path", "", "health endpoint path")
	f.StringVar(&sf.PIDFile, "pidfile", "", "backend pidfile path")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func loadConfig(gf *GlobalFlags) (config.Config, error) {
	if gf.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(gf.ConfigPath)
}

// mergeRunFlags overlays flags the user actually set onto the config.
func mergeRunFlags(cfg *config.Config, rf *RunFlags, cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("name") {
		cfg.Backend.Name = rf.Name
	}
	if f.Changed("command") {
		cfg.Backend.Command = rf.Command
	}
	if f.Changed("workdir") {
		cfg.Backend.WorkDir = rf.WorkDir
	}
	if f.Changed("pidfile") {
		cfg.Backend.PIDFile = rf.PIDFile
	}
	if f.Changed("host") {
		cfg.Probe.Host = rf.Host
	}
	if f.Changed("port") {
		cfg.Probe.Port = rf.Port
	}
	if f.Changed("health-path") {
		cfg.Probe.Path = rf.HealthPath
	}
	if f.Changed("interval") {
		cfg.Probe.Interval = rf.Interval
	}
	if f.Changed("timeout") {
		cfg.Probe.Timeout = rf.Timeout
	}
	if f.Changed("ready-timeout") {
		cfg.Probe.ReadyTimeout = rf.ReadyTimeout
	}
	if f.Changed("no-open") {
		cfg.Open.Disable = rf.NoOpen
	}
	if f.Changed("open-url") {
		cfg.Open.URL = rf.OpenURL
	}
	if f.Changed("store-dsn") {
		cfg.Store.DSN = rf.StoreDSN
	}
	if f.Changed("server-listen") {
		cfg.Server.Listen = rf.ServerListen
	}
	if f.Changed("metrics-listen") {
		cfg.Metrics.Listen = rf.MetricsListen
	}
	if f.Changed("log-level") {
		cfg.Log.Level = rf.LogLevel
	}
}

func mergeStatusFlags(cfg *config.Config, sf *StatusFlags, cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Probe.Host = sf.Host
	}
	if f.Changed("port") {
		cfg.Probe.Port = sf.Port
	}
	if f.Changed("health-path") {
		cfg.Probe.Path = sf.HealthPath
	}
	if f.Changed("pidfile") {
		cfg.Backend.PIDFile = sf.PIDFile
	}
}
