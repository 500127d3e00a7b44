package main

import "time"

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// RunFlags holds overrides for the run command. Only flags the user
// actually set are merged over the config file.
type RunFlags struct {
	Name          string
	Command       string
	WorkDir       string
	PIDFile       string
	Host          string
	Port          int
	HealthPath    string
	Interval      time.Duration
	Timeout       time.Duration
	ReadyTimeout  time.Duration
	NoOpen        bool
	OpenURL       string
	StoreDSN      string
	ServerListen  string
	MetricsListen string
	LogLevel      string
}

// StatusFlags holds flags for the status command.
type StatusFlags struct {
	Host       string
	Port       int
	HealthPath string
	PIDFile    string
}
