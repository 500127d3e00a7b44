package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnabled(t *testing.T) {
	if (FileConfig{}).Enabled() {
		t.Fatalf("zero config must be disabled")
	}
	if !(FileConfig{Dir: "/tmp"}).Enabled() {
		t.Fatalf("dir should enable capture")
	}
	if !(FileConfig{StderrPath: "/tmp/e.log"}).Enabled() {
		t.Fatalf("stderr path should enable capture")
	}
}

func TestWritersDerivePathsFromDir(t *testing.T) {
	dir := t.TempDir()
	cfg := FileConfig{Dir: dir}
	outW, errW, err := cfg.Writers("api")
	if err != nil {
		t.Fatalf("Writers: %v", err)
	}
	if outW == nil || errW == nil {
		t.Fatalf("expected both writers, got %v %v", outW, errW)
	}
	if _, err := outW.Write([]byte("out line\n")); err != nil {
		t.Fatalf("write stdout: %v", err)
	}
	if _, err := errW.Write([]byte("err line\n")); err != nil {
		t.Fatalf("write stderr: %v", err)
	}
	_ = outW.Close()
	_ = errW.Close()

	b, err := os.ReadFile(filepath.Join(dir, "api.stdout.log"))
	if err != nil || !strings.Contains(string(b), "out line") {
		t.Fatalf("stdout capture missing: %v %q", err, b)
	}
	b, err = os.ReadFile(filepath.Join(dir, "api.stderr.log"))
	if err != nil || !strings.Contains(string(b), "err line") {
		t.Fatalf("stderr capture missing: %v %q", err, b)
	}
}

func TestWritersExplicitPathsWin(t *testing.T) {
	dir := t.TempDir()
	cfg := FileConfig{Dir: dir, StdoutPath: filepath.Join(dir, "custom.log")}
	outW, _, err := cfg.Writers("api")
	if err != nil {
		t.Fatalf("Writers: %v", err)
	}
	if _, err := outW.Write([]byte("x\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = outW.Close()
	if _, err := os.Stat(filepath.Join(dir, "custom.log")); err != nil {
		t.Fatalf("explicit path not used: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bananas": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
