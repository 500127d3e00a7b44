// Package browser opens a URL with the platform's default handler.
package browser

import (
	"log/slog"
)

// Open launches the platform browser at url, detached from the launcher's
// process group, and never waits for the result. Failure to open a client
// view is not fatal for the supervised backend; it is logged and dropped.
func Open(url string) {
	cmd := openCommand(url)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		slog.Warn("open browser", "url", url, "error", err)
		return
	}
	// Reap in the background so the handler never lingers as a zombie.
	go func() { _ = cmd.Wait() }()
	slog.Info("opened browser", "url", url)
}
