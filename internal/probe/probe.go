package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/soliveri/stagehand/internal/metrics"
)

const (
	// DefaultTimeout bounds a single health probe attempt.
	DefaultTimeout = 2 * time.Second
	// DefaultInterval is the cadence between readiness probes.
	DefaultInterval = 500 * time.Millisecond
)

// Checker issues bounded HTTP liveness checks against a health endpoint.
// Every failure mode (refused connection, DNS error, timeout, non-200
// status) collapses to false; it never returns an error.
type Checker struct {
	client  *http.Client
	timeout time.Duration
}

// New creates a Checker with the given per-attempt timeout (DefaultTimeout
// when non-positive).
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Check reports whether url answered HTTP 200 within the timeout.
// The context deadline doubles the client timeout so a transport that
// neither completes nor times out still resolves within the bound.
func (c *Checker) Check(ctx context.Context, url string) bool {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.IncProbe(false)
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.IncProbe(false)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	ok := resp.StatusCode == http.StatusOK
	metrics.IncProbe(ok)
	return ok
}
