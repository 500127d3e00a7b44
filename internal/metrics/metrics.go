package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	probeAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stagehand",
			Subsystem: "probe",
			Name:      "attempts_total",
			Help:      "Number of health probe attempts issued.",
		},
	)
	probeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stagehand",
			Subsystem: "probe",
			Name:      "failures_total",
			Help:      "Number of health probe attempts that did not observe HTTP 200.",
		},
	)
	backendStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stagehand",
			Subsystem: "backend",
			Name:      "starts_total",
			Help:      "Number of successful backend spawns.",
		},
	)
	backendStops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stagehand",
			Subsystem: "backend",
			Name:      "stops_total",
			Help:      "Number of backend exits observed (graceful or not).",
		},
	)
	backendUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stagehand",
			Subsystem: "backend",
			Name:      "up",
			Help:      "1 while the supervised backend is running.",
		},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stagehand",
			Subsystem: "backend",
			Name:      "state_transitions_total",
			Help:      "Number of supervisor state transitions.",
		}, []string{"from", "to"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		probeAttempts, probeFailures, backendStarts, backendStops, backendUp, stateTransitions,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

func IncProbe(ok bool) {
	probeAttempts.Inc()
	if !ok {
		probeFailures.Inc()
	}
}

func IncStart() {
	backendStarts.Inc()
	backendUp.Set(1)
}

func IncStop() {
	backendStops.Inc()
	backendUp.Set(0)
}

func IncStateTransition(from, to string) {
	stateTransitions.WithLabelValues(from, to).Inc()
}

// Serve exposes /metrics on addr until the server is closed by the caller.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
