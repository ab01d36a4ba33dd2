// Package metrics exposes the service counters. Registration is
// global; the exporter is optional and enabled by config.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wayportal_sessions_created_total",
		Help: "Sessions created.",
	})
	SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wayportal_sessions_closed_total",
		Help: "Sessions closed.",
	})
	EventsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wayportal_events_admitted_total",
		Help: "Input events admitted by the rate limiter.",
	})
	EventsRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wayportal_events_rate_limited_total",
		Help: "Input events rejected by the rate limiter.",
	})
	EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wayportal_events_dispatched_total",
		Help: "Input events delivered to the backend, by kind.",
	}, []string{"kind"})
	DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wayportal_dispatch_failures_total",
		Help: "Backend injection failures.",
	})
	LifecycleEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wayportal_lifecycle_events_dropped_total",
		Help: "Lifecycle events dropped on slow subscribers.",
	})
)

// Serve runs the /metrics endpoint until the listener fails. Callers
// run it in a goroutine; an empty address makes net/http listen on
// ":http".
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
