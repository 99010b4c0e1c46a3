package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

// Metrics collects Prometheus counters for reconcile activity. It
// implements reconcile.MetricsSink. A disabled instance is a no-op.
type Metrics struct {
	enabled bool

	actionsTotal   *prometheus.CounterVec
	readinessPolls *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector with its own registry.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{}
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		enabled:  true,
		registry: registry,
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "actions_total",
				Help:      "Terminal reconcile action results",
			},
			[]string{"action", "status"},
		),
		readinessPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "readiness_polls_total",
				Help:      "Readiness checks issued against platform resources",
			},
			[]string{"resource_type", "readiness"},
		),
	}

	registry.MustRegister(m.actionsTotal, m.readinessPolls)
	return m
}

// ActionCompleted implements reconcile.MetricsSink.
func (m *Metrics) ActionCompleted(actionType reconcile.ActionType, status reconcile.ActionStatus) {
	if !m.enabled {
		return
	}
	m.actionsTotal.WithLabelValues(string(actionType), string(status)).Inc()
}

// ReadinessPolled implements reconcile.MetricsSink.
func (m *Metrics) ReadinessPolled(ref reconcile.ResourceRef, readiness reconcile.Readiness) {
	if !m.enabled {
		return
	}
	m.readinessPolls.WithLabelValues(string(ref.Type), string(readiness)).Inc()
}

// Handler returns the scrape handler for the collector's registry.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until the context is cancelled. Intended
// for long apply runs that CI dashboards want to scrape mid-flight.
func (m *Metrics) Serve(ctx context.Context, addr string, log zerolog.Logger) {
	if !m.enabled || addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Str("addr", addr).Msg("metrics listener failed")
		}
	}()
}
