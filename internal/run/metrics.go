package run

import (
	"context"
	"errors"
	"net/http"
	"time"

	"catcher/internal/hook"
	"catcher/internal/ui"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// metrics lives on its own registry so tests can build several servers.
type metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	hooks     *prometheus.CounterVec
	stats     *prometheus.GaugeVec
	loading   prometheus.Gauge
	recording prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catcher",
			Name:      "backend_requests_total",
			Help:      "Backend requests by action and outcome.",
		}, []string{"action", "outcome"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "catcher",
			Name:      "backend_request_seconds",
			Help:      "Backend request latency by action.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		hooks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catcher",
			Name:      "hooks_total",
			Help:      "Command hooks by outcome (queued, skipped, dropped, sent, failed).",
		}, []string{"outcome"}),
		stats: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "catcher",
			Name:      "dashboard_stat",
			Help:      "Displayed dashboard counters.",
		}, []string{"stat"}),
		loading: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "catcher",
			Name:      "loading",
			Help:      "1 while any backend request is in flight.",
		}),
		recording: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "catcher",
			Name:      "recording",
			Help:      "1 while simulated voice capture is active.",
		}),
	}
}

func (m *metrics) observeRequest(action ui.Action, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(string(action), outcome).Inc()
	m.latency.WithLabelValues(string(action)).Observe(d.Seconds())
}

func (m *metrics) observeHook(o hook.Outcome) {
	switch o {
	case hook.Queued:
		m.hooks.WithLabelValues("queued").Inc()
	case hook.Skipped:
		m.hooks.WithLabelValues("skipped").Inc()
	case hook.Dropped:
		m.hooks.WithLabelValues("dropped").Inc()
	}
}

func (m *metrics) observeHookDone(err error) {
	if err != nil {
		m.hooks.WithLabelValues("failed").Inc()
		return
	}
	m.hooks.WithLabelValues("sent").Inc()
}

func (m *metrics) observeState(s ui.State) {
	for i := ui.Stat(0); i < ui.NumStats; i++ {
		m.stats.WithLabelValues(i.String()).Set(float64(s.Stats[i]))
	}
	m.loading.Set(boolGauge(s.Loading))
	m.recording.Set(boolGauge(s.Recording))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (s *Server) metricsServe(ctx context.Context, addr string, logger logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	logger.Infof("metrics listening on http://%s/metrics", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warnf("metrics server: %v", err)
	}
	return nil
}
