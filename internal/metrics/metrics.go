// Package metrics exports deletion progress as prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aatumaykin/tgpurge/internal/logger"
	"github.com/aatumaykin/tgpurge/internal/purge"
)

// PrometheusMetrics implements purge.Metrics.
type PrometheusMetrics struct {
	outcomesTotal  *prometheus.CounterVec
	batchesTotal   prometheus.Counter
	rateLimitWaits prometheus.Counter
	rateLimitTime  prometheus.Counter
	batchDuration  prometheus.Histogram
	Candidates     prometheus.Gauge
}

var _ purge.Metrics = (*PrometheusMetrics)(nil)

// New registers the tgpurge metrics on reg (the default registerer when nil).
func New(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		outcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Deletion outcomes by status and failure kind",
			},
			[]string{"status", "failure"},
		),
		batchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Number of processed batches",
			},
		),
		rateLimitWaits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_waits_total",
				Help:      "Number of rate-limit suspensions",
			},
		),
		rateLimitTime: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_wait_seconds_total",
				Help:      "Time spent waiting out rate limits",
			},
		),
		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_duration_seconds",
				Help:      "Duration of one batch, pacing excluded",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		Candidates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "candidates",
				Help:      "Candidates selected by the current run",
			},
		),
	}

	reg.MustRegister(
		m.outcomesTotal,
		m.batchesTotal,
		m.rateLimitWaits,
		m.rateLimitTime,
		m.batchDuration,
		m.Candidates,
	)

	return m
}

func (m *PrometheusMetrics) ObserveOutcome(o purge.Outcome) {
	m.outcomesTotal.WithLabelValues(string(o.Status), o.Failure.String()).Inc()
}

func (m *PrometheusMetrics) ObserveBatch(_ int, elapsed time.Duration) {
	m.batchesTotal.Inc()
	m.batchDuration.Observe(elapsed.Seconds())
}

func (m *PrometheusMetrics) ObserveRateLimit(wait time.Duration) {
	m.rateLimitWaits.Inc()
	m.rateLimitTime.Add(wait.Seconds())
}

// SetCandidates records how many messages the run selected.
func (m *PrometheusMetrics) SetCandidates(n int) {
	m.Candidates.Set(float64(n))
}

// Serve exposes gatherer on addr at /metrics until ctx ends.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics listener started", logger.Field{Key: "addr", Value: addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics listener failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics listener shutdown: %w", err)
		}
		return nil
	}
}
