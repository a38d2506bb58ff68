// Package app wires the tgpurge pipeline together: configuration, message
// source, candidate selection, reports, deletion, journal, metrics and the
// run summary notification.
//
// Three entry points share one pipeline:
//   - Run: select, write the preview, confirm, delete, report
//   - Preview: select, write the preview, print the keyword summary
//   - Guide: select, write the preview and the markdown deletion guide
//
// Schedule repeats Run on a cron expression.
package app

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aatumaykin/tgpurge/internal/config"
	"github.com/aatumaykin/tgpurge/internal/logger"
	"github.com/aatumaykin/tgpurge/internal/metrics"
	"github.com/aatumaykin/tgpurge/internal/purge"
)

// Notifier receives the run summary.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// App holds the configuration and collaborators of a tgpurge process.
type App struct {
	config *config.Config
	logger *logger.Logger

	connect  Connector
	notifier Notifier

	registry *prometheus.Registry
	metrics  *metrics.PrometheusMetrics

	out   io.Writer
	in    *bufio.Reader // shared by the login code prompt and the confirmation
	raw   io.Reader
	now   func() time.Time
	sleep purge.Sleeper
}

// Option customizes an App.
type Option func(*App)

// WithConnector replaces the telegram login used for live sessions.
func WithConnector(c Connector) Option {
	return func(a *App) { a.connect = c }
}

// WithNotifier sets the summary notifier.
func WithNotifier(n Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// WithIO sets where progress is printed and where the confirmation is read.
func WithIO(out io.Writer, in io.Reader) Option {
	return func(a *App) {
		a.out = out
		a.raw = in
	}
}

// WithClock sets the time source used for the cutoff and file names.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithSleeper replaces the pacing sleeper of the deleter.
func WithSleeper(s purge.Sleeper) Option {
	return func(a *App) { a.sleep = s }
}

// WithRegistry enables metrics on reg.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) { a.registry = reg }
}

// New creates the application. Without WithConnector the live session logs
// in through telegram and asks for the login code on stdin.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *App {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{
		config: cfg,
		logger: log,
		out:    os.Stdout,
		raw:    os.Stdin,
		now:    time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	a.in = bufio.NewReader(a.raw)

	if a.connect == nil {
		a.connect = TelegramConnector(cfg, log, a.in, a.out)
	}
	if a.registry == nil && cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
	}
	if a.registry != nil {
		a.metrics = metrics.New(cfg.Metrics.Namespace, a.registry)
	}
	return a
}

// Registry returns the metrics registry, nil when metrics are disabled.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}
