package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/aatumaykin/tgpurge/internal/logger"
	"github.com/aatumaykin/tgpurge/internal/metrics"
	"github.com/aatumaykin/tgpurge/internal/schedule"
)

// Serve runs fn and, when metrics are enabled, serves /metrics until fn
// returns. A listener failure is logged and does not stop fn.
func (a *App) Serve(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.registry == nil || a.config.Metrics.ListenAddr == "" {
		return fn(ctx)
	}

	serveCtx, stop := context.WithCancel(ctx)
	defer stop()

	var g errgroup.Group
	g.Go(func() error {
		if err := metrics.Serve(serveCtx, a.config.Metrics.ListenAddr, a.registry, a.logger); err != nil {
			a.logger.Error("metrics listener stopped", err, logger.Field{Key: "addr", Value: a.config.Metrics.ListenAddr})
		}
		return nil
	})
	g.Go(func() error {
		defer stop()
		return fn(ctx)
	})
	return g.Wait()
}

// Schedule repeats Run on the configured cron expression until ctx ends.
// Scheduled live runs never ask for confirmation.
func (a *App) Schedule(ctx context.Context) error {
	s, err := schedule.New(a.config.Schedule.Cron, func(ctx context.Context) error {
		_, err := a.Run(ctx, RunOptions{AssumeYes: true})
		return err
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	return a.Serve(ctx, s.Run)
}
