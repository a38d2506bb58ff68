// Package schedule repeats a run on a cron expression. A tick that fires
// while the previous run is still active is skipped.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/tgpurge/internal/logger"
)

// Runner is one full pipeline run.
type Runner func(ctx context.Context) error

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks a cron expression (5 fields, 6 with seconds, or a descriptor).
func Validate(expr string) error {
	if expr == "" {
		return errors.New("invalid cron expression: empty schedule")
	}
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// Scheduler runs a Runner on every tick of its schedule.
type Scheduler struct {
	expr     string
	schedule cron.Schedule
	run      Runner
	logger   *logger.Logger

	running atomic.Bool
	ticks   atomic.Int64
	skipped atomic.Int64
}

// New parses expr and binds run to it.
func New(expr string, run Runner, log *logger.Logger) (*Scheduler, error) {
	if err := Validate(expr); err != nil {
		return nil, err
	}
	sched, _ := parser.Parse(expr)
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{expr: expr, schedule: sched, run: run, logger: log}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run blocks until ctx ends, then waits for an active run to return.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(parser), cron.WithLogger(cronLogger{s.logger}))
	c.Schedule(s.schedule, cron.FuncJob(func() { s.tick(ctx) }))

	c.Start()
	s.logger.Info("scheduler started",
		logger.Field{Key: "cron", Value: s.expr},
		logger.Field{Key: "next_run", Value: s.Next(time.Now()).Format(time.RFC3339)})

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped",
		logger.Field{Key: "ticks", Value: s.ticks.Load()},
		logger.Field{Key: "skipped", Value: s.skipped.Load()})
	return nil
}

// tick starts a run unless one is active.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("previous run still active, skipping tick")
		return
	}
	defer s.running.Store(false)

	s.ticks.Add(1)
	started := time.Now()
	if err := s.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("scheduled run failed", err, logger.Field{Key: "duration", Value: time.Since(started).String()})
		return
	}
	s.logger.Info("scheduled run finished",
		logger.Field{Key: "duration", Value: time.Since(started).String()},
		logger.Field{Key: "next_run", Value: s.Next(time.Now()).Format(time.RFC3339)})
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, fields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, err, fields(keysAndValues)...)
}

func fields(kv []interface{}) []logger.Field {
	out := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		out = append(out, logger.Field{Key: key, Value: kv[i+1]})
	}
	return out
}
