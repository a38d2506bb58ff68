package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{expr: "0 3 * * *"},
		{expr: "30 0 3 * * *"},
		{expr: "@daily"},
		{expr: "@every 6h"},
		{expr: "", wantErr: true},
		{expr: "61 * * * *", wantErr: true},
		{expr: "not a schedule", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := Validate(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScheduler_Next(t *testing.T) {
	s, err := New("0 3 * * *", func(context.Context) error { return nil }, nil)
	require.NoError(t, err)

	from := time.Date(2026, 5, 1, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 5, 2, 3, 0, 0, 0, time.UTC), s.Next(from))
}

func TestScheduler_TickSkipsOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32

	s, err := New("@every 1h", func(ctx context.Context) error {
		runs.Add(1)
		close(started)
		<-release
		return nil
	}, nil)
	require.NoError(t, err)

	go s.tick(context.Background())
	<-started

	s.tick(context.Background())
	assert.EqualValues(t, 1, s.skipped.Load())

	close(release)
	require.Eventually(t, func() bool { return !s.running.Load() }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, runs.Load())
}

func TestScheduler_TickSurvivesRunError(t *testing.T) {
	var runs atomic.Int32
	s, err := New("@every 1h", func(context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	}, nil)
	require.NoError(t, err)

	s.tick(context.Background())
	s.tick(context.Background())
	assert.EqualValues(t, 2, runs.Load())
	assert.EqualValues(t, 2, s.ticks.Load())
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	var runs atomic.Int32
	s, err := New("@every 1s", func(context.Context) error {
		runs.Add(1)
		return nil
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestNew_InvalidExpression(t *testing.T) {
	_, err := New("bogus", nil, nil)
	assert.Error(t, err)
}
