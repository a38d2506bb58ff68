package purge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/tgpurge/internal/retry"
)

func group(chatID int64, name string, ids ...int) ChatGroup {
	g := ChatGroup{ChatID: chatID, ChatName: name, ChatType: "private"}
	for _, id := range ids {
		g.Messages = append(g.Messages, Message{ChatID: chatID, ChatName: name, ID: id, Origin: OriginOwner})
	}
	return g
}

func owned(id int) *Message {
	return &Message{ID: id, Origin: OriginOwner}
}

func TestBatches(t *testing.T) {
	for n := 0; n <= 25; n++ {
		for size := 1; size <= 7; size++ {
			ids := make([]int, n)
			for i := range ids {
				ids[i] = i + 1
			}

			batches := Batches(ids, size)

			assert.Len(t, batches, (n+size-1)/size, "n=%d size=%d", n, size)
			seen := make(map[int]int)
			var flat []int
			for _, b := range batches {
				assert.LessOrEqual(t, len(b), size)
				assert.NotEmpty(t, b)
				for _, id := range b {
					seen[id]++
					flat = append(flat, id)
				}
			}
			for _, id := range ids {
				assert.Equal(t, 1, seen[id], "id %d", id)
			}
			assert.Equal(t, len(ids), len(flat))
		}
	}
}

func TestBatches_DoNotAlias(t *testing.T) {
	ids := []int{1, 2, 3}
	batches := Batches(ids, 2)
	batches[0] = append(batches[0], 99)
	assert.Equal(t, []int{1, 2, 3}, ids)
}

func TestDeleter_EndToEnd(t *testing.T) {
	ev := &events{}
	transport := &MockTransport{}
	resolver := &MockResolver{}
	chatA := &Chat{ID: 1, Name: "A"}
	chatB := &Chat{ID: 2, Name: "B"}

	resolver.On("Resolve", mock.Anything, "1").Return(chatA, nil).Once()
	resolver.On("Resolve", mock.Anything, "2").Return(chatB, nil).Once()
	for _, id := range []int{1, 2, 3, 4} {
		id := id
		transport.On("GetMessage", mock.Anything, mock.Anything, id).Return(owned(id), nil).Once()
		transport.On("DeleteMessage", mock.Anything, mock.Anything, id, true).
			Run(func(mock.Arguments) { ev.add("delete %d", id) }).
			Return(true, nil).Once()
	}

	sleeper := &fakeSleeper{ev: ev}
	metrics := &fakeMetrics{ev: ev}
	d := NewDeleter(transport, resolver,
		Options{BatchSize: 2, Delay: 2 * time.Second, Revoke: true},
		WithSleeper(sleeper.sleep), WithMetrics(metrics))

	stats, err := d.Run(context.Background(), []ChatGroup{group(1, "A", 1, 2, 3), group(2, "B", 4)})
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalProcessed)
	assert.Equal(t, 4, stats.Deleted)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Skipped)
	assert.Empty(t, stats.Errors)

	assert.Equal(t, []int{2, 1, 1}, metrics.batches)
	assert.Equal(t, []string{
		"delete 1", "delete 2", "batch 2",
		"sleep 2s",
		"delete 3", "batch 1",
		"sleep 2s",
		"delete 4", "batch 1",
	}, ev.list())

	transport.AssertExpectations(t)
	resolver.AssertExpectations(t)
}

func TestDeleter_DryRunIsIdempotent(t *testing.T) {
	transport := &MockTransport{}
	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(&Chat{ID: 1}, nil)

	groups := []ChatGroup{group(1, "A", 1, 2, 3), group(2, "B", 4, 5)}
	d := NewDeleter(transport, resolver, Options{BatchSize: 2, DryRun: true}, WithSleeper(noSleep))

	first, err := d.Run(context.Background(), groups)
	require.NoError(t, err)
	second, err := d.Run(context.Background(), groups)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 5, first.Skipped)
	assert.Equal(t, 5, first.TotalProcessed)
	assert.Zero(t, first.Deleted)
	assert.Zero(t, first.Failed)

	transport.AssertNotCalled(t, "GetMessage", mock.Anything, mock.Anything, mock.Anything)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleter_DryRunWithoutTransport(t *testing.T) {
	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, "1").Return(&Chat{ID: 1}, nil)

	d := NewDeleter(nil, resolver, Options{DryRun: true})
	stats, err := d.Run(context.Background(), []ChatGroup{group(1, "A", 1)})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
}

func TestDeleter_ChatNotFoundIsIsolated(t *testing.T) {
	transport := &MockTransport{}
	resolver := &MockResolver{}
	chatA := &Chat{ID: 1, Name: "A"}
	chatC := &Chat{ID: 3, Name: "C"}

	resolver.On("Resolve", mock.Anything, "1").Return(chatA, nil)
	resolver.On("Resolve", mock.Anything, "2").Return(nil, fmt.Errorf("%w: 2", ErrChatNotFound))
	resolver.On("Resolve", mock.Anything, "3").Return(chatC, nil)

	for _, id := range []int{1, 2, 5} {
		transport.On("GetMessage", mock.Anything, mock.Anything, id).Return(owned(id), nil)
		transport.On("DeleteMessage", mock.Anything, mock.Anything, id, true).Return(true, nil)
	}

	d := NewDeleter(transport, resolver, Options{BatchSize: 10, Revoke: true}, WithSleeper(noSleep))
	stats, err := d.Run(context.Background(), []ChatGroup{
		group(1, "A", 1, 2),
		group(2, "B", 3, 4),
		group(3, "C", 5),
	})
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalProcessed)
	assert.Equal(t, 3, stats.Deleted)
	assert.Equal(t, 2, stats.Failed)
	require.Len(t, stats.Errors, 2)
	for i, o := range stats.Errors {
		assert.Equal(t, "B", o.ChatName)
		assert.Equal(t, 3+i, o.MessageID)
		assert.Equal(t, FailureChatNotFound, o.Failure)
		assert.Equal(t, "chat not found", o.Detail)
	}

	transport.AssertNotCalled(t, "GetMessage", mock.Anything, mock.Anything, 3)
	transport.AssertNotCalled(t, "GetMessage", mock.Anything, mock.Anything, 4)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, 3, mock.Anything)
	transport.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, 4, mock.Anything)
}

func TestDeleter_PreresolvedChatSkipsResolver(t *testing.T) {
	transport := &MockTransport{}
	resolver := &MockResolver{}
	chat := &Chat{ID: 9, Name: "Live"}
	g := group(9, "Live", 1)
	g.Chat = chat

	transport.On("GetMessage", mock.Anything, chat, 1).Return(owned(1), nil)
	transport.On("DeleteMessage", mock.Anything, chat, 1, false).Return(true, nil)

	d := NewDeleter(transport, resolver, Options{BatchSize: 1})
	stats, err := d.Run(context.Background(), []ChatGroup{g})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deleted)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestDeleter_RateLimit(t *testing.T) {
	ev := &events{}
	transport := &MockTransport{}
	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, "1").Return(&Chat{ID: 1}, nil)

	for _, id := range []int{1, 2, 3} {
		transport.On("GetMessage", mock.Anything, mock.Anything, id).Return(owned(id), nil).Once()
	}
	transport.On("DeleteMessage", mock.Anything, mock.Anything, 1, true).Return(true, nil).Once()
	transport.On("DeleteMessage", mock.Anything, mock.Anything, 2, true).
		Return(false, &RateLimitError{Wait: 5 * time.Second}).Once()
	transport.On("DeleteMessage", mock.Anything, mock.Anything, 3, true).
		Run(func(mock.Arguments) { ev.add("delete 3") }).
		Return(true, nil).Once()

	sleeper := &fakeSleeper{ev: ev}
	metrics := &fakeMetrics{}
	d := NewDeleter(transport, resolver, Options{BatchSize: 10, Delay: time.Second, Revoke: true},
		WithSleeper(sleeper.sleep), WithMetrics(metrics))

	stats, err := d.Run(context.Background(), []ChatGroup{group(1, "A", 1, 2, 3)})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalProcessed)
	assert.Equal(t, 2, stats.Deleted)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, 2, stats.Errors[0].MessageID)
	assert.Equal(t, FailureRateLimited, stats.Errors[0].Failure)
	assert.Equal(t, 5*time.Second, stats.Errors[0].Wait)
	assert.Equal(t, "rate limited, waited 5s", stats.Errors[0].Detail)

	assert.Equal(t, []string{"sleep 5s", "delete 3"}, ev.list())
	assert.Equal(t, []time.Duration{5 * time.Second}, metrics.rateWaits)
	transport.AssertNumberOfCalls(t, "DeleteMessage", 3)
	transport.AssertExpectations(t)
}

func TestDeleter_FailureKinds(t *testing.T) {
	transportErr := errors.New("rpc error code 500: INTERNAL")

	tests := []struct {
		name       string
		setup      func(m *MockTransport)
		wantKind   FailureKind
		wantDetail string
	}{
		{
			name: "message gone",
			setup: func(m *MockTransport) {
				m.On("GetMessage", mock.Anything, mock.Anything, 1).Return(nil, nil)
			},
			wantKind:   FailureNotFound,
			wantDetail: "message not found",
		},
		{
			name: "not owner",
			setup: func(m *MockTransport) {
				m.On("GetMessage", mock.Anything, mock.Anything, 1).Return(&Message{ID: 1}, nil)
			},
			wantKind:   FailureNotOwner,
			wantDetail: "not from you",
		},
		{
			name: "not acknowledged",
			setup: func(m *MockTransport) {
				m.On("GetMessage", mock.Anything, mock.Anything, 1).Return(owned(1), nil)
				m.On("DeleteMessage", mock.Anything, mock.Anything, 1, true).Return(false, nil)
			},
			wantKind:   FailureNotAcknowledged,
			wantDetail: "deletion failed",
		},
		{
			name: "admin required",
			setup: func(m *MockTransport) {
				m.On("GetMessage", mock.Anything, mock.Anything, 1).Return(owned(1), nil)
				m.On("DeleteMessage", mock.Anything, mock.Anything, 1, true).Return(false, fmt.Errorf("delete: %w", ErrPermissionDenied))
			},
			wantKind:   FailurePermissionDenied,
			wantDetail: "admin rights required",
		},
		{
			name: "forbidden",
			setup: func(m *MockTransport) {
				m.On("GetMessage", mock.Anything, mock.Anything, 1).Return(owned(1), nil)
				m.On("DeleteMessage", mock.Anything, mock.Anything, 1, true).Return(false, ErrDeleteForbidden)
			},
			wantKind:   FailureForbidden,
			wantDetail: "message deletion forbidden",
		},
		{
			name: "unexpected delete error",
			setup: func(m *MockTransport) {
				m.On("GetMessage", mock.Anything, mock.Anything, 1).Return(owned(1), nil)
				m.On("DeleteMessage", mock.Anything, mock.Anything, 1, true).Return(false, transportErr)
			},
			wantKind:   FailureTransport,
			wantDetail: "unexpected error: rpc error code 500: INTERNAL",
		},
		{
			name: "unexpected fetch error",
			setup: func(m *MockTransport) {
				m.On("GetMessage", mock.Anything, mock.Anything, 1).Return(nil, transportErr)
			},
			wantKind:   FailureTransport,
			wantDetail: "unexpected error: rpc error code 500: INTERNAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &MockTransport{}
			tt.setup(transport)
			resolver := &MockResolver{}
			resolver.On("Resolve", mock.Anything, "1").Return(&Chat{ID: 1}, nil)

			d := NewDeleter(transport, resolver, Options{BatchSize: 5, Revoke: true}, WithSleeper(noSleep))
			stats, err := d.Run(context.Background(), []ChatGroup{group(1, "A", 1)})
			require.NoError(t, err)

			assert.Equal(t, 1, stats.TotalProcessed)
			assert.Equal(t, 1, stats.Failed)
			require.Len(t, stats.Errors, 1)
			assert.Equal(t, tt.wantKind, stats.Errors[0].Failure)
			assert.Equal(t, tt.wantDetail, stats.Errors[0].Detail)
			assert.False(t, stats.Errors[0].Success())
		})
	}
}

func TestDeleter_CancelDuringPacing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := &MockTransport{}
	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, "1").Return(&Chat{ID: 1}, nil)
	transport.On("GetMessage", mock.Anything, mock.Anything, mock.Anything).Return(owned(1), nil)
	transport.On("DeleteMessage", mock.Anything, mock.Anything, mock.Anything, true).Return(true, nil)

	sleeper := &fakeSleeper{cancel: cancel, n: 1}
	d := NewDeleter(transport, resolver, Options{BatchSize: 1, Delay: time.Second, Revoke: true},
		WithSleeper(sleeper.sleep))

	stats, err := d.Run(ctx, []ChatGroup{group(1, "A", 1, 2, 3)})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.TotalProcessed)
	assert.Equal(t, 1, stats.Deleted)
	transport.AssertNumberOfCalls(t, "DeleteMessage", 1)
}

func TestDeleter_CancelDuringRateLimitWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := &MockTransport{}
	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, "1").Return(&Chat{ID: 1}, nil)
	transport.On("GetMessage", mock.Anything, mock.Anything, 1).Return(owned(1), nil)
	transport.On("DeleteMessage", mock.Anything, mock.Anything, 1, true).Return(false, &RateLimitError{Wait: time.Minute})

	sleeper := &fakeSleeper{cancel: cancel, n: 1}
	d := NewDeleter(transport, resolver, Options{BatchSize: 10, Revoke: true}, WithSleeper(sleeper.sleep))

	stats, err := d.Run(ctx, []ChatGroup{group(1, "A", 1, 2)})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.TotalProcessed)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, "rate limited, waited 60s", stats.Errors[0].Detail)
	transport.AssertNotCalled(t, "GetMessage", mock.Anything, mock.Anything, 2)
}

func TestDeleter_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := &MockResolver{}
	d := NewDeleter(&MockTransport{}, resolver, Options{})
	stats, err := d.Run(ctx, []ChatGroup{group(1, "A", 1)})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.TotalProcessed)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestDeleter_JournalOrder(t *testing.T) {
	ev := &events{}
	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, "1").Return(&Chat{ID: 1}, nil)
	resolver.On("Resolve", mock.Anything, "2").Return(nil, ErrChatNotFound)

	journal := &fakeJournal{ev: ev, err: errors.New("disk full")}
	d := NewDeleter(nil, resolver, Options{BatchSize: 10, DryRun: true}, WithJournal(journal))

	stats, err := d.Run(context.Background(), []ChatGroup{group(1, "A", 1, 2), group(2, "B", 3)})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalProcessed)
	assert.Equal(t, []string{
		"attempt A/1 dry=true", "outcome A/1 skipped",
		"attempt A/2 dry=true", "outcome A/2 skipped",
		"outcome B/3 failed",
	}, ev.list())
}

func TestDeleter_NoDelayWhenZero(t *testing.T) {
	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(&Chat{ID: 1}, nil)
	sleeper := &fakeSleeper{}

	d := NewDeleter(nil, resolver, Options{BatchSize: 1, DryRun: true}, WithSleeper(sleeper.sleep))
	_, err := d.Run(context.Background(), []ChatGroup{group(1, "A", 1, 2, 3)})
	require.NoError(t, err)
	assert.Empty(t, sleeper.waits)
}

func TestStats_Merge(t *testing.T) {
	var total Stats
	total.Record(Outcome{Status: StatusDeleted})
	other := Stats{}
	other.Record(Outcome{Status: StatusSkipped})
	other.Record(Outcome{Status: StatusFailed, MessageID: 3, Detail: "x"})

	total.Merge(other)
	assert.Equal(t, 3, total.TotalProcessed)
	assert.Equal(t, 1, total.Deleted)
	assert.Equal(t, 1, total.Skipped)
	assert.Equal(t, 1, total.Failed)
	assert.Len(t, total.Errors, 1)
	assert.Equal(t, total.TotalProcessed, total.Deleted+total.Failed+total.Skipped)
}

func TestFailureKind_String(t *testing.T) {
	assert.Equal(t, "rate_limited", FailureRateLimited.String())
	assert.Equal(t, "chat_not_found", FailureChatNotFound.String())
	assert.Equal(t, "", FailureNone.String())
	assert.Equal(t, "failure(42)", FailureKind(42).String())
}

func TestDeleter_LookupFloodWaitIsWaitedOut(t *testing.T) {
	dir := &fakeDirectory{
		chats:     []Chat{{ID: 1, Name: "A"}},
		failures:  1,
		transient: &RateLimitError{Wait: 30 * time.Second},
	}
	sleeper := &fakeSleeper{}
	resolver := NewResolver(dir, retry.Config{Sleep: sleeper.sleep}, nil)

	d := NewDeleter(nil, resolver, Options{BatchSize: 10, DryRun: true}, WithSleeper(noSleep))
	stats, err := d.Run(context.Background(), []ChatGroup{group(1, "A", 1, 2)})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Skipped)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, []time.Duration{30 * time.Second}, sleeper.waits)
	assert.Equal(t, 2, dir.calls)
}

func TestDeleter_LookupStillRateLimited(t *testing.T) {
	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, "1").
		Return(nil, fmt.Errorf("chat lookup 1: %w", &RateLimitError{Wait: 7 * time.Second}))
	resolver.On("Resolve", mock.Anything, "2").Return(&Chat{ID: 2}, nil)

	ev := &events{}
	sleeper := &fakeSleeper{ev: ev}
	metrics := &fakeMetrics{}
	d := NewDeleter(nil, resolver, Options{BatchSize: 10, DryRun: true},
		WithSleeper(sleeper.sleep), WithMetrics(metrics))

	stats, err := d.Run(context.Background(), []ChatGroup{group(1, "A", 1, 2), group(2, "B", 3)})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalProcessed)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, stats.Errors, 2)
	for _, o := range stats.Errors {
		assert.Equal(t, FailureRateLimited, o.Failure)
		assert.Equal(t, "rate limited, waited 7s", o.Detail)
		assert.Equal(t, 7*time.Second, o.Wait)
	}
	assert.Equal(t, []string{"sleep 7s"}, ev.list())
	assert.Equal(t, []time.Duration{7 * time.Second}, metrics.rateWaits)
}

func TestDeleter_CancelDuringLookupWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, "1").Return(nil, &RateLimitError{Wait: time.Minute})

	sleeper := &fakeSleeper{cancel: cancel, n: 1}
	d := NewDeleter(nil, resolver, Options{BatchSize: 10, DryRun: true}, WithSleeper(sleeper.sleep))

	stats, err := d.Run(ctx, []ChatGroup{group(1, "A", 1), group(2, "B", 2)})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, FailureRateLimited, stats.Errors[0].Failure)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, "2")
}
