package purge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockTransport is a testify mock of Transport.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) GetMessage(ctx context.Context, chat *Chat, id int) (*Message, error) {
	args := m.Called(ctx, chat, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Message), args.Error(1)
}

func (m *MockTransport) DeleteMessage(ctx context.Context, chat *Chat, id int, revoke bool) (bool, error) {
	args := m.Called(ctx, chat, id, revoke)
	return args.Bool(0), args.Error(1)
}

// MockResolver is a testify mock of ChatResolver.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, identifier string) (*Chat, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Chat), args.Error(1)
}

// events records the order of observable side effects.
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(format string, a ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, fmt.Sprintf(format, a...))
}

func (e *events) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

// fakeSleeper records suspensions instead of sleeping.
type fakeSleeper struct {
	ev     *events
	waits  []time.Duration
	cancel func() // called on the n-th sleep when set
	n      int
}

func (s *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	if s.ev != nil {
		s.ev.add("sleep %s", d)
	}
	if s.cancel != nil && len(s.waits) == s.n {
		s.cancel()
	}
	return ctx.Err()
}

// fakeMetrics counts batches and rate-limit waits.
type fakeMetrics struct {
	ev        *events
	batches   []int
	outcomes  []Outcome
	rateWaits []time.Duration
}

func (m *fakeMetrics) ObserveOutcome(o Outcome) { m.outcomes = append(m.outcomes, o) }

func (m *fakeMetrics) ObserveBatch(size int, _ time.Duration) {
	m.batches = append(m.batches, size)
	if m.ev != nil {
		m.ev.add("batch %d", size)
	}
}

func (m *fakeMetrics) ObserveRateLimit(wait time.Duration) { m.rateWaits = append(m.rateWaits, wait) }

// fakeJournal records journal calls.
type fakeJournal struct {
	ev  *events
	err error
}

func (j *fakeJournal) Attempt(_ context.Context, chat ChatGroup, id int, dryRun bool) error {
	j.ev.add("attempt %s/%d dry=%t", chat.ChatName, id, dryRun)
	return j.err
}

func (j *fakeJournal) Outcome(_ context.Context, o Outcome, dryRun bool) error {
	j.ev.add("outcome %s/%d %s", o.ChatName, o.MessageID, o.Status)
	return j.err
}

// fakeDirectory is an in-memory Directory.
type fakeDirectory struct {
	chats     []Chat
	failures  int // transient failures before answering
	calls     int
	listCalls int
	transient error
}

func (d *fakeDirectory) fail() error {
	d.calls++
	if d.failures > 0 {
		d.failures--
		return d.transient
	}
	return nil
}

func (d *fakeDirectory) ChatByID(_ context.Context, id int64) (*Chat, error) {
	if err := d.fail(); err != nil {
		return nil, err
	}
	for i := range d.chats {
		if d.chats[i].ID == id {
			return &d.chats[i], nil
		}
	}
	return nil, ErrChatNotFound
}

func (d *fakeDirectory) ChatByUsername(_ context.Context, username string) (*Chat, error) {
	if err := d.fail(); err != nil {
		return nil, err
	}
	for i := range d.chats {
		if d.chats[i].Username == username {
			return &d.chats[i], nil
		}
	}
	return nil, ErrChatNotFound
}

func (d *fakeDirectory) Chats(_ context.Context) ([]Chat, error) {
	d.listCalls++
	if err := d.fail(); err != nil {
		return nil, err
	}
	return d.chats, nil
}

// stubPredicate matches texts from a fixed set.
type stubPredicate map[string]bool

func (p stubPredicate) Match(text string) bool { return p[text] }
func (p stubPredicate) Empty() bool            { return len(p) == 0 }
