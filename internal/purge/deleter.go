package purge

import (
	"context"
	"time"

	"github.com/aatumaykin/tgpurge/internal/constants"
	"github.com/aatumaykin/tgpurge/internal/logger"
	"github.com/aatumaykin/tgpurge/internal/retry"
)

// Transport performs remote message operations for one chat.
type Transport interface {
	// GetMessage re-fetches a message. It returns nil, nil when the
	// message no longer exists.
	GetMessage(ctx context.Context, chat *Chat, id int) (*Message, error)
	// DeleteMessage deletes a message and reports the remote acknowledgement.
	DeleteMessage(ctx context.Context, chat *Chat, id int, revoke bool) (bool, error)
}

// ChatResolver maps a chat identifier to a live handle.
type ChatResolver interface {
	Resolve(ctx context.Context, identifier string) (*Chat, error)
}

// Journal receives an entry before and after every attempt.
type Journal interface {
	Attempt(ctx context.Context, chat ChatGroup, messageID int, dryRun bool) error
	Outcome(ctx context.Context, o Outcome, dryRun bool) error
}

// Metrics observes deletion progress.
type Metrics interface {
	ObserveOutcome(o Outcome)
	ObserveBatch(size int, elapsed time.Duration)
	ObserveRateLimit(wait time.Duration)
}

// Sleeper suspends the run. It must return ctx.Err() when ctx ends first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Options configures a deleter run.
type Options struct {
	BatchSize int
	Delay     time.Duration
	DryRun    bool
	Revoke    bool
}

// Deleter drives per-message deletion grouped by chat, chunked into
// batches with pacing between them.
type Deleter struct {
	transport Transport
	resolver  ChatResolver
	opts      Options

	journal Journal
	metrics Metrics
	sleep   Sleeper
	logger  *logger.Logger
}

// Option customizes a Deleter.
type Option func(*Deleter)

// WithJournal sets the attempt journal.
func WithJournal(j Journal) Option {
	return func(d *Deleter) { d.journal = j }
}

// WithMetrics sets the metrics observer.
func WithMetrics(m Metrics) Option {
	return func(d *Deleter) { d.metrics = m }
}

// WithSleeper replaces the suspension function.
func WithSleeper(s Sleeper) Option {
	return func(d *Deleter) { d.sleep = s }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *Deleter) { d.logger = l }
}

// NewDeleter creates a deleter. Transport may be nil in dry-run mode.
func NewDeleter(transport Transport, resolver ChatResolver, opts Options, options ...Option) *Deleter {
	if opts.BatchSize < 1 {
		opts.BatchSize = constants.DefaultBatchSize
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}

	d := &Deleter{
		transport: transport,
		resolver:  resolver,
		opts:      opts,
		sleep:     retry.Sleep,
		logger:    logger.Nop(),
	}
	for _, o := range options {
		o(d)
	}
	return d
}

// Batches splits ids into consecutive chunks of at most size elements.
func Batches(ids []int, size int) [][]int {
	if size < 1 {
		size = 1
	}
	batches := make([][]int, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end:end])
	}
	return batches
}

// Run processes groups strictly in order. Per-message failures are recorded
// in the returned stats and never abort the run. When ctx is cancelled the
// stats gathered so far are returned together with ctx.Err().
func (d *Deleter) Run(ctx context.Context, groups []ChatGroup) (Stats, error) {
	var stats Stats
	mode := "deletion"
	if d.opts.DryRun {
		mode = "dry run"
	}

	d.logger.InfoCtx(ctx, "starting "+mode,
		logger.Field{Key: "chats", Value: len(groups)},
		logger.Field{Key: "messages", Value: CountMessages(groups)},
		logger.Field{Key: "batch_size", Value: d.opts.BatchSize},
		logger.Field{Key: "delay", Value: d.opts.Delay.String()})

	paced := false
	for gi, group := range groups {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		log := d.logger.With(logger.Field{Key: "chat", Value: group.ChatName})
		log.Info("processing chat",
			logger.Field{Key: "index", Value: gi + 1},
			logger.Field{Key: "of", Value: len(groups)},
			logger.Field{Key: "messages", Value: len(group.Messages)})

		chat, err := d.resolve(ctx, group)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			if werr := d.resolveFailed(ctx, &stats, group, err); werr != nil {
				return stats, werr
			}
			continue
		}

		batches := Batches(group.IDs(), d.opts.BatchSize)
		for bi, batch := range batches {
			if paced && d.opts.Delay > 0 {
				log.Debug("waiting before next batch", logger.Field{Key: "delay", Value: d.opts.Delay.String()})
				if err := d.sleep(ctx, d.opts.Delay); err != nil {
					return stats, err
				}
			}
			paced = true

			log.Info("processing batch",
				logger.Field{Key: "batch", Value: bi + 1},
				logger.Field{Key: "of", Value: len(batches)},
				logger.Field{Key: "size", Value: len(batch)})

			start := time.Now()
			for _, id := range batch {
				if err := ctx.Err(); err != nil {
					return stats, err
				}
				if d.journal != nil {
					if err := d.journal.Attempt(context.WithoutCancel(ctx), group, id, d.opts.DryRun); err != nil {
						log.Warn("journal write failed", logger.Field{Key: "error", Value: err.Error()})
					}
				}

				o, err := d.attempt(ctx, chat, group, id)
				d.record(ctx, &stats, o)
				if err != nil {
					return stats, err
				}
			}
			if d.metrics != nil {
				d.metrics.ObserveBatch(len(batch), time.Since(start))
			}
		}
	}

	return stats, nil
}

func (d *Deleter) resolve(ctx context.Context, group ChatGroup) (*Chat, error) {
	if group.Chat != nil {
		return group.Chat, nil
	}
	if d.resolver == nil {
		return nil, ErrChatNotFound
	}
	return d.resolver.Resolve(ctx, group.Identifier())
}

// resolveFailed records every message of group as failed. A lookup that
// stayed rate limited is suspended for the requested wait first; the
// returned error is non-nil only when that suspension was interrupted.
func (d *Deleter) resolveFailed(ctx context.Context, stats *Stats, group ChatGroup, err error) error {
	log := d.logger.With(logger.Field{Key: "chat", Value: group.ChatName})

	kind, wait := FailureChatNotFound, time.Duration(0)
	var serr error
	if w, ok := RateLimitWait(err); ok {
		kind, wait = FailureRateLimited, w
		log.Warn("chat lookup rate limited, waiting",
			logger.Field{Key: "chat_id", Value: group.ChatID},
			logger.Field{Key: "wait", Value: wait.String()})
		if d.metrics != nil {
			d.metrics.ObserveRateLimit(wait)
		}
		serr = d.sleep(ctx, wait)
	} else {
		log.Error("could not find chat", err, logger.Field{Key: "chat_id", Value: group.ChatID})
	}

	for _, id := range group.IDs() {
		d.record(ctx, stats, Outcome{
			ChatID:    group.ChatID,
			ChatName:  group.ChatName,
			MessageID: id,
			Status:    StatusFailed,
			Failure:   kind,
			Detail:    describe(kind, wait, err),
			Wait:      wait,
		})
	}
	return serr
}

// attempt deletes one message. The returned error is non-nil only when a
// rate-limit suspension was interrupted by ctx.
func (d *Deleter) attempt(ctx context.Context, chat *Chat, group ChatGroup, id int) (Outcome, error) {
	o := Outcome{ChatID: group.ChatID, ChatName: group.ChatName, MessageID: id}

	if d.opts.DryRun {
		o.Status = StatusSkipped
		o.Detail = DetailDryRun
		return o, nil
	}

	fail := func(kind FailureKind, cause error) Outcome {
		o.Status = StatusFailed
		o.Failure = kind
		o.Detail = describe(kind, o.Wait, cause)
		return o
	}

	msg, err := d.transport.GetMessage(ctx, chat, id)
	if err == nil {
		switch {
		case msg == nil:
			return fail(FailureNotFound, nil), nil
		case !msg.Owned():
			return fail(FailureNotOwner, nil), nil
		}

		var ok bool
		ok, err = d.transport.DeleteMessage(ctx, chat, id, d.opts.Revoke)
		if err == nil {
			if !ok {
				return fail(FailureNotAcknowledged, nil), nil
			}
			o.Status = StatusDeleted
			return o, nil
		}
	}

	kind, wait := classify(err)
	switch kind {
	case FailureRateLimited:
		o.Wait = wait
		d.logger.Warn("rate limited, waiting",
			logger.Field{Key: "chat", Value: group.ChatName},
			logger.Field{Key: "message_id", Value: id},
			logger.Field{Key: "wait", Value: wait.String()})
		if d.metrics != nil {
			d.metrics.ObserveRateLimit(wait)
		}
		if serr := d.sleep(ctx, wait); serr != nil {
			return fail(kind, err), serr
		}
	case FailureTransport:
		d.logger.Error("unexpected error", err,
			logger.Field{Key: "chat", Value: group.ChatName},
			logger.Field{Key: "message_id", Value: id})
	}
	return fail(kind, err), nil
}

func (d *Deleter) record(ctx context.Context, stats *Stats, o Outcome) {
	stats.Record(o)
	if d.metrics != nil {
		d.metrics.ObserveOutcome(o)
	}
	if d.journal != nil {
		if err := d.journal.Outcome(context.WithoutCancel(ctx), o, d.opts.DryRun); err != nil {
			d.logger.Warn("journal write failed", logger.Field{Key: "error", Value: err.Error()})
		}
	}
}
