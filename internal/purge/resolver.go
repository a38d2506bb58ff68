package purge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/aatumaykin/tgpurge/internal/logger"
	"github.com/aatumaykin/tgpurge/internal/retry"
)

// Directory is the remote chat list. Lookups by id and username return
// ErrChatNotFound when nothing matches.
type Directory interface {
	ChatByID(ctx context.Context, id int64) (*Chat, error)
	ChatByUsername(ctx context.Context, username string) (*Chat, error)
	Chats(ctx context.Context) ([]Chat, error)
}

// Resolver maps a chat identifier to a live handle.
//
// Identifier forms:
//   - numeric id ("123", "-100123"): direct lookup
//   - "@handle": username lookup
//   - anything else: case-insensitive substring scan over the live chat
//     list; the first listed match wins and ties are not disambiguated
//
// Transient directory errors are retried with backoff. A flood wait is
// retried after exactly the requested suspension. Nothing is cached
// between calls.
type Resolver struct {
	dir    Directory
	retry  retry.Config
	logger *logger.Logger
}

// NewResolver creates a resolver over dir.
func NewResolver(dir Directory, retryCfg retry.Config, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	if retryCfg.Logger == nil {
		retryCfg.Logger = log
	}
	if retryCfg.Retryable == nil {
		retryCfg.Retryable = func(err error) bool {
			if _, ok := RateLimitWait(err); ok {
				return true
			}
			return !errors.Is(err, ErrChatNotFound) && retry.IsRetryable(err)
		}
	}
	if retryCfg.WaitFor == nil {
		retryCfg.WaitFor = RateLimitWait
	}
	return &Resolver{dir: dir, retry: retryCfg, logger: log}
}

// Resolve finds the chat for identifier. A flood wait that outlasts the
// retries is returned as a *RateLimitError; any other failure except
// context cancellation is reported as ErrChatNotFound.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*Chat, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrChatNotFound)
	}

	chat, err := retry.Do(ctx, r.retry, func(ctx context.Context) (*Chat, error) {
		return r.lookup(ctx, identifier)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrChatNotFound) {
			return nil, err
		}
		if _, ok := RateLimitWait(err); ok {
			return nil, fmt.Errorf("chat lookup %s: %w", identifier, err)
		}
		r.logger.Warn("chat lookup failed",
			logger.Field{Key: "chat", Value: identifier},
			logger.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("%w: %s: %v", ErrChatNotFound, identifier, err)
	}
	return chat, nil
}

func (r *Resolver) lookup(ctx context.Context, identifier string) (*Chat, error) {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return r.dir.ChatByID(ctx, id)
	}

	if handle, ok := strings.CutPrefix(identifier, "@"); ok && handle != "" {
		return r.dir.ChatByUsername(ctx, handle)
	}

	chats, err := r.dir.Chats(ctx)
	if err != nil {
		return nil, err
	}
	if chat := FindByName(chats, identifier); chat != nil {
		return chat, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrChatNotFound, identifier)
}

// FindByName returns the first chat whose name contains name, compared
// with Unicode case folding. It returns nil when nothing matches.
func FindByName(chats []Chat, name string) *Chat {
	fold := cases.Fold()
	needle := fold.String(name)
	for i := range chats {
		if strings.Contains(fold.String(chats[i].Name), needle) {
			return &chats[i]
		}
	}
	return nil
}
