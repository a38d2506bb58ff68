package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/tg"

	"github.com/aatumaykin/tgpurge/internal/logger"
	"github.com/aatumaykin/tgpurge/internal/purge"
	"github.com/aatumaykin/tgpurge/internal/retry"
)

const (
	historyPageSize = 100
	floodAttempts   = 3
)

// Service talks to one logged-in account. The dialog list is read once and
// reused for the lifetime of the Service, which is one run.
type Service struct {
	api    API
	logger *logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	chats  []purge.Chat
	loaded bool
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithFloodSleep replaces the suspension used to wait out flood waits
// while listing.
func WithFloodSleep(sleep func(ctx context.Context, d time.Duration) error) ServiceOption {
	return func(s *Service) { s.sleep = sleep }
}

// NewService wraps api.
func NewService(api API, log *logger.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{api: api, logger: log, sleep: retry.Sleep}
	for _, o := range opts {
		o(s)
	}
	return s
}

var (
	_ purge.Transport = (*Service)(nil)
	_ purge.Directory = (*Service)(nil)
)

// Chats returns every dialog of the account in dialog-list order.
func (s *Service) Chats(ctx context.Context) ([]purge.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.chats, nil
	}
	chats, err := s.loadDialogs(ctx)
	if err != nil {
		return nil, err
	}
	s.chats, s.loaded = chats, true
	s.logger.Debug("dialogs loaded", logger.Field{Key: "count", Value: len(chats)})
	return chats, nil
}

func (s *Service) loadDialogs(ctx context.Context) ([]purge.Chat, error) {
	var chats []purge.Chat
	seen := make(map[peerKey]bool)

	req := &tg.MessagesGetDialogsRequest{OffsetPeer: &tg.InputPeerEmpty{}, Limit: dialogPageSize}
	for {
		res, err := s.api.MessagesGetDialogs(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to get dialogs: %w", translate(err))
		}

		var (
			dialogs  []tg.DialogClass
			messages []tg.MessageClass
			ents     entities
			final    bool
		)
		switch r := res.(type) {
		case *tg.MessagesDialogs:
			dialogs, messages, final = r.Dialogs, r.Messages, true
			ents = newEntities(r.Chats, r.Users)
		case *tg.MessagesDialogsSlice:
			dialogs, messages = r.Dialogs, r.Messages
			ents = newEntities(r.Chats, r.Users)
			final = len(dialogs) < dialogPageSize
		default:
			return chats, nil
		}

		var last *tg.Dialog
		added := 0
		for _, d := range dialogs {
			dlg, ok := d.(*tg.Dialog)
			if !ok {
				continue
			}
			last = dlg
			key, _ := keyOfPeer(dlg.Peer)
			if seen[key] {
				continue
			}
			chat, ok := ents.chat(dlg.Peer)
			if !ok {
				continue
			}
			seen[key] = true
			chats = append(chats, chat)
			added++
		}

		if final || last == nil || added == 0 {
			return chats, nil
		}
		req = &tg.MessagesGetDialogsRequest{
			OffsetDate: topMessageDate(messages, last),
			OffsetID:   last.TopMessage,
			OffsetPeer: ents.inputPeer(last.Peer),
			Limit:      dialogPageSize,
		}
	}
}

// ChatByID finds a dialog by marked id. A positive id that names no user
// falls back to the first dialog of any kind with that bare id.
func (s *Service) ChatByID(ctx context.Context, id int64) (*purge.Chat, error) {
	chats, err := s.Chats(ctx)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		if matchesID(chats[i], id) {
			return &chats[i], nil
		}
	}
	if id > 0 {
		for i := range chats {
			if matchesBareID(chats[i], id) {
				return &chats[i], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: id %d", purge.ErrChatNotFound, id)
}

// ChatByUsername finds a dialog by its public username.
func (s *Service) ChatByUsername(ctx context.Context, username string) (*purge.Chat, error) {
	chats, err := s.Chats(ctx)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		if chats[i].Username != "" && strings.EqualFold(chats[i].Username, username) {
			return &chats[i], nil
		}
	}
	return nil, fmt.Errorf("%w: @%s", purge.ErrChatNotFound, username)
}

// OwnMessages lists the account's messages in chat sent before the given
// time, newest first.
func (s *Service) OwnMessages(ctx context.Context, chat *purge.Chat, before time.Time) ([]purge.Message, error) {
	peer, ok := chat.Peer.(tg.InputPeerClass)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no input peer", purge.ErrChatNotFound, chat.Name)
	}

	var out []purge.Message
	offsetID := 0
	for {
		res, err := s.api.MessagesSearch(ctx, &tg.MessagesSearchRequest{
			Peer:     peer,
			FromID:   &tg.InputPeerSelf{},
			Filter:   &tg.InputMessagesFilterEmpty{},
			MaxDate:  int(before.Unix()),
			OffsetID: offsetID,
			Limit:    historyPageSize,
		})
		if err != nil {
			return out, translate(err)
		}

		page := messagesOf(res)
		minID := 0
		for _, m := range page {
			msg, ok := m.(*tg.Message)
			if !ok {
				continue
			}
			if minID == 0 || msg.ID < minID {
				minID = msg.ID
			}
			if !msg.Out {
				continue
			}
			out = append(out, toMessage(chat, msg))
		}

		if len(page) < historyPageSize || minID == 0 {
			return out, nil
		}
		offsetID = minID
	}
}

// ListOwnMessages walks every dialog allowed by filter and collects the
// account's messages older than before. A flood wait is suspended for
// exactly the requested time and the listing retried; a chat still rate
// limited after that aborts the listing. Other per-chat failures are
// logged and the chat is skipped.
func (s *Service) ListOwnMessages(ctx context.Context, before time.Time, filter purge.ChatFilter) ([]purge.Message, error) {
	chats, err := waitOutFlood(ctx, s, s.Chats)
	if err != nil {
		return nil, err
	}

	var out []purge.Message
	for i := range chats {
		chat := &chats[i]
		if !filter.Allows(chat.ID, chat.Name, chat.Type) {
			continue
		}
		msgs, err := waitOutFlood(ctx, s, func(ctx context.Context) ([]purge.Message, error) {
			return s.OwnMessages(ctx, chat, before)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			if _, limited := purge.RateLimitWait(err); limited {
				return out, fmt.Errorf("failed to list %s: %w", chat.Name, err)
			}
			s.logger.Warn("failed to list chat, skipping",
				logger.Field{Key: "chat", Value: chat.Name},
				logger.Field{Key: "error", Value: err.Error()})
			continue
		}
		if len(msgs) > 0 {
			s.logger.Debug("chat listed",
				logger.Field{Key: "chat", Value: chat.Name},
				logger.Field{Key: "messages", Value: len(msgs)})
		}
		out = append(out, msgs...)
	}
	return out, nil
}

// waitOutFlood retries fn after each flood wait it reports.
func waitOutFlood[T any](ctx context.Context, s *Service, fn func(context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, retry.Config{
		MaxAttempts: floodAttempts,
		Retryable: func(err error) bool {
			_, ok := purge.RateLimitWait(err)
			return ok
		},
		WaitFor: purge.RateLimitWait,
		Sleep:   s.sleep,
		Logger:  s.logger,
	}, fn)
}

// GetMessage re-fetches a message; nil, nil means it no longer exists.
func (s *Service) GetMessage(ctx context.Context, chat *purge.Chat, id int) (*purge.Message, error) {
	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: id}}

	var (
		res tg.MessagesMessagesClass
		err error
	)
	if ch, ok := chat.Peer.(*tg.InputPeerChannel); ok {
		res, err = s.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      ids,
		})
	} else {
		res, err = s.api.MessagesGetMessages(ctx, ids)
	}
	if err != nil {
		return nil, translate(err)
	}

	for _, m := range messagesOf(res) {
		if msg, ok := m.(*tg.Message); ok && msg.ID == id {
			out := toMessage(chat, msg)
			return &out, nil
		}
	}
	return nil, nil
}

// DeleteMessage deletes one message. Revoke applies to private chats and
// basic groups; channel deletions always apply to everyone.
func (s *Service) DeleteMessage(ctx context.Context, chat *purge.Chat, id int, revoke bool) (bool, error) {
	var (
		res *tg.MessagesAffectedMessages
		err error
	)
	if ch, ok := chat.Peer.(*tg.InputPeerChannel); ok {
		res, err = s.api.ChannelsDeleteMessages(ctx, &tg.ChannelsDeleteMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      []int{id},
		})
	} else {
		res, err = s.api.MessagesDeleteMessages(ctx, &tg.MessagesDeleteMessagesRequest{
			Revoke: revoke,
			ID:     []int{id},
		})
	}
	if err != nil {
		return false, translate(err)
	}
	return res != nil && res.PtsCount > 0, nil
}

func toMessage(chat *purge.Chat, msg *tg.Message) purge.Message {
	m := purge.Message{
		ChatID:   chat.ID,
		ChatName: chat.Name,
		ChatType: chat.Type,
		ID:       msg.ID,
		Date:     time.Unix(int64(msg.Date), 0),
		Text:     msg.Message,
		Chat:     chat,
	}
	if msg.Out {
		m.Origin = purge.OriginOwner
	}
	return m
}
