// Package notify delivers the run summary to a Telegram chat through a bot.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mymmrac/telego"

	"github.com/aatumaykin/tgpurge/internal/logger"
)

// maxMessageLength is the Bot API limit for one text message.
const maxMessageLength = 4096

const sendTimeout = 15 * time.Second

// BotInterface is the part of telego.Bot the notifier needs.
type BotInterface interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

var _ BotInterface = (*telego.Bot)(nil)

// Notifier sends plain-text reports to one chat.
type Notifier struct {
	bot    BotInterface
	chatID int64
	logger *logger.Logger
}

// New creates a notifier backed by a real bot.
func New(token string, chatID int64, log *logger.Logger) (*Notifier, error) {
	if chatID == 0 {
		return nil, errors.New("notify: chat id is required")
	}
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	return NewWithBot(bot, chatID, log), nil
}

// NewWithBot creates a notifier over any BotInterface.
func NewWithBot(bot BotInterface, chatID int64, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{bot: bot, chatID: chatID, logger: log}
}

// Send delivers text, split into parts when it exceeds the message limit.
func (n *Notifier) Send(ctx context.Context, text string) error {
	for i, part := range split(text, maxMessageLength) {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		_, err := n.bot.SendMessage(sendCtx, &telego.SendMessageParams{
			ChatID: telego.ChatID{ID: n.chatID},
			Text:   part,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("failed to send notification part %d: %w", i+1, err)
		}
	}
	n.logger.Debug("notification sent", logger.Field{Key: "chat_id", Value: n.chatID})
	return nil
}

// split cuts s into chunks of at most limit runes, preferring line breaks.
func split(s string, limit int) []string {
	if s == "" {
		return nil
	}
	var parts []string
	for utf8.RuneCountInString(s) > limit {
		cut := byteOffset(s, limit)
		if nl := lastNewline(s[:cut]); nl > 0 {
			cut = nl + 1
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

func byteOffset(s string, runes int) int {
	n := 0
	for i := range s {
		if n == runes {
			return i
		}
		n++
	}
	return len(s)
}

func lastNewline(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return i
		}
	}
	return -1
}
