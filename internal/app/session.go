package app

import (
	"context"
	"io"
	"time"

	"github.com/aatumaykin/tgpurge/internal/config"
	"github.com/aatumaykin/tgpurge/internal/logger"
	"github.com/aatumaykin/tgpurge/internal/purge"
	"github.com/aatumaykin/tgpurge/internal/telegram"
)

// Session is a logged-in account: it lists chats and messages and deletes them.
type Session interface {
	purge.Transport
	purge.Directory
	ListOwnMessages(ctx context.Context, before time.Time, filter purge.ChatFilter) ([]purge.Message, error)
}

var _ Session = (*telegram.Service)(nil)

// Connector opens a Session for the duration of fn.
type Connector func(ctx context.Context, fn func(ctx context.Context, s Session) error) error

// TelegramConnector logs in with the credentials from cfg. The login code,
// when one is needed, is read from in.
func TelegramConnector(cfg *config.Config, log *logger.Logger, in io.Reader, out io.Writer) Connector {
	return func(ctx context.Context, fn func(ctx context.Context, s Session) error) error {
		appID, err := cfg.Telegram.AppID()
		if err != nil {
			return err
		}
		return telegram.Run(ctx, telegram.Config{
			AppID:       appID,
			AppHash:     cfg.Telegram.APIHash,
			Phone:       cfg.Telegram.Phone,
			Password:    cfg.Telegram.Password,
			SessionFile: cfg.Telegram.SessionFile,
			CodePrompt:  telegram.PromptFrom(in, out),
			Logger:      log,
		}, func(ctx context.Context, svc *telegram.Service) error {
			return fn(ctx, svc)
		})
	}
}

// withSession calls fn inside a live session when need is set and with a
// nil session otherwise. Credentials are checked before any remote contact.
func (a *App) withSession(ctx context.Context, need bool, fn func(ctx context.Context, s Session) error) error {
	if !need {
		return fn(ctx, nil)
	}
	if err := a.config.RequireCredentials(); err != nil {
		return err
	}
	return a.connect(ctx, fn)
}
