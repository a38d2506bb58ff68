package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gotd/td/session"
	gotelegram "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	"github.com/aatumaykin/tgpurge/internal/logger"
)

// CodePrompt asks the user for the login code sent by Telegram.
type CodePrompt func(ctx context.Context) (string, error)

// Config holds the account credentials.
type Config struct {
	AppID       int
	AppHash     string
	Phone       string
	Password    string // 2FA, optional
	SessionFile string
	CodePrompt  CodePrompt
	Logger      *logger.Logger
}

// Run connects, logs in when the stored session is missing or expired, and
// calls fn with a Service bound to the account. The connection is closed
// when fn returns.
func Run(ctx context.Context, cfg Config, fn func(ctx context.Context, svc *Service) error) error {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.CodePrompt == nil {
		return errors.New("telegram: code prompt is required")
	}
	if cfg.SessionFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.SessionFile), 0700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	client := gotelegram.NewClient(cfg.AppID, cfg.AppHash, gotelegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionFile},
	})

	return client.Run(ctx, func(ctx context.Context) error {
		codeAuth := auth.CodeAuthenticatorFunc(func(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
			return cfg.CodePrompt(ctx)
		})
		flow := auth.NewFlow(auth.Constant(cfg.Phone, cfg.Password, codeAuth), auth.SendCodeOptions{})
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("telegram auth failed: %w", err)
		}

		cfg.Logger.Info("connected to telegram", logger.Field{Key: "session", Value: cfg.SessionFile})
		return fn(ctx, NewService(client.API(), cfg.Logger))
	})
}

// PromptFrom reads the login code from in after printing a hint to out. A
// *bufio.Reader is used as is, so later prompts on it see the remaining input.
func PromptFrom(in io.Reader, out io.Writer) CodePrompt {
	reader := bufio.NewReader(in)
	return func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(out, "Enter the code Telegram sent you: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read login code: %w", err)
		}
		code := strings.TrimSpace(line)
		if code == "" {
			return "", errors.New("empty login code")
		}
		return code, nil
	}
}
