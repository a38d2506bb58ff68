package config

import (
	"strings"
)

// maskSecret маскирует секрет, оставляя только первые 4 и последние 4 символа
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) < 8 {
		return "***"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// maskTelegramToken маскирует токен бота, оставляя bot_id видимым для диагностики
func maskTelegramToken(token string) string {
	botID, secret, ok := strings.Cut(token, ":")
	if !ok {
		return maskSecret(token)
	}
	return botID + ":" + maskSecret(secret)
}

// maskPhone оставляет код страны и две последние цифры
func maskPhone(phone string) string {
	if len(phone) <= 5 {
		return "***"
	}
	return phone[:3] + strings.Repeat("*", len(phone)-5) + phone[len(phone)-2:]
}

// Redacted returns a copy safe to log: credentials and tokens are masked.
func (c Config) Redacted() Config {
	c.Telegram.APIHash = maskSecret(c.Telegram.APIHash)
	c.Telegram.Phone = maskPhone(c.Telegram.Phone)
	if c.Telegram.Password != "" {
		c.Telegram.Password = "***"
	}
	c.Notify.BotToken = maskTelegramToken(c.Notify.BotToken)
	return c
}

// formatValidationError форматирует ошибку валидации с маскированным значением
func formatValidationError(field, message string, secret string) error {
	errorMsg := field + ": " + message
	if secret != "" {
		errorMsg += " (value: " + maskSecret(secret) + ")"
	}
	return &ValidationError{Field: field, Message: errorMsg}
}

// ValidationError представляет ошибку валидации с дополнительной информацией
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
