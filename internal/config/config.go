package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned before any remote contact when the
// API identifier, secret or phone number is absent.
var ErrMissingCredentials = errors.New("missing required telegram credentials")

// Load загружает конфигурацию из TOML или YAML файла.
// Пустой путь означает конфигурацию по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)
	applyEnvFallbacks(&cfg)

	return &cfg, nil
}

// Validate проверяет валидность конфигурации
func (c *Config) Validate() []error {
	var errs []error

	if c.Selection.HoursToKeep < 0 {
		errs = append(errs, &ValidationError{Field: "selection.hours_to_keep", Message: "selection.hours_to_keep must be >= 0"})
	}
	for _, kw := range c.Selection.Keywords {
		if strings.TrimSpace(kw) == "" {
			errs = append(errs, &ValidationError{Field: "selection.keywords", Message: "selection.keywords contains an empty keyword"})
			break
		}
	}

	if c.Deletion.BatchSize < 1 {
		errs = append(errs, &ValidationError{Field: "deletion.batch_size", Message: fmt.Sprintf("deletion.batch_size must be >= 1 (got %d)", c.Deletion.BatchSize)})
	}
	if c.Deletion.DelayBetweenBatches < 0 {
		errs = append(errs, &ValidationError{Field: "deletion.delay_between_batches", Message: "deletion.delay_between_batches must be >= 0"})
	}

	switch strings.ToLower(c.Source.Format) {
	case "auto", "json", "html":
	default:
		errs = append(errs, &ValidationError{Field: "source.format", Message: fmt.Sprintf("invalid source.format: %s (expected: auto, json, html)", c.Source.Format)})
	}
	if c.Source.ExportPath != "" {
		if _, err := os.Stat(c.Source.ExportPath); err != nil {
			errs = append(errs, &ValidationError{Field: "source.export_path", Message: fmt.Sprintf("source.export_path is not readable: %v", err)})
		}
	}

	switch strings.ToLower(c.Journal.Driver) {
	case "jsonl", "sqlite":
	default:
		errs = append(errs, &ValidationError{Field: "journal.driver", Message: fmt.Sprintf("invalid journal.driver: %s (expected: jsonl, sqlite)", c.Journal.Driver)})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, &ValidationError{Field: "logging.level", Message: fmt.Sprintf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level)})
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, &ValidationError{Field: "logging.format", Message: fmt.Sprintf("invalid logging.format: %s (expected: json, text)", c.Logging.Format)})
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errs = append(errs, &ValidationError{Field: "metrics.listen_addr", Message: "metrics.listen_addr is required when metrics are enabled"})
	}

	if c.Notify.Enabled {
		if c.Notify.BotToken == "" {
			errs = append(errs, &ValidationError{Field: "notify.bot_token", Message: "notify.bot_token is required when notify is enabled"})
		} else if err := validateBotToken(c.Notify.BotToken); err != nil {
			errs = append(errs, err)
		}
		if c.Notify.ChatID == 0 {
			errs = append(errs, &ValidationError{Field: "notify.chat_id", Message: "notify.chat_id is required when notify is enabled"})
		}
	}

	if c.Telegram.APIID != "" {
		if _, err := c.Telegram.AppID(); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// RequireCredentials reports every missing credential in one error wrapping
// ErrMissingCredentials. It must pass before the transport is created.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.Telegram.APIID == "" {
		missing = append(missing, "telegram.api_id")
	}
	if c.Telegram.APIHash == "" {
		missing = append(missing, "telegram.api_hash")
	}
	if c.Telegram.Phone == "" {
		missing = append(missing, "telegram.phone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	if _, err := c.Telegram.AppID(); err != nil {
		return err
	}
	return nil
}

// AppID parses the numeric API identifier.
func (t TelegramConfig) AppID() (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(t.APIID))
	if err != nil || id <= 0 {
		return 0, formatValidationError("telegram.api_id", "must be a positive integer", t.APIID)
	}
	return id, nil
}

func validateBotToken(token string) error {
	parts := strings.Split(token, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return &ValidationError{Field: "notify.bot_token", Message: fmt.Sprintf("notify.bot_token has invalid format (expected <bot_id>:<token>, got: %s)", maskTelegramToken(token))}
	}
	for _, r := range parts[0] {
		if r < '0' || r > '9' {
			return &ValidationError{Field: "notify.bot_token", Message: "notify.bot_token has invalid bot ID (expected digits only)"}
		}
	}
	return nil
}

// applyDefaults заполняет нулевые числовые значения, явно обнулённые в файле
func applyDefaults(c *Config) {
	def := Default()

	if c.Deletion.BatchSize == 0 {
		c.Deletion.BatchSize = def.Deletion.BatchSize
	}
	if c.Source.Format == "" {
		c.Source.Format = def.Source.Format
	}
	if c.Output.Dir == "" {
		c.Output.Dir = def.Output.Dir
	}
	if c.Journal.Driver == "" {
		c.Journal.Driver = def.Journal.Driver
	}
	if c.Journal.Path == "" {
		c.Journal.Path = def.Journal.Path
	}
	if c.Telegram.SessionFile == "" {
		c.Telegram.SessionFile = def.Telegram.SessionFile
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Logging.Output == "" {
		c.Logging.Output = def.Logging.Output
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = def.Metrics.Namespace
	}
}

// expandEnvVars расширяет переменные окружения в конфигурации
func expandEnvVars(c *Config) {
	for _, s := range []*string{
		&c.Telegram.APIID,
		&c.Telegram.APIHash,
		&c.Telegram.Phone,
		&c.Telegram.Password,
		&c.Telegram.SessionFile,
		&c.Notify.BotToken,
		&c.Source.ExportPath,
		&c.Output.Dir,
		&c.Journal.Path,
	} {
		*s = expandEnv(*s)
	}

	c.Telegram.SessionFile = expandHome(c.Telegram.SessionFile)
	c.Source.ExportPath = expandHome(c.Source.ExportPath)
	c.Output.Dir = expandHome(c.Output.Dir)
	c.Journal.Path = expandHome(c.Journal.Path)
}

// applyEnvFallbacks берёт учётные данные из окружения, если они не заданы в файле
func applyEnvFallbacks(c *Config) {
	fallback := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fallback(&c.Telegram.APIID, "API_ID")
	fallback(&c.Telegram.APIHash, "API_HASH")
	fallback(&c.Telegram.Phone, "PHONE_NUMBER")
	fallback(&c.Telegram.Password, "TELEGRAM_PASSWORD")

	if name := os.Getenv("SESSION_NAME"); name != "" && c.Telegram.SessionFile == expandHome(Default().Telegram.SessionFile) {
		c.Telegram.SessionFile = filepath.Join(filepath.Dir(c.Telegram.SessionFile), name+".json")
	}
}

// expandEnv расширяет переменную окружения формата ${VAR:default}
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		if val := os.Getenv(parts[0]); val != "" {
			return val
		}
		return parts[1]
	}

	return os.Getenv(content)
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
