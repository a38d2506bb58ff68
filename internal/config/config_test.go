package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"API_ID", "API_HASH", "PHONE_NUMBER", "TELEGRAM_PASSWORD", "SESSION_NAME"} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearCredentialEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Selection.HoursToKeep)
	assert.False(t, cfg.Selection.CaseSensitive)
	assert.True(t, cfg.Selection.WholeWords)
	assert.Empty(t, cfg.Selection.Keywords)
	assert.Equal(t, 100, cfg.Deletion.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Deletion.Delay())
	assert.True(t, cfg.Deletion.DryRun)
	assert.True(t, cfg.Deletion.Revoke)
	assert.True(t, cfg.Source.Live())
	assert.Equal(t, "jsonl", cfg.Journal.Driver)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_TOML(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("TG_HASH", "0123456789abcdef")

	path := writeFile(t, "config.toml", `
[telegram]
api_id = "12345"
api_hash = "${TG_HASH}"
phone = "${TG_PHONE:+10000000000}"

[selection]
hours_to_keep = 48
keywords = ["password", "token"]
whole_words = false

[deletion]
batch_size = 20
delay_between_batches = 0.5
dry_run = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0123456789abcdef", cfg.Telegram.APIHash)
	assert.Equal(t, "+10000000000", cfg.Telegram.Phone)
	assert.Equal(t, 48*time.Hour, cfg.Selection.Retention())
	assert.Equal(t, []string{"password", "token"}, cfg.Selection.Keywords)
	assert.False(t, cfg.Selection.WholeWords)
	assert.Equal(t, 20, cfg.Deletion.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Deletion.Delay())
	assert.False(t, cfg.Deletion.DryRun)
	assert.True(t, cfg.Deletion.Revoke, "keys absent from the file keep their defaults")

	id, err := cfg.Telegram.AppID()
	require.NoError(t, err)
	assert.Equal(t, 12345, id)
	assert.NoError(t, cfg.RequireCredentials())
}

func TestLoad_YAML(t *testing.T) {
	clearCredentialEnv(t)

	path := writeFile(t, "config.yaml", `
selection:
  hours_to_keep: 6
  keywords: [secret]
deletion:
  batch_size: 5
journal:
  driver: sqlite
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Selection.HoursToKeep)
	assert.Equal(t, []string{"secret"}, cfg.Selection.Keywords)
	assert.Equal(t, 5, cfg.Deletion.BatchSize)
	assert.Equal(t, "sqlite", cfg.Journal.Driver)
	assert.True(t, cfg.Deletion.DryRun)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "[deletion\nbatch_size = "))
	assert.Error(t, err)
}

func TestLoad_EnvFallbacks(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("API_ID", "777")
	t.Setenv("API_HASH", "hash-hash-hash")
	t.Setenv("PHONE_NUMBER", "+15550001111")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "777", cfg.Telegram.APIID)
	assert.Equal(t, "hash-hash-hash", cfg.Telegram.APIHash)
	assert.Equal(t, "+15550001111", cfg.Telegram.Phone)
	assert.NoError(t, cfg.RequireCredentials())
}

func TestRequireCredentials_Missing(t *testing.T) {
	cfg := Default()
	cfg.Telegram.APIID = "42"

	err := cfg.RequireCredentials()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.Contains(t, err.Error(), "telegram.api_hash")
	assert.Contains(t, err.Error(), "telegram.phone")
	assert.NotContains(t, err.Error(), "telegram.api_id")
}

func TestRequireCredentials_BadAppID(t *testing.T) {
	cfg := Default()
	cfg.Telegram = TelegramConfig{APIID: "not-a-number", APIHash: "h", Phone: "p"}

	err := cfg.RequireCredentials()
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "telegram.api_id", vErr.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"batch size", func(c *Config) { c.Deletion.BatchSize = -1 }, "deletion.batch_size"},
		{"negative delay", func(c *Config) { c.Deletion.DelayBetweenBatches = -1 }, "deletion.delay_between_batches"},
		{"negative hours", func(c *Config) { c.Selection.HoursToKeep = -3 }, "selection.hours_to_keep"},
		{"empty keyword", func(c *Config) { c.Selection.Keywords = []string{"ok", "  "} }, "selection.keywords"},
		{"source format", func(c *Config) { c.Source.Format = "csv" }, "source.format"},
		{"missing export", func(c *Config) { c.Source.ExportPath = "/nonexistent/result.json" }, "source.export_path"},
		{"journal driver", func(c *Config) { c.Journal.Driver = "mongo" }, "journal.driver"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"metrics addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.ListenAddr = "" }, "metrics.listen_addr"},
		{"notify token", func(c *Config) { c.Notify.Enabled = true; c.Notify.ChatID = 1; c.Notify.BotToken = "abc" }, "notify.bot_token"},
		{"notify chat", func(c *Config) { c.Notify.Enabled = true; c.Notify.BotToken = "123456:ABCDEFGHIJKLMNOP" }, "notify.chat_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			errs := cfg.Validate()
			require.Len(t, errs, 1)
			var vErr *ValidationError
			require.ErrorAs(t, errs[0], &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Telegram.APIHash = "0123456789abcdef"
	cfg.Telegram.Phone = "+15550001111"
	cfg.Telegram.Password = "hunter2"
	cfg.Notify.BotToken = "123456:ABCDEFGHIJKLMNOP"

	r := cfg.Redacted()
	assert.Equal(t, "0123********cdef", r.Telegram.APIHash)
	assert.Equal(t, "+15*******11", r.Telegram.Phone)
	assert.Equal(t, "***", r.Telegram.Password)
	assert.Equal(t, "123456:ABCD********MNOP", r.Notify.BotToken)
	assert.Equal(t, "0123456789abcdef", cfg.Telegram.APIHash, "original is untouched")
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TGP_SET", "value")

	assert.Equal(t, "value", expandEnv("${TGP_SET}"))
	assert.Equal(t, "value", expandEnv("${TGP_SET:fallback}"))
	assert.Equal(t, "fallback", expandEnv("${TGP_UNSET_VAR:fallback}"))
	assert.Equal(t, "plain", expandEnv("plain"))
	assert.Equal(t, "${broken", expandEnv("${broken"))
}
