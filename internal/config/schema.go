// Package config provides configuration loading and validation for tgpurge.
// It supports TOML (and YAML) configuration files with environment variable
// expansion, default values, and validation that reports every problem at once.
//
// Configuration structure:
//   - [telegram]: MTProto credentials and session file
//   - [selection]: retention window, keywords and chat filters
//   - [deletion]: batch size, pacing and dry-run switch
//   - [source]: export file (empty = live directory traversal)
//   - [output]: directory for preview, error and guide files
//   - [journal]: append-only attempt journal (jsonl or sqlite)
//   - [logging]: logging level, format, and output
//   - [metrics]: prometheus listener
//   - [notify]: bot that receives the run summary
//   - [schedule]: cron expression for recurring runs
//
// Environment variables:
// Values can reference ${VAR} or ${VAR:default}. When no config file is present,
// credentials fall back to API_ID, API_HASH, PHONE_NUMBER and SESSION_NAME.
package config

import (
	"time"

	"github.com/aatumaykin/tgpurge/internal/constants"
)

// Config represents the main application configuration.
type Config struct {
	Telegram  TelegramConfig  `toml:"telegram" yaml:"telegram"`
	Selection SelectionConfig `toml:"selection" yaml:"selection"`
	Deletion  DeletionConfig  `toml:"deletion" yaml:"deletion"`
	Source    SourceConfig    `toml:"source" yaml:"source"`
	Output    OutputConfig    `toml:"output" yaml:"output"`
	Journal   JournalConfig   `toml:"journal" yaml:"journal"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `toml:"metrics" yaml:"metrics"`
	Notify    NotifyConfig    `toml:"notify" yaml:"notify"`
	Schedule  ScheduleConfig  `toml:"schedule" yaml:"schedule"`
}

// TelegramConfig представляет учётные данные MTProto аккаунта
type TelegramConfig struct {
	APIID       string `toml:"api_id" yaml:"api_id"`
	APIHash     string `toml:"api_hash" yaml:"api_hash"`
	Phone       string `toml:"phone" yaml:"phone"`
	Password    string `toml:"password" yaml:"password"`
	SessionFile string `toml:"session_file" yaml:"session_file"`
}

// SelectionConfig представляет правила отбора сообщений
type SelectionConfig struct {
	HoursToKeep      int      `toml:"hours_to_keep" yaml:"hours_to_keep"`
	Keywords         []string `toml:"keywords" yaml:"keywords"`
	CaseSensitive    bool     `toml:"case_sensitive" yaml:"case_sensitive"`
	WholeWords       bool     `toml:"whole_words" yaml:"whole_words"`
	OwnerID          int64    `toml:"owner_id" yaml:"owner_id"`
	OwnerName        string   `toml:"owner_name" yaml:"owner_name"`
	IncludeChatTypes []string `toml:"include_chat_types" yaml:"include_chat_types"`
	ExcludeChats     []string `toml:"exclude_chats" yaml:"exclude_chats"`
}

// Retention returns the retention window as a duration.
func (s SelectionConfig) Retention() time.Duration {
	return time.Duration(s.HoursToKeep) * time.Hour
}

// DeletionConfig представляет параметры пакетного удаления
type DeletionConfig struct {
	BatchSize           int     `toml:"batch_size" yaml:"batch_size"`
	DelayBetweenBatches float64 `toml:"delay_between_batches" yaml:"delay_between_batches"`
	DryRun              bool    `toml:"dry_run" yaml:"dry_run"`
	Revoke              bool    `toml:"revoke" yaml:"revoke"`
}

// Delay returns the inter-batch pause.
func (d DeletionConfig) Delay() time.Duration {
	return time.Duration(d.DelayBetweenBatches * float64(time.Second))
}

// SourceConfig описывает источник сообщений
type SourceConfig struct {
	ExportPath string `toml:"export_path" yaml:"export_path"`
	Format     string `toml:"format" yaml:"format"` // auto, json, html
}

// Live reports whether messages come from live directory traversal.
func (s SourceConfig) Live() bool {
	return s.ExportPath == ""
}

// OutputConfig представляет каталог для отчётов
type OutputConfig struct {
	Dir string `toml:"dir" yaml:"dir"`
}

// JournalConfig представляет конфигурацию журнала попыток удаления
type JournalConfig struct {
	Driver string `toml:"driver" yaml:"driver"` // jsonl, sqlite
	Path   string `toml:"path" yaml:"path"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	Output string `toml:"output" yaml:"output"`
}

// MetricsConfig представляет prometheus listener
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled" yaml:"enabled"`
	ListenAddr string `toml:"listen_addr" yaml:"listen_addr"`
	Namespace  string `toml:"namespace" yaml:"namespace"`
}

// NotifyConfig представляет бота для отправки итогов
type NotifyConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	BotToken string `toml:"bot_token" yaml:"bot_token"`
	ChatID   int64  `toml:"chat_id" yaml:"chat_id"`
}

// ScheduleConfig представляет расписание повторяющихся запусков
type ScheduleConfig struct {
	Cron string `toml:"cron" yaml:"cron"`
}

// Default returns the configuration used when a key is absent from the file.
// Live deletion is always an explicit opt-in: DryRun starts true.
func Default() Config {
	return Config{
		Telegram: TelegramConfig{
			SessionFile: constants.DefaultSessionFile,
		},
		Selection: SelectionConfig{
			HoursToKeep:   constants.DefaultHoursToKeep,
			CaseSensitive: constants.DefaultCaseSensitive,
			WholeWords:    constants.DefaultWholeWords,
		},
		Deletion: DeletionConfig{
			BatchSize:           constants.DefaultBatchSize,
			DelayBetweenBatches: constants.DefaultDelayBetweenBatches.Seconds(),
			DryRun:              true,
			Revoke:              true,
		},
		Source: SourceConfig{
			Format: "auto",
		},
		Output: OutputConfig{
			Dir: constants.DefaultOutputDir,
		},
		Journal: JournalConfig{
			Driver: "jsonl",
			Path:   constants.DefaultLogsDir,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9464",
			Namespace:  constants.DefaultMetricsNamespace,
		},
	}
}
