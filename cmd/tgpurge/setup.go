package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/tgpurge/internal/app"
	"github.com/aatumaykin/tgpurge/internal/config"
	"github.com/aatumaykin/tgpurge/internal/constants"
	"github.com/aatumaykin/tgpurge/internal/logger"
	"github.com/aatumaykin/tgpurge/internal/notify"
	"github.com/aatumaykin/tgpurge/internal/version"
)

// selection flags shared by run, preview, guide and schedule
var (
	flagHours         int
	flagKeywords      []string
	flagCaseSensitive bool
	flagPartial       bool
	flagExport        string
	flagFormat        string
)

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flagHours, "hours", constants.DefaultHoursToKeep, "Keep messages newer than this many hours")
	cmd.Flags().StringArrayVarP(&flagKeywords, "keyword", "k", nil, "Only select messages containing this keyword (repeatable)")
	cmd.Flags().BoolVar(&flagCaseSensitive, "case-sensitive", false, "Match keywords case-sensitively")
	cmd.Flags().BoolVar(&flagPartial, "partial", false, "Match keywords inside words too")
	cmd.Flags().StringVarP(&flagExport, "export", "e", "", "Telegram Desktop export (result.json, HTML export dir); empty walks chats live")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Export format: auto, json, html")
}

// applySelectionFlags overrides config values with flags the user set.
func applySelectionFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("hours") {
		cfg.Selection.HoursToKeep = flagHours
	}
	if flags.Changed("keyword") {
		cfg.Selection.Keywords = flagKeywords
	}
	if flags.Changed("case-sensitive") {
		cfg.Selection.CaseSensitive = flagCaseSensitive
	}
	if flags.Changed("partial") {
		cfg.Selection.WholeWords = !flagPartial
	}
	if flags.Changed("export") {
		cfg.Source.ExportPath = flagExport
	}
	if flags.Changed("format") {
		cfg.Source.Format = flagFormat
	}
}

// loadConfig reads the .env file and the configuration. Without --config a
// missing ./config.toml means defaults plus environment.
func loadConfig() (*config.Config, error) {
	path := configPath
	envPath := constants.DefaultEnvPath
	if path != "" {
		envPath = filepath.Join(filepath.Dir(path), ".env")
	} else if _, err := os.Stat(constants.DefaultConfigPath); err == nil {
		path = constants.DefaultConfigPath
	}

	if err := config.LoadEnvOptional(envPath); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
	}
	return config.Load(path)
}

// prepare loads, overrides and validates the configuration and builds the
// logger. Any failure is printed and ends the process.
func prepare(cmd *cobra.Command, override func(cfg *config.Config)) (*config.Config, *logger.Logger) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf(constants.MsgConfigLoadError, err)
		os.Exit(1)
	}
	applySelectionFlags(cmd, cfg)
	if override != nil {
		override(cfg)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Print(constants.MsgConfigValidationError)
		for _, e := range errs {
			fmt.Printf(constants.MsgConfigValidatePrefix, e)
		}
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	redacted := cfg.Redacted()
	log.Info("🚀 Starting tgpurge",
		logger.Field{Key: "version", Value: version.Version},
		logger.Field{Key: "command", Value: cmd.Name()},
		logger.Field{Key: "phone", Value: redacted.Telegram.Phone},
		logger.Field{Key: "dry_run", Value: cfg.Deletion.DryRun},
		logger.Field{Key: "export", Value: cfg.Source.ExportPath})
	return cfg, log
}

// newApp builds the application with the optional notifier.
func newApp(cfg *config.Config, log *logger.Logger) *app.App {
	var opts []app.Option
	if cfg.Notify.Enabled {
		n, err := notify.New(cfg.Notify.BotToken, cfg.Notify.ChatID, log)
		if err != nil {
			log.Error("notifications disabled", err)
		} else {
			opts = append(opts, app.WithNotifier(n))
		}
	}
	return app.New(cfg, log, opts...)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// exitOnError prints err and exits. Cancellation is not a failure: the
// summary has already been printed.
func exitOnError(log *logger.Logger, err error) {
	if err == nil || isCancel(err) {
		return
	}
	log.Error("run failed", err)
	fmt.Printf(constants.MsgRunFailed, err)
	_ = log.Close()
	os.Exit(1)
}
