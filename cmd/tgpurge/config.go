package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/tgpurge/internal/config"
	"github.com/aatumaykin/tgpurge/internal/constants"
	"github.com/aatumaykin/tgpurge/internal/logger"
	"github.com/aatumaykin/tgpurge/internal/schedule"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate and inspect tgpurge configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file and check for errors, credentials included.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log, err := logger.New(logger.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}

		if len(args) > 0 {
			configPath = args[0]
		}
		log.Info("Validating configuration", logger.Field{Key: "path", Value: configPath})

		cfg, err := loadConfig()
		if err != nil {
			log.Error("Failed to load config", err)
			os.Exit(1)
		}

		errs := validateAll(cfg)
		if len(errs) > 0 {
			log.Error("Config validation failed", fmt.Errorf("%d errors", len(errs)))
			for _, e := range errs {
				log.Error("Validation error", e)
			}
			os.Exit(1)
		}

		fmt.Print(constants.MsgConfigValid)
	},
}

// validateAll adds the checks that only matter for a full run.
func validateAll(cfg *config.Config) []error {
	errs := cfg.Validate()
	if err := cfg.RequireCredentials(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Schedule.Cron != "" {
		if err := schedule.Validate(cfg.Schedule.Cron); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// configShowCmd prints the effective configuration with secrets masked
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf(constants.MsgConfigLoadError, err)
			os.Exit(1)
		}
		if err := toml.NewEncoder(os.Stdout).Encode(cfg.Redacted()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to print config: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}
