package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tgpurge",
	Short: "tgpurge - bulk delete your old Telegram messages",
	Long: `tgpurge finds your own outgoing Telegram messages older than a retention
window (optionally matching keywords), either in a Telegram Desktop export or
by walking your chats, and deletes them in paced batches. Dry run is the default.`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: ./config.toml if present)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(guideCmd)
	rootCmd.AddCommand(scheduleCmd)
}
