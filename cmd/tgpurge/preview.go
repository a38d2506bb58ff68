package main

import (
	"github.com/spf13/cobra"
)

// previewCmd represents the preview command
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "List deletion candidates without deleting",
	Long: `Select candidates, write the preview CSV and print a keyword summary:
matches per keyword, date range and the chats with most matches.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := prepare(cmd, nil)
		defer log.Close()

		ctx, cancel := signalContext()
		defer cancel()

		_, err := newApp(cfg, log).Preview(ctx)
		exitOnError(log, err)
	},
}

// guideCmd represents the guide command
var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Write a markdown checklist for manual deletion",
	Long: `Select candidates and write the preview CSV together with a markdown
guide grouping them by chat, with a few example texts per chat.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := prepare(cmd, nil)
		defer log.Close()

		ctx, cancel := signalContext()
		defer cancel()

		_, err := newApp(cfg, log).Guide(ctx)
		exitOnError(log, err)
	},
}

func init() {
	addSelectionFlags(previewCmd)
	addSelectionFlags(guideCmd)
}
