package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/tgpurge/internal/app"
	"github.com/aatumaykin/tgpurge/internal/config"
	"github.com/aatumaykin/tgpurge/internal/constants"
)

var (
	runExecute   bool
	runYes       bool
	runBatchSize int
	runDelay     float64
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Select and delete old messages",
	Long: `Select your messages older than the retention window, write a preview
CSV and delete them in batches. Without --execute this is a dry run: nothing is
deleted and every candidate is reported as skipped.`,
	Args: cobra.NoArgs,
	Run:  runHandler,
}

func runHandler(cmd *cobra.Command, args []string) {
	cfg, log := prepare(cmd, applyDeletionFlags(cmd))
	defer log.Close()

	ctx, cancel := signalContext()
	defer cancel()

	a := newApp(cfg, log)
	err := a.Serve(ctx, func(ctx context.Context) error {
		_, err := a.Run(ctx, app.RunOptions{AssumeYes: runYes})
		return err
	})
	exitOnError(log, err)
}

// applyDeletionFlags returns the override for the deletion flags of cmd.
func applyDeletionFlags(cmd *cobra.Command) func(cfg *config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("execute") {
			cfg.Deletion.DryRun = !runExecute
		}
		if flags.Changed("batch-size") {
			cfg.Deletion.BatchSize = runBatchSize
		}
		if flags.Changed("delay") {
			cfg.Deletion.DelayBetweenBatches = runDelay
		}
	}
}

func addDeletionFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&runExecute, "execute", false, "Really delete messages (default is a dry run)")
	cmd.Flags().IntVar(&runBatchSize, "batch-size", constants.DefaultBatchSize, "Messages per batch")
	cmd.Flags().Float64Var(&runDelay, "delay", constants.DefaultDelayBetweenBatches.Seconds(), "Seconds to wait between batches")
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled)
}

func init() {
	addSelectionFlags(runCmd)
	addDeletionFlags(runCmd)
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Skip the confirmation prompt in live mode")
}
