package main

import (
	"github.com/spf13/cobra"

	"github.com/aatumaykin/tgpurge/internal/config"
)

var scheduleCron string

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the purge repeatedly on a cron schedule",
	Long: `Run the full pipeline on every tick of schedule.cron (or --cron). Each
run computes its own cutoff; a tick is skipped while the previous run is still
active. Live scheduled runs do not ask for confirmation.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		deletion := applyDeletionFlags(cmd)
		cfg, log := prepare(cmd, func(cfg *config.Config) {
			deletion(cfg)
			if cmd.Flags().Changed("cron") {
				cfg.Schedule.Cron = scheduleCron
			}
		})
		defer log.Close()

		ctx, cancel := signalContext()
		defer cancel()

		exitOnError(log, newApp(cfg, log).Schedule(ctx))
	},
}

func init() {
	addSelectionFlags(scheduleCmd)
	addDeletionFlags(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "Cron expression, overrides schedule.cron")
}
