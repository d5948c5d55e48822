package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/autopermit/internal/config"
	"github.com/xkilldash9x/autopermit/internal/observability"
	"github.com/xkilldash9x/autopermit/internal/schedule"
)

func newUnscheduleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unschedule",
		Short: "Remove the scheduled permit renewal",
		Long: `unschedule deletes the task that runs autopermit again when the
current permit expires. No config file is needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			observability.InitializeLogger(config.DefaultLoggerConfig(), opts.verbose)
			logger := observability.GetLogger()

			scheduler, err := newScheduler(logger)
			if err != nil {
				return err
			}
			if err := scheduler.Unregister(cmd.Context(), schedule.TaskName); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted scheduled task %s.\n", schedule.TaskName)
			return nil
		},
	}
}
