package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	return newRoot(commandDeps{})
}

func newRoot(deps commandDeps) *cobra.Command {
	var socketFlag string
	var configFlag string

	ctx := newCommandContext(&socketFlag, &configFlag, deps)
	flags := &recordFlags{}

	rootCmd := &cobra.Command{
		Use:   "skmotion [OUTPUT]",
		Short: "Record a display only when there is motion on it",
		Long: "skmotion records the frames of a display only when they differ from the last\n" +
			"saved frame, producing a compact time-lapse of screen activity.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, args, ctx, flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Path to the recording control socket")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.bind(rootCmd)

	rootCmd.AddCommand(newRecordCommand(ctx))
	rootCmd.AddCommand(newDisplaysCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newCtlCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}
