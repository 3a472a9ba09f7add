package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"skmotion/internal/control"
	"skmotion/internal/ipc"
	"skmotion/internal/pipeline"
)

func newCtlCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	names := make([]string, 0, len(control.Commands))
	for _, c := range control.Commands {
		names = append(names, c.Name)
	}

	cmd := &cobra.Command{
		Use:       "ctl <command>",
		Short:     "Send a command to the running recording",
		Long:      "Send a command to the running recording over its control socket.\n\n" + control.Help(),
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			line := strings.Join(args, " ")
			return ctx.withClient(func(client *ipc.Client) error {
				if asJSON && strings.EqualFold(strings.TrimSpace(line), "status") {
					status, err := client.Status()
					if err != nil {
						return err
					}
					return writeJSON(cmd, status)
				}
				reply, err := client.Command(line)
				if err != nil {
					return err
				}
				if reply.Text != "" {
					fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Print the session counters until the recording ends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				ticker := time.NewTicker(time.Second)
				defer ticker.Stop()
				for {
					status, err := client.Status()
					if err != nil {
						fmt.Fprintln(out, "Recording ended.")
						return nil
					}
					fmt.Fprintf(out, "%s  saved=%d skipped=%d similarity=%.4f%%\n",
						time.Duration(status.ElapsedMillis)*time.Millisecond, status.Saved, status.Skipped, status.Similarity*100)
					if status.Phase == pipeline.PhaseClosed.String() {
						return nil
					}
					select {
					case <-cmd.Context().Done():
						return nil
					case <-ticker.C:
					}
				}
			})
		},
	})
	return cmd
}
