package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"skmotion/internal/deps"
	"skmotion/internal/media"
	"skmotion/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run recording preflight checks and report dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			codec, err := media.ParseCodec(cfg.Recording.Codec)
			if err != nil {
				return fmt.Errorf("recording.codec: %w", err)
			}
			out := cmd.OutOrStdout()

			results := ctx.deps.Preflight(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				state := "ok"
				if !r.Passed {
					state = "FAIL"
				}
				rows = append(rows, []string{r.Name, state, r.Detail})
			}
			fmt.Fprintln(out, "Preflight")
			fmt.Fprintln(out, renderTable(out, []string{"Check", "Result", "Detail"}, rows, nil))

			statuses := append(deps.CheckEncoders(codec, ctx.deps.Encoders), deps.CheckBinaries(deps.Requirements())...)
			rows = rows[:0]
			for _, s := range statuses {
				state := "available"
				switch {
				case !s.Available && s.Optional:
					state = "missing (optional)"
				case !s.Available:
					state = "MISSING"
				}
				detail := s.Description
				if s.Detail != "" {
					detail += ": " + s.Detail
				}
				rows = append(rows, []string{s.Name, state, detail})
			}
			fmt.Fprintln(out, "\nDependencies")
			fmt.Fprintln(out, renderTable(out, []string{"Dependency", "Status", "Detail"}, rows, nil))

			var problems []error
			if err := preflight.Failed(results); err != nil {
				problems = append(problems, err)
			}
			for _, s := range deps.Missing(statuses) {
				problems = append(problems, fmt.Errorf("%s unavailable", s.Name))
			}
			return errors.Join(problems...)
		},
	}
}
