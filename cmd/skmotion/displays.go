package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newDisplaysCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "displays",
		Short:       "List connected displays",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return listDisplays(cmd, ctx)
		},
	}
}

func listDisplays(cmd *cobra.Command, ctx *commandContext) error {
	displays, err := ctx.deps.Source.Displays()
	if err != nil {
		return fmt.Errorf("list displays: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(displays) == 0 {
		fmt.Fprintln(out, "No displays found.")
		return nil
	}
	rows := make([][]string, 0, len(displays))
	for _, d := range displays {
		rows = append(rows, []string{
			strconv.Itoa(d.Index),
			strconv.Itoa(d.Width),
			strconv.Itoa(d.Height),
		})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Index", "Width", "Height"}, rows,
		[]columnAlignment{alignRight, alignRight, alignRight}))
	return nil
}
