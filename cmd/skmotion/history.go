package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"skmotion/internal/history"
)

type historyEntry struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	StopReason  string    `json:"stop_reason,omitempty"`
	Display     int       `json:"display"`
	Destination string    `json:"destination"`
	Codec       string    `json:"codec"`
	Saved       uint64    `json:"saved"`
	Skipped     uint64    `json:"skipped"`
	Dropped     uint64    `json:"dropped"`
	FileSize    int64     `json:"file_size"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at,omitzero"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make([]history.Status, 0, len(statuses))
			for _, raw := range statuses {
				status, ok := history.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (expected running, completed, interrupted or failed)", raw)
				}
				filter = append(filter, status)
			}
			return withHistory(ctx, func(store *history.Store) error {
				sessions, err := store.List(cmd.Context(), limit, filter...)
				if err != nil {
					return err
				}
				if asJSON {
					entries := make([]historyEntry, 0, len(sessions))
					for _, s := range sessions {
						entries = append(entries, toHistoryEntry(s))
					}
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No recorded sessions.")
					return nil
				}
				fmt.Fprintln(out, renderHistory(out, sessions))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of sessions to show (0 for all)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only show sessions with these statuses")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every finished session from history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d session(s).\n", removed)
				return nil
			})
		},
	})
	return cmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	if _, err := store.ReconcileStale(context.Background()); err != nil {
		return fmt.Errorf("reconcile history: %w", err)
	}
	return fn(store)
}

func renderHistory(out io.Writer, sessions []*history.Session) string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		duration := "-"
		if d := s.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortID(s.ID),
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			duration,
			string(s.Status),
			strconv.FormatUint(s.Saved, 10),
			strconv.FormatUint(s.Skipped, 10),
			humanize.IBytes(uint64(max(s.FileSize, 0))),
			s.Destination,
		})
	}
	return renderTable(out,
		[]string{"ID", "Started", "Duration", "Status", "Saved", "Skipped", "Size", "Destination"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func toHistoryEntry(s *history.Session) historyEntry {
	return historyEntry{
		ID:          s.ID,
		Status:      string(s.Status),
		StopReason:  s.StopReason,
		Display:     s.Display,
		Destination: s.Destination,
		Codec:       s.Codec,
		Saved:       s.Saved,
		Skipped:     s.Skipped,
		Dropped:     s.Dropped,
		FileSize:    s.FileSize,
		Error:       s.Error,
		StartedAt:   s.StartedAt,
		EndedAt:     s.EndedAt,
	}
}
