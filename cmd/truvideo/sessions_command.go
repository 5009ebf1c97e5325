package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"truvideo/internal/history"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}
			fmt.Fprintln(out, renderSessionsTable(sessions))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to list")
	cmd.AddCommand(newSessionShowCommand(ctx))
	cmd.AddCommand(newSessionsClearCommand(ctx))
	return cmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session and its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			session, err := store.Get(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if session == nil {
				return fmt.Errorf("session %s not found", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:   %s\n", session.ID)
			fmt.Fprintf(out, "State:     %s\n", session.State)
			fmt.Fprintf(out, "Started:   %s\n", formatTimestamp(session.StartedAt))
			fmt.Fprintf(out, "Recorded:  %s\n", formatDuration(session.Recorded()))
			if session.FinalPath != "" {
				fmt.Fprintf(out, "Output:    %s (%s)\n", session.FinalPath, formatDuration(session.FinalDuration))
			}
			fmt.Fprintf(out, "Uploaded:  %s\n", yesNo(session.Uploaded))
			if session.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:     %s\n", session.ErrorMessage)
			}
			if len(session.Segments) > 0 {
				rows := make([][]string, 0, len(session.Segments))
				for _, seg := range session.Segments {
					rows = append(rows, []string{
						strconv.Itoa(seg.Index),
						formatDuration(seg.Duration),
						seg.Path,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Duration", "Path"}, rows, []columnAlignment{alignRight, alignRight, alignLeft}))
			}
			return nil
		},
	}
}

func newSessionsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all session history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d session(s)\n", removed)
			return nil
		},
	}
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg)
}

func renderSessionsTable(sessions []*history.Session) string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.ID,
			string(s.State),
			formatTimestamp(s.StartedAt),
			strconv.Itoa(s.SegmentCount),
			formatDuration(s.FinalDuration),
			yesNo(s.Uploaded),
			truncate(s.ErrorMessage, 48),
		})
	}
	headers := []string{"ID", "State", "Started", "Segments", "Length", "Uploaded", "Error"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}
	return renderTable(headers, rows, aligns)
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
