package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"truvideo/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var raw bool
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "truvideo.log")
			out := cmd.OutOrStdout()
			emit := func(rec logs.Record) {
				if raw {
					fmt.Fprintln(out, rec.Raw)
					return
				}
				fmt.Fprintln(out, rec.String())
			}

			records, offset, err := logs.Last(path, lines, filter)
			if err != nil {
				return err
			}
			for _, rec := range records {
				emit(rec)
			}
			if !follow {
				return nil
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return logs.Follow(sigCtx, path, offset, 500*time.Millisecond, filter, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of records to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new records")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON lines unmodified")
	cmd.Flags().StringVar(&filter.SessionID, "session", "", "Only records for this session ID")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only records from this component")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level (debug, info, warn, error)")
	return cmd
}
