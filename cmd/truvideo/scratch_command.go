package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"truvideo/internal/config"
	"truvideo/internal/history"
	"truvideo/internal/scratch"
)

const defaultScratchMaxAge = 7 * 24 * time.Hour

func newScratchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scratch",
		Short: "List segment files and the merged export in the scratch directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entries, err := scratch.List(cfg.Paths.ScratchDir, filepath.Base(cfg.FinalOutputPath()))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "Scratch directory %s is empty\n", cfg.Paths.ScratchDir)
				return nil
			}
			rows := make([][]string, 0, len(entries))
			var total int64
			for _, e := range entries {
				rows = append(rows, []string{e.Name, string(e.Kind), formatBytes(e.Size), formatTimestamp(e.ModTime)})
				total += e.Size
			}
			fmt.Fprintln(out, tableView{
				headers: []string{"File", "Kind", "Size", "Modified"},
				aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				rows:    rows,
				footer:  []string{cfg.Paths.ScratchDir, fmt.Sprintf("%d file(s)", len(entries)), formatBytes(total)},
			}.render())
			return nil
		},
	}

	cmd.AddCommand(newScratchCleanCommand(ctx))
	cmd.AddCommand(newScratchSaveCommand(ctx))
	return cmd
}

func newScratchCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var keepFailed bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove old segment files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			var keep map[string]struct{}
			if keepFailed {
				if keep, err = failedSegmentSet(cmd, cfg); err != nil {
					return err
				}
			}
			result := scratch.CleanStale(cmd.Context(), cfg.Paths.ScratchDir, olderThan, keep, logger)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d segment file(s), freed %s\n", len(result.Removed), formatBytes(result.Freed))
			for _, e := range result.Errors {
				fmt.Fprintln(out, renderStatusLine("Cleanup", statusWarn, fmt.Sprintf("%s: %v", e.Path, e.Error), shouldColorize(out)))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", defaultScratchMaxAge, "Only remove segments last modified before this age")
	cmd.Flags().BoolVar(&keepFailed, "keep-failed", true, "Keep segments of failed or interrupted sessions")
	return cmd
}

func newScratchSaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save <destination>",
		Short: "Copy the merged export out of scratch before the next session replaces it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dst, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve destination: %w", err)
			}
			src := cfg.FinalOutputPath()
			if err := scratch.Save(src, dst); err != nil {
				return fmt.Errorf("save merged export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", src, dst)
			return nil
		},
	}
}

// failedSegmentSet collects segments of sessions that never produced an export.
func failedSegmentSet(cmd *cobra.Command, cfg *config.Config) (map[string]struct{}, error) {
	store, err := history.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return retainedSegments(cmd.Context(), store)
}

func retainedSegments(ctx context.Context, store *history.Store) (map[string]struct{}, error) {
	paths, err := store.SegmentPaths(ctx, history.StateFailed, history.StateInterrupted)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		keep[p] = struct{}{}
	}
	return keep, nil
}
