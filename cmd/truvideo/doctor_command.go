package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"truvideo/internal/config"
	"truvideo/internal/deps"
	"truvideo/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies, directories, and the upload endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.configSeen {
				fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			} else {
				fmt.Fprintf(out, "Config: defaults (no file at %s)\n", ctx.configPath)
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			fmt.Fprintln(out, renderPreflightTable(results))
			printToolVersions(cmd.Context(), out, cfg)

			if blocking := preflight.Blocking(results); len(blocking) > 0 {
				return preflightError(blocking)
			}
			return nil
		},
	}
}

func renderPreflightTable(results []preflight.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Name, preflightStatus(r), r.Detail})
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil)
}

func preflightStatus(r preflight.Result) string {
	switch {
	case r.Passed:
		return "ok"
	case r.Advisory:
		return "warn"
	default:
		return "fail"
	}
}

func printToolVersions(ctx context.Context, out io.Writer, cfg *config.Config) {
	statuses := preflight.CheckSystemDeps(cfg)
	missing := make(map[string]struct{})
	for _, status := range deps.MissingRequired(statuses) {
		missing[status.Name] = struct{}{}
	}
	for _, status := range statuses {
		if _, ok := missing[status.Name]; ok {
			fmt.Fprintf(out, "%s: not installed (%s)\n", status.Command, status.Description)
			continue
		}
		banner, err := deps.Version(ctx, status.Path)
		if err != nil {
			fmt.Fprintf(out, "%s: unavailable (%v)\n", status.Command, err)
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", status.Command, deps.ShortVersion(banner))
	}
}
