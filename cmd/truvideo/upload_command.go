package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"truvideo/internal/config"
	"truvideo/internal/upload"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload a merged file to the delivery endpoint",
		Long: `Upload a merged file to the delivery endpoint.

Without an argument the last merged output in the scratch directory is sent.
Use this to retry a session whose upload failed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			path := cfg.FinalOutputPath()
			if len(args) == 1 {
				path, err = config.ExpandPath(args[0])
				if err != nil {
					return fmt.Errorf("resolve upload path: %w", err)
				}
			}
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("upload source: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("upload source %s is a directory", path)
			}

			client := upload.New(cfg, logger)
			if endpoint != "" {
				client = upload.NewClient(endpoint, cfg.UploadTimeout(), logger)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if err := client.Upload(cmd.Context(), path); err != nil {
				fmt.Fprintln(out, renderStatusLine("Upload", statusError, err.Error(), colorize))
				return err
			}
			fmt.Fprintln(out, renderStatusLine("Upload", statusOK, fmt.Sprintf("%s -> %s (%s)", path, client.Endpoint(), formatBytes(info.Size())), colorize))
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Override the configured upload endpoint")
	return cmd
}
