package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"truvideo/internal/capture"
	"truvideo/internal/compositor"
	"truvideo/internal/config"
	"truvideo/internal/history"
	"truvideo/internal/logging"
	"truvideo/internal/notifications"
	"truvideo/internal/preflight"
	"truvideo/internal/scratch"
	"truvideo/internal/segment"
	"truvideo/internal/source"
	"truvideo/internal/upload"
)

type recordOptions struct {
	duration time.Duration
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var opts recordOptions

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a session from the capture source",
		Long: `Record a session from the capture source.

Type p to pause, r to resume, and s to stop, each followed by Enter.
Interrupting the process stops the session and still merges and uploads
what was recorded; a second interrupt aborts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			outcome, err := runRecording(cmd.Context(), cfg, logger, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			if !outcome.Success {
				return fmt.Errorf("session %s not delivered: %w", outcome.SessionID, outcome.Err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "Stop automatically after this much wall-clock time")
	return cmd
}

// runRecording drives one session end to end and returns its outcome.
func runRecording(ctx context.Context, cfg *config.Config, logger *slog.Logger, in io.Reader, out io.Writer, opts recordOptions) (capture.Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return capture.Outcome{}, err
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return capture.Outcome{}, fmt.Errorf("acquire recording lock: %w", err)
	}
	if !ok {
		return capture.Outcome{}, fmt.Errorf("another recording session is active (lock %s)", cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release recording lock", logging.Error(err))
		}
	}()

	if blocking := preflight.Blocking(preflight.RunAll(ctx, cfg)); len(blocking) > 0 {
		return capture.Outcome{}, preflightError(blocking)
	}

	store, err := history.Open(cfg)
	if err != nil {
		return capture.Outcome{}, err
	}
	defer store.Close()
	if n, err := store.MarkInterrupted(ctx); err != nil {
		logger.Warn("failed to mark interrupted sessions", logging.Error(err))
	} else if n > 0 {
		logger.Info("marked interrupted sessions", logging.Int64("count", n))
	}

	if keep, err := retainedSegments(ctx, store); err != nil {
		logger.Warn("failed to read retained segments", logging.Error(err))
	} else {
		scratch.CleanStale(ctx, cfg.Paths.ScratchDir, defaultScratchMaxAge, keep, logger)
	}

	outcomes := make(chan capture.Outcome, 1)
	bridge := notifications.New(cfg, logger, newTerminalBridge(out, shouldColorize(out), outcomes))
	seq := capture.NewSequencer(
		segment.NewFactory(cfg, logger),
		compositor.New(cfg, logger),
		upload.New(cfg, logger),
		bridge,
		capture.Options{
			ScratchDir:   cfg.Paths.ScratchDir,
			KeepSegments: cfg.Capture.KeepSegments,
			InboxDepth:   cfg.Capture.InboxDepth,
			Logger:       logger,
			Journal:      store,
		},
	)
	src := source.NewSynthetic(cfg.Capture, logger)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = seq.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		if err := src.Run(runCtx, seq.Offer); err != nil {
			logger.Error("capture source stopped", logging.Error(err))
		}
	}()

	if err := seq.Start(runCtx); err != nil {
		return capture.Outcome{}, err
	}

	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	interrupted := sigCtx.Done()

	var deadline <-chan time.Time
	if opts.duration > 0 {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	controls := make(chan string)
	go readControls(runCtx, in, controls)

	colorize := shouldColorize(out)
	for {
		select {
		case outcome := <-outcomes:
			return outcome, nil
		case <-interrupted:
			// Later interrupts fall through to the default handler.
			stopSignals()
			interrupted = nil
			requestStop(runCtx, seq, out, colorize)
		case <-deadline:
			deadline = nil
			requestStop(runCtx, seq, out, colorize)
		case line := <-controls:
			if err := dispatchControl(runCtx, seq, line); err != nil {
				fmt.Fprintln(out, renderStatusLine("Command", statusWarn, err.Error(), colorize))
			}
		}
	}
}

// recorder is the subset of the sequencer the key controls drive.
type recorder interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
}

func dispatchControl(ctx context.Context, rec recorder, line string) error {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return nil
	case "p", "pause":
		return rec.Pause(ctx)
	case "r", "resume":
		return rec.Resume(ctx)
	case "s", "stop":
		return rec.Stop(ctx)
	default:
		return fmt.Errorf("unknown command %q (use p, r, or s)", strings.TrimSpace(line))
	}
}

func requestStop(ctx context.Context, rec recorder, out io.Writer, colorize bool) {
	if err := rec.Stop(ctx); err != nil {
		fmt.Fprintln(out, renderStatusLine("Stop", statusWarn, err.Error(), colorize))
	}
}

// readControls forwards input lines until EOF or ctx is done.
func readControls(ctx context.Context, in io.Reader, lines chan<- string) {
	if in == nil {
		return
	}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

func preflightError(failed []preflight.Result) error {
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return errors.New("preflight failed: " + strings.Join(parts, "; "))
}
