package notifications

import (
	"context"
	"log/slog"

	"truvideo/internal/capture"
	"truvideo/internal/config"
	"truvideo/internal/logging"
)

// LogBridge records flags and outcomes in the structured log.
type LogBridge struct {
	logger *slog.Logger
}

// NewLogBridge builds a bridge writing through logger.
func NewLogBridge(logger *slog.Logger) *LogBridge {
	return &LogBridge{logger: logging.NewComponentLogger(logger, "presentation")}
}

func (b *LogBridge) Publish(flags capture.Flags) {
	b.logger.Debug("flags published",
		logging.Bool("recording", flags.Recording),
		logging.Bool("can_pause", flags.CanPause),
		logging.Bool("can_resume", flags.CanResume),
		logging.Bool("processing", flags.Processing),
	)
}

func (b *LogBridge) Notify(ctx context.Context, outcome capture.Outcome) {
	logger := logging.WithContext(ctx, b.logger)
	if outcome.Success {
		logger.Info("session delivered",
			logging.String(logging.FieldSessionID, outcome.SessionID),
			logging.String("path", outcome.Path),
			logging.String(logging.FieldEventType, "session_delivered"),
		)
		return
	}
	logger.Error("session failed",
		logging.String(logging.FieldSessionID, outcome.SessionID),
		logging.String("path", outcome.Path),
		logging.Error(outcome.Err),
		logging.String(logging.FieldEventType, "session_failed"),
	)
}

// NtfyBridge pushes terminal outcomes to ntfy. Flag changes are not pushed.
type NtfyBridge struct {
	ntfy   *Ntfy
	logger *slog.Logger
}

// NewNtfyBridge wraps an ntfy publisher.
func NewNtfyBridge(ntfy *Ntfy, logger *slog.Logger) *NtfyBridge {
	return &NtfyBridge{ntfy: ntfy, logger: logging.NewComponentLogger(logger, "notifications")}
}

func (b *NtfyBridge) Publish(capture.Flags) {}

func (b *NtfyBridge) Notify(ctx context.Context, outcome capture.Outcome) {
	if err := b.ntfy.SessionFinished(ctx, outcome); err != nil {
		logging.WarnWithContext(b.logger, "ntfy notification failed", "notification_failed", "no push notification for this session",
			logging.String(logging.FieldSessionID, outcome.SessionID), logging.Error(err))
	}
}

// Fanout forwards every call to each bridge in order.
type Fanout []capture.Bridge

func (f Fanout) Publish(flags capture.Flags) {
	for _, b := range f {
		if b != nil {
			b.Publish(flags)
		}
	}
}

func (f Fanout) Notify(ctx context.Context, outcome capture.Outcome) {
	for _, b := range f {
		if b != nil {
			b.Notify(ctx, outcome)
		}
	}
}

// New assembles the configured bridges. Extra bridges, such as a terminal
// status view, are appended after the log and ntfy bridges.
func New(cfg *config.Config, logger *slog.Logger, extra ...capture.Bridge) Fanout {
	bridges := Fanout{NewLogBridge(logger)}
	if ntfy := NewNtfy(cfg); ntfy != nil {
		bridges = append(bridges, NewNtfyBridge(ntfy, logger))
	}
	return append(bridges, extra...)
}
