package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"truvideo/internal/logging"
	"truvideo/internal/services"
)

// ErrStopped is returned by commands issued after Run has returned.
var ErrStopped = errors.New("sequencer stopped")

const (
	defaultInboxDepth = 512
	uiQueueDepth      = 64
)

// Options configures a Sequencer.
type Options struct {
	ScratchDir   string
	KeepSegments bool
	InboxDepth   int
	Logger       *slog.Logger
	Journal      Journal
	NewID        func() string
	Clock        func() time.Time
}

// Sequencer drives one recording session at a time. All writer calls and
// state mutations happen on the goroutine running Run.
type Sequencer struct {
	writers      WriterFactory
	compositor   Compositor
	uploader     Uploader
	bridge       Bridge
	journal      Journal
	logger       *slog.Logger
	scratchDir   string
	keepSegments bool
	newID        func() string
	now          func() time.Time

	inbox   chan any
	ui      chan uiEvent
	stopped chan struct{}
	running atomic.Bool
	dropped atomic.Int64

	mu        sync.RWMutex
	phase     Phase
	segments  []SegmentHandle
	sessionID string

	// Owned by the Run goroutine.
	runCtx        context.Context
	active        SegmentWriter
	startedAt     time.Time
	stopLatched   bool
	finalDuration time.Duration
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdPause
	cmdResume
	cmdStop
)

func (k commandKind) String() string {
	switch k {
	case cmdStart:
		return "start"
	case cmdPause:
		return "pause"
	case cmdResume:
		return "resume"
	case cmdStop:
		return "stop"
	default:
		return "unknown"
	}
}

type sampleEvent struct{ sample Sample }

type commandEvent struct {
	kind  commandKind
	reply chan error
}

type writerDoneEvent struct {
	writer SegmentWriter
	result WriterResult
}

type exportDoneEvent struct {
	sessionID string
	outcome   ExportOutcome
}

type uploadDoneEvent struct {
	sessionID string
	path      string
	err       error
}

type uiEvent struct {
	flags   *Flags
	outcome *Outcome
}

// NewSequencer wires the pipeline collaborators into a sequencer. Call Run to
// start processing.
func NewSequencer(writers WriterFactory, compositor Compositor, uploader Uploader, bridge Bridge, opts Options) *Sequencer {
	depth := opts.InboxDepth
	if depth <= 0 {
		depth = defaultInboxDepth
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	scratch := opts.ScratchDir
	if scratch == "" {
		scratch = os.TempDir()
	}
	return &Sequencer{
		writers:      writers,
		compositor:   compositor,
		uploader:     uploader,
		bridge:       bridge,
		journal:      opts.Journal,
		logger:       logging.NewComponentLogger(opts.Logger, "sequencer"),
		scratchDir:   scratch,
		keepSegments: opts.KeepSegments,
		newID:        newID,
		now:          clock,
		inbox:        make(chan any, depth),
		ui:           make(chan uiEvent, uiQueueDepth),
		stopped:      make(chan struct{}),
	}
}

// Run processes samples, commands, and completions until ctx is done. It may
// be called once.
func (s *Sequencer) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("sequencer already running")
	}
	s.runCtx = ctx

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.publishLoop()
	}()

	defer func() {
		s.shutdown()
		close(s.stopped)
		close(s.ui)
		wg.Wait()
	}()

	s.publish(PhaseIdle)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.inbox:
			s.handle(ev)
		}
	}
}

// Offer queues a live sample. It never blocks: when the inbox is full the
// sample is dropped and false is returned.
func (s *Sequencer) Offer(sample Sample) bool {
	select {
	case s.inbox <- sampleEvent{sample: sample}:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Start begins a new session. Valid only while idle.
func (s *Sequencer) Start(ctx context.Context) error { return s.command(ctx, cmdStart) }

// Pause closes the current span. The sequencer reports Paused once the writer
// confirms its segment.
func (s *Sequencer) Pause(ctx context.Context) error { return s.command(ctx, cmdPause) }

// Resume opens a new span in a fresh segment file.
func (s *Sequencer) Resume(ctx context.Context) error { return s.command(ctx, cmdResume) }

// Stop closes the current span, if any, and merges and uploads the session.
func (s *Sequencer) Stop(ctx context.Context) error { return s.command(ctx, cmdStop) }

// Phase reports the current phase.
func (s *Sequencer) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Segments returns a copy of the segments recorded in the current or most
// recent session, in chronological order.
func (s *Sequencer) Segments() []SegmentHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SegmentHandle(nil), s.segments...)
}

// SessionID returns the identifier of the active session, or "" when idle.
func (s *Sequencer) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Dropped counts samples refused because the inbox was full.
func (s *Sequencer) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Sequencer) command(ctx context.Context, kind commandKind) error {
	reply := make(chan error, 1)
	select {
	case s.inbox <- commandEvent{kind: kind, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStopped
	}
}

// post delivers an asynchronous completion to the loop. Callers must not be
// the loop goroutine itself.
func (s *Sequencer) post(ev any) {
	select {
	case s.inbox <- ev:
	case <-s.stopped:
	}
}

func (s *Sequencer) handle(ev any) {
	switch e := ev.(type) {
	case sampleEvent:
		s.handleSample(e.sample)
	case commandEvent:
		e.reply <- s.handleCommand(e.kind)
	case writerDoneEvent:
		s.handleWriterDone(e)
	case exportDoneEvent:
		s.handleExportDone(e)
	case uploadDoneEvent:
		s.handleUploadDone(e)
	}
}

func (s *Sequencer) handleSample(sample Sample) {
	if s.phase != PhaseRecording || s.active == nil {
		return
	}
	err := s.active.Accept(sample)
	if err == nil {
		return
	}
	if !writerFault(err) {
		s.logger.Debug("sample rejected", logging.String("track", sample.Track.String()), logging.Error(err))
		return
	}
	s.abortActive(err)
}

// writerFault reports whether err means the writer cannot produce its segment.
func writerFault(err error) bool {
	return errors.Is(err, services.ErrWriterConfig) || errors.Is(err, services.ErrWriteFinalize)
}

// abortActive drops a writer that failed mid-span and ends the session.
func (s *Sequencer) abortActive(err error) {
	writer := s.active
	s.active = nil
	if derr := writer.Discard(); derr != nil && !writerFault(derr) {
		s.logger.Debug("discard failed segment", logging.String("path", writer.Path()), logging.Error(derr))
	}
	s.logger.Error("segment writer failed", logging.String("path", writer.Path()), logging.Error(err))
	s.fail(err)
}

func (s *Sequencer) handleCommand(kind commandKind) error {
	switch kind {
	case cmdStart:
		return s.start()
	case cmdPause:
		return s.pause()
	case cmdResume:
		return s.resume()
	case cmdStop:
		return s.stop()
	default:
		return s.invalid(kind)
	}
}

func (s *Sequencer) invalid(kind commandKind) error {
	return services.Wrap(services.ErrInvalidTransition, "sequencer", kind.String(), fmt.Sprintf("not valid while %s", s.phase), nil)
}

func (s *Sequencer) start() error {
	if s.phase != PhaseIdle {
		return s.invalid(cmdStart)
	}
	if err := os.MkdirAll(s.scratchDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "sequencer", "start", "create scratch dir", err)
	}

	s.mu.Lock()
	s.sessionID = s.newID()
	s.segments = nil
	s.mu.Unlock()
	s.stopLatched = false
	s.finalDuration = 0
	s.startedAt = s.now()

	if err := s.openWriter(); err != nil {
		s.mu.Lock()
		s.sessionID = ""
		s.mu.Unlock()
		return services.Wrap(services.ErrConfiguration, "sequencer", "start", "open segment writer", err)
	}

	if s.journal != nil {
		if err := s.journal.SessionStarted(s.sessionContext(), s.sessionID, s.startedAt); err != nil {
			s.journalWarning("session start", err)
		}
	}
	s.logger.Info("recording started", logging.String(logging.FieldSessionID, s.sessionID))
	s.setPhase(PhaseRecording)
	return nil
}

func (s *Sequencer) pause() error {
	if s.phase != PhaseRecording {
		return s.invalid(cmdPause)
	}
	started, err := s.requestFinish()
	switch {
	case err != nil:
		s.fail(err)
	case started:
		s.setPhase(PhasePausing)
	default:
		s.setPhase(PhasePaused)
	}
	return nil
}

func (s *Sequencer) resume() error {
	if s.phase != PhasePaused {
		return s.invalid(cmdResume)
	}
	if err := s.openWriter(); err != nil {
		return services.Wrap(services.ErrConfiguration, "sequencer", "resume", "open segment writer", err)
	}
	s.logger.Info("recording resumed", logging.Int("segments", len(s.segments)))
	s.setPhase(PhaseRecording)
	return nil
}

func (s *Sequencer) stop() error {
	switch s.phase {
	case PhaseRecording:
		started, err := s.requestFinish()
		switch {
		case err != nil:
			s.fail(err)
		case started:
			s.setPhase(PhaseStopping)
		default:
			s.finalize()
		}
	case PhasePaused:
		s.finalize()
	case PhasePausing:
		s.stopLatched = true
	default:
		return s.invalid(cmdStop)
	}
	return nil
}

func (s *Sequencer) openWriter() error {
	index := len(s.segments)
	dest := filepath.Join(s.scratchDir, SegmentFileName(s.newID()))
	ctx := services.WithSegment(s.sessionContext(), index)
	writer, err := s.writers.Open(ctx, dest, index)
	if err != nil {
		return err
	}
	s.active = writer
	s.logger.Debug("segment writer opened", logging.String("path", dest), logging.Int(logging.FieldSegment, index))
	return nil
}

// requestFinish asks the active writer to finish. It reports whether a
// completion will arrive; a writer that never wrote is discarded at once,
// and one that failed before finishing returns its failure.
func (s *Sequencer) requestFinish() (bool, error) {
	writer := s.active
	if writer == nil {
		return false, nil
	}
	started := writer.Finish(func(res WriterResult) {
		s.post(writerDoneEvent{writer: writer, result: res})
	})
	if started {
		return true, nil
	}
	s.active = nil
	if err := writer.Discard(); err != nil {
		if writerFault(err) {
			s.logger.Error("segment writer failed", logging.String("path", writer.Path()), logging.Error(err))
			return false, err
		}
		s.logger.Debug("discard empty segment failed", logging.String("path", writer.Path()), logging.Error(err))
	}
	return false, nil
}

func (s *Sequencer) handleWriterDone(ev writerDoneEvent) {
	if ev.writer != s.active {
		s.logger.Warn("ignoring completion from inactive writer", logging.String("path", ev.writer.Path()))
		return
	}
	s.active = nil

	if ev.result.Err != nil {
		s.logger.Error("segment finalize failed", logging.String("path", ev.writer.Path()), logging.Error(ev.result.Err))
		s.fail(ev.result.Err)
		return
	}

	handle := ev.result.Handle
	s.mu.Lock()
	handle.Index = len(s.segments)
	s.segments = append(s.segments, handle)
	s.mu.Unlock()

	if s.journal != nil {
		if err := s.journal.SegmentRecorded(s.sessionContext(), s.sessionID, handle); err != nil {
			s.journalWarning("segment", err)
		}
	}
	s.logger.Info("segment finished",
		logging.String("path", handle.Path),
		logging.Int(logging.FieldSegment, handle.Index),
		logging.Duration("duration", handle.Duration),
		logging.String(logging.FieldEventType, "segment_finished"),
	)

	switch s.phase {
	case PhasePausing:
		if s.stopLatched {
			s.finalize()
			return
		}
		s.setPhase(PhasePaused)
	case PhaseStopping:
		s.finalize()
	}
}

func (s *Sequencer) finalize() {
	s.stopLatched = false
	s.setPhase(PhaseFinalizing)

	segments := s.Segments()
	sessionID := s.sessionID
	ctx := context.WithoutCancel(s.sessionContext())
	s.logger.Info("merging segments", logging.Int("segments", len(segments)))

	go s.compositor.Merge(ctx, segments, func(out ExportOutcome) {
		s.post(exportDoneEvent{sessionID: sessionID, outcome: out})
	})
}

func (s *Sequencer) handleExportDone(ev exportDoneEvent) {
	if ev.sessionID != s.sessionID || s.phase != PhaseFinalizing {
		s.logger.Warn("ignoring stale export completion", logging.String(logging.FieldSessionID, ev.sessionID))
		return
	}

	out := ev.outcome
	if out.Status != ExportCompleted {
		err := out.Err
		if err == nil {
			err = services.Wrap(services.ErrExport, "compositor", "export", out.Status.String(), nil)
		}
		s.logger.Error("merge failed", logging.String("status", out.Status.String()), logging.Error(err))
		s.fail(err)
		return
	}

	s.finalDuration = out.Duration
	s.logger.Info("merge completed",
		logging.String("path", out.Path),
		logging.Duration("duration", out.Duration),
		logging.String(logging.FieldEventType, "export_completed"),
	)
	if !s.keepSegments {
		s.removeSegments()
	}

	sessionID := ev.sessionID
	path := out.Path
	ctx := context.WithoutCancel(s.sessionContext())
	go func() {
		err := s.uploader.Upload(ctx, path)
		s.post(uploadDoneEvent{sessionID: sessionID, path: path, err: err})
	}()
}

func (s *Sequencer) handleUploadDone(ev uploadDoneEvent) {
	if ev.sessionID != s.sessionID {
		s.logger.Warn("ignoring stale upload completion", logging.String(logging.FieldSessionID, ev.sessionID))
		return
	}
	outcome := Outcome{
		SessionID: ev.sessionID,
		Success:   ev.err == nil,
		Path:      ev.path,
		Uploaded:  ev.err == nil,
		Err:       ev.err,
	}
	if ev.err != nil {
		logging.WarnWithContext(s.logger, "upload failed", "upload_failed", "merged file kept on disk for a manual retry",
			logging.String("path", ev.path), logging.Error(ev.err))
	} else {
		s.logger.Info("upload completed", logging.String("path", ev.path), logging.String(logging.FieldEventType, "upload_completed"))
	}
	s.finishSession(outcome)
}

func (s *Sequencer) fail(err error) {
	s.finishSession(Outcome{SessionID: s.sessionID, Success: false, Err: err})
}

func (s *Sequencer) finishSession(outcome Outcome) {
	if s.journal != nil {
		if err := s.journal.SessionFinished(s.sessionContext(), outcome.SessionID, outcome, s.finalDuration); err != nil {
			s.journalWarning("session finish", err)
		}
	}
	s.stopLatched = false
	s.mu.Lock()
	s.sessionID = ""
	s.mu.Unlock()
	s.setPhase(PhaseIdle)
	s.ui <- uiEvent{outcome: &outcome}
}

func (s *Sequencer) removeSegments() {
	for _, seg := range s.Segments() {
		if err := os.Remove(seg.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("segment cleanup failed", logging.String("path", seg.Path), logging.Error(err))
		}
	}
}

func (s *Sequencer) setPhase(p Phase) {
	s.mu.Lock()
	prev := s.phase
	s.phase = p
	s.mu.Unlock()
	if prev != p {
		s.logger.Debug("phase changed", logging.String("from", prev.String()), logging.String("to", p.String()))
	}
	s.publish(p)
}

func (s *Sequencer) publish(p Phase) {
	flags := Project(p)
	s.ui <- uiEvent{flags: &flags}
}

func (s *Sequencer) publishLoop() {
	for ev := range s.ui {
		if s.bridge == nil {
			continue
		}
		if ev.flags != nil {
			s.bridge.Publish(*ev.flags)
		}
		if ev.outcome != nil {
			s.bridge.Notify(context.WithoutCancel(s.runCtx), *ev.outcome)
		}
	}
}

func (s *Sequencer) shutdown() {
	if s.active == nil {
		return
	}
	writer := s.active
	s.active = nil
	if writer.Finish(func(WriterResult) {}) {
		s.logger.Info("finishing active segment on shutdown", logging.String("path", writer.Path()))
		return
	}
	_ = writer.Discard()
}

func (s *Sequencer) sessionContext() context.Context {
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	return services.WithSessionID(ctx, s.sessionID)
}

func (s *Sequencer) journalWarning(what string, err error) {
	logging.WarnWithContext(s.logger, "session journal write failed", "journal_failed", "session history incomplete",
		logging.String("record", what), logging.Error(err))
}

// SegmentFileName builds a collision-free segment file name from token.
func SegmentFileName(token string) string {
	return "Segment_" + token + ".mov"
}
