package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"truvideo/internal/capture"
	"truvideo/internal/config"
	"truvideo/internal/services"
)

// Store manages the session ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ capture.Journal = (*Store)(nil)

// Open connects to the ledger at the configured history path.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath initializes or connects to the ledger at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// SessionStarted records a new session in the recording state.
func (s *Store) SessionStarted(ctx context.Context, sessionID string, at time.Time) error {
	timestamp := at.UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, state, started_at, updated_at) VALUES (?, ?, ?, ?)`,
		sessionID, StateRecording, timestamp, timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SegmentRecorded appends a finished segment to a session.
func (s *Store) SegmentRecorded(ctx context.Context, sessionID string, segment capture.SegmentHandle) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin segment tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO segments (session_id, idx, path, duration_ms, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, segment.Index, segment.Path, segment.Duration.Milliseconds(), now,
	); err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return tx.Commit()
}

// SessionFinished stores the terminal outcome of a session.
func (s *Store) SessionFinished(ctx context.Context, sessionID string, outcome capture.Outcome, duration time.Duration) error {
	state := StateDelivered
	switch {
	case outcome.Success:
	case errors.Is(outcome.Err, services.ErrUpload):
		state = StateUploadFailed
	default:
		state = StateFailed
	}
	var message string
	if outcome.Err != nil {
		message = outcome.Err.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions
         SET state = ?, updated_at = ?, final_path = ?, final_duration_ms = ?, uploaded = ?, error_message = ?
         WHERE id = ?`,
		state,
		time.Now().UTC().Format(time.RFC3339Nano),
		nullableString(outcome.Path),
		duration.Milliseconds(),
		boolToInt(outcome.Uploaded),
		nullableString(message),
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("finish session %s: not found", sessionID)
	}
	return nil
}

// MarkInterrupted moves sessions left in the recording state to interrupted.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET state = ?, updated_at = ?, error_message = 'recorder exited before the session finished'
         WHERE state = ?`,
		StateInterrupted,
		time.Now().UTC().Format(time.RFC3339Nano),
		StateRecording,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted: %w", err)
	}
	return res.RowsAffected()
}

// Get returns one session with its segments, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, sessionID)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	segments, err := s.segments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Segments = segments
	return session, nil
}

// List returns the most recent sessions, newest first. A non-positive limit
// returns all sessions.
func (s *Store) List(ctx context.Context, limit int) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s ORDER BY s.started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Clear removes every session and its segments.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("clear sessions: %w", err)
	}
	return res.RowsAffected()
}

// SegmentPaths returns the segment paths recorded for sessions in any of the
// given states.
func (s *Store) SegmentPaths(ctx context.Context, states ...State) ([]string, error) {
	if len(states) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(states))
	args := make([]any, len(states))
	for i, state := range states {
		placeholders[i] = "?"
		args[i] = state
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.path FROM segments g JOIN sessions s ON s.id = g.session_id
         WHERE s.state IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query segment paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan segment path: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

func (s *Store) segments(ctx context.Context, sessionID string) ([]Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, path, duration_ms, recorded_at FROM segments WHERE session_id = ? ORDER BY idx`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		var (
			seg         Segment
			durationMS  int64
			recordedRaw string
		)
		if err := rows.Scan(&seg.Index, &seg.Path, &durationMS, &recordedRaw); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.Duration = time.Duration(durationMS) * time.Millisecond
		if recorded, err := parseTimeString(recordedRaw); err == nil {
			seg.RecordedAt = recorded
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

const sessionColumns = "s.id, s.state, s.started_at, s.updated_at, s.final_path, s.final_duration_ms, s.uploaded, s.error_message, " +
	"(SELECT COUNT(1) FROM segments g WHERE g.session_id = s.id)"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		id           string
		state        string
		startedRaw   string
		updatedRaw   string
		finalPath    sql.NullString
		durationMS   int64
		uploaded     int64
		errorMessage sql.NullString
		segmentCount int
	)
	if err := scanner.Scan(&id, &state, &startedRaw, &updatedRaw, &finalPath, &durationMS, &uploaded, &errorMessage, &segmentCount); err != nil {
		return nil, err
	}
	session := &Session{
		ID:            id,
		State:         State(state),
		FinalPath:     finalPath.String,
		FinalDuration: time.Duration(durationMS) * time.Millisecond,
		Uploaded:      uploaded != 0,
		ErrorMessage:  errorMessage.String,
		SegmentCount:  segmentCount,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		session.StartedAt = started
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		session.UpdatedAt = updated
	}
	return session, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
