package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"cadence/internal/convert"
)

// timeLayout is fixed width so started_at sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Attempt is one stored conversion attempt.
type Attempt struct {
	ID           string
	Source       string
	Destination  string
	Outcome      convert.Outcome
	PipeStatus   string
	DecoderExit  int
	EncoderExit  int
	BytesRelayed int64
	Duration     time.Duration
	Error        string
	StartedAt    time.Time
}

// Stats aggregates attempts by outcome.
type Stats struct {
	Total        int
	ByOutcome    map[convert.Outcome]int
	BytesRelayed int64
}

// Store manages attempt persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the history database at path and applies
// migrations. The parent directory is created if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a finished attempt. Recording the same ID twice replaces the
// earlier row.
func (s *Store) Record(ctx context.Context, report convert.Report) error {
	if report.ID == "" {
		return errors.New("attempt id is empty")
	}
	var errMessage any
	if report.Err != nil {
		errMessage = report.Err.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO attempts (
            id, source_path, destination_path, outcome, pipe_status,
            decoder_exit, encoder_exit, bytes_relayed, duration_ms, error_message, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.Request.Source,
		report.Request.Destination,
		string(report.Outcome),
		report.PipeStatus.String(),
		report.DecoderExit,
		report.EncoderExit,
		report.BytesRelayed,
		report.Duration.Milliseconds(),
		errMessage,
		report.Started.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

const attemptColumns = "id, source_path, destination_path, outcome, pipe_status, decoder_exit, encoder_exit, bytes_relayed, duration_ms, error_message, started_at"

// Recent returns up to limit attempts, newest first. A non-positive limit
// returns every attempt.
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ForSource returns every attempt for a source path, newest first.
func (s *Store) ForSource(ctx context.Context, source string) ([]Attempt, error) {
	return s.query(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE source_path = ? ORDER BY started_at DESC, id`,
		source,
	)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

func scanAttempt(scanner interface{ Scan(dest ...any) error }) (Attempt, error) {
	var (
		attempt    Attempt
		outcome    string
		durationMS int64
		errMessage sql.NullString
		startedRaw string
	)
	if err := scanner.Scan(
		&attempt.ID,
		&attempt.Source,
		&attempt.Destination,
		&outcome,
		&attempt.PipeStatus,
		&attempt.DecoderExit,
		&attempt.EncoderExit,
		&attempt.BytesRelayed,
		&durationMS,
		&errMessage,
		&startedRaw,
	); err != nil {
		return Attempt{}, err
	}
	attempt.Outcome = convert.Outcome(outcome)
	attempt.Duration = time.Duration(durationMS) * time.Millisecond
	attempt.Error = errMessage.String
	if ts, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		attempt.StartedAt = ts
	}
	return attempt, nil
}

// Stats counts attempts per outcome and sums the relayed bytes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByOutcome: make(map[convert.Outcome]int)}
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(1), COALESCE(SUM(bytes_relayed), 0) FROM attempts GROUP BY outcome`)
	if err != nil {
		return stats, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			outcome string
			count   int
			bytes   int64
		)
		if err := rows.Scan(&outcome, &count, &bytes); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByOutcome[convert.Outcome(outcome)] = count
		stats.Total += count
		stats.BytesRelayed += bytes
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// Prune deletes attempts that started before cutoff and reports how many
// rows were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM attempts WHERE started_at < ?`,
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	return res.RowsAffected()
}
