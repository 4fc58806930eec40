// Package ledger records indexing runs and their per-partition outcomes in
// a SQLite database, so a run can be audited after the fact.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/corpusidx/internal/index"
)

// ErrRunNotFound is returned by Run for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Ledger is a SQLite-backed run ledger. It implements
// index.PartitionObserver and is safe for concurrent use.
type Ledger struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	logger *slog.Logger
	closed bool
}

var _ index.PartitionObserver = (*Ledger)(nil)

// RunInfo identifies a run when it starts.
type RunInfo struct {
	ID         string
	Collection string
	Generator  string
	Root       string
	IndexPath  string
	StartedAt  time.Time
}

// RunRow is a stored run.
type RunRow struct {
	RunInfo
	FinishedAt    time.Time
	Counters      index.Snapshot
	DocCount      uint64
	Partitions    int
	Completed     int
	Interrupted   bool
	CountMismatch bool
}

// PartitionRow is a stored partition outcome.
type PartitionRow struct {
	Path           string
	Records        int64
	Indexed        int64
	Unindexable    int64
	Empty          int64
	Skipped        int64
	Errors         int64
	SegmentSkipped int
	SegmentError   bool
	Failed         bool
	Error          string
	Duration       time.Duration
}

// Open opens or creates the ledger at path.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores most DSN parameters.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	l := &Ledger{db: db, path: path, logger: logger}
	if err := l.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return l, nil
}

func (l *Ledger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS runs (
		run_id         TEXT PRIMARY KEY,
		collection     TEXT NOT NULL,
		generator      TEXT NOT NULL,
		root           TEXT NOT NULL,
		index_path     TEXT NOT NULL,
		started_at     TEXT NOT NULL,
		finished_at    TEXT,
		indexed        INTEGER NOT NULL DEFAULT 0,
		unindexable    INTEGER NOT NULL DEFAULT 0,
		empty          INTEGER NOT NULL DEFAULT 0,
		skipped        INTEGER NOT NULL DEFAULT 0,
		errors         INTEGER NOT NULL DEFAULT 0,
		doc_count      INTEGER NOT NULL DEFAULT 0,
		partitions     INTEGER NOT NULL DEFAULT 0,
		completed      INTEGER NOT NULL DEFAULT 0,
		interrupted    INTEGER NOT NULL DEFAULT 0,
		count_mismatch INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS partitions (
		run_id          TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		path            TEXT NOT NULL,
		records         INTEGER NOT NULL,
		indexed         INTEGER NOT NULL,
		unindexable     INTEGER NOT NULL,
		empty           INTEGER NOT NULL,
		skipped         INTEGER NOT NULL,
		errors          INTEGER NOT NULL,
		segment_skipped INTEGER NOT NULL,
		segment_error   INTEGER NOT NULL,
		failed          INTEGER NOT NULL,
		error           TEXT NOT NULL DEFAULT '',
		duration_ms     INTEGER NOT NULL,
		PRIMARY KEY (run_id, path)
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := l.db.Exec(schema)
	return err
}

// StartRun inserts a run row. Partition reports for the run are accepted
// only after StartRun.
func (l *Ledger) StartRun(ctx context.Context, run RunInfo) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("ledger is closed")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, collection, generator, root, index_path, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Collection, run.Generator, run.Root, run.IndexPath,
		run.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// PartitionDone stores one partition report. Failures are logged; the
// ledger never stops a run.
func (l *Ledger) PartitionDone(r index.PartitionReport) {
	if err := l.recordPartition(context.Background(), r); err != nil {
		l.logger.Warn("ledger_write_failed",
			slog.String("partition", r.Path),
			slog.String("error", err.Error()))
	}
}

func (l *Ledger) recordPartition(ctx context.Context, r index.PartitionReport) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("ledger is closed")
	}

	var errText string
	if r.Err != nil {
		errText = r.Err.Error()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO partitions (
			run_id, path, records, indexed, unindexable, empty, skipped, errors,
			segment_skipped, segment_error, failed, error, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Path, r.Records, r.Indexed, r.Unindexable, r.Empty, r.Skipped, r.Errors,
		r.SegmentSkipped, boolInt(r.SegmentError), boolInt(r.Failed), errText,
		r.Duration.Milliseconds())
	return err
}

// FinishRun stores the final tallies of a run.
func (l *Ledger) FinishRun(ctx context.Context, res *index.Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("ledger is closed")
	}

	c := res.Counters
	out, err := l.db.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?, indexed = ?, unindexable = ?, empty = ?, skipped = ?,
			errors = ?, doc_count = ?, partitions = ?, completed = ?,
			interrupted = ?, count_mismatch = ?
		WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		c.Indexed, c.Unindexable, c.Empty, c.Skipped, c.Errors,
		int64(res.DocCount), res.Partitions, res.Completed,
		boolInt(res.Interrupted), boolInt(res.CountMismatch),
		res.RunID)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, res.RunID)
	}
	return nil
}

// Run loads a stored run.
func (l *Ledger) Run(ctx context.Context, runID string) (*RunRow, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		row               RunRow
		started           string
		finished          sql.NullString
		docCount          int64
		interrupted, diff int
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT run_id, collection, generator, root, index_path, started_at, finished_at,
			indexed, unindexable, empty, skipped, errors, doc_count,
			partitions, completed, interrupted, count_mismatch
		FROM runs WHERE run_id = ?`, runID).Scan(
		&row.ID, &row.Collection, &row.Generator, &row.Root, &row.IndexPath, &started, &finished,
		&row.Counters.Indexed, &row.Counters.Unindexable, &row.Counters.Empty,
		&row.Counters.Skipped, &row.Counters.Errors, &docCount,
		&row.Partitions, &row.Completed, &interrupted, &diff)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	row.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished.Valid {
		row.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
	}
	row.DocCount = uint64(docCount)
	row.Interrupted = interrupted != 0
	row.CountMismatch = diff != 0
	return &row, nil
}

// Partitions lists the partition outcomes of a run ordered by path.
func (l *Ledger) Partitions(ctx context.Context, runID string) ([]PartitionRow, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.QueryContext(ctx, `
		SELECT path, records, indexed, unindexable, empty, skipped, errors,
			segment_skipped, segment_error, failed, error, duration_ms
		FROM partitions WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query partitions: %w", err)
	}
	defer rows.Close()

	var out []PartitionRow
	for rows.Next() {
		var (
			p              PartitionRow
			segErr, failed int
			durationMS     int64
		)
		if err := rows.Scan(&p.Path, &p.Records, &p.Indexed, &p.Unindexable, &p.Empty,
			&p.Skipped, &p.Errors, &p.SegmentSkipped, &segErr, &failed, &p.Error,
			&durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan partition: %w", err)
		}
		p.SegmentError = segErr != 0
		p.Failed = failed != 0
		p.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, p)
	}
	return out, rows.Err()
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close checkpoints the WAL and closes the database. It is idempotent.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	_, _ = l.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return l.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
