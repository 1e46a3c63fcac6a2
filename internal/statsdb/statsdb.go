package statsdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/procpool/internal/fileutil"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool_stats (
	run_id      TEXT    NOT NULL,
	recorded_at INTEGER NOT NULL,
	max_running INTEGER NOT NULL,
	name        TEXT    NOT NULL,
	started     INTEGER NOT NULL,
	lru_stopped INTEGER NOT NULL,
	PRIMARY KEY (run_id, name)
)`

// Row holds the counters of one instance.
type Row struct {
	Name       string
	Started    int
	LRUStopped int
}

// Run is one pool's statistics at the time they were saved.
type Run struct {
	ID         string
	RecordedAt time.Time
	MaxRunning int
	Rows       []Row
}

// Total aggregates one instance name across every recorded run.
type Total struct {
	Name       string
	Runs       int
	Started    int
	LRUStopped int
}

// DB is an open statistics database.
type DB struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens or creates the database at path, creating its parent
// directory if needed. If logger is nil, slog.Default() is used.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := fileutil.EnsureDirForFile(path); err != nil {
		return nil, fmt.Errorf("create stats directory: %w", err)
	}

	// Several test processes may save at once; the busy timeout lets their
	// transactions queue instead of failing.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("close sqlite after schema failure", "error", closeErr)
		}
		return nil, fmt.Errorf("create stats schema: %w", err)
	}

	return &DB{db: db, log: logger}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Record stores run in a single transaction. Recording the same run ID
// again replaces its rows.
func (d *DB) Record(ctx context.Context, run Run) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stats transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const insert = `
		INSERT OR REPLACE INTO pool_stats
			(run_id, recorded_at, max_running, name, started, lru_stopped)
		VALUES (?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare stats insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // statement is discarded with the transaction

	at := run.RecordedAt.UnixMilli()
	for _, row := range run.Rows {
		if _, err := stmt.ExecContext(ctx, run.ID, at, run.MaxRunning, row.Name, row.Started, row.LRUStopped); err != nil {
			return fmt.Errorf("insert stats for %s: %w", row.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stats transaction: %w", err)
	}
	d.log.Debug("recorded pool stats", "run", run.ID, "instances", len(run.Rows))
	return nil
}

// Totals sums the counters of every instance name over all runs, ordered
// by name.
func (d *DB) Totals(ctx context.Context) ([]Total, error) {
	const query = `
		SELECT name, COUNT(DISTINCT run_id), SUM(started), SUM(lru_stopped)
		FROM pool_stats
		GROUP BY name
		ORDER BY name`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stats totals: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors

	var totals []Total
	for rows.Next() {
		var t Total
		if err := rows.Scan(&t.Name, &t.Runs, &t.Started, &t.LRUStopped); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats rows: %w", err)
	}
	return totals, nil
}

// Runs returns how many distinct runs have been recorded.
func (d *DB) Runs(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT run_id) FROM pool_stats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stats runs: %w", err)
	}
	return n, nil
}
