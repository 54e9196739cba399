// Package history keeps a per-probe record of every outcome in SQLite, for
// the history and uptime views. It is bookkeeping alongside the engine's
// authoritative state snapshot; inserts are best-effort.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/znetops/netmon/internal/probe"
)

const schema = `
CREATE TABLE IF NOT EXISTS probes (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    target     TEXT    NOT NULL,
    host       TEXT    NOT NULL,
    success    INTEGER NOT NULL CHECK(success IN (0, 1)),
    latency_ms INTEGER NOT NULL,
    reason     TEXT    NOT NULL DEFAULT '',
    probed_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_probes_target ON probes(target);
CREATE INDEX IF NOT EXISTS idx_probes_probed_at ON probes(probed_at DESC);
CREATE INDEX IF NOT EXISTS idx_probes_target_probed ON probes(target, probed_at DESC);
`

// Record is a stored probe outcome.
type Record struct {
	ID        int64     `json:"id"`
	Target    string    `json:"target"`
	Host      string    `json:"host"`
	Success   bool      `json:"success"`
	LatencyMS int64     `json:"latency_ms"`
	Reason    string    `json:"reason,omitempty"`
	ProbedAt  time.Time `json:"probed_at"`
}

// DB wraps a SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Insert persists one probe outcome.
func (d *DB) Insert(ctx context.Context, out probe.Outcome) error {
	success := 0
	if out.Success {
		success = 1
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO probes (target, host, success, latency_ms, reason, probed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		out.Name,
		out.Host,
		success,
		out.Latency.Milliseconds(),
		out.Reason,
		out.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting probe for %q: %w", out.Name, err)
	}
	return nil
}

// TargetHistory returns paginated probe history for a target, newest first,
// plus the total count.
func (d *DB) TargetHistory(ctx context.Context, target string, limit, offset int) ([]Record, int, error) {
	var total int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM probes WHERE target = ?`, target,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting probes for %q: %w", target, err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, target, host, success, latency_ms, reason, probed_at FROM probes WHERE target = ? ORDER BY probed_at DESC LIMIT ? OFFSET ?`,
		target, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying history for %q: %w", target, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Latest returns the most recent probe for the given target, or nil if none.
func (d *DB) Latest(ctx context.Context, target string) (*Record, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, target, host, success, latency_ms, reason, probed_at FROM probes WHERE target = ? ORDER BY probed_at DESC LIMIT 1`,
		target,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest probe for %q: %w", target, err)
	}
	return rec, nil
}

// UptimePercent returns the percentage of successful probes in the last N
// probes for a target.
func (d *DB) UptimePercent(ctx context.Context, target string, last int) (float64, error) {
	var total int
	var okCount sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(success)
		FROM (
			SELECT success FROM probes WHERE target = ? ORDER BY probed_at DESC LIMIT ?
		)
	`, target, last).Scan(&total, &okCount)
	if err != nil {
		return 0, fmt.Errorf("calculating uptime for %q: %w", target, err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(okCount.Int64) / float64(total) * 100, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var rec Record
	var success int
	var probedAt string
	err := row.Scan(&rec.ID, &rec.Target, &rec.Host, &success, &rec.LatencyMS, &rec.Reason, &probedAt)
	if err != nil {
		return nil, err
	}
	rec.Success = success == 1
	t, err := time.Parse(time.RFC3339Nano, probedAt)
	if err != nil {
		t, err = time.Parse(time.RFC3339, probedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing probed_at %q: %w", probedAt, err)
		}
	}
	rec.ProbedAt = t
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning probe row: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating probe rows: %w", err)
	}
	return records, nil
}
