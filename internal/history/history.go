// Package history keeps a best-effort sqlite log of pipeline runs and stage
// outcomes. The log is for inspection only; any failure here is logged and
// swallowed so it can never block a run.
package history

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sqlite connection.
type DB struct {
	conn *sql.DB
	path string
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS stage_events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL,
    stack       TEXT NOT NULL,
    sequence    INTEGER NOT NULL,
    event       TEXT NOT NULL,
    detail      TEXT,
    timestamp   TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_stage_events_run ON stage_events(run_id, timestamp DESC);
`

// Open opens or creates the event log at path and applies the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	d := &DB{conn: conn, path: path}
	if err := d.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate() error {
	var count int
	err := d.conn.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = 1").Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaV1); err != nil {
		return fmt.Errorf("apply schema v1: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (1)"); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Close closes the connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Event is one row of the stage event log.
type Event struct {
	ID        int
	RunID     string
	Stack     string
	Sequence  int
	Event     string
	Detail    string
	Timestamp string
}

// LogEvent inserts a stage event. Run-level events use sequence 0 and an
// empty stack.
func (d *DB) LogEvent(runID, stackName string, sequence int, event, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO stage_events (run_id, stack, sequence, event, detail) VALUES (?, ?, ?, ?, ?)`,
		runID, stackName, sequence, event, detail,
	)
	if err != nil {
		return fmt.Errorf("log stage event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events, most recent first.
func (d *DB) RecentEvents(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(
		`SELECT id, run_id, stack, sequence, event, detail, timestamp
		 FROM stage_events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.Stack, &e.Sequence, &e.Event, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Detail = detail.String
		events = append(events, e)
	}
	return events, rows.Err()
}
