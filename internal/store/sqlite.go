package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"signaldash/internal/dashboard"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// MemoryDSN keeps the journal in memory for the lifetime of the process.
const MemoryDSN = ":memory:"

// Compile-time interface check.
var _ SignalJournal = (*SQLiteJournal)(nil)

// SQLiteJournal implements SignalJournal backed by a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	epoch       INTEGER NOT NULL,
	pair        TEXT    NOT NULL,
	action      TEXT    NOT NULL,
	category    TEXT    NOT NULL,
	confidence  TEXT    NOT NULL,
	entry       TEXT    NOT NULL,
	stop_loss   TEXT    NOT NULL,
	take_profit TEXT    NOT NULL,
	recorded_at INTEGER NOT NULL
)`

// NewSQLiteJournal opens (or creates) the journal at dsn. Use MemoryDSN for
// a journal that does not outlive the process.
func NewSQLiteJournal(dsn string) (*SQLiteJournal, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", dsn, err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Record appends e unless the action is absent or it repeats the newest entry.
func (j *SQLiteJournal) Record(ctx context.Context, e SignalEntry) (bool, error) {
	if e.Action == "" || e.Action == dashboard.Sentinel {
		return false, nil
	}

	last, err := j.Recent(ctx, 1)
	if err != nil {
		return false, err
	}
	if len(last) == 1 && sameSignal(last[0], e) {
		return false, nil
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO signals (epoch, pair, action, category, confidence, entry, stop_loss, take_profit, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Epoch, e.Pair, e.Action, e.Category, e.Confidence, e.Entry, e.StopLoss, e.TakeProfit,
		e.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("inserting signal: %w", err)
	}
	return true, nil
}

// Recent returns up to n entries, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, n int) ([]SignalEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, epoch, pair, action, category, confidence, entry, stop_loss, take_profit, recorded_at
		 FROM signals ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying signals: %w", err)
	}
	defer rows.Close()

	var out []SignalEntry
	for rows.Next() {
		var e SignalEntry
		var ms int64
		if err := rows.Scan(&e.ID, &e.Epoch, &e.Pair, &e.Action, &e.Category, &e.Confidence,
			&e.Entry, &e.StopLoss, &e.TakeProfit, &ms); err != nil {
			return nil, fmt.Errorf("scanning signal: %w", err)
		}
		e.RecordedAt = time.UnixMilli(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}
