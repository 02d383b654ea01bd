// Package storage keeps the mirror worker's bookkeeping in SQLite: which
// events were already applied and the last version mirrored per expense.
// The expense collection itself is never stored here.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry describes one applied (or deliberately skipped) event.
type Entry struct {
	EventID   string
	ExpenseID int64
	Type      string
	Epoch     string
	Version   uint64
	At        time.Time
	Deleted   bool
}

// Mark is the newest change mirrored for one expense.
type Mark struct {
	Epoch   string
	Version uint64
	At      time.Time
}

// Covers reports whether the change identified by epoch, version and at is
// already reflected by m. Versions order changes within one epoch; across
// epochs the later event wins.
func (m Mark) Covers(epoch string, version uint64, at time.Time) bool {
	if epoch == m.Epoch {
		return version <= m.Version
	}
	return !at.After(m.At)
}

type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// OpenLedger opens (creating if needed) the ledger database and migrates it.
func OpenLedger(dbPath string) (*Ledger, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// Seen reports whether the event was already recorded.
func (l *Ledger) Seen(ctx context.Context, eventID string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_events WHERE event_id = ?`, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup event %s: %w", eventID, err)
	}
	return true, nil
}

// LastMark returns the newest change mirrored for the expense.
func (l *Ledger) LastMark(ctx context.Context, expenseID int64) (Mark, bool, error) {
	var (
		m       Mark
		v, nano int64
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT epoch, version, event_at FROM mirror_state WHERE expense_id = ?`, expenseID).Scan(&m.Epoch, &v, &nano)
	if errors.Is(err, sql.ErrNoRows) {
		return Mark{}, false, nil
	}
	if err != nil {
		return Mark{}, false, fmt.Errorf("lookup mark for expense %d: %w", expenseID, err)
	}
	m.Version = uint64(v)
	if nano != 0 {
		m.At = time.Unix(0, nano).UTC()
	}
	return m, true, nil
}

// Record stores the event and advances the expense's mark when the event is
// newer (see Mark.Covers). Recording the same event twice is a no-op.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := l.now().Unix()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO processed_events (event_id, expense_id, event_type, version, processed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(event_id) DO NOTHING`,
		e.EventID, e.ExpenseID, e.Type, int64(e.Version), now); err != nil {
		return fmt.Errorf("insert processed event: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO mirror_state (expense_id, epoch, version, event_at, deleted, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(expense_id) DO UPDATE SET
		   epoch = excluded.epoch,
		   version = excluded.version,
		   event_at = excluded.event_at,
		   deleted = excluded.deleted,
		   updated_at = excluded.updated_at
		 WHERE (excluded.epoch = mirror_state.epoch AND excluded.version > mirror_state.version)
		    OR (excluded.epoch <> mirror_state.epoch AND excluded.event_at > mirror_state.event_at)`,
		e.ExpenseID, e.Epoch, int64(e.Version), unixNano(e.At), boolToInt(e.Deleted), now); err != nil {
		return fmt.Errorf("upsert mirror state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Prune deletes processed events recorded before cutoff.
func (l *Ledger) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM processed_events WHERE processed_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune processed events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Pruned processed events", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return n, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
