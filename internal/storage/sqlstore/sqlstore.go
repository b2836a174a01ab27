// Package sqlstore keeps homework in SQLite or PostgreSQL through sqlx.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/homeworkbot/core/logger"
	"github.com/m3rciful/homeworkbot/core/metrics"
	"github.com/m3rciful/homeworkbot/internal/homework"
)

const backend = "sql"

// Store implements homework.Store on the migrated homework tables.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New wraps an open, migrated database.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

var _ homework.Store = (*Store)(nil)

type itemRow struct {
	DueDate   string         `db:"due_date"`
	UpdatedAt time.Time      `db:"updated_at"`
	Seq       sql.NullInt64  `db:"seq"`
	Body      sql.NullString `db:"body"`
}

func (s *Store) observe(ctx context.Context, op string, start time.Time, err error) {
	took := time.Since(start)
	metrics.Default().ObserveStore(backend, op, err, took)
	if err != nil && !errors.Is(err, homework.ErrNotFound) {
		logger.Error(ctx, "storage", "store."+op,
			slog.String("status", "fail"),
			slog.String("backend", backend),
			slog.String("driver", s.db.DriverName()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.Duration("duration", logger.RoundMS(took)),
		)
	}
}

// Get loads one entry with its items in order.
func (s *Store) Get(ctx context.Context, owner int64, date homework.Date) (entry homework.Entry, err error) {
	defer func(start time.Time) { s.observe(ctx, "get", start, err) }(time.Now())

	var rows []itemRow
	q := s.db.Rebind(`
		SELECT e.due_date, e.updated_at, i.seq, i.body
		FROM homework_entries e
		LEFT JOIN homework_items i ON i.owner_id = e.owner_id AND i.due_date = e.due_date
		WHERE e.owner_id = ? AND e.due_date = ?
		ORDER BY i.seq`)
	if err := s.db.SelectContext(ctx, &rows, q, owner, date.ISO()); err != nil {
		return homework.Entry{}, fmt.Errorf("sqlstore get: %w", err)
	}
	entries, err := collect(rows)
	if err != nil {
		return homework.Entry{}, err
	}
	if len(entries) == 0 {
		return homework.Entry{}, homework.ErrNotFound
	}
	return entries[0], nil
}

// Put replaces the entry for entry.Date in one transaction.
func (s *Store) Put(ctx context.Context, owner int64, entry homework.Entry) (err error) {
	defer func(start time.Time) { s.observe(ctx, "put", start, err) }(time.Now())

	updated := entry.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	updated = updated.UTC()
	due := entry.Date.ISO()

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO homework_entries (owner_id, due_date, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (owner_id, due_date) DO UPDATE SET updated_at = excluded.updated_at`),
			owner, due, updated, updated,
		); err != nil {
			return fmt.Errorf("sqlstore put entry: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`DELETE FROM homework_items WHERE owner_id = ? AND due_date = ?`),
			owner, due,
		); err != nil {
			return fmt.Errorf("sqlstore put clear items: %w", err)
		}
		insert := tx.Rebind(`INSERT INTO homework_items (owner_id, due_date, seq, body) VALUES (?, ?, ?, ?)`)
		for i, body := range entry.Items {
			if _, err := tx.ExecContext(ctx, insert, owner, due, i+1, body); err != nil {
				return fmt.Errorf("sqlstore put item %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// Delete removes one entry and its items.
func (s *Store) Delete(ctx context.Context, owner int64, date homework.Date) (err error) {
	defer func(start time.Time) { s.observe(ctx, "delete", start, err) }(time.Now())

	due := date.ISO()
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`DELETE FROM homework_items WHERE owner_id = ? AND due_date = ?`), owner, due); err != nil {
			return fmt.Errorf("sqlstore delete items: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(
			`DELETE FROM homework_entries WHERE owner_id = ? AND due_date = ?`), owner, due)
		if err != nil {
			return fmt.Errorf("sqlstore delete entry: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlstore delete rows: %w", err)
		}
		if n == 0 {
			return homework.ErrNotFound
		}
		return nil
	})
}

// ListDates returns the owner's dates, latest first.
func (s *Store) ListDates(ctx context.Context, owner int64) (dates []homework.Date, err error) {
	defer func(start time.Time) { s.observe(ctx, "list_dates", start, err) }(time.Now())

	var raw []string
	if err := s.db.SelectContext(ctx, &raw, s.db.Rebind(
		`SELECT due_date FROM homework_entries WHERE owner_id = ? ORDER BY due_date DESC`), owner); err != nil {
		return nil, fmt.Errorf("sqlstore list dates: %w", err)
	}
	dates = make([]homework.Date, 0, len(raw))
	for _, r := range raw {
		d, err := homework.ParseISODate(r)
		if err != nil {
			return nil, fmt.Errorf("sqlstore list dates: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// List returns the owner's entries, latest first.
func (s *Store) List(ctx context.Context, owner int64) (entries []homework.Entry, err error) {
	defer func(start time.Time) { s.observe(ctx, "list", start, err) }(time.Now())

	var rows []itemRow
	q := s.db.Rebind(`
		SELECT e.due_date, e.updated_at, i.seq, i.body
		FROM homework_entries e
		LEFT JOIN homework_items i ON i.owner_id = e.owner_id AND i.due_date = e.due_date
		WHERE e.owner_id = ?
		ORDER BY e.due_date DESC, i.seq`)
	if err := s.db.SelectContext(ctx, &rows, q, owner); err != nil {
		return nil, fmt.Errorf("sqlstore list: %w", err)
	}
	return collect(rows)
}

// Clear removes every entry of the owner.
func (s *Store) Clear(ctx context.Context, owner int64) (err error) {
	defer func(start time.Time) { s.observe(ctx, "clear", start, err) }(time.Now())

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM homework_items WHERE owner_id = ?`), owner); err != nil {
			return fmt.Errorf("sqlstore clear items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM homework_entries WHERE owner_id = ?`), owner); err != nil {
			return fmt.Errorf("sqlstore clear entries: %w", err)
		}
		return nil
	})
}

// Stats counts owners, entries and items.
func (s *Store) Stats(ctx context.Context) (st homework.Stats, err error) {
	defer func(start time.Time) { s.observe(ctx, "stats", start, err) }(time.Now())

	var row struct {
		Owners  int `db:"owners"`
		Entries int `db:"entries"`
	}
	if err := s.db.GetContext(ctx, &row,
		`SELECT COUNT(DISTINCT owner_id) AS owners, COUNT(*) AS entries FROM homework_entries`); err != nil {
		return homework.Stats{}, fmt.Errorf("sqlstore stats entries: %w", err)
	}
	var items int
	if err := s.db.GetContext(ctx, &items, `SELECT COUNT(*) FROM homework_items`); err != nil {
		return homework.Stats{}, fmt.Errorf("sqlstore stats items: %w", err)
	}
	return homework.Stats{Owners: row.Owners, Entries: row.Entries, Items: items}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore commit: %w", err)
	}
	return nil
}

// collect folds joined rows, already ordered by date and seq, into entries.
func collect(rows []itemRow) ([]homework.Entry, error) {
	var entries []homework.Entry
	last := ""
	for _, r := range rows {
		if len(entries) == 0 || r.DueDate != last {
			d, err := homework.ParseISODate(r.DueDate)
			if err != nil {
				return nil, fmt.Errorf("sqlstore: bad due_date: %w", err)
			}
			entries = append(entries, homework.Entry{Date: d, UpdatedAt: r.UpdatedAt})
			last = r.DueDate
		}
		if r.Body.Valid {
			cur := &entries[len(entries)-1]
			cur.Items = append(cur.Items, r.Body.String)
		}
	}
	return entries, nil
}
