// Package sqlite implements the balance store on SQLite for embedded and
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	balance "github.com/niobium-nz/balance"
	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/id"
	"github.com/niobium-nz/balance/store"
	"github.com/niobium-nz/balance/transaction"
	"github.com/niobium-nz/balance/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("balance/sqlite: open: %w", err)
	}
	return New(db), nil
}

// New creates a Store on an existing database handle. The pool is capped at
// one connection: a single connection serializes writers, which keeps the
// delta cache read-modify-write atomic.
func New(db *sql.DB) *Store {
	db.SetMaxOpenConns(1)
	return &Store{db: db}
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables. Applied migrations are tracked in
// balance_migrations, so Migrate is safe to call on every start.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS balance_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`)
	if err != nil {
		return fmt.Errorf("balance/sqlite: create migration table: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM balance_migrations WHERE version = ?)`, m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("balance/sqlite: check migration %s: %w", m.Name, err)
		}
		if exists {
			continue
		}
		if _, err := s.db.ExecContext(ctx, m.Up); err != nil {
			return fmt.Errorf("balance/sqlite: migration %s failed: %w", m.Name, err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO balance_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name,
		); err != nil {
			return fmt.Errorf("balance/sqlite: record migration %s: %w", m.Name, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Ledger Store ====================

func (s *Store) AppendTransactions(ctx context.Context, txns []*transaction.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range txns {
		_, err := tx.ExecContext(ctx, `
INSERT INTO balance_transactions (principal, id, delta, reason, remark, reference, correlation, created)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Principal, t.ID, t.Delta.String(), int(t.Reason), t.Remark, t.Reference, t.Correlation, t.Created.UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return balance.ErrDuplicateTransaction
			}
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) QueryTransactions(ctx context.Context, principal string, from, to time.Time) ([]*transaction.Transaction, error) {
	lo, hi := id.ChronoRange(from, to)

	// Ascending chrono-key order is reverse chronological: newest first.
	rows, err := s.db.QueryContext(ctx, `
SELECT principal, id, delta, reason, remark, reference, correlation, created
FROM balance_transactions
WHERE principal = ? AND id >= ? AND id <= ?
ORDER BY id ASC`,
		principal, lo, hi,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*transaction.Transaction, 0)
	for rows.Next() {
		var (
			t      transaction.Transaction
			delta  string
			reason int
		)
		if err := rows.Scan(&t.Principal, &t.ID, &delta, &reason, &t.Remark, &t.Reference, &t.Correlation, &t.Created); err != nil {
			return nil, err
		}
		if t.Delta, err = decimal.NewFromString(delta); err != nil {
			return nil, fmt.Errorf("balance/sqlite: parse delta %q: %w", delta, err)
		}
		t.Reason = transaction.Reason(reason)
		t.Created = t.Created.UTC()
		result = append(result, &t)
	}
	return result, rows.Err()
}

// ==================== Snapshot Store ====================

func (s *Store) PutSnapshot(ctx context.Context, snap *accounting.Accounting) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO balance_snapshots (id, principal, day_end, balance, credits, debits, created)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (principal, day_end) DO UPDATE SET
    id      = excluded.id,
    balance = excluded.balance,
    credits = excluded.credits,
    debits  = excluded.debits,
    created = excluded.created`,
		snap.ID.String(), snap.Principal, snap.End.UTC(),
		snap.Balance.String(), snap.Credits.String(), snap.Debits.String(), snap.Created.UTC(),
	)
	return err
}

func (s *Store) GetSnapshot(ctx context.Context, principal string, end time.Time) (*accounting.Accounting, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, principal, day_end, balance, credits, debits, created
FROM balance_snapshots
WHERE principal = ? AND day_end = ?`,
		principal, end.UTC(),
	)
	return scanSnapshot(row)
}

func (s *Store) LatestSnapshot(ctx context.Context, principal string, from, to time.Time) (*accounting.Accounting, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, principal, day_end, balance, credits, debits, created
FROM balance_snapshots
WHERE principal = ? AND day_end >= ? AND day_end <= ?
ORDER BY day_end DESC
LIMIT 1`,
		principal, from.UTC(), to.UTC(),
	)
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (*accounting.Accounting, error) {
	var (
		snap                        accounting.Accounting
		rawID                       string
		balanceS, creditsS, debitsS string
	)
	err := row.Scan(&rawID, &snap.Principal, &snap.End, &balanceS, &creditsS, &debitsS, &snap.Created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, balance.ErrSnapshotNotFound
		}
		return nil, err
	}
	if snap.ID, err = id.ParseSnapshotID(rawID); err != nil {
		return nil, err
	}
	if snap.Balance, err = decimal.NewFromString(balanceS); err != nil {
		return nil, err
	}
	if snap.Credits, err = decimal.NewFromString(creditsS); err != nil {
		return nil, err
	}
	if snap.Debits, err = decimal.NewFromString(debitsS); err != nil {
		return nil, err
	}
	snap.End = snap.End.UTC()
	snap.Created = snap.Created.UTC()
	return &snap, nil
}

// ==================== Delta Cache ====================

// AddDelta reads and rewrites the cached value inside a transaction. The
// single-connection pool serializes writers, so the read-modify-write
// cannot interleave with another AddDelta.
func (s *Store) AddDelta(ctx context.Context, principal string, day time.Time, delta decimal.Decimal) (decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	current, err := readDecimal(tx.QueryRowContext(ctx, `
SELECT delta FROM balance_deltas WHERE principal = ? AND day = ?`,
		principal, types.DayKey(day),
	))
	if err != nil {
		return decimal.Zero, err
	}

	next := types.Round2(current.Add(delta))
	_, err = tx.ExecContext(ctx, `
INSERT INTO balance_deltas (principal, day, delta)
VALUES (?, ?, ?)
ON CONFLICT (principal, day) DO UPDATE SET delta = excluded.delta`,
		principal, types.DayKey(day), next.String(),
	)
	if err != nil {
		return decimal.Zero, err
	}
	return next, tx.Commit()
}

func (s *Store) GetDelta(ctx context.Context, principal string, day time.Time) (decimal.Decimal, error) {
	return readDecimal(s.db.QueryRowContext(ctx, `
SELECT delta FROM balance_deltas WHERE principal = ? AND day = ?`,
		principal, types.DayKey(day),
	))
}

func (s *Store) SetDelta(ctx context.Context, principal string, day time.Time, value decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO balance_deltas (principal, day, delta)
VALUES (?, ?, ?)
ON CONFLICT (principal, day) DO UPDATE SET delta = excluded.delta`,
		principal, types.DayKey(day), types.Round2(value).String(),
	)
	return err
}

func (s *Store) ClearDelta(ctx context.Context, principal string, day time.Time) error {
	_, err := s.db.ExecContext(ctx, `
DELETE FROM balance_deltas WHERE principal = ? AND day = ?`,
		principal, types.DayKey(day),
	)
	return err
}

// ==================== Frozen Funds ====================

func (s *Store) GetFrozen(ctx context.Context, principal string) (decimal.Decimal, error) {
	return readDecimal(s.db.QueryRowContext(ctx, `
SELECT amount FROM balance_frozen WHERE principal = ?`,
		principal,
	))
}

func (s *Store) AddFrozen(ctx context.Context, principal string, delta decimal.Decimal) (decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	current, err := readDecimal(tx.QueryRowContext(ctx, `
SELECT amount FROM balance_frozen WHERE principal = ?`,
		principal,
	))
	if err != nil {
		return decimal.Zero, err
	}

	next := types.Round2(current.Add(delta))
	_, err = tx.ExecContext(ctx, `
INSERT INTO balance_frozen (principal, amount)
VALUES (?, ?)
ON CONFLICT (principal) DO UPDATE SET amount = excluded.amount`,
		principal, next.String(),
	)
	if err != nil {
		return decimal.Zero, err
	}
	return next, tx.Commit()
}

func (s *Store) DeleteFrozen(ctx context.Context, principal string) error {
	_, err := s.db.ExecContext(ctx, `
DELETE FROM balance_frozen WHERE principal = ?`,
		principal,
	)
	return err
}

// ==================== Helpers ====================

type rowScanner interface {
	Scan(dest ...any) error
}

// readDecimal scans a single TEXT amount, treating a missing row as zero.
func readDecimal(row rowScanner) (decimal.Decimal, error) {
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(value)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
