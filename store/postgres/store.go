// Package postgres implements the balance store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	balance "github.com/niobium-nz/balance"
	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/id"
	"github.com/niobium-nz/balance/store"
	"github.com/niobium-nz/balance/transaction"
	"github.com/niobium-nz/balance/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL and returns a Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("balance/postgres: connect: %w", err)
	}
	return New(pool), nil
}

// New creates a Store on an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying connection pool for direct access.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate creates the required tables and indexes. Applied migrations are
// tracked in balance_migrations, so Migrate is safe to call on every start.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS balance_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`)
	if err != nil {
		return fmt.Errorf("balance/postgres: create migration table: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM balance_migrations WHERE version = $1)`, m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("balance/postgres: check migration %s: %w", m.Name, err)
		}
		if exists {
			continue
		}
		if _, err := s.pool.Exec(ctx, m.Up); err != nil {
			return fmt.Errorf("balance/postgres: migration %s failed: %w", m.Name, err)
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO balance_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name,
		); err != nil {
			return fmt.Errorf("balance/postgres: record migration %s: %w", m.Name, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ==================== Ledger Store ====================

func (s *Store) AppendTransactions(ctx context.Context, txns []*transaction.Transaction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, t := range txns {
		_, err := tx.Exec(ctx, `
INSERT INTO balance_transactions (principal, id, delta, reason, remark, reference, correlation, created)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.Principal, t.ID, t.Delta.String(), int(t.Reason), t.Remark, t.Reference, t.Correlation, t.Created,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return balance.ErrDuplicateTransaction
			}
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) QueryTransactions(ctx context.Context, principal string, from, to time.Time) ([]*transaction.Transaction, error) {
	lo, hi := id.ChronoRange(from, to)

	// Ascending chrono-key order is reverse chronological: newest first.
	rows, err := s.pool.Query(ctx, `
SELECT principal, id, delta::text, reason, remark, reference, correlation, created
FROM balance_transactions
WHERE principal = $1 AND id >= $2 AND id <= $3
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
			return nil, fmt.Errorf("balance/postgres: parse delta %q: %w", delta, err)
		}
		t.Reason = transaction.Reason(reason)
		t.Created = t.Created.UTC()
		result = append(result, &t)
	}
	return result, rows.Err()
}

// ==================== Snapshot Store ====================

func (s *Store) PutSnapshot(ctx context.Context, snap *accounting.Accounting) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO balance_snapshots (id, principal, day_end, balance, credits, debits, created)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (principal, day_end) DO UPDATE SET
    id      = EXCLUDED.id,
    balance = EXCLUDED.balance,
    credits = EXCLUDED.credits,
    debits  = EXCLUDED.debits,
    created = EXCLUDED.created`,
		snap.ID.String(), snap.Principal, snap.End,
		snap.Balance.String(), snap.Credits.String(), snap.Debits.String(), snap.Created,
	)
	return err
}

func (s *Store) GetSnapshot(ctx context.Context, principal string, end time.Time) (*accounting.Accounting, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, principal, day_end, balance::text, credits::text, debits::text, created
FROM balance_snapshots
WHERE principal = $1 AND day_end = $2`,
		principal, end,
	)
	return scanSnapshot(row)
}

func (s *Store) LatestSnapshot(ctx context.Context, principal string, from, to time.Time) (*accounting.Accounting, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, principal, day_end, balance::text, credits::text, debits::text, created
FROM balance_snapshots
WHERE principal = $1 AND day_end >= $2 AND day_end <= $3
ORDER BY day_end DESC
LIMIT 1`,
		principal, from, to,
	)
	return scanSnapshot(row)
}

func scanSnapshot(row pgx.Row) (*accounting.Accounting, error) {
	var (
		snap                        accounting.Accounting
		rawID                       string
		balanceS, creditsS, debitsS string
	)
	err := row.Scan(&rawID, &snap.Principal, &snap.End, &balanceS, &creditsS, &debitsS, &snap.Created)
	if err != nil {
		if isNoRows(err) {
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

// AddDelta is atomic: the accumulation happens inside a single upsert
// statement, so concurrent writers never lose updates.
func (s *Store) AddDelta(ctx context.Context, principal string, day time.Time, delta decimal.Decimal) (decimal.Decimal, error) {
	var next string
	err := s.pool.QueryRow(ctx, `
INSERT INTO balance_deltas (principal, day, delta)
VALUES ($1, $2, round($3::numeric, 2))
ON CONFLICT (principal, day) DO UPDATE SET
    delta = round(balance_deltas.delta + EXCLUDED.delta, 2)
RETURNING delta::text`,
		principal, types.DayKey(day), delta.String(),
	).Scan(&next)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(next)
}

func (s *Store) GetDelta(ctx context.Context, principal string, day time.Time) (decimal.Decimal, error) {
	var value string
	err := s.pool.QueryRow(ctx, `
SELECT delta::text FROM balance_deltas WHERE principal = $1 AND day = $2`,
		principal, types.DayKey(day),
	).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(value)
}

func (s *Store) SetDelta(ctx context.Context, principal string, day time.Time, value decimal.Decimal) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO balance_deltas (principal, day, delta)
VALUES ($1, $2, round($3::numeric, 2))
ON CONFLICT (principal, day) DO UPDATE SET delta = EXCLUDED.delta`,
		principal, types.DayKey(day), value.String(),
	)
	return err
}

func (s *Store) ClearDelta(ctx context.Context, principal string, day time.Time) error {
	_, err := s.pool.Exec(ctx, `
DELETE FROM balance_deltas WHERE principal = $1 AND day = $2`,
		principal, types.DayKey(day),
	)
	return err
}

// ==================== Frozen Funds ====================

func (s *Store) GetFrozen(ctx context.Context, principal string) (decimal.Decimal, error) {
	var value string
	err := s.pool.QueryRow(ctx, `
SELECT amount::text FROM balance_frozen WHERE principal = $1`,
		principal,
	).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(value)
}

func (s *Store) AddFrozen(ctx context.Context, principal string, delta decimal.Decimal) (decimal.Decimal, error) {
	var next string
	err := s.pool.QueryRow(ctx, `
INSERT INTO balance_frozen (principal, amount)
VALUES ($1, round($2::numeric, 2))
ON CONFLICT (principal) DO UPDATE SET
    amount = round(balance_frozen.amount + EXCLUDED.amount, 2)
RETURNING amount::text`,
		principal, delta.String(),
	).Scan(&next)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(next)
}

func (s *Store) DeleteFrozen(ctx context.Context, principal string) error {
	_, err := s.pool.Exec(ctx, `
DELETE FROM balance_frozen WHERE principal = $1`,
		principal,
	)
	return err
}

// ==================== Helpers ====================

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
