// Package store defines the unified storage interface for the balance
// engine. Any keyed store supporting point lookup by (principal, id) and an
// ordered range scan over ids within a principal can back it; the module
// ships memory, postgres, sqlite, and mongo implementations.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/transaction"
)

// Store is the unified storage interface for all balance entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// The delta cache and frozen funds are adjuncts, not systems of record: the
// transaction ledger is authoritative and both can be rebuilt from it. Their
// Add operations MUST be atomic under concurrent callers for the same key;
// a read-then-write implementation loses updates.
type Store interface {
	// Ledger methods
	AppendTransactions(ctx context.Context, txns []*transaction.Transaction) error
	QueryTransactions(ctx context.Context, principal string, from, to time.Time) ([]*transaction.Transaction, error)

	// Snapshot methods
	PutSnapshot(ctx context.Context, snap *accounting.Accounting) error
	GetSnapshot(ctx context.Context, principal string, end time.Time) (*accounting.Accounting, error)
	LatestSnapshot(ctx context.Context, principal string, from, to time.Time) (*accounting.Accounting, error)

	// Delta cache methods. Entries are keyed by (principal, UTC calendar
	// day of the given instant); values are rounded to 2 decimals.
	AddDelta(ctx context.Context, principal string, day time.Time, delta decimal.Decimal) (decimal.Decimal, error)
	GetDelta(ctx context.Context, principal string, day time.Time) (decimal.Decimal, error)
	SetDelta(ctx context.Context, principal string, day time.Time, value decimal.Decimal) error
	ClearDelta(ctx context.Context, principal string, day time.Time) error

	// Frozen funds methods. AddFrozen applies a signed change and returns
	// the new total; DeleteFrozen removes the entry entirely.
	GetFrozen(ctx context.Context, principal string) (decimal.Decimal, error)
	AddFrozen(ctx context.Context, principal string, delta decimal.Decimal) (decimal.Decimal, error)
	DeleteFrozen(ctx context.Context, principal string) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
