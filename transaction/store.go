package transaction

import (
	"context"
	"time"
)

// Store is the ledger slice of the unified storage interface.
type Store interface {
	// Append persists a batch of transactions. Inserting a duplicate
	// (principal, id) pair fails.
	Append(ctx context.Context, txns []*Transaction) error

	// QueryRange returns a principal's transactions created in
	// [from, to], newest first.
	QueryRange(ctx context.Context, principal string, from, to time.Time) ([]*Transaction, error)
}
