package accounting

import (
	"context"
	"time"
)

// Store is the snapshot slice of the unified storage interface.
type Store interface {
	// Put upserts a snapshot keyed by (principal, end). Concurrent
	// rollups racing to write the same day must both succeed.
	Put(ctx context.Context, snap *Accounting) error

	// Get returns the snapshot for an exact day-end instant.
	Get(ctx context.Context, principal string, end time.Time) (*Accounting, error)

	// Latest returns the newest snapshot with end in [from, to].
	Latest(ctx context.Context, principal string, from, to time.Time) (*Accounting, error)
}
