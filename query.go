package balance

import (
	"context"
	"errors"
	"time"

	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/types"
)

// GetBalance answers "balance as of time at" for a principal. It combines
// the newest snapshot no older than 30 days with cached deltas for any days
// the snapshot does not cover, then subtracts frozen funds. Queries for the
// current day always take the cache path, since today's snapshot cannot
// exist yet.
func (e *Engine) GetBalance(ctx context.Context, principal string, at time.Time) (*accounting.AccountBalance, error) {
	principal, err := validPrincipal(principal)
	if err != nil {
		return nil, err
	}

	at = types.DayEnd(at.UTC())

	frozen, err := e.store.GetFrozen(ctx, principal)
	if err != nil {
		return nil, err
	}
	frozen = types.Round2(frozen)

	now := e.now()
	useCache := types.SameDay(at, now)
	lookup := at
	if useCache {
		lookup = types.PrevDayEnd(at)
	}

	snap, err := e.store.GetSnapshot(ctx, principal, lookup)
	if errors.Is(err, ErrSnapshotNotFound) {
		snap, err = e.store.LatestSnapshot(ctx, principal, lookup.AddDate(0, 0, -snapshotLookbackDays), lookup)
	}
	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		// New principal: zero-value sentinel, always via the cache path.
		snap = &accounting.Accounting{Principal: principal}
		useCache = true
	case err != nil:
		return nil, err
	}

	balance := snap.Balance
	if useCache {
		var cursor time.Time
		if snap.Stored() {
			cursor = snap.End.Add(time.Millisecond)
		} else {
			cursor = at.AddDate(0, 0, -newPrincipalLookbackDays).Add(-time.Millisecond)
		}
		for cursor.Before(at) {
			delta, err := e.store.GetDelta(ctx, principal, cursor)
			if err != nil {
				return nil, err
			}
			balance = balance.Add(delta)
			cursor = cursor.AddDate(0, 0, 1)
		}
	}

	balance = types.Round2(balance)
	return &accounting.AccountBalance{
		Total:     balance,
		Frozen:    frozen,
		Available: types.Round2(balance.Sub(frozen)),
	}, nil
}
