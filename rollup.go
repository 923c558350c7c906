package balance

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/id"
	"github.com/niobium-nz/balance/types"
)

const (
	// snapshotLookbackDays bounds the search for a principal's most recent
	// snapshot. A principal inactive longer than this restarts from zero.
	snapshotLookbackDays = 30

	// newPrincipalLookbackDays bounds the cached-delta walk for a principal
	// with no snapshot at all.
	newPrincipalLookbackDays = 3
)

// Rollup folds all un-snapshotted days for a principal into daily snapshots,
// up to and including yesterday (UTC). It is idempotent: running it twice
// with no new transactions produces no additional snapshots. Rollups for the
// same principal are serialized; a cancelled rollup resumes from the last
// written snapshot on the next call.
func (e *Engine) Rollup(ctx context.Context, principal string) error {
	principal, err := validPrincipal(principal)
	if err != nil {
		return err
	}

	lock := e.principalLock(principal)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()
	now := e.now()
	target := types.PrevDayEnd(now)

	var (
		previous decimal.Decimal
		cursor   time.Time
	)
	snap, err := e.store.LatestSnapshot(ctx, principal, target.AddDate(0, 0, -snapshotLookbackDays), target)
	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		// New principal: produce exactly one snapshot, for the target day.
		cursor = target
	case err != nil:
		return err
	default:
		previous = snap.Balance
		cursor = types.DayEnd(snap.End.Add(time.Millisecond))
	}

	produced := 0
	for !cursor.After(target) {
		if err := ctx.Err(); err != nil {
			return err
		}
		daySnap, err := e.snapshotDay(ctx, principal, cursor, previous)
		if err != nil {
			return err
		}
		if daySnap == nil {
			// Future-day guard tripped; stop here and resume next run.
			break
		}
		previous = daySnap.Balance
		cursor = cursor.AddDate(0, 0, 1)
		produced++
	}

	elapsed := time.Since(started)
	e.hooks.EmitRollupCompleted(ctx, principal, produced, elapsed)

	e.logger.Debug("rollup completed",
		"principal", principal,
		"snapshots_produced", produced,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return nil
}

// snapshotDay computes and persists the snapshot for one day. It returns
// (nil, nil) when dayEnd is in the future, which halts the rollup loop.
func (e *Engine) snapshotDay(ctx context.Context, principal string, dayEnd time.Time, previous decimal.Decimal) (*accounting.Accounting, error) {
	now := e.now()
	if dayEnd.After(now) {
		return nil, nil
	}

	dayStart := types.DayStart(dayEnd)
	txns, err := e.store.QueryTransactions(ctx, principal, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	deltas := make([]decimal.Decimal, len(txns))
	for i, tx := range txns {
		deltas[i] = tx.Delta
	}
	credits, debits := types.SplitSigned(deltas)

	// Reconciliation diagnostic: the cached delta should equal the ledger
	// sum for the day. A mismatch is logged and emitted, never fatal.
	cached, err := e.store.GetDelta(ctx, principal, dayEnd)
	if err != nil {
		return nil, err
	}
	ledgerSum := credits.Add(debits)
	if !ledgerSum.Equal(cached) {
		e.logger.Warn("delta cache disagrees with ledger",
			"principal", principal,
			"day", types.DayKey(dayEnd),
			"ledger_sum", ledgerSum.String(),
			"cached_delta", cached.String(),
		)
		e.hooks.EmitReconciliationMismatch(ctx, principal, dayEnd, ledgerSum, cached)
	}

	snap := &accounting.Accounting{
		ID:        id.NewSnapshotID(),
		Principal: principal,
		End:       dayEnd,
		Balance:   types.Round2(previous.Add(credits).Add(debits)),
		Credits:   types.Round2(credits),
		Debits:    types.Round2(debits),
		Created:   now,
	}

	// Audit before persisting; audit failures are logged, not fatal.
	e.hooks.EmitAudit(ctx, snap, txns)

	if err := e.store.PutSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	// Read-after-write check: a snapshot that is not immediately visible
	// points at store replication lag and must surface, not be swallowed.
	if _, err := e.store.GetSnapshot(ctx, principal, dayEnd); err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return nil, ErrSnapshotNotVisible
		}
		return nil, err
	}

	if err := e.store.ClearDelta(ctx, principal, dayEnd); err != nil {
		return nil, err
	}

	return snap, nil
}
