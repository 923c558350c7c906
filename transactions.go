package balance

import (
	"context"

	"github.com/google/uuid"

	"github.com/niobium-nz/balance/id"
	"github.com/niobium-nz/balance/transaction"
	"github.com/niobium-nz/balance/types"
)

// MakeTransaction appends a single signed balance change to a principal's
// ledger. See MakeTransactions.
func (e *Engine) MakeTransaction(ctx context.Context, principal string, req *transaction.Request) (*transaction.Transaction, error) {
	txns, err := e.MakeTransactions(ctx, principal, []*transaction.Request{req})
	if err != nil {
		return nil, err
	}
	return txns[0], nil
}

// MakeTransactions appends a batch of signed balance changes to a principal's
// ledger. Deltas are rounded to 2 decimal places (half away from zero) before
// storage. Missing ids are generated from the current instant so that
// ascending id order is reverse chronological; missing correlations get a
// fresh UUID. The day's delta cache entry is incremented atomically for each
// written transaction.
func (e *Engine) MakeTransactions(ctx context.Context, principal string, reqs []*transaction.Request) ([]*transaction.Transaction, error) {
	principal, err := validPrincipal(principal)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, &ValidationError{Field: "requests", Message: "must not be empty"}
	}

	now := e.now()
	txns := make([]*transaction.Transaction, 0, len(reqs))
	for _, req := range reqs {
		txID := req.ID
		if txID == "" {
			txID = id.NewChrono(now)
		}
		correlation := req.Correlation
		if correlation == "" {
			correlation = uuid.NewString()
		}
		txns = append(txns, &transaction.Transaction{
			Principal:   principal,
			ID:          txID,
			Delta:       types.Round2(req.Delta),
			Reason:      req.Reason,
			Remark:      req.Remark,
			Reference:   req.Reference,
			Correlation: correlation,
			Created:     now,
		})
	}

	if err := e.store.AppendTransactions(ctx, txns); err != nil {
		return nil, err
	}

	for _, tx := range txns {
		if _, err := e.store.AddDelta(ctx, principal, tx.Created, tx.Delta); err != nil {
			// The ledger write already committed; the cache will be
			// reconciled from the ledger at rollup time. Until then the
			// same-day balance fast path under-reports, so the failure is
			// surfaced through the store error hook as well.
			e.logger.Error("delta cache increment failed",
				"principal", principal,
				"transaction_id", tx.ID,
				"error", err,
			)
			e.hooks.EmitStoreError(ctx, "add_delta", principal, err)
		}
	}

	e.hooks.EmitTransactionsAppended(ctx, txns)
	return txns, nil
}
