// Package hook provides an extensible hook system for the balance engine.
// Hooks can observe lifecycle events to extend functionality.
package hook

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/transaction"
)

// Hook is the base interface that all hooks must implement.
type Hook interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Hook
	OnInit(ctx context.Context) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Hook
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnTransactionsAppended is called after a batch of transactions is
// committed to the ledger and the delta cache is updated.
type OnTransactionsAppended interface {
	Hook
	OnTransactionsAppended(ctx context.Context, txns []*transaction.Transaction) error
}

// OnStoreError is called when a store write fails off the main request
// path, such as a delta cache increment after the ledger append already
// committed. The op names the failed store operation.
type OnStoreError interface {
	Hook
	OnStoreError(ctx context.Context, op, principal string, err error) error
}

// ──────────────────────────────────────────────────
// Rollup hooks
// ──────────────────────────────────────────────────

// Auditor is called for each day snapshot before it is persisted.
// Audit failures are logged and do not block the rollup.
type Auditor interface {
	Hook
	Audit(ctx context.Context, snap *accounting.Accounting, txns []*transaction.Transaction) error
}

// OnRollupCompleted is called after a rollup pass finishes for a principal.
type OnRollupCompleted interface {
	Hook
	OnRollupCompleted(ctx context.Context, principal string, produced int, elapsed time.Duration) error
}

// OnReconciliationMismatch is called when the cached daily delta disagrees
// with the sum recomputed from the ledger.
type OnReconciliationMismatch interface {
	Hook
	OnReconciliationMismatch(ctx context.Context, principal string, day time.Time, ledgerSum, cachedDelta decimal.Decimal) error
}

// ──────────────────────────────────────────────────
// Frozen funds hooks
// ──────────────────────────────────────────────────

// OnFundsFrozen is called after funds are frozen for a principal.
type OnFundsFrozen interface {
	Hook
	OnFundsFrozen(ctx context.Context, principal string, amount, total decimal.Decimal) error
}

// OnFundsUnfrozen is called after funds are released for a principal.
type OnFundsUnfrozen interface {
	Hook
	OnFundsUnfrozen(ctx context.Context, principal string, amount, total decimal.Decimal) error
}
