// Package audithook bridges balance engine lifecycle events to an audit
// trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular backend. Callers inject a RecorderFunc adapter, or a
// concrete publisher such as events/kafka, at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/hook"
	"github.com/niobium-nz/balance/transaction"
)

// Compile-time interface checks.
var (
	_ hook.Hook                     = (*Extension)(nil)
	_ hook.OnTransactionsAppended   = (*Extension)(nil)
	_ hook.Auditor                  = (*Extension)(nil)
	_ hook.OnRollupCompleted        = (*Extension)(nil)
	_ hook.OnReconciliationMismatch = (*Extension)(nil)
	_ hook.OnFundsFrozen            = (*Extension)(nil)
	_ hook.OnFundsUnfrozen          = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges balance engine lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements hook.Hook.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnTransactionsAppended implements hook.OnTransactionsAppended.
func (e *Extension) OnTransactionsAppended(ctx context.Context, txns []*transaction.Transaction) error {
	for _, tx := range txns {
		if err := e.record(ctx, ActionTransactionAppended, SeverityInfo, OutcomeSuccess,
			ResourceTransaction, tx.Principal, CategoryLedger, nil,
			"transaction_id", tx.ID,
			"delta", tx.Delta.String(),
			"reason", tx.Reason.String(),
			"reference", tx.Reference,
			"correlation", tx.Correlation,
		); err != nil {
			return err
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Rollup hooks
// ──────────────────────────────────────────────────

// Audit implements hook.Auditor. It is called for each day snapshot
// before it is persisted.
func (e *Extension) Audit(ctx context.Context, snap *accounting.Accounting, txns []*transaction.Transaction) error {
	return e.record(ctx, ActionSnapshotCreated, SeverityInfo, OutcomeSuccess,
		ResourceSnapshot, snap.Principal, CategoryAccounting, nil,
		"day_end", snap.End.Format(time.RFC3339),
		"balance", snap.Balance.String(),
		"credits", snap.Credits.String(),
		"debits", snap.Debits.String(),
		"transactions", len(txns),
	)
}

// OnRollupCompleted implements hook.OnRollupCompleted.
func (e *Extension) OnRollupCompleted(ctx context.Context, principal string, produced int, elapsed time.Duration) error {
	return e.record(ctx, ActionRollupCompleted, SeverityInfo, OutcomeSuccess,
		ResourcePrincipal, principal, CategoryAccounting, nil,
		"snapshots_produced", produced,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnReconciliationMismatch implements hook.OnReconciliationMismatch.
func (e *Extension) OnReconciliationMismatch(ctx context.Context, principal string, day time.Time, ledgerSum, cachedDelta decimal.Decimal) error {
	return e.record(ctx, ActionReconciliationMismatch, SeverityWarning, OutcomeFailure,
		ResourcePrincipal, principal, CategoryReconciliation, nil,
		"day", day.Format("2006-01-02"),
		"ledger_sum", ledgerSum.String(),
		"cached_delta", cachedDelta.String(),
		"difference", ledgerSum.Sub(cachedDelta).String(),
	)
}

// ──────────────────────────────────────────────────
// Frozen funds hooks
// ──────────────────────────────────────────────────

// OnFundsFrozen implements hook.OnFundsFrozen.
func (e *Extension) OnFundsFrozen(ctx context.Context, principal string, amount, total decimal.Decimal) error {
	return e.record(ctx, ActionFundsFrozen, SeverityInfo, OutcomeSuccess,
		ResourceFrozenFunds, principal, CategoryFunds, nil,
		"amount", amount.String(),
		"total_frozen", total.String(),
	)
}

// OnFundsUnfrozen implements hook.OnFundsUnfrozen.
func (e *Extension) OnFundsUnfrozen(ctx context.Context, principal string, amount, total decimal.Decimal) error {
	return e.record(ctx, ActionFundsUnfrozen, SeverityInfo, OutcomeSuccess,
		ResourceFrozenFunds, principal, CategoryFunds, nil,
		"amount", amount.String(),
		"total_frozen", total.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
