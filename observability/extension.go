// Package observability provides a metrics extension for the balance engine
// that records lifecycle event counts via an injected MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/niobium-nz/balance/hook"
	"github.com/niobium-nz/balance/transaction"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ hook.Hook                     = (*MetricsExtension)(nil)
	_ hook.OnInit                   = (*MetricsExtension)(nil)
	_ hook.OnTransactionsAppended   = (*MetricsExtension)(nil)
	_ hook.OnStoreError             = (*MetricsExtension)(nil)
	_ hook.OnRollupCompleted        = (*MetricsExtension)(nil)
	_ hook.OnReconciliationMismatch = (*MetricsExtension)(nil)
	_ hook.OnFundsFrozen            = (*MetricsExtension)(nil)
	_ hook.OnFundsUnfrozen          = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine hook to automatically track accounting metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Ledger metrics
	TransactionsAppended Counter
	TransactionBatchSize Histogram

	// Rollup metrics
	SnapshotsProduced Counter
	RollupRuns        Counter
	RollupLatency     Histogram

	// Reconciliation metrics
	ReconciliationMismatches Counter

	// Frozen fund metrics
	FreezeOperations   Counter
	UnfreezeOperations Counter

	// Error metrics
	StoreErrors Counter
	HookErrors  Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Ledger metrics
		TransactionsAppended: factory.Counter("balance.transactions.appended"),
		TransactionBatchSize: factory.Histogram("balance.transactions.batch.size"),

		// Rollup metrics
		SnapshotsProduced: factory.Counter("balance.rollup.snapshots.produced"),
		RollupRuns:        factory.Counter("balance.rollup.runs"),
		RollupLatency:     factory.Histogram("balance.rollup.latency_ms"),

		// Reconciliation metrics
		ReconciliationMismatches: factory.Counter("balance.reconciliation.mismatches"),

		// Frozen fund metrics
		FreezeOperations:   factory.Counter("balance.frozen.freeze"),
		UnfreezeOperations: factory.Counter("balance.frozen.unfreeze"),

		// Error metrics
		StoreErrors: factory.Counter("balance.store.errors"),
		HookErrors:  factory.Counter("balance.hook.errors"),
	}
}

// Name implements hook.Hook.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements hook.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context) error {
	// No initialization needed
	return nil
}

// OnTransactionsAppended implements hook.OnTransactionsAppended.
func (m *MetricsExtension) OnTransactionsAppended(_ context.Context, txns []*transaction.Transaction) error {
	count := float64(len(txns))
	m.TransactionsAppended.Add(count)
	m.TransactionBatchSize.Observe(count)
	return nil
}

// OnStoreError implements hook.OnStoreError.
func (m *MetricsExtension) OnStoreError(_ context.Context, _, _ string, _ error) error {
	m.StoreErrors.Inc()
	return nil
}

// OnRollupCompleted implements hook.OnRollupCompleted.
func (m *MetricsExtension) OnRollupCompleted(_ context.Context, _ string, produced int, elapsed time.Duration) error {
	m.RollupRuns.Inc()
	m.SnapshotsProduced.Add(float64(produced))
	m.RollupLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnReconciliationMismatch implements hook.OnReconciliationMismatch.
func (m *MetricsExtension) OnReconciliationMismatch(_ context.Context, _ string, _ time.Time, _, _ decimal.Decimal) error {
	m.ReconciliationMismatches.Inc()
	return nil
}

// OnFundsFrozen implements hook.OnFundsFrozen.
func (m *MetricsExtension) OnFundsFrozen(_ context.Context, _ string, _, _ decimal.Decimal) error {
	m.FreezeOperations.Inc()
	return nil
}

// OnFundsUnfrozen implements hook.OnFundsUnfrozen.
func (m *MetricsExtension) OnFundsUnfrozen(_ context.Context, _ string, _, _ decimal.Decimal) error {
	m.UnfreezeOperations.Inc()
	return nil
}
