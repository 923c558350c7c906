package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/transaction"
)

// Registry manages all registered hooks and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger

	// Type-cached hook lists for efficient dispatch
	onInit                   []OnInit
	onShutdown               []OnShutdown
	onTransactionsAppended   []OnTransactionsAppended
	onStoreError             []OnStoreError
	auditors                 []Auditor
	onRollupCompleted        []OnRollupCompleted
	onReconciliationMismatch []OnReconciliationMismatch
	onFundsFrozen            []OnFundsFrozen
	onFundsUnfrozen          []OnFundsUnfrozen
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a hook to the registry and caches its interfaces.
func (r *Registry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.hooks {
		if existing.Name() == h.Name() {
			return fmt.Errorf("hook: duplicate registration: %s", h.Name())
		}
	}

	r.hooks = append(r.hooks, h)

	// Type-switch to cache interfaces
	if v, ok := h.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := h.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := h.(OnTransactionsAppended); ok {
		r.onTransactionsAppended = append(r.onTransactionsAppended, v)
	}
	if v, ok := h.(OnStoreError); ok {
		r.onStoreError = append(r.onStoreError, v)
	}
	if v, ok := h.(Auditor); ok {
		r.auditors = append(r.auditors, v)
	}
	if v, ok := h.(OnRollupCompleted); ok {
		r.onRollupCompleted = append(r.onRollupCompleted, v)
	}
	if v, ok := h.(OnReconciliationMismatch); ok {
		r.onReconciliationMismatch = append(r.onReconciliationMismatch, v)
	}
	if v, ok := h.(OnFundsFrozen); ok {
		r.onFundsFrozen = append(r.onFundsFrozen, v)
	}
	if v, ok := h.(OnFundsUnfrozen); ok {
		r.onFundsUnfrozen = append(r.onFundsUnfrozen, v)
	}

	r.logger.Info("hook registered", "name", h.Name())

	return nil
}

// Get returns a hook by name.
func (r *Registry) Get(name string) Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.hooks {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// List returns all registered hooks.
func (r *Registry) List() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Hook, len(r.hooks))
	copy(result, r.hooks)
	return result
}

// Count returns the number of registered hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all hooks that implement it.
func (r *Registry) EmitInit(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnInit(ctx)
		}); err != nil {
			r.logger.Warn("hook OnInit failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all hooks that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("hook OnShutdown failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransactionsAppended emits a transactions appended event.
func (r *Registry) EmitTransactionsAppended(ctx context.Context, txns []*transaction.Transaction) {
	r.mu.RLock()
	hooks := r.onTransactionsAppended
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnTransactionsAppended(ctx, txns)
		}); err != nil {
			r.logger.Warn("hook OnTransactionsAppended failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitStoreError emits a store error event.
func (r *Registry) EmitStoreError(ctx context.Context, op, principal string, storeErr error) {
	r.mu.RLock()
	hooks := r.onStoreError
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnStoreError(ctx, op, principal, storeErr)
		}); err != nil {
			r.logger.Warn("hook OnStoreError failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitAudit calls every auditor with the snapshot about to be persisted.
func (r *Registry) EmitAudit(ctx context.Context, snap *accounting.Accounting, txns []*transaction.Transaction) {
	r.mu.RLock()
	hooks := r.auditors
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.Audit(ctx, snap, txns)
		}); err != nil {
			r.logger.Warn("hook Audit failed",
				"hook", h.Name(),
				"principal", snap.Principal,
				"error", err,
			)
		}
	}
}

// EmitRollupCompleted emits a rollup completed event.
func (r *Registry) EmitRollupCompleted(ctx context.Context, principal string, produced int, elapsed time.Duration) {
	r.mu.RLock()
	hooks := r.onRollupCompleted
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnRollupCompleted(ctx, principal, produced, elapsed)
		}); err != nil {
			r.logger.Warn("hook OnRollupCompleted failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitReconciliationMismatch emits a reconciliation mismatch event.
func (r *Registry) EmitReconciliationMismatch(ctx context.Context, principal string, day time.Time, ledgerSum, cachedDelta decimal.Decimal) {
	r.mu.RLock()
	hooks := r.onReconciliationMismatch
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnReconciliationMismatch(ctx, principal, day, ledgerSum, cachedDelta)
		}); err != nil {
			r.logger.Warn("hook OnReconciliationMismatch failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitFundsFrozen emits a funds frozen event.
func (r *Registry) EmitFundsFrozen(ctx context.Context, principal string, amount, total decimal.Decimal) {
	r.mu.RLock()
	hooks := r.onFundsFrozen
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnFundsFrozen(ctx, principal, amount, total)
		}); err != nil {
			r.logger.Warn("hook OnFundsFrozen failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitFundsUnfrozen emits a funds unfrozen event.
func (r *Registry) EmitFundsUnfrozen(ctx context.Context, principal string, amount, total decimal.Decimal) {
	r.mu.RLock()
	hooks := r.onFundsUnfrozen
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnFundsUnfrozen(ctx, principal, amount, total)
		}); err != nil {
			r.logger.Warn("hook OnFundsUnfrozen failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a hook function with a timeout.
// Hooks should never block the accounting pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, hookName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("hook timeout: %s", hookName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
