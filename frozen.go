package balance

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/niobium-nz/balance/types"
)

// Freeze reserves amount against a principal's balance and returns the new
// frozen total. The amount must be non-negative.
func (e *Engine) Freeze(ctx context.Context, principal string, amount decimal.Decimal) (decimal.Decimal, error) {
	principal, err := validPrincipal(principal)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "must not be negative"}
	}

	total, err := e.store.AddFrozen(ctx, principal, types.Round2(amount))
	if err != nil {
		return decimal.Zero, err
	}

	e.hooks.EmitFundsFrozen(ctx, principal, amount, total)
	return total, nil
}

// Unfreeze releases amount of a principal's frozen funds and returns the new
// frozen total. The amount must be non-negative; no floor at zero is
// enforced on the resulting total.
func (e *Engine) Unfreeze(ctx context.Context, principal string, amount decimal.Decimal) (decimal.Decimal, error) {
	principal, err := validPrincipal(principal)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "must not be negative"}
	}

	total, err := e.store.AddFrozen(ctx, principal, types.Round2(amount).Neg())
	if err != nil {
		return decimal.Zero, err
	}

	e.hooks.EmitFundsUnfrozen(ctx, principal, amount, total)
	return total, nil
}

// UnfreezeAll releases all of a principal's frozen funds and deletes the
// tracking entry.
func (e *Engine) UnfreezeAll(ctx context.Context, principal string) error {
	principal, err := validPrincipal(principal)
	if err != nil {
		return err
	}

	current, err := e.store.GetFrozen(ctx, principal)
	if err != nil {
		return err
	}
	if err := e.store.DeleteFrozen(ctx, principal); err != nil {
		return err
	}

	e.hooks.EmitFundsUnfrozen(ctx, principal, current, decimal.Zero)
	return nil
}

// GetFrozen returns the frozen amount for a principal, zero if none.
func (e *Engine) GetFrozen(ctx context.Context, principal string) (decimal.Decimal, error) {
	principal, err := validPrincipal(principal)
	if err != nil {
		return decimal.Zero, err
	}

	frozen, err := e.store.GetFrozen(ctx, principal)
	if err != nil {
		return decimal.Zero, err
	}
	return types.Round2(frozen), nil
}
