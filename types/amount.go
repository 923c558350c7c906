// Package types provides common types used across the balance engine.
package types

import "github.com/shopspring/decimal"

// Round2 rounds an amount to 2 decimal places using round-half-away-from-zero,
// the rounding mode every stored amount in the ledger carries.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Amount parses a decimal string, panicking on malformed input.
// Use for hardcoded amounts in tests and examples.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SplitSigned splits a set of deltas into the sum of positive deltas
// (credits) and the sum of negative deltas (debits).
func SplitSigned(deltas []decimal.Decimal) (credits, debits decimal.Decimal) {
	for _, d := range deltas {
		if d.IsPositive() {
			credits = credits.Add(d)
		} else {
			debits = debits.Add(d)
		}
	}

	return credits, debits
}
