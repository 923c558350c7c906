// Package accounting defines the daily balance snapshots the rollup engine
// produces and the point-in-time balance view derived from them.
package accounting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/niobium-nz/balance/id"
	"github.com/niobium-nz/balance/types"
)

// Accounting is a day-end balance checkpoint. Immutable once written.
//
// End is the day-end instant the snapshot covers, normalized to
// 23:59:59.999 UTC. For a given principal, snapshots form a sequence of
// consecutive calendar days with
//
//	balance[n] == round2(balance[n-1] + credits[n] + debits[n])
//
// A principal that has never been rolled up is represented by the zero
// value: no ID, zero balance. Stored() distinguishes the two.
type Accounting struct {
	ID        id.SnapshotID   `json:"id"`
	Principal string          `json:"principal"`
	End       time.Time       `json:"end"`
	Balance   decimal.Decimal `json:"balance"`
	Credits   decimal.Decimal `json:"credits"`
	Debits    decimal.Decimal `json:"debits"`
	Created   time.Time       `json:"created"`
}

// Stored reports whether the snapshot was read from the store, as opposed to
// the zero-value sentinel that stands in for a brand-new principal.
func (a *Accounting) Stored() bool {
	return a != nil && !a.ID.IsNil()
}

// Continuous reports whether next is a valid successor of prev: covering the
// very next calendar day with a correctly chained balance.
func Continuous(prev, next *Accounting) bool {
	if prev == nil || next == nil {
		return false
	}
	if !types.SameDay(prev.End.AddDate(0, 0, 1), next.End) {
		return false
	}

	return next.Balance.Equal(types.Round2(prev.Balance.Add(next.Credits).Add(next.Debits)))
}

// AccountBalance is the derived, non-persisted answer to "balance as of T".
type AccountBalance struct {
	Total     decimal.Decimal `json:"total"`
	Frozen    decimal.Decimal `json:"frozen"`
	Available decimal.Decimal `json:"available"`
}
