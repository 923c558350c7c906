// Package transaction defines the append-only ledger records that change a
// principal's balance.
package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reason classifies why a balance-changing record was written.
type Reason int

// Reason codes.
const (
	ReasonUnspecified Reason = iota
	ReasonPayment
	ReasonRefund
	ReasonTopUp
	ReasonWithdrawal
	ReasonSettlement
	ReasonAdjustment
	ReasonFee
)

func (r Reason) String() string {
	switch r {
	case ReasonPayment:
		return "payment"
	case ReasonRefund:
		return "refund"
	case ReasonTopUp:
		return "topup"
	case ReasonWithdrawal:
		return "withdrawal"
	case ReasonSettlement:
		return "settlement"
	case ReasonAdjustment:
		return "adjustment"
	case ReasonFee:
		return "fee"
	default:
		return "unspecified"
	}
}

// Transaction is a single signed balance change. Transactions are immutable:
// written once by the append operation, never updated, never deleted in
// normal operation. A transaction is uniquely identified by (Principal, ID);
// IDs are chrono keys, so ascending id order within a principal is reverse
// chronological order.
type Transaction struct {
	Principal   string          `json:"principal"`
	ID          string          `json:"id"`
	Delta       decimal.Decimal `json:"delta"`
	Reason      Reason          `json:"reason"`
	Remark      string          `json:"remark,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	Correlation string          `json:"correlation,omitempty"`
	Created     time.Time       `json:"created"`
}

// Request describes one transaction to append. Delta is rounded to 2 decimal
// places (half away from zero) before storage. ID and Correlation are
// optional; omitted values are generated by the engine.
type Request struct {
	Delta       decimal.Decimal `json:"delta"`
	Reason      Reason          `json:"reason"`
	Remark      string          `json:"remark,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	ID          string          `json:"id,omitempty"`
	Correlation string          `json:"correlation,omitempty"`
}
