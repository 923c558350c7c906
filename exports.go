package balance

import (
	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/transaction"
	"github.com/niobium-nz/balance/types"
)

// Re-export common types for convenience so users don't have to import the
// entity packages.

// Transaction is re-exported from the transaction package.
type Transaction = transaction.Transaction

// TransactionRequest is re-exported from the transaction package.
type TransactionRequest = transaction.Request

// Accounting is re-exported from the accounting package.
type Accounting = accounting.Accounting

// AccountBalance is re-exported from the accounting package.
type AccountBalance = accounting.AccountBalance

// Clock is re-exported from the types package.
type Clock = types.Clock

// Re-export amount helpers
var (
	Round2 = types.Round2
	Amount = types.Amount
)
