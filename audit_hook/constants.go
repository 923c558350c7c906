package audithook

// Action constants for audit events.
const (
	// Ledger actions
	ActionTransactionAppended = "transaction.appended"

	// Rollup actions
	ActionSnapshotCreated        = "snapshot.created"
	ActionRollupCompleted        = "rollup.completed"
	ActionReconciliationMismatch = "reconciliation.mismatch"

	// Frozen fund actions
	ActionFundsFrozen   = "funds.frozen"
	ActionFundsUnfrozen = "funds.unfrozen"
)

// Resource constants for audit events.
const (
	ResourceTransaction = "transaction"
	ResourceSnapshot    = "snapshot"
	ResourcePrincipal   = "principal"
	ResourceFrozenFunds = "frozen_funds"
)

// Category constants for audit events.
const (
	CategoryLedger         = "ledger"
	CategoryAccounting     = "accounting"
	CategoryReconciliation = "reconciliation"
	CategoryFunds          = "funds"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
