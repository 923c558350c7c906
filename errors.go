package balance

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrInvalidArgument = errors.New("balance: invalid argument")
	ErrNotFound        = errors.New("balance: not found")
	ErrAlreadyExists   = errors.New("balance: already exists")

	// Ledger errors
	ErrDuplicateTransaction = errors.New("balance: duplicate transaction")

	// Snapshot errors
	ErrSnapshotNotFound = errors.New("balance: snapshot not found")
	// ErrSnapshotNotVisible reports a snapshot that could not be read back
	// immediately after a successful write. Retryable; never swallowed.
	ErrSnapshotNotVisible = errors.New("balance: snapshot not readable after write")

	// Engine errors
	ErrRollupQueueFull = errors.New("balance: rollup queue full")

	// Store errors
	ErrStoreNotReady = errors.New("balance: store not ready")
	ErrStoreClosed   = errors.New("balance: store is closed")
)

// ValidationError represents an input-validation failure with details.
// It is raised before any I/O is attempted and unwraps to ErrInvalidArgument.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("balance: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidArgument) match validation failures.
func (e ValidationError) Unwrap() error {
	return ErrInvalidArgument
}
