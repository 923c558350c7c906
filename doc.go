// Package balance provides a per-principal balance ledger with daily
// accounting rollups for Go applications.
//
// Balance is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - An append-only transaction ledger with time-ordered ids
//   - A per-day delta cache with atomic increments
//   - Idempotent daily snapshot rollups that catch up any number of days
//   - Point-in-time balance queries from snapshot plus cached deltas
//   - Frozen-funds tracking independent of the ledger
//   - Pluggable hooks for audit trails and metrics
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/niobium-nz/balance"
//	    "github.com/niobium-nz/balance/store/postgres"
//	)
//
//	// Initialize store
//	st, err := postgres.Open(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create engine
//	eng := balance.New(st)
//
//	// Start the engine (migrates the store, begins background workers)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Transactions are signed balance changes, appended and never mutated:
//
//	tx, err := eng.MakeTransaction(ctx, "acct-42", &transaction.Request{
//	    Delta:  decimal.RequireFromString("-19.99"),
//	    Reason: transaction.ReasonPayment,
//	})
//
// Rollup folds every un-snapshotted day into a daily snapshot, up to and
// including yesterday (UTC). Run it on a schedule, or enqueue it:
//
//	err := eng.Rollup(ctx, "acct-42")
//	err = eng.RequestRollup("acct-42") // async, via background worker
//
// GetBalance answers "balance as of time T" from the newest snapshot plus
// cached deltas for days the snapshot does not cover:
//
//	bal, err := eng.GetBalance(ctx, "acct-42", time.Now())
//	fmt.Println(bal.Total, bal.Frozen, bal.Available)
//
// # Amounts
//
// All monetary values are shopspring decimals rounded to 2 decimal places
// using round-half-away-from-zero. The ledger is the source of truth; the
// delta cache and frozen-funds entries are rebuildable adjuncts.
package balance
