package balance_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	balance "github.com/niobium-nz/balance"
	audithook "github.com/niobium-nz/balance/audit_hook"
	"github.com/niobium-nz/balance/store/memory"
	"github.com/niobium-nz/balance/transaction"
)

// TestDocumentationExamples verifies that the examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Quick Start example from the package documentation
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		st := memory.New()

		// Initialize the engine with an audit hook
		recorder := audithook.RecorderFunc(func(_ context.Context, _ *audithook.AuditEvent) error {
			return nil
		})
		eng := balance.New(st,
			balance.WithLogger(slog.Default()),
			balance.WithHook(audithook.New(recorder)),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Append a transaction
		tx, err := eng.MakeTransaction(ctx, "acct-42", &transaction.Request{
			Delta:  decimal.RequireFromString("-19.99"),
			Reason: transaction.ReasonPayment,
			Remark: "order #1017",
		})
		if err != nil {
			t.Fatal(err)
		}
		if tx.Principal != "acct-42" {
			t.Fatalf("unexpected principal %q", tx.Principal)
		}

		// Query the balance
		bal, err := eng.GetBalance(ctx, "acct-42", time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if bal.Total.String() != "-19.99" {
			t.Fatalf("expected total -19.99, got %s", bal.Total)
		}

		// Schedule a rollup for later
		if err := eng.RequestRollup("acct-42"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("FrozenFundsExample", func(t *testing.T) {
		st := memory.New()
		eng := balance.New(st)

		ctx := context.Background()
		if _, err := eng.MakeTransaction(ctx, "acct-7", &transaction.Request{
			Delta:  decimal.RequireFromString("250.00"),
			Reason: transaction.ReasonTopUp,
		}); err != nil {
			t.Fatal(err)
		}

		// Hold part of the balance pending settlement
		if _, err := eng.Freeze(ctx, "acct-7", decimal.RequireFromString("100.00")); err != nil {
			t.Fatal(err)
		}

		bal, err := eng.GetBalance(ctx, "acct-7", time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if bal.Available.String() != "150.00" {
			t.Fatalf("expected available 150.00, got %s", bal.Available)
		}
	})
}
