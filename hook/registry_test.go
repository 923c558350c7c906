package hook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/niobium-nz/balance/transaction"
)

type recordingHook struct {
	name     string
	appended int
	rollups  int
	initErr  error
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) OnInit(_ context.Context) error { return h.initErr }

func (h *recordingHook) OnTransactionsAppended(_ context.Context, txns []*transaction.Transaction) error {
	h.appended += len(txns)
	return nil
}

func (h *recordingHook) OnRollupCompleted(_ context.Context, _ string, _ int, _ time.Duration) error {
	h.rollups++
	return nil
}

// shutdownOnly implements only the base Hook interface.
type shutdownOnly struct{}

func (shutdownOnly) Name() string { return "shutdown-only" }

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&recordingHook{name: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&recordingHook{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Fatalf("expected 1 registered hook, got %d", r.Count())
	}
}

func TestEmitDispatchesToImplementors(t *testing.T) {
	r := NewRegistry()
	h := &recordingHook{name: "rec"}
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(shutdownOnly{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx := context.Background()
	txns := []*transaction.Transaction{
		{Principal: "alice", Delta: decimal.NewFromInt(1)},
		{Principal: "alice", Delta: decimal.NewFromInt(2)},
	}
	r.EmitTransactionsAppended(ctx, txns)
	r.EmitRollupCompleted(ctx, "alice", 3, time.Second)

	if h.appended != 2 {
		t.Errorf("expected 2 appended transactions observed, got %d", h.appended)
	}
	if h.rollups != 1 {
		t.Errorf("expected 1 rollup observed, got %d", h.rollups)
	}
}

func TestEmitInitFailureDoesNotPropagate(t *testing.T) {
	r := NewRegistry()
	h := &recordingHook{name: "failing", initErr: errors.New("boom")}
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Failures are logged, not returned.
	r.EmitInit(context.Background())
}

func TestGetAndList(t *testing.T) {
	r := NewRegistry()
	h := &recordingHook{name: "rec"}
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if got := r.Get("rec"); got != h {
		t.Errorf("Get returned %v, expected registered hook", got)
	}
	if got := r.Get("missing"); got != nil {
		t.Errorf("Get for unknown name returned %v, expected nil", got)
	}
	if len(r.List()) != 1 {
		t.Errorf("expected List of length 1, got %d", len(r.List()))
	}
}
