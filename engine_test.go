package balance_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	balance "github.com/niobium-nz/balance"
	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/store/memory"
	"github.com/niobium-nz/balance/transaction"
	"github.com/niobium-nz/balance/types"
)

// testClock is a settable Clock for driving day boundaries in tests.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{t: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// countingAuditor records every snapshot handed to the audit hook.
type countingAuditor struct {
	mu    sync.Mutex
	snaps []*accounting.Accounting
}

func (a *countingAuditor) Name() string { return "counting-auditor" }

func (a *countingAuditor) Audit(_ context.Context, snap *accounting.Accounting, _ []*transaction.Transaction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snaps = append(a.snaps, snap)
	return nil
}

func (a *countingAuditor) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.snaps)
}

// deltaFailingStore wraps the memory store and refuses delta increments.
type deltaFailingStore struct {
	*memory.Store
}

func (s *deltaFailingStore) AddDelta(context.Context, string, time.Time, decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("delta write refused")
}

// storeErrorHook records store error events.
type storeErrorHook struct {
	mu  sync.Mutex
	ops []string
}

func (h *storeErrorHook) Name() string { return "store-error-recorder" }

func (h *storeErrorHook) OnStoreError(_ context.Context, op, _ string, _ error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = append(h.ops, op)
	return nil
}

func (h *storeErrorHook) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.ops...)
}

func amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("NewFromString(%q): %v", s, err)
	}
	return d
}

func newTestEngine(t *testing.T, clk *testClock) (*balance.Engine, *memory.Store, *countingAuditor) {
	t.Helper()
	st := memory.New()
	auditor := &countingAuditor{}
	eng := balance.New(st,
		balance.WithClock(clk),
		balance.WithHook(auditor),
	)
	return eng, st, auditor
}

var dayD = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func TestMakeTransactionRounding(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock(dayD)
	eng, _, _ := newTestEngine(t, clk)

	tx, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, "1.005")})
	if err != nil {
		t.Fatalf("MakeTransaction: %v", err)
	}
	if tx.Delta.String() != "1.01" {
		t.Errorf("expected stored delta 1.01, got %s", tx.Delta)
	}

	tx, err = eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, "-1.005")})
	if err != nil {
		t.Fatalf("MakeTransaction: %v", err)
	}
	if tx.Delta.String() != "-1.01" {
		t.Errorf("expected stored delta -1.01, got %s", tx.Delta)
	}
}

func TestMakeTransactionValidation(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t, newTestClock(dayD))

	_, err := eng.MakeTransaction(ctx, "  ", &transaction.Request{Delta: amount(t, "1")})
	if !errors.Is(err, balance.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for blank principal, got %v", err)
	}

	_, err = eng.MakeTransactions(ctx, "P1", nil)
	if !errors.Is(err, balance.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty batch, got %v", err)
	}
}

func TestMakeTransactionGeneratesIDAndCorrelation(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t, newTestClock(dayD))

	tx, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, "5")})
	if err != nil {
		t.Fatalf("MakeTransaction: %v", err)
	}
	if tx.ID == "" {
		t.Error("expected generated transaction id")
	}
	if tx.Correlation == "" {
		t.Error("expected generated correlation")
	}

	tx2, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{
		Delta:       amount(t, "5"),
		ID:          "custom-id",
		Correlation: "corr-1",
	})
	if err != nil {
		t.Fatalf("MakeTransaction: %v", err)
	}
	if tx2.ID != "custom-id" || tx2.Correlation != "corr-1" {
		t.Errorf("expected caller-supplied id and correlation preserved, got %q %q", tx2.ID, tx2.Correlation)
	}
}

func TestMakeTransactionSurfacesDeltaCacheFailure(t *testing.T) {
	ctx := context.Background()
	st := &deltaFailingStore{Store: memory.New()}
	errHook := &storeErrorHook{}
	eng := balance.New(st,
		balance.WithClock(newTestClock(dayD)),
		balance.WithHook(errHook),
	)

	// The ledger append committed, so the call itself succeeds.
	if _, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, "10.00")}); err != nil {
		t.Fatalf("MakeTransaction: %v", err)
	}

	ops := errHook.recorded()
	if len(ops) != 1 || ops[0] != "add_delta" {
		t.Fatalf("expected one add_delta store error event, got %v", ops)
	}

	txns, err := st.QueryTransactions(ctx, "P1", types.DayStart(dayD), types.DayEnd(dayD))
	if err != nil {
		t.Fatalf("QueryTransactions: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected transaction in ledger despite cache failure, got %d", len(txns))
	}
}

func TestCacheLedgerAgreement(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock(dayD)
	eng, st, _ := newTestEngine(t, clk)

	deltas := []string{"10.00", "-2.50", "0.333", "1.005"}
	sum := decimal.Zero
	for _, d := range deltas {
		tx, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, d)})
		if err != nil {
			t.Fatalf("MakeTransaction(%s): %v", d, err)
		}
		sum = sum.Add(tx.Delta)
	}

	cached, err := st.GetDelta(ctx, "P1", dayD)
	if err != nil {
		t.Fatalf("GetDelta: %v", err)
	}
	if !cached.Equal(types.Round2(sum)) {
		t.Fatalf("expected cached delta %s, got %s", types.Round2(sum), cached)
	}

	// Roll the day up; the cache entry must be cleared.
	clk.Set(dayD.AddDate(0, 0, 1))
	if err := eng.Rollup(ctx, "P1"); err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	cached, err = st.GetDelta(ctx, "P1", dayD)
	if err != nil {
		t.Fatalf("GetDelta after rollup: %v", err)
	}
	if !cached.IsZero() {
		t.Fatalf("expected cleared delta after rollup, got %s", cached)
	}
}

func TestEndToEndRollup(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock(dayD)
	eng, st, _ := newTestEngine(t, clk)

	for _, d := range []string{"100.00", "-30.00"} {
		if _, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, d)}); err != nil {
			t.Fatalf("MakeTransaction(%s): %v", d, err)
		}
	}

	clk.Set(dayD.AddDate(0, 0, 1))
	if err := eng.Rollup(ctx, "P1"); err != nil {
		t.Fatalf("Rollup: %v", err)
	}

	snap, err := st.GetSnapshot(ctx, "P1", types.DayEnd(dayD))
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.Balance.String() != "70.00" {
		t.Errorf("expected balance 70.00, got %s", snap.Balance)
	}
	if snap.Credits.String() != "100.00" {
		t.Errorf("expected credits 100.00, got %s", snap.Credits)
	}
	if snap.Debits.String() != "-30.00" {
		t.Errorf("expected debits -30.00, got %s", snap.Debits)
	}
	if !snap.Stored() {
		t.Error("expected persisted snapshot to carry an id")
	}

	bal, err := eng.GetBalance(ctx, "P1", dayD)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.Total.String() != "70.00" {
		t.Errorf("expected total 70.00, got %s", bal.Total)
	}
}

func TestRollupIdempotent(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock(dayD)
	eng, _, auditor := newTestEngine(t, clk)

	if _, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, "42.00")}); err != nil {
		t.Fatalf("MakeTransaction: %v", err)
	}

	clk.Set(dayD.AddDate(0, 0, 1))
	if err := eng.Rollup(ctx, "P1"); err != nil {
		t.Fatalf("first Rollup: %v", err)
	}
	first := auditor.count()

	bal1, err := eng.GetBalance(ctx, "P1", dayD)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}

	if err := eng.Rollup(ctx, "P1"); err != nil {
		t.Fatalf("second Rollup: %v", err)
	}
	if auditor.count() != first {
		t.Errorf("expected no new snapshots on second rollup, got %d then %d", first, auditor.count())
	}

	bal2, err := eng.GetBalance(ctx, "P1", dayD)
	if err != nil {
		t.Fatalf("GetBalance after second rollup: %v", err)
	}
	if !bal1.Total.Equal(bal2.Total) {
		t.Errorf("expected unchanged balance, got %s then %s", bal1.Total, bal2.Total)
	}
}

func TestRollupIncludesFinalMillisecondTransaction(t *testing.T) {
	ctx := context.Background()
	// Sub-millisecond instant inside the final millisecond of the day.
	lastInstant := time.Date(2026, 5, 10, 23, 59, 59, 999500000, time.UTC)
	clk := newTestClock(lastInstant)
	eng, st, _ := newTestEngine(t, clk)

	if _, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, "100.00")}); err != nil {
		t.Fatalf("MakeTransaction: %v", err)
	}

	clk.Set(dayD.AddDate(0, 0, 1))
	if err := eng.Rollup(ctx, "P1"); err != nil {
		t.Fatalf("Rollup: %v", err)
	}

	snap, err := st.GetSnapshot(ctx, "P1", types.DayEnd(dayD))
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.Credits.String() != "100.00" {
		t.Errorf("expected end-of-day transaction in credits, got %s", snap.Credits)
	}
	if snap.Balance.String() != "100.00" {
		t.Errorf("expected balance 100.00, got %s", snap.Balance)
	}
}

func TestMultiDayCatchUp(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock(dayD)
	eng, st, auditor := newTestEngine(t, clk)

	// Seed a snapshot the catch-up can chain from.
	clk.Set(dayD.AddDate(0, 0, -1))
	if _, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, "1.00")}); err != nil {
		t.Fatalf("seed MakeTransaction: %v", err)
	}
	clk.Set(dayD)
	if err := eng.Rollup(ctx, "P1"); err != nil {
		t.Fatalf("seed Rollup: %v", err)
	}
	seeded := auditor.count()

	// Transactions on three consecutive days, no rollup in between.
	daily := []string{"10.00", "20.00", "-5.00"}
	for i, d := range daily {
		clk.Set(dayD.AddDate(0, 0, i))
		if _, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, d)}); err != nil {
			t.Fatalf("MakeTransaction day %d: %v", i, err)
		}
	}

	clk.Set(dayD.AddDate(0, 0, 3))
	if err := eng.Rollup(ctx, "P1"); err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if got := auditor.count() - seeded; got != 3 {
		t.Fatalf("expected 3 new snapshots, got %d", got)
	}

	var prev *accounting.Accounting
	wantBalances := []string{"11.00", "31.00", "26.00"}
	for i, want := range wantBalances {
		snap, err := st.GetSnapshot(ctx, "P1", types.DayEnd(dayD.AddDate(0, 0, i)))
		if err != nil {
			t.Fatalf("GetSnapshot day %d: %v", i, err)
		}
		if snap.Balance.String() != want {
			t.Errorf("day %d: expected balance %s, got %s", i, want, snap.Balance)
		}
		if prev != nil && !accounting.Continuous(prev, snap) {
			t.Errorf("day %d: snapshot is not continuous with previous", i)
		}
		prev = snap
	}
}

func TestGetBalanceNewPrincipal(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock(dayD)
	eng, _, _ := newTestEngine(t, clk)

	bal, err := eng.GetBalance(ctx, "nobody", dayD)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !bal.Total.IsZero() || !bal.Frozen.IsZero() || !bal.Available.IsZero() {
		t.Errorf("expected all-zero balance for new principal, got %+v", bal)
	}
}

func TestGetBalanceTodayFastPath(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock(dayD)
	eng, _, _ := newTestEngine(t, clk)

	// No snapshot exists; today's cached delta alone answers the query.
	if _, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, "50.00")}); err != nil {
		t.Fatalf("MakeTransaction: %v", err)
	}

	bal, err := eng.GetBalance(ctx, "P1", dayD)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.Total.String() != "50.00" {
		t.Errorf("expected total 50.00 from cache path, got %s", bal.Total)
	}
}

func TestGetBalanceSnapshotPlusTodayCache(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock(dayD)
	eng, _, _ := newTestEngine(t, clk)

	if _, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, "100.00")}); err != nil {
		t.Fatalf("MakeTransaction: %v", err)
	}

	next := dayD.AddDate(0, 0, 1)
	clk.Set(next)
	if err := eng.Rollup(ctx, "P1"); err != nil {
		t.Fatalf("Rollup: %v", err)
	}

	// Today's activity on top of yesterday's snapshot.
	if _, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, "25.00")}); err != nil {
		t.Fatalf("MakeTransaction: %v", err)
	}

	bal, err := eng.GetBalance(ctx, "P1", next)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.Total.String() != "125.00" {
		t.Errorf("expected total 125.00, got %s", bal.Total)
	}
}

func TestFreezeGuards(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t, newTestClock(dayD))

	if _, err := eng.Freeze(ctx, "P1", amount(t, "-1")); !errors.Is(err, balance.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for negative freeze, got %v", err)
	}
	if _, err := eng.Unfreeze(ctx, "P1", amount(t, "-1")); !errors.Is(err, balance.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for negative unfreeze, got %v", err)
	}
}

func TestFrozenFundsAffectAvailable(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock(dayD)
	eng, _, _ := newTestEngine(t, clk)

	if _, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, "100.00")}); err != nil {
		t.Fatalf("MakeTransaction: %v", err)
	}
	if _, err := eng.Freeze(ctx, "P1", amount(t, "40.00")); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	bal, err := eng.GetBalance(ctx, "P1", dayD)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.Total.String() != "100.00" {
		t.Errorf("expected total 100.00, got %s", bal.Total)
	}
	if bal.Frozen.String() != "40.00" {
		t.Errorf("expected frozen 40.00, got %s", bal.Frozen)
	}
	if bal.Available.String() != "60.00" {
		t.Errorf("expected available 60.00, got %s", bal.Available)
	}

	if err := eng.UnfreezeAll(ctx, "P1"); err != nil {
		t.Fatalf("UnfreezeAll: %v", err)
	}
	frozen, err := eng.GetFrozen(ctx, "P1")
	if err != nil {
		t.Fatalf("GetFrozen: %v", err)
	}
	if !frozen.IsZero() {
		t.Errorf("expected zero frozen after UnfreezeAll, got %s", frozen)
	}
}

func TestRequestRollupQueueFull(t *testing.T) {
	st := memory.New()
	eng := balance.New(st, balance.WithRollupQueueSize(1))

	// Worker not started; the second enqueue must overflow.
	if err := eng.RequestRollup("P1"); err != nil {
		t.Fatalf("first RequestRollup: %v", err)
	}
	if err := eng.RequestRollup("P2"); !errors.Is(err, balance.ErrRollupQueueFull) {
		t.Fatalf("expected ErrRollupQueueFull, got %v", err)
	}

	if err := eng.RequestRollup("  "); !errors.Is(err, balance.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for blank principal, got %v", err)
	}
}

func TestStartStopRunsBackgroundRollup(t *testing.T) {
	ctx := context.Background()
	clk := newTestClock(dayD)
	st := memory.New()
	auditor := &countingAuditor{}
	eng := balance.New(st,
		balance.WithClock(clk),
		balance.WithHook(auditor),
	)

	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := eng.MakeTransaction(ctx, "P1", &transaction.Request{Delta: amount(t, "10.00")}); err != nil {
		t.Fatalf("MakeTransaction: %v", err)
	}
	clk.Set(dayD.AddDate(0, 0, 1))

	if err := eng.RequestRollup("P1"); err != nil {
		t.Fatalf("RequestRollup: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for auditor.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if auditor.count() != 1 {
		t.Fatalf("expected 1 snapshot from background rollup, got %d", auditor.count())
	}

	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
