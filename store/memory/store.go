// Package memory provides an in-memory Store for tests, examples, and
// single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	balance "github.com/niobium-nz/balance"
	"github.com/niobium-nz/balance/accounting"
	"github.com/niobium-nz/balance/id"
	"github.com/niobium-nz/balance/store"
	"github.com/niobium-nz/balance/transaction"
	"github.com/niobium-nz/balance/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Ledger: per principal, sorted ascending by chrono key (newest first).
	transactions map[string][]*transaction.Transaction

	// Snapshots keyed by principal + "|" + day key.
	snapshots map[string]*accounting.Accounting

	// Delta cache keyed by principal + "|" + day key.
	deltas map[string]decimal.Decimal

	// Frozen funds keyed by principal.
	frozen map[string]decimal.Decimal

	closed bool
}

func New() *Store {
	return &Store{
		transactions: make(map[string][]*transaction.Transaction),
		snapshots:    make(map[string]*accounting.Accounting),
		deltas:       make(map[string]decimal.Decimal),
		frozen:       make(map[string]decimal.Decimal),
	}
}

func dayKey(principal string, t time.Time) string {
	return principal + "|" + types.DayKey(t)
}

// Ledger methods

func (s *Store) AppendTransactions(_ context.Context, txns []*transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range txns {
		existing := s.transactions[tx.Principal]
		for _, e := range existing {
			if e.ID == tx.ID {
				return balance.ErrDuplicateTransaction
			}
		}
	}

	touched := make(map[string]bool)
	for _, tx := range txns {
		cp := *tx
		s.transactions[tx.Principal] = append(s.transactions[tx.Principal], &cp)
		touched[tx.Principal] = true
	}
	for principal := range touched {
		list := s.transactions[principal]
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}

	return nil
}

func (s *Store) QueryTransactions(_ context.Context, principal string, from, to time.Time) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := id.ChronoRange(from, to)

	// Ascending chrono-key order is reverse chronological: newest first.
	result := make([]*transaction.Transaction, 0)
	for _, tx := range s.transactions[principal] {
		if tx.ID >= lo && tx.ID <= hi {
			cp := *tx
			result = append(result, &cp)
		}
	}

	return result, nil
}

// Snapshot methods

func (s *Store) PutSnapshot(_ context.Context, snap *accounting.Accounting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *snap
	s.snapshots[dayKey(snap.Principal, snap.End)] = &cp

	return nil
}

func (s *Store) GetSnapshot(_ context.Context, principal string, end time.Time) (*accounting.Accounting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if snap, ok := s.snapshots[dayKey(principal, end)]; ok {
		cp := *snap
		return &cp, nil
	}

	return nil, balance.ErrSnapshotNotFound
}

func (s *Store) LatestSnapshot(_ context.Context, principal string, from, to time.Time) (*accounting.Accounting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *accounting.Accounting
	for _, snap := range s.snapshots {
		if snap.Principal != principal {
			continue
		}
		if snap.End.Before(from) || snap.End.After(to) {
			continue
		}
		if latest == nil || snap.End.After(latest.End) {
			latest = snap
		}
	}
	if latest == nil {
		return nil, balance.ErrSnapshotNotFound
	}

	cp := *latest
	return &cp, nil
}

// Delta cache methods

func (s *Store) AddDelta(_ context.Context, principal string, day time.Time, delta decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(principal, day)
	next := types.Round2(s.deltas[key].Add(delta))
	s.deltas[key] = next

	return next, nil
}

func (s *Store) GetDelta(_ context.Context, principal string, day time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.deltas[dayKey(principal, day)], nil
}

func (s *Store) SetDelta(_ context.Context, principal string, day time.Time, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deltas[dayKey(principal, day)] = types.Round2(value)

	return nil
}

func (s *Store) ClearDelta(_ context.Context, principal string, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.deltas, dayKey(principal, day))

	return nil
}

// Frozen funds methods

func (s *Store) GetFrozen(_ context.Context, principal string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.frozen[principal], nil
}

func (s *Store) AddFrozen(_ context.Context, principal string, delta decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := types.Round2(s.frozen[principal].Add(delta))
	s.frozen[principal] = next

	return next, nil
}

func (s *Store) DeleteFrozen(_ context.Context, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.frozen, principal)

	return nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return balance.ErrStoreClosed
	}

	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}
