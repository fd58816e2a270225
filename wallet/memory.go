package wallet

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and development. All mutations
// happen under one lock, preserving the atomic credit contract.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[int64]*Account
	ledger   map[int64][]Transaction
	nextID   int64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]*Account),
		ledger:   make(map[int64][]Transaction),
	}
}

var _ Store = (*MemoryStore)(nil)

// FindByTelegramID returns a copy of the account or ErrNotFound.
func (s *MemoryStore) FindByTelegramID(_ context.Context, telegramID int64) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[telegramID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

// Transactions returns the newest ledger entries for an identity.
func (s *MemoryStore) Transactions(_ context.Context, telegramID int64, limit int) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.ledger[telegramID]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	out := make([]Transaction, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// CreditDeposit applies the upsert, increment, and append under the store lock.
func (s *MemoryStore) CreditDeposit(_ context.Context, dep Deposit) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	acc, ok := s.accounts[dep.TelegramID]
	if !ok {
		acc = &Account{TelegramID: dep.TelegramID, CreatedAt: now}
		s.accounts[dep.TelegramID] = acc
	}
	acc.Phone = dep.Phone
	acc.Balance = acc.Balance.Add(dep.Amount)
	acc.UpdatedAt = now

	s.nextID++
	s.ledger[dep.TelegramID] = append(s.ledger[dep.TelegramID], Transaction{
		ID:         s.nextID,
		TelegramID: dep.TelegramID,
		Kind:       KindDeposit,
		Amount:     dep.Amount,
		Reference:  dep.Reference,
		OccurredAt: now,
	})

	cp := *acc
	return &cp, nil
}
