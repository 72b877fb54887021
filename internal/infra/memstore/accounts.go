package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/splitledger/internal/domain"
)

// AccountStore keeps synced external accounts in memory, per user.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]map[string]domain.Account
}

// NewAccountStore creates an empty in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]map[string]domain.Account)}
}

// UpsertAccounts replaces the stored snapshot of each account for the user.
func (s *AccountStore) UpsertAccounts(ctx context.Context, user string, accounts []domain.Account) error {
	if user == "" {
		return fmt.Errorf("memstore: account user is required")
	}
	for _, a := range accounts {
		if a.ID == "" {
			return fmt.Errorf("memstore: account ID is required")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.accounts[user]
	if !ok {
		byID = make(map[string]domain.Account)
		s.accounts[user] = byID
	}
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return nil
}

// ListAccounts returns the user's synced accounts ordered by ID.
func (s *AccountStore) ListAccounts(ctx context.Context, user string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.Account, 0, len(s.accounts[user]))
	for _, a := range s.accounts[user] {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}
