package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/domain"
)

// CardStore keeps credit cards in memory with a version counter per card,
// mirroring the compare-and-swap discipline of the DynamoDB backend.
type CardStore struct {
	mu       sync.Mutex
	cards    map[string]domain.CreditCard // by card ID
	versions map[string]int64
}

// NewCardStore creates an empty in-memory card store.
func NewCardStore() *CardStore {
	return &CardStore{
		cards:    make(map[string]domain.CreditCard),
		versions: make(map[string]int64),
	}
}

// ListCards returns all cards.
func (s *CardStore) ListCards(ctx context.Context) ([]domain.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := make([]domain.CreditCard, 0, len(s.cards))
	for _, c := range s.cards {
		cards = append(cards, c)
	}
	return cards, nil
}

// SaveCard upserts a card configuration, resetting nothing: the running
// balance is whatever the caller provides.
func (s *CardStore) SaveCard(ctx context.Context, card domain.CreditCard) error {
	if card.ID == "" {
		return fmt.Errorf("memstore: card ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.ID] = card
	s.versions[card.ID]++
	return nil
}

// ApplyBalanceDelta adds delta to the current balance of the card with the
// given account number, as one read-modify-write.
func (s *CardStore) ApplyBalanceDelta(ctx context.Context, accountNumber int, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.cards {
		if c.AccountNumber == accountNumber {
			c.CurrentBalance = c.CurrentBalance.Add(delta)
			s.cards[id] = c
			s.versions[id]++
			return nil
		}
	}
	return fmt.Errorf("memstore: credit card with account number %d not found", accountNumber)
}
