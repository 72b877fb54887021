// Package balance maintains derived credit-card balances from newly
// inserted transactions. It must only ever see the ledger's "newly inserted"
// output: feeding it the full parsed batch would double-count on
// re-ingestion.
package balance

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/domain"
)

// CardStore is the storage collaborator for credit cards. ApplyBalanceDelta
// implementations must use optimistic concurrency (compare-and-swap on a
// version token), never an unconditional overwrite: concurrent ingestions may
// update the same card.
type CardStore interface {
	ListCards(ctx context.Context) ([]domain.CreditCard, error)
	ApplyBalanceDelta(ctx context.Context, accountNumber int, delta decimal.Decimal) error
}

// Updater applies reconciliation-aware balance deltas.
type Updater struct {
	cards CardStore
	log   zerolog.Logger
}

// NewUpdater creates an updater over the given card store.
func NewUpdater(cards CardStore, log zerolog.Logger) *Updater {
	return &Updater{cards: cards, log: log}
}

// ComputeDeltas accumulates the signed amounts of newly inserted transactions
// into one delta per account. Transactions on a reconciled card dated before
// its last reconciliation are skipped: that period's balance was already
// fixed by an authoritative statement.
func ComputeDeltas(newlyInserted []domain.Transaction, cards map[int]domain.CreditCard) map[int]decimal.Decimal {
	deltas := make(map[int]decimal.Decimal)
	for _, t := range newlyInserted {
		if card, ok := cards[t.AccountNumber]; ok && card.CoversDate(t.Date) {
			continue
		}
		deltas[t.AccountNumber] = deltas[t.AccountNumber].Add(t.Amount)
	}
	return deltas
}

// Apply updates card balances for the newly inserted transactions: one
// read-modify-write per affected card, not per transaction. Accounts without
// a configured card are ignored. A failed card update is logged and does not
// block the others.
func (u *Updater) Apply(ctx context.Context, newlyInserted []domain.Transaction) error {
	if len(newlyInserted) == 0 {
		return nil
	}

	cards, err := u.cards.ListCards(ctx)
	if err != nil {
		return err
	}
	byAccount := make(map[int]domain.CreditCard, len(cards))
	for _, c := range cards {
		byAccount[c.AccountNumber] = c
	}

	for account, delta := range ComputeDeltas(newlyInserted, byAccount) {
		if _, ok := byAccount[account]; !ok {
			continue
		}
		if delta.IsZero() {
			continue
		}
		if err := u.cards.ApplyBalanceDelta(ctx, account, delta); err != nil {
			u.log.Error().Err(err).
				Int("account", account).
				Str("delta", delta.String()).
				Msg("Failed to update card balance")
		}
	}
	return nil
}
