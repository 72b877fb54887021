package balance_test

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/balance"
	"github.com/dvloznov/splitledger/internal/domain"
	"github.com/dvloznov/splitledger/internal/infra/memstore"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tx(dateStr string, account int, amount string) domain.Transaction {
	return domain.Transaction{
		Date:          date(dateStr),
		Description:   "test",
		AccountNumber: account,
		Amount:        decimal.RequireFromString(amount),
		Category:      domain.CategoryGroceries,
	}
}

func TestComputeDeltasReconciliationCutoff(t *testing.T) {
	rec := date("2024-01-15")
	cards := map[int]domain.CreditCard{
		1: {ID: "visa", AccountNumber: 1, LastReconciled: &rec},
	}

	// Before the cutoff: covered by the statement, skipped.
	deltas := balance.ComputeDeltas([]domain.Transaction{tx("2024-01-10", 1, "50.00")}, cards)
	if len(deltas) != 0 {
		t.Errorf("pre-cutoff transaction produced deltas: %v", deltas)
	}

	// After the cutoff: applied in full.
	deltas = balance.ComputeDeltas([]domain.Transaction{tx("2024-01-20", 1, "50.00")}, cards)
	if !deltas[1].Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("post-cutoff delta = %s, want 50.00", deltas[1])
	}
}

func TestComputeDeltasAccumulatesPerAccount(t *testing.T) {
	deltas := balance.ComputeDeltas([]domain.Transaction{
		tx("2024-01-10", 1, "10.00"),
		tx("2024-01-11", 1, "-2.50"),
		tx("2024-01-12", 2, "5.00"),
	}, nil)

	if !deltas[1].Equal(decimal.RequireFromString("7.50")) {
		t.Errorf("account 1 delta = %s, want 7.50", deltas[1])
	}
	if !deltas[2].Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("account 2 delta = %s, want 5.00", deltas[2])
	}
}

func TestUpdaterApply(t *testing.T) {
	ctx := context.Background()
	cards := memstore.NewCardStore()
	if err := cards.SaveCard(ctx, domain.CreditCard{
		ID:             "visa",
		Name:           "Visa",
		AccountNumber:  1,
		CurrentBalance: decimal.RequireFromString("100.00"),
	}); err != nil {
		t.Fatalf("SaveCard() error: %v", err)
	}

	u := balance.NewUpdater(cards, zerolog.Nop())
	err := u.Apply(ctx, []domain.Transaction{
		tx("2024-01-10", 1, "25.00"),
		tx("2024-01-11", 1, "25.00"),
		// No card for this account; silently ignored.
		tx("2024-01-12", 9, "99.00"),
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	all, err := cards.ListCards(ctx)
	if err != nil {
		t.Fatalf("ListCards() error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListCards() returned %d cards, want 1", len(all))
	}
	if !all[0].CurrentBalance.Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("balance after apply = %s, want 150.00", all[0].CurrentBalance)
	}
}

func TestUpdaterApplySkipsZeroDeltas(t *testing.T) {
	ctx := context.Background()
	cards := memstore.NewCardStore()
	if err := cards.SaveCard(ctx, domain.CreditCard{ID: "visa", AccountNumber: 1}); err != nil {
		t.Fatalf("SaveCard() error: %v", err)
	}

	u := balance.NewUpdater(cards, zerolog.Nop())
	// Amounts cancel out exactly; no write should happen, and either way the
	// balance must stay zero.
	err := u.Apply(ctx, []domain.Transaction{
		tx("2024-01-10", 1, "25.00"),
		tx("2024-01-11", 1, "-25.00"),
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	all, _ := cards.ListCards(ctx)
	if !all[0].CurrentBalance.IsZero() {
		t.Errorf("balance = %s, want 0", all[0].CurrentBalance)
	}
}
