package mailer

import (
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testGroup() *domain.Group {
	alice := &domain.Person{Name: "Alice", Email: "alice@example.com", AccountNumbers: []int{1111}}
	bob := &domain.Person{Name: "Bob", Email: "bob@example.com", AccountNumbers: []int{2222}}
	g := domain.NewGroup([]*domain.Person{alice, bob})
	g.AddTransactions([]domain.Transaction{
		{Date: civil.Date{Year: 2025, Month: 1, Day: 10}, Description: "Pizza", AccountNumber: 1111, Amount: dec("30.00"), Category: domain.CategoryDining},
		{Date: civil.Date{Year: 2025, Month: 1, Day: 20}, Description: "Groceries", AccountNumber: 2222, Amount: dec("70.00"), Category: domain.CategoryGroceries},
	})
	return g
}

func TestRenderSubject(t *testing.T) {
	subject, err := RenderSubject(testGroup())
	if err != nil {
		t.Fatalf("RenderSubject: %v", err)
	}
	want := "Transactions Summary: 01/10/25 - 01/20/25"
	if subject != want {
		t.Errorf("subject = %q, want %q", subject, want)
	}
}

func TestRenderSubjectEmptyGroup(t *testing.T) {
	g := domain.NewGroup([]*domain.Person{{Name: "Alice"}})
	if _, err := RenderSubject(g); err == nil {
		t.Error("expected error for group without transactions")
	}
}

func TestRenderSummaryBody(t *testing.T) {
	body, err := RenderSummaryBody(testGroup(), dec("0.5"), nil)
	if err != nil {
		t.Fatalf("RenderSummaryBody: %v", err)
	}

	for _, want := range []string{
		"Expense Summary",
		"Alice", "Bob",
		"$30.00", "$70.00",
		"Difference",
		// Debt for Alice at an even split: 0.5*100 - 30 = 20.
		"Alice owes Bob: <strong>$20.00</strong>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "Warning") {
		t.Error("body contains warning section without errors")
	}
}

func TestRenderSummaryBodyWithErrors(t *testing.T) {
	body, err := RenderSummaryBody(testGroup(), dec("0.5"), []string{"Row 3: invalid amount"})
	if err != nil {
		t.Fatalf("RenderSummaryBody: %v", err)
	}
	if !strings.Contains(body, "Some transactions were skipped") {
		t.Error("body missing warning header")
	}
	if !strings.Contains(body, "<li>Row 3: invalid amount</li>") {
		t.Error("body missing error item")
	}
}

func TestRenderErrorBody(t *testing.T) {
	body := RenderErrorBody([]string{"Row 1: missing date"})
	if !strings.Contains(body, "Upload Failed") {
		t.Error("body missing header")
	}
	if !strings.Contains(body, "<li>Row 1: missing date</li>") {
		t.Error("body missing error item")
	}
}

func TestToCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"1234.5", "$1,234.50"},
		{"1000000", "$1,000,000.00"},
		{"-42.75", "-$42.75"},
		{"999.999", "$1,000.00"},
	}
	for _, tt := range tests {
		if got := toCurrency(dec(tt.in)); got != tt.want {
			t.Errorf("toCurrency(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
