package domain

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func tx(date string, account int, amount string, cat Category, ignore IgnoredFrom) Transaction {
	d, err := civil.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return Transaction{
		Date:          d,
		Description:   "test",
		AccountNumber: account,
		Amount:        decimal.RequireFromString(amount),
		Category:      cat,
		Ignore:        ignore,
	}
}

func TestPersonExpenses(t *testing.T) {
	p := &Person{Name: "A", AccountNumbers: []int{1}}
	p.AddTransaction(tx("2024-01-01", 1, "10.00", CategoryDining, IgnoredFromNothing))
	p.AddTransaction(tx("2024-01-02", 1, "20.00", CategoryGroceries, IgnoredFromNothing))

	if got := p.Expenses(""); !got.Equal(decimal.RequireFromString("30.00")) {
		t.Errorf("Expenses() = %s, want 30.00", got)
	}
	if got := p.Expenses(CategoryDining); !got.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("Expenses(Dining) = %s, want 10.00", got)
	}
}

func TestPersonExpensesEmpty(t *testing.T) {
	p := &Person{Name: "A"}
	if got := p.Expenses(""); !got.Equal(decimal.Zero) {
		t.Errorf("Expenses() on empty person = %s, want 0", got)
	}
}

func TestGroupAddTransactions(t *testing.T) {
	p1 := &Person{Name: "A", AccountNumbers: []int{1}}
	p2 := &Person{Name: "B", AccountNumbers: []int{2}}
	g := NewGroup([]*Person{p1, p2})

	g.AddTransactions([]Transaction{
		tx("2024-01-01", 1, "10.00", CategoryDining, IgnoredFromNothing),
		tx("2024-01-02", 2, "20.00", CategoryGroceries, IgnoredFromNothing),
		// Ignored flag excludes from aggregation.
		tx("2024-01-03", 1, "30.00", CategoryDining, IgnoredFromEverything),
		// Other category excludes from aggregation.
		tx("2024-01-04", 2, "40.00", CategoryOther, IgnoredFromNothing),
		// Unconfigured account is silently dropped.
		tx("2024-01-05", 99, "50.00", CategoryDining, IgnoredFromNothing),
	})

	if len(p1.Transactions) != 1 {
		t.Errorf("p1 has %d transactions, want 1", len(p1.Transactions))
	}
	if len(p2.Transactions) != 1 {
		t.Errorf("p2 has %d transactions, want 1", len(p2.Transactions))
	}
	if got := g.Expenses(); !got.Equal(decimal.RequireFromString("30.00")) {
		t.Errorf("group Expenses() = %s, want 30.00", got)
	}
}

func TestGroupExpensesDifference(t *testing.T) {
	p1 := &Person{Name: "A", AccountNumbers: []int{1}}
	p2 := &Person{Name: "B", AccountNumbers: []int{2}}
	g := NewGroup([]*Person{p1, p2})
	g.AddTransactions([]Transaction{
		tx("2024-01-01", 1, "25.00", CategoryDining, IgnoredFromNothing),
		tx("2024-01-01", 2, "10.00", CategoryDining, IgnoredFromNothing),
	})

	diff, err := g.ExpensesDifference(p1, p2, "")
	if err != nil {
		t.Fatalf("ExpensesDifference() error: %v", err)
	}
	if !diff.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("ExpensesDifference() = %s, want 15.00", diff)
	}
}

func TestGroupMembershipIsIdentity(t *testing.T) {
	p1 := &Person{Name: "A", AccountNumbers: []int{1}}
	g := NewGroup([]*Person{p1})

	// Structurally equal but a different instance.
	stranger := &Person{Name: "A", AccountNumbers: []int{1}}

	if _, err := g.ExpensesDifference(p1, stranger, ""); !errors.Is(err, ErrNotMember) {
		t.Errorf("ExpensesDifference with non-member = %v, want ErrNotMember", err)
	}
	if _, err := g.Debt(stranger, p1, decimal.NewFromFloat(0.5)); !errors.Is(err, ErrNotMember) {
		t.Errorf("Debt with non-member = %v, want ErrNotMember", err)
	}
}

func TestGroupDebtEvenSplit(t *testing.T) {
	p1 := &Person{Name: "A", AccountNumbers: []int{1}}
	p2 := &Person{Name: "B", AccountNumbers: []int{2}}
	g := NewGroup([]*Person{p1, p2})
	g.AddTransactions([]Transaction{
		tx("2024-01-01", 1, "30.00", CategoryDining, IgnoredFromNothing),
		tx("2024-01-01", 2, "30.00", CategoryGroceries, IgnoredFromNothing),
	})

	debt, err := g.Debt(p1, p2, decimal.NewFromFloat(0.5))
	if err != nil {
		t.Fatalf("Debt() error: %v", err)
	}
	if !debt.IsZero() {
		t.Errorf("Debt() = %s, want 0 for even totals", debt)
	}
}

func TestGroupDateRange(t *testing.T) {
	p1 := &Person{Name: "A", AccountNumbers: []int{1}}
	g := NewGroup([]*Person{p1})

	if _, err := g.OldestTransaction(); !errors.Is(err, ErrNoTransactions) {
		t.Errorf("OldestTransaction on empty group = %v, want ErrNoTransactions", err)
	}

	g.AddTransactions([]Transaction{
		tx("2024-03-15", 1, "1.00", CategoryDining, IgnoredFromNothing),
		tx("2024-01-02", 1, "1.00", CategoryDining, IgnoredFromNothing),
		tx("2024-02-10", 1, "1.00", CategoryDining, IgnoredFromNothing),
	})

	oldest, err := g.OldestTransaction()
	if err != nil {
		t.Fatalf("OldestTransaction() error: %v", err)
	}
	if oldest.String() != "2024-01-02" {
		t.Errorf("OldestTransaction() = %s, want 2024-01-02", oldest)
	}

	newest, err := g.NewestTransaction()
	if err != nil {
		t.Fatalf("NewestTransaction() error: %v", err)
	}
	if newest.String() != "2024-03-15" {
		t.Errorf("NewestTransaction() = %s, want 2024-03-15", newest)
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"Groceries", CategoryGroceries},
		{"Dining & Drinks", CategoryDining},
		{"Something Unknown", CategoryOther},
		{"", CategoryOther},
	}
	for _, tt := range tests {
		if got := ParseCategory(tt.in); got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseIgnoredFrom(t *testing.T) {
	for _, valid := range []string{"", "budget", "everything"} {
		if _, err := ParseIgnoredFrom(valid); err != nil {
			t.Errorf("ParseIgnoredFrom(%q) unexpected error: %v", valid, err)
		}
	}
	if _, err := ParseIgnoredFrom("sometimes"); err == nil {
		t.Error("ParseIgnoredFrom(\"sometimes\") expected error, got nil")
	}
}

func TestCreditCardCoversDate(t *testing.T) {
	rec := civil.Date{Year: 2024, Month: 1, Day: 15}
	card := &CreditCard{Name: "Visa", LastReconciled: &rec}

	if !card.CoversDate(civil.Date{Year: 2024, Month: 1, Day: 10}) {
		t.Error("date before reconciliation should be covered")
	}
	if card.CoversDate(civil.Date{Year: 2024, Month: 1, Day: 15}) {
		t.Error("reconciliation day itself should not be covered")
	}
	if card.CoversDate(civil.Date{Year: 2024, Month: 1, Day: 20}) {
		t.Error("date after reconciliation should not be covered")
	}

	unreconciled := &CreditCard{Name: "Amex"}
	if unreconciled.CoversDate(civil.Date{Year: 2020, Month: 1, Day: 1}) {
		t.Error("card without reconciliation covers nothing")
	}
}
