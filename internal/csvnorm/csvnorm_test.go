package csvnorm

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/domain"
)

const header = "Date,Name,Account Number,Amount,Category,Ignored From"

func TestParseValidRows(t *testing.T) {
	content := header + "\n" +
		"2024-01-15,Coffee Shop,1234,4.50,Dining & Drinks,\n" +
		"2024-01-16,Supermarket,5678,82.10,Groceries,budget\n"

	txs, errs := Parse(content)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}

	first := txs[0]
	if first.Date.String() != "2024-01-15" {
		t.Errorf("date = %s, want 2024-01-15", first.Date)
	}
	if first.Description != "Coffee Shop" {
		t.Errorf("description = %q", first.Description)
	}
	if first.AccountNumber != 1234 {
		t.Errorf("account = %d, want 1234", first.AccountNumber)
	}
	if !first.Amount.Equal(decimal.RequireFromString("4.50")) {
		t.Errorf("amount = %s, want 4.50", first.Amount)
	}
	if first.Category != domain.CategoryDining {
		t.Errorf("category = %q", first.Category)
	}
	if txs[1].Ignore != domain.IgnoredFromBudget {
		t.Errorf("ignore = %q, want budget", txs[1].Ignore)
	}
}

func TestParseDateFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-01-15", "2024-01-15"},
		{"01/15/2024", "2024-01-15"},
		// Day-first only matches when month-first cannot parse.
		{"15/01/2024", "2024-01-15"},
		{"2024/01/15", "2024-01-15"},
		// Ambiguous: month-first wins by ordering.
		{"01/02/2025", "2025-01-02"},
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.in)
		if err != nil {
			t.Errorf("ParseDate(%q) error: %v", tt.in, err)
			continue
		}
		if d.String() != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, d, tt.want)
		}
	}

	if _, err := ParseDate("Jan 15, 2024"); err == nil {
		t.Error("ParseDate with unsupported format expected error")
	}
}

func TestParseRowErrors(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		wantSub string
	}{
		{"bad date", "not-a-date,Shop,1,5.00,Groceries,", "Row 1"},
		{"missing name", "2024-01-15,,1,5.00,Groceries,", "Name"},
		{"bad account", "2024-01-15,Shop,abc,5.00,Groceries,", "Account Number"},
		{"bad amount", "2024-01-15,Shop,1,lots,Groceries,", "Amount"},
		{"bad ignore flag", "2024-01-15,Shop,1,5.00,Groceries,sometimes", "Ignored From"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, errs := Parse(header + "\n" + tt.row + "\n")
			if len(txs) != 0 {
				t.Errorf("got %d transactions, want 0", len(txs))
			}
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
			}
			if !strings.Contains(errs[0], tt.wantSub) {
				t.Errorf("error %q missing %q", errs[0], tt.wantSub)
			}
		})
	}
}

func TestParseRowNumbersAreDataRelative(t *testing.T) {
	content := header + "\n" +
		"2024-01-15,Shop,1,5.00,Groceries,\n" +
		"bogus,Shop,1,5.00,Groceries,\n"

	txs, errs := Parse(content)
	if len(txs) != 1 {
		t.Errorf("got %d transactions, want 1", len(txs))
	}
	if len(errs) != 1 || !strings.Contains(errs[0], "Row 2") {
		t.Errorf("errors = %v, want one error containing \"Row 2\"", errs)
	}
}

func TestParseUnknownCategoryBecomesOther(t *testing.T) {
	txs, errs := Parse(header + "\n2024-01-15,Shop,1,5.00,Cryptocurrency,\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if txs[0].Category != domain.CategoryOther {
		t.Errorf("category = %q, want Other", txs[0].Category)
	}
}

func TestParseSkipsBlankLinesAndTrimsWhitespace(t *testing.T) {
	content := "  Date , Name ,Account Number, Amount ,Category,Ignored From\n" +
		"\n" +
		" 2024-01-15 , Shop , 1 , 5.00 , Groceries ,\n" +
		"\n"

	txs, errs := Parse(content)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	if txs[0].Description != "Shop" {
		t.Errorf("description = %q, want trimmed \"Shop\"", txs[0].Description)
	}
}

func TestParseBadRowDoesNotAbortScan(t *testing.T) {
	content := header + "\n" +
		"bogus,Shop,1,5.00,Groceries,\n" +
		"2024-01-15,Shop,1,5.00,Groceries,\n" +
		"2024-01-16,Market,2,7.00,Groceries,\n"

	txs, errs := Parse(content)
	if len(txs) != 2 {
		t.Errorf("got %d transactions, want 2", len(txs))
	}
	if len(errs) != 1 {
		t.Errorf("got %d errors, want 1", len(errs))
	}
}

func TestParseStrayQuoteDoesNotAbortScan(t *testing.T) {
	content := header + "\n" +
		"2024-01-15,Bad \"Quote,1,5.00,Groceries,\n" +
		"2024-01-16,Market,2,7.00,Groceries,\n"

	txs, errs := Parse(content)
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want the valid row to survive", len(txs))
	}
	if txs[0].Description != "Market" {
		t.Errorf("description = %q, want \"Market\"", txs[0].Description)
	}
	if len(errs) != 1 || !strings.Contains(errs[0], "Row 1") {
		t.Errorf("errors = %v, want one error containing \"Row 1\"", errs)
	}
}

func TestParseEmptyAndHeaderOnly(t *testing.T) {
	for _, content := range []string{"", "\n\n", header, header + "\n"} {
		txs, errs := Parse(content)
		if len(txs) != 0 || len(errs) != 0 {
			t.Errorf("Parse(%q) = %d txs, %d errors; want 0, 0", content, len(txs), len(errs))
		}
	}
}
