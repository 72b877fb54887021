package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// IgnoredFrom marks a transaction as excluded from certain views.
type IgnoredFrom string

const (
	IgnoredFromNothing    IgnoredFrom = ""
	IgnoredFromBudget     IgnoredFrom = "budget"
	IgnoredFromEverything IgnoredFrom = "everything"
)

// ParseIgnoredFrom validates a raw CSV value. Unlike categories, an unknown
// value here is an error: silently misclassifying an ignore flag would pull
// excluded transactions back into the split.
func ParseIgnoredFrom(s string) (IgnoredFrom, error) {
	switch IgnoredFrom(s) {
	case IgnoredFromNothing, IgnoredFromBudget, IgnoredFromEverything:
		return IgnoredFrom(s), nil
	default:
		return "", fmt.Errorf("invalid 'Ignored From' value: %q", s)
	}
}

// Transaction is one normalized financial transaction. Amounts are exact
// decimals (signed); dates are calendar dates with no time component.
// Transactions are created once at parse time and never mutated.
type Transaction struct {
	Date          civil.Date      `json:"date"`
	Description   string          `json:"description"`
	AccountNumber int             `json:"accountNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Category      Category        `json:"category"`
	Ignore        IgnoredFrom     `json:"ignore"`
}

// MonthKey returns the transaction's calendar month as "YYYY-MM". A
// transaction belongs to exactly one ledger partition, derived from this.
func (t Transaction) MonthKey() string {
	return fmt.Sprintf("%04d-%02d", t.Date.Year, int(t.Date.Month))
}
