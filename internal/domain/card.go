package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Account is a financial account synced from an external source. It is
// reference data: the ingestion pipeline never writes to it.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Mask           string          `json:"mask"`
	Institution    string          `json:"institution"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	CreditLimit    decimal.Decimal `json:"creditLimit"`
	Type           string          `json:"type"`
}

// CreditCard is a managed card whose running balance is maintained
// incrementally from newly ingested transactions.
type CreditCard struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	AccountNumber    int             `json:"accountNumber"`
	CreditLimit      decimal.Decimal `json:"creditLimit"`
	DueDay           int             `json:"dueDay"`
	StatementBalance decimal.Decimal `json:"statementBalance"`
	CurrentBalance   decimal.Decimal `json:"currentBalance"`

	// LastReconciled is the date up to which the balance was fixed by a
	// manual statement reconciliation. Only transactions dated on or after
	// it may adjust CurrentBalance. Nil means no reconciliation yet.
	LastReconciled *civil.Date `json:"lastReconciled,omitempty"`
}

// CoversDate reports whether the given transaction date falls in the period
// already fixed by reconciliation.
func (c *CreditCard) CoversDate(d civil.Date) bool {
	return c.LastReconciled != nil && d.Before(*c.LastReconciled)
}

// Utilization returns CurrentBalance / CreditLimit, or zero for a zero limit.
func (c *CreditCard) Utilization() decimal.Decimal {
	if c.CreditLimit.IsZero() {
		return decimal.Zero
	}
	return c.CurrentBalance.Div(c.CreditLimit)
}

// TargetPayment returns the payment needed to bring the card down to 10%
// utilization after the statement balance clears.
func (c *CreditCard) TargetPayment() decimal.Decimal {
	target := c.CreditLimit.Mul(decimal.NewFromFloat(0.1))
	return c.CurrentBalance.Sub(c.StatementBalance).Sub(target)
}
