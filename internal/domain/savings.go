package domain

import "github.com/shopspring/decimal"

// SavingsItem is one named line in a month's savings breakdown.
type SavingsItem struct {
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
}

// SavingsData is the savings state for one (user, month) partition: a
// starting balance plus itemized costs. It is replaced wholesale on save.
type SavingsData struct {
	StartingBalance decimal.Decimal `json:"startingBalance"`
	Items           []SavingsItem   `json:"items"`
}
