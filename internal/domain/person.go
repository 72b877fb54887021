package domain

import (
	"errors"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ErrNotMember is returned when a person passed to a group operation is not a
// member of that group. Membership is identity, not structural equality: two
// Person values with the same name and accounts are still distinct members.
var ErrNotMember = errors.New("person is not a member of the group")

// ErrNoTransactions is returned by date-range queries on a group that has no
// attached transactions.
var ErrNoTransactions = errors.New("no transactions in group")

// Person is a group member with a set of owned accounts and the ordered list
// of transactions attached to them.
type Person struct {
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	AccountNumbers []int         `json:"accountNumbers"`
	Transactions   []Transaction `json:"transactions,omitempty"`
}

// AddTransaction appends a transaction to the person's list.
func (p *Person) AddTransaction(t Transaction) {
	p.Transactions = append(p.Transactions, t)
}

// OwnsAccount reports whether the account number is in the person's set.
func (p *Person) OwnsAccount(accountNumber int) bool {
	for _, n := range p.AccountNumbers {
		if n == accountNumber {
			return true
		}
	}
	return false
}

// Expenses sums the person's attached transaction amounts as an exact
// decimal. A non-empty category restricts the sum to that category. An empty
// transaction list yields exact zero.
func (p *Person) Expenses(category Category) decimal.Decimal {
	total := decimal.Zero
	for _, t := range p.Transactions {
		if category != "" && t.Category != category {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total
}

// Group is an ordered collection of people used for cost-splitting.
type Group struct {
	Members []*Person
}

// NewGroup creates a group over the given members. The slice order is
// preserved; it drives rendering order in summaries.
func NewGroup(members []*Person) *Group {
	return &Group{Members: members}
}

func (g *Group) isMember(p *Person) bool {
	for _, m := range g.Members {
		if m == p {
			return true
		}
	}
	return false
}

// AddTransactions attaches each transaction to at most one member: the first
// member owning the account number, provided the transaction is not ignored
// and its category is tracked. Transactions whose account maps to no member
// are dropped; they belong to accounts outside the group's scope.
func (g *Group) AddTransactions(transactions []Transaction) {
	for _, t := range transactions {
		if t.Ignore != IgnoredFromNothing || t.Category == CategoryOther {
			continue
		}
		for _, m := range g.Members {
			if m.OwnsAccount(t.AccountNumber) {
				m.AddTransaction(t)
				break
			}
		}
	}
}

// Expenses returns the group-wide total across all members.
func (g *Group) Expenses() decimal.Decimal {
	total := decimal.Zero
	for _, m := range g.Members {
		total = total.Add(m.Expenses(""))
	}
	return total
}

// ExpensesDifference returns p1's total minus p2's total, optionally filtered
// by category. Both arguments must be members of the group.
func (g *Group) ExpensesDifference(p1, p2 *Person, category Category) (decimal.Decimal, error) {
	if !g.isMember(p1) || !g.isMember(p2) {
		return decimal.Zero, ErrNotMember
	}
	return p1.Expenses(category).Sub(p2.Expenses(category)), nil
}

// Debt returns the additional amount p1 owes p2 to reach the agreed
// cost-share fraction: scaleFactor * groupTotal - p1Total. A negative result
// means p1 has overpaid.
func (g *Group) Debt(p1, p2 *Person, scaleFactor decimal.Decimal) (decimal.Decimal, error) {
	if !g.isMember(p1) || !g.isMember(p2) {
		return decimal.Zero, ErrNotMember
	}
	return scaleFactor.Mul(g.Expenses()).Sub(p1.Expenses("")), nil
}

// OldestTransaction returns the earliest transaction date across all members.
func (g *Group) OldestTransaction() (civil.Date, error) {
	return g.scanDates(func(candidate, best civil.Date) bool {
		return candidate.Before(best)
	})
}

// NewestTransaction returns the latest transaction date across all members.
func (g *Group) NewestTransaction() (civil.Date, error) {
	return g.scanDates(func(candidate, best civil.Date) bool {
		return candidate.After(best)
	})
}

func (g *Group) scanDates(better func(candidate, best civil.Date) bool) (civil.Date, error) {
	var best civil.Date
	found := false
	for _, m := range g.Members {
		for _, t := range m.Transactions {
			if !found || better(t.Date, best) {
				best = t.Date
				found = true
			}
		}
	}
	if !found {
		return civil.Date{}, ErrNoTransactions
	}
	return best, nil
}

// Emails returns the non-empty member emails in member order.
func (g *Group) Emails() []string {
	var emails []string
	for _, m := range g.Members {
		if m.Email != "" {
			emails = append(emails, m.Email)
		}
	}
	return emails
}

// HasTransactions reports whether any member has at least one attached
// transaction.
func (g *Group) HasTransactions() bool {
	for _, m := range g.Members {
		if len(m.Transactions) > 0 {
			return true
		}
	}
	return false
}
