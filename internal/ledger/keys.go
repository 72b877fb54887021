package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dvloznov/splitledger/internal/domain"
)

// RowKey derives the dedup key for a transaction: a SHA-256 digest over the
// economically meaningful fields plus the occurrence index, hex-encoded.
// It is a pure function, so re-ingesting identical input reproduces identical
// keys and upserts replace instead of duplicating.
func RowKey(t domain.Transaction, occurrence int) string {
	unique := fmt.Sprintf("%s|%s|%s|%d|%d",
		t.Date.String(), t.Description, t.Amount.String(), t.AccountNumber, occurrence)
	sum := sha256.Sum256([]byte(unique))
	return hex.EncodeToString(sum[:])
}

// signature identifies literally identical transactions for occurrence
// counting. Two rows with the same signature in one batch get occurrence
// indexes 0 and 1 and therefore distinct row keys.
func signature(t domain.Transaction) string {
	return fmt.Sprintf("%s|%s|%s|%d",
		t.Date.String(), t.Description, t.Amount.String(), t.AccountNumber)
}

// occurrenceCounter hands out 0-based occurrence indexes per signature. One
// counter is scoped to a single Persist call and a single partition.
type occurrenceCounter map[string]int

func (c occurrenceCounter) next(t domain.Transaction) int {
	sig := signature(t)
	idx := c[sig]
	c[sig] = idx + 1
	return idx
}
