package pipeline

import (
	"context"

	"github.com/dvloznov/splitledger/internal/domain"
)

// TransactionLedger is the deduplicating storage collaborator. It returns
// only the transactions whose rows did not previously exist, along with the
// row keys it wrote for them, index-aligned.
type TransactionLedger interface {
	PersistWithKeys(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, []string, error)
}

// PeopleDirectory lists the registered group members.
type PeopleDirectory interface {
	ListPeople(ctx context.Context) ([]*domain.Person, error)
}

// BalanceApplier updates derived card balances from newly inserted
// transactions.
type BalanceApplier interface {
	Apply(ctx context.Context, newlyInserted []domain.Transaction) error
}

// TransactionMirror streams inserted rows to an analytics sink. It is
// best effort and must never fail the caller.
type TransactionMirror interface {
	MirrorTransactions(ctx context.Context, txs []domain.Transaction, rowKeys []string)
}
