package ledger_test

import (
	"context"
	"fmt"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/domain"
	"github.com/dvloznov/splitledger/internal/infra/memstore"
	"github.com/dvloznov/splitledger/internal/ledger"
)

const testTable = "transactions"

func tx(date string, account int, amount, desc string) domain.Transaction {
	d, err := civil.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return domain.Transaction{
		Date:          d,
		Description:   desc,
		AccountNumber: account,
		Amount:        decimal.RequireFromString(amount),
		Category:      domain.CategoryGroceries,
	}
}

// flakyStore fails Submit for selected chunk indexes, counting calls.
type flakyStore struct {
	ledger.TableStore
	failOn  map[int]bool
	submits int
}

func (f *flakyStore) Submit(ctx context.Context, table, partition string, ops []ledger.Op) error {
	idx := f.submits
	f.submits++
	if f.failOn[idx] {
		return fmt.Errorf("injected chunk failure")
	}
	return f.TableStore.Submit(ctx, table, partition, ops)
}

func TestPersistIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := memstore.NewTableStore()
	store := ledger.NewStore(backend, testTable, "default", zerolog.Nop())

	txs := []domain.Transaction{
		tx("2024-01-05", 1, "10.00", "Coffee"),
		tx("2024-01-06", 1, "20.00", "Groceries"),
	}

	first, err := store.Persist(ctx, txs)
	if err != nil {
		t.Fatalf("first Persist() error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first Persist() reported %d new, want 2", len(first))
	}

	second, err := store.Persist(ctx, txs)
	if err != nil {
		t.Fatalf("second Persist() error: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second Persist() reported %d new, want 0", len(second))
	}

	keys, err := backend.QueryKeys(ctx, testTable, "default_2024-01")
	if err != nil {
		t.Fatalf("QueryKeys() error: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("partition holds %d keys, want 2", len(keys))
	}
}

func TestPersistDistinguishesIdenticalRowsInBatch(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewStore(memstore.NewTableStore(), testTable, "default", zerolog.Nop())

	dup := tx("2024-01-05", 1, "10.00", "Coffee")
	newly, err := store.Persist(ctx, []domain.Transaction{dup, dup})
	if err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if len(newly) != 2 {
		t.Errorf("Persist() reported %d new, want both occurrences", len(newly))
	}

	k0 := ledger.RowKey(dup, 0)
	k1 := ledger.RowKey(dup, 1)
	if k0 == k1 {
		t.Error("occurrences 0 and 1 produced the same row key")
	}
}

func TestPersistWithKeysReportsWrittenKeys(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewStore(memstore.NewTableStore(), testTable, "default", zerolog.Nop())

	dup := tx("2024-01-05", 1, "10.00", "Coffee")

	if _, err := store.Persist(ctx, []domain.Transaction{dup}); err != nil {
		t.Fatalf("first Persist() error: %v", err)
	}

	// Occurrence 0 already exists, so only occurrence 1 is new. Its key
	// must be the occurrence-1 key, not the pre-existing twin's.
	newly, keys, err := store.PersistWithKeys(ctx, []domain.Transaction{dup, dup})
	if err != nil {
		t.Fatalf("PersistWithKeys() error: %v", err)
	}
	if len(newly) != 1 || len(keys) != 1 {
		t.Fatalf("PersistWithKeys() reported %d new with %d keys, want 1 and 1", len(newly), len(keys))
	}
	if want := ledger.RowKey(dup, 1); keys[0] != want {
		t.Errorf("reported key %s, want occurrence-1 key %s", keys[0], want)
	}
}

func TestRowKeyDeterministic(t *testing.T) {
	a := tx("2024-01-05", 1, "10.00", "Coffee")
	b := tx("2024-01-05", 1, "10.00", "Coffee")
	if ledger.RowKey(a, 0) != ledger.RowKey(b, 0) {
		t.Error("identical transactions produced different row keys")
	}
	if ledger.RowKey(a, 0) == ledger.RowKey(tx("2024-01-05", 1, "10.01", "Coffee"), 0) {
		t.Error("different amounts produced the same row key")
	}
	if len(ledger.RowKey(a, 0)) != 64 {
		t.Errorf("row key length = %d, want 64 hex chars", len(ledger.RowKey(a, 0)))
	}
}

func TestPersistPartitionsByMonth(t *testing.T) {
	ctx := context.Background()
	backend := memstore.NewTableStore()
	store := ledger.NewStore(backend, testTable, "default", zerolog.Nop())

	_, err := store.Persist(ctx, []domain.Transaction{
		tx("2024-01-31", 1, "10.00", "Jan"),
		tx("2024-02-01", 1, "10.00", "Feb"),
	})
	if err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	for _, pk := range []string{"default_2024-01", "default_2024-02"} {
		keys, err := backend.QueryKeys(ctx, testTable, pk)
		if err != nil {
			t.Fatalf("QueryKeys(%s) error: %v", pk, err)
		}
		if len(keys) != 1 {
			t.Errorf("partition %s holds %d keys, want 1", pk, len(keys))
		}
	}
}

func TestPersistChunksAndSurvivesChunkFailure(t *testing.T) {
	ctx := context.Background()
	backend := memstore.NewTableStore()
	flaky := &flakyStore{TableStore: backend, failOn: map[int]bool{1: true}}
	store := ledger.NewStore(flaky, testTable, "default", zerolog.Nop())

	var txs []domain.Transaction
	for i := 0; i < 150; i++ {
		txs = append(txs, tx("2024-03-10", 1, "1.00", fmt.Sprintf("Item %d", i)))
	}

	newly, err := store.Persist(ctx, txs)
	if err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if flaky.submits != 2 {
		t.Errorf("submitted %d chunks, want 2 (100 + 50)", flaky.submits)
	}
	// First chunk committed, second dropped for this attempt.
	if len(newly) != 100 {
		t.Errorf("Persist() reported %d new, want 100 from the surviving chunk", len(newly))
	}

	keys, err := backend.QueryKeys(ctx, testTable, "default_2024-03")
	if err != nil {
		t.Fatalf("QueryKeys() error: %v", err)
	}
	if len(keys) != 100 {
		t.Errorf("partition holds %d keys, want the first chunk's 100", len(keys))
	}

	// Re-ingesting the same input picks up exactly the dropped rows.
	flaky.failOn = nil
	retry, err := store.Persist(ctx, txs)
	if err != nil {
		t.Fatalf("retry Persist() error: %v", err)
	}
	if len(retry) != 50 {
		t.Errorf("retry reported %d new, want the 50 dropped rows", len(retry))
	}
}

func TestPersistPreservesInputOrder(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewStore(memstore.NewTableStore(), testTable, "default", zerolog.Nop())

	txs := []domain.Transaction{
		tx("2024-02-01", 1, "1.00", "feb-first"),
		tx("2024-01-01", 1, "2.00", "jan"),
		tx("2024-02-02", 1, "3.00", "feb-second"),
	}
	newly, err := store.Persist(ctx, txs)
	if err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if len(newly) != 3 {
		t.Fatalf("Persist() reported %d new, want 3", len(newly))
	}
	for i, want := range []string{"feb-first", "jan", "feb-second"} {
		if newly[i].Description != want {
			t.Errorf("newly[%d] = %q, want %q", i, newly[i].Description, want)
		}
	}
}

func TestChunkOps(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, nil},
		{1, []int{1}},
		{100, []int{100}},
		{101, []int{100, 1}},
		{250, []int{100, 100, 50}},
	}
	for _, tt := range tests {
		ops := make([]ledger.Op, tt.n)
		chunks := ledger.ChunkOps(ops)
		if len(chunks) != len(tt.want) {
			t.Errorf("ChunkOps(%d) gave %d chunks, want %d", tt.n, len(chunks), len(tt.want))
			continue
		}
		for i, size := range tt.want {
			if len(chunks[i]) != size {
				t.Errorf("ChunkOps(%d) chunk %d has %d ops, want %d", tt.n, i, len(chunks[i]), size)
			}
		}
	}
}
