package savings_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/domain"
	"github.com/dvloznov/splitledger/internal/infra/memstore"
	"github.com/dvloznov/splitledger/internal/ledger"
	"github.com/dvloznov/splitledger/internal/savings"
)

const testTable = "savings"

func newLedger(backend ledger.TableStore) *savings.Ledger {
	return savings.NewLedger(backend, testTable, zerolog.Nop())
}

func TestReadNeverSavedReturnsNotFound(t *testing.T) {
	l := newLedger(memstore.NewTableStore())
	_, err := l.Read(context.Background(), "alice@example.com", "2024-01")
	if !errors.Is(err, savings.ErrNotFound) {
		t.Errorf("Read() on empty partition = %v, want ErrNotFound", err)
	}
}

func TestSaveThenRead(t *testing.T) {
	ctx := context.Background()
	l := newLedger(memstore.NewTableStore())

	in := &domain.SavingsData{
		StartingBalance: decimal.RequireFromString("1200.50"),
		Items: []domain.SavingsItem{
			{Name: "Vacation", Cost: decimal.RequireFromString("300.00")},
			{Name: "Emergency", Cost: decimal.RequireFromString("150.25")},
		},
	}
	if err := l.Save(ctx, "alice@example.com", "2024-01", in); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	out, err := l.Read(ctx, "alice@example.com", "2024-01")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if !out.StartingBalance.Equal(in.StartingBalance) {
		t.Errorf("StartingBalance = %s, want %s", out.StartingBalance, in.StartingBalance)
	}
	if len(out.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(out.Items))
	}
}

func TestSaveReplacesWholePartition(t *testing.T) {
	ctx := context.Background()
	backend := memstore.NewTableStore()
	l := newLedger(backend)

	first := &domain.SavingsData{
		StartingBalance: decimal.RequireFromString("100"),
		Items: []domain.SavingsItem{
			{Name: "Old item", Cost: decimal.RequireFromString("10")},
			{Name: "Stale item", Cost: decimal.RequireFromString("20")},
		},
	}
	if err := l.Save(ctx, "alice@example.com", "2024-01", first); err != nil {
		t.Fatalf("first Save() error: %v", err)
	}

	second := &domain.SavingsData{
		StartingBalance: decimal.RequireFromString("200"),
		Items: []domain.SavingsItem{
			{Name: "Only item", Cost: decimal.RequireFromString("5")},
		},
	}
	if err := l.Save(ctx, "alice@example.com", "2024-01", second); err != nil {
		t.Fatalf("second Save() error: %v", err)
	}

	out, err := l.Read(ctx, "alice@example.com", "2024-01")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Name != "Only item" {
		t.Errorf("items after replace = %+v, want only the new item", out.Items)
	}
	if !out.StartingBalance.Equal(decimal.RequireFromString("200")) {
		t.Errorf("StartingBalance = %s, want 200", out.StartingBalance)
	}
}

func TestSaveEmptyIsDistinctFromNeverSaved(t *testing.T) {
	ctx := context.Background()
	l := newLedger(memstore.NewTableStore())

	if err := l.Save(ctx, "alice@example.com", "2024-01", &domain.SavingsData{
		StartingBalance: decimal.Zero,
	}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	out, err := l.Read(ctx, "alice@example.com", "2024-01")
	if err != nil {
		t.Fatalf("Read() after saving empty data = %v, want success", err)
	}
	if len(out.Items) != 0 {
		t.Errorf("got %d items, want 0", len(out.Items))
	}
}

// countingStore records chunk sizes and can fail a given submission.
type countingStore struct {
	ledger.TableStore
	sizes  []int
	failOn int // 1-based submission index to fail; 0 disables
}

func (c *countingStore) Submit(ctx context.Context, table, partition string, ops []ledger.Op) error {
	c.sizes = append(c.sizes, len(ops))
	if c.failOn == len(c.sizes) {
		return fmt.Errorf("injected failure")
	}
	return c.TableStore.Submit(ctx, table, partition, ops)
}

func TestSaveLargePartitionSplitsChunks(t *testing.T) {
	ctx := context.Background()
	counting := &countingStore{TableStore: memstore.NewTableStore()}
	l := newLedger(counting)

	// 1 summary + 149 items = 150 ops into an empty partition.
	data := &domain.SavingsData{StartingBalance: decimal.Zero}
	for i := 0; i < 149; i++ {
		data.Items = append(data.Items, domain.SavingsItem{
			Name: fmt.Sprintf("Item %d", i),
			Cost: decimal.New(int64(i), 0),
		})
	}
	if err := l.Save(ctx, "alice@example.com", "2024-01", data); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if len(counting.sizes) != 2 || counting.sizes[0] != 100 || counting.sizes[1] != 50 {
		t.Errorf("chunk sizes = %v, want [100 50]", counting.sizes)
	}
}

func TestSaveSecondChunkFailureKeepsFirstChunk(t *testing.T) {
	ctx := context.Background()
	backend := memstore.NewTableStore()
	counting := &countingStore{TableStore: backend, failOn: 2}
	l := newLedger(counting)

	data := &domain.SavingsData{StartingBalance: decimal.Zero}
	for i := 0; i < 149; i++ {
		data.Items = append(data.Items, domain.SavingsItem{
			Name: fmt.Sprintf("Item %d", i),
			Cost: decimal.New(int64(i), 0),
		})
	}

	err := l.Save(ctx, "alice@example.com", "2024-01", data)
	if err == nil {
		t.Fatal("Save() with failing second chunk expected error")
	}

	keys, qerr := backend.QueryKeys(ctx, testTable, "alice@example.com_2024-01")
	if qerr != nil {
		t.Fatalf("QueryKeys() error: %v", qerr)
	}
	if len(keys) != 100 {
		t.Errorf("partition holds %d rows, want the first chunk's 100", len(keys))
	}
}
