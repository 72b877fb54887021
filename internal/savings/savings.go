// Package savings stores per-user monthly savings breakdowns on the same
// partitioned table mechanics as the transaction ledger, but with
// replace-whole-partition semantics: every save recomputes the partition
// from scratch instead of merging.
package savings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/domain"
	"github.com/dvloznov/splitledger/internal/ledger"
)

// ErrNotFound is returned by Read when the partition has no rows at all.
// "Never saved" is distinct from "saved with zero items": the latter still
// has a SUMMARY row.
var ErrNotFound = errors.New("savings: no data for month")

const (
	summaryRowKey = "SUMMARY"
	itemKeyPrefix = "ITEM_"
)

// Ledger reads and replaces monthly savings partitions.
type Ledger struct {
	store ledger.TableStore
	table string
	log   zerolog.Logger
}

// NewLedger creates a savings ledger over the given table.
func NewLedger(store ledger.TableStore, table string, log zerolog.Logger) *Ledger {
	return &Ledger{store: store, table: table, log: log}
}

func partitionKey(user, month string) string {
	return user + "_" + month
}

// Read returns the savings data for (user, month), or ErrNotFound when the
// partition was never saved.
func (l *Ledger) Read(ctx context.Context, user, month string) (*domain.SavingsData, error) {
	rows, err := l.store.QueryRows(ctx, l.table, partitionKey(user, month))
	if err != nil {
		return nil, fmt.Errorf("savings read %s/%s: %w", user, month, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	data := &domain.SavingsData{StartingBalance: decimal.Zero, Items: []domain.SavingsItem{}}
	for _, row := range rows {
		switch {
		case row.RowKey == summaryRowKey:
			data.StartingBalance = decimalField(row.Fields, "StartingBalance")
		case strings.HasPrefix(row.RowKey, itemKeyPrefix):
			name, _ := row.Fields["Name"].(string)
			data.Items = append(data.Items, domain.SavingsItem{
				Name: name,
				Cost: decimalField(row.Fields, "Cost"),
			})
		}
	}
	return data, nil
}

// Save replaces the month's partition with the given data: every existing
// ITEM row is deleted, the SUMMARY row is recomputed via upsert, and each
// submitted item becomes a fresh ITEM row. When the whole operation fits in
// one batch it commits atomically; beyond ledger.MaxBatchOps it degrades to
// best-effort chunks, which is logged because a failure mid-way can leave a
// partially replaced month.
func (l *Ledger) Save(ctx context.Context, user, month string, data *domain.SavingsData) error {
	pk := partitionKey(user, month)

	existing, err := l.store.QueryKeys(ctx, l.table, pk)
	if err != nil {
		return fmt.Errorf("savings save %s: querying existing rows: %w", pk, err)
	}

	var ops []ledger.Op
	for _, key := range existing {
		// The SUMMARY row is never deleted, only replaced by the upsert
		// below; deleting and recreating it in one batch would be rejected.
		if key == summaryRowKey {
			continue
		}
		ops = append(ops, ledger.Op{Kind: ledger.OpDelete, RowKey: key})
	}

	ops = append(ops, ledger.Op{
		Kind:   ledger.OpUpsert,
		RowKey: summaryRowKey,
		Fields: map[string]any{"StartingBalance": data.StartingBalance.String()},
	})
	for _, item := range data.Items {
		ops = append(ops, ledger.Op{
			Kind:   ledger.OpCreate,
			RowKey: itemKeyPrefix + uuid.NewString(),
			Fields: map[string]any{"Name": item.Name, "Cost": item.Cost.String()},
		})
	}

	if len(ops) <= ledger.MaxBatchOps {
		if err := l.store.Submit(ctx, l.table, pk, ops); err != nil {
			return fmt.Errorf("savings save %s: %w", pk, err)
		}
		return nil
	}

	l.log.Warn().
		Str("partition", pk).
		Int("ops", len(ops)).
		Msg("Savings save exceeds one batch; splitting chunks, cross-chunk atomicity not guaranteed")

	for i, chunk := range ledger.ChunkOps(ops) {
		if err := l.store.Submit(ctx, l.table, pk, chunk); err != nil {
			return fmt.Errorf("savings save %s: chunk %d: %w", pk, i, err)
		}
	}
	return nil
}

func decimalField(fields map[string]any, key string) decimal.Decimal {
	switch v := fields[key].(type) {
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	}
	return decimal.Zero
}
