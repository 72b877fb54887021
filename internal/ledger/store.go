// Package ledger persists normalized transactions into a partitioned table
// with content-addressed deduplication. Re-ingesting the same file is a
// no-op by construction, which is what makes at-least-once queue delivery
// safe for every consumer downstream.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/splitledger/internal/domain"
	"github.com/dvloznov/splitledger/internal/metrics"
)

// Store writes transactions into tenant+month partitions and reports which
// ones were genuinely new.
type Store struct {
	store  TableStore
	table  string
	tenant string
	log    zerolog.Logger

	mu         sync.Mutex
	partitions map[string]*sync.Mutex
}

// NewStore creates a ledger store over the given table. tenant scopes the
// partition keys; a single-household deployment uses "default".
func NewStore(store TableStore, table, tenant string, log zerolog.Logger) *Store {
	return &Store{
		store:      store,
		table:      table,
		tenant:     tenant,
		log:        log,
		partitions: make(map[string]*sync.Mutex),
	}
}

// PartitionKey returns the partition a transaction belongs to.
func (s *Store) PartitionKey(t domain.Transaction) string {
	return s.tenant + "_" + t.MonthKey()
}

// partitionLock serializes the query-existing → diff → submit window for one
// partition. Without it, two concurrent ingestions of the same partition
// could both report a row as newly inserted and double-apply balances.
func (s *Store) partitionLock(pk string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.partitions[pk]
	if !ok {
		l = &sync.Mutex{}
		s.partitions[pk] = l
	}
	return l
}

type keyedTx struct {
	tx     domain.Transaction
	pk     string
	rowKey string
}

// Persist upserts the transactions and returns the order-preserving subset
// whose row keys did not previously exist. Already-seen rows are skipped, so
// repeated ingestion of the same file yields an empty result.
//
// Submissions go out in chunks of at most MaxBatchOps operations. Each chunk
// is independently atomic; a failed chunk is logged and dropped for this
// attempt while the remaining chunks proceed. Transactions in a failed chunk
// are not reported as newly inserted — re-delivery of the same input will
// pick them up, and reporting unpersisted rows would let the balance updater
// double-apply them.
func (s *Store) Persist(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, error) {
	newly, _, err := s.PersistWithKeys(ctx, txs)
	return newly, err
}

// PersistWithKeys is Persist plus the row keys of the returned transactions,
// index-aligned. Occurrence counters run over the whole input, so when only
// some copies of a duplicated row are new, the reported keys are the ones
// actually written, not the keys of their pre-existing twins. Key-addressed
// consumers such as the warehouse mirror depend on that.
func (s *Store) PersistWithKeys(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, []string, error) {
	if len(txs) == 0 {
		return nil, nil, nil
	}

	// Assign partition and row keys in input order. Occurrence counters are
	// scoped per partition, so identical rows landing in different months
	// restart at zero.
	counters := make(map[string]occurrenceCounter)
	items := make([]keyedTx, 0, len(txs))
	var partitionOrder []string
	byPartition := make(map[string][]keyedTx)

	for _, t := range txs {
		pk := s.PartitionKey(t)
		c, ok := counters[pk]
		if !ok {
			c = make(occurrenceCounter)
			counters[pk] = c
			partitionOrder = append(partitionOrder, pk)
		}
		item := keyedTx{tx: t, pk: pk, rowKey: RowKey(t, c.next(t))}
		items = append(items, item)
		byPartition[pk] = append(byPartition[pk], item)
	}

	importedAt := time.Now().UTC().Format(time.RFC3339)
	persisted := make(map[string]bool, len(items))

	for _, pk := range partitionOrder {
		if err := s.persistPartition(ctx, pk, byPartition[pk], importedAt, persisted); err != nil {
			return nil, nil, err
		}
	}

	var newlyInserted []domain.Transaction
	var newlyKeys []string
	for _, item := range items {
		if persisted[item.pk+"/"+item.rowKey] {
			newlyInserted = append(newlyInserted, item.tx)
			newlyKeys = append(newlyKeys, item.rowKey)
		}
	}
	metrics.TransactionsInserted.Add(float64(len(newlyInserted)))
	metrics.TransactionsDeduplicated.Add(float64(len(txs) - len(newlyInserted)))
	return newlyInserted, newlyKeys, nil
}

func (s *Store) persistPartition(ctx context.Context, pk string, items []keyedTx, importedAt string, persisted map[string]bool) error {
	lock := s.partitionLock(pk)
	lock.Lock()
	defer lock.Unlock()

	keys, err := s.store.QueryKeys(ctx, s.table, pk)
	if err != nil {
		return fmt.Errorf("persist: querying existing keys for %s: %w", pk, err)
	}
	existing := make(map[string]bool, len(keys))
	for _, k := range keys {
		existing[k] = true
	}

	var newItems []keyedTx
	var ops []Op
	for _, item := range items {
		if existing[item.rowKey] {
			continue
		}
		newItems = append(newItems, item)
		ops = append(ops, Op{
			Kind:   OpUpsert,
			RowKey: item.rowKey,
			Fields: recordFields(item.tx, importedAt),
		})
	}

	for i, chunk := range ChunkOps(ops) {
		metrics.ChunksSubmitted.Inc()
		if err := s.store.Submit(ctx, s.table, pk, chunk); err != nil {
			// Best effort: the chunk's rows stay absent and the next
			// delivery of the same input re-creates them.
			metrics.ChunkFailures.Inc()
			s.log.Error().Err(err).
				Str("partition", pk).
				Int("chunk", i).
				Int("ops", len(chunk)).
				Msg("Failed to submit ledger batch chunk")
			continue
		}
		for _, op := range chunk {
			persisted[pk+"/"+op.RowKey] = true
		}
	}
	return nil
}

// recordFields maps a transaction onto its stored ledger record. Amounts are
// stored as decimal strings so nothing downstream re-parses through binary
// floating point.
func recordFields(t domain.Transaction, importedAt string) map[string]any {
	fields := map[string]any{
		"Date":          t.Date.String(),
		"Description":   t.Description,
		"Amount":        t.Amount.String(),
		"AccountNumber": t.AccountNumber,
		"Category":      string(t.Category),
		"ImportedAt":    importedAt,
	}
	if t.Ignore != domain.IgnoredFromNothing {
		fields["IgnoredFrom"] = string(t.Ignore)
	}
	return fields
}
