// Package memstore is an in-memory implementation of the storage
// collaborators. It mirrors the semantics of the DynamoDB backend (atomic
// batches, create-if-absent, versioned card updates) without any network,
// which makes it suitable for tests and single-process development. Data is
// lost on restart.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/splitledger/internal/ledger"
)

// TableStore stores partitioned rows in nested maps. Safe for concurrent use.
type TableStore struct {
	mu sync.RWMutex
	// tables[table][partition][rowKey] = fields
	tables map[string]map[string]map[string]map[string]any
}

// NewTableStore creates an empty in-memory table store.
func NewTableStore() *TableStore {
	return &TableStore{
		tables: make(map[string]map[string]map[string]map[string]any),
	}
}

// QueryKeys implements ledger.TableStore.
func (s *TableStore) QueryKeys(ctx context.Context, table, partition string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.tables[table][partition] {
		keys = append(keys, k)
	}
	return keys, nil
}

// QueryRows implements ledger.TableStore.
func (s *TableStore) QueryRows(ctx context.Context, table, partition string) ([]ledger.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []ledger.Row
	for key, fields := range s.tables[table][partition] {
		copied := make(map[string]any, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		rows = append(rows, ledger.Row{RowKey: key, Fields: copied})
	}
	return rows, nil
}

// Submit implements ledger.TableStore. The whole batch is validated before
// any op is applied, so a rejected batch leaves the partition untouched.
func (s *TableStore) Submit(ctx context.Context, table, partition string, ops []ledger.Op) error {
	if len(ops) > ledger.MaxBatchOps {
		return fmt.Errorf("memstore: batch of %d ops exceeds limit of %d", len(ops), ledger.MaxBatchOps)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	part := s.partition(table, partition)

	for _, op := range ops {
		switch op.Kind {
		case ledger.OpCreate:
			if _, exists := part[op.RowKey]; exists {
				return fmt.Errorf("memstore: create %s/%s: %w", partition, op.RowKey, ledger.ErrRowExists)
			}
		case ledger.OpUpsert, ledger.OpDelete:
		default:
			return fmt.Errorf("memstore: unknown op kind %q", op.Kind)
		}
	}

	for _, op := range ops {
		switch op.Kind {
		case ledger.OpUpsert, ledger.OpCreate:
			fields := make(map[string]any, len(op.Fields))
			for k, v := range op.Fields {
				fields[k] = v
			}
			part[op.RowKey] = fields
		case ledger.OpDelete:
			delete(part, op.RowKey)
		}
	}
	return nil
}

func (s *TableStore) partition(table, partition string) map[string]map[string]any {
	t, ok := s.tables[table]
	if !ok {
		t = make(map[string]map[string]map[string]any)
		s.tables[table] = t
	}
	p, ok := t[partition]
	if !ok {
		p = make(map[string]map[string]any)
		t[partition] = p
	}
	return p
}

var _ ledger.TableStore = (*TableStore)(nil)
