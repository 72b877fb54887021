package ledger

import (
	"context"
	"errors"
)

// MaxBatchOps is the hard per-submission operation limit. A Submit call with
// more ops than this is a programming error; callers chunk first.
const MaxBatchOps = 100

// ErrRowExists is returned by a Submit containing an OpCreate whose row key
// is already present. It is the only handled outcome of create-if-absent;
// any other store error propagates untouched.
var ErrRowExists = errors.New("row already exists")

// OpKind selects the mutation type of a batch operation.
type OpKind string

const (
	OpUpsert OpKind = "upsert"
	OpCreate OpKind = "create"
	OpDelete OpKind = "delete"
)

// Op is one mutation inside a batch submission.
type Op struct {
	Kind   OpKind
	RowKey string
	Fields map[string]any
}

// Row is one stored record within a partition.
type Row struct {
	RowKey string
	Fields map[string]any
}

// TableStore is the storage collaborator for partitioned record tables.
// Implementations must make each Submit call atomic on its own: either every
// op in the slice commits or none does. Atomicity never spans calls.
type TableStore interface {
	// QueryKeys returns the row keys present in a partition.
	QueryKeys(ctx context.Context, table, partition string) ([]string, error)

	// QueryRows returns all rows of a partition with their fields.
	QueryRows(ctx context.Context, table, partition string) ([]Row, error)

	// Submit atomically applies up to MaxBatchOps operations to one
	// partition.
	Submit(ctx context.Context, table, partition string, ops []Op) error
}

// ChunkOps splits ops into submission-sized chunks of at most MaxBatchOps.
func ChunkOps(ops []Op) [][]Op {
	var chunks [][]Op
	for len(ops) > 0 {
		n := len(ops)
		if n > MaxBatchOps {
			n = MaxBatchOps
		}
		chunks = append(chunks, ops[:n])
		ops = ops[n:]
	}
	return chunks
}
