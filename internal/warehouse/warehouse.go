// Package warehouse mirrors newly inserted ledger records into BigQuery
// for ad-hoc analytics. Mirroring is best effort: it sits outside the
// ledger's consistency path, and a failed insert is logged and dropped.
// The ledger table remains the source of truth.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/splitledger/internal/domain"
)

// TransactionRow is the BigQuery row schema for mirrored transactions.
type TransactionRow struct {
	Tenant        string     `bigquery:"tenant"`          // REQUIRED
	RowKey        string     `bigquery:"row_key"`         // REQUIRED
	TxnDate       civil.Date `bigquery:"txn_date"`        // DATE, REQUIRED
	Description   string     `bigquery:"description"`     // REQUIRED
	AccountNumber int64      `bigquery:"account_number"`  // REQUIRED
	Amount        string     `bigquery:"amount"`          // REQUIRED (decimal string)
	Category      string     `bigquery:"category"`        // REQUIRED
	IgnoredFrom   string     `bigquery:"ignored_from"`    // NULLABLE (empty string → "")
	ImportedTS    time.Time  `bigquery:"imported_ts"`     // TIMESTAMP, REQUIRED
}

// Mirror streams mirrored rows into one BigQuery table and answers
// aggregate queries over it.
type Mirror struct {
	client    *bigquery.Client
	inserter  *bigquery.Inserter
	projectID string
	dataset   string
	tenant    string
	log       zerolog.Logger
}

// NewMirror opens a BigQuery client for the project and dataset and
// targets its transactions table.
func NewMirror(ctx context.Context, projectID, dataset, tenant string, log zerolog.Logger) (*Mirror, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("warehouse: creating client: %w", err)
	}
	return &Mirror{
		client:    client,
		inserter:  client.Dataset(dataset).Table("transactions").Inserter(),
		projectID: projectID,
		dataset:   dataset,
		tenant:    tenant,
		log:       log,
	}, nil
}

// MirrorTransactions streams the given transactions with their ledger row
// keys. Errors are logged and swallowed; callers never fail on mirroring.
func (m *Mirror) MirrorTransactions(ctx context.Context, transactions []domain.Transaction, rowKeys []string) {
	if len(transactions) == 0 {
		return
	}

	now := time.Now().UTC()
	rows := make([]*TransactionRow, 0, len(transactions))
	for i, t := range transactions {
		key := ""
		if i < len(rowKeys) {
			key = rowKeys[i]
		}
		rows = append(rows, &TransactionRow{
			Tenant:        m.tenant,
			RowKey:        key,
			TxnDate:       t.Date,
			Description:   t.Description,
			AccountNumber: int64(t.AccountNumber),
			Amount:        t.Amount.String(),
			Category:      string(t.Category),
			IgnoredFrom:   string(t.Ignore),
			ImportedTS:    now,
		})
	}

	if err := m.inserter.Put(ctx, rows); err != nil {
		m.log.Error().Err(err).Int("rows", len(rows)).Msg("Analytics mirror insert failed")
		return
	}
	m.log.Debug().Int("rows", len(rows)).Msg("Mirrored transactions to warehouse")
}

// Close releases the underlying BigQuery client.
func (m *Mirror) Close() error {
	return m.client.Close()
}
