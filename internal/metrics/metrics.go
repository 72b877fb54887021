// Package metrics registers the process-wide Prometheus collectors. They are
// exposed by the API server on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsParsed counts CSV data rows that parsed into transactions.
	RowsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_csv_rows_parsed_total",
		Help: "CSV rows successfully normalized into transactions.",
	})

	// RowErrors counts CSV data rows rejected with a row error.
	RowErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_csv_row_errors_total",
		Help: "CSV rows rejected during normalization.",
	})

	// ChunksSubmitted counts batch chunks submitted to the table store.
	ChunksSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_ledger_chunks_submitted_total",
		Help: "Ledger batch chunks submitted to the table store.",
	})

	// ChunkFailures counts chunks dropped after a submission failure.
	ChunkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_ledger_chunk_failures_total",
		Help: "Ledger batch chunks dropped after a submission failure.",
	})

	// TransactionsInserted counts transactions reported as newly inserted.
	TransactionsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_transactions_inserted_total",
		Help: "Transactions persisted for the first time.",
	})

	// TransactionsDeduplicated counts transactions skipped as already seen.
	TransactionsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_transactions_deduplicated_total",
		Help: "Transactions skipped because their row key already existed.",
	})

	// IngestionsTotal counts end-to-end pipeline runs by outcome.
	IngestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_ingestions_total",
		Help: "CSV ingestion runs by outcome.",
	}, []string{"outcome"})

	// HTTPRequests counts API requests by method, path and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_http_requests_total",
		Help: "HTTP requests served by the API.",
	}, []string{"method", "path", "status"})

	// HTTPDuration observes API request latency in seconds.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "splitledger_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
