// Package pipeline orchestrates one CSV statement ingestion end to end:
// normalize, persist with dedup, update card balances, mirror to the
// warehouse, and email the expense summary.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/csvnorm"
	"github.com/dvloznov/splitledger/internal/domain"
	"github.com/dvloznov/splitledger/internal/mailer"
	"github.com/dvloznov/splitledger/internal/metrics"
)

// maxReportedRowErrors caps how many row errors an API response carries.
// Emails always include the full list.
const maxReportedRowErrors = 5

// Result summarizes one ingestion run.
type Result struct {
	Parsed        int      `json:"parsed"`
	NewlyInserted int      `json:"newlyInserted"`
	Deduplicated  int      `json:"deduplicated"`
	RowErrors     []string `json:"rowErrors,omitempty"`
}

// TruncatedErrors returns at most maxReportedRowErrors row errors, with a
// trailing marker when more were dropped.
func (r *Result) TruncatedErrors() []string {
	if len(r.RowErrors) <= maxReportedRowErrors {
		return r.RowErrors
	}
	truncated := make([]string, maxReportedRowErrors, maxReportedRowErrors+1)
	copy(truncated, r.RowErrors[:maxReportedRowErrors])
	return append(truncated, fmt.Sprintf("+%d more", len(r.RowErrors)-maxReportedRowErrors))
}

// Ingestor wires the ingestion collaborators. Mirror and Mailer are
// optional; a nil value disables that stage.
type Ingestor struct {
	Ledger   TransactionLedger
	People   PeopleDirectory
	Balances BalanceApplier
	Mirror   TransactionMirror
	Mailer   mailer.Sender

	// ScaleFactor is p1's share of the group total when computing debt.
	// Zero means an even two-way split.
	ScaleFactor decimal.Decimal

	Log zerolog.Logger
}

func (in *Ingestor) scaleFactor() decimal.Decimal {
	if in.ScaleFactor.IsZero() {
		return decimal.NewFromFloat(0.5)
	}
	return in.ScaleFactor
}

// Run ingests one CSV statement. Malformed rows are collected, not fatal;
// the run fails only when no row survives normalization or the ledger
// write itself fails. Re-running with the same content is safe: dedup
// yields zero newly inserted rows, so balances are untouched and no
// summary email is repeated for them.
func (in *Ingestor) Run(ctx context.Context, csvContent string) (*Result, error) {
	txs, rowErrors := csvnorm.Parse(csvContent)
	metrics.RowsParsed.Add(float64(len(txs)))
	metrics.RowErrors.Add(float64(len(rowErrors)))

	result := &Result{Parsed: len(txs), RowErrors: rowErrors}

	if len(txs) == 0 {
		if len(rowErrors) == 0 {
			// Empty file: nothing to do, not an error.
			metrics.IngestionsTotal.WithLabelValues("success").Inc()
			return result, nil
		}
		in.sendErrorEmail(ctx, rowErrors)
		metrics.IngestionsTotal.WithLabelValues("failure").Inc()
		return result, fmt.Errorf("pipeline: no valid rows in upload (%d errors)", len(rowErrors))
	}

	newly, newlyKeys, err := in.Ledger.PersistWithKeys(ctx, txs)
	if err != nil {
		metrics.IngestionsTotal.WithLabelValues("failure").Inc()
		return result, fmt.Errorf("pipeline: persist transactions: %w", err)
	}
	result.NewlyInserted = len(newly)
	result.Deduplicated = len(txs) - len(newly)

	if err := in.Balances.Apply(ctx, newly); err != nil {
		// Balance drift is recoverable by reconciliation; the ledger write
		// already succeeded, so the run continues.
		in.Log.Error().Err(err).Msg("Failed to apply card balance deltas")
	}

	if in.Mirror != nil && len(newly) > 0 {
		in.Mirror.MirrorTransactions(ctx, newly, newlyKeys)
	}

	if err := in.sendSummaryEmail(ctx, txs, rowErrors); err != nil {
		in.Log.Error().Err(err).Msg("Failed to send summary email")
	}

	in.Log.Info().
		Int("parsed", result.Parsed).
		Int("newly_inserted", result.NewlyInserted).
		Int("deduplicated", result.Deduplicated).
		Int("row_errors", len(rowErrors)).
		Msg("Ingestion completed")
	metrics.IngestionsTotal.WithLabelValues("success").Inc()
	return result, nil
}

// sendSummaryEmail aggregates the full parsed batch into the registered
// group and mails the expense summary. Aggregation deliberately covers
// the whole upload, not just newly inserted rows: the summary describes
// the statement, while dedup protects only the stored ledger.
func (in *Ingestor) sendSummaryEmail(ctx context.Context, txs []domain.Transaction, rowErrors []string) error {
	if in.Mailer == nil {
		return nil
	}

	people, err := in.People.ListPeople(ctx)
	if err != nil {
		return fmt.Errorf("list people: %w", err)
	}
	if len(people) == 0 {
		return nil
	}

	group := domain.NewGroup(people)
	group.AddTransactions(txs)
	if !group.HasTransactions() {
		in.Log.Info().Msg("No transactions attached to any group member, skipping summary email")
		return nil
	}

	subject, err := mailer.RenderSubject(group)
	if err != nil {
		return err
	}
	body, err := mailer.RenderSummaryBody(group, in.scaleFactor(), rowErrors)
	if err != nil {
		return err
	}
	return in.Mailer.Send(ctx, group.Emails(), subject, body)
}

// sendErrorEmail notifies the group that the upload produced nothing.
func (in *Ingestor) sendErrorEmail(ctx context.Context, rowErrors []string) {
	if in.Mailer == nil {
		return
	}

	people, err := in.People.ListPeople(ctx)
	if err != nil || len(people) == 0 {
		return
	}
	group := domain.NewGroup(people)
	emails := group.Emails()
	if len(emails) == 0 {
		return
	}

	body := mailer.RenderErrorBody(rowErrors)
	if err := in.Mailer.Send(ctx, emails, "Upload Failed", body); err != nil {
		in.Log.Error().Err(err).Msg("Failed to send error email")
	}
}
