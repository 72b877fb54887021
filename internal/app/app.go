// Package app wires the ingestion collaborators from configuration.
// Every binary builds its pipeline through here so that the API server,
// the worker, and the Lambda agree on construction.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/splitledger/internal/balance"
	"github.com/dvloznov/splitledger/internal/config"
	"github.com/dvloznov/splitledger/internal/infra/dynamo"
	"github.com/dvloznov/splitledger/internal/ledger"
	"github.com/dvloznov/splitledger/internal/mailer"
	"github.com/dvloznov/splitledger/internal/pipeline"
	"github.com/dvloznov/splitledger/internal/savings"
	"github.com/dvloznov/splitledger/internal/warehouse"
)

// Components holds the constructed collaborators a binary needs.
type Components struct {
	Ingestor *pipeline.Ingestor
	Ledger   *ledger.Store
	Savings  *savings.Ledger
	Cards    *dynamo.CardRepository
	People   *dynamo.PeopleRepository
	Accounts *dynamo.AccountRepository
	Mirror   *warehouse.Mirror

	closers []func() error
}

// Close releases any clients holding connections.
func (c *Components) Close() {
	for _, fn := range c.closers {
		_ = fn()
	}
}

// Build constructs the storage, balance, mailer and warehouse
// collaborators from cfg. Email and warehouse mirroring are enabled only
// when configured; everything else is required.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Components, error) {
	db, err := dynamo.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	tableStore := dynamo.NewTableStore(db)
	ledgerStore := ledger.NewStore(tableStore, cfg.LedgerTable, cfg.Tenant, log)
	savingsLedger := savings.NewLedger(tableStore, cfg.SavingsTable, log)
	cards := dynamo.NewCardRepository(db, cfg.CardsTable)
	people := dynamo.NewPeopleRepository(db, cfg.PeopleTable)
	accounts := dynamo.NewAccountRepository(db, cfg.AccountsTable)

	components := &Components{
		Ledger:   ledgerStore,
		Savings:  savingsLedger,
		Cards:    cards,
		People:   people,
		Accounts: accounts,
	}

	ingestor := &pipeline.Ingestor{
		Ledger:   ledgerStore,
		People:   people,
		Balances: balance.NewUpdater(cards, log),
		Log:      log,
	}

	if cfg.EmailSender != "" {
		sender, err := mailer.NewSESSender(ctx, cfg.EmailSender)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		ingestor.Mailer = sender
	} else {
		log.Warn().Msg("No email sender configured, summaries disabled")
	}

	if cfg.AnalyticsProject != "" {
		mirror, err := warehouse.NewMirror(ctx, cfg.AnalyticsProject, cfg.AnalyticsDataset, cfg.Tenant, log)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		ingestor.Mirror = mirror
		components.Mirror = mirror
		components.closers = append(components.closers, mirror.Close)
	}

	components.Ingestor = ingestor
	return components, nil
}
