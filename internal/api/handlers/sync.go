package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/api/middleware"
	"github.com/dvloznov/splitledger/internal/domain"
)

// AccountStore persists external account snapshots per owning user.
type AccountStore interface {
	UpsertAccounts(ctx context.Context, user string, accounts []domain.Account) error
	ListAccounts(ctx context.Context, user string) ([]domain.Account, error)
}

// SyncLedger is the deduplicating transaction sink the sync path writes to.
type SyncLedger interface {
	Persist(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, error)
}

// SyncHandler receives account and transaction pushes from the browser
// extension. Identity comes from the X-User-Email header; there is no
// session state.
type SyncHandler struct {
	accounts AccountStore
	ledger   SyncLedger
	log      zerolog.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(accounts AccountStore, ledger SyncLedger, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{accounts: accounts, ledger: ledger, log: log}
}

type syncTransaction struct {
	Date          string          `json:"date"`
	Name          string          `json:"name"`
	AccountNumber int             `json:"accountNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
}

type syncRequest struct {
	Accounts     []domain.Account  `json:"accounts"`
	Transactions []syncTransaction `json:"transactions"`
}

func syncUser(r *http.Request) string {
	return r.Header.Get("X-User-Email")
}

// Sync handles POST /api/sync: upserts the pushed accounts and persists the
// pushed transactions through the deduplicating ledger. Unknown categories
// fall back to Other; the extension sends raw category text.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	user := syncUser(r)
	if user == "" {
		middleware.WriteError(w, http.StatusBadRequest, "X-User-Email header is required")
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()

	for _, a := range req.Accounts {
		if a.ID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Account ID is required")
			return
		}
	}
	if err := h.accounts.UpsertAccounts(ctx, user, req.Accounts); err != nil {
		h.log.Error().Err(err).Str("user", user).Msg("Failed to upsert synced accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to sync accounts")
		return
	}

	txs := make([]domain.Transaction, 0, len(req.Transactions))
	for i, st := range req.Transactions {
		t, err := st.toTransaction()
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Transaction %d: %v", i+1, err))
			return
		}
		txs = append(txs, t)
	}

	newly, err := h.ledger.Persist(ctx, txs)
	if err != nil {
		h.log.Error().Err(err).Str("user", user).Msg("Failed to persist synced transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to sync transactions")
		return
	}

	h.log.Info().
		Str("user", user).
		Int("accounts", len(req.Accounts)).
		Int("transactions", len(txs)).
		Int("newly_inserted", len(newly)).
		Msg("Sync completed")

	middleware.WriteJSON(w, http.StatusOK, map[string]int{
		"accounts":      len(req.Accounts),
		"transactions":  len(txs),
		"newlyInserted": len(newly),
	})
}

// ListAccounts handles GET /api/accounts for the identified user.
func (h *SyncHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	user := syncUser(r)
	if user == "" {
		middleware.WriteError(w, http.StatusBadRequest, "X-User-Email header is required")
		return
	}

	accounts, err := h.accounts.ListAccounts(r.Context(), user)
	if err != nil {
		h.log.Error().Err(err).Str("user", user).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, accounts)
}

func (st syncTransaction) toTransaction() (domain.Transaction, error) {
	var t domain.Transaction

	date, err := civil.ParseDate(st.Date)
	if err != nil {
		return t, fmt.Errorf("invalid date %q", st.Date)
	}
	if st.Name == "" {
		return t, fmt.Errorf("name is required")
	}

	return domain.Transaction{
		Date:          date,
		Description:   st.Name,
		AccountNumber: st.AccountNumber,
		Amount:        st.Amount,
		Category:      domain.ParseCategory(st.Category),
		Ignore:        domain.IgnoredFromNothing,
	}, nil
}
