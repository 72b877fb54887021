package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/dvloznov/splitledger/internal/api/middleware"
	"github.com/dvloznov/splitledger/internal/domain"
	"github.com/dvloznov/splitledger/internal/savings"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// SavingsLedger reads and replaces monthly savings snapshots.
type SavingsLedger interface {
	Read(ctx context.Context, user, month string) (*domain.SavingsData, error)
	Save(ctx context.Context, user, month string, data *domain.SavingsData) error
}

// SavingsHandler handles the monthly savings endpoints.
type SavingsHandler struct {
	ledger SavingsLedger
	log    zerolog.Logger
}

// NewSavingsHandler creates a new savings handler.
func NewSavingsHandler(ledger SavingsLedger, log zerolog.Logger) *SavingsHandler {
	return &SavingsHandler{ledger: ledger, log: log}
}

func savingsUser(r *http.Request) string {
	if u := r.URL.Query().Get("user"); u != "" {
		return u
	}
	return "default"
}

// GetSavings handles GET /api/savings/{month}. A month that was never
// saved is a 404; a saved-empty month returns its stored snapshot.
func (h *SavingsHandler) GetSavings(w http.ResponseWriter, r *http.Request, month string) {
	if !monthPattern.MatchString(month) {
		middleware.WriteError(w, http.StatusBadRequest, "Month must be YYYY-MM")
		return
	}

	data, err := h.ledger.Read(r.Context(), savingsUser(r), month)
	if err != nil {
		if errors.Is(err, savings.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "No savings data for "+month)
			return
		}
		h.log.Error().Err(err).Str("month", month).Msg("Failed to read savings")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read savings")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, data)
}

// SaveSavings handles POST /api/savings/{month}, replacing the whole
// monthly snapshot with the request body.
func (h *SavingsHandler) SaveSavings(w http.ResponseWriter, r *http.Request, month string) {
	if !monthPattern.MatchString(month) {
		middleware.WriteError(w, http.StatusBadRequest, "Month must be YYYY-MM")
		return
	}

	var data domain.SavingsData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.ledger.Save(r.Context(), savingsUser(r), month, &data); err != nil {
		h.log.Error().Err(err).Str("month", month).Msg("Failed to save savings")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save savings")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"month":  month,
		"status": "saved",
	})
}
