package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/api/middleware"
	"github.com/dvloznov/splitledger/internal/domain"
)

// CardRepository reads and writes credit card configuration.
type CardRepository interface {
	ListCards(ctx context.Context) ([]domain.CreditCard, error)
	SaveCard(ctx context.Context, card domain.CreditCard) error
}

// CardsHandler handles the credit card endpoints.
type CardsHandler struct {
	repo CardRepository
	log  zerolog.Logger
}

// NewCardsHandler creates a new cards handler.
func NewCardsHandler(repo CardRepository, log zerolog.Logger) *CardsHandler {
	return &CardsHandler{repo: repo, log: log}
}

// cardView augments a stored card with its derived figures.
type cardView struct {
	domain.CreditCard
	Utilization   decimal.Decimal `json:"utilization"`
	TargetPayment decimal.Decimal `json:"targetPayment"`
}

// ListCards handles GET /api/cards.
func (h *CardsHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.repo.ListCards(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list cards")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list cards")
		return
	}

	views := make([]cardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, cardView{
			CreditCard:    c,
			Utilization:   c.Utilization(),
			TargetPayment: c.TargetPayment(),
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cards": views,
		"count": len(views),
	})
}

// SaveCard handles POST /api/cards, upserting a card configuration.
// A missing ID means a new card.
func (h *CardsHandler) SaveCard(w http.ResponseWriter, r *http.Request) {
	var card domain.CreditCard
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if card.AccountNumber == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "accountNumber is required")
		return
	}
	if card.ID == "" {
		card.ID = uuid.New().String()
	}

	if err := h.repo.SaveCard(r.Context(), card); err != nil {
		h.log.Error().Err(err).Str("card_id", card.ID).Msg("Failed to save card")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save card")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"id":     card.ID,
		"status": "saved",
	})
}

// Reconcile handles POST /api/cards/{id}/reconcile. The statement fixes
// the balance up to the given date: the running balance is overwritten
// with the statement figure, and only transactions dated on or after the
// date will adjust it from now on.
func (h *CardsHandler) Reconcile(w http.ResponseWriter, r *http.Request, cardID string) {
	var req struct {
		Date             string          `json:"date"`
		StatementBalance decimal.Decimal `json:"statementBalance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date, err := civil.ParseDate(req.Date)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	ctx := r.Context()
	cards, err := h.repo.ListCards(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list cards")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to reconcile card")
		return
	}

	var card *domain.CreditCard
	for i := range cards {
		if cards[i].ID == cardID {
			card = &cards[i]
			break
		}
	}
	if card == nil {
		middleware.WriteError(w, http.StatusNotFound, "Card not found")
		return
	}

	card.LastReconciled = &date
	card.StatementBalance = req.StatementBalance
	card.CurrentBalance = req.StatementBalance

	if err := h.repo.SaveCard(ctx, *card); err != nil {
		h.log.Error().Err(err).Str("card_id", cardID).Msg("Failed to save reconciled card")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to reconcile card")
		return
	}

	h.log.Info().
		Str("card_id", cardID).
		Str("date", date.String()).
		Str("balance", req.StatementBalance.String()).
		Msg("Card reconciled")

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"id":             cardID,
		"lastReconciled": date.String(),
		"status":         "reconciled",
	})
}
