package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/splitledger/internal/api/middleware"
	"github.com/dvloznov/splitledger/internal/warehouse"
)

// SpendReporter answers aggregate queries over the analytics mirror.
type SpendReporter interface {
	MonthlyCategoryTotals(ctx context.Context, year, month int) ([]warehouse.CategoryTotal, error)
}

// ReportsHandler serves spend reports backed by the warehouse. It is
// only routed when an analytics project is configured.
type ReportsHandler struct {
	reporter SpendReporter
	log      zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(reporter SpendReporter, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{reporter: reporter, log: log}
}

type categoryTotalView struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
	Total    string `json:"total"`
}

// MonthlyReport handles GET /api/reports/{month}.
func (h *ReportsHandler) MonthlyReport(w http.ResponseWriter, r *http.Request, month string) {
	if !monthPattern.MatchString(month) {
		middleware.WriteError(w, http.StatusBadRequest, "Month must be YYYY-MM")
		return
	}
	yearPart, monthPart, _ := strings.Cut(month, "-")
	year, _ := strconv.Atoi(yearPart)
	monthNum, _ := strconv.Atoi(monthPart)
	if monthNum < 1 || monthNum > 12 {
		middleware.WriteError(w, http.StatusBadRequest, "Month must be between 01 and 12")
		return
	}

	totals, err := h.reporter.MonthlyCategoryTotals(r.Context(), year, monthNum)
	if err != nil {
		h.log.Error().Err(err).Str("month", month).Msg("Failed to build spend report")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build spend report")
		return
	}

	views := make([]categoryTotalView, 0, len(totals))
	for _, t := range totals {
		views = append(views, categoryTotalView{
			Category: t.Category,
			Count:    t.Count,
			Total:    t.Total.StringFixed(2),
		})
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"month":      month,
		"categories": views,
	})
}
