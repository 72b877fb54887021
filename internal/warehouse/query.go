package warehouse

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
)

// CategoryTotal is one line of a monthly spend report.
type CategoryTotal struct {
	Category string
	Count    int64
	Total    decimal.Decimal
}

type categoryTotalRow struct {
	Category string `bigquery:"category"`
	Count    int64  `bigquery:"txn_count"`
	Total    string `bigquery:"total"`
}

// MonthlyCategoryTotals sums mirrored transactions per category for the
// tenant's given calendar month. Rows mirrored more than once keep only
// their latest import, so re-ingested statements do not double count.
func (m *Mirror) MonthlyCategoryTotals(ctx context.Context, year int, month int) ([]CategoryTotal, error) {
	start := civil.Date{Year: year, Month: time.Month(month), Day: 1}
	end := start.AddDays(daysInMonth(year, month) - 1)

	query := fmt.Sprintf(`
		SELECT
			category,
			COUNT(*) AS txn_count,
			CAST(SUM(CAST(amount AS NUMERIC)) AS STRING) AS total
		FROM (
			SELECT category, amount,
				ROW_NUMBER() OVER (PARTITION BY row_key ORDER BY imported_ts DESC) AS rn
			FROM `+"`%s.%s.transactions`"+`
			WHERE tenant = @tenant
				AND txn_date BETWEEN @start_date AND @end_date
		)
		WHERE rn = 1
		GROUP BY category
		ORDER BY category
	`, m.projectID, m.dataset)

	q := m.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "tenant", Value: m.tenant},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("warehouse: reading category totals: %w", err)
	}

	var totals []CategoryTotal
	for {
		var row categoryTotalRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("warehouse: iterating category totals: %w", err)
		}
		amount, err := decimal.NewFromString(row.Total)
		if err != nil {
			return nil, fmt.Errorf("warehouse: parsing total for %s: %w", row.Category, err)
		}
		totals = append(totals, CategoryTotal{
			Category: row.Category,
			Count:    row.Count,
			Total:    amount,
		})
	}
	return totals, nil
}

func daysInMonth(year, month int) int {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}
