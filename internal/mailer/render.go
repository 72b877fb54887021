package mailer

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/domain"
)

// renderErrorSection renders the skipped-rows warning block, or nothing
// when there were no errors.
func renderErrorSection(errors []string) string {
	if len(errors) == 0 {
		return ""
	}

	var items strings.Builder
	for _, e := range errors {
		items.WriteString(fmt.Sprintf("<li>%s</li>", e))
	}

	return fmt.Sprintf(`
		<div style="background-color: #fff4f4; border-left: 5px solid #d13438; padding: 15px; margin-bottom: 20px;">
			<h3 style="color: #d13438; margin-top: 0; font-size: 18px;">⚠️ Warning: Some transactions were skipped</h3>
			<ul style="margin-bottom: 0; padding-left: 20px;">
				%s
			</ul>
		</div>
	`, items.String())
}

// RenderErrorBody renders the full HTML body for an upload-failed email.
func RenderErrorBody(errors []string) string {
	return fmt.Sprintf(`
		<html>
		<body style="font-family: 'Segoe UI', sans-serif; color: #333; line-height: 1.6; background-color: #f4f4f4; margin: 0; padding: 20px;">
			<div style="max-width: 600px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
				<div style="background-color: #d13438; padding: 20px; text-align: center; color: white;">
					<h2 style="margin: 0;">Upload Failed</h2>
				</div>
				<div style="padding: 20px;">
					<p>The uploaded CSV could not be processed due to the following errors:</p>
					%s
				</div>
			</div>
		</body>
		</html>
	`, renderErrorSection(errors))
}

func renderRows(group *domain.Group, tracked []domain.Category) string {
	var rows strings.Builder
	for _, p := range group.Members {
		cells := fmt.Sprintf("<td>%s</td>", p.Name)
		for _, c := range tracked {
			cells += fmt.Sprintf("<td>%s</td>", toCurrency(p.Expenses(c)))
		}
		cells += fmt.Sprintf("<td style='font-weight: bold;'>%s</td>", toCurrency(p.Expenses("")))
		rows.WriteString(fmt.Sprintf("<tr>%s</tr>", cells))
	}

	// Difference row only makes sense for a two-member group.
	if len(group.Members) == 2 {
		p1, p2 := group.Members[0], group.Members[1]
		cells := "<td>Difference</td>"
		for _, c := range tracked {
			diff, _ := group.ExpensesDifference(p1, p2, c)
			cells += fmt.Sprintf("<td>%s</td>", toCurrency(diff))
		}
		total, _ := group.ExpensesDifference(p1, p2, "")
		cells += fmt.Sprintf("<td style='font-weight: bold;'>%s</td>", toCurrency(total))
		rows.WriteString(fmt.Sprintf("<tr style='background-color: #f8f9fa;'>%s</tr>", cells))
	}
	return rows.String()
}

// RenderSummaryBody generates the HTML expense summary for a group,
// with the skipped-row warnings inlined above the table. The group must
// have at least one attached transaction.
func RenderSummaryBody(group *domain.Group, scaleFactor decimal.Decimal, errors []string) (string, error) {
	tracked := domain.TrackedCategories()

	headers := "<th></th>"
	for _, c := range tracked {
		headers += fmt.Sprintf("<th>%s</th>", c)
	}
	headers += "<th>Total</th>"

	rows := renderRows(group, tracked)

	debtHTML := ""
	if len(group.Members) == 2 {
		p1, p2 := group.Members[0], group.Members[1]
		debt, err := group.Debt(p1, p2, scaleFactor)
		if err != nil {
			return "", fmt.Errorf("render summary: %w", err)
		}
		msg := fmt.Sprintf("%s owes %s: <strong>%s</strong>", p1.Name, p2.Name, toCurrency(debt))
		debtHTML = fmt.Sprintf(`
			<div style="margin-top: 25px; font-size: 16px; background-color: #f0f6ff; padding: 15px; border-radius: 4px; border: 1px solid #c7e0f4; color: #005a9e; text-align: center;">
				%s
			</div>
		`, msg)
	}

	minDate, err := group.OldestTransaction()
	if err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	maxDate, err := group.NewestTransaction()
	if err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	dateRange := fmt.Sprintf("%s - %s", shortDate(minDate), shortDate(maxDate))

	return fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="utf-8">
			<meta name="viewport" content="width=device-width, initial-scale=1.0">
		</head>
		<body style="font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; color: #333; line-height: 1.6; background-color: #f4f4f4; margin: 0; padding: 20px;">
			<div style="max-width: 600px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
				<div style="background-color: #0078D4; padding: 20px; text-align: center; color: white;">
					<h2 style="margin: 0; font-weight: 600;">Expense Summary</h2>
					<p style="margin: 5px 0 0; opacity: 0.9;">%s</p>
				</div>

				<div style="padding: 20px;">
					%s

					<div style="overflow-x: auto;">
						<table style="width: 100%%; border-collapse: collapse; margin-top: 10px; font-size: 14px;">
							<thead>
								<tr style="background-color: #f8f9fa; text-align: left;">
									%s
								</tr>
							</thead>
							<tbody>
								%s
							</tbody>
						</table>
					</div>

					%s
				</div>

				<div style="padding: 15px; text-align: center; font-size: 12px; color: #666; border-top: 1px solid #eee;">
					<p>Generated by Split Ledger</p>
				</div>
			</div>

			<style>
				th, td { padding: 12px; border-bottom: 1px solid #e0e0e0; }
				th { font-weight: 600; color: #666; }
				tr:last-child td { border-bottom: none; }
			</style>
		</body>
		</html>
	`, dateRange, renderErrorSection(errors), headers, rows, debtHTML), nil
}

// RenderSubject generates the email subject from the transaction date range.
func RenderSubject(group *domain.Group) (string, error) {
	minDate, err := group.OldestTransaction()
	if err != nil {
		return "", fmt.Errorf("render subject: %w", err)
	}
	maxDate, err := group.NewestTransaction()
	if err != nil {
		return "", fmt.Errorf("render subject: %w", err)
	}
	return fmt.Sprintf("Transactions Summary: %s - %s", shortDate(minDate), shortDate(maxDate)), nil
}

func shortDate(d civil.Date) string {
	return fmt.Sprintf("%02d/%02d/%02d", int(d.Month), d.Day, d.Year%100)
}

// toCurrency formats an amount as dollars with thousands separators, the
// sign ahead of the dollar symbol.
func toCurrency(amount decimal.Decimal) string {
	s := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%s", sign, grouped.String(), frac)
}
