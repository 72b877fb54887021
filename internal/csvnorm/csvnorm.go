// Package csvnorm turns raw CSV exports into validated domain transactions.
// Every malformed row yields one error string and never aborts the scan, so a
// single bad line cannot block a whole statement import.
package csvnorm

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/domain"
)

// dateLayouts is the ordered list of accepted date formats. The first layout
// that parses wins, which makes inputs like "01/02/2025" inherently ambiguous
// (US month-first is tried before day-first). That ambiguity comes from the
// export format itself and is documented rather than guessed around.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
}

// Expected headers, trimmed and case-sensitive.
const (
	headerDate    = "Date"
	headerName    = "Name"
	headerAccount = "Account Number"
	headerAmount  = "Amount"
	headerCat     = "Category"
	headerIgnored = "Ignored From"
)

// Parse normalizes raw CSV text into transactions. It returns the
// successfully parsed transactions in input order, plus one "Row <n>: ..."
// error per malformed row, where n is the 1-based data-row index (the header
// row is not counted).
func Parse(content string) ([]domain.Transaction, []string) {
	lines := nonBlankLines(content)
	if len(lines) < 2 {
		return nil, nil // empty or header-only
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headerRecord, err := reader.Read()
	if err != nil {
		return nil, []string{fmt.Sprintf("failed to read CSV header: %v", err)}
	}
	headers := make([]string, len(headerRecord))
	for i, h := range headerRecord {
		headers[i] = strings.TrimSpace(h)
	}

	var transactions []domain.Transaction
	var rowErrors []string

	// Records are read one at a time: a structurally malformed row (a bare
	// quote, say) fails only its own Read, and the reader resumes at the
	// next line.
	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				err = pe.Err
			}
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: malformed row: %v", rowNum, err))
			continue
		}

		row := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(record) {
				row[h] = strings.TrimSpace(record[j])
			}
		}

		t, err := toTransaction(row)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		transactions = append(transactions, t)
	}

	return transactions, rowErrors
}

// ParseDate tries each accepted layout in order and returns the first match.
func ParseDate(s string) (civil.Date, error) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(ts), nil
		}
	}
	return civil.Date{}, fmt.Errorf("date %q does not match any supported format", s)
}

func toTransaction(row map[string]string) (domain.Transaction, error) {
	var t domain.Transaction

	dateStr := row[headerDate]
	if dateStr == "" {
		return t, fmt.Errorf("missing 'Date' field")
	}
	date, err := ParseDate(dateStr)
	if err != nil {
		return t, err
	}

	name := row[headerName]
	if name == "" {
		return t, fmt.Errorf("missing 'Name' field")
	}

	accountStr := row[headerAccount]
	account, err := strconv.Atoi(accountStr)
	if err != nil {
		return t, fmt.Errorf("invalid or missing 'Account Number': %q", accountStr)
	}

	amountStr := row[headerAmount]
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return t, fmt.Errorf("invalid or missing 'Amount': %q", amountStr)
	}

	ignore, err := domain.ParseIgnoredFrom(row[headerIgnored])
	if err != nil {
		return t, err
	}

	return domain.Transaction{
		Date:          date,
		Description:   name,
		AccountNumber: account,
		Amount:        amount,
		Category:      domain.ParseCategory(row[headerCat]),
		Ignore:        ignore,
	}, nil
}

func nonBlankLines(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, "\r"))
		}
	}
	return lines
}
