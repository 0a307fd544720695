package extraction

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/dues-tracker/internal/domain/import/parser"
)

const (
	UnknownName       = "Unknown"
	AutoInvoiceNumber = "INV-AUTO"
)

// RowOptions controls one run of the row normalizer
type RowOptions struct {
	Today      time.Time
	CreditDays int
}

// NormalizeRows converts data rows (header excluded) into candidates.
// Rows without a phone value are skipped. Retailers are deduplicated by phone with the
// first seen name kept; every kept row yields one invoice.
func NormalizeRows(rows [][]parser.Cell, cols ColumnMap, opts RowOptions) ([]RetailerCandidate, []InvoiceCandidate) {
	var (
		retailers []RetailerCandidate
		invoices  []InvoiceCandidate
	)
	seen := make(map[string]struct{})

	today := opts.Today.Format(ISODate)
	dueDate := opts.Today.AddDate(0, 0, opts.CreditDays).Format(ISODate)

	for _, row := range rows {
		if len(row) == 0 {
			continue
		}

		phoneCell, ok := parser.CellAt(row, cols.Phone)
		if !ok || !phoneCell.Truthy() {
			continue
		}
		phone := strings.TrimSpace(phoneCell.String())
		if phone == "" {
			continue
		}

		if _, dup := seen[phone]; !dup {
			seen[phone] = struct{}{}
			retailers = append(retailers, RetailerCandidate{
				RetailerName:  stringOr(row, cols.Name, UnknownName),
				RetailerPhone: phone,
			})
		}

		invoices = append(invoices, InvoiceCandidate{
			RetailerPhone: phone,
			InvoiceNumber: stringOr(row, cols.Invoice, AutoInvoiceNumber),
			Amount:        amountAt(row, cols.Amount),
			InvoiceDate:   dateAt(row, cols.Date, today),
			DueDate:       dueDate,
			PaymentStatus: StatusUnpaid,
		})
	}

	return retailers, invoices
}

// stringOr returns the stringified cell at idx, or def when the cell is absent or falsy
func stringOr(row []parser.Cell, idx int, def string) string {
	cell, ok := parser.CellAt(row, idx)
	if !ok || !cell.Truthy() {
		return def
	}
	return cell.String()
}

// amountAt returns the numeric cell value. Absent, non-numeric, negative and
// out of range values give zero.
func amountAt(row []parser.Cell, idx int) decimal.Decimal {
	cell, ok := parser.CellAt(row, idx)
	if !ok {
		return decimal.Zero
	}
	v, ok := cell.Float()
	if !ok {
		return decimal.Zero
	}
	amount := decimal.NewFromFloat(v)
	if !AmountInRange(amount) {
		return decimal.Zero
	}
	return amount
}

// dateAt returns date cells as ISO and any other value in its string form.
// Absent or falsy cells give today.
func dateAt(row []parser.Cell, idx int, today string) string {
	if idx == NotFound {
		return today
	}
	cell, ok := parser.CellAt(row, idx)
	if !ok || !cell.Truthy() {
		return today
	}
	if cell.Kind == parser.CellDate {
		return cell.Time.Format(ISODate)
	}
	return strings.TrimSpace(cell.String())
}
