// Package reminder computes what each retailer owes from an extraction result.
// Message rendering and delivery live elsewhere; this package only aggregates.
package reminder

import (
	"time"

	"github.com/FACorreiaa/dues-tracker/internal/domain/extraction"
	"github.com/FACorreiaa/dues-tracker/pkg/money"
)

// RetailerDues is the outstanding balance of one retailer
type RetailerDues struct {
	RetailerName    string       `json:"retailer_name"`
	RetailerPhone   string       `json:"retailer_phone"`
	TotalDue        *money.Money `json:"total_due"`
	InvoiceCount    int          `json:"invoice_count"`
	EarliestDueDate string       `json:"earliest_due_date"`
	Overdue         bool         `json:"overdue"`
}

// Summarize groups unpaid invoices by retailer phone, in retailer order.
// Retailers without unpaid invoices are left out. A retailer is overdue when its
// earliest due date is before asOf's calendar day.
func Summarize(res extraction.Result, asOf time.Time) []RetailerDues {
	type acc struct {
		total    *money.Money
		count    int
		earliest string
	}

	byPhone := make(map[string]*acc)
	for _, inv := range res.Invoices {
		if inv.PaymentStatus != extraction.StatusUnpaid {
			continue
		}

		a, ok := byPhone[inv.RetailerPhone]
		if !ok {
			a = &acc{total: money.Zero(money.INR)}
			byPhone[inv.RetailerPhone] = a
		}
		// Both operands are INR, so Add cannot fail
		a.total, _ = a.total.Add(money.NewFromDecimal(inv.Amount, money.INR))
		a.count++
		if a.earliest == "" || inv.DueDate < a.earliest {
			a.earliest = inv.DueDate
		}
	}

	today := asOf.Format(extraction.ISODate)

	var out []RetailerDues
	seen := make(map[string]struct{}, len(res.Retailers))
	for _, r := range res.Retailers {
		if _, dup := seen[r.RetailerPhone]; dup {
			continue
		}
		seen[r.RetailerPhone] = struct{}{}

		a, ok := byPhone[r.RetailerPhone]
		if !ok {
			continue
		}
		out = append(out, RetailerDues{
			RetailerName:    r.RetailerName,
			RetailerPhone:   r.RetailerPhone,
			TotalDue:        a.total,
			InvoiceCount:    a.count,
			EarliestDueDate: a.earliest,
			Overdue:         a.earliest < today,
		})
	}

	return out
}

// Total sums the dues of every retailer
func Total(dues []RetailerDues) *money.Money {
	total := money.Zero(money.INR)
	for _, d := range dues {
		total, _ = total.Add(d.TotalDue)
	}
	return total
}
