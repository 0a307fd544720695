// Package extraction turns semi-structured billing documents into retailer and
// invoice candidates. PDFs go through a line heuristic parser, spreadsheets
// through column inference and row normalization, and both fall back to a fixed,
// clearly labeled dataset when nothing usable comes out.
package extraction

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement state of an invoice candidate
type PaymentStatus string

const (
	StatusUnpaid PaymentStatus = "unpaid"
)

// DocumentKind selects the extraction pipeline
type DocumentKind string

const (
	DocumentPDF         DocumentKind = "pdf"
	DocumentSpreadsheet DocumentKind = "spreadsheet"
)

// FallbackKind names the synthetic payload substituted for a failed extraction
type FallbackKind string

const (
	FallbackNone       FallbackKind = ""
	FallbackPDFEmpty   FallbackKind = "pdf_empty"
	FallbackPDFError   FallbackKind = "pdf_error"
	FallbackExcelError FallbackKind = "excel_error"
)

// RetailerCandidate is a retailer found in a document, keyed by its phone string
type RetailerCandidate struct {
	RetailerName  string `json:"retailer_name"`
	RetailerPhone string `json:"retailer_phone"`
}

// InvoiceCandidate is an invoice found in a document.
// RetailerPhone references a RetailerCandidate of the same run.
type InvoiceCandidate struct {
	RetailerPhone string          `json:"retailer_phone"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	InvoiceDate   string          `json:"invoice_date"`
	DueDate       string          `json:"due_date"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// Result is the output of one extraction call
type Result struct {
	Retailers    []RetailerCandidate `json:"retailers"`
	Invoices     []InvoiceCandidate  `json:"invoices"`
	UsedFallback bool                `json:"used_fallback"`
	Fallback     FallbackKind        `json:"fallback,omitempty"`
}

// Empty reports whether no retailers were extracted
func (r Result) Empty() bool {
	return len(r.Retailers) == 0
}

var (
	ErrMalformedDocument   = errors.New("malformed document")
	ErrNoExtractableData   = errors.New("no extractable data")
	ErrUnsupportedDocument = errors.New("unsupported document kind")
	ErrOrphanInvoice       = errors.New("invoice references unknown retailer")
	ErrAmountOutOfRange    = errors.New("amount out of range")
)

// MaxAmount is the largest invoice amount in rupees. Anything larger would
// overflow the int64 paise it is stored as.
var MaxAmount = decimal.New(90_000_000_000_000, 0)

// AmountInRange reports whether amount lies in [0, MaxAmount]
func AmountInRange(amount decimal.Decimal) bool {
	return !amount.IsNegative() && !amount.GreaterThan(MaxAmount)
}

// Validate checks that every invoice references a retailer of the same result
// and that every amount is in range.
func (r Result) Validate() error {
	phones := make(map[string]struct{}, len(r.Retailers))
	for _, ret := range r.Retailers {
		phones[ret.RetailerPhone] = struct{}{}
	}

	for i, inv := range r.Invoices {
		if _, ok := phones[inv.RetailerPhone]; !ok {
			return fmt.Errorf("invoice %d (%s): %w: %q", i, inv.InvoiceNumber, ErrOrphanInvoice, inv.RetailerPhone)
		}
		if !AmountInRange(inv.Amount) {
			return fmt.Errorf("invoice %d (%s): %w: %s", i, inv.InvoiceNumber, ErrAmountOutOfRange, inv.Amount)
		}
	}

	return nil
}
