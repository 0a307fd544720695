package extraction

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ISODate is the layout used for every date a candidate carries
const ISODate = "2006-01-02"

// UnknownRetailer names a retailer whose phone sits on the first line of the document
const UnknownRetailer = "Unknown Retailer"

var (
	// Indian mobile number: optional +91/91 prefix, optional separator, ten digits starting 6-9
	phonePattern = regexp.MustCompile(`(\+?91)?[\s-]?[6-9]\d{9}`)

	invoicePattern = regexp.MustCompile(`(?i)INV[\w-]+|Invoice[\s#:]*([\w-]+)`)

	// Optional rupee sign, then digits with optional thousands separators and decimals
	amountPattern = regexp.MustCompile(`₹?\s*(\d+(?:,\d+)*(?:\.\d+)?)`)
)

// NameBounds is the accepted rune length range of an inferred retailer name, both ends inclusive
type NameBounds struct {
	Min int
	Max int
}

// LineOptions controls one run of the line heuristic parser
type LineOptions struct {
	Today      time.Time
	CreditDays int
	Threshold  decimal.Decimal
	Bounds     NameBounds
}

// MatchPhone returns the leftmost phone number on the line, trimmed
func MatchPhone(line string) (string, bool) {
	m := phonePattern.FindString(line)
	if m == "" {
		return "", false
	}
	return strings.TrimSpace(m), true
}

// InferRetailerName takes the retailer name from the line above the phone line.
// Names outside bounds are replaced by a synthetic name built from the phone.
func InferRetailerName(lines []string, i int, phone string, bounds NameBounds) string {
	if i <= 0 || i > len(lines) {
		return UnknownRetailer
	}

	name := strings.TrimSpace(lines[i-1])
	n := utf8.RuneCountInString(name)
	if n < bounds.Min || n > bounds.Max {
		return syntheticName(phone)
	}
	return name
}

func syntheticName(phone string) string {
	r := []rune(phone)
	if len(r) > 4 {
		r = r[len(r)-4:]
	}
	return "Retailer " + string(r)
}

// MatchInvoiceNumber returns the whole invoice token found on the line
func MatchInvoiceNumber(line string) (string, bool) {
	loc := invoicePattern.FindStringIndex(line)
	if loc == nil {
		return "", false
	}
	return line[loc[0]:loc[1]], true
}

// MatchAmount returns the first amount on the line with thousands separators removed
func MatchAmount(line string) (decimal.Decimal, bool) {
	m := amountPattern.FindStringSubmatch(line)
	if m == nil {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// matchInvoiceLine finds an invoice number and an amount on the same line.
// The amount is the first number anywhere on the line, so "INV-500 amount 15000" reads 500.
func matchInvoiceLine(line string) (string, decimal.Decimal, bool) {
	number, ok := MatchInvoiceNumber(line)
	if !ok {
		return "", decimal.Zero, false
	}

	amount, ok := MatchAmount(line)
	if !ok {
		return "", decimal.Zero, false
	}
	return number, amount, true
}

// ParseLines scans document lines in order. Every phone match opens a new retailer
// that becomes current; a line carrying both an invoice number and an amount above the
// threshold emits an invoice for the current retailer.
func ParseLines(lines []string, opts LineOptions) ([]RetailerCandidate, []InvoiceCandidate) {
	var (
		retailers []RetailerCandidate
		invoices  []InvoiceCandidate
		current   string
	)

	invoiceDate := opts.Today.Format(ISODate)
	dueDate := opts.Today.AddDate(0, 0, opts.CreditDays).Format(ISODate)

	for i, line := range lines {
		if phone, ok := MatchPhone(line); ok {
			retailers = append(retailers, RetailerCandidate{
				RetailerName:  InferRetailerName(lines, i, phone, opts.Bounds),
				RetailerPhone: phone,
			})
			current = phone
		}

		number, amount, ok := matchInvoiceLine(line)
		if !ok || current == "" || !amount.GreaterThan(opts.Threshold) || !AmountInRange(amount) {
			continue
		}

		invoices = append(invoices, InvoiceCandidate{
			RetailerPhone: current,
			InvoiceNumber: number,
			Amount:        amount,
			InvoiceDate:   invoiceDate,
			DueDate:       dueDate,
			PaymentStatus: StatusUnpaid,
		})
	}

	return retailers, invoices
}
