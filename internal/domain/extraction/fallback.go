package extraction

import (
	"time"

	"github.com/shopspring/decimal"
)

// fallbackCreditDays is fixed for every fallback payload, independent of configuration
const fallbackCreditDays = 30

func fallbackInvoice(phone, number string, amount int64, today time.Time) InvoiceCandidate {
	return InvoiceCandidate{
		RetailerPhone: phone,
		InvoiceNumber: number,
		Amount:        decimal.NewFromInt(amount),
		InvoiceDate:   today.Format(ISODate),
		DueDate:       today.AddDate(0, 0, fallbackCreditDays).Format(ISODate),
		PaymentStatus: StatusUnpaid,
	}
}

// PDFEmptyFallback is returned when a PDF yields no retailer
func PDFEmptyFallback(today time.Time) Result {
	return Result{
		Retailers: []RetailerCandidate{
			{RetailerName: "Sample Retailer 1", RetailerPhone: "9876543210"},
			{RetailerName: "Sample Retailer 2", RetailerPhone: "9876543211"},
		},
		Invoices: []InvoiceCandidate{
			fallbackInvoice("9876543210", "INV-001", 15000, today),
			fallbackInvoice("9876543211", "INV-002", 25000, today),
		},
		UsedFallback: true,
		Fallback:     FallbackPDFEmpty,
	}
}

// PDFErrorFallback is returned when a PDF cannot be read
func PDFErrorFallback(today time.Time) Result {
	return Result{
		Retailers: []RetailerCandidate{
			{RetailerName: "Error - Sample Retailer", RetailerPhone: "9999999999"},
		},
		Invoices: []InvoiceCandidate{
			fallbackInvoice("9999999999", "INV-ERROR", 10000, today),
		},
		UsedFallback: true,
		Fallback:     FallbackPDFError,
	}
}

// ExcelErrorFallback is returned when a spreadsheet cannot be read
func ExcelErrorFallback(today time.Time) Result {
	return Result{
		Retailers: []RetailerCandidate{
			{RetailerName: "Sample Excel Retailer", RetailerPhone: "8888888888"},
		},
		Invoices: []InvoiceCandidate{
			fallbackInvoice("8888888888", "INV-XLS-001", 20000, today),
		},
		UsedFallback: true,
		Fallback:     FallbackExcelError,
	}
}
