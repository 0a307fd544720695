package extraction

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedToday = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

func defaultLineOptions() LineOptions {
	return LineOptions{
		Today:      fixedToday,
		CreditDays: 30,
		Threshold:  decimal.NewFromInt(100),
		Bounds:     NameBounds{Min: 3, Max: 50},
	}
}

func TestMatchPhone(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		want  string
		found bool
	}{
		{"plain mobile", "Phone: 9876543210", "9876543210", true},
		{"country code", "Call +91 9123456789 today", "+91 9123456789", true},
		{"country code with dash", "91-8123456789", "91-8123456789", true},
		{"leading digit too low", "Phone: 5876543210", "", false},
		{"too short", "98765", "", false},
		{"no digits", "Acme Traders", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchPhone(tt.line)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferRetailerName(t *testing.T) {
	bounds := NameBounds{Min: 3, Max: 50}

	t.Run("takes preceding line", func(t *testing.T) {
		lines := []string{"  Acme Traders  ", "9876543210"}
		assert.Equal(t, "Acme Traders", InferRetailerName(lines, 1, "9876543210", bounds))
	})

	t.Run("first line has no name", func(t *testing.T) {
		lines := []string{"9876543210"}
		assert.Equal(t, UnknownRetailer, InferRetailerName(lines, 0, "9876543210", bounds))
	})

	t.Run("empty preceding line", func(t *testing.T) {
		lines := []string{"", "9876543210"}
		assert.Equal(t, "Retailer 3210", InferRetailerName(lines, 1, "9876543210", bounds))
	})

	t.Run("too short", func(t *testing.T) {
		lines := []string{"AB", "9876543210"}
		assert.Equal(t, "Retailer 3210", InferRetailerName(lines, 1, "9876543210", bounds))
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		lines := []string{"ABC", "9876543210"}
		assert.Equal(t, "ABC", InferRetailerName(lines, 1, "9876543210", bounds))

		fifty := "Shree Ganesh Kirana and General Stores, Main Road."
		require.Len(t, []rune(fifty), 50)
		assert.Equal(t, fifty, InferRetailerName([]string{fifty, "x"}, 1, "9876543210", bounds))
	})

	t.Run("too long", func(t *testing.T) {
		long := "Shree Ganesh Kirana and General Stores, Main Road.!"
		assert.Equal(t, "Retailer 3210", InferRetailerName([]string{long, "x"}, 1, "9876543210", bounds))
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		lines := []string{"राम", "9876543210"}
		assert.Equal(t, "राम", InferRetailerName(lines, 1, "9876543210", bounds))
	})
}

func TestMatchInvoiceNumber(t *testing.T) {
	tests := []struct {
		line  string
		want  string
		found bool
	}{
		{"INV-500 amount 15000", "INV-500", true},
		{"ref inv_2024_01 due", "inv_2024_01", true},
		{"Bill total 15000", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := MatchInvoiceNumber(tt.line)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchAmount(t *testing.T) {
	tests := []struct {
		line  string
		want  string
		found bool
	}{
		{"amount 15000", "15000", true},
		{"₹ 1,25,000.50 due", "125000.5", true},
		{"₹12,000", "12000", true},
		{"total 100.01", "100.01", true},
		{"no amount here", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := MatchAmount(tt.line)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseLines_AcmeScenario(t *testing.T) {
	lines := []string{"Acme Traders", "Phone: 9876543210", "INV-500 amount 15000"}

	retailers, invoices := ParseLines(lines, defaultLineOptions())

	require.Len(t, retailers, 1)
	assert.Equal(t, RetailerCandidate{RetailerName: "Acme Traders", RetailerPhone: "9876543210"}, retailers[0])

	require.Len(t, invoices, 1)
	inv := invoices[0]
	assert.Equal(t, "9876543210", inv.RetailerPhone)
	assert.Equal(t, "INV-500", inv.InvoiceNumber)
	assert.True(t, decimal.NewFromInt(500).Equal(inv.Amount))
	assert.Equal(t, "2024-03-10", inv.InvoiceDate)
	assert.Equal(t, "2024-04-09", inv.DueDate)
	assert.Equal(t, StatusUnpaid, inv.PaymentStatus)
}

func TestParseLines_Threshold(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		invoices int
	}{
		{"exactly threshold", "₹100 INV-A", 0},
		{"just above threshold", "₹100.01 INV-A", 1},
		{"small line number", "INV-1 page 3", 0},
		{"invoice digits are the amount", "INV-5000", 1},
		{"amount beyond storable range", "INV-100000000000000000000", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := []string{"Acme Traders", "9876543210", tt.line}
			_, invoices := ParseLines(lines, defaultLineOptions())
			assert.Len(t, invoices, tt.invoices)
		})
	}
}

func TestParseLines_AmountIsFirstNumberOnLine(t *testing.T) {
	tests := []struct {
		line   string
		number string
		amount string
	}{
		{"INV-5000", "INV-5000", "5000"},
		{"INV-500 amount 15000", "INV-500", "500"},
		{"₹12,500.75 Invoice #77", "Invoice", "12500.75"},
		{"Bill 2400 INV-A", "INV-A", "2400"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			lines := []string{"Acme Traders", "9876543210", tt.line}
			_, invoices := ParseLines(lines, defaultLineOptions())
			require.Len(t, invoices, 1)
			assert.Equal(t, tt.number, invoices[0].InvoiceNumber)
			assert.Equal(t, tt.amount, invoices[0].Amount.String())
		})
	}
}

func TestParseLines_InvoiceWithoutRetailer(t *testing.T) {
	lines := []string{"INV-900", "Acme Traders", "9876543210"}

	retailers, invoices := ParseLines(lines, defaultLineOptions())

	assert.Len(t, retailers, 1)
	assert.Empty(t, invoices)
}

func TestParseLines_RepeatedPhoneCreatesRetailers(t *testing.T) {
	lines := []string{
		"Acme Traders", "9876543210", "INV-5000",
		"Acme Traders Branch", "9876543210", "INV-7000",
	}

	retailers, invoices := ParseLines(lines, defaultLineOptions())

	require.Len(t, retailers, 2)
	assert.Equal(t, "Acme Traders", retailers[0].RetailerName)
	assert.Equal(t, "Acme Traders Branch", retailers[1].RetailerName)
	require.Len(t, invoices, 2)
	for _, inv := range invoices {
		assert.Equal(t, "9876543210", inv.RetailerPhone)
	}
}

func TestParseLines_InvoicesFollowCurrentRetailer(t *testing.T) {
	lines := []string{
		"Acme Traders", "9876543210", "₹5,000 INV-A",
		"Kumar Stores", "9123456789", "₹7,000 INV-B", "₹8,000 INV-C",
	}

	_, invoices := ParseLines(lines, defaultLineOptions())

	require.Len(t, invoices, 3)
	assert.Equal(t, "9876543210", invoices[0].RetailerPhone)
	assert.Equal(t, "9123456789", invoices[1].RetailerPhone)
	assert.Equal(t, "9123456789", invoices[2].RetailerPhone)
}

func TestParseLines_NoPhones(t *testing.T) {
	retailers, invoices := ParseLines([]string{"Statement", "INV-5000"}, defaultLineOptions())
	assert.Empty(t, retailers)
	assert.Empty(t, invoices)
}
