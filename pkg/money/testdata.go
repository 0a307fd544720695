package money

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator generates realistic billing test data using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(0), // Random seed
	}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
	}
}

// ============================================================================
// Retailers and invoices
// ============================================================================

// TestRetailer is a generated retailer with an Indian mobile number.
type TestRetailer struct {
	Name  string
	Phone string
}

// TestInvoice is a generated unpaid invoice.
type TestInvoice struct {
	Phone       string
	Number      string
	Amount      *Money
	InvoiceDate time.Time
	DueDate     time.Time
}

var shopSuffixes = []string{
	"Traders", "Stores", "Kirana", "General Store", "Enterprises",
	"Agencies", "Distributors", "Mart", "Provisions", "& Sons",
}

// Phone generates a ten digit mobile number starting with 6-9.
func (g *TestDataGenerator) Phone() string {
	return fmt.Sprintf("%d%s", g.faker.Number(6, 9), g.faker.Numerify("#########"))
}

// RetailerName generates a shop name between 3 and 50 characters.
func (g *TestDataGenerator) RetailerName() string {
	name := fmt.Sprintf("%s %s", g.faker.LastName(), g.faker.RandomString(shopSuffixes))
	if len(name) > 50 {
		name = name[:50]
	}
	return name
}

// Retailer generates a single retailer.
func (g *TestDataGenerator) Retailer() TestRetailer {
	return TestRetailer{
		Name:  g.RetailerName(),
		Phone: g.Phone(),
	}
}

// Retailers generates count retailers with distinct phones.
func (g *TestDataGenerator) Retailers(count int) []TestRetailer {
	seen := make(map[string]struct{}, count)
	out := make([]TestRetailer, 0, count)
	for len(out) < count {
		r := g.Retailer()
		if _, dup := seen[r.Phone]; dup {
			continue
		}
		seen[r.Phone] = struct{}{}
		out = append(out, r)
	}
	return out
}

// InvoiceNumber generates an invoice number in the INV-#### style.
func (g *TestDataGenerator) InvoiceNumber() string {
	return g.faker.Numerify("INV-####")
}

// InvoiceAmount generates an amount between ₹101 and ₹1,00,000 in whole rupees.
func (g *TestDataGenerator) InvoiceAmount() *Money {
	return NewFromDecimal(decimal.NewFromInt(int64(g.faker.Number(101, 100000))), INR)
}

// Invoice generates an invoice for the retailer, due creditDays after a date in the last quarter.
func (g *TestDataGenerator) Invoice(r TestRetailer, creditDays int) TestInvoice {
	issued := g.faker.DateRange(time.Now().AddDate(0, -3, 0), time.Now()).Truncate(24 * time.Hour)
	return TestInvoice{
		Phone:       r.Phone,
		Number:      g.InvoiceNumber(),
		Amount:      g.InvoiceAmount(),
		InvoiceDate: issued,
		DueDate:     issued.AddDate(0, 0, creditDays),
	}
}

// ============================================================================
// Documents
// ============================================================================

// BillingSheetCSV renders retailers and invoices as a CSV billing sheet
// with a "Retailer Name,Mobile,Bill No,Total,Date" header.
func BillingSheetCSV(retailers []TestRetailer, invoices []TestInvoice) []byte {
	names := make(map[string]string, len(retailers))
	for _, r := range retailers {
		names[r.Phone] = r.Name
	}

	out := []byte("Retailer Name,Mobile,Bill No,Total,Date\n")
	for _, inv := range invoices {
		out = fmt.Appendf(out, "%s,%s,%s,%s,%s\n",
			names[inv.Phone], inv.Phone, inv.Number, inv.Amount.String(), inv.InvoiceDate.Format("2006-01-02"))
	}
	return out
}

// StatementText renders retailers and invoices as the plain text of a dues statement:
// name line, phone line, then one "₹amount INV-####" line per invoice.
// The amount leads because line parsing reads the first number on the line.
func StatementText(retailers []TestRetailer, invoices []TestInvoice) string {
	byPhone := make(map[string][]TestInvoice)
	for _, inv := range invoices {
		byPhone[inv.Phone] = append(byPhone[inv.Phone], inv)
	}

	var out []byte
	for _, r := range retailers {
		out = fmt.Appendf(out, "%s\nPhone: %s\n", r.Name, r.Phone)
		for _, inv := range byPhone[r.Phone] {
			out = fmt.Appendf(out, "₹%s %s\n", inv.Amount.String(), inv.Number)
		}
	}
	return string(out)
}
