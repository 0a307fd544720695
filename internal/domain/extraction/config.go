package extraction

import (
	"github.com/shopspring/decimal"
)

// DefaultCreditDays is used when the caller does not supply a credit period
const DefaultCreditDays = 30

// HeaderKeywords holds the keyword set used to recognize each semantic column
type HeaderKeywords struct {
	Name    []string `yaml:"name"`
	Phone   []string `yaml:"phone"`
	Invoice []string `yaml:"invoice"`
	Amount  []string `yaml:"amount"`
	Date    []string `yaml:"date"`
}

// DefaultHeaderKeywords returns the built-in keyword sets
func DefaultHeaderKeywords() HeaderKeywords {
	return HeaderKeywords{
		Name:    []string{"name", "retailer"},
		Phone:   []string{"phone", "mobile"},
		Invoice: []string{"invoice", "bill"},
		Amount:  []string{"amount", "total"},
		Date:    []string{"date"},
	}
}

// Config carries every tunable of an extraction run. It is built by the caller
// and handed to NewExtractor; the package holds no configuration of its own.
type Config struct {
	// DefaultCreditDays is the number of days between invoice date and due date.
	DefaultCreditDays int
	// AmountThreshold filters PDF amounts; only amounts strictly above it count.
	AmountThreshold decimal.Decimal
	// NameMinLen and NameMaxLen bound an inferred PDF retailer name, in runes.
	NameMinLen int
	NameMaxLen int
	Keywords   HeaderKeywords
}

// DefaultConfig returns the standard extraction configuration
func DefaultConfig() Config {
	return Config{
		DefaultCreditDays: DefaultCreditDays,
		AmountThreshold:   decimal.NewFromInt(100),
		NameMinLen:        3,
		NameMaxLen:        50,
		Keywords:          DefaultHeaderKeywords(),
	}
}

// withDefaults fills zero values so a partially populated Config is still usable
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DefaultCreditDays <= 0 {
		c.DefaultCreditDays = def.DefaultCreditDays
	}
	if c.AmountThreshold.IsZero() {
		c.AmountThreshold = def.AmountThreshold
	}
	if c.NameMinLen <= 0 {
		c.NameMinLen = def.NameMinLen
	}
	if c.NameMaxLen <= 0 || c.NameMaxLen < c.NameMinLen {
		c.NameMaxLen = def.NameMaxLen
	}
	if len(c.Keywords.Name) == 0 {
		c.Keywords.Name = def.Keywords.Name
	}
	if len(c.Keywords.Phone) == 0 {
		c.Keywords.Phone = def.Keywords.Phone
	}
	if len(c.Keywords.Invoice) == 0 {
		c.Keywords.Invoice = def.Keywords.Invoice
	}
	if len(c.Keywords.Amount) == 0 {
		c.Keywords.Amount = def.Keywords.Amount
	}
	if len(c.Keywords.Date) == 0 {
		c.Keywords.Date = def.Keywords.Date
	}
	return c
}
