// Package money provides currency-safe arithmetic for invoice amounts using integer
// paise and the Fowler Money pattern. Amounts extracted from documents arrive as
// decimals and are converted once; all sums happen on minor units.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// INR is the only currency billing documents are read in
const INR = "INR"

var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money represents a monetary value with currency.
// It wraps go-money for safe arithmetic and shopspring/decimal for conversions.
type Money struct {
	m *money.Money
}

// New creates a Money value from minor units (paise for INR)
func New(minor int64, currencyCode string) *Money {
	return &Money{m: money.New(minor, currencyCode)}
}

// NewINR creates an INR value from paise
func NewINR(paise int64) *Money {
	return New(paise, INR)
}

// NewFromDecimal creates Money from a decimal amount in major units, rounding half away
// from zero to the currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(INR)
		currencyCode = INR
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	minor := amount.Mul(multiplier).Round(0).IntPart()

	return New(minor, currencyCode)
}

// NewFromString parses an amount such as "₹1,25,000.50" in major units
func NewFromString(amount string, currencyCode string) (*Money, error) {
	amount = strings.TrimSpace(amount)
	amount = strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", ",", "", " ", "").Replace(amount)

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	return NewFromDecimal(d, currencyCode), nil
}

// Zero returns a zero value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Amount returns the amount in minor units
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

func (m *Money) IsPositive() bool {
	return m != nil && m.m != nil && m.m.IsPositive()
}

func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Add adds two Money values. Returns ErrCurrencyMismatch if currencies differ.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency(), other.Currency())
	}
	return &Money{m: result}, nil
}

// Sum adds all values; an empty list sums to zero in currencyCode
func Sum(currencyCode string, values ...*Money) (*Money, error) {
	total := Zero(currencyCode)
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// Equals returns true if both values are equal
func (m *Money) Equals(other *Money) bool {
	if m == nil || m.m == nil {
		return other.IsZero()
	}
	if other == nil || other.m == nil {
		return m.IsZero()
	}
	eq, _ := m.m.Equals(other.m)
	return eq
}

// GreaterThan returns true if m > other
func (m *Money) GreaterThan(other *Money) bool {
	if m == nil || m.m == nil || other == nil || other.m == nil {
		return false
	}
	gt, _ := m.m.GreaterThan(other.m)
	return gt
}

// Display returns a formatted string for display (e.g., "₹1,234.56")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return Zero(INR).m.Display()
	}
	return m.m.Display()
}

// String returns the amount as a decimal string (e.g., "1234.56")
func (m *Money) String() string {
	return m.ToDecimal().StringFixed(m.fraction())
}

// ToDecimal converts to decimal.Decimal in major units
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -m.fraction())
}

func (m *Money) fraction() int32 {
	if m == nil || m.m == nil {
		return 2
	}
	return int32(m.m.Currency().Fraction)
}

func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]interface{}{
		"amount":   m.Amount(),
		"currency": m.Currency(),
		"display":  m.Display(),
	})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Currency == "" {
		v.Currency = INR
	}
	m.m = money.New(v.Amount, v.Currency)
	return nil
}
