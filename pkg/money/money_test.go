package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := NewINR(1234567)
	assert.Equal(t, int64(1234567), m.Amount())
	assert.Equal(t, INR, m.Currency())
	assert.Equal(t, "12345.67", m.String())
}

func TestNewFromDecimal(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   int64
	}{
		{"precise decimal", "123.45", 12345},
		{"many decimals", "99.999", 10000},
		{"whole number", "15000", 1500000},
		{"half paisa rounds away from zero", "0.005", 1},
		{"zero", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, NewFromDecimal(d, INR).Amount())
		})
	}

	t.Run("unknown currency falls back to INR", func(t *testing.T) {
		m := NewFromDecimal(decimal.NewFromInt(1), "XYZ1")
		assert.Equal(t, INR, m.Currency())
		assert.Equal(t, int64(100), m.Amount())
	})
}

func TestNewFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"₹1,25,000.50", 12500050, false},
		{"Rs. 500", 50000, false},
		{" 12000 ", 1200000, false},
		{"twelve", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, err := NewFromString(tt.input, INR)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Amount())
		})
	}
}

func TestSum(t *testing.T) {
	total, err := Sum(INR, NewINR(1500000), NewINR(2500000), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4000000), total.Amount())

	empty, err := Sum(INR)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
	assert.Equal(t, INR, empty.Currency())

	_, err = Sum(INR, NewINR(100), New(100, "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestComparisons(t *testing.T) {
	a := NewINR(10000)
	b := NewINR(10001)

	assert.True(t, b.GreaterThan(a))
	assert.False(t, a.GreaterThan(b))
	assert.True(t, a.Equals(NewINR(10000)))
	assert.True(t, a.IsPositive())
	assert.True(t, NewINR(-1).IsNegative())

	var nilMoney *Money
	assert.True(t, nilMoney.IsZero())
	assert.True(t, nilMoney.Equals(Zero(INR)))
	assert.Equal(t, "0.00", nilMoney.String())
}

func TestDisplay(t *testing.T) {
	assert.Contains(t, NewINR(1234567).Display(), "12,345.67")
	assert.Contains(t, NewINR(1234567).Display(), "₹")
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(NewINR(2000000))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(2000000), decoded["amount"])
	assert.Equal(t, INR, decoded["currency"])

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 150}`), &m))
	assert.Equal(t, INR, m.Currency())
	assert.Equal(t, int64(150), m.Amount())
}

func TestTestDataGenerator(t *testing.T) {
	g := NewTestDataGeneratorWithSeed(42)

	retailers := g.Retailers(20)
	require.Len(t, retailers, 20)

	phones := make(map[string]struct{})
	for _, r := range retailers {
		assert.Regexp(t, `^[6-9]\d{9}$`, r.Phone)
		assert.GreaterOrEqual(t, len([]rune(r.Name)), 3)
		assert.LessOrEqual(t, len([]rune(r.Name)), 50)
		phones[r.Phone] = struct{}{}

		inv := g.Invoice(r, 30)
		assert.Equal(t, r.Phone, inv.Phone)
		assert.True(t, inv.Amount.GreaterThan(NewINR(10000)))
		assert.Equal(t, inv.InvoiceDate.AddDate(0, 0, 30), inv.DueDate)
	}
	assert.Len(t, phones, 20)
}

func TestBillingSheetCSV(t *testing.T) {
	r := TestRetailer{Name: "Acme Traders", Phone: "9000000000"}
	g := NewTestDataGeneratorWithSeed(7)
	inv := g.Invoice(r, 15)

	csv := string(BillingSheetCSV([]TestRetailer{r}, []TestInvoice{inv}))

	assert.Contains(t, csv, "Retailer Name,Mobile,Bill No,Total,Date\n")
	assert.Contains(t, csv, "Acme Traders,9000000000,"+inv.Number+","+inv.Amount.String())
}
