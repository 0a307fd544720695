package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferColumns(t *testing.T) {
	keywords := DefaultHeaderKeywords()

	tests := []struct {
		name    string
		headers []string
		want    ColumnMap
	}{
		{
			name:    "billing sheet",
			headers: []string{"Retailer Name", "Mobile", "Bill No", "Total", "Date"},
			want:    ColumnMap{Name: 0, Phone: 1, Invoice: 2, Amount: 3, Date: 4},
		},
		{
			name:    "reordered columns",
			headers: []string{"Invoice Date", "Amount Due", "PHONE", "Shop Name", "Invoice #"},
			want:    ColumnMap{Name: 3, Phone: 2, Invoice: 0, Amount: 1, Date: 0},
		},
		{
			name:    "no recognizable headers",
			headers: []string{"a", "b", "c"},
			want:    ColumnMap{Name: 0, Phone: 1, Invoice: 2, Amount: 3, Date: NotFound},
		},
		{
			name:    "first match wins",
			headers: []string{"Mobile", "Phone 2", "Retailer", "Name"},
			want:    ColumnMap{Name: 2, Phone: 0, Invoice: 2, Amount: 3, Date: NotFound},
		},
		{
			name:    "empty header row",
			headers: nil,
			want:    DefaultColumns(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferColumns(tt.headers, keywords))
		})
	}
}

func TestInferColumns_SharedKeyword(t *testing.T) {
	keywords := DefaultHeaderKeywords()
	keywords.Amount = append(keywords.Amount, "bill")

	cols := InferColumns([]string{"Name", "Phone", "Bill"}, keywords)

	assert.Equal(t, 2, cols.Invoice)
	assert.Equal(t, 2, cols.Amount)
}

func TestInferColumns_CustomKeywords(t *testing.T) {
	keywords := DefaultHeaderKeywords()
	keywords.Phone = []string{"  Contact  "}

	cols := InferColumns([]string{"Party", "Contact No"}, keywords)

	assert.Equal(t, 1, cols.Phone)
}
