package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_BillingSheet(t *testing.T) {
	path := writeFile(t, "dues.csv",
		"Retailer Name,Mobile,Bill No,Total,Date\n"+
			"Sharma Stores,9876543210,INV-1001,1500,2024-03-01\n"+
			"Sharma Stores,9876543210,INV-1002,500,2024-03-05\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-credit-days", "10", "-as-of", "2024-03-12", path}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out struct {
		Kind   string `json:"kind"`
		Result struct {
			Retailers []map[string]any `json:"retailers"`
			Invoices  []map[string]any `json:"invoices"`
		} `json:"result"`
		Dues []struct {
			RetailerPhone   string `json:"retailer_phone"`
			InvoiceCount    int    `json:"invoice_count"`
			EarliestDueDate string `json:"earliest_due_date"`
			Overdue         bool   `json:"overdue"`
		} `json:"dues"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))

	assert.Equal(t, "csv", out.Kind)
	require.Len(t, out.Result.Invoices, 2)
	assert.Equal(t, "2024-03-01", out.Result.Invoices[0]["invoice_date"])
	assert.Equal(t, "2024-03-22", out.Result.Invoices[0]["due_date"])
	require.Len(t, out.Dues, 1)
	assert.Equal(t, "9876543210", out.Dues[0].RetailerPhone)
	assert.Equal(t, 2, out.Dues[0].InvoiceCount)
	assert.Equal(t, "2024-03-22", out.Dues[0].EarliestDueDate)
	assert.False(t, out.Dues[0].Overdue)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "no file", args: nil, want: 2},
		{name: "bad as-of", args: []string{"-as-of", "March", "x.csv"}, want: 2},
		{name: "missing file", args: []string{filepath.Join(t.TempDir(), "nope.csv")}, want: 1},
		{name: "unsupported", args: []string{writeFile(t, "logo.png", "\x89PNG\r\n\x1a\n\x00\x00")}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.want, run(tt.args, &stdout, &stderr))
			assert.Empty(t, stdout.String())
		})
	}
}
