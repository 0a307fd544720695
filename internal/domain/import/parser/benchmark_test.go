package parser

import (
	"bytes"
	"fmt"
	"testing"
)

// generateCSVData creates a billing sheet with the given number of data rows
func generateCSVData(rows int) []byte {
	var buf bytes.Buffer
	buf.WriteString("Retailer Name,Mobile,Bill No,Total,Date\n")

	for i := 0; i < rows; i++ {
		fmt.Fprintf(&buf, "Retailer %d,9%09d,B-%d,%d.%02d,2024-01-%02d\n",
			i, i, i, 1000+i*7, i%100, i%28+1)
	}
	return buf.Bytes()
}

func generateWorkbookRows(rows int) [][]any {
	out := make([][]any, 0, rows+1)
	out = append(out, []any{"Retailer Name", "Mobile", "Bill No", "Total", "Date"})
	for i := 0; i < rows; i++ {
		out = append(out, []any{fmt.Sprintf("Retailer %d", i), fmt.Sprintf("9%09d", i), fmt.Sprintf("B-%d", i), float64(1000 + i*7), "2024-01-15"})
	}
	return out
}

func BenchmarkReadCSV(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		data := generateCSVData(size)
		b.Run(fmt.Sprintf("rows=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := ReadCSV(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkReadWorkbook(b *testing.B) {
	for _, size := range []int{100, 1000} {
		data := buildWorkbook(b, generateWorkbookRows(size))
		b.Run(fmt.Sprintf("rows=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := ReadWorkbook(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkParseDate(b *testing.B) {
	inputs := []string{"2024-01-15", "15/01/2024", "Jan 15, 2024", "garbage"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = ParseDate(inputs[i%len(inputs)])
	}
}
