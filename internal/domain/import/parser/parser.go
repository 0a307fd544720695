// Package parser turns uploaded documents into raw material for extraction:
// plain text lines for PDFs and a grid of typed cells for spreadsheets.
// It uses excelize for XLSX workbooks, gocsv for CSV files and ledongthuc/pdf for PDF text.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/dues-tracker/internal/domain/import/sniffer"
)

// CellKind identifies the type of value a spreadsheet cell holds
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellBool
	CellDate
)

// Cell is a single typed spreadsheet value
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Bool   bool
	Time   time.Time
}

// TextCell builds a text cell, or an empty cell for ""
func TextCell(s string) Cell {
	if s == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell builds a numeric cell
func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

// DateCell builds a date cell
func DateCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Time: t}
}

// IsEmpty reports whether the cell holds no value at all
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// Truthy reports whether the value counts as present: empty text, zero and false do not.
func (c Cell) Truthy() bool {
	switch c.Kind {
	case CellText:
		return c.Text != ""
	case CellNumber:
		return c.Number != 0
	case CellBool:
		return c.Bool
	case CellDate:
		return true
	default:
		return false
	}
}

// String renders the cell value the way it reads in the sheet.
// Whole numbers are printed without a fractional part.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellBool:
		if c.Bool {
			return "TRUE"
		}
		return "FALSE"
	case CellDate:
		return c.Time.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// Float returns the numeric value of the cell. Text is parsed as a plain
// decimal number; NaN and infinities are rejected.
func (c Cell) Float() (float64, bool) {
	var v float64
	switch c.Kind {
	case CellNumber:
		v = c.Number
	case CellBool:
		if c.Bool {
			v = 1
		}
	case CellText:
		f, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// CellAt returns the cell at idx, and false when the row is too short
func CellAt(row []Cell, idx int) (Cell, bool) {
	if idx < 0 || idx >= len(row) {
		return Cell{}, false
	}
	return row[idx], true
}

var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrNoSheet       = errors.New("no sheet found in workbook")
)

// ReadSheet reads a spreadsheet of either supported encoding into a cell grid.
// XLSX workbooks are recognized by their ZIP signature; anything else is read as CSV.
func ReadSheet(data []byte) ([][]Cell, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	if sniffer.IsZip(data) {
		return ReadWorkbook(data)
	}
	return ReadCSV(data)
}

// ReadCSV reads a CSV/TSV file into a grid of text cells.
// The first record stays the header row; the delimiter is detected from it.
func ReadCSV(data []byte) ([][]Cell, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	delimiter := sniffer.DetectDelimiter(data)

	reader := gocsv.LazyCSVReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\uFEFF"))))
	if r, ok := reader.(*csv.Reader); ok {
		r.Comma = delimiter
		r.FieldsPerRecord = -1 // Variable field count
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	grid := make([][]Cell, 0, len(records))
	for _, record := range records {
		row := make([]Cell, len(record))
		for i, v := range record {
			row[i] = TextCell(strings.TrimRight(v, "\r"))
		}
		grid = append(grid, row)
	}

	return grid, nil
}

// dateLayouts are the layouts ParseDate accepts, most specific first
var dateLayouts = []string{
	"2006-01-02",           // ISO 8601
	"02/01/2006",           // DD/MM/YYYY
	"01/02/2006",           // MM/DD/YYYY
	"02-01-2006",           // DD-MM-YYYY
	"2006/01/02",           // YYYY/MM/DD
	"02.01.2006",           // DD.MM.YYYY
	"02 Jan 2006",          // 15 Jan 2024
	"Jan 2, 2006",          // Jan 15, 2024
	"2006-01-02T15:04:05Z", // ISO 8601 with time
	"2006-01-02 15:04:05",  // ISO with space
}

// ParseDate parses a date string using flexible format detection.
// Day-first layouts win over month-first ones for ambiguous values.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized format: %s", s)
}
