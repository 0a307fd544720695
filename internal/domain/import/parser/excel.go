package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// builtInDateFormats are the excelize built-in number format IDs that render dates
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// ReadWorkbook reads the active sheet of an XLSX workbook into a cell grid.
// Numeric cells carrying a date number format come back as CellDate.
func ReadWorkbook(data []byte) ([][]Cell, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := activeSheet(f)
	if sheetName == "" {
		return nil, ErrNoSheet
	}

	// Use row iterator for memory efficiency
	rows, err := f.Rows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create row iterator: %w", err)
	}
	defer rows.Close()

	wr := &workbookReader{
		f:          f,
		sheet:      sheetName,
		dateStyles: make(map[int]bool),
		date1904:   uses1904(f),
	}

	grid := make([][]Cell, 0, 64)
	rowNum := 0
	for rows.Next() {
		rowNum++

		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rowNum, err)
		}

		row := make([]Cell, len(cols))
		for i, raw := range cols {
			axis, err := excelize.CoordinatesToCellName(i+1, rowNum)
			if err != nil {
				return nil, err
			}
			row[i] = wr.cell(axis, raw)
		}
		grid = append(grid, row)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return grid, nil
}

// activeSheet returns the sheet the workbook opens on, or the first sheet
func activeSheet(f *excelize.File) string {
	if name := f.GetSheetName(f.GetActiveSheetIndex()); name != "" {
		return name
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	return sheets[0]
}

func uses1904(f *excelize.File) bool {
	props, err := f.GetWorkbookProps()
	if err != nil || props.Date1904 == nil {
		return false
	}
	return *props.Date1904
}

type workbookReader struct {
	f          *excelize.File
	sheet      string
	dateStyles map[int]bool
	date1904   bool
}

// cell converts a raw cell value into a typed Cell
func (r *workbookReader) cell(axis, raw string) Cell {
	if raw == "" {
		return Cell{Kind: CellEmpty}
	}

	typ, err := r.f.GetCellType(r.sheet, axis)
	if err != nil {
		return TextCell(raw)
	}

	switch typ {
	case excelize.CellTypeBool:
		return Cell{Kind: CellBool, Bool: raw == "1" || strings.EqualFold(raw, "true")}
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return DateCell(t)
		}
		if t, err := ParseDate(raw); err == nil {
			return DateCell(t)
		}
		return TextCell(raw)
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeError:
		return TextCell(raw)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return TextCell(raw)
	}

	if r.isDateStyled(axis) {
		if t, err := excelize.ExcelDateToTime(v, r.date1904); err == nil {
			return DateCell(t)
		}
	}

	return NumberCell(v)
}

// isDateStyled reports whether the cell's number format renders a date
func (r *workbookReader) isDateStyled(axis string) bool {
	styleID, err := r.f.GetCellStyle(r.sheet, axis)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := r.dateStyles[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := r.f.GetStyle(styleID); err == nil && style != nil {
		if builtInDateFormats[style.NumFmt] {
			isDate = true
		} else if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	r.dateStyles[styleID] = isDate
	return isDate
}

// isDateFormatCode checks a custom number format code for day/month/year tokens,
// ignoring quoted literals and bracketed sections such as colors or locales.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range code {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	stripped := strings.ToLower(b.String())
	return strings.ContainsAny(stripped, "dy") || (strings.Contains(stripped, "m") && !strings.Contains(stripped, "h"))
}

// DetectExcelFormat analyzes an Excel file and returns detected configuration
func DetectExcelFormat(data []byte) (*ExcelFormatInfo, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	info := &ExcelFormatInfo{
		Sheets:      f.GetSheetList(),
		ActiveSheet: activeSheet(f),
	}

	if info.ActiveSheet == "" {
		return info, nil
	}

	rows, err := f.GetRows(info.ActiveSheet)
	if err != nil {
		return info, nil
	}

	if len(rows) > 0 {
		info.Headers = rows[0]
		info.RowCount = len(rows) - 1 // Exclude header
	}

	return info, nil
}

// ExcelFormatInfo contains detected Excel file format information
type ExcelFormatInfo struct {
	Sheets      []string
	ActiveSheet string
	Headers     []string
	RowCount    int
}
