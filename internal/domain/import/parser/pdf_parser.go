package parser

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText extracts the text of every page, one line per visual row and pages
// joined by newlines. The pdf reader panics on some corrupt inputs; those panics come
// back as errors.
func ExtractPDFText(content []byte) (text string, err error) {
	if len(content) == 0 {
		return "", ErrEmptyDocument
	}

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("read PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		lines, err := pageLines(page)
		if err != nil || len(lines) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(lines, "\n"))
	}

	return sb.String(), nil
}

// textRow collects the glyphs drawn on one baseline
type textRow struct {
	y      float64
	glyphs []pdf.Text
}

// pageLines rebuilds the page's visual lines from positioned glyphs. Glyphs whose
// baselines lie within rowTolerance of each other form one row; rows run top to
// bottom and glyphs left to right, ties kept in content stream order.
func pageLines(page pdf.Page) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			lines = nil
			err = fmt.Errorf("read page text: %v", r)
		}
	}()

	var rows []*textRow
	for _, g := range page.Content().Text {
		row := findRow(rows, g)
		if row == nil {
			row = &textRow{y: g.Y}
			rows = append(rows, row)
		}
		row.glyphs = append(row.glyphs, g)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	for _, row := range rows {
		if line := row.text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func findRow(rows []*textRow, g pdf.Text) *textRow {
	for _, row := range rows {
		if math.Abs(row.y-g.Y) <= rowTolerance(g.FontSize) {
			return row
		}
	}
	return nil
}

// rowTolerance is how far apart two baselines may be and still count as one row
func rowTolerance(fontSize float64) float64 {
	return math.Max(1, fontSize*0.3)
}

// text joins the row's glyphs, inserting a space where a horizontal gap separates them
func (r *textRow) text() string {
	glyphs := r.glyphs
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	var sb strings.Builder
	for i, g := range glyphs {
		if i > 0 {
			prev := glyphs[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > g.FontSize*0.2 && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(g.S, " ") {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(g.S)
	}
	return strings.TrimSpace(sb.String())
}

// SplitLines splits extracted text into lines, tolerating CRLF line endings
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}
