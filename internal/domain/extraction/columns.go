package extraction

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// NotFound marks a semantic column that has no header
const NotFound = -1

// ColumnMap holds the column index of each semantic field, NotFound when absent
type ColumnMap struct {
	Name    int
	Phone   int
	Invoice int
	Amount  int
	Date    int
}

// DefaultColumns is the positional layout assumed when no header matches
func DefaultColumns() ColumnMap {
	return ColumnMap{
		Name:    0,
		Phone:   1,
		Invoice: 2,
		Amount:  3,
		Date:    NotFound,
	}
}

type field int

const (
	fieldName field = iota
	fieldPhone
	fieldInvoice
	fieldAmount
	fieldDate
	fieldCount
)

func (c *ColumnMap) set(f field, idx int) {
	switch f {
	case fieldName:
		c.Name = idx
	case fieldPhone:
		c.Phone = idx
	case fieldInvoice:
		c.Invoice = idx
	case fieldAmount:
		c.Amount = idx
	case fieldDate:
		c.Date = idx
	}
}

// InferColumns maps each semantic field to the first header, scanning left to right,
// that contains one of its keywords (case-insensitive). Fields are resolved
// independently, so one header may serve two fields.
func InferColumns(headers []string, keywords HeaderKeywords) ColumnMap {
	cols := DefaultColumns()

	sets := [fieldCount][]string{
		fieldName:    keywords.Name,
		fieldPhone:   keywords.Phone,
		fieldInvoice: keywords.Invoice,
		fieldAmount:  keywords.Amount,
		fieldDate:    keywords.Date,
	}

	// One dictionary entry per distinct keyword; owners lists the fields it belongs to
	var (
		patterns [][]byte
		owners   [][]field
	)
	index := make(map[string]int)
	for f, words := range sets {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			idx, ok := index[w]
			if !ok {
				idx = len(patterns)
				index[w] = idx
				patterns = append(patterns, []byte(w))
				owners = append(owners, nil)
			}
			owners[idx] = append(owners[idx], field(f))
		}
	}
	if len(patterns) == 0 {
		return cols
	}

	// The matcher keeps per-search state, so it lives only for this call
	matcher := ahocorasick.NewMatcher(patterns)

	var found [fieldCount]bool
	for col, header := range headers {
		hits := matcher.Match([]byte(strings.ToLower(header)))
		for _, hit := range hits {
			if hit < 0 || hit >= len(owners) {
				continue
			}
			for _, f := range owners[hit] {
				if !found[f] {
					found[f] = true
					cols.set(f, col)
				}
			}
		}
	}

	return cols
}
