// Package sniffer provides automatic detection of uploaded document formats.
// It identifies the document kind (PDF, XLSX, CSV), CSV delimiters and header rows,
// and generates header fingerprints so repeated uploads of one layout can be recognized.
package sniffer

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the detected document format
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindPDF     Kind = "pdf"
	KindXLSX    Kind = "xlsx"
	KindCSV     Kind = "csv"
)

// IsSpreadsheet reports whether the kind is read by the tabular pipeline
func (k Kind) IsSpreadsheet() bool {
	return k == KindXLSX || k == KindCSV
}

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// Common billing sheet header keywords
var headerKeywords = []string{
	"name", "retailer", "shop", "party",
	"phone", "mobile", "contact",
	"invoice", "bill",
	"amount", "total", "balance",
	"date", "due",
}

// FileConfig holds the detected configuration for a CSV/TSV file
type FileConfig struct {
	Delimiter   rune       // The field delimiter (';', ',', '\t')
	SkipLines   int        // Number of metadata lines before headers
	Headers     []string   // Detected header names
	Fingerprint string     // SHA256 hash of normalized headers
	SampleRows  [][]string // First few data rows for preview
}

// DetectOptions allows callers to override header row or delimiter detection.
type DetectOptions struct {
	// HeaderRowIndex is a 0-based index for the header row. Set to -1 to auto-detect.
	HeaderRowIndex int
	// Delimiter overrides the detected delimiter when non-zero.
	Delimiter rune
}

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrNoHeadersFound   = errors.New("could not find data headers")
	ErrInvalidDelimiter = errors.New("could not detect valid delimiter")
)

// IsPDF reports whether data starts with the PDF signature
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], " \t\r\n"), pdfMagic)
}

// IsZip reports whether data starts with a ZIP local file header (XLSX container)
func IsZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// DetectKind identifies the document format from its content first,
// then from the declared content type and file extension.
func DetectKind(data []byte, filename, contentType string) Kind {
	if len(data) == 0 {
		return KindUnknown
	}

	switch {
	case IsPDF(data):
		return KindPDF
	case IsZip(data):
		return KindXLSX
	}

	ct := strings.ToLower(contentType)
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case strings.Contains(ct, "pdf") || ext == ".pdf":
		// Declared as PDF but without the signature; let the PDF pipeline decide.
		return KindPDF
	case strings.Contains(ct, "spreadsheetml") || strings.Contains(ct, "excel") || ext == ".xlsx" || ext == ".xlsm":
		return KindXLSX
	case strings.Contains(ct, "csv") || ext == ".csv" || ext == ".tsv":
		return KindCSV
	}

	if looksLikeCSV(data) {
		return KindCSV
	}

	return KindUnknown
}

// looksLikeCSV checks that the first line is valid text with at least one delimiter
func looksLikeCSV(data []byte) bool {
	sample := data[:min(len(data), 4096)]
	if !utf8.Valid(sample) || bytes.IndexByte(sample, 0) >= 0 {
		return false
	}
	first, _, _ := strings.Cut(string(sample), "\n")
	_, count := detectDelimiter(cleanLine(first, true))
	return count > 0
}

// DetectConfig analyzes a CSV/TSV file and returns its configuration
func DetectConfig(data []byte) (*FileConfig, error) {
	return DetectConfigWithOptions(data, nil)
}

// DetectConfigWithOptions analyzes a CSV/TSV file with optional overrides.
func DetectConfigWithOptions(data []byte, opts *DetectOptions) (*FileConfig, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")

	var (
		delimiter rune
		skipLines int
		err       error
	)
	if opts != nil && opts.HeaderRowIndex >= 0 {
		if opts.HeaderRowIndex >= len(lines) {
			return nil, ErrNoHeadersFound
		}
		skipLines = opts.HeaderRowIndex
		if opts.Delimiter != 0 {
			delimiter = opts.Delimiter
		} else {
			line := cleanLine(lines[skipLines], skipLines == 0)
			delimiter, _ = detectDelimiter(line)
			if delimiter == 0 {
				return nil, ErrInvalidDelimiter
			}
		}
	} else {
		// Try to find the header row
		delimiter, skipLines, err = findHeaderRow(lines)
		if err != nil {
			return nil, err
		}
	}

	// Parse headers
	headerLine := cleanLine(lines[skipLines], skipLines == 0)
	reader := csv.NewReader(strings.NewReader(headerLine))
	reader.Comma = delimiter
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}

	// Clean headers
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	return &FileConfig{
		Delimiter:   delimiter,
		SkipLines:   skipLines,
		Headers:     headers,
		Fingerprint: Fingerprint(headers),
		SampleRows:  getSampleRows(data, delimiter, skipLines+1, 5),
	}, nil
}

// findHeaderRow locates the header row and its delimiter
func findHeaderRow(lines []string) (rune, int, error) {
	// Track the best candidate among lines with no keywords (fallback)
	fallbackIndex := -1
	fallbackDelimiter := rune(0)
	fallbackCount := 0

	// Track the best candidate among lines WITH keywords (preferred)
	keywordIndex := -1
	keywordDelimiter := rune(0)
	keywordCount := 0
	keywordScore := 0

	for i, line := range lines {
		if i > 20 { // Don't search more than 20 lines
			break
		}

		line = cleanLine(line, i == 0)
		if line == "" {
			continue
		}
		lineLower := strings.ToLower(line)

		delimiter, count := detectDelimiter(line)
		if count < 1 {
			continue
		}

		keywordMatches := 0
		for _, kw := range headerKeywords {
			if strings.Contains(lineLower, kw) {
				keywordMatches++
			}
		}

		if keywordMatches > 0 {
			// Prefer lines with more columns, then more keyword hits
			score := count*10 + keywordMatches
			if keywordIndex == -1 || score > keywordScore {
				keywordScore = score
				keywordCount = count
				keywordDelimiter = delimiter
				keywordIndex = i
			}
		} else if count > fallbackCount {
			fallbackCount = count
			fallbackDelimiter = delimiter
			fallbackIndex = i
		}
	}

	if keywordIndex >= 0 && keywordCount >= 1 {
		return keywordDelimiter, keywordIndex, nil
	}

	if fallbackIndex >= 0 && fallbackCount >= 1 {
		return fallbackDelimiter, fallbackIndex, nil
	}

	return 0, 0, ErrNoHeadersFound
}

func cleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return strings.TrimSpace(line)
}

// DetectDelimiter returns the most frequent delimiter on the first line, defaulting to ','
func DetectDelimiter(data []byte) rune {
	first, _, _ := strings.Cut(string(data), "\n")
	if d, count := detectDelimiter(cleanLine(first, true)); count > 0 {
		return d
	}
	return ','
}

func detectDelimiter(line string) (rune, int) {
	delimiters := []rune{';', '\t', ',', '|'}
	bestDelimiter := rune(0)
	bestCount := 0
	for _, d := range delimiters {
		count := strings.Count(line, string(d))
		if count > bestCount {
			bestCount = count
			bestDelimiter = d
		}
	}
	return bestDelimiter, bestCount
}

// Fingerprint creates a stable hash from header names so one sheet layout
// always maps to the same value regardless of case and punctuation.
func Fingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	joined := strings.Join(normalized, "|")
	hash := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(hash[:])
}

// getSampleRows returns the first N data rows after the header
func getSampleRows(data []byte, delimiter rune, startLine, maxRows int) [][]string {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // Allow variable fields

	var rows [][]string
	lineNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		if lineNum >= startLine {
			rows = append(rows, record)
			if len(rows) >= maxRows {
				break
			}
		}
		lineNum++
	}

	return rows
}
