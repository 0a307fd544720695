package extraction

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/dues-tracker/internal/domain/import/parser"
)

// TextReader turns PDF bytes into plain text
type TextReader func(data []byte) (string, error)

// SheetReader turns spreadsheet bytes into a cell grid whose first row is the header
type SheetReader func(data []byte) ([][]parser.Cell, error)

// Extractor runs the PDF and spreadsheet pipelines. It holds no per-call state and
// is safe for concurrent use once built.
type Extractor struct {
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
	readText  TextReader
	readSheet SheetReader
}

// NewExtractor creates an extractor with the given configuration.
// Zero fields of cfg take their default values.
func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		cfg:       cfg.withDefaults(),
		logger:    logger,
		now:       time.Now,
		readText:  parser.ExtractPDFText,
		readSheet: parser.ReadSheet,
	}
}

// WithClock overrides the source of "today"
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// WithTextReader overrides the PDF text reader
func (e *Extractor) WithTextReader(r TextReader) *Extractor {
	e.readText = r
	return e
}

// WithSheetReader overrides the spreadsheet reader
func (e *Extractor) WithSheetReader(r SheetReader) *Extractor {
	e.readSheet = r
	return e
}

// Config returns the effective configuration
func (e *Extractor) Config() Config {
	return e.cfg
}

func (e *Extractor) today() time.Time {
	t := e.now()
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Extract runs the pipeline selected by kind. It never fails: unreadable documents
// yield a fallback result and unknown kinds an empty one.
func (e *Extractor) Extract(kind DocumentKind, data []byte) Result {
	switch kind {
	case DocumentPDF:
		return e.ExtractPDF(data)
	case DocumentSpreadsheet:
		return e.ExtractSpreadsheet(data)
	default:
		e.logger.Warn("unsupported document kind", "kind", kind, "error", ErrUnsupportedDocument)
		return emptyResult()
	}
}

// ExtractPDF extracts candidates from a PDF. A document without any retailer yields
// the PDF-empty fallback and an unreadable one the PDF-error fallback.
func (e *Extractor) ExtractPDF(data []byte) Result {
	today := e.today()

	res, err := e.extractPDF(data, today)
	switch {
	case err == nil:
		e.logger.Debug("PDF extracted", "retailers", len(res.Retailers), "invoices", len(res.Invoices))
		return res
	case errors.Is(err, ErrNoExtractableData):
		e.logger.Warn("no retailers found in PDF, returning sample data", "fallback", FallbackPDFEmpty)
		return PDFEmptyFallback(today)
	default:
		e.logger.Warn("PDF extraction failed, returning sample data", "error", err, "fallback", FallbackPDFError)
		return PDFErrorFallback(today)
	}
}

// ExtractSpreadsheet extracts candidates from an XLSX or CSV document. Only unreadable
// documents yield a fallback; a sheet without usable rows gives an empty result.
func (e *Extractor) ExtractSpreadsheet(data []byte) Result {
	today := e.today()

	res, err := e.extractSpreadsheet(data, today)
	if err != nil {
		e.logger.Warn("spreadsheet extraction failed, returning sample data", "error", err, "fallback", FallbackExcelError)
		return ExcelErrorFallback(today)
	}

	e.logger.Debug("spreadsheet extracted", "retailers", len(res.Retailers), "invoices", len(res.Invoices))
	return res
}

// ParsePDFText runs the line heuristics over already extracted text.
// It returns ErrNoExtractableData when no retailer is found.
func (e *Extractor) ParsePDFText(text string) (Result, error) {
	return e.parseText(text, e.today())
}

func (e *Extractor) extractPDF(data []byte, today time.Time) (res Result, err error) {
	defer recoverMalformed(&err)

	text, err := e.readText(data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return e.parseText(text, today)
}

func (e *Extractor) parseText(text string, today time.Time) (Result, error) {
	retailers, invoices := ParseLines(parser.SplitLines(text), LineOptions{
		Today:      today,
		CreditDays: e.cfg.DefaultCreditDays,
		Threshold:  e.cfg.AmountThreshold,
		Bounds:     NameBounds{Min: e.cfg.NameMinLen, Max: e.cfg.NameMaxLen},
	})
	if len(retailers) == 0 {
		return Result{}, ErrNoExtractableData
	}
	return newResult(retailers, invoices), nil
}

func (e *Extractor) extractSpreadsheet(data []byte, today time.Time) (res Result, err error) {
	defer recoverMalformed(&err)

	grid, err := e.readSheet(data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if len(grid) == 0 {
		return emptyResult(), nil
	}

	headers := make([]string, len(grid[0]))
	for i, c := range grid[0] {
		headers[i] = c.String()
	}
	cols := InferColumns(headers, e.cfg.Keywords)

	retailers, invoices := NormalizeRows(grid[1:], cols, RowOptions{
		Today:      today,
		CreditDays: e.cfg.DefaultCreditDays,
	})
	return newResult(retailers, invoices), nil
}

// recoverMalformed turns a panic raised while decoding a document into ErrMalformedDocument
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: panic: %v", ErrMalformedDocument, r)
	}
}

func newResult(retailers []RetailerCandidate, invoices []InvoiceCandidate) Result {
	res := emptyResult()
	if retailers != nil {
		res.Retailers = retailers
	}
	if invoices != nil {
		res.Invoices = invoices
	}
	return res
}

// emptyResult keeps both lists non-nil so they encode as [] rather than null
func emptyResult() Result {
	return Result{
		Retailers: []RetailerCandidate{},
		Invoices:  []InvoiceCandidate{},
	}
}
