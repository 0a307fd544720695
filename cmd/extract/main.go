// Command extract runs the document extractors against a local file and prints the
// candidates and per-retailer dues as JSON. Nothing is persisted.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/FACorreiaa/dues-tracker/internal/domain/extraction"
	"github.com/FACorreiaa/dues-tracker/internal/domain/import/sniffer"
	"github.com/FACorreiaa/dues-tracker/internal/domain/reminder"
	"github.com/FACorreiaa/dues-tracker/pkg/config"
)

type output struct {
	File   string                  `json:"file"`
	Kind   sniffer.Kind            `json:"kind"`
	Result extraction.Result       `json:"result"`
	Dues   []reminder.RetailerDues `json:"dues"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	creditDays := fs.Int("credit-days", 0, "days from invoice date to due date (default from config)")
	asOf := fs.String("as-of", "", "reference day as YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: extract [-credit-days N] [-as-of YYYY-MM-DD] <file>")
		return 2
	}
	path := fs.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger := cfg.Log.NewLogger(stderr)

	extractionCfg, err := cfg.Extraction.Build()
	if err != nil {
		fmt.Fprintf(stderr, "invalid extraction config: %v\n", err)
		return 1
	}
	if *creditDays > 0 {
		extractionCfg.DefaultCreditDays = *creditDays
	}

	now := time.Now
	if *asOf != "" {
		day, err := time.Parse(extraction.ISODate, *asOf)
		if err != nil {
			fmt.Fprintf(stderr, "invalid -as-of %q: %v\n", *asOf, err)
			return 2
		}
		now = func() time.Time { return day }
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "failed to read %s: %v\n", path, err)
		return 1
	}

	kind := sniffer.DetectKind(data, filepath.Base(path), "")
	var docKind extraction.DocumentKind
	switch {
	case kind == sniffer.KindPDF:
		docKind = extraction.DocumentPDF
	case kind.IsSpreadsheet():
		docKind = extraction.DocumentSpreadsheet
	default:
		fmt.Fprintf(stderr, "%s: %v\n", path, extraction.ErrUnsupportedDocument)
		return 1
	}

	res := extraction.NewExtractor(extractionCfg, logger).WithClock(now).Extract(docKind, data)
	if res.UsedFallback {
		logger.Warn("extraction fell back to placeholder data", slog.String("fallback", string(res.Fallback)))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{
		File:   filepath.Base(path),
		Kind:   kind,
		Result: res,
		Dues:   reminder.Summarize(res, now()),
	}); err != nil {
		fmt.Fprintf(stderr, "failed to write output: %v\n", err)
		return 1
	}
	return 0
}
