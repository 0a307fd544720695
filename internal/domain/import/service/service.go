// Package service provides the import orchestration logic: detect the document kind,
// extract retailer and invoice candidates, persist them and record the import job.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/dues-tracker/internal/domain/extraction"
	"github.com/FACorreiaa/dues-tracker/internal/domain/import/parser"
	"github.com/FACorreiaa/dues-tracker/internal/domain/import/repository"
	"github.com/FACorreiaa/dues-tracker/internal/domain/import/sniffer"
	"github.com/FACorreiaa/dues-tracker/internal/domain/reminder"
	"github.com/FACorreiaa/dues-tracker/pkg/storage"
)

const tracerName = "github.com/FACorreiaa/dues-tracker/internal/domain/import/service"

var ErrStorageNotConfigured = errors.New("file storage is not configured")

// ImportResult contains the result of an import operation
type ImportResult struct {
	JobID  uuid.UUID
	FileID uuid.UUID
	Kind   sniffer.Kind
	Result extraction.Result
	Saved  repository.SaveStats
	Dues   []reminder.RetailerDues
}

// ImportService orchestrates document extraction and persistence
type ImportService struct {
	repo    repository.ImportRepository
	store   storage.Storage // Optional: uploads are not kept when nil
	cfg     extraction.Config
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time
	logger  *slog.Logger
}

// NewImportService creates a new import service. cfg is the base extraction configuration;
// the credit period is replaced per user from their settings.
func NewImportService(repo repository.ImportRepository, cfg extraction.Config, logger *slog.Logger) *ImportService {
	return &ImportService{
		repo:   repo,
		cfg:    cfg,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
		logger: logger,
	}
}

// WithStorage keeps uploaded documents and enables Enqueue and ProcessPending
func (s *ImportService) WithStorage(store storage.Storage) *ImportService {
	s.store = store
	return s
}

// WithMetrics records Prometheus metrics for every import
func (s *ImportService) WithMetrics(m *Metrics) *ImportService {
	s.metrics = m
	return s
}

// WithTracer overrides the global OpenTelemetry tracer
func (s *ImportService) WithTracer(t trace.Tracer) *ImportService {
	s.tracer = t
	return s
}

// WithClock overrides the source of "today" used for due dates
func (s *ImportService) WithClock(now func() time.Time) *ImportService {
	s.now = now
	return s
}

// ImportDocument extracts and persists one document synchronously. Documents that are
// neither PDF nor spreadsheet return extraction.ErrUnsupportedDocument.
func (s *ImportService) ImportDocument(ctx context.Context, userID uuid.UUID, filename, contentType string, data []byte) (*ImportResult, error) {
	kind := sniffer.DetectKind(data, filename, contentType)
	if _, ok := documentKind(kind); !ok {
		s.metrics.observe(string(kind), outcomeUnsupported, time.Now())
		return nil, fmt.Errorf("%w: %s", extraction.ErrUnsupportedDocument, filename)
	}

	file, err := s.recordUpload(ctx, userID, filename, contentType, data)
	if err != nil {
		return nil, err
	}

	job := &repository.ImportJob{UserID: userID, FileID: file.ID, Status: repository.JobRunning}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}

	return s.runJob(ctx, job, kind, data)
}

// Enqueue stores the upload and creates a pending job for ProcessPending
func (s *ImportService) Enqueue(ctx context.Context, userID uuid.UUID, filename, contentType string, r io.Reader) (*repository.ImportJob, error) {
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}

	info, err := s.store.Upload(ctx, userID, filename, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	file := &repository.UserFile{
		ID:          info.ID,
		UserID:      userID,
		FileName:    filename,
		ContentType: contentType,
		SizeBytes:   info.Size,
		StorageKey:  info.Key,
	}
	if err := s.repo.CreateUserFile(ctx, file); err != nil {
		s.discard(ctx, info.Key)
		return nil, fmt.Errorf("create user file: %w", err)
	}

	job := &repository.ImportJob{UserID: userID, FileID: file.ID, Status: repository.JobPending}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		s.discard(ctx, info.Key)
		return nil, fmt.Errorf("create import job: %w", err)
	}

	s.logger.Info("import job queued",
		slog.String("job_id", job.ID.String()),
		slog.String("file", filename),
		slog.Int64("bytes", info.Size),
	)
	return job, nil
}

// ProcessPending runs up to limit pending jobs and returns how many completed. A failing
// job is marked failed and does not stop the batch.
func (s *ImportService) ProcessPending(ctx context.Context, limit int) (int, error) {
	if s.store == nil {
		return 0, ErrStorageNotConfigured
	}

	jobs, err := s.repo.ListPendingJobs(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending jobs: %w", err)
	}

	completed := 0
	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return completed, err
		}

		job := &jobs[i]
		if err := s.repo.MarkJobRunning(ctx, job.ID); err != nil {
			if errors.Is(err, repository.ErrJobNotPending) {
				continue
			}
			s.logger.Warn("failed to claim import job", "job_id", job.ID, "error", err)
			continue
		}
		job.Status = repository.JobRunning

		data, err := s.load(ctx, job.StorageKey)
		if err != nil {
			s.fail(ctx, job.ID, err)
			continue
		}

		kind := sniffer.DetectKind(data, job.FileName, job.ContentType)
		if _, ok := documentKind(kind); !ok {
			s.metrics.observe(string(kind), outcomeUnsupported, time.Now())
			s.fail(ctx, job.ID, fmt.Errorf("%w: %s", extraction.ErrUnsupportedDocument, job.FileName))
			continue
		}

		if _, err := s.runJob(ctx, job, kind, data); err != nil {
			continue
		}
		completed++
	}

	if len(jobs) > 0 {
		s.logger.Info("processed pending imports",
			slog.Int("jobs", len(jobs)),
			slog.Int("completed", completed),
		)
	}
	return completed, nil
}

// GetJob returns an import job owned by userID
func (s *ImportService) GetJob(ctx context.Context, userID, jobID uuid.UUID) (*repository.ImportJob, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, repository.ErrJobNotFound
	}
	return job, nil
}

// runJob extracts, validates and persists the document of a running job
func (s *ImportService) runJob(ctx context.Context, job *repository.ImportJob, kind sniffer.Kind, data []byte) (*ImportResult, error) {
	started := time.Now()
	docKind, _ := documentKind(kind)

	ctx, span := s.tracer.Start(ctx, "import.document", trace.WithAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("document.kind", string(kind)),
		attribute.Int("document.bytes", len(data)),
	))
	defer span.End()

	if kind.IsSpreadsheet() {
		if layout, ok := sheetLayout(kind, data); ok {
			span.SetAttributes(
				attribute.String("sheet.fingerprint", layout.fingerprint),
				attribute.Int("sheet.columns", layout.columns),
			)
			s.logger.Debug("sheet layout detected",
				slog.String("job_id", job.ID.String()),
				slog.String("fingerprint", layout.fingerprint),
				slog.Any("headers", layout.headers),
			)
		}
	}

	creditDays, err := s.repo.GetCreditDays(ctx, job.UserID)
	if err != nil {
		s.logger.Warn("failed to load credit days, using default", "user_id", job.UserID, "error", err)
		creditDays = repository.DefaultCreditDays
	}

	cfg := s.cfg
	cfg.DefaultCreditDays = creditDays
	extractor := extraction.NewExtractor(cfg, s.logger).WithClock(s.now)

	res := extractor.Extract(docKind, data)
	if err := res.Validate(); err != nil {
		return nil, s.abort(ctx, span, job, kind, started, fmt.Errorf("invalid extraction result: %w", err))
	}

	saved, err := s.repo.SaveCandidates(ctx, job.UserID, job.ID, res)
	if err != nil {
		return nil, s.abort(ctx, span, job, kind, started, fmt.Errorf("save candidates: %w", err))
	}

	summary := repository.JobSummary{
		DocumentKind:   string(kind),
		RetailersSaved: saved.Retailers,
		InvoicesSaved:  saved.Invoices,
		UsedFallback:   res.UsedFallback,
		Fallback:       string(res.Fallback),
	}
	if err := s.repo.CompleteJob(ctx, job.ID, summary); err != nil {
		return nil, s.abort(ctx, span, job, kind, started, fmt.Errorf("complete job: %w", err))
	}
	job.Status = repository.JobCompleted

	outcome := outcomeExtracted
	if res.UsedFallback {
		outcome = outcomeFallback
	}
	s.metrics.observe(string(kind), outcome, started)
	s.metrics.saved(saved.Retailers, saved.Invoices)

	span.SetAttributes(
		attribute.Int("retailers.saved", saved.Retailers),
		attribute.Int("invoices.saved", saved.Invoices),
		attribute.Bool("fallback.used", res.UsedFallback),
	)
	s.logger.Info("document imported",
		slog.String("job_id", job.ID.String()),
		slog.String("kind", string(kind)),
		slog.Int("retailers", saved.Retailers),
		slog.Int("invoices", saved.Invoices),
		slog.Bool("used_fallback", res.UsedFallback),
	)

	return &ImportResult{
		JobID:  job.ID,
		FileID: job.FileID,
		Kind:   kind,
		Result: res,
		Saved:  saved,
		Dues:   reminder.Summarize(res, s.now()),
	}, nil
}

// abort marks the job failed and records the error on the span and metrics
func (s *ImportService) abort(ctx context.Context, span trace.Span, job *repository.ImportJob, kind sniffer.Kind, started time.Time, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.observe(string(kind), outcomeFailed, started)
	s.fail(ctx, job.ID, err)
	job.Status = repository.JobFailed
	return err
}

func (s *ImportService) fail(ctx context.Context, jobID uuid.UUID, cause error) {
	s.logger.Warn("import job failed", "job_id", jobID, "error", cause)
	if err := s.repo.FailJob(ctx, jobID, cause.Error()); err != nil {
		s.logger.Error("failed to mark import job failed", "job_id", jobID, "error", err)
	}
}

// recordUpload keeps the bytes in storage when configured and records the user file
func (s *ImportService) recordUpload(ctx context.Context, userID uuid.UUID, filename, contentType string, data []byte) (*repository.UserFile, error) {
	file := &repository.UserFile{
		UserID:      userID,
		FileName:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}

	if s.store != nil {
		info, err := s.store.Upload(ctx, userID, filename, contentType, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("store upload: %w", err)
		}
		file.ID = info.ID
		file.StorageKey = info.Key
	}

	if err := s.repo.CreateUserFile(ctx, file); err != nil {
		if file.StorageKey != "" {
			s.discard(ctx, file.StorageKey)
		}
		return nil, fmt.Errorf("create user file: %w", err)
	}
	return file, nil
}

func (s *ImportService) load(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored file: %w", err)
	}
	return data, nil
}

func (s *ImportService) discard(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to remove orphaned upload", "key", key, "error", err)
	}
}

// documentKind maps a sniffed format onto the extraction pipeline that reads it
func documentKind(k sniffer.Kind) (extraction.DocumentKind, bool) {
	switch {
	case k == sniffer.KindPDF:
		return extraction.DocumentPDF, true
	case k.IsSpreadsheet():
		return extraction.DocumentSpreadsheet, true
	default:
		return "", false
	}
}

type layout struct {
	headers     []string
	columns     int
	fingerprint string
}

// sheetLayout describes the header row of a spreadsheet so recurring sheet formats can be
// recognized across imports. ok is false when no header row can be found.
func sheetLayout(kind sniffer.Kind, data []byte) (layout, bool) {
	var headers []string
	switch kind {
	case sniffer.KindCSV:
		cfg, err := sniffer.DetectConfig(data)
		if err != nil {
			return layout{}, false
		}
		headers = cfg.Headers
	case sniffer.KindXLSX:
		info, err := parser.DetectExcelFormat(data)
		if err != nil || len(info.Headers) == 0 {
			return layout{}, false
		}
		headers = info.Headers
	default:
		return layout{}, false
	}

	return layout{
		headers:     headers,
		columns:     len(headers),
		fingerprint: sniffer.Fingerprint(headers),
	}, true
}
