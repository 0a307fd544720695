package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/dues-tracker/internal/domain/extraction"
	"github.com/FACorreiaa/dues-tracker/pkg/money"
)

// PostgresImportRepository implements ImportRepository on PostgreSQL
type PostgresImportRepository struct {
	pool DB
}

// NewPostgresImportRepository creates a new repository over a pgx pool
func NewPostgresImportRepository(pool DB) *PostgresImportRepository {
	return &PostgresImportRepository{pool: pool}
}

var _ ImportRepository = (*PostgresImportRepository)(nil)

// CreateUserFile records an uploaded document
func (r *PostgresImportRepository) CreateUserFile(ctx context.Context, file *UserFile) error {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}

	query := `
		INSERT INTO user_files (id, user_id, file_name, content_type, size_bytes, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		file.ID, file.UserID, file.FileName, file.ContentType, file.SizeBytes, file.StorageKey,
	).Scan(&file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user file: %w", err)
	}
	return nil
}

// CreateJob records a new import job. Status defaults to pending.
func (r *PostgresImportRepository) CreateJob(ctx context.Context, job *ImportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = JobPending
	}

	query := `
		INSERT INTO import_jobs (id, user_id, file_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query, job.ID, job.UserID, job.FileID, string(job.Status)).Scan(&job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}
	return nil
}

// MarkJobRunning claims a pending job. Returns ErrJobNotPending if another worker got it first.
func (r *PostgresImportRepository) MarkJobRunning(ctx context.Context, jobID uuid.UUID) error {
	query := `
		UPDATE import_jobs SET status = 'running', started_at = now()
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := r.pool.Exec(ctx, query, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotPending
	}
	return nil
}

// CompleteJob stores the job's result summary
func (r *PostgresImportRepository) CompleteJob(ctx context.Context, jobID uuid.UUID, summary JobSummary) error {
	query := `
		UPDATE import_jobs SET
			status = 'completed',
			document_kind = $2,
			retailers_saved = $3,
			invoices_saved = $4,
			used_fallback = $5,
			fallback = $6,
			completed_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		jobID, summary.DocumentKind, summary.RetailersSaved, summary.InvoicesSaved,
		summary.UsedFallback, summary.Fallback,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// FailJob marks a job failed with the given reason
func (r *PostgresImportRepository) FailJob(ctx context.Context, jobID uuid.UUID, reason string) error {
	query := `
		UPDATE import_jobs SET status = 'failed', error_message = $2, completed_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, jobID, reason)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// GetJob retrieves a job by ID
func (r *PostgresImportRepository) GetJob(ctx context.Context, jobID uuid.UUID) (*ImportJob, error) {
	query := `
		SELECT id, user_id, file_id, status, COALESCE(document_kind, ''), retailers_saved,
			invoices_saved, used_fallback, COALESCE(fallback, ''), error_message, created_at, completed_at
		FROM import_jobs
		WHERE id = $1
	`
	var job ImportJob
	var status string
	err := r.pool.QueryRow(ctx, query, jobID).Scan(
		&job.ID, &job.UserID, &job.FileID, &status, &job.DocumentKind, &job.RetailersSaved,
		&job.InvoicesSaved, &job.UsedFallback, &job.Fallback, &job.ErrorMessage, &job.CreatedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	job.Status = JobStatus(status)
	return &job, nil
}

// ListPendingJobs returns the oldest pending jobs with their file details
func (r *PostgresImportRepository) ListPendingJobs(ctx context.Context, limit int) ([]ImportJob, error) {
	query := `
		SELECT j.id, j.user_id, j.file_id, j.created_at, f.file_name, f.content_type, f.storage_key
		FROM import_jobs j
		JOIN user_files f ON f.id = j.file_id
		WHERE j.status = 'pending'
		ORDER BY j.created_at
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []ImportJob
	for rows.Next() {
		job := ImportJob{Status: JobPending}
		if err := rows.Scan(
			&job.ID, &job.UserID, &job.FileID, &job.CreatedAt,
			&job.FileName, &job.ContentType, &job.StorageKey,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// GetCreditDays returns the user's default credit period, DefaultCreditDays when unset
func (r *PostgresImportRepository) GetCreditDays(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT default_credit_days FROM settings WHERE user_id = $1`

	var days int
	err := r.pool.QueryRow(ctx, query, userID).Scan(&days)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultCreditDays, nil
		}
		return 0, fmt.Errorf("failed to get credit days: %w", err)
	}
	if days <= 0 {
		return DefaultCreditDays, nil
	}
	return days, nil
}

// SaveCandidates writes retailers and invoices in one transaction. Retailers are upserted on
// (user_id, retailer_phone) and keep the first stored name; invoices link by phone.
func (r *PostgresImportRepository) SaveCandidates(ctx context.Context, userID, jobID uuid.UUID, res extraction.Result) (SaveStats, error) {
	var stats SaveStats

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	upsertRetailer := `
		INSERT INTO retailers (id, user_id, retailer_name, retailer_phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, retailer_phone) DO UPDATE SET updated_at = now()
		RETURNING id
	`
	retailerIDs := make(map[string]uuid.UUID, len(res.Retailers))
	for _, rc := range res.Retailers {
		if _, done := retailerIDs[rc.RetailerPhone]; done {
			continue
		}
		var id uuid.UUID
		if err := tx.QueryRow(ctx, upsertRetailer, uuid.New(), userID, rc.RetailerName, rc.RetailerPhone).Scan(&id); err != nil {
			return SaveStats{}, fmt.Errorf("failed to upsert retailer %s: %w", rc.RetailerPhone, err)
		}
		retailerIDs[rc.RetailerPhone] = id
		stats.Retailers++
	}

	insertInvoice := `
		INSERT INTO invoices (
			id, user_id, retailer_id, import_job_id, invoice_number,
			amount_minor, currency_code, invoice_date, invoice_date_raw, due_date, payment_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	for _, inv := range res.Invoices {
		retailerID, ok := retailerIDs[inv.RetailerPhone]
		if !ok {
			return SaveStats{}, fmt.Errorf("%w: %s", extraction.ErrOrphanInvoice, inv.RetailerPhone)
		}
		due, err := time.Parse(extraction.ISODate, inv.DueDate)
		if err != nil {
			return SaveStats{}, fmt.Errorf("invalid due date %q: %w", inv.DueDate, err)
		}
		if !extraction.AmountInRange(inv.Amount) {
			return SaveStats{}, fmt.Errorf("invoice %s: %w: %s", inv.InvoiceNumber, extraction.ErrAmountOutOfRange, inv.Amount)
		}
		amount := money.NewFromDecimal(inv.Amount, money.INR)

		_, err = tx.Exec(ctx, insertInvoice,
			uuid.New(), userID, retailerID, jobID, inv.InvoiceNumber,
			amount.Amount(), amount.Currency(), isoDate(inv.InvoiceDate), inv.InvoiceDate, due,
			string(inv.PaymentStatus),
		)
		if err != nil {
			return SaveStats{}, fmt.Errorf("failed to insert invoice %s: %w", inv.InvoiceNumber, err)
		}
		stats.Invoices++
	}

	if err := tx.Commit(ctx); err != nil {
		return SaveStats{}, fmt.Errorf("failed to commit candidates: %w", err)
	}
	return stats, nil
}

// isoDate parses s as YYYY-MM-DD; spreadsheet dates that could not be normalized stay NULL
// and survive in invoice_date_raw.
func isoDate(s string) *time.Time {
	t, err := time.Parse(extraction.ISODate, s)
	if err != nil {
		return nil
	}
	return &t
}
