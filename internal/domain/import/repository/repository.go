// Package repository persists uploaded documents, import jobs and the retailer and
// invoice candidates extracted from them.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/dues-tracker/internal/domain/extraction"
)

// DefaultCreditDays is used for users without a settings row
const DefaultCreditDays = 30

var (
	ErrJobNotFound   = errors.New("import job not found")
	ErrJobNotPending = errors.New("import job is not pending")
)

// JobStatus is the lifecycle state of an import job
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// DB is the subset of pgxpool.Pool the repository needs.
// pgxmock.PgxPoolIface satisfies it too.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserFile is an uploaded billing document
type UserFile struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageKey  string    `json:"storage_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// ImportJob tracks the extraction of one uploaded file
type ImportJob struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	FileID         uuid.UUID  `json:"file_id"`
	Status         JobStatus  `json:"status"`
	DocumentKind   string     `json:"document_kind,omitempty"`
	RetailersSaved int        `json:"retailers_saved"`
	InvoicesSaved  int        `json:"invoices_saved"`
	UsedFallback   bool       `json:"used_fallback"`
	Fallback       string     `json:"fallback,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	// Joined from user_files when listing pending work
	FileName    string `json:"file_name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	StorageKey  string `json:"storage_key,omitempty"`
}

// JobSummary is what a finished job records about its result
type JobSummary struct {
	DocumentKind   string
	RetailersSaved int
	InvoicesSaved  int
	UsedFallback   bool
	Fallback       string
}

// SaveStats counts the rows written by SaveCandidates
type SaveStats struct {
	Retailers int
	Invoices  int
}

// ImportRepository defines the persistence operations used by the import service
type ImportRepository interface {
	CreateUserFile(ctx context.Context, file *UserFile) error
	CreateJob(ctx context.Context, job *ImportJob) error
	MarkJobRunning(ctx context.Context, jobID uuid.UUID) error
	CompleteJob(ctx context.Context, jobID uuid.UUID, summary JobSummary) error
	FailJob(ctx context.Context, jobID uuid.UUID, reason string) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*ImportJob, error)
	ListPendingJobs(ctx context.Context, limit int) ([]ImportJob, error)

	GetCreditDays(ctx context.Context, userID uuid.UUID) (int, error)
	SaveCandidates(ctx context.Context, userID, jobID uuid.UUID, res extraction.Result) (SaveStats, error)
}
