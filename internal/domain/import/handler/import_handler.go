package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/FACorreiaa/dues-tracker/internal/domain/extraction"
	"github.com/FACorreiaa/dues-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/dues-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/dues-tracker/internal/domain/reminder"
)

// UserIDHeader carries the authenticated user's id, set by the gateway in front of the API
const UserIDHeader = "X-User-ID"

// DefaultMaxUploadBytes bounds a single uploaded document
const DefaultMaxUploadBytes = 20 << 20

// Importer is the part of the import service the handler drives
type Importer interface {
	ImportDocument(ctx context.Context, userID uuid.UUID, filename, contentType string, data []byte) (*importservice.ImportResult, error)
	Enqueue(ctx context.Context, userID uuid.UUID, filename, contentType string, r io.Reader) (*repository.ImportJob, error)
	GetJob(ctx context.Context, userID, jobID uuid.UUID) (*repository.ImportJob, error)
}

// ImportHandler serves document uploads over HTTP
type ImportHandler struct {
	importSvc      Importer
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewImportHandler creates a new import handler
func NewImportHandler(importSvc Importer, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importSvc:      importSvc,
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
}

// WithMaxUploadBytes overrides the upload size limit
func (h *ImportHandler) WithMaxUploadBytes(n int64) *ImportHandler {
	h.maxUploadBytes = n
	return h
}

// Register mounts the import routes on mux
func (h *ImportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/imports", h.Upload)
	mux.HandleFunc("GET /v1/imports/{id}", h.GetJob)
}

type savedCounts struct {
	Retailers int `json:"retailers"`
	Invoices  int `json:"invoices"`
}

type importResponse struct {
	JobID        uuid.UUID                      `json:"job_id"`
	FileID       uuid.UUID                      `json:"file_id"`
	Kind         string                         `json:"kind"`
	Retailers    []extraction.RetailerCandidate `json:"retailers"`
	Invoices     []extraction.InvoiceCandidate  `json:"invoices"`
	UsedFallback bool                           `json:"used_fallback"`
	Fallback     string                         `json:"fallback,omitempty"`
	Saved        savedCounts                    `json:"saved"`
	Dues         []reminder.RetailerDues        `json:"dues"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Upload accepts a multipart "file" field. With ?async=true the document is queued and
// 202 returns the pending job; otherwise it is extracted before responding.
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "document exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))

	if async {
		job, err := h.importSvc.Enqueue(r.Context(), userID, header.Filename, contentType, file)
		if err != nil {
			h.fail(w, "failed to enqueue import", err)
			return
		}
		writeJSON(w, http.StatusAccepted, job)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := h.importSvc.ImportDocument(r.Context(), userID, header.Filename, contentType, data)
	if err != nil {
		h.fail(w, "failed to import document", err)
		return
	}

	writeJSON(w, http.StatusOK, importResponse{
		JobID:        result.JobID,
		FileID:       result.FileID,
		Kind:         string(result.Kind),
		Retailers:    result.Result.Retailers,
		Invoices:     result.Result.Invoices,
		UsedFallback: result.Result.UsedFallback,
		Fallback:     string(result.Result.Fallback),
		Saved:        savedCounts{Retailers: result.Saved.Retailers, Invoices: result.Saved.Invoices},
		Dues:         result.Dues,
	})
}

// GetJob returns the status of one import job
func (h *ImportHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.importSvc.GetJob(r.Context(), userID, jobID)
	if err != nil {
		h.fail(w, "failed to get import job", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *ImportHandler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(r.Header.Get(UserIDHeader))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or invalid "+UserIDHeader)
		return uuid.Nil, false
	}
	return userID, true
}

// fail maps service errors onto HTTP statuses
func (h *ImportHandler) fail(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, extraction.ErrUnsupportedDocument):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, repository.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "import job not found")
	case errors.Is(err, importservice.ErrStorageNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "queued imports are not available")
	default:
		h.logger.Error(msg, slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
