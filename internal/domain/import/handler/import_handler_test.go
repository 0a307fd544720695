package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/dues-tracker/internal/domain/extraction"
	"github.com/FACorreiaa/dues-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/dues-tracker/internal/domain/import/service"
)

type stubImporter struct {
	importErr error
	gotName   string
	gotType   string
	gotData   []byte
	jobs      map[uuid.UUID]*repository.ImportJob
}

func (s *stubImporter) ImportDocument(ctx context.Context, userID uuid.UUID, filename, contentType string, data []byte) (*importservice.ImportResult, error) {
	s.gotName, s.gotType, s.gotData = filename, contentType, data
	if s.importErr != nil {
		return nil, s.importErr
	}
	return &importservice.ImportResult{
		JobID: uuid.New(),
		Kind:  "csv",
		Result: extraction.Result{
			Retailers: []extraction.RetailerCandidate{{RetailerName: "Acme Traders", RetailerPhone: "9000000000"}},
			Invoices: []extraction.InvoiceCandidate{{
				RetailerPhone: "9000000000",
				InvoiceNumber: "INV-1",
				Amount:        decimal.NewFromInt(12000),
				InvoiceDate:   "2024-03-10",
				DueDate:       "2024-04-09",
				PaymentStatus: extraction.StatusUnpaid,
			}},
		},
		Saved: repository.SaveStats{Retailers: 1, Invoices: 1},
	}, nil
}

func (s *stubImporter) Enqueue(ctx context.Context, userID uuid.UUID, filename, contentType string, r io.Reader) (*repository.ImportJob, error) {
	if s.importErr != nil {
		return nil, s.importErr
	}
	data, _ := io.ReadAll(r)
	s.gotName, s.gotData = filename, data
	return &repository.ImportJob{ID: uuid.New(), UserID: userID, Status: repository.JobPending}, nil
}

func (s *stubImporter) GetJob(ctx context.Context, userID, jobID uuid.UUID) (*repository.ImportJob, error) {
	job, ok := s.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, repository.ErrJobNotFound
	}
	return job, nil
}

func newTestMux(imp Importer) *http.ServeMux {
	mux := http.NewServeMux()
	NewImportHandler(imp, slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithMaxUploadBytes(1 << 10).
		Register(mux)
	return mux
}

func uploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(UserIDHeader, uuid.NewString())
	return req
}

func TestUpload_Sync(t *testing.T) {
	imp := &stubImporter{}
	mux := newTestMux(imp)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "/v1/imports", "dues.csv", []byte("Name,Phone\n")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dues.csv", imp.gotName)
	assert.Equal(t, "application/octet-stream", imp.gotType)
	assert.Equal(t, "Name,Phone\n", string(imp.gotData))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "csv", body["kind"])
	assert.Equal(t, false, body["used_fallback"])
	invoices := body["invoices"].([]any)
	require.Len(t, invoices, 1)
	assert.Equal(t, "12000", invoices[0].(map[string]any)["amount"])
}

func TestUpload_Async(t *testing.T) {
	imp := &stubImporter{}
	mux := newTestMux(imp)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "/v1/imports?async=true", "dues.pdf", []byte("%PDF-1.4")))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "%PDF-1.4", string(imp.gotData))
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		importErr  error
		mutate     func(r *http.Request)
		content    []byte
		wantStatus int
	}{
		{
			name:       "missing user",
			mutate:     func(r *http.Request) { r.Header.Del(UserIDHeader) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unsupported document",
			importErr:  extraction.ErrUnsupportedDocument,
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:       "internal error",
			importErr:  errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "too large",
			content:    bytes.Repeat([]byte("a"), 64<<10),
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(&stubImporter{importErr: tt.importErr})
			content := tt.content
			if content == nil {
				content = []byte("x")
			}
			req := uploadRequest(t, "/v1/imports", "dues.csv", content)
			if tt.mutate != nil {
				tt.mutate(req)
			}

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestUpload_MissingFile(t *testing.T) {
	mux := newTestMux(&stubImporter{})
	req := httptest.NewRequest(http.MethodPost, "/v1/imports", nil)
	req.Header.Set(UserIDHeader, uuid.NewString())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJob(t *testing.T) {
	owner := uuid.New()
	jobID := uuid.New()
	imp := &stubImporter{jobs: map[uuid.UUID]*repository.ImportJob{
		jobID: {ID: jobID, UserID: owner, Status: repository.JobCompleted, InvoicesSaved: 4},
	}}
	mux := newTestMux(imp)

	req := httptest.NewRequest(http.MethodGet, "/v1/imports/"+jobID.String(), nil)
	req.Header.Set(UserIDHeader, owner.String())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"invoices_saved":4`)

	req = httptest.NewRequest(http.MethodGet, "/v1/imports/"+jobID.String(), nil)
	req.Header.Set(UserIDHeader, uuid.NewString())
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/imports/not-a-uuid", nil)
	req.Header.Set(UserIDHeader, owner.String())
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
