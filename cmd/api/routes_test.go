package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	importhandler "github.com/FACorreiaa/dues-tracker/internal/domain/import/handler"
	importrepo "github.com/FACorreiaa/dues-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/dues-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/dues-tracker/pkg/config"
)

type noopImporter struct{}

func (noopImporter) ImportDocument(context.Context, uuid.UUID, string, string, []byte) (*importservice.ImportResult, error) {
	return nil, importrepo.ErrJobNotFound
}

func (noopImporter) Enqueue(context.Context, uuid.UUID, string, string, io.Reader) (*importrepo.ImportJob, error) {
	return nil, importservice.ErrStorageNotConfigured
}

func (noopImporter) GetJob(context.Context, uuid.UUID, uuid.UUID) (*importrepo.ImportJob, error) {
	return nil, importrepo.ErrJobNotFound
}

func testDeps(httpCfg config.HTTPConfig) *Dependencies {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	uploads := prometheus.NewCounter(prometheus.CounterOpts{Name: "dues_test_uploads_total"})
	uploads.Inc()
	reg.MustRegister(uploads)

	return &Dependencies{
		Config:        &config.Config{HTTP: httpCfg},
		Logger:        logger,
		Registry:      reg,
		ImportHandler: importhandler.NewImportHandler(noopImporter{}, logger),
	}
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	h := testDeps(config.HTTPConfig{}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dues_test_uploads_total 1")
}

func TestRoutes_ImportAPIMounted(t *testing.T) {
	h := testDeps(config.HTTPConfig{}).Routes()

	req := httptest.NewRequest(http.MethodGet, "/v1/imports/"+uuid.NewString(), nil)
	req.Header.Set(importhandler.UserIDHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "import job not found")
}

func TestRoutes_RateLimited(t *testing.T) {
	h := testDeps(config.HTTPConfig{RateLimit: 1, RateBurst: 1}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
