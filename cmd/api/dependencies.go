package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	importhandler "github.com/FACorreiaa/dues-tracker/internal/domain/import/handler"
	importrepo "github.com/FACorreiaa/dues-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/dues-tracker/internal/domain/import/service"

	"github.com/FACorreiaa/dues-tracker/pkg/config"
	"github.com/FACorreiaa/dues-tracker/pkg/cron"
	"github.com/FACorreiaa/dues-tracker/pkg/db"
	"github.com/FACorreiaa/dues-tracker/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	DB       *db.DB
	Logger   *slog.Logger
	Registry *prometheus.Registry

	// Repositories
	ImportRepo importrepo.ImportRepository

	// Services
	FileStorage   storage.Storage
	ImportService *importservice.ImportService
	Scheduler     *cron.Scheduler

	// Handlers
	ImportHandler *importhandler.ImportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	// Initialize services
	if err := deps.initServices(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	if err := deps.initHandlers(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase(ctx context.Context) error {
	dbCfg := d.Config.Database
	database, err := db.New(ctx, db.Config{
		DSN:             dbCfg.DSN(),
		MaxConns:        int32(dbCfg.MaxConns),
		MinConns:        int32(dbCfg.MinConns),
		MaxConnLifetime: dbCfg.MaxConnLifetime,
		MaxConnIdleTime: 10 * time.Minute,
		DialTimeout:     dbCfg.DialTimeout,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(ctx); err != nil {
		d.DB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	extractionCfg, err := d.Config.Extraction.Build()
	if err != nil {
		return err
	}

	fileStorage, err := storage.New(ctx, &d.Config.Storage)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	d.ImportService = importservice.NewImportService(d.ImportRepo, extractionCfg, d.Logger).
		WithStorage(d.FileStorage).
		WithMetrics(importservice.NewMetrics(d.Registry))

	// Background drain of queued uploads; only the worker binary starts it
	d.Scheduler = cron.NewScheduler(d.ImportService, cron.Options{
		Schedule:   d.Config.Worker.Schedule,
		BatchSize:  d.Config.Worker.BatchSize,
		JobTimeout: d.Config.Worker.JobTimeout,
	}, d.Logger)

	d.Logger.Info("services initialized", slog.String("storage", string(d.Config.Storage.Type)))
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Logger)
	if d.Config.HTTP.MaxUploadBytes > 0 {
		d.ImportHandler.WithMaxUploadBytes(d.Config.HTTP.MaxUploadBytes)
	}

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
