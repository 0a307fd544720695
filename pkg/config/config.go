package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/dues-tracker/internal/domain/extraction"
	"github.com/FACorreiaa/dues-tracker/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	Database      DatabaseConfig
	Storage       storage.Config
	Extraction    ExtractionConfig
	Worker        WorkerConfig
	HTTP          HTTPConfig
	Observability ObservabilityConfig
	Log           LogConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int
	MinConns        int
	DialTimeout     time.Duration
	MaxConnLifetime time.Duration
}

// ExtractionConfig tunes the document extractors. Values set in the YAML file named by
// EXTRACTION_CONFIG_FILE override the environment.
type ExtractionConfig struct {
	ConfigFile        string                    `yaml:"-"`
	DefaultCreditDays int                       `yaml:"default_credit_days"`
	AmountThreshold   string                    `yaml:"amount_threshold"`
	NameMinLen        int                       `yaml:"name_min_len"`
	NameMaxLen        int                       `yaml:"name_max_len"`
	Keywords          extraction.HeaderKeywords `yaml:"header_keywords"`
}

type WorkerConfig struct {
	Schedule   string
	BatchSize  int
	JobTimeout time.Duration
}

// HTTPConfig controls the upload API
type HTTPConfig struct {
	Port           int
	AllowedOrigins []string
	RateLimit      int // requests per second, 0 disables
	RateBurst      int
	MaxUploadBytes int64
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables, after loading .env when present
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnvAsInt("POSTGRES_PORT", 5432),
			User:            getEnv("POSTGRES_USER", "postgres"),
			Password:        getEnv("POSTGRES_PASSWORD", "postgres"),
			Database:        getEnv("POSTGRES_DB", "dues-dev"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns:        getEnvAsInt("POSTGRES_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("POSTGRES_MIN_CONNS", 5),
			DialTimeout:     getEnvAsDuration("POSTGRES_DIAL_TIMEOUT", 10*time.Second),
			MaxConnLifetime: getEnvAsDuration("POSTGRES_MAX_CONN_LIFETIME", 5*time.Minute),
		},
		Storage: storage.Config{
			Type:              storage.StorageType(getEnv("STORAGE_TYPE", string(storage.StorageTypeLocal))),
			LocalPath:         getEnv("STORAGE_LOCAL_PATH", "./uploads"),
			S3Bucket:          getEnv("STORAGE_S3_BUCKET", ""),
			S3Region:          getEnv("STORAGE_S3_REGION", ""),
			S3Prefix:          getEnv("STORAGE_S3_PREFIX", ""),
			S3AccessKeyID:     getEnv("STORAGE_S3_ACCESS_KEY_ID", ""),
			S3SecretAccessKey: getEnv("STORAGE_S3_SECRET_ACCESS_KEY", ""),
			S3Endpoint:        getEnv("STORAGE_S3_ENDPOINT", ""),
		},
		Extraction: ExtractionConfig{
			ConfigFile:        getEnv("EXTRACTION_CONFIG_FILE", ""),
			DefaultCreditDays: getEnvAsInt("EXTRACTION_DEFAULT_CREDIT_DAYS", extraction.DefaultCreditDays),
			AmountThreshold:   getEnv("EXTRACTION_AMOUNT_THRESHOLD", "100"),
			NameMinLen:        getEnvAsInt("EXTRACTION_NAME_MIN_LEN", 3),
			NameMaxLen:        getEnvAsInt("EXTRACTION_NAME_MAX_LEN", 50),
			Keywords:          extraction.DefaultHeaderKeywords(),
		},
		Worker: WorkerConfig{
			Schedule:   getEnv("WORKER_SCHEDULE", "*/1 * * * *"),
			BatchSize:  getEnvAsInt("WORKER_BATCH_SIZE", 20),
			JobTimeout: getEnvAsDuration("WORKER_JOB_TIMEOUT", 5*time.Minute),
		},
		HTTP: HTTPConfig{
			Port:           getEnvAsInt("HTTP_PORT", 8080),
			AllowedOrigins: splitList(getEnv("HTTP_ALLOWED_ORIGINS", "")),
			RateLimit:      getEnvAsInt("HTTP_RATE_LIMIT", 20),
			RateBurst:      getEnvAsInt("HTTP_RATE_BURST", 40),
			MaxUploadBytes: int64(getEnvAsInt("HTTP_MAX_UPLOAD_BYTES", 20<<20)),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if cfg.Extraction.ConfigFile != "" {
		if err := cfg.Extraction.loadFile(cfg.Extraction.ConfigFile); err != nil {
			return nil, err
		}
	}

	if _, err := cfg.Extraction.Build(); err != nil {
		return nil, err
	}
	if cfg.Worker.BatchSize <= 0 {
		return nil, errors.New("WORKER_BATCH_SIZE must be positive")
	}

	return cfg, nil
}

// loadFile overlays the YAML extraction file. Keyword lists left empty in the file keep
// their current values.
func (e *ExtractionConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read extraction config: %w", err)
	}

	var file ExtractionConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse extraction config: %w", err)
	}

	if file.DefaultCreditDays > 0 {
		e.DefaultCreditDays = file.DefaultCreditDays
	}
	if file.AmountThreshold != "" {
		e.AmountThreshold = file.AmountThreshold
	}
	if file.NameMinLen > 0 {
		e.NameMinLen = file.NameMinLen
	}
	if file.NameMaxLen > 0 {
		e.NameMaxLen = file.NameMaxLen
	}
	overlay(&e.Keywords.Name, file.Keywords.Name)
	overlay(&e.Keywords.Phone, file.Keywords.Phone)
	overlay(&e.Keywords.Invoice, file.Keywords.Invoice)
	overlay(&e.Keywords.Amount, file.Keywords.Amount)
	overlay(&e.Keywords.Date, file.Keywords.Date)
	return nil
}

func overlay(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

// Build converts the settings into the extractor's configuration
func (e ExtractionConfig) Build() (extraction.Config, error) {
	threshold, err := decimal.NewFromString(strings.TrimSpace(e.AmountThreshold))
	if err != nil {
		return extraction.Config{}, fmt.Errorf("invalid amount threshold %q: %w", e.AmountThreshold, err)
	}
	if threshold.IsNegative() {
		return extraction.Config{}, fmt.Errorf("amount threshold must not be negative: %s", threshold)
	}

	return extraction.Config{
		DefaultCreditDays: e.DefaultCreditDays,
		AmountThreshold:   threshold,
		NameMinLen:        e.NameMinLen,
		NameMaxLen:        e.NameMaxLen,
		Keywords:          e.Keywords,
	}, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
