// Package storage keeps uploaded billing documents on the local filesystem or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("stored file not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Key         string    `json:"key"` // backend-relative location, recorded in user_files.storage_key
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the interface for file storage operations
type Storage interface {
	// Upload stores a file under the user's prefix and returns its metadata
	Upload(ctx context.Context, userID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// Open returns a reader for the file stored at key
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the file stored at key
	Delete(ctx context.Context, key string) error
}

// StorageType identifies the storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// Config holds storage configuration
type Config struct {
	Type StorageType `yaml:"type"`

	LocalPath string `yaml:"local_path"`

	S3Bucket          string `yaml:"s3_bucket"`
	S3Region          string `yaml:"s3_region"`
	S3Prefix          string `yaml:"s3_prefix"`
	S3AccessKeyID     string `yaml:"s3_access_key_id"`
	S3SecretAccessKey string `yaml:"s3_secret_access_key"`
	S3Endpoint        string `yaml:"s3_endpoint"` // MinIO and other S3-compatible services
}

// New creates a new Storage implementation based on configuration
func New(ctx context.Context, cfg *Config) (Storage, error) {
	switch cfg.Type {
	case StorageTypeS3:
		return NewS3Storage(ctx, cfg)
	case StorageTypeLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// objectKey builds "<user>/<id prefix>_<sanitized name>"
func objectKey(userID, fileID uuid.UUID, filename string) string {
	return fmt.Sprintf("%s/%s_%s", userID.String(), fileID.String()[:8], sanitizeFilename(filename))
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	name = replacer.Replace(strings.TrimSpace(name))
	if name == "" {
		return "upload"
	}
	return name
}
