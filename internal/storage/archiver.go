// Package storage archives and indexes terminal analysis reports.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	infralogger "github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/logger"
	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// ArchiveConfig represents MinIO configuration for report archiving.
type ArchiveConfig struct {
	// Enabled toggles report archiving on/off
	Enabled bool `env:"MINIO_ENABLED" yaml:"enabled"`
	// Endpoint is the MinIO server address (e.g., "minio:9000")
	Endpoint  string `env:"MINIO_ENDPOINT"   yaml:"endpoint"`
	AccessKey string `env:"MINIO_ACCESS_KEY" yaml:"access_key"`
	SecretKey string `env:"MINIO_SECRET_KEY" yaml:"secret_key"` //nolint:gosec // storage credentials
	UseSSL    bool   `env:"MINIO_USE_SSL"    yaml:"use_ssl"`
	Bucket    string `env:"MINIO_BUCKET"     yaml:"bucket"`
	// Prefix is prepended to every object key.
	Prefix string `env:"MINIO_PREFIX" yaml:"prefix"`
}

// SetDefaults fills unset values.
func (c *ArchiveConfig) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:9000"
	}
	if c.Bucket == "" {
		c.Bucket = "analysis-reports"
	}
	if c.Prefix == "" {
		c.Prefix = "reports"
	}
}

// objectStore is the subset of *miniogo.Client the archiver needs.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts miniogo.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error)
}

// Archiver writes terminal reports to MinIO as JSON objects.
type Archiver struct {
	store  objectStore
	bucket string
	prefix string
	logger infralogger.Logger
}

// NewArchiver creates the MinIO client. It does not contact the server; call
// EnsureBucket for that.
func NewArchiver(cfg ArchiveConfig, log infralogger.Logger) (*Archiver, error) {
	cfg.SetDefaults()
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("minio credentials not configured")
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return newArchiver(client, cfg, log), nil
}

func newArchiver(store objectStore, cfg ArchiveConfig, log infralogger.Logger) *Archiver {
	cfg.SetDefaults()
	if log == nil {
		log = infralogger.NewNop()
	}
	return &Archiver{
		store:  store,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: log,
	}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}

	if err = a.store.MakeBucket(ctx, a.bucket, miniogo.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	a.logger.Info("Created report archive bucket", infralogger.String("bucket", a.bucket))
	return nil
}

// SaveReport uploads report as JSON.
func (a *Archiver) SaveReport(ctx context.Context, report *domain.AnalysisReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	key := a.ObjectKey(report)
	_, err = a.store.PutObject(
		ctx,
		a.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		miniogo.PutObjectOptions{
			ContentType: "application/json",
			UserMetadata: map[string]string{
				"analysis-id": report.ID,
				"domain":      report.Domain,
				"status":      string(report.Status),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to upload report %s: %w", report.ID, err)
	}

	a.logger.Debug("Archived report",
		infralogger.String("object_key", key),
		infralogger.Int("size", len(data)),
	)
	return nil
}

// ObjectKey returns where report is stored.
// Format: {prefix}/{domain}/{year}/{month}/{day}/{id}.json
func (a *Archiver) ObjectKey(report *domain.AnalysisReport) string {
	started := report.StartedAt.UTC()
	key := fmt.Sprintf("%s/%s/%s.json", report.Domain, started.Format("2006/01/02"), report.ID)
	if a.prefix == "" {
		return key
	}
	return a.prefix + "/" + key
}
