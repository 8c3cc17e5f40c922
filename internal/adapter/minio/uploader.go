// Package minio mirrors written output files to S3-compatible object storage.
package minio

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/couchcryptid/ibge-localidades-etl/internal/config"
	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
)

const region = "us-east-1"

// FileLocator resolves where a dataset's files were written locally.
type FileLocator interface {
	CSVPath(kind domain.Kind) string
	JSONPath(kind domain.Kind) string
}

// Uploader copies the files produced for a dataset into a bucket.
// It implements pipeline.Loader and must run after the file writer.
type Uploader struct {
	client *minio.Client
	bucket string
	prefix string
	files  FileLocator
	logger *slog.Logger

	mu          sync.Mutex
	bucketReady bool
}

// NewUploader creates a client for the configured endpoint. No request is
// made until the first Load.
func NewUploader(cfg *config.Config, files FileLocator, logger *slog.Logger) (*Uploader, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return &Uploader{
		client: client,
		bucket: cfg.MinioBucket,
		prefix: strings.Trim(cfg.MinioPrefix, "/"),
		files:  files,
		logger: logger,
	}, nil
}

func (u *Uploader) Name() string { return "minio" }

// Load uploads the CSV (when the dataset has one) and JSON files for ds.
func (u *Uploader) Load(ctx context.Context, ds domain.Dataset) error {
	if err := u.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", u.bucket, err)
	}
	if len(ds.Header) > 0 {
		if err := u.upload(ctx, u.files.CSVPath(ds.Kind), "text/csv; charset=utf-8"); err != nil {
			return err
		}
	}
	return u.upload(ctx, u.files.JSONPath(ds.Kind), "application/json")
}

// ensureBucket checks for the bucket and creates it when missing. Only a
// successful check is remembered, so a failed one is retried on the next Load.
func (u *Uploader) ensureBucket(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.bucketReady {
		return nil
	}

	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return err
	}
	if !exists {
		u.logger.Info("creating bucket", "bucket", u.bucket)
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return err
		}
	}
	u.bucketReady = true
	return nil
}

func (u *Uploader) upload(ctx context.Context, file, contentType string) error {
	key := objectKey(u.prefix, filepath.Base(file))
	info, err := u.client.FPutObject(ctx, u.bucket, key, file, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s to %s/%s: %w", file, u.bucket, key, err)
	}
	u.logger.Info("uploaded", "bucket", u.bucket, "key", key, "bytes", info.Size)
	return nil
}

func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
