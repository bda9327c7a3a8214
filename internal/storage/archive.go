package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// Archive keeps rendered quotation PDFs.
type Archive interface {
	// Put stores a PDF and returns its object key.
	Put(ctx context.Context, companyID int, reference string, data []byte) (string, error)
	// URL returns a time-limited download link for key.
	URL(ctx context.Context, key string) (string, error)
}

// ObjectKey builds the key a PDF is stored under. Every render gets its own key.
func ObjectKey(companyID int, reference string) string {
	return fmt.Sprintf("company-%d/%s_%s_%d.pdf", companyID, reference, uuid.New().String()[:8], time.Now().Unix())
}

type MinIOArchive struct {
	client     *minio.Client
	bucketName string
	urlTTL     time.Duration
	log        logrus.FieldLogger
}

// NewMinIOArchive connects to MinIO and creates the bucket if it does not exist.
func NewMinIOArchive(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool, log logrus.FieldLogger) (*MinIOArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.WithField("bucket", bucketName).Info("bucket created")
	}

	return &MinIOArchive{
		client:     client,
		bucketName: bucketName,
		urlTTL:     time.Hour,
		log:        log,
	}, nil
}

func (m *MinIOArchive) Put(ctx context.Context, companyID int, reference string, data []byte) (string, error) {
	key := ObjectKey(companyID, reference)
	_, err := m.client.PutObject(ctx, m.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	m.log.WithFields(logrus.Fields{"key": key, "bytes": len(data)}).Debug("quotation pdf archived")
	return key, nil
}

func (m *MinIOArchive) URL(ctx context.Context, key string) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucketName, key, m.urlTTL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

// NopArchive is used when no object store is configured. Put reports no key.
type NopArchive struct{}

func (NopArchive) Put(context.Context, int, string, []byte) (string, error) { return "", nil }

func (NopArchive) URL(_ context.Context, key string) (string, error) {
	return "", fmt.Errorf("no archive configured for %s", key)
}
