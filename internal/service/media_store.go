package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const mediaPathPrefix = "media"

var (
	ErrBucketCreationFailed = errors.New("failed to create storage bucket")
	ErrUploadFailed         = errors.New("failed to upload media")
	ErrDeleteFailed         = errors.New("failed to delete media")
	ErrUnauthorizedAccess   = errors.New("unauthorized access to media object")
)

// MediaStore keeps the original bytes of uploaded scan items.
type MediaStore interface {
	// Put stores data under the owner's namespace and returns the object key.
	Put(ctx context.Context, userID uint, scanID string, data []byte) (string, error)

	// Delete removes an object after checking that key belongs to userID.
	Delete(ctx context.Context, userID uint, key string) error

	Ping(ctx context.Context) error
}

type NoopMediaStore struct{}

func NewNoopMediaStore() *NoopMediaStore { return &NoopMediaStore{} }

func (NoopMediaStore) Put(context.Context, uint, string, []byte) (string, error) { return "", nil }

func (NoopMediaStore) Delete(context.Context, uint, string) error { return nil }

func (NoopMediaStore) Ping(context.Context) error { return nil }

type MinIOMediaConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinIOMediaStore implements MediaStore on MinIO/S3-compatible storage.
type MinIOMediaStore struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

// NewMinIOMediaStore creates the client only; the bucket is checked on first use
// so startup does not block on storage.
func NewMinIOMediaStore(cfg MinIOMediaConfig) (*MinIOMediaStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOMediaStore{client: client, bucketName: cfg.Bucket, region: cfg.Region}, nil
}

func (s *MinIOMediaStore) lazyInit(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.ensureBucketExists(ctx)
	})
	return s.initErr
}

func (s *MinIOMediaStore) ensureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("%w: check bucket existence: %v", ErrBucketCreationFailed, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrBucketCreationFailed, err)
		}
	}
	return nil
}

func (s *MinIOMediaStore) Put(ctx context.Context, userID uint, scanID string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty media", ErrUploadFailed)
	}
	if err := s.lazyInit(ctx); err != nil {
		return "", err
	}

	// content type comes from the bytes, never from the client
	mt := mimetype.Detect(data)
	objectKey := mediaObjectKey(userID, scanID, mt.Extension())
	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mt.String(),
		UserMetadata: map[string]string{
			"User-ID":     userIDString(userID),
			"Scan-ID":     scanID,
			"Uploaded-At": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return objectKey, nil
}

func (s *MinIOMediaStore) Delete(ctx context.Context, userID uint, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if !ownsMediaKey(userID, key) {
		return ErrUnauthorizedAccess
	}
	if err := s.lazyInit(ctx); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}

// Ping reports whether the bucket is reachable. Used by readiness checks.
func (s *MinIOMediaStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}

func mediaObjectKey(userID uint, scanID, ext string) string {
	return fmt.Sprintf("%s/user-%d/%s%s", mediaPathPrefix, userID, scanID, ext)
}

// contentRef identifies uploaded bytes that were not kept in object storage.
func contentRef(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func ownsMediaKey(userID uint, key string) bool {
	if strings.Contains(key, "..") {
		return false
	}
	return strings.HasPrefix(key, fmt.Sprintf("%s/user-%d/", mediaPathPrefix, userID))
}
