/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kavana-health/vault/logging"
)

var logger = logging.Logger(logging.SourceArchive)

const (
	urlScheme       = "s3://"
	pdfContentType  = "application/pdf"
	maxNameLength   = 80
	defaultFileName = "report.pdf"
)

var (
	// ErrDisabled is returned when no object storage is configured.
	ErrDisabled = errors.New("document archive is disabled")
	// ErrForeignObject is returned for URLs outside the user's prefix.
	ErrForeignObject = errors.New("document does not belong to user")
	// ErrInvalidURL is returned for URLs not produced by this archive.
	ErrInvalidURL = errors.New("invalid archive url")
)

// Config holds the object storage settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Object is an archived document opened for reading.
type Object struct {
	io.ReadCloser
	Name        string
	Size        int64
	ContentType string
}

// objectAPI is the subset of the minio client the archive uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket, region string) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	GetObject(ctx context.Context, bucket, key string) (*Object, error)
	RemoveObject(ctx context.Context, bucket, key string) error
}

// Archive stores uploaded lab report PDFs per user.
type Archive struct {
	api    objectAPI
	bucket string
	region string
}

// New connects to the object storage described by cfg.
func New(cfg Config) (*Archive, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, ErrDisabled
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Archive{api: minioAPI{client}, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	if a == nil {
		return ErrDisabled
	}

	exists, err := a.api.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}

	if exists {
		return nil
	}

	if err := a.api.MakeBucket(ctx, a.bucket, a.region); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}

	logger.Info("Created archive bucket", "bucket", a.bucket)

	return nil
}

// Put stores a PDF for userID and returns its archive URL.
func (a *Archive) Put(ctx context.Context, userID, name string, r io.Reader, size int64) (string, error) {
	if a == nil {
		return "", ErrDisabled
	}

	key := path.Join(userPrefix(userID), uuid.NewString()+"-"+sanitizeName(name))

	if err := a.api.PutObject(ctx, a.bucket, key, r, size, pdfContentType); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", key, err)
	}

	logger.Info("Archived document", "user_id", userID, "key", key, "size", size)

	return urlScheme + a.bucket + "/" + key, nil
}

// Get opens the archived document at url, which must belong to userID.
func (a *Archive) Get(ctx context.Context, userID, url string) (*Object, error) {
	if a == nil {
		return nil, ErrDisabled
	}

	key, err := a.keyFor(url)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(key, userPrefix(userID)+"/") {
		return nil, ErrForeignObject
	}

	obj, err := a.api.GetObject(ctx, a.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}

	return obj, nil
}

// Delete removes the archived document at url, which must belong to userID.
func (a *Archive) Delete(ctx context.Context, userID, url string) error {
	if a == nil {
		return ErrDisabled
	}

	key, err := a.keyFor(url)
	if err != nil {
		return err
	}

	if !strings.HasPrefix(key, userPrefix(userID)+"/") {
		return ErrForeignObject
	}

	if err := a.api.RemoveObject(ctx, a.bucket, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}

	logger.Info("Removed archived document", "user_id", userID, "key", key)

	return nil
}

func (a *Archive) keyFor(url string) (string, error) {
	rest, ok := strings.CutPrefix(url, urlScheme+a.bucket+"/")
	if !ok || rest == "" || strings.Contains(rest, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}
	return rest, nil
}

func userPrefix(userID string) string {
	return "users/" + sanitizeName(userID)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "._")

	if name == "" {
		return defaultFileName
	}

	if len(name) > maxNameLength {
		name = name[len(name)-maxNameLength:]
	}

	return name
}

// minioAPI adapts *minio.Client to objectAPI.
type minioAPI struct {
	client *minio.Client
}

func (m minioAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.client.BucketExists(ctx, bucket)
}

func (m minioAPI) MakeBucket(ctx context.Context, bucket, region string) error {
	return m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

func (m minioAPI) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m minioAPI) GetObject(ctx context.Context, bucket, key string) (*Object, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}

	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, err
	}

	return &Object{
		ReadCloser:  obj,
		Name:        path.Base(key),
		Size:        info.Size,
		ContentType: info.ContentType,
	}, nil
}

func (m minioAPI) RemoveObject(ctx context.Context, bucket, key string) error {
	return m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}
