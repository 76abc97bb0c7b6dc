// Package storage archives source images and rendered tables in an S3
// compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds the MinIO connection settings.
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether an endpoint is configured.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

// Archive stores objects in one bucket.
type Archive struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// New connects to MinIO and verifies the bucket exists.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}
	return &Archive{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

// ObjectName lays objects out as {owner}/YYYY/MM/{id}/{filename}.
func ObjectName(owner, id, filename string, at time.Time) string {
	if owner == "" {
		owner = "anonymous"
	}
	return path.Join(owner, fmt.Sprintf("%d", at.Year()), fmt.Sprintf("%02d", int(at.Month())), id, path.Base(filename))
}

// Put uploads data and returns "bucket/object".
func (a *Archive) Put(ctx context.Context, owner, id, filename, contentType string, data []byte) (string, error) {
	object := ObjectName(owner, id, filename, a.now())
	_, err := a.client.PutObject(ctx, a.bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	return a.bucket + "/" + object, nil
}

// PresignedURL returns a temporary download URL for a path returned by Put.
func (a *Archive) PresignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	u, err := a.client.PresignedGetObject(ctx, a.bucket, a.objectName(objectPath), ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", objectPath, err)
	}
	return u.String(), nil
}

// Delete removes an object stored by Put.
func (a *Archive) Delete(ctx context.Context, objectPath string) error {
	return a.client.RemoveObject(ctx, a.bucket, a.objectName(objectPath), minio.RemoveObjectOptions{})
}

func (a *Archive) objectName(objectPath string) string {
	prefix := a.bucket + "/"
	if len(objectPath) > len(prefix) && objectPath[:len(prefix)] == prefix {
		return objectPath[len(prefix):]
	}
	return objectPath
}
