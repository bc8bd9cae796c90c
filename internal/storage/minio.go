package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// maxPresignExpiry is the S3 limit for presigned URLs.
const maxPresignExpiry = 7 * 24 * time.Hour

// MinioStore implements Store using a MinIO (or any S3-compatible) backend.
// To switch to ArvanCloud Object Storage, change STORAGE_ENDPOINT and credentials;
// no code changes are needed since ArvanCloud is S3-compatible.
type MinioStore struct {
	client     *minio.Client
	publicBase string
}

// NewMinioStore creates a MinIO client. When publicBase is set, buckets are
// expected to be public-read and SignedURL returns plain public URLs.
func NewMinioStore(endpoint, accessKey, secretKey, publicBase string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioStore{
		client:     client,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// EnsurePublicRead applies an anonymous-GET policy to bucket. Missing buckets
// are not created here; uploads report them as not found.
func (s *MinioStore) EnsurePublicRead(ctx context.Context, bucket string) error {
	if err := s.client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return fmt.Errorf("set bucket policy %q: %w", bucket, err)
	}
	return nil
}

// NewWriter buffers the payload and issues a single PutObject on Close, so the
// exact size is known to the provider.
func (s *MinioStore) NewWriter(ctx context.Context, bucket, key, contentType string) io.WriteCloser {
	return &minioWriter{ctx: ctx, client: s.client, bucket: bucket, key: key, contentType: contentType}
}

// URLLifetime reports how long a URL requested for ttl stays valid. Public
// URLs do not expire; presigned ones stop at seven days.
func (s *MinioStore) URLLifetime(ttl time.Duration) time.Duration {
	if s.publicBase == "" && ttl > maxPresignExpiry {
		return maxPresignExpiry
	}
	return ttl
}

// SignedURL returns the public URL when a public base is configured, otherwise
// a presigned GET URL. S3 caps presigned lifetimes at seven days.
func (s *MinioStore) SignedURL(ctx context.Context, bucket, key string, expires time.Time) (string, error) {
	if s.publicBase != "" {
		return s.publicBase + "/" + bucket + "/" + key, nil
	}

	ttl := s.URLLifetime(time.Until(expires))
	if ttl < time.Second {
		ttl = time.Second
	}

	u, err := s.client.PresignedGetObject(ctx, bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}

type minioWriter struct {
	ctx         context.Context
	client      *minio.Client
	bucket      string
	key         string
	contentType string
	buf         bytes.Buffer
	closed      bool
}

func (w *minioWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("write %s/%s: writer closed", w.bucket, w.key)
	}
	return w.buf.Write(p)
}

func (w *minioWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.client.PutObject(w.ctx, w.bucket, w.key, bytes.NewReader(w.buf.Bytes()), int64(w.buf.Len()), minio.PutObjectOptions{
		ContentType: w.contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", w.bucket, w.key, err)
	}
	return nil
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
