// Package storage defines the object storage contract used by the upload service.
// Swap implementations by changing the concrete type injected at startup:
// GCSStore serves Google Cloud Storage and Firebase Storage buckets, MinioStore
// serves any S3-compatible provider (MinIO, ArvanCloud, AWS S3).
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/minio/minio-go/v7"
	"google.golang.org/api/googleapi"
)

// Store writes objects and issues read URLs. Implementations must be safe for
// concurrent use; the bucket is chosen per call.
type Store interface {
	// NewWriter opens a write stream for bucket/key. Errors from the provider
	// surface from Write or Close; the object exists only after Close returns nil.
	NewWriter(ctx context.Context, bucket, key, contentType string) io.WriteCloser
	// SignedURL returns a credential-free GET URL for bucket/key valid until expires.
	SignedURL(ctx context.Context, bucket, key string, expires time.Time) (string, error)
}

// ErrNotFound is returned by implementations that have no richer error type for
// a missing bucket or object.
var ErrNotFound = errors.New("storage: not found")

// IsNotFound reports whether err means the bucket (or object) does not exist.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, gcs.ErrBucketNotExist) || errors.Is(err, gcs.ErrObjectNotExist) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return true
	}

	var s3Err minio.ErrorResponse
	if errors.As(err, &s3Err) {
		switch string(s3Err.Code) {
		case "NoSuchBucket", "NoSuchKey":
			return true
		}
		if s3Err.StatusCode == http.StatusNotFound {
			return true
		}
	}

	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
