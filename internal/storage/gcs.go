package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// maxV4Expiry is the longest lifetime GCS accepts for a V4 signed URL.
const maxV4Expiry = 7 * 24 * time.Hour

// GCSStore implements Store on Google Cloud Storage. Firebase Storage buckets
// (<project>.firebasestorage.app, <project>.appspot.com) are GCS buckets.
type GCSStore struct {
	client       *gcs.Client
	signingEmail string
	privateKey   []byte
}

// NewGCSStore creates a GCS client. credentialsFile may be empty to use
// application default credentials. When signingEmail and privateKey are both
// set, URLs are signed locally with that service account; otherwise the SDK
// detects a signer from the client credentials.
func NewGCSStore(ctx context.Context, credentialsFile, signingEmail, privateKey string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	s := &GCSStore{client: client}
	if signingEmail != "" && privateKey != "" {
		s.signingEmail = signingEmail
		// Keys pasted into env files usually carry literal \n sequences.
		s.privateKey = []byte(strings.ReplaceAll(privateKey, `\n`, "\n"))
	}
	return s, nil
}

// NewWriter returns the SDK's resumable object writer for bucket/key.
func (s *GCSStore) NewWriter(ctx context.Context, bucket, key, contentType string) io.WriteCloser {
	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

// SignedURL signs a GET URL for bucket/key. Expiries beyond the V4 limit fall
// back to the V2 scheme, which has no upper bound.
func (s *GCSStore) SignedURL(_ context.Context, bucket, key string, expires time.Time) (string, error) {
	scheme := gcs.SigningSchemeV4
	if time.Until(expires) > maxV4Expiry {
		scheme = gcs.SigningSchemeV2
	}

	opts := &gcs.SignedURLOptions{
		Scheme:  scheme,
		Method:  http.MethodGet,
		Expires: expires,
	}
	if s.signingEmail != "" {
		opts.GoogleAccessID = s.signingEmail
		opts.PrivateKey = s.privateKey
	}

	url, err := s.client.Bucket(bucket).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("sign url %s/%s: %w", bucket, key, err)
	}
	return url, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
