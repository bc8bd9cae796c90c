package upload

import (
	"context"
	"time"

	"github.com/marketsite/api/internal/storage"
)

// issueURL requests a read URL for an object that has just been written.
func issueURL(ctx context.Context, store storage.Store, t Target, ttl time.Duration, now time.Time) (string, error) {
	return store.SignedURL(ctx, t.Bucket, t.Key, now.Add(ttl))
}
