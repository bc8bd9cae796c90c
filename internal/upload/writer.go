package upload

import (
	"bytes"
	"context"
	"io"

	"github.com/marketsite/api/internal/storage"
)

// writeObject streams f into t and waits for the stream to finish. A failed
// copy still closes the writer; the copy error wins.
func writeObject(ctx context.Context, store storage.Store, t Target, f File) error {
	w := store.NewWriter(ctx, t.Bucket, t.Key, f.ContentType)
	if _, err := io.Copy(w, bytes.NewReader(f.Data)); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
