package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type call struct {
	Bucket      string
	Key         string
	ContentType string
}

// fakeStore records every call. writeErr decides the outcome of a write when set.
type fakeStore struct {
	mu       sync.Mutex
	writes   []call
	signs    []call
	written  map[string][]byte
	writeErr func(bucket, key string) error
	signErr  error
	// blockClose makes Close wait for the context to end.
	blockClose bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{written: map[string][]byte{}}
}

func (s *fakeStore) NewWriter(ctx context.Context, bucket, key, contentType string) io.WriteCloser {
	s.mu.Lock()
	s.writes = append(s.writes, call{Bucket: bucket, Key: key, ContentType: contentType})
	s.mu.Unlock()
	return &fakeWriter{ctx: ctx, store: s, bucket: bucket, key: key}
}

func (s *fakeStore) SignedURL(_ context.Context, bucket, key string, expires time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signs = append(s.signs, call{Bucket: bucket, Key: key})
	if s.signErr != nil {
		return "", s.signErr
	}
	return fmt.Sprintf("https://signed.example/%s/%s?exp=%d", bucket, key, expires.Unix()), nil
}

func (s *fakeStore) writeCalls() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.writes...)
}

func (s *fakeStore) signCalls() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.signs...)
}

type fakeWriter struct {
	ctx    context.Context
	store  *fakeStore
	bucket string
	key    string
	buf    bytes.Buffer
}

func (w *fakeWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *fakeWriter) Close() error {
	if w.store.blockClose {
		<-w.ctx.Done()
		return w.ctx.Err()
	}
	if w.store.writeErr != nil {
		if err := w.store.writeErr(w.bucket, w.key); err != nil {
			return err
		}
	}
	w.store.mu.Lock()
	w.store.written[w.bucket+"/"+w.key] = w.buf.Bytes()
	w.store.mu.Unlock()
	return nil
}
