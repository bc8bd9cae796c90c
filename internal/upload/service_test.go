package upload

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsite/api/internal/storage"
)

var errNotFound = errors.New("storage: bucket not found (404)")

func newTestService(store *fakeStore, bucket string) *Service {
	svc := NewService(store, NewResolver(bucket, nil), Options{
		Rules:        ImageRules(0),
		KeyPrefix:    "uploads",
		SignedURLTTL: time.Hour,
		Timeout:      time.Second,
		MaxFiles:     10,
	})
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func imageFile(name string) File {
	data := []byte("fake image bytes for " + name)
	return File{Name: name, ContentType: "image/png", Size: int64(len(data)), Data: data}
}

func TestUpload_NonImageMakesNoStorageCalls(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, "proj.firebasestorage.app")

	res := svc.Upload(context.Background(), File{Name: "doc.pdf", ContentType: "application/pdf", Size: 10, Data: []byte("0123456789")})

	assert.False(t, res.Done())
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, KindValidation, KindOf(res.Err))
	assert.Empty(t, store.writeCalls())
	assert.Empty(t, store.signCalls())
}

func TestUpload_MissingBucketIsConfigurationError(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, "")

	res := svc.Upload(context.Background(), imageFile("a.png"))

	assert.Equal(t, KindConfiguration, KindOf(res.Err))
	assert.ErrorIs(t, res.Err, ErrBucketNotConfigured)
	assert.Empty(t, store.writeCalls())
}

func TestUpload_PrimarySuccess(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, "site-media")
	f := imageFile("hero.png")

	res := svc.Upload(context.Background(), f)

	require.True(t, res.Done(), "err: %v", res.Err)
	assert.Equal(t, "site-media", res.Target.Bucket)
	assert.True(t, strings.HasPrefix(res.Target.Key, "uploads/1700000000000-"))
	assert.Contains(t, res.URL, "site-media/"+res.Target.Key)
	assert.Len(t, res.Attempts, 1)
	assert.Equal(t, f.Data, store.written["site-media/"+res.Target.Key])
	assert.Equal(t, "image/png", store.writeCalls()[0].ContentType)
}

func TestUpload_FallbackToAlternateBucket(t *testing.T) {
	store := newFakeStore()
	store.writeErr = func(bucket, _ string) error {
		if bucket == "proj.firebasestorage.app" {
			return errNotFound
		}
		return nil
	}
	svc := newTestService(store, "proj.firebasestorage.app")

	res := svc.Upload(context.Background(), imageFile("team.png"))

	require.True(t, res.Done(), "err: %v", res.Err)
	writes := store.writeCalls()
	require.Len(t, writes, 2)
	assert.Equal(t, "proj.firebasestorage.app", writes[0].Bucket)
	assert.Equal(t, "proj.appspot.com", writes[1].Bucket)
	assert.Equal(t, writes[0].Key, writes[1].Key, "alternate attempt must reuse the key")

	assert.Equal(t, Target{Bucket: "proj.appspot.com", Key: writes[0].Key}, res.Target)
	signs := store.signCalls()
	require.Len(t, signs, 1)
	assert.Equal(t, "proj.appspot.com", signs[0].Bucket)
	assert.Equal(t, writes[0].Key, signs[0].Key)
	assert.Contains(t, res.URL, "proj.appspot.com/"+writes[0].Key)

	require.Len(t, res.Attempts, 2)
	assert.ErrorIs(t, res.Attempts[0].Err, errNotFound)
	assert.NoError(t, res.Attempts[1].Err)
}

func TestUpload_ProviderNotFoundSentinelTriggersFallback(t *testing.T) {
	store := newFakeStore()
	store.writeErr = func(bucket, _ string) error {
		if bucket == "proj.appspot.com" {
			return storage.ErrNotFound
		}
		return nil
	}
	svc := newTestService(store, "proj.appspot.com")

	res := svc.Upload(context.Background(), imageFile("a.png"))

	require.True(t, res.Done())
	assert.Equal(t, "proj.firebasestorage.app", res.Target.Bucket)
}

func TestUpload_OtherWriteErrorIsNotRetried(t *testing.T) {
	store := newFakeStore()
	denied := errors.New("403 forbidden: permission denied")
	store.writeErr = func(string, string) error { return denied }
	svc := newTestService(store, "proj.firebasestorage.app")

	res := svc.Upload(context.Background(), imageFile("a.png"))

	assert.Equal(t, KindWrite, KindOf(res.Err))
	assert.ErrorIs(t, res.Err, denied)
	assert.Len(t, store.writeCalls(), 1)
	assert.Empty(t, store.signCalls())
}

func TestUpload_NotFoundWithoutAlternateIsTerminal(t *testing.T) {
	store := newFakeStore()
	store.writeErr = func(string, string) error { return errNotFound }
	svc := newTestService(store, "site-media")

	res := svc.Upload(context.Background(), imageFile("a.png"))

	assert.Equal(t, KindTargetNotFound, KindOf(res.Err))
	assert.Len(t, store.writeCalls(), 1)
}

func TestUpload_AlternateFailureIsTerminal(t *testing.T) {
	store := newFakeStore()
	store.writeErr = func(string, string) error { return errNotFound }
	svc := newTestService(store, "proj.firebasestorage.app")

	res := svc.Upload(context.Background(), imageFile("a.png"))

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, KindTargetNotFound, KindOf(res.Err))
	var uerr *Error
	require.ErrorAs(t, res.Err, &uerr)
	assert.Equal(t, "proj.appspot.com", uerr.Bucket)
	assert.Len(t, store.writeCalls(), 2, "never a third attempt")
	assert.Empty(t, store.signCalls())
}

func TestUpload_SigningFailureIsDistinct(t *testing.T) {
	store := newFakeStore()
	store.signErr = errors.New("cannot sign without a private key")
	svc := newTestService(store, "site-media")

	res := svc.Upload(context.Background(), imageFile("a.png"))

	assert.Equal(t, KindSigning, KindOf(res.Err))
	assert.Len(t, store.writeCalls(), 1, "no further write after signing fails")
	assert.Len(t, store.written, 1, "object is not rolled back")
}

func TestUpload_TimeoutBoundsWrite(t *testing.T) {
	store := newFakeStore()
	store.blockClose = true
	svc := newTestService(store, "site-media")
	svc.opts.Timeout = 20 * time.Millisecond

	start := time.Now()
	res := svc.Upload(context.Background(), imageFile("a.png"))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, KindWrite, KindOf(res.Err))
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestUpload_SignedURLUsesConfiguredTTL(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, "site-media")
	svc.opts.SignedURLTTL = 24 * time.Hour

	res := svc.Upload(context.Background(), imageFile("a.png"))

	require.True(t, res.Done())
	assert.Contains(t, res.URL, "exp=1700086400")
}

func TestUploadBatch_AllSucceedInOrder(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, "site-media")
	files := []File{imageFile("one.png"), imageFile("two.png"), imageFile("three.png")}

	batch, err := svc.UploadBatch(context.Background(), files)

	require.NoError(t, err)
	urls := batch.URLs()
	require.Len(t, urls, 3)
	assert.Contains(t, urls[0], "one.png")
	assert.Contains(t, urls[1], "two.png")
	assert.Contains(t, urls[2], "three.png")
}

func TestUploadBatch_OneFailureFailsBatch(t *testing.T) {
	store := newFakeStore()
	store.writeErr = func(_, key string) error {
		if strings.HasSuffix(key, "-two.png") {
			return errors.New("connection reset by peer")
		}
		return nil
	}
	svc := newTestService(store, "site-media")
	files := []File{imageFile("one.png"), imageFile("two.png"), imageFile("three.png")}

	batch, err := svc.UploadBatch(context.Background(), files)

	require.Error(t, err)
	assert.Equal(t, KindBatch, KindOf(err))
	require.Len(t, batch.Results, 3)
	assert.True(t, batch.Results[0].Done())
	assert.Equal(t, StateFailed, batch.Results[1].State)
	assert.Equal(t, KindWrite, KindOf(batch.Results[1].Err))
	assert.True(t, batch.Results[2].Done())
}

func TestUploadBatch_CancelledRequestStopsEveryUpload(t *testing.T) {
	store := newFakeStore()
	store.blockClose = true
	svc := newTestService(store, "site-media")
	svc.opts.Timeout = time.Minute
	files := []File{imageFile("one.png"), imageFile("two.png"), imageFile("three.png")}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	batch, err := svc.UploadBatch(ctx, files)

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Error(t, err)
	assert.Equal(t, KindBatch, KindOf(err))
	require.Len(t, batch.Results, 3)
	for i, res := range batch.Results {
		assert.Equal(t, StateFailed, res.State, "file %d", i)
		assert.ErrorIs(t, res.Err, context.Canceled, "file %d", i)
	}
	assert.Empty(t, store.signCalls())
}

func TestUploadBatch_InvalidFileStopsBeforeAnyWrite(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, "site-media")
	files := []File{imageFile("one.png"), {Name: "notes.txt", ContentType: "text/plain", Size: 4, Data: []byte("text")}}

	_, err := svc.UploadBatch(context.Background(), files)

	assert.Equal(t, KindValidation, KindOf(err))
	assert.Empty(t, store.writeCalls())
}

func TestUploadBatch_Limits(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, "site-media")

	_, err := svc.UploadBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFiles)

	files := make([]File, 11)
	for i := range files {
		files[i] = imageFile("a.png")
	}
	_, err = svc.UploadBatch(context.Background(), files)
	assert.ErrorIs(t, err, ErrTooManyFiles)
	assert.Empty(t, store.writeCalls())
}

func TestUploadBatch_MissingBucket(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, "")

	_, err := svc.UploadBatch(context.Background(), []File{imageFile("a.png")})

	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.Empty(t, store.writeCalls())
}
