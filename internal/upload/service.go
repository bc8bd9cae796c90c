package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marketsite/api/internal/logger"
	"github.com/marketsite/api/internal/storage"
)

// State is a step of a single upload.
type State int

const (
	StateValidating State = iota
	StateWritingPrimary
	StateWritingAlternate
	StateSigning
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateWritingPrimary:
		return "writing_primary"
	case StateWritingAlternate:
		return "writing_alternate"
	case StateSigning:
		return "signing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt records one write against one bucket.
type Attempt struct {
	Bucket string
	Err    error
}

// Result is the outcome of one upload: StateDone with URL, or StateFailed
// with a classified *Error in Err.
type Result struct {
	URL      string
	Target   Target
	State    State
	Attempts []Attempt
	Err      error
}

// Done reports whether the upload produced a URL.
func (r Result) Done() bool {
	return r.State == StateDone
}

func (r Result) fail(err error) Result {
	r.State = StateFailed
	r.Err = err
	return r
}

// BatchResult holds per-file results in input order.
type BatchResult struct {
	Results []Result
}

// URLs returns the URL of every result, positionally.
func (b BatchResult) URLs() []string {
	urls := make([]string, len(b.Results))
	for i, r := range b.Results {
		urls[i] = r.URL
	}
	return urls
}

// Err is nil when every file is done, otherwise a KindBatch error joining the
// per-file failures.
func (b BatchResult) Err() error {
	var errs []error
	for i, r := range b.Results {
		if !r.Done() {
			errs = append(errs, fmt.Errorf("file %d: %w", i, r.Err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &Error{Kind: KindBatch, Err: errors.Join(errs...)}
}

// Options tune a Service.
type Options struct {
	Rules        Rules
	KeyPrefix    string
	SignedURLTTL time.Duration
	// Timeout bounds the write and signing steps of one upload. Zero disables it.
	Timeout  time.Duration
	MaxFiles int
}

// Service runs uploads against a Store.
type Service struct {
	store    storage.Store
	resolver *Resolver
	opts     Options
	now      func() time.Time
}

// NewService creates a new upload Service.
func NewService(store storage.Store, resolver *Resolver, opts Options) *Service {
	return &Service{store: store, resolver: resolver, opts: opts, now: time.Now}
}

// Upload validates f, writes it (falling back to the alternate bucket once on
// a not-found failure) and issues a read URL.
func (s *Service) Upload(ctx context.Context, f File) Result {
	res := Result{State: StateValidating}
	if err := s.opts.Rules.Check(f); err != nil {
		return res.fail(err)
	}
	return s.run(ctx, f)
}

// UploadBatch validates every file up front, then uploads them concurrently.
// The returned error is non-nil if any file failed; per-file outcomes stay in
// the BatchResult either way.
func (s *Service) UploadBatch(ctx context.Context, files []File) (BatchResult, error) {
	if len(files) == 0 {
		return BatchResult{}, &Error{Kind: KindValidation, Err: ErrNoFiles}
	}
	if s.opts.MaxFiles > 0 && len(files) > s.opts.MaxFiles {
		return BatchResult{}, &Error{Kind: KindValidation, Err: fmt.Errorf("%w: got %d, limit %d", ErrTooManyFiles, len(files), s.opts.MaxFiles)}
	}
	for _, f := range files {
		if err := s.opts.Rules.Check(f); err != nil {
			return BatchResult{}, err
		}
	}
	if _, _, err := s.resolver.Resolve(); err != nil {
		return BatchResult{}, err
	}

	results := make([]Result, len(files))
	var g errgroup.Group
	for i, f := range files {
		g.Go(func() error {
			results[i] = s.run(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	batch := BatchResult{Results: results}
	if err := batch.Err(); err != nil {
		logger.Warn(ctx, "batch upload failed", logger.Fields{
			"files":  len(files),
			"failed": countFailed(results),
		})
		return batch, err
	}
	return batch, nil
}

func (s *Service) run(ctx context.Context, f File) Result {
	res := Result{State: StateValidating}

	primary, alternate, err := s.resolver.Resolve()
	if err != nil {
		logger.Error(ctx, "upload rejected", err)
		return res.fail(err)
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	target := Target{Bucket: primary, Key: NewKey(s.opts.KeyPrefix, f.Name, s.now())}
	res.Target = target
	res.State = StateWritingPrimary

	err = writeObject(ctx, s.store, target, f)
	res.Attempts = append(res.Attempts, Attempt{Bucket: target.Bucket, Err: err})

	if err != nil && alternate != "" && storage.IsNotFound(err) {
		logger.Warn(ctx, "bucket not found, retrying with alternate name", logger.Fields{
			"bucket":    primary,
			"alternate": alternate,
			"key":       target.Key,
		})
		target.Bucket = alternate
		res.Target = target
		res.State = StateWritingAlternate

		err = writeObject(ctx, s.store, target, f)
		res.Attempts = append(res.Attempts, Attempt{Bucket: target.Bucket, Err: err})
	}

	if err != nil {
		kind := KindWrite
		if storage.IsNotFound(err) {
			kind = KindTargetNotFound
		}
		uerr := &Error{Kind: kind, Bucket: target.Bucket, Key: target.Key, Err: err}
		logger.Error(ctx, "object write failed", uerr, logger.Fields{"attempts": len(res.Attempts)})
		return res.fail(uerr)
	}

	res.State = StateSigning
	url, err := issueURL(ctx, s.store, target, s.opts.SignedURLTTL, s.now())
	if err != nil {
		uerr := &Error{Kind: KindSigning, Bucket: target.Bucket, Key: target.Key, Err: err}
		logger.Error(ctx, "signed url request failed; object left in place", uerr)
		return res.fail(uerr)
	}

	res.URL = url
	res.State = StateDone
	logger.Info(ctx, "file uploaded", logger.Fields{
		"bucket": target.Bucket,
		"key":    target.Key,
		"size":   f.Size,
	})
	return res
}

func countFailed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Done() {
			n++
		}
	}
	return n
}
