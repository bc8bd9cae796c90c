package upload

import (
	"errors"
	"fmt"
)

// Kind classifies why an upload did not reach StateDone.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: wrong MIME class, oversize payload, or a bad file count. No I/O was attempted.
	KindValidation
	// KindConfiguration: no bucket configured. Needs an operator.
	KindConfiguration
	// KindTargetNotFound: the last write attempt failed because the bucket does not exist.
	KindTargetNotFound
	// KindWrite: the write stream failed for any other reason.
	KindWrite
	// KindSigning: the object was written but no read URL could be issued.
	KindSigning
	// KindBatch: at least one file in a batch failed.
	KindBatch
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindTargetNotFound:
		return "target_not_found"
	case KindWrite:
		return "write"
	case KindSigning:
		return "signing"
	case KindBatch:
		return "batch"
	default:
		return "unknown"
	}
}

var (
	ErrBucketNotConfigured = errors.New("storage bucket not configured")
	ErrUnsupportedType     = errors.New("only image files are allowed")
	ErrTooLarge            = errors.New("file too large")
	ErrNoFiles             = errors.New("no file uploaded")
	ErrTooManyFiles        = errors.New("too many files")
)

// Error is a classified upload failure. Bucket and Key are set when a storage
// target was involved.
type Error struct {
	Kind   Kind
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("upload %s %s/%s: %v", e.Kind, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("upload %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
