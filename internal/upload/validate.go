package upload

import (
	"fmt"
	"strings"
)

// DefaultMaxBytes is the per-file ceiling for image uploads.
const DefaultMaxBytes int64 = 5 << 20

// Rules is the validation gate. It is pure: no I/O happens here.
type Rules struct {
	// TypePrefix the declared MIME type must start with. Empty accepts any type.
	TypePrefix string
	// MaxBytes is inclusive. Zero or less disables the check.
	MaxBytes int64
}

// ImageRules accepts image/* up to maxBytes (DefaultMaxBytes when <= 0).
func ImageRules(maxBytes int64) Rules {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return Rules{TypePrefix: "image/", MaxBytes: maxBytes}
}

// Check returns a KindValidation error when f breaks the rules.
func (r Rules) Check(f File) error {
	if r.TypePrefix != "" && !strings.HasPrefix(strings.ToLower(f.ContentType), r.TypePrefix) {
		return &Error{Kind: KindValidation, Err: fmt.Errorf("%w: %q is %q", ErrUnsupportedType, f.Name, f.ContentType)}
	}
	if r.MaxBytes > 0 && f.Size > r.MaxBytes {
		return &Error{Kind: KindValidation, Err: fmt.Errorf("%w: %q is %d bytes, limit %d", ErrTooLarge, f.Name, f.Size, r.MaxBytes)}
	}
	return nil
}
