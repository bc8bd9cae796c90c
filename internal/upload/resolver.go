package upload

import (
	"strings"
)

// SuffixPair rewrites a bucket name ending in From to one ending in To.
type SuffixPair struct {
	From string
	To   string
}

// FirebaseSuffixes maps between the two domains a Firebase project's default
// bucket may be published under.
var FirebaseSuffixes = []SuffixPair{
	{From: ".firebasestorage.app", To: ".appspot.com"},
	{From: ".appspot.com", To: ".firebasestorage.app"},
}

// NormalizeBucket trims whitespace, a scheme prefix such as gs:// and trailing slashes.
func NormalizeBucket(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	return strings.TrimRight(s, "/")
}

// Resolver supplies the primary bucket and at most one alternate spelling.
// It never performs I/O or retries.
type Resolver struct {
	bucket string
	pairs  []SuffixPair
}

// NewResolver normalizes configured. A nil pairs slice uses FirebaseSuffixes.
func NewResolver(configured string, pairs []SuffixPair) *Resolver {
	if pairs == nil {
		pairs = FirebaseSuffixes
	}
	return &Resolver{bucket: NormalizeBucket(configured), pairs: pairs}
}

// Alternate applies the first pair whose From suffix matches bucket.
func (r *Resolver) Alternate(bucket string) (string, bool) {
	for _, p := range r.pairs {
		if len(bucket) > len(p.From) && strings.HasSuffix(bucket, p.From) {
			return strings.TrimSuffix(bucket, p.From) + p.To, true
		}
	}
	return "", false
}

// Resolve returns the primary bucket and its alternate (empty when none).
func (r *Resolver) Resolve() (primary, alternate string, err error) {
	if r.bucket == "" {
		return "", "", &Error{Kind: KindConfiguration, Err: ErrBucketNotConfigured}
	}
	alternate, _ = r.Alternate(r.bucket)
	return r.bucket, alternate, nil
}
