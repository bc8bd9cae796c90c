package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBucket(t *testing.T) {
	tests := map[string]string{
		"proj.appspot.com":               "proj.appspot.com",
		"  proj.appspot.com \n":          "proj.appspot.com",
		"gs://proj.firebasestorage.app":  "proj.firebasestorage.app",
		"https://proj.appspot.com/":      "proj.appspot.com",
		" gs://site-media/ ":             "site-media",
		"":                               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeBucket(in), "input %q", in)
	}
}

func TestResolver_Alternate(t *testing.T) {
	r := NewResolver("", nil)

	alt, ok := r.Alternate("proj.firebasestorage.app")
	require.True(t, ok)
	assert.Equal(t, "proj.appspot.com", alt)

	alt, ok = r.Alternate("proj.appspot.com")
	require.True(t, ok)
	assert.Equal(t, "proj.firebasestorage.app", alt)

	_, ok = r.Alternate("site-media")
	assert.False(t, ok)

	_, ok = r.Alternate(".appspot.com")
	assert.False(t, ok, "a bare suffix is not a bucket name")
}

func TestResolver_AlternateIsInvolution(t *testing.T) {
	r := NewResolver("", nil)
	for _, name := range []string{"proj.firebasestorage.app", "my-site-123.appspot.com"} {
		once, ok := r.Alternate(name)
		require.True(t, ok)
		twice, ok := r.Alternate(once)
		require.True(t, ok)
		assert.Equal(t, name, twice)
	}
}

func TestResolver_Resolve(t *testing.T) {
	primary, alternate, err := NewResolver(" gs://proj.firebasestorage.app ", nil).Resolve()
	require.NoError(t, err)
	assert.Equal(t, "proj.firebasestorage.app", primary)
	assert.Equal(t, "proj.appspot.com", alternate)

	primary, alternate, err = NewResolver("site-media", nil).Resolve()
	require.NoError(t, err)
	assert.Equal(t, "site-media", primary)
	assert.Empty(t, alternate)

	_, _, err = NewResolver("   ", nil).Resolve()
	assert.ErrorIs(t, err, ErrBucketNotConfigured)
	assert.Equal(t, KindConfiguration, KindOf(err))
}

func TestResolver_CustomPairsFirstMatchWins(t *testing.T) {
	pairs := []SuffixPair{
		{From: ".example.com", To: ".example.net"},
		{From: ".com", To: ".org"},
	}
	alt, ok := NewResolver("", pairs).Alternate("media.example.com")
	require.True(t, ok)
	assert.Equal(t, "media.example.net", alt)
}
