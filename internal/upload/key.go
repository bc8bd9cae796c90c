package upload

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNameLen = 100

// NewKey builds "<prefix>/<unix millis>-<8 hex>-<sanitized name>".
func NewKey(prefix, original string, now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := fmt.Sprintf("%d-%s-%s", now.UnixMilli(), id, sanitizeName(original))

	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// sanitizeName keeps the base name and replaces anything outside [A-Za-z0-9._-].
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	out := strings.Trim(b.String(), ".-")
	if out == "" {
		return "file"
	}
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	return out
}
