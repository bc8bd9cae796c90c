// Package upload validates client files, writes them to object storage with a
// single bucket-name fallback, and issues long-lived read URLs.
package upload

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

// File is one client-supplied payload. It lives only for the request.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Target is where a file is written. Key is fixed for the life of one upload
// so the alternate-bucket attempt reuses it.
type Target struct {
	Bucket string
	Key    string
}

// DetectContentType keeps a meaningful declared type and sniffs the payload
// when the client sent none or a generic octet-stream.
func DetectContentType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && !strings.EqualFold(declared, octetStream) {
		return declared
	}
	if len(data) == 0 {
		return octetStream
	}
	return mimetype.Detect(data).String()
}
