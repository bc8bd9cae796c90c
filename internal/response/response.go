// Package response holds the JSON envelope written by every handler and the
// matching request body decoder.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps JSON request bodies. Uploads are multipart and have their
// own limit.
const maxBodyBytes int64 = 64 << 10

// Envelope wraps every JSON reply. Failures carry a human-readable message
// for the admin UI.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// JSON writes payload with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 envelope around data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 envelope around data.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Error writes a failed envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Message: message})
}

func BadRequest(w http.ResponseWriter, message string)   { Error(w, http.StatusBadRequest, message) }
func Unauthorized(w http.ResponseWriter, message string) { Error(w, http.StatusUnauthorized, message) }
func Forbidden(w http.ResponseWriter, message string)    { Error(w, http.StatusForbidden, message) }
func NotFound(w http.ResponseWriter, message string)     { Error(w, http.StatusNotFound, message) }

// BadGateway is for failures of an upstream provider such as object storage.
func BadGateway(w http.ResponseWriter, message string) { Error(w, http.StatusBadGateway, message) }

// InternalError hides the cause behind a generic message.
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "internal server error")
}

// Decode reads a single JSON object from r into dst. Unknown fields, trailing
// data and bodies over 64 KiB are rejected.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode body: unexpected data after JSON object")
	}
	return nil
}
