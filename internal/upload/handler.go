package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/marketsite/api/internal/logger"
	"github.com/marketsite/api/internal/response"
)

const (
	singleField   = "image"
	multipleField = "images"

	// multipartOverhead allows for boundaries and part headers on top of file bytes.
	multipartOverhead int64 = 1 << 20
	maxFormMemory     int64 = 32 << 20
)

// Handler holds HTTP handlers for the upload endpoints.
type Handler struct {
	svc      *Service
	maxBytes int64
	maxFiles int
}

// NewHandler creates a new upload Handler. The body limits follow the
// service's validation rules; a rule without a size limit leaves the body
// uncapped.
func NewHandler(svc *Service) *Handler {
	maxBytes := svc.opts.Rules.MaxBytes
	maxFiles := svc.opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 10
	}
	return &Handler{svc: svc, maxBytes: maxBytes, maxFiles: maxFiles}
}

type singleUploadData struct {
	Success  bool   `json:"success" example:"true"`
	ImageURL string `json:"imageUrl" example:"https://storage.googleapis.com/proj.appspot.com/uploads/1700000000000-1a2b3c4d-hero.png?Expires=..."`
}

type multipleUploadData struct {
	Success   bool     `json:"success" example:"true"`
	ImageURLs []string `json:"imageUrls"`
}

// UploadSingle godoc
//
//	@Summary		Upload one image
//	@Description	Stores one image (field "image", image/*, at most 5 MiB) and returns a long-lived read URL.
//	@Tags			upload
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			image	formData	file	true	"Image file"
//	@Success		200		{object}	singleUploadData
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Router			/upload [post]
func (h *Handler) UploadSingle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	headers, ok := h.parseForm(w, r, singleField, 1)
	if !ok {
		return
	}
	if len(headers) == 0 {
		response.BadRequest(w, "No file uploaded")
		return
	}

	f, err := h.readFile(headers[0])
	if err != nil {
		logger.Error(ctx, "failed to read uploaded file", err)
		response.BadRequest(w, "invalid file")
		return
	}

	res := h.svc.Upload(ctx, f)
	if !res.Done() {
		writeFailure(w, res.Err, "Failed to upload image")
		return
	}

	response.JSON(w, http.StatusOK, singleUploadData{Success: true, ImageURL: res.URL})
}

// UploadMultiple godoc
//
//	@Summary		Upload several images
//	@Description	Stores up to 10 images (field "images") concurrently. URLs are returned in input order. Any single failure fails the whole request.
//	@Tags			upload
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			images	formData	file	true	"Image files"
//	@Success		200		{object}	multipleUploadData
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Router			/upload/multiple [post]
func (h *Handler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	headers, ok := h.parseForm(w, r, multipleField, h.maxFiles)
	if !ok {
		return
	}

	files := make([]File, 0, len(headers))
	for _, fh := range headers {
		f, err := h.readFile(fh)
		if err != nil {
			logger.Error(ctx, "failed to read uploaded file", err, logger.Fields{"filename": fh.Filename})
			response.BadRequest(w, "invalid file")
			return
		}
		files = append(files, f)
	}

	batch, err := h.svc.UploadBatch(ctx, files)
	if err != nil {
		for i, res := range batch.Results {
			if !res.Done() {
				logger.Warn(ctx, "file in batch failed", logger.Fields{
					"index": i,
					"state": res.State.String(),
					"kind":  KindOf(res.Err).String(),
				})
			}
		}
		writeFailure(w, err, "Failed to upload images")
		return
	}

	response.JSON(w, http.StatusOK, multipleUploadData{Success: true, ImageURLs: batch.URLs()})
}

// parseForm parses the multipart body under a size cap and returns the parts
// for field. It writes the error response itself and returns false on failure.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request, field string, maxFiles int) ([]*multipart.FileHeader, bool) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(maxFiles)*h.maxBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.BadRequest(w, "File too large")
			return nil, false
		}
		response.BadRequest(w, "invalid multipart form")
		return nil, false
	}

	headers := r.MultipartForm.File[field]
	if len(headers) > maxFiles {
		response.BadRequest(w, fmt.Sprintf("Too many files, at most %d allowed", maxFiles))
		return nil, false
	}
	return headers, true
}

// readFile loads the part. With a size limit at most maxBytes+1 bytes are
// read; a part over the limit is rejected by validation on its Size, so its
// data never reaches storage. Any other short read is an error.
func (h *Handler) readFile(fh *multipart.FileHeader) (File, error) {
	src, err := fh.Open()
	if err != nil {
		return File{}, fmt.Errorf("open part %q: %w", fh.Filename, err)
	}
	defer src.Close()

	var r io.Reader = src
	oversized := false
	if h.maxBytes > 0 {
		r = io.LimitReader(src, h.maxBytes+1)
		oversized = fh.Size > h.maxBytes
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("read part %q: %w", fh.Filename, err)
	}
	if !oversized && int64(len(data)) != fh.Size {
		return File{}, fmt.Errorf("read part %q: got %d bytes, header says %d", fh.Filename, len(data), fh.Size)
	}

	return File{
		Name:        fh.Filename,
		ContentType: DetectContentType(fh.Header.Get("Content-Type"), data),
		Size:        fh.Size,
		Data:        data,
	}, nil
}

func writeFailure(w http.ResponseWriter, err error, fallback string) {
	switch KindOf(err) {
	case KindValidation:
		response.BadRequest(w, validationMessage(err))
	case KindConfiguration:
		response.Error(w, http.StatusInternalServerError, "Storage bucket not configured")
	default:
		response.BadGateway(w, fallback)
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedType):
		return "Only image files are allowed"
	case errors.Is(err, ErrTooLarge):
		return "File too large"
	case errors.Is(err, ErrTooManyFiles):
		return "Too many files"
	case errors.Is(err, ErrNoFiles):
		return "No files uploaded"
	default:
		return "invalid file"
	}
}
