package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/marketsite/api/internal/logger"
	"github.com/marketsite/api/internal/response"
)

// Handler holds HTTP handlers for auth endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	Password string `json:"password" example:"s3cret"`
}

type loginData struct {
	Token     string    `json:"token"     example:"eyJhbGci..."`
	ExpiresAt time.Time `json:"expiresAt" example:"2026-10-17T12:00:00Z"`
}

// Login godoc
//
//	@Summary		Admin login
//	@Description	Exchange the shared admin password for a bearer token valid for 24 hours.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest					true	"Admin password"
//	@Success		200		{object}	response.Envelope{data=loginData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		503		{object}	response.Envelope
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Password == "" {
		response.BadRequest(w, "password is required")
		return
	}

	token, expiresAt, err := h.svc.Login(req.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		logger.Warn(r.Context(), "admin login rejected")
		response.Unauthorized(w, "invalid credentials")
		return
	case errors.Is(err, ErrLoginDisabled):
		response.Error(w, http.StatusServiceUnavailable, "admin login is not configured")
		return
	case err != nil:
		logger.Error(r.Context(), "admin login failed", err)
		response.InternalError(w)
		return
	}

	response.OK(w, loginData{Token: token, ExpiresAt: expiresAt})
}
