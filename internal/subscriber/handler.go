package subscriber

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marketsite/api/internal/logger"
	"github.com/marketsite/api/internal/response"
)

// Handler holds HTTP handlers for subscriber endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new subscriber Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type subscribeRequest struct {
	Email string `json:"email" example:"reader@example.com"`
}

// Subscribe godoc
//
//	@Summary		Subscribe to the newsletter
//	@Description	Record an email address. Subscribing an existing address returns the existing record.
//	@Tags			subscribers
//	@Accept			json
//	@Produce		json
//	@Param			request	body		subscribeRequest				true	"Email address"
//	@Success		201		{object}	response.Envelope{data=Subscriber}
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/subscribers [post]
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	sub, err := h.svc.Subscribe(r.Context(), req.Email)
	if errors.Is(err, ErrInvalidEmail) {
		response.BadRequest(w, "invalid email address")
		return
	}
	if err != nil {
		logger.Error(r.Context(), "failed to subscribe", err)
		response.InternalError(w)
		return
	}

	response.Created(w, sub)
}

// List godoc
//
//	@Summary		List subscribers
//	@Tags			subscribers
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=[]Subscriber}
//	@Failure		401	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/subscribers [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.List(r.Context())
	if err != nil {
		logger.Error(r.Context(), "failed to list subscribers", err)
		response.InternalError(w)
		return
	}
	if subs == nil {
		subs = []Subscriber{}
	}
	response.OK(w, subs)
}

// Delete godoc
//
//	@Summary		Remove a subscriber
//	@Tags			subscribers
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Subscriber ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/subscribers/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Unsubscribe(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, "subscriber not found")
		return
	}
	if err != nil {
		logger.Error(r.Context(), "failed to delete subscriber", err)
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]bool{"deleted": true})
}
