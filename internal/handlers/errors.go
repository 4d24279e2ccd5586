package handlers

import (
	"errors"
	"net/http"

	"github.com/diamondsistem/offerpricing/internal/pricing"
	"github.com/diamondsistem/offerpricing/internal/services"
)

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Field    string            `json:"field,omitempty"`
	Decision *pricing.Decision `json:"decision,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, decision *pricing.Decision) {
	noteErrorCode(r, code)
	h.writeJSON(w, r, status, errorResponse{Error: errorBody{Code: code, Message: message, Decision: decision}})
}

// writeServiceError maps pricing and quote lifecycle errors to HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *pricing.ValidationError
		reference  *pricing.ReferenceError
		rejection  *pricing.RejectionError
	)

	switch {
	case errors.As(err, &validation):
		noteErrorCode(r, "invalid_request")
		h.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: errorBody{
			Code:    "invalid_request",
			Message: validation.Error(),
			Field:   validation.Field,
		}})
	case errors.As(err, &reference):
		h.writeError(w, r, http.StatusUnprocessableEntity, "unknown_"+reference.Kind, reference.Error(), nil)
	case errors.As(err, &rejection):
		decision := rejection.Decision
		h.writeError(w, r, http.StatusConflict, "rejected", decision.Message(), &decision)
	case errors.Is(err, services.ErrQuoteNotFound):
		h.writeError(w, r, http.StatusNotFound, "quote_not_found", err.Error(), nil)
	case errors.Is(err, services.ErrQuoteAlreadyAccepted):
		h.writeError(w, r, http.StatusConflict, "already_accepted", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidFinancing):
		h.writeError(w, r, http.StatusBadRequest, "invalid_financing", err.Error(), nil)
	default:
		h.loggerFromContext(r.Context()).Error("request failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "internal", "internal server error", nil)
	}
}

func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "not_found", "route not found", nil)
}

func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not supported here", nil)
}
