package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/diamondsistem/offerpricing/internal/logging"
	"github.com/diamondsistem/offerpricing/internal/pricing"
	"github.com/diamondsistem/offerpricing/internal/services"
)

// CreateQuote prices an offer and returns it as a draft.
func (h *Handlers) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var input pricing.QuoteInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return
	}

	quote, err := h.quotes.Preview(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	noteQuote(r, quote.ID.String())
	w.Header().Set("Location", "/quotes/"+quote.ID.String())
	h.writeJSON(w, r, http.StatusCreated, quote)
}

func (h *Handlers) GetQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}

	quote, err := h.quotes.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, quote)
}

func (h *Handlers) AcceptQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}

	var input services.AcceptInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return
	}

	ctx := logging.With(r.Context(), h.logger, "quote_id", id)
	quote, err := h.quotes.Accept(ctx, id, input)
	if err != nil {
		h.writeServiceError(w, r.WithContext(ctx), err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, quote)
}

// PaymentPlan previews financing for ?months=N. Months defaults to the accepted plan
// when the quote is already accepted.
func (h *Handlers) PaymentPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}

	months := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("months")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid_request", "months must be an integer", nil)
			return
		}
		months = parsed
	} else if quote, err := h.quotes.Get(r.Context(), id); err == nil && quote.Acceptance != nil {
		months = quote.Acceptance.FinancingMonths
	}

	options, err := h.quotes.PaymentPlan(r.Context(), id, months)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, options)
}

// CheckSelection answers whether one more unit of a service can join the selection.
// A rejected addition is a normal answer, not an error.
func (h *Handlers) CheckSelection(w http.ResponseWriter, r *http.Request) {
	var req pricing.IncrementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return
	}

	decision, err := h.quotes.CheckAddition(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, struct {
		pricing.Decision
		Message string `json:"message"`
	}{Decision: decision, Message: decision.Message()})
}

func (h *Handlers) quoteID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "quote_not_found", "quote not found", nil)
		return uuid.Nil, false
	}
	return id, true
}
