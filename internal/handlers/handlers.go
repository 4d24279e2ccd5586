package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/diamondsistem/offerpricing/internal/config"
	"github.com/diamondsistem/offerpricing/internal/logging"
	"github.com/diamondsistem/offerpricing/internal/services"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// Pinger is a dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers provides the HTTP API for pricing offers.
type Handlers struct {
	config *config.Config
	quotes *services.QuoteService
	health map[string]Pinger
	logger *slog.Logger
}

type Dependencies struct {
	Config       *config.Config
	QuoteService *services.QuoteService
	// HealthChecks are pinged by /health, keyed by the name reported on failure.
	HealthChecks map[string]Pinger
	Logger       *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.QuoteService == nil {
		return nil, fmt.Errorf("handlers dependencies: quoteService is required")
	}

	health := make(map[string]Pinger, len(deps.HealthChecks))
	for name, pinger := range deps.HealthChecks {
		if pinger == nil {
			return nil, fmt.Errorf("handlers dependencies: health check %q is nil", name)
		}
		health[name] = pinger
	}

	return &Handlers{
		config: deps.Config,
		quotes: deps.QuoteService,
		health: health,
		logger: logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	for name, pinger := range h.health {
		if err := pinger.Ping(ctx); err != nil {
			logger.Error("health check failed", "dependency", name, "error", err)
			h.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status":     "unhealthy",
				"dependency": name,
			})
			return
		}
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":          "healthy",
		"catalog_version": h.quotes.Catalog().Version(),
	})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
