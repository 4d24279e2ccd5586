package handlers

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/diamondsistem/offerpricing/internal/config"
	"github.com/diamondsistem/offerpricing/internal/observability"
)

// SecurityHeaders sets baseline security headers for all responses.
func (h *Handlers) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		headers.Set("Cross-Origin-Resource-Policy", "same-site")
		// Quotes carry prices that change with the catalog.
		headers.Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// RequireAllowedOrigin blocks state-changing browser requests from origins other than the
// API host and ALLOWED_ORIGINS. Requests without Origin or Referer come from server-side
// clients and pass through.
func (h *Handlers) RequireAllowedOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requestMutatesState(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		meter := observability.MeterFromContext(r.Context())
		meter.Count("security.origin.checked", 1)

		header, value := "origin", strings.TrimSpace(r.Header.Get("Origin"))
		if value == "" {
			header, value = "referer", strings.TrimSpace(r.Header.Get("Referer"))
		}
		if value == "" {
			next.ServeHTTP(w, r)
			return
		}

		if ok, err := h.headerMatchesAllowedHost(value, r); err != nil || !ok {
			meter.Count("security.origin.blocked", 1, sentry.WithAttributes(attribute.String("reason", "invalid_"+header)))
			h.loggerFromContext(r.Context()).Warn("blocked state-changing request from disallowed origin", header, value, "error", err)
			h.writeError(w, r, http.StatusForbidden, "forbidden", "origin not allowed", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requestMutatesState(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func (h *Handlers) headerMatchesAllowedHost(value string, r *http.Request) (bool, error) {
	parsed, err := url.Parse(value)
	if err != nil {
		return false, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Host == "" {
		return false, fmt.Errorf("missing host")
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false, fmt.Errorf("missing hostname")
	}

	_, ok := allowedRequestHosts(h.config, r)[host]
	return ok, nil
}

func allowedRequestHosts(cfg *config.Config, r *http.Request) map[string]struct{} {
	hosts := map[string]struct{}{}

	if r != nil {
		if host := normalizeHost(r.Host); host != "" {
			hosts[host] = struct{}{}
		}
	}

	if cfg != nil {
		for _, origin := range cfg.AllowedOrigins {
			if host := hostFromURL(origin); host != "" {
				hosts[host] = struct{}{}
			}
		}
	}

	return hosts
}

func normalizeHost(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}

	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(strings.TrimSpace(host))
	}
	return strings.ToLower(hostport)
}

func hostFromURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
