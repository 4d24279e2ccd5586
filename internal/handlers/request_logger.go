package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/diamondsistem/offerpricing/internal/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// requestOutcome is filled in by handlers so the access log can name the quote
// and the API error code a request ended with.
type requestOutcome struct {
	quoteID   string
	errorCode string
}

type outcomeKey struct{}

func outcomeFromContext(ctx context.Context) *requestOutcome {
	outcome, _ := ctx.Value(outcomeKey{}).(*requestOutcome)
	return outcome
}

func noteQuote(r *http.Request, id string) {
	if outcome := outcomeFromContext(r.Context()); outcome != nil {
		outcome.quoteID = id
	}
}

func noteErrorCode(r *http.Request, code string) {
	if outcome := outcomeFromContext(r.Context()); outcome != nil {
		outcome.errorCode = code
	}
}

// RequestLogger writes one access log line per request and puts a request-scoped
// logger carrying the request ID and catalog version into the context.
func (h *Handlers) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := routeLabel(r)

		requestID := requestIDFromRequest(r)
		w.Header().Set("X-Request-ID", requestID)
		r.Header.Set("X-Request-ID", requestID)

		logger := h.logger.With(requestAttrs(r, requestID, route)...)
		if version := h.catalogVersion(); version != "" {
			logger = logger.With("catalog_version", version)
		}

		outcome := &requestOutcome{}
		if id := mux.Vars(r)["id"]; id != "" && strings.HasPrefix(r.URL.Path, "/quotes/") {
			outcome.quoteID = id
		}
		ctx := logging.WithLogger(r.Context(), logger)
		ctx = context.WithValue(ctx, outcomeKey{}, outcome)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		recordRequestMetrics(ctx, r.Method, route, status, elapsed)

		attrs := []any{
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"bytes", rec.bytes,
		}
		if outcome.quoteID != "" {
			attrs = append(attrs, "quote_id", outcome.quoteID)
		}
		if outcome.errorCode != "" {
			attrs = append(attrs, "error_code", outcome.errorCode)
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed", attrs...)
		case status == http.StatusNotFound && route == "":
			logger.Debug("unrouted request", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	})
}

func requestAttrs(r *http.Request, requestID, route string) []any {
	attrs := []any{
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_ip", clientIP(r),
	}
	if route != "" {
		attrs = append(attrs, "route", route)
	}
	if origin := strings.TrimSpace(r.Header.Get("Origin")); origin != "" {
		attrs = append(attrs, "origin", origin)
	}
	if userAgent := strings.TrimSpace(r.UserAgent()); userAgent != "" {
		attrs = append(attrs, "user_agent", userAgent)
	}
	if r.ContentLength > 0 {
		attrs = append(attrs, "content_length", r.ContentLength)
	}
	return attrs
}

func recordRequestMetrics(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unknown"
	}
	meter := sentry.NewMeter(ctx).WithCtx(ctx)
	counted := sentry.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	meter.Count("http.server.requests", 1, counted)
	if status >= http.StatusInternalServerError {
		meter.Count("http.server.errors", 1, counted)
	}
	meter.Distribution(
		"http.server.duration",
		float64(elapsed.Milliseconds()),
		sentry.WithUnit(sentry.UnitMillisecond),
		sentry.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.String("http.status_class", fmt.Sprintf("%dxx", status/100)),
		),
	)
}

func requestIDFromRequest(r *http.Request) string {
	if r != nil {
		if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func routeLabel(r *http.Request) string {
	if r == nil {
		return ""
	}
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	if name := route.GetName(); name != "" {
		return name
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return template
}
