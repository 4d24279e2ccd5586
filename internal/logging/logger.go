package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/lmittmann/tint"
)

type Options struct {
	Level  slog.Level
	Format string
	// ReportErrors forwards error records to sentry in addition to the output handler.
	ReportErrors bool
}

// New builds the process logger: colored text through tint, or JSON.
func New(w io.Writer, opts Options) *slog.Logger {
	var output slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		output = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	default:
		output = tint.NewHandler(w, &tint.Options{Level: opts.Level})
	}

	if !opts.ReportErrors {
		return slog.New(output)
	}
	return slog.New(MultiHandler(output, newSentryHandler(context.Background())))
}

// newSentryHandler captures error records as sentry events and sends nothing to sentry logs.
func newSentryHandler(ctx context.Context) slog.Handler {
	return sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError, sentryslog.LevelFatal},
		LogLevel:   []slog.Level{},
	}.NewSentryHandler(ctx)
}
