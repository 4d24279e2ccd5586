package db

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"
)

type queryStartContextKey struct{}

type queryStart struct {
	span      *sentry.Span
	query     string
	startedAt time.Time
}

// queryTracer opens a sentry span per query when the request is traced and logs slow queries.
type queryTracer struct {
	logger *slog.Logger
	slow   time.Duration
}

func newQueryTracer(logger *slog.Logger, slow time.Duration) *queryTracer {
	if slow <= 0 {
		slow = 500 * time.Millisecond
	}
	return &queryTracer{logger: logger, slow: slow}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	start := &queryStart{query: normalizeQuery(data.SQL), startedAt: time.Now()}

	if sentry.SpanFromContext(ctx) != nil {
		span := sentry.StartSpan(
			ctx,
			"db.query",
			sentry.WithDescription(start.query),
			sentry.WithSpanOrigin(sentry.SpanOriginManual),
		)
		span.SetData("db.system", "postgresql")
		if operation := queryOperation(start.query); operation != "" {
			span.SetData("db.operation", operation)
		}
		start.span = span
		ctx = span.Context()
	}

	return context.WithValue(ctx, queryStartContextKey{}, start)
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, _ := ctx.Value(queryStartContextKey{}).(*queryStart)
	if start == nil {
		return
	}

	if elapsed := time.Since(start.startedAt); elapsed > t.slow {
		t.logger.Warn("slow query", "query", start.query, "elapsed", elapsed)
	}

	if start.span == nil {
		return
	}
	if data.Err != nil {
		start.span.Status = sentry.SpanStatusInternalError
		start.span.SetData("db.error", data.Err.Error())
	} else {
		start.span.Status = sentry.SpanStatusOK
	}
	if rows := data.CommandTag.RowsAffected(); rows >= 0 {
		start.span.SetData("db.rows_affected", rows)
	}
	start.span.Finish()
}

func normalizeQuery(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	if normalized == "" {
		return "sql.query"
	}
	const maxLen = 512
	if len(normalized) > maxLen {
		return normalized[:maxLen]
	}
	return normalized
}

func queryOperation(query string) string {
	operation, _, _ := strings.Cut(query, " ")
	return strings.ToUpper(operation)
}
