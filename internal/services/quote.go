package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/diamondsistem/offerpricing/internal/cache"
	"github.com/diamondsistem/offerpricing/internal/catalog"
	"github.com/diamondsistem/offerpricing/internal/db"
	"github.com/diamondsistem/offerpricing/internal/financing"
	"github.com/diamondsistem/offerpricing/internal/logging"
	"github.com/diamondsistem/offerpricing/internal/models"
	"github.com/diamondsistem/offerpricing/internal/observability"
	"github.com/diamondsistem/offerpricing/internal/pricing"
)

var (
	ErrQuoteNotFound        = errors.New("quote not found or expired")
	ErrQuoteAlreadyAccepted = errors.New("quote already accepted")
	ErrInvalidFinancing     = errors.New("invalid financing request")
)

// QuoteRepository persists accepted quotes.
type QuoteRepository interface {
	SaveAccepted(ctx context.Context, quote *models.Quote) error
	GetAccepted(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	Ping(ctx context.Context) error
}

type QuoteServiceConfig struct {
	Pricing pricing.Options
	Terms   financing.Terms
	// DraftTTL is how long a previewed quote can still be accepted.
	DraftTTL time.Duration
}

type pricingState struct {
	catalog *catalog.Snapshot
	engine  *pricing.Engine
}

// QuoteService prices offers against the current catalog snapshot and manages the
// draft-to-accepted lifecycle. Reload swaps the snapshot without blocking readers.
type QuoteService struct {
	state  atomic.Pointer[pricingState]
	drafts cache.Provider
	store  QuoteRepository
	cfg    QuoteServiceConfig
	now    func() time.Time
	logger *slog.Logger
}

func NewQuoteService(snapshot *catalog.Snapshot, drafts cache.Provider, store QuoteRepository, cfg QuoteServiceConfig, logger *slog.Logger) (*QuoteService, error) {
	if drafts == nil {
		return nil, fmt.Errorf("draft cache is required")
	}
	if store == nil {
		return nil, fmt.Errorf("quote repository is required")
	}
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = 24 * time.Hour
	}

	s := &QuoteService{
		drafts: drafts,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
	if err := s.Reload(snapshot); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *QuoteService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Reload replaces the catalog. Quotes already priced keep the figures they were given.
func (s *QuoteService) Reload(snapshot *catalog.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("catalog snapshot is required")
	}
	engine, err := pricing.NewEngine(snapshot, s.cfg.Pricing)
	if err != nil {
		return fmt.Errorf("failed to build pricing engine: %w", err)
	}

	previous := s.state.Swap(&pricingState{catalog: snapshot, engine: engine})
	logger := logging.FromContext(context.Background(), s.logger)
	if previous != nil {
		logger.Info("catalog reloaded", "previous_version", previous.catalog.Version(), "version", snapshot.Version())
	} else {
		logger.Info("catalog loaded", "version", snapshot.Version())
	}
	return nil
}

func (s *QuoteService) Catalog() *catalog.Snapshot {
	return s.state.Load().catalog
}

func (s *QuoteService) Engine() *pricing.Engine {
	return s.state.Load().engine
}

// Preview prices an offer and keeps it as a draft that can be accepted until it expires.
func (s *QuoteService) Preview(ctx context.Context, input pricing.QuoteInput) (*models.Quote, error) {
	span := sentry.StartSpan(
		ctx,
		"service.quote.preview",
		sentry.WithOpName("service.quote"),
		sentry.WithDescription("Preview"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	state := s.state.Load()
	meter := observability.MeterFromContext(ctx)
	meter.Count("quote.preview.received", 1, sentry.WithAttributes(
		attribute.String("package_id", input.PackageID),
	))

	breakdown, err := state.engine.Quote(input)
	if err != nil {
		s.recordPricingFailure(ctx, "quote.preview", err)
		return nil, err
	}

	now := s.now().UTC()
	quote := &models.Quote{
		ID:             uuid.New(),
		Status:         models.QuoteStatusDraft,
		CatalogVersion: state.catalog.Version(),
		Input:          input,
		Breakdown:      *breakdown,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.DraftTTL),
	}

	payload, err := json.Marshal(quote)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft quote: %w", err)
	}
	if err := s.drafts.Set(ctx, cache.QuoteKey(quote.ID.String()), payload, s.cfg.DraftTTL); err != nil {
		meter.Count("quote.preview.failed", 1, sentry.WithAttributes(attribute.String("reason", "cache")))
		return nil, fmt.Errorf("failed to store draft quote: %w", err)
	}

	meter.Count("quote.preview.priced", 1)
	s.loggerFromContext(ctx).Info("quote priced",
		"quote_id", quote.ID,
		"package_id", input.PackageID,
		"season_id", breakdown.Season.ID,
		"total", breakdown.Total.String(),
		"package_overridden", breakdown.Package.Price.Overridden,
		"season_overridden", breakdown.Season.Adjustment.Overridden,
	)
	return quote, nil
}

// Get returns a draft while it is live, or the accepted quote once persisted.
func (s *QuoteService) Get(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	quote, err := s.loadDraft(ctx, id)
	if err == nil {
		return quote, nil
	}
	if !errors.Is(err, ErrQuoteNotFound) {
		return nil, err
	}

	accepted, err := s.store.GetAccepted(ctx, id)
	if errors.Is(err, db.ErrQuoteNotFound) {
		return nil, ErrQuoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

type AcceptInput struct {
	FinancingMonths int    `json:"financing_months"`
	SalesAgent      string `json:"sales_agent,omitempty"`
}

// Accept freezes a live draft, attaching its payment plan and commission.
func (s *QuoteService) Accept(ctx context.Context, id uuid.UUID, input AcceptInput) (*models.Quote, error) {
	span := sentry.StartSpan(
		ctx,
		"service.quote.accept",
		sentry.WithOpName("service.quote"),
		sentry.WithDescription("Accept"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = logging.With(span.Context(), s.logger, "quote_id", id)

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.Count("quote.accept.received", 1)

	quote, err := s.loadDraft(ctx, id)
	if errors.Is(err, ErrQuoteNotFound) {
		if _, getErr := s.store.GetAccepted(ctx, id); getErr == nil {
			observability.CountWithReason(ctx, "quote.accept.failed", "already_accepted")
			return nil, ErrQuoteAlreadyAccepted
		}
		observability.CountWithReason(ctx, "quote.accept.failed", "not_found")
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	plan, err := s.cfg.Terms.Schedule(quote.Total(), input.FinancingMonths)
	if err != nil {
		observability.CountWithReason(ctx, "quote.accept.failed", "invalid_financing")
		return nil, fmt.Errorf("%w: %v", ErrInvalidFinancing, err)
	}

	quote.Status = models.QuoteStatusAccepted
	quote.ExpiresAt = time.Time{}
	quote.Acceptance = &models.Acceptance{
		AcceptedAt:      s.now().UTC(),
		SalesAgent:      strings.TrimSpace(input.SalesAgent),
		FinancingMonths: plan.Months,
		Commission:      s.cfg.Terms.Commission(quote.Total()),
		PaymentPlan:     plan,
	}

	if err := s.store.SaveAccepted(ctx, quote); err != nil {
		if errors.Is(err, db.ErrAlreadyAccepted) {
			observability.CountWithReason(ctx, "quote.accept.failed", "already_accepted")
			return nil, ErrQuoteAlreadyAccepted
		}
		observability.CountWithReason(ctx, "quote.accept.failed", "store")
		return nil, fmt.Errorf("failed to save accepted quote: %w", err)
	}

	if err := s.drafts.Delete(ctx, cache.QuoteKey(id.String())); err != nil {
		logger.Warn("failed to drop accepted draft", "error", err)
	}

	meter.Count("quote.accept.succeeded", 1)
	logger.Info("quote accepted",
		"total", quote.Total().String(),
		"financing_months", plan.Months,
		"catalog_version", quote.CatalogVersion,
	)
	return quote, nil
}

// CheckAddition answers whether one more unit of a service fits the current selection.
func (s *QuoteService) CheckAddition(ctx context.Context, req pricing.IncrementRequest) (pricing.Decision, error) {
	decision, err := s.state.Load().engine.CheckIncrement(req)
	if err != nil {
		s.recordPricingFailure(ctx, "selection.check", err)
		return pricing.Decision{}, err
	}

	if decision.Allowed {
		observability.MeterFromContext(ctx).Count("selection.check.allowed", 1)
	} else {
		observability.CountWithReason(ctx, "selection.check.rejected", observability.MetricReason(string(decision.Reason)))
	}
	return decision, nil
}

func (s *QuoteService) Timing(ctx context.Context, packageID, start, end string) (pricing.TimingSummary, error) {
	summary, err := s.state.Load().engine.TimingFor(packageID, start, end)
	if err != nil {
		s.recordPricingFailure(ctx, "timing", err)
		return pricing.TimingSummary{}, err
	}
	return summary, nil
}

type PaymentOptions struct {
	Plan          financing.Plan      `json:"plan"`
	CardSurcharge financing.Surcharge `json:"card_surcharge"`
	Commission    decimal.Decimal     `json:"commission"`
}

// PaymentPlan previews financing for a quote without accepting it.
func (s *QuoteService) PaymentPlan(ctx context.Context, id uuid.UUID, months int) (PaymentOptions, error) {
	quote, err := s.Get(ctx, id)
	if err != nil {
		return PaymentOptions{}, err
	}
	if quote.Acceptance != nil && months == quote.Acceptance.FinancingMonths {
		return PaymentOptions{
			Plan:          quote.Acceptance.PaymentPlan,
			CardSurcharge: s.cfg.Terms.CardSurcharge(quote.Total()),
			Commission:    quote.Acceptance.Commission,
		}, nil
	}

	plan, err := s.cfg.Terms.Schedule(quote.Total(), months)
	if err != nil {
		return PaymentOptions{}, fmt.Errorf("%w: %v", ErrInvalidFinancing, err)
	}
	return PaymentOptions{
		Plan:          plan,
		CardSurcharge: s.cfg.Terms.CardSurcharge(quote.Total()),
		Commission:    s.cfg.Terms.Commission(quote.Total()),
	}, nil
}

// Ping checks the draft cache and the quote repository.
func (s *QuoteService) Ping(ctx context.Context) error {
	if err := s.drafts.Ping(ctx); err != nil {
		return fmt.Errorf("draft cache: %w", err)
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("quote store: %w", err)
	}
	return nil
}

func (s *QuoteService) loadDraft(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	payload, err := s.drafts.Get(ctx, cache.QuoteKey(id.String()))
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrQuoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft quote: %w", err)
	}

	var quote models.Quote
	if err := json.Unmarshal(payload, &quote); err != nil {
		return nil, fmt.Errorf("failed to decode draft quote: %w", err)
	}
	if quote.Expired(s.now()) {
		return nil, ErrQuoteNotFound
	}
	return &quote, nil
}

func (s *QuoteService) recordPricingFailure(ctx context.Context, metric string, err error) {
	var (
		validation *pricing.ValidationError
		rejection  *pricing.RejectionError
	)
	reason := "error"
	switch {
	case errors.As(err, &validation):
		reason = invalidFieldReason(validation.Field)
	case errors.As(err, &rejection):
		reason = observability.MetricReason(string(rejection.Decision.Reason))
	case errors.Is(err, pricing.ErrNotFound):
		reason = "not_found"
	}
	observability.CountWithReason(ctx, metric+".failed", reason)
	s.loggerFromContext(ctx).Debug("pricing request failed", "operation", metric, "reason", reason, "error", err)
}

// invalidFieldReason drops list indexes so "services[3].quantity" and
// "services[0].quantity" count under the same reason.
func invalidFieldReason(field string) string {
	var b strings.Builder
	depth := 0
	for _, r := range field {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	name := observability.MetricReason(b.String())
	if name == "" {
		return "invalid"
	}
	return "invalid_" + name
}
