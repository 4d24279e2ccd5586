package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/diamondsistem/offerpricing/internal/models"
	"github.com/diamondsistem/offerpricing/internal/pricing"
)

var (
	ErrQuoteNotFound   = errors.New("quote not found")
	ErrAlreadyAccepted = errors.New("quote already accepted")
)

// QuoteStore persists accepted quotes in postgres.
type QuoteStore struct {
	pool *pgxpool.Pool
}

func NewQuoteStore(pool *pgxpool.Pool) *QuoteStore {
	return &QuoteStore{pool: pool}
}

func (s *QuoteStore) SaveAccepted(ctx context.Context, quote *models.Quote) error {
	if quote == nil || quote.Acceptance == nil {
		return fmt.Errorf("quote acceptance is required")
	}

	eventDate, err := time.Parse(pricing.DateLayout, quote.Breakdown.EventDate)
	if err != nil {
		return fmt.Errorf("invalid event date: %w", err)
	}
	inputJSON, err := json.Marshal(quote.Input)
	if err != nil {
		return err
	}
	breakdownJSON, err := json.Marshal(quote.Breakdown)
	if err != nil {
		return err
	}
	planJSON, err := json.Marshal(quote.Acceptance.PaymentPlan)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO accepted_quotes (
			id, catalog_version, package_id, salon_id, event_date, guests, total, commission,
			financing_months, sales_agent, input, breakdown, payment_plan, created_at, accepted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING`,
		quote.ID,
		quote.CatalogVersion,
		quote.Input.PackageID,
		quote.Input.SalonID,
		eventDate,
		quote.Input.Guests,
		quote.Total().String(),
		quote.Acceptance.Commission.String(),
		quote.Acceptance.FinancingMonths,
		quote.Acceptance.SalesAgent,
		inputJSON,
		breakdownJSON,
		planJSON,
		quote.CreatedAt,
		quote.Acceptance.AcceptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert accepted quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyAccepted
	}
	return nil
}

func (s *QuoteStore) GetAccepted(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var (
		quote         = models.Quote{ID: id, Status: models.QuoteStatusAccepted}
		acceptance    models.Acceptance
		commission    string
		inputJSON     []byte
		breakdownJSON []byte
		planJSON      []byte
	)

	err := s.pool.QueryRow(ctx, `
		SELECT catalog_version, commission::text, financing_months, sales_agent,
		       input, breakdown, payment_plan, created_at, accepted_at
		FROM accepted_quotes
		WHERE id = $1`, id,
	).Scan(
		&quote.CatalogVersion,
		&commission,
		&acceptance.FinancingMonths,
		&acceptance.SalesAgent,
		&inputJSON,
		&breakdownJSON,
		&planJSON,
		&quote.CreatedAt,
		&acceptance.AcceptedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load accepted quote: %w", err)
	}

	if acceptance.Commission, err = decimal.NewFromString(commission); err != nil {
		return nil, fmt.Errorf("invalid stored commission: %w", err)
	}
	if err := json.Unmarshal(inputJSON, &quote.Input); err != nil {
		return nil, fmt.Errorf("invalid stored input: %w", err)
	}
	if err := json.Unmarshal(breakdownJSON, &quote.Breakdown); err != nil {
		return nil, fmt.Errorf("invalid stored breakdown: %w", err)
	}
	if err := json.Unmarshal(planJSON, &acceptance.PaymentPlan); err != nil {
		return nil, fmt.Errorf("invalid stored payment plan: %w", err)
	}
	quote.Acceptance = &acceptance
	return &quote, nil
}

func (s *QuoteStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// MemoryQuoteStore keeps accepted quotes in process; used when no database is configured.
type MemoryQuoteStore struct {
	mu     sync.RWMutex
	quotes map[uuid.UUID][]byte
}

func NewMemoryQuoteStore() *MemoryQuoteStore {
	return &MemoryQuoteStore{quotes: make(map[uuid.UUID][]byte)}
}

func (s *MemoryQuoteStore) SaveAccepted(ctx context.Context, quote *models.Quote) error {
	_ = ctx
	if quote == nil || quote.Acceptance == nil {
		return fmt.Errorf("quote acceptance is required")
	}
	// Stored as JSON so callers cannot mutate the saved copy.
	payload, err := json.Marshal(quote)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.quotes[quote.ID]; exists {
		return ErrAlreadyAccepted
	}
	s.quotes[quote.ID] = payload
	return nil
}

func (s *MemoryQuoteStore) GetAccepted(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	_ = ctx
	s.mu.RLock()
	payload, ok := s.quotes[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrQuoteNotFound
	}

	var quote models.Quote
	if err := json.Unmarshal(payload, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func (s *MemoryQuoteStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
