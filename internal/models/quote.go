package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/diamondsistem/offerpricing/internal/financing"
	"github.com/diamondsistem/offerpricing/internal/pricing"
)

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusAccepted QuoteStatus = "accepted"
)

// Quote is a priced offer. Drafts live in the cache until they expire; accepted quotes
// are persisted with the breakdown frozen as it was shown to the client.
type Quote struct {
	ID             uuid.UUID              `json:"id"`
	Status         QuoteStatus            `json:"status"`
	CatalogVersion string                 `json:"catalog_version"`
	Input          pricing.QuoteInput     `json:"input"`
	Breakdown      pricing.QuoteBreakdown `json:"breakdown"`
	CreatedAt      time.Time              `json:"created_at"`
	ExpiresAt      time.Time              `json:"expires_at,omitempty"`
	Acceptance     *Acceptance            `json:"acceptance,omitempty"`
}

type Acceptance struct {
	AcceptedAt      time.Time       `json:"accepted_at"`
	SalesAgent      string          `json:"sales_agent,omitempty"`
	FinancingMonths int             `json:"financing_months"`
	Commission      decimal.Decimal `json:"commission"`
	PaymentPlan     financing.Plan  `json:"payment_plan"`
}

func (q *Quote) Total() decimal.Decimal {
	return q.Breakdown.Total
}

func (q *Quote) Expired(now time.Time) bool {
	return q.Status == QuoteStatusDraft && !q.ExpiresAt.IsZero() && now.After(q.ExpiresAt)
}
