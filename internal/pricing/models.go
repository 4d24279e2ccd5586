package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PricingMode string

const (
	PricingFixed    PricingMode = "fixed"
	PricingPerGuest PricingMode = "per_guest"
	// PricingPerUnit behaves like PricingFixed.
	PricingPerUnit PricingMode = "per_unit"
)

// ParsePricingMode normalizes a catalog pricing mode. Unknown values return false.
func ParsePricingMode(value string) (PricingMode, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "fixed", "fijo", "":
		return PricingFixed, true
	case "per_guest", "por_persona":
		return PricingPerGuest, true
	case "per_unit", "por_unidad":
		return PricingPerUnit, true
	default:
		return "", false
	}
}

type Service struct {
	ID          string
	Name        string
	Category    string
	BasePrice   decimal.Decimal
	PricingMode PricingMode
}

type SalonPrice struct {
	Price decimal.Decimal
	// MinGuests replaces the package minimum at this salon when positive.
	MinGuests int
}

type Package struct {
	ID                   string
	Name                 string
	BasePrice            decimal.Decimal
	SalonPrices          map[string]SalonPrice
	MinGuests            int
	AdditionalGuestPrice decimal.Decimal
	IncludedHours        time.Duration
	// Included lists bundled service IDs, always at no extra charge.
	Included []string
	// AvailableDays is empty when the package can be booked any day.
	AvailableDays []time.Weekday
}

// PriceFor returns the base price and guest minimum that apply at a salon.
func (p Package) PriceFor(salonID string) (decimal.Decimal, int) {
	if salonID != "" {
		if sp, ok := p.SalonPrices[salonID]; ok {
			minGuests := p.MinGuests
			if sp.MinGuests > 0 {
				minGuests = sp.MinGuests
			}
			return sp.Price, minGuests
		}
	}
	return p.BasePrice, p.MinGuests
}

func (p Package) AvailableOn(day time.Weekday) bool {
	if len(p.AvailableDays) == 0 {
		return true
	}
	for _, d := range p.AvailableDays {
		if d == day {
			return true
		}
	}
	return false
}

type Salon struct {
	ID       string
	Name     string
	External bool
}

type Season struct {
	ID         string
	Name       string
	Months     string
	Adjustment decimal.Decimal
	// AdditionalGuestPrice overrides the package marginal guest price while the season applies.
	AdditionalGuestPrice *decimal.Decimal
}

type SelectedServiceLine struct {
	ServiceID         string           `json:"service_id"`
	Quantity          int              `json:"quantity"`
	UnitPriceOverride *decimal.Decimal `json:"unit_price_override,omitempty"`
}

type QuoteInput struct {
	PackageID                string                `json:"package_id"`
	SalonID                  string                `json:"salon_id,omitempty"`
	EventDate                string                `json:"event_date"`
	Guests                   int                   `json:"guests"`
	StartTime                string                `json:"start_time"`
	EndTime                  string                `json:"end_time"`
	Services                 []SelectedServiceLine `json:"services"`
	Discount                 *decimal.Decimal      `json:"discount,omitempty"`
	PackagePriceOverride     *decimal.Decimal      `json:"package_price_override,omitempty"`
	SeasonAdjustmentOverride *decimal.Decimal      `json:"season_adjustment_override,omitempty"`
}

// Selection is a resolved add-on line used by the compatibility checks.
type Selection struct {
	Service  Service
	Quantity int
}
