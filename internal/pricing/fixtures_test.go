package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diamondsistem/offerpricing/internal/schedule"
)

type memCatalog struct {
	packages    map[string]Package
	salons      map[string]Salon
	services    map[string]Service
	seasons     []Season
	exclusions  ExclusionGraph
	extraHourID string
}

func (c *memCatalog) Package(id string) (Package, error) {
	p, ok := c.packages[id]
	if !ok {
		return Package{}, NotFound("package", id)
	}
	return p, nil
}

func (c *memCatalog) Salon(id string) (Salon, error) {
	s, ok := c.salons[id]
	if !ok {
		return Salon{}, NotFound("salon", id)
	}
	return s, nil
}

func (c *memCatalog) Service(id string) (Service, error) {
	s, ok := c.services[id]
	if !ok {
		return Service{}, NotFound("service", id)
	}
	return s, nil
}

func (c *memCatalog) Seasons() []Season          { return c.seasons }
func (c *memCatalog) Exclusions() ExclusionGraph { return c.exclusions }
func (c *memCatalog) ExtraHourServiceID() string { return c.extraHourID }

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", value, err)
	}
	return d
}

func decPtr(t *testing.T, value string) *decimal.Decimal {
	t.Helper()
	d := dec(t, value)
	return &d
}

func assertDecimal(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(t, want)) {
		t.Fatalf("%s = %s, want %s", label, got.String(), want)
	}
}

var testServices = []Service{
	{ID: "licor-basico", Name: "Licor Básico", Category: "bar", BasePrice: decimal.NewFromInt(400), PricingMode: PricingFixed},
	{ID: "licor-premium", Name: "Licor Premium", Category: "bar", BasePrice: decimal.NewFromInt(12), PricingMode: PricingPerGuest},
	{ID: "foto-3h", Name: "Foto y Video 3 Horas", Category: "media", BasePrice: decimal.NewFromInt(700), PricingMode: PricingFixed},
	{ID: "foto-5h", Name: "Foto y Video 5 Horas", Category: "media", BasePrice: decimal.NewFromInt(1000), PricingMode: PricingFixed},
	{ID: "sidra", Name: "Sidra", Category: "bar", BasePrice: decimal.NewFromInt(150), PricingMode: PricingFixed},
	{ID: "champana", Name: "Champaña", Category: "bar", BasePrice: decimal.NewFromInt(300), PricingMode: PricingFixed},
	{ID: "hora-extra", Name: "Hora Extra", Category: "time", BasePrice: decimal.NewFromInt(800), PricingMode: PricingFixed},
	{ID: "dj", Name: "DJ", Category: "music", BasePrice: decimal.NewFromInt(150), PricingMode: PricingFixed},
}

var testRules = map[string][]string{
	"Licor Premium":        {"Licor Básico"},
	"Foto y Video 3 Horas": {"Foto y Video 5 Horas"},
	"Sidra":                {"Champaña"},
}

func newTestCatalog(t *testing.T) *memCatalog {
	t.Helper()

	graph, err := BuildExclusionGraph(testRules, testServices)
	if err != nil {
		t.Fatalf("BuildExclusionGraph: %v", err)
	}

	services := make(map[string]Service, len(testServices))
	for _, s := range testServices {
		services[s.ID] = s
	}

	alta := dec(t, "80")
	return &memCatalog{
		packages: map[string]Package{
			"especial": {
				ID:                   "especial",
				Name:                 "Especial",
				BasePrice:            dec(t, "3000"),
				MinGuests:            50,
				AdditionalGuestPrice: dec(t, "25"),
				IncludedHours:        5 * time.Hour,
				Included:             []string{"licor-basico", "dj"},
				SalonPrices: map[string]SalonPrice{
					"doral": {Price: dec(t, "3500"), MinGuests: 80},
				},
			},
			"corto": {
				ID:                   "corto",
				Name:                 "Corto",
				BasePrice:            dec(t, "2000"),
				MinGuests:            40,
				AdditionalGuestPrice: dec(t, "20"),
				IncludedHours:        schedule.HoursToDuration(4),
			},
			"entre-semana": {
				ID:                   "entre-semana",
				Name:                 "Entre Semana",
				BasePrice:            dec(t, "1500"),
				MinGuests:            30,
				AdditionalGuestPrice: dec(t, "20"),
				IncludedHours:        schedule.HoursToDuration(4),
				AvailableDays:        []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			},
		},
		salons: map[string]Salon{
			"doral": {ID: "doral", Name: "Doral"},
			"otro":  {ID: "otro", Name: "Sede Externa", External: true},
		},
		services: services,
		seasons: []Season{
			{ID: "alta", Name: "Alta", Months: "Junio, julio, December", Adjustment: dec(t, "200"), AdditionalGuestPrice: &alta},
			{ID: "media", Name: "Media", Months: "march, april", Adjustment: dec(t, "100")},
			{ID: "overlap", Name: "Overlap", Months: "july", Adjustment: dec(t, "999")},
		},
		exclusions:  graph,
		extraHourID: "hora-extra",
	}
}
