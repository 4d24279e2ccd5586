package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/diamondsistem/offerpricing/internal/pricing"
)

type salonPriceView struct {
	SalonID   string          `json:"salon_id"`
	Price     decimal.Decimal `json:"price"`
	MinGuests int             `json:"min_guests,omitempty"`
}

type packageView struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	BasePrice            decimal.Decimal  `json:"base_price"`
	MinGuests            int              `json:"min_guests"`
	AdditionalGuestPrice decimal.Decimal  `json:"additional_guest_price"`
	IncludedHours        float64          `json:"included_hours"`
	IncludedServices     []string         `json:"included_services"`
	AvailableDays        []string         `json:"available_days,omitempty"`
	SalonPrices          []salonPriceView `json:"salon_prices,omitempty"`
}

type salonView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	External bool   `json:"external,omitempty"`
}

type serviceView struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Category    string              `json:"category,omitempty"`
	BasePrice   decimal.Decimal     `json:"base_price"`
	PricingMode pricing.PricingMode `json:"pricing_mode"`
	Excludes    []string            `json:"excludes,omitempty"`
}

type seasonView struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Months               []string         `json:"months"`
	Adjustment           decimal.Decimal  `json:"adjustment"`
	AdditionalGuestPrice *decimal.Decimal `json:"additional_guest_price,omitempty"`
}

type catalogView struct {
	Version          string        `json:"version"`
	LoadedAt         time.Time     `json:"loaded_at"`
	ExtraHourService string        `json:"extra_hour_service"`
	Salons           []salonView   `json:"salons"`
	Packages         []packageView `json:"packages"`
	Seasons          []seasonView  `json:"seasons"`
	Services         []serviceView `json:"services"`
}

// Catalog lists what sales staff can offer, in catalog file order.
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	snap := h.quotes.Catalog()
	exclusions := snap.Exclusions()

	view := catalogView{
		Version:          snap.Version(),
		LoadedAt:         snap.LoadedAt(),
		ExtraHourService: snap.ExtraHourServiceID(),
	}
	for _, s := range snap.Salons() {
		view.Salons = append(view.Salons, salonView{ID: s.ID, Name: s.Name, External: s.External})
	}
	for _, p := range snap.Packages() {
		view.Packages = append(view.Packages, newPackageView(p, snap.Salons()))
	}
	for _, s := range snap.Seasons() {
		view.Seasons = append(view.Seasons, seasonView{
			ID:                   s.ID,
			Name:                 s.Name,
			Months:               pricing.SeasonMonths(s.Months),
			Adjustment:           s.Adjustment,
			AdditionalGuestPrice: s.AdditionalGuestPrice,
		})
	}
	for _, s := range snap.Services() {
		view.Services = append(view.Services, serviceView{
			ID:          s.ID,
			Name:        s.Name,
			Category:    s.Category,
			BasePrice:   s.BasePrice,
			PricingMode: s.PricingMode,
			Excludes:    exclusions.Excluded(s.ID),
		})
	}

	h.writeJSON(w, r, http.StatusOK, view)
}

func newPackageView(p pricing.Package, salons []pricing.Salon) packageView {
	view := packageView{
		ID:                   p.ID,
		Name:                 p.Name,
		BasePrice:            p.BasePrice,
		MinGuests:            p.MinGuests,
		AdditionalGuestPrice: p.AdditionalGuestPrice,
		IncludedHours:        p.IncludedHours.Hours(),
		IncludedServices:     p.Included,
	}
	for _, d := range p.AvailableDays {
		view.AvailableDays = append(view.AvailableDays, d.String())
	}
	// Salon order keeps the response stable.
	for _, s := range salons {
		if sp, ok := p.SalonPrices[s.ID]; ok {
			view.SalonPrices = append(view.SalonPrices, salonPriceView{SalonID: s.ID, Price: sp.Price, MinGuests: sp.MinGuests})
		}
	}
	return view
}

// PackageTiming reports how many extra hours an event window needs and allows.
func (h *Handlers) PackageTiming(w http.ResponseWriter, r *http.Request) {
	packageID := mux.Vars(r)["id"]
	query := r.URL.Query()

	summary, err := h.quotes.Timing(r.Context(), packageID, query.Get("start"), query.Get("end"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, summary)
}
