// Package pricing turns an offer request into an itemized price breakdown and enforces
// the service compatibility and extra-hour rules.
package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diamondsistem/offerpricing/internal/schedule"
)

const DateLayout = "2006-01-02"

// DefaultCurfew is 02:00 on the day after the event starts.
var DefaultCurfew = schedule.NextDayCurfew(schedule.MustParseTimeOfDay("02:00"))

type Options struct {
	Rates Rates
	// Curfew defaults to DefaultCurfew when zero.
	Curfew schedule.Curfew
	// EarliestStart, when set, rejects events starting before it.
	EarliestStart *schedule.TimeOfDay
}

// Engine prices quotes against one immutable catalog snapshot. It is safe for concurrent use.
type Engine struct {
	catalog   Catalog
	rates     Rates
	earliest  *schedule.TimeOfDay
	validator *CompatibilityValidator
}

func NewEngine(catalog Catalog, opts Options) (*Engine, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if opts.Rates.Tax.IsNegative() || opts.Rates.ServiceFee.IsNegative() {
		return nil, fmt.Errorf("tax and service fee rates must not be negative")
	}
	curfew := opts.Curfew
	if curfew == 0 {
		curfew = DefaultCurfew
	}

	return &Engine{
		catalog:   catalog,
		rates:     opts.Rates,
		earliest:  opts.EarliestStart,
		validator: NewCompatibilityValidator(catalog.Exclusions(), catalog.ExtraHourServiceID(), curfew),
	}, nil
}

func (e *Engine) Catalog() Catalog {
	return e.catalog
}

func (e *Engine) Validator() *CompatibilityValidator {
	return e.validator
}

func (e *Engine) Rates() Rates {
	return e.rates
}

type PackageLine struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	SalonID string `json:"salon_id,omitempty"`
	Price   Amount `json:"price"`
}

type SeasonLine struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	Adjustment Amount `json:"adjustment"`
}

type ServiceLine struct {
	ServiceID       string          `json:"service_id"`
	Name            string          `json:"name"`
	Category        string          `json:"category,omitempty"`
	PricingMode     PricingMode     `json:"pricing_mode"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	PriceOverridden bool            `json:"price_overridden"`
	Guests          int             `json:"guests,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

type TimingSummary struct {
	Start              string  `json:"start"`
	End                string  `json:"end"`
	CrossesMidnight    bool    `json:"crosses_midnight"`
	DurationHours      float64 `json:"duration_hours"`
	IncludedHours      float64 `json:"included_hours"`
	NeededExtraHours   int     `json:"needed_extra_hours"`
	MaxExtraHours      int     `json:"max_extra_hours"`
	SelectedExtraHours int     `json:"selected_extra_hours"`
	Curfew             string  `json:"curfew"`
}

// QuoteBreakdown is the itemized engine output. Money values are rounded to cents.
type QuoteBreakdown struct {
	EventDate        string          `json:"event_date"`
	Package          PackageLine     `json:"package"`
	Season           SeasonLine      `json:"season"`
	Guests           GuestCharge     `json:"guests"`
	Services         []ServiceLine   `json:"services"`
	ServicesSubtotal decimal.Decimal `json:"services_subtotal"`
	SubtotalBase     decimal.Decimal `json:"subtotal_base"`
	Discount         decimal.Decimal `json:"discount"`
	AfterDiscount    decimal.Decimal `json:"after_discount"`
	Tax              Charge          `json:"tax"`
	ServiceFee       Charge          `json:"service_fee"`
	Total            decimal.Decimal `json:"total"`
	Timing           TimingSummary   `json:"timing"`
}

type resolvedLine struct {
	service  Service
	quantity int
	override *decimal.Decimal
}

type request struct {
	input   QuoteInput
	date    time.Time
	window  schedule.Window
	pkg     Package
	salon   Salon
	bundled []Service
	lines   []resolvedLine
}

// Quote computes a fresh breakdown. Input errors are *ValidationError, unknown IDs are
// *ReferenceError and broken business rules are *RejectionError.
func (e *Engine) Quote(input QuoteInput) (*QuoteBreakdown, error) {
	req, err := e.resolve(input)
	if err != nil {
		return nil, err
	}

	timing := Timing{Window: req.window, Included: req.pkg.IncludedHours}
	if err := e.checkRules(req, timing); err != nil {
		return nil, err
	}

	season, hasSeason := ResolveSeason(req.date, e.catalog.Seasons())

	basePrice, minGuests := req.pkg.PriceFor(req.salon.ID)
	packagePrice := Resolve(basePrice, input.PackagePriceOverride)

	seasonComputed := decimal.Zero
	if hasSeason {
		seasonComputed = season.Adjustment
	}
	seasonAdjustment := Resolve(seasonComputed, input.SeasonAdjustmentOverride)
	if input.SeasonAdjustmentOverride == nil && req.salon.External && !seasonComputed.IsZero() {
		seasonAdjustment = Overridden(decimal.Zero, seasonComputed)
	}

	guests := AdditionalGuests(minGuests, guestUnitPrice(req.pkg, season, hasSeason), input.Guests)

	lines := make([]ServiceLine, 0, len(req.lines))
	servicesSubtotal := decimal.Zero
	extraHours := 0
	for _, l := range req.lines {
		unit := l.service.BasePrice
		if l.override != nil {
			unit = *l.override
		}
		subtotal := LineSubtotal(l.service, l.quantity, unit, input.Guests)
		servicesSubtotal = servicesSubtotal.Add(subtotal)

		line := ServiceLine{
			ServiceID:       l.service.ID,
			Name:            l.service.Name,
			Category:        l.service.Category,
			PricingMode:     l.service.PricingMode,
			Quantity:        l.quantity,
			UnitPrice:       unit,
			PriceOverridden: l.override != nil,
			Subtotal:        subtotal,
		}
		if l.service.PricingMode == PricingPerGuest {
			line.Guests = input.Guests
		}
		lines = append(lines, line)

		if e.validator.IsExtraHour(l.service) {
			extraHours += l.quantity
		}
	}

	discount := decimal.Zero
	if input.Discount != nil {
		discount = *input.Discount
	}

	totals := ComputeTotals(TotalsInput{
		Package:  packagePrice.Value,
		Season:   seasonAdjustment.Value,
		Guests:   guests.Subtotal,
		Services: servicesSubtotal,
		Discount: discount,
	}, e.rates)

	summary := e.timingSummary(timing)
	summary.SelectedExtraHours = extraHours

	b := &QuoteBreakdown{
		EventDate: req.date.Format(DateLayout),
		Package: PackageLine{
			ID:      req.pkg.ID,
			Name:    req.pkg.Name,
			SalonID: req.salon.ID,
			Price:   packagePrice,
		},
		Season: SeasonLine{
			ID:         season.ID,
			Name:       season.Name,
			Adjustment: seasonAdjustment,
		},
		Guests:           guests,
		Services:         lines,
		ServicesSubtotal: servicesSubtotal,
		SubtotalBase:     totals.SubtotalBase,
		Discount:         totals.Discount,
		AfterDiscount:    totals.AfterDiscount,
		Tax:              totals.Tax,
		ServiceFee:       totals.ServiceFee,
		Total:            totals.Total,
		Timing:           summary,
	}
	return b.roundedCopy(), nil
}

// roundedCopy is the single place where reported values are rounded to currency precision.
func (b *QuoteBreakdown) roundedCopy() *QuoteBreakdown {
	out := *b
	out.Package.Price = b.Package.Price.rounded()
	out.Season.Adjustment = b.Season.Adjustment.rounded()
	out.Guests.UnitPrice = roundCurrency(b.Guests.UnitPrice)
	out.Guests.Subtotal = roundCurrency(b.Guests.Subtotal)
	out.Services = make([]ServiceLine, len(b.Services))
	for i, line := range b.Services {
		line.UnitPrice = roundCurrency(line.UnitPrice)
		line.Subtotal = roundCurrency(line.Subtotal)
		out.Services[i] = line
	}
	out.ServicesSubtotal = roundCurrency(b.ServicesSubtotal)
	out.SubtotalBase = roundCurrency(b.SubtotalBase)
	out.Discount = roundCurrency(b.Discount)
	out.AfterDiscount = roundCurrency(b.AfterDiscount)
	out.Tax.Amount = roundCurrency(b.Tax.Amount)
	out.ServiceFee.Amount = roundCurrency(b.ServiceFee.Amount)
	out.Total = roundCurrency(b.Total)
	return &out
}

func (e *Engine) timingSummary(t Timing) TimingSummary {
	return TimingSummary{
		Start:            t.Window.Start.String(),
		End:              t.Window.End.String(),
		CrossesMidnight:  t.Window.CrossesMidnight(),
		DurationHours:    t.Duration().Hours(),
		IncludedHours:    t.Included.Hours(),
		NeededExtraHours: t.NeededExtraHours(),
		MaxExtraHours:    e.validator.MaxExtraHoursByCurfew(t),
		Curfew:           e.validator.Curfew().String(),
	}
}

// TimingFor reports how many extra hours a package needs for an event window.
func (e *Engine) TimingFor(packageID, start, end string) (TimingSummary, error) {
	if strings.TrimSpace(packageID) == "" {
		return TimingSummary{}, invalid("package_id", "is required")
	}
	window, err := e.parseWindow(start, end)
	if err != nil {
		return TimingSummary{}, err
	}
	pkg, err := e.catalog.Package(packageID)
	if err != nil {
		return TimingSummary{}, err
	}
	return e.timingSummary(Timing{Window: window, Included: pkg.IncludedHours}), nil
}

type IncrementRequest struct {
	PackageID string                `json:"package_id"`
	ServiceID string                `json:"service_id"`
	Current   []SelectedServiceLine `json:"current"`
	StartTime string                `json:"start_time"`
	EndTime   string                `json:"end_time"`
}

// CheckIncrement decides whether one more unit of a service may join the selection.
// Start and end times are only required for the extra-hour service.
func (e *Engine) CheckIncrement(req IncrementRequest) (Decision, error) {
	if strings.TrimSpace(req.PackageID) == "" {
		return Decision{}, invalid("package_id", "is required")
	}
	if strings.TrimSpace(req.ServiceID) == "" {
		return Decision{}, invalid("service_id", "is required")
	}

	pkg, err := e.catalog.Package(req.PackageID)
	if err != nil {
		return Decision{}, err
	}
	candidate, err := e.catalog.Service(req.ServiceID)
	if err != nil {
		return Decision{}, err
	}
	bundled, err := e.bundledServices(pkg)
	if err != nil {
		return Decision{}, err
	}
	lines, err := e.resolveLines(req.Current, "current")
	if err != nil {
		return Decision{}, err
	}
	current := make([]Selection, 0, len(lines))
	for _, l := range lines {
		current = append(current, Selection{Service: l.service, Quantity: l.quantity})
	}

	var timing Timing
	if e.validator.IsExtraHour(candidate) || req.StartTime != "" || req.EndTime != "" {
		window, err := e.parseWindow(req.StartTime, req.EndTime)
		if err != nil {
			return Decision{}, err
		}
		timing = Timing{Window: window, Included: pkg.IncludedHours}
	}

	return e.validator.CanIncrement(candidate, bundled, current, timing), nil
}

func (e *Engine) resolve(input QuoteInput) (request, error) {
	req := request{input: input}

	if strings.TrimSpace(input.PackageID) == "" {
		return req, invalid("package_id", "is required")
	}
	if input.Guests < 0 {
		return req, invalid("guests", "must not be negative")
	}

	date, err := time.Parse(DateLayout, strings.TrimSpace(input.EventDate))
	if err != nil {
		return req, invalid("event_date", "must be a date in YYYY-MM-DD format")
	}
	req.date = date

	req.window, err = e.parseWindow(input.StartTime, input.EndTime)
	if err != nil {
		return req, err
	}

	if err := nonNegative("discount", input.Discount); err != nil {
		return req, err
	}
	if err := nonNegative("package_price_override", input.PackagePriceOverride); err != nil {
		return req, err
	}
	if err := nonNegative("season_adjustment_override", input.SeasonAdjustmentOverride); err != nil {
		return req, err
	}

	if err := validateLines(input.Services, "services"); err != nil {
		return req, err
	}

	req.pkg, err = e.catalog.Package(input.PackageID)
	if err != nil {
		return req, err
	}
	if input.SalonID != "" {
		req.salon, err = e.catalog.Salon(input.SalonID)
		if err != nil {
			return req, err
		}
	}
	req.bundled, err = e.bundledServices(req.pkg)
	if err != nil {
		return req, err
	}
	req.lines, err = e.resolveLines(input.Services, "services")
	if err != nil {
		return req, err
	}
	return req, nil
}

func (e *Engine) parseWindow(start, end string) (schedule.Window, error) {
	s, err := schedule.ParseTimeOfDay(start)
	if err != nil {
		return schedule.Window{}, invalid("start_time", "%v", err)
	}
	en, err := schedule.ParseTimeOfDay(end)
	if err != nil {
		return schedule.Window{}, invalid("end_time", "%v", err)
	}
	if e.earliest != nil && s < *e.earliest {
		return schedule.Window{}, invalid("start_time", "must not be before %s", e.earliest.String())
	}
	window, err := schedule.NewWindow(s, en)
	if err != nil {
		return schedule.Window{}, invalid("end_time", "%v", err)
	}
	return window, nil
}

func (e *Engine) checkRules(req request, timing Timing) error {
	if !req.pkg.AvailableOn(req.date.Weekday()) {
		d := Decision{Allowed: true}
		d.violate(ReasonDayUnavailable)
		d.Detail = fmt.Sprintf("package %q is not offered on %s", req.pkg.Name, req.date.Weekday())
		return reject(d)
	}

	selections := make([]Selection, 0, len(req.lines))
	for _, l := range req.lines {
		selections = append(selections, Selection{Service: l.service, Quantity: l.quantity})
	}

	for i, l := range req.lines {
		others := make([]Selection, 0, len(selections)-1)
		others = append(others, selections[:i]...)
		others = append(others, selections[i+1:]...)

		if d := e.validator.CanAdd(l.service, req.bundled, others); !d.Allowed {
			return reject(d)
		}

		if e.validator.IsExtraHour(l.service) {
			d := e.validator.CanSetExtraHours(timing, l.quantity)
			if !d.Allowed {
				d.ServiceID = l.service.ID
				d.ServiceName = l.service.Name
				return reject(d)
			}
		}
	}
	return nil
}

func (e *Engine) bundledServices(pkg Package) ([]Service, error) {
	bundled := make([]Service, 0, len(pkg.Included))
	for _, id := range pkg.Included {
		s, err := e.catalog.Service(id)
		if err != nil {
			return nil, fmt.Errorf("package %q bundles an unknown service: %w", pkg.ID, err)
		}
		bundled = append(bundled, s)
	}
	return bundled, nil
}

func (e *Engine) resolveLines(lines []SelectedServiceLine, field string) ([]resolvedLine, error) {
	if err := validateLines(lines, field); err != nil {
		return nil, err
	}
	out := make([]resolvedLine, 0, len(lines))
	for _, line := range lines {
		s, err := e.catalog.Service(line.ServiceID)
		if err != nil {
			return nil, err
		}
		out = append(out, resolvedLine{service: s, quantity: line.Quantity, override: line.UnitPriceOverride})
	}
	return out, nil
}

func validateLines(lines []SelectedServiceLine, field string) error {
	seen := make(map[string]bool, len(lines))
	for i, line := range lines {
		name := fmt.Sprintf("%s[%d]", field, i)
		id := strings.TrimSpace(line.ServiceID)
		if id == "" {
			return invalid(name+".service_id", "is required")
		}
		if line.Quantity <= 0 {
			return invalid(name+".quantity", "must be a positive integer")
		}
		if err := nonNegative(name+".unit_price_override", line.UnitPriceOverride); err != nil {
			return err
		}
		if seen[id] {
			return invalid(name+".service_id", "service %q is listed more than once", id)
		}
		seen[id] = true
	}
	return nil
}

func nonNegative(field string, value *decimal.Decimal) error {
	if value != nil && value.IsNegative() {
		return invalid(field, "must not be negative")
	}
	return nil
}
