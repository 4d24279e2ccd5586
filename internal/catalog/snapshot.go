package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/diamondsistem/offerpricing/internal/pricing"
	"github.com/diamondsistem/offerpricing/internal/schedule"
)

// Snapshot is an immutable, validated catalog. It implements pricing.Catalog and is
// safe for concurrent reads; reloading produces a new Snapshot.
type Snapshot struct {
	version     string
	loadedAt    time.Time
	packages    []pricing.Package
	salons      []pricing.Salon
	services    []pricing.Service
	seasons     []pricing.Season
	packageByID map[string]int
	salonByID   map[string]int
	serviceByID map[string]int
	exclusions  pricing.ExclusionGraph
	extraHourID string
}

var _ pricing.Catalog = (*Snapshot)(nil)

// Load reads, validates and snapshots a catalog file.
func Load(path string) (*Snapshot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return FromBytes(content)
}

func FromBytes(content []byte) (*Snapshot, error) {
	file, err := NewParser().Parse(content)
	if err != nil {
		return nil, err
	}
	if err := NewValidator().Validate(file); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	snap, err := Build(file)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(content)
	snap.version = hex.EncodeToString(sum[:])[:12]
	return snap, nil
}

// Build converts a validated catalog file into a snapshot.
func Build(file *CatalogFile) (*Snapshot, error) {
	s := &Snapshot{
		loadedAt:    time.Now().UTC(),
		packageByID: make(map[string]int, len(file.Packages)),
		salonByID:   make(map[string]int, len(file.Salons)),
		serviceByID: make(map[string]int, len(file.Services)),
		extraHourID: strings.TrimSpace(file.Settings.ExtraHourService),
	}

	for _, sc := range file.Services {
		mode, ok := pricing.ParsePricingMode(sc.PricingMode)
		if !ok {
			return nil, fmt.Errorf("service %s: unsupported pricing mode %q", sc.ID, sc.PricingMode)
		}
		s.serviceByID[sc.ID] = len(s.services)
		s.services = append(s.services, pricing.Service{
			ID:          sc.ID,
			Name:        strings.TrimSpace(sc.Name),
			Category:    sc.Category,
			BasePrice:   sc.BasePrice,
			PricingMode: mode,
		})
	}

	for _, sc := range file.Salons {
		s.salonByID[sc.ID] = len(s.salons)
		s.salons = append(s.salons, pricing.Salon{ID: sc.ID, Name: sc.Name, External: sc.External})
	}

	for _, pc := range file.Packages {
		pkg, err := buildPackage(pc)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", pc.ID, err)
		}
		s.packageByID[pc.ID] = len(s.packages)
		s.packages = append(s.packages, pkg)
	}

	for _, sc := range file.Seasons {
		s.seasons = append(s.seasons, pricing.Season{
			ID:                   sc.ID,
			Name:                 sc.Name,
			Months:               sc.Months,
			Adjustment:           sc.Adjustment,
			AdditionalGuestPrice: sc.AdditionalGuestPrice,
		})
	}

	graph, err := pricing.BuildExclusionGraph(file.Exclusions, s.services)
	if err != nil {
		return nil, err
	}
	s.exclusions = graph

	return s, nil
}

func buildPackage(pc PackageConfig) (pricing.Package, error) {
	pkg := pricing.Package{
		ID:                   pc.ID,
		Name:                 pc.Name,
		BasePrice:            pc.BasePrice,
		MinGuests:            pc.MinGuests,
		AdditionalGuestPrice: pc.AdditionalGuestPrice,
		IncludedHours:        schedule.HoursToDuration(pc.IncludedHours),
		Included:             append([]string(nil), pc.IncludedServices...),
	}

	for _, name := range pc.AvailableDays {
		day, err := ParseWeekday(name)
		if err != nil {
			return pricing.Package{}, err
		}
		pkg.AvailableDays = append(pkg.AvailableDays, day)
	}

	if len(pc.SalonPrices) > 0 {
		pkg.SalonPrices = make(map[string]pricing.SalonPrice, len(pc.SalonPrices))
		for salonID, sp := range pc.SalonPrices {
			pkg.SalonPrices[salonID] = pricing.SalonPrice{Price: sp.Price, MinGuests: sp.MinGuests}
		}
	}

	return pkg, nil
}

// Version is a short content hash of the catalog file, empty for snapshots built in memory.
func (s *Snapshot) Version() string {
	return s.version
}

func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

func (s *Snapshot) Package(id string) (pricing.Package, error) {
	i, ok := s.packageByID[id]
	if !ok {
		return pricing.Package{}, pricing.NotFound("package", id)
	}
	return clonePackage(s.packages[i]), nil
}

func (s *Snapshot) Salon(id string) (pricing.Salon, error) {
	i, ok := s.salonByID[id]
	if !ok {
		return pricing.Salon{}, pricing.NotFound("salon", id)
	}
	return s.salons[i], nil
}

func (s *Snapshot) Service(id string) (pricing.Service, error) {
	i, ok := s.serviceByID[id]
	if !ok {
		return pricing.Service{}, pricing.NotFound("service", id)
	}
	return s.services[i], nil
}

func (s *Snapshot) Seasons() []pricing.Season {
	seasons := slices.Clone(s.seasons)
	for i, season := range seasons {
		if season.AdditionalGuestPrice != nil {
			price := *season.AdditionalGuestPrice
			seasons[i].AdditionalGuestPrice = &price
		}
	}
	return seasons
}

func (s *Snapshot) Exclusions() pricing.ExclusionGraph {
	return s.exclusions
}

func (s *Snapshot) ExtraHourServiceID() string {
	return s.extraHourID
}

// Packages, Salons and Services list entries in file order.
func (s *Snapshot) Packages() []pricing.Package {
	packages := make([]pricing.Package, len(s.packages))
	for i, pkg := range s.packages {
		packages[i] = clonePackage(pkg)
	}
	return packages
}

func (s *Snapshot) Salons() []pricing.Salon {
	return append([]pricing.Salon(nil), s.salons...)
}

func (s *Snapshot) Services() []pricing.Service {
	return append([]pricing.Service(nil), s.services...)
}

// clonePackage detaches the returned package from the snapshot's maps and slices.
func clonePackage(pkg pricing.Package) pricing.Package {
	pkg.SalonPrices = maps.Clone(pkg.SalonPrices)
	pkg.Included = slices.Clone(pkg.Included)
	pkg.AvailableDays = slices.Clone(pkg.AvailableDays)
	return pkg
}
