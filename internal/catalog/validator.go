// Package catalog provides catalog validation.
package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/diamondsistem/offerpricing/internal/pricing"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

var idRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9_-]{0,62}[a-z0-9])?$`)

// IsValidID validates a catalog identifier (lowercase slug, 1-64 chars, no leading/trailing separator).
func IsValidID(id string) bool {
	return idRegex.MatchString(id)
}

func (v *Validator) Validate(file *CatalogFile) error {
	if err := v.validateSettings(&file.Settings); err != nil {
		return fmt.Errorf("settings validation failed: %w", err)
	}

	salons := make(map[string]bool)
	for i, salon := range file.Salons {
		if err := v.validateSalon(&salon); err != nil {
			return fmt.Errorf("salon %d validation failed: %w", i, err)
		}

		if salons[salon.ID] {
			return fmt.Errorf("duplicate salon id: %s", salon.ID)
		}
		salons[salon.ID] = true
	}

	if len(file.Services) == 0 {
		return fmt.Errorf("at least one service is required")
	}

	services := make(map[string]bool)
	for i, service := range file.Services {
		if err := v.validateService(&service); err != nil {
			return fmt.Errorf("service %d validation failed: %w", i, err)
		}

		if services[service.ID] {
			return fmt.Errorf("duplicate service id: %s", service.ID)
		}
		services[service.ID] = true
	}

	extra := strings.TrimSpace(file.Settings.ExtraHourService)
	if extra != "" && !services[extra] {
		return fmt.Errorf("extra hour service %q is not a known service", extra)
	}

	if len(file.Packages) == 0 {
		return fmt.Errorf("at least one package is required")
	}

	packages := make(map[string]bool)
	for i, pkg := range file.Packages {
		if err := v.validatePackage(&pkg, salons, services); err != nil {
			return fmt.Errorf("package %d validation failed: %w", i, err)
		}

		if packages[pkg.ID] {
			return fmt.Errorf("duplicate package id: %s", pkg.ID)
		}
		packages[pkg.ID] = true
	}

	seasons := make(map[string]bool)
	for i, season := range file.Seasons {
		if err := v.validateSeason(&season); err != nil {
			return fmt.Errorf("season %d validation failed: %w", i, err)
		}

		if seasons[season.ID] {
			return fmt.Errorf("duplicate season id: %s", season.ID)
		}
		seasons[season.ID] = true
	}

	return nil
}

func (v *Validator) validateSettings(settings *SettingsConfig) error {
	currency := strings.ToLower(strings.TrimSpace(settings.Currency))
	if currency != "" && currency != "usd" {
		return fmt.Errorf("only USD currency is supported")
	}

	return nil
}

func (v *Validator) validateSalon(salon *SalonConfig) error {
	if !IsValidID(salon.ID) {
		return fmt.Errorf("salon id %q must be a lowercase slug", salon.ID)
	}

	if strings.TrimSpace(salon.Name) == "" {
		return fmt.Errorf("salon name is required")
	}

	return nil
}

func (v *Validator) validateService(service *ServiceConfig) error {
	if !IsValidID(service.ID) {
		return fmt.Errorf("service id %q must be a lowercase slug", service.ID)
	}

	if strings.TrimSpace(service.Name) == "" {
		return fmt.Errorf("service name is required")
	}

	if service.BasePrice.IsNegative() {
		return fmt.Errorf("service base price must be zero or positive")
	}

	if _, ok := pricing.ParsePricingMode(service.PricingMode); !ok {
		return fmt.Errorf("unsupported pricing mode %q", service.PricingMode)
	}

	return nil
}

func (v *Validator) validatePackage(pkg *PackageConfig, salons, services map[string]bool) error {
	if !IsValidID(pkg.ID) {
		return fmt.Errorf("package id %q must be a lowercase slug", pkg.ID)
	}

	if strings.TrimSpace(pkg.Name) == "" {
		return fmt.Errorf("package name is required")
	}

	if pkg.BasePrice.IsNegative() || pkg.AdditionalGuestPrice.IsNegative() {
		return fmt.Errorf("package prices must be zero or positive")
	}

	if pkg.MinGuests < 0 {
		return fmt.Errorf("package minimum guests must be zero or positive")
	}

	if pkg.IncludedHours <= 0 {
		return fmt.Errorf("package included hours must be positive")
	}

	for _, id := range pkg.IncludedServices {
		if !services[id] {
			return fmt.Errorf("included service %q is not a known service", id)
		}
	}

	for _, day := range pkg.AvailableDays {
		if _, err := ParseWeekday(day); err != nil {
			return err
		}
	}

	for salonID, sp := range pkg.SalonPrices {
		if !salons[salonID] {
			return fmt.Errorf("salon price references unknown salon %q", salonID)
		}
		if sp.Price.IsNegative() {
			return fmt.Errorf("salon price for %q must be zero or positive", salonID)
		}
		if sp.MinGuests < 0 {
			return fmt.Errorf("salon minimum guests for %q must be zero or positive", salonID)
		}
	}

	return nil
}

func (v *Validator) validateSeason(season *SeasonConfig) error {
	if !IsValidID(season.ID) {
		return fmt.Errorf("season id %q must be a lowercase slug", season.ID)
	}

	if strings.TrimSpace(season.Name) == "" {
		return fmt.Errorf("season name is required")
	}

	tokens := strings.Split(season.Months, ",")
	for _, token := range tokens {
		if _, ok := pricing.NormalizeMonth(token); !ok {
			return fmt.Errorf("season %q lists unknown month %q", season.ID, strings.TrimSpace(token))
		}
	}

	if season.AdditionalGuestPrice != nil && season.AdditionalGuestPrice.LessThan(decimal.Zero) {
		return fmt.Errorf("season additional guest price must be zero or positive")
	}

	return nil
}
