// Package catalog provides catalog.yaml parsing, validation and immutable snapshots.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type CatalogFile struct {
	Settings   SettingsConfig      `yaml:"settings"`
	Salons     []SalonConfig       `yaml:"salons"`
	Packages   []PackageConfig     `yaml:"packages"`
	Seasons    []SeasonConfig      `yaml:"seasons"`
	Services   []ServiceConfig     `yaml:"services"`
	Exclusions map[string][]string `yaml:"exclusions"`
}

type SettingsConfig struct {
	Currency string `yaml:"currency"`
	// ExtraHourService is the service ID that extends the event past the package duration.
	ExtraHourService string `yaml:"extra_hour_service"`
}

type SalonConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	External bool   `yaml:"external"`
}

type PackageConfig struct {
	ID                   string                      `yaml:"id"`
	Name                 string                      `yaml:"name"`
	BasePrice            decimal.Decimal             `yaml:"base_price"`
	MinGuests            int                         `yaml:"min_guests"`
	AdditionalGuestPrice decimal.Decimal             `yaml:"additional_guest_price"`
	IncludedHours        float64                     `yaml:"included_hours"`
	IncludedServices     []string                    `yaml:"included_services"`
	AvailableDays        []string                    `yaml:"available_days"`
	SalonPrices          map[string]SalonPriceConfig `yaml:"salon_prices"`
}

type SalonPriceConfig struct {
	Price     decimal.Decimal `yaml:"price"`
	MinGuests int             `yaml:"min_guests"`
}

type SeasonConfig struct {
	ID                   string           `yaml:"id"`
	Name                 string           `yaml:"name"`
	Months               string           `yaml:"months"`
	Adjustment           decimal.Decimal  `yaml:"adjustment"`
	AdditionalGuestPrice *decimal.Decimal `yaml:"additional_guest_price"`
}

type ServiceConfig struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Category    string          `yaml:"category"`
	BasePrice   decimal.Decimal `yaml:"base_price"`
	PricingMode string          `yaml:"pricing_mode"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*CatalogFile, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &file, nil
}

func (p *Parser) ParseFromString(content string) (*CatalogFile, error) {
	return p.Parse([]byte(content))
}

var weekdayAliases = map[string]time.Weekday{
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miercoles": time.Wednesday,
	"miércoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sabado":    time.Saturday,
	"sábado":    time.Saturday,
	"domingo":   time.Sunday,
}

// ParseWeekday accepts English or Spanish day names in any case.
func ParseWeekday(value string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == v {
			return d, nil
		}
	}
	if d, ok := weekdayAliases[v]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", value)
}
