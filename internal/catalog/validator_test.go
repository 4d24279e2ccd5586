package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
)

func validFile() *CatalogFile {
	return &CatalogFile{
		Settings: SettingsConfig{Currency: "usd", ExtraHourService: "hora-extra"},
		Salons:   []SalonConfig{{ID: "doral", Name: "Doral"}},
		Packages: []PackageConfig{
			{
				ID:                   "especial",
				Name:                 "Especial",
				BasePrice:            decimal.NewFromInt(3000),
				MinGuests:            50,
				AdditionalGuestPrice: decimal.NewFromInt(25),
				IncludedHours:        5,
				IncludedServices:     []string{"dj"},
				SalonPrices:          map[string]SalonPriceConfig{"doral": {Price: decimal.NewFromInt(3500)}},
			},
		},
		Seasons: []SeasonConfig{{ID: "alta", Name: "Alta", Months: "junio, July", Adjustment: decimal.NewFromInt(200)}},
		Services: []ServiceConfig{
			{ID: "dj", Name: "DJ", BasePrice: decimal.NewFromInt(400), PricingMode: "fijo"},
			{ID: "hora-extra", Name: "Hora Extra", BasePrice: decimal.NewFromInt(800)},
		},
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*CatalogFile)
		wantErr bool
	}{
		{name: "valid catalog", mutate: func(*CatalogFile) {}},
		{name: "unsupported currency", mutate: func(f *CatalogFile) { f.Settings.Currency = "eur" }, wantErr: true},
		{name: "unknown extra hour service", mutate: func(f *CatalogFile) { f.Settings.ExtraHourService = "overtime" }, wantErr: true},
		{name: "no extra hour service", mutate: func(f *CatalogFile) { f.Settings.ExtraHourService = "" }},
		{name: "bad id", mutate: func(f *CatalogFile) { f.Salons[0].ID = "-Doral" }, wantErr: true},
		{name: "duplicate service", mutate: func(f *CatalogFile) { f.Services = append(f.Services, f.Services[0]) }, wantErr: true},
		{name: "unknown pricing mode", mutate: func(f *CatalogFile) { f.Services[0].PricingMode = "por_hora" }, wantErr: true},
		{name: "negative service price", mutate: func(f *CatalogFile) { f.Services[0].BasePrice = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "no packages", mutate: func(f *CatalogFile) { f.Packages = nil }, wantErr: true},
		{name: "zero included hours", mutate: func(f *CatalogFile) { f.Packages[0].IncludedHours = 0 }, wantErr: true},
		{name: "unknown included service", mutate: func(f *CatalogFile) { f.Packages[0].IncludedServices = []string{"mariachi"} }, wantErr: true},
		{name: "unknown available day", mutate: func(f *CatalogFile) { f.Packages[0].AvailableDays = []string{"funday"} }, wantErr: true},
		{
			name: "salon price for unknown salon",
			mutate: func(f *CatalogFile) {
				f.Packages[0].SalonPrices = map[string]SalonPriceConfig{"kendall": {Price: decimal.NewFromInt(1)}}
			},
			wantErr: true,
		},
		{name: "unknown month", mutate: func(f *CatalogFile) { f.Seasons[0].Months = "junio, smarch" }, wantErr: true},
		{name: "negative season adjustment is a discount", mutate: func(f *CatalogFile) { f.Seasons[0].Adjustment = decimal.NewFromInt(-100) }},
	}

	validator := NewValidator()
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			file := validFile()
			tc.mutate(file)
			err := validator.Validate(file)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}
