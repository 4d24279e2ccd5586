package catalog

import (
	"testing"
	"time"
)

const testCatalogYAML = `
settings:
  currency: usd
  extra_hour_service: hora-extra
salons:
  - id: doral
    name: Doral
  - id: otro
    name: Sede Externa
    external: true
packages:
  - id: especial
    name: Especial
    base_price: 3000
    min_guests: 50
    additional_guest_price: "25.50"
    included_hours: 5
    included_services: [licor-basico]
    available_days: [viernes, Saturday]
    salon_prices:
      doral: { price: 3500, min_guests: 80 }
seasons:
  - id: alta
    name: Alta
    months: "junio, julio"
    adjustment: 200
services:
  - { id: licor-basico, name: Licor House, base_price: 8, pricing_mode: por_persona }
  - { id: licor-premium, name: Licor Premium, base_price: 14, pricing_mode: per_guest }
  - { id: hora-extra, name: Hora Extra, base_price: 800 }
exclusions:
  Licor Premium: [licor house]
`

func TestParser_Parse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name:    "valid catalog",
			yaml:    testCatalogYAML,
			wantErr: false,
		},
		{
			name:    "invalid yaml",
			yaml:    "invalid: yaml: content:",
			wantErr: true,
		},
		{
			name:    "invalid price",
			yaml:    "packages:\n  - id: x\n    base_price: abc\n",
			wantErr: true,
		},
	}

	parser := NewParser()

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			file, err := parser.ParseFromString(tc.yaml)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if file.Settings.ExtraHourService != "hora-extra" {
				t.Fatalf("extra hour service = %q", file.Settings.ExtraHourService)
			}
			if len(file.Packages) != 1 || len(file.Services) != 3 {
				t.Fatalf("unexpected counts: %d packages, %d services", len(file.Packages), len(file.Services))
			}
			pkg := file.Packages[0]
			if pkg.AdditionalGuestPrice.String() != "25.5" {
				t.Fatalf("additional guest price = %s", pkg.AdditionalGuestPrice)
			}
			if pkg.SalonPrices["doral"].MinGuests != 80 {
				t.Fatalf("salon price = %+v", pkg.SalonPrices["doral"])
			}
		})
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	tests := map[string]time.Weekday{
		"monday":    time.Monday,
		"Sábado":    time.Saturday,
		"miercoles": time.Wednesday,
		" DOMINGO ": time.Sunday,
	}
	for in, want := range tests {
		got, err := ParseWeekday(in)
		if err != nil || got != want {
			t.Fatalf("ParseWeekday(%q) = %v, %v; want %v", in, got, err, want)
		}
	}

	if _, err := ParseWeekday("someday"); err == nil {
		t.Fatalf("expected error for unknown day")
	}
}
