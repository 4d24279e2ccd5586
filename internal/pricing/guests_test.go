package pricing

import "testing"

func TestAdditionalGuests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		minimum        int
		unitPrice      string
		contracted     int
		wantAdditional int
		wantSubtotal   string
	}{
		{name: "guests beyond minimum", minimum: 50, unitPrice: "25", contracted: 70, wantAdditional: 20, wantSubtotal: "500"},
		{name: "exactly minimum", minimum: 50, unitPrice: "25", contracted: 50, wantAdditional: 0, wantSubtotal: "0"},
		{name: "below minimum is not a credit", minimum: 50, unitPrice: "25", contracted: 10, wantAdditional: 0, wantSubtotal: "0"},
		{name: "fractional unit price", minimum: 100, unitPrice: "52.50", contracted: 103, wantAdditional: 3, wantSubtotal: "157.5"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := AdditionalGuests(tc.minimum, dec(t, tc.unitPrice), tc.contracted)
			if got.Additional != tc.wantAdditional {
				t.Fatalf("Additional = %d, want %d", got.Additional, tc.wantAdditional)
			}
			assertDecimal(t, "Subtotal", got.Subtotal, tc.wantSubtotal)
			if got.Subtotal.IsNegative() {
				t.Fatalf("subtotal must never be negative")
			}
		})
	}
}
