package pricing

import "github.com/shopspring/decimal"

type GuestCharge struct {
	Minimum    int             `json:"minimum"`
	Contracted int             `json:"contracted"`
	Additional int             `json:"additional"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// AdditionalGuests charges guests beyond the included minimum. A count below the
// minimum yields zero, never a credit.
func AdditionalGuests(minimum int, unitPrice decimal.Decimal, contracted int) GuestCharge {
	additional := contracted - minimum
	if additional < 0 {
		additional = 0
	}
	return GuestCharge{
		Minimum:    minimum,
		Contracted: contracted,
		Additional: additional,
		UnitPrice:  unitPrice,
		Subtotal:   unitPrice.Mul(decimal.NewFromInt(int64(additional))),
	}
}

func guestUnitPrice(pkg Package, season Season, hasSeason bool) decimal.Decimal {
	if hasSeason && season.AdditionalGuestPrice != nil {
		return *season.AdditionalGuestPrice
	}
	return pkg.AdditionalGuestPrice
}
