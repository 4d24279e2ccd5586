package pricing

import "github.com/shopspring/decimal"

const currencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Amount is a line value that remembers whether a manual override replaced the computed figure.
type Amount struct {
	Value      decimal.Decimal `json:"value"`
	Computed   decimal.Decimal `json:"computed"`
	Overridden bool            `json:"overridden"`
}

func Computed(value decimal.Decimal) Amount {
	return Amount{Value: value, Computed: value}
}

func Overridden(value, computed decimal.Decimal) Amount {
	return Amount{Value: value, Computed: computed, Overridden: true}
}

// Resolve applies an optional override on top of a computed value.
func Resolve(computed decimal.Decimal, override *decimal.Decimal) Amount {
	if override == nil {
		return Computed(computed)
	}
	return Overridden(*override, computed)
}

func (a Amount) rounded() Amount {
	return Amount{
		Value:      roundCurrency(a.Value),
		Computed:   roundCurrency(a.Computed),
		Overridden: a.Overridden,
	}
}

// roundCurrency rounds half away from zero, which is half-up for the non-negative amounts we report.
func roundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(currencyPlaces)
}

// Rates are fractions (0.07 for 7%).
type Rates struct {
	Tax        decimal.Decimal
	ServiceFee decimal.Decimal
}

func RatesFromPercent(taxPercent, serviceFeePercent float64) Rates {
	return Rates{
		Tax:        decimal.NewFromFloat(taxPercent).Div(hundred),
		ServiceFee: decimal.NewFromFloat(serviceFeePercent).Div(hundred),
	}
}
