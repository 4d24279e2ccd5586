package pricing

import "github.com/shopspring/decimal"

type TotalsInput struct {
	Package  decimal.Decimal
	Season   decimal.Decimal
	Guests   decimal.Decimal
	Services decimal.Decimal
	Discount decimal.Decimal
}

type Charge struct {
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

type Totals struct {
	SubtotalBase  decimal.Decimal
	Discount      decimal.Decimal
	AfterDiscount decimal.Decimal
	Tax           Charge
	ServiceFee    Charge
	Total         decimal.Decimal
}

// ComputeTotals applies the discount to the subtotal and then charges tax and service fee
// independently on the same post-discount base. The order is fixed.
func ComputeTotals(in TotalsInput, rates Rates) Totals {
	base := in.Package.Add(in.Season).Add(in.Guests).Add(in.Services)

	afterDiscount := base.Sub(in.Discount)
	if afterDiscount.IsNegative() {
		afterDiscount = decimal.Zero
	}

	tax := afterDiscount.Mul(rates.Tax)
	fee := afterDiscount.Mul(rates.ServiceFee)

	return Totals{
		SubtotalBase:  base,
		Discount:      in.Discount,
		AfterDiscount: afterDiscount,
		Tax:           Charge{Rate: rates.Tax, Amount: tax},
		ServiceFee:    Charge{Rate: rates.ServiceFee, Amount: fee},
		Total:         afterDiscount.Add(tax).Add(fee),
	}
}

// LineSubtotal prices one add-on line at full precision.
func LineSubtotal(s Service, quantity int, unitPrice decimal.Decimal, guests int) decimal.Decimal {
	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if s.PricingMode == PricingPerGuest {
		subtotal = subtotal.Mul(decimal.NewFromInt(int64(guests)))
	}
	return subtotal
}
