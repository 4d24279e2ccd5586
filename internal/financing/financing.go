// Package financing splits an accepted quote total into a payment schedule and computes
// the card surcharge and sales commission that ride on top of it.
package financing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

var ErrInvalidMonths = errors.New("financing months out of range")

type Terms struct {
	Deposit           decimal.Decimal
	SecondPayment     decimal.Decimal
	MaxMonths         int
	CardSurchargeRate decimal.Decimal
	CommissionRate    decimal.Decimal
}

// DefaultTerms are $500 at signing, $1,000 ten days later, a 3.8% card surcharge and a 10% commission.
func DefaultTerms() Terms {
	return Terms{
		Deposit:           decimal.NewFromInt(500),
		SecondPayment:     decimal.NewFromInt(1000),
		MaxMonths:         24,
		CardSurchargeRate: decimal.RequireFromString("0.038"),
		CommissionRate:    decimal.RequireFromString("0.10"),
	}
}

// TermsFromPercent builds terms from percentage rates as configured in the environment.
func TermsFromPercent(deposit, secondPayment float64, maxMonths int, cardPercent, commissionPercent float64) Terms {
	return Terms{
		Deposit:           decimal.NewFromFloat(deposit),
		SecondPayment:     decimal.NewFromFloat(secondPayment),
		MaxMonths:         maxMonths,
		CardSurchargeRate: decimal.NewFromFloat(cardPercent).Div(hundred),
		CommissionRate:    decimal.NewFromFloat(commissionPercent).Div(hundred),
	}
}

type PaymentKind string

const (
	PaymentDeposit     PaymentKind = "deposit"
	PaymentSecond      PaymentKind = "second_payment"
	PaymentInstallment PaymentKind = "installment"
)

type Payment struct {
	Number int             `json:"number"`
	Kind   PaymentKind     `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Due    string          `json:"due"`
}

type Plan struct {
	Total         decimal.Decimal `json:"total"`
	Deposit       decimal.Decimal `json:"deposit"`
	SecondPayment decimal.Decimal `json:"second_payment"`
	Financed      decimal.Decimal `json:"financed"`
	Months        int             `json:"months"`
	Monthly       decimal.Decimal `json:"monthly"`
	Payments      []Payment       `json:"payments"`
}

// Schedule builds the payment plan for total. Payments always add up to total exactly:
// the deposit and second payment are capped at what is left, and the last installment
// absorbs the cent rounding of the others. Months is ignored when nothing is financed.
func (t Terms) Schedule(total decimal.Decimal, months int) (Plan, error) {
	if total.IsNegative() {
		return Plan{}, fmt.Errorf("total must not be negative")
	}
	total = total.Round(2)

	remaining := total
	deposit := decimal.Min(t.Deposit, remaining)
	remaining = remaining.Sub(deposit)
	second := decimal.Min(t.SecondPayment, remaining)
	remaining = remaining.Sub(second)

	plan := Plan{
		Total:         total,
		Deposit:       deposit,
		SecondPayment: second,
		Financed:      remaining,
		Monthly:       decimal.Zero,
	}

	if deposit.IsPositive() {
		plan.Payments = append(plan.Payments, Payment{Number: 1, Kind: PaymentDeposit, Amount: deposit, Due: "at signing"})
	}
	if second.IsPositive() {
		plan.Payments = append(plan.Payments, Payment{Number: len(plan.Payments) + 1, Kind: PaymentSecond, Amount: second, Due: "10 days after deposit"})
	}
	if !remaining.IsPositive() {
		return plan, nil
	}

	if months < 1 || (t.MaxMonths > 0 && months > t.MaxMonths) {
		return Plan{}, fmt.Errorf("%w: %d (allowed 1-%d)", ErrInvalidMonths, months, t.MaxMonths)
	}

	monthly := remaining.Div(decimal.NewFromInt(int64(months))).RoundDown(2)
	plan.Months = months
	plan.Monthly = monthly

	paid := decimal.Zero
	for i := 1; i <= months; i++ {
		amount := monthly
		if i == months {
			amount = remaining.Sub(paid)
		}
		paid = paid.Add(amount)
		plan.Payments = append(plan.Payments, Payment{
			Number: len(plan.Payments) + 1,
			Kind:   PaymentInstallment,
			Amount: amount,
			Due:    fmt.Sprintf("month %d", i),
		})
	}

	return plan, nil
}

type Surcharge struct {
	Amount    decimal.Decimal `json:"amount"`
	Rate      decimal.Decimal `json:"rate"`
	Surcharge decimal.Decimal `json:"surcharge"`
	Total     decimal.Decimal `json:"total"`
}

// CardSurcharge is the extra charged when a payment is made by card.
func (t Terms) CardSurcharge(amount decimal.Decimal) Surcharge {
	fee := amount.Mul(t.CardSurchargeRate).Round(2)
	return Surcharge{
		Amount:    amount.Round(2),
		Rate:      t.CardSurchargeRate,
		Surcharge: fee,
		Total:     amount.Add(fee).Round(2),
	}
}

// Commission is the sales commission on a contract total.
func (t Terms) Commission(total decimal.Decimal) decimal.Decimal {
	return total.Mul(t.CommissionRate).Round(2)
}
