package service

import (
	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/shopspring/decimal"
)

// EmiQuote is the computed cost of financing a principal under a plan.
type EmiQuote struct {
	MonthlyEmi    decimal.Decimal
	TotalInterest decimal.Decimal
	ProcessingFee decimal.Decimal
	TotalAmount   decimal.Decimal
	TenureMonths  int32
}

// CalculateEMI computes the fixed monthly payment for a principal under a
// plan, rounded up to the whole currency unit. Rounding up protects the
// lender: the sum of N payments may exceed the principal-plus-interest by a
// few units, absorbed into the running total rather than refunded.
//
// Zero-rate plans are no-cost EMIs: payment = ceil(P / N). Otherwise the
// standard reducing-balance annuity applies with monthly rate r = R/12/100:
//
//	payment = ceil( P * r * (1+r)^N / ((1+r)^N - 1) )
//
// Validation failures (tenure not offered, principal outside the plan's
// order bounds, inactive plan) are rejected outright, never clamped.
func CalculateEMI(plan *domain.EmiPlan, principal decimal.Decimal) (*EmiQuote, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrPrincipalInvalid
	}
	if !domain.TenureAllowed(plan.TenureMonths) {
		return nil, domain.ErrTenureNotAllowed
	}
	if err := plan.AcceptsPrincipal(principal); err != nil {
		return nil, err
	}

	months := decimal.NewFromInt32(plan.TenureMonths)

	var monthly decimal.Decimal
	if plan.InterestRate.IsZero() {
		monthly = principal.Div(months).Ceil()
	} else {
		r := plan.InterestRate.Div(decimal.NewFromInt(1200))
		factor := decimal.NewFromInt(1).Add(r).Pow(months)
		monthly = principal.Mul(r).Mul(factor).
			Div(factor.Sub(decimal.NewFromInt(1))).
			Ceil()
	}

	gross := monthly.Mul(months)
	return &EmiQuote{
		MonthlyEmi:    monthly,
		TotalInterest: gross.Sub(principal),
		ProcessingFee: plan.ProcessingFee,
		TotalAmount:   gross.Add(plan.ProcessingFee),
		TenureMonths:  plan.TenureMonths,
	}, nil
}
