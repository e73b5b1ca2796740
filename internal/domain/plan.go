package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrPlanNotFound        = errors.New("emi plan not found")
	ErrPlanNameEmpty       = errors.New("plan name is required")
	ErrPlanNameTooLong     = errors.New("plan name must be 100 characters or less")
	ErrTenureNotAllowed    = errors.New("tenure is not one of the allowed values")
	ErrPlanRateNegative    = errors.New("interest rate must not be negative")
	ErrPlanFeeNegative     = errors.New("processing fee must not be negative")
	ErrPlanAmountRange     = errors.New("minimum order amount must be positive and not exceed the maximum")
	ErrPlanInactive        = errors.New("emi plan is not active")
	ErrAmountOutsideBounds = errors.New("principal is outside the plan's order amount bounds")
)

// AllowedTenures are the tenure lengths (in months) a plan may offer.
var AllowedTenures = []int32{3, 6, 9, 12, 18, 24}

// EmiPlan is a purchase-financing template. It is shared by many
// applications; administrative edits never retroactively change
// applications that already reference it.
type EmiPlan struct {
	ID             int32           `json:"id"`
	Name           string          `json:"name"`
	TenureMonths   int32           `json:"tenureMonths"`
	InterestRate   decimal.Decimal `json:"interestRate"` // annual nominal %, zero for no-cost EMI
	ProcessingFee  decimal.Decimal `json:"processingFee"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount"`
	MaxOrderAmount decimal.Decimal `json:"maxOrderAmount"`
	IsActive       bool            `json:"isActive"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// TenureAllowed reports whether n is one of the allowed tenure lengths.
func TenureAllowed(n int32) bool {
	for _, t := range AllowedTenures {
		if t == n {
			return true
		}
	}
	return false
}

func (p *EmiPlan) Validate() error {
	if p.Name == "" {
		return ErrPlanNameEmpty
	}
	if len(p.Name) > 100 {
		return ErrPlanNameTooLong
	}
	if !TenureAllowed(p.TenureMonths) {
		return ErrTenureNotAllowed
	}
	if p.InterestRate.IsNegative() {
		return ErrPlanRateNegative
	}
	if p.ProcessingFee.IsNegative() {
		return ErrPlanFeeNegative
	}
	if p.MinOrderAmount.LessThanOrEqual(decimal.Zero) || p.MinOrderAmount.GreaterThan(p.MaxOrderAmount) {
		return ErrPlanAmountRange
	}
	return nil
}

// AcceptsPrincipal checks a principal against the plan's order amount bounds.
// Violations are rejected, never clamped.
func (p *EmiPlan) AcceptsPrincipal(principal decimal.Decimal) error {
	if !p.IsActive {
		return ErrPlanInactive
	}
	if principal.LessThan(p.MinOrderAmount) || principal.GreaterThan(p.MaxOrderAmount) {
		return ErrAmountOutsideBounds
	}
	return nil
}

type EmiPlanRepository interface {
	Create(plan *EmiPlan) (*EmiPlan, error)
	GetByID(id int32) (*EmiPlan, error)
	List(activeOnly bool) ([]*EmiPlan, error)
	Update(plan *EmiPlan) (*EmiPlan, error)
	SetActive(id int32, active bool) error
}
