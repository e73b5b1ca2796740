package service

import (
	"testing"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/shopspring/decimal"
)

func testPlan(tenure int32, rate float64, fee int64) *domain.EmiPlan {
	return &domain.EmiPlan{
		ID:             1,
		Name:           "Test Plan",
		TenureMonths:   tenure,
		InterestRate:   decimal.NewFromFloat(rate),
		ProcessingFee:  decimal.NewFromInt(fee),
		MinOrderAmount: decimal.NewFromInt(1000),
		MaxOrderAmount: decimal.NewFromInt(100000),
		IsActive:       true,
	}
}

func TestCalculateEMI_NoCost(t *testing.T) {
	// 3000 over 3 months at 0% = 1000/month, no interest
	quote, err := CalculateEMI(testPlan(3, 0, 0), decimal.NewFromInt(3000))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !quote.MonthlyEmi.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected monthly EMI 1000, got %s", quote.MonthlyEmi)
	}
	if !quote.TotalAmount.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Expected total 3000, got %s", quote.TotalAmount)
	}
	if !quote.TotalInterest.IsZero() {
		t.Errorf("Expected zero interest, got %s", quote.TotalInterest)
	}
}

func TestCalculateEMI_NoCostCeiling(t *testing.T) {
	// 1000 over 3 months: ceil(333.33) = 334, overpayment of at most N-1 units
	quote, err := CalculateEMI(testPlan(3, 0, 0), decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !quote.MonthlyEmi.Equal(decimal.NewFromInt(334)) {
		t.Errorf("Expected monthly EMI 334, got %s", quote.MonthlyEmi)
	}

	principal := decimal.NewFromInt(1000)
	gross := quote.MonthlyEmi.Mul(decimal.NewFromInt(3))
	if gross.LessThan(principal) {
		t.Errorf("Ceiling must never undershoot the principal: %s < %s", gross, principal)
	}
	overpay := gross.Sub(principal)
	if overpay.GreaterThan(decimal.NewFromInt(2)) { // N-1 units
		t.Errorf("Overpayment %s exceeds N-1 currency units", overpay)
	}
}

func TestCalculateEMI_Annuity(t *testing.T) {
	// 6000 at 12% annual over 6 months: r = 0.01,
	// 6000 * 0.01 * 1.01^6 / (1.01^6 - 1) = 1035.29..., ceiled to 1036
	quote, err := CalculateEMI(testPlan(6, 12, 99), decimal.NewFromInt(6000))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !quote.MonthlyEmi.Equal(decimal.NewFromInt(1036)) {
		t.Errorf("Expected monthly EMI 1036, got %s", quote.MonthlyEmi)
	}

	wantTotal := decimal.NewFromInt(6 * 1036).Add(decimal.NewFromInt(99))
	if !quote.TotalAmount.Equal(wantTotal) {
		t.Errorf("Expected total %s, got %s", wantTotal, quote.TotalAmount)
	}

	// Sum of payments covers principal + interest within rounding tolerance
	gross := quote.MonthlyEmi.Mul(decimal.NewFromInt(6))
	covered := decimal.NewFromInt(6000).Add(quote.TotalInterest)
	if !gross.Equal(covered) {
		t.Errorf("Expected gross %s to equal principal+interest %s", gross, covered)
	}
}

func TestCalculateEMI_Validation(t *testing.T) {
	cases := []struct {
		name      string
		plan      *domain.EmiPlan
		principal decimal.Decimal
		wantErr   error
	}{
		{"zero principal", testPlan(3, 0, 0), decimal.Zero, domain.ErrPrincipalInvalid},
		{"negative principal", testPlan(3, 0, 0), decimal.NewFromInt(-100), domain.ErrPrincipalInvalid},
		{"below min order", testPlan(3, 0, 0), decimal.NewFromInt(999), domain.ErrAmountOutsideBounds},
		{"above max order", testPlan(3, 0, 0), decimal.NewFromInt(100001), domain.ErrAmountOutsideBounds},
		{"tenure not offered", testPlan(7, 0, 0), decimal.NewFromInt(5000), domain.ErrTenureNotAllowed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CalculateEMI(tc.plan, tc.principal)
			if err != tc.wantErr {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCalculateEMI_InactivePlan(t *testing.T) {
	plan := testPlan(6, 12, 0)
	plan.IsActive = false
	_, err := CalculateEMI(plan, decimal.NewFromInt(5000))
	if err != domain.ErrPlanInactive {
		t.Errorf("Expected ErrPlanInactive, got %v", err)
	}
}

func TestCalculateEMI_BoundsInclusive(t *testing.T) {
	if _, err := CalculateEMI(testPlan(3, 0, 0), decimal.NewFromInt(1000)); err != nil {
		t.Errorf("Expected min bound to be inclusive, got %v", err)
	}
	if _, err := CalculateEMI(testPlan(3, 0, 0), decimal.NewFromInt(100000)); err != nil {
		t.Errorf("Expected max bound to be inclusive, got %v", err)
	}
}
