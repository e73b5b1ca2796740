package service

import (
	"strings"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/shopspring/decimal"
)

// PlanService handles EMI plan administration
type PlanService struct {
	planRepo domain.EmiPlanRepository
}

// NewPlanService creates a new PlanService
func NewPlanService(planRepo domain.EmiPlanRepository) *PlanService {
	return &PlanService{planRepo: planRepo}
}

// CreatePlanInput contains input for creating an EMI plan
type CreatePlanInput struct {
	Name           string
	TenureMonths   int32
	InterestRate   decimal.Decimal
	ProcessingFee  decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxOrderAmount decimal.Decimal
}

// CreatePlan validates and persists a new plan, active by default.
func (s *PlanService) CreatePlan(input CreatePlanInput) (*domain.EmiPlan, error) {
	plan := &domain.EmiPlan{
		Name:           strings.TrimSpace(input.Name),
		TenureMonths:   input.TenureMonths,
		InterestRate:   input.InterestRate,
		ProcessingFee:  input.ProcessingFee,
		MinOrderAmount: input.MinOrderAmount,
		MaxOrderAmount: input.MaxOrderAmount,
		IsActive:       true,
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return s.planRepo.Create(plan)
}

// GetPlan retrieves a plan by ID
func (s *PlanService) GetPlan(id int32) (*domain.EmiPlan, error) {
	return s.planRepo.GetByID(id)
}

// ListPlans retrieves plans, optionally only active ones
func (s *PlanService) ListPlans(activeOnly bool) ([]*domain.EmiPlan, error) {
	return s.planRepo.List(activeOnly)
}

// UpdatePlan applies an administrative edit. Edits never retroactively
// change applications already generated from this plan: applications copy
// the plan terms at creation time.
func (s *PlanService) UpdatePlan(plan *domain.EmiPlan) (*domain.EmiPlan, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.planRepo.GetByID(plan.ID); err != nil {
		return nil, err
	}
	return s.planRepo.Update(plan)
}

// SetPlanActive toggles whether a plan accepts new applications.
func (s *PlanService) SetPlanActive(id int32, active bool) error {
	return s.planRepo.SetActive(id, active)
}
