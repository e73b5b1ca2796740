package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/Pranshu2404/AsBrand-Backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PlanHandler handles EMI plan HTTP requests
type PlanHandler struct {
	planService *service.PlanService
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// CreatePlanRequest represents the create plan request body
type CreatePlanRequest struct {
	Name           string `json:"name"`
	TenureMonths   int32  `json:"tenureMonths"`
	InterestRate   string `json:"interestRate"`
	ProcessingFee  string `json:"processingFee"`
	MinOrderAmount string `json:"minOrderAmount"`
	MaxOrderAmount string `json:"maxOrderAmount"`
}

// UpdatePlanRequest represents the update plan request body
type UpdatePlanRequest struct {
	Name           string `json:"name"`
	TenureMonths   int32  `json:"tenureMonths"`
	InterestRate   string `json:"interestRate"`
	ProcessingFee  string `json:"processingFee"`
	MinOrderAmount string `json:"minOrderAmount"`
	MaxOrderAmount string `json:"maxOrderAmount"`
	IsActive       bool   `json:"isActive"`
}

// QuoteRequest represents the quote request body
type QuoteRequest struct {
	Principal string `json:"principal"`
}

// PlanResponse represents a plan in API responses
type PlanResponse struct {
	ID             int32  `json:"id"`
	Name           string `json:"name"`
	TenureMonths   int32  `json:"tenureMonths"`
	InterestRate   string `json:"interestRate"`
	ProcessingFee  string `json:"processingFee"`
	MinOrderAmount string `json:"minOrderAmount"`
	MaxOrderAmount string `json:"maxOrderAmount"`
	IsActive       bool   `json:"isActive"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// QuoteResponse represents an EMI quote in API responses
type QuoteResponse struct {
	MonthlyEmi    string `json:"monthlyEmi"`
	TotalInterest string `json:"totalInterest"`
	ProcessingFee string `json:"processingFee"`
	TotalAmount   string `json:"totalAmount"`
	TenureMonths  int32  `json:"tenureMonths"`
}

// CreatePlan handles POST /api/v1/plans
func (h *PlanHandler) CreatePlan(c echo.Context) error {
	var req CreatePlanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input := service.CreatePlanInput{
		Name:         req.Name,
		TenureMonths: req.TenureMonths,
	}
	fields := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"interestRate", req.InterestRate, &input.InterestRate},
		{"processingFee", req.ProcessingFee, &input.ProcessingFee},
		{"minOrderAmount", req.MinOrderAmount, &input.MinOrderAmount},
		{"maxOrderAmount", req.MaxOrderAmount, &input.MaxOrderAmount},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return NewValidationError(c, "Invalid amount", []ValidationError{
				{Field: f.name, Message: "Must be a valid decimal number"},
			})
		}
		*f.dst = d
	}

	plan, err := h.planService.CreatePlan(input)
	if err != nil {
		if verr := planValidationError(c, err); verr != nil {
			return verr
		}
		log.Error().Err(err).Msg("Failed to create plan")
		return NewInternalError(c, "Failed to create plan")
	}

	log.Info().Int32("plan_id", plan.ID).Str("name", plan.Name).Msg("Plan created")

	return c.JSON(http.StatusCreated, toPlanResponse(plan))
}

// GetPlans handles GET /api/v1/plans
func (h *PlanHandler) GetPlans(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"

	plans, err := h.planService.ListPlans(activeOnly)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get plans")
		return NewInternalError(c, "Failed to get plans")
	}

	response := make([]PlanResponse, len(plans))
	for i, plan := range plans {
		response[i] = toPlanResponse(plan)
	}
	return c.JSON(http.StatusOK, response)
}

// GetPlan handles GET /api/v1/plans/:id
func (h *PlanHandler) GetPlan(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid plan ID", nil)
	}

	plan, err := h.planService.GetPlan(int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			return NewNotFoundError(c, "Plan not found")
		}
		log.Error().Err(err).Int("plan_id", id).Msg("Failed to get plan")
		return NewInternalError(c, "Failed to get plan")
	}

	return c.JSON(http.StatusOK, toPlanResponse(plan))
}

// UpdatePlan handles PUT /api/v1/plans/:id
func (h *PlanHandler) UpdatePlan(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid plan ID", nil)
	}

	var req UpdatePlanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	plan := &domain.EmiPlan{
		ID:           int32(id),
		Name:         req.Name,
		TenureMonths: req.TenureMonths,
		IsActive:     req.IsActive,
	}
	fields := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"interestRate", req.InterestRate, &plan.InterestRate},
		{"processingFee", req.ProcessingFee, &plan.ProcessingFee},
		{"minOrderAmount", req.MinOrderAmount, &plan.MinOrderAmount},
		{"maxOrderAmount", req.MaxOrderAmount, &plan.MaxOrderAmount},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return NewValidationError(c, "Invalid amount", []ValidationError{
				{Field: f.name, Message: "Must be a valid decimal number"},
			})
		}
		*f.dst = d
	}

	updated, err := h.planService.UpdatePlan(plan)
	if err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			return NewNotFoundError(c, "Plan not found")
		}
		if verr := planValidationError(c, err); verr != nil {
			return verr
		}
		log.Error().Err(err).Int("plan_id", id).Msg("Failed to update plan")
		return NewInternalError(c, "Failed to update plan")
	}

	return c.JSON(http.StatusOK, toPlanResponse(updated))
}

// SetPlanActive handles PATCH /api/v1/plans/:id/active
func (h *PlanHandler) SetPlanActive(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid plan ID", nil)
	}

	var req struct {
		IsActive bool `json:"isActive"`
	}
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	if err := h.planService.SetPlanActive(int32(id), req.IsActive); err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			return NewNotFoundError(c, "Plan not found")
		}
		log.Error().Err(err).Int("plan_id", id).Msg("Failed to toggle plan")
		return NewInternalError(c, "Failed to toggle plan")
	}

	log.Info().Int("plan_id", id).Bool("is_active", req.IsActive).Msg("Plan toggled")

	return c.NoContent(http.StatusNoContent)
}

// Quote handles POST /api/v1/plans/:id/quote
func (h *PlanHandler) Quote(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid plan ID", nil)
	}

	var req QuoteRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		return NewValidationError(c, "Invalid principal", []ValidationError{
			{Field: "principal", Message: "Must be a valid decimal number"},
		})
	}

	plan, err := h.planService.GetPlan(int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			return NewNotFoundError(c, "Plan not found")
		}
		log.Error().Err(err).Int("plan_id", id).Msg("Failed to get plan for quote")
		return NewInternalError(c, "Failed to quote")
	}

	quote, err := service.CalculateEMI(plan, principal)
	if err != nil {
		if errors.Is(err, domain.ErrPlanInactive) {
			return NewConflictError(c, "Plan is not accepting applications")
		}
		if errors.Is(err, domain.ErrAmountOutsideBounds) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "principal", Message: "Amount is outside the plan's order bounds"},
			})
		}
		if errors.Is(err, domain.ErrPrincipalInvalid) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "principal", Message: "Amount must be positive"},
			})
		}
		log.Error().Err(err).Int("plan_id", id).Msg("Failed to quote")
		return NewInternalError(c, "Failed to quote")
	}

	return c.JSON(http.StatusOK, QuoteResponse{
		MonthlyEmi:    quote.MonthlyEmi.String(),
		TotalInterest: quote.TotalInterest.String(),
		ProcessingFee: quote.ProcessingFee.String(),
		TotalAmount:   quote.TotalAmount.String(),
		TenureMonths:  quote.TenureMonths,
	})
}

func planValidationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrPlanNameEmpty):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "name", Message: "Plan name is required"},
		})
	case errors.Is(err, domain.ErrPlanNameTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "name", Message: "Plan name must be 100 characters or less"},
		})
	case errors.Is(err, domain.ErrTenureNotAllowed):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "tenureMonths", Message: "Tenure must be one of 3, 6, 9, 12, 18 or 24 months"},
		})
	case errors.Is(err, domain.ErrPlanRateNegative):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "interestRate", Message: "Interest rate must not be negative"},
		})
	case errors.Is(err, domain.ErrPlanFeeNegative):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "processingFee", Message: "Processing fee must not be negative"},
		})
	case errors.Is(err, domain.ErrPlanAmountRange):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "minOrderAmount", Message: "Minimum must be positive and not exceed the maximum"},
		})
	}
	return nil
}

func toPlanResponse(plan *domain.EmiPlan) PlanResponse {
	return PlanResponse{
		ID:             plan.ID,
		Name:           plan.Name,
		TenureMonths:   plan.TenureMonths,
		InterestRate:   plan.InterestRate.String(),
		ProcessingFee:  plan.ProcessingFee.String(),
		MinOrderAmount: plan.MinOrderAmount.String(),
		MaxOrderAmount: plan.MaxOrderAmount.String(),
		IsActive:       plan.IsActive,
		CreatedAt:      plan.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:      plan.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
