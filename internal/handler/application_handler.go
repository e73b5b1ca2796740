package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/Pranshu2404/AsBrand-Backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ApplicationHandler handles EMI application HTTP requests
type ApplicationHandler struct {
	appService *service.ApplicationService
}

// NewApplicationHandler creates a new ApplicationHandler
func NewApplicationHandler(appService *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{appService: appService}
}

// CreateApplicationRequest represents the create application request body
type CreateApplicationRequest struct {
	UserID    string `json:"userId"`
	OrderID   string `json:"orderId"`
	PlanID    int32  `json:"planId"`
	Principal string `json:"principal"`
}

// RecordPaymentRequest represents the payment confirmation request body
type RecordPaymentRequest struct {
	InstallmentNumber int32  `json:"installmentNumber"`
	TransactionID     string `json:"transactionId"`
	PaymentMethod     string `json:"paymentMethod"`
	PaidAt            string `json:"paidAt"`
}

// InstallmentResponse represents an installment in API responses
type InstallmentResponse struct {
	SequenceNumber   int32   `json:"sequenceNumber"`
	DueDate          string  `json:"dueDate"`
	Amount           string  `json:"amount"`
	Status           string  `json:"status"`
	PaidDate         *string `json:"paidDate,omitempty"`
	PaymentReference *string `json:"paymentReference,omitempty"`
}

// ApplicationResponse represents an application in API responses
type ApplicationResponse struct {
	ID                    string                `json:"id"`
	UserID                string                `json:"userId"`
	OrderID               string                `json:"orderId"`
	PlanID                int32                 `json:"planId"`
	Principal             string                `json:"principal"`
	TotalInterest         string                `json:"totalInterest"`
	ProcessingFee         string                `json:"processingFee"`
	TotalAmount           string                `json:"totalAmount"`
	MonthlyEmi            string                `json:"monthlyEmi"`
	TenureMonths          int32                 `json:"tenureMonths"`
	PaidInstallments      int32                 `json:"paidInstallments"`
	RemainingInstallments int32                 `json:"remainingInstallments"`
	NextDueDate           *string               `json:"nextDueDate,omitempty"`
	Status                string                `json:"status"`
	ApprovedAt            *string               `json:"approvedAt,omitempty"`
	Installments          []InstallmentResponse `json:"installments"`
	CreatedAt             string                `json:"createdAt"`
}

// CreateApplication handles POST /api/v1/applications
func (h *ApplicationHandler) CreateApplication(c echo.Context) error {
	var req CreateApplicationRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return NewValidationError(c, "Invalid user ID", []ValidationError{
			{Field: "userId", Message: "Must be a valid UUID"},
		})
	}
	if req.OrderID == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "orderId", Message: "Order ID is required"},
		})
	}
	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		return NewValidationError(c, "Invalid principal", []ValidationError{
			{Field: "principal", Message: "Must be a valid decimal number"},
		})
	}

	app, err := h.appService.CreateApplication(c.Request().Context(), service.CreateApplicationInput{
		UserID:    userID,
		OrderID:   req.OrderID,
		PlanID:    req.PlanID,
		Principal: principal,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPlanNotFound):
			return NewNotFoundError(c, "Plan not found")
		case errors.Is(err, domain.ErrPlanInactive):
			return NewConflictError(c, "Plan is not accepting applications")
		case errors.Is(err, domain.ErrAmountOutsideBounds):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "principal", Message: "Amount is outside the plan's order bounds"},
			})
		case errors.Is(err, domain.ErrPrincipalInvalid):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "principal", Message: "Amount must be positive"},
			})
		case errors.Is(err, domain.ErrTenureNotAllowed):
			return NewConflictError(c, "Plan tenure is no longer offered")
		}
		log.Error().Err(err).Str("order_id", req.OrderID).Msg("Failed to create application")
		return NewInternalError(c, "Failed to create application")
	}

	log.Info().
		Str("application_id", app.ID.String()).
		Str("order_id", app.OrderID).
		Str("principal", app.Principal.String()).
		Msg("Application created")

	return c.JSON(http.StatusCreated, toApplicationResponse(app))
}

// GetApplication handles GET /api/v1/applications/:id
func (h *ApplicationHandler) GetApplication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	app, err := h.appService.GetApplication(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrApplicationNotFound) {
			return NewNotFoundError(c, "Application not found")
		}
		log.Error().Err(err).Str("application_id", id.String()).Msg("Failed to get application")
		return NewInternalError(c, "Failed to get application")
	}

	return c.JSON(http.StatusOK, toApplicationResponse(app))
}

// GetApplications handles GET /api/v1/applications?userId=...
func (h *ApplicationHandler) GetApplications(c echo.Context) error {
	userID, err := uuid.Parse(c.QueryParam("userId"))
	if err != nil {
		return NewValidationError(c, "Invalid user ID", []ValidationError{
			{Field: "userId", Message: "Must be a valid UUID"},
		})
	}

	apps, err := h.appService.ListApplicationsByUser(c.Request().Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to list applications")
		return NewInternalError(c, "Failed to list applications")
	}

	response := make([]ApplicationResponse, len(apps))
	for i, app := range apps {
		response[i] = toApplicationResponse(app)
	}
	return c.JSON(http.StatusOK, response)
}

// GetSchedule handles GET /api/v1/applications/:id/schedule
func (h *ApplicationHandler) GetSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	installments, err := h.appService.GetSchedule(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrApplicationNotFound) {
			return NewNotFoundError(c, "Application not found")
		}
		log.Error().Err(err).Str("application_id", id.String()).Msg("Failed to get schedule")
		return NewInternalError(c, "Failed to get schedule")
	}

	response := make([]InstallmentResponse, len(installments))
	for i := range installments {
		response[i] = toInstallmentResponse(&installments[i])
	}
	return c.JSON(http.StatusOK, response)
}

// Approve handles POST /api/v1/applications/:id/approve
func (h *ApplicationHandler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	app, err := h.appService.Approve(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrApplicationNotFound):
			return NewNotFoundError(c, "Application not found")
		case errors.Is(err, domain.ErrApplicationNotPending):
			return NewConflictError(c, "Application is not pending")
		}
		log.Error().Err(err).Str("application_id", id.String()).Msg("Failed to approve application")
		return NewInternalError(c, "Failed to approve application")
	}

	log.Info().
		Str("application_id", app.ID.String()).
		Str("status", string(app.Status)).
		Msg("Application decision recorded")

	return c.JSON(http.StatusOK, toApplicationResponse(app))
}

// RecordPayment handles POST /api/v1/applications/:id/payments
func (h *ApplicationHandler) RecordPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	var req RecordPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.TransactionID == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "transactionId", Message: "Transaction ID is required"},
		})
	}
	paidAt := time.Now()
	if req.PaidAt != "" {
		paidAt, err = time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			return NewValidationError(c, "Invalid payment time", []ValidationError{
				{Field: "paidAt", Message: "Must be an RFC 3339 timestamp"},
			})
		}
	}

	app, err := h.appService.RecordInstallmentPayment(c.Request().Context(), id, req.InstallmentNumber, domain.PaymentInfo{
		TransactionID: req.TransactionID,
		PaymentMethod: req.PaymentMethod,
		PaidAt:        paidAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrApplicationNotFound):
			return NewNotFoundError(c, "Application not found")
		case errors.Is(err, domain.ErrInstallmentNotFound):
			return NewNotFoundError(c, "Installment not found")
		case errors.Is(err, domain.ErrInstallmentAlreadyPaid):
			return NewConflictError(c, "Installment is already settled")
		}
		log.Error().Err(err).
			Str("application_id", id.String()).
			Int32("installment", req.InstallmentNumber).
			Msg("Failed to record payment")
		return NewInternalError(c, "Failed to record payment")
	}

	log.Info().
		Str("application_id", app.ID.String()).
		Int32("installment", req.InstallmentNumber).
		Str("transaction_id", req.TransactionID).
		Msg("Installment payment recorded")

	return c.JSON(http.StatusOK, toApplicationResponse(app))
}

func toInstallmentResponse(inst *domain.Installment) InstallmentResponse {
	resp := InstallmentResponse{
		SequenceNumber: inst.SequenceNumber,
		DueDate:        inst.DueDate.Format("2006-01-02"),
		Amount:         inst.Amount.String(),
		Status:         string(inst.Status),
	}
	if inst.PaidDate != nil {
		s := inst.PaidDate.Format(time.RFC3339)
		resp.PaidDate = &s
	}
	resp.PaymentReference = inst.PaymentReference
	return resp
}

func toApplicationResponse(app *domain.EmiApplication) ApplicationResponse {
	resp := ApplicationResponse{
		ID:                    app.ID.String(),
		UserID:                app.UserID.String(),
		OrderID:               app.OrderID,
		PlanID:                app.PlanID,
		Principal:             app.Principal.String(),
		TotalInterest:         app.TotalInterest.String(),
		ProcessingFee:         app.ProcessingFee.String(),
		TotalAmount:           app.TotalAmount.String(),
		MonthlyEmi:            app.MonthlyEmi.String(),
		TenureMonths:          app.TenureMonths,
		PaidInstallments:      app.PaidInstallments,
		RemainingInstallments: app.RemainingInstallments,
		Status:                string(app.Status),
		Installments:          make([]InstallmentResponse, len(app.Installments)),
		CreatedAt:             app.CreatedAt.Format(time.RFC3339),
	}
	if app.NextDueDate != nil {
		s := app.NextDueDate.Format("2006-01-02")
		resp.NextDueDate = &s
	}
	if app.ApprovedAt != nil {
		s := app.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &s
	}
	for i := range app.Installments {
		resp.Installments[i] = toInstallmentResponse(&app.Installments[i])
	}
	return resp
}
