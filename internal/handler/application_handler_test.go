package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/Pranshu2404/AsBrand-Backend/internal/service"
	"github.com/Pranshu2404/AsBrand-Backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type applicationHandlerFixture struct {
	handler     *ApplicationHandler
	planRepo    *testutil.MockEmiPlanRepository
	appRepo     *testutil.MockEmiApplicationRepository
	eligibility *testutil.MockEligibilityChecker
}

func newApplicationHandlerFixture() *applicationHandlerFixture {
	planRepo := testutil.NewMockEmiPlanRepository()
	appRepo := testutil.NewMockEmiApplicationRepository()
	ledgerRepo := testutil.NewMockPenaltyLedgerRepository()
	eligibility := &testutil.MockEligibilityChecker{Approved: true}

	planRepo.AddPlan(&domain.EmiPlan{
		ID:             1,
		Name:           "No Cost 3 Month",
		TenureMonths:   3,
		MinOrderAmount: decimal.NewFromInt(1000),
		MaxOrderAmount: decimal.NewFromInt(100000),
		IsActive:       true,
	})

	appService := service.NewApplicationService(appRepo, planRepo, ledgerRepo, eligibility, 5)
	return &applicationHandlerFixture{
		handler:     NewApplicationHandler(appService),
		planRepo:    planRepo,
		appRepo:     appRepo,
		eligibility: eligibility,
	}
}

func TestCreateApplication_Success(t *testing.T) {
	e := echo.New()
	f := newApplicationHandlerFixture()
	userID := uuid.New()

	reqBody := fmt.Sprintf(`{
		"userId": "%s",
		"orderId": "ORD-1001",
		"planId": 1,
		"principal": "3000"
	}`, userID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := f.handler.CreateApplication(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var response ApplicationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Status != "pending" {
		t.Errorf("Expected status 'pending', got %s", response.Status)
	}
	if response.MonthlyEmi != "1000" {
		t.Errorf("Expected monthly EMI '1000', got %s", response.MonthlyEmi)
	}
	if len(response.Installments) != 0 {
		t.Errorf("Expected no schedule before approval, got %d installments", len(response.Installments))
	}
}

func TestCreateApplication_PrincipalOutsideBounds(t *testing.T) {
	e := echo.New()
	f := newApplicationHandlerFixture()

	reqBody := fmt.Sprintf(`{
		"userId": "%s",
		"orderId": "ORD-1002",
		"planId": 1,
		"principal": "500"
	}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := f.handler.CreateApplication(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
	if len(f.appRepo.Applications) != 0 {
		t.Error("Expected no application to be persisted")
	}
}

func TestApprove_GeneratesScheduleResponse(t *testing.T) {
	e := echo.New()
	f := newApplicationHandlerFixture()

	app := &domain.EmiApplication{
		ID:                    uuid.New(),
		UserID:                uuid.New(),
		OrderID:               "ORD-1003",
		PlanID:                1,
		Principal:             decimal.NewFromInt(3000),
		TotalAmount:           decimal.NewFromInt(3000),
		MonthlyEmi:            decimal.NewFromInt(1000),
		TenureMonths:          3,
		RemainingInstallments: 3,
		Status:                domain.ApplicationStatusPending,
	}
	f.appRepo.AddApplication(app)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/"+app.ID.String()+"/approve", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(app.ID.String())

	if err := f.handler.Approve(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response ApplicationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Status != "approved" {
		t.Errorf("Expected status 'approved', got %s", response.Status)
	}
	if len(response.Installments) != 3 {
		t.Fatalf("Expected 3 installments, got %d", len(response.Installments))
	}
	if response.NextDueDate == nil {
		t.Error("Expected next due date to be set")
	}
}

func TestApprove_RejectedByEligibility(t *testing.T) {
	e := echo.New()
	f := newApplicationHandlerFixture()
	f.eligibility.Approved = false

	app := &domain.EmiApplication{
		ID:                    uuid.New(),
		UserID:                uuid.New(),
		OrderID:               "ORD-1004",
		PlanID:                1,
		Principal:             decimal.NewFromInt(3000),
		TotalAmount:           decimal.NewFromInt(3000),
		MonthlyEmi:            decimal.NewFromInt(1000),
		TenureMonths:          3,
		RemainingInstallments: 3,
		Status:                domain.ApplicationStatusPending,
	}
	f.appRepo.AddApplication(app)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/"+app.ID.String()+"/approve", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(app.ID.String())

	if err := f.handler.Approve(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response ApplicationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Status != "rejected" {
		t.Errorf("Expected status 'rejected', got %s", response.Status)
	}
}

func TestRecordPayment_AlreadySettled(t *testing.T) {
	e := echo.New()
	f := newApplicationHandlerFixture()

	paidAt := "2024-03-05T10:00:00Z"
	app := &domain.EmiApplication{
		ID:                    uuid.New(),
		UserID:                uuid.New(),
		OrderID:               "ORD-1005",
		PlanID:                1,
		Principal:             decimal.NewFromInt(3000),
		TotalAmount:           decimal.NewFromInt(3000),
		MonthlyEmi:            decimal.NewFromInt(1000),
		TenureMonths:          3,
		PaidInstallments:      0,
		RemainingInstallments: 3,
		Status:                domain.ApplicationStatusActive,
	}
	app.Installments = []domain.Installment{
		{SequenceNumber: 1, Amount: decimal.NewFromInt(1000), Status: domain.InstallmentStatusPending},
		{SequenceNumber: 2, Amount: decimal.NewFromInt(1000), Status: domain.InstallmentStatusPending},
		{SequenceNumber: 3, Amount: decimal.NewFromInt(1000), Status: domain.InstallmentStatusPending},
	}
	f.appRepo.AddApplication(app)

	reqBody := fmt.Sprintf(`{
		"installmentNumber": 1,
		"transactionId": "TXN-77",
		"paymentMethod": "upi",
		"paidAt": "%s"
	}`, paidAt)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/"+app.ID.String()+"/payments", strings.NewReader(reqBody))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(app.ID.String())
		if err := f.handler.RecordPayment(c); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		return rec
	}

	// First confirmation settles installment 1
	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	// A duplicate confirmation for the same installment conflicts
	rec := send()
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if problem.Type != ErrorTypeConflict {
		t.Errorf("Expected conflict problem type, got %s", problem.Type)
	}
}
