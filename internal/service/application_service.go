package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/Pranshu2404/AsBrand-Backend/internal/util"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApplicationService handles the EMI application lifecycle: quoting,
// approval, schedule generation and installment settlement.
type ApplicationService struct {
	appRepo     domain.EmiApplicationRepository
	planRepo    domain.EmiPlanRepository
	ledgerRepo  domain.PenaltyLedgerRepository
	eligibility domain.EligibilityChecker
	dueDay      int

	now func() time.Time // overridable in tests
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(
	appRepo domain.EmiApplicationRepository,
	planRepo domain.EmiPlanRepository,
	ledgerRepo domain.PenaltyLedgerRepository,
	eligibility domain.EligibilityChecker,
	dueDay int,
) *ApplicationService {
	return &ApplicationService{
		appRepo:     appRepo,
		planRepo:    planRepo,
		ledgerRepo:  ledgerRepo,
		eligibility: eligibility,
		dueDay:      dueDay,
		now:         time.Now,
	}
}

// CreateApplicationInput contains input for opening an EMI application
type CreateApplicationInput struct {
	UserID    uuid.UUID
	OrderID   string
	PlanID    int32
	Principal decimal.Decimal
}

// CreateApplication quotes the purchase under the chosen plan and opens a
// pending application. Nothing is persisted when validation fails.
func (s *ApplicationService) CreateApplication(ctx context.Context, input CreateApplicationInput) (*domain.EmiApplication, error) {
	plan, err := s.planRepo.GetByID(input.PlanID)
	if err != nil {
		return nil, err
	}

	quote, err := CalculateEMI(plan, input.Principal)
	if err != nil {
		return nil, err
	}

	app := &domain.EmiApplication{
		ID:                    uuid.New(),
		UserID:                input.UserID,
		OrderID:               input.OrderID,
		PlanID:                plan.ID,
		Principal:             input.Principal,
		TotalInterest:         quote.TotalInterest,
		ProcessingFee:         quote.ProcessingFee,
		TotalAmount:           quote.TotalAmount,
		MonthlyEmi:            quote.MonthlyEmi,
		TenureMonths:          quote.TenureMonths,
		PaidInstallments:      0,
		RemainingInstallments: quote.TenureMonths,
		Status:                domain.ApplicationStatusPending,
	}

	return s.appRepo.Create(app)
}

// Approve runs the external eligibility check and, when it passes,
// materializes the installment schedule and stamps the approval. A failed
// check rejects the application terminally; the caller reads the outcome off
// the returned application's status.
func (s *ApplicationService) Approve(ctx context.Context, applicationID uuid.UUID) (*domain.EmiApplication, error) {
	app, err := s.appRepo.GetByID(applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, domain.ErrApplicationNotPending
	}

	result, err := s.eligibility.Check(ctx, app.UserID, app.Principal)
	if err != nil {
		return nil, fmt.Errorf("eligibility check: %w", err)
	}

	if !result.Approved || result.CreditLimit.LessThan(app.Principal) {
		if err := app.Reject(); err != nil {
			return nil, err
		}
		return s.appRepo.Update(app)
	}

	at := s.now()
	if err := app.Approve(at); err != nil {
		return nil, err
	}
	if err := s.GenerateSchedule(app, at); err != nil {
		return nil, err
	}

	return s.appRepo.Update(app)
}

// GenerateSchedule materializes the application's installments: ordinals
// 1..tenure, each due on the anchored day of month, starting one calendar
// month after generation. The rounding remainder of the ceiled EMI is folded
// into the last installment so the schedule sums to the financed total.
// Regenerating after any installment has been settled is rejected.
func (s *ApplicationService) GenerateSchedule(app *domain.EmiApplication, at time.Time) error {
	for i := range app.Installments {
		if app.Installments[i].IsSettled() {
			return domain.ErrScheduleHasPayments
		}
	}

	n := app.TenureMonths
	financed := app.TotalAmount.Sub(app.ProcessingFee)
	lastAmount := financed.Sub(app.MonthlyEmi.Mul(decimal.NewFromInt32(n - 1)))

	installments := make([]domain.Installment, n)
	for i := int32(0); i < n; i++ {
		amount := app.MonthlyEmi
		if i == n-1 {
			amount = lastAmount
		}
		installments[i] = domain.Installment{
			SequenceNumber: i + 1,
			DueDate:        util.AddMonthsPinned(at, int(i)+1, s.dueDay),
			Amount:         amount,
			Status:         domain.InstallmentStatusPending,
		}
	}

	app.Installments = installments
	app.PaidInstallments = 0
	app.RemainingInstallments = n
	app.RecalcNextDue()
	return nil
}

// RecordInstallmentPayment settles one installment from the external payment
// confirmation feed and closes the matching penalty ledger entry, if one was
// opened. The payment path wins any race with the daily batch: once the
// ledger entry is paid, batch accrual no-ops on it.
func (s *ApplicationService) RecordInstallmentPayment(ctx context.Context, applicationID uuid.UUID, ordinal int32, info domain.PaymentInfo) (*domain.EmiApplication, error) {
	app, err := s.appRepo.GetByID(applicationID)
	if err != nil {
		return nil, err
	}

	if err := app.ApplyPayment(ordinal, info); err != nil {
		if errors.Is(err, domain.ErrInstallmentAlreadyPaid) {
			// An earlier confirmation may have settled the installment but
			// died before closing the ledger entry. Re-drive the settlement
			// so the entry cannot stay open accruing penalty on a paid
			// installment.
			if settleErr := s.settleLedgerEntry(applicationID, ordinal, info); settleErr != nil {
				return nil, settleErr
			}
		}
		return nil, err
	}

	updated, err := s.appRepo.Update(app)
	if err != nil {
		return nil, err
	}

	if err := s.settleLedgerEntry(applicationID, ordinal, info); err != nil {
		return nil, err
	}

	return updated, nil
}

// settleLedgerEntry marks the entry for the settled installment as paid,
// retrying over optimistic-lock conflicts with a concurrent batch pass.
func (s *ApplicationService) settleLedgerEntry(applicationID uuid.UUID, ordinal int32, info domain.PaymentInfo) error {
	for attempt := 0; attempt < 3; attempt++ {
		entry, err := s.ledgerRepo.GetByApplicationAndInstallment(applicationID, ordinal)
		if err == domain.ErrLedgerEntryNotFound {
			return nil // never entered the reminder window
		}
		if err != nil {
			return err
		}
		if !entry.Accruable() {
			return nil
		}

		if err := entry.MarkPaid(entry.TotalPayable, info.TransactionID, info.PaidAt); err != nil {
			return err
		}
		_, err = s.ledgerRepo.Update(entry)
		if err == domain.ErrVersionConflict {
			continue
		}
		return err
	}
	return domain.ErrVersionConflict
}

// GetApplication retrieves an application with its schedule.
func (s *ApplicationService) GetApplication(ctx context.Context, id uuid.UUID) (*domain.EmiApplication, error) {
	return s.appRepo.GetByID(id)
}

// GetSchedule returns the installment sequence of an application.
func (s *ApplicationService) GetSchedule(ctx context.Context, id uuid.UUID) ([]domain.Installment, error) {
	app, err := s.appRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return app.Installments, nil
}

// ListApplicationsByUser retrieves a user's applications.
func (s *ApplicationService) ListApplicationsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.EmiApplication, error) {
	return s.appRepo.ListByUser(userID)
}
