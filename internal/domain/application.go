package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrApplicationNotFound    = errors.New("emi application not found")
	ErrApplicationNotPending  = errors.New("emi application is not pending")
	ErrApplicationNotApproved = errors.New("emi application is not approved")
	ErrPrincipalInvalid       = errors.New("principal must be positive")
	ErrScheduleHasPayments    = errors.New("schedule has settled installments and cannot be regenerated")
)

type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusApproved  ApplicationStatus = "approved"
	ApplicationStatusActive    ApplicationStatus = "active"
	ApplicationStatusCompleted ApplicationStatus = "completed"
	ApplicationStatusDefaulted ApplicationStatus = "defaulted"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
)

// PaymentInfo is what the external payment-confirmation feed delivers for a
// settled installment.
type PaymentInfo struct {
	TransactionID string
	PaymentMethod string
	PaidAt        time.Time
}

// EmiApplication is the owning aggregate for a buyer's installment purchase.
// It embeds its installments: they share the application's lifetime and are
// only ever mutated through the application. Applications are never
// hard-deleted; they are retained for audit.
type EmiApplication struct {
	ID                    uuid.UUID         `json:"id"`
	UserID                uuid.UUID         `json:"userId"`
	OrderID               string            `json:"orderId"`
	PlanID                int32             `json:"planId"`
	Principal             decimal.Decimal   `json:"principal"`
	TotalInterest         decimal.Decimal   `json:"totalInterest"`
	ProcessingFee         decimal.Decimal   `json:"processingFee"`
	TotalAmount           decimal.Decimal   `json:"totalAmount"`
	MonthlyEmi            decimal.Decimal   `json:"monthlyEmi"`
	TenureMonths          int32             `json:"tenureMonths"`
	Installments          []Installment     `json:"installments"`
	PaidInstallments      int32             `json:"paidInstallments"`
	RemainingInstallments int32             `json:"remainingInstallments"`
	NextDueDate           *time.Time        `json:"nextDueDate,omitempty"`
	Status                ApplicationStatus `json:"status"`
	ApprovedAt            *time.Time        `json:"approvedAt,omitempty"`
	CreatedAt             time.Time         `json:"createdAt"`
	UpdatedAt             time.Time         `json:"updatedAt"`
}

// InstallmentByOrdinal returns the installment with the given sequence number.
func (a *EmiApplication) InstallmentByOrdinal(ordinal int32) (*Installment, error) {
	for i := range a.Installments {
		if a.Installments[i].SequenceNumber == ordinal {
			return &a.Installments[i], nil
		}
	}
	return nil, ErrInstallmentNotFound
}

// InstallmentByDueDate returns the installment due on the given calendar
// date, or nil if none matches.
func (a *EmiApplication) InstallmentByDueDate(due time.Time) *Installment {
	y, m, d := due.Date()
	for i := range a.Installments {
		iy, im, id := a.Installments[i].DueDate.Date()
		if iy == y && im == m && id == d {
			return &a.Installments[i]
		}
	}
	return nil
}

// Approve moves a pending application to approved. The caller attaches the
// generated schedule before saving.
func (a *EmiApplication) Approve(at time.Time) error {
	if a.Status != ApplicationStatusPending {
		return ErrApplicationNotPending
	}
	a.Status = ApplicationStatusApproved
	a.ApprovedAt = &at
	return nil
}

// Reject is terminal and only valid from pending.
func (a *EmiApplication) Reject() error {
	if a.Status != ApplicationStatusPending {
		return ErrApplicationNotPending
	}
	a.Status = ApplicationStatusRejected
	return nil
}

// Activate marks an approved application active once its first installment
// comes due.
func (a *EmiApplication) Activate() error {
	if a.Status != ApplicationStatusApproved {
		return ErrApplicationNotApproved
	}
	a.Status = ApplicationStatusActive
	return nil
}

// MarkDefaulted flags the application after a missed installment exits its
// grace period unpaid. It is a risk signal, not an account freeze: further
// installment payments are still recorded.
func (a *EmiApplication) MarkDefaulted() {
	if a.Status == ApplicationStatusApproved || a.Status == ApplicationStatusActive {
		a.Status = ApplicationStatusDefaulted
	}
}

// IsOpen reports whether the application still has a live schedule the batch
// job should look at.
func (a *EmiApplication) IsOpen() bool {
	switch a.Status {
	case ApplicationStatusApproved, ApplicationStatusActive, ApplicationStatusDefaulted:
		return true
	}
	return false
}

// ApplyPayment settles one installment and maintains the counters and the
// next-due pointer. Invariant: paidInstallments + remainingInstallments
// always equals the tenure.
func (a *EmiApplication) ApplyPayment(ordinal int32, info PaymentInfo) error {
	inst, err := a.InstallmentByOrdinal(ordinal)
	if err != nil {
		return err
	}
	if inst.IsSettled() {
		return ErrInstallmentAlreadyPaid
	}

	ref := info.TransactionID
	paidAt := info.PaidAt
	inst.Status = InstallmentStatusPaid
	inst.PaidDate = &paidAt
	inst.PaymentReference = &ref

	a.PaidInstallments++
	a.RemainingInstallments = a.TenureMonths - a.PaidInstallments
	a.RecalcNextDue()

	// An application prepaid in full before its first due date completes
	// straight from approved; it never passes through active.
	if a.RemainingInstallments == 0 &&
		(a.Status == ApplicationStatusActive || a.Status == ApplicationStatusApproved) {
		a.Status = ApplicationStatusCompleted
	}
	return nil
}

// RecalcNextDue points NextDueDate at the earliest pending installment, or
// clears it when none remain.
func (a *EmiApplication) RecalcNextDue() {
	var next *time.Time
	for i := range a.Installments {
		inst := &a.Installments[i]
		if inst.Status != InstallmentStatusPending {
			continue
		}
		if next == nil || inst.DueDate.Before(*next) {
			d := inst.DueDate
			next = &d
		}
	}
	a.NextDueDate = next
}

type EmiApplicationRepository interface {
	Create(app *EmiApplication) (*EmiApplication, error)
	GetByID(id uuid.UUID) (*EmiApplication, error)
	ListByUser(userID uuid.UUID) ([]*EmiApplication, error)
	// ListOpenByNextDueDate returns approved/active/defaulted applications
	// whose next due date falls on the given calendar date.
	ListOpenByNextDueDate(due time.Time) ([]*EmiApplication, error)
	Update(app *EmiApplication) (*EmiApplication, error)
}
