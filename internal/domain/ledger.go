package domain

import (
	"errors"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/util"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrLedgerEntryNotFound   = errors.New("penalty ledger entry not found")
	ErrLedgerEntryClosed     = errors.New("penalty ledger entry is already settled")
	ErrLedgerEntryNotInGrace = errors.New("penalty ledger entry is not in its grace period")
	ErrLedgerEntryNotDue     = errors.New("penalty ledger entry is not past its due date")
	ErrWaiveReasonEmpty      = errors.New("waiver reason is required")
	ErrVersionConflict       = errors.New("penalty ledger entry was modified concurrently")
)

type LedgerStatus string

const (
	LedgerStatusPending     LedgerStatus = "pending"
	LedgerStatusGracePeriod LedgerStatus = "grace_period"
	LedgerStatusOverdue     LedgerStatus = "overdue"
	LedgerStatusPaid        LedgerStatus = "paid"
	LedgerStatusWaived      LedgerStatus = "waived"
)

type NotificationType string

const (
	NotificationReminder3Days NotificationType = "reminder_3_days"
	NotificationDueToday      NotificationType = "due_today"
	NotificationOverdueDay1   NotificationType = "overdue_day_1"
	NotificationGraceEnded    NotificationType = "overdue_grace_ended"
)

// NotificationRecord is one append-only entry in a ledger entry's
// notification history. Existence of a (entry, type) record is the guard
// against re-sending the same milestone.
type NotificationRecord struct {
	Type           NotificationType `json:"type"`
	Channel        string           `json:"channel"`
	SentAt         time.Time        `json:"sentAt"`
	DeliveryStatus string           `json:"deliveryStatus"`
}

// PenaltyLedgerEntry tracks the grace-then-penalty lifecycle of exactly one
// (application, installment ordinal) pair. Entries are created lazily by the
// daily batch when an installment enters its reminder window, mutated only by
// the batch and the payment-confirmation path, and never deleted.
type PenaltyLedgerEntry struct {
	ID                uuid.UUID        `json:"id"`
	ApplicationID     uuid.UUID        `json:"applicationId"`
	UserID            uuid.UUID        `json:"userId"`
	InstallmentNumber int32            `json:"installmentNumber"`
	OriginalAmount    decimal.Decimal  `json:"originalAmount"` // frozen at creation, never drifts
	DueDate           time.Time        `json:"dueDate"`
	MissedDate        *time.Time       `json:"missedDate,omitempty"`
	PenaltyRate       decimal.Decimal  `json:"penaltyRate"` // percent per day
	GracePeriodDays   int32            `json:"gracePeriodDays"`
	DaysOverdue       int32            `json:"daysOverdue"`
	PenaltyAmount     decimal.Decimal  `json:"penaltyAmount"`
	TotalPayable      decimal.Decimal  `json:"totalPayable"`
	IsInGracePeriod   bool             `json:"isInGracePeriod"`
	Status            LedgerStatus     `json:"status"`
	PaidAmount        *decimal.Decimal `json:"paidAmount,omitempty"`
	PaidDate          *time.Time       `json:"paidDate,omitempty"`
	PaymentReference  *string          `json:"paymentReference,omitempty"`
	WaivedReason      *string          `json:"waivedReason,omitempty"`
	WaivedBy          *string          `json:"waivedBy,omitempty"`
	WaivedAt          *time.Time       `json:"waivedAt,omitempty"`

	Notifications []NotificationRecord `json:"notifications"`

	// Version guards against concurrent writers for the same entry.
	Version   int32     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewPenaltyLedgerEntry creates an entry in its initial state for an
// installment entering the reminder window.
func NewPenaltyLedgerEntry(app *EmiApplication, inst *Installment, penaltyRate decimal.Decimal, graceDays int32) *PenaltyLedgerEntry {
	return &PenaltyLedgerEntry{
		ID:                uuid.New(),
		ApplicationID:     app.ID,
		UserID:            app.UserID,
		InstallmentNumber: inst.SequenceNumber,
		OriginalAmount:    inst.Amount,
		DueDate:           util.DateOnly(inst.DueDate),
		PenaltyRate:       penaltyRate,
		GracePeriodDays:   graceDays,
		PenaltyAmount:     decimal.Zero,
		TotalPayable:      inst.Amount,
		Status:            LedgerStatusPending,
	}
}

// Accruable reports whether the entry still participates in state advances
// and penalty accrual. Paid and waived entries are terminal: the payment
// path wins any race with the batch job.
func (e *PenaltyLedgerEntry) Accruable() bool {
	switch e.Status {
	case LedgerStatusPending, LedgerStatusGracePeriod, LedgerStatusOverdue:
		return true
	}
	return false
}

// GraceEndDate is the last calendar day of the grace period. The entry
// becomes overdue the day after.
func (e *PenaltyLedgerEntry) GraceEndDate() time.Time {
	return util.DateOnly(e.DueDate).AddDate(0, 0, int(e.GracePeriodDays))
}

// daysOverdueAt counts whole days spent in the overdue state. The first day
// past the grace period counts as day zero.
func (e *PenaltyLedgerEntry) daysOverdueAt(now time.Time) int32 {
	days := util.DaysBetween(e.GraceEndDate(), now) - 1
	if days < 0 {
		return 0
	}
	return int32(days)
}

// EnterGracePeriod moves a pending entry into its grace period once the due
// date has passed. No penalty accrues yet.
func (e *PenaltyLedgerEntry) EnterGracePeriod(now time.Time) error {
	if e.Status != LedgerStatusPending {
		return ErrStateConflict
	}
	if !util.DateOnly(now).After(util.DateOnly(e.DueDate)) {
		return ErrLedgerEntryNotDue
	}
	e.Status = LedgerStatusGracePeriod
	e.IsInGracePeriod = true
	return nil
}

// BeginOverdue ends the grace period: the due date is recorded as missed and
// the penalty is computed for the first time.
func (e *PenaltyLedgerEntry) BeginOverdue(now time.Time) error {
	if e.Status != LedgerStatusGracePeriod {
		return ErrLedgerEntryNotInGrace
	}
	if !util.DateOnly(now).After(e.GraceEndDate()) {
		return ErrLedgerEntryNotDue
	}
	missed := util.DateOnly(e.DueDate)
	e.MissedDate = &missed
	e.IsInGracePeriod = false
	e.Status = LedgerStatusOverdue
	e.recomputePenalty(now)
	return nil
}

// RecomputePenalty recalculates the accrued penalty from scratch for the
// given time. The computation is simple (linear in days overdue, not
// compounding) and deterministic: recomputing for the same now always yields
// the same amount, so repeated or missed batch runs never cause drift.
func (e *PenaltyLedgerEntry) RecomputePenalty(now time.Time) error {
	if e.Status != LedgerStatusOverdue {
		return ErrStateConflict
	}
	e.recomputePenalty(now)
	return nil
}

func (e *PenaltyLedgerEntry) recomputePenalty(now time.Time) {
	e.DaysOverdue = e.daysOverdueAt(now)
	e.PenaltyAmount = e.OriginalAmount.
		Mul(e.PenaltyRate).
		Div(decimal.NewFromInt(100)).
		Mul(decimal.NewFromInt32(e.DaysOverdue)).
		Round(2)
	e.TotalPayable = e.OriginalAmount.Add(e.PenaltyAmount)
}

// MarkPaid settles the entry from the payment-confirmation path. The penalty
// freezes at its last computed value; later batch passes must not touch the
// entry again.
func (e *PenaltyLedgerEntry) MarkPaid(amount decimal.Decimal, reference string, paidAt time.Time) error {
	if !e.Accruable() {
		return ErrLedgerEntryClosed
	}
	e.Status = LedgerStatusPaid
	e.IsInGracePeriod = false
	e.PaidAmount = &amount
	e.PaidDate = &paidAt
	e.PaymentReference = &reference
	return nil
}

// Waive closes the entry administratively without payment.
func (e *PenaltyLedgerEntry) Waive(reason, actor string, at time.Time) error {
	if reason == "" {
		return ErrWaiveReasonEmpty
	}
	if !e.Accruable() {
		return ErrLedgerEntryClosed
	}
	e.Status = LedgerStatusWaived
	e.IsInGracePeriod = false
	e.WaivedReason = &reason
	e.WaivedBy = &actor
	e.WaivedAt = &at
	return nil
}

// HasNotification reports whether a milestone notification of the given type
// has already been recorded for this entry.
func (e *PenaltyLedgerEntry) HasNotification(t NotificationType) bool {
	for i := range e.Notifications {
		if e.Notifications[i].Type == t {
			return true
		}
	}
	return false
}

type PenaltyLedgerRepository interface {
	Create(entry *PenaltyLedgerEntry) (*PenaltyLedgerEntry, error)
	GetByID(id uuid.UUID) (*PenaltyLedgerEntry, error)
	GetByApplicationAndInstallment(applicationID uuid.UUID, installmentNumber int32) (*PenaltyLedgerEntry, error)
	ListByApplication(applicationID uuid.UUID) ([]*PenaltyLedgerEntry, error)
	// ListOpenDueBefore returns entries still in {pending, grace_period,
	// overdue} whose due date falls strictly before the given date.
	ListOpenDueBefore(date time.Time) ([]*PenaltyLedgerEntry, error)
	// Update persists the entry, failing with ErrVersionConflict when a
	// concurrent writer got there first.
	Update(entry *PenaltyLedgerEntry) (*PenaltyLedgerEntry, error)
	// AppendNotification adds one record to the entry's append-only
	// notification history. The record is written before the message is
	// handed to the sink, so milestone existence is never in doubt.
	AppendNotification(entryID uuid.UUID, rec NotificationRecord) error
	// SetNotificationStatus updates the delivery status of the (entry, type)
	// record once the sink outcome is known.
	SetNotificationStatus(entryID uuid.UUID, t NotificationType, status string) error
}
