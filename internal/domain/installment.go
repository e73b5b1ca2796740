package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInstallmentNotFound    = errors.New("installment not found")
	ErrInstallmentAlreadyPaid = errors.New("installment is already paid")
)

type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "pending"
	InstallmentStatusPaid    InstallmentStatus = "paid"
	InstallmentStatusOverdue InstallmentStatus = "overdue"
	InstallmentStatusFailed  InstallmentStatus = "failed"
)

// Installment is one scheduled payment of an application. Installments are
// owned by exactly one application: ordinals run 1..tenure and due dates
// advance by one calendar month, anchored to the configured day of month.
type Installment struct {
	SequenceNumber   int32             `json:"sequenceNumber"`
	DueDate          time.Time         `json:"dueDate"`
	Amount           decimal.Decimal   `json:"amount"`
	Status           InstallmentStatus `json:"status"`
	PaidDate         *time.Time        `json:"paidDate,omitempty"`
	PaymentReference *string           `json:"paymentReference,omitempty"`
}

// IsSettled reports whether the installment no longer awaits payment.
func (i *Installment) IsSettled() bool {
	return i.Status == InstallmentStatusPaid
}
