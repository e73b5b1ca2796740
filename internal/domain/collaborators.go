package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotEligible = errors.New("user is not eligible for the requested principal")

// EligibilityResult is the credit/KYC service's verdict for one application.
type EligibilityResult struct {
	Approved    bool
	CreditLimit decimal.Decimal
}

// EligibilityChecker gates the pending-to-approved transition. Whether a
// person is creditworthy is decided entirely outside this core.
type EligibilityChecker interface {
	Check(ctx context.Context, userID uuid.UUID, principal decimal.Decimal) (*EligibilityResult, error)
}

// Notification is one de-duplicated reminder or penalty message handed to the
// notification sink. Channel selection, delivery and retry belong to the sink.
type Notification struct {
	UserID        uuid.UUID
	TemplateType  NotificationType
	Substitutions map[string]string
}

// NotificationOutcome reports what the sink did with a notification.
type NotificationOutcome struct {
	Channel    string
	Delivered  bool
	ProviderID string
}

type NotificationSink interface {
	Send(ctx context.Context, n Notification) (*NotificationOutcome, error)
}
