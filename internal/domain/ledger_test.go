package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testEntry(due time.Time) *PenaltyLedgerEntry {
	app := &EmiApplication{ID: uuid.New(), UserID: uuid.New()}
	inst := &Installment{
		SequenceNumber: 1,
		DueDate:        due,
		Amount:         decimal.NewFromInt(1000),
		Status:         InstallmentStatusPending,
	}
	return NewPenaltyLedgerEntry(app, inst, decimal.NewFromFloat(0.1), 3)
}

func TestLedgerEntry_InitialState(t *testing.T) {
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	e := testEntry(due)

	if e.Status != LedgerStatusPending {
		t.Errorf("Expected pending, got %s", e.Status)
	}
	if e.IsInGracePeriod {
		t.Error("Expected entry not to be in grace period")
	}
	if !e.TotalPayable.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected totalPayable 1000, got %s", e.TotalPayable)
	}
}

func TestLedgerEntry_EnterGracePeriod(t *testing.T) {
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	e := testEntry(due)

	// Still on the due date: not yet
	if err := e.EnterGracePeriod(due); err != ErrLedgerEntryNotDue {
		t.Errorf("Expected ErrLedgerEntryNotDue on the due date, got %v", err)
	}

	// Day after due date
	if err := e.EnterGracePeriod(due.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("Expected grace transition, got %v", err)
	}
	if e.Status != LedgerStatusGracePeriod || !e.IsInGracePeriod {
		t.Errorf("Expected grace_period state, got %s (inGrace=%v)", e.Status, e.IsInGracePeriod)
	}
	if !e.PenaltyAmount.IsZero() {
		t.Errorf("Expected zero penalty in grace period, got %s", e.PenaltyAmount)
	}

	// Transitioning twice is a state conflict
	if err := e.EnterGracePeriod(due.AddDate(0, 0, 2)); err != ErrStateConflict {
		t.Errorf("Expected ErrStateConflict on repeat, got %v", err)
	}
}

func TestLedgerEntry_BeginOverdue(t *testing.T) {
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	e := testEntry(due)
	if err := e.EnterGracePeriod(due.AddDate(0, 0, 1)); err != nil {
		t.Fatal(err)
	}

	// Last day of grace: not yet overdue
	if err := e.BeginOverdue(due.AddDate(0, 0, 3)); err != ErrLedgerEntryNotDue {
		t.Errorf("Expected ErrLedgerEntryNotDue within grace, got %v", err)
	}

	// Day after grace end (D+4): overdue, day zero, no penalty yet
	if err := e.BeginOverdue(due.AddDate(0, 0, 4)); err != nil {
		t.Fatalf("Expected overdue transition, got %v", err)
	}
	if e.Status != LedgerStatusOverdue {
		t.Errorf("Expected overdue, got %s", e.Status)
	}
	if e.IsInGracePeriod {
		t.Error("Expected isInGracePeriod to be cleared")
	}
	if e.MissedDate == nil || !e.MissedDate.Equal(due) {
		t.Errorf("Expected missedDate %s, got %v", due, e.MissedDate)
	}
	if e.DaysOverdue != 0 {
		t.Errorf("Expected daysOverdue 0 at D+4, got %d", e.DaysOverdue)
	}
	if !e.PenaltyAmount.IsZero() {
		t.Errorf("Expected zero penalty at D+4, got %s", e.PenaltyAmount)
	}
}

func TestLedgerEntry_PenaltyAccrual(t *testing.T) {
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	e := testEntry(due)
	if err := e.EnterGracePeriod(due.AddDate(0, 0, 1)); err != nil {
		t.Fatal(err)
	}
	if err := e.BeginOverdue(due.AddDate(0, 0, 4)); err != nil {
		t.Fatal(err)
	}

	// D+5: one day overdue, 0.1%/day of 1000 = 1.00
	if err := e.RecomputePenalty(due.AddDate(0, 0, 5)); err != nil {
		t.Fatal(err)
	}
	if e.DaysOverdue != 1 {
		t.Errorf("Expected daysOverdue 1 at D+5, got %d", e.DaysOverdue)
	}
	if !e.PenaltyAmount.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected penalty 1.00, got %s", e.PenaltyAmount)
	}
	if !e.TotalPayable.Equal(decimal.NewFromInt(1001)) {
		t.Errorf("Expected totalPayable 1001, got %s", e.TotalPayable)
	}

	// D+14: ten days overdue, penalty 10.00
	if err := e.RecomputePenalty(due.AddDate(0, 0, 14)); err != nil {
		t.Fatal(err)
	}
	if !e.PenaltyAmount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected penalty 10.00, got %s", e.PenaltyAmount)
	}
}

func TestLedgerEntry_PenaltyDeterministic(t *testing.T) {
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	e := testEntry(due)
	_ = e.EnterGracePeriod(due.AddDate(0, 0, 1))
	_ = e.BeginOverdue(due.AddDate(0, 0, 4))

	now := due.AddDate(0, 0, 9)
	if err := e.RecomputePenalty(now); err != nil {
		t.Fatal(err)
	}
	first := e.PenaltyAmount

	// Recomputing for the same now yields the same amount, no accumulation
	if err := e.RecomputePenalty(now); err != nil {
		t.Fatal(err)
	}
	if !e.PenaltyAmount.Equal(first) {
		t.Errorf("Expected deterministic penalty %s, got %s", first, e.PenaltyAmount)
	}
}

func TestLedgerEntry_MarkPaidFreezesPenalty(t *testing.T) {
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	e := testEntry(due)
	_ = e.EnterGracePeriod(due.AddDate(0, 0, 1))
	_ = e.BeginOverdue(due.AddDate(0, 0, 4))
	_ = e.RecomputePenalty(due.AddDate(0, 0, 6))

	frozen := e.PenaltyAmount
	payable := e.TotalPayable
	paidAt := due.AddDate(0, 0, 6)
	if err := e.MarkPaid(payable, "TXN-1", paidAt); err != nil {
		t.Fatalf("Expected paid transition, got %v", err)
	}
	if e.Status != LedgerStatusPaid {
		t.Errorf("Expected paid, got %s", e.Status)
	}

	// The batch accrual path must no-op once paid
	if err := e.RecomputePenalty(due.AddDate(0, 0, 30)); err != ErrStateConflict {
		t.Errorf("Expected ErrStateConflict for accrual after payment, got %v", err)
	}
	if !e.PenaltyAmount.Equal(frozen) || !e.TotalPayable.Equal(payable) {
		t.Error("Expected penalty and totalPayable to stay frozen after payment")
	}

	// Paying twice is rejected
	if err := e.MarkPaid(payable, "TXN-2", paidAt); err != ErrLedgerEntryClosed {
		t.Errorf("Expected ErrLedgerEntryClosed, got %v", err)
	}
}

func TestLedgerEntry_MarkPaidFromPendingAndGrace(t *testing.T) {
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	e := testEntry(due)
	if err := e.MarkPaid(e.OriginalAmount, "TXN-1", due); err != nil {
		t.Errorf("Expected paying a pending entry to succeed, got %v", err)
	}

	e = testEntry(due)
	_ = e.EnterGracePeriod(due.AddDate(0, 0, 1))
	if err := e.MarkPaid(e.OriginalAmount, "TXN-2", due.AddDate(0, 0, 2)); err != nil {
		t.Errorf("Expected paying a grace entry to succeed, got %v", err)
	}
	if e.IsInGracePeriod {
		t.Error("Expected grace flag cleared on payment")
	}
}

func TestLedgerEntry_Waive(t *testing.T) {
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	e := testEntry(due)
	_ = e.EnterGracePeriod(due.AddDate(0, 0, 1))
	_ = e.BeginOverdue(due.AddDate(0, 0, 4))

	if err := e.Waive("", "ops@asbrand", due.AddDate(0, 0, 5)); err != ErrWaiveReasonEmpty {
		t.Errorf("Expected ErrWaiveReasonEmpty, got %v", err)
	}

	at := due.AddDate(0, 0, 5)
	if err := e.Waive("goodwill", "ops@asbrand", at); err != nil {
		t.Fatalf("Expected waive to succeed, got %v", err)
	}
	if e.Status != LedgerStatusWaived {
		t.Errorf("Expected waived, got %s", e.Status)
	}
	if e.WaivedReason == nil || *e.WaivedReason != "goodwill" {
		t.Error("Expected waiver reason to be recorded")
	}

	// No further accrual after waiver
	if err := e.RecomputePenalty(due.AddDate(0, 0, 20)); err != ErrStateConflict {
		t.Errorf("Expected ErrStateConflict after waiver, got %v", err)
	}
}

func TestLedgerEntry_HasNotification(t *testing.T) {
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	e := testEntry(due)

	if e.HasNotification(NotificationReminder3Days) {
		t.Error("Expected no notifications on a fresh entry")
	}
	e.Notifications = append(e.Notifications, NotificationRecord{
		Type:           NotificationReminder3Days,
		Channel:        "sns",
		SentAt:         due.AddDate(0, 0, -3),
		DeliveryStatus: "sent",
	})
	if !e.HasNotification(NotificationReminder3Days) {
		t.Error("Expected reminder_3_days to be recorded")
	}
	if e.HasNotification(NotificationDueToday) {
		t.Error("Expected due_today to be absent")
	}
}
