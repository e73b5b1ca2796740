package service

import (
	"context"
	"testing"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/Pranshu2404/AsBrand-Backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overdueEntry(t *testing.T, due time.Time) *domain.PenaltyLedgerEntry {
	t.Helper()
	app := activeApplication(due)
	entry := domain.NewPenaltyLedgerEntry(app, &app.Installments[0], decimal.NewFromFloat(0.1), 3)
	require.NoError(t, entry.EnterGracePeriod(due.AddDate(0, 0, 1)))
	require.NoError(t, entry.BeginOverdue(due.AddDate(0, 0, 4)))
	return entry
}

func TestSnapshot_RecomputesWithoutPersisting(t *testing.T) {
	ledger := testutil.NewMockPenaltyLedgerRepository()
	svc := NewPenaltyService(ledger)

	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	entry := overdueEntry(t, due)
	ledger.AddEntry(entry)
	svc.now = func() time.Time { return due.AddDate(0, 0, 9) }

	view, err := svc.Snapshot(context.Background(), entry.ID)
	require.NoError(t, err)

	// Five days overdue at 0.1%/day of 1000
	assert.Equal(t, int32(5), view.DaysOverdue)
	assert.True(t, view.PenaltyAmount.Equal(decimal.NewFromInt(5)))
	assert.True(t, view.TotalPayable.Equal(decimal.NewFromInt(1005)))

	// The stored entry keeps whatever the last batch run wrote
	assert.Equal(t, int32(0), entry.DaysOverdue)
	assert.True(t, entry.PenaltyAmount.IsZero())
}

func TestSnapshot_PaidEntryReturnedAsStored(t *testing.T) {
	ledger := testutil.NewMockPenaltyLedgerRepository()
	svc := NewPenaltyService(ledger)

	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	entry := overdueEntry(t, due)
	require.NoError(t, entry.MarkPaid(entry.TotalPayable, "TXN-9", due.AddDate(0, 0, 4)))
	ledger.AddEntry(entry)
	svc.now = func() time.Time { return due.AddDate(0, 0, 30) }

	view, err := svc.Snapshot(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerStatusPaid, view.Status)
	assert.True(t, view.PenaltyAmount.Equal(entry.PenaltyAmount), "a settled penalty never moves")
}

func TestSnapshot_NotFound(t *testing.T) {
	svc := NewPenaltyService(testutil.NewMockPenaltyLedgerRepository())
	_, err := svc.Snapshot(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrLedgerEntryNotFound)
}

func TestWaive(t *testing.T) {
	ledger := testutil.NewMockPenaltyLedgerRepository()
	svc := NewPenaltyService(ledger)

	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	entry := overdueEntry(t, due)
	ledger.AddEntry(entry)

	waived, err := svc.Waive(context.Background(), entry.ID, "goodwill gesture", "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerStatusWaived, waived.Status)
	require.NotNil(t, waived.WaivedReason)
	assert.Equal(t, "goodwill gesture", *waived.WaivedReason)

	// Waived entries are terminal
	_, err = svc.Waive(context.Background(), entry.ID, "again", "ops@example.com")
	assert.ErrorIs(t, err, domain.ErrLedgerEntryClosed)
}

func TestWaive_RequiresReason(t *testing.T) {
	ledger := testutil.NewMockPenaltyLedgerRepository()
	svc := NewPenaltyService(ledger)

	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	entry := overdueEntry(t, due)
	ledger.AddEntry(entry)

	_, err := svc.Waive(context.Background(), entry.ID, "", "ops@example.com")
	assert.ErrorIs(t, err, domain.ErrWaiveReasonEmpty)
	assert.Equal(t, domain.LedgerStatusOverdue, entry.Status)
}

func TestListByApplication(t *testing.T) {
	ledger := testutil.NewMockPenaltyLedgerRepository()
	svc := NewPenaltyService(ledger)

	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	app := activeApplication(due)
	for i := range app.Installments {
		ledger.AddEntry(domain.NewPenaltyLedgerEntry(app, &app.Installments[i], decimal.NewFromFloat(0.1), 3))
	}
	ledger.AddEntry(domain.NewPenaltyLedgerEntry(activeApplication(due), &app.Installments[0], decimal.NewFromFloat(0.1), 3))

	entries, err := svc.ListByApplication(context.Background(), app.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, entry := range entries {
		assert.Equal(t, int32(i+1), entry.InstallmentNumber, "entries ordered by installment ordinal")
	}
}
