package postgres

import (
	"context"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PenaltyLedgerRepository implements domain.PenaltyLedgerRepository using
// PostgreSQL. Notification records live in their own append-only table and
// are never updated or deleted.
type PenaltyLedgerRepository struct {
	pool *pgxpool.Pool
}

// NewPenaltyLedgerRepository creates a new PenaltyLedgerRepository
func NewPenaltyLedgerRepository(pool *pgxpool.Pool) *PenaltyLedgerRepository {
	return &PenaltyLedgerRepository{pool: pool}
}

const ledgerColumns = `id, application_id, user_id, installment_number, original_amount,
	due_date, missed_date, penalty_rate, grace_period_days, days_overdue,
	penalty_amount, total_payable, is_in_grace_period, status, paid_amount,
	paid_date, payment_reference, waived_reason, waived_by, waived_at,
	version, created_at, updated_at`

// Create persists a new ledger entry at version 1
func (r *PenaltyLedgerRepository) Create(entry *domain.PenaltyLedgerEntry) (*domain.PenaltyLedgerEntry, error) {
	ctx := context.Background()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	originalAmount, err := decimalToPgNumeric(entry.OriginalAmount)
	if err != nil {
		return nil, err
	}
	penaltyRate, err := decimalToPgNumeric(entry.PenaltyRate)
	if err != nil {
		return nil, err
	}
	penaltyAmount, err := decimalToPgNumeric(entry.PenaltyAmount)
	if err != nil {
		return nil, err
	}
	totalPayable, err := decimalToPgNumeric(entry.TotalPayable)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO penalty_ledger_entries (id, application_id, user_id,
			installment_number, original_amount, due_date, penalty_rate,
			grace_period_days, days_overdue, penalty_amount, total_payable,
			is_in_grace_period, status, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
		RETURNING `+ledgerColumns,
		entry.ID, entry.ApplicationID, entry.UserID, entry.InstallmentNumber,
		originalAmount, entry.DueDate, penaltyRate, entry.GracePeriodDays,
		entry.DaysOverdue, penaltyAmount, totalPayable, entry.IsInGracePeriod,
		string(entry.Status),
	)
	return scanLedgerEntry(row)
}

// GetByID retrieves a ledger entry with its notification history
func (r *PenaltyLedgerRepository) GetByID(id uuid.UUID) (*domain.PenaltyLedgerEntry, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+ledgerColumns+`
		FROM penalty_ledger_entries
		WHERE id = $1`,
		id,
	)
	entry, err := scanLedgerEntry(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrLedgerEntryNotFound
		}
		return nil, err
	}
	if err := r.loadNotifications(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// GetByApplicationAndInstallment retrieves the entry keyed by the pair that
// uniquely identifies it.
func (r *PenaltyLedgerRepository) GetByApplicationAndInstallment(applicationID uuid.UUID, installmentNumber int32) (*domain.PenaltyLedgerEntry, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+ledgerColumns+`
		FROM penalty_ledger_entries
		WHERE application_id = $1 AND installment_number = $2`,
		applicationID, installmentNumber,
	)
	entry, err := scanLedgerEntry(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrLedgerEntryNotFound
		}
		return nil, err
	}
	if err := r.loadNotifications(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListByApplication retrieves all entries for an application ordered by
// installment ordinal.
func (r *PenaltyLedgerRepository) ListByApplication(applicationID uuid.UUID) ([]*domain.PenaltyLedgerEntry, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM penalty_ledger_entries
		WHERE application_id = $1
		ORDER BY installment_number`,
		applicationID,
	)
	if err != nil {
		return nil, err
	}
	return r.collectEntries(ctx, rows)
}

// ListOpenDueBefore retrieves entries still in {pending, grace_period,
// overdue} whose due date falls strictly before the given date.
func (r *PenaltyLedgerRepository) ListOpenDueBefore(date time.Time) ([]*domain.PenaltyLedgerEntry, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM penalty_ledger_entries
		WHERE status IN ('pending', 'grace_period', 'overdue')
		AND due_date < $1::date
		ORDER BY due_date`,
		date,
	)
	if err != nil {
		return nil, err
	}
	return r.collectEntries(ctx, rows)
}

// Update persists the entry with optimistic locking: the write only lands if
// the stored version still matches, and a mismatch surfaces as
// domain.ErrVersionConflict.
func (r *PenaltyLedgerRepository) Update(entry *domain.PenaltyLedgerEntry) (*domain.PenaltyLedgerEntry, error) {
	ctx := context.Background()

	penaltyAmount, err := decimalToPgNumeric(entry.PenaltyAmount)
	if err != nil {
		return nil, err
	}
	totalPayable, err := decimalToPgNumeric(entry.TotalPayable)
	if err != nil {
		return nil, err
	}
	paidAmount, err := decimalPtrToPgNumeric(entry.PaidAmount)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE penalty_ledger_entries
		SET missed_date = $3, days_overdue = $4, penalty_amount = $5,
			total_payable = $6, is_in_grace_period = $7, status = $8,
			paid_amount = $9, paid_date = $10, payment_reference = $11,
			waived_reason = $12, waived_by = $13, waived_at = $14,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING `+ledgerColumns,
		entry.ID, entry.Version, timePtrToPgDate(entry.MissedDate),
		entry.DaysOverdue, penaltyAmount, totalPayable, entry.IsInGracePeriod,
		string(entry.Status), paidAmount, timePtrToPgTimestamptz(entry.PaidDate),
		stringPtrToPgText(entry.PaymentReference), stringPtrToPgText(entry.WaivedReason),
		stringPtrToPgText(entry.WaivedBy), timePtrToPgTimestamptz(entry.WaivedAt),
	)
	updated, err := scanLedgerEntry(row)
	if err != nil {
		if err != pgx.ErrNoRows {
			return nil, err
		}
		// No row matched: either the entry is gone or someone else bumped
		// the version first.
		var exists bool
		if checkErr := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM penalty_ledger_entries WHERE id = $1)`,
			entry.ID,
		).Scan(&exists); checkErr != nil {
			return nil, checkErr
		}
		if exists {
			return nil, domain.ErrVersionConflict
		}
		return nil, domain.ErrLedgerEntryNotFound
	}

	entry.Version = updated.Version
	updated.Notifications = entry.Notifications
	return updated, nil
}

// AppendNotification adds one record to the entry's append-only notification
// history.
func (r *PenaltyLedgerRepository) AppendNotification(entryID uuid.UUID, rec domain.NotificationRecord) error {
	ctx := context.Background()
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO ledger_notifications (entry_id, type, channel, sent_at, delivery_status)
		SELECT $1, $2, $3, $4, $5
		WHERE EXISTS (SELECT 1 FROM penalty_ledger_entries WHERE id = $1)`,
		entryID, string(rec.Type), rec.Channel, rec.SentAt, rec.DeliveryStatus,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLedgerEntryNotFound
	}
	return nil
}

// SetNotificationStatus records the sink outcome on the (entry, type) record.
// Only the delivery status moves; the record itself is the milestone guard
// and is never rewritten.
func (r *PenaltyLedgerRepository) SetNotificationStatus(entryID uuid.UUID, t domain.NotificationType, status string) error {
	ctx := context.Background()
	tag, err := r.pool.Exec(ctx, `
		UPDATE ledger_notifications
		SET delivery_status = $3
		WHERE entry_id = $1 AND type = $2`,
		entryID, string(t), status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLedgerEntryNotFound
	}
	return nil
}

func (r *PenaltyLedgerRepository) collectEntries(ctx context.Context, rows pgx.Rows) ([]*domain.PenaltyLedgerEntry, error) {
	defer rows.Close()

	var entries []*domain.PenaltyLedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, entry := range entries {
		if err := r.loadNotifications(ctx, entry); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (r *PenaltyLedgerRepository) loadNotifications(ctx context.Context, entry *domain.PenaltyLedgerEntry) error {
	rows, err := r.pool.Query(ctx, `
		SELECT type, channel, sent_at, delivery_status
		FROM ledger_notifications
		WHERE entry_id = $1
		ORDER BY sent_at, id`,
		entry.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	entry.Notifications = nil
	for rows.Next() {
		var (
			rec     domain.NotificationRecord
			recType string
		)
		if err := rows.Scan(&recType, &rec.Channel, &rec.SentAt, &rec.DeliveryStatus); err != nil {
			return err
		}
		rec.Type = domain.NotificationType(recType)
		entry.Notifications = append(entry.Notifications, rec)
	}
	return rows.Err()
}

func scanLedgerEntry(row pgx.Row) (*domain.PenaltyLedgerEntry, error) {
	var (
		entry          domain.PenaltyLedgerEntry
		originalAmount pgtype.Numeric
		dueDate        pgtype.Date
		missedDate     pgtype.Date
		penaltyRate    pgtype.Numeric
		penaltyAmount  pgtype.Numeric
		totalPayable   pgtype.Numeric
		status         string
		paidAmount     pgtype.Numeric
		paidDate       pgtype.Timestamptz
		paymentRef     pgtype.Text
		waivedReason   pgtype.Text
		waivedBy       pgtype.Text
		waivedAt       pgtype.Timestamptz
	)
	err := row.Scan(
		&entry.ID, &entry.ApplicationID, &entry.UserID, &entry.InstallmentNumber,
		&originalAmount, &dueDate, &missedDate, &penaltyRate, &entry.GracePeriodDays,
		&entry.DaysOverdue, &penaltyAmount, &totalPayable, &entry.IsInGracePeriod,
		&status, &paidAmount, &paidDate, &paymentRef, &waivedReason, &waivedBy,
		&waivedAt, &entry.Version, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.OriginalAmount = pgNumericToDecimal(originalAmount)
	entry.DueDate = dueDate.Time
	entry.MissedDate = pgDateToTimePtr(missedDate)
	entry.PenaltyRate = pgNumericToDecimal(penaltyRate)
	entry.PenaltyAmount = pgNumericToDecimal(penaltyAmount)
	entry.TotalPayable = pgNumericToDecimal(totalPayable)
	entry.Status = domain.LedgerStatus(status)
	entry.PaidAmount = pgNumericToDecimalPtr(paidAmount)
	entry.PaidDate = pgTimestamptzToTimePtr(paidDate)
	entry.PaymentReference = pgTextToStringPtr(paymentRef)
	entry.WaivedReason = pgTextToStringPtr(waivedReason)
	entry.WaivedBy = pgTextToStringPtr(waivedBy)
	entry.WaivedAt = pgTimestamptzToTimePtr(waivedAt)
	return &entry, nil
}
