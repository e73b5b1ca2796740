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

// EmiApplicationRepository implements domain.EmiApplicationRepository using
// PostgreSQL. Installments live in their own table but are always loaded and
// saved through the owning application.
type EmiApplicationRepository struct {
	pool *pgxpool.Pool
}

// NewEmiApplicationRepository creates a new EmiApplicationRepository
func NewEmiApplicationRepository(pool *pgxpool.Pool) *EmiApplicationRepository {
	return &EmiApplicationRepository{pool: pool}
}

const applicationColumns = `id, user_id, order_id, plan_id, principal, total_interest,
	processing_fee, total_amount, monthly_emi, tenure_months, paid_installments,
	remaining_installments, next_due_date, status, approved_at, created_at, updated_at`

// Create persists a new application together with any installments already
// attached to it.
func (r *EmiApplicationRepository) Create(app *domain.EmiApplication) (*domain.EmiApplication, error) {
	ctx := context.Background()

	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := r.insertApplication(ctx, tx, app)
	if err != nil {
		return nil, err
	}
	if err := r.replaceInstallments(ctx, tx, app.ID, app.Installments); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	created.Installments = app.Installments
	return created, nil
}

// GetByID retrieves an application and its installments
func (r *EmiApplicationRepository) GetByID(id uuid.UUID) (*domain.EmiApplication, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+applicationColumns+`
		FROM emi_applications
		WHERE id = $1`,
		id,
	)
	app, err := scanApplication(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, err
	}

	if err := r.loadInstallments(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// ListByUser retrieves all applications for a user, newest first
func (r *EmiApplicationRepository) ListByUser(userID uuid.UUID) ([]*domain.EmiApplication, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM emi_applications
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	apps, err := collectApplications(rows)
	if err != nil {
		return nil, err
	}

	for _, app := range apps {
		if err := r.loadInstallments(ctx, app); err != nil {
			return nil, err
		}
	}
	return apps, nil
}

// ListOpenByNextDueDate retrieves approved/active/defaulted applications whose
// next due date falls on the given calendar date.
func (r *EmiApplicationRepository) ListOpenByNextDueDate(due time.Time) ([]*domain.EmiApplication, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM emi_applications
		WHERE status IN ('approved', 'active', 'defaulted')
		AND next_due_date = $1::date
		ORDER BY created_at`,
		due,
	)
	if err != nil {
		return nil, err
	}
	apps, err := collectApplications(rows)
	if err != nil {
		return nil, err
	}

	for _, app := range apps {
		if err := r.loadInstallments(ctx, app); err != nil {
			return nil, err
		}
	}
	return apps, nil
}

// Update persists the application row and rewrites its installments so the
// schedule and the counters always change together.
func (r *EmiApplicationRepository) Update(app *domain.EmiApplication) (*domain.EmiApplication, error) {
	ctx := context.Background()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE emi_applications
		SET paid_installments = $2, remaining_installments = $3, next_due_date = $4,
			status = $5, approved_at = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+applicationColumns,
		app.ID, app.PaidInstallments, app.RemainingInstallments,
		timePtrToPgDate(app.NextDueDate), string(app.Status),
		timePtrToPgTimestamptz(app.ApprovedAt),
	)
	updated, err := scanApplication(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, err
	}

	if err := r.replaceInstallments(ctx, tx, app.ID, app.Installments); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	updated.Installments = app.Installments
	return updated, nil
}

func (r *EmiApplicationRepository) insertApplication(ctx context.Context, tx pgx.Tx, app *domain.EmiApplication) (*domain.EmiApplication, error) {
	principal, err := decimalToPgNumeric(app.Principal)
	if err != nil {
		return nil, err
	}
	totalInterest, err := decimalToPgNumeric(app.TotalInterest)
	if err != nil {
		return nil, err
	}
	processingFee, err := decimalToPgNumeric(app.ProcessingFee)
	if err != nil {
		return nil, err
	}
	totalAmount, err := decimalToPgNumeric(app.TotalAmount)
	if err != nil {
		return nil, err
	}
	monthlyEmi, err := decimalToPgNumeric(app.MonthlyEmi)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO emi_applications (id, user_id, order_id, plan_id, principal,
			total_interest, processing_fee, total_amount, monthly_emi, tenure_months,
			paid_installments, remaining_installments, next_due_date, status, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+applicationColumns,
		app.ID, app.UserID, app.OrderID, app.PlanID, principal,
		totalInterest, processingFee, totalAmount, monthlyEmi, app.TenureMonths,
		app.PaidInstallments, app.RemainingInstallments,
		timePtrToPgDate(app.NextDueDate), string(app.Status),
		timePtrToPgTimestamptz(app.ApprovedAt),
	)
	return scanApplication(row)
}

// replaceInstallments rewrites the installment rows for an application. The
// schedule is small (at most 24 rows) and only ever saved as a whole.
func (r *EmiApplicationRepository) replaceInstallments(ctx context.Context, tx pgx.Tx, applicationID uuid.UUID, installments []domain.Installment) error {
	if _, err := tx.Exec(ctx, `DELETE FROM emi_installments WHERE application_id = $1`, applicationID); err != nil {
		return err
	}

	for i := range installments {
		inst := &installments[i]
		amount, err := decimalToPgNumeric(inst.Amount)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO emi_installments (application_id, sequence_number, due_date,
				amount, status, paid_date, payment_reference)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			applicationID, inst.SequenceNumber, inst.DueDate, amount,
			string(inst.Status), timePtrToPgTimestamptz(inst.PaidDate),
			stringPtrToPgText(inst.PaymentReference),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *EmiApplicationRepository) loadInstallments(ctx context.Context, app *domain.EmiApplication) error {
	rows, err := r.pool.Query(ctx, `
		SELECT sequence_number, due_date, amount, status, paid_date, payment_reference
		FROM emi_installments
		WHERE application_id = $1
		ORDER BY sequence_number`,
		app.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	app.Installments = nil
	for rows.Next() {
		var (
			inst    domain.Installment
			amount  pgtype.Numeric
			paidAt  pgtype.Timestamptz
			payRef  pgtype.Text
			status  string
			dueDate pgtype.Date
		)
		err := rows.Scan(&inst.SequenceNumber, &dueDate, &amount, &status, &paidAt, &payRef)
		if err != nil {
			return err
		}
		inst.DueDate = dueDate.Time
		inst.Amount = pgNumericToDecimal(amount)
		inst.Status = domain.InstallmentStatus(status)
		inst.PaidDate = pgTimestamptzToTimePtr(paidAt)
		inst.PaymentReference = pgTextToStringPtr(payRef)
		app.Installments = append(app.Installments, inst)
	}
	return rows.Err()
}

func collectApplications(rows pgx.Rows) ([]*domain.EmiApplication, error) {
	defer rows.Close()

	var apps []*domain.EmiApplication
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func scanApplication(row pgx.Row) (*domain.EmiApplication, error) {
	var (
		app           domain.EmiApplication
		principal     pgtype.Numeric
		totalInterest pgtype.Numeric
		processingFee pgtype.Numeric
		totalAmount   pgtype.Numeric
		monthlyEmi    pgtype.Numeric
		nextDue       pgtype.Date
		status        string
		approvedAt    pgtype.Timestamptz
	)
	err := row.Scan(
		&app.ID, &app.UserID, &app.OrderID, &app.PlanID, &principal, &totalInterest,
		&processingFee, &totalAmount, &monthlyEmi, &app.TenureMonths,
		&app.PaidInstallments, &app.RemainingInstallments, &nextDue, &status,
		&approvedAt, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.Principal = pgNumericToDecimal(principal)
	app.TotalInterest = pgNumericToDecimal(totalInterest)
	app.ProcessingFee = pgNumericToDecimal(processingFee)
	app.TotalAmount = pgNumericToDecimal(totalAmount)
	app.MonthlyEmi = pgNumericToDecimal(monthlyEmi)
	app.NextDueDate = pgDateToTimePtr(nextDue)
	app.Status = domain.ApplicationStatus(status)
	app.ApprovedAt = pgTimestamptzToTimePtr(approvedAt)
	return &app, nil
}
