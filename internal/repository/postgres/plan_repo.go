package postgres

import (
	"context"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EmiPlanRepository implements domain.EmiPlanRepository using PostgreSQL
type EmiPlanRepository struct {
	pool *pgxpool.Pool
}

// NewEmiPlanRepository creates a new EmiPlanRepository
func NewEmiPlanRepository(pool *pgxpool.Pool) *EmiPlanRepository {
	return &EmiPlanRepository{pool: pool}
}

const planColumns = `id, name, tenure_months, interest_rate, processing_fee,
	min_order_amount, max_order_amount, is_active, created_at, updated_at`

// Create persists a new plan
func (r *EmiPlanRepository) Create(plan *domain.EmiPlan) (*domain.EmiPlan, error) {
	ctx := context.Background()

	interestRate, err := decimalToPgNumeric(plan.InterestRate)
	if err != nil {
		return nil, err
	}
	processingFee, err := decimalToPgNumeric(plan.ProcessingFee)
	if err != nil {
		return nil, err
	}
	minAmount, err := decimalToPgNumeric(plan.MinOrderAmount)
	if err != nil {
		return nil, err
	}
	maxAmount, err := decimalToPgNumeric(plan.MaxOrderAmount)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO emi_plans (name, tenure_months, interest_rate, processing_fee,
			min_order_amount, max_order_amount, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+planColumns,
		plan.Name, plan.TenureMonths, interestRate, processingFee,
		minAmount, maxAmount, plan.IsActive,
	)
	return scanPlan(row)
}

// GetByID retrieves a plan by its ID
func (r *EmiPlanRepository) GetByID(id int32) (*domain.EmiPlan, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+planColumns+`
		FROM emi_plans
		WHERE id = $1`,
		id,
	)
	plan, err := scanPlan(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrPlanNotFound
	}
	return plan, err
}

// List retrieves plans, optionally only active ones
func (r *EmiPlanRepository) List(activeOnly bool) ([]*domain.EmiPlan, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+planColumns+`
		FROM emi_plans
		WHERE NOT $1 OR is_active
		ORDER BY id`,
		activeOnly,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*domain.EmiPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// Update persists an administrative edit to a plan
func (r *EmiPlanRepository) Update(plan *domain.EmiPlan) (*domain.EmiPlan, error) {
	ctx := context.Background()

	interestRate, err := decimalToPgNumeric(plan.InterestRate)
	if err != nil {
		return nil, err
	}
	processingFee, err := decimalToPgNumeric(plan.ProcessingFee)
	if err != nil {
		return nil, err
	}
	minAmount, err := decimalToPgNumeric(plan.MinOrderAmount)
	if err != nil {
		return nil, err
	}
	maxAmount, err := decimalToPgNumeric(plan.MaxOrderAmount)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE emi_plans
		SET name = $2, tenure_months = $3, interest_rate = $4, processing_fee = $5,
			min_order_amount = $6, max_order_amount = $7, is_active = $8,
			updated_at = now()
		WHERE id = $1
		RETURNING `+planColumns,
		plan.ID, plan.Name, plan.TenureMonths, interestRate, processingFee,
		minAmount, maxAmount, plan.IsActive,
	)
	updated, err := scanPlan(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrPlanNotFound
	}
	return updated, err
}

// SetActive toggles whether a plan accepts new applications
func (r *EmiPlanRepository) SetActive(id int32, active bool) error {
	ctx := context.Background()
	tag, err := r.pool.Exec(ctx, `
		UPDATE emi_plans
		SET is_active = $2, updated_at = now()
		WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (*domain.EmiPlan, error) {
	var (
		plan          domain.EmiPlan
		interestRate  pgtype.Numeric
		processingFee pgtype.Numeric
		minAmount     pgtype.Numeric
		maxAmount     pgtype.Numeric
	)
	err := row.Scan(
		&plan.ID, &plan.Name, &plan.TenureMonths, &interestRate, &processingFee,
		&minAmount, &maxAmount, &plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	plan.InterestRate = pgNumericToDecimal(interestRate)
	plan.ProcessingFee = pgNumericToDecimal(processingFee)
	plan.MinOrderAmount = pgNumericToDecimal(minAmount)
	plan.MaxOrderAmount = pgNumericToDecimal(maxAmount)
	return &plan, nil
}
