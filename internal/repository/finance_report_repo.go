package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"village-portal/internal/database"
	"village-portal/internal/model"
)

type FinanceReportRepository struct {
	db *database.DB
}

func NewFinanceReportRepository(db *database.DB) *FinanceReportRepository {
	return &FinanceReportRepository{db: db}
}

const financeReportColumns = `id, budget_plan_id, name, created_by, created_at, updated_at`

func scanFinanceReport(row interface{ Scan(...any) error }) (model.FinanceReport, error) {
	var f model.FinanceReport
	err := row.Scan(&f.ID, &f.BudgetPlanID, &f.Name, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (r *FinanceReportRepository) ListByPlan(ctx context.Context, planID string) ([]model.FinanceReport, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT `+financeReportColumns+` FROM finance_reports WHERE budget_plan_id = $1 ORDER BY created_at, id`, planID)
	if err != nil {
		return nil, fmt.Errorf("list finance reports: %w", err)
	}
	defer rows.Close()

	out := make([]model.FinanceReport, 0)
	for rows.Next() {
		f, err := scanFinanceReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan finance report: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FinanceReportRepository) FindByID(ctx context.Context, id string) (model.FinanceReport, error) {
	f, err := scanFinanceReport(r.db.SQL.QueryRowContext(ctx,
		`SELECT `+financeReportColumns+` FROM finance_reports WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.FinanceReport{}, model.ErrNotFound
	}
	if err != nil {
		return model.FinanceReport{}, fmt.Errorf("find finance report: %w", err)
	}
	return f, nil
}

func (r *FinanceReportRepository) Create(ctx context.Context, f model.FinanceReport) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO finance_reports (id, budget_plan_id, name, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.BudgetPlanID, f.Name, f.CreatedBy, f.CreatedAt, f.UpdatedAt)
	if database.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: budget plan %s", model.ErrNotFound, f.BudgetPlanID)
	}
	if err != nil {
		return fmt.Errorf("create finance report: %w", err)
	}
	return nil
}

func (r *FinanceReportRepository) Update(ctx context.Context, f model.FinanceReport) error {
	res, err := r.db.SQL.ExecContext(ctx,
		`UPDATE finance_reports SET name = $2, budget_plan_id = $3, updated_at = $4 WHERE id = $1`,
		f.ID, f.Name, f.BudgetPlanID, f.UpdatedAt)
	if database.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: budget plan %s", model.ErrNotFound, f.BudgetPlanID)
	}
	if err != nil {
		return fmt.Errorf("update finance report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *FinanceReportRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.SQL.ExecContext(ctx, `DELETE FROM finance_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete finance report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
