package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"village-portal/internal/database"
	"village-portal/internal/model"
)

type BudgetPlanRepository struct {
	db *database.DB
}

func NewBudgetPlanRepository(db *database.DB) *BudgetPlanRepository {
	return &BudgetPlanRepository{db: db}
}

const budgetPlanColumns = `id, name, year, file_url, created_by, created_at, updated_at`

func scanBudgetPlan(row interface{ Scan(...any) error }) (model.BudgetPlan, error) {
	var (
		p       model.BudgetPlan
		fileURL sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Year, &fileURL, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.BudgetPlan{}, err
	}
	p.FileURL = stringPtr(fileURL)
	return p, nil
}

func (r *BudgetPlanRepository) List(ctx context.Context) ([]model.BudgetPlan, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT `+budgetPlanColumns+` FROM budget_plans ORDER BY year DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list budget plans: %w", err)
	}
	defer rows.Close()

	plans := make([]model.BudgetPlan, 0)
	for rows.Next() {
		p, err := scanBudgetPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *BudgetPlanRepository) FindByID(ctx context.Context, id string) (model.BudgetPlan, error) {
	p, err := scanBudgetPlan(r.db.SQL.QueryRowContext(ctx,
		`SELECT `+budgetPlanColumns+` FROM budget_plans WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.BudgetPlan{}, model.ErrNotFound
	}
	if err != nil {
		return model.BudgetPlan{}, fmt.Errorf("find budget plan: %w", err)
	}
	return p, nil
}

func (r *BudgetPlanRepository) Create(ctx context.Context, p model.BudgetPlan) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO budget_plans (id, name, year, file_url, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Year, nullString(p.FileURL), p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: budget plan %q for %d", model.ErrAlreadyExists, p.Name, p.Year)
	}
	if err != nil {
		return fmt.Errorf("create budget plan: %w", err)
	}
	return nil
}

// Update writes name and year, and the file url when p carries one. It
// returns the file url stored before the update.
func (r *BudgetPlanRepository) Update(ctx context.Context, q database.DBTX, p model.BudgetPlan) (*string, error) {
	var previous sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT file_url FROM budget_plans WHERE id = $1 FOR UPDATE`, p.ID).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock budget plan: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`UPDATE budget_plans SET name = $2, year = $3, file_url = COALESCE($4, file_url), updated_at = $5 WHERE id = $1`,
		p.ID, p.Name, p.Year, nullString(p.FileURL), p.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("%w: budget plan %q for %d", model.ErrAlreadyExists, p.Name, p.Year)
	}
	if err != nil {
		return nil, fmt.Errorf("update budget plan: %w", err)
	}
	return stringPtr(previous), nil
}

// Delete removes the plan and everything under it, returning its file url.
func (r *BudgetPlanRepository) Delete(ctx context.Context, id string) (*string, error) {
	var fileURL sql.NullString
	err := r.db.SQL.QueryRowContext(ctx,
		`DELETE FROM budget_plans WHERE id = $1 RETURNING file_url`, id).Scan(&fileURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete budget plan: %w", err)
	}
	return stringPtr(fileURL), nil
}

// Report loads the full transparency tree of one plan.
func (r *BudgetPlanRepository) Report(ctx context.Context, id string) (model.BudgetPlanReport, error) {
	plan, err := r.FindByID(ctx, id)
	if err != nil {
		return model.BudgetPlanReport{}, err
	}

	report := model.BudgetPlanReport{BudgetPlan: plan, FinanceReports: make([]model.FinanceReportNode, 0)}

	financeReports, err := NewFinanceReportRepository(r.db).ListByPlan(ctx, id)
	if err != nil {
		return model.BudgetPlanReport{}, err
	}

	categories, err := r.categoriesForPlan(ctx, id)
	if err != nil {
		return model.BudgetPlanReport{}, err
	}
	subcategories, err := r.subcategoriesForPlan(ctx, id)
	if err != nil {
		return model.BudgetPlanReport{}, err
	}
	items, err := r.itemsForPlan(ctx, id)
	if err != nil {
		return model.BudgetPlanReport{}, err
	}

	itemsBySub := make(map[string][]model.BudgetItem)
	for _, it := range items {
		itemsBySub[it.SubcategoryID] = append(itemsBySub[it.SubcategoryID], it)
	}
	subsByCat := make(map[string][]model.SubcategoryNode)
	for _, sc := range subcategories {
		node := model.SubcategoryNode{Subcategory: sc, Items: itemsBySub[sc.ID]}
		if node.Items == nil {
			node.Items = []model.BudgetItem{}
		}
		subsByCat[sc.CategoryID] = append(subsByCat[sc.CategoryID], node)
	}
	catsByReport := make(map[string][]model.CategoryNode)
	for _, c := range categories {
		node := model.CategoryNode{Category: c, Subcategories: subsByCat[c.ID]}
		if node.Subcategories == nil {
			node.Subcategories = []model.SubcategoryNode{}
		}
		catsByReport[c.FinanceReportID] = append(catsByReport[c.FinanceReportID], node)
	}
	for _, fr := range financeReports {
		node := model.FinanceReportNode{FinanceReport: fr, Categories: catsByReport[fr.ID]}
		if node.Categories == nil {
			node.Categories = []model.CategoryNode{}
		}
		report.FinanceReports = append(report.FinanceReports, node)
	}

	return report, nil
}

func (r *BudgetPlanRepository) categoriesForPlan(ctx context.Context, planID string) ([]model.Category, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT c.id, c.finance_report_id, c.name, c.number
		 FROM categories c
		 JOIN finance_reports f ON f.id = c.finance_report_id
		 WHERE f.budget_plan_id = $1
		 ORDER BY c.number, c.created_at`, planID)
	if err != nil {
		return nil, fmt.Errorf("list plan categories: %w", err)
	}
	defer rows.Close()

	out := make([]model.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *BudgetPlanRepository) subcategoriesForPlan(ctx context.Context, planID string) ([]model.Subcategory, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT s.id, s.category_id, s.name, s.number, s.total_budget, s.total_realization, s.remaining
		 FROM subcategories s
		 JOIN categories c ON c.id = s.category_id
		 JOIN finance_reports f ON f.id = c.finance_report_id
		 WHERE f.budget_plan_id = $1
		 ORDER BY s.number, s.created_at`, planID)
	if err != nil {
		return nil, fmt.Errorf("list plan subcategories: %w", err)
	}
	defer rows.Close()

	out := make([]model.Subcategory, 0)
	for rows.Next() {
		s, err := scanSubcategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *BudgetPlanRepository) itemsForPlan(ctx context.Context, planID string) ([]model.BudgetItem, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT i.id, i.subcategory_id, i.name, i.budget, i.realization, i.remaining
		 FROM budget_items i
		 JOIN subcategories s ON s.id = i.subcategory_id
		 JOIN categories c ON c.id = s.category_id
		 JOIN finance_reports f ON f.id = c.finance_report_id
		 WHERE f.budget_plan_id = $1
		 ORDER BY i.created_at, i.id`, planID)
	if err != nil {
		return nil, fmt.Errorf("list plan budget items: %w", err)
	}
	defer rows.Close()

	out := make([]model.BudgetItem, 0)
	for rows.Next() {
		it, err := scanBudgetItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
