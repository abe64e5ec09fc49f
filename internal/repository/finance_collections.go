package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"village-portal/internal/database"
	"village-portal/internal/model"
	"village-portal/internal/reconcile"
)

var (
	_ reconcile.Collection[model.CategoryFields, model.Category]       = CategoryCollection{}
	_ reconcile.Collection[model.SubcategoryFields, model.Subcategory] = SubcategoryCollection{}
	_ reconcile.Collection[model.BudgetItemFields, model.BudgetItem]   = BudgetItemCollection{}
	_ reconcile.Aggregator[model.BudgetItem]                           = BudgetItemCollection{}
)

func scanCategory(row interface{ Scan(...any) error }) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.FinanceReportID, &c.Name, &c.Number)
	return c, err
}

func scanSubcategory(row interface{ Scan(...any) error }) (model.Subcategory, error) {
	var s model.Subcategory
	err := row.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Number, &s.TotalBudget, &s.TotalRealization, &s.Remaining)
	return s, err
}

func scanBudgetItem(row interface{ Scan(...any) error }) (model.BudgetItem, error) {
	var it model.BudgetItem
	err := row.Scan(&it.ID, &it.SubcategoryID, &it.Name, &it.Budget, &it.Realization, &it.Remaining)
	return it, err
}

// CategoryCollection holds the categories of a finance report.
type CategoryCollection struct{}

func (CategoryCollection) Name() string { return "categories" }

func (CategoryCollection) LockParent(ctx context.Context, q database.DBTX, parentID string) error {
	return lockRow(ctx, q, "finance_reports", parentID)
}

func (CategoryCollection) List(ctx context.Context, q database.DBTX, parentID string) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, finance_report_id, name, number FROM categories
		 WHERE finance_report_id = $1 ORDER BY number, created_at`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
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

func (CategoryCollection) ChildID(c model.Category) string { return c.ID }

func (CategoryCollection) Update(ctx context.Context, q database.DBTX, parentID string, id string, f model.CategoryFields) (model.Category, error) {
	c, err := scanCategory(q.QueryRowContext(ctx,
		`UPDATE categories SET name = $3, updated_at = NOW()
		 WHERE id = $1 AND finance_report_id = $2
		 RETURNING id, finance_report_id, name, number`, id, parentID, f.Name))
	if err != nil {
		return model.Category{}, fmt.Errorf("update category %s: %w", id, err)
	}
	return c, nil
}

func (CategoryCollection) Create(ctx context.Context, q database.DBTX, parentID string, seq int, f model.CategoryFields) (model.Category, error) {
	c, err := scanCategory(q.QueryRowContext(ctx,
		`INSERT INTO categories (id, finance_report_id, name, number)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, finance_report_id, name, number`, uuid.NewString(), parentID, f.Name, seq))
	if err != nil {
		return model.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (CategoryCollection) Delete(ctx context.Context, q database.DBTX, parentID string, ids []string) (int64, error) {
	return deleteChildren(ctx, q, "categories", "finance_report_id", parentID, ids)
}

// SubcategoryCollection holds the subcategories of a category.
type SubcategoryCollection struct{}

func (SubcategoryCollection) Name() string { return "subcategories" }

func (SubcategoryCollection) LockParent(ctx context.Context, q database.DBTX, parentID string) error {
	return lockRow(ctx, q, "categories", parentID)
}

func (SubcategoryCollection) List(ctx context.Context, q database.DBTX, parentID string) ([]model.Subcategory, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, category_id, name, number, total_budget, total_realization, remaining
		 FROM subcategories WHERE category_id = $1 ORDER BY number, created_at`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
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

func (SubcategoryCollection) ChildID(s model.Subcategory) string { return s.ID }

func (SubcategoryCollection) Update(ctx context.Context, q database.DBTX, parentID string, id string, f model.SubcategoryFields) (model.Subcategory, error) {
	s, err := scanSubcategory(q.QueryRowContext(ctx,
		`UPDATE subcategories SET name = $3, updated_at = NOW()
		 WHERE id = $1 AND category_id = $2
		 RETURNING id, category_id, name, number, total_budget, total_realization, remaining`,
		id, parentID, f.Name))
	if err != nil {
		return model.Subcategory{}, fmt.Errorf("update subcategory %s: %w", id, err)
	}
	return s, nil
}

func (SubcategoryCollection) Create(ctx context.Context, q database.DBTX, parentID string, seq int, f model.SubcategoryFields) (model.Subcategory, error) {
	s, err := scanSubcategory(q.QueryRowContext(ctx,
		`INSERT INTO subcategories (id, category_id, name, number)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, category_id, name, number, total_budget, total_realization, remaining`,
		uuid.NewString(), parentID, f.Name, seq))
	if err != nil {
		return model.Subcategory{}, fmt.Errorf("create subcategory: %w", err)
	}
	return s, nil
}

func (SubcategoryCollection) Delete(ctx context.Context, q database.DBTX, parentID string, ids []string) (int64, error) {
	return deleteChildren(ctx, q, "subcategories", "category_id", parentID, ids)
}

// BudgetItemCollection holds the items of a subcategory and keeps the
// subcategory totals in step with them.
type BudgetItemCollection struct{}

func (BudgetItemCollection) Name() string { return "budget_items" }

func (BudgetItemCollection) LockParent(ctx context.Context, q database.DBTX, parentID string) error {
	return lockRow(ctx, q, "subcategories", parentID)
}

func (BudgetItemCollection) List(ctx context.Context, q database.DBTX, parentID string) ([]model.BudgetItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, subcategory_id, name, budget, realization, remaining
		 FROM budget_items WHERE subcategory_id = $1 ORDER BY created_at, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list budget items: %w", err)
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

func (BudgetItemCollection) ChildID(it model.BudgetItem) string { return it.ID }

func (BudgetItemCollection) Update(ctx context.Context, q database.DBTX, parentID string, id string, f model.BudgetItemFields) (model.BudgetItem, error) {
	it, err := scanBudgetItem(q.QueryRowContext(ctx,
		`UPDATE budget_items SET name = $3, budget = $4, realization = $5, remaining = $6, updated_at = NOW()
		 WHERE id = $1 AND subcategory_id = $2
		 RETURNING id, subcategory_id, name, budget, realization, remaining`,
		id, parentID, f.Name, f.Budget, f.Realization, f.Budget-f.Realization))
	if err != nil {
		return model.BudgetItem{}, fmt.Errorf("update budget item %s: %w", id, err)
	}
	return it, nil
}

func (BudgetItemCollection) Create(ctx context.Context, q database.DBTX, parentID string, _ int, f model.BudgetItemFields) (model.BudgetItem, error) {
	it, err := scanBudgetItem(q.QueryRowContext(ctx,
		`INSERT INTO budget_items (id, subcategory_id, name, budget, realization, remaining)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, subcategory_id, name, budget, realization, remaining`,
		uuid.NewString(), parentID, f.Name, f.Budget, f.Realization, f.Budget-f.Realization))
	if err != nil {
		return model.BudgetItem{}, fmt.Errorf("create budget item: %w", err)
	}
	return it, nil
}

func (BudgetItemCollection) Delete(ctx context.Context, q database.DBTX, parentID string, ids []string) (int64, error) {
	return deleteChildren(ctx, q, "budget_items", "subcategory_id", parentID, ids)
}

func (BudgetItemCollection) Aggregate(ctx context.Context, q database.DBTX, parentID string, items []model.BudgetItem) error {
	totals := model.SumBudgetItems(items)
	_, err := q.ExecContext(ctx,
		`UPDATE subcategories SET total_budget = $2, total_realization = $3, remaining = $4, updated_at = NOW()
		 WHERE id = $1`,
		parentID, totals.TotalBudget, totals.TotalRealization, totals.Remaining)
	if err != nil {
		return fmt.Errorf("update subcategory totals: %w", err)
	}
	return nil
}
