package model

import "time"

type BudgetPlan struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Year      int       `json:"year"`
	FileURL   *string   `json:"fileUrl,omitempty"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type BudgetPlanInput struct {
	Name string `json:"name" validate:"required,max=255"`
	Year int    `json:"year" validate:"required,gte=1900"`
}

type FinanceReport struct {
	ID           string    `json:"id"`
	BudgetPlanID string    `json:"budgetPlanId"`
	Name         string    `json:"name"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type FinanceReportInput struct {
	BudgetPlanID string `json:"budgetPlanId" validate:"required,uuid"`
	Name         string `json:"name" validate:"required,max=255"`
}

type Category struct {
	ID              string `json:"id"`
	FinanceReportID string `json:"financeReportId"`
	Name            string `json:"name"`
	Number          int    `json:"number"`
}

type CategoryFields struct {
	Name string `json:"name" validate:"required,max=255"`
}

type Subcategory struct {
	ID               string  `json:"id"`
	CategoryID       string  `json:"categoryId"`
	Name             string  `json:"name"`
	Number           int     `json:"number"`
	TotalBudget      float64 `json:"totalBudget"`
	TotalRealization float64 `json:"totalRealization"`
	Remaining        float64 `json:"remaining"`
}

type SubcategoryFields struct {
	Name string `json:"name" validate:"required,max=255"`
}

type BudgetItem struct {
	ID            string  `json:"id"`
	SubcategoryID string  `json:"subcategoryId"`
	Name          string  `json:"name"`
	Budget        float64 `json:"budget"`
	Realization   float64 `json:"realization"`
	Remaining     float64 `json:"remaining"`
}

type BudgetItemFields struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Budget      float64 `json:"budget" validate:"gte=0"`
	Realization float64 `json:"realization" validate:"gte=0"`
}

// SubcategoryTotals are the aggregates a subcategory carries over its items.
type SubcategoryTotals struct {
	TotalBudget      float64 `json:"totalBudget"`
	TotalRealization float64 `json:"totalRealization"`
	Remaining        float64 `json:"remaining"`
}

// SumBudgetItems derives subcategory totals from its items.
func SumBudgetItems(items []BudgetItem) SubcategoryTotals {
	var totals SubcategoryTotals
	for _, item := range items {
		totals.TotalBudget += item.Budget
		totals.TotalRealization += item.Realization
	}
	totals.Remaining = totals.TotalBudget - totals.TotalRealization
	return totals
}

// BudgetPlanReport is the public transparency tree of one budget plan.
type BudgetPlanReport struct {
	BudgetPlan
	FinanceReports []FinanceReportNode `json:"financeReports"`
}

type FinanceReportNode struct {
	FinanceReport
	Categories []CategoryNode `json:"categories"`
}

type CategoryNode struct {
	Category
	Subcategories []SubcategoryNode `json:"subcategories"`
}

type SubcategoryNode struct {
	Subcategory
	Items []BudgetItem `json:"items"`
}
