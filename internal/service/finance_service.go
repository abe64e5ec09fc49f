package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"village-portal/internal/model"
	"village-portal/internal/reconcile"
	"village-portal/internal/util"
)

type FinanceReportStore interface {
	ListByPlan(ctx context.Context, planID string) ([]model.FinanceReport, error)
	FindByID(ctx context.Context, id string) (model.FinanceReport, error)
	Create(ctx context.Context, f model.FinanceReport) error
	Update(ctx context.Context, f model.FinanceReport) error
	Delete(ctx context.Context, id string) error
}

// FinanceReconcilers bundles the three child collections under a finance
// report.
type FinanceReconcilers struct {
	Categories    *reconcile.Reconciler[model.CategoryFields, model.Category]
	Subcategories *reconcile.Reconciler[model.SubcategoryFields, model.Subcategory]
	BudgetItems   *reconcile.Reconciler[model.BudgetItemFields, model.BudgetItem]
}

type budgetPlanFinder interface {
	FindByID(ctx context.Context, id string) (model.BudgetPlan, error)
}

type FinanceService struct {
	reports FinanceReportStore
	plans   budgetPlanFinder
	rc      FinanceReconcilers
	now     func() time.Time
}

func NewFinanceService(reports FinanceReportStore, plans budgetPlanFinder, rc FinanceReconcilers) *FinanceService {
	return &FinanceService{reports: reports, plans: plans, rc: rc, now: time.Now}
}

func (s *FinanceService) ListReports(ctx context.Context, planID string) ([]model.FinanceReport, error) {
	if _, err := s.plans.FindByID(ctx, planID); err != nil {
		return nil, err
	}
	return s.reports.ListByPlan(ctx, planID)
}

func (s *FinanceService) GetReport(ctx context.Context, id string) (model.FinanceReport, error) {
	return s.reports.FindByID(ctx, id)
}

func (s *FinanceService) CreateReport(ctx context.Context, actor model.ActorClaims, in model.FinanceReportInput) (model.FinanceReport, error) {
	in.Name = util.CleanLine(in.Name)
	if err := model.Validate(in); err != nil {
		return model.FinanceReport{}, err
	}

	now := s.now().UTC()
	report := model.FinanceReport{
		ID:           uuid.NewString(),
		BudgetPlanID: in.BudgetPlanID,
		Name:         in.Name,
		CreatedBy:    actor.ActorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return model.FinanceReport{}, err
	}
	return report, nil
}

func (s *FinanceService) UpdateReport(ctx context.Context, id string, in model.FinanceReportInput) (model.FinanceReport, error) {
	in.Name = util.CleanLine(in.Name)
	if err := model.Validate(in); err != nil {
		return model.FinanceReport{}, err
	}

	err := s.reports.Update(ctx, model.FinanceReport{
		ID:           id,
		BudgetPlanID: in.BudgetPlanID,
		Name:         in.Name,
		UpdatedAt:    s.now().UTC(),
	})
	if err != nil {
		return model.FinanceReport{}, err
	}
	return s.reports.FindByID(ctx, id)
}

func (s *FinanceService) DeleteReport(ctx context.Context, id string) error {
	return s.reports.Delete(ctx, id)
}

func (s *FinanceService) Categories(ctx context.Context, reportID string) ([]model.Category, error) {
	return s.rc.Categories.Current(ctx, reportID)
}

func (s *FinanceService) ReconcileCategories(ctx context.Context, reportID string, items []reconcile.Item[model.CategoryFields]) (reconcile.Result[model.Category], error) {
	for i := range items {
		items[i].Fields.Name = util.CleanLine(items[i].Fields.Name)
	}
	return s.rc.Categories.Reconcile(ctx, reportID, items)
}

func (s *FinanceService) Subcategories(ctx context.Context, categoryID string) ([]model.Subcategory, error) {
	return s.rc.Subcategories.Current(ctx, categoryID)
}

func (s *FinanceService) ReconcileSubcategories(ctx context.Context, categoryID string, items []reconcile.Item[model.SubcategoryFields]) (reconcile.Result[model.Subcategory], error) {
	for i := range items {
		items[i].Fields.Name = util.CleanLine(items[i].Fields.Name)
	}
	return s.rc.Subcategories.Reconcile(ctx, categoryID, items)
}

func (s *FinanceService) BudgetItems(ctx context.Context, subcategoryID string) ([]model.BudgetItem, error) {
	return s.rc.BudgetItems.Current(ctx, subcategoryID)
}

// ReconcileBudgetItems converges the items of a subcategory and refreshes its
// totals in the same transaction.
func (s *FinanceService) ReconcileBudgetItems(ctx context.Context, subcategoryID string, items []reconcile.Item[model.BudgetItemFields]) (reconcile.Result[model.BudgetItem], error) {
	for i := range items {
		items[i].Fields.Name = util.CleanLine(items[i].Fields.Name)
	}
	return s.rc.BudgetItems.Reconcile(ctx, subcategoryID, items)
}
