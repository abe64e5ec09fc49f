package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"village-portal/internal/database"
	"village-portal/internal/model"
	"village-portal/internal/reconcile"
)

type fakeReportStore struct {
	mu      sync.Mutex
	reports map[string]model.FinanceReport
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{reports: map[string]model.FinanceReport{}}
}

func (f *fakeReportStore) ListByPlan(_ context.Context, planID string) ([]model.FinanceReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.FinanceReport{}
	for _, r := range f.reports {
		if r.BudgetPlanID == planID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReportStore) FindByID(_ context.Context, id string) (model.FinanceReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return model.FinanceReport{}, model.ErrNotFound
	}
	return r, nil
}

func (f *fakeReportStore) Create(_ context.Context, r model.FinanceReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[r.ID] = r
	return nil
}

func (f *fakeReportStore) Update(_ context.Context, r model.FinanceReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.reports[r.ID]
	if !ok {
		return model.ErrNotFound
	}
	existing.BudgetPlanID, existing.Name, existing.UpdatedAt = r.BudgetPlanID, r.Name, r.UpdatedAt
	f.reports[r.ID] = existing
	return nil
}

func (f *fakeReportStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[id]; !ok {
		return model.ErrNotFound
	}
	delete(f.reports, id)
	return nil
}

// memCategories keeps categories per finance report in memory.
type memCategories struct {
	parents map[string]bool
	rows    map[string]model.Category
	next    int
}

func newMemCategories(parents ...string) *memCategories {
	m := &memCategories{parents: map[string]bool{}, rows: map[string]model.Category{}}
	for _, p := range parents {
		m.parents[p] = true
	}
	return m
}

func (m *memCategories) Name() string { return "categories" }

func (m *memCategories) LockParent(_ context.Context, _ database.DBTX, parentID string) error {
	if !m.parents[parentID] {
		return reconcile.ErrParentNotFound
	}
	return nil
}

func (m *memCategories) List(_ context.Context, _ database.DBTX, parentID string) ([]model.Category, error) {
	out := []model.Category{}
	for _, c := range m.rows {
		if c.FinanceReportID == parentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memCategories) ChildID(c model.Category) string { return c.ID }

func (m *memCategories) Update(_ context.Context, _ database.DBTX, _ string, id string, fields model.CategoryFields) (model.Category, error) {
	c := m.rows[id]
	c.Name = fields.Name
	m.rows[id] = c
	return c, nil
}

func (m *memCategories) Create(_ context.Context, _ database.DBTX, parentID string, seq int, fields model.CategoryFields) (model.Category, error) {
	m.next++
	c := model.Category{ID: fmt.Sprintf("c-%d", m.next), FinanceReportID: parentID, Name: fields.Name, Number: seq}
	m.rows[c.ID] = c
	return c, nil
}

func (m *memCategories) Delete(_ context.Context, _ database.DBTX, _ string, ids []string) (int64, error) {
	for _, id := range ids {
		delete(m.rows, id)
	}
	return int64(len(ids)), nil
}

func newFinanceFixture(t *testing.T) (*FinanceService, *fakePlanStore, *memCategories) {
	t.Helper()
	plans := newFakePlanStore()
	require.NoError(t, plans.Create(context.Background(), model.BudgetPlan{ID: "6f1c2a34-5b6d-4e7f-8a9b-0c1d2e3f4a5b", Name: "APBDes", Year: 2026}))

	cats := newMemCategories("r-1")
	svc := NewFinanceService(newFakeReportStore(), plans, FinanceReconcilers{
		Categories: reconcile.New[model.CategoryFields, model.Category](&passTx{}, cats),
	})
	return svc, plans, cats
}

func TestFinanceService_Reports(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newFinanceFixture(t)
	planID := "6f1c2a34-5b6d-4e7f-8a9b-0c1d2e3f4a5b"

	created, err := svc.CreateReport(ctx, testAdmin, model.FinanceReportInput{BudgetPlanID: planID, Name: "  Belanja Desa "})
	require.NoError(t, err)
	assert.Equal(t, "Belanja Desa", created.Name)
	assert.Equal(t, "a-1", created.CreatedBy)

	listed, err := svc.ListReports(ctx, planID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	updated, err := svc.UpdateReport(ctx, created.ID, model.FinanceReportInput{BudgetPlanID: planID, Name: "Pendapatan"})
	require.NoError(t, err)
	assert.Equal(t, "Pendapatan", updated.Name)

	require.NoError(t, svc.DeleteReport(ctx, created.ID))
	_, err = svc.GetReport(ctx, created.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFinanceService_ReportValidation(t *testing.T) {
	svc, _, _ := newFinanceFixture(t)

	_, err := svc.CreateReport(context.Background(), testAdmin, model.FinanceReportInput{BudgetPlanID: "not-a-uuid", Name: "x"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "budgetPlanId", verrs[0].Field())
}

func TestFinanceService_ListReportsUnknownPlan(t *testing.T) {
	svc, _, _ := newFinanceFixture(t)

	_, err := svc.ListReports(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFinanceService_ReconcileCategories(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newFinanceFixture(t)

	first, err := svc.ReconcileCategories(ctx, "r-1", []reconcile.Item[model.CategoryFields]{
		{Fields: model.CategoryFields{Name: " Pendapatan "}},
		{Fields: model.CategoryFields{Name: "Belanja"}},
	})
	require.NoError(t, err)
	require.Len(t, first.Created, 2)
	assert.Equal(t, "Pendapatan", first.Created[0].Name)

	keep := first.Created[1]
	second, err := svc.ReconcileCategories(ctx, "r-1", []reconcile.Item[model.CategoryFields]{
		{ID: keep.ID, Fields: model.CategoryFields{Name: "Belanja Desa"}},
	})
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	require.Len(t, second.Updated, 1)
	assert.Equal(t, int64(1), second.DeletedCount)

	current, err := svc.Categories(ctx, "r-1")
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "Belanja Desa", current[0].Name)
}

func TestFinanceService_ReconcileCategoriesErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, cats := newFinanceFixture(t)

	_, err := svc.ReconcileCategories(ctx, "r-missing", nil)
	assert.ErrorIs(t, err, reconcile.ErrParentNotFound)

	_, err = svc.ReconcileCategories(ctx, "r-1", []reconcile.Item[model.CategoryFields]{
		{ID: "foreign", Fields: model.CategoryFields{Name: "x"}},
	})
	var unknown *reconcile.UnknownChildError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, 0, unknown.Index)
	assert.Empty(t, cats.rows)
}
