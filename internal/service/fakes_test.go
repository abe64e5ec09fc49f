package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"village-portal/internal/database"
	"village-portal/internal/model"
	"village-portal/internal/storage"
)

// passTx runs fn without a real transaction. A non-nil failAfter error is
// returned after fn succeeds, standing in for a failed commit.
type passTx struct {
	failAfter error
	calls     int
}

func (p *passTx) InTx(_ context.Context, fn func(q database.DBTX) error) error {
	p.calls++
	if err := fn(nil); err != nil {
		return err
	}
	return p.failAfter
}

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	return store
}

func fileExists(t *testing.T, store *storage.Storage, u string) bool {
	t.Helper()
	resolved, err := store.Resolve(storage.KeyFromURL(u))
	require.NoError(t, err)
	_, err = os.Stat(resolved)
	return err == nil
}

func storedFiles(t *testing.T, store *storage.Storage, kind storage.Kind) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(store.RootAbs(), string(kind)))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func pdfBody(marker string) *strings.Reader {
	return strings.NewReader("%PDF-1.7\n" + marker + "\n")
}

type fakePlanStore struct {
	mu        sync.Mutex
	plans     map[string]model.BudgetPlan
	createErr error
	updateErr error
}

func newFakePlanStore() *fakePlanStore {
	return &fakePlanStore{plans: make(map[string]model.BudgetPlan)}
}

func (f *fakePlanStore) List(context.Context) ([]model.BudgetPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.BudgetPlan, 0, len(f.plans))
	for _, p := range f.plans {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePlanStore) FindByID(_ context.Context, id string) (model.BudgetPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return model.BudgetPlan{}, model.ErrNotFound
	}
	return p, nil
}

func (f *fakePlanStore) Create(_ context.Context, p model.BudgetPlan) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans[p.ID] = p
	return nil
}

func (f *fakePlanStore) Update(_ context.Context, _ database.DBTX, p model.BudgetPlan) (*string, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.plans[p.ID]
	if !ok {
		return nil, model.ErrNotFound
	}
	previous := current.FileURL
	current.Name, current.Year, current.UpdatedAt = p.Name, p.Year, p.UpdatedAt
	if p.FileURL != nil {
		current.FileURL = p.FileURL
	}
	f.plans[p.ID] = current
	return previous, nil
}

func (f *fakePlanStore) Delete(_ context.Context, id string) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	delete(f.plans, id)
	return p.FileURL, nil
}

func (f *fakePlanStore) Report(ctx context.Context, id string) (model.BudgetPlanReport, error) {
	p, err := f.FindByID(ctx, id)
	if err != nil {
		return model.BudgetPlanReport{}, err
	}
	return model.BudgetPlanReport{BudgetPlan: p, FinanceReports: []model.FinanceReportNode{}}, nil
}
