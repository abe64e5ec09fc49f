package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"village-portal/internal/database"
	"village-portal/internal/middleware"
	"village-portal/internal/model"
	"village-portal/internal/service"
	"village-portal/internal/storage"
)

type memPlans struct {
	mu    sync.Mutex
	plans map[string]model.BudgetPlan
}

func (m *memPlans) List(_ context.Context) ([]model.BudgetPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.BudgetPlan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPlans) FindByID(_ context.Context, id string) (model.BudgetPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return model.BudgetPlan{}, model.ErrNotFound
	}
	return p, nil
}

func (m *memPlans) Create(_ context.Context, p model.BudgetPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.ID] = p
	return nil
}

func (m *memPlans) Update(_ context.Context, _ database.DBTX, p model.BudgetPlan) (*string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.plans[p.ID]
	if !ok {
		return nil, model.ErrNotFound
	}
	previous := existing.FileURL
	existing.Name, existing.Year, existing.UpdatedAt = p.Name, p.Year, p.UpdatedAt
	if p.FileURL != nil {
		existing.FileURL = p.FileURL
	}
	m.plans[p.ID] = existing
	return previous, nil
}

func (m *memPlans) Delete(_ context.Context, id string) (*string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	delete(m.plans, id)
	return p.FileURL, nil
}

func (m *memPlans) Report(ctx context.Context, id string) (model.BudgetPlanReport, error) {
	p, err := m.FindByID(ctx, id)
	if err != nil {
		return model.BudgetPlanReport{}, err
	}
	return model.BudgetPlanReport{BudgetPlan: p, FinanceReports: []model.FinanceReportNode{}}, nil
}

type directTx struct{}

func (directTx) InTx(_ context.Context, fn func(q database.DBTX) error) error {
	return fn(nil)
}

var pdfDocument = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type planFixture struct {
	router http.Handler
	store  *storage.Storage
	plans  *memPlans
}

func newPlanFixture(t *testing.T, maxUpload int64) planFixture {
	t.Helper()

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	plans := &memPlans{plans: map[string]model.BudgetPlan{}}
	svc := service.NewBudgetPlanService(plans, directTx{}, store)
	h := NewBudgetPlanHandler(svc, service.NewAuditService(&memAudit{}), maxUpload)
	files := NewFileHandler(store)

	admin := model.ActorClaims{ActorID: "a-1", Username: "sekdes", Role: model.RoleAdministrator}
	withAdmin := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithClaims(r.Context(), admin)))
		})
	}

	r := chi.NewRouter()
	r.Get("/uploads/*", files.Serve)
	r.With(withAdmin).Post("/budget-plans", h.Create)
	r.With(withAdmin).Put("/budget-plans/{id}", h.Update)
	r.With(withAdmin).Delete("/budget-plans/{id}", h.Delete)
	r.Get("/public/budget-plans/{id}/report", h.Report)

	return planFixture{router: r, store: store, plans: plans}
}

func multipartBody(t *testing.T, fields map[string]string, fileField string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, "upload.bin")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f planFixture) send(method string, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestBudgetPlanHandler_CreateWithDocument(t *testing.T) {
	f := newPlanFixture(t, 1<<20)

	body, ct := multipartBody(t, map[string]string{"name": "APBDes 2026", "year": "2026"}, "file", pdfDocument)
	rec := f.send(http.MethodPost, "/budget-plans", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var plan model.BudgetPlan
	decodeBody(t, rec, &plan)
	assert.Equal(t, "APBDes 2026", plan.Name)
	assert.Equal(t, 2026, plan.Year)
	assert.Equal(t, "a-1", plan.CreatedBy)
	require.NotNil(t, plan.FileURL)
	assert.True(t, strings.HasPrefix(*plan.FileURL, "/uploads/budget-plans/"))
	assert.True(t, strings.HasSuffix(*plan.FileURL, ".pdf"))

	download := httptest.NewRecorder()
	f.router.ServeHTTP(download, httptest.NewRequest(http.MethodGet, *plan.FileURL, nil))
	require.Equal(t, http.StatusOK, download.Code)
	assert.Equal(t, pdfDocument, download.Body.Bytes())
	assert.Contains(t, download.Header().Get("Content-Disposition"), "attachment")
}

func TestBudgetPlanHandler_ReplaceDocument(t *testing.T) {
	f := newPlanFixture(t, 1<<20)

	body, ct := multipartBody(t, map[string]string{"name": "APBDes", "year": "2026"}, "file", pdfDocument)
	created := f.send(http.MethodPost, "/budget-plans", body, ct)
	require.Equal(t, http.StatusCreated, created.Code)
	var plan model.BudgetPlan
	decodeBody(t, created, &plan)
	oldPath, err := f.store.Resolve(storage.KeyFromURL(*plan.FileURL))
	require.NoError(t, err)

	body, ct = multipartBody(t, map[string]string{"name": "APBDes Perubahan", "year": "2026"}, "file", pdfDocument)
	updated := f.send(http.MethodPut, "/budget-plans/"+plan.ID, body, ct)
	require.Equal(t, http.StatusOK, updated.Code, updated.Body.String())

	var after model.BudgetPlan
	decodeBody(t, updated, &after)
	require.NotNil(t, after.FileURL)
	assert.NotEqual(t, *plan.FileURL, *after.FileURL)
	assert.NoFileExists(t, oldPath)

	body, ct = multipartBody(t, map[string]string{"name": "APBDes Final", "year": "2026"}, "", nil)
	kept := f.send(http.MethodPut, "/budget-plans/"+plan.ID, body, ct)
	require.Equal(t, http.StatusOK, kept.Code)
	var final model.BudgetPlan
	decodeBody(t, kept, &final)
	assert.Equal(t, *after.FileURL, *final.FileURL)
}

func TestBudgetPlanHandler_RejectsBadUploads(t *testing.T) {
	t.Run("not multipart", func(t *testing.T) {
		f := newPlanFixture(t, 1<<20)
		rec := f.send(http.MethodPost, "/budget-plans", bytes.NewBufferString(`{"name":"x"}`), "application/json")
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("year not a number", func(t *testing.T) {
		f := newPlanFixture(t, 1<<20)
		body, ct := multipartBody(t, map[string]string{"name": "APBDes", "year": "dua ribu"}, "", nil)
		rec := f.send(http.MethodPost, "/budget-plans", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported document", func(t *testing.T) {
		f := newPlanFixture(t, 1<<20)
		body, ct := multipartBody(t, map[string]string{"name": "APBDes", "year": "2026"}, "file", []byte("<html><script>alert(1)</script></html>"))
		rec := f.send(http.MethodPost, "/budget-plans", body, ct)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

		entries, err := os.ReadDir(filepath.Join(f.store.RootAbs(), string(storage.KindBudgetPlan)))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("too large", func(t *testing.T) {
		f := newPlanFixture(t, 256)
		body, ct := multipartBody(t, map[string]string{"name": "APBDes", "year": "2026"}, "file", bytes.Repeat(pdfDocument, 20))
		rec := f.send(http.MethodPost, "/budget-plans", body, ct)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		f := newPlanFixture(t, 1<<20)
		body, ct := multipartBody(t, map[string]string{"name": "APBDes", "year": "2026"}, "", nil)
		rec := f.send(http.MethodPut, "/budget-plans/not-a-uuid", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ID", decodeBody(t, rec, nil).Error.Code)
	})
}

func TestBudgetPlanHandler_DeleteRemovesDocument(t *testing.T) {
	f := newPlanFixture(t, 1<<20)

	body, ct := multipartBody(t, map[string]string{"name": "APBDes", "year": "2026"}, "file", pdfDocument)
	created := f.send(http.MethodPost, "/budget-plans", body, ct)
	require.Equal(t, http.StatusCreated, created.Code)
	var plan model.BudgetPlan
	decodeBody(t, created, &plan)
	path, err := f.store.Resolve(storage.KeyFromURL(*plan.FileURL))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/budget-plans/"+plan.ID, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoFileExists(t, path)

	report := httptest.NewRecorder()
	f.router.ServeHTTP(report, httptest.NewRequest(http.MethodGet, "/public/budget-plans/"+plan.ID+"/report", nil))
	assert.Equal(t, http.StatusNotFound, report.Code)
}

func TestFileHandler_MissingAndDirectory(t *testing.T) {
	f := newPlanFixture(t, 1<<20)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/budget-plans/missing.pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/budget-plans", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
