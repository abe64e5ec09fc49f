package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"village-portal/internal/database"
	"village-portal/internal/model"
	"village-portal/internal/storage"
)

// fakeLegalProductStore enforces the unique (name, issued_on) pair.
type fakeLegalProductStore struct {
	mu       sync.Mutex
	products map[string]model.LegalProduct
}

func newFakeLegalProductStore() *fakeLegalProductStore {
	return &fakeLegalProductStore{products: make(map[string]model.LegalProduct)}
}

func (f *fakeLegalProductStore) taken(id string, p model.LegalProduct) bool {
	for _, other := range f.products {
		if other.ID != id && other.Name == p.Name && other.IssuedOn.Equal(p.IssuedOn) {
			return true
		}
	}
	return false
}

func (f *fakeLegalProductStore) List(context.Context) ([]model.LegalProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.LegalProduct, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeLegalProductStore) FindByID(_ context.Context, id string) (model.LegalProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return model.LegalProduct{}, model.ErrNotFound
	}
	return p, nil
}

func (f *fakeLegalProductStore) Create(_ context.Context, p model.LegalProduct) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.taken(p.ID, p) {
		return model.ErrAlreadyExists
	}
	f.products[p.ID] = p
	return nil
}

func (f *fakeLegalProductStore) Update(_ context.Context, _ database.DBTX, p model.LegalProduct) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.products[p.ID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if f.taken(p.ID, p) {
		return nil, model.ErrAlreadyExists
	}
	previous := current.FileURL
	current.Name, current.Description, current.IssuedOn, current.UpdatedAt = p.Name, p.Description, p.IssuedOn, p.UpdatedAt
	if p.FileURL != nil {
		current.FileURL = p.FileURL
	}
	f.products[p.ID] = current
	return previous, nil
}

func (f *fakeLegalProductStore) Delete(_ context.Context, id string) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	delete(f.products, id)
	return p.FileURL, nil
}

func perdes(name string, issuedOn string) model.LegalProductInput {
	return model.LegalProductInput{Name: name, Description: "Peraturan Desa", IssuedOn: issuedOn}
}

func TestLegalProductService_Create(t *testing.T) {
	t.Run("stores the document and parses the date", func(t *testing.T) {
		files := newTestStorage(t)
		svc := NewLegalProductService(newFakeLegalProductStore(), &passTx{}, files)

		product, err := svc.Create(context.Background(), testAdmin, perdes(" Perdes 1/2025 ", "2025-06-01"), pdfBody("v1"))
		require.NoError(t, err)
		assert.Equal(t, "Perdes 1/2025", product.Name)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), product.IssuedOn)
		assert.Equal(t, "a-1", product.CreatedBy)
		require.NotNil(t, product.FileURL)
		assert.True(t, fileExists(t, files, *product.FileURL))
	})

	t.Run("malformed date stores nothing", func(t *testing.T) {
		files := newTestStorage(t)
		svc := NewLegalProductService(newFakeLegalProductStore(), &passTx{}, files)

		_, err := svc.Create(context.Background(), testAdmin, perdes("Perdes", "01-06-2025"), pdfBody("v1"))
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "issuedOn", verrs[0].Field())
		assert.Empty(t, storedFiles(t, files, storage.KindLegalProduct))
	})

	t.Run("duplicate name and date removes the new document", func(t *testing.T) {
		files := newTestStorage(t)
		svc := NewLegalProductService(newFakeLegalProductStore(), &passTx{}, files)

		_, err := svc.Create(context.Background(), testAdmin, perdes("Perdes 1/2025", "2025-06-01"), nil)
		require.NoError(t, err)

		_, err = svc.Create(context.Background(), testAdmin, perdes("Perdes 1/2025", "2025-06-01"), pdfBody("dup"))
		require.ErrorIs(t, err, model.ErrAlreadyExists)
		assert.Empty(t, storedFiles(t, files, storage.KindLegalProduct))

		_, err = svc.Create(context.Background(), testAdmin, perdes("Perdes 1/2025", "2025-07-01"), nil)
		assert.NoError(t, err)
	})
}

func TestLegalProductService_Update(t *testing.T) {
	setup := func(t *testing.T) (*LegalProductService, *passTx, *storage.Storage, model.LegalProduct) {
		t.Helper()
		files := newTestStorage(t)
		tx := &passTx{}
		svc := NewLegalProductService(newFakeLegalProductStore(), tx, files)
		product, err := svc.Create(context.Background(), testAdmin, perdes("Perdes 1/2025", "2025-06-01"), pdfBody("v1"))
		require.NoError(t, err)
		return svc, tx, files, product
	}

	t.Run("replacing the document removes the old one after commit", func(t *testing.T) {
		svc, _, files, product := setup(t)

		updated, err := svc.Update(context.Background(), product.ID, perdes("Perdes 1/2025 Perubahan", "2025-06-02"), pdfBody("v2"))
		require.NoError(t, err)
		assert.Equal(t, "Perdes 1/2025 Perubahan", updated.Name)
		require.NotNil(t, updated.FileURL)
		assert.NotEqual(t, *product.FileURL, *updated.FileURL)
		assert.False(t, fileExists(t, files, *product.FileURL))
		assert.True(t, fileExists(t, files, *updated.FileURL))
	})

	t.Run("without a document the file is kept", func(t *testing.T) {
		svc, _, files, product := setup(t)

		updated, err := svc.Update(context.Background(), product.ID, perdes("Perdes 1/2025", "2025-06-01"), nil)
		require.NoError(t, err)
		assert.Equal(t, *product.FileURL, *updated.FileURL)
		assert.True(t, fileExists(t, files, *product.FileURL))
	})

	t.Run("failed commit keeps the old document", func(t *testing.T) {
		svc, tx, files, product := setup(t)
		tx.failAfter = errors.New("commit failed")

		_, err := svc.Update(context.Background(), product.ID, perdes("Perdes", "2025-06-01"), pdfBody("v2"))
		require.Error(t, err)
		assert.True(t, fileExists(t, files, *product.FileURL))
		assert.Len(t, storedFiles(t, files, storage.KindLegalProduct), 1)
	})
}

func TestLegalProductService_Delete(t *testing.T) {
	files := newTestStorage(t)
	svc := NewLegalProductService(newFakeLegalProductStore(), &passTx{}, files)
	product, err := svc.Create(context.Background(), testAdmin, perdes("Perdes", "2025-06-01"), pdfBody("v1"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), product.ID))
	assert.False(t, fileExists(t, files, *product.FileURL))
	assert.ErrorIs(t, svc.Delete(context.Background(), product.ID), model.ErrNotFound)
}
