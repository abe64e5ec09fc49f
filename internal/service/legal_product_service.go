package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"village-portal/internal/database"
	"village-portal/internal/model"
	"village-portal/internal/reconcile"
	"village-portal/internal/storage"
	"village-portal/internal/util"
)

type LegalProductStore interface {
	List(ctx context.Context) ([]model.LegalProduct, error)
	FindByID(ctx context.Context, id string) (model.LegalProduct, error)
	Create(ctx context.Context, p model.LegalProduct) error
	Update(ctx context.Context, q database.DBTX, p model.LegalProduct) (*string, error)
	Delete(ctx context.Context, id string) (*string, error)
}

type LegalProductService struct {
	products LegalProductStore
	tx       reconcile.TxRunner
	files    FileStore
	now      func() time.Time
}

func NewLegalProductService(products LegalProductStore, tx reconcile.TxRunner, files FileStore) *LegalProductService {
	return &LegalProductService{products: products, tx: tx, files: files, now: time.Now}
}

func (s *LegalProductService) List(ctx context.Context) ([]model.LegalProduct, error) {
	return s.products.List(ctx)
}

func (s *LegalProductService) Get(ctx context.Context, id string) (model.LegalProduct, error) {
	return s.products.FindByID(ctx, id)
}

// fromInput cleans and validates in and returns the row fields it describes.
func (s *LegalProductService) fromInput(in model.LegalProductInput) (model.LegalProduct, error) {
	in.Name = util.CleanLine(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.IssuedOn = strings.TrimSpace(in.IssuedOn)
	if err := model.Validate(in); err != nil {
		return model.LegalProduct{}, err
	}

	issuedOn, err := time.Parse(dateLayout, in.IssuedOn)
	if err != nil {
		return model.LegalProduct{}, fmt.Errorf("%w: issuedOn must be YYYY-MM-DD", model.ErrInvalidInput)
	}

	return model.LegalProduct{Name: in.Name, Description: in.Description, IssuedOn: issuedOn}, nil
}

// Create stores the optional document and inserts the row. The document is
// removed again when the insert fails, including on a duplicate name and date.
func (s *LegalProductService) Create(ctx context.Context, actor model.ActorClaims, in model.LegalProductInput, document io.Reader) (model.LegalProduct, error) {
	product, err := s.fromInput(in)
	if err != nil {
		return model.LegalProduct{}, err
	}

	now := s.now().UTC()
	product.ID = uuid.NewString()
	product.CreatedBy = actor.ActorID
	product.CreatedAt = now
	product.UpdatedAt = now

	if document != nil {
		fileURL, err := s.files.SaveDocument(storage.KindLegalProduct, document)
		if err != nil {
			return model.LegalProduct{}, err
		}
		product.FileURL = &fileURL
	}

	if err := s.products.Create(ctx, product); err != nil {
		discardFile(s.files, product.FileURL, "legal product insert failed")
		return model.LegalProduct{}, err
	}

	return product, nil
}

// Update replaces the fields and, when document is non-nil, the stored
// document. The old document goes only after the row update commits.
func (s *LegalProductService) Update(ctx context.Context, id string, in model.LegalProductInput, document io.Reader) (model.LegalProduct, error) {
	product, err := s.fromInput(in)
	if err != nil {
		return model.LegalProduct{}, err
	}
	product.ID = id
	product.UpdatedAt = s.now().UTC()

	if document != nil {
		fileURL, err := s.files.SaveDocument(storage.KindLegalProduct, document)
		if err != nil {
			return model.LegalProduct{}, err
		}
		product.FileURL = &fileURL
	}

	var previous *string
	err = s.tx.InTx(ctx, func(q database.DBTX) error {
		var updateErr error
		previous, updateErr = s.products.Update(ctx, q, product)
		return updateErr
	})
	if err != nil {
		discardFile(s.files, product.FileURL, "legal product update rolled back")
		return model.LegalProduct{}, err
	}

	if product.FileURL != nil && previous != nil && *previous != *product.FileURL {
		discardFile(s.files, previous, "legal product document replaced")
	}

	updated, err := s.products.FindByID(ctx, id)
	if err != nil {
		return model.LegalProduct{}, fmt.Errorf("reload legal product: %w", err)
	}
	return updated, nil
}

func (s *LegalProductService) Delete(ctx context.Context, id string) error {
	fileURL, err := s.products.Delete(ctx, id)
	if err != nil {
		return err
	}
	discardFile(s.files, fileURL, "legal product deleted")
	return nil
}
