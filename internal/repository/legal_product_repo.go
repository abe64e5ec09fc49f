package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"village-portal/internal/database"
	"village-portal/internal/model"
)

type LegalProductRepository struct {
	db *database.DB
}

func NewLegalProductRepository(db *database.DB) *LegalProductRepository {
	return &LegalProductRepository{db: db}
}

const legalProductColumns = `id, name, description, issued_on, file_url, created_by, created_at, updated_at`

func scanLegalProduct(row interface{ Scan(...any) error }) (model.LegalProduct, error) {
	var (
		p       model.LegalProduct
		fileURL sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.IssuedOn, &fileURL, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.LegalProduct{}, err
	}
	p.FileURL = stringPtr(fileURL)
	return p, nil
}

func (r *LegalProductRepository) List(ctx context.Context) ([]model.LegalProduct, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT `+legalProductColumns+` FROM legal_products ORDER BY issued_on DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list legal products: %w", err)
	}
	defer rows.Close()

	products := make([]model.LegalProduct, 0)
	for rows.Next() {
		p, err := scanLegalProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan legal product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *LegalProductRepository) FindByID(ctx context.Context, id string) (model.LegalProduct, error) {
	p, err := scanLegalProduct(r.db.SQL.QueryRowContext(ctx,
		`SELECT `+legalProductColumns+` FROM legal_products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.LegalProduct{}, model.ErrNotFound
	}
	if err != nil {
		return model.LegalProduct{}, fmt.Errorf("find legal product: %w", err)
	}
	return p, nil
}

func (r *LegalProductRepository) Create(ctx context.Context, p model.LegalProduct) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO legal_products (id, name, description, issued_on, file_url, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.IssuedOn, nullString(p.FileURL), p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: legal product %q issued %s", model.ErrAlreadyExists, p.Name, p.IssuedOn.Format("2006-01-02"))
	}
	if err != nil {
		return fmt.Errorf("create legal product: %w", err)
	}
	return nil
}

// Update writes the fields, and the file url when p carries one. It returns
// the file url stored before the update.
func (r *LegalProductRepository) Update(ctx context.Context, q database.DBTX, p model.LegalProduct) (*string, error) {
	var previous sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT file_url FROM legal_products WHERE id = $1 FOR UPDATE`, p.ID).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock legal product: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`UPDATE legal_products
		 SET name = $2, description = $3, issued_on = $4, file_url = COALESCE($5, file_url), updated_at = $6
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.IssuedOn, nullString(p.FileURL), p.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("%w: legal product %q issued %s", model.ErrAlreadyExists, p.Name, p.IssuedOn.Format("2006-01-02"))
	}
	if err != nil {
		return nil, fmt.Errorf("update legal product: %w", err)
	}
	return stringPtr(previous), nil
}

// Delete removes the row and returns its file url.
func (r *LegalProductRepository) Delete(ctx context.Context, id string) (*string, error) {
	var fileURL sql.NullString
	err := r.db.SQL.QueryRowContext(ctx,
		`DELETE FROM legal_products WHERE id = $1 RETURNING file_url`, id).Scan(&fileURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete legal product: %w", err)
	}
	return stringPtr(fileURL), nil
}
