package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"village-portal/internal/database"
	"village-portal/internal/model"
)

type PageRepository struct {
	db *database.DB
}

func NewPageRepository(db *database.DB) *PageRepository {
	return &PageRepository{db: db}
}

func (r *PageRepository) Get(ctx context.Context, slug string) (model.Page, error) {
	var p model.Page
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT slug, title, content, updated_by, updated_at FROM pages WHERE slug = $1`, slug).
		Scan(&p.Slug, &p.Title, &p.Content, &p.UpdatedBy, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Page{}, model.ErrNotFound
	}
	if err != nil {
		return model.Page{}, fmt.Errorf("get page: %w", err)
	}
	return p, nil
}

func (r *PageRepository) Upsert(ctx context.Context, p model.Page) (model.Page, error) {
	var out model.Page
	err := r.db.SQL.QueryRowContext(ctx,
		`INSERT INTO pages (slug, title, content, updated_by, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (slug) DO UPDATE
		 SET title = EXCLUDED.title, content = EXCLUDED.content,
		     updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at
		 RETURNING slug, title, content, updated_by, updated_at`,
		p.Slug, p.Title, p.Content, p.UpdatedBy, p.UpdatedAt).
		Scan(&out.Slug, &out.Title, &out.Content, &out.UpdatedBy, &out.UpdatedAt)
	if err != nil {
		return model.Page{}, fmt.Errorf("upsert page: %w", err)
	}
	return out, nil
}
