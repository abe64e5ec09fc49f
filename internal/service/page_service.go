package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"village-portal/internal/model"
	"village-portal/internal/util"
)

type PageStore interface {
	Get(ctx context.Context, slug string) (model.Page, error)
	Upsert(ctx context.Context, p model.Page) (model.Page, error)
}

type PageService struct {
	store PageStore
	now   func() time.Time
}

func NewPageService(store PageStore) *PageService {
	return &PageService{store: store, now: time.Now}
}

func (s *PageService) Get(ctx context.Context, slug string) (model.Page, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !model.IsPageSlug(slug) {
		return model.Page{}, fmt.Errorf("%w: page %q", model.ErrNotFound, slug)
	}
	return s.store.Get(ctx, slug)
}

// Save replaces the title and content of one of the fixed pages.
func (s *PageService) Save(ctx context.Context, actor model.ActorClaims, slug string, in model.PageInput) (model.Page, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !model.IsPageSlug(slug) {
		return model.Page{}, fmt.Errorf("%w: page %q", model.ErrNotFound, slug)
	}

	in.Title = util.CleanLine(in.Title)
	in.Content = util.CleanText(in.Content)
	if err := model.Validate(in); err != nil {
		return model.Page{}, err
	}

	return s.store.Upsert(ctx, model.Page{
		Slug:      slug,
		Title:     in.Title,
		Content:   in.Content,
		UpdatedBy: actor.Username,
		UpdatedAt: s.now().UTC(),
	})
}
