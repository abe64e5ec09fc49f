package model

import (
	"slices"
	"time"
)

var PageSlugs = []string{"profile", "history", "vision-mission", "organization-structure"}

func IsPageSlug(slug string) bool {
	return slices.Contains(PageSlugs, slug)
}

type Page struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedBy string    `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PageInput struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"max=200000"`
}
