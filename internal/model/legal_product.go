package model

import "time"

// LegalProduct is a published village regulation or decree with its
// optional scanned document.
type LegalProduct struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IssuedOn    time.Time `json:"issuedOn"`
	FileURL     *string   `json:"fileUrl,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type LegalProductInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=5000"`
	IssuedOn    string `json:"issuedOn" validate:"required,datetime=2006-01-02"`
}
