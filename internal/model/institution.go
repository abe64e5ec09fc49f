package model

import "time"

type Institution struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Abbreviation  string    `json:"abbreviation"`
	LegalBasis    string    `json:"legalBasis"`
	OfficeAddress string    `json:"officeAddress"`
	LogoURL       *string   `json:"logoUrl,omitempty"`
	Profile       string    `json:"profile"`
	VisionMission string    `json:"visionMission"`
	MainDuties    string    `json:"mainDuties"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Members       []Member  `json:"members"`
}

type InstitutionInput struct {
	Name          string `json:"name" validate:"required,max=255"`
	Abbreviation  string `json:"abbreviation" validate:"max=64"`
	LegalBasis    string `json:"legalBasis"`
	OfficeAddress string `json:"officeAddress"`
	Profile       string `json:"profile"`
	VisionMission string `json:"visionMission"`
	MainDuties    string `json:"mainDuties"`
}

type Member struct {
	ID            string `json:"id"`
	InstitutionID string `json:"institutionId"`
	DemographicID string `json:"demographicId"`
	Position      string `json:"position"`
	// Name is read from the linked demographic record.
	Name string `json:"name,omitempty"`
}

type MemberFields struct {
	DemographicID string `json:"demographicId" validate:"required,uuid"`
	Position      string `json:"position" validate:"required,max=128"`
}
