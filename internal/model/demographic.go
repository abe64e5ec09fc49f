package model

import "time"

const (
	GenderMale   = "laki-laki"
	GenderFemale = "perempuan"

	StatusActive   = "aktif"
	StatusMovedOut = "pindah"
	StatusDeceased = "meninggal"
)

type Demographic struct {
	ID              string     `json:"id"`
	NIK             string     `json:"nik"`
	Name            string     `json:"name"`
	Gender          string     `json:"gender"`
	BirthDate       time.Time  `json:"birthDate"`
	MaritalStatus   string     `json:"maritalStatus"`
	EducationID     int        `json:"educationId"`
	Education       string     `json:"education"`
	ReligionID      int        `json:"religionId"`
	Religion        string     `json:"religion"`
	Job             string     `json:"job"`
	RT              string     `json:"rt"`
	RW              string     `json:"rw"`
	Hamlet          string     `json:"hamlet"`
	ActiveStatus    string     `json:"activeStatus"`
	StatusChangedAt *time.Time `json:"statusChangedAt,omitempty"`
	StatusNote      *string    `json:"statusNote,omitempty"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type DemographicInput struct {
	NIK             string `json:"nik" validate:"required,len=16,numeric"`
	Name            string `json:"name" validate:"required,max=255"`
	Gender          string `json:"gender" validate:"required,oneof=laki-laki perempuan"`
	BirthDate       string `json:"birthDate" validate:"required,datetime=2006-01-02"`
	MaritalStatus   string `json:"maritalStatus" validate:"required,max=64"`
	EducationID     int    `json:"educationId" validate:"required,gt=0"`
	ReligionID      int    `json:"religionId" validate:"required,gt=0"`
	Job             string `json:"job" validate:"required,max=128"`
	RT              string `json:"rt" validate:"required,max=8"`
	RW              string `json:"rw" validate:"required,max=8"`
	Hamlet          string `json:"hamlet" validate:"required,max=128"`
	ActiveStatus    string `json:"activeStatus" validate:"omitempty,oneof=aktif pindah meninggal"`
	StatusChangedAt string `json:"statusChangedAt" validate:"omitempty,datetime=2006-01-02"`
	StatusNote      string `json:"statusNote" validate:"max=1000"`
}

type DemographicQuery struct {
	Search string
	Page   int
	Limit  int
}

type LookupOption struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type DemographicOptions struct {
	Educations []LookupOption `json:"educations"`
	Religions  []LookupOption `json:"religions"`
}

// StatisticsRecord is the projection of a resident used for public statistics.
type StatisticsRecord struct {
	Gender        string
	BirthDate     time.Time
	Education     string
	Religion      string
	Job           string
	MaritalStatus string
	RT            string
	RW            string
	Hamlet        string
}

type GenderBreakdown struct {
	Total  int `json:"total"`
	Male   int `json:"male"`
	Female int `json:"female"`
}

type GroupCount struct {
	Label string `json:"label"`
	GenderBreakdown
}

type DemographicStatistics struct {
	Total         GenderBreakdown `json:"total"`
	Education     []GroupCount    `json:"education"`
	Job           []GroupCount    `json:"job"`
	Religion      []GroupCount    `json:"religion"`
	MaritalStatus []GroupCount    `json:"maritalStatus"`
	AgeGroups     []GroupCount    `json:"ageGroups"`
	RT            []GroupCount    `json:"rt"`
	RW            []GroupCount    `json:"rw"`
	Hamlet        []GroupCount    `json:"hamlet"`
}

// Add counts one resident of the given normalized gender.
func (b *GenderBreakdown) Add(gender string) {
	b.Total++
	switch gender {
	case GenderMale:
		b.Male++
	case GenderFemale:
		b.Female++
	}
}
