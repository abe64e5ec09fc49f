package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"village-portal/internal/model"
	"village-portal/internal/util"
)

const dateLayout = "2006-01-02"

type DemographicStore interface {
	List(ctx context.Context, query model.DemographicQuery) ([]model.Demographic, model.Meta, error)
	FindByID(ctx context.Context, id string) (model.Demographic, error)
	Create(ctx context.Context, d model.Demographic) error
	Update(ctx context.Context, d model.Demographic) error
	Delete(ctx context.Context, id string) error
	Options(ctx context.Context) (model.DemographicOptions, error)
	StatisticsRecords(ctx context.Context) ([]model.StatisticsRecord, error)
}

type DemographicService struct {
	store DemographicStore
	now   func() time.Time
}

func NewDemographicService(store DemographicStore) *DemographicService {
	return &DemographicService{store: store, now: time.Now}
}

func (s *DemographicService) List(ctx context.Context, query model.DemographicQuery) ([]model.Demographic, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Limit > 100 {
		query.Limit = 100
	}
	query.Search = util.CleanLine(query.Search)
	return s.store.List(ctx, query)
}

func (s *DemographicService) Get(ctx context.Context, id string) (model.Demographic, error) {
	return s.store.FindByID(ctx, id)
}

func (s *DemographicService) Options(ctx context.Context) (model.DemographicOptions, error) {
	return s.store.Options(ctx)
}

func (s *DemographicService) Create(ctx context.Context, actor model.ActorClaims, in model.DemographicInput) (model.Demographic, error) {
	d, err := s.fromInput(in)
	if err != nil {
		return model.Demographic{}, err
	}

	now := s.now().UTC()
	d.ID = uuid.NewString()
	d.CreatedBy = actor.ActorID
	d.CreatedAt = now
	d.UpdatedAt = now

	if err := s.store.Create(ctx, d); err != nil {
		return model.Demographic{}, err
	}
	return s.store.FindByID(ctx, d.ID)
}

func (s *DemographicService) Update(ctx context.Context, id string, in model.DemographicInput) (model.Demographic, error) {
	d, err := s.fromInput(in)
	if err != nil {
		return model.Demographic{}, err
	}

	d.ID = id
	d.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, d); err != nil {
		return model.Demographic{}, err
	}
	return s.store.FindByID(ctx, id)
}

func (s *DemographicService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Statistics aggregates the active residents for the public statistics page.
func (s *DemographicService) Statistics(ctx context.Context) (model.DemographicStatistics, error) {
	records, err := s.store.StatisticsRecords(ctx)
	if err != nil {
		return model.DemographicStatistics{}, err
	}
	return BuildStatistics(records, s.now()), nil
}

// fromInput validates in and converts it. Active residents carry no status
// date or note; other statuses default the date to today.
func (s *DemographicService) fromInput(in model.DemographicInput) (model.Demographic, error) {
	in.NIK = strings.TrimSpace(in.NIK)
	in.Name = util.CleanLine(in.Name)
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	in.MaritalStatus = util.CleanLine(in.MaritalStatus)
	in.Job = util.CleanLine(in.Job)
	in.RT = util.CleanLine(in.RT)
	in.RW = util.CleanLine(in.RW)
	in.Hamlet = util.CleanLine(in.Hamlet)
	in.ActiveStatus = strings.ToLower(strings.TrimSpace(in.ActiveStatus))
	in.StatusNote = util.CleanText(in.StatusNote)
	if in.ActiveStatus == "" {
		in.ActiveStatus = model.StatusActive
	}

	if err := model.Validate(in); err != nil {
		return model.Demographic{}, err
	}

	birthDate, err := time.Parse(dateLayout, in.BirthDate)
	if err != nil {
		return model.Demographic{}, fmt.Errorf("%w: birthDate must be YYYY-MM-DD", model.ErrInvalidInput)
	}
	if birthDate.After(s.now().UTC()) {
		return model.Demographic{}, fmt.Errorf("%w: birthDate is in the future", model.ErrInvalidInput)
	}

	d := model.Demographic{
		NIK:           in.NIK,
		Name:          in.Name,
		Gender:        in.Gender,
		BirthDate:     birthDate,
		MaritalStatus: in.MaritalStatus,
		EducationID:   in.EducationID,
		ReligionID:    in.ReligionID,
		Job:           in.Job,
		RT:            in.RT,
		RW:            in.RW,
		Hamlet:        in.Hamlet,
		ActiveStatus:  in.ActiveStatus,
	}

	if d.ActiveStatus == model.StatusActive {
		return d, nil
	}

	changedAt := s.now().UTC().Truncate(24 * time.Hour)
	if in.StatusChangedAt != "" {
		changedAt, err = time.Parse(dateLayout, in.StatusChangedAt)
		if err != nil {
			return model.Demographic{}, fmt.Errorf("%w: statusChangedAt must be YYYY-MM-DD", model.ErrInvalidInput)
		}
	}
	d.StatusChangedAt = &changedAt
	if in.StatusNote != "" {
		note := in.StatusNote
		d.StatusNote = &note
	}
	return d, nil
}
