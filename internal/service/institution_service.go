package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"village-portal/internal/database"
	"village-portal/internal/model"
	"village-portal/internal/reconcile"
	"village-portal/internal/storage"
	"village-portal/internal/util"
)

type InstitutionStore interface {
	List(ctx context.Context) ([]model.Institution, error)
	FindByID(ctx context.Context, id string) (model.Institution, error)
	Create(ctx context.Context, q database.DBTX, inst model.Institution) error
	Update(ctx context.Context, q database.DBTX, inst model.Institution) (*string, error)
	Delete(ctx context.Context, id string) (*string, error)
}

type InstitutionService struct {
	institutions InstitutionStore
	tx           reconcile.TxRunner
	members      *reconcile.Reconciler[model.MemberFields, model.Member]
	files        FileStore
	now          func() time.Time
}

func NewInstitutionService(
	institutions InstitutionStore,
	tx reconcile.TxRunner,
	members *reconcile.Reconciler[model.MemberFields, model.Member],
	files FileStore,
) *InstitutionService {
	return &InstitutionService{institutions: institutions, tx: tx, members: members, files: files, now: time.Now}
}

func (s *InstitutionService) List(ctx context.Context) ([]model.Institution, error) {
	return s.institutions.List(ctx)
}

func (s *InstitutionService) Get(ctx context.Context, id string) (model.Institution, error) {
	return s.institutions.FindByID(ctx, id)
}

func cleanInstitutionInput(in model.InstitutionInput) model.InstitutionInput {
	in.Name = util.CleanLine(in.Name)
	in.Abbreviation = util.CleanLine(in.Abbreviation)
	in.LegalBasis = util.CleanText(in.LegalBasis)
	in.OfficeAddress = util.CleanText(in.OfficeAddress)
	in.Profile = util.CleanText(in.Profile)
	in.VisionMission = util.CleanText(in.VisionMission)
	in.MainDuties = util.CleanText(in.MainDuties)
	return in
}

func cleanMembers(items []reconcile.Item[model.MemberFields]) {
	for i := range items {
		items[i].Fields.Position = util.CleanLine(items[i].Fields.Position)
	}
}

// Create inserts the institution and its members in one transaction. The logo
// is stored first and removed again if the transaction does not commit.
func (s *InstitutionService) Create(ctx context.Context, actor model.ActorClaims, in model.InstitutionInput, members []reconcile.Item[model.MemberFields], logo io.Reader) (model.Institution, error) {
	in = cleanInstitutionInput(in)
	if err := model.Validate(in); err != nil {
		return model.Institution{}, err
	}
	cleanMembers(members)
	if err := reconcile.Validate(members); err != nil {
		return model.Institution{}, err
	}

	now := s.now().UTC()
	inst := model.Institution{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Abbreviation:  in.Abbreviation,
		LegalBasis:    in.LegalBasis,
		OfficeAddress: in.OfficeAddress,
		Profile:       in.Profile,
		VisionMission: in.VisionMission,
		MainDuties:    in.MainDuties,
		CreatedBy:     actor.ActorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if logo != nil {
		logoURL, err := s.files.SaveLogo(storage.KindInstitution, logo)
		if err != nil {
			return model.Institution{}, err
		}
		inst.LogoURL = &logoURL
	}

	err := s.tx.InTx(ctx, func(q database.DBTX) error {
		if err := s.institutions.Create(ctx, q, inst); err != nil {
			return err
		}
		_, err := s.members.ReconcileTx(ctx, q, inst.ID, members)
		return err
	})
	if err != nil {
		discardFile(s.files, inst.LogoURL, "institution insert rolled back")
		return model.Institution{}, err
	}

	return s.reload(ctx, inst.ID)
}

// Update writes the institution fields, the logo when one is given, and the
// member list when members is non-nil, all in one transaction. A nil members
// slice leaves the members untouched; an empty one removes them all.
func (s *InstitutionService) Update(ctx context.Context, id string, in model.InstitutionInput, members []reconcile.Item[model.MemberFields], logo io.Reader) (model.Institution, error) {
	in = cleanInstitutionInput(in)
	if err := model.Validate(in); err != nil {
		return model.Institution{}, err
	}
	if members != nil {
		cleanMembers(members)
		if err := reconcile.Validate(members); err != nil {
			return model.Institution{}, err
		}
	}

	inst := model.Institution{
		ID:            id,
		Name:          in.Name,
		Abbreviation:  in.Abbreviation,
		LegalBasis:    in.LegalBasis,
		OfficeAddress: in.OfficeAddress,
		Profile:       in.Profile,
		VisionMission: in.VisionMission,
		MainDuties:    in.MainDuties,
		UpdatedAt:     s.now().UTC(),
	}

	if logo != nil {
		logoURL, err := s.files.SaveLogo(storage.KindInstitution, logo)
		if err != nil {
			return model.Institution{}, err
		}
		inst.LogoURL = &logoURL
	}

	var previous *string
	err := s.tx.InTx(ctx, func(q database.DBTX) error {
		var err error
		previous, err = s.institutions.Update(ctx, q, inst)
		if err != nil {
			return err
		}
		if members == nil {
			return nil
		}
		_, err = s.members.ReconcileTx(ctx, q, id, members)
		return err
	})
	if err != nil {
		discardFile(s.files, inst.LogoURL, "institution update rolled back")
		return model.Institution{}, err
	}

	if inst.LogoURL != nil && previous != nil && *previous != *inst.LogoURL {
		discardFile(s.files, previous, "institution logo replaced")
	}

	return s.reload(ctx, id)
}

func (s *InstitutionService) Delete(ctx context.Context, id string) error {
	logoURL, err := s.institutions.Delete(ctx, id)
	if err != nil {
		return err
	}
	discardFile(s.files, logoURL, "institution deleted")
	return nil
}

func (s *InstitutionService) Members(ctx context.Context, id string) ([]model.Member, error) {
	return s.members.Current(ctx, id)
}

// ReconcileMembers converges only the member list of an institution.
func (s *InstitutionService) ReconcileMembers(ctx context.Context, id string, items []reconcile.Item[model.MemberFields]) (reconcile.Result[model.Member], error) {
	cleanMembers(items)
	return s.members.Reconcile(ctx, id, items)
}

func (s *InstitutionService) reload(ctx context.Context, id string) (model.Institution, error) {
	inst, err := s.institutions.FindByID(ctx, id)
	if err != nil {
		return model.Institution{}, fmt.Errorf("reload institution: %w", err)
	}
	return inst, nil
}
