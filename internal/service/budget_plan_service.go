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

type BudgetPlanStore interface {
	List(ctx context.Context) ([]model.BudgetPlan, error)
	FindByID(ctx context.Context, id string) (model.BudgetPlan, error)
	Create(ctx context.Context, p model.BudgetPlan) error
	Update(ctx context.Context, q database.DBTX, p model.BudgetPlan) (*string, error)
	Delete(ctx context.Context, id string) (*string, error)
	Report(ctx context.Context, id string) (model.BudgetPlanReport, error)
}

type BudgetPlanService struct {
	plans BudgetPlanStore
	tx    reconcile.TxRunner
	files FileStore
	now   func() time.Time
}

func NewBudgetPlanService(plans BudgetPlanStore, tx reconcile.TxRunner, files FileStore) *BudgetPlanService {
	return &BudgetPlanService{plans: plans, tx: tx, files: files, now: time.Now}
}

func (s *BudgetPlanService) List(ctx context.Context) ([]model.BudgetPlan, error) {
	return s.plans.List(ctx)
}

func (s *BudgetPlanService) Get(ctx context.Context, id string) (model.BudgetPlan, error) {
	return s.plans.FindByID(ctx, id)
}

// Report returns the public transparency tree of a plan.
func (s *BudgetPlanService) Report(ctx context.Context, id string) (model.BudgetPlanReport, error) {
	return s.plans.Report(ctx, id)
}

// validate checks the input tags and that the year is not in the future.
func (s *BudgetPlanService) validate(in model.BudgetPlanInput) error {
	if err := model.Validate(in); err != nil {
		return err
	}
	if current := s.now().Year(); in.Year > current {
		return fmt.Errorf("%w: year must be between 1900 and %d", model.ErrInvalidInput, current)
	}
	return nil
}

// Create stores the optional document and inserts the plan. The document is
// removed again when the insert fails.
func (s *BudgetPlanService) Create(ctx context.Context, actor model.ActorClaims, in model.BudgetPlanInput, document io.Reader) (model.BudgetPlan, error) {
	in.Name = util.CleanLine(in.Name)
	if err := s.validate(in); err != nil {
		return model.BudgetPlan{}, err
	}

	now := s.now().UTC()
	plan := model.BudgetPlan{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Year:      in.Year,
		CreatedBy: actor.ActorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if document != nil {
		fileURL, err := s.files.SaveDocument(storage.KindBudgetPlan, document)
		if err != nil {
			return model.BudgetPlan{}, err
		}
		plan.FileURL = &fileURL
	}

	if err := s.plans.Create(ctx, plan); err != nil {
		discardFile(s.files, plan.FileURL, "budget plan insert failed")
		return model.BudgetPlan{}, err
	}

	return plan, nil
}

// Update changes name and year and, when document is non-nil, replaces the
// stored document. The old document is deleted only after the row update
// commits; the new one is deleted if it does not.
func (s *BudgetPlanService) Update(ctx context.Context, id string, in model.BudgetPlanInput, document io.Reader) (model.BudgetPlan, error) {
	in.Name = util.CleanLine(in.Name)
	if err := s.validate(in); err != nil {
		return model.BudgetPlan{}, err
	}

	plan := model.BudgetPlan{ID: id, Name: in.Name, Year: in.Year, UpdatedAt: s.now().UTC()}

	if document != nil {
		fileURL, err := s.files.SaveDocument(storage.KindBudgetPlan, document)
		if err != nil {
			return model.BudgetPlan{}, err
		}
		plan.FileURL = &fileURL
	}

	var previous *string
	err := s.tx.InTx(ctx, func(q database.DBTX) error {
		var updateErr error
		previous, updateErr = s.plans.Update(ctx, q, plan)
		return updateErr
	})
	if err != nil {
		discardFile(s.files, plan.FileURL, "budget plan update rolled back")
		return model.BudgetPlan{}, err
	}

	if plan.FileURL != nil && previous != nil && *previous != *plan.FileURL {
		discardFile(s.files, previous, "budget plan document replaced")
	}

	updated, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return model.BudgetPlan{}, fmt.Errorf("reload budget plan: %w", err)
	}
	return updated, nil
}

// Delete removes the plan with its finance reports and then its document.
func (s *BudgetPlanService) Delete(ctx context.Context, id string) error {
	fileURL, err := s.plans.Delete(ctx, id)
	if err != nil {
		return err
	}
	discardFile(s.files, fileURL, "budget plan deleted")
	return nil
}
