// Package reconcile converges the persisted children of one parent row to a
// submitted list: identified items are updated, unidentified items are
// created, and children missing from the list are deleted, all in one
// transaction.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"village-portal/internal/database"
	"village-portal/internal/metrics"
	"village-portal/internal/model"
)

// Item is one submitted child. An empty ID asks for a new child.
type Item[F any] struct {
	ID     string
	Fields F
}

type Result[C any] struct {
	Items        []C   `json:"items"`
	Created      []C   `json:"created"`
	Updated      []C   `json:"updated"`
	DeletedCount int64 `json:"deletedCount"`
}

// Collection is the storage of one parent/child pair. Every method runs on
// the transaction handed in as q.
type Collection[F any, C any] interface {
	Name() string
	// LockParent locks the parent row and returns ErrParentNotFound when it
	// does not exist.
	LockParent(ctx context.Context, q database.DBTX, parentID string) error
	List(ctx context.Context, q database.DBTX, parentID string) ([]C, error)
	ChildID(child C) string
	Update(ctx context.Context, q database.DBTX, parentID string, id string, fields F) (C, error)
	// Create inserts a child; seq is its position among siblings at creation.
	Create(ctx context.Context, q database.DBTX, parentID string, seq int, fields F) (C, error)
	Delete(ctx context.Context, q database.DBTX, parentID string, ids []string) (int64, error)
}

// Aggregator is implemented by collections whose parent stores totals over
// its children.
type Aggregator[C any] interface {
	Aggregate(ctx context.Context, q database.DBTX, parentID string, children []C) error
}

// Checker is implemented by collections with rules that need the store, such
// as a reference to another table. It returns a *ValidationError on failure.
type Checker[F any] interface {
	Check(ctx context.Context, q database.DBTX, index int, fields F) error
}

type TxRunner interface {
	InTx(ctx context.Context, fn func(q database.DBTX) error) error
}

type Reconciler[F any, C any] struct {
	tx   TxRunner
	coll Collection[F, C]
}

func New[F any, C any](tx TxRunner, coll Collection[F, C]) *Reconciler[F, C] {
	return &Reconciler[F, C]{tx: tx, coll: coll}
}

// Reconcile runs the whole convergence in its own transaction.
func (r *Reconciler[F, C]) Reconcile(ctx context.Context, parentID string, items []Item[F]) (Result[C], error) {
	if err := Validate(items); err != nil {
		r.observe(Result[C]{}, err)
		return Result[C]{}, err
	}

	var res Result[C]
	err := r.tx.InTx(ctx, func(q database.DBTX) error {
		var applyErr error
		res, applyErr = r.apply(ctx, q, parentID, items)
		return applyErr
	})
	if err != nil {
		r.observe(Result[C]{}, err)
		return Result[C]{}, storageErr("reconcile "+r.coll.Name(), err)
	}

	r.observe(res, nil)
	return res, nil
}

// ReconcileTx joins a transaction the caller already holds, for updates that
// change the parent and its children together.
func (r *Reconciler[F, C]) ReconcileTx(ctx context.Context, q database.DBTX, parentID string, items []Item[F]) (Result[C], error) {
	if err := Validate(items); err != nil {
		r.observe(Result[C]{}, err)
		return Result[C]{}, err
	}

	res, err := r.apply(ctx, q, parentID, items)
	r.observe(res, err)
	return res, err
}

// Current returns the children of parentID as one consistent read, or
// ErrParentNotFound.
func (r *Reconciler[F, C]) Current(ctx context.Context, parentID string) ([]C, error) {
	var children []C
	err := r.tx.InTx(ctx, func(q database.DBTX) error {
		if err := r.coll.LockParent(ctx, q, parentID); err != nil {
			return err
		}
		var listErr error
		children, listErr = r.coll.List(ctx, q, parentID)
		return listErr
	})
	if err != nil {
		return nil, storageErr("list "+r.coll.Name(), err)
	}
	return children, nil
}

// Validate checks field tags and duplicate ids without touching the store.
func Validate[F any](items []Item[F]) error {
	seen := make(map[string]int, len(items))
	for i, item := range items {
		if item.ID != "" {
			if first, dup := seen[item.ID]; dup {
				return &ValidationError{
					Index:   i,
					ID:      item.ID,
					Field:   "id",
					Message: fmt.Sprintf("duplicates item %d", first),
				}
			}
			seen[item.ID] = i
		}

		if err := model.Validate(item.Fields); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
				fe := fieldErrs[0]
				return &ValidationError{
					Index:   i,
					ID:      item.ID,
					Field:   fe.Field(),
					Message: describeFieldError(fe),
				}
			}
			return &ValidationError{Index: i, ID: item.ID, Message: err.Error()}
		}
	}
	return nil
}

func (r *Reconciler[F, C]) apply(ctx context.Context, q database.DBTX, parentID string, items []Item[F]) (Result[C], error) {
	name := r.coll.Name()

	if err := r.coll.LockParent(ctx, q, parentID); err != nil {
		return Result[C]{}, storageErr("lock "+name+" parent", err)
	}

	existing, err := r.coll.List(ctx, q, parentID)
	if err != nil {
		return Result[C]{}, storageErr("list "+name, err)
	}

	existingIDs := make(map[string]struct{}, len(existing))
	for _, child := range existing {
		existingIDs[r.coll.ChildID(child)] = struct{}{}
	}

	// Reject unknown references before the first write.
	for i, item := range items {
		if item.ID == "" {
			continue
		}
		if _, ok := existingIDs[item.ID]; !ok {
			return Result[C]{}, &UnknownChildError{Index: i, ID: item.ID}
		}
	}

	if checker, ok := r.coll.(Checker[F]); ok {
		for i, item := range items {
			if err := checker.Check(ctx, q, i, item.Fields); err != nil {
				return Result[C]{}, storageErr("check "+name, err)
			}
		}
	}

	res := Result[C]{
		Items:   make([]C, 0, len(items)),
		Created: make([]C, 0),
		Updated: make([]C, 0),
	}
	keep := make(map[string]struct{}, len(items))

	for _, item := range items {
		if item.ID != "" {
			child, err := r.coll.Update(ctx, q, parentID, item.ID, item.Fields)
			if err != nil {
				return Result[C]{}, storageErr("update "+name, err)
			}
			keep[item.ID] = struct{}{}
			res.Items = append(res.Items, child)
			res.Updated = append(res.Updated, child)
			continue
		}

		seq := len(existing) + len(res.Created) + 1
		child, err := r.coll.Create(ctx, q, parentID, seq, item.Fields)
		if err != nil {
			return Result[C]{}, storageErr("create "+name, err)
		}
		res.Items = append(res.Items, child)
		res.Created = append(res.Created, child)
	}

	toDelete := make([]string, 0)
	for _, child := range existing {
		id := r.coll.ChildID(child)
		if _, ok := keep[id]; !ok {
			toDelete = append(toDelete, id)
		}
	}

	if len(toDelete) > 0 {
		deleted, err := r.coll.Delete(ctx, q, parentID, toDelete)
		if err != nil {
			return Result[C]{}, storageErr("delete "+name, err)
		}
		res.DeletedCount = deleted
	}

	if agg, ok := r.coll.(Aggregator[C]); ok {
		if err := agg.Aggregate(ctx, q, parentID, res.Items); err != nil {
			return Result[C]{}, storageErr("aggregate "+name, err)
		}
	}

	return res, nil
}

func (r *Reconciler[F, C]) observe(res Result[C], err error) {
	name := r.coll.Name()
	switch {
	case err == nil:
		metrics.ReconcileRun(name, "success")
		metrics.ReconcileChanges(name, len(res.Created), len(res.Updated), res.DeletedCount)
		slog.Debug("collection reconciled",
			"collection", name,
			"created", len(res.Created),
			"updated", len(res.Updated),
			"deleted", res.DeletedCount,
		)
	case errors.Is(err, ErrValidation):
		metrics.ReconcileRun(name, "invalid")
	case errors.Is(err, ErrUnknownChildReference):
		metrics.ReconcileRun(name, "unknown_child")
	case errors.Is(err, ErrParentNotFound):
		metrics.ReconcileRun(name, "parent_not_found")
	default:
		metrics.ReconcileRun(name, "error")
	}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "uuid":
		return "must be a valid identifier"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
