package handler

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"village-portal/internal/model"
	"village-portal/internal/reconcile"
)

// itemsPayload is the body of every child-collection PUT.
type itemsPayload[T any] struct {
	Items []T `json:"items"`
}

type namedItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type budgetItemPayload struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Budget      json.RawMessage `json:"budget"`
	Realization json.RawMessage `json:"realization"`
}

type memberPayload struct {
	ID            string `json:"id"`
	DemographicID string `json:"demographicId"`
	Position      string `json:"position"`
}

// canonicalID writes a submitted UUID the way idParam does. Values that do not
// parse are kept as sent and fail later as unknown references.
func canonicalID(raw string) string {
	raw = strings.TrimSpace(raw)
	if parsed, err := uuid.Parse(raw); err == nil {
		return parsed.String()
	}
	return raw
}

func categoryItems(in []namedItem) []reconcile.Item[model.CategoryFields] {
	out := make([]reconcile.Item[model.CategoryFields], 0, len(in))
	for _, item := range in {
		out = append(out, reconcile.Item[model.CategoryFields]{
			ID:     canonicalID(item.ID),
			Fields: model.CategoryFields{Name: item.Name},
		})
	}
	return out
}

func subcategoryItems(in []namedItem) []reconcile.Item[model.SubcategoryFields] {
	out := make([]reconcile.Item[model.SubcategoryFields], 0, len(in))
	for _, item := range in {
		out = append(out, reconcile.Item[model.SubcategoryFields]{
			ID:     canonicalID(item.ID),
			Fields: model.SubcategoryFields{Name: item.Name},
		})
	}
	return out
}

// budgetItems converts submitted items, accepting amounts as JSON numbers or
// numeric strings. A bad amount is reported against its item.
func budgetItems(in []budgetItemPayload) ([]reconcile.Item[model.BudgetItemFields], error) {
	out := make([]reconcile.Item[model.BudgetItemFields], 0, len(in))
	for i, item := range in {
		id := canonicalID(item.ID)

		budget, err := parseAmount(item.Budget)
		if err != nil {
			return nil, &reconcile.ValidationError{Index: i, ID: id, Field: "budget", Message: err.Error()}
		}
		realization, err := parseAmount(item.Realization)
		if err != nil {
			return nil, &reconcile.ValidationError{Index: i, ID: id, Field: "realization", Message: err.Error()}
		}

		out = append(out, reconcile.Item[model.BudgetItemFields]{
			ID: id,
			Fields: model.BudgetItemFields{
				Name:        item.Name,
				Budget:      budget,
				Realization: realization,
			},
		})
	}
	return out, nil
}

func memberItems(in []memberPayload) []reconcile.Item[model.MemberFields] {
	out := make([]reconcile.Item[model.MemberFields], 0, len(in))
	for _, item := range in {
		out = append(out, reconcile.Item[model.MemberFields]{
			ID: canonicalID(item.ID),
			Fields: model.MemberFields{
				DemographicID: canonicalID(item.DemographicID),
				Position:      item.Position,
			},
		})
	}
	return out
}

type amountError string

func (e amountError) Error() string { return string(e) }

const (
	errAmountMissing  amountError = "is required"
	errAmountNotFloat amountError = "must be a number"
)

func parseAmount(raw json.RawMessage) (float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, errAmountMissing
	}

	text := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, errAmountNotFloat
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return 0, errAmountMissing
		}
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errAmountNotFloat
	}
	return value, nil
}
