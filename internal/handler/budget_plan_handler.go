package handler

import (
	"net/http"
	"strconv"

	"village-portal/internal/model"
	"village-portal/internal/service"
	"village-portal/pkg/apierror"
)

type BudgetPlanHandler struct {
	service *service.BudgetPlanService
	audit   *service.AuditService
	limits  uploadLimits
}

func NewBudgetPlanHandler(service *service.BudgetPlanService, audit *service.AuditService, maxUpload int64) *BudgetPlanHandler {
	return &BudgetPlanHandler{service: service, audit: audit, limits: uploadLimits{maxBytes: maxUpload}}
}

func (h *BudgetPlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, plans, nil)
}

func (h *BudgetPlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	plan, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, plan, nil)
}

// Report serves the nested transparency tree of one plan.
func (h *BudgetPlanHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.service.Report(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, report, nil)
}

func (h *BudgetPlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cleanup, err := h.limits.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		writeError(w, err)
		return
	}

	in, err := budgetPlanInput(r)
	if err != nil {
		writeError(w, err)
		return
	}

	document, err := optionalFile(r, "file")
	if err != nil {
		writeError(w, err)
		return
	}
	if document != nil {
		defer document.Close()
	}

	plan, err := h.service.Create(r.Context(), claims, in, asReader(document))
	recordAudit(h.audit, r, "budget_plan.create", plan.ID, map[string]any{"name": in.Name, "year": in.Year}, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, plan, nil)
}

func (h *BudgetPlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	cleanup, err := h.limits.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		writeError(w, err)
		return
	}

	in, err := budgetPlanInput(r)
	if err != nil {
		writeError(w, err)
		return
	}

	document, err := optionalFile(r, "file")
	if err != nil {
		writeError(w, err)
		return
	}
	if document != nil {
		defer document.Close()
	}

	plan, err := h.service.Update(r.Context(), id, in, asReader(document))
	recordAudit(h.audit, r, "budget_plan.update", id, map[string]any{"name": in.Name, "year": in.Year, "fileReplaced": document != nil}, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, plan, nil)
}

func (h *BudgetPlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	err = h.service.Delete(r.Context(), id)
	recordAudit(h.audit, r, "budget_plan.delete", id, nil, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func budgetPlanInput(r *http.Request) (model.BudgetPlanInput, error) {
	name, _ := formValue(r.MultipartForm, "name")
	rawYear, _ := formValue(r.MultipartForm, "year")

	in := model.BudgetPlanInput{Name: name}
	if rawYear != "" {
		year, err := strconv.Atoi(rawYear)
		if err != nil {
			return model.BudgetPlanInput{}, apierror.BadRequest("year must be a whole number", "year")
		}
		in.Year = year
	}

	return in, nil
}
