package handler

import (
	"net/http"

	"village-portal/internal/model"
	"village-portal/internal/service"
)

type FinanceHandler struct {
	service *service.FinanceService
	audit   *service.AuditService
}

func NewFinanceHandler(service *service.FinanceService, audit *service.AuditService) *FinanceHandler {
	return &FinanceHandler{service: service, audit: audit}
}

func (h *FinanceHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	planID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	reports, err := h.service.ListReports(r.Context(), planID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, reports, nil)
}

func (h *FinanceHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.service.GetReport(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, report, nil)
}

func (h *FinanceHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, err := claimsFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.FinanceReportInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	report, err := h.service.CreateReport(r.Context(), claims, payload)
	recordAudit(h.audit, r, "finance_report.create", report.ID, payload, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, report, nil)
}

func (h *FinanceHandler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.FinanceReportInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	report, err := h.service.UpdateReport(r.Context(), id, payload)
	recordAudit(h.audit, r, "finance_report.update", id, payload, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, report, nil)
}

func (h *FinanceHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	err = h.service.DeleteReport(r.Context(), id)
	recordAudit(h.audit, r, "finance_report.delete", id, nil, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func (h *FinanceHandler) Categories(w http.ResponseWriter, r *http.Request) {
	reportID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	categories, err := h.service.Categories(r.Context(), reportID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, categories, nil)
}

func (h *FinanceHandler) ReconcileCategories(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	reportID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload itemsPayload[namedItem]
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.ReconcileCategories(r.Context(), reportID, categoryItems(payload.Items))
	recordAudit(h.audit, r, "categories.reconcile", reportID, changeSummary(len(payload.Items), len(result.Created), len(result.Updated), result.DeletedCount), err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *FinanceHandler) Subcategories(w http.ResponseWriter, r *http.Request) {
	categoryID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	subcategories, err := h.service.Subcategories(r.Context(), categoryID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, subcategories, nil)
}

func (h *FinanceHandler) ReconcileSubcategories(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	categoryID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload itemsPayload[namedItem]
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.ReconcileSubcategories(r.Context(), categoryID, subcategoryItems(payload.Items))
	recordAudit(h.audit, r, "subcategories.reconcile", categoryID, changeSummary(len(payload.Items), len(result.Created), len(result.Updated), result.DeletedCount), err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *FinanceHandler) BudgetItems(w http.ResponseWriter, r *http.Request) {
	subcategoryID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := h.service.BudgetItems(r.Context(), subcategoryID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, nil)
}

func (h *FinanceHandler) ReconcileBudgetItems(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	subcategoryID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload itemsPayload[budgetItemPayload]
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	items, err := budgetItems(payload.Items)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.ReconcileBudgetItems(r.Context(), subcategoryID, items)
	recordAudit(h.audit, r, "budget_items.reconcile", subcategoryID, changeSummary(len(items), len(result.Created), len(result.Updated), result.DeletedCount), err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func changeSummary(submitted int, created int, updated int, deleted int64) map[string]any {
	return map[string]any{
		"submitted": submitted,
		"created":   created,
		"updated":   updated,
		"deleted":   deleted,
	}
}
