package handler

import (
	"net/http"

	"village-portal/internal/model"
	"village-portal/internal/service"
)

type DemographicHandler struct {
	service *service.DemographicService
	audit   *service.AuditService
}

func NewDemographicHandler(service *service.DemographicService, audit *service.AuditService) *DemographicHandler {
	return &DemographicHandler{service: service, audit: audit}
}

func (h *DemographicHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	residents, meta, err := h.service.List(r.Context(), model.DemographicQuery{
		Search: query.Get("search"),
		Page:   parseIntOrDefault(query.Get("page"), 1),
		Limit:  parseIntOrDefault(query.Get("limit"), 20),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, residents, &meta)
}

func (h *DemographicHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	resident, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, resident, nil)
}

func (h *DemographicHandler) Options(w http.ResponseWriter, r *http.Request) {
	options, err := h.service.Options(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, options, nil)
}

func (h *DemographicHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, stats, nil)
}

func (h *DemographicHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, err := claimsFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.DemographicInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	resident, err := h.service.Create(r.Context(), claims, payload)
	recordAudit(h.audit, r, "demographic.create", resident.ID, nil, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, resident, nil)
}

func (h *DemographicHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.DemographicInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	resident, err := h.service.Update(r.Context(), id, payload)
	recordAudit(h.audit, r, "demographic.update", id, map[string]any{"activeStatus": payload.ActiveStatus}, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, resident, nil)
}

func (h *DemographicHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	err = h.service.Delete(r.Context(), id)
	recordAudit(h.audit, r, "demographic.delete", id, nil, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}
