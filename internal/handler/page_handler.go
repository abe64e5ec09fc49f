package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"village-portal/internal/model"
	"village-portal/internal/service"
)

type PageHandler struct {
	service *service.PageService
	audit   *service.AuditService
}

func NewPageHandler(service *service.PageService, audit *service.AuditService) *PageHandler {
	return &PageHandler{service: service, audit: audit}
}

func (h *PageHandler) Get(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, page, nil)
}

func (h *PageHandler) Save(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, err := claimsFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.PageInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	slug := chi.URLParam(r, "slug")
	page, err := h.service.Save(r.Context(), claims, slug, payload)
	recordAudit(h.audit, r, "page.save", slug, map[string]any{"title": payload.Title}, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, page, nil)
}
