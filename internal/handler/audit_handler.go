package handler

import (
	"net/http"
	"strings"

	"village-portal/internal/model"
	"village-portal/internal/service"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(service *service.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, err := service.ParseAuditTime("from", query.Get("from"))
	if err != nil {
		writeError(w, err)
		return
	}

	to, err := service.ParseAuditTime("to", query.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}

	entries, meta, err := h.service.Query(r.Context(), model.AuditQuery{
		Action:  strings.TrimSpace(query.Get("action")),
		ActorID: strings.TrimSpace(query.Get("actor_id")),
		Status:  strings.TrimSpace(query.Get("status")),
		From:    from,
		To:      to,
		Page:    parseIntOrDefault(query.Get("page"), 1),
		Limit:   parseIntOrDefault(query.Get("limit"), 50),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entries, &meta)
}
