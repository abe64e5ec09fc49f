package handler

import (
	"net/http"

	"village-portal/internal/model"
	"village-portal/internal/service"
)

type LegalProductHandler struct {
	service *service.LegalProductService
	audit   *service.AuditService
	limits  uploadLimits
}

func NewLegalProductHandler(service *service.LegalProductService, audit *service.AuditService, maxUpload int64) *LegalProductHandler {
	return &LegalProductHandler{service: service, audit: audit, limits: uploadLimits{maxBytes: maxUpload}}
}

func (h *LegalProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, products, nil)
}

func (h *LegalProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, product, nil)
}

func (h *LegalProductHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	in := legalProductInput(r)
	document, err := optionalFile(r, "file")
	if err != nil {
		writeError(w, err)
		return
	}
	if document != nil {
		defer document.Close()
	}

	product, err := h.service.Create(r.Context(), claims, in, asReader(document))
	recordAudit(h.audit, r, "legal_product.create", product.ID, map[string]any{"name": in.Name, "issuedOn": in.IssuedOn}, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, product, nil)
}

func (h *LegalProductHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	in := legalProductInput(r)
	document, err := optionalFile(r, "file")
	if err != nil {
		writeError(w, err)
		return
	}
	if document != nil {
		defer document.Close()
	}

	product, err := h.service.Update(r.Context(), id, in, asReader(document))
	recordAudit(h.audit, r, "legal_product.update", id, map[string]any{"name": in.Name, "issuedOn": in.IssuedOn, "fileReplaced": document != nil}, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, product, nil)
}

func (h *LegalProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	err = h.service.Delete(r.Context(), id)
	recordAudit(h.audit, r, "legal_product.delete", id, nil, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func legalProductInput(r *http.Request) model.LegalProductInput {
	name, _ := formValue(r.MultipartForm, "name")
	description, _ := formValue(r.MultipartForm, "description")
	issuedOn, _ := formValue(r.MultipartForm, "issuedOn")
	return model.LegalProductInput{Name: name, Description: description, IssuedOn: issuedOn}
}
