package handler

import (
	"encoding/json"
	"net/http"

	"village-portal/internal/model"
	"village-portal/internal/reconcile"
	"village-portal/internal/service"
	"village-portal/pkg/apierror"
)

type InstitutionHandler struct {
	service *service.InstitutionService
	audit   *service.AuditService
	limits  uploadLimits
}

func NewInstitutionHandler(service *service.InstitutionService, audit *service.AuditService, maxUpload int64) *InstitutionHandler {
	return &InstitutionHandler{service: service, audit: audit, limits: uploadLimits{maxBytes: maxUpload}}
}

func (h *InstitutionHandler) List(w http.ResponseWriter, r *http.Request) {
	institutions, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, institutions, nil)
}

func (h *InstitutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	inst, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, inst, nil)
}

func (h *InstitutionHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	in := institutionInput(r)
	members, err := formMembers(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if members == nil {
		members = []reconcile.Item[model.MemberFields]{}
	}

	logo, err := optionalFile(r, "logo")
	if err != nil {
		writeError(w, err)
		return
	}
	if logo != nil {
		defer logo.Close()
	}

	inst, err := h.service.Create(r.Context(), claims, in, members, asReader(logo))
	recordAudit(h.audit, r, "institution.create", inst.ID, map[string]any{"name": in.Name, "members": len(members)}, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, inst, nil)
}

// Update applies fields, an optional new logo and, when the members field is
// present, the member list in a single transaction.
func (h *InstitutionHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	in := institutionInput(r)
	members, err := formMembers(r)
	if err != nil {
		writeError(w, err)
		return
	}

	logo, err := optionalFile(r, "logo")
	if err != nil {
		writeError(w, err)
		return
	}
	if logo != nil {
		defer logo.Close()
	}

	inst, err := h.service.Update(r.Context(), id, in, members, asReader(logo))
	recordAudit(h.audit, r, "institution.update", id, map[string]any{
		"name":          in.Name,
		"logoReplaced":  logo != nil,
		"membersSynced": members != nil,
	}, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, inst, nil)
}

func (h *InstitutionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	err = h.service.Delete(r.Context(), id)
	recordAudit(h.audit, r, "institution.delete", id, nil, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func (h *InstitutionHandler) Members(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	members, err := h.service.Members(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, members, nil)
}

func (h *InstitutionHandler) ReconcileMembers(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload itemsPayload[memberPayload]
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.ReconcileMembers(r.Context(), id, memberItems(payload.Items))
	recordAudit(h.audit, r, "members.reconcile", id, changeSummary(len(payload.Items), len(result.Created), len(result.Updated), result.DeletedCount), err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func institutionInput(r *http.Request) model.InstitutionInput {
	value := func(field string) string {
		v, _ := formValue(r.MultipartForm, field)
		return v
	}

	return model.InstitutionInput{
		Name:          value("name"),
		Abbreviation:  value("abbreviation"),
		LegalBasis:    value("legalBasis"),
		OfficeAddress: value("officeAddress"),
		Profile:       value("profile"),
		VisionMission: value("visionMission"),
		MainDuties:    value("mainDuties"),
	}
}

// formMembers decodes the members form field, a JSON array. It returns nil
// when the field was not sent.
func formMembers(r *http.Request) ([]reconcile.Item[model.MemberFields], error) {
	raw, ok := formValue(r.MultipartForm, "members")
	if !ok {
		return nil, nil
	}
	if raw == "" {
		return []reconcile.Item[model.MemberFields]{}, nil
	}

	var payload []memberPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, apierror.BadRequest("members must be a JSON array", err.Error())
	}

	return memberItems(payload), nil
}
