package handler

import (
	"net/http"
	"time"

	"village-portal/internal/model"
	"village-portal/internal/service"
)

const refreshCookieName = "refreshToken"

type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
}

type AuthHandler struct {
	service *service.AuthService
	audit   *service.AuditService
	cookie  CookieConfig
}

func NewAuthHandler(service *service.AuthService, audit *service.AuditService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{service: service, audit: audit, cookie: cookie}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	tokens, err := h.service.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		actor := actorFromRequest(r)
		actor.Name = payload.Username
		h.audit.Log(r.Context(), "auth.login", actor, model.AuditStatusFailure, "", nil, err.Error())
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken, h.service.RefreshTTL())

	actor := actorFromRequest(r)
	actor.ActorID = tokens.Actor.ID
	actor.Name = tokens.Actor.Username
	actor.Role = tokens.Actor.Role
	h.audit.Log(r.Context(), "auth.login", actor, model.AuditStatusSuccess, "", nil, "")

	writeSuccess(w, http.StatusOK, tokens, nil)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	grant, err := h.service.Rotate(r.Context(), refreshCookie(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, grant, nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.service.Revoke(r.Context(), refreshCookie(r))
	h.setRefreshCookie(w, "", -1)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"loggedOut": true}, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.service.Me(r.Context(), claims)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile, nil)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, err := claimsFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.RegisterInput
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if err := model.Validate(payload); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.service.Register(r.Context(), claims, payload)
	recordAudit(h.audit, r, "auth.register", payload.Username, map[string]any{"role": payload.Role}, err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, profile, nil)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	}

	if ttl < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	} else {
		cookie.MaxAge = int(ttl.Seconds())
	}

	http.SetCookie(w, cookie)
}

func refreshCookie(r *http.Request) string {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
