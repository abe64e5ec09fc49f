package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"village-portal/internal/middleware"
	"village-portal/internal/model"
	"village-portal/pkg/apierror"
)

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

// idParam reads a UUID path parameter. Malformed ids are rejected here so
// they never reach a query as an invalid uuid literal.
func idParam(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return "", apierror.BadRequest(name+" is required", name)
	}

	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", apierror.New("INVALID_ID", "malformed identifier", name, http.StatusBadRequest)
	}

	return parsed.String(), nil
}

func claimsFromRequest(r *http.Request) (model.ActorClaims, error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return model.ActorClaims{}, model.ErrMissingToken
	}
	return claims, nil
}
