package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"village-portal/internal/model"
)

// SessionVerifier is the part of the session manager the HTTP layer needs.
type SessionVerifier interface {
	VerifyAccess(accessToken string) (model.ActorClaims, error)
	RequireRole(claims model.ActorClaims, roles ...string) error
	RequireLiveSession(ctx context.Context, claims model.ActorClaims) error
}

type contextKey string

const actorClaimsContextKey contextKey = "actor_claims"

type AuthMiddleware struct {
	sessions SessionVerifier
}

func NewAuthMiddleware(sessions SessionVerifier) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// RequireAuth verifies the bearer access token and stores its claims on the
// request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
			writeAuthError(w, model.ErrMissingToken)
			return
		}

		claims, err := m.sessions.VerifyAccess(strings.TrimSpace(header[7:]))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		noteActor(r.Context(), claims.ActorID, claims.Role)
		ctx := context.WithValue(r.Context(), actorClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeAuthError(w, model.ErrMissingToken)
				return
			}

			if err := m.sessions.RequireRole(claims, allowedRoles...); err != nil {
				writeAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireLiveSession rejects tokens whose session was ended by logout or a
// later login. It only guards mutating methods.
func (m *AuthMiddleware) RequireLiveSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeAuthError(w, model.ErrMissingToken)
			return
		}

		if err := m.sessions.RequireLiveSession(r.Context(), claims); err != nil {
			writeAuthError(w, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func ClaimsFromContext(ctx context.Context) (model.ActorClaims, bool) {
	claims, ok := ctx.Value(actorClaimsContextKey).(model.ActorClaims)
	return claims, ok
}

// WithClaims returns ctx carrying claims, as RequireAuth would.
func WithClaims(ctx context.Context, claims model.ActorClaims) context.Context {
	return context.WithValue(ctx, actorClaimsContextKey, claims)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusForbidden
	body := model.APIError{Code: "FORBIDDEN", Message: "Access denied"}

	switch {
	case errors.Is(err, model.ErrMissingToken):
		status = http.StatusUnauthorized
		body = model.APIError{Code: "MISSING_TOKEN", Message: "Authentication required"}
	case errors.Is(err, model.ErrExpiredToken):
		status = http.StatusUnauthorized
		body = model.APIError{Code: "TOKEN_EXPIRED", Message: "Token has expired"}
	case errors.Is(err, model.ErrInvalidToken):
		body = model.APIError{Code: "INVALID_TOKEN", Message: "Invalid token"}
	case errors.Is(err, model.ErrForbidden):
	default:
		slog.Error("session check failed", "error", err)
		status = http.StatusInternalServerError
		body = model.APIError{Code: "INTERNAL_ERROR", Message: "Unexpected server error"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, model.APIResponse{Success: false, Error: &body})
}
