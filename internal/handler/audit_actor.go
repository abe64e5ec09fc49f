package handler

import (
	"net/http"

	"village-portal/internal/middleware"
	"village-portal/internal/model"
	"village-portal/internal/service"
)

func actorFromRequest(r *http.Request) model.AuditActor {
	actor := model.AuditActor{IP: middleware.ClientIP(r)}

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return actor
	}

	actor.ActorID = claims.ActorID
	actor.Name = claims.Username
	actor.Role = claims.Role

	return actor
}

// recordAudit logs the outcome of a privileged action.
func recordAudit(audit *service.AuditService, r *http.Request, action string, resource string, details any, err error) {
	status := model.AuditStatusSuccess
	errText := ""
	if err != nil {
		status = model.AuditStatusFailure
		errText = err.Error()
	}

	audit.Log(r.Context(), action, actorFromRequest(r), status, resource, details, errText)
}
