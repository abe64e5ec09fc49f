package model

import "time"

const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
)

type AuditActor struct {
	ActorID string `json:"actorId,omitempty"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	IP      string `json:"ip,omitempty"`
}

type AuditEntry struct {
	ID         string     `json:"id"`
	Action     string     `json:"action"`
	OccurredAt time.Time  `json:"occurredAt"`
	Actor      AuditActor `json:"actor"`
	Status     string     `json:"status"`
	Resource   string     `json:"resource,omitempty"`
	Details    any        `json:"details,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type AuditQuery struct {
	Action  string
	ActorID string
	Status  string
	From    *time.Time
	To      *time.Time
	Page    int
	Limit   int
}
