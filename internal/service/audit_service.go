package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"village-portal/internal/model"
	"village-portal/pkg/apierror"
)

const auditWriteTimeout = 3 * time.Second

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}

type AuditService struct {
	store AuditStore
	now   func() time.Time
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store, now: time.Now}
}

// Log records one privileged action. It outlives the request context and
// never fails the caller; write errors are logged.
func (s *AuditService) Log(ctx context.Context, action string, actor model.AuditActor, status string, resource string, details any, errText string) {
	if s == nil {
		return
	}

	entry := model.AuditEntry{
		ID:         uuid.NewString(),
		Action:     action,
		OccurredAt: s.now().UTC(),
		Actor:      actor,
		Status:     status,
		Resource:   resource,
		Details:    details,
		Error:      errText,
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := s.store.Log(writeCtx, entry); err != nil {
		slog.Warn("failed to write audit entry", "action", action, "actor_id", actor.ActorID, "error", err)
	}
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	query.Action = strings.ToLower(strings.TrimSpace(query.Action))
	query.Status = strings.ToLower(strings.TrimSpace(query.Status))
	query.ActorID = strings.TrimSpace(query.ActorID)

	if query.From != nil && query.To != nil && query.From.After(*query.To) {
		return nil, model.Meta{}, apierror.BadRequest("'from' must not be after 'to'", "")
	}

	return s.store.Query(ctx, query)
}

// ParseAuditTime parses an optional RFC 3339 query value.
func ParseAuditTime(name string, raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	value, err := time.Parse(time.RFC3339Nano, trimmed)
	if err != nil {
		value, err = time.Parse(time.RFC3339, trimmed)
	}
	if err != nil {
		return nil, apierror.BadRequest("invalid '"+name+"' datetime format", raw)
	}

	value = value.UTC()
	return &value, nil
}
