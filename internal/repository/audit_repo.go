package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"village-portal/internal/database"
	"village-portal/internal/model"
)

type AuditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	var actorID sql.NullString
	if entry.Actor.ActorID != "" {
		actorID = sql.NullString{String: entry.Actor.ActorID, Valid: true}
	}

	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO audit_entries
		 (id, occurred_at, action, actor_id, actor_name, actor_role, actor_ip, status, resource, details, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.OccurredAt, entry.Action, actorID, entry.Actor.Name, entry.Actor.Role, entry.Actor.IP,
		entry.Status, entry.Resource, details, entry.Error)
	if err != nil {
		return fmt.Errorf("log audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	where := make([]string, 0)
	args := make([]any, 0)
	argIdx := 1

	if action := strings.TrimSpace(query.Action); action != "" {
		where = append(where, fmt.Sprintf("lower(action) = lower($%d)", argIdx))
		args = append(args, action)
		argIdx++
	}
	if actorID := strings.TrimSpace(query.ActorID); actorID != "" {
		where = append(where, fmt.Sprintf("actor_id = $%d", argIdx))
		args = append(args, actorID)
		argIdx++
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		where = append(where, fmt.Sprintf("lower(status) = lower($%d)", argIdx))
		args = append(args, status)
		argIdx++
	}
	if query.From != nil {
		where = append(where, fmt.Sprintf("occurred_at >= $%d", argIdx))
		args = append(args, *query.From)
		argIdx++
	}
	if query.To != nil {
		where = append(where, fmt.Sprintf("occurred_at <= $%d", argIdx))
		args = append(args, *query.To)
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.SQL.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_entries "+whereClause, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count audit entries: %w", err)
	}
	meta := model.NewMeta(query.Page, query.Limit, total)

	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(
		`SELECT id, occurred_at, action, actor_id, actor_name, actor_role, actor_ip, status, resource, details, error
		 FROM audit_entries %s
		 ORDER BY occurred_at DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, query.Limit, offset)

	rows, err := r.db.SQL.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var (
			e                       model.AuditEntry
			actorID, name, role, ip sql.NullString
			resource, errTxt        sql.NullString
			details                 []byte
		)
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.Action, &actorID, &name, &role, &ip,
			&e.Status, &resource, &details, &errTxt); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan audit entry: %w", err)
		}

		e.OccurredAt = e.OccurredAt.UTC()
		e.Actor = model.AuditActor{ActorID: actorID.String, Name: name.String, Role: role.String, IP: ip.String}
		e.Resource = resource.String
		e.Error = errTxt.String

		if len(details) > 0 {
			var decoded any
			if jsonErr := json.Unmarshal(details, &decoded); jsonErr == nil {
				e.Details = decoded
			}
		}

		entries = append(entries, e)
	}

	return entries, meta, rows.Err()
}
