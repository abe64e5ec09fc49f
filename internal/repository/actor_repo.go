package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"village-portal/internal/database"
	"village-portal/internal/model"
)

type actorTable struct {
	name   string
	email  string
	column string
}

// The user table has no email column; it selects an empty string instead.
var actorTables = map[model.ActorKind]actorTable{
	model.ActorKindAdministrator: {name: "administrators", email: "email", column: "email, "},
	model.ActorKindUser:          {name: "users", email: "''", column: ""},
}

func tableFor(kind model.ActorKind) (actorTable, error) {
	t, ok := actorTables[kind]
	if !ok {
		return actorTable{}, fmt.Errorf("%w: unknown actor kind %q", model.ErrInvalidInput, kind)
	}
	return t, nil
}

type ActorRepository struct {
	db *database.DB
}

func NewActorRepository(db *database.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

func (r *ActorRepository) FindByUsername(ctx context.Context, kind model.ActorKind, username string) (model.Actor, error) {
	return r.findOne(ctx, kind, "lower(username) = lower($1)", strings.TrimSpace(username))
}

func (r *ActorRepository) FindByID(ctx context.Context, kind model.ActorKind, id string) (model.Actor, error) {
	return r.findOne(ctx, kind, "id = $1", id)
}

func (r *ActorRepository) FindByRefreshToken(ctx context.Context, kind model.ActorKind, token string) (model.Actor, error) {
	return r.findOne(ctx, kind, "refresh_token = $1", token)
}

func (r *ActorRepository) findOne(ctx context.Context, kind model.ActorKind, where string, arg any) (model.Actor, error) {
	t, err := tableFor(kind)
	if err != nil {
		return model.Actor{}, err
	}

	query := fmt.Sprintf(
		`SELECT id, name, username, %s, password_hash, role, refresh_token, created_at, updated_at
		 FROM %s WHERE %s`, t.email, t.name, where)

	var (
		a       model.Actor
		refresh sql.NullString
	)
	err = r.db.SQL.QueryRowContext(ctx, query, arg).
		Scan(&a.ID, &a.Name, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &refresh, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Actor{}, model.ErrActorNotFound
	}
	if err != nil {
		return model.Actor{}, fmt.Errorf("find %s: %w", t.name, err)
	}

	a.Kind = kind
	if refresh.Valid {
		token := refresh.String
		a.RefreshToken = &token
	}
	return a, nil
}

func (r *ActorRepository) SetRefreshToken(ctx context.Context, kind model.ActorKind, id string, token string) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}

	res, err := r.db.SQL.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET refresh_token = $2, updated_at = $3 WHERE id = $1`, t.name),
		id, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrActorNotFound
	}
	return nil
}

func (r *ActorRepository) ClearRefreshToken(ctx context.Context, kind model.ActorKind, id string, token string) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	res, err := r.db.SQL.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET refresh_token = NULL, updated_at = $3 WHERE id = $1 AND refresh_token = $2`, t.name),
		id, token, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("clear refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clear refresh token: %w", err)
	}
	return n > 0, nil
}

func (r *ActorRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM administrators WHERE lower(username) = lower($1))
		     OR EXISTS(SELECT 1 FROM users WHERE lower(username) = lower($1))`,
		strings.TrimSpace(username)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username exists: %w", err)
	}
	return exists, nil
}

func (r *ActorRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM administrators WHERE lower(email) = lower($1))`,
		strings.TrimSpace(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return exists, nil
}

func (r *ActorRepository) Create(ctx context.Context, a model.Actor) error {
	t, err := tableFor(a.Kind)
	if err != nil {
		return err
	}

	args := []any{a.ID, a.Name, a.Username}
	placeholders := "$1, $2, $3"
	if a.Kind == model.ActorKindAdministrator {
		args = append(args, a.Email)
		placeholders += ", $4"
	}
	n := len(args)
	args = append(args, a.PasswordHash, a.Role, a.CreatedAt, a.UpdatedAt)
	placeholders += fmt.Sprintf(", $%d, $%d, $%d, $%d", n+1, n+2, n+3, n+4)

	_, err = r.db.SQL.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, name, username, %spassword_hash, role, created_at, updated_at)
		 VALUES (%s)`, t.name, t.column, placeholders),
		args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return model.ErrEmailTaken
			}
			return model.ErrUsernameTaken
		}
		return fmt.Errorf("create %s: %w", t.name, err)
	}
	return nil
}
