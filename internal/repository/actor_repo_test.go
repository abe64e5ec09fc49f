package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"village-portal/internal/database"
	"village-portal/internal/model"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return database.FromSQL(sqlDB), mock
}

var actorColumns = []string{"id", "name", "username", "email", "password_hash", "role", "refresh_token", "created_at", "updated_at"}

func TestActorRepository_FindByUsername(t *testing.T) {
	t.Run("administrator row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewActorRepository(db)
		now := time.Now().UTC()

		mock.ExpectQuery(regexp.QuoteMeta("FROM administrators WHERE lower(username) = lower($1)")).
			WithArgs("admin1").
			WillReturnRows(sqlmock.NewRows(actorColumns).
				AddRow("a-1", "Admin", "admin1", "admin@desa.id", "hash", "administrator", "tok", now, now))

		actor, err := repo.FindByUsername(context.Background(), model.ActorKindAdministrator, " admin1 ")
		require.NoError(t, err)
		assert.Equal(t, model.ActorKindAdministrator, actor.Kind)
		assert.Equal(t, "admin@desa.id", actor.Email)
		require.NotNil(t, actor.RefreshToken)
		assert.Equal(t, "tok", *actor.RefreshToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("user table selects an empty email", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewActorRepository(db)
		now := time.Now().UTC()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, username, '', password_hash")).
			WithArgs("warga").
			WillReturnRows(sqlmock.NewRows(actorColumns).
				AddRow("u-1", "Warga", "warga", "", "hash", "user", nil, now, now))

		actor, err := repo.FindByUsername(context.Background(), model.ActorKindUser, "warga")
		require.NoError(t, err)
		assert.Equal(t, model.ActorKindUser, actor.Kind)
		assert.Nil(t, actor.RefreshToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows maps to actor not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewActorRepository(db)

		mock.ExpectQuery("FROM users").WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByUsername(context.Background(), model.ActorKindUser, "ghost")
		assert.ErrorIs(t, err, model.ErrActorNotFound)
	})
}

func TestActorRepository_RefreshToken(t *testing.T) {
	t.Run("set overwrites the column", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewActorRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE administrators SET refresh_token = $2")).
			WithArgs("a-1", "new-token", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SetRefreshToken(context.Background(), model.ActorKindAdministrator, "a-1", "new-token"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set on a missing actor", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewActorRepository(db)

		mock.ExpectExec("UPDATE users SET refresh_token").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetRefreshToken(context.Background(), model.ActorKindUser, "u-9", "t")
		assert.ErrorIs(t, err, model.ErrActorNotFound)
	})

	t.Run("clear only matches the presented token", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewActorRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("SET refresh_token = NULL, updated_at = $3 WHERE id = $1 AND refresh_token = $2")).
			WithArgs("u-1", "old-token", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		cleared, err := repo.ClearRefreshToken(context.Background(), model.ActorKindUser, "u-1", "old-token")
		require.NoError(t, err)
		assert.False(t, cleared)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestActorRepository_Create(t *testing.T) {
	now := time.Now().UTC()

	t.Run("administrator insert carries email", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewActorRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO administrators (id, name, username, email, password_hash, role, created_at, updated_at)")).
			WithArgs("a-1", "Admin", "admin1", "admin@desa.id", "hash", "administrator", now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(context.Background(), model.Actor{
			ID: "a-1", Kind: model.ActorKindAdministrator, Name: "Admin", Username: "admin1",
			Email: "admin@desa.id", PasswordHash: "hash", Role: "administrator", CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("user insert has no email column", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewActorRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (id, name, username, password_hash, role, created_at, updated_at)")).
			WithArgs("u-1", "Warga", "warga", "hash", "user", now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(context.Background(), model.Actor{
			ID: "u-1", Kind: model.ActorKindUser, Name: "Warga", Username: "warga",
			PasswordHash: "hash", Role: "user", CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violations map to domain errors", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewActorRepository(db)

		mock.ExpectExec("INSERT INTO administrators").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_administrators_email"})
		mock.ExpectExec("INSERT INTO administrators").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_administrators_username"})

		actor := model.Actor{ID: "a-1", Kind: model.ActorKindAdministrator, Username: "x", Email: "x@y.z", CreatedAt: now, UpdatedAt: now}
		assert.ErrorIs(t, repo.Create(context.Background(), actor), model.ErrEmailTaken)
		assert.ErrorIs(t, repo.Create(context.Background(), actor), model.ErrUsernameTaken)
	})
}
