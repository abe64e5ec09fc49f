package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"village-portal/internal/model"
	"village-portal/internal/repository/repofake"
)

var _ ActorStore = (*repofake.ActorStore)(nil)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestAuthService(t *testing.T) (*AuthService, *repofake.ActorStore, *testClock) {
	t.Helper()

	store := repofake.NewActorStore()
	svc, err := NewAuthService(store, SessionConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	})
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	svc.now = clock.Now

	return svc, store, clock
}

func seedActor(t *testing.T, store *repofake.ActorStore, kind model.ActorKind, id string, username string, role string, password string) model.Actor {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	actor := model.Actor{
		ID:           id,
		Kind:         kind,
		Name:         "Actor " + username,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	store.Put(actor)
	return actor
}

func storedToken(t *testing.T, store *repofake.ActorStore, kind model.ActorKind, id string) *string {
	t.Helper()
	actor, ok := store.Get(kind, id)
	require.True(t, ok)
	return actor.RefreshToken
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Run("stores exactly one fresh refresh token per login", func(t *testing.T) {
		svc, store, clock := newTestAuthService(t)
		seedActor(t, store, model.ActorKindAdministrator, "a-1", "admin1", model.RoleAdministrator, "s3cret-pass")

		first, err := svc.Authenticate(context.Background(), "admin1", "s3cret-pass")
		require.NoError(t, err)
		assert.Equal(t, 1, store.Writes["a-1"])
		require.NotNil(t, storedToken(t, store, model.ActorKindAdministrator, "a-1"))
		assert.Equal(t, first.RefreshToken, *storedToken(t, store, model.ActorKindAdministrator, "a-1"))

		clock.Advance(time.Second)
		second, err := svc.Authenticate(context.Background(), "admin1", "s3cret-pass")
		require.NoError(t, err)
		assert.Equal(t, 2, store.Writes["a-1"])
		assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
		assert.Equal(t, second.RefreshToken, *storedToken(t, store, model.ActorKindAdministrator, "a-1"))
		assert.Equal(t, "Bearer", second.TokenType)
		assert.Equal(t, int64(900), second.ExpiresIn)
		assert.Equal(t, "admin1", second.Actor.Username)
	})

	t.Run("tokens issued within the same second still differ", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		seedActor(t, store, model.ActorKindUser, "u-1", "warga", model.RoleUser, "pass-word")

		first, err := svc.Authenticate(context.Background(), "warga", "pass-word")
		require.NoError(t, err)
		second, err := svc.Authenticate(context.Background(), "warga", "pass-word")
		require.NoError(t, err)

		assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
		assert.NotEqual(t, first.AccessToken, second.AccessToken)
	})

	t.Run("wrong password and unknown username fail identically", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		seedActor(t, store, model.ActorKindAdministrator, "a-1", "admin1", model.RoleAdministrator, "s3cret-pass")

		_, errWrongPassword := svc.Authenticate(context.Background(), "admin1", "nope")
		_, errUnknownUser := svc.Authenticate(context.Background(), "ghost", "nope")

		assert.ErrorIs(t, errWrongPassword, model.ErrInvalidCredentials)
		assert.ErrorIs(t, errUnknownUser, model.ErrInvalidCredentials)
		assert.Equal(t, errWrongPassword.Error(), errUnknownUser.Error())
		assert.Nil(t, storedToken(t, store, model.ActorKindAdministrator, "a-1"))
	})

	t.Run("administrator table wins when login names collide", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		seedActor(t, store, model.ActorKindAdministrator, "a-1", "shared", model.RoleAdministrator, "admin-pass")
		seedActor(t, store, model.ActorKindUser, "u-1", "shared", model.RoleUser, "user-pass")

		pair, err := svc.Authenticate(context.Background(), "shared", "admin-pass")
		require.NoError(t, err)
		assert.Equal(t, model.ActorKindAdministrator, pair.Actor.Kind)

		_, err = svc.Authenticate(context.Background(), "shared", "user-pass")
		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	})

	t.Run("store failure is not reported as bad credentials", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		store.Err = errors.New("connection refused")

		_, err := svc.Authenticate(context.Background(), "admin1", "whatever")
		require.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrInvalidCredentials)
	})
}

func TestAuthService_Rotate(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)
		_, err := svc.Rotate(context.Background(), "")
		assert.ErrorIs(t, err, model.ErrMissingToken)
	})

	t.Run("issues a new access token bound to the session", func(t *testing.T) {
		svc, store, clock := newTestAuthService(t)
		seedActor(t, store, model.ActorKindUser, "u-1", "warga", model.RoleUser, "pass-word")

		pair, err := svc.Authenticate(context.Background(), "warga", "pass-word")
		require.NoError(t, err)

		clock.Advance(5 * time.Minute)
		grant, err := svc.Rotate(context.Background(), pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, pair.AccessToken, grant.AccessToken)

		first, err := svc.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
		second, err := svc.VerifyAccess(grant.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, first.SessionID, second.SessionID)
		assert.Equal(t, "u-1", second.ActorID)

		assert.Equal(t, pair.RefreshToken, *storedToken(t, store, model.ActorKindUser, "u-1"))
		assert.Equal(t, 1, store.Writes["u-1"])
	})

	t.Run("superseded token is rejected after a new login", func(t *testing.T) {
		svc, store, clock := newTestAuthService(t)
		seedActor(t, store, model.ActorKindUser, "u-1", "warga", model.RoleUser, "pass-word")

		old, err := svc.Authenticate(context.Background(), "warga", "pass-word")
		require.NoError(t, err)
		clock.Advance(time.Minute)
		_, err = svc.Authenticate(context.Background(), "warga", "pass-word")
		require.NoError(t, err)

		_, err = svc.Rotate(context.Background(), old.RefreshToken)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("well formed token of a logged out session is rejected", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		seedActor(t, store, model.ActorKindAdministrator, "a-1", "admin1", model.RoleAdministrator, "s3cret-pass")

		pair, err := svc.Authenticate(context.Background(), "admin1", "s3cret-pass")
		require.NoError(t, err)
		require.NoError(t, svc.Revoke(context.Background(), pair.RefreshToken))

		_, err = svc.Rotate(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("expired token fails and clears the stored value", func(t *testing.T) {
		svc, store, clock := newTestAuthService(t)
		seedActor(t, store, model.ActorKindAdministrator, "a-1", "admin1", model.RoleAdministrator, "s3cret-pass")

		pair, err := svc.Authenticate(context.Background(), "admin1", "s3cret-pass")
		require.NoError(t, err)

		clock.Advance(25 * time.Hour)
		_, err = svc.Rotate(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, model.ErrExpiredToken)
		assert.Nil(t, storedToken(t, store, model.ActorKindAdministrator, "a-1"))

		_, err = svc.Rotate(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("stored garbage is invalid", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		actor := seedActor(t, store, model.ActorKindUser, "u-1", "warga", model.RoleUser, "pass-word")
		garbage := "not-a-jwt"
		actor.RefreshToken = &garbage
		store.Put(actor)

		_, err := svc.Rotate(context.Background(), garbage)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("access token is not accepted as refresh token", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		actor := seedActor(t, store, model.ActorKindUser, "u-1", "warga", model.RoleUser, "pass-word")

		pair, err := svc.Authenticate(context.Background(), "warga", "pass-word")
		require.NoError(t, err)
		actor.RefreshToken = &pair.AccessToken
		store.Put(actor)

		_, err = svc.Rotate(context.Background(), pair.AccessToken)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})
}

func TestAuthService_Revoke(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		seedActor(t, store, model.ActorKindUser, "u-1", "warga", model.RoleUser, "pass-word")

		pair, err := svc.Authenticate(context.Background(), "warga", "pass-word")
		require.NoError(t, err)

		require.NoError(t, svc.Revoke(context.Background(), pair.RefreshToken))
		assert.Nil(t, storedToken(t, store, model.ActorKindUser, "u-1"))
		require.NoError(t, svc.Revoke(context.Background(), pair.RefreshToken))
		require.NoError(t, svc.Revoke(context.Background(), ""))
	})

	t.Run("old token does not end the newer session", func(t *testing.T) {
		svc, store, clock := newTestAuthService(t)
		seedActor(t, store, model.ActorKindUser, "u-1", "warga", model.RoleUser, "pass-word")

		old, err := svc.Authenticate(context.Background(), "warga", "pass-word")
		require.NoError(t, err)
		clock.Advance(time.Minute)
		current, err := svc.Authenticate(context.Background(), "warga", "pass-word")
		require.NoError(t, err)

		require.NoError(t, svc.Revoke(context.Background(), old.RefreshToken))
		assert.Equal(t, current.RefreshToken, *storedToken(t, store, model.ActorKindUser, "u-1"))
	})

	t.Run("storage failure surfaces", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		store.Err = errors.New("db down")
		assert.Error(t, svc.Revoke(context.Background(), "some-token"))
	})
}

func TestAuthService_VerifyAccess(t *testing.T) {
	svc, store, clock := newTestAuthService(t)
	seedActor(t, store, model.ActorKindAdministrator, "a-1", "admin1", model.RoleSuperAdmin, "s3cret-pass")

	pair, err := svc.Authenticate(context.Background(), "admin1", "s3cret-pass")
	require.NoError(t, err)

	t.Run("valid token yields claims", func(t *testing.T) {
		claims, err := svc.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "a-1", claims.ActorID)
		assert.Equal(t, "admin1", claims.Username)
		assert.Equal(t, "Actor admin1", claims.Name)
		assert.Equal(t, model.RoleSuperAdmin, claims.Role)
		assert.Equal(t, model.ActorKindAdministrator, claims.Kind)
		assert.NotEmpty(t, claims.SessionID)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := svc.VerifyAccess("")
		assert.ErrorIs(t, err, model.ErrMissingToken)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := svc.VerifyAccess(pair.RefreshToken)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("tampered token", func(t *testing.T) {
		_, err := svc.VerifyAccess(pair.AccessToken + "x")
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		clock.Advance(16 * time.Minute)
		defer clock.Advance(-16 * time.Minute)
		_, err := svc.VerifyAccess(pair.AccessToken)
		assert.ErrorIs(t, err, model.ErrExpiredToken)
	})
}

func TestAuthService_RequireRole(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	claims := model.ActorClaims{ActorID: "a-1", Role: model.RoleAdministrator}

	assert.NoError(t, svc.RequireRole(claims, model.RoleAdministrator, model.RoleSuperAdmin))
	assert.ErrorIs(t, svc.RequireRole(claims, model.RoleSuperAdmin), model.ErrForbidden)
	assert.ErrorIs(t, svc.RequireRole(model.ActorClaims{}, model.RoleUser), model.ErrForbidden)
}

func TestAuthService_RequireLiveSession(t *testing.T) {
	t.Run("current session passes", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		seedActor(t, store, model.ActorKindAdministrator, "a-1", "admin1", model.RoleAdministrator, "s3cret-pass")
		pair, err := svc.Authenticate(context.Background(), "admin1", "s3cret-pass")
		require.NoError(t, err)
		claims, err := svc.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)

		assert.NoError(t, svc.RequireLiveSession(context.Background(), claims))
	})

	t.Run("logged out session is refused while the access token is still valid", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		seedActor(t, store, model.ActorKindAdministrator, "a-1", "admin1", model.RoleAdministrator, "s3cret-pass")
		pair, err := svc.Authenticate(context.Background(), "admin1", "s3cret-pass")
		require.NoError(t, err)
		claims, err := svc.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)

		require.NoError(t, svc.Revoke(context.Background(), pair.RefreshToken))
		assert.ErrorIs(t, svc.RequireLiveSession(context.Background(), claims), model.ErrForbidden)
	})

	t.Run("superseded session is refused", func(t *testing.T) {
		svc, store, clock := newTestAuthService(t)
		seedActor(t, store, model.ActorKindAdministrator, "a-1", "admin1", model.RoleAdministrator, "s3cret-pass")
		old, err := svc.Authenticate(context.Background(), "admin1", "s3cret-pass")
		require.NoError(t, err)
		claims, err := svc.VerifyAccess(old.AccessToken)
		require.NoError(t, err)

		clock.Advance(time.Minute)
		_, err = svc.Authenticate(context.Background(), "admin1", "s3cret-pass")
		require.NoError(t, err)

		assert.ErrorIs(t, svc.RequireLiveSession(context.Background(), claims), model.ErrForbidden)
	})

	t.Run("deleted actor is refused", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		seedActor(t, store, model.ActorKindAdministrator, "a-1", "admin1", model.RoleAdministrator, "s3cret-pass")
		pair, err := svc.Authenticate(context.Background(), "admin1", "s3cret-pass")
		require.NoError(t, err)
		claims, err := svc.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)

		store.Delete(model.ActorKindAdministrator, "a-1")
		assert.ErrorIs(t, svc.RequireLiveSession(context.Background(), claims), model.ErrForbidden)
	})
}

func TestAuthService_LoginRefreshLogoutScenario(t *testing.T) {
	svc, store, clock := newTestAuthService(t)
	seedActor(t, store, model.ActorKindAdministrator, "a-1", "admin1", model.RoleAdministrator, "s3cret-pass")
	ctx := context.Background()

	pair, err := svc.Authenticate(ctx, "admin1", "s3cret-pass")
	require.NoError(t, err)
	a1, r1 := pair.AccessToken, pair.RefreshToken

	clock.Advance(30 * time.Second)
	grant, err := svc.Rotate(ctx, r1)
	require.NoError(t, err)
	assert.NotEqual(t, a1, grant.AccessToken)

	require.NoError(t, svc.Revoke(ctx, r1))

	_, err = svc.Rotate(ctx, r1)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestAuthService_Register(t *testing.T) {
	super := model.ActorClaims{ActorID: "s-1", Role: model.RoleSuperAdmin}
	admin := model.ActorClaims{ActorID: "a-1", Role: model.RoleAdministrator}

	validAdmin := model.RegisterInput{
		Name:            "Operator Desa",
		Username:        "operator",
		Email:           "operator@desa.id",
		Password:        "long-password",
		ConfirmPassword: "long-password",
		Role:            model.RoleAdministrator,
	}

	t.Run("superadmin registers an administrator who can then log in", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)

		profile, err := svc.Register(context.Background(), super, validAdmin)
		require.NoError(t, err)
		assert.Equal(t, model.ActorKindAdministrator, profile.Kind)

		_, err = svc.Authenticate(context.Background(), "operator", "long-password")
		assert.NoError(t, err)
	})

	t.Run("administrator cannot register administrators", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)
		_, err := svc.Register(context.Background(), admin, validAdmin)
		assert.ErrorIs(t, err, model.ErrRoleNotAssignable)
	})

	t.Run("administrator registers a user without email", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		in := validAdmin
		in.Role = model.RoleUser

		profile, err := svc.Register(context.Background(), admin, in)
		require.NoError(t, err)
		assert.Equal(t, model.ActorKindUser, profile.Kind)
		stored, ok := store.Get(model.ActorKindUser, profile.ID)
		require.True(t, ok)
		assert.Empty(t, stored.Email)
	})

	t.Run("username must be unique across both tables", func(t *testing.T) {
		svc, store, _ := newTestAuthService(t)
		seedActor(t, store, model.ActorKindUser, "u-1", "operator", model.RoleUser, "pass-word")

		_, err := svc.Register(context.Background(), super, validAdmin)
		assert.ErrorIs(t, err, model.ErrUsernameTaken)
	})

	t.Run("password confirmation must match", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)
		in := validAdmin
		in.ConfirmPassword = "different"

		_, err := svc.Register(context.Background(), super, in)
		assert.ErrorIs(t, err, model.ErrPasswordMismatch)
	})

	t.Run("administrators need an email", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)
		in := validAdmin
		in.Email = ""

		_, err := svc.Register(context.Background(), super, in)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})
}
