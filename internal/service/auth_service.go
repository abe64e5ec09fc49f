package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"village-portal/internal/metrics"
	"village-portal/internal/model"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	tokenIssuer      = "village-portal"
)

// ActorStore is the persistence the session manager needs. Lookups return
// model.ErrActorNotFound when no row matches.
type ActorStore interface {
	FindByUsername(ctx context.Context, kind model.ActorKind, username string) (model.Actor, error)
	FindByID(ctx context.Context, kind model.ActorKind, id string) (model.Actor, error)
	FindByRefreshToken(ctx context.Context, kind model.ActorKind, token string) (model.Actor, error)
	// SetRefreshToken overwrites whatever token the actor currently holds.
	SetRefreshToken(ctx context.Context, kind model.ActorKind, id string, token string) error
	// ClearRefreshToken nulls the stored token only while it still equals token.
	ClearRefreshToken(ctx context.Context, kind model.ActorKind, id string, token string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, actor model.Actor) error
}

type SessionConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	BcryptCost    int
}

type sessionClaims struct {
	Name      string          `json:"name"`
	Username  string          `json:"username"`
	Role      string          `json:"role"`
	Kind      model.ActorKind `json:"kind"`
	Type      string          `json:"typ"`
	SessionID string          `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	store         ActorStore
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	bcryptCost    int
	dummyHash     []byte
	now           func() time.Time
}

func NewAuthService(store ActorStore, cfg SessionConfig) (*AuthService, error) {
	if store == nil {
		return nil, errors.New("actor store is required")
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets are required")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	// Compared against when the login name is unknown so both failure paths
	// cost one bcrypt comparison.
	dummyHash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare password hasher: %w", err)
	}

	return &AuthService{
		store:         store,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		bcryptCost:    cfg.BcryptCost,
		dummyHash:     dummyHash,
		now:           time.Now,
	}, nil
}

// RefreshTTL is the lifetime of refresh tokens and of the session cookie.
func (s *AuthService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// Authenticate checks credentials and starts a new session, replacing any
// session the actor already had.
func (s *AuthService) Authenticate(ctx context.Context, username string, password string) (model.TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.SessionEvent("authenticate", "invalid_credentials")
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	actor, err := s.findByUsername(ctx, username)
	if errors.Is(err, model.ErrActorNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		metrics.SessionEvent("authenticate", "invalid_credentials")
		return model.TokenPair{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("find actor by username: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(actor.PasswordHash), []byte(password)); err != nil {
		metrics.SessionEvent("authenticate", "invalid_credentials")
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	now := s.now().UTC()
	sessionID := uuid.NewString()

	refreshToken, err := s.sign(actor, tokenTypeRefresh, sessionID, "", now, s.refreshTTL, s.refreshSecret)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	accessToken, err := s.sign(actor, tokenTypeAccess, uuid.NewString(), sessionID, now, s.accessTTL, s.accessSecret)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	if err := s.store.SetRefreshToken(ctx, actor.Kind, actor.ID, refreshToken); err != nil {
		return model.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	metrics.SessionEvent("authenticate", "success")
	slog.Info("session started", "actor_id", actor.ID, "kind", actor.Kind, "role", actor.Role)

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		Actor:        actor.Profile(),
	}, nil
}

// Rotate mints a new access token for the session the refresh token belongs
// to. The refresh token itself is only replaced at login.
func (s *AuthService) Rotate(ctx context.Context, refreshToken string) (model.AccessGrant, error) {
	if refreshToken == "" {
		metrics.SessionEvent("rotate", "missing_token")
		return model.AccessGrant{}, model.ErrMissingToken
	}

	actor, err := s.findByRefreshToken(ctx, refreshToken)
	if errors.Is(err, model.ErrActorNotFound) {
		metrics.SessionEvent("rotate", "invalid_token")
		return model.AccessGrant{}, model.ErrInvalidToken
	}
	if err != nil {
		return model.AccessGrant{}, fmt.Errorf("find actor by refresh token: %w", err)
	}

	claims, err := s.parse(refreshToken, s.refreshSecret, tokenTypeRefresh)
	if errors.Is(err, model.ErrExpiredToken) {
		if _, clearErr := s.store.ClearRefreshToken(ctx, actor.Kind, actor.ID, refreshToken); clearErr != nil {
			slog.Warn("clear expired refresh token failed", "actor_id", actor.ID, "error", clearErr)
		}
		metrics.SessionEvent("rotate", "expired_token")
		return model.AccessGrant{}, model.ErrExpiredToken
	}
	if err != nil {
		metrics.SessionEvent("rotate", "invalid_token")
		return model.AccessGrant{}, err
	}

	if claims.Subject != actor.ID || claims.Kind != actor.Kind {
		metrics.SessionEvent("rotate", "invalid_token")
		return model.AccessGrant{}, model.ErrInvalidToken
	}

	accessToken, err := s.sign(actor, tokenTypeAccess, uuid.NewString(), claims.ID, s.now().UTC(), s.accessTTL, s.accessSecret)
	if err != nil {
		return model.AccessGrant{}, fmt.Errorf("sign access token: %w", err)
	}

	metrics.SessionEvent("rotate", "success")
	return model.AccessGrant{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		Actor:       actor.Profile(),
	}, nil
}

// Revoke ends the session holding refreshToken. Unknown or empty tokens are
// not an error.
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		metrics.SessionEvent("revoke", "noop")
		return nil
	}

	actor, err := s.findByRefreshToken(ctx, refreshToken)
	if errors.Is(err, model.ErrActorNotFound) {
		metrics.SessionEvent("revoke", "noop")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find actor by refresh token: %w", err)
	}

	if _, err := s.store.ClearRefreshToken(ctx, actor.Kind, actor.ID, refreshToken); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	metrics.SessionEvent("revoke", "success")
	slog.Info("session ended", "actor_id", actor.ID, "kind", actor.Kind)
	return nil
}

// VerifyAccess validates an access token by signature and expiry only.
func (s *AuthService) VerifyAccess(accessToken string) (model.ActorClaims, error) {
	if accessToken == "" {
		return model.ActorClaims{}, model.ErrMissingToken
	}

	claims, err := s.parse(accessToken, s.accessSecret, tokenTypeAccess)
	if err != nil {
		return model.ActorClaims{}, err
	}

	out := model.ActorClaims{
		ActorID:   claims.Subject,
		Kind:      claims.Kind,
		Name:      claims.Name,
		Username:  claims.Username,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}

	return out, nil
}

// RequireRole fails with model.ErrForbidden unless claims carry one of roles.
func (s *AuthService) RequireRole(claims model.ActorClaims, roles ...string) error {
	if claims.ActorID == "" || !slices.Contains(roles, claims.Role) {
		return model.ErrForbidden
	}
	return nil
}

// RequireLiveSession checks that the session an access token was minted
// from is still the actor's current session.
func (s *AuthService) RequireLiveSession(ctx context.Context, claims model.ActorClaims) error {
	if claims.ActorID == "" || claims.SessionID == "" {
		return model.ErrForbidden
	}

	actor, err := s.store.FindByID(ctx, claims.Kind, claims.ActorID)
	if errors.Is(err, model.ErrActorNotFound) {
		return model.ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("find actor by id: %w", err)
	}

	if actor.RefreshToken == nil || *actor.RefreshToken == "" {
		return model.ErrForbidden
	}

	stored, err := s.parse(*actor.RefreshToken, s.refreshSecret, tokenTypeRefresh)
	if err != nil || stored.ID != claims.SessionID {
		return model.ErrForbidden
	}

	return nil
}

// Me returns the current profile of the actor behind claims.
func (s *AuthService) Me(ctx context.Context, claims model.ActorClaims) (model.ActorProfile, error) {
	actor, err := s.store.FindByID(ctx, claims.Kind, claims.ActorID)
	if errors.Is(err, model.ErrActorNotFound) {
		return model.ActorProfile{}, model.ErrNotFound
	}
	if err != nil {
		return model.ActorProfile{}, fmt.Errorf("find actor by id: %w", err)
	}
	return actor.Profile(), nil
}

// Register creates an actor on behalf of creator. Administrators and
// superadmins can only be created by a superadmin.
func (s *AuthService) Register(ctx context.Context, creator model.ActorClaims, in model.RegisterInput) (model.ActorProfile, error) {
	switch in.Role {
	case model.RoleSuperAdmin, model.RoleAdministrator:
		if creator.Role != model.RoleSuperAdmin {
			return model.ActorProfile{}, model.ErrRoleNotAssignable
		}
	case model.RoleUser:
		if creator.Role != model.RoleSuperAdmin && creator.Role != model.RoleAdministrator {
			return model.ActorProfile{}, model.ErrRoleNotAssignable
		}
	default:
		return model.ActorProfile{}, fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, in.Role)
	}

	return s.CreateActor(ctx, in)
}

// CreateActor registers an actor without an authorization check. It backs
// Register and the create-admin command.
func (s *AuthService) CreateActor(ctx context.Context, in model.RegisterInput) (model.ActorProfile, error) {
	kind, ok := model.KindForRole(in.Role)
	if !ok {
		return model.ActorProfile{}, fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, in.Role)
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if in.Password != in.ConfirmPassword {
		return model.ActorProfile{}, model.ErrPasswordMismatch
	}

	if kind == model.ActorKindAdministrator && in.Email == "" {
		return model.ActorProfile{}, fmt.Errorf("%w: email is required for administrators", model.ErrInvalidInput)
	}
	if kind == model.ActorKindUser {
		in.Email = ""
	}

	taken, err := s.store.UsernameExists(ctx, in.Username)
	if err != nil {
		return model.ActorProfile{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return model.ActorProfile{}, model.ErrUsernameTaken
	}

	if in.Email != "" {
		taken, err := s.store.EmailExists(ctx, in.Email)
		if err != nil {
			return model.ActorProfile{}, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return model.ActorProfile{}, model.ErrEmailTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return model.ActorProfile{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	actor := model.Actor{
		ID:           uuid.NewString(),
		Kind:         kind,
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, actor); err != nil {
		return model.ActorProfile{}, err
	}

	return actor.Profile(), nil
}

func (s *AuthService) findByUsername(ctx context.Context, username string) (model.Actor, error) {
	for _, kind := range model.LookupOrder {
		actor, err := s.store.FindByUsername(ctx, kind, username)
		if errors.Is(err, model.ErrActorNotFound) {
			continue
		}
		return actor, err
	}
	return model.Actor{}, model.ErrActorNotFound
}

func (s *AuthService) findByRefreshToken(ctx context.Context, token string) (model.Actor, error) {
	for _, kind := range model.LookupOrder {
		actor, err := s.store.FindByRefreshToken(ctx, kind, token)
		if errors.Is(err, model.ErrActorNotFound) {
			continue
		}
		return actor, err
	}
	return model.Actor{}, model.ErrActorNotFound
}

func (s *AuthService) sign(actor model.Actor, tokenType string, tokenID string, sessionID string, now time.Time, ttl time.Duration, secret []byte) (string, error) {
	claims := sessionClaims{
		Name:      actor.Name,
		Username:  actor.Username,
		Role:      actor.Role,
		Kind:      actor.Kind,
		Type:      tokenType,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   actor.ID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *AuthService) parse(raw string, secret []byte, expectedType string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrExpiredToken
		}
		return nil, model.ErrInvalidToken
	}

	if !parsed.Valid || claims.Type != expectedType || claims.Subject == "" || claims.ID == "" {
		return nil, model.ErrInvalidToken
	}

	return claims, nil
}
