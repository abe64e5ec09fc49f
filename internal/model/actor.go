package model

import "time"

// ActorKind names the table an actor is stored in.
type ActorKind string

const (
	ActorKindAdministrator ActorKind = "administrator"
	ActorKindUser          ActorKind = "user"
)

// LookupOrder is the order in which actor tables are searched by login name
// and by refresh token.
var LookupOrder = []ActorKind{ActorKindAdministrator, ActorKindUser}

const (
	RoleSuperAdmin    = "superadmin"
	RoleAdministrator = "administrator"
	RoleUser          = "user"
)

// KindForRole returns the actor table a role belongs to.
func KindForRole(role string) (ActorKind, bool) {
	switch role {
	case RoleSuperAdmin, RoleAdministrator:
		return ActorKindAdministrator, true
	case RoleUser:
		return ActorKindUser, true
	default:
		return "", false
	}
}

type Actor struct {
	ID           string
	Kind         ActorKind
	Name         string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a Actor) Profile() ActorProfile {
	return ActorProfile{
		ID:       a.ID,
		Kind:     a.Kind,
		Name:     a.Name,
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
}

type ActorProfile struct {
	ID       string    `json:"id"`
	Kind     ActorKind `json:"kind"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
	Role     string    `json:"role"`
}

// ActorClaims is the identity extracted from a verified access token.
type ActorClaims struct {
	ActorID   string
	Kind      ActorKind
	Name      string
	Username  string
	Role      string
	SessionID string
	ExpiresAt time.Time
}

type TokenPair struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"-"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int64        `json:"expiresIn"`
	Actor        ActorProfile `json:"actor"`
}

type AccessGrant struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresIn   int64        `json:"expiresIn"`
	Actor       ActorProfile `json:"actor"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=72"`
}

type RegisterInput struct {
	Name            string `json:"name" validate:"required,max=255"`
	Username        string `json:"username" validate:"required,min=3,max=100,alphanumunicode"`
	Email           string `json:"email" validate:"omitempty,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	Role            string `json:"role" validate:"required,oneof=superadmin administrator user"`
}
