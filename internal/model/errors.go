package model

import "errors"

var (
	// Session related errors
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Permission/Access related errors
	ErrForbidden = errors.New("forbidden")

	// Actor related errors
	ErrActorNotFound     = errors.New("actor not found")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrEmailTaken        = errors.New("email already taken")
	ErrPasswordMismatch  = errors.New("password confirmation does not match")
	ErrRoleNotAssignable = errors.New("role cannot be assigned by this actor")

	// Resource related errors
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInUse         = errors.New("resource is still referenced")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
