package auth

import "errors"

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrPasswordResetRequired = errors.New("password reset required")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrUserNotFound          = errors.New("user not found")
	ErrForbidden             = errors.New("admin role required")
	ErrInvalidResetToken     = errors.New("reset token is invalid or expired")
)
