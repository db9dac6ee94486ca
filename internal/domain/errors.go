package domain

import "errors"

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionRevoked     = errors.New("session expired or revoked")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrTenantNotFound     = errors.New("broker not found")
	ErrRateLimited        = errors.New("too many requests")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrTwoFactorRequired  = errors.New("two-factor code required")
	ErrTwoFactorInvalid   = errors.New("two-factor code invalid")
	ErrAccountSuspended   = errors.New("account suspended")
)
