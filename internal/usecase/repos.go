package usecase

import (
	"context"
	"time"

	"backoffice/internal/domain"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, brokerID, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateTwoFactor(ctx context.Context, id, secret string, enabled bool, backupCodeHashes []string) error
}

// TokenIssuer mints the three token purposes: session bearer tokens,
// intermediate 2FA tokens, and password-reset tokens.
type TokenIssuer interface {
	IssueSession(u domain.User) (token string, expiresAt time.Time, err error)
	IssueTwoFactor(u domain.User) (token string, expiresAt time.Time, err error)
	VerifyTwoFactor(token string) (domain.TokenClaims, error)
	IssuePasswordReset(u domain.User) (token string, expiresAt time.Time, err error)
	VerifyPasswordReset(token string) (domain.TokenClaims, error)
}

type PasswordHasher interface {
	Hash(secret []byte) (string, error)
	Compare(hash string, secret []byte) error
}

// CodeValidator checks a TOTP code against a stored secret.
type CodeValidator interface {
	Validate(secret, code string) bool
}
