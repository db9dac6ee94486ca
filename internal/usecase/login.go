package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"backoffice/internal/domain"

	"github.com/google/uuid"
)

// LoginResult carries either a live session token or, when the account has
// 2FA enabled, an intermediate token to be exchanged at the 2FA step.
type LoginResult struct {
	Token             string
	ExpiresAt         time.Time
	TwoFactorRequired bool
	Principal         domain.Principal
}

type Login struct {
	Users     UserRepository
	Sessions  domain.SessionStore
	Tokens    TokenIssuer
	Hasher    PasswordHasher
	TwoFactor CodeValidator
}

// Execute authenticates email/password inside one broker. Unknown email and
// wrong password are indistinguishable to the caller.
func (uc *Login) Execute(ctx context.Context, brokerID, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	user, err := uc.Users.FindByEmail(ctx, brokerID, email)
	if errors.Is(err, domain.ErrNotFound) && brokerID != "" {
		// Superadmins carry no broker and must be able to log in from any
		// tenant host, so a broker-scoped miss retries the global scope.
		user, err = uc.Users.FindByEmail(ctx, "", email)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.BrokerID == "" && user.Role != domain.RoleSuperAdmin {
		return nil, domain.ErrInvalidCredentials
	}
	switch user.Status {
	case domain.UserActive:
	case domain.UserSuspended:
		return nil, domain.ErrAccountSuspended
	default:
		return nil, domain.ErrInvalidCredentials
	}
	if err := uc.Hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		token, expiresAt, err := uc.Tokens.IssueTwoFactor(*user)
		if err != nil {
			return nil, err
		}
		return &LoginResult{
			Token:             token,
			ExpiresAt:         expiresAt,
			TwoFactorRequired: true,
		}, nil
	}
	return uc.openSession(ctx, *user)
}

// CompleteTwoFactor exchanges an intermediate 2FA token plus a TOTP code or
// an unused backup code for a real session.
func (uc *Login) CompleteTwoFactor(ctx context.Context, twoFactorToken, code string) (*LoginResult, error) {
	claims, err := uc.Tokens.VerifyTwoFactor(twoFactorToken)
	if err != nil {
		return nil, err
	}
	user, err := uc.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.Status != domain.UserActive {
		return nil, domain.ErrAccountSuspended
	}
	if !uc.TwoFactor.Validate(user.TwoFactorSecret, code) {
		if !uc.consumeBackupCode(ctx, user, code) {
			return nil, domain.ErrTwoFactorInvalid
		}
	}
	return uc.openSession(ctx, *user)
}

// consumeBackupCode burns a matching backup code. Each code is single-use:
// the surviving hashes are written back without the matched one.
func (uc *Login) consumeBackupCode(ctx context.Context, user *domain.User, code string) bool {
	if code == "" {
		return false
	}
	for i, hash := range user.BackupCodeHashes {
		if uc.Hasher.Compare(hash, []byte(code)) == nil {
			remaining := make([]string, 0, len(user.BackupCodeHashes)-1)
			remaining = append(remaining, user.BackupCodeHashes[:i]...)
			remaining = append(remaining, user.BackupCodeHashes[i+1:]...)
			if err := uc.Users.UpdateTwoFactor(ctx, user.ID, user.TwoFactorSecret, true, remaining); err != nil {
				return false
			}
			return true
		}
	}
	return false
}

func (uc *Login) openSession(ctx context.Context, user domain.User) (*LoginResult, error) {
	token, expiresAt, err := uc.Tokens.IssueSession(user)
	if err != nil {
		return nil, err
	}
	session := domain.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Principal: domain.Principal{UserID: user.ID, Email: user.Email, Role: user.Role},
	}, nil
}

type Register struct {
	Users  UserRepository
	Hasher PasswordHasher
}

// Execute onboards a client under the resolved broker.
func (uc *Register) Execute(ctx context.Context, brokerID, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid email is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	existing, err := uc.Users.FindByEmail(ctx, brokerID, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}
	hash, err := uc.Hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		BrokerID:     brokerID,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleClient,
		Status:       domain.UserActive,
		KYCStatus:    domain.KYCPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
