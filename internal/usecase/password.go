package usecase

import (
	"context"
	"errors"

	"backoffice/internal/domain"
)

type ChangePassword struct {
	Users    UserRepository
	Sessions domain.SessionStore
	Hasher   PasswordHasher
}

// Execute changes the caller's own password after re-verifying the current
// one, then bulk-revokes every session for the identity, including the one
// this request rode in on.
func (uc *ChangePassword) Execute(ctx context.Context, userID, current, next string) error {
	user, err := uc.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := uc.Hasher.Compare(user.PasswordHash, []byte(current)); err != nil {
		return domain.ErrInvalidCredentials
	}
	if len(next) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hash, err := uc.Hasher.Hash([]byte(next))
	if err != nil {
		return err
	}
	if err := uc.Users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	return uc.Sessions.DeleteAllForUser(ctx, userID)
}

// ForcePasswordReset is the admin-side reset: a new password is set without
// the current one, and every session for the identity is revoked so no
// previously issued token survives.
type ForcePasswordReset struct {
	Users    UserRepository
	Sessions domain.SessionStore
	Hasher   PasswordHasher
}

func (uc *ForcePasswordReset) Execute(ctx context.Context, userID, next string) error {
	if _, err := uc.Users.FindByID(ctx, userID); err != nil {
		return err
	}
	if len(next) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hash, err := uc.Hasher.Hash([]byte(next))
	if err != nil {
		return err
	}
	if err := uc.Users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	return uc.Sessions.DeleteAllForUser(ctx, userID)
}

// ForgotPassword mints a reset token for the given email. The token reaches
// the user through an external mail collaborator; this layer only computes
// it. A missing email yields no error and no token, so the endpoint cannot
// be used to probe which addresses exist.
type ForgotPassword struct {
	Users  UserRepository
	Tokens TokenIssuer
}

func (uc *ForgotPassword) Execute(ctx context.Context, brokerID, email string) (string, error) {
	user, err := uc.Users.FindByEmail(ctx, brokerID, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if user.Status != domain.UserActive {
		return "", nil
	}
	token, _, err := uc.Tokens.IssuePasswordReset(*user)
	return token, err
}

// ResetPassword consumes a reset token, sets the new password, and revokes
// all sessions for the identity.
type ResetPassword struct {
	Users    UserRepository
	Sessions domain.SessionStore
	Tokens   TokenIssuer
	Hasher   PasswordHasher
}

func (uc *ResetPassword) Execute(ctx context.Context, resetToken, next string) error {
	claims, err := uc.Tokens.VerifyPasswordReset(resetToken)
	if err != nil {
		return err
	}
	if len(next) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hash, err := uc.Hasher.Hash([]byte(next))
	if err != nil {
		return err
	}
	if err := uc.Users.UpdatePassword(ctx, claims.UserID, hash); err != nil {
		return err
	}
	return uc.Sessions.DeleteAllForUser(ctx, claims.UserID)
}
