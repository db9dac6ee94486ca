package usecase

import (
	"context"

	"backoffice/internal/domain"
)

const backupCodeCount = 10

// SecretGenerator provisions a new TOTP secret for one account.
type SecretGenerator interface {
	GenerateSecret(accountEmail string) (secret, uri string, err error)
}

// BackupCodeSource yields fresh single-use codes.
type BackupCodeSource func(n int) ([]string, error)

type TwoFactorSetup struct {
	Users     UserRepository
	Secrets   SecretGenerator
	TwoFactor CodeValidator
	Hasher    PasswordHasher
	NewCodes  BackupCodeSource
}

// Begin stores a pending (disabled) secret and returns the provisioning URI.
// Re-running replaces any earlier pending secret; an already-enabled account
// must disable first.
func (uc *TwoFactorSetup) Begin(ctx context.Context, userID string) (uri string, err error) {
	user, err := uc.Users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.TwoFactorEnabled {
		return "", domain.ErrForbidden
	}
	secret, uri, err := uc.Secrets.GenerateSecret(user.Email)
	if err != nil {
		return "", err
	}
	if err := uc.Users.UpdateTwoFactor(ctx, userID, secret, false, nil); err != nil {
		return "", err
	}
	return uri, nil
}

// Enable turns 2FA on once the user proves possession of the secret with a
// valid code, and returns the plaintext backup codes exactly once.
func (uc *TwoFactorSetup) Enable(ctx context.Context, userID, code string) ([]string, error) {
	user, err := uc.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorSecret == "" {
		return nil, domain.ErrTwoFactorInvalid
	}
	if !uc.TwoFactor.Validate(user.TwoFactorSecret, code) {
		return nil, domain.ErrTwoFactorInvalid
	}
	codes, err := uc.NewCodes(backupCodeCount)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		if hashes[i], err = uc.Hasher.Hash([]byte(c)); err != nil {
			return nil, err
		}
	}
	if err := uc.Users.UpdateTwoFactor(ctx, userID, user.TwoFactorSecret, true, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}

// Disable turns 2FA off after re-verifying the account password.
func (uc *TwoFactorSetup) Disable(ctx context.Context, userID, password string) error {
	user, err := uc.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := uc.Hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return domain.ErrInvalidCredentials
	}
	return uc.Users.UpdateTwoFactor(ctx, userID, "", false, nil)
}
