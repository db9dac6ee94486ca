package twofactor

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/pquerna/otp/totp"
)

// Service wraps TOTP secret provisioning and code validation for the 2FA
// login step.
type Service struct {
	Issuer string
}

func NewService(issuer string) *Service {
	if issuer == "" {
		issuer = "backoffice"
	}
	return &Service{Issuer: issuer}
}

// GenerateSecret returns a fresh TOTP secret and the otpauth:// provisioning
// URI the client feeds to an authenticator app.
func (s *Service) GenerateSecret(accountEmail string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: accountEmail,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// Validate reports whether code is currently valid for secret.
func (s *Service) Validate(secret, code string) bool {
	return totp.Validate(code, secret)
}

// NewBackupCodes returns n random single-use codes. The caller stores only
// their hashes.
func NewBackupCodes(n int) ([]string, error) {
	codes := make([]string, n)
	for i := range codes {
		buf := make([]byte, 5)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		codes[i] = hex.EncodeToString(buf)
	}
	return codes, nil
}
